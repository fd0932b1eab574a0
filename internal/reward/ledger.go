// Package reward implements the per-session lollipop economy: errors
// lock reward units, verified fixes unlock them, streaks and jackpot
// draws mint bonuses on top, and idle time accrues a display-only debt
// penalty. All randomness flows through an injected seeded source and
// all time through an injected clock, so every sequence of operations
// is reproducible.
package reward

import (
	"fmt"
	"math"
	"time"

	"candycheck/internal/logging"
)

// Achievement names surfaced on fix submissions. Each is granted at
// most once per session: the first verified fix, reaching streaks of 5
// and 10, and the unlocked total landing on exactly 77.
const (
	AchievementFirstFix = "first_fix"
	AchievementStreak5  = "streak_5"
	AchievementStreak10 = "streak_10"
	AchievementLucky77  = "lucky_77"
)

// InvariantViolationError reports an internal ledger inconsistency.
// None of these are reachable through the public contract; seeing one
// means a logic defect, so the operation fails without committing
// instead of clamping values into range.
type InvariantViolationError struct {
	Op     string
	Detail string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("ledger invariant violated in %s: %s", e.Op, e.Detail)
}

// Ledger is one session's reward state. The owning session serializes
// access; the ledger itself carries no locking.
type Ledger struct {
	key     string
	params  Params
	now     func() time.Time
	newRand Factory

	locked   int
	unlocked int
	debt     float64
	streak   int

	lastFix      time.Time
	lastActivity time.Time
	debtThrough  time.Time

	milestones     []int
	totalChecks    int
	totalFixes     int
	errorsFound    int
	errorsFixed    int
	lifetimeMinted int
	draws          uint64
	streak5        bool
	streak10       bool
	luckySeven     bool
}

// NewLedger builds a ledger for sessionKey. A nil clock means wall
// time; a nil factory means the production math/rand source.
func NewLedger(sessionKey string, params Params, clock func() time.Time, factory Factory) *Ledger {
	if clock == nil {
		clock = time.Now
	}
	if factory == nil {
		factory = MathRand
	}
	l := &Ledger{
		key:     sessionKey,
		params:  params,
		now:     clock,
		newRand: factory,
	}
	now := l.now()
	l.lastActivity = now
	l.debtThrough = now
	return l
}

// CheckOutcome reports the effect of one check call.
type CheckOutcome struct {
	LockedDelta   int     `json:"locked_delta"`
	TotalLocked   int     `json:"total_locked"`
	ShadowScore   int     `json:"shadow_score"`
	Efficiency    float64 `json:"efficiency"`
	PressureLevel int     `json:"pressure_level"`
}

// OnCheck locks one unit per error and warning plus ImportBonus extra
// per import-tagged diagnostic, capped at LockCapFactor x the
// error+warning count for the call. Locked never decreases here.
// Info-severity diagnostics must not be counted by the caller.
func (l *Ledger) OnCheck(errors, warnings, importTagged int) (CheckOutcome, error) {
	const op = "on_check"
	if err := l.verify(op); err != nil {
		return CheckOutcome{}, err
	}
	if errors < 0 || warnings < 0 || importTagged < 0 {
		return CheckOutcome{}, &InvariantViolationError{Op: op,
			Detail: fmt.Sprintf("negative counts: errors=%d warnings=%d import=%d", errors, warnings, importTagged)}
	}

	l.AccrueIdle()
	l.touch()

	count := errors + warnings
	delta := count + importTagged*l.params.ImportBonus
	if limit := l.params.LockCapFactor * count; delta > limit {
		delta = limit
	}

	l.locked += delta
	l.errorsFound += count
	l.totalChecks++
	l.lifetimeMinted += delta

	logging.Reward("session %s locked +%d (errors=%d warnings=%d import=%d), total locked %d",
		l.key, delta, errors, warnings, importTagged, l.locked)

	return CheckOutcome{
		LockedDelta:   delta,
		TotalLocked:   l.locked,
		ShadowScore:   l.lifetimeMinted,
		Efficiency:    l.Efficiency(),
		PressureLevel: l.params.PressureLevel(l.locked),
	}, nil
}

// FixOutcome reports the effect of one verified fix submission.
type FixOutcome struct {
	BaseUnlocked    int      `json:"base_unlocked"`
	Bonus           int      `json:"bonus"`
	Multiplier      int      `json:"multiplier"`
	TotalReward     int      `json:"total_reward"`
	Streak          int      `json:"streak"`
	Unlocked        int      `json:"unlocked"`
	LockedRemaining int      `json:"locked_remaining"`
	NewMilestones   []int    `json:"new_milestones,omitempty"`
	Achievements    []string `json:"achievements,omitempty"`
	ShadowScore     int      `json:"shadow_score"`
	Efficiency      float64  `json:"efficiency"`
}

// OnFixSubmit credits a verified fix of errorsFixed diagnostics. The
// base unlock is capped by the locked balance; the streak bonus and a
// jackpot multiplier draw mint extra units on top without draining
// locked. The new state is validated before any field is committed.
func (l *Ledger) OnFixSubmit(errorsFixed int) (FixOutcome, error) {
	const op = "on_fix_submit"
	if err := l.verify(op); err != nil {
		return FixOutcome{}, err
	}
	if errorsFixed < 0 {
		return FixOutcome{}, &InvariantViolationError{Op: op,
			Detail: fmt.Sprintf("negative fix count %d", errorsFixed)}
	}

	l.AccrueIdle()
	now := l.now()

	streak := 1
	if !l.lastFix.IsZero() && now.Sub(l.lastFix) <= l.params.StreakWindow {
		streak = l.streak + 1
	}

	base := errorsFixed
	if base > l.locked {
		base = l.locked
	}
	bonus := int(math.Floor(float64(base) * l.params.StreakRate(streak)))
	total := base + bonus

	multiplier := 1
	r := l.newRand(Seed(l.key, l.draws))
	l.draws++
	if len(l.params.Multipliers) > 0 && r.Float64() < l.params.JackpotP {
		multiplier = l.params.Multipliers[r.Intn(len(l.params.Multipliers))]
		total *= multiplier
	}

	newLocked := l.locked - base
	newUnlocked := l.unlocked + total
	switch {
	case newLocked < 0:
		return FixOutcome{}, &InvariantViolationError{Op: op,
			Detail: fmt.Sprintf("unlock %d exceeds locked %d", base, l.locked)}
	case total < base:
		return FixOutcome{}, &InvariantViolationError{Op: op,
			Detail: fmt.Sprintf("total reward %d below base unlock %d", total, base)}
	case newUnlocked < l.unlocked:
		return FixOutcome{}, &InvariantViolationError{Op: op,
			Detail: fmt.Sprintf("unlocked would decrease from %d to %d", l.unlocked, newUnlocked)}
	}

	l.locked = newLocked
	l.unlocked = newUnlocked
	l.streak = streak
	l.lastFix = now
	l.touch()
	l.totalFixes++
	l.errorsFixed += errorsFixed
	l.lifetimeMinted += total - base
	// A successful fix redeems any idle penalty.
	l.debt = 0

	var crossed []int
	for _, m := range l.params.Milestones {
		if newUnlocked >= m && !containsInt(l.milestones, m) {
			l.milestones = append(l.milestones, m)
			crossed = append(crossed, m)
		}
	}

	var achievements []string
	if l.totalFixes == 1 {
		achievements = append(achievements, AchievementFirstFix)
	}
	if streak >= 5 && !l.streak5 {
		l.streak5 = true
		achievements = append(achievements, AchievementStreak5)
	}
	if streak >= 10 && !l.streak10 {
		l.streak10 = true
		achievements = append(achievements, AchievementStreak10)
	}
	if newUnlocked == 77 && !l.luckySeven {
		l.luckySeven = true
		achievements = append(achievements, AchievementLucky77)
	}

	logging.Reward("session %s unlocked +%d (base=%d bonus=%d x%d), streak %d, locked %d remaining",
		l.key, total, base, bonus, multiplier, streak, l.locked)

	return FixOutcome{
		BaseUnlocked:    base,
		Bonus:           total - base,
		Multiplier:      multiplier,
		TotalReward:     total,
		Streak:          streak,
		Unlocked:        l.unlocked,
		LockedRemaining: l.locked,
		NewMilestones:   crossed,
		Achievements:    achievements,
		ShadowScore:     l.lifetimeMinted,
		Efficiency:      l.Efficiency(),
	}, nil
}

// OnFixReject records a fix submission that failed verification. The
// streak is lost; balances and debt are untouched, so the only cost is
// starting the streak over.
func (l *Ledger) OnFixReject() {
	l.AccrueIdle()
	l.streak = 0
	l.touch()
	logging.Reward("session %s fix rejected, streak reset", l.key)
}

// AccrueIdle grows debt for time spent idle beyond the idle window.
// Reads may call it repeatedly: accrual is tracked through a separate
// watermark, so polling status neither pauses nor double-counts decay.
// It never mutates locked or unlocked.
func (l *Ledger) AccrueIdle() float64 {
	now := l.now()
	start := l.lastActivity.Add(l.params.IdleWindow)
	if l.debtThrough.After(start) {
		start = l.debtThrough
	}
	if !now.After(start) {
		return 0
	}

	delta := l.params.DebtRatePerHour * now.Sub(start).Hours()
	l.debt += delta
	l.debtThrough = now
	logging.RewardDebug("session %s accrued %.4f debt, total %.4f", l.key, delta, l.debt)
	return delta
}

// touch marks mutating activity, restarting the idle window.
func (l *Ledger) touch() {
	now := l.now()
	l.lastActivity = now
	l.debtThrough = now
}

// Snapshot is the ledger's displayed state. EffectiveScore applies the
// debt penalty to the unlocked total without mutating it.
type Snapshot struct {
	Locked             int     `json:"locked"`
	Unlocked           int     `json:"unlocked"`
	EffectiveScore     float64 `json:"effective_score"`
	Debt               float64 `json:"debt"`
	Streak             int     `json:"streak"`
	TotalChecks        int     `json:"total_checks"`
	TotalFixes         int     `json:"total_fixes"`
	ShadowScore        int     `json:"shadow_score"`
	Efficiency         float64 `json:"efficiency"`
	PressureLevel      int     `json:"pressure_level"`
	MilestonesReached  []int   `json:"milestones_reached,omitempty"`
	NextMilestone      int     `json:"next_milestone,omitempty"`
	MilestoneRemaining int     `json:"milestone_remaining,omitempty"`
	MilestoneProgress  float64 `json:"milestone_progress,omitempty"`
	DecayActive        bool    `json:"decay_active"`
}

// Snapshot reports current state. It accrues pending idle debt first
// so the displayed penalty is current, but performs no other mutation.
func (l *Ledger) Snapshot() Snapshot {
	l.AccrueIdle()

	penalty := l.debt
	if penalty > l.params.MaxDebtFraction {
		penalty = l.params.MaxDebtFraction
	}

	s := Snapshot{
		Locked:            l.locked,
		Unlocked:          l.unlocked,
		EffectiveScore:    float64(l.unlocked) * (1 - penalty),
		Debt:              l.debt,
		Streak:            l.streak,
		TotalChecks:       l.totalChecks,
		TotalFixes:        l.totalFixes,
		ShadowScore:       l.lifetimeMinted,
		Efficiency:        l.Efficiency(),
		PressureLevel:     l.params.PressureLevel(l.locked),
		MilestonesReached: append([]int(nil), l.milestones...),
		DecayActive:       l.debt > 0,
	}
	for _, m := range l.params.Milestones {
		if !containsInt(l.milestones, m) {
			s.NextMilestone = m
			s.MilestoneRemaining = m - l.unlocked
			s.MilestoneProgress = float64(l.unlocked) / float64(m)
			break
		}
	}
	return s
}

// Efficiency is the fixed-to-found ratio as a percentage. With nothing
// found yet it reports 100.
func (l *Ledger) Efficiency() float64 {
	if l.errorsFound == 0 {
		return 100.0
	}
	return float64(l.errorsFixed) / float64(l.errorsFound) * 100
}

// Unlocked returns the credited total.
func (l *Ledger) Unlocked() int { return l.unlocked }

// Locked returns the pending balance.
func (l *Ledger) Locked() int { return l.locked }

// verify cross-checks the ledger before a mutation commits.
func (l *Ledger) verify(op string) error {
	if l.locked < 0 || l.unlocked < 0 || l.debt < 0 {
		return &InvariantViolationError{Op: op,
			Detail: fmt.Sprintf("negative balance: locked=%d unlocked=%d debt=%f", l.locked, l.unlocked, l.debt)}
	}
	if l.unlocked+l.locked != l.lifetimeMinted {
		return &InvariantViolationError{Op: op,
			Detail: fmt.Sprintf("minted total %d does not cover unlocked %d + locked %d", l.lifetimeMinted, l.unlocked, l.locked)}
	}
	return nil
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
