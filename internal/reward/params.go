package reward

import "time"

// Params are the tunable constants of the reward economy. The zero
// value is not usable; start from DefaultParams and override.
type Params struct {
	// ImportBonus is the extra units locked per import-tagged diagnostic.
	ImportBonus int
	// LockCapFactor bounds one check call's lock delta to
	// LockCapFactor x (errors + warnings).
	LockCapFactor int

	// StreakWindow is how recent the previous successful fix must be
	// for a submission to extend the streak instead of restarting it.
	StreakWindow time.Duration
	// StreakRateStep raises the streak bonus rate per consecutive fix;
	// a streak of 1 always pays zero bonus.
	StreakRateStep float64
	// StreakRateMax caps the streak bonus rate.
	StreakRateMax float64

	// JackpotP is the probability that a fix submission draws a
	// multiplier event.
	JackpotP float64
	// Multipliers is the draw pool for jackpot events; repeats weight
	// the draw (2,2,2,3 means 3x hits a quarter of the time).
	Multipliers []int

	// IdleWindow is how long a session may sit inactive before debt
	// starts accruing.
	IdleWindow time.Duration
	// DebtRatePerHour is the debt accrued per hour beyond IdleWindow.
	DebtRatePerHour float64
	// MaxDebtFraction caps how much of the displayed score debt can
	// eat. Debt itself is unbounded; only its effect is clamped.
	MaxDebtFraction float64

	// Milestones are unlocked-total thresholds, ascending. Each is
	// recorded once when first crossed.
	Milestones []int
	// EscalationThresholds map the locked backlog onto a pressure
	// level, ascending.
	EscalationThresholds []int
}

// DefaultParams returns the stock economy.
func DefaultParams() Params {
	return Params{
		ImportBonus:          1,
		LockCapFactor:        3,
		StreakWindow:         10 * time.Minute,
		StreakRateStep:       0.10,
		StreakRateMax:        0.50,
		JackpotP:             0.10,
		Multipliers:          []int{2, 2, 2, 3},
		IdleWindow:           30 * time.Minute,
		DebtRatePerHour:      0.05,
		MaxDebtFraction:      0.50,
		Milestones:           []int{10, 50, 100, 250, 500, 1000},
		EscalationThresholds: []int{5, 10, 15, 20},
	}
}

// StreakRate is the bonus rate for a given streak length. Rate grows
// by StreakRateStep per consecutive fix after the first, capped at
// StreakRateMax. StreakRate(1) is always 0.
func (p Params) StreakRate(streak int) float64 {
	if streak <= 1 {
		return 0
	}
	rate := float64(streak-1) * p.StreakRateStep
	if rate > p.StreakRateMax {
		rate = p.StreakRateMax
	}
	return rate
}

// PressureLevel maps a locked backlog onto an escalation level: the
// number of thresholds the backlog has reached.
func (p Params) PressureLevel(locked int) int {
	level := 0
	for _, t := range p.EscalationThresholds {
		if locked >= t {
			level++
		}
	}
	return level
}
