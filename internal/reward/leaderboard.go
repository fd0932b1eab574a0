package reward

import "sort"

// pacerThreshold is the unlocked total above which the last-configured
// competitor switches from trailing to leading.
const pacerThreshold = 50

// DefaultCompetitors returns the stock simulated rival names.
func DefaultCompetitors() []string {
	return []string{"Mystery_Coder_X", "Code_Ninja_47", "Anonymous_Fixer"}
}

// Entry is one row of the simulated standings.
type Entry struct {
	Name  string `json:"name"`
	Total int    `json:"total"`
	You   bool   `json:"you,omitempty"`
}

// Board is a presentation-only snapshot. It is recomputed per query
// and never feeds back into the ledger.
type Board struct {
	Entries          []Entry `json:"entries"`
	Rank             int     `json:"rank"`
	TotalCompetitors int     `json:"total_competitors"`
	GapToLeader      int     `json:"gap_to_leader"`
	LeadOverNext     int     `json:"lead_over_next"`
}

// Leaderboard fabricates competitor standings around a session's
// unlocked total. Totals are a pure function of (session key, query
// count, unlocked), so the same query replays identically.
type Leaderboard struct {
	names   []string
	newRand Factory
}

// NewLeaderboard builds a simulator over the configured competitor
// names. A nil factory means the production math/rand source.
func NewLeaderboard(names []string, factory Factory) *Leaderboard {
	if factory == nil {
		factory = MathRand
	}
	return &Leaderboard{names: append([]string(nil), names...), newRand: factory}
}

// Standings computes the board for one query. The first configured
// competitor stays narrowly behind, the last pulls narrowly ahead once
// the session crosses the pacer threshold, and the rest jitter around
// the session's total.
func (b *Leaderboard) Standings(sessionKey string, queryCount uint64, unlocked int) Board {
	r := b.newRand(Seed(sessionKey+"/leaderboard", queryCount))

	entries := []Entry{{Name: "You", Total: unlocked, You: true}}
	for i, name := range b.names {
		entries = append(entries, Entry{Name: name, Total: b.total(r, i, unlocked)})
	}

	// Stable sort keeps "You" above competitors on equal totals.
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Total > entries[j].Total })

	rank := 1
	for i, e := range entries {
		if e.You {
			rank = i + 1
			break
		}
	}

	board := Board{
		Entries:          entries,
		Rank:             rank,
		TotalCompetitors: len(entries),
	}
	if rank > 1 {
		board.GapToLeader = entries[0].Total - unlocked
	}
	if rank < len(entries) {
		board.LeadOverNext = unlocked - entries[rank].Total
	}
	if len(board.Entries) > 10 {
		board.Entries = board.Entries[:10]
	}
	return board
}

// total derives one competitor's score. Role follows list position:
// first chases, last paces, the middle jitters.
func (b *Leaderboard) total(r Rand, i, unlocked int) int {
	switch {
	case i == 0:
		chaser := unlocked - (1 + r.Intn(3))
		if chaser < 1 {
			chaser = 1
		}
		return chaser
	case i == len(b.names)-1:
		if unlocked > pacerThreshold {
			return unlocked + 2 + r.Intn(4)
		}
		return unlocked * (85 + r.Intn(11)) / 100
	default:
		jitter := unlocked + r.Intn(8) - 2
		if jitter < 0 {
			jitter = 0
		}
		return jitter
	}
}
