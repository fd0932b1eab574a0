package store

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *OutcomeLog {
	t.Helper()
	log, err := OpenOutcomeLog(filepath.Join(t.TempDir(), "outcomes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log
}

func TestOutcomeLogAppendFillsDefaults(t *testing.T) {
	log := openTestLog(t)

	require.NoError(t, log.Append(OutcomeEvent{
		SessionKey: "s1",
		Persona:    "sugar_rusher",
		Kind:       EventCheck,
		ErrorCount: 2,
	}))

	events, err := log.Events(10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID, "missing id is generated")
	assert.False(t, events[0].CreatedAt.IsZero(), "missing timestamp is generated")
	assert.Equal(t, "s1", events[0].SessionKey)
	assert.Equal(t, EventCheck, events[0].Kind)
	assert.Equal(t, 2, events[0].ErrorCount)
}

func TestOutcomeLogPersonaSummary(t *testing.T) {
	log := openTestLog(t)

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	events := []OutcomeEvent{
		{SessionKey: "a", Persona: "sugar_rusher", Kind: EventCheck, ErrorCount: 3},
		{SessionKey: "a", Persona: "sugar_rusher", Kind: EventFix, UnlockedDelta: 3},
		{SessionKey: "b", Persona: "sugar_rusher", Kind: EventCheck, ErrorCount: 1},
		{SessionKey: "c", Persona: "candy_collector", Kind: EventCheck, ErrorCount: 2},
		{SessionKey: "c", Persona: "candy_collector", Kind: EventFixRejected, ErrorCount: 2},
		// Clean checks carry no exposure.
		{SessionKey: "d", Persona: "dopamine_seeker", Kind: EventCheck, ErrorCount: 0},
	}
	for i, ev := range events {
		ev.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, log.Append(ev))
	}

	summary, err := log.PersonaSummary()
	require.NoError(t, err)
	require.Len(t, summary, 3)

	byPersona := make(map[string]PersonaSummary, len(summary))
	for _, s := range summary {
		byPersona[s.Persona] = s
	}

	sugar := byPersona["sugar_rusher"]
	assert.Equal(t, 2, sugar.Shown)
	assert.Equal(t, 1, sugar.Fixed)
	assert.InDelta(t, 0.5, sugar.FixRate, 1e-9)

	candy := byPersona["candy_collector"]
	assert.Equal(t, 1, candy.Shown)
	assert.Equal(t, 0, candy.Fixed)
	assert.Zero(t, candy.FixRate)

	dopamine := byPersona["dopamine_seeker"]
	assert.Equal(t, 0, dopamine.Shown, "error-free checks are not exposure")
	assert.Zero(t, dopamine.FixRate, "zero exposure never divides by zero")
}

func TestOutcomeLogEventsNewestFirst(t *testing.T) {
	log := openTestLog(t)

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, log.Append(OutcomeEvent{
			SessionKey: "s",
			Persona:    "sugar_rusher",
			Kind:       EventCheck,
			ErrorCount: i,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}))
	}

	events, err := log.Events(3)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, 4, events[0].ErrorCount)
	assert.Equal(t, 3, events[1].ErrorCount)
	assert.Equal(t, 2, events[2].ErrorCount)
}

func TestOutcomeLogConcurrentAppend(t *testing.T) {
	log := openTestLog(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, log.Append(OutcomeEvent{
				SessionKey: "shared",
				Persona:    "sugar_rusher",
				Kind:       EventFix,
			}))
		}()
	}
	wg.Wait()

	events, err := log.Events(100)
	require.NoError(t, err)
	assert.Len(t, events, 16)
}

func TestOutcomeLogCloseIsIdempotent(t *testing.T) {
	log, err := OpenOutcomeLog(filepath.Join(t.TempDir(), "outcomes.db"))
	require.NoError(t, err)
	require.NoError(t, log.Close())
	require.NoError(t, log.Close())
}
