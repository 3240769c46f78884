package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodBoundaries(t *testing.T) {
	p, err := NewPeriod(2025, 1)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), p.Start())
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), p.End())
	assert.True(t, p.Contains(time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC)))
	assert.False(t, p.Contains(p.End()))
	assert.Equal(t, "2025-01", p.String())
}

func TestPeriodRollsOverYearEnd(t *testing.T) {
	dec := Period{Year: 2024, Month: time.December}
	assert.Equal(t, Period{Year: 2025, Month: time.January}, dec.Next())
	assert.Equal(t, dec, dec.Next().Prev())
	assert.True(t, dec.Before(dec.Next()))
	assert.Equal(t, 0, dec.Compare(Period{Year: 2024, Month: time.December}))
}

func TestNewPeriodRejectsInvalidMonth(t *testing.T) {
	_, err := NewPeriod(2025, 13)
	assert.True(t, errors.Is(err, ErrInvalidPeriod))

	_, err = NewPeriod(2025, 0)
	assert.True(t, errors.Is(err, ErrInvalidPeriod))
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2025-03")
	require.NoError(t, err)
	assert.Equal(t, Period{Year: 2025, Month: time.March}, p)

	_, err = ParsePeriod("March")
	assert.True(t, errors.Is(err, ErrInvalidPeriod))
}

func TestLedgerStateAdvance(t *testing.T) {
	state := LedgerState{ID: LedgerStateID, OpenYear: 2025, OpenMonth: 12}
	at := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	state.Advance(at)

	assert.Equal(t, Period{Year: 2026, Month: time.January}, state.OpenPeriod())
	require.NotNil(t, state.LastFinalizedAt)
	assert.Equal(t, at, *state.LastFinalizedAt)
}
