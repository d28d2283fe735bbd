package valueobject

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWindow(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)
	from := time.Date(2026, 7, 1, 12, 0, 0, 0, msk)
	to := from.Add(6 * time.Hour)

	w, err := NewWindow(from, to)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, w.From().Location())
	assert.Equal(t, 9, w.From().Hour())
	assert.Equal(t, 6*time.Hour, w.Span())

	_, err = NewWindow(to, from)
	assert.ErrorIs(t, err, ErrInvalidWindow)
	_, err = NewWindow(time.Time{}, to)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestLookback(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

	w, err := LookbackDays(now, 30)
	require.NoError(t, err)
	assert.Equal(t, now, w.To())
	assert.Equal(t, now.AddDate(0, 0, -30), w.From())

	assert.True(t, w.Includes(now))
	assert.True(t, w.Includes(w.From()))
	assert.False(t, w.Includes(now.Add(time.Second)))

	_, err = Lookback(now, 0)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestWindow_Exceeds(t *testing.T) {
	w, err := Lookback(time.Now(), 48*time.Hour)
	require.NoError(t, err)

	assert.True(t, w.Exceeds(24*time.Hour))
	assert.False(t, w.Exceeds(48*time.Hour))
	assert.False(t, w.Exceeds(0))
}
