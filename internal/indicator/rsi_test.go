package indicator

import (
	"binance-rsi-alerts/internal/models"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// the classic Wilder worked example
var wilderCloses = []float64{
	44.34, 44.09, 44.15, 43.61, 44.33, 44.83, 45.10, 45.42, 45.84, 46.08,
	45.89, 46.03, 45.61, 46.28, 46.28, 46.00, 46.03, 46.41, 46.22, 45.64,
}

func TestRSIWilderExample(t *testing.T) {
	got, err := RSI(wilderCloses, 14)
	require.NoError(t, err)

	want := []float64{70.46, 66.25, 66.48, 69.35, 66.29, 57.92}
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "index %d", i)
	}
}

func TestRSIMonotonicSeries(t *testing.T) {
	up := []float64{1, 2, 3, 4, 5, 6}
	down := []float64{6, 5, 4, 3, 2, 1}
	flat := []float64{3, 3, 3, 3, 3, 3}

	got, err := RSI(up, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 100, 100}, got)

	got, err = RSI(down, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, got)

	got, err = RSI(flat, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{50, 50, 50}, got)
}

func TestRSINotEnoughData(t *testing.T) {
	_, err := RSI([]float64{1, 2, 3}, 3)
	assert.ErrorIs(t, err, ErrNotEnoughData)

	_, err = RSI([]float64{1, 2, 3}, 0)
	assert.Error(t, err)
}

func TestCheckThresholds(t *testing.T) {
	params := Params{Period: 14, Overbought: 70, Oversold: 40}

	check, err := Check(wilderCloses[:15], params)
	require.NoError(t, err)
	assert.InDelta(t, 70.46, check.RSIVal, 1e-9)
	assert.True(t, check.Overbought)
	assert.False(t, check.Oversold)

	check, err = Check(wilderCloses, params)
	require.NoError(t, err)
	assert.False(t, check.Overbought)
	assert.False(t, check.Oversold)

	down := []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0.9, 0.8, 0.7, 0.6, 0.5}
	check, err = Check(down, params)
	require.NoError(t, err)
	assert.Equal(t, 0.0, check.RSIVal)
	assert.True(t, check.Oversold)
}

func TestCheckOversoldBoundaryIsInclusive(t *testing.T) {
	check, err := Check([]float64{6, 5, 4, 3, 2, 1}, Params{Period: 3, Overbought: 70, Oversold: 0})
	require.NoError(t, err)
	assert.True(t, check.Oversold)
}

type fakeSource struct {
	closes []float64
	err    error
	got    []any
}

func (f *fakeSource) Closes(_ context.Context, symbol, interval string, limit int) ([]float64, error) {
	f.got = []any{symbol, interval, limit}
	return f.closes, f.err
}

func TestCheckerCheckRSI(t *testing.T) {
	src := &fakeSource{closes: wilderCloses}
	c := NewChecker(src, Params{Period: 14, Interval: "1d", Limit: 100, Overbought: 70, Oversold: 40})

	check, err := c.CheckRSI(context.Background(), "ETHEUR")
	require.NoError(t, err)
	assert.Equal(t, []any{"ETHEUR", "1d", 100}, src.got)
	assert.Equal(t, models.RSICheck{TradingPair: "ETHEUR", RSIVal: 57.92}, check)
}

func TestCheckerPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	c := NewChecker(&fakeSource{err: boom}, Params{Period: 14})
	_, err := c.CheckRSI(context.Background(), "ETHEUR")
	assert.ErrorIs(t, err, boom)

	c = NewChecker(&fakeSource{closes: []float64{1, 2}}, Params{Period: 14})
	_, err = c.CheckRSI(context.Background(), "NEWEUR")
	assert.ErrorIs(t, err, ErrNotEnoughData)
}
