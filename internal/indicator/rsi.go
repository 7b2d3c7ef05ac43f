package indicator

import (
	"binance-rsi-alerts/internal/models"
	"errors"
	"fmt"
	"math"
)

// ErrNotEnoughData is returned when fewer than period+1 closes are given.
var ErrNotEnoughData = errors.New("not enough closes for RSI")

// Params are the RSI settings of a check.
type Params struct {
	Period     int
	Interval   string
	Limit      int
	Overbought float64
	Oversold   float64
}

// RSI calculates the Relative Strength Index series using Wilder's smoothing.
// The first value corresponds to closes[period]. Values are rounded to two
// decimals.
func RSI(closes []float64, period int) ([]float64, error) {
	if period < 1 {
		return nil, fmt.Errorf("invalid RSI period %d", period)
	}
	if len(closes) <= period {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughData, len(closes), period+1)
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		gain, loss := change(closes[i-1], closes[i])
		avgGain += gain
		avgLoss += loss
	}
	p := float64(period)
	avgGain /= p
	avgLoss /= p

	out := make([]float64, 0, len(closes)-period)
	out = append(out, rsiValue(avgGain, avgLoss))

	for i := period + 1; i < len(closes); i++ {
		gain, loss := change(closes[i-1], closes[i])
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out = append(out, rsiValue(avgGain, avgLoss))
	}
	return out, nil
}

// Check evaluates the latest RSI of closes against the thresholds.
func Check(closes []float64, params Params) (models.RSICheck, error) {
	series, err := RSI(closes, params.Period)
	if err != nil {
		return models.RSICheck{}, err
	}
	last := series[len(series)-1]
	return models.RSICheck{
		RSIVal:     last,
		Overbought: last >= params.Overbought,
		Oversold:   last <= params.Oversold,
	}, nil
}

func change(prev, cur float64) (gain, loss float64) {
	delta := cur - prev
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return math.Round((100-100/(1+rs))*100) / 100
}
