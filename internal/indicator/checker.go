package indicator

import (
	"binance-rsi-alerts/internal/models"
	"context"
	"fmt"
)

// CloseSource provides close prices for a symbol.
type CloseSource interface {
	Closes(ctx context.Context, symbol, interval string, limit int) ([]float64, error)
}

// Checker computes the RSI check of a pair from exchange closes.
type Checker struct {
	source CloseSource
	params Params
}

// NewChecker creates a Checker reading from source.
func NewChecker(source CloseSource, params Params) *Checker {
	return &Checker{source: source, params: params}
}

// CheckRSI fetches closes for pair and evaluates them.
func (c *Checker) CheckRSI(ctx context.Context, pair string) (models.RSICheck, error) {
	closes, err := c.source.Closes(ctx, pair, c.params.Interval, c.params.Limit)
	if err != nil {
		return models.RSICheck{}, err
	}
	check, err := Check(closes, c.params)
	if err != nil {
		return models.RSICheck{}, fmt.Errorf("%s: %w", pair, err)
	}
	check.TradingPair = pair
	return check, nil
}
