// Package notifier delivers oversold alerts to the user.
package notifier

import (
	"binance-rsi-alerts/internal/models"
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrNotConfigured is returned when a notifier lacks the settings it needs.
var ErrNotConfigured = errors.New("notifier is not configured")

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Notify delivers an alert for the given pairs. Returns error if delivery fails.
	Notify(ctx context.Context, pairs []models.OversoldPair) error
}

// LogNotifier only logs the alert. It is used when e-mail is not configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, pairs []models.OversoldPair) error {
	for _, p := range pairs {
		n.logger.Info("oversold alert", zap.String("pair", p.TradingPair), zap.Float64("rsi", p.RSIVal))
	}
	return nil
}
