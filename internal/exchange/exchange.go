package exchange

import "context"

// Exchange defines the market data an exchange must provide to the scanner.
// The REST-only surface keeps the scan a plain batch job.
type Exchange interface {
	// ListTradingSymbols returns the symbols currently trading against one of
	// the configured quote assets, sorted.
	ListTradingSymbols(ctx context.Context) ([]string, error)

	// Closes returns up to limit close prices for symbol, oldest first.
	Closes(ctx context.Context, symbol, interval string, limit int) ([]float64, error)
}
