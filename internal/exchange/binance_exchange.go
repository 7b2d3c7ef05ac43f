package exchange

import (
	"binance-rsi-alerts/internal/models"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2"
	"go.uber.org/zap"
)

const statusTrading = "TRADING"

// BinanceExchange implements Exchange using the public Binance REST API.
// No API key is needed for the endpoints it uses.
type BinanceExchange struct {
	client      *binance.Client
	quoteAssets map[string]struct{}
	logger      *zap.Logger
}

// NewBinanceExchange creates a client for the quote assets in cfg.
func NewBinanceExchange(cfg *models.Config, logger *zap.Logger) *BinanceExchange {
	client := binance.NewClient("", "")
	if cfg.BaseURL != "" {
		client.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	quotes := make(map[string]struct{}, len(cfg.QuoteAssets))
	for _, q := range cfg.QuoteAssets {
		quotes[strings.ToUpper(q)] = struct{}{}
	}

	return &BinanceExchange{
		client:      client,
		quoteAssets: quotes,
		logger:      logger,
	}
}

// ListTradingSymbols reads the exchange info and keeps the TRADING symbols
// quoted in one of the configured assets.
func (e *BinanceExchange) ListTradingSymbols(ctx context.Context) ([]string, error) {
	info, err := e.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get exchange info: %w", err)
	}

	symbols := make([]string, 0)
	for _, s := range info.Symbols {
		if s.Status != statusTrading {
			continue
		}
		if _, ok := e.quoteAssets[s.QuoteAsset]; !ok {
			continue
		}
		symbols = append(symbols, s.Symbol)
	}
	sort.Strings(symbols)

	e.logger.Info("exchange info",
		zap.String("exchange", "binance"),
		zap.Int("pairs", len(info.Symbols)),
		zap.Int("selected", len(symbols)))
	return symbols, nil
}

// Closes fetches the latest klines for symbol. The last kline may still be open.
func (e *BinanceExchange) Closes(ctx context.Context, symbol, interval string, limit int) ([]float64, error) {
	klines, err := e.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get klines for %s: %w", symbol, err)
	}

	closes := make([]float64, 0, len(klines))
	for _, k := range klines {
		c, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("could not parse close %q for %s: %w", k.Close, symbol, err)
		}
		closes = append(closes, c)
	}
	return closes, nil
}
