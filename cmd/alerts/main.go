package main

import (
	"binance-rsi-alerts/internal/config"
	"binance-rsi-alerts/internal/exchange"
	"binance-rsi-alerts/internal/indicator"
	"binance-rsi-alerts/internal/logger"
	"binance-rsi-alerts/internal/metrics"
	"binance-rsi-alerts/internal/models"
	"binance-rsi-alerts/internal/notifier"
	"binance-rsi-alerts/internal/persistence"
	"binance-rsi-alerts/internal/reporter"
	"binance-rsi-alerts/internal/scanner"
	"binance-rsi-alerts/internal/statemanager"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the config file")
	every := flag.Duration("every", 0, "repeat the scan at this interval; 0 runs once")
	summary := flag.Bool("summary", true, "print the tracked state table after each run")
	flag.Parse()

	// a default logger is needed before the config is read
	logger.InitLogger(models.LogConfig{Level: "info", Output: "console"})

	if config.LoadDotEnv() {
		logger.S().Info("Loaded settings from .env file.")
	} else {
		logger.S().Info("No .env file found, reading the process environment.")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.S().Fatalf("Could not load config: %v", err)
	}

	logger.InitLogger(cfg.LogConfig)
	defer logger.S().Sync()

	repo, err := openRepository(cfg)
	if err != nil {
		logger.S().Fatalf("Could not open state storage: %v", err)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := newApp(cfg, repo)
	if *every <= 0 {
		if err := app.runOnce(ctx, *summary); err != nil {
			logger.S().Errorf("Run failed: %v", err)
			stop()
			repo.Close()
			logger.S().Sync()
			os.Exit(1)
		}
		return
	}

	logger.S().Infof("Scanning every %s", *every)
	ticker := time.NewTicker(*every)
	defer ticker.Stop()
	for {
		if err := app.runOnce(ctx, *summary); err != nil {
			// a corrupt document needs an operator, retrying cannot fix it
			if errors.Is(err, persistence.ErrCorruptState) {
				repo.Close()
				logger.S().Fatalf("Run failed: %v", err)
			}
			logger.S().Errorf("Run failed: %v", err)
		}
		select {
		case <-ctx.Done():
			logger.S().Info("Shutting down.")
			return
		case <-ticker.C:
		}
	}
}

type app struct {
	cfg      *models.Config
	repo     persistence.StateRepository
	exchange *exchange.BinanceExchange
	checker  *indicator.Checker
	notifier notifier.Notifier
	metrics  *metrics.Metrics
}

func newApp(cfg *models.Config, repo persistence.StateRepository) *app {
	ex := exchange.NewBinanceExchange(cfg, logger.L())
	checker := indicator.NewChecker(ex, indicator.Params{
		Period:     cfg.RSIPeriod,
		Interval:   cfg.Interval,
		Limit:      cfg.KlineLimit,
		Overbought: cfg.OverboughtThreshold,
		Oversold:   cfg.OversoldThreshold,
	})

	var n notifier.Notifier = notifier.NewLogNotifier(logger.L())
	if cfg.Email.Configured() {
		email, err := notifier.NewEmailNotifier(cfg, logger.L())
		if err != nil {
			logger.S().Warnf("E-mail alerts disabled: %v", err)
		} else {
			n = email
		}
	} else {
		logger.S().Warn("E-mail settings incomplete, oversold alerts will only be logged.")
	}

	return &app{
		cfg:      cfg,
		repo:     repo,
		exchange: ex,
		checker:  checker,
		notifier: n,
		metrics:  metrics.New(),
	}
}

// runOnce loads the state, scans every pair and persists the result.
func (a *app) runOnce(ctx context.Context, summary bool) error {
	states := statemanager.NewStateManager(a.repo, logger.L())
	if err := states.Initialize(); err != nil {
		return err
	}

	s := scanner.New(scanner.Deps{
		Lister:   a.exchange,
		Checker:  a.checker,
		Notifier: a.notifier,
		States:   states,
		Metrics:  a.metrics,
		Logger:   logger.L(),
	}, scanner.Options{
		Concurrency: a.cfg.Concurrency,
		PairTimeout: a.cfg.PairTimeout(),
		MetricsFile: a.cfg.MetricsFile,
	})

	res, err := s.Run(ctx)
	if res != nil && summary {
		reporter.RenderSummary(os.Stdout, res.State, res.Oversold)
	}
	if err != nil {
		return err
	}
	logger.L().Info("Run complete",
		zap.String("run_id", res.RunID),
		zap.Int("scanned", res.Scanned),
		zap.Int("failed", len(res.Failed)),
		zap.Int("oversold", len(res.Oversold)))
	return nil
}

func openRepository(cfg *models.Config) (persistence.StateRepository, error) {
	switch cfg.StateBackend {
	case "badger":
		logger.S().Infof("Using badger state store at %s", cfg.BadgerPath)
		return persistence.NewBadgerRepository(cfg.BadgerPath)
	case "file", "":
		logger.S().Infof("Using state file %s", cfg.StateFile)
		return persistence.NewFileRepository(cfg.StateFile)
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
	}
}
