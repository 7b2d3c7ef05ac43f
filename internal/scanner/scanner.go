// Package scanner runs one pass over the tradable pairs: it evaluates each
// pair's RSI, folds the readings into the tracked state, persists it and
// alerts on oversold pairs.
package scanner

import (
	"binance-rsi-alerts/internal/metrics"
	"binance-rsi-alerts/internal/models"
	"binance-rsi-alerts/internal/notifier"
	"binance-rsi-alerts/internal/state"
	"binance-rsi-alerts/internal/statemanager"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jxskiss/base62"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrListSymbols wraps a failure to list the pairs; the run cannot proceed.
var ErrListSymbols = errors.New("could not list trading symbols")

const notifyTimeout = time.Minute

// SymbolLister returns the pairs to scan.
type SymbolLister interface {
	ListTradingSymbols(ctx context.Context) ([]string, error)
}

// RSIChecker evaluates the RSI of one pair.
type RSIChecker interface {
	CheckRSI(ctx context.Context, pair string) (models.RSICheck, error)
}

// Deps are the collaborators of a Scanner.
type Deps struct {
	Lister   SymbolLister
	Checker  RSIChecker
	Notifier notifier.Notifier // may be nil
	States   *statemanager.StateManager
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// Options tune a Scanner.
type Options struct {
	Concurrency int
	PairTimeout time.Duration
	MetricsFile string
}

// Result summarises one run.
type Result struct {
	RunID    string
	Pairs    int
	Scanned  int
	Failed   []string
	Oversold []models.OversoldPair
	State    models.State
}

// Scanner runs scan passes. Runs must not overlap.
type Scanner struct {
	Deps
	opts Options
}

// New creates a Scanner. Non-positive options fall back to one worker and
// a 30s timeout.
func New(deps Deps, opts Options) *Scanner {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.PairTimeout <= 0 {
		opts.PairTimeout = 30 * time.Second
	}
	return &Scanner{Deps: deps, opts: opts}
}

// run holds the per-run accumulators shared by the workers.
type run struct {
	mu       sync.Mutex
	scanned  int
	failed   []string
	oversold []models.OversoldPair
}

// Run performs one pass. The state manager must already be initialized.
// The state is persisted only when every pair has been attempted; a
// notification failure does not fail the run.
func (s *Scanner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	runID := newRunID()
	log := s.Logger.With(zap.String("run_id", runID))

	log.Info("Getting symbols for trading...")
	symbols, err := s.Lister.ListTradingSymbols(ctx)
	if err != nil {
		s.Metrics.ObserveRun(start, time.Now(), false)
		return nil, fmt.Errorf("%w: %v", ErrListSymbols, err)
	}
	log.Info("Iterating over trading pairs", zap.Int("pairs", len(symbols)), zap.Strings("symbols", symbols))

	r := &run{}
	s.States.Start()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for _, pair := range symbols {
		if gctx.Err() != nil {
			break
		}
		pair := pair
		g.Go(func() error {
			s.scanPair(gctx, log, r, pair)
			return nil
		})
	}
	_ = g.Wait()
	s.States.Stop()

	if err := ctx.Err(); err != nil {
		s.Metrics.ObserveRun(start, time.Now(), false)
		return nil, fmt.Errorf("run interrupted, state not persisted: %w", err)
	}

	sort.Strings(r.failed)
	sort.Slice(r.oversold, func(i, j int) bool { return r.oversold[i].TradingPair < r.oversold[j].TradingPair })
	result := &Result{
		RunID:    runID,
		Pairs:    len(symbols),
		Scanned:  r.scanned,
		Failed:   r.failed,
		Oversold: r.oversold,
		State:    s.States.Snapshot(),
	}
	log.Info("Scan finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("failed", len(result.Failed)),
		zap.Int("oversold", len(result.Oversold)))

	persistErr := s.States.Persist()
	if persistErr != nil {
		log.Error("Failed to persist state", zap.Error(persistErr))
	}

	s.notify(ctx, log, result.Oversold)

	s.Metrics.OversoldPairs.Set(float64(len(result.Oversold)))
	s.Metrics.TrackedPairs.Set(float64(len(result.State.MinRSI)))
	s.Metrics.ObserveRun(start, time.Now(), persistErr == nil)
	if s.opts.MetricsFile != "" {
		if err := s.Metrics.WriteTextfile(s.opts.MetricsFile); err != nil {
			log.Warn("Failed to write metrics file", zap.String("path", s.opts.MetricsFile), zap.Error(err))
		}
	}

	return result, persistErr
}

// scanPair evaluates one pair. Any failure only excludes that pair.
func (s *Scanner) scanPair(ctx context.Context, log *zap.Logger, r *run, pair string) {
	log = log.With(zap.String("pair", pair))
	log.Debug("Iterating trading pair")

	started := time.Now()
	check, err := s.checkWithTimeout(ctx, pair)
	s.Metrics.RSIFetchDur.Observe(time.Since(started).Seconds())
	if err != nil {
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		s.Metrics.PairFailures.WithLabelValues(reason).Inc()
		log.Warn("Error getting RSI check on trading pair", zap.String("reason", reason), zap.Error(err))
		r.mu.Lock()
		r.failed = append(r.failed, pair)
		r.mu.Unlock()
		return
	}

	if err := s.States.Dispatch(ctx, state.UpdateMinRSI{TradingPair: pair, RSIVal: check.RSIVal}); err != nil {
		s.Metrics.PairFailures.WithLabelValues("dispatch").Inc()
		log.Warn("Could not record RSI", zap.Error(err))
		r.mu.Lock()
		r.failed = append(r.failed, pair)
		r.mu.Unlock()
		return
	}
	s.Metrics.PairsScanned.Inc()

	log.Info("RSI OverSold/OverBought check",
		zap.Float64("rsi", check.RSIVal),
		zap.Bool("overSold", check.Oversold),
		zap.Bool("overBought", check.Overbought))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.scanned++
	if check.Oversold {
		log.Info("OverSold, it may be a good moment to buy")
		r.oversold = append(r.oversold, models.OversoldPair{TradingPair: pair, RSIVal: check.RSIVal})
	}
}

// checkWithTimeout bounds a check by the per-pair timeout even when the
// checker ignores its context.
func (s *Scanner) checkWithTimeout(ctx context.Context, pair string) (models.RSICheck, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.PairTimeout)
	defer cancel()

	type outcome struct {
		check models.RSICheck
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		check, err := s.Checker.CheckRSI(ctx, pair)
		done <- outcome{check, err}
	}()

	select {
	case o := <-done:
		return o.check, o.err
	case <-ctx.Done():
		return models.RSICheck{}, fmt.Errorf("rsi check for %s: %w", pair, ctx.Err())
	}
}

func (s *Scanner) notify(ctx context.Context, log *zap.Logger, oversold []models.OversoldPair) {
	if len(oversold) == 0 || s.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := s.Notifier.Notify(ctx, oversold); err != nil {
		s.Metrics.NotifyFailures.Inc()
		log.Error("Error sending OverSold alert", zap.Error(err))
	}
}

// newRunID returns a short unique id used to correlate the log lines of a run.
func newRunID() string {
	id := uuid.New()
	return base62.EncodeToString(id[:])
}
