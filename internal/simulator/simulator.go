// Package simulator runs the recurring price-mutation batch.
package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/panics"
	"github.com/trogers1052/investment-simulator/internal/market"
	"github.com/trogers1052/investment-simulator/internal/models"
)

// DefaultInterval is the time between price batches
const DefaultInterval = 30 * time.Second

// SweepRequester is notified after every completed price batch. It must not
// block.
type SweepRequester interface {
	RequestSweep()
}

// PriceListener receives the post-batch snapshot outside the ledger lock
type PriceListener interface {
	PricesUpdated(ctx context.Context, securities []models.Security) error
}

// Simulator perturbs every security's price once per interval
type Simulator struct {
	ledger    *market.Ledger
	sweeps    SweepRequester
	listeners []PriceListener
	interval  time.Duration
	logger    zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// Option configures a Simulator
type Option func(*Simulator)

// WithInterval overrides DefaultInterval
func WithInterval(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithRand sets the random source used for deltas
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulator) {
		s.rng = rng
	}
}

// WithListeners registers price listeners
func WithListeners(listeners ...PriceListener) Option {
	return func(s *Simulator) {
		s.listeners = append(s.listeners, listeners...)
	}
}

// New creates a simulator over ledger. sweeps may be nil.
func New(ledger *market.Ledger, sweeps SweepRequester, logger zerolog.Logger, opts ...Option) *Simulator {
	s := &Simulator{
		ledger:   ledger,
		sweeps:   sweeps,
		interval: DefaultInterval,
		logger:   logger.With().Str("component", "simulator").Logger(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Delta draws uniform(-1, 1) * changeRange
func Delta(rng *rand.Rand, changeRange decimal.Decimal) decimal.Decimal {
	return decimal.NewFromFloat(rng.Float64()*2 - 1).Mul(changeRange)
}

// Tick runs one price batch and returns the post-batch snapshot. The whole
// batch is applied under the ledger lock; the sweep request and listeners
// run after it is released.
func (s *Simulator) Tick(ctx context.Context) []models.Security {
	snapshot := s.ledger.BatchUpdate(func(sec models.Security) decimal.Decimal {
		s.rngMu.Lock()
		defer s.rngMu.Unlock()
		return Delta(s.rng, sec.PriceChangeRange)
	})

	if s.sweeps != nil {
		s.sweeps.RequestSweep()
	}

	s.logger.Debug().Str("prices", formatPrices(snapshot)).Msg("Prices updated")

	for _, l := range s.listeners {
		if err := l.PricesUpdated(ctx, snapshot); err != nil {
			s.logger.Error().Err(err).Msg("Failed to publish price update")
		}
	}
	return snapshot
}

// Start runs the first batch immediately and then one per interval until
// Stop is called or ctx is cancelled.
func (s *Simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("price simulator: %w", models.ErrAlreadyStarted)
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx, s.done)

	s.logger.Info().Dur("interval", s.interval).Msg("Price simulator started")
	return nil
}

// Stop cancels the ticker and waits for an in-flight batch to finish
func (s *Simulator) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info().Msg("Price simulator stopped")
}

func (s *Simulator) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	s.safeTick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.safeTick(ctx)
		}
	}
}

// safeTick keeps a failing batch from stopping later ticks
func (s *Simulator) safeTick(ctx context.Context) {
	var pc panics.Catcher
	pc.Try(func() {
		s.Tick(ctx)
	})
	if r := pc.Recovered(); r != nil {
		s.logger.Error().Err(r.AsError()).Msg("Price batch panicked")
	}
}

func formatPrices(securities []models.Security) string {
	parts := make([]string, len(securities))
	for i, sec := range securities {
		parts[i] = sec.Ticker + "=$" + sec.CurrentPrice.StringFixed(models.PricePrecision)
	}
	return strings.Join(parts, ", ")
}
