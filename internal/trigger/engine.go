// Package trigger detects operations whose target buy price has been reached
// and records each such event exactly once.
package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"
	"github.com/trogers1052/investment-simulator/internal/models"
)

// SecuritySource provides consistent reads of security prices
type SecuritySource interface {
	Snapshot() map[int]models.Security
	Get(id int) (models.Security, error)
}

// OperationSource provides reads of the operation ledger
type OperationSource interface {
	Targeted() []models.InvestmentOperation
}

// Engine evaluates targeted operations against current prices. It owns the
// trigger history and is its only writer.
type Engine struct {
	securities SecuritySource
	operations OperationSource
	store      *Store
	sinks      []Sink
	logger     zerolog.Logger
	now        func() time.Time

	requests chan struct{}

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewEngine creates a trigger engine over the two ledgers
func NewEngine(securities SecuritySource, operations OperationSource, store *Store, logger zerolog.Logger, sinks ...Sink) *Engine {
	return &Engine{
		securities: securities,
		operations: operations,
		store:      store,
		sinks:      sinks,
		logger:     logger.With().Str("component", "trigger").Logger(),
		now:        time.Now,
		requests:   make(chan struct{}, 1),
	}
}

// Store returns the trigger history
func (e *Engine) Store() *Store {
	return e.store
}

// Sweep evaluates every watched operation and returns only the triggers
// created by this call.
func (e *Engine) Sweep(ctx context.Context) []models.ActivatedTrigger {
	return e.sweep(ctx, false)
}

func (e *Engine) sweep(ctx context.Context, auto bool) []models.ActivatedTrigger {
	securities := e.securities.Snapshot()
	activated := []models.ActivatedTrigger{}
	var created []models.TriggerRecord

	for _, op := range e.operations.Targeted() {
		if e.store.Exists(op.ID) {
			continue
		}

		sec, ok := securities[op.SecurityID]
		if !ok {
			e.logger.Error().
				Err(models.ErrInternalInconsistency).
				Int("operation_id", op.ID).
				Int("security_id", op.SecurityID).
				Msg("Targeted operation references unknown security")
			continue
		}

		rec, ok := e.record(op, sec)
		if !ok {
			continue
		}
		created = append(created, rec)
		activated = append(activated, activatedTrigger(op, sec, auto))
	}

	if len(created) > 0 {
		e.logger.Info().Int("count", len(created)).Bool("auto", auto).Msg("Triggers activated")
		e.publishActivated(ctx, created)
	}
	return activated
}

// EvaluateOperation checks a single operation against its security's current
// price right away. It reports whether the operation has a trigger record
// once the check completes.
func (e *Engine) EvaluateOperation(ctx context.Context, op models.InvestmentOperation) (bool, error) {
	if !op.HasTarget() {
		return false, nil
	}
	if e.store.Exists(op.ID) {
		return true, nil
	}

	sec, err := e.securities.Get(op.SecurityID)
	if err != nil {
		return false, fmt.Errorf("evaluate operation %d: %w: %v", op.ID, models.ErrInternalInconsistency, err)
	}

	if rec, ok := e.record(op, sec); ok {
		e.logger.Info().
			Int("operation_id", op.ID).
			Str("ticker", sec.Ticker).
			Str("price", sec.CurrentPrice.String()).
			Msg("Trigger activated on submission")
		e.publishActivated(ctx, []models.TriggerRecord{rec})
	}
	return e.store.Exists(op.ID), nil
}

// record inserts a trigger for op if its condition holds against sec. It
// returns false when the condition does not hold or another sweep won.
func (e *Engine) record(op models.InvestmentOperation, sec models.Security) (models.TriggerRecord, bool) {
	if !sec.CurrentPrice.LessThanOrEqual(*op.TargetBuyPrice) {
		return models.TriggerRecord{}, false
	}

	rec := models.TriggerRecord{
		OperationID:        op.ID,
		SecurityID:         op.SecurityID,
		SecurityTicker:     sec.Ticker,
		TriggeredPrice:     sec.CurrentPrice,
		TargetPrice:        *op.TargetBuyPrice,
		NotificationTarget: op.NotificationTarget,
		TriggeredAt:        e.now(),
	}
	if !e.store.InsertIfAbsent(rec) {
		return models.TriggerRecord{}, false
	}
	return rec, true
}

// Watching returns targeted operations that have not triggered and whose
// security still trades above the target.
func (e *Engine) Watching() []models.WatchingView {
	securities := e.securities.Snapshot()
	records := e.store.Snapshot()

	views := []models.WatchingView{}
	for _, op := range e.operations.Targeted() {
		if _, triggered := records[op.ID]; triggered {
			continue
		}
		sec, ok := securities[op.SecurityID]
		if !ok || !sec.CurrentPrice.GreaterThan(*op.TargetBuyPrice) {
			continue
		}

		target := *op.TargetBuyPrice
		views = append(views, models.WatchingView{
			OperationID:     op.ID,
			SecurityTicker:  sec.Ticker,
			SecurityName:    sec.Name,
			CurrentPrice:    sec.CurrentPrice,
			TargetPrice:     target,
			Message:         fmt.Sprintf("Waiting for %s to fall to $%s", sec.Ticker, target.StringFixed(models.PricePrecision)),
			DistancePercent: models.DistancePercent(sec.CurrentPrice, target),
			IsActive:        true,
		})
	}
	return views
}

// Acknowledge marks the trigger for operationID as processed
func (e *Engine) Acknowledge(ctx context.Context, operationID int) error {
	rec, changed, err := e.store.Acknowledge(operationID)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	for _, sink := range e.sinks {
		if err := sink.TriggerAcknowledged(ctx, rec); err != nil {
			e.logger.Error().Err(err).Int("operation_id", operationID).Msg("Failed to forward trigger acknowledgement")
		}
	}
	return nil
}

func (e *Engine) publishActivated(ctx context.Context, records []models.TriggerRecord) {
	for _, sink := range e.sinks {
		for _, rec := range records {
			if err := sink.TriggerActivated(ctx, rec); err != nil {
				e.logger.Error().Err(err).Int("operation_id", rec.OperationID).Msg("Failed to forward trigger")
			}
		}
	}
}

func activatedTrigger(op models.InvestmentOperation, sec models.Security, auto bool) models.ActivatedTrigger {
	msg := fmt.Sprintf("Trigger activated: %s reached $%s", sec.Ticker, sec.CurrentPrice.StringFixed(models.PricePrecision))
	if auto {
		msg = "AUTO: " + msg
	}
	return models.ActivatedTrigger{
		OperationID:    op.ID,
		SecurityTicker: sec.Ticker,
		SecurityName:   sec.Name,
		CurrentPrice:   sec.CurrentPrice,
		TargetPrice:    *op.TargetBuyPrice,
		Message:        msg,
	}
}

// RequestSweep asks the sweeper for an automatic sweep without waiting. A
// request made while a sweep is running is kept and served by one follow-up
// sweep, so every completed price batch is followed by at least one sweep.
func (e *Engine) RequestSweep() {
	select {
	case e.requests <- struct{}{}:
	default:
	}
}

// Start launches the sweeper goroutine that serves RequestSweep
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return fmt.Errorf("trigger sweeper: %w", models.ErrAlreadyStarted)
	}
	e.started = true

	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	go e.run(ctx, e.done)

	e.logger.Info().Msg("Trigger sweeper started")
	return nil
}

// Stop cancels the sweeper and waits for an in-flight sweep to finish
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	e.logger.Info().Msg("Trigger sweeper stopped")
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.requests:
			e.runSweep(ctx)
		}
	}
}

// runSweep contains any panic so the sweeper keeps serving later requests
func (e *Engine) runSweep(ctx context.Context) {
	var pc panics.Catcher
	pc.Try(func() {
		e.sweep(ctx, true)
	})
	if r := pc.Recovered(); r != nil {
		e.logger.Error().Err(r.AsError()).Msg("Trigger sweep panicked")
	}
}
