// Package investment is the query and command surface over the security
// ledger, the operation ledger and the trigger engine.
package investment

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/investment-simulator/internal/market"
	"github.com/trogers1052/investment-simulator/internal/models"
	"github.com/trogers1052/investment-simulator/internal/operations"
	"github.com/trogers1052/investment-simulator/internal/trigger"
)

// Service exposes the read and write operations callers rely on
type Service struct {
	securities *market.Ledger
	operations *operations.Ledger
	triggers   *trigger.Engine
	logger     zerolog.Logger
	now        func() time.Time
}

// NewService creates a Service
func NewService(securities *market.Ledger, ops *operations.Ledger, triggers *trigger.Engine, logger zerolog.Logger) *Service {
	return &Service{
		securities: securities,
		operations: ops,
		triggers:   triggers,
		logger:     logger.With().Str("component", "investment").Logger(),
		now:        time.Now,
	}
}

// ListSecurities returns every security
func (s *Service) ListSecurities() []models.Security {
	return s.securities.List()
}

// ListOperations returns every operation with its security and trigger status
func (s *Service) ListOperations() []models.OperationView {
	securities := s.securities.Snapshot()
	records := s.triggers.Store().Snapshot()

	ops := s.operations.List()
	views := make([]models.OperationView, 0, len(ops))
	for _, op := range ops {
		views = append(views, operationView(op, securities, records))
	}
	return views
}

// SubmitOperation validates and stores a new operation, then checks its
// trigger condition immediately. Rejected requests do not consume an id.
func (s *Service) SubmitOperation(ctx context.Context, req models.OperationRequest) (models.SubmitResult, error) {
	if err := req.Validate(); err != nil {
		return models.SubmitResult{}, err
	}
	if !s.securities.Exists(req.SecurityID) {
		return models.SubmitResult{}, models.NewValidationError("security_id",
			fmt.Sprintf("security %d not found", req.SecurityID))
	}

	op := s.operations.Insert(req)
	alreadyTriggered := s.triggers.Store().Exists(op.ID)

	triggered, err := s.triggers.EvaluateOperation(ctx, op)
	if err != nil {
		s.logger.Error().Err(err).Int("operation_id", op.ID).Msg("Immediate trigger check failed")
		return models.SubmitResult{}, fmt.Errorf("failed to check trigger: %w", err)
	}

	view := operationView(op, s.securities.Snapshot(), s.triggers.Store().Snapshot())
	msg := "Operation added successfully."
	if triggered {
		rec, err := s.triggers.Store().Get(op.ID)
		if err == nil {
			msg += fmt.Sprintf(" Trigger activated immediately: current price (%s) is at or below target (%s).",
				rec.TriggeredPrice.StringFixed(models.PricePrecision), rec.TargetPrice.StringFixed(models.PricePrecision))
		}
	}

	s.logger.Info().
		Int("operation_id", op.ID).
		Int("security_id", op.SecurityID).
		Bool("triggered", triggered).
		Msg("Operation submitted")

	return models.SubmitResult{
		Operation:            view,
		Message:              msg,
		TriggeredImmediately: triggered,
		AlreadyTriggered:     alreadyTriggered,
	}, nil
}

// ForceTriggerSweep runs a sweep now and reports the triggers it activated
func (s *Service) ForceTriggerSweep(ctx context.Context) models.SweepResult {
	activated := s.triggers.Sweep(ctx)
	return models.SweepResult{
		CheckedAt:             s.now(),
		ActivatedTriggers:     activated,
		TotalChecked:          len(s.operations.Targeted()),
		AlreadyTriggeredCount: s.triggers.Store().Len(),
	}
}

// ListPendingTriggers returns triggers that have not been acknowledged
func (s *Service) ListPendingTriggers() []models.TriggerRecord {
	pending := s.triggers.Store().Pending()
	if pending == nil {
		return []models.TriggerRecord{}
	}
	return pending
}

// AcknowledgeTrigger marks the trigger for operationID as processed.
// Repeating it is a no-op; an unknown id returns models.ErrNotFound.
func (s *Service) AcknowledgeTrigger(ctx context.Context, operationID int) error {
	if err := s.triggers.Acknowledge(ctx, operationID); err != nil {
		return fmt.Errorf("failed to acknowledge trigger: %w", err)
	}
	return nil
}

// ListWatching returns targeted operations still waiting for their price
func (s *Service) ListWatching() []models.WatchingView {
	return s.triggers.Watching()
}

// CurrentPrices reports every price with its change from base
func (s *Service) CurrentPrices() models.PriceReport {
	securities := s.securities.List()
	prices := make([]models.PriceView, len(securities))
	for i, sec := range securities {
		prices[i] = models.NewPriceView(sec)
	}
	return models.PriceReport{
		Prices:          prices,
		LastUpdate:      s.now(),
		TotalSecurities: len(securities),
	}
}

// PreviewCost computes the cost of an operation without storing anything
func (s *Service) PreviewCost(req models.CostRequest) (models.CostPreview, error) {
	return PreviewCost(req)
}

// PreviewCost is the stateless cost calculation behind Service.PreviewCost
func PreviewCost(req models.CostRequest) (models.CostPreview, error) {
	if req.Quantity <= 0 {
		return models.CostPreview{}, models.NewValidationError("quantity", "must be positive")
	}
	if !req.PurchasePricePerShare.IsPositive() {
		return models.CostPreview{}, models.NewValidationError("purchase_price_per_share", "must be positive")
	}
	if req.Commission.IsNegative() {
		return models.CostPreview{}, models.NewValidationError("commission", "must not be negative")
	}

	gross := decimal.NewFromInt(int64(req.Quantity)).Mul(req.PurchasePricePerShare)
	total := models.TotalCost(req.Quantity, req.PurchasePricePerShare, req.Commission)

	preview := models.CostPreview{
		TotalCost:      total,
		Quantity:       req.Quantity,
		PricePerShare:  req.PurchasePricePerShare,
		Commission:     req.Commission,
		HasTrigger:     req.TargetBuyPrice != nil,
		TriggerMessage: "No trigger set",
		Details: fmt.Sprintf("Quantity: %d × Price: $%s = $%s + Commission: $%s = Total: $%s",
			req.Quantity,
			req.PurchasePricePerShare.StringFixed(models.PricePrecision),
			gross.StringFixed(models.PricePrecision),
			req.Commission.StringFixed(models.PricePrecision),
			total.StringFixed(models.PricePrecision)),
	}
	if req.TargetBuyPrice != nil {
		preview.TriggerMessage = "Trigger set at price: $" + req.TargetBuyPrice.StringFixed(models.PricePrecision)
	}
	return preview, nil
}

func operationView(op models.InvestmentOperation, securities map[int]models.Security, records map[int]models.TriggerRecord) models.OperationView {
	view := models.OperationView{
		InvestmentOperation: op,
		TotalCost:           op.TotalCost(),
		HasTrigger:          op.HasTarget(),
	}
	if sec, ok := securities[op.SecurityID]; ok {
		view.SecurityTicker = sec.Ticker
		view.SecurityName = sec.Name
	}
	if rec, ok := records[op.ID]; ok {
		triggeredAt := rec.TriggeredAt
		view.IsTriggered = true
		view.TriggeredAt = &triggeredAt
	}
	return view
}
