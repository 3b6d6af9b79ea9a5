package investment

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/investment-simulator/internal/market"
	"github.com/trogers1052/investment-simulator/internal/models"
	"github.com/trogers1052/investment-simulator/internal/operations"
	"github.com/trogers1052/investment-simulator/internal/trigger"
)

func newTestService(t *testing.T) (*Service, *market.Ledger) {
	t.Helper()

	securities, err := market.NewLedger(market.DefaultSecurities())
	require.NoError(t, err)
	ops := operations.NewLedger()
	engine := trigger.NewEngine(securities, ops, trigger.NewStore(), zerolog.Nop())

	return NewService(securities, ops, engine, zerolog.Nop()), securities
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func validRequest() models.OperationRequest {
	return models.OperationRequest{
		SecurityID:            1,
		Quantity:              10,
		PurchasePricePerShare: decimal.NewFromInt(170),
		Commission:            decimal.NewFromInt(5),
		NotificationTarget:    "investor@example.com",
	}
}

func TestSubmitOperation(t *testing.T) {
	ctx := context.Background()

	t.Run("accepts valid request", func(t *testing.T) {
		svc, _ := newTestService(t)

		result, err := svc.SubmitOperation(ctx, validRequest())
		require.NoError(t, err)
		assert.Equal(t, 1, result.Operation.ID)
		assert.Equal(t, "AAPL", result.Operation.SecurityTicker)
		assert.Equal(t, "Apple Inc.", result.Operation.SecurityName)
		assert.True(t, result.Operation.TotalCost.Equal(decimal.NewFromInt(1705)))
		assert.False(t, result.Operation.HasTrigger)
		assert.False(t, result.TriggeredImmediately)
		assert.False(t, result.AlreadyTriggered)
	})

	t.Run("rejects invalid fields", func(t *testing.T) {
		cases := map[string]func(r *models.OperationRequest){
			"unknown security":    func(r *models.OperationRequest) { r.SecurityID = 99 },
			"missing target":      func(r *models.OperationRequest) { r.NotificationTarget = "" },
			"zero quantity":       func(r *models.OperationRequest) { r.Quantity = 0 },
			"negative quantity":   func(r *models.OperationRequest) { r.Quantity = -3 },
			"zero price":          func(r *models.OperationRequest) { r.PurchasePricePerShare = decimal.Zero },
			"negative commission": func(r *models.OperationRequest) { r.Commission = decimal.NewFromInt(-1) },
		}

		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				svc, _ := newTestService(t)
				req := validRequest()
				mutate(&req)

				_, err := svc.SubmitOperation(ctx, req)
				require.Error(t, err)
				assert.True(t, models.IsValidationError(err), "got %v", err)
				assert.Empty(t, svc.ListOperations())
			})
		}
	})

	t.Run("rejected submission does not consume an id", func(t *testing.T) {
		svc, _ := newTestService(t)

		first, err := svc.SubmitOperation(ctx, validRequest())
		require.NoError(t, err)

		bad := validRequest()
		bad.NotificationTarget = ""
		_, err = svc.SubmitOperation(ctx, bad)
		require.Error(t, err)

		second, err := svc.SubmitOperation(ctx, validRequest())
		require.NoError(t, err)
		assert.Equal(t, first.Operation.ID+1, second.Operation.ID)
	})

	t.Run("target above price triggers immediately", func(t *testing.T) {
		svc, _ := newTestService(t)
		req := validRequest()
		req.TargetBuyPrice = price("175")

		result, err := svc.SubmitOperation(ctx, req)
		require.NoError(t, err)
		assert.True(t, result.TriggeredImmediately)
		assert.True(t, result.Operation.IsTriggered)
		assert.NotNil(t, result.Operation.TriggeredAt)
		assert.Contains(t, result.Message, "Trigger activated immediately")

		pending := svc.ListPendingTriggers()
		require.Len(t, pending, 1)
		assert.True(t, pending[0].TriggeredPrice.Equal(decimal.NewFromInt(170)))

		sweep := svc.ForceTriggerSweep(ctx)
		assert.Empty(t, sweep.ActivatedTriggers)
		assert.Equal(t, 1, sweep.AlreadyTriggeredCount)
	})
}

func TestTriggerLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, securities := newTestService(t)

	req := validRequest()
	req.TargetBuyPrice = price("165")
	result, err := svc.SubmitOperation(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.TriggeredImmediately)

	watching := svc.ListWatching()
	require.Len(t, watching, 1)
	assert.Equal(t, "3.03", watching[0].DistancePercent.StringFixed(2))

	_, err = securities.SetPrice(1, decimal.NewFromInt(160))
	require.NoError(t, err)

	sweep := svc.ForceTriggerSweep(ctx)
	require.Len(t, sweep.ActivatedTriggers, 1)
	assert.True(t, sweep.ActivatedTriggers[0].CurrentPrice.Equal(decimal.NewFromInt(160)))
	assert.Equal(t, 1, sweep.TotalChecked)
	assert.Equal(t, 1, sweep.AlreadyTriggeredCount)
	assert.False(t, sweep.CheckedAt.IsZero())

	assert.Empty(t, svc.ListWatching())

	pending := svc.ListPendingTriggers()
	require.Len(t, pending, 1)
	assert.True(t, pending[0].TriggeredPrice.Equal(decimal.NewFromInt(160)))

	views := svc.ListOperations()
	require.Len(t, views, 1)
	assert.True(t, views[0].IsTriggered)
	assert.True(t, views[0].HasTrigger)

	require.NoError(t, svc.AcknowledgeTrigger(ctx, result.Operation.ID))
	assert.Empty(t, svc.ListPendingTriggers())

	// acknowledging again is a no-op
	require.NoError(t, svc.AcknowledgeTrigger(ctx, result.Operation.ID))

	err = svc.AcknowledgeTrigger(ctx, 77)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCurrentPrices(t *testing.T) {
	svc, securities := newTestService(t)

	_, err := securities.SetPrice(1, decimal.RequireFromString("178.50"))
	require.NoError(t, err)

	report := svc.CurrentPrices()
	assert.Equal(t, 3, report.TotalSecurities)
	require.Len(t, report.Prices, 3)

	aapl := report.Prices[0]
	assert.Equal(t, "AAPL", aapl.Ticker)
	assert.Equal(t, "8.50", aapl.PriceChange.StringFixed(2))
	assert.Equal(t, "5.00", aapl.PriceChangePercent.StringFixed(2))

	sec, err := securities.Get(1)
	require.NoError(t, err)
	assert.Equal(t, sec.LastUpdated, aapl.LastUpdated)
	assert.False(t, aapl.LastUpdated.IsZero())

	gazp := report.Prices[1]
	assert.True(t, gazp.PriceChange.IsZero())
	assert.True(t, gazp.PriceChangePercent.IsZero())
}

func TestListSecurities(t *testing.T) {
	svc, _ := newTestService(t)
	assert.Len(t, svc.ListSecurities(), 3)
}

func TestPreviewCost(t *testing.T) {
	t.Run("computes breakdown", func(t *testing.T) {
		preview, err := PreviewCost(models.CostRequest{
			SecurityID:            1,
			Quantity:              10,
			PurchasePricePerShare: decimal.NewFromInt(170),
			Commission:            decimal.NewFromInt(5),
			TargetBuyPrice:        price("165"),
		})
		require.NoError(t, err)
		assert.True(t, preview.TotalCost.Equal(decimal.NewFromInt(1705)))
		assert.True(t, preview.HasTrigger)
		assert.Equal(t, "Trigger set at price: $165.00", preview.TriggerMessage)
		assert.Equal(t, "Quantity: 10 × Price: $170.00 = $1700.00 + Commission: $5.00 = Total: $1705.00", preview.Details)
	})

	t.Run("without trigger", func(t *testing.T) {
		preview, err := PreviewCost(models.CostRequest{
			Quantity:              3,
			PurchasePricePerShare: decimal.RequireFromString("10.10"),
			Commission:            decimal.Zero,
		})
		require.NoError(t, err)
		assert.Equal(t, "30.30", preview.TotalCost.StringFixed(2))
		assert.False(t, preview.HasTrigger)
		assert.Equal(t, "No trigger set", preview.TriggerMessage)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		_, err := PreviewCost(models.CostRequest{Quantity: 0, PurchasePricePerShare: decimal.NewFromInt(1)})
		assert.True(t, models.IsValidationError(err))

		_, err = PreviewCost(models.CostRequest{Quantity: 1, PurchasePricePerShare: decimal.NewFromInt(-1)})
		assert.True(t, models.IsValidationError(err))

		_, err = PreviewCost(models.CostRequest{Quantity: 1, PurchasePricePerShare: decimal.NewFromInt(1), Commission: decimal.NewFromInt(-1)})
		assert.True(t, models.IsValidationError(err))
	})

	t.Run("does not touch state", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.PreviewCost(models.CostRequest{Quantity: 1, PurchasePricePerShare: decimal.NewFromInt(1)})
		require.NoError(t, err)
		assert.Empty(t, svc.ListOperations())
	})
}
