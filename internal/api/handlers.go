package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/investment-simulator/internal/models"
)

// InvestmentService is the query and command surface the handlers call
type InvestmentService interface {
	ListSecurities() []models.Security
	ListOperations() []models.OperationView
	SubmitOperation(ctx context.Context, req models.OperationRequest) (models.SubmitResult, error)
	ForceTriggerSweep(ctx context.Context) models.SweepResult
	ListPendingTriggers() []models.TriggerRecord
	AcknowledgeTrigger(ctx context.Context, operationID int) error
	ListWatching() []models.WatchingView
	CurrentPrices() models.PriceReport
	PreviewCost(req models.CostRequest) (models.CostPreview, error)
}

// TriggerArchive reads the persisted trigger history
type TriggerArchive interface {
	GetTriggerRecord(ctx context.Context, operationID int) (*models.TriggerRecord, error)
	GetPendingTriggerRecords(ctx context.Context) ([]*models.TriggerRecord, error)
	GetTriggerRecordsByTicker(ctx context.Context, ticker string, limit int) ([]*models.TriggerRecord, error)
}

// CachedPrices reads the price cache written after every batch
type CachedPrices interface {
	GetPrice(ctx context.Context, ticker string) (decimal.Decimal, error)
	GetAll(ctx context.Context) (map[string]decimal.Decimal, error)
}

const defaultHistoryLimit = 50

// Handler holds dependencies for HTTP handlers
type Handler struct {
	service InvestmentService
	archive TriggerArchive
	prices  CachedPrices
	logger  zerolog.Logger
}

// HandlerOption configures optional Handler dependencies
type HandlerOption func(*Handler)

// WithTriggerArchive enables the trigger history endpoints
func WithTriggerArchive(archive TriggerArchive) HandlerOption {
	return func(h *Handler) {
		h.archive = archive
	}
}

// WithCachedPrices enables the cached price endpoints
func WithCachedPrices(prices CachedPrices) HandlerOption {
	return func(h *Handler) {
		h.prices = prices
	}
}

// NewHandler creates a new Handler
func NewHandler(service InvestmentService, logger zerolog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		service: service,
		logger:  logger.With().Str("component", "api").Logger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GetSecurities handles GET /securities
func (h *Handler) GetSecurities(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.ListSecurities())
}

// GetOperations handles GET /operations
func (h *Handler) GetOperations(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.ListOperations())
}

// AddOperation handles POST /operations
func (h *Handler) AddOperation(w http.ResponseWriter, r *http.Request) {
	var req models.OperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.SubmitOperation(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

// CalculateOperation handles POST /calculate
func (h *Handler) CalculateOperation(w http.ResponseWriter, r *http.Request) {
	var req models.CostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	preview, err := h.service.PreviewCost(req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, preview)
}

// CheckTriggers handles POST /triggers/check
func (h *Handler) CheckTriggers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.ForceTriggerSweep(r.Context()))
}

// GetActiveTriggers handles GET /triggers/active
func (h *Handler) GetActiveTriggers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.ListWatching())
}

// GetPendingTriggers handles GET /triggers/pending
func (h *Handler) GetPendingTriggers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.ListPendingTriggers())
}

// MarkTriggerProcessed handles POST /triggers/{operationId}/processed
func (h *Handler) MarkTriggerProcessed(w http.ResponseWriter, r *http.Request) {
	operationID, err := strconv.Atoi(mux.Vars(r)["operationId"])
	if err != nil {
		http.Error(w, "invalid operation id", http.StatusBadRequest)
		return
	}

	if err := h.service.AcknowledgeTrigger(r.Context(), operationID); err != nil {
		h.respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetTriggerHistory handles GET /triggers/history?ticker=&limit=
func (h *Handler) GetTriggerHistory(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		respondUnavailable(w, "trigger archive")
		return
	}

	ticker := r.URL.Query().Get("ticker")
	if ticker == "" {
		http.Error(w, "ticker is required", http.StatusBadRequest)
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := h.archive.GetTriggerRecordsByTicker(r.Context(), ticker, limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(records))
}

// GetArchivedPending handles GET /triggers/history/pending
func (h *Handler) GetArchivedPending(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		respondUnavailable(w, "trigger archive")
		return
	}

	records, err := h.archive.GetPendingTriggerRecords(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(records))
}

// GetArchivedTrigger handles GET /triggers/history/{operationId}
func (h *Handler) GetArchivedTrigger(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		respondUnavailable(w, "trigger archive")
		return
	}

	operationID, err := strconv.Atoi(mux.Vars(r)["operationId"])
	if err != nil {
		http.Error(w, "invalid operation id", http.StatusBadRequest)
		return
	}

	rec, err := h.archive.GetTriggerRecord(r.Context(), operationID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// GetCachedPrices handles GET /prices/cached
func (h *Handler) GetCachedPrices(w http.ResponseWriter, r *http.Request) {
	if h.prices == nil {
		respondUnavailable(w, "price cache")
		return
	}

	prices, err := h.prices.GetAll(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, prices)
}

// GetCachedPrice handles GET /prices/cached/{ticker}
func (h *Handler) GetCachedPrice(w http.ResponseWriter, r *http.Request) {
	if h.prices == nil {
		respondUnavailable(w, "price cache")
		return
	}

	ticker := mux.Vars(r)["ticker"]
	price, err := h.prices.GetPrice(r.Context(), ticker)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"ticker": ticker, "price": price})
}

// GetCurrentPrices handles GET /prices
func (h *Handler) GetCurrentPrices(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.CurrentPrices())
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case models.IsValidationError(err):
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		respondJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		h.logger.Error().Err(err).Msg("Request failed")
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func respondUnavailable(w http.ResponseWriter, feature string) {
	respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": feature + " is not enabled"})
}

func nonNil(records []*models.TriggerRecord) []*models.TriggerRecord {
	if records == nil {
		return []*models.TriggerRecord{}
	}
	return records
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
