package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvestmentOperation represents a recorded intent to buy a security
type InvestmentOperation struct {
	ID                    int              `json:"id"`
	SecurityID            int              `json:"security_id"`
	Quantity              int              `json:"quantity"`
	PurchasePricePerShare decimal.Decimal  `json:"purchase_price_per_share"`
	Commission            decimal.Decimal  `json:"commission"`
	TargetBuyPrice        *decimal.Decimal `json:"target_buy_price,omitempty"`
	NotificationTarget    string           `json:"notification_target"`
	CreatedAt             time.Time        `json:"created_at"`
}

// TotalCost returns quantity * price per share + commission
func (o InvestmentOperation) TotalCost() decimal.Decimal {
	return TotalCost(o.Quantity, o.PurchasePricePerShare, o.Commission)
}

// HasTarget reports whether the operation is watched against a target price
func (o InvestmentOperation) HasTarget() bool {
	return o.TargetBuyPrice != nil
}

// TotalCost computes the cost of buying quantity shares at price plus commission
func TotalCost(quantity int, price, commission decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(quantity)).Mul(price).Add(commission)
}

// OperationRequest carries the caller-supplied fields of a new operation
type OperationRequest struct {
	SecurityID            int              `json:"security_id"`
	Quantity              int              `json:"quantity"`
	PurchasePricePerShare decimal.Decimal  `json:"purchase_price_per_share"`
	Commission            decimal.Decimal  `json:"commission"`
	TargetBuyPrice        *decimal.Decimal `json:"target_buy_price,omitempty"`
	NotificationTarget    string           `json:"notification_target"`
}

// Validate checks the request fields that do not depend on ledger state
func (r OperationRequest) Validate() error {
	if r.Quantity <= 0 {
		return NewValidationError("quantity", "must be positive")
	}
	if !r.PurchasePricePerShare.IsPositive() {
		return NewValidationError("purchase_price_per_share", "must be positive")
	}
	if r.Commission.IsNegative() {
		return NewValidationError("commission", "must not be negative")
	}
	if r.NotificationTarget == "" {
		return NewValidationError("notification_target", "is required")
	}
	return nil
}

// OperationView is an operation annotated with its security and trigger status
type OperationView struct {
	InvestmentOperation
	SecurityTicker string          `json:"security_ticker,omitempty"`
	SecurityName   string          `json:"security_name,omitempty"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	HasTrigger     bool            `json:"has_trigger"`
	IsTriggered    bool            `json:"is_triggered"`
	TriggeredAt    *time.Time      `json:"triggered_at,omitempty"`
}

// SubmitResult is returned when an operation is accepted
type SubmitResult struct {
	Operation            OperationView `json:"operation"`
	Message              string        `json:"message"`
	TriggeredImmediately bool          `json:"trigger_activated"`
	AlreadyTriggered     bool          `json:"already_triggered"`
}

// CostRequest is the input to a cost preview
type CostRequest struct {
	SecurityID            int              `json:"security_id"`
	Quantity              int              `json:"quantity"`
	PurchasePricePerShare decimal.Decimal  `json:"purchase_price_per_share"`
	Commission            decimal.Decimal  `json:"commission"`
	TargetBuyPrice        *decimal.Decimal `json:"target_buy_price,omitempty"`
}

// CostPreview is the result of a cost calculation that persists nothing
type CostPreview struct {
	TotalCost      decimal.Decimal `json:"total_cost"`
	Quantity       int             `json:"quantity"`
	PricePerShare  decimal.Decimal `json:"price_per_share"`
	Commission     decimal.Decimal `json:"commission"`
	HasTrigger     bool            `json:"has_trigger"`
	TriggerMessage string          `json:"trigger_message"`
	Details        string          `json:"details"`
}
