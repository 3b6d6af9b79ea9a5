package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trigger event type constants
const (
	EventTriggerActivated    = "TRIGGER_ACTIVATED"
	EventTriggerAcknowledged = "TRIGGER_ACKNOWLEDGED"
	EventOperationSubmitted  = "OPERATION_SUBMITTED"
)

// TriggerRecord is the one-time record of an operation's target being reached.
// OperationID is its identity; at most one record exists per operation.
type TriggerRecord struct {
	OperationID        int             `json:"operation_id"`
	SecurityID         int             `json:"security_id"`
	SecurityTicker     string          `json:"security_ticker"`
	TriggeredPrice     decimal.Decimal `json:"triggered_price"`
	TargetPrice        decimal.Decimal `json:"target_price"`
	NotificationTarget string          `json:"notification_target,omitempty"`
	TriggeredAt        time.Time       `json:"triggered_at"`
	IsProcessed        bool            `json:"is_processed"`
}

// ActivatedTrigger describes a trigger created by a particular sweep
type ActivatedTrigger struct {
	OperationID    int             `json:"operation_id"`
	SecurityTicker string          `json:"security_ticker"`
	SecurityName   string          `json:"security_name"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	TargetPrice    decimal.Decimal `json:"target_price"`
	Message        string          `json:"message"`
}

// SweepResult summarizes a forced trigger sweep
type SweepResult struct {
	CheckedAt             time.Time          `json:"checked_at"`
	ActivatedTriggers     []ActivatedTrigger `json:"activated_triggers"`
	TotalChecked          int                `json:"total_checked"`
	AlreadyTriggeredCount int                `json:"already_triggered_count"`
}

// WatchingView is a targeted operation still waiting for its price
type WatchingView struct {
	OperationID     int             `json:"operation_id"`
	SecurityTicker  string          `json:"security_ticker"`
	SecurityName    string          `json:"security_name"`
	CurrentPrice    decimal.Decimal `json:"current_price"`
	TargetPrice     decimal.Decimal `json:"target_price"`
	Message         string          `json:"message"`
	DistancePercent decimal.Decimal `json:"distance_percent"`
	IsActive        bool            `json:"is_active"`
}

// DistancePercent returns how far current sits above target, in percent of target
func DistancePercent(current, target decimal.Decimal) decimal.Decimal {
	if target.IsZero() {
		return decimal.Zero
	}
	return current.Sub(target).Div(target).Mul(decimal.NewFromInt(100)).Round(PricePrecision)
}

// TriggerEvent represents a Kafka event for trigger changes
type TriggerEvent struct {
	EventType string        `json:"event_type"`
	Trigger   TriggerRecord `json:"trigger"`
	Timestamp time.Time     `json:"timestamp"`
}

// OperationEvent represents an inbound Kafka command to submit an operation
type OperationEvent struct {
	EventType string           `json:"event_type"`
	Source    string           `json:"source"`
	Data      OperationRequest `json:"data"`
	Timestamp string           `json:"timestamp"`
}
