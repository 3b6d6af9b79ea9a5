// Package operations owns the append-only list of buy operations.
package operations

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/investment-simulator/internal/models"
)

// Ledger stores operations in insertion order. Operations are never mutated
// or removed once inserted.
type Ledger struct {
	mu         sync.RWMutex
	operations []models.InvestmentOperation
	index      map[int]int
	maxID      int
	now        func() time.Time
}

// NewLedger creates an empty operation ledger
func NewLedger() *Ledger {
	return &Ledger{
		index: make(map[int]int),
		now:   time.Now,
	}
}

// Insert assigns the next id (highest existing id + 1, or 1 when empty) and
// stores the operation. The request must already be validated; nothing is
// consumed for requests that never reach Insert.
func (l *Ledger) Insert(req models.OperationRequest) models.InvestmentOperation {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.maxID++
	op := models.InvestmentOperation{
		ID:                    l.maxID,
		SecurityID:            req.SecurityID,
		Quantity:              req.Quantity,
		PurchasePricePerShare: req.PurchasePricePerShare,
		Commission:            req.Commission,
		TargetBuyPrice:        copyTarget(req.TargetBuyPrice),
		NotificationTarget:    req.NotificationTarget,
		CreatedAt:             l.now(),
	}

	l.index[op.ID] = len(l.operations)
	l.operations = append(l.operations, op)
	return op
}

// Get returns an operation by id
func (l *Ledger) Get(id int) (models.InvestmentOperation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i, ok := l.index[id]
	if !ok {
		return models.InvestmentOperation{}, fmt.Errorf("operation %d: %w", id, models.ErrNotFound)
	}
	return l.operations[i], nil
}

// List returns a snapshot copy of all operations in id order
func (l *Ledger) List() []models.InvestmentOperation {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.InvestmentOperation, len(l.operations))
	copy(out, l.operations)
	return out
}

// Targeted returns a snapshot of the operations that carry a target price
func (l *Ledger) Targeted() []models.InvestmentOperation {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []models.InvestmentOperation
	for _, op := range l.operations {
		if op.HasTarget() {
			out = append(out, op)
		}
	}
	return out
}

// Len returns the number of stored operations
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.operations)
}

// copyTarget detaches the stored target from the caller's pointer
func copyTarget(target *decimal.Decimal) *decimal.Decimal {
	if target == nil {
		return nil
	}
	t := *target
	return &t
}
