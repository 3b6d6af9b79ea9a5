// Package market owns the set of simulated securities and their price state.
package market

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/investment-simulator/internal/models"
)

// DeltaFunc returns the price change to apply to a security in a batch
type DeltaFunc func(s models.Security) decimal.Decimal

// Ledger holds the securities behind a single lock. Every price mutation is
// clamped to the security's bounds and rounded to PricePrecision.
type Ledger struct {
	mu         sync.RWMutex
	securities []models.Security
	index      map[int]int
	now        func() time.Time
}

// NewLedger creates a ledger from a seed list. Seeds must have unique ids and
// tickers and satisfy MinPrice <= BasePrice <= MaxPrice.
func NewLedger(seed []models.Security) (*Ledger, error) {
	l := &Ledger{
		securities: make([]models.Security, 0, len(seed)),
		index:      make(map[int]int, len(seed)),
		now:        time.Now,
	}

	tickers := make(map[string]struct{}, len(seed))
	for _, s := range seed {
		if _, dup := l.index[s.ID]; dup {
			return nil, fmt.Errorf("duplicate security id: %d", s.ID)
		}
		if _, dup := tickers[s.Ticker]; dup {
			return nil, fmt.Errorf("duplicate security ticker: %s", s.Ticker)
		}
		if s.MinPrice.GreaterThan(s.BasePrice) || s.BasePrice.GreaterThan(s.MaxPrice) {
			return nil, fmt.Errorf("security %s: base price %s outside [%s, %s]",
				s.Ticker, s.BasePrice, s.MinPrice, s.MaxPrice)
		}
		if s.PriceChangeRange.IsNegative() {
			return nil, fmt.Errorf("security %s: negative price change range", s.Ticker)
		}

		s.CurrentPrice = s.Clamp(s.CurrentPrice).Round(models.PricePrecision)
		s.LastUpdated = l.now()
		tickers[s.Ticker] = struct{}{}
		l.index[s.ID] = len(l.securities)
		l.securities = append(l.securities, s)
	}

	return l, nil
}

// List returns a snapshot copy of all securities in seed order
func (l *Ledger) List() []models.Security {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Security, len(l.securities))
	copy(out, l.securities)
	return out
}

// Snapshot returns all securities keyed by id, taken under one read lock
func (l *Ledger) Snapshot() map[int]models.Security {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[int]models.Security, len(l.securities))
	for _, s := range l.securities {
		out[s.ID] = s
	}
	return out
}

// Get returns a security by id
func (l *Ledger) Get(id int) (models.Security, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i, ok := l.index[id]
	if !ok {
		return models.Security{}, fmt.Errorf("security %d: %w", id, models.ErrNotFound)
	}
	return l.securities[i], nil
}

// Exists reports whether a security with id is known
func (l *Ledger) Exists(id int) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.index[id]
	return ok
}

// ApplyDelta moves one security's price by delta and returns the new price
func (l *Ledger) ApplyDelta(id int, delta decimal.Decimal) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.index[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("security %d: %w", id, models.ErrNotFound)
	}
	return l.move(i, l.securities[i].CurrentPrice.Add(delta)), nil
}

// SetPrice overrides one security's price, still clamped to its bounds
func (l *Ledger) SetPrice(id int, price decimal.Decimal) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.index[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("security %d: %w", id, models.ErrNotFound)
	}
	return l.move(i, price), nil
}

// BatchUpdate applies fn to every security while holding the write lock for
// the whole batch, so readers never see a partially updated set. It returns
// the post-batch snapshot.
func (l *Ledger) BatchUpdate(fn DeltaFunc) []models.Security {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.securities {
		delta := fn(l.securities[i])
		l.move(i, l.securities[i].CurrentPrice.Add(delta))
	}

	out := make([]models.Security, len(l.securities))
	copy(out, l.securities)
	return out
}

// move must be called with mu held for writing
func (l *Ledger) move(i int, price decimal.Decimal) decimal.Decimal {
	s := &l.securities[i]
	s.CurrentPrice = s.Clamp(price).Round(models.PricePrecision)
	s.LastUpdated = l.now()
	return s.CurrentPrice
}
