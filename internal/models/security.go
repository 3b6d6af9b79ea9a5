package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePrecision is the number of decimal places prices are rounded to
const PricePrecision = 2

// Security represents a tradable instrument with a simulated price
type Security struct {
	ID               int             `json:"id"`
	Ticker           string          `json:"ticker"`
	Name             string          `json:"name"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	BasePrice        decimal.Decimal `json:"base_price"`
	MinPrice         decimal.Decimal `json:"min_price"`
	MaxPrice         decimal.Decimal `json:"max_price"`
	PriceChangeRange decimal.Decimal `json:"price_change_range"`
	LastUpdated      time.Time       `json:"last_updated"`
}

// Clamp bounds a price to the security's [MinPrice, MaxPrice] range
func (s Security) Clamp(price decimal.Decimal) decimal.Decimal {
	if price.LessThan(s.MinPrice) {
		return s.MinPrice
	}
	if price.GreaterThan(s.MaxPrice) {
		return s.MaxPrice
	}
	return price
}

// PriceView reports a security's price relative to its base price
type PriceView struct {
	ID                 int             `json:"id"`
	Ticker             string          `json:"ticker"`
	CurrentPrice       decimal.Decimal `json:"current_price"`
	PriceChange        decimal.Decimal `json:"price_change"`
	PriceChangePercent decimal.Decimal `json:"price_change_percent"`
	LastUpdated        time.Time       `json:"last_updated"`
}

// NewPriceView computes the change from base for a security
func NewPriceView(s Security) PriceView {
	change := s.CurrentPrice.Sub(s.BasePrice)
	changePct := decimal.Zero
	if !s.BasePrice.IsZero() {
		changePct = change.Div(s.BasePrice).Mul(decimal.NewFromInt(100)).Round(PricePrecision)
	}
	return PriceView{
		ID:                 s.ID,
		Ticker:             s.Ticker,
		CurrentPrice:       s.CurrentPrice,
		PriceChange:        change.Round(PricePrecision),
		PriceChangePercent: changePct,
		LastUpdated:        s.LastUpdated,
	}
}

// PriceReport is a point-in-time view of all current prices
type PriceReport struct {
	Prices          []PriceView `json:"prices"`
	LastUpdate      time.Time   `json:"last_update"`
	TotalSecurities int         `json:"total_securities"`
}
