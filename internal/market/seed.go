package market

import (
	"github.com/shopspring/decimal"
	"github.com/trogers1052/investment-simulator/internal/models"
)

// DefaultSecurities returns the fixed seed list the simulator starts from
func DefaultSecurities() []models.Security {
	return []models.Security{
		newSeed(1, "AAPL", "Apple Inc.", "170.00", "150.00", "190.00", "5.00"),
		newSeed(2, "GAZP", "Газпром", "160.00", "140.00", "180.00", "3.00"),
		newSeed(3, "TSLA", "Tesla Inc.", "250.00", "220.00", "280.00", "8.00"),
	}
}

func newSeed(id int, ticker, name, base, low, high, changeRange string) models.Security {
	basePrice := decimal.RequireFromString(base)
	return models.Security{
		ID:               id,
		Ticker:           ticker,
		Name:             name,
		CurrentPrice:     basePrice,
		BasePrice:        basePrice,
		MinPrice:         decimal.RequireFromString(low),
		MaxPrice:         decimal.RequireFromString(high),
		PriceChangeRange: decimal.RequireFromString(changeRange),
	}
}
