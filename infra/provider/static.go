package provider

import (
	"context"

	"github.com/shopspring/decimal"
)

// Static always returns the same price. It is meant for offline runs and tests.
type Static struct {
	Price decimal.Decimal
}

// NewStatic creates a provider pinned to price.
func NewStatic(price decimal.Decimal) *Static {
	return &Static{Price: price}
}

// Name returns "static".
func (s *Static) Name() string { return "static" }

// Fetch returns the pinned price, honouring cancellation.
func (s *Static) Fetch(ctx context.Context) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	return s.Price, nil
}
