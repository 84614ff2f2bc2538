// Package inventory validates requested quantities against a product's stock.
// Stock is read without locking; callers re-check at every mutation.
package inventory

import (
	"errors"

	"github.com/fjod/go_storefront/internal/domain"
)

var (
	ErrInactive          = errors.New("product is not available for sale")
	ErrInsufficientStock = errors.New("requested quantity exceeds stock")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
)

// StockInfo contains stock information for a product
type StockInfo struct {
	ProductID string
	Total     int32
	Active    bool
}

func FromProduct(p *domain.Product) StockInfo {
	return StockInfo{ProductID: p.ID, Total: p.StockQuantity, Active: p.IsActive}
}

// Available returns the sellable stock, zero for an inactive product.
func (s StockInfo) Available() int32 {
	if !s.Active || s.Total < 0 {
		return 0
	}
	return s.Total
}

// Check validates a requested quantity against the stock snapshot.
func (s StockInfo) Check(requested int32) error {
	if requested < 1 {
		return ErrInvalidQuantity
	}
	if !s.Active {
		return ErrInactive
	}
	if requested > s.Available() {
		return ErrInsufficientStock
	}
	return nil
}

// Check is a shorthand for FromProduct(p).Check(requested).
func Check(p *domain.Product, requested int32) error {
	return FromProduct(p).Check(requested)
}
