package domain

import "time"

// Product is the catalog row as seen by the cart and order flows. Prices are whole KRW.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Price         int64     `json:"price"`
	StockQuantity int32     `json:"stock_quantity"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// Sellable reports whether the product can be put in a cart or ordered.
func (p *Product) Sellable() bool {
	return p != nil && p.IsActive
}
