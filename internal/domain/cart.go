package domain

import "time"

// CartLine is one (product, quantity) record owned by a single identity.
type CartLine struct {
	ID        string    `json:"id" bson:"_id"`
	OwnerID   string    `json:"owner_id" bson:"owner_id"`
	ProductID string    `json:"product_id" bson:"product_id"`
	Quantity  int32     `json:"quantity" bson:"quantity"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// CartItem is a cart line joined with the current product snapshot.
// Product is nil when the product was deleted or deactivated.
type CartItem struct {
	CartLine
	Product *Product `json:"product"`
}

type CartSummary struct {
	TotalItems  int32 `json:"total_items"`
	TotalAmount int64 `json:"total_amount"`
}

// Summarize totals the items that still reference a sellable product.
func Summarize(items []CartItem) CartSummary {
	var s CartSummary
	for _, item := range items {
		if !item.Product.Sellable() {
			continue
		}
		s.TotalItems += item.Quantity
		s.TotalAmount += item.Product.Price * int64(item.Quantity)
	}
	return s
}
