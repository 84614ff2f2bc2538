// Package signal emits "this data changed" notifications after successful mutations.
// Delivery is fire-and-forget: a failed publish is logged and never reaches the caller.
package signal

import (
	"encoding/json"
	"time"
)

type Kind string

const (
	KindCartChanged        Kind = "cart.changed"
	KindOrderCreated       Kind = "order.created"
	KindOrderCancelled     Kind = "order.cancelled"
	KindOrderConfirmed     Kind = "order.confirmed"
	KindOrderStatusChanged Kind = "order.status_changed"
)

type Event struct {
	Kind       Kind      `json:"kind"`
	OwnerID    string    `json:"owner_id"`
	OrderID    string    `json:"order_id,omitempty"`
	Paths      []string  `json:"paths"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func CartChanged(ownerID string) Event {
	return Event{
		Kind:       KindCartChanged,
		OwnerID:    ownerID,
		Paths:      []string{"/cart"},
		OccurredAt: time.Now().UTC(),
	}
}

func OrderCreated(ownerID, orderID string) Event {
	return Event{
		Kind:       KindOrderCreated,
		OwnerID:    ownerID,
		OrderID:    orderID,
		Paths:      []string{"/cart", "/mypage"},
		OccurredAt: time.Now().UTC(),
	}
}

// OrderChanged describes a status transition of an existing order.
func OrderChanged(kind Kind, ownerID, orderID string) Event {
	return Event{
		Kind:       kind,
		OwnerID:    ownerID,
		OrderID:    orderID,
		Paths:      []string{"/mypage", "/mypage/orders/" + orderID},
		OccurredAt: time.Now().UTC(),
	}
}
