package service

import (
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

const (
	widgetID  = "11111111-1111-1111-1111-111111111111"
	gadgetID  = "22222222-2222-2222-2222-222222222222"
	lampID    = "44444444-4444-4444-4444-444444444444"
	kettleID  = "55555555-5555-5555-5555-555555555555"
	aliceID   = "alice"
	bobID     = "bob"
	missingID = "99999999-9999-9999-9999-999999999999"
)

func catalog() *mockProducts {
	return &mockProducts{products: map[string]*domain.Product{
		widgetID: {ID: widgetID, Name: "Widget", Price: 1000, StockQuantity: 5, IsActive: true},
		gadgetID: {ID: gadgetID, Name: "Gadget", Price: 2500, StockQuantity: 10, IsActive: true},
		lampID:   {ID: lampID, Name: "Desk Lamp", Price: 39000, StockQuantity: 0, IsActive: true},
		kettleID: {ID: kettleID, Name: "Retired Kettle", Price: 27000, StockQuantity: 8, IsActive: false},
	}}
}

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func testLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

func fixedClock() func() time.Time {
	var mu sync.Mutex
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		at = at.Add(time.Second)
		return at
	}
}
