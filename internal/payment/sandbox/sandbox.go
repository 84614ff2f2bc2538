// Package sandbox is a local stand-in for the payment provider. It issues payments on demand
// and serves them back on the same lookup endpoint the real provider exposes.
package sandbox

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_storefront/internal/payment"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	StatusAborted = "ABORTED"

	refusalCard    = "REJECT_CARD_COMPANY"
	refusalLimit   = "EXCEED_MAX_AMOUNT"
	refusalUnknown = "UNKNOWN_PAYMENT_ERROR"
)

type GetResponseStatus interface {
	GetStatus() (status, failureCode string)
}

// RandomStatus approves 95% of payments.
type RandomStatus struct{}

func (RandomStatus) GetStatus() (string, string) {
	return calcStatus(rand.Intn(101)) // 101 because Intn is exclusive of the upper bound
}

func calcStatus(randomInt int) (string, string) {
	if randomInt < 95 {
		return payment.StatusDone, ""
	}
	switch randomInt - 95 {
	case 1, 2:
		return StatusAborted, refusalCard
	case 3, 4:
		return StatusAborted, refusalLimit
	}
	return StatusAborted, refusalUnknown
}

// AlwaysDone approves every payment.
type AlwaysDone struct{}

func (AlwaysDone) GetStatus() (string, string) { return payment.StatusDone, "" }

type Server struct {
	secretKey string
	status    GetResponseStatus

	mu       sync.RWMutex
	payments map[string]payment.Payment
}

func NewServer(secretKey string, status GetResponseStatus) *Server {
	return &Server{
		secretKey: secretKey,
		status:    status,
		payments:  make(map[string]payment.Payment),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(s.basicAuth)
		r.Get("/v1/payments/{paymentKey}", s.getPayment)
		r.Post("/v1/sandbox/payments", s.createPayment)
	})
	return r
}

type createPaymentRequest struct {
	OrderID   string `json:"orderId"`
	OrderName string `json:"orderName"`
	Amount    int64  `json:"amount"`
	Method    string `json:"method"`
}

func (s *Server) createPayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" || req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "orderId and a positive amount are required")
		return
	}
	if req.Method == "" {
		req.Method = "카드"
	}

	status, refusal := s.status.GetStatus()
	p := payment.Payment{
		PaymentKey:  "tsb_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		OrderID:     req.OrderID,
		OrderName:   req.OrderName,
		TotalAmount: req.Amount,
		Status:      status,
		Method:      req.Method,
	}
	if status == payment.StatusDone {
		p.ApprovedAt = time.Now().Format(time.RFC3339)
	}

	s.mu.Lock()
	s.payments[p.PaymentKey] = p
	s.mu.Unlock()

	if refusal != "" {
		writeJSON(w, http.StatusCreated, map[string]any{"payment": p, "failureCode": refusal})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"payment": p})
}

func (s *Server) getPayment(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "paymentKey")

	s.mu.RLock()
	p, ok := s.payments[key]
	s.mu.RUnlock()

	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND_PAYMENT", "존재하지 않는 결제 정보 입니다.")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte(s.secretKey+":"))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != want {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED_KEY", "인증되지 않은 시크릿 키 혹은 클라이언트 키 입니다.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, payment.APIError{Code: code, Message: message})
}

// Seed registers a payment directly. Used by tests and the demo binary.
func (s *Server) Seed(p payment.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.PaymentKey == "" {
		p.PaymentKey = fmt.Sprintf("tsb_seed_%d", len(s.payments)+1)
	}
	s.payments[p.PaymentKey] = p
}
