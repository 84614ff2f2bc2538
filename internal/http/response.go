package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_storefront/internal/service"
	"github.com/fjod/go_storefront/pkg/logger"
	"go.uber.org/zap"
)

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

type kindMapping struct {
	status int
	code   string
}

var kindMappings = map[error]kindMapping{
	service.ErrUnauthenticated:    {http.StatusUnauthorized, "unauthenticated"},
	service.ErrNotFound:           {http.StatusNotFound, "not_found"},
	service.ErrInvalidQuantity:    {http.StatusBadRequest, "invalid_quantity"},
	service.ErrEmptyInput:         {http.StatusBadRequest, "empty_input"},
	service.ErrInactive:           {http.StatusConflict, "inactive"},
	service.ErrInsufficientStock:  {http.StatusConflict, "insufficient_stock"},
	service.ErrEmptyCart:          {http.StatusConflict, "empty_cart"},
	service.ErrMissingProduct:     {http.StatusConflict, "missing_product"},
	service.ErrInvalidTransition:  {http.StatusConflict, "invalid_transition"},
	service.ErrAlreadyProcessed:   {http.StatusConflict, "already_processed"},
	service.ErrAmountMismatch:     {http.StatusUnprocessableEntity, "amount_mismatch"},
	service.ErrProviderError:      {http.StatusBadGateway, "provider_error"},
	service.ErrVerificationFailed: {http.StatusBadGateway, "verification_failed"},
	service.ErrOrderItemsFailed:   {http.StatusInternalServerError, "order_items_failed"},
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, SuccessResponse{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Success: false,
		Error:   message,
		Code:    code,
	})
}

// handleServiceError converts a service error into the envelope. Causes are logged, never sent.
func handleServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	kind := service.KindOf(err)
	m, ok := kindMappings[kind]
	if !ok {
		logger.WithTrace(r.Context(), log).Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", service.GenericMessage)
		return
	}

	if m.status >= http.StatusInternalServerError || hasCause(err) {
		logger.WithTrace(r.Context(), log).Warn("request failed",
			zap.String("code", m.code),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	respondError(w, m.status, m.code, service.Message(err))
}

func hasCause(err error) bool {
	var f *service.Failure
	return errors.As(err, &f) && f.Cause != nil
}
