package service

import (
	"errors"
	"fmt"
)

// Kind sentinels. Every error returned by a service operation matches exactly one of them
// via errors.Is, or none for unclassified failures.
var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrNotFound           = errors.New("not found")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrEmptyInput         = errors.New("empty input")
	ErrInactive           = errors.New("product inactive")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrMissingProduct     = errors.New("missing product")
	ErrOrderItemsFailed   = errors.New("order items failed")
	ErrAmountMismatch     = errors.New("amount mismatch")
	ErrAlreadyProcessed   = errors.New("already processed")
	ErrProviderError      = errors.New("payment provider error")
	ErrVerificationFailed = errors.New("payment verification failed")
	ErrInvalidTransition  = errors.New("invalid transition")
)

var kinds = []error{
	ErrUnauthenticated,
	ErrNotFound,
	ErrInvalidQuantity,
	ErrEmptyInput,
	ErrInactive,
	ErrInsufficientStock,
	ErrEmptyCart,
	ErrMissingProduct,
	ErrOrderItemsFailed,
	ErrAmountMismatch,
	ErrAlreadyProcessed,
	ErrProviderError,
	ErrVerificationFailed,
	ErrInvalidTransition,
}

const GenericMessage = "알 수 없는 오류가 발생했습니다."

// Failure carries a kind, the message shown to the caller and the technical cause for logs.
type Failure struct {
	Kind    error
	Message string
	Cause   error
}

func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %v", f.Message, f.Cause)
	}
	return f.Message
}

func (f *Failure) Unwrap() []error {
	if f.Cause != nil {
		return []error{f.Kind, f.Cause}
	}
	return []error{f.Kind}
}

func fail(kind error, message string) *Failure {
	return &Failure{Kind: kind, Message: message}
}

func failWith(kind error, message string, cause error) *Failure {
	return &Failure{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the kind sentinel matched by err, or nil when err is unclassified.
func KindOf(err error) error {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Message returns the caller-facing text for err. Unclassified errors get GenericMessage.
func Message(err error) string {
	var f *Failure
	if errors.As(err, &f) && f.Message != "" {
		return f.Message
	}
	if k := KindOf(err); k != nil {
		return k.Error()
	}
	return GenericMessage
}
