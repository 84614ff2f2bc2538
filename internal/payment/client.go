// Package payment looks up payments at a Toss Payments compatible provider.
package payment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/go_storefront/pkg/circuitbreaker"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.tosspayments.com"
	StatusDone     = "DONE"
)

var ErrNotConfigured = errors.New("payment secret key is not configured")

// Payment is the provider's authoritative record of a payment.
type Payment struct {
	PaymentKey  string `json:"paymentKey"`
	OrderID     string `json:"orderId"`
	OrderName   string `json:"orderName,omitempty"`
	TotalAmount int64  `json:"totalAmount"`
	Status      string `json:"status"`
	Method      string `json:"method,omitempty"`
	ApprovedAt  string `json:"approvedAt,omitempty"`
}

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payment provider returned %d %s: %s", e.StatusCode, e.Code, e.Message)
}

type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
	cb        *gobreaker.CircuitBreaker[*Payment]
}

func NewClient(baseURL, secretKey string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		secretKey: secretKey,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cb: circuitbreaker.New[*Payment](circuitbreaker.Settings{
			Name: "payment-provider",
			// a 4xx is the provider answering, not the provider being down
			IsSuccessful: func(err error) bool {
				var apiErr *APIError
				return err == nil || (errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError)
			},
		}, log),
	}
}

// GetPayment fetches the payment identified by paymentKey with HTTP Basic auth ("secret:").
func (c *Client) GetPayment(ctx context.Context, paymentKey string) (*Payment, error) {
	if c.secretKey == "" {
		return nil, ErrNotConfigured
	}
	return c.cb.Execute(func() (*Payment, error) {
		return c.getPayment(ctx, paymentKey)
	})
}

func (c *Client) getPayment(ctx context.Context, paymentKey string) (*Payment, error) {
	endpoint := fmt.Sprintf("%s/v1/payments/%s", c.baseURL, url.PathEscape(paymentKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build payment request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.secretKey+":")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read payment response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(body, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return nil, apiErr
	}

	var p Payment
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode payment response: %w", err)
	}
	return &p, nil
}
