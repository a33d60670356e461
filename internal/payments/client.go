// Package payments implements the payment provider API client. Responses
// are decoded into explicit DTOs at this boundary; nothing above it touches
// raw provider payloads.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/gigstastore/marketplace/internal/domain/billing"
	"github.com/gigstastore/marketplace/internal/domain/checkout"
)

// Config holds client configuration. Credentials are injected explicitly;
// there is no package-level client state.
type Config struct {
	BaseURL    string
	SecretKey  string
	Currency   string
	Timeout    time.Duration
	MaxRetries int
}

// Client talks to the payment provider over its form-encoded HTTP API.
// Every call goes through a circuit breaker so a provider outage fails fast
// instead of tying up checkout requests.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

var (
	_ checkout.PaymentProvider = (*Client)(nil)
	_ billing.Provider         = (*Client)(nil)
)

// NewClient creates a provider Client.
func NewClient(cfg Config, lg *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.Currency == "" {
		cfg.Currency = "nzd"
	}

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:     "payment-provider",
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			lg.Warn("Circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				ForceAttemptHTTP2:   true,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 16,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		breaker: breaker,
	}
}

// apiError is the provider's error envelope.
type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do executes one provider call: form-encoded body, bearer auth, optional
// connected-account scoping header, retries on transport errors and 5xx.
func (c *Client) do(ctx context.Context, op, method, path, connectAccount string, form url.Values, out any) error {
	var body io.Reader
	encoded := ""
	if form != nil {
		encoded = form.Encode()
	}

	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * 500 * time.Millisecond
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return &checkout.ProviderError{Op: op, Err: ctx.Err()}
			}
			zctx.From(ctx).Debug("Retrying provider call",
				zap.String("op", op), zap.Int("attempt", attempt))
		}

		if encoded != "" {
			body = strings.NewReader(encoded)
		} else {
			body = http.NoBody
		}
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
		if err != nil {
			return &checkout.ProviderError{Op: op, Err: err}
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
		if encoded != "" {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		if connectAccount != "" {
			req.Header.Set("Provider-Account", connectAccount)
		}

		resp, lastErr = c.breaker.Execute(func() (*http.Response, error) {
			r, err := c.http.Do(req)
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= 500 {
				b, _ := io.ReadAll(io.LimitReader(r.Body, 4<<10))
				_ = r.Body.Close()
				return nil, errors.Errorf("provider %d: %s", r.StatusCode, b)
			}
			return r, nil
		})
		if lastErr != nil {
			if errors.Is(lastErr, gobreaker.ErrOpenState) {
				return &checkout.ProviderError{Op: op, Err: lastErr}
			}
			continue
		}
		break
	}
	if lastErr != nil {
		return &checkout.ProviderError{Op: op, Err: lastErr}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		var apiErr apiError
		msg := resp.Status
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return &checkout.ProviderError{
			Op:          op,
			CallerFault: resp.StatusCode < 500,
			Err:         errors.Errorf("%d: %s", resp.StatusCode, msg),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &checkout.ProviderError{Op: op, Err: errors.Wrap(err, "decode response")}
		}
	}
	return nil
}

// sessionDTO is the wire shape of a provider checkout session.
type sessionDTO struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentIntent string `json:"payment_intent"`
	Status        string `json:"status"`
}

func (d sessionDTO) toDomain() *checkout.ProviderSession {
	return &checkout.ProviderSession{
		ID:              d.ID,
		URL:             d.URL,
		PaymentIntentID: d.PaymentIntent,
		Status:          d.Status,
	}
}

// CreateSession opens a hosted checkout session on the seller's connected
// account.
func (c *Client) CreateSession(ctx context.Context, params checkout.CreateSessionParams) (*checkout.ProviderSession, error) {
	form := url.Values{}
	form.Set("mode", params.Mode)
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	if params.CustomerEmail != "" {
		form.Set("customer_email", params.CustomerEmail)
	}
	for i, li := range params.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[price]", li.PriceID)
		form.Set(prefix+"[quantity]", strconv.Itoa(li.Quantity))
	}
	for k, v := range params.Metadata {
		form.Set("metadata["+k+"]", v)
	}
	switch params.Mode {
	case checkout.ModeSubscription:
		form.Set("subscription_data[application_fee_percent]", params.ApplicationFeePercent.String())
	default:
		form.Set("payment_intent_data[application_fee_amount]", strconv.FormatInt(params.ApplicationFeeMinor, 10))
	}

	var dto sessionDTO
	if err := c.do(ctx, "create session", http.MethodPost, "/v1/checkout/sessions", params.ConnectAccountID, form, &dto); err != nil {
		return nil, err
	}
	return dto.toDomain(), nil
}

// GetSession retrieves a session scoped to its connected account.
// Connected-account objects are namespaced apart from platform objects, so
// the scoping header is required for the lookup to resolve.
func (c *Client) GetSession(ctx context.Context, sessionID, connectAccountID string) (*checkout.ProviderSession, error) {
	var dto sessionDTO
	path := "/v1/checkout/sessions/" + url.PathEscape(sessionID)
	if err := c.do(ctx, "get session", http.MethodGet, path, connectAccountID, nil, &dto); err != nil {
		return nil, err
	}
	return dto.toDomain(), nil
}

// accountDTO is the wire shape of a provider connected account.
type accountDTO struct {
	ID             string `json:"id"`
	ChargesEnabled bool   `json:"charges_enabled"`
	PayoutsEnabled bool   `json:"payouts_enabled"`
}

// Account is the decoded connected-account state.
type Account struct {
	ID             string
	ChargesEnabled bool
	PayoutsEnabled bool
}

// GetAccount retrieves a connected account's capability flags.
func (c *Client) GetAccount(ctx context.Context, connectAccountID string) (*Account, error) {
	var dto accountDTO
	path := "/v1/accounts/" + url.PathEscape(connectAccountID)
	if err := c.do(ctx, "get account", http.MethodGet, path, "", nil, &dto); err != nil {
		return nil, err
	}
	return &Account{
		ID:             dto.ID,
		ChargesEnabled: dto.ChargesEnabled,
		PayoutsEnabled: dto.PayoutsEnabled,
	}, nil
}

// DeleteAccount removes a connected account. A missing account is treated
// as already deleted.
func (c *Client) DeleteAccount(ctx context.Context, connectAccountID string) error {
	path := "/v1/accounts/" + url.PathEscape(connectAccountID)
	err := c.do(ctx, "delete account", http.MethodDelete, path, "", nil, nil)
	var provErr *checkout.ProviderError
	if errors.As(err, &provErr) && provErr.CallerFault {
		zctx.From(ctx).Info("Connected account already missing",
			zap.String("connect_account_id", connectAccountID))
		return nil
	}
	return err
}
