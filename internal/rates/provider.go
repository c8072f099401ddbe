// Package rates fetches spot exchange-rate tables from a remote provider.
//
// Failures arrive on two independent channels: the HTTP transport (network
// errors, non-2xx statuses, garbage bodies) and the response payload itself
// (result == "error" with a machine-readable error type). The payload is
// inspected first; only when it carries no business error does the failure
// count as a transport error.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Provider returns the current rate table for a base currency.
type Provider interface {
	Latest(ctx context.Context, base string) (core.RateSnapshot, error)
}

// ProviderError is a business error reported inside the response payload.
type ProviderError struct {
	Type string // e.g. "unsupported-code", "invalid-key", "quota-reached"
}

func (e *ProviderError) Error() string {
	return "rate provider error: " + e.Type
}

// Unsupported reports whether the provider rejected the requested code.
func (e *ProviderError) Unsupported() bool {
	return e.Type == "unsupported-code" || e.Type == "malformed-request"
}

// TransportError covers every failure to obtain a usable payload.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("rate provider transport (%s): %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// latestResponse mirrors the exchangerate-api v6 "latest" payload.
type latestResponse struct {
	Result             string             `json:"result"`
	Documentation      string             `json:"documentation"`
	TermsOfUse         string             `json:"terms_of_use"`
	TimeLastUpdateUnix int64              `json:"time_last_update_unix"`
	BaseCode           string             `json:"base_code"`
	ConversionRates    map[string]float64 `json:"conversion_rates"`
	ErrorType          string             `json:"error-type"`
}

// Client is the HTTP Provider. Concurrent lookups for the same base share one
// request; nothing is retained once it completes. A caller that gives up stops
// waiting without cancelling the request for the others.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	group      singleflight.Group
}

var _ Provider = (*Client)(nil)

// NewClient creates a provider client. The timeout applies to each request.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Latest fetches the rate table for base.
func (c *Client) Latest(ctx context.Context, base string) (core.RateSnapshot, error) {
	base = strings.ToUpper(base)
	ch := c.group.DoChan(base, func() (any, error) {
		// The request outlives the caller that started it; the client timeout bounds it.
		return c.fetch(context.WithoutCancel(ctx), base)
	})

	select {
	case <-ctx.Done():
		return core.RateSnapshot{}, &TransportError{Op: "request", Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return core.RateSnapshot{}, res.Err
		}
		if res.Shared {
			slog.DebugContext(ctx, "Rate lookup shared with in-flight request", "base", base)
		}
		return res.Val.(core.RateSnapshot), nil
	}
}

func (c *Client) fetch(ctx context.Context, base string) (core.RateSnapshot, error) {
	url := fmt.Sprintf("%s/%s/latest/%s", c.baseURL, c.apiKey, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return core.RateSnapshot{}, fmt.Errorf("build rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.RateSnapshot{}, &TransportError{Op: "request", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return core.RateSnapshot{}, &TransportError{Op: "read body", Err: err}
	}

	var payload latestResponse
	decodeErr := json.Unmarshal(body, &payload)

	// Payload channel first: a decodable business error wins over the HTTP status.
	if decodeErr == nil && payload.Result == "error" {
		slog.ErrorContext(ctx, "Rate provider returned business error",
			"base", base,
			"error_type", payload.ErrorType,
			"status_code", resp.StatusCode)
		return core.RateSnapshot{}, &ProviderError{Type: payload.ErrorType}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return core.RateSnapshot{}, &TransportError{Op: "status", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	if decodeErr != nil {
		return core.RateSnapshot{}, &TransportError{Op: "decode", Err: decodeErr}
	}
	if payload.Result != "success" {
		return core.RateSnapshot{}, &TransportError{Op: "decode", Err: fmt.Errorf("unexpected result %q", payload.Result)}
	}

	return toSnapshot(base, payload), nil
}

func toSnapshot(base string, payload latestResponse) core.RateSnapshot {
	snap := core.RateSnapshot{
		Base:  base,
		Rates: make(map[string]decimal.Decimal, len(payload.ConversionRates)),
	}
	if payload.BaseCode != "" {
		snap.Base = strings.ToUpper(payload.BaseCode)
	}
	if payload.TimeLastUpdateUnix > 0 {
		snap.UpdatedAt = time.Unix(payload.TimeLastUpdateUnix, 0).UTC()
	}
	for code, rate := range payload.ConversionRates {
		if rate <= 0 {
			continue
		}
		snap.Rates[strings.ToUpper(code)] = decimal.NewFromFloat(rate)
	}
	return snap
}

// IsTransport reports whether err came from the transport channel.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
