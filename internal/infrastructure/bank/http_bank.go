// Package bank contains adapters for the partner bank system.
package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/finhub/backend/internal/domain/origination"
	"github.com/finhub/backend/internal/domain/shared"
	"github.com/finhub/backend/internal/infrastructure/config"
	"github.com/finhub/backend/internal/infrastructure/telemetry"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	submitPath       = "/applications"
	statusPathFormat = "/applications/%s/status"
	apiKeyHeader     = "X-API-Key"
	maxResponseBytes = 1 << 20
)

// Ensure HTTPBankSystem implements BankSystem
var _ origination.BankSystem = (*HTTPBankSystem)(nil)

// rejectedError is a 4xx answer from the bank. It does not count as a
// breaker failure: the bank is up, it just refused the request.
type rejectedError struct {
	status  int
	code    string
	message string
}

func (e *rejectedError) Error() string {
	if e.code != "" {
		return fmt.Sprintf("bank rejected request: HTTP %d %s - %s", e.status, e.code, e.message)
	}
	return fmt.Sprintf("bank rejected request: HTTP %d", e.status)
}

type bankErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HTTPBankSystem talks JSON over HTTP to the partner bank
type HTTPBankSystem struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// HTTPBankOption is a functional option for configuring HTTPBankSystem
type HTTPBankOption func(*HTTPBankSystem)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) HTTPBankOption {
	return func(b *HTTPBankSystem) {
		b.httpClient = client
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) HTTPBankOption {
	return func(b *HTTPBankSystem) {
		b.logger = logger
	}
}

// NewHTTPBankSystem creates an HTTP bank adapter
func NewHTTPBankSystem(cfg *config.BankConfig, opts ...HTTPBankOption) (*HTTPBankSystem, error) {
	base, err := url.ParseRequestURI(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("bank: invalid base URL: %w", err)
	}

	b := &HTTPBankSystem{
		baseURL: strings.TrimRight(base.String(), "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}

	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	b.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "partner-bank",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			var rejected *rejectedError
			return err == nil || errors.As(err, &rejected) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn("bank circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return b, nil
}

// Submit posts a new application to the bank
func (b *HTTPBankSystem) Submit(ctx context.Context, submission origination.BankSubmission) (*origination.BankTicket, error) {
	body, err := json.Marshal(submission)
	if err != nil {
		return nil, fmt.Errorf("bank: failed to encode submission: %w", err)
	}

	var ticket origination.BankTicket
	if err := b.call(ctx, http.MethodPost, submitPath, body, &ticket); err != nil {
		return nil, err
	}
	if ticket.TicketID == "" {
		return nil, fmt.Errorf("%w: bank response has no ticket id", shared.ErrExternalUnavailable)
	}
	return &ticket, nil
}

// FetchStatus reads the bank's current status of a ticket
func (b *HTTPBankSystem) FetchStatus(ctx context.Context, ticketID string) (*origination.BankStatusReport, error) {
	if ticketID == "" {
		return nil, fmt.Errorf("bank: ticket id is required")
	}

	var report origination.BankStatusReport
	path := fmt.Sprintf(statusPathFormat, url.PathEscape(ticketID))
	if err := b.call(ctx, http.MethodGet, path, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// State reports the circuit breaker state
func (b *HTTPBankSystem) State() gobreaker.State {
	return b.breaker.State()
}

func (b *HTTPBankSystem) call(ctx context.Context, method, path string, body []byte, out any) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "bank "+method, trace.SpanKindClient,
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	respBody, err := b.breaker.Execute(func() (any, error) {
		return b.doRequest(ctx, method, path, body)
	})
	if err != nil {
		return b.mapError(ctx, method, path, err)
	}
	if err := json.Unmarshal(respBody.([]byte), out); err != nil {
		return fmt.Errorf("%w: invalid bank response: %v", shared.ErrExternalUnavailable, err)
	}
	return nil
}

func (b *HTTPBankSystem) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("bank: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.apiKey != "" {
		req.Header.Set(apiKeyHeader, b.apiKey)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("bank: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
		return nil, fmt.Errorf("%w: HTTP %d", shared.ErrTimeout, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: HTTP %d", shared.ErrExternalUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		rejected := &rejectedError{status: resp.StatusCode}
		var errResp bankErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil {
			rejected.code = errResp.Code
			rejected.message = errResp.Message
		}
		return nil, rejected
	}
	return respBody, nil
}

// mapError classifies a failed call as TIMEOUT or EXTERNAL_UNAVAILABLE
func (b *HTTPBankSystem) mapError(ctx context.Context, method, path string, err error) error {
	var (
		rejected *rejectedError
		netErr   net.Error
		mapped   error
	)
	switch {
	case errors.Is(err, shared.ErrTimeout), errors.Is(err, shared.ErrExternalUnavailable):
		mapped = err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		mapped = fmt.Errorf("%w: circuit breaker %v", shared.ErrExternalUnavailable, err)
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		mapped = fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		mapped = fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	case errors.As(err, &rejected):
		mapped = fmt.Errorf("%w: %v", shared.ErrExternalUnavailable, err)
	default:
		mapped = fmt.Errorf("%w: %v", shared.ErrExternalUnavailable, err)
	}

	b.logger.Warn("bank call failed",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("code", shared.ErrorCode(mapped)),
		zap.Error(err),
	)
	return mapped
}
