// Package supabase implements the stores over the Supabase PostgREST API.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/tekinformatica/painel-go/internal/domain"
	"github.com/tekinformatica/painel-go/internal/infra/resilience"
)

var tracer = otel.Tracer("supabase")

// Table names of the panel schema.
const (
	tableCustomers   = "clientes"
	tableRenewalLogs = "logs_recarga"
	tableWhatsapp    = "configuracoes_whatsapp"
	tableTierCosts   = "configuracoes_servidor"
)

// Client wraps HTTP calls to Supabase PostgREST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	bulkhead       *resilience.Bulkhead
	cfg            resilience.Config
	logger         *zap.Logger
	onError        func(service string)
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		bulkhead:       resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:            cfg,
		logger:         logger,
	}
}

// OnError registers a callback invoked with the service name of every
// failed call (wired to the backend error counter).
func (c *Client) OnError(fn func(service string)) {
	c.onError = fn
}

// Name identifies the backend in health output.
func (c *Client) Name() string { return "supabase" }

// apiError is the PostgREST error body.
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("supabase returned status %d", e.Status)
}

func parseAPIError(status int, body []byte) *apiError {
	ae := &apiError{Status: status}
	if err := json.Unmarshal(body, ae); err != nil || ae.Message == "" {
		ae.Message = fmt.Sprintf("supabase returned status %d: %s", status, strings.TrimSpace(string(body)))
	}
	return ae
}

// doRequest executes one authenticated request to Supabase PostgREST.
// 4xx answers are returned as permanent errors so they are neither retried
// nor counted by the circuit breaker.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any, prefer string) ([]byte, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, resilience.Permanent(err)
		}
		body = strings.NewReader(string(b))
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, resilience.Permanent(err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.bulkhead.Release()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := readBody(resp)
	if err != nil {
		c.logger.Error("supabase: failed to read response body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(respBody)),
		)
		ae := parseAPIError(resp.StatusCode, respBody)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, resilience.Permanent(ae)
		}
		return nil, ae
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	return respBody, nil
}

// read runs an idempotent GET through the breaker with retries.
func (c *Client) read(ctx context.Context, path string, out any) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doRequest(ctx, http.MethodGet, path, nil, "")
			if err != nil {
				return err
			}
			if len(body) == 0 {
				body = []byte("[]")
			}
			if err := json.Unmarshal(body, out); err != nil {
				return resilience.Permanent(fmt.Errorf("failed to decode %s: %w", path, err))
			}
			return nil
		})
	})
	return err
}

// write runs a mutation through the breaker exactly once.
func (c *Client) write(ctx context.Context, method, path string, payload any, prefer string) ([]byte, error) {
	var body []byte
	_, err := c.cb.Execute(func() (any, error) {
		var err error
		body, err = c.doRequest(ctx, method, path, payload, prefer)
		return nil, err
	})
	return body, err
}

// wrap maps a transport failure to the domain error the handlers expect.
func (c *Client) wrap(service string, err error) error {
	if err == nil {
		return nil
	}
	var nf *domain.ErrNotFound
	if errors.As(err, &nf) {
		return nf
	}
	if c.onError != nil {
		c.onError(service)
	}
	if resilience.IsOpen(err) {
		return &domain.ErrCircuitOpen{Service: service}
	}
	var ae *apiError
	if errors.As(err, &ae) && ae.Code == "23505" {
		return &domain.ErrConflict{Message: ae.Message}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ErrTimeout{Operation: service}
	}
	return &domain.ErrExternalService{Service: service, Err: err}
}

// Ping checks PostgREST answers for the customers table.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Supabase.Ping")
	defer span.End()

	var rows []struct {
		ID string `json:"id"`
	}
	_, err := c.cb.Execute(func() (any, error) {
		body, err := c.doRequest(ctx, http.MethodGet, tableCustomers+"?select=id&limit=1", nil, "")
		if err != nil {
			return nil, err
		}
		if len(body) > 0 {
			return nil, json.Unmarshal(body, &rows)
		}
		return nil, nil
	})
	return c.wrap("supabase/ping", err)
}
