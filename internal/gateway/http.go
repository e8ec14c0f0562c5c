package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/wahaj/securevault/internal/common"
	"github.com/wahaj/securevault/internal/logging"
	"github.com/wahaj/securevault/internal/models"
)

// HTTPGateway talks JSON over HTTP to the credential backend:
//
//	GET    /credentials
//	POST   /credentials
//	PUT    /credentials/{id}
//	DELETE /credentials/{id}
//	GET    /health
//
// Transient failures (connection errors, 5xx) are retried with fibonacci
// backoff up to maxRetries; 401 responses are surfaced immediately as
// common.ErrUnauthorized.
type HTTPGateway struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	maxRetries uint64
	backoff    time.Duration
	log        logging.Logger
}

// NewHTTPGateway builds a gateway for baseURL. timeout bounds every single
// attempt; tokens may be nil for an always-unauthenticated client.
func NewHTTPGateway(baseURL string, timeout time.Duration, tokens TokenSource, log logging.Logger) *HTTPGateway {
	return &HTTPGateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		maxRetries: 3,
		backoff:    200 * time.Millisecond,
		log:        log,
	}
}

func (g *HTTPGateway) FetchAll(ctx context.Context) ([]models.Credential, error) {
	var out []models.Credential
	if err := g.do(ctx, http.MethodGet, "/credentials", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *HTTPGateway) Create(ctx context.Context, c models.Credential) (models.Credential, error) {
	var out models.Credential
	if err := g.do(ctx, http.MethodPost, "/credentials", c, &out); err != nil {
		return models.Credential{}, err
	}
	return out, nil
}

func (g *HTTPGateway) Update(ctx context.Context, c models.Credential) (models.Credential, error) {
	var out models.Credential
	if err := g.do(ctx, http.MethodPut, "/credentials/"+c.ID, c, &out); err != nil {
		return models.Credential{}, err
	}
	return out, nil
}

func (g *HTTPGateway) Delete(ctx context.Context, id string) (bool, error) {
	var out bool
	if err := g.do(ctx, http.MethodDelete, "/credentials/"+id, nil, &out); err != nil {
		return false, err
	}
	return out, nil
}

func (g *HTTPGateway) Ping(ctx context.Context) error {
	return g.do(ctx, http.MethodGet, "/health", nil, nil)
}

// do runs one logical request with retry. body (when non-nil) is sent as
// JSON; on 2xx the response body is decoded into out (when non-nil).
func (g *HTTPGateway) do(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	b := retry.WithMaxRetries(g.maxRetries, retry.NewFibonacci(g.backoff))

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		err := g.attempt(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		if isRetryable(err) {
			g.log.Debug(ctx, "retrying request", "method", method, "path", path, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return err
	}
	return nil
}

func (g *HTTPGateway) attempt(ctx context.Context, method, path string, payload []byte, out any) error {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", common.ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.tokens != nil {
		if token := g.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", common.ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s %s", common.ErrUnauthorized, method, path)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s %s: server status %d", common.ErrNetwork, method, path, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", common.ErrNetwork, err)
	}
	return nil
}

// isRetryable treats transport-level and 5xx failures as transient.
// Auth rejections and 4xx responses are final.
func isRetryable(err error) bool {
	if errors.Is(err, common.ErrUnauthorized) {
		return false
	}
	return errors.Is(err, common.ErrNetwork)
}
