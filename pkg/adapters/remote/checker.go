// Package remote implements ports.RemoteRuleChecker over HTTP: each check
// is a POST to the backend, and transport failures degrade to the unknown
// outcome so the engine can report the field as pending instead of
// guessing a verdict.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

const defaultTimeout = 5 * time.Second

// Checker posts remote check requests to {baseURL}/checks/{name}.
type Checker struct {
	baseURL string
	client  *http.Client
}

// Option configures the checker.
type Option func(*Checker)

// WithHTTPClient swaps the underlying HTTP client, e.g. to add tracing.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Checker) { c.client = client }
}

// WithTimeout bounds each check round trip.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) { c.client.Timeout = d }
}

// New creates a checker against the given backend base URL.
func New(baseURL string, opts ...Option) *Checker {
	c := &Checker{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type checkResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Check posts the request and maps the response onto a rule outcome. Any
// transport or decode failure returns unknown together with the error; the
// engine treats that as pending, never as a pass.
func (c *Checker) Check(ctx context.Context, req ports.RemoteCheckRequest) (domain.RuleOutcome, error) {
	unknown := domain.RuleOutcome{Status: domain.OutcomeUnknown}

	payload, err := json.Marshal(req)
	if err != nil {
		return unknown, fmt.Errorf("encode check request: %w", err)
	}

	url := c.baseURL + "/checks/" + req.Check
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return unknown, fmt.Errorf("build check request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return unknown, fmt.Errorf("check %s: %w", req.Check, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return unknown, fmt.Errorf("check %s: backend returned %s", req.Check, resp.Status)
	}

	var body checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return unknown, fmt.Errorf("decode check response: %w", err)
	}

	switch domain.OutcomeStatus(body.Status) {
	case domain.OutcomeValid:
		return domain.RuleOutcome{Status: domain.OutcomeValid, Message: body.Message}, nil
	case domain.OutcomeInvalid:
		return domain.RuleOutcome{Status: domain.OutcomeInvalid, Message: body.Message}, nil
	default:
		return unknown, nil
	}
}
