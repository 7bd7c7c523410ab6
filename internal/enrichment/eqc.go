package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/linsuisheng034/workdatahub/internal/errs"
)

// EQCMatch is one candidate result from the external EQC company-name
// lookup API (spec §4.6 Layer 4).
type EQCMatch struct {
	CompanyID string
	MatchType string
}

// EQCClient is the Layer 4 external provider contract. Implementations
// must classify HTTP failures into the errs retry taxonomy themselves so
// the pipeline's generic retry policy does not need to know about HTTP.
type EQCClient interface {
	Lookup(ctx context.Context, companyName string) (EQCMatch, bool, error)
}

// httpEQCClient calls the configured EQC endpoint over HTTP, guarded by a
// circuit breaker, grounded on the teacher-adjacent gobreaker.Settings usage
// pattern (ReadyToTrip). The breaker opens after three consecutive failed
// lookups of any kind and rejects calls for 60 seconds before letting one
// trial call through. A single authentication failure does not open it, and
// an open breaker does not keep the provider off for the rest of the run.
type httpEQCClient struct {
	baseURL string
	token   string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  func(name string, from, to gobreaker.State)
}

// NewHTTPEQCClient builds an EQCClient bound to baseURL, authenticating
// with token, timing individual calls out after timeout.
func NewHTTPEQCClient(baseURL, token string, timeout time.Duration) EQCClient {
	c := &httpEQCClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "eqc_api",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return c
}

type eqcResponse struct {
	CompanyID string `json:"company_id"`
	MatchType string `json:"match_type"`
	Found     bool   `json:"found"`
}

// Lookup issues one bounded-retry HTTP call through the circuit breaker.
// 429/503 responses and network errors get three attempts with exponential
// backoff starting at 1s and doubling; 500/502/504 get two attempts;
// anything else, including 401/403, is not retried (spec §4.5 retry
// classification table, HTTP tiers).
func (c *httpEQCClient) Lookup(ctx context.Context, companyName string) (EQCMatch, bool, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.callWithRetry(ctx, companyName)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return EQCMatch{}, false, errs.NewEnrichmentProviderError("eqc_api", "circuit breaker open: provider calls suspended", err)
		}
		return EQCMatch{}, false, err
	}
	resp := result.(eqcResponse)
	if !resp.Found {
		return EQCMatch{}, false, nil
	}
	return EQCMatch{CompanyID: resp.CompanyID, MatchType: resp.MatchType}, true, nil
}

func (c *httpEQCClient) callWithRetry(ctx context.Context, companyName string) (eqcResponse, error) {
	var resp eqcResponse
	attempt := 0
	operation := func() error {
		attempt++
		r, retryable, err := c.call(ctx, companyName)
		if err != nil {
			if retryable && attempt < maxAttemptsFor(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		resp = r
		return nil
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.Multiplier = 2
	err := backoff.Retry(operation, backoff.WithMaxRetries(bo, 3))
	return resp, err
}

func maxAttemptsFor(err error) int {
	var te *errs.TransientError
	if errors.As(err, &te) && (te.Tier == errs.TierHTTP429 || te.Tier == errs.TierNetwork) {
		return 3
	}
	return 2
}

func (c *httpEQCClient) call(ctx context.Context, companyName string) (eqcResponse, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/companies/search", nil)
	if err != nil {
		return eqcResponse{}, false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	q := req.URL.Query()
	q.Set("name", companyName)
	req.URL.RawQuery = q.Encode()

	resp, err := c.client.Do(req)
	if err != nil {
		return eqcResponse{}, true, errs.NewTransientError(errs.TierNetwork, 1, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var out eqcResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return eqcResponse{}, false, fmt.Errorf("decode eqc response: %w", err)
		}
		return out, false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return eqcResponse{}, true, errs.NewTransientError(errs.TierHTTP429, 1, fmt.Errorf("eqc returned %d", resp.StatusCode))
	case resp.StatusCode == http.StatusInternalServerError || resp.StatusCode == http.StatusBadGateway || resp.StatusCode == http.StatusGatewayTimeout:
		return eqcResponse{}, true, errs.NewTransientError(errs.TierHTTP5xx, 1, fmt.Errorf("eqc returned %d", resp.StatusCode))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return eqcResponse{}, false, errs.NewEnrichmentProviderError("eqc_api", fmt.Sprintf("eqc authentication failed (%d)", resp.StatusCode), nil)
	default:
		return eqcResponse{}, false, fmt.Errorf("eqc returned unexpected status %d", resp.StatusCode)
	}
}
