package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrRefreshUnavailable indicates the refresh collaborator could not give
// an answer.
var ErrRefreshUnavailable = errors.New("auth: refresh unavailable")

// RefreshOutcome is the answer of a refresh attempt.
type RefreshOutcome int

const (
	// RefreshUnavailable means no decision was made.
	RefreshUnavailable RefreshOutcome = iota
	// RefreshRenewed means a new credential was issued.
	RefreshRenewed
	// RefreshDenied means the session may not be renewed.
	RefreshDenied
)

func (o RefreshOutcome) String() string {
	switch o {
	case RefreshRenewed:
		return "renewed"
	case RefreshDenied:
		return "denied"
	default:
		return "unavailable"
	}
}

// RefreshResult is returned by a Refresher.
type RefreshResult struct {
	Outcome RefreshOutcome

	// Token is the new credential when Outcome is RefreshRenewed.
	Token string

	// Reason explains a denial. A denial with a reason is surfaced as
	// Forbidden; without one it is treated as an invalid credential.
	Reason string
}

// Renewed returns a RefreshRenewed result.
func Renewed(token string) RefreshResult {
	return RefreshResult{Outcome: RefreshRenewed, Token: token}
}

// Denied returns a RefreshDenied result.
func Denied(reason string) RefreshResult {
	return RefreshResult{Outcome: RefreshDenied, Reason: reason}
}

// Refresher renews expired credentials.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: Refresh must honor cancellation; callers bound it with a timeout.
//   - Errors: a non-nil error is treated as RefreshUnavailable.
type Refresher interface {
	Refresh(ctx context.Context, token string) (RefreshResult, error)
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context, token string) (RefreshResult, error)

// Refresh calls f.
func (f RefresherFunc) Refresh(ctx context.Context, token string) (RefreshResult, error) {
	return f(ctx, token)
}

// HTTPRefresherConfig configures an HTTPRefresher.
type HTTPRefresherConfig struct {
	// URL receives a POST with body {"token": "..."}.
	URL string

	// Timeout bounds the HTTP exchange. Default: 10 seconds.
	Timeout time.Duration

	// HTTPClient is the HTTP client to use. If nil, a default client is used.
	HTTPClient *http.Client
}

// HTTPRefresher asks a session service to renew a credential.
//
// A 200 response with {"token"} renews; 401 or 403 with an optional
// {"reason"} denies; anything else is unavailable.
type HTTPRefresher struct {
	url    string
	client *http.Client
}

// NewHTTPRefresher creates a new HTTPRefresher.
func NewHTTPRefresher(cfg HTTPRefresherConfig) *HTTPRefresher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPRefresher{url: cfg.URL, client: client}
}

type refreshBody struct {
	Token  string `json:"token,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Refresh implements Refresher.
func (h *HTTPRefresher) Refresh(ctx context.Context, token string) (RefreshResult, error) {
	body, err := json.Marshal(refreshBody{Token: token})
	if err != nil {
		return RefreshResult{}, fmt.Errorf("%w: encode request: %v", ErrRefreshUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return RefreshResult{}, fmt.Errorf("%w: create request: %v", ErrRefreshUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("%w: %v", ErrRefreshUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out refreshBody
	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return RefreshResult{}, fmt.Errorf("%w: decode response: %v", ErrRefreshUnavailable, err)
		}
		if out.Token == "" {
			return RefreshResult{}, fmt.Errorf("%w: response carries no token", ErrRefreshUnavailable)
		}
		return Renewed(out.Token), nil
	case http.StatusUnauthorized, http.StatusForbidden:
		// The reason is optional; an unreadable body is a denial without one.
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out)
		return Denied(out.Reason), nil
	default:
		return RefreshResult{}, fmt.Errorf("%w: status %d", ErrRefreshUnavailable, resp.StatusCode)
	}
}

var (
	_ Refresher = RefresherFunc(nil)
	_ Refresher = (*HTTPRefresher)(nil)
)
