package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonwraymond/gqlguard/observe"
)

const (
	// RequestIDHeader carries the request correlation id in both directions.
	RequestIDHeader = "X-Request-ID"

	// RefreshedTokenHeader returns a renewed credential to the client.
	RefreshedTokenHeader = "X-Refreshed-Token"
)

// MiddlewareConfig configures HTTP middleware.
type MiddlewareConfig struct {
	// Verifier verifies request credentials. Required.
	Verifier *Verifier

	// Authorizer evaluates operations for Require. Required for Require.
	Authorizer Authorizer

	// CustomHeader overrides DefaultCustomHeader.
	CustomHeader string

	// Logger receives request-level events. Default: no-op.
	Logger observe.Logger
}

// Middleware attaches identities to HTTP requests and guards operations.
type Middleware struct {
	verifier     *Verifier
	authz        Authorizer
	customHeader string
	logger       observe.Logger
}

// NewMiddleware creates HTTP middleware.
func NewMiddleware(cfg MiddlewareConfig) *Middleware {
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	return &Middleware{
		verifier:     cfg.Verifier,
		authz:        cfg.Authorizer,
		customHeader: cfg.CustomHeader,
		logger:       cfg.Logger,
	}
}

// Authenticate verifies the request credential in accumulating mode.
// Failures are appended to the request's ErrorList and the request
// continues anonymously; handlers read them with ErrorListFromContext.
//
// Usage:
//
//	r.Use(mw.Authenticate)
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = m.withRequestID(w, r)
		errs := &ErrorList{}
		ctx := WithErrorList(r.Context(), errs)

		id, _ := m.verifier.Authenticate(ctx, m.authRequest(r), errs)
		if n := errs.Len(); n > 0 {
			m.logger.Debug(ctx, "auth-errors",
				observe.F("request_id", RequestIDFromContext(ctx)),
				observe.F("count", n),
			)
		}
		if id != nil {
			ctx = WithIdentity(ctx, id)
			m.propagateRefresh(w, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require guards next with the declared policy of operation in raising
// mode. Behind Authenticate the already attached identity is used;
// otherwise the credential is verified here and any failure aborts the
// request.
func (m *Middleware) Require(operation string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = m.withRequestID(w, r)
			ctx := r.Context()

			id := IdentityFromContext(ctx)
			if id == nil && ErrorListFromContext(ctx) == nil {
				var err error
				id, err = m.verifier.Authenticate(ctx, m.authRequest(r), Raise)
				if err != nil {
					WriteError(w, r, err)
					return
				}
				if id != nil {
					ctx = WithIdentity(ctx, id)
					m.propagateRefresh(w, id)
				}
			}

			allowed, err := m.authz.Authorize(ctx, &AuthzRequest{
				Subject:   id,
				Operation: operation,
				Kind:      "http",
				Path:      r.URL.Path,
			})
			if err != nil {
				WriteError(w, r.WithContext(ctx), err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrivileged(ctx, allowed)))
		})
	}
}

func (m *Middleware) authRequest(r *http.Request) *AuthRequest {
	return &AuthRequest{Headers: r.Header, CustomHeader: m.customHeader}
}

func (m *Middleware) withRequestID(w http.ResponseWriter, r *http.Request) *http.Request {
	if RequestIDFromContext(r.Context()) != "" {
		return r
	}
	rid := r.Header.Get(RequestIDHeader)
	if rid == "" {
		rid = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, rid)
	return r.WithContext(WithRequestID(r.Context(), rid))
}

func (m *Middleware) propagateRefresh(w http.ResponseWriter, id *Identity) {
	if id.Refreshed && id.Token != "" {
		w.Header().Set(RefreshedTokenHeader, id.Token)
	}
}

// ErrorResponse is the JSON body written by WriteError.
type ErrorResponse struct {
	Name      string `json:"name"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// WriteError writes err with a status derived from its Kind: 401 for
// missing or unusable credentials, 403 for Forbidden, 404 for unknown
// operations and 500 otherwise. Causes are never written.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	resp := ErrorResponse{
		Name:      "InternalError",
		Message:   "internal error",
		RequestID: RequestIDFromContext(r.Context()),
	}

	if kind, ok := KindOf(err); ok {
		resp.Name = string(kind)
		resp.Message = kind.Sentinel().Error()
		status = http.StatusUnauthorized
		if kind == KindForbidden {
			status = http.StatusForbidden
		}
	} else if errors.Is(err, ErrUnknownOperation) {
		resp.Name = "UnknownOperation"
		resp.Message = err.Error()
		status = http.StatusNotFound
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="gqlguard"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
