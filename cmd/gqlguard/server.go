package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/gqlguard/auth"
	"github.com/jonwraymond/gqlguard/config"
	"github.com/jonwraymond/gqlguard/health"
	"github.com/jonwraymond/gqlguard/observe"
)

type server struct {
	cfg      *config.Config
	keys     *auth.KeyRegistry
	verifier *auth.Verifier
	authz    *auth.PolicyAuthorizer
	mw       *auth.Middleware
	health   *health.Aggregator
	logger   observe.Logger
	host     string
	now      func() time.Time
}

// newServer wires the registry, verifier and policies. Keys are derived
// here, so a returned error means the process must not serve.
func newServer(ctx context.Context, cfg *config.Config, obs observe.Observer) (*server, error) {
	logger := obs.Logger()

	keys, err := auth.NewKeyRegistry(cfg.RegistryConfig(logger))
	if err != nil {
		return nil, err
	}
	if err := keys.Initialize(ctx); err != nil {
		return nil, err
	}

	metrics, err := observe.NewMetrics(obs.Meter())
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	decisions, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return nil, err
	}
	policies, err := cfg.Policies()
	if err != nil {
		return nil, err
	}

	verifier := auth.NewVerifier(keys, cfg.VerifierConfig(logger, metrics))
	authz := auth.NewPolicyAuthorizer(policies, decisions)

	agg := health.NewAggregator()
	agg.Register(keys)
	agg.Register(verifier.RefreshChecker())
	agg.Register(health.NewMemoryChecker(health.MemoryCheckerConfig{}))

	host, _ := os.Hostname()
	return &server{
		cfg:      cfg,
		keys:     keys,
		verifier: verifier,
		authz:    authz,
		mw: auth.NewMiddleware(auth.MiddlewareConfig{
			Verifier:     verifier,
			Authorizer:   authz,
			CustomHeader: cfg.Auth.CustomHeader,
			Logger:       logger,
		}),
		health: agg,
		logger: logger,
		host:   host,
		now:    time.Now,
	}, nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	health.Mount(r, s.health)
	if s.cfg.Observe.Metrics.Enabled && s.cfg.Observe.Metrics.Exporter == "prometheus" {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/keys", s.handleKeys)
		r.With(s.mw.Authenticate).Get("/common", s.handleCommon)
		r.Post("/authorize/{operation}", s.handleAuthorize)
	})
	return r
}

type publicKey struct {
	KeyID     string `json:"kid"`
	PublicKey string `json:"public_key"`
}

func (s *server) handleKeys(w http.ResponseWriter, r *http.Request) {
	kids := s.keys.KeyIDs()
	out := make([]publicKey, 0, len(kids))
	for _, kid := range kids {
		pem, err := s.keys.PublicKeyPEM(r.Context(), kid)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		out = append(out, publicKey{KeyID: kid, PublicKey: pem})
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": out})
}

type commonResponse struct {
	Host    string             `json:"host"`
	Time    string             `json:"time"`
	Subject string             `json:"subject,omitempty"`
	Errors  []auth.ErrorRecord `json:"errors"`
}

// handleCommon runs behind Authenticate, so verification failures are
// returned as data instead of failing the request.
func (s *server) handleCommon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := commonResponse{
		Host:   s.host,
		Time:   s.now().UTC().Format(time.RFC3339),
		Errors: []auth.ErrorRecord{},
	}
	if id := auth.IdentityFromContext(ctx); id != nil {
		resp.Subject = id.Subject
	}
	if errs := auth.ErrorListFromContext(ctx); errs != nil {
		resp.Errors = append(resp.Errors, errs.Records()...)
	}
	writeJSON(w, http.StatusOK, resp)
}

type decisionResponse struct {
	Operation   string   `json:"operation"`
	Allowed     bool     `json:"allowed"`
	Subject     string   `json:"subject,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

func (s *server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	op := chi.URLParam(r, "operation")
	s.mw.Require(op)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		resp := decisionResponse{Operation: op, Allowed: auth.PrivilegedFromContext(ctx)}
		if id := auth.IdentityFromContext(ctx); id != nil {
			resp.Subject = id.Subject
			resp.Permissions = id.Permissions
		}
		writeJSON(w, http.StatusOK, resp)
	})).ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
