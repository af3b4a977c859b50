package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/gqlguard/cache"
	"github.com/jonwraymond/gqlguard/health"
	"github.com/jonwraymond/gqlguard/observe"
	"github.com/jonwraymond/gqlguard/resilience"
)

// ParseTokenPath is the Path of every verification failure.
const ParseTokenPath = "auth.parseToken"

// ClockSkew is the fixed tolerance applied to exp, nbf and iat.
const ClockSkew time.Duration = 0

// DefaultAlgorithms are the signing algorithms accepted when
// VerifierConfig.Algorithms is empty.
var DefaultAlgorithms = []string{"ES256", "ES384", "ES512", "RS256", "RS384", "RS512", "EdDSA"}

// VerifierConfig configures a Verifier.
type VerifierConfig struct {
	// Algorithms restricts accepted alg values. Default: DefaultAlgorithms.
	Algorithms []string

	// Refresher, if set, is asked to renew expired credentials.
	Refresher Refresher

	// RefreshTimeout bounds each refresh call. Default: 5 seconds.
	RefreshTimeout time.Duration

	// RefreshBreaker configures the breaker around Refresher.
	RefreshBreaker resilience.CircuitBreakerConfig

	// Cache, if set, keeps accepted identities for CacheTTL, bounded by
	// each credential's expiry. Refreshed identities are not cached.
	Cache    cache.Cache[*Identity]
	CacheTTL time.Duration

	// Logger receives parse-token events. Default: no-op.
	Logger observe.Logger

	// Metrics records verification outcomes. Default: no-op.
	Metrics observe.Metrics

	// Now overrides the verification clock.
	Now func() time.Time
}

// Verifier turns credentials into identities.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: only the refresh call blocks; it is bounded by RefreshTimeout.
//   - The unprotected header is used only to select a key.
type Verifier struct {
	keys      *KeyRegistry
	parser    *jwt.Parser
	refresher Refresher
	guard     *resilience.Guard
	cache     cache.Cache[*Identity]
	cachePol  cache.Policy
	logger    observe.Logger
	metrics   observe.Metrics
	now       func() time.Time
}

// NewVerifier creates a Verifier over keys.
func NewVerifier(keys *KeyRegistry, cfg VerifierConfig) *Verifier {
	if len(cfg.Algorithms) == 0 {
		cfg.Algorithms = DefaultAlgorithms
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.NopMetrics()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Verifier{
		keys: keys,
		parser: jwt.NewParser(
			jwt.WithValidMethods(cfg.Algorithms),
			jwt.WithLeeway(ClockSkew),
			jwt.WithTimeFunc(cfg.Now),
			jwt.WithExpirationRequired(),
		),
		refresher: cfg.Refresher,
		guard: resilience.NewGuard(resilience.GuardConfig{
			Timeout: cfg.RefreshTimeout,
			Breaker: cfg.RefreshBreaker,
		}),
		cache:    cfg.Cache,
		cachePol: cache.Policy{TTL: cfg.CacheTTL},
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		now:      cfg.Now,
	}
}

// RefreshChecker reports the refresh breaker as a "refresh" health check.
// An open breaker is degraded: valid credentials still verify, only
// expired ones cannot be renewed.
func (v *Verifier) RefreshChecker() health.Checker {
	return health.NewCheckerFunc("refresh", func(context.Context) health.Result {
		if v.refresher == nil {
			return health.Healthy("refresh disabled")
		}
		cb := v.guard.Breaker()
		details := map[string]any{"state": cb.State().String(), "failures": cb.Failures()}
		if cb.State() == resilience.StateClosed {
			return health.Healthy("refresh available").WithDetails(details)
		}
		return health.Degraded("refresh breaker " + cb.State().String()).WithDetails(details)
	})
}

// Result is the outcome of one verification. Exactly one of Identity and
// Err is set, or neither for an anonymous caller.
type Result struct {
	Identity *Identity
	Err      *Error
}

// Anonymous reports whether no credential was presented.
func (r Result) Anonymous() bool {
	return r.Identity == nil && r.Err == nil
}

// Unwrap returns the identity, or hands the failure to sink. A nil sink
// means Raise.
func (r Result) Unwrap(ctx context.Context, sink FailureSink) (*Identity, error) {
	if r.Err == nil {
		return r.Identity, nil
	}
	if sink == nil {
		sink = Raise
	}
	return nil, sink.Fail(ctx, r.Err)
}

// Authenticate extracts the credential from req and verifies it.
func (v *Verifier) Authenticate(ctx context.Context, req *AuthRequest, sink FailureSink) (*Identity, error) {
	return v.Verify(ctx, ExtractCredential(req), sink)
}

// Verify checks token and reports failures through sink.
func (v *Verifier) Verify(ctx context.Context, token string, sink FailureSink) (*Identity, error) {
	return v.Check(ctx, token).Unwrap(ctx, sink)
}

// Check verifies token. An empty token is an anonymous caller, not a failure.
func (v *Verifier) Check(ctx context.Context, token string) Result {
	start := time.Now()
	res := v.check(ctx, token)

	outcome := "verified"
	switch {
	case res.Err != nil:
		outcome = string(res.Err.Kind)
		v.logger.Warn(ctx, "parse-token",
			observe.F("name", string(res.Err.Kind)),
			observe.F("value", res.Err.Value),
			observe.F("error", res.Err.Cause),
		)
	case res.Identity == nil:
		outcome = "anonymous"
	case res.Identity.Refreshed:
		outcome = "refreshed"
	}
	v.metrics.RecordVerification(ctx, outcome, time.Since(start))
	return res
}

func (v *Verifier) check(ctx context.Context, token string) Result {
	if token == "" {
		return Result{}
	}
	if id, ok := v.cached(ctx, token); ok {
		return Result{Identity: id}
	}

	id, hdr, err := v.verify(ctx, token)
	switch {
	case err == nil:
		v.remember(ctx, token, id)
		return Result{Identity: id}
	case errors.Is(err, jwt.ErrTokenExpired):
		return v.refresh(ctx, token, hdr)
	}
	return Result{Err: v.classify(hdr, err)}
}

func (v *Verifier) cached(ctx context.Context, token string) (*Identity, bool) {
	if v.cache == nil || !v.cachePol.Enabled() {
		return nil, false
	}
	id, ok := v.cache.Get(ctx, cache.Key(token))
	if !ok || !v.now().Before(id.ExpiresAt) {
		return nil, false
	}
	return id.clone(), true
}

func (v *Verifier) remember(ctx context.Context, token string, id *Identity) {
	if v.cache == nil || !v.cachePol.Enabled() {
		return
	}
	ttl := v.cachePol.EffectiveTTL(v.now(), id.ExpiresAt)
	_ = v.cache.Set(ctx, cache.Key(token), id.clone(), ttl)
}

// verify runs header decode, key selection and signature/claims
// validation. hdr is returned whenever it could be decoded.
func (v *Verifier) verify(ctx context.Context, token string) (*Identity, TokenHeader, error) {
	hdr, err := ParseHeader(token)
	if err != nil {
		return nil, hdr, err
	}
	key, err := v.keys.Resolve(ctx, hdr.KeyID)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, hdr, fmt.Errorf("%w: %v", ErrUnknownKeyID, err)
		}
		return nil, hdr, err
	}

	claims := &Claims{}
	_, err = v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		return nil, hdr, err
	}
	return identityFromClaims(claims, hdr.KeyID), hdr, nil
}

func (v *Verifier) classify(hdr TokenHeader, err error) *Error {
	switch {
	case errors.Is(err, ErrInvalidTokenHeader):
		return newError(KindInvalidTokenHeader, ParseTokenPath, nil, err)
	case errors.Is(err, ErrUnknownKeyID):
		return newError(KindUnknownKeyID, ParseTokenPath, map[string]any{"kid": hdr.KeyID, "alg": hdr.Algorithm}, err)
	}
	return newError(KindInvalidToken, ParseTokenPath, map[string]any{"kid": hdr.KeyID, "reason": reason(err)}, err)
}

func reason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "unverifiable"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "claims"
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return "not yet valid"
	}
	return "invalid"
}

// refresh handles an expired but otherwise valid credential.
func (v *Verifier) refresh(ctx context.Context, token string, hdr TokenHeader) Result {
	if v.refresher == nil {
		return Result{Err: v.classify(hdr, jwt.ErrTokenExpired)}
	}

	var res RefreshResult
	err := v.guard.Execute(ctx, func(ctx context.Context) error {
		r, err := v.refresher.Refresh(ctx, token)
		if err != nil {
			return err
		}
		if r.Outcome == RefreshUnavailable {
			return ErrRefreshUnavailable
		}
		res = r
		return nil
	})
	if err != nil {
		return Result{Err: newError(KindInvalidToken, ParseTokenPath,
			map[string]any{"kid": hdr.KeyID, "reason": "refresh unavailable"},
			errors.Join(jwt.ErrTokenExpired, err))}
	}

	switch res.Outcome {
	case RefreshDenied:
		if res.Reason != "" {
			return Result{Err: newError(KindForbidden, ParseTokenPath,
				map[string]any{"kid": hdr.KeyID, "reason": res.Reason}, ErrForbidden)}
		}
		return Result{Err: newError(KindInvalidToken, ParseTokenPath,
			map[string]any{"kid": hdr.KeyID, "reason": "refresh denied"}, jwt.ErrTokenExpired)}
	case RefreshRenewed:
		id, newHdr, err := v.verify(ctx, res.Token)
		if err != nil {
			return Result{Err: newError(KindInvalidToken, ParseTokenPath,
				map[string]any{"kid": newHdr.KeyID, "reason": "refreshed token rejected"},
				fmt.Errorf("refreshed token: %v", err))}
		}
		id.Refreshed = true
		id.Token = res.Token
		return Result{Identity: id}
	}
	return Result{Err: v.classify(hdr, jwt.ErrTokenExpired)}
}
