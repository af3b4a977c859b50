package auth

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/jonwraymond/gqlguard/observe"
)

// Authorizer decides whether a request may run an operation.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: a denial that must abort the operation is returned as an
//     error; (false, nil) is a denial the operation tolerates.
type Authorizer interface {
	// Authorize evaluates req.
	Authorize(ctx context.Context, req *AuthzRequest) (bool, error)

	// Name returns a unique identifier for this authorizer.
	Name() string
}

// AuthzRequest contains the information needed for authorization.
type AuthzRequest struct {
	// Subject is the verified identity, nil for anonymous callers.
	Subject *Identity

	// Operation is the protected operation name, e.g. "createMovie".
	Operation string

	// Kind is query, mutation or http. Optional.
	Kind string

	// Path is the resolver path, e.g. "me.token". Defaults to Operation.
	Path string
}

// PolicyAuthorizer evaluates the declared Policy of each operation.
type PolicyAuthorizer struct {
	policies map[string]*Policy
	mw       *observe.Middleware
}

// NewPolicyAuthorizer creates an authorizer over policies. Decisions are
// traced, counted and logged through mw; a nil mw records nothing.
func NewPolicyAuthorizer(policies map[string]*Policy, mw *observe.Middleware) *PolicyAuthorizer {
	if mw == nil {
		mw = observe.NewMiddleware(nil, nil, nil)
	}
	return &PolicyAuthorizer{policies: maps.Clone(policies), mw: mw}
}

// Name returns "policy".
func (a *PolicyAuthorizer) Name() string {
	return "policy"
}

// Policy returns the policy declared for op.
func (a *PolicyAuthorizer) Policy(op string) (*Policy, bool) {
	p, ok := a.policies[op]
	return p, ok
}

// Operations returns the declared operation names in sorted order.
func (a *PolicyAuthorizer) Operations() []string {
	return slices.Sorted(maps.Keys(a.policies))
}

// Authorize evaluates the policy of req.Operation. Undeclared operations
// are rejected with ErrUnknownOperation.
func (a *PolicyAuthorizer) Authorize(ctx context.Context, req *AuthzRequest) (bool, error) {
	p, ok := a.policies[req.Operation]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownOperation, req.Operation)
	}
	meta := observe.OperationMeta{
		Name:         req.Operation,
		Kind:         req.Kind,
		Path:         req.Path,
		Requirements: p.Tokens(),
	}
	decide := a.mw.Wrap(func(_ context.Context, op observe.OperationMeta) (bool, error) {
		allowed, err := p.Evaluate(req.Subject)
		if err != nil {
			kind := KindForbidden
			if errors.Is(err, ErrUnauthorized) {
				kind = KindUnauthorized
			}
			return false, newError(kind, op.OperationPath(), map[string]any{"operation": op.Name}, err)
		}
		return allowed, nil
	})
	return decide(ctx, meta)
}

// AuthorizerFunc is an adapter to allow use of ordinary functions as Authorizers.
type AuthorizerFunc func(ctx context.Context, req *AuthzRequest) (bool, error)

// Authorize calls the function.
func (f AuthorizerFunc) Authorize(ctx context.Context, req *AuthzRequest) (bool, error) {
	return f(ctx, req)
}

// Name returns "func" for function-based authorizers.
func (f AuthorizerFunc) Name() string {
	return "func"
}

var (
	_ Authorizer = (*PolicyAuthorizer)(nil)
	_ Authorizer = AuthorizerFunc(nil)
)
