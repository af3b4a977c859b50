package secret

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

const refPrefix = "secretref:"

// Resolver expands configuration values and resolves secretref references.
type Resolver struct {
	providers map[string]Provider
	strict    bool
}

// NewResolver creates a resolver. A strict resolver rejects empty provider values.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider), strict: strict}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces the provider under its Name.
func (r *Resolver) Register(p Provider) {
	if p == nil {
		return
	}
	r.providers[p.Name()] = p
}

// Close closes every registered provider.
func (r *Resolver) Close() error {
	var first error
	for _, p := range r.providers {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ResolveValue expands environment references in value, then resolves a
// whole-value secretref or any inline secretrefs.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}
	if name, ref, ok := ParseSecretRef(expanded); ok {
		return r.lookup(ctx, name, ref)
	}
	if !strings.Contains(expanded, refPrefix) {
		return expanded, nil
	}

	var firstErr error
	out := inlineRef.ReplaceAllStringFunc(expanded, func(m string) string {
		name, ref, _ := ParseSecretRef(m)
		v, err := r.lookup(ctx, name, ref)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return v
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// ResolveMap resolves every value in input. Errors name the failing key.
func (r *Resolver) ResolveMap(ctx context.Context, input map[string]string) (map[string]string, error) {
	if input == nil {
		return nil, nil
	}
	out := make(map[string]string, len(input))
	for k, v := range input {
		resolved, err := r.ResolveValue(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}

// ParseSecretRef splits a value of the form secretref:<provider>:<ref>.
func ParseSecretRef(value string) (provider, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, refPrefix)
	if !found {
		return "", "", false
	}
	provider, ref, found = strings.Cut(rest, ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

var inlineRef = regexp.MustCompile(`secretref:[^:\s]+:\S+`)

func (r *Resolver) lookup(ctx context.Context, name, ref string) (string, error) {
	p, ok := r.providers[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrProviderNotRegistered, name)
	}
	v, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if r.strict && v == "" {
		return "", fmt.Errorf("%w: provider %q", ErrEmptySecret, name)
	}
	return v, nil
}
