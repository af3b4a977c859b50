package auth

import (
	"fmt"
	"slices"
	"strings"
)

const (
	// AnonymousSentinel marks an operation that tolerates a missing identity.
	AnonymousSentinel = "@null"

	// NegationPrefix marks a permission the identity must not hold.
	NegationPrefix = "!"
)

// RequirementKind tags a Requirement.
type RequirementKind uint8

const (
	// Permission requires the identity to hold Code.
	Permission RequirementKind = iota
	// Negated requires the identity not to hold Code.
	Negated
	// AnonymousOnly is the anonymous-tolerant sentinel; Code is empty.
	AnonymousOnly
)

// Requirement is one parsed role token.
type Requirement struct {
	Kind RequirementKind
	Code string
}

// String returns the declaration form of r.
func (r Requirement) String() string {
	switch r.Kind {
	case Negated:
		return NegationPrefix + r.Code
	case AnonymousOnly:
		return AnonymousSentinel
	}
	return r.Code
}

// ParseRequirement parses one role token: "code", "!code" or "@null".
// Other "@" tokens are rejected.
func ParseRequirement(token string) (Requirement, error) {
	token = strings.TrimSpace(token)
	switch {
	case token == AnonymousSentinel:
		return Requirement{Kind: AnonymousOnly}, nil
	case token == "":
		return Requirement{}, fmt.Errorf("%w: empty token", ErrInvalidRequirement)
	case strings.HasPrefix(token, "@"):
		return Requirement{}, fmt.Errorf("%w: unknown sentinel %q", ErrInvalidRequirement, token)
	}

	kind := Permission
	if code, ok := strings.CutPrefix(token, NegationPrefix); ok {
		kind, token = Negated, code
	}
	if token == "" || strings.HasPrefix(token, NegationPrefix) || strings.HasPrefix(token, "@") {
		return Requirement{}, fmt.Errorf("%w: malformed permission %q", ErrInvalidRequirement, token)
	}
	return Requirement{Kind: kind, Code: token}, nil
}

// Policy is the immutable role requirement of one operation.
type Policy struct {
	reqs      []Requirement // sentinel removed
	anonymous bool
	plain     bool // at least one Permission requirement
}

// NewPolicy parses tokens once. No tokens means any authenticated
// identity passes.
func NewPolicy(tokens ...string) (*Policy, error) {
	p := &Policy{}
	for _, tok := range tokens {
		r, err := ParseRequirement(tok)
		if err != nil {
			return nil, err
		}
		if r.Kind == AnonymousOnly {
			p.anonymous = true
			continue
		}
		p.reqs = append(p.reqs, r)
		p.plain = p.plain || r.Kind == Permission
	}
	return p, nil
}

// MustPolicy is NewPolicy for static declarations. It panics on error.
func MustPolicy(tokens ...string) *Policy {
	p, err := NewPolicy(tokens...)
	if err != nil {
		panic(err)
	}
	return p
}

// AllowsAnonymous reports whether the sentinel was declared.
func (p *Policy) AllowsAnonymous() bool { return p.anonymous }

// Requirements returns the parsed tokens, sentinel included.
func (p *Policy) Requirements() []Requirement {
	out := slices.Clone(p.reqs)
	if p.anonymous {
		out = append(out, Requirement{Kind: AnonymousOnly})
	}
	return out
}

// Tokens returns the declaration form of Requirements.
func (p *Policy) Tokens() []string {
	reqs := p.Requirements()
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.String()
	}
	return out
}

// Evaluate decides access for id, which is nil for an anonymous caller.
//
// Without the sentinel a denial is an error: ErrUnauthorized for a
// missing identity, ErrForbidden otherwise. With the sentinel a denial
// is (false, nil). A negated match denies even when a plain token matched.
// A policy of only negated tokens passes any identity holding none of them.
func (p *Policy) Evaluate(id *Identity) (bool, error) {
	if id == nil {
		if !p.anonymous {
			return false, ErrUnauthorized
		}
		return false, nil
	}
	if len(p.reqs) == 0 {
		return true, nil
	}

	pass := !p.plain
	for _, r := range p.reqs {
		held := id.HasPermission(r.Code)
		switch {
		case r.Kind == Negated && held:
			return p.deny()
		case r.Kind == Permission && held:
			pass = true
		}
	}
	if pass {
		return true, nil
	}
	return p.deny()
}

func (p *Policy) deny() (bool, error) {
	if p.anonymous {
		return false, nil
	}
	return false, ErrForbidden
}

// CRUDPolicies declares the read/create/update/delete operations of a
// model, e.g. for "movie": movie, movies, createMovie, updateMovies and
// deleteMovies, requiring movie.read, movie.create, movie.update and
// movie.delete.
func CRUDPolicies(model string) map[string]*Policy {
	if model == "" {
		return nil
	}
	title := strings.ToUpper(model[:1]) + model[1:]
	read := MustPolicy(model + ".read")
	return map[string]*Policy{
		model:                  read,
		model + "s":            read,
		"create" + title:       MustPolicy(model + ".create"),
		"update" + title + "s": MustPolicy(model + ".update"),
		"delete" + title + "s": MustPolicy(model + ".delete"),
	}
}
