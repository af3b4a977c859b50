package auth

import (
	"context"
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/gqlguard/health"
	"github.com/jonwraymond/gqlguard/observe"
)

// DefaultCurve is used for derivation when RegistryConfig.Curve is empty.
const DefaultCurve = "prime256v1"

// KeyConfig is one registry entry. Exactly one of PublicKeyPEM and
// PrivateKeyPEM is normally set; if both are, PublicKeyPEM wins and no
// derivation happens.
type KeyConfig struct {
	PublicKeyPEM  string
	PrivateKeyPEM string
}

// RegistryConfig configures a KeyRegistry.
type RegistryConfig struct {
	// Curve names the elliptic curve used for derivation.
	// Default: prime256v1
	Curve string

	// Keys maps key id to key material.
	Keys map[string]KeyConfig

	// SelfKeyID, if set, names the entry holding this service's own
	// private key. It must exist and carry private material.
	SelfKeyID string

	// Logger receives derivation events. Default: no-op.
	Logger observe.Logger
}

type keyEntry struct {
	privatePEM string
	publicPEM  string
	key        crypto.PublicKey
}

// KeyRegistry resolves key ids to verification keys.
//
// Contract:
//   - Concurrency: safe for concurrent use. Concurrent first use of one kid
//     derives its key once.
//   - Entries are fixed at construction; lookup is by exact kid.
//   - A derived public key is cached on its entry and never recomputed.
type KeyRegistry struct {
	curve     ecdh.Curve
	curveName string
	selfKeyID string
	logger    observe.Logger

	mu      sync.RWMutex
	entries map[string]*keyEntry
	sf      singleflight.Group

	initialized atomic.Bool
	derivations atomic.Int64
}

// NewKeyRegistry validates cfg and builds a registry. No key is derived
// until Initialize or first Resolve.
func NewKeyRegistry(cfg RegistryConfig) (*KeyRegistry, error) {
	if cfg.Curve == "" {
		cfg.Curve = DefaultCurve
	}
	curve, err := ParseCurve(cfg.Curve)
	if err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}

	entries := make(map[string]*keyEntry, len(cfg.Keys))
	for kid, kc := range cfg.Keys {
		if kid == "" {
			return nil, fmt.Errorf("%w: empty key id", ErrInvalidKeyMaterial)
		}
		if strings.TrimSpace(kc.PublicKeyPEM) == "" && strings.TrimSpace(kc.PrivateKeyPEM) == "" {
			return nil, fmt.Errorf("%w: key %q has neither public nor private material", ErrInvalidKeyMaterial, kid)
		}
		entries[kid] = &keyEntry{privatePEM: kc.PrivateKeyPEM, publicPEM: kc.PublicKeyPEM}
	}
	if cfg.SelfKeyID != "" {
		e, ok := entries[cfg.SelfKeyID]
		if !ok {
			return nil, fmt.Errorf("%w: self key %q", ErrKeyNotFound, cfg.SelfKeyID)
		}
		if strings.TrimSpace(e.privatePEM) == "" {
			return nil, fmt.Errorf("%w: self key %q has no private material", ErrInvalidKeyMaterial, cfg.SelfKeyID)
		}
	}

	return &KeyRegistry{
		curve:     curve,
		curveName: cfg.Curve,
		selfKeyID: cfg.SelfKeyID,
		logger:    cfg.Logger,
		entries:   entries,
	}, nil
}

// Initialize materializes every entry, self key first. Any failure is a
// configuration error and the registry must not be used to serve traffic.
func (r *KeyRegistry) Initialize(ctx context.Context) error {
	kids := r.KeyIDs()
	if r.selfKeyID != "" {
		sort.SliceStable(kids, func(i, j int) bool { return kids[i] == r.selfKeyID && kids[j] != r.selfKeyID })
	}
	for _, kid := range kids {
		if _, err := r.Resolve(ctx, kid); err != nil {
			return fmt.Errorf("auth: initialize key %q: %w", kid, err)
		}
	}
	r.initialized.Store(true)
	r.logger.Info(ctx, "keys-initialized",
		observe.F("kids", kids),
		observe.F("curve", r.curveName),
		observe.F("derived", r.derivations.Load()),
	)
	return nil
}

// Resolve returns the verification key for kid, deriving it on first use.
func (r *KeyRegistry) Resolve(ctx context.Context, kid string) (crypto.PublicKey, error) {
	r.mu.RLock()
	e, ok := r.entries[kid]
	var key crypto.PublicKey
	if ok {
		key = e.key
	}
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, kid)
	}
	if key != nil {
		return key, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v, err, _ := r.sf.Do(kid, func() (any, error) {
		return r.materialize(ctx, kid, e)
	})
	if err != nil {
		return nil, err
	}
	return v.(crypto.PublicKey), nil
}

func (r *KeyRegistry) materialize(ctx context.Context, kid string, e *keyEntry) (crypto.PublicKey, error) {
	r.mu.RLock()
	key, publicPEM, privatePEM := e.key, e.publicPEM, e.privatePEM
	r.mu.RUnlock()
	if key != nil {
		return key, nil
	}

	derived := false
	if strings.TrimSpace(publicPEM) == "" {
		start := time.Now()
		pub, err := DerivePublicKeyPEM(r.curve, privatePEM)
		if err != nil {
			return nil, fmt.Errorf("derive %q: %w", kid, err)
		}
		publicPEM = pub
		derived = true
		r.derivations.Add(1)
		r.logger.Debug(ctx, "key-derived",
			observe.F("kid", kid),
			observe.F("duration_ms", float64(time.Since(start).Microseconds())/1000),
		)
	}
	key, err := ParsePublicKeyPEM(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("key %q: %w", kid, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e.key == nil {
		if derived {
			e.publicPEM = publicPEM
		}
		e.key = key
	}
	return e.key, nil
}

// PublicKeyPEM returns the PEM-encoded public key for kid, deriving it if needed.
func (r *KeyRegistry) PublicKeyPEM(ctx context.Context, kid string) (string, error) {
	if _, err := r.Resolve(ctx, kid); err != nil {
		return "", err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[kid].publicPEM, nil
}

// KeyIDs returns every configured key id in sorted order.
func (r *KeyRegistry) KeyIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kids := make([]string, 0, len(r.entries))
	for kid := range r.entries {
		kids = append(kids, kid)
	}
	sort.Strings(kids)
	return kids
}

// SelfKeyID returns the configured self key id.
func (r *KeyRegistry) SelfKeyID() string { return r.selfKeyID }

// Initialized reports whether Initialize completed successfully.
func (r *KeyRegistry) Initialized() bool { return r.initialized.Load() }

// Derivations returns how many public keys have been derived so far.
func (r *KeyRegistry) Derivations() int64 { return r.derivations.Load() }

// Name implements health.Checker.
func (r *KeyRegistry) Name() string { return "keys" }

// Check implements health.Checker. The registry is healthy once initialized.
func (r *KeyRegistry) Check(_ context.Context) health.Result {
	if !r.Initialized() {
		return health.Unhealthy("key registry not initialized", ErrRegistryNotInitialized)
	}
	return health.Healthy("key registry initialized").WithDetails(map[string]any{
		"kids":    r.KeyIDs(),
		"curve":   r.curveName,
		"derived": r.Derivations(),
	})
}

var _ health.Checker = (*KeyRegistry)(nil)

// ParseCurve maps a curve name to its key-agreement curve. OpenSSL,
// SEC and NIST names are accepted.
func ParseCurve(name string) (ecdh.Curve, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "prime256v1", "secp256r1", "p-256", "p256":
		return ecdh.P256(), nil
	case "secp384r1", "p-384", "p384":
		return ecdh.P384(), nil
	case "secp521r1", "p-521", "p521":
		return ecdh.P521(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedCurve, name)
}

// DerivePublicKeyPEM computes the PKIX "PUBLIC KEY" PEM for an EC private
// key by loading its scalar into curve and taking the public point. The
// result is deterministic for given input.
func DerivePublicKeyPEM(curve ecdh.Curve, privatePEM string) (string, error) {
	block, _ := pem.Decode([]byte(privatePEM))
	if block == nil {
		return "", fmt.Errorf("%w: no PEM block", ErrInvalidKeyMaterial)
	}

	var priv *ecdsa.PrivateKey
	switch block.Type {
	case "EC PRIVATE KEY":
		k, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
		}
		priv = k
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
		}
		ec, ok := k.(*ecdsa.PrivateKey)
		if !ok {
			return "", fmt.Errorf("%w: PKCS#8 key is %T, not EC", ErrInvalidKeyMaterial, k)
		}
		priv = ec
	default:
		return "", fmt.Errorf("%w: unexpected PEM type %q", ErrInvalidKeyMaterial, block.Type)
	}

	scalar, err := priv.ECDH()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	agreement, err := curve.NewPrivateKey(scalar.Bytes())
	if err != nil {
		return "", fmt.Errorf("%w: key does not fit curve: %v", ErrInvalidKeyMaterial, err)
	}
	der, err := x509.MarshalPKIXPublicKey(agreement.PublicKey())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

// ParsePublicKeyPEM decodes a verification key. PKIX "PUBLIC KEY" blocks
// holding EC, RSA or Ed25519 keys and PKCS#1 "RSA PUBLIC KEY" blocks are
// accepted.
func ParsePublicKeyPEM(s string) (crypto.PublicKey, error) {
	block, _ := pem.Decode([]byte(s))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block", ErrInvalidKeyMaterial)
	}
	switch block.Type {
	case "PUBLIC KEY":
		k, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
		}
		switch k.(type) {
		case *ecdsa.PublicKey, *rsa.PublicKey, ed25519.PublicKey:
			return k, nil
		}
		return nil, fmt.Errorf("%w: unsupported public key type %T", ErrInvalidKeyMaterial, k)
	case "RSA PUBLIC KEY":
		k, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
		}
		return k, nil
	}
	return nil, fmt.Errorf("%w: unexpected PEM type %q", ErrInvalidKeyMaterial, block.Type)
}
