package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/jonwraymond/gqlguard/auth"
	"github.com/jonwraymond/gqlguard/cache"
	"github.com/jonwraymond/gqlguard/observe"
	"github.com/jonwraymond/gqlguard/resilience"
	"github.com/jonwraymond/gqlguard/secret"
)

// Validation errors.
var (
	ErrMissingAddress  = errors.New("config: server address is required")
	ErrNoKeys          = errors.New("config: at least one signing key is required")
	ErrKeyMaterial     = errors.New("config: key needs exactly one of private_key or public_key")
	ErrSelfKey         = errors.New("config: self key must name a key with private material")
	ErrInvalidRefresh  = errors.New("config: invalid refresh settings")
	ErrInvalidDuration = errors.New("config: invalid duration")
)

// Config is the complete process configuration.
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Auth    AuthConfig     `yaml:"auth"`
	Observe observe.Config `yaml:"observe"`

	// Secrets holds per-provider settings, e.g. file: {root: /etc/gqlguard}.
	Secrets map[string]map[string]any `yaml:"secrets"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address           string        `yaml:"address"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig configures keys, verification and declared policies.
type AuthConfig struct {
	Curve        string               `yaml:"curve"`
	CustomHeader string               `yaml:"custom_header"`
	SelfKeyID    string               `yaml:"self_key_id"`
	Algorithms   []string             `yaml:"algorithms"`
	Keys         map[string]KeyConfig `yaml:"keys"`
	Refresh      RefreshConfig        `yaml:"refresh"`
	Cache        CacheConfig          `yaml:"cache"`

	// Models get the CRUD operations of auth.CRUDPolicies.
	Models []string `yaml:"models"`

	// Operations declares role tokens per operation. Entries override
	// model operations of the same name.
	Operations map[string][]string `yaml:"operations"`
}

// KeyConfig holds the material of one registry entry. Values may be
// secret references until Resolve runs.
type KeyConfig struct {
	PrivateKey string `yaml:"private_key"`
	PublicKey  string `yaml:"public_key"`
}

// RefreshConfig configures the optional refresh collaborator. An empty
// URL disables refresh.
type RefreshConfig struct {
	URL          string        `yaml:"url"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// CacheConfig configures the verified identity cache. A zero TTL
// disables it.
type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:           ":4000",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Auth: AuthConfig{
			Curve:        auth.DefaultCurve,
			CustomHeader: auth.DefaultCustomHeader,
			SelfKeyID:    "common",
			Refresh: RefreshConfig{
				Timeout:      2 * time.Second,
				MaxFailures:  5,
				ResetTimeout: 30 * time.Second,
			},
			Operations: map[string][]string{
				"me":     {auth.AnonymousSentinel},
				"common": {auth.AnonymousSentinel},
			},
		},
		Observe: observe.Config{
			ServiceName: "gqlguard",
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
			Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
			Tracing:     observe.TracingConfig{Exporter: "none", SamplePct: 1.0},
		},
	}
}

// Parse decodes YAML over the defaults without validating.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return cfg, nil
}

// Load reads path (optional), applies environment overrides, resolves key
// material and validates the result.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if cfg, err = Parse(data); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.Environ()); err != nil {
		return nil, err
	}

	resolver, err := secret.DefaultRegistry.NewResolver(true, cfg.Secrets)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resolver.Close() }()
	if err := cfg.Resolve(ctx, resolver); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve replaces every key value and the refresh URL with its resolved
// form. Errors name the key.
func (c *Config) Resolve(ctx context.Context, r *secret.Resolver) error {
	for kid, k := range c.Auth.Keys {
		var err error
		if k.PrivateKey, err = resolve(ctx, r, k.PrivateKey); err != nil {
			return fmt.Errorf("config: key %q private_key: %w", kid, err)
		}
		if k.PublicKey, err = resolve(ctx, r, k.PublicKey); err != nil {
			return fmt.Errorf("config: key %q public_key: %w", kid, err)
		}
		c.Auth.Keys[kid] = k
	}
	u, err := resolve(ctx, r, c.Auth.Refresh.URL)
	if err != nil {
		return fmt.Errorf("config: refresh url: %w", err)
	}
	c.Auth.Refresh.URL = u
	return nil
}

func resolve(ctx context.Context, r *secret.Resolver, v string) (string, error) {
	if v == "" {
		return "", nil
	}
	return r.ResolveValue(ctx, v)
}

// Validate checks the configuration. Key material itself is checked when
// the registry initializes.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return ErrMissingAddress
	}
	if c.Server.ReadHeaderTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: server timeouts must not be negative", ErrInvalidDuration)
	}

	if _, err := auth.ParseCurve(c.Auth.Curve); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if len(c.Auth.Keys) == 0 {
		return ErrNoKeys
	}
	for kid, k := range c.Auth.Keys {
		if (k.PrivateKey == "") == (k.PublicKey == "") {
			return fmt.Errorf("%w: %q", ErrKeyMaterial, kid)
		}
	}
	if c.Auth.SelfKeyID != "" && c.Auth.Keys[c.Auth.SelfKeyID].PrivateKey == "" {
		return fmt.Errorf("%w: %q", ErrSelfKey, c.Auth.SelfKeyID)
	}

	if err := c.Auth.Refresh.validate(); err != nil {
		return err
	}
	if c.Auth.Cache.TTL < 0 || c.Auth.Cache.MaxEntries < 0 {
		return fmt.Errorf("%w: cache limits must not be negative", ErrInvalidDuration)
	}
	if _, err := c.Policies(); err != nil {
		return err
	}
	return c.Observe.Validate()
}

func (r RefreshConfig) validate() error {
	if r.Timeout < 0 || r.ResetTimeout < 0 || r.MaxFailures < 0 {
		return fmt.Errorf("%w: negative limits", ErrInvalidRefresh)
	}
	if r.URL == "" {
		return nil
	}
	u, err := url.Parse(r.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url %q", ErrInvalidRefresh, r.URL)
	}
	return nil
}

// Policies builds the operation table: CRUD operations of every model,
// then declared operations.
func (c *Config) Policies() (map[string]*auth.Policy, error) {
	out := make(map[string]*auth.Policy)
	for _, m := range c.Auth.Models {
		if m == "" {
			return nil, fmt.Errorf("config: empty model name")
		}
		for op, p := range auth.CRUDPolicies(m) {
			out[op] = p
		}
	}
	for op, tokens := range c.Auth.Operations {
		p, err := auth.NewPolicy(tokens...)
		if err != nil {
			return nil, fmt.Errorf("config: operation %q: %w", op, err)
		}
		out[op] = p
	}
	return out, nil
}

// RegistryConfig converts the key section for auth.NewKeyRegistry.
func (c *Config) RegistryConfig(logger observe.Logger) auth.RegistryConfig {
	keys := make(map[string]auth.KeyConfig, len(c.Auth.Keys))
	for kid, k := range c.Auth.Keys {
		keys[kid] = auth.KeyConfig{PrivateKeyPEM: k.PrivateKey, PublicKeyPEM: k.PublicKey}
	}
	return auth.RegistryConfig{
		Curve:     c.Auth.Curve,
		Keys:      keys,
		SelfKeyID: c.Auth.SelfKeyID,
		Logger:    logger,
	}
}

// VerifierConfig converts the verification section. The refresher is
// set when a refresh URL is configured and the cache when a cache TTL is.
func (c *Config) VerifierConfig(logger observe.Logger, metrics observe.Metrics) auth.VerifierConfig {
	vc := auth.VerifierConfig{
		Algorithms:     c.Auth.Algorithms,
		RefreshTimeout: c.Auth.Refresh.Timeout,
		RefreshBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  c.Auth.Refresh.MaxFailures,
			ResetTimeout: c.Auth.Refresh.ResetTimeout,
		},
		Logger:  logger,
		Metrics: metrics,
	}
	if c.Auth.Cache.TTL > 0 {
		vc.Cache = cache.NewMemoryCache[*auth.Identity](cache.Policy{
			TTL:        c.Auth.Cache.TTL,
			MaxEntries: c.Auth.Cache.MaxEntries,
		})
		vc.CacheTTL = c.Auth.Cache.TTL
	}
	if c.Auth.Refresh.URL != "" {
		vc.Refresher = auth.NewHTTPRefresher(auth.HTTPRefresherConfig{
			URL:     c.Auth.Refresh.URL,
			Timeout: c.Auth.Refresh.Timeout,
		})
	}
	return vc
}
