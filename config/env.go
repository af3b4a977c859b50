package config

import (
	"fmt"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GQLGUARD_"

// keyEnvPrefix starts per-key overrides: GQLGUARD_KEY_<KID>_PRIVATE_KEY
// and GQLGUARD_KEY_<KID>_PUBLIC_KEY. The kid is lowercased.
const keyEnvPrefix = EnvPrefix + "KEY_"

// ApplyEnv applies GQLGUARD_* overrides from environ, given in os.Environ
// form. Unknown GQLGUARD_ variables are ignored.
func (c *Config) ApplyEnv(environ []string) error {
	env := make(map[string]string)
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}

	str := map[string]*string{
		"ADDRESS":          &c.Server.Address,
		"CURVE":            &c.Auth.Curve,
		"CUSTOM_HEADER":    &c.Auth.CustomHeader,
		"SELF_KEY_ID":      &c.Auth.SelfKeyID,
		"REFRESH_URL":      &c.Auth.Refresh.URL,
		"SERVICE_NAME":     &c.Observe.ServiceName,
		"LOG_LEVEL":        &c.Observe.Logging.Level,
		"METRICS_EXPORTER": &c.Observe.Metrics.Exporter,
	}
	for name, dst := range str {
		if v, ok := env[EnvPrefix+name]; ok {
			*dst = v
		}
	}

	dur := map[string]*time.Duration{
		"READ_HEADER_TIMEOUT": &c.Server.ReadHeaderTimeout,
		"REFRESH_TIMEOUT":     &c.Auth.Refresh.Timeout,
		"CACHE_TTL":           &c.Auth.Cache.TTL,
	}
	for name, dst := range dur {
		v, ok := env[EnvPrefix+name]
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q", ErrInvalidDuration, EnvPrefix, name, v)
		}
		*dst = d
	}

	if v, ok := env[EnvPrefix+"TRACING_EXPORTER"]; ok {
		c.Observe.Tracing.Exporter = v
		c.Observe.Tracing.Enabled = v != "" && v != "none"
	}
	if v, ok := env[EnvPrefix+"MODELS"]; ok {
		c.Auth.Models = splitList(v)
	}

	for k, v := range env {
		rest, ok := strings.CutPrefix(k, keyEnvPrefix)
		if !ok {
			continue
		}
		if kid, ok := strings.CutSuffix(rest, "_PRIVATE_KEY"); ok && kid != "" {
			c.setKey(strings.ToLower(kid), func(kc *KeyConfig) { kc.PrivateKey, kc.PublicKey = v, "" })
		} else if kid, ok := strings.CutSuffix(rest, "_PUBLIC_KEY"); ok && kid != "" {
			c.setKey(strings.ToLower(kid), func(kc *KeyConfig) { kc.PublicKey, kc.PrivateKey = v, "" })
		}
	}
	return nil
}

func (c *Config) setKey(kid string, set func(*KeyConfig)) {
	if c.Auth.Keys == nil {
		c.Auth.Keys = make(map[string]KeyConfig)
	}
	k := c.Auth.Keys[kid]
	set(&k)
	c.Auth.Keys[kid] = k
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
