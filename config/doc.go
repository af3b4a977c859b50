// Package config loads the gqlguard process configuration.
//
// Loading runs in a fixed order: built-in defaults, the YAML file,
// GQLGUARD_* environment overrides, secret resolution of key material and
// finally Validate. Key material may be written inline, as ${ENV}
// references, or as secretref:env:NAME and secretref:file:/path
// references resolved through the secret package.
//
//	cfg, err := config.Load(ctx, "/etc/gqlguard/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	registry, err := auth.NewKeyRegistry(cfg.RegistryConfig(logger))
package config
