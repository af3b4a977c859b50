// Package secret resolves references to key material held outside the
// configuration file.
//
// A configured value is first expanded against the environment (see
// ExpandEnvStrict), then any secretref is replaced by its provider's value:
//
//	${PARTNER_PUBLIC_PEM}                     environment variable
//	secretref:env:COMMON_PRIVATE_PEM          env provider
//	secretref:file:/etc/gqlguard/common.pem   file provider
//
// Providers are created by name from a Registry; the env and file
// providers are registered in DefaultRegistry.
package secret
