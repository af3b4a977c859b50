package secret

import "errors"

var (
	// ErrProviderNotRegistered is returned for a secretref naming an unknown provider.
	ErrProviderNotRegistered = errors.New("secret: provider not registered")

	// ErrMissingEnv is returned when an expansion names an unset variable.
	ErrMissingEnv = errors.New("secret: missing environment variable")

	// ErrEmptySecret is returned by strict resolvers when a provider yields "".
	ErrEmptySecret = errors.New("secret: empty value")
)
