package secret

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

// EnvProvider reads secrets from environment variables.
type EnvProvider struct{}

func (EnvProvider) Name() string { return "env" }

// Resolve returns the value of the variable named ref.
func (EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, ref)
	}
	return v, nil
}

func (EnvProvider) Close() error { return nil }

// FileProvider reads secrets from files, typically mounted PEM material.
type FileProvider struct {
	// Root, if set, confines refs to paths beneath it.
	Root string
}

func (p FileProvider) Name() string { return "file" }

// Resolve returns the file content with surrounding whitespace trimmed
// and a single trailing newline restored for PEM blocks.
func (p FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	path := filepath.Clean(ref)
	if p.Root != "" {
		path = filepath.Join(p.Root, path)
		rel, err := filepath.Rel(p.Root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			return "", fmt.Errorf("secret: file ref %q escapes root", ref)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("secret: read %s: %w", ref, err)
	}
	v := strings.TrimSpace(string(data))
	if strings.HasPrefix(v, "-----BEGIN ") {
		v += "\n"
	}
	return v, nil
}

func (FileProvider) Close() error { return nil }

var (
	_ Provider = EnvProvider{}
	_ Provider = FileProvider{}
)
