package secret

import (
	"errors"
	"testing"
)

func TestRegistry_RegisterAndCreate(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register("stub", func(map[string]any) (Provider, error) {
		return &stubProvider{name: "stub"}, nil
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.Register("stub", func(map[string]any) (Provider, error) { return nil, nil }); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if err := reg.Register(" ", nil); err == nil {
		t.Fatal("expected invalid registration error")
	}

	p, err := reg.Create("stub", nil)
	if err != nil || p.Name() != "stub" {
		t.Fatalf("Create() = %v, %v", p, err)
	}
	if _, err := reg.Create("missing", nil); !errors.Is(err, ErrProviderNotRegistered) {
		t.Fatalf("Create(missing) error = %v", err)
	}
}

func TestDefaultRegistry_List(t *testing.T) {
	names := DefaultRegistry.List()
	if len(names) != 2 || names[0] != "env" || names[1] != "file" {
		t.Fatalf("List() = %v, want [env file]", names)
	}
}
