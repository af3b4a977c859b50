package cache

import (
	"strings"
	"testing"
)

func TestKey(t *testing.T) {
	a := Key("eyJhbGciOiJFUzI1NiJ9.payload.sig")
	if a != Key("eyJhbGciOiJFUzI1NiJ9.payload.sig") {
		t.Fatal("Key() is not deterministic")
	}
	if a == Key("eyJhbGciOiJFUzI1NiJ9.payload.sih") {
		t.Fatal("distinct credentials share a key")
	}
	if !strings.HasPrefix(a, "cred:") || len(a) != len("cred:")+64 {
		t.Fatalf("Key() = %q", a)
	}
	if strings.Contains(a, "payload") {
		t.Fatal("Key() leaks the credential")
	}
}
