package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type testKey struct {
	kid     string
	priv    *ecdsa.PrivateKey
	privPEM string
}

func newTestKey(t testing.TB, kid string) testKey {
	t.Helper()
	return newTestKeyOn(t, kid, elliptic.P256())
}

func newTestKeyOn(t testing.TB, kid string, c elliptic.Curve) testKey {
	t.Helper()
	priv, err := ecdsa.GenerateKey(c, rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	der, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		t.Fatalf("MarshalECPrivateKey: %v", err)
	}
	return testKey{
		kid:     kid,
		priv:    priv,
		privPEM: string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})),
	}
}

func (k testKey) publicPEM(t testing.TB) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&k.priv.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func (k testKey) sign(t testing.TB, c Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodES256, c)
	tok.Header["kid"] = k.kid
	s, err := tok.SignedString(k.priv)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return s
}

func claimsFor(sub string, ttl time.Duration, perms ...string) Claims {
	now := time.Now()
	return Claims{
		Permissions: perms,
		Session:     "7",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func newTestRegistry(t testing.TB, keys ...testKey) *KeyRegistry {
	t.Helper()
	cfg := RegistryConfig{Keys: map[string]KeyConfig{}}
	for _, k := range keys {
		cfg.Keys[k.kid] = KeyConfig{PrivateKeyPEM: k.privPEM}
	}
	r, err := NewKeyRegistry(cfg)
	if err != nil {
		t.Fatalf("NewKeyRegistry: %v", err)
	}
	return r
}
