package auth_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/gqlguard/auth"
)

func ExamplePolicy_Evaluate() {
	p := auth.MustPolicy("movie.read", "!banned")

	reader := &auth.Identity{Subject: "u1", Permissions: []string{"movie.read"}}
	banned := &auth.Identity{Subject: "u2", Permissions: []string{"movie.read", "banned"}}

	ok, err := p.Evaluate(reader)
	fmt.Println(ok, err)

	_, err = p.Evaluate(banned)
	fmt.Println(errors.Is(err, auth.ErrForbidden))

	_, err = p.Evaluate(nil)
	fmt.Println(errors.Is(err, auth.ErrUnauthorized))
	// Output:
	// true <nil>
	// true
	// true
}

func ExampleVerifier_Verify() {
	priv, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	der, _ := x509.MarshalECPrivateKey(priv)
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})

	keys, err := auth.NewKeyRegistry(auth.RegistryConfig{
		Keys: map[string]auth.KeyConfig{"common": {PrivateKeyPEM: string(privPEM)}},
	})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	ctx := context.Background()
	if err := keys.Initialize(ctx); err != nil {
		fmt.Println("Error:", err)
		return
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodES256, auth.Claims{
		Permissions: []string{"x"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	tok.Header["kid"] = "common"
	signed, _ := tok.SignedString(priv)

	v := auth.NewVerifier(keys, auth.VerifierConfig{})
	id, err := v.Verify(ctx, signed, auth.Raise)
	fmt.Println(id.Subject, id.Permissions, err)

	var errs auth.ErrorList
	id, err = v.Verify(ctx, "not-a-token", &errs)
	fmt.Println(id, err, errs.Records()[0].Name)
	// Output:
	// u1 [x] <nil>
	// <nil> <nil> InvalidTokenHeader
}
