package auth

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/textproto"
	"strings"
)

const (
	// DefaultCustomHeader carries the credential ahead of Authorization.
	DefaultCustomHeader = "X-Access-Token"

	// AuthorizationHeader is the standard bearer header.
	AuthorizationHeader = "Authorization"

	// BearerPrefix is stripped from extracted credentials.
	BearerPrefix = "Bearer "
)

// AuthRequest is the credential-bearing input. HTTP callers set Headers;
// other callers set Raw.
type AuthRequest struct {
	// Headers contains request headers. When non-nil, Raw is ignored.
	Headers map[string][]string

	// Raw is the credential for non-HTTP callers.
	Raw string

	// CustomHeader overrides DefaultCustomHeader.
	CustomHeader string
}

// GetHeader returns the first value for key. The exact key is tried first,
// then its canonical form, then a case-insensitive match.
func (r *AuthRequest) GetHeader(key string) string {
	if r == nil || r.Headers == nil {
		return ""
	}
	if v := first(r.Headers[key]); v != "" {
		return v
	}
	if v := first(r.Headers[textproto.CanonicalMIMEHeaderKey(key)]); v != "" {
		return v
	}
	for k, vs := range r.Headers {
		if strings.EqualFold(k, key) {
			return first(vs)
		}
	}
	return ""
}

func first(vs []string) string {
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// ExtractCredential returns the credential carried by req, or "" for an
// anonymous caller. With headers, the custom header takes precedence over
// Authorization; without headers, Raw is the credential.
func ExtractCredential(req *AuthRequest) string {
	if req == nil {
		return ""
	}
	if req.Headers == nil {
		return StripScheme(req.Raw)
	}
	custom := req.CustomHeader
	if custom == "" {
		custom = DefaultCustomHeader
	}
	token := req.GetHeader(custom)
	if token == "" {
		token = req.GetHeader(AuthorizationHeader)
	}
	return StripScheme(token)
}

// StripScheme removes a leading "Bearer " and surrounding whitespace.
func StripScheme(s string) string {
	s, _ = strings.CutPrefix(s, BearerPrefix)
	return strings.TrimSpace(s)
}

// TokenHeader is the unprotected first segment of a credential. It is
// used only to select a verification key.
type TokenHeader struct {
	KeyID     string `json:"kid"`
	Algorithm string `json:"alg"`
	Type      string `json:"typ,omitempty"`
}

// ParseHeader decodes the first segment of token. Any decode or parse
// failure wraps ErrInvalidTokenHeader.
func ParseHeader(token string) (TokenHeader, error) {
	var h TokenHeader
	seg, _, _ := strings.Cut(token, ".")
	if seg == "" {
		return h, fmt.Errorf("%w: empty header segment", ErrInvalidTokenHeader)
	}
	raw, err := decodeSegment(seg)
	if err != nil {
		return h, fmt.Errorf("%w: %v", ErrInvalidTokenHeader, err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return h, fmt.Errorf("%w: header is not a JSON object", ErrInvalidTokenHeader)
	}
	if err := json.Unmarshal(raw, &h); err != nil {
		return h, fmt.Errorf("%w: %v", ErrInvalidTokenHeader, err)
	}
	return h, nil
}

// decodeSegment accepts base64url and standard base64, padded or not.
func decodeSegment(seg string) ([]byte, error) {
	seg = strings.TrimRight(seg, "=")
	if b, err := base64.RawURLEncoding.DecodeString(seg); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(seg)
}
