package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Kind names a failure class. Kinds are stable and surface to clients.
type Kind string

const (
	KindInvalidTokenHeader Kind = "InvalidTokenHeader"
	KindUnknownKeyID       Kind = "UnknownKeyID"
	KindInvalidToken       Kind = "InvalidToken"
	KindUnauthorized       Kind = "Unauthorized"
	KindForbidden          Kind = "Forbidden"
)

// Sentinel errors, one per Kind.
var (
	ErrInvalidTokenHeader = errors.New("auth: invalid token header")
	ErrUnknownKeyID       = errors.New("auth: unknown key id")
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrUnauthorized       = errors.New("auth: authentication required")
	ErrForbidden          = errors.New("auth: access denied")
)

// Configuration and registry errors.
var (
	ErrKeyNotFound            = errors.New("auth: signing key not found")
	ErrInvalidKeyMaterial     = errors.New("auth: invalid key material")
	ErrUnsupportedCurve       = errors.New("auth: unsupported curve")
	ErrRegistryNotInitialized = errors.New("auth: key registry not initialized")
	ErrInvalidRequirement     = errors.New("auth: invalid role requirement")
	ErrUnknownOperation       = errors.New("auth: unknown operation")
)

// Sentinel returns the sentinel error for k, or nil for an unknown kind.
func (k Kind) Sentinel() error {
	switch k {
	case KindInvalidTokenHeader:
		return ErrInvalidTokenHeader
	case KindUnknownKeyID:
		return ErrUnknownKeyID
	case KindInvalidToken:
		return ErrInvalidToken
	case KindUnauthorized:
		return ErrUnauthorized
	case KindForbidden:
		return ErrForbidden
	}
	return nil
}

// Error is a classified verification or policy failure.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Path locates where the failure was raised, e.g. "auth.parseToken"
	// or an operation path.
	Path string

	// Value is a JSON document with failure details. It never contains
	// the credential itself.
	Value string

	// Cause is the underlying error if any.
	Cause error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("auth: %s", e.Kind)
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the cause error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel of e's Kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.Sentinel()
	return s != nil && target == s
}

// Record converts e to its accumulated form.
func (e *Error) Record() ErrorRecord {
	return ErrorRecord{Path: e.Path, Name: string(e.Kind), Value: e.Value}
}

func newError(kind Kind, path string, value map[string]any, cause error) *Error {
	e := &Error{Kind: kind, Path: path, Cause: cause}
	if len(value) > 0 {
		// map[string]any of strings never fails to encode.
		b, _ := json.Marshal(value)
		e.Value = string(b)
	}
	return e
}

// KindOf returns the Kind carried by err.
func KindOf(err error) (Kind, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	for _, k := range []Kind{KindInvalidTokenHeader, KindUnknownKeyID, KindInvalidToken, KindUnauthorized, KindForbidden} {
		if errors.Is(err, k.Sentinel()) {
			return k, true
		}
	}
	return "", false
}

// ErrorRecord is one accumulated failure as exposed to diagnostic consumers.
type ErrorRecord struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// FailureSink decides what a failure does to the caller. Fail returns the
// error to propagate, or nil to continue without an identity.
type FailureSink interface {
	Fail(ctx context.Context, err *Error) error
}

type raiseSink struct{}

func (raiseSink) Fail(_ context.Context, err *Error) error { return err }

// Raise propagates every failure to the caller.
var Raise FailureSink = raiseSink{}

// ErrorList accumulates failures for one request. The zero value is ready
// to use and it is safe for concurrent use.
type ErrorList struct {
	mu      sync.Mutex
	records []ErrorRecord
}

// Fail appends err and swallows it.
func (l *ErrorList) Fail(_ context.Context, err *Error) error {
	l.Append(err.Record())
	return nil
}

// Append adds a record.
func (l *ErrorList) Append(r ErrorRecord) {
	l.mu.Lock()
	l.records = append(l.records, r)
	l.mu.Unlock()
}

// Records returns a copy of the accumulated records in append order.
func (l *ErrorList) Records() []ErrorRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ErrorRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records.
func (l *ErrorList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

var (
	_ FailureSink = raiseSink{}
	_ FailureSink = (*ErrorList)(nil)
)
