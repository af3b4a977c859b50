package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestError_IsSentinel(t *testing.T) {
	cause := errors.New("boom")
	err := newError(KindUnknownKeyID, ParseTokenPath, map[string]any{"kid": "k1"}, cause)

	if !errors.Is(err, ErrUnknownKeyID) {
		t.Fatal("errors.Is(err, ErrUnknownKeyID) = false")
	}
	if errors.Is(err, ErrInvalidToken) {
		t.Fatal("matched a foreign sentinel")
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause not reachable through Unwrap")
	}
	if err.Value != `{"kid":"k1"}` {
		t.Fatalf("Value = %s", err.Value)
	}
	if msg := err.Error(); !strings.Contains(msg, "UnknownKeyID") || !strings.Contains(msg, ParseTokenPath) {
		t.Fatalf("Error() = %q", msg)
	}
}

func TestError_EmptyValue(t *testing.T) {
	err := newError(KindInvalidTokenHeader, ParseTokenPath, nil, nil)
	if err.Value != "" {
		t.Fatalf("Value = %q, want empty", err.Value)
	}
	if got := err.Record(); got != (ErrorRecord{Path: ParseTokenPath, Name: "InvalidTokenHeader"}) {
		t.Fatalf("Record() = %+v", got)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   Kind
		wantOK bool
	}{
		{"typed", newError(KindForbidden, "op", nil, nil), KindForbidden, true},
		{"wrapped typed", fmt.Errorf("resolve: %w", newError(KindInvalidToken, "", nil, nil)), KindInvalidToken, true},
		{"bare sentinel", ErrUnauthorized, KindUnauthorized, true},
		{"wrapped sentinel", fmt.Errorf("x: %w", ErrInvalidTokenHeader), KindInvalidTokenHeader, true},
		{"foreign", errors.New("other"), "", false},
		{"nil", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := KindOf(tt.err)
			if got != tt.want || ok != tt.wantOK {
				t.Fatalf("KindOf() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestKind_Sentinel(t *testing.T) {
	if Kind("Nope").Sentinel() != nil {
		t.Fatal("unknown kind has a sentinel")
	}
	for _, k := range []Kind{KindInvalidTokenHeader, KindUnknownKeyID, KindInvalidToken, KindUnauthorized, KindForbidden} {
		if k.Sentinel() == nil {
			t.Errorf("%s has no sentinel", k)
		}
	}
}

func TestSinks(t *testing.T) {
	ctx := context.Background()
	e := newError(KindInvalidToken, ParseTokenPath, nil, nil)

	if err := Raise.Fail(ctx, e); err != e {
		t.Fatalf("Raise.Fail() = %v", err)
	}

	var l ErrorList
	if err := l.Fail(ctx, e); err != nil {
		t.Fatalf("ErrorList.Fail() = %v", err)
	}
	if l.Len() != 1 || l.Records()[0].Name != "InvalidToken" {
		t.Fatalf("records = %v", l.Records())
	}
}

func TestErrorList_Concurrent(t *testing.T) {
	var l ErrorList
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Append(ErrorRecord{Name: "x"})
		}()
	}
	wg.Wait()
	if l.Len() != 50 {
		t.Fatalf("Len() = %d, want 50", l.Len())
	}
}

func TestResult_Unwrap(t *testing.T) {
	ctx := context.Background()
	e := newError(KindForbidden, "op", nil, nil)

	if _, err := (Result{Err: e}).Unwrap(ctx, nil); err != e {
		t.Fatalf("nil sink should raise, got %v", err)
	}
	var l ErrorList
	if id, err := (Result{Err: e}).Unwrap(ctx, &l); id != nil || err != nil || l.Len() != 1 {
		t.Fatalf("accumulating unwrap = %v, %v, %d records", id, err, l.Len())
	}
	want := &Identity{Subject: "u"}
	if id, err := (Result{Identity: want}).Unwrap(ctx, Raise); id != want || err != nil {
		t.Fatalf("Unwrap() = %v, %v", id, err)
	}
}
