package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestError_Message(t *testing.T) {
	plain := New(ErrKindInvalidInput, "username already exists")
	if got := plain.Error(); got != "[invalid_input] username already exists" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := Wrap(ErrKindUpstream, "completion failed", errors.New("status 502"))
	if got := wrapped.Error(); got != "[upstream] completion failed: status 502" {
		t.Errorf("Error() = %q", got)
	}
}

func TestKindOf_ThroughWrapping(t *testing.T) {
	base := Wrap(ErrKindTimeout, "query timed out", context.DeadlineExceeded)
	outer := fmt.Errorf("executing batch 2: %w", base)

	if !IsTimeout(outer) {
		t.Error("IsTimeout should see through fmt.Errorf wrapping")
	}
	if !errors.Is(outer, context.DeadlineExceeded) {
		t.Error("errors.Is should reach the original cause")
	}
	if IsQueryFailed(outer) {
		t.Error("IsQueryFailed should be false for a timeout")
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		kind ErrKind
		pred func(error) bool
	}{
		{ErrKindNotFound, IsNotFound},
		{ErrKindConnectionFailed, IsConnectionFailed},
		{ErrKindQueryFailed, IsQueryFailed},
		{ErrKindInvalidInput, IsInvalidInput},
		{ErrKindInvalidState, IsInvalidState},
		{ErrKindUpstream, IsUpstream},
		{ErrKindPersistence, IsPersistence},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if !tt.pred(New(tt.kind, "x")) {
				t.Errorf("predicate for %s returned false", tt.kind)
			}
			if tt.pred(errors.New("plain")) {
				t.Errorf("predicate for %s matched a plain error", tt.kind)
			}
		})
	}
}

func TestKindOf_Nil(t *testing.T) {
	if KindOf(nil) != ErrKindUnknown {
		t.Error("KindOf(nil) should be unknown")
	}
}
