package syncerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapPreservesCauseInChain(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindUpstream, "fetch task", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
	if got := err.Error(); got != fmt.Sprintf("%s: %s: %v", KindUpstream, "fetch task", cause) {
		t.Errorf("unexpected error string: %q", got)
	}
}

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	err := New(KindNotFound, "no such task")
	wrapped := fmt.Errorf("context: %w", err)

	if !Is(wrapped, KindNotFound) {
		t.Error("expected Is to find the Kind through a wrapping fmt.Errorf")
	}
	if Is(wrapped, KindForbidden) {
		t.Error("expected Is to reject a non-matching Kind")
	}
}

func TestKindOfDefaultsToInternalForPlainError(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("expected KindInternal for a plain error, got %s", got)
	}
	if got := KindOf(New(KindValidation, "bad input")); got != KindValidation {
		t.Errorf("expected KindValidation, got %s", got)
	}
}

func TestRetryableClassifiesTransientKinds(t *testing.T) {
	retryable := []Kind{KindUpstream, KindRateLimited, KindTimeout, KindNetwork}
	for _, k := range retryable {
		if !Retryable(New(k, "x")) {
			t.Errorf("expected %s to be retryable", k)
		}
	}

	notRetryable := []Kind{KindValidation, KindNotFound, KindUnauthorized, KindForbidden, KindInternal}
	for _, k := range notRetryable {
		if Retryable(New(k, "x")) {
			t.Errorf("expected %s not to be retryable", k)
		}
	}
}
