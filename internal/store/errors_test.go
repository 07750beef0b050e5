package store

import (
	"context"
	"errors"
	"testing"
)

func TestClassifyConflictsArePermanent(t *testing.T) {
	for _, err := range []error{ErrNotFound, ErrAlreadyClaimed, ErrNotAssignee, ErrInvalidTransition} {
		if Classify(err) != ClassPermanent {
			t.Errorf("Classify(%v) = transient, want permanent", err)
		}
	}
}

func TestWithRetryReturnsPermanentImmediately(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return ErrAlreadyClaimed
	})
	if !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("err = %v, want ErrAlreadyClaimed", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry for permanent errors)", calls)
	}
}

func TestWithRetrySucceeds(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
