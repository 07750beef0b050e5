package store

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned by conditional writes whose target row is gone.
	// Plain reads keep the (nil, nil) convention for absent rows.
	ErrNotFound = errors.New("store: not found")

	// ErrAlreadyClaimed is the claim-race loser's error: the task left todo
	// between the actor's read and their conditional claim.
	ErrAlreadyClaimed = errors.New("store: task already claimed")

	// ErrNotAssignee is returned when a complete/cancel is attempted by an
	// identity that does not hold the task.
	ErrNotAssignee = errors.New("store: not the assignee")

	// ErrInvalidTransition is returned for state-machine violations such as
	// completing a todo task or re-claiming a done one.
	ErrInvalidTransition = errors.New("store: invalid status transition")
)

// Class partitions storage errors for retry policy. Classification is by
// error type and SQLite result code, never by message content.
type Class int

const (
	ClassPermanent Class = iota
	ClassTransient
)

// Classify reports whether an error is worth retrying. Lock contention
// (SQLITE_BUSY/SQLITE_LOCKED) is transient; everything else, including the
// typed conflict errors above, is permanent.
func Classify(err error) Class {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return ClassTransient
		}
	}
	return ClassPermanent
}

// WithRetry runs fn, retrying transient storage errors a few times with a
// constant backoff. Permanent errors are returned immediately.
func WithRetry(ctx context.Context, fn func() error) error {
	b := retry.WithMaxRetries(3, retry.NewConstant(50*time.Millisecond))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn()
		if err != nil && Classify(err) == ClassTransient {
			return retry.RetryableError(err)
		}
		return err
	})
}
