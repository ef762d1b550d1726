package repository

import (
	"context"
	"errors"
	"time"

	"resurface-backend/internal/domain/relationship"
	appErrors "resurface-backend/pkg/errors"
)

// timeoutPersistence bounds every store call with a deadline. Without it a
// stalled store call stalls pending-update resolution indefinitely.
type timeoutPersistence struct {
	inner   RelationshipPersistence
	timeout time.Duration
}

// NewTimeoutPersistence decorates a RelationshipPersistence so each call
// fails with an UNAVAILABLE error after the given timeout.
func NewTimeoutPersistence(inner RelationshipPersistence, timeout time.Duration) RelationshipPersistence {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &timeoutPersistence{inner: inner, timeout: timeout}
}

func (t *timeoutPersistence) BulkUpsert(ctx context.Context, rels []*relationship.Relationship) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return translateTimeoutErr(t.inner.BulkUpsert(ctx, rels))
}

func (t *timeoutPersistence) List(ctx context.Context) ([]*relationship.Relationship, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	rels, err := t.inner.List(ctx)
	return rels, translateTimeoutErr(err)
}

func (t *timeoutPersistence) DeleteByContentID(ctx context.Context, contentID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	n, err := t.inner.DeleteByContentID(ctx, contentID)
	return n, translateTimeoutErr(err)
}

func translateTimeoutErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return appErrors.NewUnavailable("relationship store call timed out", err)
	}
	return err
}
