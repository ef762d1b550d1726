package repository

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"resurface-backend/internal/domain/relationship"
	appErrors "resurface-backend/pkg/errors"
)

// BreakerConfig holds circuit breaker tuning for the persistence boundary.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns conservative defaults: the breaker only trips
// after a sustained failure rate, since a dropped write already loses work.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// breakerPersistence wraps RelationshipPersistence with a circuit breaker so
// a failing store degrades to fast UNAVAILABLE errors instead of stalling
// every pending update.
type breakerPersistence struct {
	inner RelationshipPersistence
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerPersistence decorates a RelationshipPersistence with a circuit
// breaker built from the given configuration.
func NewBreakerPersistence(inner RelationshipPersistence, cfg BreakerConfig, logger *zap.Logger) RelationshipPersistence {
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("persistence circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &breakerPersistence{inner: inner, cb: cb}
}

func (b *breakerPersistence) BulkUpsert(ctx context.Context, rels []*relationship.Relationship) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.inner.BulkUpsert(ctx, rels)
	})
	return translateBreakerErr(err)
}

func (b *breakerPersistence) List(ctx context.Context) ([]*relationship.Relationship, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.List(ctx)
	})
	if err != nil {
		return nil, translateBreakerErr(err)
	}
	return result.([]*relationship.Relationship), nil
}

func (b *breakerPersistence) DeleteByContentID(ctx context.Context, contentID string) (int, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.DeleteByContentID(ctx, contentID)
	})
	if err != nil {
		return 0, translateBreakerErr(err)
	}
	return result.(int), nil
}

func translateBreakerErr(err error) error {
	switch err {
	case nil:
		return nil
	case gobreaker.ErrOpenState, gobreaker.ErrTooManyRequests:
		return appErrors.NewUnavailable("relationship store circuit open", err)
	default:
		return err
	}
}
