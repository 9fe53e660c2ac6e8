// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"

	"weatherbot/internal/model"
)

// Storage is the interface for all persistence operations.
type Storage interface {
	// CreateSubscription inserts a subscription row. It returns false when
	// an identical scope is already registered (soft failure, not an error).
	CreateSubscription(ctx context.Context, sub *model.Subscription) (bool, error)
	// DeleteSubscription removes a subscription row. Location scopes are
	// matched strictly on the full location string.
	DeleteSubscription(ctx context.Context, sub model.Subscription) error
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
	ListUserSubscriptions(ctx context.Context, userID string) ([]model.Subscription, error)

	MarkConsumed(ctx context.Context, alertID, title, issueTime string) error
	IsConsumed(ctx context.Context, alertID string) (bool, error)

	Close() error
}
