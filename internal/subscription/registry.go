// Package subscription maintains the in-memory subscription index mirrored
// from persistent storage.
//
// The registry is the single owner of the index. Writes persist first and
// mutate memory only after the store accepted the row; a crash between the
// two steps leaves the copies inconsistent until the next startup reload,
// which rebuilds the index from scratch.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"weatherbot/internal/model"
	"weatherbot/internal/region"
	"weatherbot/internal/storage"
)

// Registry indexes subscribers by scope key. Province and nationwide
// subscribers live in scopes (keyed by bare province name or the nationwide
// sentinel); location subscribers live in locations (keyed by the full
// 省市区 string).
type Registry struct {
	store storage.Storage
	log   *slog.Logger

	scopes    map[string][]model.Recipient
	locations map[string][]model.Recipient
}

// NewRegistry creates an empty registry over the given store.
func NewRegistry(store storage.Storage, log *slog.Logger) *Registry {
	return &Registry{
		store:     store,
		log:       log,
		scopes:    make(map[string][]model.Recipient),
		locations: make(map[string][]model.Recipient),
	}
}

// Load rebuilds the in-memory index from the store. Called once at startup;
// it is also the recovery path after a crash between persist and mirror.
func (r *Registry) Load(ctx context.Context) error {
	subs, err := r.store.ListSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("load subscriptions: %w", err)
	}

	r.scopes = make(map[string][]model.Recipient)
	r.locations = make(map[string][]model.Recipient)
	for _, sub := range subs {
		if sub.Kind == model.ScopeLocation && sub.FullLocation != "" {
			r.addLocation(sub.FullLocation, sub.Recipient())
		} else {
			r.addScope(sub.Province, sub.Recipient())
		}
	}

	r.log.Info("loaded subscriptions", "count", len(subs))
	return nil
}

// SubscribeProvince registers a province-scope subscription.
func (r *Registry) SubscribeProvince(ctx context.Context, province, groupID, userID string) bool {
	sub := &model.Subscription{
		Province: province,
		GroupID:  groupID,
		UserID:   userID,
		Kind:     model.ScopeProvince,
	}
	if !r.persist(ctx, sub) {
		return false
	}
	r.addScope(province, sub.Recipient())
	r.log.Info("subscribed", "scope", province, "group_id", groupID, "user_id", userID)
	return true
}

// SubscribeLocation registers a location-scope subscription for a full
// 省市区 string. The indexing province is derived from its leading token.
func (r *Registry) SubscribeLocation(ctx context.Context, fullLocation, groupID, userID string) bool {
	sub := &model.Subscription{
		Province:     region.LeadingProvince(fullLocation),
		GroupID:      groupID,
		UserID:       userID,
		Kind:         model.ScopeLocation,
		FullLocation: fullLocation,
	}
	if !r.persist(ctx, sub) {
		return false
	}
	r.addLocation(fullLocation, sub.Recipient())
	r.log.Info("subscribed", "scope", fullLocation, "group_id", groupID, "user_id", userID)
	return true
}

// SubscribeNationwide registers a subscription that matches every alarm.
func (r *Registry) SubscribeNationwide(ctx context.Context, groupID, userID string) bool {
	sub := &model.Subscription{
		Province: region.Nationwide,
		GroupID:  groupID,
		UserID:   userID,
		Kind:     model.ScopeNationwide,
	}
	if !r.persist(ctx, sub) {
		return false
	}
	r.addScope(region.Nationwide, sub.Recipient())
	r.log.Info("subscribed", "scope", region.Nationwide, "group_id", groupID, "user_id", userID)
	return true
}

// UnsubscribeProvince removes a province-scope subscription.
func (r *Registry) UnsubscribeProvince(ctx context.Context, province, groupID, userID string) bool {
	sub := model.Subscription{
		Province: province,
		GroupID:  groupID,
		UserID:   userID,
		Kind:     model.ScopeProvince,
	}
	if err := r.store.DeleteSubscription(ctx, sub); err != nil {
		r.log.Error("unsubscribe", "scope", province, "error", err)
		return false
	}
	r.scopes[province] = removeRecipient(r.scopes[province], sub.Recipient())
	if len(r.scopes[province]) == 0 {
		delete(r.scopes, province)
	}
	r.log.Info("unsubscribed", "scope", province, "group_id", groupID, "user_id", userID)
	return true
}

// UnsubscribeLocation removes a location-scope subscription. The match is
// strict on the full string, so sibling districts sharing a province are
// untouched.
func (r *Registry) UnsubscribeLocation(ctx context.Context, fullLocation, groupID, userID string) bool {
	sub := model.Subscription{
		GroupID:      groupID,
		UserID:       userID,
		Kind:         model.ScopeLocation,
		FullLocation: fullLocation,
	}
	if err := r.store.DeleteSubscription(ctx, sub); err != nil {
		r.log.Error("unsubscribe", "scope", fullLocation, "error", err)
		return false
	}
	r.locations[fullLocation] = removeRecipient(r.locations[fullLocation], sub.Recipient())
	if len(r.locations[fullLocation]) == 0 {
		delete(r.locations, fullLocation)
	}
	r.log.Info("unsubscribed", "scope", fullLocation, "group_id", groupID, "user_id", userID)
	return true
}

// UnsubscribeNationwide removes a nationwide subscription.
func (r *Registry) UnsubscribeNationwide(ctx context.Context, groupID, userID string) bool {
	sub := model.Subscription{
		Province: region.Nationwide,
		GroupID:  groupID,
		UserID:   userID,
		Kind:     model.ScopeNationwide,
	}
	if err := r.store.DeleteSubscription(ctx, sub); err != nil {
		r.log.Error("unsubscribe", "scope", region.Nationwide, "error", err)
		return false
	}
	r.scopes[region.Nationwide] = removeRecipient(r.scopes[region.Nationwide], sub.Recipient())
	if len(r.scopes[region.Nationwide]) == 0 {
		delete(r.scopes, region.Nationwide)
	}
	r.log.Info("unsubscribed", "scope", region.Nationwide, "group_id", groupID, "user_id", userID)
	return true
}

// ListForUser returns the user's subscriptions straight from the store.
func (r *Registry) ListForUser(ctx context.Context, userID string) ([]model.Subscription, error) {
	return r.store.ListUserSubscriptions(ctx, userID)
}

// ScopeRecipients returns the subscribers indexed under a province name or
// the nationwide sentinel, in registration order.
func (r *Registry) ScopeRecipients(key string) []model.Recipient {
	return r.scopes[key]
}

// LocationKeys returns all full-location keys currently indexed, sorted so
// that match iteration order is deterministic.
func (r *Registry) LocationKeys() []string {
	keys := make([]string, 0, len(r.locations))
	for k := range r.locations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LocationRecipients returns the subscribers indexed under one full
// location string, in registration order.
func (r *Registry) LocationRecipients(key string) []model.Recipient {
	return r.locations[key]
}

func (r *Registry) persist(ctx context.Context, sub *model.Subscription) bool {
	created, err := r.store.CreateSubscription(ctx, sub)
	if err != nil {
		r.log.Error("persist subscription", "scope", sub.Display(), "error", err)
		return false
	}
	if !created {
		r.log.Info("duplicate subscription ignored",
			"scope", sub.Display(), "group_id", sub.GroupID, "user_id", sub.UserID)
		return false
	}
	return true
}

func (r *Registry) addScope(key string, rec model.Recipient) {
	if !containsRecipient(r.scopes[key], rec) {
		r.scopes[key] = append(r.scopes[key], rec)
	}
}

func (r *Registry) addLocation(key string, rec model.Recipient) {
	if !containsRecipient(r.locations[key], rec) {
		r.locations[key] = append(r.locations[key], rec)
	}
}

func containsRecipient(list []model.Recipient, rec model.Recipient) bool {
	for _, r := range list {
		if r == rec {
			return true
		}
	}
	return false
}

func removeRecipient(list []model.Recipient, rec model.Recipient) []model.Recipient {
	var out []model.Recipient
	for _, r := range list {
		if r != rec {
			out = append(out, r)
		}
	}
	return out
}
