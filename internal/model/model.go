// Package model defines the domain types used across the application.
package model

import "time"

// ScopeKind defines the geographic granularity of a subscription.
type ScopeKind string

// Supported scope kinds, stored in the location_type column.
const (
	ScopeProvince   ScopeKind = "province"
	ScopeLocation   ScopeKind = "location"
	ScopeNationwide ScopeKind = "nationwide"
)

// Recipient identifies one delivery target: a user mentioned in a group.
type Recipient struct {
	GroupID string
	UserID  string
}

// Subscription represents one recipient's interest in alarms for a
// geographic scope. Province holds the indexing key; for location scopes
// FullLocation keeps the complete 省市区 string the user registered.
type Subscription struct {
	ID           int64
	Province     string
	GroupID      string
	UserID       string
	Kind         ScopeKind
	FullLocation string
	CreatedAt    time.Time
}

// Recipient returns the delivery target of the subscription.
func (s Subscription) Recipient() Recipient {
	return Recipient{GroupID: s.GroupID, UserID: s.UserID}
}

// Display returns the value shown back to the user: the full location
// string when one exists, otherwise the province (or nationwide sentinel).
func (s Subscription) Display() string {
	if s.Kind == ScopeLocation && s.FullLocation != "" {
		return s.FullLocation
	}
	return s.Province
}

// Alarm is one upstream weather-warning event. Immutable once fetched.
type Alarm struct {
	AlertID   string
	Title     string
	IssueTime string
	URL       string
	Pic       string
}

// AlarmDetail holds the scraped content of an alarm's detail page.
type AlarmDetail struct {
	Title   string
	Content string
}
