// Package match implements the geographic matching engine.
//
// Matching is deliberate plain-text containment: alarm titles are free text
// with no reliable structured location field, and province names can appear
// embedded in longer compound titles. The engine is pure over an index
// view, so a structured matcher could replace it without touching the
// scheduler or dispatcher.
package match

import (
	"strings"

	"weatherbot/internal/model"
	"weatherbot/internal/region"
)

// Index is the read-only view of the subscription index the engine needs.
type Index interface {
	// ScopeRecipients returns subscribers under a province name or the
	// nationwide sentinel.
	ScopeRecipients(key string) []model.Recipient
	// LocationKeys returns all full-location keys, in deterministic order.
	LocationKeys() []string
	// LocationRecipients returns subscribers under one full-location key.
	LocationRecipients(key string) []model.Recipient
}

// Recipients returns every subscriber the alarm title matches:
//
//  1. each province whose bare name occurs in the title,
//  2. all nationwide subscribers, unconditionally,
//  3. each full-location key that occurs in the title.
//
// A recipient matching via more than one rule appears once per matching
// rule; this fan-out is intentional and relied on by callers.
func Recipients(idx Index, title string) []model.Recipient {
	var out []model.Recipient

	for _, province := range region.ExtractProvinces(title) {
		out = append(out, idx.ScopeRecipients(province)...)
	}

	out = append(out, idx.ScopeRecipients(region.Nationwide)...)

	for _, key := range idx.LocationKeys() {
		if strings.Contains(title, key) {
			out = append(out, idx.LocationRecipients(key)...)
		}
	}

	return out
}
