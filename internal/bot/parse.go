package bot

import (
	"unicode/utf8"

	"weatherbot/internal/region"
)

// ScopeArgKind classifies the region argument of a subscribe command.
type ScopeArgKind int

// Argument classes.
const (
	ScopeArgInvalid ScopeArgKind = iota
	ScopeArgProvince
	ScopeArgLocation
	ScopeArgNationwide
)

// ScopeArg is a parsed region argument. Value holds the bare province name
// for provinces, the untouched full string for locations, and the
// nationwide sentinel for nationwide subscriptions.
type ScopeArg struct {
	Kind  ScopeArgKind
	Value string
}

// ParseScope classifies a region argument. A bare or suffixed province
// name ("广东", "广东省") is a province scope; anything longer that starts
// with a known province reads as a full 省市区 location; "全国" is the
// nationwide scope.
func ParseScope(arg string) ScopeArg {
	if arg == region.Nationwide {
		return ScopeArg{Kind: ScopeArgNationwide, Value: region.Nationwide}
	}

	if bare := region.TrimSuffix(arg); region.IsProvince(bare) {
		return ScopeArg{Kind: ScopeArgProvince, Value: bare}
	}
	if region.IsProvince(arg) {
		return ScopeArg{Kind: ScopeArgProvince, Value: arg}
	}

	if utf8.RuneCountInString(arg) >= 4 && region.IsProvince(region.LeadingProvince(arg)) {
		return ScopeArg{Kind: ScopeArgLocation, Value: arg}
	}

	return ScopeArg{Kind: ScopeArgInvalid, Value: arg}
}
