// Package region holds the fixed table of Chinese province-level divisions
// and the text helpers built on it: scanning alarm titles for province
// names and deriving the indexing province from a full 省市区 string.
package region

import "strings"

// Nationwide is the sentinel scope key for subscribers who want every alarm.
const Nationwide = "全国"

// Provinces lists all province-level divisions by their bare name, without
// administrative suffixes. Order is fixed; matching iterates it as-is.
var Provinces = []string{
	"北京", "天津", "上海", "重庆",
	"河北", "山西", "辽宁", "吉林", "黑龙江",
	"江苏", "浙江", "安徽", "福建", "江西", "山东",
	"河南", "湖北", "湖南", "广东", "海南",
	"四川", "贵州", "云南", "陕西", "甘肃", "青海",
	"内蒙古", "广西", "西藏", "宁夏", "新疆",
	"香港", "澳门", "台湾",
}

// suffixes are the administrative suffixes that may follow a province name
// in a full location string, longest first.
var suffixes = []string{
	"维吾尔自治区", "壮族自治区", "回族自治区",
	"特别行政区", "自治区", "省", "市",
}

// IsProvince reports whether name is a bare province name from the table.
func IsProvince(name string) bool {
	for _, p := range Provinces {
		if p == name {
			return true
		}
	}
	return false
}

// ExtractProvinces returns every province whose name occurs as a substring
// of the alarm title, in table order. Titles are free text, so plain
// containment is used rather than any structured parsing.
func ExtractProvinces(title string) []string {
	var found []string
	for _, p := range Provinces {
		if strings.Contains(title, p) {
			found = append(found, p)
		}
	}
	return found
}

// LeadingProvince derives the indexing province from a full location string
// such as "广东省广州市天河区" or "内蒙古呼和浩特市". The longest matching
// province name wins, and an administrative suffix directly after it is
// tolerated. When nothing from the table matches, the first two runes are
// returned so that odd inputs still land in a deterministic bucket.
func LeadingProvince(fullLocation string) string {
	best := ""
	for _, p := range Provinces {
		if strings.HasPrefix(fullLocation, p) && len(p) > len(best) {
			best = p
		}
	}
	if best != "" {
		return best
	}
	runes := []rune(fullLocation)
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return string(runes)
}

// TrimSuffix removes one trailing administrative suffix from a region
// token, e.g. "广东省" -> "广东". Unrecognised tokens pass through.
func TrimSuffix(token string) string {
	for _, suf := range suffixes {
		if rest, ok := strings.CutSuffix(token, suf); ok && rest != "" {
			return rest
		}
	}
	return token
}
