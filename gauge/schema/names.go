package schema

import "strings"

// separators tolerated between the segments of a tool name. Models are
// inconsistent about which one they emit, so comparisons ignore all of them.
const nameSeparators = "-_."

// NormalizeToolName lowercases a tool name and strips every separator
// character, producing the canonical form used for comparisons.
func NormalizeToolName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if strings.ContainsRune(nameSeparators, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// CompareToolNames reports whether two tool names identify the same logical
// tool once separator and case differences are ignored.
// "Search.SearchGoogle" and "Search_SearchGoogle" compare equal, as do
// "search-google" and "SearchGoogle".
func CompareToolNames(expected, actual string) bool {
	return NormalizeToolName(expected) == NormalizeToolName(actual)
}
