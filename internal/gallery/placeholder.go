package gallery

import "strings"

const (
	placeholderPrefix = "placeholder-"
	placeholderSuffix = "-processing"
)

// PlaceholderURL builds the transient marker URL for an in-flight upload.
//
// Example:
//
//	PlaceholderURL("42") // "placeholder-42-processing"
func PlaceholderURL(id string) string {
	return placeholderPrefix + id + placeholderSuffix
}

// IsPlaceholder reports whether url is a transient upload marker.
//
// A marker starts with "placeholder-" and contains "-processing". The
// suffix is matched as a substring, not a strict suffix, so markers that
// grew trailing data (e.g. a cache-buster) are still detected.
func IsPlaceholder(url string) bool {
	return strings.HasPrefix(url, placeholderPrefix) &&
		strings.Contains(url, placeholderSuffix)
}

// StripPlaceholders returns urls with empty entries and placeholder
// markers removed, preserving the relative order of survivors.
//
// The function is idempotent: stripping an already-stripped list returns
// an equal list.
func StripPlaceholders(urls []string) []string {
	cleaned := make([]string, 0, len(urls))
	for _, url := range urls {
		if url == "" || IsPlaceholder(url) {
			continue
		}
		cleaned = append(cleaned, url)
	}
	return cleaned
}

// HasPlaceholders reports whether any entry in urls is a placeholder
// marker.
func HasPlaceholders(urls []string) bool {
	for _, url := range urls {
		if IsPlaceholder(url) {
			return true
		}
	}
	return false
}
