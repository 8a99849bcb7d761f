package gallery

// AutoCleanDiffThreshold is the minimum length drift between the cleaned
// media list and the display-name list before an automatic cleanup is
// warranted.
//
// Validity requires an exact length match, but auto-clean tolerates a
// drift of up to two entries. The two tolerances are intentionally
// different: uploads complete asynchronously, so small transient
// mismatches are expected and cleaning on every one of them would thrash.
const AutoCleanDiffThreshold = 3

// IntegrityReport describes how well a media list and its display names
// line up.
type IntegrityReport struct {
	// IsValid is true when the cleaned media list matches the name list
	// exactly and no placeholders remain.
	IsValid bool

	// MediaCount is the raw media list length, placeholders included.
	MediaCount int

	// NameCount is the display-name list length.
	NameCount int

	// HasPlaceholders is true when any media entry is a marker.
	HasPlaceholders bool

	// CleanedCount is the media list length after stripping placeholders
	// and empty entries.
	CleanedCount int

	// NeedsCleanup is true when stripping would change the media list.
	NeedsCleanup bool

	// ShouldAutoClean is true when the drift is severe enough that a
	// destructive cleanup is preferable to waiting it out.
	ShouldAutoClean bool
}

// CheckIntegrity compares a media list against its display names.
//
// The report's IsValid flag uses strict length equality; ShouldAutoClean
// fires only when the cleaned list is empty while names remain, when
// placeholders are present, or when the length drift reaches
// AutoCleanDiffThreshold. See the threshold constant for why the two
// checks differ.
func CheckIntegrity(mediaURLs, displayNames []string) IntegrityReport {
	cleaned := StripPlaceholders(mediaURLs)
	hasPlaceholders := HasPlaceholders(mediaURLs)

	diff := len(cleaned) - len(displayNames)
	if diff < 0 {
		diff = -diff
	}

	return IntegrityReport{
		IsValid:         len(cleaned) == len(displayNames) && !hasPlaceholders,
		MediaCount:      len(mediaURLs),
		NameCount:       len(displayNames),
		HasPlaceholders: hasPlaceholders,
		CleanedCount:    len(cleaned),
		NeedsCleanup:    hasPlaceholders || len(cleaned) != len(mediaURLs),
		ShouldAutoClean: (len(cleaned) == 0 && len(displayNames) > 0) ||
			hasPlaceholders ||
			diff >= AutoCleanDiffThreshold,
	}
}

// CleanupResult is the outcome of RestoreWithCleanup.
type CleanupResult struct {
	CleanedURLs  []string
	CleanedNames []string
	RemovedCount int

	// IsRestored is true when at least one usable entry survived.
	IsRestored bool
}

// RestoreWithCleanup walks the media list, dropping empty entries and
// placeholder markers, and pairs each surviving URL with the next unused
// display name in order.
//
// Names are consumed sequentially rather than by original index, so a
// dropped URL shifts the pairing instead of leaving a hole. Surplus names
// beyond the surviving URL count are discarded.
func RestoreWithCleanup(urls, names []string) CleanupResult {
	result := CleanupResult{
		CleanedURLs:  make([]string, 0, len(urls)),
		CleanedNames: make([]string, 0, len(names)),
	}

	nameIdx := 0
	for _, url := range urls {
		if url == "" || IsPlaceholder(url) {
			result.RemovedCount++
			continue
		}

		result.CleanedURLs = append(result.CleanedURLs, url)
		if nameIdx < len(names) {
			result.CleanedNames = append(result.CleanedNames, names[nameIdx])
			nameIdx++
		}
	}

	result.IsRestored = len(result.CleanedURLs) > 0
	return result
}
