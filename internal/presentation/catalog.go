package presentation

import (
	_ "embed"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Character caps for SHORT-mode output. Cut text is just cut; no ellipsis is
// ever appended.
const (
	maxTitleLen = 70
	maxFixLen   = 120
)

//go:embed catalog.yaml
var catalogYAML []byte

type catalogEntry struct {
	Title string `yaml:"title"`
	Fix   string `yaml:"fix"`
}

var loadCatalog = sync.OnceValue(func() map[string]catalogEntry {
	var entries map[string]catalogEntry
	if err := yaml.Unmarshal(catalogYAML, &entries); err != nil {
		zap.L().Error("presentation: embedded catalog unreadable", zap.Error(err))
		return map[string]catalogEntry{}
	}
	return entries
})

// Title returns the curated SHORT-mode title for a rule, or derives one from
// the full summary.
func Title(id, fallbackSummary string) string {
	if entry, ok := loadCatalog()[id]; ok && entry.Title != "" {
		return entry.Title
	}
	return deriveSegment(fallbackSummary, maxTitleLen,
		[]string{". ", "; ", " - ", ": ", "\n"}, "Validation error")
}

// ShortFix returns the curated SHORT-mode fix for a rule, or derives one
// from the full fix text.
func ShortFix(id, fallbackFix string) string {
	if entry, ok := loadCatalog()[id]; ok && entry.Fix != "" {
		return entry.Fix
	}
	return deriveSegment(fallbackFix, maxFixLen,
		[]string{". ", "; ", "\n"}, "Review and correct according to Peppol BIS 3.0 specification.")
}

// deriveSegment normalizes whitespace, splits on the earliest delimiter,
// and hard-cuts at a word boundary to the cap. No ellipsis.
func deriveSegment(text string, cap int, delimiters []string, empty string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return empty
	}

	segment := normalized
	best := -1
	for _, delim := range delimiters {
		if idx := strings.Index(normalized, delim); idx >= 0 && (best < 0 || idx < best) {
			best = idx
		}
	}
	if best >= 0 {
		segment = normalized[:best]
	}

	if len(segment) > cap {
		cut := segment[:cap]
		if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
			cut = cut[:idx]
		}
		segment = cut
	}

	return strings.TrimSpace(segment)
}
