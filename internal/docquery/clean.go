package docquery

import "regexp"

var (
	nsURIPredicate = regexp.MustCompile(`\[namespace-uri\(\)=[^\]]+\]`)
	wildcardPrefix = regexp.MustCompile(`/\*:`)
	knownPrefixes  = regexp.MustCompile(`/(cbc|cac|ubl|qdt|ccts):`)
)

// CleanLocation strips namespace machinery from an engine-reported location
// expression so it reads as a plain element path.
//
//	/*:Invoice[namespace-uri()='...']/cbc:ID[1] -> /Invoice/ID[1]
func CleanLocation(location string) string {
	if location == "" {
		return location
	}
	cleaned := nsURIPredicate.ReplaceAllString(location, "")
	cleaned = wildcardPrefix.ReplaceAllString(cleaned, "/")
	cleaned = knownPrefixes.ReplaceAllString(cleaned, "/")
	return cleaned
}
