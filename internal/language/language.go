package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// spelledNames covers the spelled-out English names users commonly put in a
// config file. Codes and regional tags go through x/text parsing instead.
var spelledNames = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
}

// ToISO2 converts a language code, regional tag, or spelled-out English name
// to its ISO 639-1 two-letter code. Returns empty string for unrecognized
// input and for empty input, which downstream tools treat as automatic
// detection.
func ToISO2(value string) string {
	tag, ok := parse(value)
	if !ok {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return ""
	}
	code := base.String()
	if len(code) != 2 {
		return ""
	}
	return code
}

// DisplayName returns a human-readable English name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased input when the value
// cannot be resolved.
func DisplayName(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "Unknown"
	}
	tag, ok := parse(trimmed)
	if !ok {
		return strings.ToUpper(trimmed)
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(trimmed)
}

func parse(value string) (language.Tag, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return language.Und, false
	}
	if code, ok := spelledNames[strings.ToLower(trimmed)]; ok {
		trimmed = code
	}
	tag, err := language.Parse(trimmed)
	if err != nil || tag.IsRoot() {
		return language.Und, false
	}
	return tag, true
}
