package translate

import "strings"

var languageCodes = map[string]string{
	"arabic":     "ar",
	"chinese":    "zh",
	"czech":      "cs",
	"dutch":      "nl",
	"english":    "en",
	"french":     "fr",
	"german":     "de",
	"hindi":      "hi",
	"hungarian":  "hu",
	"italian":    "it",
	"japanese":   "ja",
	"korean":     "ko",
	"polish":     "pl",
	"portuguese": "pt",
	"russian":    "ru",
	"spanish":    "es",
	"swedish":    "sv",
	"turkish":    "tr",
}

// LanguageCode maps a language name such as "German" to its ISO 639-1 code.
// Two-letter input is returned lowercased; unknown names report false.
func LanguageCode(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if code, ok := languageCodes[key]; ok {
		return code, true
	}
	if len(key) == 2 {
		return key, true
	}
	return "", false
}
