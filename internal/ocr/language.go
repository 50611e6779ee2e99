package ocr

import "strings"

// DefaultLanguage is the Tesseract language used when none is given.
const DefaultLanguage = "eng"

// bcp47 maps Tesseract language codes to the codes Google APIs expect.
var bcp47 = map[string]string{
	"ara":     "ar",
	"chi_sim": "zh",
	"chi_tra": "zh-Hant",
	"deu":     "de",
	"eng":     "en",
	"fra":     "fr",
	"hin":     "hi",
	"ita":     "it",
	"jpn":     "ja",
	"kor":     "ko",
	"nld":     "nl",
	"pol":     "pl",
	"por":     "pt",
	"rus":     "ru",
	"spa":     "es",
	"tur":     "tr",
}

// SplitLanguages splits a "eng+deu" style hint into its parts.
func SplitLanguages(language string) []string {
	var langs []string
	for _, part := range strings.Split(language, "+") {
		if part = strings.TrimSpace(part); part != "" {
			langs = append(langs, part)
		}
	}
	if len(langs) == 0 {
		return []string{DefaultLanguage}
	}
	return langs
}

// LanguageHints converts a Tesseract language hint into BCP-47 codes.
// Codes without a known mapping are passed through unchanged.
func LanguageHints(language string) []string {
	langs := SplitLanguages(language)
	hints := make([]string, 0, len(langs))
	seen := make(map[string]bool)
	for _, l := range langs {
		hint, ok := bcp47[strings.ToLower(l)]
		if !ok {
			hint = l
		}
		if !seen[hint] {
			seen[hint] = true
			hints = append(hints, hint)
		}
	}
	return hints
}
