package constants

import "strings"

// Tesseract-style language codes. Vietnamese is the primary target.
const (
	LangVietnamese = "vie"
	LangEnglish    = "eng"
)

// NormalizeLang maps loose language hints to a supported code.
// Unknown hints fall back to Vietnamese, the system default.
func NormalizeLang(hint string) string {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "eng", "en", "english":
		return LangEnglish
	case "vie", "vi", "vn", "vietnamese", "":
		return LangVietnamese
	default:
		return LangVietnamese
	}
}
