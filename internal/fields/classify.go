package fields

import (
	"strings"
	"unicode"
)

var identityMarkers = []string{
	"CĂN CƯỚC CÔNG DÂN",
	"GIẤY CHỨNG MINH NHÂN DÂN",
	"CHỨNG MINH NHÂN DÂN",
	"CAN CUOC CONG DAN",
}

var genericMarkers = []string{
	"CỘNG HÒA XÃ HỘI CHỦ NGHĨA VIỆT NAM",
	"CONG HOA XA HOI CHU NGHIA VIET NAM",
	"QUYẾT ĐỊNH",
	"CÔNG VĂN",
	"BIÊN BẢN",
	"TỜ TRÌNH",
}

// Classify maps text to a document type by marker phrases. Identity markers
// win over generic ones because identity cards also carry the national motto.
func Classify(text string) DocumentType {
	upper := strings.ToUpper(text)
	for _, m := range identityMarkers {
		if strings.Contains(upper, m) {
			return TypeIdentityCard
		}
	}
	for _, m := range genericMarkers {
		if strings.Contains(upper, m) {
			return TypeGeneric
		}
	}
	return TypeUnclassified
}

// DetectLanguage guesses between Vietnamese and English by the presence of
// Vietnamese-specific letters. It is a hint, not an authority.
func DetectLanguage(text string) string {
	for _, r := range text {
		if isVietnameseRune(r) {
			return "vie"
		}
	}
	if text == "" {
		return "vie"
	}
	return "eng"
}

func isVietnameseRune(r rune) bool {
	if r < 128 || !unicode.IsLetter(r) {
		return false
	}
	return strings.ContainsRune("ăâđêôơưàảãạáằẳẵặắầẩẫậấèẻẽẹéềểễệếìỉĩịíòỏõọóồổỗộốờởỡợớùủũụúừửữựứỳỷỹỵý"+
		"ĂÂĐÊÔƠƯÀẢÃẠÁẰẲẴẶẮẦẨẪẬẤÈẺẼẸÉỀỂỄỆẾÌỈĨỊÍÒỎÕỌÓỒỔỖỘỐỜỞỠỢỚÙỦŨỤÚỪỬỮỰỨỲỶỸỴÝ", r)
}
