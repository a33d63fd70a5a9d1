package normalize

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^\s*[_\-]{3,}\s*$`)

	// DD.MM.YYYY / DD-MM-YYYY -> DD/MM/YYYY
	reDateSep = regexp.MustCompile(`(\d{1,2})[.\-](\d{1,2})[.\-](\d{4})`)
	// Vietnamese citizen IDs are 12 digits; OCR tends to split them
	reSplitID = regexp.MustCompile(`\b(\d{3})\s+(\d{3})\s+(\d{3})\s+(\d{3})\b`)
)

// phraseFixes maps diacritic-stripped OCR output of well-known phrases on
// Vietnamese administrative documents back to their canonical forms. Matching
// is case-insensitive on the garbled side.
var phraseFixes = []struct {
	garbled   string
	canonical string
}{
	// government headers
	{"CONG HOA XA HOI CHU NGHIA VIET NAM", "CỘNG HÒA XÃ HỘI CHỦ NGHĨA VIỆT NAM"},
	{"Doc lap - Tu do - Hanh phuc", "Độc lập - Tự do - Hạnh phúc"},
	{"Doc lap Tu do Hanh phuc", "Độc lập - Tự do - Hạnh phúc"},
	{"CAN CUOC CONG DAN", "CĂN CƯỚC CÔNG DÂN"},
	{"GIAY CHUNG MINH NHAN DAN", "GIẤY CHỨNG MINH NHÂN DÂN"},

	// identity-card field labels
	{"Ho va ten", "Họ và tên"},
	{"Ngay sinh", "Ngày sinh"},
	{"Gioi tinh", "Giới tính"},
	{"Quoc tich", "Quốc tịch"},
	{"Que quan", "Quê quán"},
	{"Noi thuong tru", "Nơi thường trú"},
	{"Noi cap", "Nơi cấp"},
	{"Ngay cap", "Ngày cấp"},
	{"Co gia tri den", "Có giá trị đến"},

	// frequent place names
	{"Ha Noi", "Hà Nội"},
	{"Ho Chi Minh", "Hồ Chí Minh"},
	{"Da Nang", "Đà Nẵng"},
	{"Hai Phong", "Hải Phòng"},
	{"Can Tho", "Cần Thơ"},
	{"Nam Tu Liem", "Nam Từ Liêm"},
	{"Cau Giay", "Cầu Giấy"},
	{"Dong Da", "Đống Đa"},
	{"Ba Dinh", "Ba Đình"},
	{"Hoan Kiem", "Hoàn Kiếm"},
}

var phrasePatterns = compilePhrasePatterns()

func compilePhrasePatterns() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(phraseFixes))
	for i, f := range phraseFixes {
		out[i] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(f.garbled))
	}
	return out
}

// CleanLocal applies the deterministic offline correction set: whitespace
// normalization, box-line noise removal, canonical-phrase restoration for
// known Vietnamese document vocabulary, and date/ID-number repair. It has no
// external dependency and therefore cannot fail.
func CleanLocal(text string) (string, []string) {
	if text == "" {
		return text, nil
	}
	var corrections []string

	s := reCRLF.ReplaceAllString(text, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	if cleaned := reBoxNoise.ReplaceAllString(s, ""); cleaned != s {
		s = cleaned
		corrections = append(corrections, "removed box-line noise")
	}

	// trim trailing spaces on lines
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	s = strings.Join(lines, "\n")

	for i, f := range phraseFixes {
		if phrasePatterns[i].MatchString(s) {
			s = phrasePatterns[i].ReplaceAllString(s, f.canonical)
			corrections = append(corrections, fmt.Sprintf("restored %q", f.canonical))
		}
	}

	if fixed := reDateSep.ReplaceAllString(s, "$1/$2/$3"); fixed != s {
		s = fixed
		corrections = append(corrections, "normalized date separators")
	}
	if fixed := reSplitID.ReplaceAllString(s, "$1$2$3$4"); fixed != s {
		s = fixed
		corrections = append(corrections, "joined split ID digits")
	}

	return strings.TrimSpace(s), corrections
}
