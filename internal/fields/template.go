// Package fields classifies cleaned document text and pulls structured fields
// out of it with per-type rule templates.
package fields

import "regexp"

// DocumentType labels the recognized document category.
type DocumentType string

const (
	TypeIdentityCard DocumentType = "identity_card"
	TypeGeneric      DocumentType = "generic_document"
	TypeUnclassified DocumentType = "unclassified"
)

// Rule extracts one named field with a single regular expression. The value is
// the first capture group, trimmed.
type Rule struct {
	Field   string
	Pattern *regexp.Regexp
}

// Template bundles the rules and the JSON schema for one document type.
type Template struct {
	Type   DocumentType
	Rules  []Rule
	Schema map[string]any
}

var identityTemplate = Template{
	Type: TypeIdentityCard,
	Rules: []Rule{
		{"id_number", regexp.MustCompile(`(?i)(?:số|so|s[ốo]\s*CCCD|No\.?)\s*[:.]?\s*(\d{12})\b`)},
		{"full_name", regexp.MustCompile(`(?i)Họ và tên\s*[:.]?\s*([^\n]+)`)},
		{"date_of_birth", regexp.MustCompile(`(?i)Ngày sinh\s*[:.]?\s*(\d{1,2}/\d{1,2}/\d{4})`)},
		{"gender", regexp.MustCompile(`(?i)Giới tính\s*[:.]?\s*(Nam|Nữ)`)},
		{"nationality", regexp.MustCompile(`(?i)Quốc tịch\s*[:.]?\s*([^\n]+)`)},
		{"place_of_origin", regexp.MustCompile(`(?i)Quê quán\s*[:.]?\s*([^\n]+)`)},
		{"place_of_residence", regexp.MustCompile(`(?i)Nơi thường trú\s*[:.]?\s*([^\n]+)`)},
		{"issue_date", regexp.MustCompile(`(?i)Ngày cấp\s*[:.]?\s*(\d{1,2}/\d{1,2}/\d{4})`)},
		{"expiry_date", regexp.MustCompile(`(?i)Có giá trị đến\s*[:.]?\s*(\d{1,2}/\d{1,2}/\d{4})`)},
	},
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id_number":          map[string]any{"type": "string", "pattern": `^\d{12}$`},
			"full_name":          map[string]any{"type": "string", "minLength": 1},
			"date_of_birth":      map[string]any{"type": "string"},
			"gender":             map[string]any{"type": "string", "enum": []any{"Nam", "Nữ"}},
			"nationality":        map[string]any{"type": "string"},
			"place_of_origin":    map[string]any{"type": "string"},
			"place_of_residence": map[string]any{"type": "string"},
			"issue_date":         map[string]any{"type": "string"},
			"expiry_date":        map[string]any{"type": "string"},
		},
		"required":             []any{"id_number", "full_name"},
		"additionalProperties": false,
	},
}

var genericTemplate = Template{
	Type: TypeGeneric,
	Rules: []Rule{
		{"case_number", regexp.MustCompile(`(?i)(?:Số|So)\s*[:.]?\s*(\d+[/-][\p{L}\d/-]+)`)},
		{"date", regexp.MustCompile(`(?i)(ngày\s+\d{1,2}\s+tháng\s+\d{1,2}\s+năm\s+\d{4}|\d{1,2}/\d{1,2}/\d{4})`)},
		{"classification_level", regexp.MustCompile(`(?i)\b(MẬT|TỐI MẬT|TUYỆT MẬT|KHẨN|THƯỢNG KHẨN)\b`)},
	},
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"case_number":          map[string]any{"type": "string"},
			"date":                 map[string]any{"type": "string"},
			"classification_level": map[string]any{"type": "string"},
		},
		"additionalProperties": false,
	},
}

// TemplateFor returns the rule template for a document type; unclassified
// documents have none.
func TemplateFor(t DocumentType) (Template, bool) {
	switch t {
	case TypeIdentityCard:
		return identityTemplate, true
	case TypeGeneric:
		return genericTemplate, true
	default:
		return Template{}, false
	}
}
