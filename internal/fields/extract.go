package fields

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// StructuredData is the classification plus extracted key/value pairs for one
// document. Fields is nil for unclassified documents.
type StructuredData struct {
	DocumentType DocumentType      `json:"document_type"`
	Language     string            `json:"language"`
	Fields       map[string]string `json:"fields,omitempty"`
	Valid        bool              `json:"valid"`
}

// Extractor applies the rule template matching a document's classification.
type Extractor struct {
	logger *slog.Logger

	mu       sync.Mutex
	compiled map[DocumentType]*jsonschema.Schema
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger, compiled: make(map[DocumentType]*jsonschema.Schema)}
}

// Extract classifies the text and applies the matching template. It never
// fails: schema validation problems only clear the Valid flag.
func (e *Extractor) Extract(text string) StructuredData {
	docType := Classify(text)
	out := StructuredData{
		DocumentType: docType,
		Language:     DetectLanguage(text),
	}

	tmpl, ok := TemplateFor(docType)
	if !ok {
		e.logger.Info("fields.unclassified", "chars", len(text))
		return out
	}

	values := make(map[string]string)
	for _, rule := range tmpl.Rules {
		m := rule.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v := strings.TrimSpace(m[1])
		if v != "" {
			values[rule.Field] = v
		}
	}
	if len(values) > 0 {
		out.Fields = values
	}

	if err := e.validate(tmpl, values); err != nil {
		e.logger.Warn("fields.schema_invalid", "doc_type", docType, "error", err)
	} else {
		out.Valid = true
	}
	e.logger.Info("fields.extracted", "doc_type", docType,
		"fields", len(values), "valid", out.Valid)
	return out
}

func (e *Extractor) validate(tmpl Template, values map[string]string) error {
	schema, err := e.schemaFor(tmpl)
	if err != nil {
		return err
	}
	// round-trip through JSON so the validator sees plain types
	b, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("unmarshal fields: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("fields do not match schema: %w", err)
	}
	return nil
}

// schemaFor compiles each template's schema once and caches it.
func (e *Extractor) schemaFor(tmpl Template) (*jsonschema.Schema, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.compiled[tmpl.Type]; ok {
		return s, nil
	}
	b, err := json.Marshal(tmpl.Schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	e.compiled[tmpl.Type] = schema
	return schema, nil
}
