package llm

import (
	"strings"

	"github.com/a3tai/mcp-pid-extractor/internal/intelligence"
)

// DocumentFields is the extracted data of one stored document
type DocumentFields struct {
	Name   string                 `json:"name"`
	Fields *intelligence.FieldMap `json:"fields"`
}

// FindRelevant returns, per document, the fields whose name or value
// contains any word of question. Matching is case-insensitive on
// substrings. Documents without a match are left out; nil means nothing
// matched.
func FindRelevant(docs []DocumentFields, question string) []DocumentFields {
	words := strings.Fields(strings.ToLower(question))
	if len(words) == 0 {
		return nil
	}

	var out []DocumentFields
	for _, doc := range docs {
		if doc.Fields == nil {
			continue
		}
		matched := intelligence.NewFieldMap()
		for _, key := range doc.Fields.Keys() {
			value, _ := doc.Fields.Get(key)
			if containsAny(strings.ToLower(key), words) || containsAny(strings.ToLower(value), words) {
				matched.Set(key, value)
			}
		}
		if matched.Len() > 0 {
			out = append(out, DocumentFields{Name: doc.Name, Fields: matched})
		}
	}
	return out
}

// WantsExtraction reports whether message contains any of keywords
func WantsExtraction(message string, keywords []string) bool {
	return containsAny(strings.ToLower(message), keywords)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
