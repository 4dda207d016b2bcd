package intelligence

import (
	"sort"
	"strings"
)

// DocumentClassifier performs keyword-based document classification
type DocumentClassifier struct {
	rules       []ClassificationRule
	defaultType DocumentType
}

// NewDocumentClassifier creates a classifier with the default rules. Documents
// matching no rule are classified as P&ID drawings.
func NewDocumentClassifier() *DocumentClassifier {
	return NewDocumentClassifierWithRules(getDefaultClassificationRules())
}

// NewDocumentClassifierWithRules creates a classifier with custom rules,
// evaluated by ascending priority
func NewDocumentClassifierWithRules(rules []ClassificationRule) *DocumentClassifier {
	sorted := make([]ClassificationRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	return &DocumentClassifier{
		rules:       sorted,
		defaultType: DocumentTypePID,
	}
}

// Classify returns the type of the first enabled rule with a keyword present
// in the lowercased text
func (dc *DocumentClassifier) Classify(text string) DocumentType {
	lowered := strings.ToLower(text)
	for _, rule := range dc.rules {
		if !rule.Enabled {
			continue
		}
		for _, kw := range rule.Keywords {
			if strings.Contains(lowered, strings.ToLower(kw)) {
				return rule.DocumentType
			}
		}
	}
	return dc.defaultType
}

// IsDatasheet reports whether the text classifies as an instrumentation datasheet
func (dc *DocumentClassifier) IsDatasheet(text string) bool {
	return dc.Classify(text) == DocumentTypeInstrumentationDatasheet
}
