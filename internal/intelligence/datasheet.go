package intelligence

import (
	"strconv"
	"strings"
)

// DatasheetExtractor pulls identity, measurement, revision and valve
// specification fields out of instrumentation datasheets
type DatasheetExtractor struct {
	identity    []compiledRule
	measurement []compiledRule
	valveSpec   []compiledRule
}

// NewDatasheetExtractor creates an extractor over the default rule catalogue
func NewDatasheetExtractor() *DatasheetExtractor {
	return &DatasheetExtractor{
		identity:    compileRules(getIdentityRules()),
		measurement: compileRules(getMeasurementRules()),
		valveSpec:   compileRules(getValveSpecRules()),
	}
}

// Extract returns the datasheet fields found in text and tables
func (d *DatasheetExtractor) Extract(text string, tables []Table) *FieldMap {
	fields := NewFieldMap()

	applyRules(fields, d.identity, text)
	applyRules(fields, d.measurement, text)
	d.extractRevisions(fields, text)

	if strings.Contains(strings.ToLower(text), "control valve") {
		if tags := ValveTagsFromTables(tables); len(tags) > 0 {
			fields.Set(FieldValveTags, strings.Join(tags, ", "))
		}
		for _, rule := range d.valveSpec {
			if v, ok := lookupTableLabel(tables, rule.Field); ok {
				fields.SetIfAbsent(rule.Field, v)
				continue
			}
			if v, ok := rule.firstMatch(text); ok {
				fields.SetIfAbsent(rule.Field, v)
			}
		}
	}

	return fields
}

// extractRevisions reads the revision table; the first row is the latest
func (d *DatasheetExtractor) extractRevisions(fields *FieldMap, text string) {
	rows := revisionRowRegex.FindAllStringSubmatch(text, -1)
	if len(rows) == 0 {
		return
	}

	latest := rows[0]
	fields.Set(FieldLatestRevision, latest[1])
	fields.Set(FieldRevisionDate, latest[2])
	fields.Set(FieldRevisionDesc, strings.TrimSpace(latest[3]))
	fields.Set(FieldDrawnBy, latest[4])
	fields.Set(FieldCheckedBy, latest[5])
	fields.Set(FieldApprovedBy, latest[6])
	fields.Set(FieldRevisionCount, strconv.Itoa(len(rows)))
}

// ValveTagsFromTables scans every table cell for valve tags, sorted unique
func ValveTagsFromTables(tables []Table) []string {
	var tags []string
	for _, table := range tables {
		for _, row := range table {
			for _, cell := range row {
				tags = append(tags, valveTagRegex.FindAllString(cell, -1)...)
			}
		}
	}
	return uniqueSorted(tags)
}

// lookupTableLabel finds a cell naming label and returns the next non-empty
// cell of the same row
func lookupTableLabel(tables []Table, label string) (string, bool) {
	want := normalizeLabel(label)
	for _, table := range tables {
		for _, row := range table {
			for i, cell := range row {
				if normalizeLabel(cell) != want {
					continue
				}
				for _, next := range row[i+1:] {
					if v := strings.TrimSpace(next); v != "" {
						return v, true
					}
				}
			}
		}
	}
	return "", false
}

func normalizeLabel(s string) string {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ":"))
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

var technicalRules = compileRules(getTechnicalFieldRules())

// ExtractTechnicalFields applies the per-equipment rules used on datasheets
// cut from a larger document; the first match of each rule wins
func ExtractTechnicalFields(text string) *FieldMap {
	fields := NewFieldMap()
	applyRules(fields, technicalRules, text)
	return fields
}
