package intelligence

import (
	"bytes"
	"encoding/json"
)

// DocumentType represents the type/category of an engineering document
type DocumentType string

const (
	DocumentTypePID                      DocumentType = "Process & Instrumentation Diagram"
	DocumentTypeInstrumentationDatasheet DocumentType = "Instrumentation Datasheet"
)

// Field names shared between analysis steps and consumers of the field map
const (
	FieldDocumentType      = "Document Type"
	FieldStatus            = "Status"
	FieldProcessingDate    = "Processing Date"
	FieldPatternList       = "Two Letter Four Number Patterns"
	FieldPatternTotal      = "Total Pattern Matches"
	FieldNumberedNotes     = "Numbered Notes"
	FieldBulletNotes       = "Bullet Notes"
	FieldEquipmentTags     = "Equipment Tags"
	FieldEquipmentCount    = "Equipment Count"
	FieldSampleEquipment   = "Sample Equipment Tags"
	FieldEquipmentTypes    = "Equipment Types"
	FieldServices          = "Services"
	FieldUtilityCodes      = "Utility Codes"
	FieldFacility          = "Facility"
	FieldDocumentTitle     = "Document Title"
	FieldRevision          = "Revision"
	FieldDocumentDate      = "Document Date"
	FieldPressureRatings   = "Pressure Ratings Found"
	FieldTemperatureRating = "Temperature Ratings Found"
	FieldTablesFound       = "Tables Found"
	FieldTableHeaders      = "Table Headers"
	FieldValveTags         = "Valve Tags"
	FieldLatestRevision    = "Latest Revision"
	FieldRevisionDate      = "Revision Date"
	FieldRevisionDesc      = "Revision Description"
	FieldDrawnBy           = "Drawn By"
	FieldCheckedBy         = "Checked By"
	FieldApprovedBy        = "Approved By"
	FieldRevisionCount     = "Revision Count"

	StatusProcessed = "Processed"
)

// Table is one extracted table: rows of cells, missing cells are empty strings
type Table [][]string

// FieldMap is an insertion-ordered mapping of field names to values. A key
// holds exactly one value; setting an existing key replaces the value in place.
type FieldMap struct {
	keys   []string
	values map[string]string
}

// NewFieldMap creates an empty field map
func NewFieldMap() *FieldMap {
	return &FieldMap{values: make(map[string]string)}
}

// Set stores value under key, keeping the key's original position
func (m *FieldMap) Set(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// SetIfAbsent stores value only when key is not present yet
func (m *FieldMap) SetIfAbsent(key, value string) bool {
	if _, ok := m.values[key]; ok {
		return false
	}
	m.Set(key, value)
	return true
}

// Get returns the value stored under key
func (m *FieldMap) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present
func (m *FieldMap) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Delete removes key and reports whether it was present
func (m *FieldMap) Delete(key string) bool {
	if _, ok := m.values[key]; !ok {
		return false
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the field names in insertion order
func (m *FieldMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of fields
func (m *FieldMap) Len() int {
	return len(m.keys)
}

// Merge sets every field of other into m, in other's order
func (m *FieldMap) Merge(other *FieldMap) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		m.Set(k, other.values[k])
	}
}

// Map returns an unordered copy of the fields
func (m *FieldMap) Map() map[string]string {
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the map as a JSON object preserving insertion order
func (m *FieldMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the document's key order
func (m *FieldMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}

	m.keys = nil
	m.values = make(map[string]string)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var value string
		if err := dec.Decode(&value); err != nil {
			return err
		}
		m.Set(key, value)
	}
	_, err := dec.Token()
	return err
}
