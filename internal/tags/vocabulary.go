package tags

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// SchemaVersion is the vocabulary document version written by this package
const SchemaVersion = 2

// UnknownUnit is the unit code of filenames without a second "-" segment
const UnknownUnit = "UNKNOWN"

const fileKeyPrefix = "file_"

// Vocabulary is the persistent tag vocabulary shared by every processed file
type Vocabulary struct {
	SchemaVersion   int                           `json:"schema_version"`
	NextFileID      int                           `json:"next_file_id"`
	Files           Files                         `json:"files"`
	Instruments     map[string][]InstrumentRecord `json:"instruments"`
	AcronymsToTypes map[string]string             `json:"acronyms_to_types"`
	NotTags         []string                      `json:"not_tags"`
}

// Files groups recorded files by document family
type Files struct {
	PID map[string]FileEntry `json:"pid"`
}

// FileEntry describes one processed drawing
type FileEntry struct {
	Path                string `json:"path"`
	Unit                string `json:"unit"`
	NumberOfInstruments int    `json:"number_of_instruments"`
}

// InstrumentRecord is one tag found in a processed drawing
type InstrumentRecord struct {
	Tag         string       `json:"tag"`
	TagLessUnit string       `json:"tag_less_unit"`
	Acronym     string       `json:"accronyme"`
	Datasheet   DatasheetRef `json:"datasheet"`
}

// DatasheetRef links an instrument to pages of a datasheet document
type DatasheetRef struct {
	FileID string `json:"file_id"`
	Pages  []int  `json:"pages"`
}

// NewVocabulary returns the empty default structure
func NewVocabulary() *Vocabulary {
	return &Vocabulary{
		SchemaVersion:   SchemaVersion,
		NextFileID:      1,
		Files:           Files{PID: make(map[string]FileEntry)},
		Instruments:     make(map[string][]InstrumentRecord),
		AcronymsToTypes: make(map[string]string),
		NotTags:         []string{},
	}
}

// DecodeVocabulary validates and decodes a stored document, migrating older
// layouts to the current schema version
func DecodeVocabulary(data []byte) (*Vocabulary, error) {
	if err := ValidateDocument(data); err != nil {
		return nil, err
	}

	v := &Vocabulary{}
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("decode vocabulary: %w", err)
	}
	v.normalize()
	return v, nil
}

// Encode renders the document as indented JSON. Map keys are sorted, so equal
// vocabularies encode to identical bytes.
func (v *Vocabulary) Encode() ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// normalize fills missing collections and migrates the file-key counter
func (v *Vocabulary) normalize() {
	if v.Files.PID == nil {
		v.Files.PID = make(map[string]FileEntry)
	}
	if v.Instruments == nil {
		v.Instruments = make(map[string][]InstrumentRecord)
	}
	if v.AcronymsToTypes == nil {
		v.AcronymsToTypes = make(map[string]string)
	}
	if v.NotTags == nil {
		v.NotTags = []string{}
	}

	// unversioned documents derived keys from the file count
	if floor := v.maxFileID() + 1; v.NextFileID < floor {
		v.NextFileID = floor
	}
	v.SchemaVersion = SchemaVersion
}

func (v *Vocabulary) maxFileID() int {
	max := 0
	check := func(key string) {
		if n, ok := parseFileKey(key); ok && n > max {
			max = n
		}
	}
	for k := range v.Files.PID {
		check(k)
	}
	for k := range v.Instruments {
		check(k)
	}
	return max
}

func parseFileKey(key string) (int, bool) {
	if !strings.HasPrefix(key, fileKeyPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(key, fileKeyPrefix))
	return n, err == nil
}

// KnownAcronyms returns the vocabulary's acronyms, longest first then by name
func (v *Vocabulary) KnownAcronyms() []string {
	out := make([]string, 0, len(v.AcronymsToTypes))
	for a := range v.AcronymsToTypes {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

// IsNotTag reports whether acronym is a known false positive
func (v *Vocabulary) IsNotTag(acronym string) bool {
	for _, nt := range v.NotTags {
		if nt == acronym {
			return true
		}
	}
	return false
}

// AddNotTag records acronym as a false positive; it reports false if it already was
func (v *Vocabulary) AddNotTag(acronym string) bool {
	if v.IsNotTag(acronym) {
		return false
	}
	v.NotTags = append(v.NotTags, acronym)
	return true
}

// FileKeyForPath returns the key of the file recorded under exactly path
func (v *Vocabulary) FileKeyForPath(path string) (string, bool) {
	for key, entry := range v.Files.PID {
		if entry.Path == path {
			return key, true
		}
	}
	return "", false
}

// AddFile records a processed file with one instrument per tag and returns
// its new key. Tags are "ACR-ID" strings; they are stored unit-qualified.
func (v *Vocabulary) AddFile(path string, tags []string) string {
	unit := UnitCode(path)
	key := fileKeyPrefix + strconv.Itoa(v.NextFileID)
	v.NextFileID++

	records := make([]InstrumentRecord, 0, len(tags))
	for _, t := range tags {
		records = append(records, InstrumentRecord{
			Tag:         unit + "-" + t,
			TagLessUnit: t,
			Acronym:     strings.SplitN(t, "-", 2)[0],
			Datasheet:   DatasheetRef{Pages: []int{}},
		})
	}

	v.Files.PID[key] = FileEntry{Path: path, Unit: unit, NumberOfInstruments: len(records)}
	v.Instruments[key] = records
	return key
}

// Clone returns a deep copy
func (v *Vocabulary) Clone() *Vocabulary {
	c := &Vocabulary{
		SchemaVersion:   v.SchemaVersion,
		NextFileID:      v.NextFileID,
		Files:           Files{PID: make(map[string]FileEntry, len(v.Files.PID))},
		Instruments:     make(map[string][]InstrumentRecord, len(v.Instruments)),
		AcronymsToTypes: make(map[string]string, len(v.AcronymsToTypes)),
		NotTags:         append([]string{}, v.NotTags...),
	}
	for k, f := range v.Files.PID {
		c.Files.PID[k] = f
	}
	for k, recs := range v.Instruments {
		if recs == nil {
			c.Instruments[k] = nil
			continue
		}
		cp := make([]InstrumentRecord, len(recs))
		for i, r := range recs {
			if r.Datasheet.Pages != nil {
				r.Datasheet.Pages = append([]int{}, r.Datasheet.Pages...)
			}
			cp[i] = r
		}
		c.Instruments[k] = cp
	}
	for k, t := range v.AcronymsToTypes {
		c.AcronymsToTypes[k] = t
	}
	return c
}

// UnitCode derives the unit from the second "-" segment of the base file
// name without extension, e.g. "PID-U100-001.pdf" gives "U100"
func UnitCode(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	parts := strings.Split(base, "-")
	if len(parts) < 2 || parts[1] == "" {
		return UnknownUnit
	}
	return parts[1]
}
