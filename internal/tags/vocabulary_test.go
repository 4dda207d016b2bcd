package tags

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyDocument = `{
  "files": {"pid": {
    "file_1": {"path": "PID-U100-001.pdf", "unit": "U100", "number_of_instruments": 1},
    "file_3": {"path": "PID-U200-002.pdf", "unit": "U200", "number_of_instruments": 1}
  }},
  "instruments": {
    "file_1": [{"tag": "U100-PT-1001", "tag_less_unit": "PT-1001", "accronyme": "PT",
                "datasheet": {"file_id": "", "pages": []}}],
    "file_3": [{"tag": "U200-FV-2001", "tag_less_unit": "FV-2001", "accronyme": "FV",
                "datasheet": {"file_id": "", "pages": []}}]
  },
  "acronyms_to_types": {"PT": "", "FV": "valve"},
  "not_tags": ["DWG"]
}`

func TestDecodeVocabulary_MigratesLegacyDocument(t *testing.T) {
	v, err := DecodeVocabulary([]byte(legacyDocument))
	require.NoError(t, err)

	assert.Equal(t, SchemaVersion, v.SchemaVersion)
	assert.Equal(t, 4, v.NextFileID, "counter continues after the highest existing key")
	assert.Len(t, v.Files.PID, 2)
	assert.Equal(t, "valve", v.AcronymsToTypes["FV"])

	key := v.AddFile("PID-U300-003.pdf", []string{"TT-3001"})
	assert.Equal(t, "file_4", key)
}

func TestDecodeVocabulary_RejectsInvalidDocuments(t *testing.T) {
	tests := map[string]string{
		"not json":          `{"files":`,
		"missing sections":  `{"files": {"pid": {}}}`,
		"wrong type":        `{"files": {"pid": {}}, "instruments": {}, "acronyms_to_types": {"PT": 3}, "not_tags": []}`,
		"file without path": `{"files": {"pid": {"file_1": {"unit": "U1"}}}, "instruments": {}, "acronyms_to_types": {}, "not_tags": []}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeVocabulary([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestVocabulary_EncodeRoundTrip(t *testing.T) {
	v := NewVocabulary()
	v.AcronymsToTypes["PT"] = "pressure transmitter"
	v.AddFile("PID-U100-001.pdf", []string{"PT-1001", "PT-1001"})

	data, err := v.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"pages": []`)
	assert.Contains(t, string(data), `"accronyme": "PT"`)

	decoded, err := DecodeVocabulary(data)
	require.NoError(t, err)
	again, err := decoded.Encode()
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestVocabulary_AddFile(t *testing.T) {
	v := NewVocabulary()
	key := v.AddFile("/uploads/PID-U100-001.pdf", []string{"PT-1001", "FV-2001A", "PT-1001"})

	assert.Equal(t, "file_1", key)
	assert.Equal(t, 2, v.NextFileID)
	assert.Equal(t, FileEntry{Path: "/uploads/PID-U100-001.pdf", Unit: "U100", NumberOfInstruments: 3}, v.Files.PID[key])

	recs := v.Instruments[key]
	require.Len(t, recs, 3)
	assert.Equal(t, "U100-FV-2001A", recs[1].Tag)
	assert.Equal(t, "FV-2001A", recs[1].TagLessUnit)
	assert.Equal(t, "FV", recs[1].Acronym)
	assert.Equal(t, []int{}, recs[1].Datasheet.Pages)
}

func TestVocabulary_KnownAcronymsOrder(t *testing.T) {
	v := NewVocabulary()
	for _, a := range []string{"PT", "FIC", "A", "LT", "PSV"} {
		v.AcronymsToTypes[a] = ""
	}
	assert.Equal(t, []string{"FIC", "PSV", "LT", "PT", "A"}, v.KnownAcronyms())
}

func TestUnitCode(t *testing.T) {
	tests := map[string]string{
		"PID-U100-001.pdf":        "U100",
		"/data/in/PID-U200.pdf":   "U200",
		"drawing.pdf":             UnknownUnit,
		"PID--001.pdf":            UnknownUnit,
		"dir-with-dash/plain.pdf": UnknownUnit,
	}
	for in, want := range tests {
		assert.Equal(t, want, UnitCode(in), in)
	}
}

func TestVocabulary_CloneIsDeep(t *testing.T) {
	v := NewVocabulary()
	key := v.AddFile("PID-U1-1.pdf", []string{"PT-1001"})

	c := v.Clone()
	c.Instruments[key][0].Datasheet.Pages = append(c.Instruments[key][0].Datasheet.Pages, 3)
	c.NotTags = append(c.NotTags, "X")
	c.AcronymsToTypes["Z"] = ""

	assert.Empty(t, v.Instruments[key][0].Datasheet.Pages)
	assert.Empty(t, v.NotTags)
	assert.NotContains(t, v.AcronymsToTypes, "Z")
}

func TestVocabulary_NullPagesSurviveRepair(t *testing.T) {
	doc := `{
  "files": {"pid": {"file_1": {"path": "PID-U100-001.pdf", "unit": "U100", "number_of_instruments": 1}}},
  "instruments": {"file_1": [{"tag": "U100-PT-1001", "tag_less_unit": "PT-1001", "accronyme": "PT",
                              "datasheet": {"file_id": "", "pages": null}}]},
  "acronyms_to_types": {"PT": ""},
  "not_tags": []
}`
	v, err := DecodeVocabulary([]byte(doc))
	require.NoError(t, err)
	assert.Nil(t, v.Clone().Instruments["file_1"][0].Datasheet.Pages)

	before, err := v.Encode()
	require.NoError(t, err)

	repaired, report := RepairAt(v, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	assert.False(t, report.Changed)

	after, err := repaired.Encode()
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}
