package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_RejectsLongAcronyms(t *testing.T) {
	res := Extract([]string{"PT", "1001", "measures", "pressure", "INVALID", "9999"}, nil, nil)

	assert.Equal(t, []string{"PT-1001"}, res.Tags)
	assert.Equal(t, []string{"PT"}, res.NewAcronyms)
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		tokens  []string
		known   []string
		notTags []string
		tags    []string
		newAcrs []string
	}{
		{
			name:    "duplicates kept, new acronym reported once",
			tokens:  []string{"FV", "2001", "FV", "2001", "FV", "2002A"},
			tags:    []string{"FV-2001", "FV-2001", "FV-2002A"},
			newAcrs: []string{"FV"},
		},
		{
			name:    "known acronyms are not new",
			tokens:  []string{"PT", "1001", "TT", "1002"},
			known:   []string{"PT"},
			tags:    []string{"PT-1001", "TT-1002"},
			newAcrs: []string{"TT"},
		},
		{
			name:    "false positives skipped",
			tokens:  []string{"DWG", "1234", "PT", "1001"},
			notTags: []string{"DWG"},
			tags:    []string{"PT-1001"},
			newAcrs: []string{"PT"},
		},
		{
			name:   "case sensitive shapes",
			tokens: []string{"pt", "1001", "Pt", "1002", "PT", "100", "PT", "10001", "PT", "1001a", "PT1", "1001"},
		},
		{
			name:   "id must follow directly",
			tokens: []string{"PT", "-", "1001", "PT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Extract(tt.tokens, tt.known, tt.notTags)
			assert.Equal(t, tt.tags, res.Tags)
			assert.Equal(t, tt.newAcrs, res.NewAcronyms)
		})
	}
}

func TestExtractor_HookDecidesAcceptance(t *testing.T) {
	var seen []string
	e := &Extractor{OnNewAcronym: func(acr string) bool {
		seen = append(seen, acr)
		return acr != "XX"
	}}

	res := e.Extract([]string{"XX", "1000", "PT", "1001", "XX", "1002"}, nil, nil)

	assert.Equal(t, []string{"XX", "PT"}, seen)
	assert.Equal(t, []string{"XX", "PT"}, res.NewAcronyms)
	assert.Equal(t, []string{"PT"}, res.Accepted)
	assert.Equal(t, []string{"XX", "PT"}, res.Known)
	assert.Len(t, res.Tags, 3)
}

func TestFilterNotTags(t *testing.T) {
	got := FilterNotTags([]string{"PT-1001", "DWG-2000", "FV-2001"}, []string{"DWG"})
	assert.Equal(t, []string{"PT-1001", "FV-2001"}, got)
	assert.Empty(t, FilterNotTags(nil, nil))
}
