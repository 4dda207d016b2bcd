package tags

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var repairTime = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func brokenVocabulary() *Vocabulary {
	v := NewVocabulary()
	v.AddFile("PID-U100-001.pdf", []string{"PT-1001"})
	v.AddFile("PID-U100-002.pdf", []string{"FV-2001"})

	// orphan instruments and a file whose list is empty
	v.Instruments["file_9"] = []InstrumentRecord{{Tag: "U9-XX-0001"}}
	v.Files.PID["file_5"] = FileEntry{Path: "PID-U5-005.pdf", Unit: "U5"}
	v.Instruments["file_6"] = []InstrumentRecord{}
	v.Files.PID["file_6"] = FileEntry{Path: "PID-U6-006.pdf", Unit: "U6"}
	return v
}

func TestRepair_RemovesOrphansAndEmptyFiles(t *testing.T) {
	v := brokenVocabulary()

	repaired, report := RepairAt(v, repairTime)

	assert.True(t, report.Changed)
	assert.Equal(t, 1, report.Passes)
	assert.Equal(t, []string{
		"[2024-06-01 09:00:00] removed orphan instruments: file_9",
		"[2024-06-01 09:00:00] removed file without instruments: file_5",
		"[2024-06-01 09:00:00] removed file without instruments: file_6",
		"[2024-06-01 09:00:00] structure repaired in 1 pass(es)",
	}, report.Lines)

	assert.Len(t, repaired.Files.PID, 2)
	assert.Len(t, repaired.Instruments, 2)
	for key := range repaired.Instruments {
		assert.Contains(t, repaired.Files.PID, key)
	}

	// input untouched
	assert.Len(t, v.Files.PID, 4)
}

func TestRepair_Idempotent(t *testing.T) {
	once, _ := RepairAt(brokenVocabulary(), repairTime)
	onceBytes, err := once.Encode()
	require.NoError(t, err)

	twice, report := RepairAt(once, repairTime)
	twiceBytes, err := twice.Encode()
	require.NoError(t, err)

	assert.False(t, report.Changed)
	assert.Equal(t, 0, report.Passes)
	assert.Equal(t, []string{"[2024-06-01 09:00:00] structure check: no inconsistency found"}, report.Lines)
	assert.Equal(t, string(onceBytes), string(twiceBytes))
}

func TestRepair_ConsistentVocabularyUnchanged(t *testing.T) {
	v := NewVocabulary()
	v.AddFile("PID-U100-001.pdf", []string{"PT-1001"})

	repaired, lines := Repair(v)

	assert.Len(t, lines, 1)
	assert.Contains(t, lines[0], "no inconsistency found")
	assert.Equal(t, v.Files, repaired.Files)
	assert.Equal(t, v.Instruments, repaired.Instruments)
}

func TestRepair_EmptyVocabulary(t *testing.T) {
	repaired, report := RepairAt(NewVocabulary(), repairTime)
	assert.False(t, report.Changed)
	assert.Empty(t, repaired.Files.PID)
}
