package tags

import (
	"fmt"
	"sort"
	"time"
)

// MaxRepairPasses bounds the fixed-point loop of Repair
const MaxRepairPasses = 10

const repairTimeLayout = "2006-01-02 15:04:05"

// RepairReport describes one repair run
type RepairReport struct {
	Changed bool
	Passes  int
	Lines   []string
}

// Repair drops instrument sets without a file entry and file entries without
// instruments, repeating until nothing changes. The input is not modified.
func Repair(v *Vocabulary) (*Vocabulary, []string) {
	out, report := RepairAt(v, time.Now())
	return out, report.Lines
}

// RepairAt is Repair with an explicit timestamp for the log lines
func RepairAt(v *Vocabulary, now time.Time) (*Vocabulary, RepairReport) {
	out := v.Clone()
	stamp := now.Format(repairTimeLayout)
	report := RepairReport{}

	for report.Passes < MaxRepairPasses {
		removed := repairPass(out)
		if len(removed) == 0 {
			break
		}
		report.Passes++
		report.Changed = true
		for _, line := range removed {
			report.Lines = append(report.Lines, fmt.Sprintf("[%s] %s", stamp, line))
		}
	}

	if !report.Changed {
		report.Lines = []string{fmt.Sprintf("[%s] structure check: no inconsistency found", stamp)}
	} else {
		report.Lines = append(report.Lines, fmt.Sprintf("[%s] structure repaired in %d pass(es)", stamp, report.Passes))
	}
	return out, report
}

// repairPass applies one round of both rules and returns a line per removal
func repairPass(v *Vocabulary) []string {
	var removed []string

	for _, key := range sortedKeys(v.Instruments) {
		if _, ok := v.Files.PID[key]; !ok {
			delete(v.Instruments, key)
			removed = append(removed, "removed orphan instruments: "+key)
		}
	}

	for _, key := range sortedFileKeys(v.Files.PID) {
		if len(v.Instruments[key]) == 0 {
			delete(v.Files.PID, key)
			delete(v.Instruments, key)
			removed = append(removed, "removed file without instruments: "+key)
		}
	}
	return removed
}

func sortedKeys(m map[string][]InstrumentRecord) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFileKeys(m map[string]FileEntry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
