// Package datasheet splits multi-equipment datasheet PDFs into one record
// per equipment and keeps those records, their index and chat history in a
// storage backend.
package datasheet

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	titlePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)data\s*sheet`),
		regexp.MustCompile(`(?i)specification\s*sheet`),
		regexp.MustCompile(`(?i)technical\s*data`),
		regexp.MustCompile(`(?i)product\s*data`),
		regexp.MustCompile(`(?i)equipment\s*data`),
	}

	// model, part, serial and tag numbers, tried in that order
	equipmentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)model\s*(?:number|no\.?):\s*([A-Z0-9\-]+)`),
		regexp.MustCompile(`(?i)part\s*(?:number|no\.?):\s*([A-Z0-9\-]+)`),
		regexp.MustCompile(`(?i)serial\s*(?:number|no\.?):\s*([A-Z0-9\-]+)`),
		regexp.MustCompile(`(?i)tag\s*(?:number|no\.?):\s*([A-Z0-9\-]+)`),
	}

	manufacturerPattern = regexp.MustCompile(`(?i)manufacturer:[ \t]*([A-Za-z0-9 \t&,.-]+?)[ \t]*(?:\n|$)`)

	unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
)

// Range is one detected datasheet: a 1-based inclusive page span
type Range struct {
	StartPage     int    `json:"start_page"`
	EndPage       int    `json:"end_page"`
	EquipmentName string `json:"equipment_name"`
	Manufacturer  string `json:"manufacturer,omitempty"`
}

// Pages renders the span as "start-end"
func (r Range) Pages() string {
	return fmt.Sprintf("%d-%d", r.StartPage, r.EndPage)
}

// indicators is what a page says about starting a new datasheet
type indicators struct {
	title        bool
	equipment    string
	manufacturer string
}

func (i indicators) found() bool {
	return i.title || i.equipment != "" || i.manufacturer != ""
}

func findIndicators(text string) indicators {
	var ind indicators
	for _, re := range titlePatterns {
		if re.MatchString(text) {
			ind.title = true
			break
		}
	}
	for _, re := range equipmentPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			ind.equipment = m[1]
			break
		}
	}
	if m := manufacturerPattern.FindStringSubmatch(text); m != nil {
		ind.manufacturer = strings.TrimSpace(m[1])
	}
	return ind
}

// Split finds datasheet boundaries in page texts. A page carrying a
// datasheet title, an equipment number or a manufacturer line starts a new
// datasheet and closes the previous one on the page before. Pages ahead of
// the first such page belong to no datasheet. Without any indicator every
// page becomes its own datasheet.
func Split(pages []string) []Range {
	var ranges []Range
	var current *Range

	for i, text := range pages {
		page := i + 1
		ind := findIndicators(text)
		if !ind.found() {
			continue
		}

		if current != nil {
			current.EndPage = page - 1
			ranges = append(ranges, *current)
		}

		name := ind.equipment
		if name == "" {
			name = fmt.Sprintf("Equipment_%d", len(ranges)+1)
		}
		current = &Range{StartPage: page, EquipmentName: name, Manufacturer: ind.manufacturer}
	}

	if current != nil {
		current.EndPage = len(pages)
		ranges = append(ranges, *current)
	}

	if len(ranges) == 0 {
		for i := range pages {
			ranges = append(ranges, Range{
				StartPage:     i + 1,
				EndPage:       i + 1,
				EquipmentName: fmt.Sprintf("Datasheet_Page_%d", i+1),
			})
		}
	}
	return ranges
}

// SanitizeName makes an equipment name safe to use inside ids and keys
func SanitizeName(name string) string {
	s := strings.Trim(unsafeNameChars.ReplaceAllString(name, "_"), "_")
	if s == "" {
		return "Equipment"
	}
	return s
}
