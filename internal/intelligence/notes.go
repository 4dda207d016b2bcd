package intelligence

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// notesKeywords are scanned in this order; the bare NOTES label comes last
var notesKeywords = []string{
	"GENERAL NOTES",
	"DESIGN NOTES",
	"PROCESS NOTES",
	"OPERATING NOTES",
	"SAFETY NOTES",
	"MAINTENANCE NOTES",
	"NOTES",
}

// notesQualifiers are the words that turn a bare NOTES label into a qualified one
var notesQualifiers = map[string]bool{
	"GENERAL": true, "DESIGN": true, "PROCESS": true,
	"OPERATING": true, "SAFETY": true, "MAINTENANCE": true,
}

var fallbackNotesLabels = []string{"GENERAL NOTES", "NOTES"}

var (
	headerLineRegex   = regexp.MustCompile(`^[A-Z\s]+:$`)
	numberedStopRegex = regexp.MustCompile(`^\d+\.\s*[A-Z]`)
	numberedNoteRegex = regexp.MustCompile(`^\s*(\d+)\.\s+(.+)`)
	bulletNoteRegex   = regexp.MustCompile(`^[•\-*]\s+(.+)`)
)

type notesSection struct {
	keyword string
	re      *regexp.Regexp
	bare    bool
}

// NotesExtractor captures labelled notes blocks plus numbered and bullet notes
type NotesExtractor struct {
	sections []notesSection
}

// NewNotesExtractor creates an extractor for the standard notes labels
func NewNotesExtractor() *NotesExtractor {
	sections := make([]notesSection, 0, len(notesKeywords))
	for _, kw := range notesKeywords {
		pattern := `(?i)\b` + strings.ReplaceAll(kw, " ", `\s+`) + `\b\s*:?`
		sections = append(sections, notesSection{
			keyword: kw,
			re:      regexp.MustCompile(pattern),
			bare:    !strings.Contains(kw, " "),
		})
	}
	return &NotesExtractor{sections: sections}
}

// Extract returns the captured sections followed by the numbered and bullet
// note fields. When no labelled section is found the simple extractor runs.
func (e *NotesExtractor) Extract(text string) *FieldMap {
	fields := NewFieldMap()
	lines := splitLines(text)

	for _, s := range e.sections {
		if block := e.capture(s, lines); block != "" {
			fields.SetIfAbsent(notesKey(s.keyword), block)
		}
	}

	if fields.Len() == 0 {
		for _, label := range fallbackNotesLabels {
			if block := captureSimple(label, lines); block != "" {
				fields.SetIfAbsent(notesKey(label), block)
			}
		}
	}

	if numbered := numberedNotes(lines); numbered != "" {
		fields.Set(FieldNumberedNotes, numbered)
	}
	if bullets := bulletNotes(lines); bullets != "" {
		fields.Set(FieldBulletNotes, bullets)
	}
	return fields
}

// capture runs the idle/capturing scan for one label and returns the first block
func (e *NotesExtractor) capture(s notesSection, lines []string) string {
	var block []string
	capturing := false

	for _, raw := range lines {
		line := strings.TrimSpace(raw)

		if !capturing {
			rest, ok := s.trigger(line)
			if !ok {
				continue
			}
			capturing = true
			if rest != "" {
				block = append(block, rest)
			}
			continue
		}

		if isSectionBoundary(line) {
			break
		}
		if line == "" && len(block) == 0 {
			continue
		}
		block = append(block, line)
	}

	return joinTrimmed(block)
}

// trigger reports whether line opens the section and returns the text after the label
func (s notesSection) trigger(line string) (string, bool) {
	for _, loc := range s.re.FindAllStringIndex(line, -1) {
		if s.bare && precededByQualifier(line[:loc[0]]) {
			continue
		}
		return strings.TrimSpace(line[loc[1]:]), true
	}
	return "", false
}

func precededByQualifier(prefix string) bool {
	words := strings.Fields(prefix)
	if len(words) == 0 {
		return false
	}
	return notesQualifiers[strings.ToUpper(words[len(words)-1])]
}

// isSectionBoundary reports a line that starts the next major section
func isSectionBoundary(line string) bool {
	if line == "" {
		return false
	}
	if headerLineRegex.MatchString(line) || numberedStopRegex.MatchString(line) {
		return true
	}
	return containsStopKeyword(line)
}

func containsStopKeyword(line string) bool {
	upper := strings.ToUpper(line)
	for _, kw := range notesStopKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

// captureSimple is the label-at-line-start extractor used as a fallback. It
// stops on header-style lines but keeps numbered items.
func captureSimple(label string, lines []string) string {
	var block []string
	capturing := false

	for _, raw := range lines {
		line := strings.TrimSpace(raw)

		if !capturing {
			if len(line) < len(label) || !strings.EqualFold(line[:len(label)], label) {
				continue
			}
			capturing = true
			rest := strings.TrimSpace(strings.TrimPrefix(line[len(label):], ":"))
			if rest != "" {
				block = append(block, rest)
			}
			continue
		}

		if isHeaderStyle(line) || containsStopKeyword(line) {
			break
		}
		if line == "" && len(block) == 0 {
			continue
		}
		block = append(block, line)
	}

	return joinTrimmed(block)
}

// isHeaderStyle reports an all-caps line carrying a colon
func isHeaderStyle(line string) bool {
	if !strings.Contains(line, ":") || strings.ToUpper(line) != line {
		return false
	}
	return strings.ToLower(line) != line
}

// numberedNotes renders every "N. text" item with its continuation lines
func numberedNotes(lines []string) string {
	var items []string
	current := -1

	for _, raw := range lines {
		if m := numberedNoteRegex.FindStringSubmatch(raw); m != nil {
			items = append(items, m[1]+". "+strings.TrimSpace(m[2]))
			current = len(items) - 1
			continue
		}

		line := strings.TrimSpace(raw)
		if line == "" || isSectionBoundary(line) {
			current = -1
			continue
		}
		if current >= 0 {
			items[current] += " " + line
		}
	}
	return strings.Join(items, "\n")
}

func bulletNotes(lines []string) string {
	var items []string
	for _, raw := range lines {
		if m := bulletNoteRegex.FindStringSubmatch(strings.TrimSpace(raw)); m != nil {
			items = append(items, strings.TrimSpace(m[1]))
		}
	}
	return strings.Join(items, "\n")
}

// notesKey turns "GENERAL NOTES:" into "General Notes"
func notesKey(keyword string) string {
	return titleCase(strings.TrimSuffix(strings.TrimSpace(keyword), ":"))
}

// titleCase builds a caser per call; casers keep state between calls
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// joinTrimmed joins captured lines after dropping trailing blank lines
func joinTrimmed(block []string) string {
	end := len(block)
	for end > 0 && block[end-1] == "" {
		end--
	}
	return strings.Join(block[:end], "\n")
}

func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
