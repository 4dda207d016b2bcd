package intelligence

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// ProcessingDateLayout is the layout of the Processing Date field
const ProcessingDateLayout = "2006-01-02 15:04:05"

const (
	maxDisplayedEquipment = 20
	maxSampleEquipment    = 5
	maxUnitMatches        = 3
	titleScanLines        = 10
	minTitleLength        = 5
)

// FieldAnalyzer orchestrates the pattern library, the notes extractor and the
// table summary into one ordered field map
type FieldAnalyzer struct {
	classifier *DocumentClassifier
	datasheet  *DatasheetExtractor
	notes      *NotesExtractor
	logger     *slog.Logger
	now        func() time.Time
}

// AnalyzerOption configures a FieldAnalyzer
type AnalyzerOption func(*FieldAnalyzer)

// WithLogger sets the logger used for step failures
func WithLogger(logger *slog.Logger) AnalyzerOption {
	return func(a *FieldAnalyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock sets the clock behind the Processing Date field
func WithClock(now func() time.Time) AnalyzerOption {
	return func(a *FieldAnalyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// NewFieldAnalyzer creates an analyzer with the default rule catalogue
func NewFieldAnalyzer(opts ...AnalyzerOption) *FieldAnalyzer {
	a := &FieldAnalyzer{
		classifier: NewDocumentClassifier(),
		datasheet:  NewDatasheetExtractor(),
		notes:      NewNotesExtractor(),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs the default analyzer over text and tables
func Analyze(text string, tables []Table) *FieldMap {
	return NewFieldAnalyzer().Analyze(text, tables)
}

type analysisInput struct {
	text    string
	lowered string
	lines   []string
	tables  []Table
	docType DocumentType
}

type analysisStep struct {
	name string
	run  func(in *analysisInput, fields *FieldMap)
}

// Analyze produces the field map for one document. Steps are additive; a
// failing step is logged and skipped.
func (a *FieldAnalyzer) Analyze(text string, tables []Table) *FieldMap {
	fields := NewFieldMap()
	in := &analysisInput{
		text:    text,
		lowered: strings.ToLower(text),
		lines:   splitLines(text),
		tables:  tables,
		docType: DocumentTypePID,
	}

	for _, step := range a.steps() {
		a.runStep(step, in, fields)
	}
	return fields
}

func (a *FieldAnalyzer) steps() []analysisStep {
	return []analysisStep{
		{"classification", a.classify},
		{"datasheet", a.extractDatasheet},
		{"structural_patterns", func(in *analysisInput, f *FieldMap) { f.Merge(structuralFields(in.text)) }},
		{"notes", func(in *analysisInput, f *FieldMap) { f.Merge(a.notes.Extract(in.text)) }},
		{"equipment", extractEquipment},
		{"services", extractServices},
		{"facility", extractFacility},
		{"title", extractTitle},
		{"revision", extractRevision},
		{"date", extractDate},
		{"ratings", extractRatings},
		{"tables", summarizeTables},
		{"bookkeeping", a.bookkeeping},
	}
}

func (a *FieldAnalyzer) runStep(step analysisStep, in *analysisInput, fields *FieldMap) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("analysis step failed", "step", step.name, "panic", r)
		}
	}()
	step.run(in, fields)
}

func (a *FieldAnalyzer) classify(in *analysisInput, fields *FieldMap) {
	in.docType = a.classifier.Classify(in.text)
	fields.Set(FieldDocumentType, string(in.docType))
}

func (a *FieldAnalyzer) extractDatasheet(in *analysisInput, fields *FieldMap) {
	if in.docType != DocumentTypeInstrumentationDatasheet {
		return
	}
	ds := a.datasheet.Extract(in.text, in.tables)
	for _, k := range ds.Keys() {
		v, _ := ds.Get(k)
		fields.SetIfAbsent(k, v)
	}
}

func (a *FieldAnalyzer) bookkeeping(_ *analysisInput, fields *FieldMap) {
	fields.SetIfAbsent(FieldDocumentType, string(DocumentTypePID))
	fields.Set(FieldStatus, StatusProcessed)
	fields.Set(FieldProcessingDate, a.now().Format(ProcessingDateLayout))
}

func extractEquipment(in *analysisInput, fields *FieldMap) {
	tags := ExtractEquipmentTags(in.text)
	if len(tags) > 0 {
		fields.Set(FieldEquipmentTags, strings.Join(firstN(tags, maxDisplayedEquipment), ", "))
		fields.Set(FieldEquipmentCount, strconv.Itoa(len(tags)))
		fields.Set(FieldSampleEquipment, strings.Join(firstN(tags, maxSampleEquipment), ", "))
	}

	if types := presentKeywords(in.lowered, equipmentTypeKeywords); len(types) > 0 {
		fields.Set(FieldEquipmentTypes, titleJoin(types))
	}
}

func extractServices(in *analysisInput, fields *FieldMap) {
	if services := presentKeywords(in.lowered, serviceKeywords); len(services) > 0 {
		fields.Set(FieldServices, titleJoin(services))
	}

	codes := uniqueSorted(utilityCodeRegex.FindAllString(in.text, -1))
	if len(codes) > 0 {
		fields.Set(FieldUtilityCodes, strings.Join(codes, ", "))
	}
}

func extractFacility(in *analysisInput, fields *FieldMap) {
	if found := presentKeywords(in.lowered, facilityKeywords); len(found) > 0 {
		fields.Set(FieldFacility, titleJoin(found))
	}
}

func extractTitle(in *analysisInput, fields *FieldMap) {
	for _, line := range firstN(in.lines, titleScanLines) {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) <= minTitleLength {
			continue
		}
		if len(presentKeywords(strings.ToLower(trimmed), titleKeywords)) > 0 {
			fields.Set(FieldDocumentTitle, trimmed)
			return
		}
	}
}

// extractRevision takes the token after the first "rev" word on the first
// line mentioning a revision
func extractRevision(in *analysisInput, fields *FieldMap) {
	for _, line := range in.lines {
		if !strings.Contains(strings.ToLower(line), "rev") {
			continue
		}
		words := strings.Fields(line)
		for i, w := range words {
			if strings.Contains(strings.ToLower(w), "rev") && i+1 < len(words) {
				fields.Set(FieldRevision, words[i+1])
				break
			}
		}
		return
	}
}

func extractDate(in *analysisInput, fields *FieldMap) {
	if d := dateRegex.FindString(in.text); d != "" {
		fields.Set(FieldDocumentDate, d)
	}
}

func extractRatings(in *analysisInput, fields *FieldMap) {
	if p := pressureUnitRegex.FindAllString(in.lowered, maxUnitMatches); len(p) > 0 {
		fields.Set(FieldPressureRatings, strings.Join(p, ", "))
	}
	if t := temperatureRegex.FindAllString(in.lowered, maxUnitMatches); len(t) > 0 {
		fields.Set(FieldTemperatureRating, strings.Join(t, ", "))
	}
}

func summarizeTables(in *analysisInput, fields *FieldMap) {
	if len(in.tables) == 0 {
		return
	}
	fields.Set(FieldTablesFound, strconv.Itoa(len(in.tables)))

	first := in.tables[0]
	if len(first) == 0 {
		return
	}
	var headers []string
	for _, cell := range first[0] {
		if h := strings.TrimSpace(cell); h != "" {
			headers = append(headers, h)
		}
	}
	if len(headers) > 0 {
		fields.Set(FieldTableHeaders, strings.Join(headers, ", "))
	}
}

func titleJoin(words []string) string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = titleCase(w)
	}
	return strings.Join(out, ", ")
}
