package documents

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pid-extractor/internal/datasheet"
	"github.com/a3tai/mcp-pid-extractor/internal/errors"
	"github.com/a3tai/mcp-pid-extractor/internal/intelligence"
	"github.com/a3tai/mcp-pid-extractor/internal/llm"
	"github.com/a3tai/mcp-pid-extractor/internal/pdf"
	"github.com/a3tai/mcp-pid-extractor/internal/pdf/pdftest"
	"github.com/a3tai/mcp-pid-extractor/internal/storage"
	"github.com/a3tai/mcp-pid-extractor/internal/tags"
)

var testTime = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return testTime }

type echoModel struct {
	answer  string
	prompts []string
}

func (m *echoModel) Generate(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.answer, nil
}

type fixture struct {
	svc     *Service
	dir     string
	backend *storage.MemoryBackend
}

func newFixture(t *testing.T, model llm.Model) fixture {
	t.Helper()
	dir := t.TempDir()
	pdfs, err := pdf.NewService(10*1024*1024, dir)
	require.NoError(t, err)

	backend := storage.NewMemoryBackend()
	dsStore := datasheet.NewStore(backend, datasheet.WithClock(clock))
	svc := NewService(Config{
		PDF:        pdfs,
		Analyzer:   intelligence.NewFieldAnalyzer(intelligence.WithClock(clock)),
		Analyses:   NewAnalysisStore(backend, nil),
		Tags:       tags.NewStore(backend, tags.WithStoreClock(clock)),
		Datasheets: datasheet.NewService(dsStore, datasheet.WithServiceClock(clock)),
		Assistant:  llm.NewAssistant(model, nil),
		Workers:    2,
		Now:        clock,
	})
	return fixture{svc: svc, dir: dir, backend: backend}
}

func drawing() pdftest.Page {
	return pdftest.Lines(
		"PROCESS FLOW DIAGRAM UNIT 100",
		"FV 1001 PT 1002",
		"GENERAL NOTES:",
		"all dimensions in mm",
	)
}

func TestService_AnalyzeFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	pdftest.WriteFile(t, filepath.Join(f.dir, "PID-100-001.pdf"), drawing())

	a, err := f.svc.AnalyzeFile(ctx, "PID-100-001.pdf", AnalyzeOptions{ExtractTags: true})
	require.NoError(t, err)

	path := filepath.Join(f.dir, "PID-100-001.pdf")
	assert.Equal(t, AnalysisID(path), a.ID)
	assert.Equal(t, StatusProcessed, a.Status)
	assert.Equal(t, 1, a.Pages)

	docType, _ := a.ExtractedData.Get(intelligence.FieldDocumentType)
	assert.Equal(t, "Process & Instrumentation Diagram", docType)
	name, _ := a.ExtractedData.Get(FieldFileName)
	assert.Equal(t, "PID-100-001.pdf", name)
	stored, _ := a.ExtractedData.Get(FieldFilePath)
	assert.Equal(t, path, stored)

	require.NotNil(t, a.Tags)
	assert.Equal(t, tags.StatusSuccess, a.Tags.Status)
	assert.Equal(t, []string{"FV-1001", "PT-1002"}, a.Tags.Tags)

	got, err := f.svc.Analyses().Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ExtractedData.Keys(), got.ExtractedData.Keys())

	records, err := f.svc.TagsForFile(ctx, path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "100-FV-1001", records[0].Tag)
}

func TestService_AnalyzeFileOutsideDirectory(t *testing.T) {
	f := newFixture(t, nil)
	outside := pdftest.WriteFile(t, filepath.Join(t.TempDir(), "x.pdf"), drawing())

	_, err := f.svc.AnalyzeFile(context.Background(), outside, AnalyzeOptions{})
	assert.True(t, errors.Is(err, errors.KindInvalidInput))

	_, err = f.svc.AnalyzeFile(context.Background(), "../escape.pdf", AnalyzeOptions{})
	assert.True(t, errors.Is(err, errors.KindInvalidInput))
}

func TestService_AnalyzeUnreadableFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	pdftest.WriteFile(t, filepath.Join(f.dir, "scan.pdf"), pdftest.Page{})

	a, err := f.svc.AnalyzeFile(ctx, "scan.pdf", AnalyzeOptions{ExtractTags: true})
	assert.True(t, errors.Is(err, errors.KindInputUnreadable))
	require.NotNil(t, a)
	assert.Equal(t, StatusUnreadable, a.Status)
	assert.Nil(t, a.Tags)

	status, _ := a.ExtractedData.Get(intelligence.FieldStatus)
	assert.Equal(t, "Processed", status)
	assert.False(t, a.ExtractedData.Has(intelligence.FieldPatternList))

	_, err = f.svc.Analyses().Get(ctx, a.ID)
	assert.NoError(t, err, "unreadable analyses are still stored")

	res, err := f.svc.ExtractTags(ctx, "scan.pdf")
	assert.True(t, errors.Is(err, errors.KindInputUnreadable))
	require.NotNil(t, res)
	assert.Equal(t, tags.StatusError, res.Status)
}

func TestService_AnalyzeDirectory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	require.NoError(t, os.MkdirAll(filepath.Join(f.dir, "unit200"), 0o755))
	pdftest.WriteFile(t, filepath.Join(f.dir, "PID-100-001.pdf"), drawing())
	pdftest.WriteFile(t, filepath.Join(f.dir, "unit200", "PID-200-001.pdf"), pdftest.Lines("LT 2001 TT 2002"))
	pdftest.WriteFile(t, filepath.Join(f.dir, "PID-300-blank.pdf"), pdftest.Page{})
	pdftest.WriteFile(t, filepath.Join(f.dir, "DS-PUMPS.pdf"), pdftest.Lines("PUMP DATA SHEET"))

	res, err := f.svc.AnalyzeDirectory(ctx, "", "pid-", AnalyzeOptions{ExtractTags: true})
	require.NoError(t, err)
	assert.Equal(t, f.dir, res.Directory)
	require.Len(t, res.Files, 3)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Failed)

	byName := map[string]FileOutcome{}
	for _, o := range res.Files {
		byName[filepath.Base(o.Path)] = o
	}
	assert.Equal(t, 2, byName["PID-100-001.pdf"].TagsFound)
	assert.Equal(t, 2, byName["PID-200-001.pdf"].TagsFound)
	assert.Equal(t, StatusUnreadable, byName["PID-300-blank.pdf"].Status)
	assert.NotEmpty(t, byName["PID-300-blank.pdf"].Error)

	stats, err := f.svc.Tags().Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalFilesProcessed)
	assert.Equal(t, 4, stats.TotalInstrumentsFound)

	all, err := f.svc.Analyses().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestService_SplitDatasheetsAndChat(t *testing.T) {
	ctx := context.Background()
	model := &echoModel{answer: "A centrifugal pump."}
	f := newFixture(t, model)
	pdftest.WriteFile(t, filepath.Join(f.dir, "DS-PUMPS.pdf"),
		pdftest.Lines("PUMP DATA SHEET", "MODEL NUMBER: P-100"),
		pdftest.Lines("PUMP DATA SHEET", "MODEL NUMBER: P-200"),
	)

	res, err := f.svc.SplitDatasheets(ctx, "DS-PUMPS.pdf")
	require.NoError(t, err)
	require.Len(t, res.Datasheets, 2)
	assert.Equal(t, "P-200", res.Datasheets[1].EquipmentName)

	id := res.Datasheets[0].ID
	reply, err := f.svc.ChatDatasheet(ctx, id, "What type of pump is this?")
	require.NoError(t, err)
	assert.Equal(t, "A centrifugal pump.", reply.Message.Response)
	assert.Contains(t, model.prompts[0], "MODEL NUMBER: P-100")
	assert.NotContains(t, model.prompts[0], "P-200")

	rec, err := f.svc.Datasheets().Store().Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, rec.ChatHistory, 1)
	assert.Equal(t, "What type of pump is this?", rec.ChatHistory[0].Message)

	_, err = f.svc.ChatDatasheet(ctx, "missing", "hi")
	assert.True(t, errors.Is(err, errors.KindNotFound))
}

func TestService_ExtractAndDeleteField(t *testing.T) {
	ctx := context.Background()
	model := &echoModel{answer: "ACME PUMPS"}
	f := newFixture(t, model)
	pdftest.WriteFile(t, filepath.Join(f.dir, "PID-100-001.pdf"), drawing())

	a, err := f.svc.AnalyzeFile(ctx, "PID-100-001.pdf", AnalyzeOptions{})
	require.NoError(t, err)

	value, err := f.svc.ExtractField(ctx, a.ID, "Vendor")
	require.NoError(t, err)
	assert.Equal(t, "ACME PUMPS", value)
	assert.Contains(t, model.prompts[0], "Task: Extract the field 'Vendor' from this document")

	got, err := f.svc.Analyses().Get(ctx, a.ID)
	require.NoError(t, err)
	vendor, _ := got.ExtractedData.Get("Vendor")
	assert.Equal(t, "ACME PUMPS", vendor)

	require.NoError(t, f.svc.DeleteField(ctx, a.ID, "Vendor"))
	err = f.svc.DeleteField(ctx, a.ID, "Vendor")
	assert.True(t, errors.Is(err, errors.KindNotFound))

	_, err = f.svc.ExtractField(ctx, "nope", "Vendor")
	assert.True(t, errors.Is(err, errors.KindNotFound))
}

func TestService_ChatWithoutModel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	assert.False(t, f.svc.LLMConfigured())

	_, err := f.svc.ChatDocument(ctx, "PID-100-001.pdf", "hello")
	assert.True(t, errors.Is(err, errors.KindInvalidInput))
	_, err = f.svc.ChatAll(ctx, "hello")
	assert.True(t, errors.Is(err, errors.KindInvalidInput))
}

func TestService_ChatAll(t *testing.T) {
	ctx := context.Background()
	model := &echoModel{answer: "One drawing."}
	f := newFixture(t, model)
	pdftest.WriteFile(t, filepath.Join(f.dir, "PID-100-001.pdf"), drawing())
	_, err := f.svc.AnalyzeFile(ctx, "PID-100-001.pdf", AnalyzeOptions{})
	require.NoError(t, err)

	reply, err := f.svc.ChatAll(ctx, "list the file names")
	require.NoError(t, err)
	assert.Equal(t, "One drawing.", reply.Response)
	require.Len(t, reply.Relevant, 1)
	assert.True(t, reply.Relevant[0].Fields.Has(FieldFileName))
	assert.Contains(t, model.prompts[0], "Document: PID-100-001.pdf")
}

func TestService_Exports(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	pdftest.WriteFile(t, filepath.Join(f.dir, "PID-100-001.pdf"), drawing())
	_, err := f.svc.AnalyzeFile(ctx, "PID-100-001.pdf", AnalyzeOptions{ExtractTags: true})
	require.NoError(t, err)

	for name, export := range map[string]func(context.Context) ([]byte, error){
		"instruments": f.svc.ExportInstruments,
		"analyses":    f.svc.ExportAnalyses,
		"datasheets":  f.svc.ExportDatasheets,
	} {
		data, err := export(ctx)
		require.NoError(t, err, name)
		assert.Equal(t, "PK", string(data[:2]), name)
	}

	assert.Equal(t, "instruments_20240601_090000.xlsx", ExportFileName("instruments", testTime))
}
