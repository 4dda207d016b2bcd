package tags

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pid-extractor/internal/errors"
	"github.com/a3tai/mcp-pid-extractor/internal/storage"
)

func newTestStore(t *testing.T, opts ...StoreOption) (*Store, *storage.MemoryBackend) {
	t.Helper()
	backend := storage.NewMemoryBackend()
	opts = append([]StoreOption{WithStoreClock(func() time.Time { return repairTime })}, opts...)
	return NewStore(backend, opts...), backend
}

var drawingTokens = []string{"PROCESS", "DIAGRAM", "PT", "1001", "FV", "2001", "PT", "1001", "DWG", "5000"}

func TestStore_ProcessDocument(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t)

	res, err := store.ProcessDocument(ctx, "PID-U100-001.pdf", drawingTokens)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, []string{"PT-1001", "FV-2001", "PT-1001", "DWG-5000"}, res.Tags)
	assert.Equal(t, []string{"PT", "FV", "DWG"}, res.NewAcronyms)
	assert.Equal(t, "file_1", res.FileKey)
	assert.Equal(t, len(drawingTokens), res.TotalWordsAnalyzed)

	v, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, FileEntry{Path: "PID-U100-001.pdf", Unit: "U100", NumberOfInstruments: 4}, v.Files.PID["file_1"])
	assert.Equal(t, "U100-PT-1001", v.Instruments["file_1"][0].Tag)
	assert.Equal(t, map[string]string{"PT": "", "FV": "", "DWG": ""}, v.AcronymsToTypes)

	logObj, err := backend.Load(ctx, DefaultRepairLogKey)
	require.NoError(t, err)
	assert.Contains(t, string(logObj.Data), "no inconsistency found")
}

func TestStore_ProcessDocumentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t)

	_, err := store.ProcessDocument(ctx, "PID-U100-001.pdf", drawingTokens)
	require.NoError(t, err)
	before, err := backend.Load(ctx, DefaultVocabularyKey)
	require.NoError(t, err)

	res, err := store.ProcessDocument(ctx, "PID-U100-001.pdf", []string{"TT", "9999"})
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyProcessed, res.Status)
	assert.Empty(t, res.Tags)

	after, err := backend.Load(ctx, DefaultVocabularyKey)
	require.NoError(t, err)
	assert.Equal(t, string(before.Data), string(after.Data))
	assert.Equal(t, before.Version, after.Version)
}

func TestStore_FileKeysAreMonotonic(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t)

	for _, name := range []string{"PID-A-1.pdf", "PID-B-2.pdf"} {
		_, err := store.ProcessDocument(ctx, name, []string{"PT", "1001"})
		require.NoError(t, err)
	}

	// drop file_2's instruments; repair removes the file on the next run
	err := storage.Update(ctx, backend, DefaultVocabularyKey, func(current []byte) ([]byte, error) {
		v, err := DecodeVocabulary(current)
		require.NoError(t, err)
		delete(v.Instruments, "file_2")
		return v.Encode()
	})
	require.NoError(t, err)

	res, err := store.ProcessDocument(ctx, "PID-C-3.pdf", []string{"LT", "3001"})
	require.NoError(t, err)
	assert.Equal(t, "file_3", res.FileKey, "keys are never reused")

	v, err := store.Load(ctx)
	require.NoError(t, err)
	assert.NotContains(t, v.Files.PID, "file_2")
	assert.Equal(t, 4, v.NextFileID)
}

func TestStore_EmptyTokensAreUnreadable(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t)

	res, err := store.ProcessDocument(ctx, "PID-U1-1.pdf", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindInputUnreadable))
	assert.Equal(t, StatusError, res.Status)

	_, err = backend.Load(ctx, DefaultVocabularyKey)
	assert.ErrorIs(t, err, storage.ErrNotFound, "nothing written")
}

func TestStore_NoTagsNoRecord(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t)

	res, err := store.ProcessDocument(ctx, "PID-U1-1.pdf", []string{"no", "tags", "here"})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Empty(t, res.FileKey)
	assert.Empty(t, res.Tags)

	_, err = backend.Load(ctx, DefaultVocabularyKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_NotTagsAndHook(t *testing.T) {
	ctx := context.Background()
	var asked []string
	store, _ := newTestStore(t, WithNewAcronymHook(func(acr string) bool {
		asked = append(asked, acr)
		return acr == "PT"
	}))

	require.NoError(t, store.AddNotTag(ctx, "DWG"))

	res, err := store.ProcessDocument(ctx, "PID-U100-001.pdf", drawingTokens)
	require.NoError(t, err)
	assert.Equal(t, []string{"PT-1001", "FV-2001", "PT-1001"}, res.Tags)
	assert.Equal(t, []string{"PT", "FV"}, asked)

	v, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"PT": ""}, v.AcronymsToTypes, "rejected acronyms stay pending")
	assert.Equal(t, []string{"DWG"}, v.NotTags)
}

func TestStore_StatsAndTagsForFile(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.ProcessDocument(ctx, "PID-U100-001.pdf", drawingTokens)
	require.NoError(t, err)
	require.NoError(t, store.AddNotTag(ctx, "DWG"))

	st, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalFilesProcessed)
	assert.Equal(t, 4, st.TotalInstrumentsFound)
	assert.Equal(t, 2, st.TotalKnownAcronyms)
	assert.Equal(t, 1, st.TotalFalsePositives)
	assert.Equal(t, 2, st.InstrumentsByAcronym["PT"])
	assert.Equal(t, []string{"DWG", "FV", "PT"}, st.SortedAcronyms())

	recs, err := store.TagsForFile(ctx, "PID-U100-001.pdf")
	require.NoError(t, err)
	assert.Len(t, recs, 4)

	_, err = store.TagsForFile(ctx, "unknown.pdf")
	assert.True(t, errors.Is(err, errors.KindNotFound))
}

func TestStore_ClassifyAndLink(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.ProcessDocument(ctx, "PID-U100-001.pdf", drawingTokens)
	require.NoError(t, err)

	require.NoError(t, store.ClassifyAcronym(ctx, "PT", "pressure transmitter"))
	require.NoError(t, store.AddNotTag(ctx, "DWG"))
	err = store.ClassifyAcronym(ctx, "DWG", "drawing")
	assert.True(t, errors.Is(err, errors.KindConflict))
	err = store.ClassifyAcronym(ctx, "not an acronym", "x")
	assert.True(t, errors.Is(err, errors.KindInvalidInput))

	require.NoError(t, store.LinkDatasheet(ctx, "file_1", "PT-1001", "doc_1_PT_1", []int{2, 3}))
	err = store.LinkDatasheet(ctx, "file_1", "ZZ-0000", "doc_1", nil)
	assert.True(t, errors.Is(err, errors.KindNotFound))

	recs, err := store.TagsForFile(ctx, "PID-U100-001.pdf")
	require.NoError(t, err)
	assert.Equal(t, DatasheetRef{FileID: "doc_1_PT_1", Pages: []int{2, 3}}, recs[0].Datasheet)
	assert.Equal(t, DatasheetRef{FileID: "doc_1_PT_1", Pages: []int{2, 3}}, recs[2].Datasheet)
	assert.Equal(t, []int{}, recs[1].Datasheet.Pages)

	v, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pressure transmitter", v.AcronymsToTypes["PT"])
}

func TestStore_RepairPersistsOnlyChanges(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t)

	data, err := brokenVocabulary().Encode()
	require.NoError(t, err)
	_, err = backend.Save(ctx, DefaultVocabularyKey, data, storage.VersionNone)
	require.NoError(t, err)

	report, err := store.Repair(ctx)
	require.NoError(t, err)
	assert.True(t, report.Changed)

	obj, err := backend.Load(ctx, DefaultVocabularyKey)
	require.NoError(t, err)

	report, err = store.Repair(ctx)
	require.NoError(t, err)
	assert.False(t, report.Changed)

	again, err := backend.Load(ctx, DefaultVocabularyKey)
	require.NoError(t, err)
	assert.Equal(t, obj.Version, again.Version)

	logObj, err := backend.Load(ctx, DefaultRepairLogKey)
	require.NoError(t, err)
	log := string(logObj.Data)
	assert.Equal(t, 1, strings.Count(log, "removed orphan instruments: file_9"))
	assert.Equal(t, 1, strings.Count(log, "no inconsistency found"))
}

func TestStore_InvalidDocumentIsStorageError(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t)

	_, err := backend.Save(ctx, DefaultVocabularyKey, []byte(`{"files": []}`), storage.VersionNone)
	require.NoError(t, err)

	_, err = store.ProcessDocument(ctx, "PID-U1-1.pdf", drawingTokens)
	assert.True(t, errors.Is(err, errors.KindStorage))

	_, err = store.Stats(ctx)
	assert.True(t, errors.Is(err, errors.KindStorage))
}

type failingBackend struct {
	*storage.MemoryBackend
}

func (f failingBackend) Load(context.Context, string) (*storage.Object, error) {
	return nil, stderrors.New("disk on fire")
}

func TestStore_BackendFailureSurfaces(t *testing.T) {
	store := NewStore(failingBackend{storage.NewMemoryBackend()})

	_, err := store.ProcessDocument(context.Background(), "PID-U1-1.pdf", drawingTokens)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindStorage))
	assert.Contains(t, err.Error(), "disk on fire")

	_, err = store.ProcessDocument(context.Background(), "", drawingTokens)
	assert.True(t, errors.Is(err, errors.KindInvalidInput))
}
