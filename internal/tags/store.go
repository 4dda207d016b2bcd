package tags

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/a3tai/mcp-pid-extractor/internal/errors"
	"github.com/a3tai/mcp-pid-extractor/internal/storage"
)

// Default backend keys
const (
	DefaultVocabularyKey = "extracted_data.json"
	DefaultRepairLogKey  = "logs/repair_log.txt"
)

// Processing statuses
const (
	StatusSuccess          = "success"
	StatusAlreadyProcessed = "already_processed"
	StatusError            = "error"
)

// ProcessingResult is the outcome of ProcessDocument
type ProcessingResult struct {
	Status             string   `json:"status"`
	Message            string   `json:"message"`
	Tags               []string `json:"tags"`
	NewAcronyms        []string `json:"new_acronyms"`
	FileKey            string   `json:"file_key,omitempty"`
	TotalWordsAnalyzed int      `json:"total_words_analyzed"`
}

// Stats summarises the vocabulary
type Stats struct {
	TotalFilesProcessed   int            `json:"total_files_processed"`
	TotalInstrumentsFound int            `json:"total_instruments_found"`
	TotalKnownAcronyms    int            `json:"total_known_acronyms"`
	TotalFalsePositives   int            `json:"total_false_positives"`
	InstrumentsByAcronym  map[string]int `json:"instruments_by_acronym"`
}

// Store owns the persistent vocabulary document. All mutations are
// compare-and-swap cycles against the backend.
type Store struct {
	backend      storage.Backend
	key          string
	logKey       string
	logger       *slog.Logger
	now          func() time.Time
	onNewAcronym NewAcronymFunc
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithStoreLogger sets the store logger
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStoreClock sets the clock used for repair log timestamps
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithNewAcronymHook sets the acceptance policy for new acronyms. The hook
// may run more than once for the same document when a write conflict forces
// a retry.
func WithNewAcronymHook(fn NewAcronymFunc) StoreOption {
	return func(s *Store) {
		if fn != nil {
			s.onNewAcronym = fn
		}
	}
}

// WithKeys overrides the vocabulary and repair log keys
func WithKeys(vocabularyKey, repairLogKey string) StoreOption {
	return func(s *Store) {
		if vocabularyKey != "" {
			s.key = vocabularyKey
		}
		if repairLogKey != "" {
			s.logKey = repairLogKey
		}
	}
}

// NewStore creates a vocabulary store over backend
func NewStore(backend storage.Backend, opts ...StoreOption) *Store {
	s := &Store{
		backend:      backend,
		key:          DefaultVocabularyKey,
		logKey:       DefaultRepairLogKey,
		logger:       slog.Default(),
		now:          time.Now,
		onNewAcronym: AcceptAll,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "tag_store", "backend", backend.Name())
	return s
}

// Load returns the stored vocabulary, or the empty default when none exists
func (s *Store) Load(ctx context.Context) (*Vocabulary, error) {
	obj, err := s.backend.Load(ctx, s.key)
	if stderrors.Is(err, storage.ErrNotFound) {
		return NewVocabulary(), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "load vocabulary", err)
	}
	return decodeStored(obj.Data)
}

func decodeStored(data []byte) (*Vocabulary, error) {
	if data == nil {
		return NewVocabulary(), nil
	}
	v, err := DecodeVocabulary(data)
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "decode vocabulary", err)
	}
	return v, nil
}

// ProcessDocument records the tags found in tokens for filename. A filename
// that is already recorded is reported as already processed without writing.
func (s *Store) ProcessDocument(ctx context.Context, filename string, tokens []string) (*ProcessingResult, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, errors.New(errors.KindInvalidInput, "process document", "filename is required")
	}

	logger := s.logger.With("file", filename)
	var (
		result *ProcessingResult
		report RepairReport
		failed error
	)

	err := storage.Update(ctx, s.backend, s.key, func(current []byte) ([]byte, error) {
		v, err := decodeStored(current)
		if err != nil {
			return nil, err
		}

		var repaired *Vocabulary
		repaired, report = RepairAt(v, s.now())

		if _, ok := repaired.FileKeyForPath(filename); ok {
			result = &ProcessingResult{
				Status:      StatusAlreadyProcessed,
				Message:     fmt.Sprintf("File %s already processed", filename),
				Tags:        []string{},
				NewAcronyms: []string{},
			}
			return nil, storage.ErrNoChange
		}

		if len(tokens) == 0 {
			result = &ProcessingResult{
				Status:      StatusError,
				Message:     "could not extract text from PDF",
				Tags:        []string{},
				NewAcronyms: []string{},
			}
			failed = errors.New(errors.KindInputUnreadable, "process document", "could not extract text").WithPath(filename)
			return nil, storage.ErrNoChange
		}

		extractor := &Extractor{OnNewAcronym: s.onNewAcronym}
		scan := extractor.Extract(tokens, repaired.KnownAcronyms(), repaired.NotTags)
		final := FilterNotTags(scan.Tags, repaired.NotTags)

		for _, acr := range scan.Accepted {
			if _, ok := repaired.AcronymsToTypes[acr]; !ok {
				repaired.AcronymsToTypes[acr] = ""
			}
		}

		result = &ProcessingResult{
			Status:             StatusSuccess,
			Message:            fmt.Sprintf("Processed %s - found %d tags", filename, len(final)),
			Tags:               final,
			NewAcronyms:        nonNil(scan.NewAcronyms),
			TotalWordsAnalyzed: len(tokens),
		}
		if len(final) == 0 {
			return nil, storage.ErrNoChange
		}

		result.FileKey = repaired.AddFile(filename, final)
		return repaired.Encode()
	})

	s.appendRepairLog(ctx, report)

	if err != nil {
		return nil, wrapUpdateErr("process document", err)
	}
	if failed != nil {
		logger.Warn("no words extracted from document")
		return result, failed
	}

	logger.Info("document processed",
		"status", result.Status,
		"file_key", result.FileKey,
		"tags", len(result.Tags),
		"new_acronyms", len(result.NewAcronyms))
	return result, nil
}

// Repair runs the structural repair on the stored vocabulary. The document
// is rewritten only when something changed; the log lines are always appended.
func (s *Store) Repair(ctx context.Context) (RepairReport, error) {
	var report RepairReport

	err := storage.Update(ctx, s.backend, s.key, func(current []byte) ([]byte, error) {
		v, err := decodeStored(current)
		if err != nil {
			return nil, err
		}
		var repaired *Vocabulary
		repaired, report = RepairAt(v, s.now())
		if !report.Changed {
			return nil, storage.ErrNoChange
		}
		return repaired.Encode()
	})
	if err != nil {
		return report, wrapUpdateErr("repair vocabulary", err)
	}

	s.appendRepairLog(ctx, report)
	if report.Changed {
		s.logger.Info("vocabulary repaired", "passes", report.Passes)
	}
	return report, nil
}

func (s *Store) appendRepairLog(ctx context.Context, report RepairReport) {
	if len(report.Lines) == 0 {
		return
	}
	entry := strings.Join(report.Lines, "\n")
	if err := s.backend.Append(ctx, s.logKey, []byte(entry)); err != nil {
		s.logger.Warn("failed to append repair log", "key", s.logKey, "error", err)
	}
}

// Stats summarises the stored vocabulary
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	v, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	st := &Stats{
		TotalFilesProcessed:  len(v.Files.PID),
		TotalKnownAcronyms:   len(v.AcronymsToTypes),
		TotalFalsePositives:  len(v.NotTags),
		InstrumentsByAcronym: make(map[string]int),
	}
	for _, recs := range v.Instruments {
		st.TotalInstrumentsFound += len(recs)
		for _, r := range recs {
			st.InstrumentsByAcronym[r.Acronym]++
		}
	}
	return st, nil
}

// TagsForFile returns the instrument records of the file recorded under filename
func (s *Store) TagsForFile(ctx context.Context, filename string) ([]InstrumentRecord, error) {
	v, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	key, ok := v.FileKeyForPath(filename)
	if !ok {
		return nil, errors.New(errors.KindNotFound, "tags for file", "file has not been processed").WithPath(filename)
	}
	return nonNilRecords(v.Instruments[key]), nil
}

// AddNotTag marks acronym as a false positive and removes it from the known
// acronyms. Recorded instruments are left untouched.
func (s *Store) AddNotTag(ctx context.Context, acronym string) error {
	acronym = strings.TrimSpace(acronym)
	if !acronymRegex.MatchString(acronym) {
		return errors.New(errors.KindInvalidInput, "add not tag", fmt.Sprintf("%q is not an acronym", acronym))
	}

	err := s.mutate(ctx, func(v *Vocabulary) bool {
		added := v.AddNotTag(acronym)
		_, known := v.AcronymsToTypes[acronym]
		delete(v.AcronymsToTypes, acronym)
		return added || known
	})
	return wrapUpdateErr("add not tag", err)
}

// ClassifyAcronym sets the instrument type of a known or new acronym
func (s *Store) ClassifyAcronym(ctx context.Context, acronym, instrumentType string) error {
	acronym = strings.TrimSpace(acronym)
	if !acronymRegex.MatchString(acronym) {
		return errors.New(errors.KindInvalidInput, "classify acronym", fmt.Sprintf("%q is not an acronym", acronym))
	}

	var notTag bool
	err := s.mutate(ctx, func(v *Vocabulary) bool {
		if v.IsNotTag(acronym) {
			notTag = true
			return false
		}
		if current, ok := v.AcronymsToTypes[acronym]; ok && current == instrumentType {
			return false
		}
		v.AcronymsToTypes[acronym] = instrumentType
		return true
	})
	if err != nil {
		return wrapUpdateErr("classify acronym", err)
	}
	if notTag {
		return errors.New(errors.KindConflict, "classify acronym", "acronym is marked as not a tag").WithPath(acronym)
	}
	return nil
}

// LinkDatasheet attaches datasheet pages to every instrument of fileKey whose
// tag or unit-less tag equals tag
func (s *Store) LinkDatasheet(ctx context.Context, fileKey, tag, datasheetID string, pages []int) error {
	var found bool
	err := s.mutate(ctx, func(v *Vocabulary) bool {
		recs := v.Instruments[fileKey]
		for i := range recs {
			if recs[i].Tag != tag && recs[i].TagLessUnit != tag {
				continue
			}
			found = true
			recs[i].Datasheet = DatasheetRef{FileID: datasheetID, Pages: append([]int{}, pages...)}
		}
		return found
	})
	if err != nil {
		return wrapUpdateErr("link datasheet", err)
	}
	if !found {
		return errors.New(errors.KindNotFound, "link datasheet", fmt.Sprintf("no instrument %s in %s", tag, fileKey))
	}
	return nil
}

// mutate applies fn to the stored vocabulary; fn reports whether it changed anything
func (s *Store) mutate(ctx context.Context, fn func(v *Vocabulary) bool) error {
	return storage.Update(ctx, s.backend, s.key, func(current []byte) ([]byte, error) {
		v, err := decodeStored(current)
		if err != nil {
			return nil, err
		}
		if !fn(v) {
			return nil, storage.ErrNoChange
		}
		return v.Encode()
	})
}

func wrapUpdateErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var typed *errors.Error
	if stderrors.As(err, &typed) {
		return err
	}
	if stderrors.Is(err, storage.ErrConflict) {
		return errors.Wrap(errors.KindConflict, op, err)
	}
	return errors.Wrap(errors.KindStorage, op, err)
}

// SortedAcronyms returns the acronym keys of Stats.InstrumentsByAcronym in order
func (st *Stats) SortedAcronyms() []string {
	out := make([]string, 0, len(st.InstrumentsByAcronym))
	for a := range st.InstrumentsByAcronym {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilRecords(r []InstrumentRecord) []InstrumentRecord {
	if r == nil {
		return []InstrumentRecord{}
	}
	return r
}
