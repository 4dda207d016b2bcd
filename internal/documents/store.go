package documents

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/a3tai/mcp-pid-extractor/internal/errors"
	"github.com/a3tai/mcp-pid-extractor/internal/intelligence"
	"github.com/a3tai/mcp-pid-extractor/internal/storage"
	"github.com/a3tai/mcp-pid-extractor/internal/tags"
)

const analysisPrefix = "analyses/"

// Analysis statuses
const (
	StatusProcessed  = "processed"
	StatusUnreadable = "unreadable"
)

// Analysis is the stored result of analyzing one PDF
type Analysis struct {
	ID            string                 `json:"id"`
	Filename      string                 `json:"filename"`
	Path          string                 `json:"path"`
	ProcessedAt   time.Time              `json:"processed_at"`
	FileSize      int64                  `json:"file_size"`
	Pages         int                    `json:"pages"`
	Status        string                 `json:"status"`
	ExtractedData *intelligence.FieldMap `json:"extracted_data"`
	Tags          *tags.ProcessingResult `json:"tags,omitempty"`
}

// AnalysisID derives the stable id of the analysis of path
func AnalysisID(path string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+path)).String()
}

func analysisKey(id string) string {
	return analysisPrefix + id + ".json"
}

// AnalysisStore keeps one object per analyzed file
type AnalysisStore struct {
	backend storage.Backend
	logger  *slog.Logger
}

// NewAnalysisStore creates a store over backend
func NewAnalysisStore(backend storage.Backend, logger *slog.Logger) *AnalysisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisStore{
		backend: backend,
		logger:  logger.With("component", "analysis_store", "backend", backend.Name()),
	}
}

// Save stores a, replacing an earlier analysis of the same file
func (s *AnalysisStore) Save(ctx context.Context, a *Analysis) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return errors.Wrap(errors.KindStorage, "save analysis", err)
	}
	if _, err := s.backend.Save(ctx, analysisKey(a.ID), data, storage.VersionAny); err != nil {
		return errors.Wrap(errors.KindStorage, "save analysis", err)
	}
	return nil
}

// Get returns the analysis with id
func (s *AnalysisStore) Get(ctx context.Context, id string) (*Analysis, error) {
	const op = "get analysis"

	obj, err := s.backend.Load(ctx, analysisKey(id))
	if stderrors.Is(err, storage.ErrNotFound) {
		return nil, errors.New(errors.KindNotFound, op, "analysis not found").WithPath(id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, op, err)
	}
	return decodeAnalysis(op, obj.Data)
}

func decodeAnalysis(op string, data []byte) (*Analysis, error) {
	var a Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, errors.Wrap(errors.KindStorage, op, err)
	}
	if a.ExtractedData == nil {
		a.ExtractedData = intelligence.NewFieldMap()
	}
	return &a, nil
}

// List returns every stored analysis, most recent first
func (s *AnalysisStore) List(ctx context.Context) ([]*Analysis, error) {
	keys, err := s.backend.List(ctx, analysisPrefix)
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "list analyses", err)
	}

	out := make([]*Analysis, 0, len(keys))
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		a, err := s.Get(ctx, strings.TrimSuffix(strings.TrimPrefix(key, analysisPrefix), ".json"))
		if errors.Is(err, errors.KindNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ProcessedAt.Equal(out[j].ProcessedAt) {
			return out[i].ProcessedAt.After(out[j].ProcessedAt)
		}
		return out[i].Filename < out[j].Filename
	})
	return out, nil
}

// Delete removes the analysis with id
func (s *AnalysisStore) Delete(ctx context.Context, id string) error {
	err := s.backend.Delete(ctx, analysisKey(id))
	if stderrors.Is(err, storage.ErrNotFound) {
		return errors.New(errors.KindNotFound, "delete analysis", "analysis not found").WithPath(id)
	}
	if err != nil {
		return errors.Wrap(errors.KindStorage, "delete analysis", err)
	}
	s.logger.Info("analysis deleted", "analysis_id", id)
	return nil
}

// SetField stores one extracted value on an analysis
func (s *AnalysisStore) SetField(ctx context.Context, id, name, value string) error {
	return s.mutateFields(ctx, "set field", id, func(fields *intelligence.FieldMap) error {
		fields.Set(name, value)
		return nil
	})
}

// DeleteField removes one extracted value from an analysis
func (s *AnalysisStore) DeleteField(ctx context.Context, id, name string) error {
	return s.mutateFields(ctx, "delete field", id, func(fields *intelligence.FieldMap) error {
		if !fields.Delete(name) {
			return errors.New(errors.KindNotFound, "delete field", "field not found").WithPath(name)
		}
		return nil
	})
}

func (s *AnalysisStore) mutateFields(ctx context.Context, op, id string, fn func(*intelligence.FieldMap) error) error {
	err := storage.Update(ctx, s.backend, analysisKey(id), func(current []byte) ([]byte, error) {
		if current == nil {
			return nil, errors.New(errors.KindNotFound, op, "analysis not found").WithPath(id)
		}
		a, err := decodeAnalysis(op, current)
		if err != nil {
			return nil, err
		}
		if err := fn(a.ExtractedData); err != nil {
			return nil, err
		}
		return json.MarshalIndent(a, "", "  ")
	})
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
