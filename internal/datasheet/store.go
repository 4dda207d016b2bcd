package datasheet

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/a3tai/mcp-pid-extractor/internal/errors"
	"github.com/a3tai/mcp-pid-extractor/internal/storage"
)

const (
	// DefaultIndexKey is the backend key of the shared datasheet index
	DefaultIndexKey = "datasheet_index.json"

	recordPrefix = "datasheets/"
)

func recordKey(id string) string {
	return recordPrefix + id + ".json"
}

// Store keeps datasheet records, one object each, plus a shared index
type Store struct {
	backend  storage.Backend
	indexKey string
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithLogger sets the store logger
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the clock used for timestamps
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets the chat message id generator
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewStore creates a datasheet store over backend
func NewStore(backend storage.Backend, opts ...StoreOption) *Store {
	s := &Store{
		backend:  backend,
		indexKey: DefaultIndexKey,
		logger:   slog.Default(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "datasheet_store", "backend", backend.Name())
	return s
}

// LoadIndex returns the index, or an empty one when none is stored
func (s *Store) LoadIndex(ctx context.Context) (*Index, error) {
	obj, err := s.backend.Load(ctx, s.indexKey)
	if stderrors.Is(err, storage.ErrNotFound) {
		return newIndex(), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "load datasheet index", err)
	}
	return decodeIndex(obj.Data)
}

func decodeIndex(data []byte) (*Index, error) {
	idx := newIndex()
	if data == nil {
		return idx, nil
	}
	if err := json.Unmarshal(data, idx); err != nil {
		return nil, errors.Wrap(errors.KindStorage, "decode datasheet index", err)
	}
	if idx.Documents == nil {
		idx.Documents = map[string]DocumentEntry{}
	}
	if idx.Datasheets == nil {
		idx.Datasheets = map[string]IndexEntry{}
	}
	return idx, nil
}

// updateIndex runs fn inside a compare-and-swap cycle on the index
func (s *Store) updateIndex(ctx context.Context, fn func(*Index) error) error {
	err := storage.Update(ctx, s.backend, s.indexKey, func(current []byte) ([]byte, error) {
		idx, err := decodeIndex(current)
		if err != nil {
			return nil, err
		}
		if err := fn(idx); err != nil {
			return nil, err
		}
		return json.MarshalIndent(idx, "", "  ")
	})
	return wrapUpdateErr("update datasheet index", err)
}

// Exists reports whether a record with id is stored
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.backend.Load(ctx, recordKey(id))
	if stderrors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(errors.KindStorage, "load datasheet", err)
	}
	return true, nil
}

// SaveDocument stores the records of one split document and registers them
// in the index. Record ids must be new.
func (s *Store) SaveDocument(ctx context.Context, documentID, filename string, records []*Record) error {
	const op = "save datasheets"

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return errors.Wrap(errors.KindStorage, op, err)
		}
		if _, err := s.backend.Save(ctx, recordKey(rec.ID), data, storage.VersionNone); err != nil {
			if stderrors.Is(err, storage.ErrConflict) {
				return errors.New(errors.KindConflict, op, "datasheet id already exists").WithPath(rec.ID)
			}
			return errors.Wrap(errors.KindStorage, op, err)
		}
		ids = append(ids, rec.ID)
	}

	processedAt := s.now()
	err := s.updateIndex(ctx, func(idx *Index) error {
		for _, rec := range records {
			idx.Datasheets[rec.ID] = IndexEntry{
				DocumentID:    documentID,
				EquipmentName: rec.EquipmentName,
				Pages:         rec.Pages,
				CreatedAt:     rec.CreatedAt,
			}
		}
		idx.Documents[documentID] = DocumentEntry{
			Filename:        filename,
			ProcessedAt:     processedAt,
			TotalDatasheets: len(ids),
			DatasheetIDs:    ids,
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("datasheets saved", "document_id", documentID, "count", len(ids))
	return nil
}

// Get returns a stored record
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	const op = "get datasheet"

	obj, err := s.backend.Load(ctx, recordKey(id))
	if stderrors.Is(err, storage.ErrNotFound) {
		return nil, errors.New(errors.KindNotFound, op, "datasheet not found").WithPath(id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, op, err)
	}

	var rec Record
	if err := json.Unmarshal(obj.Data, &rec); err != nil {
		return nil, errors.Wrap(errors.KindStorage, op, err)
	}
	return &rec, nil
}

// List returns every indexed datasheet, newest first. Index entries whose
// record is gone are skipped.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	return s.list(ctx, "")
}

// ListByDocument returns the datasheets cut from one document, newest first
func (s *Store) ListByDocument(ctx context.Context, documentID string) ([]Summary, error) {
	return s.list(ctx, documentID)
}

func (s *Store) list(ctx context.Context, documentID string) ([]Summary, error) {
	idx, err := s.LoadIndex(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(idx.Datasheets))
	for id, entry := range idx.Datasheets {
		if documentID != "" && entry.DocumentID != documentID {
			continue
		}
		rec, err := s.Get(ctx, id)
		if errors.Is(err, errors.KindNotFound) {
			s.logger.Warn("index entry without record", "datasheet_id", id)
			continue
		}
		if err != nil {
			return nil, err
		}
		fields := 0
		if rec.ParsedFields != nil {
			fields = rec.ParsedFields.Len()
		}
		out = append(out, Summary{
			ID:            id,
			DocumentID:    entry.DocumentID,
			EquipmentName: entry.EquipmentName,
			Pages:         entry.Pages,
			CreatedAt:     entry.CreatedAt,
			FieldsCount:   fields,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Delete removes a record, its index entry and its id from the parent
// document, whose datasheet count drops by one.
func (s *Store) Delete(ctx context.Context, id string) error {
	const op = "delete datasheet"

	err := s.backend.Delete(ctx, recordKey(id))
	recordMissing := stderrors.Is(err, storage.ErrNotFound)
	if err != nil && !recordMissing {
		return errors.Wrap(errors.KindStorage, op, err)
	}

	indexed := false
	err = s.updateIndex(ctx, func(idx *Index) error {
		entry, ok := idx.Datasheets[id]
		if !ok {
			indexed = false
			return storage.ErrNoChange
		}
		indexed = true
		delete(idx.Datasheets, id)

		doc, ok := idx.Documents[entry.DocumentID]
		if !ok {
			return nil
		}
		kept := make([]string, 0, len(doc.DatasheetIDs))
		for _, other := range doc.DatasheetIDs {
			if other != id {
				kept = append(kept, other)
			}
		}
		if len(kept) != len(doc.DatasheetIDs) {
			doc.DatasheetIDs = kept
			doc.TotalDatasheets = max(0, doc.TotalDatasheets-1)
		}
		idx.Documents[entry.DocumentID] = doc
		return nil
	})
	if err != nil {
		return err
	}

	if recordMissing && !indexed {
		return errors.New(errors.KindNotFound, op, "datasheet not found").WithPath(id)
	}
	s.logger.Info("datasheet deleted", "datasheet_id", id)
	return nil
}

// AppendChat records a question and answer on a datasheet
func (s *Store) AppendChat(ctx context.Context, id, message, response string) (*ChatMessage, error) {
	msg := ChatMessage{
		ID:        s.newID(),
		Timestamp: s.now(),
		Message:   message,
		Response:  response,
	}

	err := storage.Update(ctx, s.backend, recordKey(id), func(current []byte) ([]byte, error) {
		if current == nil {
			return nil, errors.New(errors.KindNotFound, "append chat", "datasheet not found").WithPath(id)
		}
		var rec Record
		if err := json.Unmarshal(current, &rec); err != nil {
			return nil, errors.Wrap(errors.KindStorage, "append chat", err)
		}
		rec.ChatHistory = append(rec.ChatHistory, msg)
		return json.MarshalIndent(&rec, "", "  ")
	})
	if err != nil {
		return nil, wrapUpdateErr("append chat", err)
	}
	return &msg, nil
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
