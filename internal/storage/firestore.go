package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreBackend stores each key as one document of a collection. Saves run
// inside a transaction that checks the stored version counter.
type FirestoreBackend struct {
	client     *firestore.Client
	collection string
	logger     *slog.Logger
}

type firestoreDocument struct {
	Key       string    `firestore:"key"`
	Data      []byte    `firestore:"data"`
	Version   int64     `firestore:"version"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return client, nil
}

// NewFirestoreBackend creates a backend over collection in projectID
func NewFirestoreBackend(ctx context.Context, projectID, collection string, logger *slog.Logger) (*FirestoreBackend, error) {
	if collection == "" {
		return nil, fmt.Errorf("firestore collection must be provided")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := NewFirestoreClient(ctx, projectID)
	if err != nil {
		return nil, err
	}

	return &FirestoreBackend{
		client:     client,
		collection: collection,
		logger:     logger.With("backend", "firestore", "collection", collection),
	}, nil
}

func (f *FirestoreBackend) doc(key string) *firestore.DocumentRef {
	// document ids cannot contain '/'
	return f.client.Collection(f.collection).Doc(url.PathEscape(key))
}

func (f *FirestoreBackend) Load(ctx context.Context, key string) (*Object, error) {
	snap, err := f.doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get firestore document %s: %w", key, err)
	}

	var d firestoreDocument
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decode firestore document %s: %w", key, err)
	}
	return &Object{Key: key, Data: d.Data, Version: strconv.FormatInt(d.Version, 10)}, nil
}

func (f *FirestoreBackend) Save(ctx context.Context, key string, data []byte, version string) (string, error) {
	ref := f.doc(key)
	var next int64

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var current firestoreDocument
		exists := false

		snap, err := tx.Get(ref)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return err
		default:
			exists = snap.Exists()
			if exists {
				if err := snap.DataTo(&current); err != nil {
					return err
				}
			}
		}

		if version != VersionAny {
			if version == VersionNone && exists {
				return ErrConflict
			}
			if version != VersionNone && (!exists || strconv.FormatInt(current.Version, 10) != version) {
				return ErrConflict
			}
		}

		next = current.Version + 1
		return tx.Set(ref, firestoreDocument{
			Key:       key,
			Data:      data,
			Version:   next,
			UpdatedAt: time.Now().UTC(),
		})
	})
	if errors.Is(err, ErrConflict) {
		return "", ErrConflict
	}
	if err != nil {
		return "", fmt.Errorf("firestore transaction for %s: %w", key, err)
	}
	return strconv.FormatInt(next, 10), nil
}

func (f *FirestoreBackend) Delete(ctx context.Context, key string) error {
	_, err := f.doc(key).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete firestore document %s: %w", key, err)
	}
	return nil
}

func (f *FirestoreBackend) List(ctx context.Context, prefix string) ([]string, error) {
	iter := f.client.Collection(f.collection).
		Where("key", ">=", prefix).
		Where("key", "<", prefix+"\uf8ff").
		Documents(ctx)
	defer iter.Stop()

	keys := make([]string, 0)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list firestore documents: %w", err)
		}
		if k, ok := snap.Data()["key"].(string); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Append writes one log entry document to the "<collection>_logs" collection.
// Log entries are not readable through Load.
func (f *FirestoreBackend) Append(ctx context.Context, key string, line []byte) error {
	_, err := f.client.Collection(f.collection+"_logs").Doc(uuid.NewString()).Set(ctx, map[string]interface{}{
		"key":        key,
		"line":       string(line),
		"created_at": firestore.ServerTimestamp,
	})
	if err != nil {
		f.logger.Error("failed to append log entry", "key", key, "error", err)
		return fmt.Errorf("append firestore log %s: %w", key, err)
	}
	return nil
}

func (f *FirestoreBackend) Close() error {
	return f.client.Close()
}

func (f *FirestoreBackend) Name() string { return "firestore" }
