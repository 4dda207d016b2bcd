package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// Backend kinds accepted by Open
const (
	KindFile      = "file"
	KindGCS       = "gcs"
	KindFirestore = "firestore"
)

// Options selects where a backend keeps its documents
type Options struct {
	Kind       string
	Directory  string // file
	Bucket     string // gcs
	Prefix     string // gcs
	Project    string // firestore
	Collection string // firestore
}

// Open creates the backend named by opts.Kind
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Backend, error) {
	switch opts.Kind {
	case KindFile, "":
		b, err := NewFileBackend(opts.Directory)
		if err != nil {
			return nil, err
		}
		return b, nil
	case KindGCS:
		b, err := NewGCSBackend(ctx, opts.Bucket, opts.Prefix, logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	case KindFirestore:
		b, err := NewFirestoreBackend(ctx, opts.Project, opts.Collection, logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", opts.Kind)
}
