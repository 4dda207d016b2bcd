package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// GCSBackend stores objects in a Cloud Storage bucket. Object generations
// serve as version tokens, so saves are conditional writes.
type GCSBackend struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
	prefix string
	logger *slog.Logger
}

// NewGCSBackend creates a backend for bucket; every key is stored below prefix
func NewGCSBackend(ctx context.Context, bucket, prefix string, logger *slog.Logger) (*GCSBackend, error) {
	if bucket == "" {
		return nil, fmt.Errorf("GCS bucket must be provided")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &GCSBackend{
		client: client,
		bucket: client.Bucket(bucket),
		prefix: prefix,
		logger: logger.With("backend", "gcs", "bucket", bucket),
	}, nil
}

func (g *GCSBackend) objectName(key string) string {
	return g.prefix + key
}

// isPreconditionFailed reports a 412 from a conditional write
func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

func (g *GCSBackend) Load(ctx context.Context, key string) (*Object, error) {
	r, err := g.bucket.Object(g.objectName(key)).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open gcs object %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gcs object %s: %w", key, err)
	}
	return &Object{Key: key, Data: data, Version: strconv.FormatInt(r.Attrs.Generation, 10)}, nil
}

func (g *GCSBackend) Save(ctx context.Context, key string, data []byte, version string) (string, error) {
	obj := g.bucket.Object(g.objectName(key))
	switch version {
	case VersionAny:
	case VersionNone:
		obj = obj.If(gcs.Conditions{DoesNotExist: true})
	default:
		gen, err := strconv.ParseInt(version, 10, 64)
		if err != nil {
			return "", fmt.Errorf("invalid gcs generation %q: %w", version, err)
		}
		obj = obj.If(gcs.Conditions{GenerationMatch: gen})
	}

	w := obj.NewWriter(ctx)
	w.ContentType = contentTypeFor(key)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		if isPreconditionFailed(err) {
			return "", ErrConflict
		}
		return "", fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			g.logger.Debug("conditional write lost", "key", key, "version", version)
			return "", ErrConflict
		}
		return "", fmt.Errorf("failed to finalize GCS write: %w", err)
	}

	return strconv.FormatInt(w.Attrs().Generation, 10), nil
}

func (g *GCSBackend) Delete(ctx context.Context, key string) error {
	err := g.bucket.Object(g.objectName(key)).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete gcs object %s: %w", key, err)
	}
	return nil
}

func (g *GCSBackend) List(ctx context.Context, prefix string) ([]string, error) {
	it := g.bucket.Objects(ctx, &gcs.Query{Prefix: g.objectName(prefix)})
	keys := make([]string, 0)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gcs objects: %w", err)
		}
		keys = append(keys, strings.TrimPrefix(attrs.Name, g.prefix))
	}
	return keys, nil
}

// Append emulates an append with a generation-checked rewrite; Cloud Storage
// objects are immutable.
func (g *GCSBackend) Append(ctx context.Context, key string, line []byte) error {
	return Update(ctx, g, key, func(current []byte) ([]byte, error) {
		next := append(append([]byte(nil), current...), line...)
		if len(line) == 0 || line[len(line)-1] != '\n' {
			next = append(next, '\n')
		}
		return next, nil
	})
}

func (g *GCSBackend) Close() error {
	return g.client.Close()
}

func (g *GCSBackend) Name() string { return "gcs" }

func contentTypeFor(key string) string {
	switch {
	case strings.HasSuffix(key, ".json"):
		return "application/json"
	case strings.HasSuffix(key, ".pdf"):
		return "application/pdf"
	default:
		return "text/plain; charset=utf-8"
	}
}
