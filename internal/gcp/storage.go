package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/Lllllllleong/architecturereview/internal/errs"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// ObjectStore reads whole objects from Cloud Storage.
type ObjectStore struct {
	client *storage.Client
}

func NewObjectStore(client *storage.Client) *ObjectStore {
	return &ObjectStore{client: client}
}

// Get returns the object's bytes. A missing bucket or object is reported as
// errs.ErrNotFound.
func (s *ObjectStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	reader, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, fmt.Errorf("%w: gs://%s/%s", errs.ErrNotFound, bucket, key)
		}
		return nil, errs.External("cloud storage", fmt.Errorf("failed to open gs://%s/%s: %w", bucket, key, err))
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errs.External("cloud storage", fmt.Errorf("failed to read gs://%s/%s: %w", bucket, key, err))
	}
	return data, nil
}

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already
// exist. An existing object is not an error: writes are idempotent per name.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName, content string) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType(objectName)

	if _, err := io.Copy(writer, strings.NewReader(content)); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			slog.Info("Object already exists, skipping write.", "gcsObject", objectName)
			return nil
		}
		slog.Error("Failed to copy content to GCS object.", "gcsObject", objectName, "error", err)
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			slog.Info("Object already exists, skipping write.", "gcsObject", objectName)
			return nil
		}
		slog.Error("Failed to close GCS writer.", "gcsObject", objectName, "error", err)
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

func contentType(objectName string) string {
	switch {
	case strings.HasSuffix(objectName, ".json"):
		return "application/json"
	case strings.HasSuffix(objectName, ".md"):
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}
