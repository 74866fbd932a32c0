package backup

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStore keeps snapshots in a Google Cloud Storage bucket. It assumes
// Application Default Credentials unless an endpoint override is given.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore creates a store for bucket. A non-empty endpoint points the
// client at an emulator and disables authentication.
func NewGCSStore(ctx context.Context, bucket, endpoint string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NewGCSStore: bucket is required")
	}

	var opts []option.ClientOption
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewGCSStore: creating client: %w", err)
	}
	return &GCSStore{
		client: client,
		bucket: bucket,
	}, nil
}

// Close closes the storage client.
func (s *GCSStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Put uploads data as a JSON object.
func (s *GCSStore) Put(ctx context.Context, name string, data []byte) error {
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", s.bucket, name, err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize gs://%s/%s: %w", s.bucket, name, err)
	}
	return nil
}

// Get downloads an object.
func (s *GCSStore) Get(ctx context.Context, name string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open gs://%s/%s: %w", s.bucket, name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", s.bucket, name, err)
	}
	return data, nil
}

// List returns every object whose name starts with prefix.
func (s *GCSStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var objects []ObjectInfo
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gs://%s/%s: %w", s.bucket, prefix, err)
		}
		objects = append(objects, ObjectInfo{
			Name:    attrs.Name,
			Size:    attrs.Size,
			Created: attrs.Created,
		})
	}
	return objects, nil
}

// Ensure GCSStore implements ObjectStore.
var _ ObjectStore = (*GCSStore)(nil)
