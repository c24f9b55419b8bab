package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// BlobStore holds raw media bytes keyed by media id. Metadata stays in
// SQLite either way; only the payload moves between backends.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// dbBlobStore keeps blobs in the media_blobs table. This is the default
// backend and what the single-binary deployment uses.
type dbBlobStore struct {
	store *Store
}

// NewDBBlobStore returns a BlobStore backed by the store's database.
func NewDBBlobStore(s *Store) BlobStore {
	return &dbBlobStore{store: s}
}

func (b *dbBlobStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := b.store.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO media_blobs (key, data) VALUES (?, ?)", key, data)
	if err != nil {
		return fmt.Errorf("inserting blob: %w", err)
	}
	return nil
}

func (b *dbBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := b.store.db.QueryRowContext(ctx,
		"SELECT data FROM media_blobs WHERE key = ?", key).Scan(&data)
	if err != nil {
		return nil, one(err)
	}
	return data, nil
}

// S3BlobStore keeps blobs in an S3 bucket under a key prefix.
type S3BlobStore struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3BlobStore creates an S3-backed blob store using the ambient AWS
// credential chain.
func NewS3BlobStore(ctx context.Context, bucket, prefix string) (*S3BlobStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return &S3BlobStore{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (b *S3BlobStore) objectKey(key string) string {
	return path.Join(b.prefix, key)
}

func (b *S3BlobStore) Put(ctx context.Context, key string, data []byte) error {
	objectKey := b.objectKey(key)
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &b.bucket,
		Key:    &objectKey,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("putting s3 object %s: %w", objectKey, err)
	}
	return nil
}

func (b *S3BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	objectKey := b.objectKey(key)
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &b.bucket,
		Key:    &objectKey,
	})
	if err != nil {
		return nil, fmt.Errorf("getting s3 object %s: %w", objectKey, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading s3 object %s: %w", objectKey, err)
	}
	return data, nil
}
