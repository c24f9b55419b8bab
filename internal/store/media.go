package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Media is uploaded file metadata. The bytes live in a BlobStore keyed
// by the media id.
type Media struct {
	ID          string
	UploaderID  string
	FileName    string
	ContentType string
	MediaType   string
	CreatedAt   int64
}

const mediaColumns = "id, uploader_id, file_name, content_type, media_type, created_at"

// CreateMedia inserts the metadata row and stores data in blobs.
func (s *Store) CreateMedia(ctx context.Context, blobs BlobStore, m *Media, data []byte) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt == 0 {
		m.CreatedAt = nowMillis()
	}
	if err := blobs.Put(ctx, m.ID, data); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO media ("+mediaColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		m.ID, m.UploaderID, m.FileName, m.ContentType, m.MediaType, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting media: %w", err)
	}
	return nil
}

// MediaByID returns the metadata for a media id. mediaType restricts the
// lookup when non-empty.
func (s *Store) MediaByID(ctx context.Context, id, mediaType string) (*Media, error) {
	query := "SELECT " + mediaColumns + " FROM media WHERE id = ?"
	args := []any{id}
	if mediaType != "" {
		query += " AND media_type = ?"
		args = append(args, mediaType)
	}
	var m Media
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&m.ID, &m.UploaderID, &m.FileName, &m.ContentType, &m.MediaType, &m.CreatedAt)
	if err != nil {
		return nil, one(err)
	}
	return &m, nil
}
