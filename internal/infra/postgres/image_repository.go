package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"goal-image-service/internal/domain"
)

// ListLimit caps the number of records returned by ListRecent.
const ListLimit = 50

// ImageRepository persists image records in the images table.
type ImageRepository struct {
	DB  *DB
	DSN string
}

func NewImageRepository(db *DB, dsn string) *ImageRepository {
	return &ImageRepository{DB: db, DSN: dsn}
}

func (r *ImageRepository) conn() (*sql.DB, error) {
	return r.DB.Get(r.DSN)
}

// EnsureSchema creates the images table and its index when missing.
func (r *ImageRepository) EnsureSchema(ctx context.Context) error {
	db, err := r.conn()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ddl1 := `CREATE TABLE IF NOT EXISTS images (
		image_key TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		type TEXT NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`
	ddl2 := `CREATE INDEX IF NOT EXISTS idx_images_created_at ON images (created_at DESC);`
	if _, err := db.ExecContext(ctx, ddl1); err != nil {
		return fmt.Errorf("create images table: %w", err)
	}
	if _, err := db.ExecContext(ctx, ddl2); err != nil {
		return fmt.Errorf("create images index: %w", err)
	}
	return nil
}

// Save inserts rec, replacing any record with the same key.
func (r *ImageRepository) Save(ctx context.Context, rec domain.ImageRecord) error {
	db, err := r.conn()
	if err != nil {
		return err
	}
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO images (image_key, url, type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (image_key) DO UPDATE
		SET url = EXCLUDED.url, type = EXCLUDED.type, metadata = EXCLUDED.metadata, created_at = EXCLUDED.created_at;`,
		rec.ImageKey, rec.URL, rec.Type, meta, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save image %q: %w", rec.ImageKey, err)
	}
	return nil
}

// DeleteByKey removes the record for key. It returns domain.ErrImageNotFound
// when no row matched.
func (r *ImageRepository) DeleteByKey(ctx context.Context, key string) error {
	db, err := r.conn()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM images WHERE image_key = $1;`, key)
	if err != nil {
		return fmt.Errorf("delete image %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrImageNotFound
	}
	return nil
}

// ListRecent returns the newest ListLimit records, newest first.
func (r *ImageRepository) ListRecent(ctx context.Context) ([]domain.ImageRecord, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT image_key, url, type, metadata, created_at FROM images ORDER BY created_at DESC LIMIT $1;`,
		ListLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ImageRecord, 0)
	for rows.Next() {
		var rec domain.ImageRecord
		var meta []byte
		if err := rows.Scan(&rec.ImageKey, &rec.URL, &rec.Type, &meta, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata of %q: %w", rec.ImageKey, err)
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
