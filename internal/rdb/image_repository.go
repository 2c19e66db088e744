package rdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
)

// ImageRepository provides CRUD over the images table.
type ImageRepository struct {
	db  *sql.DB
	now func() int64
}

func scanImage(row rowScanner) (schema.Image, error) {
	var (
		img       schema.Image
		createdAt int64
	)
	if err := row.Scan(&img.ID, &img.DataURL, &createdAt); err != nil {
		return img, err
	}
	img.CreatedAt = fromMillis(createdAt)
	return img, nil
}

// Create stores an image under a generated id.
func (r *ImageRepository) Create(ctx context.Context, dataURL string) (schema.Image, error) {
	if err := schema.Validate(schema.ImageCreateRequest{DataURL: dataURL}); err != nil {
		return schema.Image{}, err
	}
	id := uuid.NewString()
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO images (id, data_url, created_at) VALUES (?, ?, ?)
		RETURNING id, data_url, created_at`, id, dataURL, r.now())

	img, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return img, fmt.Errorf("create image: no row returned")
	}
	if err != nil {
		return img, fmt.Errorf("create image: %w", err)
	}
	return schema.Parse[schema.Image](img)
}

// FindByID returns the image or nil when absent.
func (r *ImageRepository) FindByID(ctx context.Context, id string) (*schema.Image, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, data_url, created_at FROM images WHERE id = ?`, id)
	img, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get image %s: %w", id, err)
	}
	return schema.Parse[*schema.Image](img)
}

// FindByIDs returns the images that exist among ids, in the order given.
// Absent ids are skipped.
func (r *ImageRepository) FindByIDs(ctx context.Context, ids []string) ([]schema.Image, error) {
	ids = uniqueNonEmpty(ids)
	if len(ids) == 0 {
		return []schema.Image{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, data_url, created_at FROM images WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]schema.Image, len(ids))
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		byID[img.ID] = img
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]schema.Image, 0, len(byID))
	for _, id := range ids {
		if img, ok := byID[id]; ok {
			out = append(out, img)
		}
	}
	return schema.Parse[[]schema.Image](out)
}

// Delete removes an image. Deleting an absent id is not an error.
func (r *ImageRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete image %s: %w", id, err)
	}
	return nil
}

func insertImageTx(ctx context.Context, tx *sql.Tx, img schema.Image) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO images (id, data_url, created_at) VALUES (?, ?, ?)`,
		img.ID, img.DataURL, toMillis(img.CreatedAt))
	if err != nil {
		return conflictOr(err, "insert image "+img.ID)
	}
	return nil
}

func uniqueNonEmpty(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
