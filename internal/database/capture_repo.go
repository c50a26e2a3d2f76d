package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"medcapture/internal/models"
)

// DefaultListLimit applies when List is called with a non-positive limit.
const DefaultListLimit = 50

const captureColumns = `id, source, original_path, compressed_path, width, height,
	original_size, compressed_size, brightness, contrast, clarity, overall,
	is_good, suggestion_kind, suggestion_text, created_at`

type CaptureRepository struct {
	db *DB
}

func NewCaptureRepository(db *DB) *CaptureRepository {
	return &CaptureRepository{db: db}
}

func (r *CaptureRepository) Insert(ctx context.Context, c *models.Capture) error {
	query := `INSERT INTO captures (` + captureColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.conn.ExecContext(ctx, query,
		c.ID,
		c.Source,
		c.OriginalPath,
		c.CompressedPath,
		c.Width,
		c.Height,
		c.OriginalSize,
		c.CompressedSize,
		c.Brightness,
		c.Contrast,
		c.Clarity,
		c.Overall,
		c.IsGood,
		c.SuggestionKind,
		c.SuggestionText,
		c.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert capture: %w", err)
	}
	return nil
}

func (r *CaptureRepository) Get(ctx context.Context, id string) (*models.Capture, error) {
	query := `SELECT ` + captureColumns + ` FROM captures WHERE id = ?`

	c, err := scanCapture(r.db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capture: %w", err)
	}
	return c, nil
}

// List returns up to limit captures, newest first.
func (r *CaptureRepository) List(ctx context.Context, limit int) ([]*models.Capture, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := `SELECT ` + captureColumns + ` FROM captures
		ORDER BY created_at DESC, rowid DESC LIMIT ?`

	rows, err := r.db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query captures: %w", err)
	}
	defer rows.Close()

	captures := make([]*models.Capture, 0)
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan capture: %w", err)
		}
		captures = append(captures, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate captures: %w", err)
	}
	return captures, nil
}

func (r *CaptureRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.conn.ExecContext(ctx, `DELETE FROM captures WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete capture: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete capture: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCapture(s scanner) (*models.Capture, error) {
	c := &models.Capture{}
	err := s.Scan(
		&c.ID,
		&c.Source,
		&c.OriginalPath,
		&c.CompressedPath,
		&c.Width,
		&c.Height,
		&c.OriginalSize,
		&c.CompressedSize,
		&c.Brightness,
		&c.Contrast,
		&c.Clarity,
		&c.Overall,
		&c.IsGood,
		&c.SuggestionKind,
		&c.SuggestionText,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}
