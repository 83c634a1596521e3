package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Add enqueues an image at the back of the queue.
func (s *Store) Add(ctx context.Context, localRef string) (*Image, error) {
	localRef = strings.TrimSpace(localRef)
	if localRef == "" {
		return nil, errors.New("local reference is required")
	}
	now := time.Now().UTC()
	id := uuid.NewString()
	res, err := s.execWithRetry(ctx,
		`INSERT INTO queued_images (id, local_ref, attempts, created_at, updated_at) VALUES (?, ?, 0, ?, ?)`,
		id, localRef, formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert queued image: %w", err)
	}
	position, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("queued image position: %w", err)
	}
	return &Image{
		ID:        id,
		LocalRef:  localRef,
		Position:  position,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Get returns the queued image with id, or nil when it is not queued.
func (s *Store) Get(ctx context.Context, id string) (*Image, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+imageColumns+` FROM queued_images WHERE id = ?`, id)
	image, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get queued image: %w", err)
	}
	return image, nil
}

// List returns every queued image in queue order (oldest import first).
func (s *Store) List(ctx context.Context) ([]*Image, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+imageColumns+` FROM queued_images ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("list queued images: %w", err)
	}
	defer rows.Close()

	var images []*Image
	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queued image: %w", err)
		}
		images = append(images, image)
	}
	return images, rows.Err()
}

// Count returns the number of queued images.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM queued_images`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count queued images: %w", err)
	}
	return count, nil
}

// Remove deletes the image from the queue. It reports whether a row was removed.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queued_images WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("remove queued image: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove queued image: %w", err)
	}
	return affected > 0, nil
}

// Clear empties the queue and returns the removed images in queue order so
// callers can delete their local files. The returned rows are exactly the
// rows deleted, even when images are added concurrently.
func (s *Store) Clear(ctx context.Context) ([]*Image, error) {
	ctx = ensureContext(ctx)
	var images []*Image
	err := retryOnBusy(ctx, func() error {
		images = nil
		rows, err := s.db.QueryContext(ctx, `DELETE FROM queued_images RETURNING `+imageColumns)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			image, err := scanImage(rows)
			if err != nil {
				return err
			}
			images = append(images, image)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("clear queue: %w", err)
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Position < images[j].Position })
	return images, nil
}

// RecordFailure bumps the attempt counter and stores the failure reason. The
// image stays queued.
func (s *Store) RecordFailure(ctx context.Context, id, reason string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE queued_images SET attempts = attempts + 1, last_error = ?, updated_at = ? WHERE id = ?`,
		nullableString(reason), formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("record failure: image %s is not queued", id)
	}
	return nil
}
