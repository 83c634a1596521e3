package queue

import (
	"database/sql"
	"errors"
	"time"
)

const imageColumns = "position, id, local_ref, attempts, last_error, created_at, updated_at"

func scanImage(scanner interface{ Scan(dest ...any) error }) (*Image, error) {
	var (
		image      Image
		lastError  sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&image.Position,
		&image.ID,
		&image.LocalRef,
		&image.Attempts,
		&lastError,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	image.LastError = lastError.String
	if created, err := parseTimeString(createdRaw); err == nil {
		image.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		image.UpdatedAt = updated
	}
	return &image, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
