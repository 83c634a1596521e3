package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	settingJobCode           = "selected_job_code"
	settingFileType          = "selected_file_type"
	settingJobCodesFetchedAt = "job_codes_fetched_at"
)

// Selection returns the persisted job code and file type.
func (s *Store) Selection(ctx context.Context) (Selection, error) {
	ctx = ensureContext(ctx)
	jobCode, err := s.setting(ctx, settingJobCode)
	if err != nil {
		return Selection{}, err
	}
	fileType, err := s.setting(ctx, settingFileType)
	if err != nil {
		return Selection{}, err
	}
	return Selection{JobCode: jobCode, FileType: fileType}, nil
}

// SelectJobCode stores a new job code and clears the file type selection.
func (s *Store) SelectJobCode(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return errors.New("job code is required")
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := putSetting(ctx, tx, settingJobCode, code); err != nil {
			return err
		}
		return deleteSetting(ctx, tx, settingFileType)
	})
}

// SelectFileType stores the file type for the current job code.
func (s *Store) SelectFileType(ctx context.Context, fileType string) error {
	fileType = strings.TrimSpace(fileType)
	if fileType == "" {
		return errors.New("file type is required")
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return putSetting(ctx, tx, settingFileType, fileType)
	})
}

// ClearSelection forgets both the job code and the file type.
func (s *Store) ClearSelection(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := deleteSetting(ctx, tx, settingJobCode); err != nil {
			return err
		}
		return deleteSetting(ctx, tx, settingFileType)
	})
}

// SaveJobCodes replaces the cached catalogue, preserving the given order.
func (s *Store) SaveJobCodes(ctx context.Context, codes []JobCode, fetchedAt time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM job_codes`); err != nil {
			return fmt.Errorf("clear job codes: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO job_codes (code, name, sort_order) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare job code insert: %w", err)
		}
		defer stmt.Close()
		for i, code := range codes {
			if _, err := stmt.ExecContext(ctx, code.Code, code.Name, i); err != nil {
				return fmt.Errorf("insert job code %q: %w", code.Code, err)
			}
		}
		return putSetting(ctx, tx, settingJobCodesFetchedAt, formatTime(fetchedAt))
	})
}

// CachedJobCodes returns the cached catalogue and when it was fetched. A zero
// time means nothing has been cached yet.
func (s *Store) CachedJobCodes(ctx context.Context) ([]JobCode, time.Time, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT code, name FROM job_codes ORDER BY sort_order ASC`)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("list job codes: %w", err)
	}
	defer rows.Close()

	var codes []JobCode
	for rows.Next() {
		var code JobCode
		if err := rows.Scan(&code.Code, &code.Name); err != nil {
			return nil, time.Time{}, fmt.Errorf("scan job code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, err
	}

	raw, err := s.setting(ctx, settingJobCodesFetchedAt)
	if err != nil {
		return nil, time.Time{}, err
	}
	fetchedAt, _ := parseTimeString(raw)
	return codes, fetchedAt, nil
}

func (s *Store) setting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	return value, nil
}

func putSetting(ctx context.Context, tx *sql.Tx, key, value string) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	); err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

func deleteSetting(ctx context.Context, tx *sql.Tx, key string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}
