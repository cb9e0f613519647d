package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Terminal states recorded per transcription.
const (
	StatusDone   = "done"
	StatusFailed = "failed"
)

// Transcription is one history row: what was transcribed, with which
// settings, and how it ended.
type Transcription struct {
	ID               string
	SourcePath       string
	OutputDir        string
	Model            string
	Task             string
	Language         string
	DetectedLanguage string
	Status           string
	ErrorMessage     string
	Duration         time.Duration // source media length
	Elapsed          time.Duration
	Formats          string
	CreatedAt        time.Time
}

const transcriptionColumns = "id, source_path, output_dir, model, task, language, detected_language, status, error_message, duration_ms, elapsed_ms, formats, created_at"

// RecordTranscription appends a history row. Missing ID and CreatedAt fields
// are filled in.
func (s *Store) RecordTranscription(ctx context.Context, row *Transcription) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO transcriptions (`+transcriptionColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID,
		row.SourcePath,
		row.OutputDir,
		row.Model,
		row.Task,
		nullableString(row.Language),
		nullableString(row.DetectedLanguage),
		row.Status,
		nullableString(row.ErrorMessage),
		row.Duration.Milliseconds(),
		row.Elapsed.Milliseconds(),
		nullableString(row.Formats),
		row.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert transcription: %w", err)
	}
	return nil
}

// ListTranscriptions returns history rows newest first. limit <= 0 returns
// everything.
func (s *Store) ListTranscriptions(ctx context.Context, limit int) ([]Transcription, error) {
	query := `SELECT ` + transcriptionColumns + ` FROM transcriptions ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transcriptions: %w", err)
	}
	defer rows.Close()

	var items []Transcription
	for rows.Next() {
		item, err := scanTranscription(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ClearHistory removes all transcription rows and returns how many were
// deleted.
func (s *Store) ClearHistory(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transcriptions`)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return res.RowsAffected()
}

func scanTranscription(scanner interface{ Scan(dest ...any) error }) (Transcription, error) {
	var (
		item       Transcription
		language   sql.NullString
		detected   sql.NullString
		errMessage sql.NullString
		formats    sql.NullString
		durationMS int64
		elapsedMS  int64
		createdRaw string
	)
	if err := scanner.Scan(
		&item.ID,
		&item.SourcePath,
		&item.OutputDir,
		&item.Model,
		&item.Task,
		&language,
		&detected,
		&item.Status,
		&errMessage,
		&durationMS,
		&elapsedMS,
		&formats,
		&createdRaw,
	); err != nil {
		return Transcription{}, err
	}

	item.Language = language.String
	item.DetectedLanguage = detected.String
	item.ErrorMessage = errMessage.String
	item.Formats = formats.String
	item.Duration = time.Duration(durationMS) * time.Millisecond
	item.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	return item, nil
}
