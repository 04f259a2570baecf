package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var ErrJobNotFound = errors.New("job not found")

// JobRecord is one row of the jobs table.
type JobRecord struct {
	ID           string
	SourceLang   string
	TargetLang   string
	Backend      string
	SourceChars  int
	Chunks       int
	FailedChunks int
	Status       string
	Error        string
	Output       string
	Duration     time.Duration
	CreatedAt    time.Time
}

// ChunkRecord is the per-chunk outcome stored with a job.
type ChunkRecord struct {
	Index       int
	Source      string
	Translation string
	Error       string
}

type JobStats struct {
	Total        int
	Completed    int
	Failed       int
	Chunks       int
	FailedChunks int
	SourceChars  int
	AvgDuration  time.Duration
}

// SaveJob stores a finished job and its chunks in one transaction.
func (s *Store) SaveJob(ctx context.Context, job JobRecord, chunks []ChunkRecord) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO jobs (id, source_lang, target_lang, backend, source_chars, chunk_count, failed_chunks, status, error, output_text, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.SourceLang, job.TargetLang, job.Backend, job.SourceChars, job.Chunks, job.FailedChunks,
		job.Status, job.Error, job.Output, job.Duration.Milliseconds(), job.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert job %s: %w", job.ID, err)
	}

	for _, c := range chunks {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO job_chunks (job_id, chunk_index, source_text, translated_text, error) VALUES (?, ?, ?, ?, ?)`,
			job.ID, c.Index, c.Source, c.Translation, c.Error)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d of job %s: %w", c.Index, job.ID, err)
		}
	}

	return tx.Commit()
}

const jobColumns = `id, source_lang, target_lang, backend, source_chars, chunk_count, failed_chunks, status, error, output_text, duration_ms, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (JobRecord, error) {
	var (
		j  JobRecord
		ms int64
	)
	err := row.Scan(&j.ID, &j.SourceLang, &j.TargetLang, &j.Backend, &j.SourceChars, &j.Chunks,
		&j.FailedChunks, &j.Status, &j.Error, &j.Output, &ms, &j.CreatedAt)
	j.Duration = time.Duration(ms) * time.Millisecond
	return j, err
}

// GetJob returns a job and its chunks ordered by index.
func (s *Store) GetJob(ctx context.Context, id string) (*JobRecord, []ChunkRecord, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_index, source_text, translated_text, error FROM job_chunks WHERE job_id = ? ORDER BY chunk_index`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var chunks []ChunkRecord
	for rows.Next() {
		var c ChunkRecord
		if err := rows.Scan(&c.Index, &c.Source, &c.Translation, &c.Error); err != nil {
			return nil, nil, err
		}
		chunks = append(chunks, c)
	}
	return &job, chunks, rows.Err()
}

// ListJobs returns the most recent jobs first. limit ≤ 0 returns all.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []JobRecord
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *Store) JobStats(ctx context.Context) (*JobStats, error) {
	stats := &JobStats{}
	var avgMs float64
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(chunk_count), 0),
			COALESCE(SUM(failed_chunks), 0),
			COALESCE(SUM(source_chars), 0),
			COALESCE(AVG(duration_ms), 0)
		FROM jobs`).Scan(
		&stats.Total,
		&stats.Completed,
		&stats.Failed,
		&stats.Chunks,
		&stats.FailedChunks,
		&stats.SourceChars,
		&avgMs,
	)
	if err != nil {
		return nil, err
	}
	stats.AvgDuration = time.Duration(avgMs * float64(time.Millisecond))
	return stats, nil
}

// DeleteJob removes a job and, through the foreign key, its chunks.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return nil
}
