package session

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context, limit int) ([]*Session, error)
	MarkCompleted(ctx context.Context, id string, frameCount, significantFrameCount int, summary string, hasAudio bool) error
	MarkFailed(ctx context.Context, id, errorMsg string) error
	FailInterrupted(ctx context.Context) (int64, error)
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, s *Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, source, status, frame_count, significant_frame_count, summary, has_audio, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Source, s.Status, s.FrameCount, s.SignificantFrameCount, nullString(s.Summary), boolToInt(s.HasAudio),
		nullString(s.Error), s.CreatedAt.Format(time.RFC3339), s.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, source, status, frame_count, significant_frame_count, summary, has_audio, error, created_at, updated_at
		FROM sessions WHERE id = ?
	`, id)
	return r.scanSession(row)
}

func (r *SQLiteRepository) scanSession(row *sql.Row) (*Session, error) {
	var s Session
	var hasAudio int
	var summary, errorMsg sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&s.ID, &s.Source, &s.Status, &s.FrameCount, &s.SignificantFrameCount, &summary, &hasAudio, &errorMsg, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.Summary = summary.String
	s.Error = errorMsg.String
	s.HasAudio = hasAudio == 1
	s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	s.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &s, nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source, status, frame_count, significant_frame_count, summary, has_audio, error, created_at, updated_at
		FROM sessions ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var s Session
		var hasAudio int
		var summary, errorMsg sql.NullString
		var createdAt, updatedAt string

		if err := rows.Scan(&s.ID, &s.Source, &s.Status, &s.FrameCount, &s.SignificantFrameCount, &summary, &hasAudio, &errorMsg, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		s.Summary = summary.String
		s.Error = errorMsg.String
		s.HasAudio = hasAudio == 1
		s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		s.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

func (r *SQLiteRepository) MarkCompleted(ctx context.Context, id string, frameCount, significantFrameCount int, summary string, hasAudio bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET status = ?, frame_count = ?, significant_frame_count = ?, summary = ?, has_audio = ?, updated_at = ?
		WHERE id = ?
	`, StatusCompleted, frameCount, significantFrameCount, nullString(summary), boolToInt(hasAudio),
		time.Now().UTC().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) MarkFailed(ctx context.Context, id, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, StatusFailed, nullString(errorMsg), time.Now().UTC().Format(time.RFC3339), id)
	return err
}

// FailInterrupted marks sessions left running by a previous process as
// failed. Called once at startup; returns how many sessions were affected.
func (r *SQLiteRepository) FailInterrupted(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET status = ?, error = ?, updated_at = ? WHERE status = ?
	`, StatusFailed, "interrupted by restart", time.Now().UTC().Format(time.RFC3339), StatusRunning)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
