// Package db provides the cached-file ledger repository.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/models"
)

// Repository is the Local File Cache Index: a ledger from (meeting, filename)
// to on-disk location. It never touches the files themselves.
type Repository struct {
	db *sql.DB

	// Statements are prepared on first use and cached for reuse
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewRepository creates a new Repository instance.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// PrepareStmt gets or creates a prepared statement from cache.
func (r *Repository) PrepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := r.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := r.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}
	return stmt, nil
}

// Close closes all cached prepared statements.
func (r *Repository) Close() error {
	var firstErr error
	r.stmtCache.Range(func(key, value interface{}) bool {
		if err := value.(*sql.Stmt).Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.stmtCache.Delete(key)
		return true
	})
	return firstErr
}

// =====================================================
// CachedFile Operations
// =====================================================

const cachedFileColumns = `meeting_id, filename, artifact_type, local_path, size_bytes, content_hash, downloaded_at`

func scanCachedFile(scan func(dest ...interface{}) error) (*models.CachedFileRecord, error) {
	var rec models.CachedFileRecord
	var artifact string
	if err := scan(&rec.MeetingID, &rec.Filename, &artifact, &rec.LocalPath,
		&rec.SizeBytes, &rec.ContentHash, &rec.DownloadedAt); err != nil {
		return nil, err
	}
	rec.ArtifactType = models.ArtifactType(artifact)
	return &rec, nil
}

// GetCachedFile looks up the record for (meetingID, filename).
// found is false, with a nil error, when no record exists.
func (r *Repository) GetCachedFile(meetingID, filename string) (rec *models.CachedFileRecord, found bool, err error) {
	stmt, err := r.PrepareStmt(`SELECT ` + cachedFileColumns + ` FROM cached_files WHERE meeting_id = ? AND filename = ?`)
	if err != nil {
		return nil, false, err
	}

	rec, err = scanCachedFile(stmt.QueryRow(meetingID, filename).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached file: %w", err)
	}
	return rec, true, nil
}

// PutCachedFile upserts rec in a single statement. An existing record for the
// same key is overwritten in place and keeps its original insertion position.
func (r *Repository) PutCachedFile(rec *models.CachedFileRecord) error {
	if rec.MeetingID == "" || rec.Filename == "" {
		return fmt.Errorf("cached file requires meeting id and filename")
	}
	if rec.DownloadedAt == 0 {
		rec.DownloadedAt = time.Now().Unix()
	}

	query := `
	INSERT INTO cached_files (` + cachedFileColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(meeting_id, filename) DO UPDATE SET
		artifact_type = excluded.artifact_type,
		local_path = excluded.local_path,
		size_bytes = excluded.size_bytes,
		content_hash = excluded.content_hash,
		downloaded_at = excluded.downloaded_at
	`
	_, err := r.db.Exec(query, rec.MeetingID, rec.Filename, string(rec.ArtifactType), rec.LocalPath,
		rec.SizeBytes, rec.ContentHash, rec.DownloadedAt)
	if err != nil {
		return fmt.Errorf("failed to put cached file: %w", err)
	}
	return nil
}

// ListCachedFiles returns a meeting's records in insertion order.
// Each call runs a fresh query, so iteration can always be restarted.
func (r *Repository) ListCachedFiles(meetingID string) ([]*models.CachedFileRecord, error) {
	rows, err := r.db.Query(`SELECT `+cachedFileColumns+` FROM cached_files WHERE meeting_id = ? ORDER BY rowid`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached files: %w", err)
	}
	defer rows.Close()

	records := []*models.CachedFileRecord{}
	for rows.Next() {
		rec, err := scanCachedFile(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cached file: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListCachedMeetings returns the IDs of meetings that have at least one record.
func (r *Repository) ListCachedMeetings() ([]string, error) {
	rows, err := r.db.Query(`SELECT meeting_id FROM cached_files GROUP BY meeting_id ORDER BY MIN(rowid)`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached meetings: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RemoveCachedFile deletes one record. It reports whether a record existed.
func (r *Repository) RemoveCachedFile(meetingID, filename string) (bool, error) {
	res, err := r.db.Exec(`DELETE FROM cached_files WHERE meeting_id = ? AND filename = ?`, meetingID, filename)
	if err != nil {
		return false, fmt.Errorf("failed to remove cached file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RemoveCachedFiles deletes every record for a meeting and returns how many were removed.
func (r *Repository) RemoveCachedFiles(meetingID string) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM cached_files WHERE meeting_id = ?`, meetingID)
	if err != nil {
		return 0, fmt.Errorf("failed to remove cached files: %w", err)
	}
	return res.RowsAffected()
}
