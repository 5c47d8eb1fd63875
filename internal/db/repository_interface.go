// Package db provides repository interfaces for the cached-file ledger.
package db

import (
	"github.com/sidn405/ai-meeting-notes-sub000/internal/models"
)

// CachedFileReader is the read side of the Local File Cache Index.
type CachedFileReader interface {
	// GetCachedFile returns the record for (meetingID, filename); found is false when absent.
	GetCachedFile(meetingID, filename string) (*models.CachedFileRecord, bool, error)

	// ListCachedFiles returns a meeting's records in insertion order.
	ListCachedFiles(meetingID string) ([]*models.CachedFileRecord, error)

	// ListCachedMeetings returns the IDs of meetings with at least one record.
	ListCachedMeetings() ([]string, error)
}

// CachedFileWriter is the write side of the Local File Cache Index.
type CachedFileWriter interface {
	// PutCachedFile atomically upserts a record keyed by (MeetingID, Filename).
	PutCachedFile(rec *models.CachedFileRecord) error

	// RemoveCachedFile deletes one record.
	RemoveCachedFile(meetingID, filename string) (bool, error)

	// RemoveCachedFiles deletes every record of a meeting.
	RemoveCachedFiles(meetingID string) (int64, error)
}

// CachedFileRepository combines both sides of the index.
type CachedFileRepository interface {
	CachedFileReader
	CachedFileWriter
}

// Ensure *Repository implements the interfaces at compile time.
var (
	_ CachedFileReader     = (*Repository)(nil)
	_ CachedFileWriter     = (*Repository)(nil)
	_ CachedFileRepository = (*Repository)(nil)
)
