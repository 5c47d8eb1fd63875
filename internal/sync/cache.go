// Package sync provides the download manager and local cache for meeting artifacts.
package sync

import (
	"io"
	"sync"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/db"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/errors"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/logging"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/models"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/sync/storage"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/telemetry"
)

// Cache pairs the cached-file ledger with the file store that holds the bytes.
// A ledger entry whose file is missing is treated as absent and dropped on access.
type Cache struct {
	repo    db.CachedFileRepository
	store   *storage.FileStore
	metrics *telemetry.Metrics

	// mu keeps ledger rows and files consistent for readers while they change
	mu sync.Mutex
}

// NewCache creates a new Cache.
func NewCache(repo db.CachedFileRepository, store *storage.FileStore, metrics *telemetry.Metrics) *Cache {
	return &Cache{
		repo:    repo,
		store:   store,
		metrics: metrics,
	}
}

// Lookup returns the record for (meetingID, filename) if the entry exists and
// its file is present with the recorded content hash. A missing or altered file
// is treated as absent and its entry is dropped.
func (c *Cache) Lookup(meetingID, filename string) (*models.CachedFileRecord, bool, error) {
	if _, err := c.store.Path(meetingID, filename); err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rec, found, err := c.repo.GetCachedFile(meetingID, filename)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrDatabase, "failed to read cache index", err)
	}
	if !found {
		return nil, false, nil
	}
	if !c.store.Exists(rec.LocalPath) {
		c.dropDangling(rec)
		return nil, false, nil
	}
	if rec.ContentHash != "" {
		hash, err := storage.CalculateHashFromFile(rec.LocalPath)
		if err != nil {
			return nil, false, err
		}
		if hash != rec.ContentHash {
			c.dropMismatched(rec, hash)
			return nil, false, nil
		}
	}
	return rec, true, nil
}

// Store writes body as filename for meetingID and records it in the ledger.
// The bytes are staged first, the ledger is updated, and only then is the
// staged file moved into place. Any failure leaves the previous record and
// file as they were.
func (c *Cache) Store(meetingID string, artifact models.ArtifactType, body io.Reader) (*models.CachedFileRecord, error) {
	filename := artifact.Filename()

	staged, err := c.store.Stage(meetingID, filename, body)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, hadPrevious, err := c.repo.GetCachedFile(meetingID, filename)
	if err != nil {
		staged.Discard()
		return nil, errors.Wrap(errors.ErrDatabase, "failed to read cache index", err)
	}

	rec := &models.CachedFileRecord{
		MeetingID:    meetingID,
		Filename:     filename,
		ArtifactType: artifact,
		LocalPath:    staged.Path,
		SizeBytes:    staged.SizeBytes,
		ContentHash:  staged.ContentHash,
	}
	if err := c.repo.PutCachedFile(rec); err != nil {
		staged.Discard()
		return nil, errors.Wrap(errors.ErrDatabase, "failed to record cached file", err)
	}

	if err := staged.Commit(); err != nil {
		c.restoreEntry(meetingID, filename, prev, hadPrevious)
		return nil, err
	}
	return rec, nil
}

// Meetings returns the IDs of meetings that have cached files.
func (c *Cache) Meetings() ([]string, error) {
	ids, err := c.repo.ListCachedMeetings()
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to list cached meetings", err)
	}
	return ids, nil
}

// List returns a meeting's cached files in insertion order, dropping entries whose file is gone.
func (c *Cache) List(meetingID string) ([]*models.CachedFileRecord, error) {
	if _, err := c.store.MeetingDir(meetingID); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.repo.ListCachedFiles(meetingID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to list cache index", err)
	}

	live := make([]*models.CachedFileRecord, 0, len(records))
	for _, rec := range records {
		if !c.store.Exists(rec.LocalPath) {
			c.dropDangling(rec)
			continue
		}
		live = append(live, rec)
	}
	return live, nil
}

// Remove deletes one cached file and then its ledger entry.
// It reports whether a ledger entry existed.
func (c *Cache) Remove(meetingID, filename string) (bool, error) {
	path, err := c.store.Path(meetingID, filename)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rec, found, err := c.repo.GetCachedFile(meetingID, filename)
	if err != nil {
		return false, errors.Wrap(errors.ErrDatabase, "failed to read cache index", err)
	}
	if found && rec.LocalPath != "" {
		path = rec.LocalPath
	}

	if err := c.store.Remove(path); err != nil {
		return false, err
	}
	removed, err := c.repo.RemoveCachedFile(meetingID, filename)
	if err != nil {
		return false, errors.Wrap(errors.ErrDatabase, "failed to remove cache entry", err)
	}
	return removed, nil
}

// RemoveAll deletes every cached file for a meeting and then the ledger entries.
func (c *Cache) RemoveAll(meetingID string) (int64, error) {
	if _, err := c.store.MeetingDir(meetingID); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.repo.ListCachedFiles(meetingID)
	if err != nil {
		return 0, errors.Wrap(errors.ErrDatabase, "failed to list cache index", err)
	}

	// Recorded paths first, then whatever is left in the meeting directory
	for _, rec := range records {
		if err := c.store.Remove(rec.LocalPath); err != nil {
			return 0, err
		}
	}
	if err := c.store.RemoveMeeting(meetingID); err != nil {
		return 0, err
	}

	n, err := c.repo.RemoveCachedFiles(meetingID)
	if err != nil {
		return 0, errors.Wrap(errors.ErrDatabase, "failed to remove cache entries", err)
	}
	return n, nil
}

func (c *Cache) dropDangling(rec *models.CachedFileRecord) {
	logging.Warn("Cached file missing on disk, dropping ledger entry", map[string]interface{}{
		"code":       string(errors.ErrCacheCorruption),
		"meeting_id": rec.MeetingID,
		"filename":   rec.Filename,
		"local_path": rec.LocalPath,
	})
	c.metrics.ObserveCacheRecovery()
	c.dropEntry(rec.MeetingID, rec.Filename)
}

func (c *Cache) dropMismatched(rec *models.CachedFileRecord, actual string) {
	logging.Warn("Cached file content changed on disk, dropping it", map[string]interface{}{
		"code":          string(errors.ErrCacheCorruption),
		"meeting_id":    rec.MeetingID,
		"filename":      rec.Filename,
		"local_path":    rec.LocalPath,
		"expected_hash": rec.ContentHash,
		"actual_hash":   actual,
	})
	c.metrics.ObserveCacheRecovery()

	if err := c.store.Remove(rec.LocalPath); err != nil {
		logging.Error("Failed to delete corrupted cached file", err, map[string]interface{}{
			"meeting_id": rec.MeetingID,
			"filename":   rec.Filename,
		})
	}
	c.dropEntry(rec.MeetingID, rec.Filename)
}

// restoreEntry puts back the ledger state from before a failed Store.
func (c *Cache) restoreEntry(meetingID, filename string, prev *models.CachedFileRecord, hadPrevious bool) {
	var err error
	if hadPrevious {
		err = c.repo.PutCachedFile(prev)
	} else {
		_, err = c.repo.RemoveCachedFile(meetingID, filename)
	}
	if err != nil {
		logging.Error("Failed to restore cache entry", err, map[string]interface{}{
			"meeting_id": meetingID,
			"filename":   filename,
		})
	}
}

func (c *Cache) dropEntry(meetingID, filename string) {
	if _, err := c.repo.RemoveCachedFile(meetingID, filename); err != nil {
		logging.Error("Failed to drop cache entry", err, map[string]interface{}{
			"meeting_id": meetingID,
			"filename":   filename,
		})
	}
}
