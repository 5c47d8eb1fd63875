// Package sync provides download manager interfaces.
package sync

import (
	"context"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/models"
)

// DownloaderInterface defines the interface for artifact downloads.
// This interface allows for mocking in tests and alternative implementations.
type DownloaderInterface interface {
	// Download returns the cached record for an artifact, fetching it on a cache miss.
	// Errors carry one of the TRANSPORT_ERROR, FORBIDDEN, NOT_READY or WRONG_STORAGE codes
	// for failures that reached the backend.
	Download(ctx context.Context, meetingID string, artifact models.ArtifactType) (*models.CachedFileRecord, error)
}

// Ensure *Downloader implements DownloaderInterface at compile time.
var _ DownloaderInterface = (*Downloader)(nil)
