// Package api provides backend interfaces.
package api

import (
	"context"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/models"
)

// Backend is the RPC surface the sync core consumes.
// This interface allows for fakes in tests and alternative transports.
type Backend interface {
	// ListMeetings returns every meeting visible to the account.
	ListMeetings(ctx context.Context) ([]models.Meeting, error)

	// GetMeetingStatus returns the processing status of one meeting.
	GetMeetingStatus(ctx context.Context, meetingID string) (*models.MeetingStatus, error)

	// GetArtifactRetrievalDescriptor returns a time-limited pointer to an artifact's bytes.
	GetArtifactRetrievalDescriptor(ctx context.Context, meetingID string, artifact models.ArtifactType) (*models.RetrievalDescriptor, error)

	// ConfirmDownloadComplete marks the meeting as pulled to the device.
	ConfirmDownloadComplete(ctx context.Context, meetingID string) error

	// GetCloudStatus reports the meeting's storage tier and cloud availability.
	GetCloudStatus(ctx context.Context, meetingID string) (*models.CloudStatus, error)
}

// Ensure *Client implements Backend at compile time.
var _ Backend = (*Client)(nil)
