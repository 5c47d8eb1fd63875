// Package models provides data model definitions for the meeting sync core.
package models

import (
	"fmt"
	"time"
)

// StorageTier is where a meeting's artifacts live.
type StorageTier string

const (
	StorageTierLocal StorageTier = "local"
	StorageTierCloud StorageTier = "cloud"
)

// IsValid reports whether the tier is one of the known tiers.
func (t StorageTier) IsValid() bool {
	return t == StorageTierLocal || t == StorageTierCloud
}

// Meeting is the server-owned view of a meeting. The core never mutates it.
type Meeting struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	CreatedAt       time.Time   `json:"created_at"`
	Status          string      `json:"status"`
	Progress        int         `json:"progress"`
	StorageLocation StorageTier `json:"storage_location"`
	HasTranscript   bool        `json:"has_transcript"`
	HasSummary      bool        `json:"has_summary"`
}

// MeetingStatus is the payload returned by the job-status endpoint.
type MeetingStatus struct {
	Status        string `json:"status"`
	Progress      int    `json:"progress"`
	Step          string `json:"step"`
	HasTranscript bool   `json:"has_transcript"`
	HasSummary    bool   `json:"has_summary"`
}

// RetrievalDescriptor is a time-limited pointer to an artifact's bytes.
// LocationURI is opaque to the core; it is handed to the fetcher for StorageTier as is.
type RetrievalDescriptor struct {
	LocationURI string      `json:"location_uri"`
	StorageTier StorageTier `json:"storage_tier"`
}

// CloudStatus describes where a meeting's files are stored and what can move to the cloud.
type CloudStatus struct {
	StorageLocation   StorageTier `json:"storage_location"`
	TranscriptInCloud bool        `json:"transcript_in_cloud"`
	SummaryInCloud    bool        `json:"summary_in_cloud"`
	CanUploadToCloud  bool        `json:"can_upload_to_cloud"`
}

// ArtifactType names a derived file the backend produces for a meeting.
type ArtifactType string

const (
	ArtifactTranscript  ArtifactType = "transcript"
	ArtifactSummary     ArtifactType = "summary"
	ArtifactPDF         ArtifactType = "pdf"
	ArtifactOfflineHTML ArtifactType = "offline-html"
	ArtifactOfflineZip  ArtifactType = "offline-zip"
)

var artifactFilenames = map[ArtifactType]string{
	ArtifactTranscript:  "transcript.txt",
	ArtifactSummary:     "summary.txt",
	ArtifactPDF:         "report.pdf",
	ArtifactOfflineHTML: "offline.html",
	ArtifactOfflineZip:  "offline.zip",
}

// AllArtifactTypes returns the closed set of artifact types in a stable order.
func AllArtifactTypes() []ArtifactType {
	return []ArtifactType{
		ArtifactTranscript,
		ArtifactSummary,
		ArtifactPDF,
		ArtifactOfflineHTML,
		ArtifactOfflineZip,
	}
}

// IsValid reports whether the artifact type is part of the closed set.
func (a ArtifactType) IsValid() bool {
	_, ok := artifactFilenames[a]
	return ok
}

// Filename returns the canonical on-device filename for the artifact.
func (a ArtifactType) Filename() string {
	return artifactFilenames[a]
}

// ParseArtifactType validates a raw artifact name.
func ParseArtifactType(s string) (ArtifactType, error) {
	a := ArtifactType(s)
	if !a.IsValid() {
		return "", fmt.Errorf("unknown artifact type %q", s)
	}
	return a, nil
}
