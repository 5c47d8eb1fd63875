package models

// CachedFileRecord is one ledger row of the local file cache.
// There is at most one record per (MeetingID, Filename).
type CachedFileRecord struct {
	MeetingID    string       `db:"meeting_id" json:"meeting_id"`
	Filename     string       `db:"filename" json:"filename"`
	ArtifactType ArtifactType `db:"artifact_type" json:"artifact_type,omitempty"`
	LocalPath    string       `db:"local_path" json:"local_path"`
	SizeBytes    int64        `db:"size_bytes" json:"size_bytes"`
	ContentHash  string       `db:"content_hash" json:"content_hash,omitempty"`
	DownloadedAt int64        `db:"downloaded_at" json:"downloaded_at"`
}

// TableName returns the table name for CachedFileRecord.
func (CachedFileRecord) TableName() string {
	return "cached_files"
}
