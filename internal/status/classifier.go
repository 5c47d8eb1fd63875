// Package status maps the backend's open status vocabulary onto a closed set of semantic states.
// Raw status strings are interpreted here and nowhere else.
package status

import "strings"

// SemanticStatus is the core's normalized view of a meeting's processing state.
type SemanticStatus string

const (
	Queued           SemanticStatus = "queued"
	Processing       SemanticStatus = "processing"
	Completed        SemanticStatus = "completed"
	Failed           SemanticStatus = "failed"
	ReadyForDownload SemanticStatus = "ready_for_download"
	Unknown          SemanticStatus = "unknown"
)

// IsTerminal reports whether no further transitions are expected.
func (s SemanticStatus) IsTerminal() bool {
	return s == Completed || s == Failed
}

// String implements fmt.Stringer.
func (s SemanticStatus) String() string {
	return string(s)
}

var (
	readyAliases = set(
		"ready_for_download",
		"ready_for_device_download",
		"pending_download",
		"pending_device_download",
		"awaiting_download",
	)
	completedAliases = set(
		"delivered",
		"completed",
		"complete",
		"done",
		"finished",
		"downloaded_to_device",
	)
	failedAliases = set(
		"failed",
		"failure",
		"error",
		"errored",
		"cancelled",
		"canceled",
	)
	processingAliases = set(
		"processing",
		"in_progress",
		"running",
		"transcribing",
		"summarizing",
		"uploading",
		"converting",
		"generating_summary",
	)
	queuedAliases = set(
		"queued",
		"pending",
		"waiting",
		"uploaded",
		"created",
		"scheduled",
	)
)

func set(values ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}

// normalize lower-cases and folds spaces and dashes to underscores.
func normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// Classify maps a raw status and progress to a SemanticStatus. It is total and pure.
// Ready, completed and failed strings win over progress. Any other string with
// progress >= 100 is Completed.
func Classify(raw string, progress int) SemanticStatus {
	s := normalize(raw)

	if _, ok := readyAliases[s]; ok {
		return ReadyForDownload
	}
	if _, ok := completedAliases[s]; ok {
		return Completed
	}
	if _, ok := failedAliases[s]; ok {
		return Failed
	}
	if progress >= 100 {
		return Completed
	}
	if _, ok := processingAliases[s]; ok {
		return Processing
	}
	if _, ok := queuedAliases[s]; ok {
		return Queued
	}
	return Unknown
}
