package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/models"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/sync/poller"
)

// Output formats accepted by --output.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

func validateOutputFormat(format string) error {
	switch format {
	case OutputText, OutputJSON, OutputYAML:
		return nil
	default:
		return fmt.Errorf("invalid output format %q: must be text, json, or yaml", format)
	}
}

// printValue writes v in the selected format. text renders the human form.
func printValue(w io.Writer, v interface{}, text func(io.Writer)) error {
	switch outputFormat {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		text(w)
		return nil
	}
}

// statusView is the printable form of a status update.
type statusView struct {
	MeetingID string `json:"meeting_id" yaml:"meeting_id"`
	Status    string `json:"status" yaml:"status"`
	RawStatus string `json:"raw_status" yaml:"raw_status"`
	Progress  int    `json:"progress" yaml:"progress"`
	Step      string `json:"step,omitempty" yaml:"step,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

func toStatusView(u poller.Update) statusView {
	v := statusView{
		MeetingID: u.MeetingID,
		Status:    u.Status.String(),
		RawStatus: u.RawStatus,
		Progress:  u.Progress,
		Step:      u.Step,
	}
	if u.Err != nil {
		v.Error = u.Err.Error()
	}
	return v
}

func printStatus(w io.Writer, u poller.Update) error {
	return printValue(w, toStatusView(u), func(w io.Writer) {
		if u.Err != nil {
			fmt.Fprintf(w, "%s  error checking status, retrying\n", u.MeetingID)
			return
		}
		line := fmt.Sprintf("%s  %-18s %3d%%", u.MeetingID, u.Status, u.Progress)
		if u.Step != "" {
			line += "  " + u.Step
		}
		fmt.Fprintln(w, line)
	})
}

// fileView is the printable form of a cached file.
type fileView struct {
	MeetingID    string `json:"meeting_id" yaml:"meeting_id"`
	Filename     string `json:"filename" yaml:"filename"`
	Artifact     string `json:"artifact_type,omitempty" yaml:"artifact_type,omitempty"`
	LocalPath    string `json:"local_path" yaml:"local_path"`
	SizeBytes    int64  `json:"size_bytes" yaml:"size_bytes"`
	ContentHash  string `json:"content_hash,omitempty" yaml:"content_hash,omitempty"`
	DownloadedAt string `json:"downloaded_at" yaml:"downloaded_at"`
}

func toFileView(rec *models.CachedFileRecord) fileView {
	return fileView{
		MeetingID:    rec.MeetingID,
		Filename:     rec.Filename,
		Artifact:     string(rec.ArtifactType),
		LocalPath:    rec.LocalPath,
		SizeBytes:    rec.SizeBytes,
		ContentHash:  rec.ContentHash,
		DownloadedAt: time.Unix(rec.DownloadedAt, 0).UTC().Format(time.RFC3339),
	}
}

func printFiles(w io.Writer, records []*models.CachedFileRecord) error {
	views := make([]fileView, 0, len(records))
	for _, rec := range records {
		views = append(views, toFileView(rec))
	}
	return printValue(w, views, func(w io.Writer) {
		if len(views) == 0 {
			fmt.Fprintln(w, "No cached files")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "FILENAME\tSIZE\tDOWNLOADED\tPATH")
		for _, v := range views {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", v.Filename, v.SizeBytes, v.DownloadedAt, v.LocalPath)
		}
		tw.Flush()
	})
}

// printMeetings prints the IDs of meetings that have cached files.
func printMeetings(w io.Writer, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	return printValue(w, ids, func(w io.Writer) {
		if len(ids) == 0 {
			fmt.Fprintln(w, "No cached meetings")
			return
		}
		for _, id := range ids {
			fmt.Fprintln(w, id)
		}
	})
}
