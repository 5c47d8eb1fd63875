package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/errors"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/models"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/status"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/sync/poller"
)

// Meeting command flags
var (
	statusOnce bool
	filesAll   bool
)

func newStatusCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <meeting-id>",
		Short: "Follow a meeting's processing status",
		Long: `Poll a meeting's processing status and print every update until it
completes or fails. Use --once to print the current status and exit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := deps.App.Service
			out := cmd.OutOrStdout()
			meetingID := args[0]

			if statusOnce {
				u, err := svc.CheckStatus(cmd.Context(), meetingID)
				if err != nil {
					return err
				}
				return printStatus(out, *u)
			}

			terminal := make(chan poller.Update, 1)
			sub, err := svc.SubscribeToStatus(cmd.Context(), meetingID,
				func(u poller.Update) { printStatus(out, u) },
				func(u poller.Update) { terminal <- u },
			)
			if err != nil {
				return err
			}
			defer sub.Cancel()

			select {
			case u := <-terminal:
				return terminalResult(meetingID, u)
			case <-sub.Done():
				select {
				case u := <-terminal:
					return terminalResult(meetingID, u)
				default:
					return nil
				}
			case <-cmd.Context().Done():
				return nil
			}
		},
	}

	cmd.Flags().BoolVar(&statusOnce, "once", false, "print the current status and exit")
	return cmd
}

func terminalResult(meetingID string, u poller.Update) error {
	if u.Status == status.Failed {
		return fmt.Errorf("meeting %s failed processing", meetingID)
	}
	return nil
}

func newFetchCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <meeting-id> <artifact>",
		Short: "Download an artifact into the local cache",
		Long: `Make a meeting artifact available offline. If it is already cached
nothing is downloaded.

Artifacts: transcript, summary, pdf, offline-html, offline-zip`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			artifact, err := models.ParseArtifactType(args[1])
			if err != nil {
				return errors.Wrap(errors.ErrInvalid, "unknown artifact", err)
			}

			rec, err := deps.App.Service.EnsureLocalCopy(cmd.Context(), args[0], artifact)
			if err != nil {
				return err
			}
			return printValue(cmd.OutOrStdout(), toFileView(rec), func(w io.Writer) {
				fmt.Fprintf(w, "%s (%d bytes)\n", rec.LocalPath, rec.SizeBytes)
			})
		},
	}
}

func newFilesCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Manage cached meeting files",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list [meeting-id]",
		Short: "List a meeting's cached files, or every meeting with cached files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				ids, err := deps.App.Service.ListCachedMeetings()
				if err != nil {
					return err
				}
				return printMeetings(cmd.OutOrStdout(), ids)
			}
			files, err := deps.App.Service.ListCachedFiles(args[0])
			if err != nil {
				return err
			}
			return printFiles(cmd.OutOrStdout(), files)
		},
	})

	rm := &cobra.Command{
		Use:   "rm <meeting-id> [filename]",
		Short: "Delete cached files",
		Long: `Delete one cached file, or every cached file of a meeting with --all.

Examples:
  meetsync files rm 42 summary.txt
  meetsync files rm 42 --all`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := deps.App.Service
			out := cmd.OutOrStdout()

			if filesAll {
				if len(args) != 1 {
					return errors.New(errors.ErrInvalid, "--all takes no filename")
				}
				n, err := svc.DeleteAllCachedFiles(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Deleted %d cached files\n", n)
				return nil
			}

			if len(args) != 2 {
				return errors.New(errors.ErrInvalid, "filename is required unless --all is set")
			}
			if err := svc.DeleteCachedFile(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(out, "Deleted %s\n", args[1])
			return nil
		},
	}
	rm.Flags().BoolVar(&filesAll, "all", false, "delete every cached file of the meeting")
	cmd.AddCommand(rm)

	return cmd
}

func newCloudStatusCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "cloud-status <meeting-id>",
		Short: "Show where a meeting's files are stored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := deps.App.Service.CloudStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printValue(cmd.OutOrStdout(), cs, func(w io.Writer) {
				fmt.Fprintf(w, "Storage:       %s\n", cs.StorageLocation)
				fmt.Fprintf(w, "Transcript:    %s\n", inCloud(cs.TranscriptInCloud))
				fmt.Fprintf(w, "Summary:       %s\n", inCloud(cs.SummaryInCloud))
				fmt.Fprintf(w, "Cloud upload:  %t\n", cs.CanUploadToCloud)
			})
		},
	}
}

func inCloud(b bool) string {
	if b {
		return "in cloud"
	}
	return "not in cloud"
}
