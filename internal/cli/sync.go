package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/logging"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/server"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/sync/scheduler"
)

// Sync command flags
var (
	syncOnce  bool
	syncServe bool
	syncForce bool
)

// shutdownTimeout bounds the control server's graceful shutdown.
const shutdownTimeout = 5 * time.Second

func newSyncCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull ready meetings to this device",
		Long: `Run auto-sync: every interval, download the required artifacts of each
meeting that is ready for device download and confirm it to the backend.

Auto-sync only runs when the account keeps files on the device
(auto_sync.requires_device_sync). --force runs it regardless.

Examples:
  # Run one cycle and exit
  meetsync sync --once

  # Run until interrupted, with the local control server
  meetsync sync --serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := deps.App.Service
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			enabled := deps.Config.AutoSync.RequiresDeviceSync || syncForce

			if syncOnce {
				if !enabled {
					fmt.Fprintln(out, "Auto-sync is not required for this account; use --force to run it anyway")
					return nil
				}
				result, err := svc.SyncNow(ctx)
				if err != nil {
					return err
				}
				return printCycle(out, result)
			}

			deps.App.Scheduler.SetEventHandler(scheduler.SyncEventHandlerFunc(func(e scheduler.SyncEvent) {
				fmt.Fprintf(out, "Synced meeting %s\n", e.MeetingID)
			}))

			stop := svc.StartAutoSync(ctx, enabled)
			defer stop()

			if !svc.AutoSyncEnabled() && !syncServe {
				fmt.Fprintln(out, "Auto-sync is not required for this account; use --force to run it anyway")
				return nil
			}

			var srv *server.Server
			errCh := make(chan error, 1)
			if syncServe {
				srv = server.New(svc, deps.App.Metrics)
				go func() { errCh <- srv.Start(deps.Config.ListenAddr) }()
			}

			select {
			case <-ctx.Done():
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("control server: %w", err)
				}
			}

			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logging.Error("Control server shutdown failed", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&syncOnce, "once", false, "run a single cycle and exit")
	cmd.Flags().BoolVar(&syncServe, "serve", false, "serve the local control API on listen_addr")
	cmd.Flags().BoolVar(&syncForce, "force", false, "run even if the account does not require device sync")
	return cmd
}

func printCycle(w io.Writer, result *scheduler.CycleResult) error {
	view := map[string]interface{}{
		"cycle_id":    result.CycleID,
		"skipped":     result.Skipped,
		"eligible":    result.Eligible,
		"confirmed":   nonNil(result.Confirmed),
		"failed":      nonNil(result.Failed),
		"duration_ms": result.Duration.Milliseconds(),
	}
	if result.ListError != nil {
		view["list_error"] = result.ListError.Error()
	}

	return printValue(w, view, func(w io.Writer) {
		switch {
		case result.Skipped:
			fmt.Fprintln(w, "A sync cycle is already running")
		case result.ListError != nil:
			fmt.Fprintf(w, "Sync skipped: %v\n", result.ListError)
		default:
			fmt.Fprintf(w, "Ready: %d  Synced: %d  Pending retry: %d\n",
				result.Eligible, len(result.Confirmed), len(result.Failed))
		}
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
