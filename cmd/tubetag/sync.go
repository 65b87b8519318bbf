package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/arne/tubetag/internal/util"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a single scan cycle and exit",
	Long: `Scan the configured folder once, retitle every new video, and exit.
Useful from cron or for a first run before starting the daemon.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringP("server-url", "s", "", "media server base URL")
	syncCmd.Flags().StringP("username", "u", "", "media server username")
	syncCmd.Flags().String("password", "", "media server password")
	syncCmd.Flags().StringP("scan-folder", "f", "", "folder to scan for video files")
	syncCmd.Flags().Bool("fallback-embedded", false, "use the file's embedded title tag when the page has none")
	syncCmd.Flags().String("events-dir", "", "directory for JSONL event logs (empty disables)")
	syncCmd.Flags().String("ntfy-topic", "", "ntfy topic URL for notifications")
}

func runSync(cmd *cobra.Command, args []string) error {
	bindCommandFlags(cmd)
	applyLogFlags()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.close()

	report, err := p.processor.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("cycle failed: %w", err)
	}

	util.InfoLog("Scanned:           %d", report.Scanned)
	util.InfoLog("Already processed: %d", report.AlreadyProcessed)
	util.InfoLog("Updated:           %d", report.Updated)
	util.InfoLog("Skipped:           %d", report.Skipped)
	util.InfoLog("Errors:            %d", report.Errors)
	util.InfoLog("Duration:          %s", report.Duration.Round(time.Millisecond))

	if report.Errors > 0 {
		util.WarnLog("Completed with %d error(s); see the log above", report.Errors)
	}
	return nil
}
