package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/arne/tubetag/internal/sync"
	"github.com/arne/tubetag/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the title sync loop until interrupted",
	Long: `Run the polling loop: scan the configured folder for video files,
resolve each new file's title from its video ID, rewrite the matching
library item's display name, and repeat at the configured interval.

Authentication happens once at startup; a failed login exits immediately.
The loop shuts down cleanly on SIGINT or SIGTERM.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("server-url", "s", "", "media server base URL")
	runCmd.Flags().StringP("username", "u", "", "media server username")
	runCmd.Flags().String("password", "", "media server password")
	runCmd.Flags().StringP("scan-folder", "f", "", "folder to scan for video files")
	runCmd.Flags().DurationP("interval", "i", sync.DefaultInterval, "time between scan cycles")
	runCmd.Flags().Bool("watch", false, "also watch the folder and scan early when new files land")
	runCmd.Flags().Bool("fallback-embedded", false, "use the file's embedded title tag when the page has none")
	runCmd.Flags().String("events-dir", "", "directory for JSONL event logs (empty disables)")
	runCmd.Flags().String("ntfy-topic", "", "ntfy topic URL for notifications")
}

func runRun(cmd *cobra.Command, args []string) error {
	bindCommandFlags(cmd)
	applyLogFlags()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.close()

	var kicks <-chan struct{}
	if viper.GetBool("watch") {
		watcher, err := sync.NewWatcher(p.root, p.scanner)
		if err != nil {
			util.WarnLog("Failed to start filesystem watcher: %v", err)
		} else {
			defer watcher.Close()
			go watcher.Run(ctx)
			kicks = watcher.Kicks()
			util.InfoLog("Watching %s for new files", p.root)
		}
	}

	runner := sync.NewRunner(p.processor.RunCycle, p.interval, kicks)

	err = runner.Run(ctx)
	if errors.Is(err, context.Canceled) {
		util.InfoLog("Shutdown complete")
		return nil
	}
	return err
}
