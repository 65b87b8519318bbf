package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/arne/tubetag/internal/jellyfin"
	"github.com/arne/tubetag/internal/ledger"
	"github.com/arne/tubetag/internal/meta"
	"github.com/arne/tubetag/internal/notify"
	"github.com/arne/tubetag/internal/report"
	"github.com/arne/tubetag/internal/scan"
	"github.com/arne/tubetag/internal/sync"
	"github.com/arne/tubetag/internal/util"
	"github.com/arne/tubetag/internal/youtube"
	"github.com/spf13/viper"
)

func youtubeResolver() *youtube.Resolver {
	return youtube.NewResolver(viper.GetString("youtube_url"))
}

// pipeline bundles everything a scan cycle needs, plus the resources
// that must be released on shutdown.
type pipeline struct {
	processor *sync.Processor
	scanner   *scan.Scanner
	root      string
	interval  time.Duration

	ledger   *ledger.Ledger
	resolver interface{ Close() }
	events   *report.EventLogger
}

func (p *pipeline) close() {
	if p.events != nil {
		p.events.Close()
	}
	if p.resolver != nil {
		p.resolver.Close()
	}
	if p.ledger != nil {
		p.ledger.Close()
	}
}

// newPipeline reads the configuration, opens the ledger, authenticates
// against the media server and assembles the processor. Authentication
// failure here is fatal: the caller exits instead of looping.
func newPipeline(ctx context.Context) (*pipeline, error) {
	serverURL := viper.GetString("server_url")
	username := viper.GetString("username")
	password := viper.GetString("password")
	scanFolder := viper.GetString("scan_folder")

	if serverURL == "" {
		return nil, fmt.Errorf("%w: server_url is required", util.ErrInvalidConfig)
	}
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", util.ErrInvalidConfig)
	}
	if scanFolder == "" {
		return nil, fmt.Errorf("%w: scan_folder is required", util.ErrInvalidConfig)
	}
	if _, err := os.Stat(scanFolder); os.IsNotExist(err) {
		return nil, fmt.Errorf("scan folder does not exist: %s", scanFolder)
	}

	interval := viper.GetDuration("interval")
	if interval <= 0 {
		interval = sync.DefaultInterval
	}

	dbPath := viper.GetString("db")
	util.InfoLog("Opening ledger: %s", dbPath)
	db, err := ledger.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	client := jellyfin.NewClient(serverURL, username, password)
	if err := client.Authenticate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	util.SuccessLog("Jellyfin authentication successful")

	resolver := youtubeResolver()
	scanner := scan.New(&scan.Config{AdditionalExts: viper.GetStringSlice("extensions")})

	// Event log is best effort; the console log is the primary surface
	var events *report.EventLogger
	if dir := viper.GetString("events_dir"); dir != "" {
		level := report.LevelInfo
		if util.IsQuiet() {
			level = report.LevelWarning
		} else if util.IsVerbose() {
			level = report.LevelDebug
		}
		events, err = report.NewEventLogger(dir, level)
		if err != nil {
			util.WarnLog("Failed to create event logger: %v", err)
			events = report.NullLogger()
		} else {
			util.InfoLog("Event log: %s", events.Path())
		}
	}

	processor := sync.NewProcessor(&sync.Config{
		Ledger:           db,
		Library:          client,
		Resolver:         resolver,
		Scanner:          scanner,
		Events:           events,
		Notifier:         notify.NewService(viper.GetString("ntfy_topic")),
		Root:             scanFolder,
		FallbackEmbedded: viper.GetBool("fallback_embedded"),
		EmbeddedTitle:    meta.EmbeddedTitle,
	})

	return &pipeline{
		processor: processor,
		scanner:   scanner,
		root:      scanFolder,
		interval:  interval,
		ledger:    db,
		resolver:  resolver,
		events:    events,
	}, nil
}
