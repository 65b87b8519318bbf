package sync

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/arne/tubetag/internal/jellyfin"
	"github.com/arne/tubetag/internal/notify"
	"github.com/arne/tubetag/internal/report"
	"github.com/arne/tubetag/internal/scan"
	"github.com/arne/tubetag/internal/util"
	"github.com/schollz/progressbar/v3"
)

// Ledger is the subset of the persistence layer the loop needs
type Ledger interface {
	IsProcessed(filePath string) (bool, error)
	MarkProcessed(filePath, videoID string) error
}

// Library is the subset of the media-server client the loop needs
type Library interface {
	SearchItems(ctx context.Context, term string) ([]jellyfin.ItemRef, error)
	GetItem(ctx context.Context, itemID string) (map[string]any, error)
	UpdateItem(ctx context.Context, itemID string, item map[string]any) error
	RefreshLibrary(ctx context.Context, libraryID string) error
}

// Resolver turns an external video ID into a human-readable title
type Resolver interface {
	ResolveTitle(ctx context.Context, videoID string) (string, error)
}

// Outcome classifies the result of processing one file
type Outcome int

const (
	OutcomeUpdated Outcome = iota
	OutcomeNoTitle
	OutcomeResolveFailed
	OutcomeSearchFailed
	OutcomeNoMatch
	OutcomeFetchFailed
	OutcomeUpdateFailed
	OutcomeError
)

// String returns a short human-readable label for an outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeUpdated:
		return "updated"
	case OutcomeNoTitle:
		return "no title"
	case OutcomeResolveFailed:
		return "title resolution failed"
	case OutcomeSearchFailed:
		return "library search failed"
	case OutcomeNoMatch:
		return "no library match"
	case OutcomeFetchFailed:
		return "item fetch failed"
	case OutcomeUpdateFailed:
		return "item update failed"
	default:
		return "error"
	}
}

// Updated reports whether the file was retitled and recorded
func (o Outcome) Updated() bool {
	return o == OutcomeUpdated
}

// Result is the per-file processing result. Skips carry their reason as
// an Outcome instead of relying on broad error interception.
type Result struct {
	Candidate scan.Candidate
	Outcome   Outcome
	Title     string
	ItemID    string
	Err       error
}

// Config wires the processor's collaborators
type Config struct {
	Ledger   Ledger
	Library  Library
	Resolver Resolver
	Scanner  *scan.Scanner
	Events   *report.EventLogger
	Notifier notify.Service

	Root string

	// FallbackEmbedded uses the file's embedded title tag when the
	// hosting page yields none.
	FallbackEmbedded bool
	// EmbeddedTitle supplies the embedded title for a path; "" when
	// the file carries no usable tag.
	EmbeddedTitle func(path string) string
}

// Processor runs the per-file resolve/search/rename pipeline
type Processor struct {
	ledger   Ledger
	library  Library
	resolver Resolver
	scanner  *scan.Scanner
	events   *report.EventLogger
	notifier notify.Service

	root             string
	fallbackEmbedded bool
	embeddedTitle    func(path string) string
}

// NewProcessor creates a Processor from its collaborators
func NewProcessor(cfg *Config) *Processor {
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NewService("")
	}
	scanner := cfg.Scanner
	if scanner == nil {
		scanner = scan.New(nil)
	}

	return &Processor{
		ledger:           cfg.Ledger,
		library:          cfg.Library,
		resolver:         cfg.Resolver,
		scanner:          scanner,
		events:           cfg.Events,
		notifier:         notifier,
		root:             cfg.Root,
		fallbackEmbedded: cfg.FallbackEmbedded,
		embeddedTitle:    cfg.EmbeddedTitle,
	}
}

// ProcessFile runs the full pipeline for one candidate: resolve the title,
// find the matching library item, rewrite its name, record the file in the
// ledger and trigger a section refresh. Every failure short-circuits into
// a Result; the file stays eligible for the next cycle unless it was
// actually updated.
func (p *Processor) ProcessFile(ctx context.Context, c scan.Candidate) Result {
	util.InfoLog("Found file: %s", c.Path)
	util.DebugLog("Video ID: %s", c.VideoID)

	title, err := p.resolver.ResolveTitle(ctx, c.VideoID)
	p.events.LogResolve(c.Path, c.VideoID, title, err)
	if err != nil {
		return Result{Candidate: c, Outcome: OutcomeResolveFailed, Err: err}
	}
	if title == "" && p.fallbackEmbedded && p.embeddedTitle != nil {
		if embedded := p.embeddedTitle(c.Path); embedded != "" {
			util.DebugLog("Using embedded title for %s: %q", c.VideoID, embedded)
			title = embedded
		}
	}
	if title == "" {
		return Result{Candidate: c, Outcome: OutcomeNoTitle}
	}
	util.InfoLog("Resolved title: %s", title)

	items, err := p.library.SearchItems(ctx, c.VideoID)
	if err != nil {
		return Result{Candidate: c, Outcome: OutcomeSearchFailed, Err: err}
	}
	if len(items) == 0 {
		return Result{Candidate: c, Outcome: OutcomeNoMatch}
	}

	// First search result wins; no secondary disambiguation
	item := items[0]
	util.DebugLog("Matched library item: %s (ID: %s)", item.Name, item.ID)

	record, err := p.library.GetItem(ctx, item.ID)
	if err != nil {
		return Result{Candidate: c, Outcome: OutcomeFetchFailed, ItemID: item.ID, Err: err}
	}

	// Only the display name changes; every other field round-trips as-is
	record["Name"] = title

	err = p.library.UpdateItem(ctx, item.ID, record)
	p.events.LogUpdate(c.Path, c.VideoID, item.ID, title, err)
	if err != nil {
		return Result{Candidate: c, Outcome: OutcomeUpdateFailed, ItemID: item.ID, Err: err}
	}

	if err := p.ledger.MarkProcessed(c.Path, c.VideoID); err != nil {
		// The rename went through but the ledger write did not; the file
		// will be re-attempted next cycle, which is idempotent.
		return Result{Candidate: c, Outcome: OutcomeError, Title: title, ItemID: item.ID,
			Err: fmt.Errorf("ledger write failed: %w", err)}
	}

	util.SuccessLog("Updated library title to: %s", title)

	if parentID, ok := record["ParentId"].(string); ok && parentID != "" {
		err := p.library.RefreshLibrary(ctx, parentID)
		p.events.LogRefresh(parentID, err)
		if err != nil {
			util.WarnLog("Failed to refresh library section %s: %v", parentID, err)
		} else {
			util.DebugLog("Library section %s refreshed", parentID)
		}
	}

	if err := p.notifier.NotifyRetitled(ctx, c.VideoID, title); err != nil {
		util.DebugLog("Notification failed: %v", err)
	}

	return Result{Candidate: c, Outcome: OutcomeUpdated, Title: title, ItemID: item.ID}
}

// CycleReport aggregates the results of one full scan cycle
type CycleReport struct {
	Scanned          int
	AlreadyProcessed int
	Updated          int
	Skipped          int
	Errors           int
	Duration         time.Duration
}

// RunCycle walks the whole tree once and processes every file not yet in
// the ledger. A bad file never halts the cycle; only cancellation does.
func (p *Processor) RunCycle(ctx context.Context) (*CycleReport, error) {
	start := time.Now()
	rep := &CycleReport{}

	var bar *progressbar.ProgressBar
	if util.IsTerminal(os.Stdout.Fd()) && !util.IsQuiet() {
		width := util.GetTerminalWidth() - 40
		if width > 40 {
			width = 40
		}
		if width < 10 {
			width = 10
		}
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Scanning"),
			progressbar.OptionSetWidth(width),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	walkErr := p.scanner.Walk(ctx, p.root, func(c scan.Candidate) error {
		rep.Scanned++
		if bar != nil {
			bar.Add(1)
		}
		p.events.LogScan(c.Path, c.VideoID)

		processed, err := p.ledger.IsProcessed(c.Path)
		if err != nil {
			// Persistence errors fail this file only; prior entries stay intact
			util.ErrorLog("Ledger lookup failed for %s: %v", c.Path, err)
			p.events.LogError(c.Path, err)
			rep.Errors++
			return nil
		}
		if processed {
			rep.AlreadyProcessed++
			return nil
		}

		result := p.ProcessFile(ctx, c)
		switch {
		case result.Outcome.Updated():
			rep.Updated++
		case result.Outcome == OutcomeError:
			rep.Errors++
			util.ErrorLog("Error processing %s: %v", c.Path, result.Err)
			p.events.LogError(c.Path, result.Err)
			if err := p.notifier.NotifyError(ctx, result.Err, c.VideoID); err != nil {
				util.DebugLog("Notification failed: %v", err)
			}
		default:
			rep.Skipped++
			if result.Err != nil {
				util.WarnLog("Skipping %s (%s): %v", c.Path, result.Outcome, result.Err)
			} else {
				util.WarnLog("Skipping %s: %s", c.Path, result.Outcome)
			}
			p.events.LogSkip(c.Path, c.VideoID, result.Outcome.String())
		}

		return nil
	})

	if bar != nil {
		bar.Finish()
	}

	rep.Duration = time.Since(start)

	if walkErr != nil {
		return rep, walkErr
	}

	if rep.Updated == 0 {
		util.InfoLog("No new files found. Waiting before next scan...")
	} else {
		util.SuccessLog("Cycle complete: %d updated, %d skipped, %d errors in %v",
			rep.Updated, rep.Skipped, rep.Errors, rep.Duration.Round(time.Millisecond))
		if err := p.notifier.NotifyCycleCompleted(ctx, rep.Updated, rep.Skipped, rep.Duration); err != nil {
			util.DebugLog("Notification failed: %v", err)
		}
	}

	return rep, nil
}
