package scan

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/arne/tubetag/internal/util"
)

// VideoExtensions are the default supported video file extensions
var VideoExtensions = []string{
	".mp4",
}

// Candidate is a discovered video file paired with the external
// identifier derived from its base name.
type Candidate struct {
	Path    string
	VideoID string
}

// Scanner discovers video files in a directory tree
type Scanner struct {
	extensions map[string]bool
}

// Config holds scanner configuration
type Config struct {
	AdditionalExts []string
}

// New creates a new Scanner
func New(cfg *Config) *Scanner {
	if cfg == nil {
		cfg = &Config{}
	}

	// Build extension map (case-insensitive)
	extMap := make(map[string]bool)
	for _, ext := range VideoExtensions {
		extMap[strings.ToLower(ext)] = true
	}
	for _, ext := range cfg.AdditionalExts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extMap[ext] = true
	}

	return &Scanner{extensions: extMap}
}

// Walk traverses the tree under root and calls fn for every matching file,
// one at a time, in walk order. Access errors are logged and the walk
// continues; an error returned by fn aborts the walk.
func (s *Scanner) Walk(ctx context.Context, root string, fn func(Candidate) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			util.WarnLog("Error accessing path %s: %v", path, err)
			return nil // Continue walking
		}

		if d.IsDir() {
			return nil
		}

		if !s.isVideoFile(path) {
			return nil
		}

		return fn(Candidate{
			Path:    path,
			VideoID: DeriveVideoID(path),
		})
	})
}

// DeriveVideoID returns the external identifier for a file:
// the base name with the extension removed.
func DeriveVideoID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Matches reports whether a path has a supported video extension
func (s *Scanner) Matches(path string) bool {
	return s.isVideoFile(path)
}

// isVideoFile checks if a file has a supported video extension
func (s *Scanner) isVideoFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return s.extensions[ext]
}

// SupportedExtensions returns the list of supported extensions
func (s *Scanner) SupportedExtensions() []string {
	exts := make([]string, 0, len(s.extensions))
	for ext := range s.extensions {
		exts = append(exts, ext)
	}
	return exts
}
