package meta

import (
	"fmt"
	"os"

	"github.com/dhowden/tag"
)

// Info is the embedded metadata read from a media file
type Info struct {
	Format   string
	FileType string
	Title    string
	Artist   string
	Year     int
}

// Probe reads the embedded tags of a media file
func Probe(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	return &Info{
		Format:   string(m.Format()),
		FileType: string(m.FileType()),
		Title:    m.Title(),
		Artist:   m.Artist(),
		Year:     m.Year(),
	}, nil
}

// EmbeddedTitle returns the title tag embedded in a media file, or ""
// when the file carries no usable tag. Used as an optional fallback when
// the hosting page yields no title.
func EmbeddedTitle(path string) string {
	info, err := Probe(path)
	if err != nil {
		return ""
	}
	return info.Title
}
