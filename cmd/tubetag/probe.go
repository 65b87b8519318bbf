package main

import (
	"fmt"

	"github.com/arne/tubetag/internal/meta"
	"github.com/arne/tubetag/internal/scan"
	"github.com/arne/tubetag/internal/util"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe <file>",
	Short: "Show what tubetag sees in a single video file",
	Long: `Show the video ID derived from a file's name, whether the file would
be picked up by a scan, and any embedded tags it carries. Handy for
checking a file before pointing the daemon at its folder.`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	path := args[0]
	scanner := scan.New(nil)

	fmt.Printf("File:       %s\n", path)
	fmt.Printf("Video ID:   %s\n", scan.DeriveVideoID(path))
	if scanner.Matches(path) {
		fmt.Printf("Scanned:    yes\n")
	} else {
		fmt.Printf("Scanned:    no (extension not in %v)\n", scanner.SupportedExtensions())
	}

	info, err := meta.Probe(path)
	if err != nil {
		util.WarnLog("No readable embedded tags: %v", err)
		return nil
	}

	fmt.Printf("Format:     %s\n", info.Format)
	fmt.Printf("File type:  %s\n", info.FileType)
	if info.Title != "" {
		fmt.Printf("Title:      %s\n", info.Title)
	}
	if info.Artist != "" {
		fmt.Printf("Artist:     %s\n", info.Artist)
	}
	if info.Year != 0 {
		fmt.Printf("Year:       %d\n", info.Year)
	}

	return nil
}
