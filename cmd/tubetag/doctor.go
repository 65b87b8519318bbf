package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/arne/tubetag/internal/jellyfin"
	"github.com/arne/tubetag/internal/ledger"
	"github.com/arne/tubetag/internal/util"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and configuration",
	Long: `Run diagnostic checks to ensure tubetag can operate correctly.

This command checks:
- SQLite availability
- Ledger database accessibility and integrity
- Scan folder readability
- Media server connectivity and credentials

Use this command to troubleshoot issues before starting the daemon.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().StringP("server-url", "s", "", "media server base URL")
	doctorCmd.Flags().StringP("username", "u", "", "media server username")
	doctorCmd.Flags().String("password", "", "media server password")
	doctorCmd.Flags().StringP("scan-folder", "f", "", "folder to scan for video files")
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	bindCommandFlags(cmd)
	applyLogFlags()

	util.InfoLog("=== tubetag Doctor - System Diagnostics ===")
	util.InfoLog("")

	results := []checkResult{}

	// 1. Check SQLite
	results = append(results, checkSQLite())

	// 2. Check ledger database
	results = append(results, checkLedger(viper.GetString("db")))

	// 3. Check scan folder
	if folder := viper.GetString("scan_folder"); folder != "" {
		results = append(results, checkScanFolder(folder))
	} else {
		results = append(results, checkResult{
			name:    "Scan folder",
			warning: true,
			message: "no scan_folder configured",
		})
	}

	// 4. Check media server connectivity
	results = append(results, checkServer())

	// Print results
	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("Some critical checks failed. Resolve errors before running tubetag.")
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("All checks passed! Ready to sync.")
	}

	return nil
}

// checkSQLite verifies the embedded SQLite works
func checkSQLite() checkResult {
	// modernc.org/sqlite needs no external library; just ask for the version
	version := ledger.SQLiteVersion()
	if version == "" {
		return checkResult{
			name:    "SQLite",
			error:   true,
			message: "unable to determine version",
		}
	}

	return checkResult{
		name:    "SQLite",
		message: fmt.Sprintf("version %s (built-in)", version),
	}
}

// checkLedger verifies the ledger database is accessible and intact
func checkLedger(dbPath string) checkResult {
	if dbPath == "" {
		return checkResult{
			name:    "Ledger",
			warning: true,
			message: "no database path specified (use --db flag or config)",
		}
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Ledger",
				message: fmt.Sprintf("%s (will be created on first run)", dbPath),
			}
		}
		return checkResult{
			name:    "Ledger",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", dbPath, err),
		}
	}

	if !info.Mode().IsRegular() {
		return checkResult{
			name:    "Ledger",
			error:   true,
			message: fmt.Sprintf("%s is not a regular file", dbPath),
		}
	}

	db, err := ledger.Open(dbPath)
	if err != nil {
		return checkResult{
			name:    "Ledger",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", dbPath, err),
		}
	}
	defer db.Close()

	if err := db.CheckIntegrity(); err != nil {
		return checkResult{
			name:    "Ledger",
			error:   true,
			message: fmt.Sprintf("integrity check failed: %v", err),
		}
	}

	count, _ := db.Count()
	size := humanize.Bytes(uint64(info.Size()))

	return checkResult{
		name:    "Ledger",
		message: fmt.Sprintf("%s (%s, %d processed files)", dbPath, size, count),
	}
}

// checkScanFolder verifies the scan folder is readable
func checkScanFolder(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		return checkResult{
			name:    "Scan folder",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    "Scan folder",
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return checkResult{
			name:    "Scan folder",
			error:   true,
			message: fmt.Sprintf("cannot read %s: %v", path, err),
		}
	}

	return checkResult{
		name:    "Scan folder",
		message: fmt.Sprintf("%s (%d entries)", path, len(entries)),
	}
}

// checkServer verifies the media server is reachable and the
// credentials work
func checkServer() checkResult {
	serverURL := viper.GetString("server_url")
	username := viper.GetString("username")
	password := viper.GetString("password")

	if serverURL == "" {
		return checkResult{
			name:    "Media server",
			warning: true,
			message: "no server_url configured",
		}
	}
	if username == "" || password == "" {
		return checkResult{
			name:    "Media server",
			warning: true,
			message: "no credentials configured",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := jellyfin.NewClient(serverURL, username, password)
	if err := client.Authenticate(ctx); err != nil {
		return checkResult{
			name:    "Media server",
			error:   true,
			message: fmt.Sprintf("authentication failed: %v", err),
		}
	}

	return checkResult{
		name:    "Media server",
		message: fmt.Sprintf("%s (authenticated as %s)", serverURL, username),
	}
}
