package main

import (
	"fmt"

	"github.com/arne/tubetag/internal/ledger"
	"github.com/arne/tubetag/internal/util"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect and edit the processed-files ledger",
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every processed file",
	RunE:  runLedgerList,
}

var ledgerCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of processed files",
	RunE:  runLedgerCount,
}

var ledgerForgetCmd = &cobra.Command{
	Use:   "forget <file-path>",
	Short: "Drop a file from the ledger so it is processed again",
	Args:  cobra.ExactArgs(1),
	RunE:  runLedgerForget,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerListCmd)
	ledgerCmd.AddCommand(ledgerCountCmd)
	ledgerCmd.AddCommand(ledgerForgetCmd)
}

func openLedger() (*ledger.Ledger, error) {
	db, err := ledger.Open(viper.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	return db, nil
}

func runLedgerList(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	db, err := openLedger()
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := db.All()
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		util.InfoLog("Ledger is empty")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%-14s  %-16s  %s\n", e.VideoID, humanize.Time(e.UpdatedAt), e.FilePath)
	}
	return nil
}

func runLedgerCount(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	db, err := openLedger()
	if err != nil {
		return err
	}
	defer db.Close()

	count, err := db.Count()
	if err != nil {
		return err
	}

	fmt.Println(count)
	return nil
}

func runLedgerForget(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	db, err := openLedger()
	if err != nil {
		return err
	}
	defer db.Close()

	path := args[0]
	entry, err := db.Get(path)
	if err != nil {
		return err
	}
	if entry == nil {
		util.WarnLog("No ledger entry for %s", path)
		return nil
	}

	if err := db.Remove(path); err != nil {
		return err
	}

	util.SuccessLog("Forgot %s (video %s); it will be retitled on the next cycle", path, entry.VideoID)
	return nil
}
