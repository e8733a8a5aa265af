package main

import (
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past sample classifications, newest first",
	RunE:  runHistory,
}

var characteristicsCmd = &cobra.Command{
	Use:   "characteristics",
	Short: "List the known characteristic vocabulary",
	RunE:  runCharacteristics,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum records to show (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	records, err := service.History(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd, records)
	}
	if len(records) == 0 {
		cmd.Println("no classifications recorded")
		return nil
	}
	for _, rec := range records {
		cmd.Printf("%s  %s", rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.ID)
		if rec.MotifName != "" {
			cmd.Printf("  motif=%s", rec.MotifName)
		}
		cmd.Println()
		printResult(cmd, "  technique", rec.Technique)
		printResult(cmd, "  quality", rec.Quality)
	}
	return nil
}

func runCharacteristics(cmd *cobra.Command, args []string) error {
	catalog := service.Characteristics()
	if jsonOutput {
		return printJSON(cmd, catalog)
	}
	for _, c := range catalog {
		cmd.Printf("%-20s %-5s %s\n", c.Key, c.Kind, c.Label)
	}
	return nil
}
