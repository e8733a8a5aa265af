// batikctl is the command line front end for the batikcore
// classification service: rule management, sample classification and
// history inspection over a shared durable store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"batikcore/internal/blob"
	"batikcore/internal/core"
)

var (
	verbose    bool
	jsonOutput bool
	skipSeed   bool

	logger  *zap.Logger
	service *core.Service
)

var rootCmd = &cobra.Command{
	Use:   "batikctl",
	Short: "batikcore - rule based batik sample classification",
	Long: `batikctl manages the batikcore rule store and classifies batik
textile samples against it.

Rules map observed characteristics (wax residue, stroke regularity,
defect counts and the like) to a production technique or a quality
grade. Evaluation is deterministic: lowest priority number wins, ties
break on insertion order, and the first satisfied rule concludes.

Storage is selected via BATIKCORE_STORAGE_DRIVER (memory|sqlite|postgres,
default sqlite) and sample images via BATIKCORE_BLOB_DRIVER
(fs|s3|memory, default fs).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		store, err := core.OpenPersistentStore()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		blobs, err := blob.Open(cmd.Context())
		if err != nil {
			return fmt.Errorf("open blob store: %w", err)
		}
		service, err = core.NewService(store,
			core.WithLogger(logger),
			core.WithBlobStore(blobs),
			core.WithMetrics(core.NewExpvarMetricsRecorder("batikctl")),
		)
		if err != nil {
			return err
		}
		if !skipSeed {
			if _, err := service.EnsureSeedRules(cmd.Context()); err != nil {
				return fmt.Errorf("seed rules: %w", err)
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine readable JSON")
	rootCmd.PersistentFlags().BoolVar(&skipSeed, "no-seed", false, "skip installing the starter rule pack")

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(characteristicsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
