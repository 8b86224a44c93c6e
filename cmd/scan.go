package cmd

import (
	"fmt"

	internal "github.com/filekit/dupescan/dupescan"
	"github.com/filekit/dupescan/dupescan/cleanup"
	"github.com/filekit/dupescan/dupescan/config"
	"github.com/filekit/dupescan/dupescan/scan"
	"github.com/filekit/dupescan/dupescan/walker"

	"github.com/spf13/cobra"
)

var (
	deleteDuplicates bool
	showProgress     bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [paths...]",
	Short: "Scan directories for duplicate files",
	Long: `Scan walks the given directories, detects groups of byte-identical files,
and prints each group with its total size. With --delete, every file after
the first in each group is moved to a timestamped backup directory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&deleteDuplicates, "delete", false,
		"move all but the first file of each group to a backup directory")
	scanCmd.Flags().BoolVar(&showProgress, "progress", true, "print per-stage progress")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	logger := internal.GetLogger()

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	records, err := walker.New(cfg.Scan.ParallelWorkers).Walk(cmd.Context(), args)
	if err != nil {
		return err
	}
	logger.Info().Int("files", len(records)).Msg("collected candidate files")

	var sink scan.ProgressSink
	if showProgress {
		sink = scan.SinkFunc(func(stage string, processed, total int) {
			fmt.Printf("[%s] %d/%d\n", stage, processed, total)
		})
	}
	pipeline, err := scan.NewPipeline(cfg.Scan, sink)
	if err != nil {
		return err
	}

	groups := pipeline.Detect(cmd.Context(), records)
	if len(groups) == 0 {
		fmt.Println("No duplicates found.")
		return nil
	}

	var reclaimable int64
	for i, group := range groups {
		fmt.Printf("Group %d (%d files, %s total):\n",
			i+1, len(group.Files), cleanup.FormatSize(group.TotalSize))
		for _, file := range group.Files {
			fmt.Printf("  %s\n", file.Path)
		}
		reclaimable += group.TotalSize - group.Files[0].Size
	}
	fmt.Printf("%d duplicate group(s), %s reclaimable\n",
		len(groups), cleanup.FormatSize(reclaimable))

	if !deleteDuplicates {
		return nil
	}

	// Which member is "the original" is the user's call; keeping the first
	// file of each group follows the walker's path ordering.
	var duplicates []*scan.FileRecord
	for _, group := range groups {
		duplicates = append(duplicates, group.Files[1:]...)
	}
	result, err := cleanup.NewDeleter(cfg.Cleanup.BackupBaseDir).DeleteFiles(duplicates, nil)
	if err != nil {
		return err
	}
	fmt.Printf("Moved %d file(s) to %s, reclaimed %s\n",
		len(result.DeletedFiles), result.BackupDir, cleanup.FormatSize(result.SpaceSaved))
	for _, failed := range result.FailedFiles {
		fmt.Printf("  failed: %s (%s)\n", failed.Path, failed.Reason)
	}
	return nil
}
