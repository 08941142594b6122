package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"bookrec/config"
	"bookrec/internal/adapter/fs"
	"bookrec/internal/adapter/store"
	"bookrec/internal/logging"
	"bookrec/internal/usecase"
)

var importExcludes []string

var importCmd = &cobra.Command{
	Use:   "import [artifact...]",
	Short: "Import embedding record sets into the snapshot",
	Long: `Import JSON record sets (title + embedding per row) into the embedding
snapshot. Without arguments, files matching store.artifacts under the root
directory are imported in path order. The previous snapshot is replaced and
item ids are reassigned from 0.

Examples:
  bookrec import
  bookrec import Data/Embeddings/bert-embeddings-10k-small.json`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringSliceVar(&importExcludes, "exclude", nil, "glob patterns to skip during discovery")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	dir := GetRootDir()
	logger := logging.Component("import")

	dbPath := cfg.StorePath(dir)
	if err := config.EnsureParentDir(dbPath); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open snapshot store: %w", err)
	}
	defer st.Close()

	mig, err := st.CheckMigration(cfg)
	if err != nil {
		return fmt.Errorf("failed to check migration: %w", err)
	}
	if mig.NeedsMigration && mig.OldVersion > 0 {
		fmt.Printf("Running schema migration: %s\n", mig.Reason)
	}

	uc := usecase.NewImportUseCase(st, fs.NewWalker(cfg.Store.Artifacts, importExcludes), cfg, logger)

	paths := make([]string, 0, len(args))
	for _, a := range args {
		p, err := filepath.Abs(a)
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		fmt.Printf("Scanning %s...\n", dir)
		if paths, err = uc.Discover(dir); err != nil {
			return err
		}
	}

	var bar *progressbar.ProgressBar
	if len(paths) > 0 {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("[cyan]Importing[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				fmt.Println()
			}),
		)
	}

	result, err := uc.Import(cmd.Context(), paths, func(done, total int) {
		if bar != nil {
			bar.Set(done)
		}
	})
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("\nImport complete:\n")
	fmt.Printf("  Files:      %d\n", len(result.Files))
	fmt.Printf("  Records:    %d\n", result.Records)
	fmt.Printf("  Dimension:  %d\n", result.Dimension)
	fmt.Printf("  Generation: %d\n", result.Generation)
	fmt.Printf("  Took:       %s\n", formatDuration(result.Duration))
	fmt.Printf("\nSnapshot stored at: %s\n", dbPath)
	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
