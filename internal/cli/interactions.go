package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bookrec/config"
	"bookrec/internal/adapter/collab"
	"bookrec/internal/logging"
)

var interactionsCmd = &cobra.Command{
	Use:   "interactions",
	Short: "Manage user-item interactions for collaborative recommendations",
}

var interactionsImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import user_id,item_id[,rating] rows",
	Long: `Import user-item interactions from CSV. A header row is optional and a
missing rating counts as 1. Re-importing a (user, item) pair overwrites its
rating.

Example:
  bookrec interactions import ratings.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runInteractionsImport,
}

func init() {
	interactionsCmd.AddCommand(interactionsImportCmd)
	rootCmd.AddCommand(interactionsCmd)
}

func runInteractionsImport(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := collab.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", args[0], err)
	}

	path := cfg.InteractionsPath(GetRootDir())
	if err := config.EnsureParentDir(path); err != nil {
		return err
	}
	st, err := collab.OpenSQLite(ctx, path)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.PutInteractions(ctx, rows); err != nil {
		return fmt.Errorf("failed to store interactions: %w", err)
	}
	total, err := st.Count(ctx)
	if err != nil {
		return err
	}

	logger := logging.Component("interactions")
	logger.Info().Int("imported", len(rows)).Int("total", total).Msg("interactions imported")
	fmt.Printf("Imported %d interactions (%d stored) into %s\n", len(rows), total, path)
	return nil
}
