package cli

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"bookrec/internal/domain"
	"bookrec/internal/logging"
)

var (
	recText string
	recItem int
	recUser int
	recTopK int
	recJSON bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend books for a text, a library item or a user",
	Long: `Run one recommendation query against the local snapshot.

Examples:
  bookrec recommend --text "a boy wizard goes to school"
  bookrec recommend --item 42 -k 10
  bookrec recommend --user 7 --json`,
	RunE: runRecommend,
}

func init() {
	rootCmd.AddCommand(recommendCmd)
	recommendCmd.Flags().StringVarP(&recText, "text", "t", "", "free-text query")
	recommendCmd.Flags().IntVar(&recItem, "item", 0, "library item id to find neighbours of")
	recommendCmd.Flags().IntVar(&recUser, "user", 0, "user id for collaborative recommendations")
	recommendCmd.Flags().IntVarP(&recTopK, "top-k", "k", 0, "number of neighbours (default from config)")
	recommendCmd.Flags().BoolVar(&recJSON, "json", false, "output as JSON")
	recommendCmd.MarkFlagsMutuallyExclusive("text", "item", "user")
	recommendCmd.MarkFlagsOneRequired("text", "item", "user")
}

func runRecommend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := logging.Logger()

	a, err := openApp(ctx, GetConfig(), GetRootDir(), logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		res   domain.RecommendationResult
		label string
	)
	flags := cmd.Flags()
	switch {
	case flags.Changed("text"):
		label = fmt.Sprintf("text %q", recText)
		res, err = a.recommender.RecommendText(ctx, recText, recTopK)
	case flags.Changed("item"):
		label = fmt.Sprintf("item %d", recItem)
		res, err = a.recommender.RecommendFromLibrary(ctx, recItem, recTopK)
	default:
		label = fmt.Sprintf("user %d", recUser)
		res, err = a.recommender.RecommendUser(ctx, recUser)
	}
	if err != nil {
		return fmt.Errorf("recommend failed (%s): %w", domain.KindOf(err), err)
	}

	if recJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if len(res) == 0 {
		fmt.Println("No recommendations.")
		return nil
	}
	fmt.Printf("%d recommendations for %s:\n\n", len(res), label)
	for _, r := range res {
		fmt.Printf("  %2d. %-50s  id=%-6s score=%.4f\n", r.Rank+1, r.Title, r.ItemID, r.Score)
	}
	return nil
}
