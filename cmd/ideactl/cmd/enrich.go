package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	ideamod "github.com/yungbote/koreafit-backend/internal/modules/ideas"
)

var (
	enrichIDs    []string
	enrichForce  bool
	enrichDryRun bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Backfill Korea-Fit, trend and roadmap data",
	Long:  "Enriches every stored idea, or only those given with --id. Already-enriched ideas are skipped unless --force is set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		core, err := openCore(cmd.Context())
		if err != nil {
			return err
		}
		defer core.Close()

		out, err := core.Services.Usecases.EnrichAll(cmd.Context(), ideamod.EnrichAllInput{
			IDs:    enrichIDs,
			Force:  enrichForce,
			DryRun: enrichDryRun,
		})
		if err != nil {
			return err
		}
		if err := render(cmd, out); err != nil {
			return err
		}
		if len(out.Failures) > 0 {
			return fmt.Errorf("%d of %d ideas failed to enrich", len(out.Failures), out.Total)
		}
		return nil
	},
}

func init() {
	enrichCmd.Flags().StringSliceVar(&enrichIDs, "id", nil, "Idea id to enrich (repeatable)")
	enrichCmd.Flags().BoolVar(&enrichForce, "force", false, "Recompute ideas that are already enriched")
	enrichCmd.Flags().BoolVar(&enrichDryRun, "dry-run", false, "Report what would be enriched without writing")
	rootCmd.AddCommand(enrichCmd)
}
