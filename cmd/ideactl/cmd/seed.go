package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	ideamod "github.com/yungbote/koreafit-backend/internal/modules/ideas"
)

var (
	seedFile        string
	seedOnlyIfEmpty bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Import the idea catalog through upsertBulk",
	Long:  "Imports the embedded Korean-market catalog, or a YAML file with --file. Rows whose id already exists are merged.",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := ideamod.SeedInput{OnlyIfEmpty: seedOnlyIfEmpty}
		if seedFile != "" {
			data, err := os.ReadFile(seedFile)
			if err != nil {
				return fmt.Errorf("read seed file: %w", err)
			}
			in.Catalog = data
		}

		core, err := openCore(cmd.Context())
		if err != nil {
			return err
		}
		defer core.Close()

		out, err := core.Services.Usecases.Seed(cmd.Context(), in)
		if err != nil {
			return err
		}
		return render(cmd, out)
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "YAML catalog to import instead of the embedded one")
	seedCmd.Flags().BoolVar(&seedOnlyIfEmpty, "only-if-empty", false, "Skip when the store already holds ideas")
	rootCmd.AddCommand(seedCmd)
}
