package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	types "github.com/yungbote/koreafit-backend/internal/domain/ideas"
	"github.com/yungbote/koreafit-backend/internal/modules/ideas/steps"
)

var (
	scoreTitle  string
	scoreSector string
	scoreModel  string
	scoreTarget string
	scoreTags   []string
	scoreFile   string
)

// score runs the scorer alone; it needs no store.
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Preview the Korea-Fit score of an unsaved idea",
	Long:  "Scores an idea given by flags or a JSON file (--file, - for stdin). Nothing is persisted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		idea := &types.Idea{}
		if scoreFile != "" {
			var r io.Reader = cmd.InOrStdin()
			if scoreFile != "-" {
				f, err := os.Open(scoreFile)
				if err != nil {
					return fmt.Errorf("open idea file: %w", err)
				}
				defer f.Close()
				r = f
			}
			if err := json.NewDecoder(r).Decode(idea); err != nil {
				return fmt.Errorf("decode idea: %w", err)
			}
		}
		if scoreTitle != "" {
			idea.Title = scoreTitle
		}
		if scoreSector != "" {
			idea.Sector = scoreSector
		}
		if scoreModel != "" {
			idea.BusinessModel = scoreModel
		}
		if scoreTarget != "" {
			idea.TargetUser = scoreTarget
		}
		if len(scoreTags) > 0 {
			idea.Tags = scoreTags
		}
		if err := types.Validate(idea); err != nil {
			return fmt.Errorf("an idea needs at least a title: %w", err)
		}
		return render(cmd, steps.ScoreKoreaFit(idea))
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreTitle, "title", "", "Idea title")
	scoreCmd.Flags().StringVar(&scoreSector, "sector", "", "Sector label")
	scoreCmd.Flags().StringVar(&scoreModel, "business-model", "", "Business model")
	scoreCmd.Flags().StringVar(&scoreTarget, "target-user", "", "Target user")
	scoreCmd.Flags().StringSliceVar(&scoreTags, "tag", nil, "Tag (repeatable)")
	scoreCmd.Flags().StringVar(&scoreFile, "file", "", "JSON idea file, - for stdin")
	rootCmd.AddCommand(scoreCmd)
}
