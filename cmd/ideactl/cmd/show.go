package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/koreafit-backend/internal/platform/dbctx"
)

var showCmd = &cobra.Command{
	Use:   "show <idea-id>",
	Short: "Print a stored idea, hidden ones included",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		core, err := openCore(cmd.Context())
		if err != nil {
			return err
		}
		defer core.Close()

		idea, err := core.Repos.Ideas.Get(dbctx.Context{Ctx: cmd.Context()}, args[0])
		if err != nil {
			return err
		}
		if idea == nil {
			return fmt.Errorf("idea %s not found", args[0])
		}
		return render(cmd, idea)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
