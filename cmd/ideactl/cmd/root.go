package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/yungbote/koreafit-backend/internal/app"
)

var (
	configPath string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:           "ideactl",
	Short:         "Operate the Korea-Fit idea catalog",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			return os.Setenv("KOREAFIT_CONFIG", configPath)
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config.yaml (overrides KOREAFIT_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
}

// openCore builds the same store and services the server uses.
func openCore(ctx context.Context) (*app.Core, error) {
	core, err := app.NewCore(ctx)
	if err != nil {
		return nil, err
	}
	return core, nil
}

func render(cmd *cobra.Command, v any) error {
	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	printer := pp.New()
	printer.SetOutput(out)
	printer.SetColoringEnabled(false)
	_, err := printer.Println(v)
	return err
}
