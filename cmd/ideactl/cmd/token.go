package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/koreafit-backend/internal/app"
	"github.com/yungbote/koreafit-backend/internal/platform/logger"
	"github.com/yungbote/koreafit-backend/internal/services"
)

var (
	tokenSubject string
	tokenRole    string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the admin API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}
		ttl := cfg.TokenTTL
		if tokenTTL > 0 {
			ttl = tokenTTL
		}
		ts := services.NewTokenService(logger.Nop(), cfg.JWTSecretKey, ttl)
		signed, expiresAt, err := ts.Issue(tokenSubject, tokenRole)
		if err != nil {
			return err
		}
		return render(cmd, map[string]any{
			"token":      signed,
			"role":       tokenRole,
			"expires_at": expiresAt.UTC().Format(time.RFC3339),
		})
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "ideactl", "Token subject")
	tokenCmd.Flags().StringVar(&tokenRole, "role", services.RoleAdmin, "Role claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (defaults to auth.token_ttl_seconds)")
	rootCmd.AddCommand(tokenCmd)
}
