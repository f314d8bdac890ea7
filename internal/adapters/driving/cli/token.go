package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/bookchat/internal/adapters/driving/api"
	"github.com/custodia-labs/bookchat/internal/core/domain"
)

var (
	tokenUser int64
	tokenRole string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for local testing",
	Long: `Signs a token with auth.jwt_secret. Production tokens are issued by the
identity service; this exists for development and smoke tests.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().Int64Var(&tokenUser, "user", 1, "user id")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(domain.RoleUser), "role (user or admin)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	settings, err := settingsOnly()
	if err != nil {
		return err
	}
	if settings.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is not set")
	}
	role, ok := domain.ParseRole(tokenRole)
	if !ok {
		return fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, tokenRole)
	}
	if tokenUser <= 0 {
		return fmt.Errorf("%w: user id must be positive", domain.ErrInvalidInput)
	}

	tok, err := api.SignToken(domain.Principal{UserID: tokenUser, Role: role}, []byte(settings.Auth.JWTSecret),
		jwt.MapClaims{"exp": time.Now().Add(tokenTTL).Unix()})
	if err != nil {
		return err
	}
	cmd.Println(tok)
	return nil
}
