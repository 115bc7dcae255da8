package cli

import (
	"fmt"

	"exam-service/internal/config"
	"exam-service/internal/domain"
	transport "exam-service/internal/transport/http"
	"github.com/spf13/cobra"
)

// NewTokenCmd issues a bearer token signed with the configured secret, for local use.
func NewTokenCmd(configPath *string) *cobra.Command {
	var subject, role string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for an admin or student",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.Secret == "" {
				return fmt.Errorf("auth secret not configured")
			}
			r := domain.Role(role)
			if r != domain.RoleAdmin && r != domain.RoleStudent {
				return fmt.Errorf("role must be %q or %q", domain.RoleAdmin, domain.RoleStudent)
			}
			tok, err := transport.NewAuthenticator(cfg.Auth.Secret).IssueToken(subject, r)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "", "admin or student id")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleStudent), "admin or student")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}
