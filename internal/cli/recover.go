package cli

import (
	"context"
	"fmt"
	"log"

	"exam-service/internal/config"
	"github.com/spf13/cobra"
)

// NewRecoverCmd runs the deadline reconciliation sweep once and exits. Tests that are
// not yet due keep their durable ledger entry for the running server's sweeper.
func NewRecoverCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "End overdue tests and re-arm pending deadlines",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecover(cmd.Context(), *configPath)
		},
	}
}

func runRecover(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured: nothing to recover from an in-memory store")
	}

	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	report, err := rt.service.RecoverDeadlines(ctx)
	if err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("recovery failed for %d tests: %v", len(report.Failed), report.Failed)
	}
	log.Printf("recovery complete: ended %v, re-armed %v", report.Ended, report.Rearmed)
	return nil
}
