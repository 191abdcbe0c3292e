package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crm-cli/internal/actor"
	"github.com/sells-group/crm-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "crm-cli",
	Short: "Lightweight CRM: leads, accounts, contacts and opportunities",
	Long:  "Imports Apollo lead exports, converts leads into accounts, contacts and opportunities, serves the CRM API and pushes converted leads to Salesforce.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

// actorContext attaches the configured user to ctx.
func actorContext(ctx context.Context) context.Context {
	return actor.WithActor(ctx, cfg.Actor.UserID)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
