package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/crm-cli/internal/resilience"

	"github.com/sells-group/crm-cli/internal/sfsync"
	"github.com/sells-group/crm-cli/pkg/salesforce"
)

var sfpushLeadID string

var sfpushCmd = &cobra.Command{
	Use:   "sfpush",
	Short: "Push a converted lead's records to Salesforce",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("sfpush"); err != nil {
			return err
		}
		ctx := actorContext(cmd.Context())

		sf, err := initSalesforce()
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		res, err := sfsync.New(st, sf).Push(ctx, sfpushLeadID)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func initSalesforce() (salesforce.Client, error) {
	sc := cfg.Salesforce
	sf, err := salesforce.Dial(salesforce.JWTConfig{
		LoginURL: sc.LoginURL,
		Username: sc.Username,
		ClientID: sc.ClientID,
		KeyPath:  sc.KeyPath,
	}, salesforce.WithRateLimit(sc.RateLimit))
	if err != nil {
		return nil, err
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = sc.MaxAttempts
	return sfsync.Guard(sf, retry, resilience.BreakerConfig{
		Name:             "salesforce",
		FailureThreshold: sc.BreakerThreshold,
		ResetTimeout:     time.Duration(sc.BreakerResetSecs) * time.Second,
	}), nil
}

func init() {
	sfpushCmd.Flags().StringVar(&sfpushLeadID, "lead", "", "converted lead id (required)")
	_ = sfpushCmd.MarkFlagRequired("lead")
	rootCmd.AddCommand(sfpushCmd)
}
