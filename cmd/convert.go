package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sells-group/crm-cli/internal/convert"
	"github.com/sells-group/crm-cli/internal/store"
)

var (
	convertLeadID      string
	convertOpportunity bool
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a lead into an account, a contact and an opportunity",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("convert"); err != nil {
			return err
		}
		ctx := actorContext(cmd.Context())

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		res, err := runConvert(ctx, st, convertLeadID, convertOpportunity)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func runConvert(ctx context.Context, st store.Store, leadID string, withOpportunity bool) (*convert.Result, error) {
	return convert.New(st).Convert(ctx, leadID, convert.Options{CreateOpportunity: withOpportunity})
}

func init() {
	convertCmd.Flags().StringVar(&convertLeadID, "lead", "", "lead id (required)")
	convertCmd.Flags().BoolVar(&convertOpportunity, "opportunity", true, "also create an opportunity")
	_ = convertCmd.MarkFlagRequired("lead")
	rootCmd.AddCommand(convertCmd)
}
