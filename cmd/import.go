package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crm-cli/internal/importer"
	"github.com/sells-group/crm-cli/internal/store"
)

var (
	importFile   string
	importSource string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import leads from an Apollo CSV or XLSX export",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}
		ctx := actorContext(cmd.Context())

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		_, err = runImport(ctx, st, importFile, importOptions(importSource))
		return err
	},
}

func runImport(ctx context.Context, st store.Store, path string, opts importer.Options) (*importer.Result, error) {
	sheet, err := importer.ParseFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "import file")
	}

	im := importer.New(st, opts)
	zap.L().Info("importing leads",
		zap.String("file", path),
		zap.Int("rows", len(sheet.Rows)),
		zap.Strings("matched_columns", importer.PlanColumns(sheet.Headers).Matched),
	)

	res, err := im.Import(ctx, path, sheet)
	if err != nil {
		return nil, eris.Wrap(err, "import leads")
	}

	zap.L().Info("import complete",
		zap.String("file", path),
		zap.String("import_id", res.ImportID),
		zap.Int("imported", res.Imported),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("errors", res.Errors),
	)
	return res, nil
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "path to CSV or XLSX file (required)")
	importCmd.Flags().StringVar(&importSource, "source", "", "lead source stamped on each row (default from config)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
