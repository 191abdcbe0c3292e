package main

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crm-cli/internal/crm"
	"github.com/sells-group/crm-cli/internal/importer"
	"github.com/sells-group/crm-cli/internal/stages"
	"github.com/sells-group/crm-cli/internal/store"
)

var pipelineFile string

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Manage the default sales pipeline",
}

var pipelineLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load stage definitions from a YAML file as the default pipeline",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withPipelineStore(cmd, func(ctx context.Context, st store.Store) error {
			return loadPipeline(ctx, st, pipelineFile)
		})
	},
}

var pipelineShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the default pipeline as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withPipelineStore(cmd, func(ctx context.Context, st store.Store) error {
			return showPipeline(ctx, st, cmd.OutOrStdout())
		})
	},
}

func withPipelineStore(cmd *cobra.Command, fn func(context.Context, store.Store) error) error {
	if err := cfg.Validate("pipeline"); err != nil {
		return err
	}
	ctx := actorContext(cmd.Context())
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	return fn(ctx, st)
}

func loadPipeline(ctx context.Context, st store.Store, path string) error {
	p, err := stages.LoadFile(path)
	if err != nil {
		return err
	}
	if err := crm.New(st, importer.Options{}).SavePipeline(ctx, p); err != nil {
		return eris.Wrap(err, "save pipeline")
	}
	zap.L().Info("pipeline loaded",
		zap.String("name", p.Name),
		zap.Strings("stages", p.StageNames()),
	)
	return nil
}

func showPipeline(ctx context.Context, st store.Store, w io.Writer) error {
	p, err := crm.New(st, importer.Options{}).DefaultPipeline(ctx)
	if err != nil {
		return err
	}
	out, err := stages.Marshal(p)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func init() {
	pipelineLoadCmd.Flags().StringVar(&pipelineFile, "file", "", "path to pipeline YAML (required)")
	_ = pipelineLoadCmd.MarkFlagRequired("file")
	pipelineCmd.AddCommand(pipelineLoadCmd, pipelineShowCmd)
	rootCmd.AddCommand(pipelineCmd)
}
