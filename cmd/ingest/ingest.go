// Package ingest implements the ingest command, which fetches a creator's
// post stream and persists the normalized records.
package ingest

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/reouo/bilifeed/cmd/common"
	"github.com/reouo/bilifeed/internal/bili"
	"github.com/reouo/bilifeed/internal/dates"
	"github.com/reouo/bilifeed/internal/normalize"
	"github.com/reouo/bilifeed/internal/pipeline"
	"github.com/reouo/bilifeed/internal/ratelimit"
)

// Command returns the ingest command for use in the root command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [creator-id]",
		Short: "Ingest a creator's post stream into the store",
		Long: `Fetch the creator's recent posts, normalize them into uniform records,
and persist them. Records already in the store are left untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.DepsFromCommand(cmd)
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			storage, err := common.CreateStorage(deps)
			if err != nil {
				return err
			}
			defer storage.DB.Close()

			runner := buildRunner(deps, storage)

			report, err := runner.Run(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("ingestion failed: %w", err)
			}

			renderReport(report)
			return nil
		},
	}
}

// buildRunner wires the ingestion pipeline from configuration.
func buildRunner(deps common.CommandDeps, storage *common.StorageResult) *pipeline.Runner {
	biliCfg := deps.Config.Bili

	pacer := ratelimit.New(biliCfg.ArticleDelay, deps.Logger)
	client := bili.NewClient(bili.Config{
		Cookie:    biliCfg.Cookie,
		UserAgent: biliCfg.UserAgent,
		Timeout:   biliCfg.Timeout,
	}, pacer, deps.Logger)

	normalizer := normalize.New(dates.NewSystem(), client, deps.Logger)

	return pipeline.NewRunner(client, normalizer, storage.Store, deps.Logger)
}

// renderReport prints the run summary and any skipped records.
func renderReport(report *pipeline.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run ID", "Creator", "Fetched", "Normalized", "Inserted", "Skipped"})
	t.AppendRow(table.Row{
		report.RunID.String(),
		report.CreatorID,
		report.Fetched,
		report.Normalized,
		report.Inserted,
		len(report.Skipped),
	})
	t.Render()

	if len(report.Skipped) == 0 {
		return
	}

	skipped := table.NewWriter()
	skipped.SetOutputMirror(os.Stdout)
	skipped.SetStyle(table.StyleLight)
	skipped.AppendHeader(table.Row{"Item ID", "Reason"})
	for _, record := range report.Skipped {
		skipped.AppendRow(table.Row{record.ID, record.Reason})
	}
	skipped.Render()
}
