// Package tags implements the tags command group for managing the tag
// vocabulary that drives filtering.
package tags

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/reouo/bilifeed/cmd/common"
)

// Command returns the tags command group for use in the root command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage the tag vocabulary",
		Long: `Manage the tag vocabulary used by the filter command. Tags match as
literal substrings of a record's title or body, in vocabulary order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newSetCommand())
	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newClearCommand())

	return cmd
}

func newSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set [tag]...",
		Short: "Replace the tag vocabulary",
		Long: `Replace the entire tag vocabulary with the given tags. The order given
here is the order matched tags appear in on filtered records.`,
		Args: cobra.MinimumNArgs(1),
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

			if err := storage.Store.ReplaceTags(cmd.Context(), args); err != nil {
				return fmt.Errorf("failed to replace tags: %w", err)
			}

			fmt.Printf("vocabulary set to %d tags\n", len(args))
			return nil
		},
	}
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the tag vocabulary",
		Args:  cobra.NoArgs,
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

			tags, err := storage.Store.ListTags(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list tags: %w", err)
			}

			if len(tags) == 0 {
				deps.Logger.Info("No tags configured")
				return nil
			}

			return renderTable(tags)
		},
	}
}

func newClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every tag from the vocabulary",
		Args:  cobra.NoArgs,
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

			if err := storage.Store.Clear(cmd.Context(), deps.Config.Tables.Tags); err != nil {
				return fmt.Errorf("failed to clear tags: %w", err)
			}

			fmt.Println("vocabulary cleared")
			return nil
		},
	}
}

// renderTable formats and displays the tags in a table format.
func renderTable(tags []string) error {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Position", "Tag"})
	for i, tag := range tags {
		t.AppendRow(table.Row{i + 1, tag})
	}
	t.Render()
	return nil
}
