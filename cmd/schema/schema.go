// Package schema implements the schema command group for managing the
// store's collections.
package schema

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reouo/bilifeed/cmd/common"
)

// Command returns the schema command group for use in the root command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage the store's collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newClearCommand())

	return cmd
}

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the collections if they do not exist",
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

			if err := storage.Store.EnsureSchema(cmd.Context()); err != nil {
				return fmt.Errorf("failed to ensure schema: %w", err)
			}

			fmt.Println("schema ready")
			return nil
		},
	}
}

func newClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [table]",
		Short: "Remove every row from one collection",
		Long: `Remove every row from the named collection. Only the configured data,
tags, and filtered collections are accepted.`,
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

			if err := storage.Store.Clear(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to clear %s: %w", args[0], err)
			}

			fmt.Printf("%s cleared\n", args[0])
			return nil
		},
	}
}
