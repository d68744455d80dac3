// Package filter implements the filter command, which recomputes the
// tag-matched projection of the stored record set.
package filter

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reouo/bilifeed/cmd/common"
	internalfilter "github.com/reouo/bilifeed/internal/filter"
)

// Command returns the filter command for use in the root command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "filter",
		Short: "Recompute the tag-matched projection",
		Long: `Evaluate every stored record against the current tag vocabulary and
overwrite the filtered projection with the records that match.`,
		Args: cobra.NoArgs,
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

			engine := internalfilter.NewEngine(storage.Store, deps.Logger)

			matched, err := engine.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("filter pass failed: %w", err)
			}

			fmt.Printf("%d records matched\n", matched)
			return nil
		},
	}
}
