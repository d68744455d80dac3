// Package cmd implements the command-line interface for bilifeed.
// It provides the root command and subcommands for ingesting creator post
// streams, filtering them by tag, and rendering RSS documents.
package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	cmdfeed "github.com/reouo/bilifeed/cmd/feed"
	cmdfilter "github.com/reouo/bilifeed/cmd/filter"
	"github.com/reouo/bilifeed/cmd/ingest"
	cmdschema "github.com/reouo/bilifeed/cmd/schema"
	cmdtags "github.com/reouo/bilifeed/cmd/tags"
)

// rootCmd represents the root command for the bilifeed CLI.
var rootCmd = &cobra.Command{
	Use:   "bilifeed",
	Short: "Turn Bilibili creator activity into RSS feeds",
	Long: `bilifeed ingests a creator's public post stream, normalizes it into
uniform records in PostgreSQL, filters records against a tag vocabulary,
and renders the results as RSS documents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available to config.
	_ = godotenv.Load()

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().String(
		"config",
		"",
		"config file (default is ./config.yaml)",
	)
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bilifeed version %s\n", "1.0.0")
		},
	})

	rootCmd.AddCommand(ingest.Command())
	rootCmd.AddCommand(cmdfilter.Command())
	rootCmd.AddCommand(cmdfeed.Command())
	rootCmd.AddCommand(cmdtags.Command())
	rootCmd.AddCommand(cmdschema.Command())
}
