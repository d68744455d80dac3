// Package feed implements the feed command, which renders RSS documents
// either straight from a creator's live post stream or from the stored
// filtered projection.
package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reouo/bilifeed/cmd/common"
	"github.com/reouo/bilifeed/internal/bili"
	"github.com/reouo/bilifeed/internal/dates"
	"github.com/reouo/bilifeed/internal/domain"
	internalfeed "github.com/reouo/bilifeed/internal/feed"
	"github.com/reouo/bilifeed/internal/normalize"
	"github.com/reouo/bilifeed/internal/ratelimit"
)

// Command returns the feed command for use in the root command.
func Command() *cobra.Command {
	var creatorID string
	var filtered bool

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Render an RSS document",
		Long: `Render an RSS document into the configured output directory.

With --creator, the creator's live post stream is fetched, normalized, and
rendered directly, bypassing the store. With --filtered, the stored
tag-matched projection is rendered instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if creatorID == "" && !filtered {
				return errors.New("one of --creator or --filtered is required")
			}
			if creatorID != "" && filtered {
				return errors.New("--creator and --filtered are mutually exclusive")
			}

			deps, err := common.DepsFromCommand(cmd)
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			var path string
			if filtered {
				path, err = renderFiltered(cmd.Context(), deps)
			} else {
				path, err = renderCreator(cmd.Context(), deps, creatorID)
			}
			if err != nil {
				return err
			}

			fmt.Printf("feed written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&creatorID, "creator", "", "render a creator's live post stream")
	cmd.Flags().BoolVar(&filtered, "filtered", false, "render the stored filtered projection")

	return cmd
}

// renderFiltered renders the stored filtered projection.
func renderFiltered(ctx context.Context, deps common.CommandDeps) (string, error) {
	storage, err := common.CreateStorage(deps)
	if err != nil {
		return "", err
	}
	defer storage.DB.Close()

	items, err := storage.Store.FetchFiltered(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load filtered records: %w", err)
	}

	synthesizer := internalfeed.NewSynthesizer(dates.NewSystem())
	doc := synthesizer.Synthesize(internalfeed.FilteredMetadata(), items)

	return internalfeed.WriteFile(doc, deps.Config.Feed.OutputDir, internalfeed.FilteredFileName)
}

// renderCreator fetches and normalizes the creator's live stream and
// renders it without touching the store. Records that fail normalization
// are skipped, same as during ingestion.
func renderCreator(ctx context.Context, deps common.CommandDeps, creatorID string) (string, error) {
	biliCfg := deps.Config.Bili

	pacer := ratelimit.New(biliCfg.ArticleDelay, deps.Logger)
	client := bili.NewClient(bili.Config{
		Cookie:    biliCfg.Cookie,
		UserAgent: biliCfg.UserAgent,
		Timeout:   biliCfg.Timeout,
	}, pacer, deps.Logger)

	normalizer := normalize.New(dates.NewSystem(), client, deps.Logger)

	rawItems, err := client.FetchSpaceFeed(ctx, creatorID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch post stream: %w", err)
	}

	creatorName := creatorID
	items := make([]domain.ContentItem, 0, len(rawItems))
	for _, raw := range rawItems {
		record, normErr := normalizer.Normalize(ctx, raw)
		if normErr != nil {
			deps.Logger.Warn("Skipping record", "item_id", raw.IDStr, "error", normErr)
			continue
		}
		if creatorName == creatorID && record.CreatorName != "" {
			creatorName = record.CreatorName
		}
		items = append(items, *record)
	}

	synthesizer := internalfeed.NewSynthesizer(dates.NewSystem())
	doc := synthesizer.Synthesize(internalfeed.CreatorMetadata(creatorID, creatorName), items)

	return internalfeed.WriteFile(doc, deps.Config.Feed.OutputDir, internalfeed.CreatorFileName(creatorID))
}
