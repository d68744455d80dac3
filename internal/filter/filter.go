// Package filter produces the tag-matched projection of the raw record set.
package filter

import (
	"context"
	"fmt"
	"strings"

	"github.com/reouo/bilifeed/internal/domain"
	"github.com/reouo/bilifeed/internal/logger"
)

// MatchTags returns every tag that appears as a literal substring of the
// item's Title or Body, in vocabulary order. Matching is unnormalized and
// case-sensitive; upstream never specified case folding, so this stays the
// simplest policy until someone needs otherwise.
func MatchTags(item *domain.ContentItem, tags []string) []string {
	var matched []string
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if strings.Contains(item.Title, tag) || strings.Contains(item.Body, tag) {
			matched = append(matched, tag)
		}
	}
	return matched
}

// Project joins records against the tag vocabulary and returns the subset
// with at least one match, each record carrying its full matched tag set.
// Input record order is preserved. The join is records x tags, unindexed;
// fine at the scale of single-creator feeds and a small curated vocabulary.
func Project(items []domain.ContentItem, tags []string) []domain.ContentItem {
	var projected []domain.ContentItem
	for i := range items {
		matched := MatchTags(&items[i], tags)
		if len(matched) == 0 {
			continue
		}

		item := items[i]
		item.Tags = matched
		projected = append(projected, item)
	}
	return projected
}

// Store is the persistence surface the engine needs.
type Store interface {
	FetchRaw(ctx context.Context) ([]domain.ContentItem, error)
	ListTags(ctx context.Context) ([]string, error)
	UpsertFiltered(ctx context.Context, items []domain.ContentItem) error
}

// Engine recomputes the filtered projection from stored state.
type Engine struct {
	store  Store
	logger logger.Interface
}

// NewEngine creates a filter Engine.
func NewEngine(s Store, log logger.Interface) *Engine {
	return &Engine{
		store:  s,
		logger: log.WithComponent("filter"),
	}
}

// Run executes one filter pass: every record's Tags are recomputed from the
// current vocabulary and the projection is overwritten in the store. The
// pass is idempotent; re-running after a mid-batch failure is the recovery
// path.
func (e *Engine) Run(ctx context.Context) (int, error) {
	items, err := e.store.FetchRaw(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load raw records: %w", err)
	}

	tags, err := e.store.ListTags(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load tag vocabulary: %w", err)
	}
	if len(tags) == 0 {
		e.logger.Warn("Tag vocabulary is empty, nothing to filter")
		return 0, nil
	}

	projected := Project(items, tags)
	if len(projected) == 0 {
		e.logger.Info("No records matched the tag vocabulary", "records", len(items), "tags", len(tags))
		return 0, nil
	}

	if err := e.store.UpsertFiltered(ctx, projected); err != nil {
		return 0, fmt.Errorf("failed to persist filtered projection: %w", err)
	}

	e.logger.Info("Filter pass complete",
		"records", len(items), "tags", len(tags), "matched", len(projected))
	return len(projected), nil
}
