// Package pipeline orchestrates one ingestion run: fetch a creator's post
// stream, normalize each raw item, and persist the surviving records.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/reouo/bilifeed/internal/bili"
	"github.com/reouo/bilifeed/internal/domain"
	"github.com/reouo/bilifeed/internal/logger"
)

// ErrRunInProgress is returned when an ingestion run for the same creator
// is already active.
var ErrRunInProgress = errors.New("ingestion already running for creator")

// FeedSource fetches a creator's raw post stream.
type FeedSource interface {
	FetchSpaceFeed(ctx context.Context, creatorID string) ([]bili.Item, error)
}

// ItemNormalizer maps one raw item into a content record.
type ItemNormalizer interface {
	Normalize(ctx context.Context, item bili.Item) (*domain.ContentItem, error)
}

// RecordStore persists normalized records.
type RecordStore interface {
	UpsertRaw(ctx context.Context, items []domain.ContentItem) (int, error)
}

// SkippedRecord describes one raw item dropped during a run.
type SkippedRecord struct {
	// ID is the raw item's upstream identifier.
	ID string
	// Reason is the failure that invalidated the record.
	Reason string
}

// Report summarizes one ingestion run.
type Report struct {
	// RunID uniquely identifies the run in logs and output.
	RunID uuid.UUID
	// CreatorID is the creator whose stream was ingested.
	CreatorID string
	// CreatorName is the creator's display name, when at least one record
	// carried it.
	CreatorName string
	// Fetched is the raw item count the upstream returned.
	Fetched int
	// Normalized is the record count that survived normalization.
	Normalized int
	// Inserted is the count of records new to the store.
	Inserted int
	// Skipped lists the dropped raw items with reasons.
	Skipped []SkippedRecord
}

// Runner executes ingestion runs. At most one run per creator is active at
// a time; overlapping runs fail fast rather than queue.
type Runner struct {
	source    FeedSource
	normalize ItemNormalizer
	store     RecordStore
	logger    logger.Interface

	mu     sync.Mutex
	active map[string]struct{}
}

// NewRunner creates a Runner.
func NewRunner(source FeedSource, normalizer ItemNormalizer, store RecordStore, log logger.Interface) *Runner {
	return &Runner{
		source:    source,
		normalize: normalizer,
		store:     store,
		logger:    log.WithComponent("pipeline"),
		active:    make(map[string]struct{}),
	}
}

// acquire claims the per-creator run lock without blocking.
func (r *Runner) acquire(creatorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.active[creatorID]; busy {
		return fmt.Errorf("%w: %s", ErrRunInProgress, creatorID)
	}
	r.active[creatorID] = struct{}{}
	return nil
}

func (r *Runner) release(creatorID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, creatorID)
}

// Run executes one ingestion run for the creator. Per-record failures with
// a known cause (unrecognized timestamp, unexpected payload shape, a failed
// article fetch) skip that record and continue; anything that compromises
// the whole run aborts it.
func (r *Runner) Run(ctx context.Context, creatorID string) (*Report, error) {
	if err := r.acquire(creatorID); err != nil {
		return nil, err
	}
	defer r.release(creatorID)

	report := &Report{
		RunID:     uuid.New(),
		CreatorID: creatorID,
	}
	log := r.logger.With("run_id", report.RunID.String(), "creator_id", creatorID)
	log.Info("Ingestion run started")

	rawItems, err := r.source.FetchSpaceFeed(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch post stream: %w", err)
	}
	report.Fetched = len(rawItems)

	records := make([]domain.ContentItem, 0, len(rawItems))
	for _, raw := range rawItems {
		record, normErr := r.normalize.Normalize(ctx, raw)
		if normErr != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("ingestion interrupted: %w", ctx.Err())
			}
			log.Warn("Skipping record", "item_id", raw.IDStr, "error", normErr)
			report.Skipped = append(report.Skipped, SkippedRecord{
				ID:     raw.IDStr,
				Reason: normErr.Error(),
			})
			continue
		}

		if report.CreatorName == "" {
			report.CreatorName = record.CreatorName
		}
		records = append(records, *record)
	}
	report.Normalized = len(records)

	if len(records) > 0 {
		inserted, upsertErr := r.store.UpsertRaw(ctx, records)
		if upsertErr != nil {
			return nil, fmt.Errorf("failed to persist records: %w", upsertErr)
		}
		report.Inserted = inserted
	}

	log.Info("Ingestion run complete",
		"fetched", report.Fetched,
		"normalized", report.Normalized,
		"inserted", report.Inserted,
		"skipped", len(report.Skipped))
	return report, nil
}
