package store

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/reouo/bilifeed/internal/dates"
	"github.com/reouo/bilifeed/internal/domain"
	"github.com/reouo/bilifeed/internal/logger"
	"github.com/reouo/bilifeed/internal/normalize"
)

// Default collection names.
const (
	DefaultDataTable     = "bili_dynamics"
	DefaultTagsTable     = "bili_tags"
	DefaultFilteredTable = "bili_filtered"
)

// identifierPattern restricts table names to safe SQL identifiers, since
// table names cannot be bound as query parameters.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Tables names the three collections the store manages.
type Tables struct {
	// Data holds the full ingested record set.
	Data string
	// Tags holds the tag vocabulary, insertion-ordered.
	Tags string
	// Filtered holds the tag-matched projection.
	Filtered string
}

// DefaultTables returns the default collection names.
func DefaultTables() Tables {
	return Tables{
		Data:     DefaultDataTable,
		Tags:     DefaultTagsTable,
		Filtered: DefaultFilteredTable,
	}
}

// Store persists content records in PostgreSQL.
type Store struct {
	db     *sqlx.DB
	tables Tables
	dates  *dates.Normalizer
	logger logger.Interface
}

// New creates a Store. Table names are validated once here because they are
// interpolated into statements.
func New(db *sqlx.DB, tables Tables, dateNormalizer *dates.Normalizer, log logger.Interface) (*Store, error) {
	for _, name := range []string{tables.Data, tables.Tags, tables.Filtered} {
		if !identifierPattern.MatchString(name) {
			return nil, fmt.Errorf("invalid table name %q", name)
		}
	}

	return &Store{
		db:     db,
		tables: tables,
		dates:  dateNormalizer,
		logger: log.WithComponent("store"),
	}, nil
}

// contentRow is the relational shape of a ContentItem.
type contentRow struct {
	CreatorName string         `db:"creator_name"`
	DetailURL   string         `db:"detail_url"`
	Title       string         `db:"title"`
	PublishedOn time.Time      `db:"published_on"`
	Body        string         `db:"body"`
	Pics        pq.StringArray `db:"pics"`
	Kind        string         `db:"kind"`
	Tags        pq.StringArray `db:"tags"`
}

// EnsureSchema creates the three collections if they do not exist. It is an
// idempotent setup primitive, not part of steady-state ingestion.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			creator_name CHARACTER VARYING,
			detail_url CHARACTER VARYING PRIMARY KEY,
			title TEXT,
			published_on DATE,
			body TEXT,
			pics TEXT[],
			kind CHARACTER VARYING
		)`, s.tables.Data),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			position SERIAL,
			tag CHARACTER VARYING PRIMARY KEY
		)`, s.tables.Tags),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			creator_name CHARACTER VARYING,
			detail_url CHARACTER VARYING PRIMARY KEY,
			title TEXT,
			published_on DATE,
			body TEXT,
			pics TEXT[],
			kind CHARACTER VARYING,
			tags TEXT[]
		)`, s.tables.Filtered),
	}

	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	s.logger.Info("Schema ensured",
		"data", s.tables.Data, "tags", s.tables.Tags, "filtered", s.tables.Filtered)
	return nil
}

// UpsertRaw inserts records into the raw collection, ignoring key conflicts
// so the first-written field values win. Repeated ingestion of an
// overlapping fetch window is therefore safe. Returns the number of newly
// inserted records.
func (s *Store) UpsertRaw(ctx context.Context, items []domain.ContentItem) (int, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (creator_name, detail_url, title, published_on, body, pics, kind)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (detail_url) DO NOTHING
	`, s.tables.Data)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for i := range items {
		row, rowErr := s.toRow(&items[i])
		if rowErr != nil {
			return 0, rowErr
		}

		result, execErr := tx.ExecContext(ctx, query,
			row.CreatorName, row.DetailURL, row.Title, row.PublishedOn, row.Body, row.Pics, row.Kind)
		if execErr != nil {
			return 0, fmt.Errorf("failed to upsert record %s: %w", row.DetailURL, execErr)
		}
		if affected, raErr := result.RowsAffected(); raErr == nil {
			inserted += int(affected)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit raw upsert: %w", err)
	}

	s.logger.Info("Raw upsert complete", "items", len(items), "inserted", inserted)
	return inserted, nil
}

// UpsertFiltered inserts records into the filtered collection, overwriting
// every non-key field on conflict. Filtered records are wholesale-recomputed
// each pass and must reflect the latest tag evaluation; this overwrite
// policy is deliberately asymmetric with UpsertRaw.
func (s *Store) UpsertFiltered(ctx context.Context, items []domain.ContentItem) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (creator_name, detail_url, title, published_on, body, pics, kind, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (detail_url) DO UPDATE SET
			creator_name = EXCLUDED.creator_name,
			title = EXCLUDED.title,
			published_on = EXCLUDED.published_on,
			body = EXCLUDED.body,
			pics = EXCLUDED.pics,
			kind = EXCLUDED.kind,
			tags = EXCLUDED.tags
	`, s.tables.Filtered)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range items {
		row, rowErr := s.toRow(&items[i])
		if rowErr != nil {
			return rowErr
		}

		if _, execErr := tx.ExecContext(ctx, query,
			row.CreatorName, row.DetailURL, row.Title, row.PublishedOn,
			row.Body, row.Pics, row.Kind, row.Tags); execErr != nil {
			return fmt.Errorf("failed to upsert filtered record %s: %w", row.DetailURL, execErr)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit filtered upsert: %w", err)
	}

	s.logger.Info("Filtered upsert complete", "items", len(items))
	return nil
}

// FetchRaw returns every record in the raw collection.
func (s *Store) FetchRaw(ctx context.Context) ([]domain.ContentItem, error) {
	return s.fetchAll(ctx, s.tables.Data, false)
}

// FetchFiltered returns every record in the filtered projection.
func (s *Store) FetchFiltered(ctx context.Context) ([]domain.ContentItem, error) {
	return s.fetchAll(ctx, s.tables.Filtered, true)
}

func (s *Store) fetchAll(ctx context.Context, table string, withTags bool) ([]domain.ContentItem, error) {
	columns := "creator_name, detail_url, title, published_on, body, pics, kind"
	if withTags {
		columns += ", tags"
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY published_on DESC, detail_url", columns, table)

	var rows []contentRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to fetch records from %s: %w", table, err)
	}

	items := make([]domain.ContentItem, 0, len(rows))
	for i := range rows {
		items = append(items, fromRow(&rows[i]))
	}
	return items, nil
}

// ReplaceTags replaces the tag vocabulary, preserving the given order. The
// stored order is the order matched tags appear in on filtered records.
func (s *Store) ReplaceTags(ctx context.Context, tags []string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", s.tables.Tags)); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (tag) VALUES ($1) ON CONFLICT (tag) DO NOTHING", s.tables.Tags)
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, insert, tag); err != nil {
			return fmt.Errorf("failed to insert tag %q: %w", tag, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tags: %w", err)
	}

	s.logger.Info("Tag vocabulary replaced", "tags", len(tags))
	return nil
}

// ListTags returns the tag vocabulary in insertion order.
func (s *Store) ListTags(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT tag FROM %s ORDER BY position", s.tables.Tags)

	var tags []string
	if err := s.db.SelectContext(ctx, &tags, query); err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// Clear removes every row from the named collection. A maintenance
// primitive, never invoked by steady-state ingestion.
func (s *Store) Clear(ctx context.Context, table string) error {
	switch table {
	case s.tables.Data, s.tables.Tags, s.tables.Filtered:
	default:
		return fmt.Errorf("unknown table %q", table)
	}

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}

	s.logger.Info("Collection cleared", "table", table)
	return nil
}

// toRow converts a ContentItem for persistence. The stored publish date is
// extracted from the canonical text form, per the double-hop contract some
// text-only callers rely on.
func (s *Store) toRow(item *domain.ContentItem) (*contentRow, error) {
	publishedOn, err := s.dates.CalendarDate(dates.Format(item.PublishedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to derive calendar date for %s: %w", item.DetailURL, err)
	}

	return &contentRow{
		CreatorName: item.CreatorName,
		DetailURL:   item.DetailURL,
		Title:       item.Title,
		PublishedOn: publishedOn,
		Body:        item.Body,
		Pics:        pq.StringArray(item.MediaURLs()),
		Kind:        string(item.Kind),
		Tags:        pq.StringArray(item.Tags),
	}, nil
}

// fromRow reconstructs a ContentItem. MIME kinds are re-inferred from the
// stored URLs; inference is pure so the round trip is deterministic.
func fromRow(row *contentRow) domain.ContentItem {
	media := make([]domain.Media, 0, len(row.Pics))
	for _, u := range row.Pics {
		media = append(media, domain.Media{URL: u, MimeKind: normalize.MimeKind(u)})
	}

	return domain.ContentItem{
		CreatorName: row.CreatorName,
		DetailURL:   row.DetailURL,
		Title:       row.Title,
		PublishedAt: row.PublishedOn.UTC(),
		Body:        row.Body,
		Media:       media,
		Kind:        domain.Kind(row.Kind),
		Tags:        row.Tags,
	}
}
