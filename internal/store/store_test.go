package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/reouo/bilifeed/internal/dates"
	"github.com/reouo/bilifeed/internal/domain"
	"github.com/reouo/bilifeed/internal/logger"
	"github.com/reouo/bilifeed/internal/store"
)

func newTestStore(t *testing.T) (*store.Store, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	sqlxDB := sqlx.NewDb(db, "postgres")
	s, err := store.New(sqlxDB, store.DefaultTables(), dates.NewSystem(), logger.NewNoOp())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	return s, mock, func() { db.Close() }
}

func sampleItem(detailURL string) domain.ContentItem {
	return domain.ContentItem{
		CreatorName: "some creator",
		DetailURL:   detailURL,
		Title:       "two cats",
		PublishedAt: time.Date(2024, time.March, 22, 2, 0, 0, 0, time.UTC),
		Body:        "look at them",
		Media: []domain.Media{
			{URL: "https://i0.hdslb.com/bfs/a.jpg", MimeKind: "image/jpeg"},
			{URL: "https://i0.hdslb.com/bfs/b.png", MimeKind: "image/png"},
		},
		Kind: domain.KindImagePost,
	}
}

func TestNewRejectsInvalidTableName(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	tables := store.Tables{Data: "bili_dynamics; DROP TABLE x", Tags: "t", Filtered: "f"}
	if _, err := store.New(sqlx.NewDb(db, "postgres"), tables, dates.NewSystem(), logger.NewNoOp()); err == nil {
		t.Error("New() accepted an unsafe table name")
	}
}

func TestEnsureSchema(t *testing.T) {
	s, mock, cleanup := newTestStore(t)
	defer cleanup()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS bili_dynamics").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS bili_tags").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS bili_filtered").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Errorf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUpsertRawIgnoresConflicts(t *testing.T) {
	s, mock, cleanup := newTestStore(t)
	defer cleanup()

	mock.ExpectBegin()
	// First record is new, second hits the key conflict and is ignored.
	mock.ExpectExec("INSERT INTO bili_dynamics").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO bili_dynamics").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	items := []domain.ContentItem{
		sampleItem("https://www.bilibili.com/opus/1"),
		sampleItem("https://www.bilibili.com/opus/1"),
	}

	inserted, err := s.UpsertRaw(context.Background(), items)
	if err != nil {
		t.Fatalf("UpsertRaw() error = %v", err)
	}
	if inserted != 1 {
		t.Errorf("UpsertRaw() inserted = %d, want 1", inserted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUpsertFilteredOverwrites(t *testing.T) {
	s, mock, cleanup := newTestStore(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bili_filtered").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	item := sampleItem("https://www.bilibili.com/opus/1")
	item.Tags = []string{"cats", "pets"}

	if err := s.UpsertFiltered(context.Background(), []domain.ContentItem{item}); err != nil {
		t.Fatalf("UpsertFiltered() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFetchRaw(t *testing.T) {
	s, mock, cleanup := newTestStore(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{
		"creator_name", "detail_url", "title", "published_on", "body", "pics", "kind",
	}).AddRow(
		"some creator",
		"https://www.bilibili.com/opus/1",
		"two cats",
		time.Date(2024, time.March, 22, 0, 0, 0, 0, time.UTC),
		"look at them",
		"{https://i0.hdslb.com/bfs/a.jpg,https://i0.hdslb.com/bfs/b.png}",
		"DYNAMIC_TYPE_DRAW",
	)
	mock.ExpectQuery("SELECT (.+) FROM bili_dynamics").WillReturnRows(rows)

	items, err := s.FetchRaw(context.Background())
	if err != nil {
		t.Fatalf("FetchRaw() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("FetchRaw() returned %d items, want 1", len(items))
	}

	got := items[0]
	if got.Kind != domain.KindImagePost {
		t.Errorf("Kind = %v, want %v", got.Kind, domain.KindImagePost)
	}
	if len(got.Media) != 2 {
		t.Fatalf("Media has %d entries, want 2", len(got.Media))
	}
	// MIME kinds are re-inferred from the stored URLs, in stored order.
	if got.Media[0].MimeKind != "image/jpeg" || got.Media[1].MimeKind != "image/png" {
		t.Errorf("unexpected MIME kinds: %v, %v", got.Media[0].MimeKind, got.Media[1].MimeKind)
	}
}

func TestFetchFiltered(t *testing.T) {
	s, mock, cleanup := newTestStore(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{
		"creator_name", "detail_url", "title", "published_on", "body", "pics", "kind", "tags",
	}).AddRow(
		"some creator",
		"https://www.bilibili.com/opus/1",
		"two cats",
		time.Date(2024, time.March, 22, 0, 0, 0, 0, time.UTC),
		"look at them",
		"{}",
		"DYNAMIC_TYPE_WORD",
		"{cats,pets}",
	)
	mock.ExpectQuery("SELECT (.+) FROM bili_filtered").WillReturnRows(rows)

	items, err := s.FetchFiltered(context.Background())
	if err != nil {
		t.Fatalf("FetchFiltered() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("FetchFiltered() returned %d items, want 1", len(items))
	}
	if len(items[0].Tags) != 2 || items[0].Tags[0] != "cats" || items[0].Tags[1] != "pets" {
		t.Errorf("Tags = %v, want [cats pets]", items[0].Tags)
	}
}

func TestReplaceAndListTags(t *testing.T) {
	s, mock, cleanup := newTestStore(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM bili_tags").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO bili_tags").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO bili_tags").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	if err := s.ReplaceTags(context.Background(), []string{"cats", "pets"}); err != nil {
		t.Fatalf("ReplaceTags() error = %v", err)
	}

	rows := sqlmock.NewRows([]string{"tag"}).AddRow("cats").AddRow("pets")
	mock.ExpectQuery("SELECT tag FROM bili_tags ORDER BY position").WillReturnRows(rows)

	tags, err := s.ListTags(context.Background())
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	if len(tags) != 2 || tags[0] != "cats" {
		t.Errorf("ListTags() = %v, want insertion order [cats pets]", tags)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestClear(t *testing.T) {
	s, mock, cleanup := newTestStore(t)
	defer cleanup()

	mock.ExpectExec("DELETE FROM bili_dynamics").
		WillReturnResult(sqlmock.NewResult(0, 5))

	if err := s.Clear(context.Background(), "bili_dynamics"); err != nil {
		t.Errorf("Clear() error = %v", err)
	}

	if err := s.Clear(context.Background(), "unrelated_table"); err == nil {
		t.Error("Clear() accepted an unknown table")
	}
}
