package repo

import (
	"context"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fieldline/go-fieldservice-backend/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Use a unique in-memory database per test to avoid schema leakage across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestGetIdempotency_Missing_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.IdempotencyRecord{})

	rec, err := GetIdempotency(context.Background(), db, "user:u1:jobs.create", "k1")
	if rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for missing record, got (%v, %v)", rec, err)
	}
}

func TestCreateIdempotency_SuccessAndDuplicate(t *testing.T) {
	db := newTestDB(t, &domain.IdempotencyRecord{})

	rec, err := CreateIdempotency(context.Background(), db, "user:u9:jobs.create", "k9", "hash-a")
	if err != nil {
		t.Fatalf("CreateIdempotency error: %v", err)
	}
	if rec == nil || rec.ID == "" || rec.Scope != "user:u9:jobs.create" || rec.Key != "k9" ||
		rec.RequestHash != "hash-a" || rec.Status != domain.IdemStatusProcessing {
		t.Fatalf("unexpected record: %+v", rec)
	}

	// Same (scope, key) must map to ErrDuplicate, even with a different hash.
	_, err2 := CreateIdempotency(context.Background(), db, "user:u9:jobs.create", "k9", "hash-b")
	if err2 != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err2)
	}

	// Same key in a different scope is a different logical operation.
	if _, err3 := CreateIdempotency(context.Background(), db, "user:u9:invoices.create", "k9", "hash-a"); err3 != nil {
		t.Fatalf("same key, different scope should insert: %v", err3)
	}
}

func TestCompleteIdempotency_PersistsResponse(t *testing.T) {
	db := newTestDB(t, &domain.IdempotencyRecord{})
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "s", "k", "h"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := CompleteIdempotency(ctx, db, "s", "k", 201, `{"id":"j1"}`); err != nil {
		t.Fatalf("CompleteIdempotency: %v", err)
	}

	rec, err := GetIdempotency(ctx, db, "s", "k")
	if err != nil {
		t.Fatalf("GetIdempotency after complete: %v", err)
	}
	if rec.Status != domain.IdemStatusCompleted || rec.ResponseStatus != 201 || rec.ResponseBody != `{"id":"j1"}` {
		t.Fatalf("completed record not persisted: %+v", rec)
	}
}

func TestCompleteIdempotency_IsIdempotent(t *testing.T) {
	db := newTestDB(t, &domain.IdempotencyRecord{})
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "s", "k", "h"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := CompleteIdempotency(ctx, db, "s", "k", 200, `{"ok":true}`); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	// Second identical completion must not error or change stored data.
	if err := CompleteIdempotency(ctx, db, "s", "k", 200, `{"ok":true}`); err != nil {
		t.Fatalf("repeat complete should be a no-op, got %v", err)
	}

	rec, _ := GetIdempotency(ctx, db, "s", "k")
	if rec.ResponseStatus != 200 || rec.ResponseBody != `{"ok":true}` {
		t.Fatalf("repeat complete changed stored response: %+v", rec)
	}
}

func TestCompleteIdempotency_MissingRecord(t *testing.T) {
	db := newTestDB(t, &domain.IdempotencyRecord{})
	if err := CompleteIdempotency(context.Background(), db, "s", "nope", 200, "{}"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteIdempotency_RemovesRecord(t *testing.T) {
	db := newTestDB(t, &domain.IdempotencyRecord{})
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "s", "k", "h"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := DeleteIdempotency(ctx, db, "s", "k"); err != nil {
		t.Fatalf("DeleteIdempotency: %v", err)
	}
	if _, err := GetIdempotency(ctx, db, "s", "k"); err != ErrNotFound {
		t.Fatalf("record should be gone, got %v", err)
	}
	// Re-insertion after delete must succeed (reclaim path).
	if _, err := CreateIdempotency(ctx, db, "s", "k", "h2"); err != nil {
		t.Fatalf("re-insert after delete: %v", err)
	}
}

// Generic DB error path: attempt insert without migrating the table.
func TestCreateIdempotency_Error_NoTable(t *testing.T) {
	db := newTestDB(t) // intentionally NOT migrating idempotency_records
	_, err := CreateIdempotency(context.Background(), db, "s", "k", "h")
	if err == nil {
		t.Fatalf("expected error when table is missing")
	}
	if err == ErrDuplicate {
		t.Fatalf("expected non-duplicate error, got ErrDuplicate")
	}
}
