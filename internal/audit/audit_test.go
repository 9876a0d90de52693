package audit

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func tempLog(t *testing.T) *Log {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	l, err := NewLog(db)
	if err != nil {
		t.Fatalf("NewLog: %v", err)
	}
	return l
}

func TestRecordAndList(t *testing.T) {
	l := tempLog(t)
	ctx := context.Background()

	entries := []Entry{
		{RequestID: "r1", DetectorID: "d1", EntityValue: "a", Facets: "state", Outcome: "ok", DurationMs: 3},
		{RequestID: "r2", DetectorID: "d1", EntityValue: "b", Facets: "models", Outcome: "not_found",
			Reason: "can't find detector with id d1", DurationMs: 1},
	}
	for _, e := range entries {
		if err := l.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := l.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].RequestID != "r2" {
		t.Fatalf("expected newest first, got %s", got[0].RequestID)
	}
	if got[0].Reason != "can't find detector with id d1" || got[1].Reason != "" {
		t.Fatalf("unexpected reasons %q / %q", got[0].Reason, got[1].Reason)
	}
	if got[1].CreatedAt.IsZero() {
		t.Fatal("expected created_at to be filled in")
	}

	one, err := l.List(ctx, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(one) != 1 {
		t.Fatalf("limit not applied, got %d", len(one))
	}
}
