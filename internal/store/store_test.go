package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/entity-profile/internal/errkind"
	"github.com/danielpatrickdp/entity-profile/internal/model"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// #region document-tests

func TestFetchMissingIndex(t *testing.T) {
	s := tempStore(t)
	_, err := s.FetchDocument(context.Background(), model.JobIndex, "d1")
	if err == nil {
		t.Fatal("expected error for missing index")
	}
	if !errkind.Is(err, errkind.IndexNotFound) {
		t.Fatalf("expected index_not_found, got %v", err)
	}
}

func TestPutAndFetchDocument(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	if err := s.CreateIndex(ctx, model.DetectorIndex); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	// second create is a no-op
	if err := s.CreateIndex(ctx, model.DetectorIndex); err != nil {
		t.Fatalf("CreateIndex again: %v", err)
	}

	doc, err := s.FetchDocument(ctx, model.DetectorIndex, "d1")
	if err != nil {
		t.Fatalf("FetchDocument: %v", err)
	}
	if doc.Found {
		t.Fatal("expected not found before put")
	}

	if err := s.PutDocument(ctx, model.DetectorIndex, "d1", []byte(`{"name":"a"}`)); err != nil {
		t.Fatalf("PutDocument: %v", err)
	}
	if err := s.PutDocument(ctx, model.DetectorIndex, "d1", []byte(`{"name":"b"}`)); err != nil {
		t.Fatalf("PutDocument replace: %v", err)
	}

	doc, err = s.FetchDocument(ctx, model.DetectorIndex, "d1")
	if err != nil {
		t.Fatalf("FetchDocument: %v", err)
	}
	if !doc.Found || string(doc.Source) != `{"name":"b"}` {
		t.Fatalf("unexpected document %+v", doc)
	}
	if doc.Index != model.DetectorIndex || doc.ID != "d1" {
		t.Fatalf("unexpected coordinates %s/%s", doc.Index, doc.ID)
	}
}

func TestPutIntoMissingIndex(t *testing.T) {
	s := tempStore(t)
	err := s.PutDocument(context.Background(), "nope", "x", []byte(`{}`))
	if !errkind.Is(err, errkind.IndexNotFound) {
		t.Fatalf("expected index_not_found, got %v", err)
	}
}

func TestDeleteIndexRemovesDocuments(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	s.CreateIndex(ctx, model.JobIndex)
	if err := s.PutDocument(ctx, model.JobIndex, "d1", []byte(`{}`)); err != nil {
		t.Fatalf("PutDocument: %v", err)
	}
	if err := s.DeleteIndex(ctx, model.JobIndex); err != nil {
		t.Fatalf("DeleteIndex: %v", err)
	}
	if ok, _ := s.IndexExists(ctx, model.JobIndex); ok {
		t.Fatal("index still exists")
	}
	s.CreateIndex(ctx, model.JobIndex)
	doc, err := s.FetchDocument(ctx, model.JobIndex, "d1")
	if err != nil {
		t.Fatalf("FetchDocument: %v", err)
	}
	if doc.Found {
		t.Fatal("document survived index deletion")
	}
}

// #endregion document-tests

// #region sample-tests

func TestLatestSampleTimeMissingIndex(t *testing.T) {
	s := tempStore(t)
	_, err := s.LatestSampleTime(context.Background(), SampleQuery{DetectorID: "d1", EntityValue: "a"})
	if !errkind.Is(err, errkind.IndexNotFound) {
		t.Fatalf("expected index_not_found, got %v", err)
	}
	_, err = s.IndexResult(context.Background(), Result{DetectorID: "d1", EntityValue: "a"})
	if !errkind.Is(err, errkind.IndexNotFound) {
		t.Fatalf("expected index_not_found on write, got %v", err)
	}
}

func TestLatestSampleTimeFilters(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	if err := s.CreateIndex(ctx, model.ResultIndex); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}

	enabled := time.UnixMilli(10_000)
	rows := []Result{
		{DetectorID: "d1", EntityField: "host", EntityValue: "a", ExecutionEndTime: time.UnixMilli(5_000)},  // before enable
		{DetectorID: "d1", EntityField: "host", EntityValue: "a", ExecutionEndTime: time.UnixMilli(12_000)}, // match
		{DetectorID: "d1", EntityField: "host", EntityValue: "a", ExecutionEndTime: time.UnixMilli(15_000)}, // latest match
		{DetectorID: "d1", EntityField: "host", EntityValue: "b", ExecutionEndTime: time.UnixMilli(99_000)}, // other entity
		{DetectorID: "d2", EntityField: "host", EntityValue: "a", ExecutionEndTime: time.UnixMilli(88_000)}, // other detector
	}
	for _, r := range rows {
		id, err := s.IndexResult(ctx, r)
		if err != nil {
			t.Fatalf("IndexResult: %v", err)
		}
		if id == "" {
			t.Fatal("expected generated result id")
		}
	}

	got, err := s.LatestSampleTime(ctx, SampleQuery{DetectorID: "d1", EntityValue: "a", From: enabled})
	if err != nil {
		t.Fatalf("LatestSampleTime: %v", err)
	}
	if got == nil || *got != 15_000 {
		t.Fatalf("expected 15000, got %v", got)
	}

	none, err := s.LatestSampleTime(ctx, SampleQuery{DetectorID: "d1", EntityValue: "zzz", From: enabled})
	if err != nil {
		t.Fatalf("LatestSampleTime: %v", err)
	}
	if none != nil {
		t.Fatalf("expected nil for unknown entity, got %d", *none)
	}
}

func TestSampleCounts(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	if err := s.CreateIndex(ctx, model.ResultIndex); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	for _, ms := range []int64{1_000, 3_000, 2_000} {
		if _, err := s.IndexResult(ctx, Result{DetectorID: "d1", EntityValue: "a", ExecutionEndTime: time.UnixMilli(ms)}); err != nil {
			t.Fatalf("IndexResult: %v", err)
		}
	}
	if _, err := s.IndexResult(ctx, Result{DetectorID: "d1", EntityValue: "b", ExecutionEndTime: time.UnixMilli(500)}); err != nil {
		t.Fatalf("IndexResult: %v", err)
	}

	got, err := s.SampleCounts(ctx)
	if err != nil {
		t.Fatalf("SampleCounts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(got))
	}
	if got[0] != (SampleCount{DetectorID: "d1", EntityValue: "a", Samples: 3, LastMs: 3_000}) {
		t.Fatalf("unexpected count %+v", got[0])
	}
	if got[1].Samples != 1 || got[1].EntityValue != "b" {
		t.Fatalf("unexpected count %+v", got[1])
	}
}

// #endregion sample-tests
