package history

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Sown0205/Anubis/internal/core/model"
)

func testSession(id string, start time.Time, attacks int) (model.ScanSession, []model.ScanResult) {
	end := start.Add(95 * time.Minute)
	session := model.ScanSession{
		ID:          id,
		StartTime:   start,
		EndTime:     &end,
		Status:      model.SessionCompleted,
		TotalFlows:  100,
		BenignCount: 100 - attacks,
		AttackCount: attacks,
	}
	results := []model.ScanResult{
		{
			ID:     "r-" + id,
			FlowID: "192.168.1.10:1234->8.8.8.8:443:TCP",
			NetworkFlow: model.NetworkFlow{
				SrcIP: "192.168.1.10", SrcPort: 1234,
				DstIP: "8.8.8.8", DstPort: 443,
				Protocol: "TCP", Timestamp: start,
			},
			AIPrediction: model.Prediction{Classification: model.ClassBenign, Confidence: 0.9},
			Status:       model.ClassBenign,
			ScanID:       id,
			Timestamp:    start,
		},
	}
	return session, results
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	start := time.Date(2024, 1, 15, 14, 30, 22, 0, time.UTC)
	session, results := testSession("scan-1", start, 12)

	if err := store.Record(ctx, session, results); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	detail, err := store.Get(ctx, "scan-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if detail == nil {
		t.Fatal("Expected detail, got nil")
	}
	if detail.Session.TotalFlows != 100 {
		t.Errorf("Expected 100 flows, got %d", detail.Session.TotalFlows)
	}
	if detail.TotalResults != 1 {
		t.Errorf("Expected 1 result, got %d", detail.TotalResults)
	}

	// Unknown id yields (nil, nil).
	missing, err := store.Get(ctx, "nope")
	if err != nil {
		t.Fatalf("Get of unknown id errored: %v", err)
	}
	if missing != nil {
		t.Error("Expected nil detail for unknown id")
	}
}

func TestRecordUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	start := time.Now().UTC().Add(-time.Hour)
	session, results := testSession("scan-1", start, 5)
	if err := store.Record(ctx, session, results); err != nil {
		t.Fatalf("First record failed: %v", err)
	}

	session.TotalFlows = 250
	if err := store.Record(ctx, session, results); err != nil {
		t.Fatalf("Second record failed: %v", err)
	}

	items, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Upsert should keep one row, got %d", len(items))
	}
	if items[0].TotalFlows != 250 {
		t.Errorf("Expected updated flow count 250, got %d", items[0].TotalFlows)
	}
}

func TestListOrderingAndItemShape(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older, oResults := testSession("older", time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), 3)
	newer, nResults := testSession("newer", time.Date(2024, 1, 15, 14, 30, 22, 0, time.UTC), 45)

	if err := store.Record(ctx, older, oResults); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := store.Record(ctx, newer, nResults); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	items, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[0].ID != "newer" {
		t.Errorf("Expected newest first, got %s", items[0].ID)
	}
	if items[0].Date != "2024-01-15" || items[0].Time != "14:30:22" {
		t.Errorf("Unexpected date/time: %s %s", items[0].Date, items[0].Time)
	}
	if items[0].Duration != "1h 35m" {
		t.Errorf("Expected duration 1h 35m, got %s", items[0].Duration)
	}
	if items[0].Threats != 45 {
		t.Errorf("Expected 45 threats, got %d", items[0].Threats)
	}
	if items[0].Status != "Completed" {
		t.Errorf("Expected Completed, got %s", items[0].Status)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, results := testSession("scan-1", time.Now().UTC(), 0)
	if err := store.Record(ctx, session, results); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if err := store.Delete(ctx, "scan-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	detail, err := store.Get(ctx, "scan-1")
	if err != nil || detail != nil {
		t.Errorf("Expected scan to be gone, got %+v err=%v", detail, err)
	}

	// Deleting an unknown id is a no-op.
	if err := store.Delete(ctx, "scan-1"); err != nil {
		t.Errorf("Second delete should not error: %v", err)
	}
}

func TestExportSingleAndAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, results := testSession("scan-1", time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC), 7)
	if err := store.Record(ctx, session, results); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	data, filename, err := Export(ctx, store, "scan-1")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.HasPrefix(filename, "anubis_scan_export_") || !strings.HasSuffix(filename, ".json") {
		t.Errorf("Unexpected export filename: %s", filename)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("Export payload is not valid JSON: %v", err)
	}
	if _, ok := envelope["scan_session"]; !ok {
		t.Error("Single-scan export should include scan_session")
	}
	if _, ok := envelope["exported_at"]; !ok {
		t.Error("Export should include exported_at")
	}

	data, _, err = Export(ctx, store, "")
	if err != nil {
		t.Fatalf("Full export failed: %v", err)
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("Full export payload is not valid JSON: %v", err)
	}
	if _, ok := envelope["sessions"]; !ok {
		t.Error("Full export should include sessions")
	}

	if _, _, err := Export(ctx, store, "unknown"); err == nil {
		t.Error("Export of unknown scan should fail")
	}
}
