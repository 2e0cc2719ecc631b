package perf

import (
	"path/filepath"
	"testing"
	"time"
)

func TestStoreAppendAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perf.db")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	now := time.Now()
	for i := 0; i < 3; i++ {
		rec := record("breakout", i != 2, int64(100+i), int64(i*1_000), 1_000_000)
		rec.RecordedAt = now
		if err := store.Append(rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	records, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("loaded %d records, want 3", len(records))
	}
	for _, rec := range records {
		if rec.StrategyID != "breakout" {
			t.Fatalf("strategy = %s, want breakout", rec.StrategyID)
		}
	}
}

func TestStoreSameInstantRecordsDoNotCollide(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perf.db")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	at := time.Unix(0, 1_700_000_000_000_000_000)
	for i := 0; i < 5; i++ {
		rec := record("burst", true, 10, 0, 1)
		rec.RecordedAt = at
		if err := store.Append(rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	records, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("loaded %d records, want 5 (keys collided)", len(records))
	}
}
