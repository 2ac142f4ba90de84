package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestJSONStoreMissingFileIsEmpty(t *testing.T) {
	store, err := NewStore(TypeJSON, filepath.Join(t.TempDir(), "seen.json"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	urls, err := store.Load()
	if err != nil || len(urls) != 0 {
		t.Fatalf("expected empty history, got %v err=%v", urls, err)
	}
}

func TestJSONStoreCorruptFileReportsErrCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	if err := os.WriteFile(path, []byte(`{"not": "a list"`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	urls, err := newJSONStore(path).Load()
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
	if len(urls) != 0 {
		t.Fatalf("corrupt history must yield no urls, got %v", urls)
	}
}

func TestJSONStoreSaveOverwritesAndKeepsOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "seen.json")
	store := newJSONStore(path)

	if err := store.Save([]string{"https://a.test/1", "https://a.test/2"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save([]string{"https://b.test/9", "https://a.test/1"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	urls, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(urls) != 2 || urls[0] != "https://b.test/9" || urls[1] != "https://a.test/1" {
		t.Fatalf("unexpected history %v", urls)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestBoltStoreKeepsInsertionOrder(t *testing.T) {
	raw, err := NewStore(TypeBBolt, filepath.Join(t.TempDir(), "seen.db"))
	if err != nil {
		t.Fatalf("NewStore bbolt: %v", err)
	}
	store := raw.(*boltStore)
	defer store.Close()

	want := []string{"https://z.test/item/1", "https://a.test/item/2", "https://m.test/item/3"}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(want[:2]); err != nil {
		t.Fatalf("Save shrink: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Load = %v", got)
	}
	if _, ok := store.savedAt(); !ok {
		t.Fatalf("expected saved_at to be recorded")
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "")
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.Save([]string{"x"}); err != nil {
		t.Fatalf("noop store Save: %v", err)
	}
	if urls, _ := store.Load(); len(urls) != 0 {
		t.Fatalf("noop store should not remember anything")
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "x"); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if _, err := NewStore(TypeJSON, " "); err == nil {
		t.Fatalf("expected error for empty json path")
	}
}
