package localstore

import (
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenInMemory()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutGetRoundtrip(t *testing.T) {
	store := newTestStore(t)

	if err := store.Put("inks-guest-credits-abc", "3"); err != nil {
		t.Fatalf("unexpected error putting: %v", err)
	}

	value, found, err := store.Get("inks-guest-credits-abc")
	if err != nil {
		t.Fatalf("unexpected error getting: %v", err)
	}
	if !found {
		t.Fatal("expected key to exist")
	}
	if value != "3" {
		t.Errorf("expected value 3, got %q", value)
	}
}

func TestGetMissingKey(t *testing.T) {
	store := newTestStore(t)

	_, found, err := store.Get("nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected key to be missing")
	}
}

func TestPutOverwrites(t *testing.T) {
	store := newTestStore(t)

	if err := store.Put("lang", "es"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Put("lang", "en"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value, _, err := store.Get("lang")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "en" {
		t.Errorf("expected overwritten value en, got %q", value)
	}
}

func TestKeysAreCaseInsensitive(t *testing.T) {
	store := newTestStore(t)

	if err := store.Put("ABC-Key", "v"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value, found, err := store.Get("abc-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || value != "v" {
		t.Errorf("expected value v under lowercase key, got %q (found=%v)", value, found)
	}
}

func TestBlankKeyRejected(t *testing.T) {
	store := newTestStore(t)

	if err := store.Put("   ", "v"); err == nil {
		t.Error("expected error putting blank key")
	}
	if _, _, err := store.Get("   "); err == nil {
		t.Error("expected error getting blank key")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Put("inks-language-guest-abc", "es"); err != nil {
		t.Fatalf("unexpected error putting: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("unexpected error closing: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("unexpected error reopening: %v", err)
	}
	defer reopened.Close()

	value, found, err := reopened.Get("inks-language-guest-abc")
	if err != nil {
		t.Fatalf("unexpected error getting: %v", err)
	}
	if !found || value != "es" {
		t.Errorf("expected persisted value es, got %q (found=%v)", value, found)
	}
}
