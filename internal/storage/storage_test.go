package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "persona.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty db path")
	}
}

func TestGetMissingKey(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing key: got %v, want ErrNotFound", err)
	}
}

func TestSetOverwritesAndRemove(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.Set(ctx, KeyStorageChoice, []byte(`"array"`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, KeyStorageChoice, []byte(`"map"`)); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, err := s.Get(ctx, KeyStorageChoice)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `"map"` {
		t.Fatalf("Get = %s, want \"map\"", got)
	}

	if err := s.Remove(ctx, KeyStorageChoice); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove(ctx, KeyStorageChoice); err != nil {
		t.Fatalf("Remove twice: %v", err)
	}
	if _, err := s.Get(ctx, KeyStorageChoice); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after remove: got %v, want ErrNotFound", err)
	}
}

func TestKeysSorted(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	for _, k := range []string{KeyTasksMap, KeyCharacters, KeyTasksArray} {
		if err := s.Set(ctx, k, []byte("[]")); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}
	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	want := []string{KeyCharacters, KeyTasksArray, KeyTasksMap}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Fatalf("Keys = %v, want %v", keys, want)
	}
}

func TestValuesSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persona.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Set(ctx, KeyCharacters, []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Get(ctx, KeyCharacters)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `[{"id":"1"}]` {
		t.Fatalf("Get = %s", got)
	}
}

func TestSqliteDSN(t *testing.T) {
	if got := sqliteDSN("file:memdb?mode=memory"); got != "file:memdb?mode=memory" {
		t.Fatalf("file: prefix should pass through, got %s", got)
	}
	got := sqliteDSN("/tmp/x.db")
	if !strings.HasPrefix(got, "file:///tmp/x.db?") || !strings.Contains(got, "mode=rwc") {
		t.Fatalf("unexpected dsn %s", got)
	}
}
