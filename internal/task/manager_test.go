package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"persona/internal/storage"
)

func TestManagerSwitchRoundTripKeepsTasks(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newStore(t), testOptions(t, time.Millisecond))
	if err := m.Init(ctx, KindArray); err != nil {
		t.Fatalf("Init: %v", err)
	}

	for _, title := range []string{"alpha", "bravo", "charlie"} {
		if _, err := m.Add(ctx, title); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	first := m.Tasks()[0]
	m.ToggleDone(ctx, first.ID)
	before := m.Render(DefaultQuery())

	moved, err := m.Switch(ctx, KindMap)
	if err != nil || !moved {
		t.Fatalf("Switch to map: moved=%v err=%v", moved, err)
	}
	if m.Active() != KindMap {
		t.Fatalf("Active = %s", m.Active())
	}
	if _, err := m.Switch(ctx, KindArray); err != nil {
		t.Fatalf("Switch back: %v", err)
	}

	after := m.Render(DefaultQuery())
	if ids(after.Tasks) != ids(before.Tasks) || after.Stats != before.Stats {
		t.Fatalf("A->B->A changed the tasks: before %s %+v, after %s %+v",
			ids(before.Tasks), before.Stats, ids(after.Tasks), after.Stats)
	}
	if got, _ := m.Get(first.ID); !got.Completed {
		t.Fatal("completion state lost in migration")
	}
}

func TestManagerSwitchToActiveIsNoop(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	m := NewManager(store, testOptions(t, time.Millisecond))
	m.Init(ctx, KindArray)
	m.Add(ctx, "only")

	moved, err := m.Switch(ctx, KindArray)
	if err != nil || moved {
		t.Fatalf("Switch to active backend: moved=%v err=%v", moved, err)
	}
	if _, err := store.Get(ctx, storage.KeyTasksMap); err == nil {
		t.Fatal("no-op switch must not write the map snapshot")
	}
	if _, err := m.Switch(ctx, Kind("tree")); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

// failingKV refuses writes to one key.
type failingKV struct {
	storage.KV
	key string
}

var errDiskFull = errors.New("disk full")

func (f failingKV) Set(ctx context.Context, key string, value []byte) error {
	if key == f.key {
		return errDiskFull
	}
	return f.KV.Set(ctx, key, value)
}

func TestManagerSwitchFailedSaveKeepsSource(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	m := NewManager(failingKV{KV: store, key: storage.KeyTasksMap}, testOptions(t, time.Millisecond))
	m.Init(ctx, KindArray)
	m.Add(ctx, "stays in array")

	moved, err := m.Switch(ctx, KindMap)
	if !errors.Is(err, errDiskFull) || moved {
		t.Fatalf("Switch: moved=%v err=%v", moved, err)
	}
	if m.Active() != KindArray {
		t.Fatalf("Active = %s after failed migration", m.Active())
	}
	if pref, _ := m.Preference(ctx); pref != KindArray {
		t.Fatalf("preference = %s after failed migration", pref)
	}
	if _, err := m.Add(ctx, "still writable"); err != nil {
		t.Fatalf("Add after failed switch: %v", err)
	}
	if n := len(m.Tasks()); n != 2 {
		t.Fatalf("%d tasks, want 2", n)
	}
}

func TestManagerSwitchLeavesSourceSnapshotStale(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	m := NewManager(store, testOptions(t, time.Millisecond))
	m.Init(ctx, KindArray)
	m.Add(ctx, "before switch")

	m.Switch(ctx, KindMap)
	m.Add(ctx, "after switch")

	arr := NewArrayBackend(store, Options{})
	if err := arr.Load(ctx); err != nil {
		t.Fatalf("Load array: %v", err)
	}
	if arr.Len() != 1 {
		t.Fatalf("array snapshot has %d tasks, want the 1 from before the switch", arr.Len())
	}
	hsh := NewMapBackend(store, Options{})
	hsh.Load(ctx)
	if hsh.Len() != 2 {
		t.Fatalf("map snapshot has %d tasks, want 2", hsh.Len())
	}
}

func TestManagerPreferenceSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	m := NewManager(store, testOptions(t, time.Millisecond))
	if err := m.Init(ctx, KindArray); err != nil {
		t.Fatalf("Init: %v", err)
	}
	m.Add(ctx, "persisted")
	if _, err := m.Switch(ctx, KindMap); err != nil {
		t.Fatalf("Switch: %v", err)
	}

	restarted := NewManager(store, testOptions(t, time.Millisecond))
	if err := restarted.Init(ctx, KindArray); err != nil {
		t.Fatalf("Init after restart: %v", err)
	}
	if restarted.Active() != KindMap {
		t.Fatalf("Active after restart = %s, want map", restarted.Active())
	}
	if len(restarted.Tasks()) != 1 {
		t.Fatalf("restarted manager has %d tasks", len(restarted.Tasks()))
	}
}

func TestManagerInitFallbackAndLegacyPreference(t *testing.T) {
	ctx := context.Background()

	m := NewManager(newStore(t), Options{})
	if err := m.Init(ctx, KindMap); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if m.Active() != KindMap {
		t.Fatalf("fallback ignored: %s", m.Active())
	}

	store := newStore(t)
	store.Set(ctx, storage.KeyStorageChoice, []byte(`"map"`))
	m = NewManager(store, Options{})
	m.Init(ctx, KindArray)
	if m.Active() != KindMap {
		t.Fatalf("quoted preference not honoured: %s", m.Active())
	}
}

func TestManagerImportSkipsKnownIDs(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newStore(t), testOptions(t, time.Millisecond))
	m.Init(ctx, KindArray)

	seed := []Task{
		{ID: "1", Title: "delectus aut autem", CreatedAt: epoch},
		{ID: "2", Title: "quis ut nam facilis", CreatedAt: epoch, Completed: true},
		{ID: "3", Title: "   ", CreatedAt: epoch},
	}
	n, err := m.Import(ctx, seed)
	if err != nil || n != 2 {
		t.Fatalf("first Import: n=%d err=%v", n, err)
	}
	n, err = m.Import(ctx, seed)
	if err != nil || n != 0 {
		t.Fatalf("second Import: n=%d err=%v", n, err)
	}
	m.Add(ctx, "local")

	seen := map[string]bool{}
	for _, tk := range m.Tasks() {
		if seen[tk.ID] {
			t.Fatalf("duplicate id %s", tk.ID)
		}
		seen[tk.ID] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(seen))
	}
}

func TestManagerNewestFirstByDefault(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newStore(t), testOptions(t, time.Second))
	m.Init(ctx, KindArray)

	older, _ := m.Add(ctx, "Pay rent")
	milk, _ := m.Add(ctx, "Buy milk")

	got := m.Render(DefaultQuery())
	if ids(got.Tasks) != milk.ID+","+older.ID {
		t.Fatalf("createdAt desc = %s", ids(got.Tasks))
	}
	if l := m.Render(Query{Filter: FilterCompleted, SortBy: SortCreated, Order: Desc}); len(l.Tasks) != 0 {
		t.Fatal("new task must not be in the completed filter")
	}
}
