package task

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"persona/internal/storage"
)

var epoch = time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)

// stepClock advances by step on every call.
type stepClock struct {
	t    time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), "persona.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testOptions(t *testing.T, step time.Duration) Options {
	clock := &stepClock{t: epoch, step: step}
	return Options{Logger: zaptest.NewLogger(t), Now: clock.Now}
}

func TestUnmarshalLegacyRecord(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    string
		check func(t *testing.T, got Task)
	}{
		{
			name: "text field becomes title",
			in:   `{"id":"1700000000000","text":"Buy milk","createdAt":"2023-11-14T22:13:20.000Z"}`,
			check: func(t *testing.T, got Task) {
				if got.Title != "Buy milk" {
					t.Errorf("Title = %q", got.Title)
				}
				if got.Completed {
					t.Error("missing completed should default to false")
				}
				if got.Due != nil {
					t.Errorf("missing due should be nil, got %q", *got.Due)
				}
			},
		},
		{
			name: "numeric id and empty due",
			in:   `{"id":3,"title":"seeded","due":"","completed":true,"createdAt":"2024-01-02T03:04:05.678Z"}`,
			check: func(t *testing.T, got Task) {
				if got.ID != "3" {
					t.Errorf("ID = %q", got.ID)
				}
				if got.Due != nil {
					t.Error("empty due should decode as nil")
				}
				if !got.Completed {
					t.Error("Completed should be true")
				}
				want := time.Date(2024, 1, 2, 3, 4, 5, 678e6, time.UTC)
				if !got.CreatedAt.Equal(want) {
					t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want)
				}
			},
		},
		{
			name: "createdAt derived from timestamp id",
			in:   `{"id":"1700000000000","title":"x"}`,
			check: func(t *testing.T, got Task) {
				if !got.CreatedAt.Equal(time.UnixMilli(1700000000000)) {
					t.Errorf("CreatedAt = %v", got.CreatedAt)
				}
			},
		},
		{
			name: "title wins over text",
			in:   `{"id":"a","title":"new","text":"old","createdAt":1700000000000}`,
			check: func(t *testing.T, got Task) {
				if got.Title != "new" {
					t.Errorf("Title = %q", got.Title)
				}
				if got.CreatedAt.UnixMilli() != 1700000000000 {
					t.Errorf("CreatedAt = %v", got.CreatedAt)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got Task
			if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			tt.check(t, got)
		})
	}
}

func TestMarshalWireShape(t *testing.T) {
	t.Parallel()

	due := "2025-04-01"
	data, err := json.Marshal(Task{ID: "1", Title: "a", Due: &due, CreatedAt: epoch})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"id":"1","title":"a","due":"2025-04-01","completed":false,"createdAt":"2025-03-01T09:00:00.000Z"}`
	if string(data) != want {
		t.Fatalf("Marshal = %s\nwant      %s", data, want)
	}

	data, _ = json.Marshal(Task{ID: "2", Title: "b", CreatedAt: epoch})
	var back map[string]any
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if v, ok := back["due"]; !ok || v != nil {
		t.Fatalf("absent due should be written as null, got %v", v)
	}
}

func TestParseDue(t *testing.T) {
	t.Parallel()

	if d, err := ParseDue("  "); err != nil || d != nil {
		t.Fatalf("blank due: %v %v", d, err)
	}
	if d, err := ParseDue("2025-12-24"); err != nil || *d != "2025-12-24" {
		t.Fatalf("valid due: %v %v", d, err)
	}
	for _, bad := range []string{"24/12/2025", "2025-02-30", "tomorrow"} {
		if _, err := ParseDue(bad); !errors.Is(err, ErrInvalidDue) {
			t.Fatalf("ParseDue(%q): got %v", bad, err)
		}
	}
}

func TestIDsUniqueWithinSameMillisecond(t *testing.T) {
	t.Parallel()

	frozen := func() time.Time { return epoch }
	b := NewArrayBackend(newStore(t), Options{Now: frozen})
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		tk, err := b.Add(ctx, "same instant")
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if seen[tk.ID] {
			t.Fatalf("duplicate id %s", tk.ID)
		}
		seen[tk.ID] = true
	}
}

func TestReadSnapshotRecovers(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		payload string
		want    int
	}{
		{"corrupt json", `{not json`, 0},
		{"not an array", `{"id":"1"}`, 0},
		{"drops untitled and bad records", `[{"id":"1","title":"ok"},{"id":"2"},"junk",{"id":"3","text":"legacy"}]`, 2},
		{"renumbers duplicate ids", `[{"id":"1","title":"a"},{"id":"1","title":"b"}]`, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t)
			if err := store.Set(ctx, storage.KeyTasksArray, []byte(tt.payload)); err != nil {
				t.Fatalf("Set: %v", err)
			}
			b := NewArrayBackend(store, testOptions(t, time.Millisecond))
			if err := b.Load(ctx); err != nil {
				t.Fatalf("Load: %v", err)
			}
			if b.Len() != tt.want {
				t.Fatalf("Len = %d, want %d", b.Len(), tt.want)
			}
			ids := map[string]bool{}
			for _, tk := range b.Tasks() {
				if ids[tk.ID] {
					t.Fatalf("duplicate id %s after load", tk.ID)
				}
				ids[tk.ID] = true
			}
		})
	}
}
