package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"persona/internal/storage"
)

type Kind string

const (
	KindArray Kind = "array"
	KindMap   Kind = "map"
)

func ParseKind(v string) (Kind, error) {
	switch Kind(v) {
	case KindArray, KindMap:
		return Kind(v), nil
	}
	return "", fmt.Errorf("unknown backend %q (want array or map)", v)
}

// Backend holds the task collection in memory and mirrors it to one storage key.
// Every mutating call persists the whole collection before returning.
type Backend interface {
	Kind() Kind
	Load(ctx context.Context) error
	Save(ctx context.Context) error

	Add(ctx context.Context, title string) (Task, error)
	ToggleDone(ctx context.Context, id string) error
	RemoveTask(ctx context.Context, id string) error
	Rename(ctx context.Context, id, title string) error
	SetDue(ctx context.Context, id, due string) error
	MarkAll(ctx context.Context) error
	RemoveCompleted(ctx context.Context) error
	ClearAll(ctx context.Context) error

	Get(id string) (Task, bool)
	Len() int
	Tasks() []Task
	// Insert adds t unless its id is already present.
	Insert(t Task) bool
	// Replace drops the in-memory collection and bulk-loads ts.
	Replace(ts []Task)

	Render(q Query) Listing
}

type Options struct {
	Logger *zap.Logger
	Now    func() time.Time
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// readSnapshot loads the collection stored under key. A missing key or a
// corrupt snapshot both yield an empty collection.
func readSnapshot(ctx context.Context, kv storage.KV, key string, ids *idSource, log *zap.Logger) ([]Task, error) {
	data, err := kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		log.Warn("discarding corrupt task snapshot", zap.String("key", key), zap.Error(err))
		return nil, nil
	}

	tasks := make([]Task, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for i, rec := range records {
		var t Task
		if err := json.Unmarshal(rec, &t); err != nil {
			log.Warn("skipping malformed task record", zap.String("key", key), zap.Int("index", i), zap.Error(err))
			continue
		}
		if t.Title == "" {
			log.Warn("skipping task without title", zap.String("key", key), zap.Int("index", i))
			continue
		}
		if _, dup := seen[t.ID]; t.ID == "" || dup {
			t.ID, _ = ids.next(func(id string) bool { _, ok := seen[id]; return ok })
		}
		seen[t.ID] = struct{}{}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func writeSnapshot(ctx context.Context, kv storage.KV, key string, tasks []Task) error {
	if tasks == nil {
		tasks = []Task{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
