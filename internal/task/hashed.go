package task

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"persona/internal/storage"
)

// MapBackend keeps tasks keyed by id. Insertion order is not kept; Tasks
// returns them by creation time.
type MapBackend struct {
	kv    storage.KV
	key   string
	log   *zap.Logger
	ids   *idSource
	tasks map[string]Task
}

func NewMapBackend(kv storage.KV, opts Options) *MapBackend {
	return newMapBackend(kv, opts.logger(), newIDSource(opts.Now))
}

func newMapBackend(kv storage.KV, log *zap.Logger, ids *idSource) *MapBackend {
	return &MapBackend{kv: kv, key: storage.KeyTasksMap, log: log, ids: ids, tasks: map[string]Task{}}
}

func (b *MapBackend) Kind() Kind { return KindMap }

func (b *MapBackend) Load(ctx context.Context) error {
	tasks, err := readSnapshot(ctx, b.kv, b.key, b.ids, b.log)
	if err != nil {
		return err
	}
	b.Replace(tasks)
	return nil
}

func (b *MapBackend) Save(ctx context.Context) error {
	return writeSnapshot(ctx, b.kv, b.key, b.Tasks())
}

func (b *MapBackend) has(id string) bool {
	_, ok := b.tasks[id]
	return ok
}

func (b *MapBackend) Add(ctx context.Context, title string) (Task, error) {
	t, err := newTask(b.ids, title, b.has)
	if err != nil {
		return Task{}, err
	}
	b.tasks[t.ID] = t
	return t, b.Save(ctx)
}

func (b *MapBackend) ToggleDone(ctx context.Context, id string) error {
	t, ok := b.tasks[id]
	if !ok {
		return ErrNotFound
	}
	t.Completed = !t.Completed
	b.tasks[id] = t
	return b.Save(ctx)
}

func (b *MapBackend) RemoveTask(ctx context.Context, id string) error {
	if !b.has(id) {
		return nil
	}
	delete(b.tasks, id)
	return b.Save(ctx)
}

func (b *MapBackend) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	t, ok := b.tasks[id]
	if !ok {
		return ErrNotFound
	}
	if t.Title == title {
		return nil
	}
	t.Title = title
	b.tasks[id] = t
	return b.Save(ctx)
}

func (b *MapBackend) SetDue(ctx context.Context, id, due string) error {
	d, err := ParseDue(due)
	if err != nil {
		return err
	}
	t, ok := b.tasks[id]
	if !ok {
		return ErrNotFound
	}
	t.Due = d
	b.tasks[id] = t
	return b.Save(ctx)
}

func (b *MapBackend) MarkAll(ctx context.Context) error {
	for id, t := range b.tasks {
		t.Completed = true
		b.tasks[id] = t
	}
	return b.Save(ctx)
}

func (b *MapBackend) RemoveCompleted(ctx context.Context) error {
	for id, t := range b.tasks {
		if t.Completed {
			delete(b.tasks, id)
		}
	}
	return b.Save(ctx)
}

func (b *MapBackend) ClearAll(ctx context.Context) error {
	clear(b.tasks)
	return b.Save(ctx)
}

func (b *MapBackend) Get(id string) (Task, bool) {
	t, ok := b.tasks[id]
	if !ok {
		return Task{}, false
	}
	return t.clone(), true
}

func (b *MapBackend) Len() int { return len(b.tasks) }

func (b *MapBackend) Tasks() []Task {
	out := make([]Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		out = append(out, t.clone())
	}
	slices.SortFunc(out, func(a, c Task) int {
		if n := a.CreatedAt.Compare(c.CreatedAt); n != 0 {
			return n
		}
		return strings.Compare(a.ID, c.ID)
	})
	return out
}

func (b *MapBackend) Insert(t Task) bool {
	if b.has(t.ID) {
		return false
	}
	b.tasks[t.ID] = t.clone()
	return true
}

func (b *MapBackend) Replace(ts []Task) {
	b.tasks = make(map[string]Task, len(ts))
	for _, t := range ts {
		b.tasks[t.ID] = t.clone()
	}
}

func (b *MapBackend) Render(q Query) Listing {
	all := make([]Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		all = append(all, t)
	}
	return Render(all, q)
}
