package task

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"persona/internal/storage"
)

// ArrayBackend keeps tasks in insertion order. Lookups scan the slice.
type ArrayBackend struct {
	kv    storage.KV
	key   string
	log   *zap.Logger
	ids   *idSource
	tasks []Task
}

func NewArrayBackend(kv storage.KV, opts Options) *ArrayBackend {
	return newArrayBackend(kv, opts.logger(), newIDSource(opts.Now))
}

func newArrayBackend(kv storage.KV, log *zap.Logger, ids *idSource) *ArrayBackend {
	return &ArrayBackend{kv: kv, key: storage.KeyTasksArray, log: log, ids: ids}
}

func (b *ArrayBackend) Kind() Kind { return KindArray }

func (b *ArrayBackend) Load(ctx context.Context) error {
	tasks, err := readSnapshot(ctx, b.kv, b.key, b.ids, b.log)
	if err != nil {
		return err
	}
	b.tasks = tasks
	return nil
}

func (b *ArrayBackend) Save(ctx context.Context) error {
	return writeSnapshot(ctx, b.kv, b.key, b.tasks)
}

func (b *ArrayBackend) index(id string) int {
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (b *ArrayBackend) has(id string) bool { return b.index(id) >= 0 }

func (b *ArrayBackend) Add(ctx context.Context, title string) (Task, error) {
	t, err := newTask(b.ids, title, b.has)
	if err != nil {
		return Task{}, err
	}
	b.tasks = append(b.tasks, t)
	return t, b.Save(ctx)
}

func (b *ArrayBackend) ToggleDone(ctx context.Context, id string) error {
	i := b.index(id)
	if i < 0 {
		return ErrNotFound
	}
	b.tasks[i].Completed = !b.tasks[i].Completed
	return b.Save(ctx)
}

func (b *ArrayBackend) RemoveTask(ctx context.Context, id string) error {
	i := b.index(id)
	if i < 0 {
		return nil
	}
	b.tasks = append(b.tasks[:i], b.tasks[i+1:]...)
	return b.Save(ctx)
}

// Rename ignores empty titles and titles equal to the current one.
func (b *ArrayBackend) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	i := b.index(id)
	if i < 0 {
		return ErrNotFound
	}
	if b.tasks[i].Title == title {
		return nil
	}
	b.tasks[i].Title = title
	return b.Save(ctx)
}

func (b *ArrayBackend) SetDue(ctx context.Context, id, due string) error {
	d, err := ParseDue(due)
	if err != nil {
		return err
	}
	i := b.index(id)
	if i < 0 {
		return ErrNotFound
	}
	b.tasks[i].Due = d
	return b.Save(ctx)
}

func (b *ArrayBackend) MarkAll(ctx context.Context) error {
	for i := range b.tasks {
		b.tasks[i].Completed = true
	}
	return b.Save(ctx)
}

func (b *ArrayBackend) RemoveCompleted(ctx context.Context) error {
	kept := b.tasks[:0]
	for _, t := range b.tasks {
		if !t.Completed {
			kept = append(kept, t)
		}
	}
	b.tasks = kept
	return b.Save(ctx)
}

func (b *ArrayBackend) ClearAll(ctx context.Context) error {
	b.tasks = nil
	return b.Save(ctx)
}

func (b *ArrayBackend) Get(id string) (Task, bool) {
	i := b.index(id)
	if i < 0 {
		return Task{}, false
	}
	return b.tasks[i].clone(), true
}

func (b *ArrayBackend) Len() int { return len(b.tasks) }

func (b *ArrayBackend) Tasks() []Task {
	out := make([]Task, len(b.tasks))
	for i, t := range b.tasks {
		out[i] = t.clone()
	}
	return out
}

func (b *ArrayBackend) Insert(t Task) bool {
	if b.has(t.ID) {
		return false
	}
	b.tasks = append(b.tasks, t.clone())
	return true
}

func (b *ArrayBackend) Replace(ts []Task) {
	b.tasks = make([]Task, 0, len(ts))
	for _, t := range ts {
		b.tasks = append(b.tasks, t.clone())
	}
}

func (b *ArrayBackend) Render(q Query) Listing {
	return Render(b.tasks, q)
}
