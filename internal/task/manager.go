package task

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"persona/internal/storage"
)

// Manager owns both backends and forwards every operation to the active one.
// Only the active backend is current; the other is stale until a Switch
// migrates the collection into it.
type Manager struct {
	kv     storage.KV
	log    *zap.Logger
	array  *ArrayBackend
	hashed *MapBackend
	active Backend
}

func NewManager(kv storage.KV, opts Options) *Manager {
	log := opts.logger()
	ids := newIDSource(opts.Now)
	m := &Manager{
		kv:     kv,
		log:    log,
		array:  newArrayBackend(kv, log, ids),
		hashed: newMapBackend(kv, log, ids),
	}
	m.active = m.array
	return m
}

// Init restores the persisted backend preference and loads that backend.
// fallback is used when no preference has been stored yet.
func (m *Manager) Init(ctx context.Context, fallback Kind) error {
	kind, err := m.Preference(ctx)
	if err != nil {
		return err
	}
	if kind == "" {
		kind = fallback
	}
	m.active = m.backend(kind)
	if err := m.active.Load(ctx); err != nil {
		return err
	}
	m.log.Debug("tasks loaded", zap.String("backend", string(kind)), zap.Int("count", m.active.Len()))
	return nil
}

// Preference returns the stored backend choice, or "" when none is stored.
func (m *Manager) Preference(ctx context.Context) (Kind, error) {
	data, err := m.kv.Get(ctx, storage.KeyStorageChoice)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load backend choice: %w", err)
	}
	v := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if v == string(KindMap) {
		return KindMap, nil
	}
	return KindArray, nil
}

func (m *Manager) backend(k Kind) Backend {
	if k == KindMap {
		return m.hashed
	}
	return m.array
}

func (m *Manager) Active() Kind { return m.active.Kind() }

func (m *Manager) Backend() Backend { return m.active }

// Switch makes kind the active backend, migrating every task into it and
// saving it under its own key. The source backend's snapshot is left as is.
// It reports whether a migration happened.
func (m *Manager) Switch(ctx context.Context, kind Kind) (bool, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return false, err
	}
	if err := m.kv.Set(ctx, storage.KeyStorageChoice, []byte(kind)); err != nil {
		return false, fmt.Errorf("save backend choice: %w", err)
	}
	if m.active.Kind() == kind {
		return false, nil
	}

	snapshot := m.active.Tasks()
	source := m.active
	target := m.backend(kind)
	target.Replace(snapshot)
	if err := target.Save(ctx); err != nil {
		if perr := m.kv.Set(ctx, storage.KeyStorageChoice, []byte(source.Kind())); perr != nil {
			m.log.Error("restore backend choice", zap.Error(perr))
		}
		return false, fmt.Errorf("migrate to %s: %w", kind, err)
	}
	m.active = target
	from := source.Kind()
	m.log.Info("switched task backend",
		zap.String("from", string(from)),
		zap.String("to", string(kind)),
		zap.Int("tasks", len(snapshot)))
	return true, nil
}

// Import inserts the tasks whose ids are not present yet and saves once.
func (m *Manager) Import(ctx context.Context, ts []Task) (int, error) {
	added := 0
	for _, t := range ts {
		if strings.TrimSpace(t.Title) == "" || t.ID == "" {
			continue
		}
		if m.active.Insert(t) {
			added++
		}
	}
	if added == 0 {
		return 0, nil
	}
	return added, m.active.Save(ctx)
}

func (m *Manager) Load(ctx context.Context) error { return m.active.Load(ctx) }
func (m *Manager) Save(ctx context.Context) error { return m.active.Save(ctx) }

func (m *Manager) Add(ctx context.Context, title string) (Task, error) {
	return m.active.Add(ctx, title)
}

func (m *Manager) ToggleDone(ctx context.Context, id string) error {
	return m.active.ToggleDone(ctx, id)
}

func (m *Manager) RemoveTask(ctx context.Context, id string) error {
	return m.active.RemoveTask(ctx, id)
}

func (m *Manager) Rename(ctx context.Context, id, title string) error {
	return m.active.Rename(ctx, id, title)
}

func (m *Manager) SetDue(ctx context.Context, id, due string) error {
	return m.active.SetDue(ctx, id, due)
}

func (m *Manager) MarkAll(ctx context.Context) error         { return m.active.MarkAll(ctx) }
func (m *Manager) RemoveCompleted(ctx context.Context) error { return m.active.RemoveCompleted(ctx) }
func (m *Manager) ClearAll(ctx context.Context) error        { return m.active.ClearAll(ctx) }

func (m *Manager) Get(id string) (Task, bool) { return m.active.Get(id) }
func (m *Manager) Tasks() []Task              { return m.active.Tasks() }
func (m *Manager) Render(q Query) Listing     { return m.active.Render(q) }
