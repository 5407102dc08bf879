package task

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"persona/internal/validation"
)

const dayLayout = validation.DayLayout

// createdAt is persisted with millisecond precision, like a JavaScript Date.
const createdAtLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	ErrEmptyTitle = errors.New("title cannot be empty")
	ErrInvalidDue = errors.New("due date must be YYYY-MM-DD")
	ErrNotFound   = errors.New("task not found")
)

type Task struct {
	ID        string
	Title     string
	Due       *string
	Completed bool
	CreatedAt time.Time
}

// DueDate returns the parsed due date, if any.
func (t Task) DueDate() (time.Time, bool) {
	if t.Due == nil {
		return time.Time{}, false
	}
	d, err := time.Parse(dayLayout, *t.Due)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

type wireTask struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Due       *string `json:"due"`
	Completed bool    `json:"completed"`
	CreatedAt string  `json:"createdAt"`
}

func (t Task) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireTask{
		ID:        t.ID,
		Title:     t.Title,
		Due:       t.Due,
		Completed: t.Completed,
		CreatedAt: t.CreatedAt.UTC().Format(createdAtLayout),
	})
}

// looseTask accepts every shape the snapshots have been written in.
type looseTask struct {
	ID        json.RawMessage `json:"id"`
	Title     *string         `json:"title"`
	Text      *string         `json:"text"`
	Due       *string         `json:"due"`
	Completed *bool           `json:"completed"`
	CreatedAt json.RawMessage `json:"createdAt"`
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var raw looseTask
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.ID = decodeID(raw.ID)
	switch {
	case raw.Title != nil && strings.TrimSpace(*raw.Title) != "":
		t.Title = *raw.Title
	case raw.Text != nil:
		t.Title = *raw.Text
	default:
		t.Title = ""
	}
	t.Due = normalizeDue(raw.Due)
	t.Completed = raw.Completed != nil && *raw.Completed
	t.CreatedAt = decodeCreatedAt(raw.CreatedAt, t.ID)
	return nil
}

func decodeID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func decodeCreatedAt(raw json.RawMessage, id string) time.Time {
	raw = bytes.TrimSpace(raw)
	var s string
	if len(raw) > 0 && json.Unmarshal(raw, &s) == nil {
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts
		}
	}
	var ms int64
	if len(raw) > 0 && json.Unmarshal(raw, &ms) == nil {
		return time.UnixMilli(ms).UTC()
	}
	// Ids are millisecond timestamps unless they came from the seed endpoint.
	if ms, err := strconv.ParseInt(id, 10, 64); err == nil && ms > 1e11 {
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}

func normalizeDue(due *string) *string {
	if due == nil {
		return nil
	}
	v := strings.TrimSpace(*due)
	if v == "" {
		return nil
	}
	return &v
}

type dueInput struct {
	Due string `validate:"isodate"`
}

// ParseDue validates a user-entered due date. The empty string clears it.
func ParseDue(v string) (*string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if err := validation.Validate.Struct(dueInput{Due: v}); err != nil {
		return nil, ErrInvalidDue
	}
	return &v, nil
}

func (t Task) clone() Task {
	if t.Due != nil {
		d := *t.Due
		t.Due = &d
	}
	return t
}

// idSource hands out millisecond-timestamp ids, never repeating one.
type idSource struct {
	now  func() time.Time
	last int64
}

func newIDSource(now func() time.Time) *idSource {
	if now == nil {
		now = time.Now
	}
	return &idSource{now: now}
}

func (g *idSource) next(taken func(string) bool) (string, time.Time) {
	at := g.now().Truncate(time.Millisecond)
	ms := at.UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	id := strconv.FormatInt(ms, 10)
	for taken(id) {
		ms++
		id = strconv.FormatInt(ms, 10)
	}
	g.last = ms
	return id, at
}

func newTask(ids *idSource, title string, taken func(string) bool) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, ErrEmptyTitle
	}
	id, at := ids.next(taken)
	return Task{ID: id, Title: title, CreatedAt: at}, nil
}
