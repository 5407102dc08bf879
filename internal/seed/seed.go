// Package seed fetches starter tasks from a JSON placeholder endpoint.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"persona/internal/task"
)

const SampleTitle = "Sample task (fake post)"

type remoteTodo struct {
	ID        json.Number `json:"id"`
	Title     string      `json:"title"`
	Completed bool        `json:"completed"`
}

type Client struct {
	http *http.Client
	url  string
	now  func() time.Time
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{Timeout: timeout},
		url:  endpoint,
		now:  time.Now,
	}
}

// Fetch returns at most limit tasks from the endpoint. Ids are the remote ids.
func (c *Client) Fetch(ctx context.Context, limit int) ([]task.Task, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("seed url: %w", err)
	}
	if limit > 0 {
		q := u.Query()
		q.Set("_limit", strconv.Itoa(limit))
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch seed tasks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch seed tasks: unexpected status %d", resp.StatusCode)
	}

	var items []remoteTodo
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode seed tasks: %w", err)
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	now := c.now().Truncate(time.Millisecond)
	out := make([]task.Task, 0, len(items))
	for _, it := range items {
		title := strings.TrimSpace(it.Title)
		if it.ID == "" || title == "" {
			continue
		}
		out = append(out, task.Task{
			ID:        it.ID.String(),
			Title:     title,
			Completed: it.Completed,
			CreatedAt: now,
		})
	}
	return out, nil
}

// SampleTask is the synthetic task added at startup when seeding is on.
// Its id is one millisecond past now, so it never shadows a task created at now.
func SampleTask(now time.Time) task.Task {
	now = now.Truncate(time.Millisecond)
	return task.Task{
		ID:        strconv.FormatInt(now.UnixMilli()+1, 10),
		Title:     SampleTitle,
		CreatedAt: now,
	}
}
