package task

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

var filters = []Filter{FilterAll, FilterActive, FilterCompleted}

func ParseFilter(v string) (Filter, error) {
	for _, f := range filters {
		if string(f) == v {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown filter %q", v)
}

// Next cycles all -> active -> completed -> all.
func (f Filter) Next() Filter {
	i := slices.Index(filters, f)
	return filters[(i+1)%len(filters)]
}

type SortKey string

const (
	SortTitle   SortKey = "title"
	SortDue     SortKey = "due"
	SortStatus  SortKey = "status"
	SortCreated SortKey = "createdAt"
)

var sortKeys = []SortKey{SortCreated, SortTitle, SortDue, SortStatus}

func ParseSortKey(v string) (SortKey, error) {
	for _, k := range sortKeys {
		if string(k) == v {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sort key %q", v)
}

func (k SortKey) Next() SortKey {
	i := slices.Index(sortKeys, k)
	return sortKeys[(i+1)%len(sortKeys)]
}

type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

func ParseOrder(v string) (Order, error) {
	switch Order(v) {
	case Asc, Desc:
		return Order(v), nil
	}
	return "", fmt.Errorf("unknown sort order %q", v)
}

func (o Order) Flip() Order {
	if o == Asc {
		return Desc
	}
	return Asc
}

// Query is the ambient list state: status chip, search box and sort controls.
type Query struct {
	Filter Filter
	Search string
	SortBy SortKey
	Order  Order
}

func DefaultQuery() Query {
	return Query{Filter: FilterAll, SortBy: SortCreated, Order: Desc}
}

type Stats struct {
	Total     int
	Completed int
	Active    int
}

func (s Stats) Percent() int {
	if s.Total == 0 {
		return 0
	}
	return s.Completed * 100 / s.Total
}

type Listing struct {
	Tasks []Task
	Stats Stats
}

// Tasks without a due date sort as if due on this day.
var noDueSentinel = time.Date(2099, time.December, 31, 0, 0, 0, 0, time.UTC)

// Render filters, searches and sorts all. Stats always describe the whole
// collection, not the displayed subset.
func Render(all []Task, q Query) Listing {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	shown := make([]Task, 0, len(all))
	var st Stats
	for _, t := range all {
		st.Total++
		if t.Completed {
			st.Completed++
		}
		switch q.Filter {
		case FilterActive:
			if t.Completed {
				continue
			}
		case FilterCompleted:
			if !t.Completed {
				continue
			}
		}
		if needle != "" && !strings.Contains(strings.ToLower(t.Title), needle) {
			continue
		}
		shown = append(shown, t.clone())
	}
	st.Active = st.Total - st.Completed

	cmp := comparator(q.SortBy)
	slices.SortFunc(shown, func(a, b Task) int {
		n := cmp(a, b)
		if n == 0 {
			n = strings.Compare(a.ID, b.ID)
		}
		if q.Order == Asc {
			return n
		}
		return -n
	})
	return Listing{Tasks: shown, Stats: st}
}

func comparator(k SortKey) func(a, b Task) int {
	switch k {
	case SortTitle:
		return func(a, b Task) int {
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
	case SortDue:
		return func(a, b Task) int {
			return dueKey(a).Compare(dueKey(b))
		}
	case SortStatus:
		return func(a, b Task) int {
			return statusKey(a) - statusKey(b)
		}
	default:
		return func(a, b Task) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
}

func dueKey(t Task) time.Time {
	if d, ok := t.DueDate(); ok {
		return d
	}
	return noDueSentinel
}

func statusKey(t Task) int {
	if t.Completed {
		return 1
	}
	return 0
}
