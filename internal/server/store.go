package server

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/desertthunder/tablenav/internal/models"
	"github.com/desertthunder/tablenav/internal/paging"
)

var topics = []string{"Loops", "Events", "Variables", "Sprites", "Sound", "Motion", "Games", "Lists", "Pen", "Clones"}

// Entry is one row of the in-memory courses or experiments table.
type Entry struct {
	ID     int
	Title  string
	Active bool
	Course int
}

// Store holds the rows served by the dev backend.
//
// Participants are users 1 to 3 of every experiment; their snapshots are derived from the ids, so they need no storage.
type Store struct {
	mu          sync.RWMutex
	pageSize    int
	courses     []Entry
	experiments []Entry
	nextID      int
}

// NewStore seeds rows courses and rows experiments.
func NewStore(pageSize, rows int) *Store {
	if pageSize <= 0 {
		pageSize = 10
	}
	s := &Store{pageSize: pageSize, nextID: 1}
	s.add("course", rows)
	s.add("experiment", rows)
	return s
}

// PageSize returns the number of rows per page.
func (s *Store) PageSize() int { return s.pageSize }

func (s *Store) table(kind string) *[]Entry {
	switch kind {
	case "course":
		return &s.courses
	case "experiment":
		return &s.experiments
	default:
		return nil
	}
}

// add appends n rows of kind. Caller must not hold the lock.
func (s *Store) add(kind string, n int) {
	rows := s.table(kind)
	for range n {
		id := s.nextID
		s.nextID++
		e := Entry{ID: id, Active: id%3 != 0}
		switch kind {
		case "course":
			e.Title = fmt.Sprintf("%s %d", topics[id%len(topics)], id)
		case "experiment":
			e.Title = fmt.Sprintf("%s study %d", topics[(id*7)%len(topics)], id)
			if len(s.courses) > 0 {
				e.Course = s.courses[id%len(s.courses)].ID
			}
		}
		*rows = append(*rows, e)
	}
}

// Mutate adds delta rows to kind, or removes -delta rows from its front, and returns the new row count.
func (s *Store) Mutate(kind string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.table(kind)
	if rows == nil {
		return 0, fmt.Errorf("unknown collection %q", kind)
	}
	if delta >= 0 {
		s.add(kind, delta)
	} else {
		*rows = (*rows)[min(-delta, len(*rows)):]
	}
	return len(*rows), nil
}

// Rows returns a copy of the rows of kind, limited to course when course is positive.
func (s *Store) Rows(kind string, course int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.table(kind)
	if rows == nil {
		return nil
	}
	out := make([]Entry, 0, len(*rows))
	for _, e := range *rows {
		if course > 0 && e.Course != course {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Find looks up a row by id.
func (s *Store) Find(kind string, id int) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rows := s.table(kind); rows != nil {
		for _, e := range *rows {
			if e.ID == id {
				return e, true
			}
		}
	}
	return Entry{}, false
}

// LastPage returns the index of the last page of n rows.
func (s *Store) LastPage(n int) int {
	return paging.LastPageIndex(n, s.pageSize)
}

// Slice returns page of rows, or false when page is out of range.
func (s *Store) Slice(rows []Entry, page int) ([]Entry, bool) {
	if page < 0 || page > s.LastPage(len(rows)) {
		return nil, false
	}
	start := page * s.pageSize
	end := min(start+s.pageSize, len(rows))
	return rows[start:end], true
}

var snapshotEpoch = time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)

// Snapshots returns the snapshots a participant saved, oldest first.
func (s *Store) Snapshots(experiment, user int) []models.Snapshot {
	if user < 1 || user > 3 {
		return nil
	}
	if _, ok := s.Find("experiment", experiment); !ok {
		return nil
	}

	n := 5 + (experiment*7+user*3)%20
	out := make([]models.Snapshot, 0, n)
	at := snapshotEpoch.Add(time.Duration(experiment) * time.Hour)
	for i := range n {
		id := experiment*1000 + user*100 + i + 1
		sprite := "Sprite1"
		if i%4 == 3 {
			sprite = "Stage"
		}
		out = append(out, models.Snapshot{
			ID:     id,
			Date:   at,
			Sprite: sprite,
			XML:    fmt.Sprintf(`<xml><block type="event_whenflagclicked" id="b%d"><next><block type="motion_movesteps" id="m%d"/></next></block></xml>`, id, id),
			Code:   fmt.Sprintf(`{"targets":[{"name":%s,"blocks":%d}]}`, strconv.Quote(sprite), i+1),
		})
		at = at.Add(time.Duration(1+i%4) * time.Minute)
	}
	return out
}
