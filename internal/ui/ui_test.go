package ui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tablenav/internal/formatter"
	"github.com/desertthunder/tablenav/internal/models"
	"github.com/desertthunder/tablenav/internal/navigator"
	"github.com/desertthunder/tablenav/internal/paging"
	"github.com/desertthunder/tablenav/internal/shared"
	tu "github.com/desertthunder/tablenav/internal/testing"
)

func press(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func fragment(t *testing.T, name string, page, last int) []byte {
	t.Helper()
	ids := navigator.DefaultControls(name)
	p := models.TablePage{
		Collection: name,
		Page:       page,
		Last:       last,
		Columns:    []string{"ID", "Title"},
		Rows: []models.Row{
			{ID: page*10 + 1, Cells: []string{fmt.Sprint(page*10 + 1), fmt.Sprintf("%s row %d", name, page*10+1)}},
			{ID: page*10 + 2, Cells: []string{fmt.Sprint(page*10 + 2), fmt.Sprintf("%s row %d", name, page*10+2)}},
		},
		Controls: []string{ids.First, ids.Prev, ids.Next, ids.Last, navigator.OpenControl(name)},
	}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal page: %v", err)
	}
	return data
}

func pagedFetcher(t *testing.T, last int, names ...string) *tu.FakeFetcher {
	t.Helper()
	f := &tu.FakeFetcher{Last: last, Pages: map[int][]byte{}}
	// every collection in a test shares the fake, so pages carry the first name's controls
	for i := 0; i <= last; i++ {
		f.Pages[i] = fragment(t, names[0], i, last)
	}
	return f
}

func descriptor(name string) navigator.Descriptor {
	return navigator.Descriptor{
		Name:          name,
		PageEndpoint:  "/page/" + name,
		CountEndpoint: "/result/count",
		ContainerID:   name + "_table",
	}
}

func newTestBrowser(t *testing.T, f *tu.FakeFetcher, names ...string) *Browser {
	t.Helper()
	descs := make([]navigator.Descriptor, len(names))
	for i, n := range names {
		descs[i] = descriptor(n)
	}
	b, err := NewBrowser(context.Background(), BrowserOptions{
		Collections: descs,
		Fetcher:     f,
		Logger:      shared.NewLogger(io.Discard),
	})
	if err != nil {
		t.Fatalf("NewBrowser: %v", err)
	}
	for _, n := range names {
		msg := b.loadFirst(n)()
		b.Update(msg)
	}
	return b
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m tea.Model, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	_, next := m.Update(cmd())
	return next
}

func shownPage(t *testing.T, b *Browser, name string) *models.TablePage {
	t.Helper()
	page, ok := b.panes.Page(b.descs[name].ContainerID)
	if !ok {
		t.Fatalf("%s has no rendered page", name)
	}
	return page
}

func TestPanes(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("Render Creates Controls", func(t *testing.T) {
		p := NewPanes(logger)
		p.Render("courses_table", fragment(t, "courses", 0, 2))

		page, ok := p.Page("courses_table")
		if !ok || page.Last != 2 {
			t.Fatalf("expected rendered page with last 2, got %+v", page)
		}
		s, ok := p.Surface("courses_table")
		if !ok {
			t.Fatal("expected a surface")
		}
		if _, ok := s.Control("coursesNext"); !ok {
			t.Error("expected coursesNext control")
		}
		if _, ok := s.Control("experimentsNext"); ok {
			t.Error("did not expect a control from another collection")
		}
	})

	t.Run("Malformed Fragment Is Discarded", func(t *testing.T) {
		p := NewPanes(logger)
		if err := p.Render("courses_table", []byte("<table>")); !errors.Is(err, shared.ErrServerError) {
			t.Errorf("expected ErrServerError, got %v", err)
		}

		if _, ok := p.Page("courses_table"); ok {
			t.Error("expected no page")
		}
		if _, ok := p.Surface("courses_table"); ok {
			t.Error("expected no surface")
		}
	})

	t.Run("Unreadable Page Keeps Navigator Position", func(t *testing.T) {
		p := NewPanes(logger)
		if err := p.Render("courses_table", fragment(t, "courses", 0, 3)); err != nil {
			t.Fatalf("initial render: %v", err)
		}
		f := &tu.FakeFetcher{Last: 3, Pages: map[int][]byte{1: []byte("not json")}}

		var reports int
		nav := navigator.New(descriptor("courses"), f, p, navigator.Options{
			Logger:  logger,
			OnError: func(string, error) { reports++ },
		})
		nav.Reset(paging.NewCursor(0).WithLast(3))

		out, err := nav.Goto(context.Background(), paging.NextAction)
		if !errors.Is(err, shared.ErrServerError) {
			t.Fatalf("expected ErrServerError, got %v", err)
		}
		if out.Fetched {
			t.Error("expected no committed page")
		}
		if got := nav.Cursor().Current(); got != 0 {
			t.Errorf("expected cursor to stay on 0, got %d", got)
		}
		if page, _ := p.Page("courses_table"); page.Page != 0 {
			t.Errorf("expected page 0 to stay displayed, got %d", page.Page)
		}
		if reports != 1 {
			t.Errorf("expected one error report, got %d", reports)
		}
	})

	t.Run("Render Replaces Buttons", func(t *testing.T) {
		p := NewPanes(logger)
		p.Render("courses_table", fragment(t, "courses", 0, 2))
		old, _ := p.button("courses_table", "coursesNext")
		old.SetHandler(func() {})
		old.SetEnabled(true)

		p.Render("courses_table", fragment(t, "courses", 1, 2))
		fresh, _ := p.button("courses_table", "coursesNext")
		if fresh == old {
			t.Fatal("expected a new button")
		}
		if fresh.Activate() {
			t.Error("expected an unbound button to ignore activation")
		}
	})

	t.Run("Button Activation", func(t *testing.T) {
		tests := []struct {
			name    string
			bind    bool
			enabled bool
			want    bool
		}{
			{"Bound And Enabled", true, true, true},
			{"Bound But Disabled", true, false, false},
			{"Enabled But Unbound", false, true, false},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				calls := 0
				b := &button{}
				if tt.bind {
					b.SetHandler(func() { calls++ })
				}
				b.SetEnabled(tt.enabled)

				if got := b.Activate(); got != tt.want {
					t.Errorf("Activate() = %v, want %v", got, tt.want)
				}
				if tt.want && calls != 1 {
					t.Errorf("expected handler to run once, ran %d times", calls)
				}
			})
		}
	})
}

func TestBrowser(t *testing.T) {
	t.Run("Requires Fetcher And Collections", func(t *testing.T) {
		_, err := NewBrowser(context.Background(), BrowserOptions{Collections: []navigator.Descriptor{descriptor("courses")}})
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		_, err = NewBrowser(context.Background(), BrowserOptions{Fetcher: &tu.FakeFetcher{}})
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("Duplicate Collections", func(t *testing.T) {
		_, err := NewBrowser(context.Background(), BrowserOptions{
			Collections: []navigator.Descriptor{descriptor("courses"), descriptor("courses")},
			Fetcher:     &tu.FakeFetcher{},
			Logger:      shared.NewLogger(io.Discard),
		})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Initial Load Binds Controls", func(t *testing.T) {
		f := pagedFetcher(t, 2, "courses")
		b := newTestBrowser(t, f, "courses")

		if got := shownPage(t, b, "courses").Page; got != 0 {
			t.Fatalf("expected page 0, got %d", got)
		}
		for id, want := range map[string]bool{"coursesFirst": false, "coursesPrev": false, "coursesNext": true, "coursesLast": true} {
			btn, ok := b.panes.button("courses_table", id)
			if !ok {
				t.Fatalf("missing %s", id)
			}
			if btn.Enabled() != want {
				t.Errorf("%s: expected enabled=%v", id, want)
			}
		}
		if rows := b.tables["courses"].Rows(); len(rows) != 2 {
			t.Errorf("expected 2 table rows, got %d", len(rows))
		}
	})

	t.Run("Next Key Moves One Page", func(t *testing.T) {
		f := pagedFetcher(t, 2, "courses")
		b := newTestBrowser(t, f, "courses")

		_, cmd := b.Update(press("l"))
		run(t, b, cmd)

		if got := shownPage(t, b, "courses").Page; got != 1 {
			t.Fatalf("expected page 1, got %d", got)
		}
		if calls := f.PageCalls(); len(calls) != 2 || calls[1] != 1 {
			t.Errorf("expected pages [0 1], got %v", calls)
		}
		if f.CountCalls() != 0 {
			t.Errorf("next must not refresh the count, got %d calls", f.CountCalls())
		}
		if b.err != nil {
			t.Errorf("unexpected error: %v", b.err)
		}
	})

	t.Run("Last Key Refreshes Count", func(t *testing.T) {
		f := pagedFetcher(t, 2, "courses")
		b := newTestBrowser(t, f, "courses")

		_, cmd := b.Update(press("G"))
		run(t, b, cmd)

		if got := shownPage(t, b, "courses").Page; got != 2 {
			t.Fatalf("expected page 2, got %d", got)
		}
		if f.CountCalls() != 1 {
			t.Errorf("expected one count refresh, got %d", f.CountCalls())
		}
		next, _ := b.panes.button("courses_table", "coursesNext")
		if next.Enabled() {
			t.Error("expected next disabled on the last page")
		}
	})

	t.Run("Disabled Control Does Nothing", func(t *testing.T) {
		f := pagedFetcher(t, 2, "courses")
		b := newTestBrowser(t, f, "courses")

		_, cmd := b.Update(press("h"))
		if cmd != nil {
			t.Fatal("expected no command for a disabled control")
		}
		if !strings.Contains(b.status, "unavailable") {
			t.Errorf("expected unavailable status, got %q", b.status)
		}
		if calls := f.PageCalls(); len(calls) != 1 {
			t.Errorf("expected only the initial fetch, got %v", calls)
		}
	})

	t.Run("Fetch Failure Keeps Page", func(t *testing.T) {
		f := pagedFetcher(t, 2, "courses")
		b := newTestBrowser(t, f, "courses")
		f.SetPageErr(shared.ErrServerError)

		_, cmd := b.Update(press("l"))
		run(t, b, cmd)

		if !errors.Is(b.err, shared.ErrServerError) {
			t.Fatalf("expected ErrServerError, got %v", b.err)
		}
		if got := shownPage(t, b, "courses").Page; got != 0 {
			t.Errorf("expected page 0 to stay, got %d", got)
		}
		if !strings.Contains(b.View(), "Error:") {
			t.Error("expected the error in the view")
		}
	})

	t.Run("Unreadable Page Keeps Page", func(t *testing.T) {
		f := pagedFetcher(t, 2, "courses")
		f.Pages[1] = []byte("<tr>")
		b := newTestBrowser(t, f, "courses")

		_, cmd := b.Update(press("l"))
		run(t, b, cmd)

		if !errors.Is(b.err, shared.ErrServerError) {
			t.Fatalf("expected ErrServerError, got %v", b.err)
		}
		if got := shownPage(t, b, "courses").Page; got != 0 {
			t.Errorf("expected page 0 to stay, got %d", got)
		}
		nav, _ := b.registry.Navigator("courses")
		if got := nav.Cursor().Current(); got != 0 {
			t.Errorf("expected cursor on 0, got %d", got)
		}
		if prev, _ := b.panes.button("courses_table", "coursesPrev"); prev.Enabled() {
			t.Error("expected prev to stay disabled on page 0")
		}
	})

	t.Run("Open Shows Row Details", func(t *testing.T) {
		f := pagedFetcher(t, 2, "courses")
		b := newTestBrowser(t, f, "courses")

		b.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if b.detail == nil {
			t.Fatal("expected row details")
		}
		if b.detail.ID != 1 {
			t.Errorf("expected row 1, got %d", b.detail.ID)
		}
		if view := b.View(); !strings.Contains(view, "courses row 1") {
			t.Errorf("expected details in view, got %q", view)
		}

		b.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if b.detail != nil {
			t.Error("expected esc to close the details")
		}
	})

	t.Run("Focus Switches Collection", func(t *testing.T) {
		f := pagedFetcher(t, 1, "courses")
		b := newTestBrowser(t, f, "courses", "experiments")

		b.Update(tea.KeyMsg{Type: tea.KeyTab})
		if b.focused() != "experiments" {
			t.Fatalf("expected experiments focused, got %s", b.focused())
		}
		b.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
		if b.focused() != "courses" {
			t.Fatalf("expected courses focused, got %s", b.focused())
		}
	})

	t.Run("View Labels Pages", func(t *testing.T) {
		f := pagedFetcher(t, 2, "courses")
		b := newTestBrowser(t, f, "courses")
		b.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

		if view := b.View(); !strings.Contains(view, formatter.PageLabel(0, 2)) {
			t.Errorf("expected page label in view, got %q", view)
		}
	})
}

type fakeSource struct {
	mu        sync.Mutex
	snapshots []models.Snapshot
	pageSize  int
	countErr  error
	exportErr error
	requests  []models.ExportRequest
	pages     []int
}

func newFakeSource(n, pageSize int) *fakeSource {
	s := &fakeSource{pageSize: pageSize}
	for i := range n {
		s.snapshots = append(s.snapshots, models.Snapshot{
			ID:     100 + i,
			Sprite: "Sprite1",
			XML:    fmt.Sprintf("<xml id=%q/>", fmt.Sprint(i)),
			Code:   fmt.Sprintf(`{"step":%d}`, i),
		})
	}
	return s
}

func (s *fakeSource) SnapshotCount(ctx context.Context, experiment, user int) (int, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return len(s.snapshots), nil
}

func (s *fakeSource) Snapshots(ctx context.Context, experiment, user, page int) ([]models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = append(s.pages, page)
	start := page * s.pageSize
	if start >= len(s.snapshots) {
		return nil, nil
	}
	return s.snapshots[start:min(start+s.pageSize, len(s.snapshots))], nil
}

func (s *fakeSource) Export(ctx context.Context, req models.ExportRequest) (*models.Download, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exportErr != nil {
		return nil, s.exportErr
	}
	s.requests = append(s.requests, req)
	return &models.Download{
		Name:    fmt.Sprintf("sb3s_eid_%d_uid_%d.zip", req.Experiment, req.User),
		Content: []byte("PK"),
	}, nil
}

type recorded struct {
	req  models.ExportRequest
	path string
	size int64
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []recorded
	err     error
}

func (r *fakeRecorder) Record(req models.ExportRequest, path string, size int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, recorded{req, path, size})
	return r.err
}

func startViewer(t *testing.T, src *fakeSource, opts ViewerOptions) *Viewer {
	t.Helper()
	if opts.Experiment == 0 {
		opts.Experiment = 2
	}
	if opts.User == 0 {
		opts.User = 1
	}
	opts.PageSize = src.pageSize
	opts.Logger = shared.NewLogger(io.Discard)

	v, err := NewViewer(context.Background(), src, opts)
	if err != nil {
		t.Fatalf("NewViewer: %v", err)
	}
	if next := run(t, v, v.Init()); next != nil {
		run(t, v, next)
	}
	return v
}

func TestViewer(t *testing.T) {
	t.Run("Rejects Bad Participant", func(t *testing.T) {
		_, err := NewViewer(context.Background(), newFakeSource(3, 2), ViewerOptions{Experiment: 0, User: 1})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		_, err = NewViewer(context.Background(), nil, ViewerOptions{Experiment: 1, User: 1})
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Starts At First Snapshot", func(t *testing.T) {
		v := startViewer(t, newFakeSource(5, 2), ViewerOptions{OutputDir: t.TempDir()})

		frame, ok := v.current()
		if !ok {
			t.Fatal("expected a snapshot on display")
		}
		if frame.snapshot.ID != 100 || frame.position != 1 {
			t.Errorf("expected snapshot 100 at 1, got %d at %d", frame.snapshot.ID, frame.position)
		}
		if view := v.View(); !strings.Contains(view, "1/5") {
			t.Errorf("expected position in view, got %q", view)
		}
	})

	t.Run("Moves Across Pages", func(t *testing.T) {
		src := newFakeSource(5, 2)
		v := startViewer(t, src, ViewerOptions{OutputDir: t.TempDir()})

		_, cmd := v.Update(press("l"))
		run(t, v, cmd)
		_, cmd = v.Update(press("l"))
		run(t, v, cmd)

		frame, _ := v.current()
		if frame.snapshot.ID != 102 || frame.position != 3 {
			t.Errorf("expected snapshot 102 at 3, got %d at %d", frame.snapshot.ID, frame.position)
		}
		if len(src.pages) != 2 || src.pages[1] != 1 {
			t.Errorf("expected pages [0 1], got %v", src.pages)
		}

		_, cmd = v.Update(press("G"))
		run(t, v, cmd)
		frame, _ = v.current()
		if frame.position != 5 {
			t.Errorf("expected last position 5, got %d", frame.position)
		}
		if _, cmd := v.Update(press("l")); cmd != nil {
			t.Error("expected next to be ignored at the end")
		}
	})

	t.Run("Prev Ignored At Start", func(t *testing.T) {
		v := startViewer(t, newFakeSource(5, 2), ViewerOptions{OutputDir: t.TempDir()})
		if _, cmd := v.Update(press("h")); cmd != nil {
			t.Error("expected prev to be ignored at the start")
		}
	})

	t.Run("No Snapshots", func(t *testing.T) {
		v := startViewer(t, newFakeSource(0, 2), ViewerOptions{})
		if !errors.Is(v.err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", v.err)
		}
		if _, cmd := v.Update(press("l")); cmd != nil {
			t.Error("expected keys to be ignored without a sequence")
		}
	})

	t.Run("Count Failure", func(t *testing.T) {
		src := newFakeSource(3, 2)
		src.countErr = shared.ErrNetworkFailure
		v, err := NewViewer(context.Background(), src, ViewerOptions{Experiment: 1, User: 1, Logger: shared.NewLogger(io.Discard)})
		if err != nil {
			t.Fatalf("NewViewer: %v", err)
		}
		if next := run(t, v, v.Init()); next != nil {
			t.Error("expected no follow-up command")
		}
		if !errors.Is(v.err, shared.ErrNetworkFailure) {
			t.Errorf("expected ErrNetworkFailure, got %v", v.err)
		}
	})

	t.Run("Exports Selected Range", func(t *testing.T) {
		tests := []struct {
			name    string
			keys    []string
			start   int
			end     int
			include bool
		}{
			{"Whole Range", nil, 1, 5, false},
			{"Raised Start", []string{"]", "]"}, 3, 5, false},
			{"Lowered End Included", []string{"{", "i"}, 1, 4, true},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				src := newFakeSource(5, 2)
				rec := &fakeRecorder{}
				dir := t.TempDir()
				v := startViewer(t, src, ViewerOptions{OutputDir: dir, Recorder: rec})

				for _, k := range tt.keys {
					v.Update(press(k))
				}
				_, cmd := v.Update(press("e"))
				run(t, v, cmd)

				if v.err != nil {
					t.Fatalf("unexpected error: %v", v.err)
				}
				if len(src.requests) != 1 {
					t.Fatalf("expected one export, got %d", len(src.requests))
				}
				req := src.requests[0]
				if req.Start != tt.start || req.End != tt.end || req.IncludeEnd != tt.include {
					t.Errorf("expected %d-%d include=%v, got %+v", tt.start, tt.end, tt.include, req)
				}
				path := filepath.Join(dir, "sb3s_eid_2_uid_1.zip")
				tu.AssertFileExists(t, path)
				if len(rec.records) != 1 || rec.records[0].path != path || rec.records[0].size != 2 {
					t.Errorf("expected recorded export of %s, got %+v", path, rec.records)
				}
				if !strings.Contains(v.status, "Saved") {
					t.Errorf("expected saved status, got %q", v.status)
				}
			})
		}
	})

	t.Run("Single Position Needs Include", func(t *testing.T) {
		src := newFakeSource(1, 2)
		v := startViewer(t, src, ViewerOptions{OutputDir: t.TempDir()})

		if _, cmd := v.Update(press("e")); cmd != nil {
			t.Fatal("expected no export command")
		}
		if !errors.Is(v.err, shared.ErrInvalidRange) {
			t.Errorf("expected ErrInvalidRange, got %v", v.err)
		}
		if len(src.requests) != 0 {
			t.Error("expected nothing sent to the backend")
		}
	})

	t.Run("Recorder Failure Keeps Export", func(t *testing.T) {
		rec := &fakeRecorder{err: errors.New("database is locked")}
		v := startViewer(t, newFakeSource(3, 2), ViewerOptions{OutputDir: t.TempDir(), Recorder: rec})

		_, cmd := v.Update(press("e"))
		run(t, v, cmd)
		if v.err != nil {
			t.Errorf("expected the export to succeed, got %v", v.err)
		}
	})

	t.Run("Export Failure", func(t *testing.T) {
		src := newFakeSource(3, 2)
		src.exportErr = shared.ErrServerError
		v := startViewer(t, src, ViewerOptions{OutputDir: t.TempDir()})

		_, cmd := v.Update(press("e"))
		run(t, v, cmd)
		if !errors.Is(v.err, shared.ErrServerError) {
			t.Errorf("expected ErrServerError, got %v", v.err)
		}
	})

	t.Run("Saves Current Snapshot", func(t *testing.T) {
		tests := []struct {
			key  string
			file string
			want string
		}{
			{"x", "xml_100_uid_1_eid_2.xml", `<xml id="0"/>`},
			{"j", "json_100_uid_1_eid_2.json", `{"step":0}`},
		}
		for _, tt := range tests {
			t.Run(tt.file, func(t *testing.T) {
				dir := t.TempDir()
				v := startViewer(t, newFakeSource(3, 2), ViewerOptions{OutputDir: dir})

				_, cmd := v.Update(press(tt.key))
				run(t, v, cmd)

				data, err := os.ReadFile(filepath.Join(dir, tt.file))
				if err != nil {
					t.Fatalf("read saved snapshot: %v", err)
				}
				if string(data) != tt.want {
					t.Errorf("expected %q, got %q", tt.want, data)
				}
			})
		}
	})
}
