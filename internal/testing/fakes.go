package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/tablenav/internal/navigator"
)

// FakeFetcher is a scripted [navigator.Fetcher].
//
// Pages default to the fragment "page N". When Gate is set FetchPage blocks until Gate yields or ctx ends.
type FakeFetcher struct {
	mu sync.Mutex

	Last     int
	CountErr error
	PageErr  error
	Pages    map[int][]byte
	Gate     chan struct{}
	Started  chan int

	pageCalls  []int
	countCalls int
}

// FetchPage implements [navigator.Fetcher].
func (f *FakeFetcher) FetchPage(ctx context.Context, d navigator.Descriptor, page int) ([]byte, error) {
	f.mu.Lock()
	f.pageCalls = append(f.pageCalls, page)
	gate, started, err := f.Gate, f.Started, f.PageErr
	fragment, ok := f.Pages[page]
	f.mu.Unlock()

	if started != nil {
		started <- page
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		fragment = fmt.Appendf(nil, "page %d", page)
	}
	return fragment, nil
}

// FetchCount implements [navigator.Fetcher].
func (f *FakeFetcher) FetchCount(ctx context.Context, d navigator.Descriptor) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	if f.CountErr != nil {
		return 0, f.CountErr
	}
	return f.Last, nil
}

// SetLast changes the reported last page.
func (f *FakeFetcher) SetLast(last int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Last = last
}

// SetPageErr changes the page fetch failure.
func (f *FakeFetcher) SetPageErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PageErr = err
}

// PageCalls returns the requested pages in order.
func (f *FakeFetcher) PageCalls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.pageCalls...)
}

// CountCalls returns how often the count was requested.
func (f *FakeFetcher) CountCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countCalls
}

// Render is one recorded call to [RecordingRenderer.Render].
type Render struct {
	Container string
	Fragment  string
}

// RecordingRenderer records renders and optionally forwards them.
// When Err is set every render fails with it and nothing is recorded.
type RecordingRenderer struct {
	mu      sync.Mutex
	renders []Render
	After   func(containerID string)
	Err     error
}

// Render implements [navigator.Renderer].
func (r *RecordingRenderer) Render(containerID string, fragment []byte) error {
	r.mu.Lock()
	if r.Err != nil {
		err := r.Err
		r.mu.Unlock()
		return err
	}
	r.renders = append(r.renders, Render{Container: containerID, Fragment: string(fragment)})
	after := r.After
	r.mu.Unlock()

	if after != nil {
		after(containerID)
	}
	return nil
}

// Renders returns the recorded renders.
func (r *RecordingRenderer) Renders() []Render {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Render(nil), r.renders...)
}

// FakeControl is a [navigator.Control] that can be activated by hand.
type FakeControl struct {
	mu       sync.Mutex
	handler  func()
	enabled  bool
	bindings int
}

// SetHandler implements [navigator.Control].
func (c *FakeControl) SetHandler(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = fn
	c.bindings++
}

// SetEnabled implements [navigator.Control].
func (c *FakeControl) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// Enabled reports the last enablement applied.
func (c *FakeControl) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Bindings counts handler assignments.
func (c *FakeControl) Bindings() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bindings
}

// Activate runs the bound handler and reports whether one was bound.
func (c *FakeControl) Activate() bool {
	c.mu.Lock()
	fn := c.handler
	c.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

// FakeSurface is a rendered container holding named controls.
type FakeSurface struct {
	Controls map[string]*FakeControl
}

// NewFakeSurface creates a surface with a fresh control for each id.
func NewFakeSurface(ids ...string) *FakeSurface {
	s := &FakeSurface{Controls: make(map[string]*FakeControl, len(ids))}
	for _, id := range ids {
		s.Controls[id] = &FakeControl{}
	}
	return s
}

// Control implements [navigator.Surface].
func (s *FakeSurface) Control(id string) (navigator.Control, bool) {
	c, ok := s.Controls[id]
	if !ok {
		return nil, false
	}
	return c, true
}

// FakeSurfaces maps container ids to surfaces.
type FakeSurfaces struct {
	mu       sync.Mutex
	surfaces map[string]*FakeSurface
}

// NewFakeSurfaces creates an empty provider.
func NewFakeSurfaces() *FakeSurfaces {
	return &FakeSurfaces{surfaces: make(map[string]*FakeSurface)}
}

// Put replaces the surface for a container, as a render would.
func (p *FakeSurfaces) Put(containerID string, s *FakeSurface) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.surfaces[containerID] = s
}

// Surface implements [navigator.SurfaceProvider].
func (p *FakeSurfaces) Surface(containerID string) (navigator.Surface, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.surfaces[containerID]
	if !ok {
		return nil, false
	}
	return s, true
}
