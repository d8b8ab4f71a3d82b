package ui

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tablenav/internal/models"
	"github.com/desertthunder/tablenav/internal/navigator"
	"github.com/desertthunder/tablenav/internal/services"
)

var (
	_ navigator.Renderer        = (*Panes)(nil)
	_ navigator.SurfaceProvider = (*Panes)(nil)
	_ navigator.Control         = (*button)(nil)
)

// button is one control of a rendered page.
type button struct {
	mu      sync.Mutex
	handler func()
	enabled bool
}

func (b *button) SetHandler(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = fn
}

func (b *button) SetEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = enabled
}

func (b *button) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// Activate runs the handler when the button is enabled and bound.
func (b *button) Activate() bool {
	b.mu.Lock()
	fn, ok := b.handler, b.enabled && b.handler != nil
	b.mu.Unlock()
	if ok {
		fn()
	}
	return ok
}

type surface struct {
	controls map[string]*button
}

func (s *surface) Control(id string) (navigator.Control, bool) {
	b, ok := s.controls[id]
	if !ok {
		return nil, false
	}
	return b, true
}

func (s *surface) button(id string) (*button, bool) {
	b, ok := s.controls[id]
	return b, ok
}

type pane struct {
	page    *models.TablePage
	surface *surface
}

// Panes holds the rendered page of every container.
//
// A render replaces the container's controls, dropping whatever was bound to the old ones.
type Panes struct {
	mu     sync.RWMutex
	panes  map[string]pane
	logger *log.Logger
}

// NewPanes creates an empty [Panes].
func NewPanes(logger *log.Logger) *Panes {
	return &Panes{panes: make(map[string]pane), logger: logger}
}

// Render implements [navigator.Renderer]. An undecodable fragment leaves the container as it was.
func (p *Panes) Render(containerID string, fragment []byte) error {
	page, err := services.DecodePage(fragment)
	if err != nil {
		p.logger.Error("discarding fragment", "container", containerID, "error", err)
		return fmt.Errorf("%s: %w", containerID, err)
	}

	s := &surface{controls: make(map[string]*button, len(page.Controls))}
	for _, id := range page.Controls {
		s.controls[id] = &button{}
	}

	p.mu.Lock()
	p.panes[containerID] = pane{page: page, surface: s}
	p.mu.Unlock()
	return nil
}

// Surface implements [navigator.SurfaceProvider].
func (p *Panes) Surface(containerID string) (navigator.Surface, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pn, ok := p.panes[containerID]
	if !ok {
		return nil, false
	}
	return pn.surface, true
}

// Page returns the page last rendered into containerID.
func (p *Panes) Page(containerID string) (*models.TablePage, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pn, ok := p.panes[containerID]
	return pn.page, ok
}

func (p *Panes) button(containerID, id string) (*button, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pn, ok := p.panes[containerID]
	if !ok {
		return nil, false
	}
	return pn.surface.button(id)
}
