package navigator

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tablenav/internal/paging"
	"github.com/desertthunder/tablenav/internal/shared"
)

// Control is an activatable element inside a rendered container.
type Control interface {
	// SetHandler replaces the element's activation handler.
	SetHandler(fn func())
	SetEnabled(enabled bool)
}

// Surface is the currently rendered content of one container.
type Surface interface {
	Control(id string) (Control, bool)
}

// SurfaceProvider resolves containers to their rendered surfaces.
type SurfaceProvider interface {
	Surface(containerID string) (Surface, bool)
}

// Binding attaches a handler to an element that lives inside a collection's container.
type Binding struct {
	ElementID string
	Handler   func()
}

// Registry wires navigators to the controls rendered inside their containers.
type Registry struct {
	ctx      context.Context
	surfaces SurfaceProvider
	logger   *log.Logger

	mu         sync.Mutex
	navs       map[string]*CollectionNavigator
	order      []string
	containers map[string]string
	extra      map[string][]Binding
}

// NewRegistry creates a registry. ctx is passed to every goto started by a control.
func NewRegistry(ctx context.Context, surfaces SurfaceProvider, logger *log.Logger) *Registry {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Registry{
		ctx:        ctx,
		surfaces:   surfaces,
		logger:     logger.WithPrefix("registry"),
		navs:       make(map[string]*CollectionNavigator),
		containers: make(map[string]string),
		extra:      make(map[string][]Binding),
	}
}

// Register adds nav and subscribes to its renders. Names and containers must be unique.
func (r *Registry) Register(nav *CollectionNavigator) error {
	desc := nav.Descriptor()

	r.mu.Lock()
	if _, ok := r.navs[desc.Name]; ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: collection %q already registered", shared.ErrInvalidArgument, desc.Name)
	}
	if owner, ok := r.containers[desc.ContainerID]; ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: container %q is owned by %q", shared.ErrInvalidArgument, desc.ContainerID, owner)
	}
	r.navs[desc.Name] = nav
	r.order = append(r.order, desc.Name)
	r.containers[desc.ContainerID] = desc.Name
	r.mu.Unlock()

	nav.OnChange(func(name string) { r.Rebind(name) })
	r.logger.Debug("registered collection", "name", desc.Name, "container", desc.ContainerID)
	return nil
}

// Navigator looks a registered navigator up by collection name.
func (r *Registry) Navigator(name string) (*CollectionNavigator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	nav, ok := r.navs[name]
	return nav, ok
}

// Names lists collections in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Bind adds a binding that is re-applied on every rebind of collection name.
func (r *Registry) Bind(name, elementID string, handler func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.navs[name]; !ok {
		return fmt.Errorf("%w: collection %q", shared.ErrNotFound, name)
	}
	r.extra[name] = append(r.extra[name], Binding{ElementID: elementID, Handler: handler})
	return nil
}

// Rebind attaches navigation and extra handlers to the controls currently rendered for name.
// It returns the number of controls bound.
func (r *Registry) Rebind(name string) int {
	r.mu.Lock()
	nav, ok := r.navs[name]
	extra := append([]Binding(nil), r.extra[name]...)
	r.mu.Unlock()
	if !ok {
		return 0
	}

	desc := nav.Descriptor()
	surface, ok := r.surfaces.Surface(desc.ContainerID)
	if !ok {
		r.logger.Debug("container not rendered", "container", desc.ContainerID)
		return 0
	}

	controls := nav.Controls()
	bound := 0
	for _, b := range []struct {
		id      string
		action  paging.Action
		enabled bool
	}{
		{desc.Controls.First, paging.FirstAction, controls.First},
		{desc.Controls.Prev, paging.PreviousAction, controls.Prev},
		{desc.Controls.Next, paging.NextAction, controls.Next},
		{desc.Controls.Last, paging.LastAction, controls.Last},
	} {
		if b.id == "" {
			continue
		}
		ctl, ok := surface.Control(b.id)
		if !ok {
			continue
		}
		action := b.action
		ctl.SetHandler(func() { r.run(nav, action) })
		ctl.SetEnabled(b.enabled)
		bound++
	}

	for _, b := range extra {
		ctl, ok := surface.Control(b.ElementID)
		if !ok {
			continue
		}
		ctl.SetHandler(b.Handler)
		ctl.SetEnabled(true)
		bound++
	}
	return bound
}

// RebindAll rebinds every registered collection.
func (r *Registry) RebindAll() {
	for _, name := range r.Names() {
		r.Rebind(name)
	}
}

// Goto runs a on the named collection.
func (r *Registry) Goto(name string, a paging.Action) (Outcome, error) {
	nav, ok := r.Navigator(name)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: collection %q", shared.ErrNotFound, name)
	}
	return nav.Goto(r.ctx, a)
}

func (r *Registry) run(nav *CollectionNavigator, a paging.Action) {
	if _, err := nav.Goto(r.ctx, a); err != nil {
		r.logger.Debug("control action ended with error", "collection", nav.Name(), "action", a, "error", err)
	}
}
