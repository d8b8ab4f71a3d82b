package navigator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tablenav/internal/paging"
	"github.com/desertthunder/tablenav/internal/shared"
)

// ControlIDs names the elements that trigger each navigation action.
type ControlIDs struct {
	First string
	Prev  string
	Next  string
	Last  string
}

// Descriptor is the static description of one paged collection.
type Descriptor struct {
	Name          string
	PageEndpoint  string
	CountEndpoint string
	ContainerID   string
	Params        map[string]string
	Controls      ControlIDs
}

// DefaultControls derives control IDs from a collection name, e.g. "experimentsNext".
func DefaultControls(name string) ControlIDs {
	return ControlIDs{
		First: name + "First",
		Prev:  name + "Prev",
		Next:  name + "Next",
		Last:  name + "Last",
	}
}

// OpenControl names the row details trigger rendered with every non-empty page of a collection.
func OpenControl(name string) string {
	return name + "_open"
}

// DescriptorFromConfig builds a [Descriptor] from its configuration entry.
func DescriptorFromConfig(c shared.CollectionConfig) Descriptor {
	container := c.Container
	if container == "" {
		container = c.Name + "_table"
	}
	return Descriptor{
		Name:          c.Name,
		PageEndpoint:  c.PageEndpoint,
		CountEndpoint: c.CountEndpoint,
		ContainerID:   container,
		Params:        c.Params,
		Controls:      DefaultControls(c.Name),
	}
}

// Fetcher issues the page and count requests for a collection.
type Fetcher interface {
	// FetchPage returns the renderable fragment for page.
	FetchPage(ctx context.Context, d Descriptor, page int) ([]byte, error)
	// FetchCount returns the collection's current last page index.
	FetchCount(ctx context.Context, d Descriptor) (int, error)
}

// Renderer replaces a container's content with a fragment.
//
// A fragment that cannot be rendered must leave the container untouched and return an error.
type Renderer interface {
	Render(containerID string, fragment []byte) error
}

// RefreshPolicy decides which actions resync the last page first.
type RefreshPolicy int

const (
	RefreshEvery RefreshPolicy = iota // every boundary action
	RefreshLast                       // only the last action
	RefreshNever
)

// ParseRefreshPolicy maps a configuration value onto a [RefreshPolicy].
func ParseRefreshPolicy(s string) (RefreshPolicy, error) {
	switch s {
	case shared.RefreshEvery, "":
		return RefreshEvery, nil
	case shared.RefreshLast:
		return RefreshLast, nil
	case shared.RefreshNever:
		return RefreshNever, nil
	default:
		return RefreshEvery, fmt.Errorf("%w: refresh policy %q", shared.ErrInvalidConfig, s)
	}
}

// Options configures a [CollectionNavigator].
type Options struct {
	Start   paging.Cursor // server supplied starting position
	Refresh RefreshPolicy
	Logger  *log.Logger
	OnError func(name string, err error)
}

// Outcome describes a completed goto.
type Outcome struct {
	Page     int
	Fetched  bool
	Controls paging.Controls
}

// CollectionNavigator tracks and moves the current page of one collection.
type CollectionNavigator struct {
	desc     Descriptor
	fetcher  Fetcher
	renderer Renderer
	refresh  RefreshPolicy
	logger   *log.Logger
	onError  func(name string, err error)

	mu        sync.Mutex
	cursor    paging.Cursor
	inFlight  bool
	token     uint64
	listeners []func(name string)
}

// New creates a navigator for desc.
func New(desc Descriptor, fetcher Fetcher, renderer Renderer, opts Options) *CollectionNavigator {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &CollectionNavigator{
		desc:     desc,
		fetcher:  fetcher,
		renderer: renderer,
		refresh:  opts.Refresh,
		logger:   shared.WithLogger(opts.Logger, "collection", desc.Name),
		onError:  opts.OnError,
		cursor:   opts.Start,
	}
}

// Name returns the collection name.
func (n *CollectionNavigator) Name() string { return n.desc.Name }

// Descriptor returns the collection's static description.
func (n *CollectionNavigator) Descriptor() Descriptor { return n.desc }

// Cursor returns a copy of the current cursor.
func (n *CollectionNavigator) Cursor() paging.Cursor {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cursor
}

// Controls returns the control availability for the current cursor.
func (n *CollectionNavigator) Controls() paging.Controls {
	return paging.EnabledControls(n.Cursor())
}

// InFlight reports whether a goto is outstanding.
func (n *CollectionNavigator) InFlight() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.inFlight
}

// OnChange subscribes fn to cursor changes and renders.
func (n *CollectionNavigator) OnChange(fn func(name string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, fn)
}

// Reset replaces the cursor, e.g. after a full reload, and invalidates outstanding requests.
func (n *CollectionNavigator) Reset(c paging.Cursor) {
	n.mu.Lock()
	n.cursor = c
	n.token++
	n.mu.Unlock()
	n.notify()
}

// Goto moves the collection according to a.
func (n *CollectionNavigator) Goto(ctx context.Context, a paging.Action) (Outcome, error) {
	token, cur, ok := n.begin()
	if !ok {
		n.logger.Debug("navigation dropped, request outstanding", "action", a)
		return Outcome{}, shared.ErrInFlight
	}
	defer n.end()

	if n.shouldRefresh(a) {
		last, err := n.fetcher.FetchCount(ctx, n.desc)
		if err != nil {
			return n.fail(a, fmt.Errorf("count refresh: %w", err))
		}
		var current bool
		if cur, current = n.syncLast(token, last); !current {
			return n.stale(a)
		}
		n.logger.Debug("last page resynced", "last", last)
	}

	target, err := a.Target(cur)
	if err != nil {
		return Outcome{}, err
	}

	if target == cur.Current() {
		n.notify()
		return Outcome{Page: target, Controls: paging.EnabledControls(cur)}, nil
	}

	fragment, err := n.fetcher.FetchPage(ctx, n.desc, target)
	if err != nil {
		return n.fail(a, fmt.Errorf("page %d: %w", target, err))
	}

	if !n.current(token) {
		return n.stale(a)
	}

	if err := n.renderer.Render(n.desc.ContainerID, fragment); err != nil {
		return n.fail(a, fmt.Errorf("render page %d: %w", target, err))
	}

	n.mu.Lock()
	if next, err := n.cursor.MoveTo(target); err == nil {
		n.cursor = next
	} else {
		// fragment came from a page past the synced last; the server is the authority on what exists
		n.cursor = n.cursor.WithLast(target)
		n.cursor, _ = n.cursor.MoveTo(target)
	}
	cur = n.cursor
	n.mu.Unlock()

	n.logger.Debug("page rendered", "action", a, "page", target)
	n.notify()
	return Outcome{Page: target, Fetched: true, Controls: paging.EnabledControls(cur)}, nil
}

func (n *CollectionNavigator) shouldRefresh(a paging.Action) bool {
	if n.desc.CountEndpoint == "" || !a.Boundary() {
		return false
	}
	switch n.refresh {
	case RefreshEvery:
		return true
	case RefreshLast:
		return a.Kind == paging.Last
	default:
		return false
	}
}

func (n *CollectionNavigator) begin() (uint64, paging.Cursor, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.inFlight {
		return 0, n.cursor, false
	}
	n.inFlight = true
	n.token++
	return n.token, n.cursor, true
}

func (n *CollectionNavigator) end() {
	n.mu.Lock()
	n.inFlight = false
	n.mu.Unlock()
}

func (n *CollectionNavigator) current(token uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.token == token
}

func (n *CollectionNavigator) syncLast(token uint64, last int) (paging.Cursor, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.token != token {
		return n.cursor, false
	}
	n.cursor = n.cursor.WithLast(last)
	return n.cursor, true
}

func (n *CollectionNavigator) stale(a paging.Action) (Outcome, error) {
	n.logger.Warn("discarding superseded response", "action", a)
	return Outcome{}, shared.ErrStaleResponse
}

func (n *CollectionNavigator) fail(a paging.Action, err error) (Outcome, error) {
	if errors.Is(err, context.Canceled) {
		n.logger.Debug("navigation canceled", "action", a)
		return Outcome{}, err
	}

	n.logger.Error("navigation failed", "action", a, "error", err)
	if n.onError != nil {
		n.onError(n.desc.Name, err)
	}
	return Outcome{}, err
}

func (n *CollectionNavigator) notify() {
	n.mu.Lock()
	listeners := append([]func(string){}, n.listeners...)
	n.mu.Unlock()

	for _, fn := range listeners {
		fn(n.desc.Name)
	}
}
