package ui

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/tablenav/internal/formatter"
	"github.com/desertthunder/tablenav/internal/models"
	"github.com/desertthunder/tablenav/internal/rangesel"
	"github.com/desertthunder/tablenav/internal/sequence"
	"github.com/desertthunder/tablenav/internal/shared"
	"github.com/desertthunder/tablenav/internal/tasks"
)

// SnapshotSource serves the snapshots of one participant and their exports.
type SnapshotSource interface {
	SnapshotCount(ctx context.Context, experiment, user int) (int, error)
	Snapshots(ctx context.Context, experiment, user, page int) ([]models.Snapshot, error)
	Export(ctx context.Context, req models.ExportRequest) (*models.Download, error)
}

// ViewerOptions configures a [Viewer].
type ViewerOptions struct {
	Experiment int
	User       int
	PageSize   int
	OutputDir  string
	Recorder   tasks.Recorder // optional
	Logger     *log.Logger
}

// Viewer steps through a participant's snapshots and exports ranges of them.
type Viewer struct {
	ctx      context.Context
	src      SnapshotSource
	opts     ViewerOptions
	seq      *sequence.Viewer[models.Snapshot]
	selector *rangesel.Selector
	include  bool

	mu    sync.Mutex
	frame *shown

	loading bool
	status  string
	err     error
	help    help.Model
	keys    keyMap
	logger  *log.Logger
}

// NewViewer creates a viewer; the snapshot count is fetched by [Viewer.Init].
func NewViewer(ctx context.Context, src SnapshotSource, opts ViewerOptions) (*Viewer, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: snapshot source", shared.ErrMissingArgument)
	}
	if opts.Experiment < 1 || opts.User < 1 {
		return nil, fmt.Errorf("%w: experiment %d, user %d", shared.ErrInvalidArgument, opts.Experiment, opts.User)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Viewer{
		ctx:     ctx,
		src:     src,
		opts:    opts,
		loading: true,
		help:    help.New(),
		keys:    newKeyMap(),
		logger:  opts.Logger.WithPrefix("viewer"),
	}, nil
}

// Init fetches the snapshot count.
func (v *Viewer) Init() tea.Cmd {
	return func() tea.Msg {
		total, err := v.src.SnapshotCount(v.ctx, v.opts.Experiment, v.opts.User)
		return snapshotCountMsg(total, err)
	}
}

func (v *Viewer) show(pos sequence.Position, s models.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.frame = &shown{snapshot: s, position: pos.Count + 1}
}

func (v *Viewer) current() (shown, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.frame == nil {
		return shown{}, false
	}
	return *v.frame, true
}

func (v *Viewer) load(ctx context.Context, page int) ([]models.Snapshot, error) {
	return v.src.Snapshots(ctx, v.opts.Experiment, v.opts.User, page)
}

// start builds the sequence and range selector for total snapshots.
func (v *Viewer) start(total int) tea.Cmd {
	if total < 1 {
		v.err = fmt.Errorf("%w: no snapshots for experiment %d user %d", shared.ErrNotFound, v.opts.Experiment, v.opts.User)
		return nil
	}

	seq, err := sequence.New[models.Snapshot](total, v.opts.PageSize, v.load, v.show, sequence.WithLogger(v.opts.Logger))
	if err != nil {
		v.err = err
		return nil
	}
	selector, err := rangesel.New(total)
	if err != nil {
		v.err = err
		return nil
	}
	v.seq = seq
	v.selector = selector
	return v.move(seq.Start)
}

func (v *Viewer) move(step func(context.Context) error) tea.Cmd {
	v.loading = true
	return func() tea.Msg {
		return snapshotMovedMsg(step(v.ctx))
	}
}

// Update handles incoming messages and updates the model state.
func (v *Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.help.Width = msg.Width
		return v, nil

	case tea.KeyMsg:
		return v.handleKeys(msg)

	case Msg:
		switch msg.kind {
		case MsgSnapshotCount:
			res := msg.data.(countResult)
			v.loading = false
			if res.err != nil {
				v.err = res.err
				return v, nil
			}
			return v, v.start(res.total)

		case MsgSnapshotMoved:
			v.loading = false
			v.err, _ = msg.data.(error)

		case MsgSaved:
			res := msg.data.(savedResult)
			v.err = res.err
			if res.err == nil {
				v.status = fmt.Sprintf("Saved %s (%d bytes)", res.path, res.size)
			}
		}
		return v, nil
	}

	return v, nil
}

func (v *Viewer) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, v.keys.quit) {
		return v, tea.Quit
	}
	if v.seq == nil {
		return v, nil
	}

	controls := v.seq.Controls()
	switch {
	case key.Matches(msg, v.keys.first) && controls.First:
		return v, v.move(v.seq.First)
	case key.Matches(msg, v.keys.prev) && controls.Prev:
		return v, v.move(v.seq.Prev)
	case key.Matches(msg, v.keys.next) && controls.Next:
		return v, v.move(v.seq.Next)
	case key.Matches(msg, v.keys.last) && controls.Last:
		return v, v.move(v.seq.Last)
	case key.Matches(msg, v.keys.lowerDown):
		v.selector.Nudge(rangesel.Lower, -1)
	case key.Matches(msg, v.keys.lowerUp):
		v.selector.Nudge(rangesel.Lower, 1)
	case key.Matches(msg, v.keys.upperDown):
		v.selector.Nudge(rangesel.Upper, -1)
	case key.Matches(msg, v.keys.upperUp):
		v.selector.Nudge(rangesel.Upper, 1)
	case key.Matches(msg, v.keys.include):
		v.include = !v.include
	case key.Matches(msg, v.keys.export):
		return v, v.exportRange()
	case key.Matches(msg, v.keys.xml):
		return v, v.save(formatter.SnapshotXML)
	case key.Matches(msg, v.keys.json):
		return v, v.save(formatter.SnapshotJSON)
	}
	return v, nil
}

// exportRange requests the selected range and writes the archive into the output directory.
func (v *Viewer) exportRange() tea.Cmd {
	req, err := v.selector.Request(v.include, rangesel.Target{Experiment: v.opts.Experiment, User: v.opts.User})
	if err != nil {
		v.err = err
		return nil
	}

	v.status = fmt.Sprintf("Exporting %s...", v.selector.Selection())
	return func() tea.Msg {
		d, err := v.src.Export(v.ctx, req)
		if err != nil {
			return savedMsg("", 0, err)
		}
		path, size, err := formatter.WriteDownload(d, v.opts.OutputDir)
		if err != nil {
			return savedMsg("", 0, err)
		}
		if v.opts.Recorder != nil {
			if err := v.opts.Recorder.Record(req, path, size); err != nil {
				v.logger.Warn("failed to record export", "path", path, "error", err)
			}
		}
		return savedMsg(path, size, nil)
	}
}

func (v *Viewer) save(kind formatter.SnapshotKind) tea.Cmd {
	frame, ok := v.current()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		path, err := formatter.WriteSnapshot(frame.snapshot, kind, v.opts.User, v.opts.Experiment, v.opts.OutputDir)
		if err != nil {
			return savedMsg("", 0, err)
		}
		size := len(frame.snapshot.Code)
		if kind == formatter.SnapshotXML {
			size = len(frame.snapshot.XML)
		}
		return savedMsg(path, int64(size), nil)
	}
}

func (v *Viewer) rangeLine() string {
	if v.selector == nil {
		return ""
	}
	sel := v.selector.Selection()
	end := "excluded"
	if v.include {
		end = "included"
	}
	return fmt.Sprintf("Range %s of %d, end %s", sel, v.selector.Total(), end)
}

// View renders the snapshot on display with its position and the export range.
func (v *Viewer) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render(fmt.Sprintf("Experiment %d · user %d", v.opts.Experiment, v.opts.User)))
	b.WriteString("\n")

	if frame, ok := v.current(); ok {
		position := fmt.Sprintf("%d/%d", frame.position, v.seq.Total())
		b.WriteString(styles.pane.Render(strings.TrimRight(string(formatter.SnapshotToText(frame.snapshot, position)), "\n")))
		b.WriteString("\n")
	} else if v.loading {
		b.WriteString(styles.help.Render("Loading snapshots..."))
		b.WriteString("\n")
	}

	if v.seq != nil {
		controls := v.seq.Controls()
		parts := make([]string, 0, 4)
		for _, c := range []struct {
			label   string
			enabled bool
		}{{"«", controls.First}, {"‹", controls.Prev}, {"›", controls.Next}, {"»", controls.Last}} {
			if c.enabled {
				parts = append(parts, styles.control.Render(c.label))
			} else {
				parts = append(parts, styles.disabled.Render(c.label))
			}
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
		b.WriteString("\n")
		b.WriteString(v.rangeLine())
		b.WriteString("\n")
	}

	switch {
	case v.err != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", v.err)))
	case v.status != "":
		b.WriteString(styles.ok.Render(v.status))
	}
	b.WriteString("\n\n")
	b.WriteString(v.help.FullHelpView([][]key.Binding{
		{v.keys.first, v.keys.prev, v.keys.next, v.keys.last},
		{v.keys.lowerDown, v.keys.lowerUp, v.keys.upperDown, v.keys.upperUp},
		{v.keys.include, v.keys.export, v.keys.xml, v.keys.json, v.keys.quit},
	}))
	return b.String()
}
