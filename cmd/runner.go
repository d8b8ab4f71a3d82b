package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tablenav/internal/navigator"
	"github.com/desertthunder/tablenav/internal/repositories"
	"github.com/desertthunder/tablenav/internal/services"
	"github.com/desertthunder/tablenav/internal/shared"
	"github.com/desertthunder/tablenav/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	client     *services.Client
	ownsClient bool
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Client     *services.Client // built from Config when nil
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		client:     opts.Client,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	if r.client == nil {
		r.client = services.NewClientFromConfig(r.config.Client, r.logger)
		r.ownsClient = true
	}
	return r
}

// SetLogger replaces the logger, and the client's logger when the runner built the client.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	if r.ownsClient {
		r.client = services.NewClientFromConfig(r.config.Client, l)
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, pageCommand, searchCommand, snapshotsCommand, exportCommand, browseCommand, viewerCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// descriptor resolves a configured collection by name.
func (r *Runner) descriptor(name string) (navigator.Descriptor, error) {
	if name == "" {
		return navigator.Descriptor{}, fmt.Errorf("%w: --collection", shared.ErrMissingArgument)
	}
	c, ok := r.config.Collection(name)
	if !ok {
		return navigator.Descriptor{}, fmt.Errorf("%w: collection %q is not configured in %s", shared.ErrNotFound, name, r.configPath)
	}
	return navigator.DescriptorFromConfig(c), nil
}

// openHistory opens the export history database. The returned func closes it.
func (r *Runner) openHistory() (*repositories.ExportRepository, func(), error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return repositories.NewExportRepository(db), func() { closeDB(db, r.logger) }, nil
}

// recorder returns a history recorder, or nil with a warning when the database is unavailable.
func (r *Runner) recorder() (tasks.Recorder, func()) {
	repo, done, err := r.openHistory()
	if err != nil {
		r.logger.Warn("export history disabled", "error", err)
		return nil, func() {}
	}
	return repositories.NewHistoryRecorder(repo), done
}

func closeDB(db *sql.DB, logger *log.Logger) {
	if err := db.Close(); err != nil {
		logger.Warn("failed to close database", "error", err)
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
