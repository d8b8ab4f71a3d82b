package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tablenav/internal/navigator"
	"github.com/desertthunder/tablenav/internal/shared"
	"github.com/desertthunder/tablenav/internal/ui"
	"github.com/urfave/cli/v3"
)

const tuiLogPath = "./tmp/tablenav-tui.log"

// useFileLogger redirects logs to a file so they do not interfere with TUI rendering.
func (r *Runner) useFileLogger() error {
	fileLogger, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)
	return nil
}

// browseCollections resolves the requested collections, or every configured one.
func (r *Runner) browseCollections(names []string) ([]navigator.Descriptor, error) {
	if len(names) == 0 {
		descs := make([]navigator.Descriptor, 0, len(r.config.Collections))
		for _, c := range r.config.Collections {
			descs = append(descs, navigator.DescriptorFromConfig(c))
		}
		return descs, nil
	}

	descs := make([]navigator.Descriptor, 0, len(names))
	for _, name := range names {
		d, err := r.descriptor(name)
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}
	return descs, nil
}

// Browse launches the side-by-side collection browser.
func (r *Runner) Browse(ctx context.Context, cmd *cli.Command) error {
	descs, err := r.browseCollections(cmd.StringSlice("collection"))
	if err != nil {
		return err
	}

	policy := cmd.String("refresh")
	if policy == "" {
		policy = r.config.Navigation.Refresh
	}
	refresh, err := navigator.ParseRefreshPolicy(policy)
	if err != nil {
		return err
	}

	if err := r.useFileLogger(); err != nil {
		return err
	}

	model, err := ui.NewBrowser(ctx, ui.BrowserOptions{
		Collections: descs,
		Fetcher:     r.client,
		Refresh:     refresh,
		Logger:      r.logger,
	})
	if err != nil {
		return err
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// Viewer launches the snapshot viewer for one participant.
func (r *Runner) Viewer(ctx context.Context, cmd *cli.Command) error {
	experiment, user := participant(cmd)
	outputDir := r.outputDir(cmd)

	if err := r.useFileLogger(); err != nil {
		return err
	}

	recorder, done := r.recorder()
	defer done()

	model, err := ui.NewViewer(ctx, r.client, ui.ViewerOptions{
		Experiment: experiment,
		User:       user,
		PageSize:   r.config.Navigation.PageSize,
		OutputDir:  outputDir,
		Recorder:   recorder,
		Logger:     r.logger,
	})
	if err != nil {
		return err
	}

	p := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
