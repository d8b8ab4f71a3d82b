package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tablenav/internal/formatter"
	"github.com/desertthunder/tablenav/internal/models"
	"github.com/desertthunder/tablenav/internal/sequence"
	"github.com/desertthunder/tablenav/internal/shared"
	"github.com/urfave/cli/v3"
)

func participant(cmd *cli.Command) (int, int) {
	return int(cmd.Int("experiment")), int(cmd.Int("user"))
}

// SnapshotsCount prints how many snapshots a participant saved.
func (r *Runner) SnapshotsCount(ctx context.Context, cmd *cli.Command) error {
	experiment, user := participant(cmd)

	n, err := r.client.SnapshotCount(ctx, experiment, user)
	if err != nil {
		return fmt.Errorf("failed to count snapshots: %w", err)
	}
	return r.writePlain("%d\n", n)
}

// SnapshotsShow prints the snapshot at a 1-based position, loading only the page that holds it.
func (r *Runner) SnapshotsShow(ctx context.Context, cmd *cli.Command) error {
	experiment, user := participant(cmd)
	position := int(cmd.Int("position"))

	total, err := r.client.SnapshotCount(ctx, experiment, user)
	if err != nil {
		return fmt.Errorf("failed to count snapshots: %w", err)
	}
	if total == 0 {
		return fmt.Errorf("%w: no snapshots for experiment %d user %d", shared.ErrNotFound, experiment, user)
	}
	if position < 1 || position > total {
		return fmt.Errorf("%w: position %d outside 1..%d", shared.ErrInvalidPage, position, total)
	}

	var text []byte
	viewer, err := sequence.New[models.Snapshot](
		total,
		r.config.Navigation.PageSize,
		r.client.SnapshotLoader(experiment, user),
		func(pos sequence.Position, s models.Snapshot) {
			text = formatter.SnapshotToText(s, pos.String())
		},
		sequence.WithLogger(r.logger),
	)
	if err != nil {
		return err
	}
	if err := viewer.Seek(ctx, position-1); err != nil {
		return fmt.Errorf("failed to load snapshot %d: %w", position, err)
	}

	return r.writePlain("%s", text)
}
