package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/tablenav/internal/models"
	"github.com/desertthunder/tablenav/internal/shared"
)

func participantQuery(experiment, user int) url.Values {
	q := url.Values{}
	q.Set("experiment", strconv.Itoa(experiment))
	q.Set("user", strconv.Itoa(user))
	return q
}

// SnapshotCount returns how many snapshots were saved for a participant.
func (c *Client) SnapshotCount(ctx context.Context, experiment, user int) (int, error) {
	resp, err := c.get(ctx, "/result/count", participantQuery(experiment, user))
	if err != nil {
		return 0, err
	}

	n, err := strconv.Atoi(strings.TrimSpace(string(resp.body)))
	if err != nil {
		return 0, fmt.Errorf("%w: snapshot count is not an integer: %q", shared.ErrServerError, resp.body)
	}
	return max(n, 0), nil
}

// Snapshots fetches one page of a participant's snapshots.
func (c *Client) Snapshots(ctx context.Context, experiment, user, page int) ([]models.Snapshot, error) {
	if page < 0 {
		return nil, fmt.Errorf("%w: %d", shared.ErrInvalidPage, page)
	}

	q := participantQuery(experiment, user)
	q.Set("page", strconv.Itoa(page))

	var snapshots []models.Snapshot
	if err := c.getJSON(ctx, "/result/codes", q, &snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// SnapshotLoader binds [Client.Snapshots] to one participant, in the shape a sequence viewer loads pages.
func (c *Client) SnapshotLoader(experiment, user int) func(ctx context.Context, page int) ([]models.Snapshot, error) {
	return func(ctx context.Context, page int) ([]models.Snapshot, error) {
		return c.Snapshots(ctx, experiment, user, page)
	}
}
