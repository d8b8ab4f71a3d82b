package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/tablenav/internal/models"
	"github.com/desertthunder/tablenav/internal/shared"
)

// ExportRange downloads the archive for a range, step or full export.
func (c *Client) ExportRange(ctx context.Context, req models.ExportRequest) (*models.Download, error) {
	if req.Kind() == models.ExportSingle {
		return nil, fmt.Errorf("%w: use ExportSnapshot for single snapshots", shared.ErrInvalidArgument)
	}
	return c.export(ctx, "/result/sb3s", req, fmt.Sprintf("sb3s_eid_%d_uid_%d.zip", req.Experiment, req.User))
}

// ExportSnapshot downloads the project file for one snapshot.
func (c *Client) ExportSnapshot(ctx context.Context, experiment, user, snapshot int) (*models.Download, error) {
	req := models.ExportRequest{Experiment: experiment, User: user, Snapshot: snapshot}
	if snapshot < 1 {
		return nil, fmt.Errorf("%w: snapshot %d", shared.ErrInvalidArgument, snapshot)
	}
	return c.export(ctx, "/result/generate", req, fmt.Sprintf("sb3_%d_eid_%d_uid_%d.sb3", snapshot, experiment, user))
}

// Export dispatches req to the matching export endpoint.
func (c *Client) Export(ctx context.Context, req models.ExportRequest) (*models.Download, error) {
	if req.Kind() == models.ExportSingle {
		return c.ExportSnapshot(ctx, req.Experiment, req.User, req.Snapshot)
	}
	return c.ExportRange(ctx, req)
}

func (c *Client) export(ctx context.Context, path string, req models.ExportRequest, fallback string) (*models.Download, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	resp, err := c.get(ctx, path, req.Query())
	if err != nil {
		return nil, err
	}

	name := filename(resp.header)
	if name == "" {
		name = fallback
	}
	c.logger.Info("export downloaded", "kind", req.Kind(), "file", name, "bytes", len(resp.body))

	return &models.Download{
		Name:        name,
		ContentType: resp.header.Get("Content-Type"),
		Content:     resp.body,
	}, nil
}
