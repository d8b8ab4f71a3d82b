package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/tablenav/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the in-memory development backend until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.DevServer
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := int(cmd.Int("port")); port > 0 {
		cfg.Port = port
	}
	if rows := int(cmd.Int("rows")); rows > 0 {
		cfg.Rows = rows
	}
	if size := int(cmd.Int("page-size")); size > 0 {
		cfg.PageSize = size
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.writePlain("Serving %d rows per collection on http://%s (Ctrl+C to stop)\n", cfg.Rows, cfg.Addr())
	return server.Serve(ctx, cfg.Addr(), server.NewDevServer(cfg, r.logger), r.logger)
}
