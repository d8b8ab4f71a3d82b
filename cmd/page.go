package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tablenav/internal/formatter"
	"github.com/desertthunder/tablenav/internal/models"
	"github.com/desertthunder/tablenav/internal/paging"
	"github.com/desertthunder/tablenav/internal/shared"
	"github.com/desertthunder/tablenav/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PageGet fetches one page of a collection and prints it.
func (r *Runner) PageGet(ctx context.Context, cmd *cli.Command) error {
	desc, err := r.descriptor(cmd.String("collection"))
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	page := int(cmd.Int("page"))
	if page < 0 {
		return fmt.Errorf("%w: %d", shared.ErrInvalidPage, page)
	}

	r.logger.Debug("fetching page", "collection", desc.Name, "page", page)
	result, err := r.client.Page(ctx, desc, page)
	if err != nil {
		return fmt.Errorf("failed to fetch %s page %d: %w", desc.Name, page, err)
	}

	if format == formatter.FormatJSON {
		return r.writeJSON(result, true)
	}

	out, err := formatter.Render(result, format)
	if err != nil {
		return err
	}
	if format == formatter.FormatText {
		r.writePlain("%s · page %s\n\n", desc.Name, formatter.PageLabel(result.Page, result.Last))
	}
	return r.writePlain("%s", out)
}

// PageLast prints the last page index reported by the collection's count endpoint.
func (r *Runner) PageLast(ctx context.Context, cmd *cli.Command) error {
	desc, err := r.descriptor(cmd.String("collection"))
	if err != nil {
		return err
	}
	if desc.CountEndpoint == "" {
		return fmt.Errorf("%w: collection %q has no count_endpoint", shared.ErrMissingConfig, desc.Name)
	}

	last, err := r.client.FetchCount(ctx, desc)
	if err != nil {
		return fmt.Errorf("failed to fetch last page of %s: %w", desc.Name, err)
	}
	return r.writePlain("%d\n", last)
}

// PageDump writes every page of a collection to its own file.
func (r *Runner) PageDump(ctx context.Context, cmd *cli.Command) error {
	desc, err := r.descriptor(cmd.String("collection"))
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	engine := tasks.NewEngine(nil, r.client, nil, r.logger)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchCount:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.WritePage:
				r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
			}
		}
	}()

	result, err := engine.Dump(ctx, progressCh, desc, tasks.DumpOpts{Format: format, OutputDir: cmd.String("output")})
	close(progressCh)
	<-done

	if result == nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Dump Complete")
	r.writePlain("Collection: %s (%d pages)\n", result.Collection, result.Last+1)
	r.writePlain("Written: %d files to %s\n", len(result.Files), result.OutputDir)
	if len(result.Errors) > 0 {
		r.writePlain("\nFailed pages:\n")
		for _, pe := range result.Errors {
			r.writePlain("  - page %d: %v\n", pe.Page, pe.Error)
		}
	}
	return err
}

// Search prints suggestions for a query, or result pages of one category.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}
	category := cmd.String("category")
	useJSON := cmd.Bool("json")

	if category == "" {
		suggestions, err := r.client.Suggest(ctx, query, int(cmd.Int("exclude")))
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if useJSON {
			return r.writeJSON(suggestions, true)
		}
		r.writeSuggestions(suggestions)
		return nil
	}

	pages := max(int(cmd.Int("pages")), 1)
	var results []models.SearchPage
	for page := 1; page <= pages; page++ {
		p, err := r.client.Search(ctx, category, query, page)
		if err != nil {
			return fmt.Errorf("search page %d failed: %w", page, err)
		}
		results = append(results, *p)
		if !paging.HasMore(p.Count, page, r.config.Navigation.PageSize) {
			break
		}
	}

	if useJSON {
		return r.writeJSON(results, true)
	}

	last := results[len(results)-1]
	r.writePlainHeader(fmt.Sprintf("%d %s results for %q", last.Count, category, query))
	for _, p := range results {
		r.writeSuggestions(p.Results)
	}
	if paging.HasMore(last.Count, last.Page, r.config.Navigation.PageSize) {
		r.writePlain("\nMore results available, rerun with --pages %d\n", last.Page+1)
	}
	return nil
}

func (r *Runner) writeSuggestions(suggestions []models.Suggestion) {
	if len(suggestions) == 0 {
		r.writePlain("No matches\n")
		return
	}
	for _, s := range suggestions {
		r.writePlain("  %-10s %5d  %s\n", s.Category, s.ID, s.Title)
	}
}
