package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/desertthunder/tablenav/internal/models"
	"github.com/desertthunder/tablenav/internal/navigator"
	"github.com/desertthunder/tablenav/internal/shared"
)

// DecodePage decodes a fragment returned by [Client.FetchPage].
func DecodePage(fragment []byte) (*models.TablePage, error) {
	var page models.TablePage
	if err := json.Unmarshal(fragment, &page); err != nil {
		return nil, fmt.Errorf("%w: malformed page fragment: %v", shared.ErrServerError, err)
	}
	return &page, nil
}

// Page fetches and decodes one page of a collection.
func (c *Client) Page(ctx context.Context, d navigator.Descriptor, page int) (*models.TablePage, error) {
	fragment, err := c.FetchPage(ctx, d, page)
	if err != nil {
		return nil, err
	}
	return DecodePage(fragment)
}

// Suggest returns search suggestions for query, leaving out the entry with id exclude when it is positive.
func (c *Client) Suggest(ctx context.Context, query string, exclude int) ([]models.Suggestion, error) {
	q := url.Values{}
	q.Set("query", query)
	if exclude > 0 {
		q.Set("exclude", strconv.Itoa(exclude))
	}

	var suggestions []models.Suggestion
	if err := c.getJSON(ctx, "/search/suggestions", q, &suggestions); err != nil {
		return nil, err
	}
	return suggestions, nil
}

// Search fetches one page of search results for a category.
func (c *Client) Search(ctx context.Context, category, query string, page int) (*models.SearchPage, error) {
	if category == "" {
		return nil, fmt.Errorf("%w: search category", shared.ErrMissingArgument)
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("page", strconv.Itoa(page))

	var result models.SearchPage
	if err := c.getJSON(ctx, "/search/"+url.PathEscape(category), q, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
