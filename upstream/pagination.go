package upstream

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/mattertraffic/syncgw/domain"
)

type wirePage struct {
	Results    []wireTask `json:"results"`
	NextCursor string     `json:"next_cursor"`
	HasMore    bool       `json:"has_more"`
}

// fetchAllPages transparently follows the upstream's own opaque cursor
// until has_more is false, passing the cursor token through untouched
// rather than constructing one locally (SPEC_FULL.md §4.3).
func (c *Client) fetchAllPages(ctx context.Context, priority int, path string, query url.Values) ([]domain.Task, error) {
	var all []domain.Task
	cursor := ""
	for {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		page, err := call(ctx, c, priority, func(ctx context.Context) (wirePage, error) {
			resp, err := c.do(ctx, http.MethodGet, path+"?"+q.Encode(), nil)
			if err != nil {
				return wirePage{}, err
			}
			return decodeJSON[wirePage](resp)
		})
		if err != nil {
			return nil, err
		}

		for _, w := range page.Results {
			all = append(all, w.toDomain())
		}
		if !page.HasMore || page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

// RangeQueryTasks fetches every task whose work period overlaps
// [start, end], used by the Conflict Engine's upstream fallback path.
func (c *Client) RangeQueryTasks(ctx context.Context, priority int, start, end time.Time) ([]domain.Task, error) {
	q := url.Values{
		"workPeriodStart_before": {end.Format(time.RFC3339)},
		"workPeriodEnd_after":    {start.Format(time.RFC3339)},
	}
	return c.fetchAllPages(ctx, priority, "/tasks/query", q)
}

// wireRecordPage is the generic (kind-agnostic) page shape used for
// non-task entity kinds, which this system treats as opaque relation
// targets rather than typed domain objects (SPEC_FULL.md §9: "store only
// ids in entities; resolve relations lazily").
type wireRecordPage struct {
	Results    []map[string]any `json:"results"`
	NextCursor string           `json:"next_cursor"`
	HasMore    bool             `json:"has_more"`
}

// ListByKind lists every entity of kind (project|client|member|team) as raw
// records, used by Cache Manager warmup to populate the cache without this
// client needing a bespoke Go type for every relation target.
func (c *Client) ListByKind(ctx context.Context, priority int, kind string) ([]map[string]any, error) {
	var all []map[string]any
	cursor := ""
	for {
		q := url.Values{}
		if cursor != "" {
			q.Set("cursor", cursor)
		}
		page, err := call(ctx, c, priority, func(ctx context.Context) (wireRecordPage, error) {
			resp, err := c.do(ctx, http.MethodGet, "/"+kind+"s?"+q.Encode(), nil)
			if err != nil {
				return wireRecordPage{}, err
			}
			return decodeJSON[wireRecordPage](resp)
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page.Results...)
		if !page.HasMore || page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}
