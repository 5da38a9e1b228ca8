// Package upstream implements C3: typed CRUD against the upstream, wrapped
// in Retry (C2) and scheduled through the Rate Limiter (C1) at the caller's
// priority. The HTTP call shape is grounded on the teacher's
// control_plane/jobs.go Dispatcher.DispatchJob (context-aware outbound
// call, explicit status-code branching, ctx.Err() precheck); pagination's
// opaque-cursor idiom is grounded on erauner12-toolbridge-api's
// internal/syncx/cursor.go, here simplified to pass the upstream's own page
// token through untouched.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/mattertraffic/syncgw/domain"
	"github.com/mattertraffic/syncgw/metrics"
	"github.com/mattertraffic/syncgw/ratelimit"
	"github.com/mattertraffic/syncgw/retry"
	"github.com/mattertraffic/syncgw/syncerr"
)

const upstreamOpWarnThreshold = 100 * time.Millisecond

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type Client struct {
	cfg     Config
	http    *http.Client
	limiter *ratelimit.Limiter
	metrics *metrics.Recorder
	log     zerolog.Logger
}

func New(cfg Config, limiter *ratelimit.Limiter, rec *metrics.Recorder, log zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		metrics: rec,
		log:     log,
	}
}

// call is the shared dispatch path: schedule through the limiter at
// priority, retry the transport-level call, and classify any failure per
// the taxonomy in SPEC_FULL.md §4.3. Latency is sampled around the whole
// scheduled-plus-retried attempt, since that is the wait a caller actually
// observes, and fed into the upstream latency ring (C10).
func call[T any](ctx context.Context, c *Client, priority int, do func(context.Context) (T, error)) (T, error) {
	started := time.Now()
	out, err := ratelimit.Schedule(ctx, c.limiter, priority, func(ctx context.Context) (T, error) {
		return retry.Do(ctx, c.log, retry.DefaultMaxAttempts, retry.DefaultInitialDelay, do)
	})
	elapsed := time.Since(started)
	if c.metrics != nil {
		c.metrics.RecordUpstream(elapsed)
	}
	if elapsed > upstreamOpWarnThreshold {
		c.log.Warn().Dur("elapsed", elapsed).Msg("upstream op exceeded latency threshold")
	}
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	if ctx.Err() != nil {
		return nil, syncerr.Wrap(syncerr.KindCancelled, "request cancelled before dispatch", ctx.Err())
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, syncerr.Wrap(syncerr.KindInternal, "failed to marshal request body", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindInternal, "failed to build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, syncerr.Wrap(syncerr.KindTimeout, "upstream call timed out", err)
		}
		return nil, syncerr.Wrap(syncerr.KindNetwork, "upstream transport error", err)
	}
	return resp, classifyStatus(resp)
}

func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return syncerr.New(syncerr.KindNotFound, "upstream entity not found")
	case resp.StatusCode == http.StatusUnauthorized:
		return syncerr.New(syncerr.KindUnauthorized, "upstream rejected credentials")
	case resp.StatusCode == http.StatusTooManyRequests:
		return syncerr.New(syncerr.KindRateLimited, "upstream rate limit exceeded")
	case resp.StatusCode >= 500:
		return syncerr.New(syncerr.KindUpstream, fmt.Sprintf("upstream returned %d", resp.StatusCode))
	default:
		return syncerr.New(syncerr.KindInternal, fmt.Sprintf("unexpected upstream status %d", resp.StatusCode))
	}
}

func decodeJSON[T any](resp *http.Response) (T, error) {
	var out T
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, syncerr.Wrap(syncerr.KindSchemaMismatch, "failed to decode upstream response", err)
	}
	return out, nil
}

// CreateTask creates a task upstream. The synthetic id the caller used to
// track the write optimistically (Invariant I3) never appears in the
// request body — callers pass only domain fields.
func (c *Client) CreateTask(ctx context.Context, priority int, t domain.Task) (domain.Task, error) {
	return call(ctx, c, priority, func(ctx context.Context) (domain.Task, error) {
		resp, err := c.do(ctx, http.MethodPost, "/tasks", taskToWire(t))
		if err != nil {
			return domain.Task{}, err
		}
		wire, err := decodeJSON[wireTask](resp)
		if err != nil {
			return domain.Task{}, err
		}
		return wire.toDomain(), nil
	})
}

func (c *Client) GetTask(ctx context.Context, priority int, id string) (domain.Task, error) {
	return call(ctx, c, priority, func(ctx context.Context) (domain.Task, error) {
		resp, err := c.do(ctx, http.MethodGet, "/tasks/"+id, nil)
		if err != nil {
			return domain.Task{}, err
		}
		wire, err := decodeJSON[wireTask](resp)
		if err != nil {
			return domain.Task{}, err
		}
		return wire.toDomain(), nil
	})
}

func (c *Client) UpdateTask(ctx context.Context, priority int, id string, patch map[string]any) (domain.Task, error) {
	return call(ctx, c, priority, func(ctx context.Context) (domain.Task, error) {
		resp, err := c.do(ctx, http.MethodPatch, "/tasks/"+id, patchToWire(patch))
		if err != nil {
			return domain.Task{}, err
		}
		wire, err := decodeJSON[wireTask](resp)
		if err != nil {
			return domain.Task{}, err
		}
		return wire.toDomain(), nil
	})
}

// ArchiveTask soft-deletes: there is no hard delete upstream.
func (c *Client) ArchiveTask(ctx context.Context, priority int, id string) error {
	_, err := call(ctx, c, priority, func(ctx context.Context) (struct{}, error) {
		resp, err := c.do(ctx, http.MethodPatch, "/tasks/"+id, map[string]any{"archived": true})
		if err != nil {
			return struct{}{}, err
		}
		resp.Body.Close()
		return struct{}{}, nil
	})
	return err
}

// CreateTaskData, UpdateTaskData and ArchiveTaskData adapt the typed task
// CRUD above to the map[string]any shape the sync queue worker (C7) deals
// in, so the queue never needs to import domain or know a kind's concrete
// Go type. They run at PriorityDefault: queue-driven writes are
// asynchronous by construction and never block a user-facing request.
func (c *Client) CreateTaskData(ctx context.Context, data map[string]any) (map[string]any, error) {
	t, err := taskFromMap(data)
	if err != nil {
		return nil, err
	}
	out, err := c.CreateTask(ctx, ratelimit.PriorityDefault, t)
	if err != nil {
		return nil, err
	}
	return taskToMap(out)
}

func (c *Client) UpdateTaskData(ctx context.Context, id string, patch map[string]any) (map[string]any, error) {
	out, err := c.UpdateTask(ctx, ratelimit.PriorityDefault, id, patch)
	if err != nil {
		return nil, err
	}
	return taskToMap(out)
}

func (c *Client) ArchiveTaskData(ctx context.Context, id string) error {
	return c.ArchiveTask(ctx, ratelimit.PriorityDefault, id)
}

func taskFromMap(data map[string]any) (domain.Task, error) {
	var t domain.Task
	b, err := json.Marshal(data)
	if err != nil {
		return t, syncerr.Wrap(syncerr.KindInternal, "failed to marshal queued task data", err)
	}
	if err := json.Unmarshal(b, &t); err != nil {
		return t, syncerr.Wrap(syncerr.KindInternal, "failed to decode queued task data", err)
	}
	return t, nil
}

func taskToMap(t domain.Task) (map[string]any, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindInternal, "failed to marshal task result", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, syncerr.Wrap(syncerr.KindInternal, "failed to decode task result", err)
	}
	return out, nil
}
