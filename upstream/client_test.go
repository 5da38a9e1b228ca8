package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/mattertraffic/syncgw/metrics"
	"github.com/mattertraffic/syncgw/ratelimit"
	"github.com/mattertraffic/syncgw/syncerr"
)

func testRecorder() *metrics.Recorder {
	return metrics.New(prometheus.NewRegistry())
}

func testLimiter() *ratelimit.Limiter {
	return ratelimit.New(ratelimit.Config{
		Burst:       10,
		Refill:      time.Millisecond,
		MinGap:      0,
		MaxInFlight: 4,
		QueueBound:  10,
	})
}

func TestCreateTaskRoundTripsThroughPropertyMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tasks" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body wireTask
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if body.Properties["Name"] != "write the report" {
			t.Errorf("expected mapped property Name, got %+v", body.Properties)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(wireTask{
			ID:         "t1",
			Properties: body.Properties,
		})
	}))
	defer srv.Close()

	limiter := testLimiter()
	defer limiter.Close()
	c := New(Config{BaseURL: srv.URL, Token: "tok"}, limiter, testRecorder(), zerolog.Nop())

	out, err := c.CreateTaskData(context.Background(), map[string]any{"title": "write the report"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["id"] != "t1" {
		t.Errorf("expected id t1 in result, got %+v", out)
	}
}

func TestClassifyStatusMapsUpstreamErrorsToTaxonomy(t *testing.T) {
	cases := []struct {
		status int
		path   string
		kind   syncerr.Kind
	}{
		{http.StatusNotFound, "/tasks/missing", syncerr.KindNotFound},
		{http.StatusUnauthorized, "/tasks/x", syncerr.KindUnauthorized},
		{http.StatusTooManyRequests, "/tasks/x", syncerr.KindRateLimited},
		{http.StatusInternalServerError, "/tasks/x", syncerr.KindUpstream},
	}
	for _, c := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(c.status)
		}))
		limiter := testLimiter()
		client := New(Config{BaseURL: srv.URL, Token: "tok"}, limiter, testRecorder(), zerolog.Nop())

		_, err := client.GetTask(context.Background(), ratelimit.PriorityDefault, "x")
		if err == nil {
			t.Errorf("expected an error for upstream status %d", c.status)
		} else if !syncerr.Is(err, c.kind) {
			t.Errorf("expected upstream status %d to map to %s, got %v", c.status, c.kind, err)
		}
		srv.Close()
		limiter.Close()
	}
}

func TestFetchAllPagesFollowsOpaqueCursorUntilExhausted(t *testing.T) {
	pages := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("cursor") == "" {
			json.NewEncoder(w).Encode(wirePage{
				Results:    []wireTask{{ID: "a"}},
				NextCursor: "page2",
				HasMore:    true,
			})
			return
		}
		json.NewEncoder(w).Encode(wirePage{
			Results: []wireTask{{ID: "b"}},
			HasMore: false,
		})
	}))
	defer srv.Close()

	limiter := testLimiter()
	defer limiter.Close()
	c := New(Config{BaseURL: srv.URL, Token: "tok"}, limiter, testRecorder(), zerolog.Nop())

	tasks, err := c.RangeQueryTasks(context.Background(), ratelimit.PriorityLow, time.Now(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks across both pages, got %d", len(tasks))
	}
	if pages != 2 {
		t.Errorf("expected exactly 2 page fetches, got %d", pages)
	}
}
