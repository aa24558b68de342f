package portalclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestListDecodesPage(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/grants" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":1,"project_id":"PX1","approved_amount":1000}],"totalCount":11,"page":2,"pageSize":10,"totalPages":2}`))
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	page, err := c.Grants(context.Background(), Query{Page: 2, PageSize: 10, Filters: map[string]string{"type": "INDUSTRY", "status": " "}})
	if err != nil {
		t.Fatalf("grants: %v", err)
	}
	if gotQuery != "page=2&pageSize=10&type=INDUSTRY" {
		t.Fatalf("query = %q", gotQuery)
	}
	if page.TotalCount != 11 || page.TotalPages != 2 || len(page.Data) != 1 || page.Data[0].ProjectID != "PX1" {
		t.Fatalf("page = %+v", page)
	}
}

func TestListReturnsFieldErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"validation failed","errors":{"year":"must be a four digit year"}}`))
	}))
	defer srv.Close()

	page, err := New(srv.URL).Events(context.Background(), Query{Filters: map[string]string{"year": "20x4"}})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest || apiErr.Fields["year"] == "" {
		t.Fatalf("err = %v", err)
	}
	if page.Data == nil {
		t.Fatal("data should be an empty slice")
	}
}

type result struct {
	val string
	err error
}

func collector() (func(string, error), func() []result) {
	var mu sync.Mutex
	var got []result
	return func(v string, err error) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, result{v, err})
		}, func() []result {
			mu.Lock()
			defer mu.Unlock()
			return append([]result(nil), got...)
		}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestTriggersInsideDebounceCollapse(t *testing.T) {
	var calls int32
	fetch := func(_ context.Context, q Query) (string, error) {
		atomic.AddInt32(&calls, 1)
		return q.Filters["query"], nil
	}
	deliver, results := collector()
	r := NewRefetcher(fetch, deliver, WithDebounce(30*time.Millisecond))
	defer r.Close()

	for _, term := range []string{"s", "so", "sol", "sola", "solar"} {
		r.Trigger(Query{Filters: map[string]string{"query": term}})
	}
	waitFor(t, func() bool { return len(results()) == 1 })
	time.Sleep(60 * time.Millisecond)

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("fetches = %d, want 1", n)
	}
	if got := results(); len(got) != 1 || got[0].val != "solar" {
		t.Fatalf("results = %+v", got)
	}
}

func TestNewerFetchCancelsAndWinsOverOlder(t *testing.T) {
	var cancelled int32
	fetch := func(ctx context.Context, q Query) (string, error) {
		if q.Page == 1 {
			// slow request: only returns once cancelled
			<-ctx.Done()
			atomic.AddInt32(&cancelled, 1)
			return "", ctx.Err()
		}
		return "page 2", nil
	}
	deliver, results := collector()
	r := NewRefetcher(fetch, deliver, WithDebounce(0))
	defer r.Close()

	go r.Refresh(Query{Page: 1})
	time.Sleep(20 * time.Millisecond)
	r.Refresh(Query{Page: 2})

	waitFor(t, func() bool { return atomic.LoadInt32(&cancelled) == 1 })
	time.Sleep(20 * time.Millisecond)
	got := results()
	if len(got) != 1 || got[0].val != "page 2" || got[0].err != nil {
		t.Fatalf("results = %+v", got)
	}
}

func TestStaleResultIsDropped(t *testing.T) {
	started := make(chan struct{})
	fetch := func(ctx context.Context, q Query) (string, error) {
		if q.Page == 1 {
			close(started)
			<-ctx.Done()
			// ignores cancellation and still returns data
			return "stale", nil
		}
		return "fresh", nil
	}
	deliver, results := collector()
	r := NewRefetcher(fetch, deliver, WithDebounce(0))
	defer r.Close()

	go r.Refresh(Query{Page: 1})
	<-started
	r.Refresh(Query{Page: 2})

	waitFor(t, func() bool { return len(results()) == 1 })
	time.Sleep(20 * time.Millisecond)
	if got := results(); len(got) != 1 || got[0].val != "fresh" {
		t.Fatalf("results = %+v", got)
	}
}

func TestCloseStopsPendingTrigger(t *testing.T) {
	var calls int32
	fetch := func(context.Context, Query) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", nil
	}
	deliver, results := collector()
	r := NewRefetcher(fetch, deliver, WithDebounce(20*time.Millisecond))
	r.Trigger(Query{})
	r.Close()
	r.Trigger(Query{})

	time.Sleep(60 * time.Millisecond)
	if atomic.LoadInt32(&calls) != 0 || len(results()) != 0 {
		t.Fatalf("calls = %d results = %v", atomic.LoadInt32(&calls), results())
	}
}
