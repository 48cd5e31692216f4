package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/catalogscan/internal/model"
)

// stubFetcher serves canned responses keyed by URL and records requests.
type stubFetcher struct {
	mu        sync.Mutex
	responses map[string][]stubResponse
	requests  []string
}

type stubResponse struct {
	body string
	err  error
}

func (s *stubFetcher) Fetch(_ context.Context, pageURL string) (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, pageURL)
	queue := s.responses[pageURL]
	if len(queue) == 0 {
		return &Page{URL: pageURL, Body: "<html></html>"}, nil
	}
	resp := queue[0]
	if len(queue) > 1 {
		s.responses[pageURL] = queue[1:]
	}
	if resp.err != nil {
		return nil, resp.err
	}
	return &Page{URL: pageURL, Body: resp.body}, nil
}

func cards(prefix string, n int) []string {
	out := make([]string, 0, n)
	for i := range n {
		out = append(out, calebasseCard(fmt.Sprintf("%s %d", prefix, i), "1,00 €"))
	}
	return out
}

func transient(u string) error {
	return &FetchError{Status: StatusTransient, URL: u, Err: ErrUnexpectedStatus}
}

func TestPaginator(t *testing.T) {
	t.Parallel()

	const base = "https://shop.example/en/thes"

	t.Run("empty second page ends pagination", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			if page <= 1 {
				_, _ = w.Write([]byte(calebassePage(true, cards("Tea", 20)...)))
				return
			}
			_, _ = w.Write([]byte(calebassePage(true)))
		}))
		defer server.Close()

		p := NewPaginator(NewFetcher(server.Client()), NewExtractor(nil), WithDelay(0))
		src := model.CategorySource{URL: server.URL + "/thes", Label: "Tea"}
		res, err := p.Paginate(context.Background(), src, model.TaxonomyType)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.State != StateDone {
			t.Errorf("expected done, got %s", res.State)
		}
		if len(res.Items) != 20 || res.Pages != 1 {
			t.Errorf("expected 20 items on 1 page, got %d on %d", len(res.Items), res.Pages)
		}
		first := res.Items[0]
		if first.Category != "Tea" || first.Taxonomy != model.TaxonomyType || first.Name != "Tea 0" {
			t.Errorf("unexpected first item: %+v", first)
		}
	})

	t.Run("page hint visits declared pages without next links", func(t *testing.T) {
		t.Parallel()

		f := &stubFetcher{responses: map[string][]stubResponse{
			base + "?page=1": {{body: calebassePage(false, cards("A", 3)...)}},
			base + "?page=2": {{body: calebassePage(false, cards("B", 2)...)}},
		}}
		p := NewPaginator(f, NewExtractor(nil), WithDelay(0))
		res, err := p.Paginate(context.Background(), model.CategorySource{URL: base, Label: "Tea", PageHint: 2}, model.TaxonomyType)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Items) != 5 || res.Pages != 2 {
			t.Errorf("expected 5 items on 2 pages, got %d on %d", len(res.Items), res.Pages)
		}
		if res.Items[3].Name != "B 0" {
			t.Errorf("items must be in page order, got %q", res.Items[3].Name)
		}
		if len(f.requests) != 2 {
			t.Errorf("expected 2 requests, got %v", f.requests)
		}
	})

	t.Run("single page listing has no page parameter", func(t *testing.T) {
		t.Parallel()

		f := &stubFetcher{responses: map[string][]stubResponse{
			base: {{body: calebassePage(true, cards("A", 1)...)}},
		}}
		p := NewPaginator(f, NewExtractor(nil), WithDelay(0))
		res, err := p.Paginate(context.Background(), model.CategorySource{URL: base, Label: "Tea", PageHint: 1}, model.TaxonomyType)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(f.requests) != 1 || f.requests[0] != base || len(res.Items) != 1 {
			t.Errorf("unexpected requests %v, items %d", f.requests, len(res.Items))
		}
	})

	t.Run("transient error skips page after one retry", func(t *testing.T) {
		t.Parallel()

		f := &stubFetcher{responses: map[string][]stubResponse{
			base + "?page=1": {{err: transient(base)}, {err: transient(base)}},
			base + "?page=2": {{body: calebassePage(false, cards("B", 2)...)}},
		}}
		p := NewPaginator(f, NewExtractor(nil), WithDelay(0))
		res, err := p.Paginate(context.Background(), model.CategorySource{URL: base, Label: "Tea", PageHint: 2}, model.TaxonomyType)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Skipped != 1 || len(res.Items) != 2 || res.State != StateDone {
			t.Errorf("unexpected result: skipped=%d items=%d state=%s", res.Skipped, len(res.Items), res.State)
		}
		if len(f.requests) != 3 {
			t.Errorf("expected 3 requests, got %d", len(f.requests))
		}
	})

	t.Run("retry recovers page", func(t *testing.T) {
		t.Parallel()

		f := &stubFetcher{responses: map[string][]stubResponse{
			base: {{err: transient(base)}, {body: calebassePage(false, cards("A", 4)...)}},
		}}
		p := NewPaginator(f, NewExtractor(nil), WithDelay(0))
		res, err := p.Paginate(context.Background(), model.CategorySource{URL: base, Label: "Tea"}, model.TaxonomyType)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Skipped != 0 || len(res.Items) != 4 {
			t.Errorf("unexpected result: skipped=%d items=%d", res.Skipped, len(res.Items))
		}
	})

	t.Run("without retry a transient error skips immediately", func(t *testing.T) {
		t.Parallel()

		f := &stubFetcher{responses: map[string][]stubResponse{
			base: {{err: transient(base)}, {body: calebassePage(false, cards("A", 4)...)}},
		}}
		p := NewPaginator(f, NewExtractor(nil), WithDelay(0), WithRetry(false), WithMaxPages(1))
		res, err := p.Paginate(context.Background(), model.CategorySource{URL: base, Label: "Tea"}, model.TaxonomyType)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Skipped != 1 || len(res.Items) != 0 {
			t.Errorf("unexpected result: skipped=%d items=%d", res.Skipped, len(res.Items))
		}
	})

	t.Run("malformed URL aborts category", func(t *testing.T) {
		t.Parallel()

		p := NewPaginator(&stubFetcher{}, NewExtractor(nil), WithDelay(0))
		res, err := p.Paginate(context.Background(), model.CategorySource{URL: "not a url", Label: "Tea"}, model.TaxonomyType)
		if !errors.Is(err, ErrMalformedURL) {
			t.Fatalf("expected ErrMalformedURL, got %v", err)
		}
		if res.State != StateAborted {
			t.Errorf("expected aborted, got %s", res.State)
		}
		stats := res.Stats(model.CategorySource{Label: "Tea"}, model.TaxonomyType)
		if stats.State != "aborted" || stats.Error == "" {
			t.Errorf("unexpected stats: %+v", stats)
		}
	})

	t.Run("max pages caps unknown listings", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(calebassePage(true, cards("X", 1)...)))
		}))
		defer server.Close()

		p := NewPaginator(NewFetcher(server.Client()), NewExtractor(nil), WithDelay(0), WithMaxPages(3))
		res, err := p.Paginate(context.Background(), model.CategorySource{URL: server.URL, Label: "X"}, model.TaxonomyUsage)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Pages != 3 {
			t.Errorf("expected 3 pages, got %d", res.Pages)
		}
	})

	t.Run("deadline before next request aborts category", func(t *testing.T) {
		t.Parallel()

		f := &stubFetcher{responses: map[string][]stubResponse{
			base: {{body: calebassePage(true, cards("A", 2)...)}},
		}}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		p := NewPaginator(f, NewExtractor(nil), WithDelay(time.Hour))
		res, err := p.Paginate(ctx, model.CategorySource{URL: base, Label: "Tea"}, model.TaxonomyType)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected context.DeadlineExceeded, got %v", err)
		}
		if res.State != StateAborted || res.Skipped != 0 || len(res.Items) != 2 {
			t.Errorf("unexpected result: state=%s skipped=%d items=%d", res.State, res.Skipped, len(res.Items))
		}
		if len(f.requests) != 1 {
			t.Errorf("expected 1 request, got %d", len(f.requests))
		}
	})

	t.Run("cancelled context stops pagination", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := NewPaginator(&stubFetcher{}, NewExtractor(nil), WithDelay(time.Hour))
		res, err := p.Paginate(ctx, model.CategorySource{URL: base, Label: "Tea"}, model.TaxonomyType)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if res == nil || res.State != StateAborted {
			t.Errorf("unexpected result: %+v", res)
		}
	})
}

func TestPageURL(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		base     string
		n, hint  int
		expected string
		wantErr  bool
	}{
		{"single page", "https://calebasse.com/en/bio", 1, 1, "https://calebasse.com/en/bio", false},
		{"multi page first", "https://calebasse.com/en/thes", 1, 2, "https://calebasse.com/en/thes?page=1", false},
		{"multi page second", "https://calebasse.com/en/thes", 2, 2, "https://calebasse.com/en/thes?page=2", false},
		{"unknown first", "https://calebasse.com/en/thes", 1, 0, "https://calebasse.com/en/thes", false},
		{"unknown third", "https://calebasse.com/en/thes", 3, 0, "https://calebasse.com/en/thes?page=3", false},
		{"keeps query", "https://calebasse.com/en/thes?sort=name", 2, 0, "https://calebasse.com/en/thes?page=2&sort=name", false},
		{"malformed", "calebasse", 1, 1, "", true},
		{"page zero", "https://calebasse.com/en/thes", 0, 2, "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := PageURL(tc.base, tc.n, tc.hint)
			if tc.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("got %q, expected %q", got, tc.expected)
			}
		})
	}
}
