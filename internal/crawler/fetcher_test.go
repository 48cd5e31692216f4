package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetcher(t *testing.T) {
	t.Parallel()

	t.Run("sends identity headers and returns body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("User-Agent") != "catalogscan-test" {
				t.Errorf("unexpected User-Agent: %q", r.Header.Get("User-Agent"))
			}
			if r.Header.Get("Cookie") != "session=abc" {
				t.Errorf("unexpected Cookie: %q", r.Header.Get("Cookie"))
			}
			if r.Header.Get("X-Test") != "1" {
				t.Errorf("custom header missing")
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html>ok</html>"))
		}))
		defer server.Close()

		f := NewFetcher(server.Client(),
			WithUserAgent("catalogscan-test"),
			WithCookie("session=abc"),
			WithHeaders(map[string]string{"X-Test": "1"}),
		)
		page, err := f.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Body != "<html>ok</html>" || page.StatusCode != http.StatusOK {
			t.Errorf("unexpected page: %+v", page)
		}
	})

	t.Run("decodes legacy charsets", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
			_, _ = w.Write([]byte("<p>Th\xe9</p>"))
		}))
		defer server.Close()

		page, err := NewFetcher(server.Client()).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Body != "<p>Thé</p>" {
			t.Errorf("unexpected body: %q", page.Body)
		}
	})

	t.Run("non-2xx is transient", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := NewFetcher(server.Client()).Fetch(context.Background(), server.URL)
		if StatusOf(err) != StatusTransient {
			t.Fatalf("expected transient, got %v", err)
		}
		if !errors.Is(err, ErrUnexpectedStatus) || !errors.Is(err, ErrTransientFetch) {
			t.Errorf("expected unexpected-status error, got %v", err)
		}
	})

	t.Run("timeout is transient", func(t *testing.T) {
		t.Parallel()

		done := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-done:
			}
		}))
		defer server.Close()
		defer close(done)

		f := NewFetcher(server.Client(), WithTimeout(50*time.Millisecond))
		_, err := f.Fetch(context.Background(), server.URL)
		if StatusOf(err) != StatusTransient {
			t.Errorf("expected transient, got %v", err)
		}
	})

	t.Run("malformed URL is fatal", func(t *testing.T) {
		t.Parallel()

		for _, u := range []string{"://bad", "ftp://example.com/x", "/relative", "http://"} {
			_, err := NewFetcher(nil).Fetch(context.Background(), u)
			if StatusOf(err) != StatusFatal {
				t.Errorf("%q: expected fatal, got %v", u, err)
			}
			if !errors.Is(err, ErrMalformedURL) {
				t.Errorf("%q: expected ErrMalformedURL, got %v", u, err)
			}
		}
	})
}

func TestFetchStatus(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		status FetchStatus
		str    string
		err    error
	}{
		{StatusOK, "OK", nil},
		{StatusTransient, "transient error", ErrTransientFetch},
		{StatusFatal, "fatal error", ErrMalformedURL},
	}
	for _, tc := range testCases {
		if tc.status.String() != tc.str {
			t.Errorf("String() = %q, expected %q", tc.status.String(), tc.str)
		}
		if !errors.Is(tc.status.Error(), tc.err) {
			t.Errorf("Error() = %v, expected %v", tc.status.Error(), tc.err)
		}
	}
	if FetchStatus(99).String() != "unknown" {
		t.Error("unknown status should render as unknown")
	}
	if StatusOf(errors.New("boom")) != StatusTransient {
		t.Error("plain errors should be transient")
	}
}
