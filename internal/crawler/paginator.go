package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/catalogscan/internal/model"
)

// State is the state of a category pagination.
type State int

const (
	// StateFetching indicates pages are still being fetched.
	StateFetching State = iota

	// StateDone indicates pagination ended normally.
	StateDone

	// StateAborted indicates pagination stopped on a fatal fetch error.
	StateAborted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Result is the outcome of paginating one category.
type Result struct {
	// Items holds the collected items in page order, then in-page order,
	// each stamped with the category label and taxonomy.
	Items []model.RawItem

	// Pages is the number of pages that yielded items.
	Pages int

	// Skipped is the number of pages skipped after transient errors.
	Skipped int

	// State is StateDone or StateAborted once Paginate returns.
	State State

	// Err is the fatal error that aborted pagination, if any.
	Err error
}

// Stats converts the result into run statistics.
func (r *Result) Stats(src model.CategorySource, tx model.Taxonomy) model.CategoryStats {
	s := model.CategoryStats{
		Taxonomy:     tx,
		Label:        src.Label,
		URL:          src.URL,
		Pages:        r.Pages,
		Items:        len(r.Items),
		SkippedPages: r.Skipped,
		State:        r.State.String(),
	}
	if r.Err != nil {
		s.Error = r.Err.Error()
	}
	return s
}

// Paginator drives a PageFetcher and an Extractor across the pages of a category.
// It is safe for concurrent use; concurrent calls share the pacing limiter.
type Paginator struct {
	fetcher   PageFetcher
	extractor *Extractor

	// limiter paces every request, including retries.
	limiter *rate.Limiter

	// maxPages caps pagination when the page count is unknown.
	maxPages int

	// retry enables one retry of a page after a transient error.
	retry bool

	// maxSkips stops a category whose page count is unknown after this many
	// consecutive skipped pages.
	maxSkips int
}

// PaginatorOption configures a Paginator.
type PaginatorOption func(*Paginator)

// WithDelay sets the minimum interval between two requests.
// Zero disables pacing.
func WithDelay(d time.Duration) PaginatorOption {
	return func(p *Paginator) {
		if d <= 0 {
			p.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		p.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithMaxPages sets the page cap applied when a category has no page hint.
func WithMaxPages(n int) PaginatorOption {
	return func(p *Paginator) {
		if n > 0 {
			p.maxPages = n
		}
	}
}

// WithRetry enables or disables one retry per page after a transient error.
func WithRetry(retry bool) PaginatorOption {
	return func(p *Paginator) {
		p.retry = retry
	}
}

// NewPaginator creates a Paginator. Defaults: one request per second,
// 50 pages cap, one retry per page.
func NewPaginator(fetcher PageFetcher, extractor *Extractor, opts ...PaginatorOption) *Paginator {
	p := &Paginator{
		fetcher:   fetcher,
		extractor: extractor,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
		maxPages:  50,
		retry:     true,
		maxSkips:  3,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Paginate collects the items of one category.
//
// Pagination starts at page 1 and moves on while pages yield items. With a
// page hint, exactly the declared pages are visited (stopping early on an
// empty page). Without one, the next page is fetched only while the current
// page has a next-page affordance, up to the page cap.
//
// The returned Result is never nil. The error is the fatal fetch error when
// State is StateAborted, or the context error when ctx is done.
func (p *Paginator) Paginate(ctx context.Context, src model.CategorySource, tx model.Taxonomy) (*Result, error) {
	res := &Result{State: StateFetching}
	limit := p.maxPages
	if src.PageHint > 0 {
		limit = src.PageHint
	}

	skips := 0
	for n := 1; n <= limit; n++ {
		pageURL, err := PageURL(src.URL, n, src.PageHint)
		if err != nil {
			return p.abort(res, &FetchError{Status: StatusFatal, URL: src.URL, Err: err})
		}

		page, err := p.fetch(ctx, pageURL)
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.State = StateAborted
			res.Err = ctxErr
			return res, ctxErr
		}
		var pe *pacingError
		if errors.As(err, &pe) {
			return p.abort(res, err)
		}
		if err != nil {
			if StatusOf(err) == StatusFatal {
				return p.abort(res, err)
			}
			res.Skipped++
			skips++
			if src.PageHint == 0 && skips >= p.maxSkips {
				break
			}
			continue
		}
		skips = 0

		ext, err := p.extractor.Extract(page.Body)
		if err != nil || len(ext.Entries) == 0 {
			break
		}
		res.Pages++
		for _, e := range ext.Entries {
			res.Items = append(res.Items, model.RawItem{
				Name:      e.Name,
				PriceText: e.PriceText,
				Category:  src.Label,
				Taxonomy:  tx,
			})
		}

		if src.PageHint == 0 && !ext.HasMore {
			break
		}
	}

	res.State = StateDone
	return res, nil
}

// fetch waits for the limiter and fetches pageURL, retrying once after a
// transient error when enabled.
func (p *Paginator) fetch(ctx context.Context, pageURL string) (*Page, error) {
	attempts := 1
	if p.retry {
		attempts = 2
	}
	var err error
	for range attempts {
		if werr := p.limiter.Wait(ctx); werr != nil {
			return nil, &pacingError{err: werr}
		}
		var page *Page
		page, err = p.fetcher.Fetch(ctx, pageURL)
		if err == nil {
			return page, nil
		}
		if StatusOf(err) == StatusFatal {
			return nil, err
		}
	}
	return nil, err
}

// pacingError reports that the next request cannot start before the context
// deadline. It matches context.DeadlineExceeded.
type pacingError struct {
	err error
}

func (e *pacingError) Error() string {
	return "pacing: " + e.err.Error()
}

func (e *pacingError) Unwrap() []error {
	return []error{context.DeadlineExceeded, e.err}
}

func (p *Paginator) abort(res *Result, err error) (*Result, error) {
	res.State = StateAborted
	res.Err = err
	return res, err
}

// PageURL returns the URL of page n of a listing. The page query parameter is
// added only when the listing is known to span several pages (hint > 1) or
// when its size is unknown (hint 0) and n > 1.
func PageURL(base string, n, hint int) (string, error) {
	if err := validateURL(base); err != nil {
		return "", err
	}
	if n < 1 {
		return "", fmt.Errorf("%w: page %d", ErrMalformedURL, n)
	}
	if hint == 1 || (hint == 0 && n == 1) {
		return base, nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", errors.Join(ErrMalformedURL, err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(n))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
