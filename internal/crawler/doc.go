// Package crawler fetches paginated catalog listings and extracts raw items.
//
// # Components
//
//   - Fetcher: issues one GET per page with identity headers and a timeout,
//     and classifies failures as transient or fatal
//   - Rule: pluggable extraction rule describing one source template
//   - Extractor: applies a Rule to a page body and reports whether more pages exist
//   - Paginator: drives Fetcher and Extractor across the pages of one category
//
// # Pagination
//
// A category is paginated until a page yields zero items, the declared page
// count is reached, or (when the page count is unknown) the page has no
// next-page link. A fatal fetch error aborts the category; transient errors
// skip the page. Requests are paced by a rate limiter shared by every
// category paginated with the same Paginator.
//
// # Usage
//
//	fetcher := crawler.NewFetcher(http.DefaultClient, crawler.WithTimeout(10*time.Second))
//	extractor := crawler.NewExtractor(crawler.CalebasseRule())
//	paginator := crawler.NewPaginator(fetcher, extractor, crawler.WithDelay(time.Second))
//	result, err := paginator.Paginate(ctx, source, model.TaxonomyType)
package crawler
