// Package pagination walks cursor-paginated search endpoints.
//
// iCIMS search endpoints return at most a fixed number of records per call and carry no
// "has more" flag or page count. The next page is requested by filtering on identifiers
// greater than the last one seen, and a page shorter than the ceiling signals the end.
// A page that lands exactly on the ceiling therefore costs one extra, possibly empty,
// request.
//
// Example usage:
//
//	p := pagination.NewCursorPaginator[people.PersonRef](fetcher, people.RefID,
//		pagination.Config{PageSize: 1000})
//	refs, err := p.FetchAll(ctx)
//
// or, streaming:
//
//	for ref, err := range p.All(ctx) {
//		...
//	}
package pagination
