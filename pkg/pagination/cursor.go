package pagination

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultPageSize is the record ceiling of the iCIMS people search endpoint.
const DefaultPageSize = 1000

// ErrCursorStalled is returned when a full page does not move the cursor forward,
// which would otherwise request the same page forever.
var ErrCursorStalled = errors.New("pagination cursor did not advance")

// PageFetcher fetches the page of records following cursor. An empty cursor requests
// the first page.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, cursor string) ([]T, error)
}

// PageFetcherFunc adapts a function to the PageFetcher interface.
type PageFetcherFunc[T any] func(ctx context.Context, cursor string) ([]T, error)

// FetchPage calls f(ctx, cursor).
func (f PageFetcherFunc[T]) FetchPage(ctx context.Context, cursor string) ([]T, error) {
	return f(ctx, cursor)
}

// Config holds paginator configuration.
type Config struct {
	// PageSize is the server's page-size ceiling. A page of exactly this many records
	// triggers another request.
	PageSize int

	// Logger defaults to the global logger tagged component=pagination.
	Logger *zerolog.Logger
}

// DefaultConfig returns the configuration for the people search endpoint.
func DefaultConfig() Config {
	return Config{PageSize: DefaultPageSize}
}

// CursorPaginator advances a cursor (last seen identifier) across pages.
type CursorPaginator[T any] struct {
	fetcher  PageFetcher[T]
	idOf     func(T) string
	pageSize int
	logger   zerolog.Logger
}

// NewCursorPaginator creates a paginator. idOf extracts the cursor value from a record.
func NewCursorPaginator[T any](fetcher PageFetcher[T], idOf func(T) string, cfg Config) *CursorPaginator[T] {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}

	logger := log.With().Str("component", "pagination").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &CursorPaginator[T]{
		fetcher:  fetcher,
		idOf:     idOf,
		pageSize: cfg.PageSize,
		logger:   logger,
	}
}

// PageSize returns the configured ceiling.
func (p *CursorPaginator[T]) PageSize() int {
	return p.pageSize
}

// Pages yields each page in order, starting from an empty cursor. Iteration stops after
// the first page shorter than the ceiling, or after an error.
func (p *CursorPaginator[T]) Pages(ctx context.Context) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		cursor := ""
		for pageNum := 1; ; pageNum++ {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			page, err := p.fetcher.FetchPage(ctx, cursor)
			if err != nil {
				yield(nil, fmt.Errorf("fetch page %d (cursor %q): %w", pageNum, cursor, err))
				return
			}

			p.logger.Debug().
				Int("page", pageNum).
				Str("cursor", cursor).
				Int("records", len(page)).
				Msg("Fetched page")

			if !yield(page, nil) {
				return
			}

			if len(page) < p.pageSize {
				return
			}

			next := p.idOf(page[len(page)-1])
			if next == "" || next == cursor {
				yield(nil, fmt.Errorf("page %d: %w (cursor %q)", pageNum, ErrCursorStalled, cursor))
				return
			}
			cursor = next
		}
	}
}

// All yields every record across all pages, in order.
func (p *CursorPaginator[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for page, err := range p.Pages(ctx) {
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, item := range page {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// FetchAll returns the in-order union of all pages. On error it returns the records
// collected so far along with the error.
func (p *CursorPaginator[T]) FetchAll(ctx context.Context) ([]T, error) {
	var (
		result []T
		pages  int
	)

	for page, err := range p.Pages(ctx) {
		if err != nil {
			p.logger.Warn().
				Err(err).
				Int("pages", pages).
				Int("records", len(result)).
				Msg("Pagination stopped - returning partial results")
			return result, err
		}
		pages++
		result = append(result, page...)
	}

	p.logger.Info().
		Int("pages", pages).
		Int("records", len(result)).
		Msg("Pagination complete")

	if result == nil {
		result = []T{}
	}
	return result, nil
}
