package people

import (
	"context"
	"fmt"

	"github.com/Sternrassler/icims-client/pkg/client"
	"github.com/Sternrassler/icims-client/pkg/pagination"
)

// Filter is one search condition.
type Filter struct {
	Name     string   `json:"name"`
	Value    []string `json:"value"`
	Operator string   `json:"operator,omitempty"`
}

// SearchRequest is the body of POST /search/people. Operator joins Filters and Children
// ("&" or "|").
type SearchRequest struct {
	Filters  []Filter        `json:"filters"`
	Operator string          `json:"operator"`
	Children []SearchRequest `json:"children,omitempty"`
}

// PersonRef is one search hit.
type PersonRef struct {
	Self string    `json:"self"`
	ID   client.ID `json:"id"`
}

type searchResponse struct {
	SearchResults []PersonRef `json:"searchResults"`
}

// Filters builds the search body. Without a cursor it matches any configured folder; with
// a cursor it additionally requires person.id > cursor.
func (s *Service) Filters(cursor string) SearchRequest {
	folders := SearchRequest{
		Filters:  make([]Filter, 0, len(s.folders)),
		Operator: "|",
	}
	for _, f := range s.folders {
		folders.Filters = append(folders.Filters, Filter{Name: "person.folder", Value: []string{f}})
	}

	if cursor == "" {
		return folders
	}

	return SearchRequest{
		Filters:  []Filter{{Name: "person.id", Value: []string{cursor}, Operator: ">"}},
		Operator: "&",
		Children: []SearchRequest{folders},
	}
}

// ListPeople issues one search request and returns its page of results.
func (s *Service) ListPeople(ctx context.Context, cursor string) ([]PersonRef, error) {
	var resp searchResponse
	if err := s.api.PostJSON(ctx, "search/people", nil, s.Filters(cursor), &resp); err != nil {
		return nil, fmt.Errorf("search people: %w", err)
	}

	for i, p := range resp.SearchResults {
		if p.ID == "" || p.Self == "" {
			return nil, fmt.Errorf("search result %d: %w: id and self are required", i, ErrIncompleteRecord)
		}
	}

	s.logger.Debug().
		Str("cursor", cursor).
		Int("results", len(resp.SearchResults)).
		Msg("People page fetched")

	if resp.SearchResults == nil {
		return []PersonRef{}, nil
	}
	return resp.SearchResults, nil
}

// Paginator returns a cursor paginator over the people search.
func (s *Service) Paginator() *pagination.CursorPaginator[PersonRef] {
	logger := s.logger
	return pagination.NewCursorPaginator[PersonRef](
		pagination.PageFetcherFunc[PersonRef](s.ListPeople),
		func(p PersonRef) string { return p.ID.String() },
		pagination.Config{PageSize: s.pageSize, Logger: &logger},
	)
}

// ListAllPeople returns every person in the configured folders, in search order.
func (s *Service) ListAllPeople(ctx context.Context) ([]PersonRef, error) {
	all, err := s.Paginator().FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all people: %w", err)
	}
	return all, nil
}
