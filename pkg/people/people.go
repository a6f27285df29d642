// Package people lists, reads and downloads resumes for iCIMS person records.
//
// The person search is limited to a set of folders (employee and hiring manager statuses)
// and is paged with a cursor: each follow-up request asks for person.id greater than the
// last identifier of the previous page.
package people

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Sternrassler/icims-client/pkg/client"
	"github.com/Sternrassler/icims-client/pkg/logging"
	"github.com/Sternrassler/icims-client/pkg/pagination"
	"github.com/Sternrassler/icims-client/pkg/ratelimit"
	"github.com/rs/zerolog"
)

// PageSize is the record ceiling of the search/people endpoint.
const PageSize = pagination.DefaultPageSize

// DefaultFolders are the person folders included in searches:
//
//	C16818 Emp:New Hire
//	D32013 Emp:Current Employee
//	D32017 Emp:Contractor/Temp
//	D32018 Emp:Former Employee
//	D32011 HM:Active
//	D32012 HM:Inactive
var DefaultFolders = []string{"C16818", "D32013", "D32017", "D32018", "D32011", "D32012"}

// ErrIncompleteRecord is returned when a record lacks a required field.
var ErrIncompleteRecord = errors.New("incomplete person record")

// API is the subset of *client.Client used by Service.
type API interface {
	GetJSON(ctx context.Context, path string, query url.Values, out any) error
	PostJSON(ctx context.Context, path string, query url.Values, body, out any) error
	Get(ctx context.Context, path string, query url.Values) (*http.Response, error)
	BaseURL() string
}

var _ API = (*client.Client)(nil)

// Service wraps the person endpoints.
type Service struct {
	api      API
	folders  []string
	pageSize int
	pacer    *ratelimit.Pacer
	logger   zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithFolders replaces DefaultFolders.
func WithFolders(folders ...string) Option {
	return func(s *Service) {
		s.folders = append([]string(nil), folders...)
	}
}

// WithPageSize overrides the page ceiling used to detect the last page.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithPacer sets the delay between bulk downloads.
func WithPacer(p *ratelimit.Pacer) Option {
	return func(s *Service) {
		s.pacer = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService returns a Service using api.
func NewService(api API, opts ...Option) *Service {
	s := &Service{
		api:      api,
		folders:  DefaultFolders,
		pageSize: PageSize,
		pacer:    ratelimit.NewPacer(ratelimit.DefaultInterval),
		logger:   logging.NewLogger("people"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PeopleURL returns the prefix of every profile URL.
func (s *Service) PeopleURL() string {
	return s.api.BaseURL() + "/people"
}

// ResumePath returns the API path of a person's resume binary.
func ResumePath(personID string) string {
	return "people/" + url.PathEscape(personID) + "/fields/resume/binary"
}

// ResumeName returns the file stem a resume is stored under.
func ResumeName(personID string) string {
	return fmt.Sprintf("%s_resume", personID)
}
