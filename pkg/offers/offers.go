// Package offers searches iCIMS offers and downloads offer letters.
package offers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Sternrassler/icims-client/pkg/client"
	"github.com/Sternrassler/icims-client/pkg/logging"
	"github.com/Sternrassler/icims-client/pkg/ratelimit"
	"github.com/rs/zerolog"
)

const (
	// DefaultPageSize is requested from offer/search. The endpoint is read in one page;
	// a total above it surfaces as a CountMismatchError.
	DefaultPageSize = 3000

	// StatusAccepted is the offer status whose letters are downloaded in bulk.
	StatusAccepted = "Offer accepted"

	// DefaultMaxRegenerations bounds regenerate-and-retry per offer letter.
	DefaultMaxRegenerations = 1
)

// ErrIncompleteRecord is returned when an offer lacks a required field.
var ErrIncompleteRecord = errors.New("incomplete offer record")

// API is the subset of *client.Client used by Service.
type API interface {
	PostJSON(ctx context.Context, path string, query url.Values, body, out any) error
	Get(ctx context.Context, path string, query url.Values) (*http.Response, error)
}

var _ API = (*client.Client)(nil)

// Service wraps the offer endpoints.
type Service struct {
	api              API
	pageSize         int
	signed           bool
	maxRegenerations int
	pacer            *ratelimit.Pacer
	logger           zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPageSize overrides DefaultPageSize.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithSigned selects signed (default) or unsigned offer letters.
func WithSigned(signed bool) Option {
	return func(s *Service) {
		s.signed = signed
	}
}

// WithMaxRegenerations sets how many times a failing letter is regenerated before giving up.
func WithMaxRegenerations(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxRegenerations = n
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
		api:              api,
		pageSize:         DefaultPageSize,
		signed:           true,
		maxRegenerations: DefaultMaxRegenerations,
		pacer:            ratelimit.NewPacer(ratelimit.DefaultInterval),
		logger:           logging.NewLogger("offers"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LetterName returns the file stem an offer letter is stored under.
func LetterName(personID string) string {
	return fmt.Sprintf("%s_offer_letter", personID)
}
