package documents

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Sternrassler/icims-client/pkg/client"
	"github.com/rs/zerolog"
)

// Getter issues authenticated GET requests. *client.Client implements it.
type Getter interface {
	Get(ctx context.Context, path string, query url.Values) (*http.Response, error)
}

// Fetcher downloads a binary field and stores it through a Writer.
type Fetcher struct {
	api    Getter
	writer *Writer
	logger zerolog.Logger

	missingOnError bool
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// MissingOnClientError stores a ".none" marker when the API answers with a 4xx error whose
// Content-Type is the "no document" sentinel. Resume binaries report absent files this way.
func MissingOnClientError() FetcherOption {
	return func(f *Fetcher) {
		f.missingOnError = true
	}
}

// NewFetcher returns a Fetcher writing into writer's directory.
func NewFetcher(api Getter, writer *Writer, logger zerolog.Logger, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{api: api, writer: writer, logger: logger}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Writer returns the underlying writer.
func (f *Fetcher) Writer() *Writer {
	return f.writer
}

// Fetch GETs path and saves the body as name plus the extension its Content-Type maps
// to. HTTP failures are returned as *client.APIError unless MissingOnClientError applies.
func (f *Fetcher) Fetch(ctx context.Context, path string, query url.Values, name string) (*Result, error) {
	resp, err := f.api.Get(ctx, path, query)
	if err != nil {
		var apiErr *client.APIError
		if f.missingOnError && errors.As(err, &apiErr) && apiErr.ErrorClass == client.ErrorClassClient &&
			apiErr.StatusCode != http.StatusUnauthorized && IsNoDocument(apiErr.Header.Get("Content-Type")) {
			f.logger.Debug().
				Str("name", name).
				Int("status", apiErr.StatusCode).
				Msg("No document stored upstream")
			return f.writer.SaveMarker(name, KindNone)
		}
		return nil, err
	}
	defer resp.Body.Close()

	result, err := f.writer.Save(name, resp.Header.Get("Content-Type"), resp.Body)
	if err != nil {
		var unknown *UnknownContentTypeError
		if errors.As(err, &unknown) {
			f.logger.Error().
				Str("name", name).
				Str("content_type", unknown.ContentType).
				Msg("Unknown document content type")
		}
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	return result, nil
}
