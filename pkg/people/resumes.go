package people

import (
	"context"
	"fmt"

	"github.com/Sternrassler/icims-client/pkg/documents"
)

// FetchResume downloads one resume into w's directory as <id>_resume<ext>.
func (s *Service) FetchResume(ctx context.Context, personID string, w *documents.Writer) (*documents.Result, error) {
	f := documents.NewFetcher(s.api, w, s.logger, documents.MissingOnClientError())

	res, err := f.Fetch(ctx, ResumePath(personID), nil, ResumeName(personID))
	if err != nil {
		return nil, fmt.Errorf("fetch resume for person %s: %w", personID, err)
	}
	return res, nil
}

// DownloadAllResumes fetches the resume of every listed person into dir, one request at
// a time. People whose resume (or marker) is already in dir are skipped.
func (s *Service) DownloadAllResumes(ctx context.Context, dir string) (documents.Summary, error) {
	var summary documents.Summary

	w := documents.NewWriter(dir, s.logger)
	index := documents.NewIndex(dir, documents.DefaultIndexTTL)

	people, err := s.ListAllPeople(ctx)
	if err != nil {
		return summary, err
	}
	summary.Total = len(people)

	for i, p := range people {
		id := p.ID.String()
		s.logger.Info().
			Str("person_id", id).
			Msgf("Processing resume %d/%d", i+1, summary.Total)

		name := ResumeName(id)
		exists, err := index.Contains(name)
		if err != nil {
			return summary, err
		}
		if exists {
			summary.Skipped++
			continue
		}

		if err := s.pacer.Wait(ctx); err != nil {
			return summary, err
		}

		res, err := s.FetchResume(ctx, id, w)
		if err != nil {
			return summary, err
		}
		summary.Record(res)
		index.Add(name)
	}

	s.logger.Info().
		Int("total", summary.Total).
		Int("skipped", summary.Skipped).
		Int("documents", summary.Documents).
		Int("missing", summary.Missing).
		Int("unsupported", summary.Unsupported).
		Msg("Resume download finished")

	return summary, nil
}
