package offers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Sternrassler/icims-client/pkg/client"
	"github.com/Sternrassler/icims-client/pkg/documents"
)

const documentPath = "offer/document"

// regenerateBody is required by the endpoint even though it carries nothing.
var regenerateBody = map[string]string{"ping": "pong"}

func (s *Service) letterQuery(offerID string) url.Values {
	return url.Values{
		"offerId": {offerID},
		"signed":  {strconv.FormatBool(s.signed)},
	}
}

// RegenerateOfferLetter asks iCIMS to render the offer letter again.
func (s *Service) RegenerateOfferLetter(ctx context.Context, offerID string) error {
	query := s.letterQuery(offerID)
	query.Set("force", "true")

	if err := s.api.PostJSON(ctx, documentPath, query, regenerateBody, nil); err != nil {
		return fmt.Errorf("regenerate offer letter %s: %w", offerID, err)
	}
	return nil
}

// FetchOfferLetter downloads the letter of offerID into w's directory as
// <personID>_offer_letter<ext>. When regen is set, an HTTP failure triggers a
// regeneration followed by another fetch, at most maxRegenerations times.
func (s *Service) FetchOfferLetter(ctx context.Context, offerID, personID string, w *documents.Writer, regen bool) (*documents.Result, error) {
	f := documents.NewFetcher(s.api, w, s.logger)
	name := LetterName(personID)

	for regenerations := 0; ; regenerations++ {
		res, err := f.Fetch(ctx, documentPath, s.letterQuery(offerID), name)
		if err == nil {
			return res, nil
		}

		var apiErr *client.APIError
		if !errors.As(err, &apiErr) || !regen || regenerations >= s.maxRegenerations {
			return nil, fmt.Errorf("fetch offer letter %s: %w", offerID, err)
		}

		s.logger.Warn().
			Err(err).
			Str("offer_id", offerID).
			Int("regeneration", regenerations+1).
			Msg("Offer letter unavailable, regenerating")

		if err := s.RegenerateOfferLetter(ctx, offerID); err != nil {
			return nil, err
		}
	}
}

// DownloadAcceptedOfferLetters fetches the letters of all accepted offers into dir, one
// request at a time. Letters already in dir are skipped.
func (s *Service) DownloadAcceptedOfferLetters(ctx context.Context, dir string, regen bool) (documents.Summary, error) {
	var summary documents.Summary

	w := documents.NewWriter(dir, s.logger)
	index := documents.NewIndex(dir, documents.DefaultIndexTTL)

	offers, err := s.ListOffers(ctx)
	if err != nil {
		return summary, err
	}
	summary.Total = len(offers)

	for i, o := range offers {
		if !o.Accepted() {
			continue
		}

		offerID, personID := o.OfferID.String(), o.PersonID.String()
		s.logger.Info().
			Str("offer_id", offerID).
			Str("person_id", personID).
			Msgf("Processing offer letter %d/%d", i+1, summary.Total)

		if personID == "" {
			return summary, fmt.Errorf("offer %s: %w: TOffer_TSubmittal_TPerson_FPersonID", offerID, ErrIncompleteRecord)
		}

		name := LetterName(personID)
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

		res, err := s.FetchOfferLetter(ctx, offerID, personID, w, regen)
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
		Msg("Offer letter download finished")

	return summary, nil
}
