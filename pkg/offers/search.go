package offers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Sternrassler/icims-client/pkg/client"
)

// Offer is an offer/search result row. Only the columns the client acts on are typed;
// every column, including those, is kept as decoded JSON in Columns so a type change in
// any other column does not fail the search.
type Offer struct {
	OfferID  client.ID `json:"TOffer_FOfferID"`
	PersonID client.ID `json:"TOffer_TSubmittal_TPerson_FPersonID"`
	Status   string    `json:"TOffer_TOfferStatus_FStatus"`

	Columns map[string]any `json:"-"`
}

// UnmarshalJSON decodes the typed columns and keeps the full row in Columns. Numbers in
// Columns are json.Number.
func (o *Offer) UnmarshalJSON(data []byte) error {
	type typed Offer
	var t typed
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var columns map[string]any
	if err := dec.Decode(&columns); err != nil {
		return err
	}

	*o = Offer(t)
	o.Columns = columns
	return nil
}

// Column renders a column as text: strings as-is, numbers and booleans formatted, other
// JSON values re-encoded. Absent and null columns are "".
func (o Offer) Column(name string) string {
	switch v := o.Columns[name].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Accepted reports whether the offer was accepted.
func (o Offer) Accepted() bool {
	return o.Status == StatusAccepted
}

// CountMismatchError is returned when offer/search reports a total different from the
// number of rows returned.
type CountMismatchError struct {
	Expected int
	Found    int
	PageSize int
}

func (e *CountMismatchError) Error() string {
	msg := fmt.Sprintf("offer count mismatch: expected %d, found %d", e.Expected, e.Found)
	if e.Expected > e.Found {
		msg += fmt.Sprintf(" (page size %d, consider increasing it)", e.PageSize)
	}
	return msg
}

type searchRequest struct {
	Page     int        `json:"page"`
	PageSize int        `json:"pageSize"`
	Sort     searchSort `json:"sort"`
}

type searchSort struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

type searchResponse struct {
	Results *struct {
		Results []json.RawMessage `json:"results"`
		Total   int               `json:"total"`
	} `json:"results"`
}

// ListOffers returns every offer ordered by offer id. A server total that differs from
// the number of rows returned is a *CountMismatchError.
func (s *Service) ListOffers(ctx context.Context) ([]Offer, error) {
	body := searchRequest{
		Page:     0,
		PageSize: s.pageSize,
		Sort:     searchSort{Field: "TOffer_FOfferID", Direction: "asc"},
	}

	var resp searchResponse
	if err := s.api.PostJSON(ctx, "offer/search", nil, body, &resp); err != nil {
		return nil, fmt.Errorf("search offers: %w", err)
	}

	if resp.Results == nil {
		return []Offer{}, nil
	}

	offers := make([]Offer, 0, len(resp.Results.Results))
	for i, raw := range resp.Results.Results {
		var o Offer
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, fmt.Errorf("decode offer %d: %w", i, err)
		}
		if o.OfferID == "" {
			return nil, fmt.Errorf("offer %d: %w: TOffer_FOfferID", i, ErrIncompleteRecord)
		}
		offers = append(offers, o)
	}

	if resp.Results.Total != len(offers) {
		return nil, &CountMismatchError{
			Expected: resp.Results.Total,
			Found:    len(offers),
			PageSize: s.pageSize,
		}
	}

	s.logger.Debug().Int("offers", len(offers)).Msg("Offers listed")
	return offers, nil
}
