package people

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidProfileURL is returned for a profile URL outside the customer's people endpoint.
var ErrInvalidProfileURL = errors.New("invalid people url")

// Person is the subset of a profile the client uses.
type Person struct {
	ID        int64
	FolderID  string
	Status    string
	FirstName string
	LastName  string
}

type profileResponse struct {
	Folder *struct {
		ID    string `json:"id"`
		Value string `json:"value"`
	} `json:"folder"`
	FirstName *string `json:"firstname"`
	LastName  *string `json:"lastname"`
}

// ParsePersonID extracts the person id from a profile URL such as
// https://api.icims.com/customers/1234/people/42.
func (s *Service) ParsePersonID(profileURL string) (int64, error) {
	prefix := s.PeopleURL() + "/"
	if !strings.HasPrefix(profileURL, prefix) {
		return 0, fmt.Errorf("%w %q, expected prefix %s", ErrInvalidProfileURL, profileURL, prefix)
	}

	id, err := strconv.ParseInt(strings.TrimPrefix(profileURL, prefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", ErrInvalidProfileURL, profileURL, err)
	}
	return id, nil
}

// GetPerson reads the profile at profileURL (the "self" link of a search result).
func (s *Service) GetPerson(ctx context.Context, profileURL string) (*Person, error) {
	id, err := s.ParsePersonID(profileURL)
	if err != nil {
		return nil, err
	}

	var resp profileResponse
	if err := s.api.GetJSON(ctx, profileURL, nil, &resp); err != nil {
		return nil, fmt.Errorf("get person %d: %w", id, err)
	}

	switch {
	case resp.Folder == nil:
		return nil, fmt.Errorf("person %d: %w: folder", id, ErrIncompleteRecord)
	case resp.FirstName == nil:
		return nil, fmt.Errorf("person %d: %w: firstname", id, ErrIncompleteRecord)
	case resp.LastName == nil:
		return nil, fmt.Errorf("person %d: %w: lastname", id, ErrIncompleteRecord)
	}

	return &Person{
		ID:        id,
		FolderID:  resp.Folder.ID,
		Status:    resp.Folder.Value,
		FirstName: *resp.FirstName,
		LastName:  *resp.LastName,
	}, nil
}
