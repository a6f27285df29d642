package client

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is an iCIMS record identifier. The API returns identifiers as JSON strings on some
// endpoints and as numbers on others; both decode to the same value.
type ID string

// UnmarshalJSON accepts a string, a number, or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("icims id: %w", err)
		}
		*id = ID(n.String())
		return nil
	}
}

// String returns the identifier.
func (id ID) String() string {
	return string(id)
}
