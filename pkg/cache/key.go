package cache

import (
	"fmt"
	"sort"
	"strings"
)

// KeyPrefix is prepended to every key written by this module.
const KeyPrefix = "icims"

// Key identifies a cached value.
type Key struct {
	// Namespace groups related keys (e.g. "token").
	Namespace string

	// ID is the primary identifier inside the namespace (e.g. the OAuth client id).
	ID string

	// Params further qualify the key (e.g. {"audience": "https://api.icims.com/v1/"}).
	Params map[string]string
}

// String generates a deterministic key string.
// Format: icims:namespace:id:param1=val1:param2=val2
//
// Example:
//
//	icims:token:abc123:audience=https://api.icims.com/v1/
func (k Key) String() string {
	parts := []string{KeyPrefix}

	if ns := strings.Trim(k.Namespace, ":"); ns != "" {
		parts = append(parts, ns)
	}
	if k.ID != "" {
		parts = append(parts, k.ID)
	}

	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name := range k.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.Params[name]))
		}
	}

	return strings.Join(parts, ":")
}
