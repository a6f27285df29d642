package documents

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"
)

// DefaultIndexTTL is how long a directory listing is reused.
const DefaultIndexTTL = 2 * time.Minute

// Index answers whether a document was already stored, by stem (file name up to the
// first dot). It lists the directory at most once per TTL.
type Index struct {
	dir string
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	stems    map[string]struct{}
	loadedAt time.Time
}

// NewIndex returns an Index over dir. A non-positive ttl selects DefaultIndexTTL.
func NewIndex(dir string, ttl time.Duration) *Index {
	if ttl <= 0 {
		ttl = DefaultIndexTTL
	}
	return &Index{dir: dir, ttl: ttl, now: time.Now}
}

// Stem returns the part of a file name before the first dot.
func Stem(fileName string) string {
	stem, _, _ := strings.Cut(fileName, ".")
	return stem
}

// Contains reports whether a file with the given stem exists.
func (i *Index) Contains(stem string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.stems == nil || !i.now().Before(i.loadedAt.Add(i.ttl)) {
		if err := i.load(); err != nil {
			return false, err
		}
	}
	_, ok := i.stems[stem]
	return ok, nil
}

// Add records a stem written since the last listing.
func (i *Index) Add(stem string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.stems == nil {
		i.stems = make(map[string]struct{})
	}
	i.stems[stem] = struct{}{}
}

// Refresh forces the next Contains to list the directory again.
func (i *Index) Refresh() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.stems = nil
}

// Len returns the number of known stems.
func (i *Index) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.stems)
}

func (i *Index) load() error {
	entries, err := os.ReadDir(i.dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("list %s: %w", i.dir, err)
	}

	stems := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		stems[Stem(e.Name())] = struct{}{}
	}

	i.stems = stems
	i.loadedAt = i.now()
	return nil
}
