package documents

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var documentsWrittenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "icims_documents_written_total",
	Help: "Files written by kind (document, none, bad)",
}, []string{"kind"})

// Result describes a written file.
type Result struct {
	Path  string
	Kind  Kind
	Bytes int64
}

// Writer stores documents in one directory, creating it on first use.
type Writer struct {
	dir    string
	logger zerolog.Logger
}

// NewWriter returns a Writer for dir.
func NewWriter(dir string, logger zerolog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Save classifies contentType and writes name plus the matching extension. Marker kinds
// are written empty and body is not read.
func (w *Writer) Save(name, contentType string, body io.Reader) (*Result, error) {
	kind, ext, err := Classify(contentType)
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", name, err)
	}
	if kind != KindDocument {
		body = nil
	}
	return w.write(name+ext, kind, body)
}

// SaveMarker writes an empty marker file of the given kind.
func (w *Writer) SaveMarker(name string, kind Kind) (*Result, error) {
	switch kind {
	case KindNone:
		return w.write(name+ExtNone, kind, nil)
	case KindBad:
		return w.write(name+ExtBad, kind, nil)
	default:
		return nil, fmt.Errorf("save %s: %q is not a marker kind", name, kind)
	}
}

func (w *Writer) write(fileName string, kind Kind, body io.Reader) (*Result, error) {
	if strings.ContainsAny(fileName, `/\`) {
		return nil, fmt.Errorf("invalid document file name %q", fileName)
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create document directory: %w", err)
	}

	path := filepath.Join(w.dir, fileName)
	tmp, err := os.CreateTemp(w.dir, "."+fileName+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", fileName, err)
	}
	defer os.Remove(tmp.Name())

	var n int64
	if body != nil {
		if n, err = io.Copy(tmp, body); err != nil {
			tmp.Close()
			return nil, fmt.Errorf("write %s: %w", fileName, err)
		}
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("write %s: %w", fileName, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, fmt.Errorf("write %s: %w", fileName, err)
	}

	documentsWrittenTotal.WithLabelValues(string(kind)).Inc()
	w.logger.Debug().
		Str("path", path).
		Str("kind", string(kind)).
		Int64("bytes", n).
		Msg("Document written")

	return &Result{Path: path, Kind: kind, Bytes: n}, nil
}
