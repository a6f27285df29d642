// Package documents turns iCIMS binary field responses (resumes, offer letters) into files.
//
// The API reports the document type only through the response Content-Type. Known types map
// to a file extension; application/json means the record has no document and produces an
// empty ".none" marker; application/octet-stream is a format iCIMS cannot describe and
// produces an empty ".bad" marker. Markers keep bulk downloads from asking again.
package documents

import (
	"fmt"
	"mime"
	"strings"
)

// Kind describes what was written for a response.
type Kind string

const (
	// KindDocument is a stored document.
	KindDocument Kind = "document"

	// KindNone is a zero-byte marker for a record without a document.
	KindNone Kind = "none"

	// KindBad is a zero-byte marker for an unsupported document format.
	KindBad Kind = "bad"
)

const (
	// ExtNone is the extension of KindNone markers.
	ExtNone = ".none"

	// ExtBad is the extension of KindBad markers.
	ExtBad = ".bad"

	// ContentTypeNoDocument is sent by iCIMS instead of a file when none exists.
	ContentTypeNoDocument = "application/json"

	// ContentTypeUnsupported is sent for stored files of unknown format.
	ContentTypeUnsupported = "application/octet-stream"
)

var extensions = map[string]string{
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",

	"application/pdf":    ".pdf",
	"application/msword": ".doc",
	"image/png":          ".png",
	"image/jpeg":         ".jpg",
	"text/rtf":           ".rtf",
	"text/plain":         ".txt",
}

// UnknownContentTypeError is returned for a Content-Type with no known extension.
type UnknownContentTypeError struct {
	ContentType string
}

func (e *UnknownContentTypeError) Error() string {
	return fmt.Sprintf("unknown document content type %q", e.ContentType)
}

// Classify maps a Content-Type header value to the kind of file to write and its extension.
// Media type parameters such as charset are ignored.
func Classify(contentType string) (Kind, string, error) {
	mediaType := normalize(contentType)

	switch mediaType {
	case ContentTypeNoDocument:
		return KindNone, ExtNone, nil
	case ContentTypeUnsupported:
		return KindBad, ExtBad, nil
	}

	if ext, ok := extensions[mediaType]; ok {
		return KindDocument, ext, nil
	}
	return "", "", &UnknownContentTypeError{ContentType: contentType}
}

// IsNoDocument reports whether contentType is the "no document" sentinel.
func IsNoDocument(contentType string) bool {
	return normalize(contentType) == ContentTypeNoDocument
}

func normalize(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}
