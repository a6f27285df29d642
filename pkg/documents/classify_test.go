package documents

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		contentType string
		kind        Kind
		ext         string
	}{
		{"application/pdf", KindDocument, ".pdf"},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", KindDocument, ".docx"},
		{"application/msword", KindDocument, ".doc"},
		{"image/png", KindDocument, ".png"},
		{"image/jpeg", KindDocument, ".jpg"},
		{"text/rtf", KindDocument, ".rtf"},
		{"text/plain", KindDocument, ".txt"},
		{"text/plain; charset=UTF-8", KindDocument, ".txt"},
		{"Application/PDF", KindDocument, ".pdf"},
		{"application/json", KindNone, ".none"},
		{"application/json;charset=utf-8", KindNone, ".none"},
		{"application/octet-stream", KindBad, ".bad"},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			kind, ext, err := Classify(tt.contentType)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.ext, ext)
		})
	}
}

func TestClassify_Unknown(t *testing.T) {
	for _, ct := range []string{"text/html", "", "application/zip"} {
		_, _, err := Classify(ct)

		var unknown *UnknownContentTypeError
		require.True(t, errors.As(err, &unknown), "content type %q", ct)
		assert.Equal(t, ct, unknown.ContentType)
	}
}

func TestIsNoDocument(t *testing.T) {
	assert.True(t, IsNoDocument("application/json"))
	assert.True(t, IsNoDocument("application/json; charset=utf-8"))
	assert.False(t, IsNoDocument("application/pdf"))
	assert.False(t, IsNoDocument(""))
}
