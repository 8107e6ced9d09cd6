package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marmos91/fileshare/pkg/adapter"
	"github.com/marmos91/fileshare/pkg/storage"
)

func TestErrorTranslation(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"download missing", downloadError(storage.ErrNotFound), http.StatusNotFound, msgFileNotFound},
		{"download bad name", downloadError(fmt.Errorf("open: %w", storage.ErrInvalidName)), http.StatusNotFound, msgFileNotFound},
		{"download io", downloadError(errors.New("disk on fire")), http.StatusInternalServerError, msgUnableToOpen},
		{"static forbidden", staticError(storage.ErrForbidden), http.StatusForbidden, msgForbidden},
		{"static missing", staticError(storage.ErrNotFound), http.StatusNotFound, msgNotFound},
		{"static io", staticError(errors.New("eio")), http.StatusInternalServerError, msgInternalServerError},
		{"untranslated", errors.New("raw"), http.StatusInternalServerError, msgInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, adapter.StatusOf(tt.err))

			w := httptest.NewRecorder()
			writeError(w, httptest.NewRequest("GET", "/", nil), tt.err, "test failure")
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.body, w.Body.String())
		})
	}
}

func TestErrorTranslation_KeepsCause(t *testing.T) {
	err := downloadError(storage.ErrNotFound)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
