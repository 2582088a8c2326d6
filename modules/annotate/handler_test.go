package annotate_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tashkeelhq/tashkeel/modules/annotate"
)

type fakeAnnotator struct {
	result *annotate.Result
	err    error
}

func (f *fakeAnnotator) Annotate(context.Context, string) (*annotate.Result, error) {
	return f.result, f.err
}

func serveAnnotate(t *testing.T, annotator annotate.Annotator, body string) *httptest.ResponseRecorder {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	req := httptest.NewRequest(http.MethodPost, "/annotate", strings.NewReader(body))
	rr := httptest.NewRecorder()
	annotate.Handler(annotator, log).ServeHTTP(rr, req)
	return rr
}

func TestHandler(t *testing.T) {
	t.Parallel()

	t.Run("returns the annotation", func(t *testing.T) {
		t.Parallel()
		annotator := &fakeAnnotator{result: &annotate.Result{AnnotatedText: "كَتَبَ"}}

		rr := serveAnnotate(t, annotator, `{"text":"كتب"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "annotated_text")
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		t.Parallel()
		rr := serveAnnotate(t, &fakeAnnotator{}, `{not json`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("rejects empty text", func(t *testing.T) {
		t.Parallel()
		rr := serveAnnotate(t, &fakeAnnotator{}, `{"text":""}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("rejects oversized text", func(t *testing.T) {
		t.Parallel()
		rr := serveAnnotate(t, &fakeAnnotator{}, `{"text":"`+strings.Repeat("ا", 10001)+`"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("service failure maps to 502", func(t *testing.T) {
		t.Parallel()
		annotator := &fakeAnnotator{err: errors.New("upstream timeout")}
		rr := serveAnnotate(t, annotator, `{"text":"كتب"}`)
		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})
}
