package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_Counts(t *testing.T) {
	r := NewRecorder()

	r.ReviewSaved(true, nil)
	r.ReviewSaved(false, errors.New("boom"))
	r.Autosaved(nil)
	r.StatusChanged(errors.New("boom"))
	r.SessionOpened()
	r.SessionOpened()
	r.SessionClosed()

	assert.Equal(t, 1.0, testutil.ToFloat64(r.reviewSaves.WithLabelValues("create", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.reviewSaves.WithLabelValues("update", OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.autosaves.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.statusChanges.WithLabelValues(OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.openSessions))
}

func TestRecorder_NilIsSafe(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ReviewSaved(true, nil)
		r.Autosaved(nil)
		r.StatusChanged(nil)
		r.SessionOpened()
		r.SessionClosed()
	})
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.Autosaved(nil)

	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "shelf_autosaves_total"))
}
