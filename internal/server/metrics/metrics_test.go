package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.Registration("ok")
	m.Registration("ok")
	m.Login("verification_required")
	m.Verification("upload_failed")
	m.Upload("PAYSLIP", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Registrations.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Logins.WithLabelValues("verification_required")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Verifications.WithLabelValues("upload_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Uploads.WithLabelValues("PAYSLIP", "ok")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.Registration("ok")
		m.Login("ok")
		m.Verification("ok")
		m.Upload("PAYSLIP", "ok")
		m.ObserveHTTP("GET", "/healthz", 200, time.Millisecond)
	})
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodPost, "/auth/login", http.StatusOK, 20*time.Millisecond)
	m.Login("token")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `idgate_logins_total{result="token"} 1`)
	assert.Contains(t, string(body), "idgate_http_request_duration_seconds_bucket")
}
