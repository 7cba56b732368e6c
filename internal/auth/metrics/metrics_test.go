package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tollgate/internal/auth/metrics"
	"github.com/aussiebroadwan/tollgate/pkg/security"
)

func TestObserveStage(t *testing.T) {
	m := metrics.New()

	m.ObserveStage(security.StageLogin, security.ResultSuccess, 10*time.Millisecond)
	m.ObserveStage(security.StageLogin, security.ResultSuccess, 20*time.Millisecond)
	m.ObserveStage(security.StageLogin, security.KindInvalidPassword.String(), time.Millisecond)
	m.ObserveStage(security.StageAuthorization, security.ResultBypassed, 0)

	expected := `
# HELP tollgate_security_outcomes_total Requests handled by each security stage, by result.
# TYPE tollgate_security_outcomes_total counter
tollgate_security_outcomes_total{result="bypassed",stage="authorization"} 1
tollgate_security_outcomes_total{result="invalid_password",stage="login"} 1
tollgate_security_outcomes_total{result="success",stage="login"} 2
`
	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "tollgate_security_outcomes_total")
	require.NoError(t, err)

	// bypasses are not timed
	n, err := testutil.GatherAndCount(m.Registry(), "tollgate_security_stage_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestHandler(t *testing.T) {
	m := metrics.New()
	m.ObserveStage(security.StageRefresh, security.ResultSuccess, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `tollgate_security_outcomes_total{result="success",stage="refresh"} 1`)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRateLimited(t *testing.T) {
	m := metrics.New()
	m.RateLimited("credentials")
	m.RateLimited("credentials")
	m.RateLimited("probes")

	expected := `
# HELP tollgate_http_rate_limited_total Requests rejected with 429, by limiter.
# TYPE tollgate_http_rate_limited_total counter
tollgate_http_rate_limited_total{limiter="credentials"} 2
tollgate_http_rate_limited_total{limiter="probes"} 1
`
	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "tollgate_http_rate_limited_total")
	require.NoError(t, err)
}
