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

	"github.com/randomtoy/readingd/internal/domain"
	"github.com/randomtoy/readingd/internal/ports"
)

func TestPipelineCounters(t *testing.T) {
	m := New()

	m.Submitted(ports.ModePending)
	m.Submitted(ports.ModePending)
	m.Submitted(ports.ModeImmediate)
	m.PollAttempt("queued")
	m.PollAttempt("completed")
	m.Resolved("", 2*time.Second)
	m.Resolved(domain.CodePollTimeout, time.Minute)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.submissions.WithLabelValues(ports.ModePending)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues(ports.ModeImmediate)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pollAttempts.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutions.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutions.WithLabelValues(string(domain.CodePollTimeout))))
}

func TestObserveHTTP(t *testing.T) {
	m := New()

	m.ObserveHTTP(http.MethodPost, "/v1/readings", "200", 30*time.Millisecond)
	m.ObserveHTTP(http.MethodPost, "/v1/readings", "200", 40*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodPost, "/v1/readings", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpDuration))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.Submitted(ports.ModeImmediate)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `readingd_pipeline_submissions_total{mode="immediate"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
