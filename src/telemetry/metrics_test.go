package telemetry

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mosaicnetworks/hgclient/src/executable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()

	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.ObserveAttempt("echo", "0.0.3", executable.RetryableNode, 10*time.Millisecond)
	m.ObserveNodeBackoff("0.0.3", 16*time.Second)
	m.ObserveAttempt("echo", "0.0.4", executable.Success, 5*time.Millisecond)
	m.ObserveExecution("echo", executable.Succeeded, 2, 30*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Attempts.WithLabelValues("echo", "0.0.3", "retryable_node")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Attempts.WithLabelValues("echo", "0.0.4", "success")))
	assert.Equal(t, 16.0, testutil.ToFloat64(m.NodeBackoff.WithLabelValues("0.0.3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Executions.WithLabelValues("echo", "Succeeded")))

	// registering twice on the same registry fails
	_, err = NewMetrics(reg)
	assert.Error(t, err)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.True(t, strings.Contains(rec.Body.String(), "hgclient_attempts_total"))
}

func TestNilMetrics(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)
	require.Nil(t, m)

	assert.NotPanics(t, func() {
		m.ObserveAttempt("echo", "0.0.3", executable.Success, time.Millisecond)
		m.ObserveNodeBackoff("0.0.3", time.Second)
		m.ObserveExecution("echo", executable.Failed, 1, time.Millisecond)
	})
}

func TestUnregister(t *testing.T) {
	reg := prometheus.NewRegistry()

	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.Unregister(reg)

	_, err = NewMetrics(reg)
	assert.NoError(t, err)
}
