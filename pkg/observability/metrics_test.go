package observability_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := observability.NewMetrics()

	m.ObserveCompile(nil)
	m.ObserveCompile(errors.New("boom"))
	m.ObserveCompile(nil)
	m.CapabilityFailed()

	done := m.InvocationStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InFlight))
	done(nil)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlight))

	m.ObserveEvent(domain.NewEvent(domain.EventAgentToolCall, domain.EventData{}))
	m.DeliveryFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Compiles.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Compiles.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CapabilityFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Invocations.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("AGENT_TOOL_CALL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeliveryFailures))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *observability.Metrics
	assert.NotPanics(t, func() {
		m.ObserveCompile(nil)
		m.CapabilityFailed()
		m.InvocationStarted()(errors.New("x"))
		m.ObserveEvent(domain.Event{})
		m.DeliveryFailed()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics()
	m.ObserveCompile(nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `canopy_compiles_total{result="ok"} 1`)
}
