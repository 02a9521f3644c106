package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetrics_Safe(t *testing.T) {
	var m *Metrics
	assert.Nil(t, New(nil))
	assert.NotPanics(t, func() {
		m.Dial(OutcomeOK)
		m.Enqueued()
		m.SetQueueDepth(3)
		m.Broadcast(1, 2)
		m.Invariant()
		m.Received(OutcomeDuplicate)
		m.Request("ping", OutcomeOK, 0.1)
		m.AddInFlight(1)
		m.Heartbeat("out", OutcomeOK)
		m.SetConnected(2)
	})
}

func TestMetrics_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Broadcast(2, 1)
	m.Broadcast(3, 0)
	m.Received(OutcomeForeign)
	m.Dial(OutcomeFailed)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OpsBroadcast))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.OpDeliveries.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OpDeliveries.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OpsReceived.WithLabelValues(OutcomeForeign)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DialAttempts.WithLabelValues(OutcomeFailed)))
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}

func TestServer_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Enqueued()

	srv := NewServer("127.0.0.1:0", reg)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "syncmesh_broadcast_operations_enqueued_total 1")
}
