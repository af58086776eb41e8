package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersEveryMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["juked_supervisor_worker_restarts_total"])
	assert.True(t, names["juked_supervisor_flood_control_events_total"])
	assert.True(t, names["juked_worker_main_queue_depth"])
	assert.True(t, names["juked_supervisor_worker_up"])

	m.WorkerRestarts.Inc()
	m.QueueDepth.Set(3)

	families, err = reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "juked_supervisor_worker_restarts_total" {
			continue
		}
		assert.Equal(t, float64(1), f.Metric[0].GetCounter().GetValue())
	}
}
