// SPDX-License-Identifier: MIT
package metrics_test

import (
	"testing"
	"time"

	"github.com/katalvlaran/epec/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics
	require.NotPanics(t, func() {
		m.ObserveSolve("lp", metrics.OutcomeOptimal, time.Millisecond)
		m.AddNodes(3)
		m.IncPass()
		m.IncPolyhedra("0")
		m.IncStatus("EquilibriumFound")
	})
}

func TestMetricsRecord(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveSolve("lp", metrics.OutcomeOptimal, time.Millisecond)
	m.ObserveSolve("lp", metrics.OutcomeInfeasible, time.Millisecond)
	m.IncPass()
	m.IncPass()

	n, err := testutil.GatherAndCount(reg, "epec_solver_solves_total")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.Panics(t, func() { metrics.New(reg) })
}
