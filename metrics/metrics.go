// SPDX-License-Identifier: MIT

// Package metrics holds the optional Prometheus collectors shared by the
// solver capability and the EPEC coordinator.
//
// A nil *Metrics is valid everywhere and records nothing, so components only
// pay for instrumentation when a registry was supplied.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for solver calls.
const (
	OutcomeOptimal    = "optimal"
	OutcomeInfeasible = "infeasible"
	OutcomeUnbounded  = "unbounded"
	OutcomeError      = "error"
)

// Metrics bundles the collectors registered on one registry.
type Metrics struct {
	solves        *prometheus.CounterVec
	solveDuration *prometheus.HistogramVec
	bbNodes       prometheus.Counter
	passes        prometheus.Counter
	polyhedra     *prometheus.CounterVec
	status        *prometheus.CounterVec
}

// New registers the collectors on reg. Registering twice on the same registry
// panics, as promauto does.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		// solves counts solver calls by model kind and outcome
		solves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "epec_solver_solves_total",
			Help: "Solver calls by kind (lp, milp, qp) and outcome",
		}, []string{"kind", "outcome"}),

		solveDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "epec_solver_solve_duration_seconds",
			Help:    "Solver call latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16), // 0.1ms to ~3s
		}, []string{"kind"}),

		bbNodes: f.NewCounter(prometheus.CounterOpts{
			Name: "epec_solver_branch_nodes_total",
			Help: "Branch-and-bound nodes explored by the MILP backend",
		}),

		passes: f.NewCounter(prometheus.CounterOpts{
			Name: "epec_coordinator_passes_total",
			Help: "Outer passes executed by EPEC coordinators",
		}),

		polyhedra: f.NewCounterVec(prometheus.CounterOpts{
			Name: "epec_coordinator_polyhedra_added_total",
			Help: "Polyhedra added to inner approximations, by leader",
		}, []string{"leader"}),

		status: f.NewCounterVec(prometheus.CounterOpts{
			Name: "epec_coordinator_runs_total",
			Help: "Finished coordinator runs by terminal status",
		}, []string{"status"}),
	}
}

// ObserveSolve records one solver call.
func (m *Metrics) ObserveSolve(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.solves.WithLabelValues(kind, outcome).Inc()
	m.solveDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// AddNodes records explored branch-and-bound nodes.
func (m *Metrics) AddNodes(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bbNodes.Add(float64(n))
}

// IncPass records one coordinator pass.
func (m *Metrics) IncPass() {
	if m == nil {
		return
	}
	m.passes.Inc()
}

// IncPolyhedra records a polyhedron added for leader.
func (m *Metrics) IncPolyhedra(leader string) {
	if m == nil {
		return
	}
	m.polyhedra.WithLabelValues(leader).Inc()
}

// IncStatus records a terminal coordinator status.
func (m *Metrics) IncStatus(status string) {
	if m == nil {
		return
	}
	m.status.WithLabelValues(status).Inc()
}
