// SPDX-License-Identifier: MIT

package instance

import (
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/epec/epec"
)

// Report is the YAML shape of an epec.Report.
type Report struct {
	RunID        string         `yaml:"run_id"`
	Instance     string         `yaml:"instance,omitempty"`
	Status       string         `yaml:"status"`
	Passes       int            `yaml:"passes"`
	WallTime     string         `yaml:"wall_time"`
	MaxRegret    *float64       `yaml:"max_regret,omitempty"`
	Recoveries   int            `yaml:"recoveries"`
	SolverErrors int            `yaml:"solver_errors"`
	History      [][]int        `yaml:"history,flow"`
	Leaders      []LeaderReport `yaml:"leaders"`
}

// LeaderReport is one leader's slice of the outcome.
type LeaderReport struct {
	Name           string      `yaml:"name"`
	LeaderVars     []float64   `yaml:"leader_vars,flow,omitempty"`
	Decision       []float64   `yaml:"decision,flow,omitempty"`
	Value          *float64    `yaml:"value,omitempty"`
	PolyhedraAdded int         `yaml:"polyhedra_added"`
	Vertices       [][]float64 `yaml:"vertices,flow,omitempty"`
}

// NewReport converts rep. name labels the instance and may be empty.
func NewReport(name string, rep *epec.Report) Report {
	out := Report{
		RunID:        rep.RunID,
		Instance:     name,
		Status:       rep.Status.String(),
		Passes:       rep.Stats.Passes,
		WallTime:     rep.Stats.WallTime.String(),
		Recoveries:   rep.Stats.Recoveries,
		SolverErrors: rep.Stats.SolverErrors,
		History:      rep.Stats.History,
	}
	if !math.IsNaN(rep.MaxRegret) && !math.IsInf(rep.MaxRegret, 0) {
		v := rep.MaxRegret
		out.MaxRegret = &v
	}
	for i, n := range rep.Names {
		lr := LeaderReport{Name: n}
		if i < len(rep.Stats.PolyhedraAdded) {
			lr.PolyhedraAdded = rep.Stats.PolyhedraAdded[i]
		}
		if rep.Decisions != nil {
			lr.Decision = rep.Decisions[i]
			lr.LeaderVars = rep.LeaderVars[i]
			v := rep.Values[i]
			lr.Value = &v
		}
		if i < len(rep.Vertices) {
			lr.Vertices = rep.Vertices[i]
		}
		out.Leaders = append(out.Leaders, lr)
	}

	return out
}

// WriteReport writes rep as YAML to w.
func WriteReport(w io.Writer, name string, rep *epec.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewReport(name, rep)); err != nil {
		return fmt.Errorf("instance.WriteReport: %w", err)
	}

	return enc.Close()
}
