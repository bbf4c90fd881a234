// SPDX-License-Identifier: MIT
package instance_test

import (
	"bytes"
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/katalvlaran/epec/epec"
	"github.com/katalvlaran/epec/instance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const tol = 1e-6

func TestLoadDuopoly(t *testing.T) {
	t.Parallel()

	f, err := instance.Load(filepath.Join("testdata", "duopoly.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "duopoly", f.Name)
	assert.Equal(t, 2, f.Solver.Workers)
	assert.Equal(t, "30s", f.Solver.TimeLimit)
	require.Len(t, f.Leaders, 2)
	assert.Equal(t, "north", f.Leaders[0].Name)
	assert.Equal(t, 1, f.Leaders[0].LeaderVars)
	assert.Equal(t, []float64{1, -1}, f.Leaders[0].Cost)
	require.Len(t, f.Leaders[0].Followers, 1)
	assert.Equal(t, []float64{-10}, f.Leaders[0].Followers[0].Linear)
	assert.Nil(t, f.Leaders[0].Followers[0].A)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := instance.Load(filepath.Join("testdata", "absent.yaml"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, instance.ErrInvalid)
}

func TestParseRejects(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"unknown key": `
name: x
colour: red
leaders: [{cost: [1], followers: [{c: [1]}]}]`,
		"bad duration": `
name: x
solver: {time_limit: soon}
leaders: [{cost: [1], followers: [{c: [1]}]}]`,
		"negative duration": `
name: x
solver: {time_limit: -1s}
leaders: [{cost: [1], followers: [{c: [1]}]}]`,
		"bad policy": `
name: x
solver: {policy: greedy}
leaders: [{cost: [1], followers: [{c: [1]}]}]`,
		"no leaders": `
name: x`,
		"no name": `
leaders: [{cost: [1], followers: [{c: [1]}]}]`,
		"no cost": `
name: x
leaders: [{followers: [{c: [1]}]}]`,
		"no followers": `
name: x
leaders: [{cost: [1]}]`,
		"empty follower": `
name: x
leaders: [{cost: [1], followers: [{Q: [[1]]}]}]`,
		"negative workers": `
name: x
solver: {workers: -2}
leaders: [{cost: [1], followers: [{c: [1]}]}]`,
		"not yaml": `[`,
	}
	for name, doc := range cases {
		_, err := instance.Parse([]byte(doc))
		assert.ErrorIs(t, err, instance.ErrInvalid, name)
	}
}

func TestBuildRejectsBadShapes(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Q width": `
name: x
leaders: [{cost: [1], followers: [{Q: [[1, 0]], c: [1]}]}]`,
		"ragged interaction": `
name: x
leaders: [{cost: [1], interaction: [[1], [1, 2]], followers: [{Q: [[1]], c: [1]}]}]`,
		"market clearing width": `
name: x
leaders:
  - cost: [1]
    market_clearing: {A: [[1, 1]], b: [1]}
    followers: [{Q: [[1]], c: [1]}]`,
	}
	for name, doc := range cases {
		f, err := instance.Parse([]byte(doc))
		require.NoError(t, err, name)
		_, err = instance.Build(f, nil)
		assert.ErrorIs(t, err, instance.ErrInvalid, name)
	}
}

func TestSettingsOptions(t *testing.T) {
	t.Parallel()

	budget := 0
	s := instance.Settings{
		Algorithm:     "full-enumeration",
		Policy:        "round-robin",
		Recovery:      "abort",
		RetryBudget:   &budget,
		Workers:       3,
		TimeLimit:     "1m",
		MaxIterations: 10,
		Tolerance:     1e-7,
		Enumerate:     true,
		Eps:           1e-5,
		BigM:          1e4,
	}
	opts, err := s.Options()
	require.NoError(t, err)
	assert.Len(t, opts, 10)

	opts, err = instance.Settings{}.Options()
	require.NoError(t, err)
	assert.Empty(t, opts)

	_, err = instance.Settings{Policy: "greedy"}.Options()
	assert.ErrorIs(t, err, instance.ErrInvalid)
}

func solveDuopoly(t *testing.T) *epec.Report {
	t.Helper()
	f, err := instance.Load(filepath.Join("testdata", "duopoly.yaml"))
	require.NoError(t, err)
	leaders, err := instance.Build(f, nil)
	require.NoError(t, err)
	opts, err := f.Solver.Options()
	require.NoError(t, err)
	c, err := epec.New(leaders, opts...)
	require.NoError(t, err)
	rep, err := c.Solve(context.Background())
	require.NoError(t, err)

	return rep
}

func TestDuopolyEndToEnd(t *testing.T) {
	t.Parallel()

	rep := solveDuopoly(t)
	assert.Equal(t, epec.EquilibriumFound, rep.Status)
	assert.Equal(t, []string{"north", "south"}, rep.Names)
	for i := range rep.Decisions {
		assert.InDeltaSlice(t, []float64{2.5, 5}, rep.Decisions[i], tol)
		assert.InDelta(t, -2.5, rep.Values[i], tol)
	}
}

func TestWriteReport(t *testing.T) {
	t.Parallel()

	rep := solveDuopoly(t)
	var buf bytes.Buffer
	require.NoError(t, instance.WriteReport(&buf, "duopoly", rep))
	assert.Contains(t, buf.String(), "status: EquilibriumFound")
	assert.Contains(t, buf.String(), "history: [[1, 1]]")

	var back instance.Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, rep.RunID, back.RunID)
	assert.Equal(t, "duopoly", back.Instance)
	assert.Equal(t, 1, back.Passes)
	require.NotNil(t, back.MaxRegret)
	assert.InDelta(t, 0, *back.MaxRegret, tol)
	require.Len(t, back.Leaders, 2)
	assert.Equal(t, "south", back.Leaders[1].Name)
	assert.Equal(t, 1, back.Leaders[1].PolyhedraAdded)
	assert.InDeltaSlice(t, []float64{5}, back.Leaders[1].LeaderVars, tol)
	require.NotNil(t, back.Leaders[1].Value)
	assert.InDelta(t, -2.5, *back.Leaders[1].Value, tol)
}

func TestNewReportWithoutProfile(t *testing.T) {
	t.Parallel()

	rep := &epec.Report{
		RunID:     "r",
		Status:    epec.NoEquilibrium,
		Names:     []string{"a"},
		MaxRegret: math.NaN(),
		Stats:     epec.Stats{PolyhedraAdded: []int{1}},
	}
	out := instance.NewReport("", rep)
	assert.Equal(t, "NoEquilibrium", out.Status)
	assert.Nil(t, out.MaxRegret)
	require.Len(t, out.Leaders, 1)
	assert.Nil(t, out.Leaders[0].Value)
	assert.Nil(t, out.Leaders[0].Decision)
}

func TestSettingsLCPOptions(t *testing.T) {
	t.Parallel()

	assert.Empty(t, instance.Settings{}.LCPOptions())
	assert.Len(t, instance.Settings{Eps: 1e-5}.LCPOptions(), 1)
	assert.Len(t, instance.Settings{Eps: 1e-5, BigM: 10}.LCPOptions(), 2)
}
