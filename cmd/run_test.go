package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/aderdg/solver"
)

func TestRunModel(t *testing.T) {
	ctx := context.Background()
	{ // Input file
		fileInput := []byte(`
Title: Test Case
TimeStepping:
  TimeStepper: SSPRK3
  Stages:
    - {Order: 1, NTimeStep: 5, EndTime: 0.01}
Numerics: {SolutionBasis: LagrangeSeg}
Mesh: {Type: Line, XMin: 0, XMax: 1, NElemX: 4, PeriodicX: true}
Physics: {Type: ConstAdvScalar}
InitialCondition: {Name: Sine}
ExactSolution: {Name: Sine}
`)
		file := filepath.Join(t.TempDir(), "input.yaml")
		require.NoError(t, os.WriteFile(file, fileInput, 0o644))
		var out bytes.Buffer
		require.NoError(t, RunModel(ctx, &Model{ICFile: file, Workers: 1}, &out))
		assert.Contains(t, out.String(), "\"Test Case\"")
		assert.Contains(t, out.String(), "L2 error")
	}
	{
		var out bytes.Buffer
		err := RunModel(ctx, &Model{}, &out)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Example File")
		err = RunModel(ctx, &Model{Preset: "AdvectionSine", ICFile: "x.yaml"}, &out)
		assert.Error(t, err)
		err = RunModel(ctx, &Model{ICFile: filepath.Join(t.TempDir(), "missing.yaml")}, &out)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	}
	{ // Setup conflicts surface before stepping
		fileInput := []byte(`
TimeStepping:
  TimeStepper: ADER
  Stages:
    - {Order: 1, NTimeStep: 5, EndTime: 0.01}
Numerics: {SolutionBasis: LegendreSeg, InterpolateFlux: true}
Mesh: {Type: Line, XMin: 0, XMax: 1, NElemX: 4, PeriodicX: true}
Physics: {Type: ConstAdvScalar}
InitialCondition: {Name: Sine}
`)
		file := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(file, fileInput, 0o644))
		var out bytes.Buffer
		err := RunModel(ctx, &Model{ICFile: file}, &out)
		assert.True(t, errors.Is(err, solver.ErrConfigIncompatible))
	}
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), Version)
}
