/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/notargets/aderdg/InputParameters"
	"github.com/notargets/aderdg/stepper"
)

type Model struct {
	ICFile  string
	Preset  string
	Profile string
	Verbose bool
	Workers int
}

const exampleFile = `
########################################
Title: "Test Case"
TimeStepping:
  TimeStepper: ADER # RK4, LSRK4, SSPRK3 or FE
  Stages:
    - {Order: 2, CFL: 0.5, EndTime: 1}
Numerics:
  SolutionBasis: LagrangeSeg
Mesh: {Type: Line, XMin: 0, XMax: 1, NElemX: 16, PeriodicX: true}
Physics: {Type: ConstAdvScalar, ConstVelocity: [1]}
InitialCondition: {Name: Sine}
ExactSolution: {Name: Sine}
########################################
`

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Solve a case from an input file or a preset",
	Long: `
Solves the case described by a YAML input file (-I) or one of the presets
(-p). Runtime knobs can also come from the environment:
ADERDG_WORKERS, ADERDG_STRICT_CONVERGENCE, ADERDG_LOG_EVERY,
ADERDG_OTEL_ENDPOINT.

aderdg run -p DampingSineWave`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		m := &Model{}
		if m.ICFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			return
		}
		if m.Preset, err = cmd.Flags().GetString("preset"); err != nil {
			return
		}
		m.Profile, _ = cmd.Flags().GetString("profile")
		m.Verbose = viper.GetBool("verbose")
		m.Workers = viper.GetInt("workers")
		switch m.Profile {
		case "":
		case "cpu":
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
		case "mem":
			defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
		default:
			return fmt.Errorf("unknown profile %q, use cpu or mem", m.Profile)
		}
		return RunModel(cmd.Context(), m, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters")
	runCmd.Flags().StringP("preset", "p", "", fmt.Sprintf("preset case, one of %v", InputParameters.PresetNames()))
	runCmd.Flags().String("profile", "", "write a cpu or mem profile to the current directory")
}

func processInput(m *Model) (ip *InputParameters.InputParameters, err error) {
	switch {
	case m.Preset != "" && m.ICFile != "":
		return nil, fmt.Errorf("use either a preset (-p) or an input file (-I), not both")
	case m.Preset != "":
		return InputParameters.NewPreset(m.Preset)
	case m.ICFile == "":
		return nil, fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile) or a preset (-p)\nExample File:%s",
			exampleFile)
	}
	var data []byte
	if data, err = os.ReadFile(m.ICFile); err != nil {
		return
	}
	ip = &InputParameters.InputParameters{}
	if err = ip.Parse(data); err != nil {
		return nil, fmt.Errorf("%s: %w", m.ICFile, err)
	}
	return
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// RunModel solves the case m describes and writes the progress table to out
func RunModel(ctx context.Context, m *Model, out io.Writer) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		ip     *InputParameters.InputParameters
		rc     InputParameters.RuntimeConfig
		cfg    stepper.Config
		d      *stepper.Driver
		logger *zap.Logger
	)
	if ip, err = processInput(m); err != nil {
		return
	}
	if rc, err = InputParameters.LoadRuntimeConfig(); err != nil {
		return
	}
	if m.Workers > 0 {
		rc.Workers = m.Workers
	}
	if logger, err = newLogger(m.Verbose); err != nil {
		return
	}
	defer func() { _ = logger.Sync() }()
	shutdown, err := setupTracing(ctx, rc.OTelEndpoint)
	if err != nil {
		return
	}
	defer func() { _ = shutdown(context.Background()) }()

	ip.Print(out)
	if cfg, err = ip.Build(rc); err != nil {
		return
	}
	if d, err = stepper.NewDriver(ctx, cfg, stepper.WithLogger(logger), stepper.WithOutput(out)); err != nil {
		return
	}
	return d.Run(ctx)
}
