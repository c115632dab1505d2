package InputParameters

import (
	"fmt"
	"sort"
)

// Presets are complete input files for the standard test cases
var Presets = map[string]string{
	"DampingSineWave": `
Title: "Damping sine wave"
TimeStepping:
  TimeStepper: ADER
  Stages:
    - {Order: 2, NTimeStep: 40, EndTime: 0.5}
Numerics:
  SolutionBasis: LagrangeEqSeg
  SourceTreatment: Implicit
Mesh: {Type: Line, XMin: -1, XMax: 1, NElemX: 16}
Physics:
  Type: ConstAdvScalar
  ConvFluxNumerical: LaxFriedrichs
  ConstVelocity: [1]
InitialCondition: &damping
  Name: DampingSine
  Params: {omega: 6.283185307179586, nu: -1000}
ExactSolution: *damping
BoundaryConditions:
  Left: {Type: StateAll, Function: *damping}
  Right: {Type: Extrapolate}
SourceTerms:
  - {Name: SimpleSource, Params: {nu: -1000}}
Output: {TrackOutput: true, LogEvery: 10}
`,
	"AdvectionSine": `
Title: "Advected sine, one period"
TimeStepping:
  TimeStepper: ADER
  Stages:
    - {Order: 2, CFL: 0.5, EndTime: 1}
Numerics:
  SolutionBasis: LagrangeSeg
  UniformMesh: true
Mesh: {Type: Line, XMin: 0, XMax: 1, NElemX: 16, PeriodicX: true}
Physics: {Type: ConstAdvScalar, ConstVelocity: [1]}
InitialCondition: &sine
  Name: Sine
ExactSolution: *sine
Output: {LogEvery: 20}
`,
	"DensityWave1D": `
Title: "Euler density wave"
TimeStepping:
  TimeStepper: SSPRK3
  Stages:
    - {Order: 1, CFL: 0.4, EndTime: 0.1}
    - {Order: 2, CFL: 0.4, EndTime: 0.5}
Numerics:
  SolutionBasis: LegendreSeg
  ApplyLimiter: PositivityPreserving
Mesh: {Type: Line, XMin: 0, XMax: 1, NElemX: 32, PeriodicX: true}
Physics: {Type: Euler1D, ConvFluxNumerical: Roe, SpecificHeatRatio: 1.4}
InitialCondition: &wave
  Name: DensityWave
  Params: {amp: 0.1, p: 1, u: 1}
ExactSolution: *wave
Output: {LogEvery: 50}
`,
	"SmoothIsentropicFlow": `
Title: "Smooth isentropic flow"
TimeStepping:
  TimeStepper: ADER
  Stages:
    - {Order: 2, NTimeStep: 100, EndTime: 0.1}
Numerics:
  SolutionBasis: LagrangeEqSeg
  InterpolateIC: true
  UniformMesh: true
Mesh: {Type: Line, XMin: -1, XMax: 1, NElemX: 25}
Physics: {Type: Euler1D, ConvFluxNumerical: LaxFriedrichs, SpecificHeatRatio: 3, GasConstant: 1}
InitialCondition: &isentropic
  Name: SmoothIsentropicFlow
  Params: {a: 0.9}
ExactSolution: *isentropic
BoundaryConditions:
  Left: {Type: StateAll, Function: *isentropic}
  Right: {Type: StateAll, Function: *isentropic}
Output: {LogEvery: 20}
`,
	"IsentropicVortex": `
Title: "Isentropic vortex"
TimeStepping:
  TimeStepper: LSRK4
  Stages:
    - {Order: 2, CFL: 0.5, EndTime: 1}
Numerics:
  SolutionBasis: LagrangeQuad
Mesh: {Type: Quad, XMin: -5, XMax: 5, YMin: -5, YMax: 5, NElemX: 10, NElemY: 10, PeriodicX: true, PeriodicY: true}
Physics: {Type: Euler2D, ConvFluxNumerical: Roe}
InitialCondition: &vortex
  Name: IsentropicVortex
  Params: {beta: 5, x0: 0, y0: 0}
ExactSolution: *vortex
Output: {LogEvery: 20}
`,
}

func PresetNames() (names []string) {
	for n := range Presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return
}

// NewPreset parses the named preset
func NewPreset(name string) (ip *InputParameters, err error) {
	text, ok := Presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q, have %v", name, PresetNames())
	}
	ip = &InputParameters{}
	if err = ip.Parse([]byte(text)); err != nil {
		return nil, fmt.Errorf("preset %s: %w", name, err)
	}
	return
}
