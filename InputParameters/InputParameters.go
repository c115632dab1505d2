package InputParameters

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/ghodss/yaml"

	"github.com/notargets/aderdg/mesh"
	"github.com/notargets/aderdg/physics"
	"github.com/notargets/aderdg/solver"
	"github.com/notargets/aderdg/stepper"
	"github.com/notargets/aderdg/utils"
)

// Parameters obtained from the YAML input file
type InputParameters struct {
	Title              string                       `json:"Title"`
	TimeStepping       TimeStepping                 `json:"TimeStepping"`
	Numerics           Numerics                     `json:"Numerics"`
	Mesh               MeshParams                   `json:"Mesh"`
	Physics            physics.Params               `json:"Physics"`
	InitialCondition   Function                     `json:"InitialCondition"`
	ExactSolution      *Function                    `json:"ExactSolution,omitempty"`
	BoundaryConditions map[string]BoundaryCondition `json:"BoundaryConditions,omitempty"` // key is the boundary group
	SourceTerms        []Function                   `json:"SourceTerms,omitempty"`
	Output             Output                       `json:"Output"`
}

type TimeStepping struct {
	TimeStepper string          `json:"TimeStepper"`
	InitialTime float64         `json:"InitialTime"`
	Stages      []stepper.Stage `json:"Stages"`
}

type Numerics struct {
	SolutionBasis     string `json:"SolutionBasis"`
	ApplyLimiter      string `json:"ApplyLimiter"`
	InterpolateFlux   bool   `json:"InterpolateFlux"`
	InterpolateIC     bool   `json:"InterpolateIC"`
	SourceTreatment   string `json:"SourceTreatment"` // Explicit or Implicit
	StrictConvergence bool   `json:"StrictConvergence"`
	LinearGeomMapping bool   `json:"LinearGeomMapping"`
	UniformMesh       bool   `json:"UniformMesh"`
}

type MeshParams struct {
	Type      string  `json:"Type"` // Line, Quad or Tri
	XMin      float64 `json:"XMin"`
	XMax      float64 `json:"XMax"`
	YMin      float64 `json:"YMin"`
	YMax      float64 `json:"YMax"`
	NElemX    int     `json:"NElemX"`
	NElemY    int     `json:"NElemY"`
	PeriodicX bool    `json:"PeriodicX"`
	PeriodicY bool    `json:"PeriodicY"`
	GOrder    int     `json:"GOrder"`
}

// Function names a physics function, source or boundary data with its
// numeric parameters
type Function struct {
	Name   string             `json:"Name"`
	Params map[string]float64 `json:"Params,omitempty"`
}

type BoundaryCondition struct {
	Type     string             `json:"Type"`
	Function *Function          `json:"Function,omitempty"`
	Params   map[string]float64 `json:"Params,omitempty"`
}

type Output struct {
	TrackOutput bool `json:"TrackOutput"`
	LogEvery    int  `json:"LogEvery"`
}

// RuntimeConfig holds knobs taken from the environment rather than the
// input file
type RuntimeConfig struct {
	Workers           int    `env:"ADERDG_WORKERS"`
	StrictConvergence *bool  `env:"ADERDG_STRICT_CONVERGENCE"`
	LogEvery          int    `env:"ADERDG_LOG_EVERY"`
	OTelEndpoint      string `env:"ADERDG_OTEL_ENDPOINT"`
}

func LoadRuntimeConfig() (rc RuntimeConfig, err error) {
	if err = env.Parse(&rc); err != nil {
		err = fmt.Errorf("parse env: %w", err)
	}
	return
}

func (ip *InputParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

// ApplyRuntime overrides the input file with whatever the environment sets
func (ip *InputParameters) ApplyRuntime(rc RuntimeConfig) {
	if rc.StrictConvergence != nil {
		ip.Numerics.StrictConvergence = *rc.StrictConvergence
	}
	if rc.LogEvery > 0 {
		ip.Output.LogEvery = rc.LogEvery
	}
}

func (ip *InputParameters) Print(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", ip.Title)
	fmt.Fprintf(w, "[%s]\t\t\t= Time Stepper\n", ip.TimeStepping.TimeStepper)
	for i, s := range ip.TimeStepping.Stages {
		fmt.Fprintf(w, "Stage[%d] = Order %d, EndTime %8.5f, NTimeStep %d, CFL %8.5f\n",
			i, s.Order, s.EndTime, s.NTimeStep, s.CFL)
	}
	fmt.Fprintf(w, "[%s]\t\t= Solution Basis\n", ip.Numerics.SolutionBasis)
	fmt.Fprintf(w, "[%s]\t\t\t= Limiter\n", ip.Numerics.ApplyLimiter)
	fmt.Fprintf(w, "[%s]\t\t= Physics\n", ip.Physics.Type)
	fmt.Fprintf(w, "[%s]\t\t\t= Flux Type\n", ip.Physics.ConvFluxNumerical)
	fmt.Fprintf(w, "[%s]\t= InitType\n", ip.InitialCondition.Name)
	fmt.Fprintf(w, "[%s %d x %d]\t\t= Mesh\n", ip.Mesh.Type, ip.Mesh.NElemX, ip.Mesh.NElemY)
	keys := make([]string, len(ip.BoundaryConditions))
	i := 0
	for k := range ip.BoundaryConditions {
		keys[i] = k
		i++
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(w, "BCs[%s] = %v\n", key, ip.BoundaryConditions[key].Type)
	}
	for _, src := range ip.SourceTerms {
		fmt.Fprintf(w, "Source = %s %v\n", src.Name, src.Params)
	}
}

// Validate checks the input on its own, before any mesh or basis exists.
// Every problem is reported.
func (ip *InputParameters) Validate() error {
	var errs []error
	bad := func(setting, format string, args ...interface{}) {
		errs = append(errs, &solver.ConfigIncompatibleError{Setting: setting, Reason: fmt.Sprintf(format, args...)})
	}
	ts := ip.TimeStepping
	if _, err := stepper.NewSchemeType(ts.TimeStepper); err != nil {
		errs = append(errs, err)
	}
	if len(ts.Stages) == 0 {
		bad("TimeStepping", "no stages")
	}
	tPrev := ts.InitialTime
	for i, s := range ts.Stages {
		if s.Order < 0 {
			bad("TimeStepping", "stage %d order %d", i, s.Order)
		}
		if s.NTimeStep <= 0 && s.CFL <= 0 {
			bad("TimeStepping", "stage %d needs NTimeStep or CFL", i)
		}
		if s.EndTime <= tPrev {
			bad("TimeStepping", "stage %d ends at %g, not after %g", i, s.EndTime, tPrev)
		}
		tPrev = s.EndTime
	}
	if ip.Numerics.SolutionBasis == "" {
		bad("SolutionBasis", "not set")
	}
	switch strings.ToLower(ip.Numerics.SourceTreatment) {
	case "", "explicit", "implicit":
	default:
		bad("SourceTreatment", "%q is neither Explicit nor Implicit", ip.Numerics.SourceTreatment)
	}
	m := ip.Mesh
	switch m.Type {
	case "Line":
		if m.XMax <= m.XMin || m.NElemX < 1 {
			bad("Mesh", "line [%g, %g] with %d elements", m.XMin, m.XMax, m.NElemX)
		}
	case "Quad", "Tri":
		if m.XMax <= m.XMin || m.YMax <= m.YMin || m.NElemX < 1 || m.NElemY < 1 {
			bad("Mesh", "box [%g, %g] x [%g, %g] with %d x %d cells",
				m.XMin, m.XMax, m.YMin, m.YMax, m.NElemX, m.NElemY)
		}
	default:
		bad("Mesh", "unknown mesh type %q", m.Type)
	}
	if m.GOrder < 0 || m.GOrder > 2 {
		bad("Mesh", "geometric order %d", m.GOrder)
	}
	if ip.Physics.Type == "" {
		bad("Physics", "not set")
	}
	if ip.InitialCondition.Name == "" {
		bad("InitialCondition", "not set")
	}
	for group, bc := range ip.BoundaryConditions {
		if _, err := utils.ParseBCName(bc.Type); err != nil {
			bad("BoundaryConditions", "group %s: %v", group, err)
		}
	}
	return errors.Join(errs...)
}

func (ip *InputParameters) buildMesh() (m *mesh.Mesh, err error) {
	mp := ip.Mesh
	switch mp.Type {
	case "Line":
		m, err = mesh.NewLine(mp.XMin, mp.XMax, mp.NElemX, mp.PeriodicX)
	case "Quad":
		m, err = mesh.NewQuad(mp.XMin, mp.XMax, mp.YMin, mp.YMax, mp.NElemX, mp.NElemY, mp.PeriodicX, mp.PeriodicY)
	case "Tri":
		m, err = mesh.NewTri(mp.XMin, mp.XMax, mp.YMin, mp.YMax, mp.NElemX, mp.NElemY, mp.PeriodicX, mp.PeriodicY)
	default:
		err = fmt.Errorf("unknown mesh type %q", mp.Type)
	}
	if err == nil && mp.GOrder > 1 {
		m, err = mesh.Elevate(m, mp.GOrder, nil)
	}
	return
}

// Build turns validated input into a driver configuration: the mesh, the
// equation set with its sources and boundary conditions, and the initial
// and exact functions.
func (ip *InputParameters) Build(rc RuntimeConfig) (cfg stepper.Config, err error) {
	if err = ip.Validate(); err != nil {
		return
	}
	ip.ApplyRuntime(rc)
	var (
		m    *mesh.Mesh
		phys physics.Configurable
	)
	if m, err = ip.buildMesh(); err != nil {
		return
	}
	if phys, err = physics.New(ip.Physics, m.Dim); err != nil {
		return
	}
	for _, st := range ip.SourceTerms {
		var src physics.Source
		if src, err = physics.NewSource(st.Name, st.Params, phys); err != nil {
			return
		}
		phys.AddSource(src)
	}
	groups := make([]string, 0, len(ip.BoundaryConditions))
	for g := range ip.BoundaryConditions {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, g := range groups {
		var (
			bcp  = ip.BoundaryConditions[g]
			kind utils.BCType
			fn   physics.Function
			bc   physics.BoundaryCondition
		)
		if kind, err = utils.ParseBCName(bcp.Type); err != nil {
			return
		}
		if bcp.Function != nil {
			if fn, err = physics.NewFunction(bcp.Function.Name, bcp.Function.Params, phys); err != nil {
				return
			}
		}
		if bc, err = physics.NewBC(kind, fn, bcp.Params, phys); err != nil {
			return cfg, fmt.Errorf("boundary %s: %w", g, err)
		}
		phys.SetBC(mesh.CanonicalGroup(g), bc)
	}
	cfg = stepper.Config{
		Mesh:              m,
		Phys:              phys,
		Basis:             ip.Numerics.SolutionBasis,
		Scheme:            ip.TimeStepping.TimeStepper,
		Limiter:           ip.Numerics.ApplyLimiter,
		Stages:            ip.TimeStepping.Stages,
		InitialTime:       ip.TimeStepping.InitialTime,
		InterpolateIC:     ip.Numerics.InterpolateIC,
		InterpolateFlux:   ip.Numerics.InterpolateFlux,
		ImplicitSource:    strings.EqualFold(ip.Numerics.SourceTreatment, "Implicit"),
		StrictConvergence: ip.Numerics.StrictConvergence,
		LinearGeomMapping: ip.Numerics.LinearGeomMapping,
		UniformMesh:       ip.Numerics.UniformMesh,
		TrackOutput:       ip.Output.TrackOutput,
		Workers:           rc.Workers,
		LogEvery:          ip.Output.LogEvery,
	}
	ic := ip.InitialCondition
	if cfg.IC, err = physics.NewFunction(ic.Name, ic.Params, phys); err != nil {
		return
	}
	if ex := ip.ExactSolution; ex != nil {
		if cfg.Exact, err = physics.NewFunction(ex.Name, ex.Params, phys); err != nil {
			return
		}
	}
	return
}
