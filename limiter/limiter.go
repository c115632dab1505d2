package limiter

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/notargets/aderdg/physics"
	"github.com/notargets/aderdg/solver"
	"github.com/notargets/aderdg/utils"
)

type LimiterType uint8

const (
	None LimiterType = iota
	PositivityPreservingT
	ScalarPositivityPreservingT
)

var (
	LimiterNames = map[string]LimiterType{
		"":                           None,
		"none":                       None,
		"positivitypreserving":       PositivityPreservingT,
		"scalarpositivitypreserving": ScalarPositivityPreservingT,
	}
	LimiterNamesRev = map[LimiterType]string{
		None:                        "None",
		PositivityPreservingT:       "PositivityPreserving",
		ScalarPositivityPreservingT: "ScalarPositivityPreserving",
	}
)

func (lt LimiterType) Print() (txt string) {
	if val, ok := LimiterNamesRev[lt]; ok {
		return val
	}
	return "None"
}

func NewLimiterType(label string) (lt LimiterType, err error) {
	var ok bool
	if lt, ok = LimiterNames[strings.ToLower(strings.TrimSpace(label))]; !ok {
		err = &solver.UnsupportedSchemeError{Kind: "limiter", Name: label}
	}
	return
}

// Limiter modifies a coefficient field in place after a stage
type Limiter interface {
	Name() string
	Limit(ctx context.Context, U *solver.Field) error
}

type Option func(*base)

func WithLogger(l *zap.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.logger = l
		}
	}
}

func WithWorkers(n int) Option { return func(b *base) { b.nWorkers = n } }

// base holds the point set a limiter enforces bounds on: the element
// quadrature points followed by the points of every face.
type base struct {
	ops      *solver.Operators
	Pts      utils.Matrix // npts x nb
	ones     []utils.Matrix
	logger   *zap.Logger
	nWorkers int
}

func newBase(ops *solver.Operators, opts []Option) (b *base) {
	var (
		eo   = ops.Elem
		nb   = eo.NB
		rows = [][]float64{}
	)
	b = &base{ops: ops, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	for q := 0; q < eo.NQ; q++ {
		rows = append(rows, eo.Phi.RowView(q))
	}
	for _, phi := range ops.IFace.BasisL {
		nr, _ := phi.Dims()
		for q := 0; q < nr; q++ {
			rows = append(rows, phi.RowView(q))
		}
	}
	b.Pts = utils.NewMatrix(len(rows), nb)
	for i, r := range rows {
		b.Pts.SetRow(i, r)
	}
	b.Pts.SetReadOnly("LimiterPoints")
	// coefficients of the constant function 1 on each element
	b.ones = make([]utils.Matrix, len(eo.IMM))
	for k := range b.ones {
		w := utils.NewMatrix(eo.NQ, 1, append([]float64(nil), eo.WDJac[k]...))
		b.ones[k] = eo.IMM[k].Mul(eo.Phi.Transpose().Mul(w))
	}
	return
}

// mean is the element average of U
func (b *base) mean(k int, U utils.Matrix) (ubar []float64) {
	var (
		eo    = b.ops.Elem
		_, ns = U.Dims()
		Uq    = eo.Phi.Mul(U)
	)
	ubar = make([]float64, ns)
	for q, w := range eo.WDJac[k] {
		for s, u := range Uq.RowView(q) {
			ubar[s] += w * u
		}
	}
	for s := range ubar {
		ubar[s] /= eo.Vol[k]
	}
	return
}

// squeeze sets variable s of U to ubar + theta*(U - ubar)
func (b *base) squeeze(k int, U utils.Matrix, s int, ubar, theta float64) {
	nb, _ := U.Dims()
	for i := 0; i < nb; i++ {
		U.Set(i, s, ubar*b.ones[k].At(i, 0)+theta*(U.At(i, s)-ubar*b.ones[k].At(i, 0)))
	}
}

func (b *base) run(ctx context.Context, name string, U *solver.Field, fn func(k int, Uk utils.Matrix) bool) (err error) {
	if U.NB != b.ops.Elem.NB {
		return &solver.DimensionMismatchError{What: name + " basis size", Have: U.NB, Expected: b.ops.Elem.NB}
	}
	var (
		K       = U.NElem
		limited = make([]bool, K)
		pm      = utils.NewPartitionMap(utils.ParallelDegree(b.nWorkers, K), K)
	)
	if err = utils.ParallelFor(ctx, pm, func(ctx context.Context, _, kMin, kMax int) error {
		for k := kMin; k < kMax; k++ {
			limited[k] = fn(k, U.Elem(k))
		}
		return ctx.Err()
	}); err != nil {
		return
	}
	var n int
	for _, l := range limited {
		if l {
			n++
		}
	}
	if n > 0 {
		b.logger.Debug("limited elements", zap.String("limiter", name), zap.Int("count", n))
	}
	return
}

// ScalarRoundOff is the relative undershoot the scalar limiter tolerates
const ScalarRoundOff = 1.e-13

// ScalarPositivityPreserving keeps a scalar non-negative at the element and
// face points by scaling toward the element mean.
type ScalarPositivityPreserving struct {
	*base
}

func (ScalarPositivityPreserving) Name() string { return LimiterNamesRev[ScalarPositivityPreservingT] }

func (l ScalarPositivityPreserving) Limit(ctx context.Context, U *solver.Field) error {
	return l.run(ctx, l.Name(), U, func(k int, Uk utils.Matrix) bool {
		var (
			ubar = l.mean(k, Uk)[0]
			umin = l.Pts.Mul(Uk).Min()
		)
		// round-off below zero at the points is left alone
		if umin >= -ScalarRoundOff*math.Max(1, math.Abs(ubar)) {
			return false
		}
		theta := 0.
		if ubar > 0 {
			theta = math.Min(1, ubar/(ubar-umin))
		}
		if theta >= 1 {
			return false
		}
		l.squeeze(k, Uk, 0, ubar, theta)
		return true
	})
}

// PositivityEps is the floor for density and pressure
const PositivityEps = 1.e-10

// PositivityPreserving keeps Euler density and pressure above
// PositivityEps at the element and face points, density first, then
// pressure by scaling every variable toward the mean.
type PositivityPreserving struct {
	*base
	eq *physics.Euler
}

func (PositivityPreserving) Name() string { return LimiterNamesRev[PositivityPreservingT] }

func (l PositivityPreserving) Limit(ctx context.Context, U *solver.Field) error {
	return l.run(ctx, l.Name(), U, func(k int, Uk utils.Matrix) (limited bool) {
		var (
			ubar  = l.mean(k, Uk)
			_, ns = Uk.Dims()
			Uq    = l.Pts.Mul(Uk)
			np, _ = Uq.Dims()
			rhoM  = math.Inf(1)
		)
		for q := 0; q < np; q++ {
			rhoM = math.Min(rhoM, Uq.At(q, 0))
		}
		if rhoM < PositivityEps {
			theta := 0.
			if ubar[0] > PositivityEps {
				theta = math.Min(1, (ubar[0]-PositivityEps)/(ubar[0]-rhoM))
			}
			l.squeeze(k, Uk, 0, ubar[0], theta)
			Uq = l.Pts.Mul(Uk)
			limited = true
		}
		theta := 1.
		for q := 0; q < np; q++ {
			uq := Uq.RowView(q)
			if l.eq.Pressure(uq) >= PositivityEps {
				continue
			}
			theta = math.Min(theta, l.pressureRoot(ubar, uq))
		}
		if theta < 1 {
			for s := 0; s < ns; s++ {
				l.squeeze(k, Uk, s, ubar[s], theta)
			}
			limited = true
		}
		return
	})
}

// pressureRoot finds t in [0,1] with p(ubar + t(u - ubar)) at the floor by
// bisection; pressure is concave in the conserved variables.
func (l PositivityPreserving) pressureRoot(ubar, u []float64) float64 {
	var (
		lo, hi = 0., 1.
		w      = make([]float64, len(u))
	)
	if l.eq.Pressure(ubar) < PositivityEps {
		return 0
	}
	for it := 0; it < 60; it++ {
		mid := 0.5 * (lo + hi)
		for s := range w {
			w[s] = ubar[s] + mid*(u[s]-ubar[s])
		}
		if l.eq.Pressure(w) >= PositivityEps {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// New returns the limiter named by label, or nil for None.
func New(label string, phys physics.Physics, ops *solver.Operators, opts ...Option) (lim Limiter, err error) {
	var lt LimiterType
	if lt, err = NewLimiterType(label); err != nil {
		return
	}
	switch lt {
	case ScalarPositivityPreservingT:
		if ns := phys.NumStateVars(); ns != 1 {
			return nil, &solver.ConfigIncompatibleError{Setting: "ApplyLimiter",
				Reason: fmt.Sprintf("%s needs a scalar equation, %s has %d state variables", lt.Print(), phys.Name(), ns)}
		}
		lim = ScalarPositivityPreserving{base: newBase(ops, opts)}
	case PositivityPreservingT:
		eq, ok := phys.(*physics.Euler)
		if !ok {
			return nil, &solver.ConfigIncompatibleError{Setting: "ApplyLimiter",
				Reason: fmt.Sprintf("%s needs Euler physics, have %s", lt.Print(), phys.Name())}
		}
		lim = PositivityPreserving{base: newBase(ops, opts), eq: eq}
	}
	return
}
