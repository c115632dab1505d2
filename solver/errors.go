package solver

import (
	"errors"
	"fmt"

	"github.com/notargets/aderdg/mesh"
)

var (
	ErrGeometry           = errors.New("invalid element geometry")
	ErrConfigIncompatible = errors.New("incompatible configuration")
	ErrConvergence        = errors.New("predictor did not converge")
	ErrUnsupportedScheme  = errors.New("unsupported scheme")
	ErrDimensionMismatch  = errors.New("dimension mismatch")
)

// GeometryError is raised while building operator tables for an element
// with a non-positive Jacobian determinant.
type GeometryError = mesh.GeometryError

// ConfigIncompatibleError names the setting that conflicts with the rest of
// the setup.
type ConfigIncompatibleError struct {
	Setting string
	Reason  string
}

func (e *ConfigIncompatibleError) Error() string {
	return fmt.Sprintf("incompatible configuration %s: %s", e.Setting, e.Reason)
}

func (e *ConfigIncompatibleError) Unwrap() error { return ErrConfigIncompatible }

// ConvergenceFailure is one element whose predictor iteration hit the cap.
type ConvergenceFailure struct {
	Elem       int
	Iterations int
	MaxDelta   float64
}

func (e *ConvergenceFailure) Error() string {
	return fmt.Sprintf("element %d: predictor not converged after %d iterations, max change %g",
		e.Elem, e.Iterations, e.MaxDelta)
}

func (e *ConvergenceFailure) Unwrap() error { return ErrConvergence }

type UnsupportedSchemeError struct {
	Kind, Name string
}

func (e *UnsupportedSchemeError) Error() string {
	return fmt.Sprintf("unsupported %s %q", e.Kind, e.Name)
}

func (e *UnsupportedSchemeError) Unwrap() error { return ErrUnsupportedScheme }

// DimensionMismatchError is returned when a field does not match the
// operator tables it is used with, as after an order change without a
// rebuild.
type DimensionMismatchError struct {
	What           string
	Have, Expected int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: have %d, tables built for %d", e.What, e.Have, e.Expected)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// ConvergenceReport collects the non-fatal predictor failures of one step
// and the fixed point iterations each element took.
type ConvergenceReport struct {
	Failures   []*ConvergenceFailure
	Iterations []int
}

func (r *ConvergenceReport) Err() error {
	if r == nil || len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

func geometryErr(err error) error {
	var ge *GeometryError
	if errors.As(err, &ge) {
		return fmt.Errorf("%w: %w", ErrGeometry, err)
	}
	return err
}
