package sim

import (
	"fmt"

	filter "github.com/tinyest/go-estimate"
	"gonum.org/v1/gonum/mat"
)

// System defines a linear model of a plant using the matrices of
// the Kalman filter formulation.
//
// It contains the state transition (F), control (B) and measurement (H) matrices.
type System struct {
	// State transition matrix F
	F *mat.Dense
	// Control matrix B
	B *mat.Dense
	// Measurement matrix H
	H *mat.Dense
}

func newSystem(F, B, H *mat.Dense) System {
	sys := System{F: mat.DenseCopyOf(F)}
	if B != nil {
		sys.B = mat.DenseCopyOf(B)
	}
	if H != nil {
		sys.H = mat.DenseCopyOf(H)
	}
	return sys
}

// SystemDims returns internal state length (nx), input vector length (nu)
// and measurement vector length (nz).
func (s System) SystemDims() (nx, nu, nz int) {
	nx, _ = s.F.Dims()
	if s.B != nil {
		_, nu = s.B.Dims()
	}
	if s.H != nil {
		nz, _ = s.H.Dims()
	}
	return nx, nu, nz
}

// SystemMatrix returns state transition matrix `F`.
func (s System) SystemMatrix() mat.Matrix { return s.F }

// ControlMatrix returns control matrix `B`
func (s System) ControlMatrix() mat.Matrix {
	if s.B == nil {
		return nil
	}
	return s.B
}

// OutputMatrix returns measurement matrix `H`
func (s System) OutputMatrix() mat.Matrix {
	if s.H == nil {
		return nil
	}
	return s.H
}

// Observe returns measurement H*x of internal state x.
// It implements filter.Observer.
func (s System) Observe(x mat.Vector) (mat.Vector, error) {
	return s.Measure(x, nil)
}

// Measure returns measurement H*x of internal state x.
// wn is added to the measurement as a noise vector if its length matches the measurement.
func (s System) Measure(x, wn mat.Vector) (mat.Vector, error) {
	nx, _, nz := s.SystemDims()
	if s.H == nil {
		return nil, fmt.Errorf("system has no measurement matrix")
	}

	if x.Len() != nx {
		return nil, fmt.Errorf("invalid state vector: %w", filter.ErrDimensionMismatch)
	}

	out := mat.NewVecDense(nz, nil)
	out.MulVec(s.H, x)

	if wn != nil && wn.Len() == nz {
		out.AddVec(out, wn)
	}

	return out, nil
}
