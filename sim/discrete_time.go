package sim

import (
	"fmt"

	filter "github.com/tinyest/go-estimate"
	"gonum.org/v1/gonum/mat"
)

// Discrete is a basic model of a linear, discrete-time, dynamical system
type Discrete struct {
	System
}

// NewDiscrete creates a linear discrete-time model based on the control theory equations.
//
//	x[n+1] = F*x[n] + B*u[n]
//	z[n] = H*x[n]
func NewDiscrete(F, B, H *mat.Dense) (*Discrete, error) {
	if F == nil {
		return nil, fmt.Errorf("state transition matrix must be defined for a model")
	}

	if r, c := F.Dims(); r != c {
		return nil, fmt.Errorf("invalid state transition matrix dimensions: [%d x %d]: %w", r, c, filter.ErrDimensionMismatch)
	}

	return &Discrete{System: newSystem(F, B, H)}, nil
}

// Step returns the next internal state x given an input vector u and process noise wd.
// Either of u or wd can be nil.
func (d *Discrete) Step(x, u, wd mat.Vector) (mat.Vector, error) {
	nx, nu, _ := d.SystemDims()
	if u != nil && u.Len() != nu {
		return nil, fmt.Errorf("invalid input vector: %w", filter.ErrDimensionMismatch)
	}

	if x.Len() != nx {
		return nil, fmt.Errorf("invalid state vector: %w", filter.ErrDimensionMismatch)
	}

	out := mat.NewVecDense(nx, nil)
	out.MulVec(d.F, x)

	if u != nil && d.B != nil {
		outU := mat.NewVecDense(nx, nil)
		outU.MulVec(d.B, u)
		out.AddVec(out, outU)
	}

	if wd != nil && wd.Len() == nx {
		out.AddVec(out, wd)
	}

	return out, nil
}

// Propagate returns F*x. The transition matrix already accounts for the time step so dt is ignored.
// It implements filter.Propagator.
func (d *Discrete) Propagate(x mat.Vector, dt float64) (mat.Vector, error) {
	return d.Step(x, nil, nil)
}
