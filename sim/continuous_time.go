package sim

import (
	"fmt"

	"github.com/milosgajdos/matrix"
	filter "github.com/tinyest/go-estimate"
	"gonum.org/v1/gonum/mat"
)

// Continuous is a basic model of a linear, continuous-time, dynamical system.
// F holds the system matrix A of dx/dt = A*x + B*u.
type Continuous struct {
	System
}

// NewContinuous creates a linear continuous-time model
//
//	dx/dt = A*x + B*u
//	z = H*x
func NewContinuous(A, B, H *mat.Dense) (*Continuous, error) {
	if A == nil {
		return nil, fmt.Errorf("system matrix must be defined for a model")
	}

	if r, c := A.Dims(); r != c {
		return nil, fmt.Errorf("invalid system matrix dimensions: [%d x %d]: %w", r, c, filter.ErrDimensionMismatch)
	}

	return &Continuous{System: newSystem(A, B, H)}, nil
}

// ToDiscrete creates a discrete-time model from a continuous time model
// using dt as the sampling time.
//
//	F = exp(A*dt)
//	B = (exp(A*dt) - I)*inv(A)*B
//
// If A is singular B is integrated numerically.
func (ct *Continuous) ToDiscrete(dt float64) (*Discrete, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("invalid sampling time: %g", dt)
	}

	nx, _, _ := ct.SystemDims()
	dsys := newSystem(ct.F, ct.B, ct.H)

	adt := &mat.Dense{}
	adt.Scale(dt, ct.F)
	dsys.F.Exp(adt)

	if ct.B == nil {
		return &Discrete{dsys}, nil
	}

	eye, err := matrix.NewDenseValIdentity(nx, 1.0)
	if err != nil {
		return nil, err
	}

	aInv := &mat.Dense{}
	if err := aInv.Inverse(ct.F); err == nil {
		aux := &mat.Dense{}
		aux.Sub(dsys.F, eye)
		integ := &mat.Dense{}
		integ.Mul(aux, aInv)
		dsys.B.Mul(integ, ct.B)
		return &Discrete{dsys}, nil
	}

	// A is singular: integrate exp(A*t) from 0 to dt with trapezoidal rule
	const n = 100
	step := dt / float64(n)
	sum := mat.NewDense(nx, nx, nil)
	at := &mat.Dense{}
	expAt := &mat.Dense{}
	for i := 0; i <= n; i++ {
		at.Scale(step*float64(i), ct.F)
		expAt.Exp(at)
		w := step
		if i == 0 || i == n {
			w = step / 2
		}
		expAt.Scale(w, expAt)
		sum.Add(sum, expAt)
	}
	dsys.B.Mul(sum, ct.B)

	return &Discrete{dsys}, nil
}

// Propagate integrates dx/dt = A*x over time step dt using Euler's method.
// It implements filter.Propagator.
func (ct *Continuous) Propagate(x mat.Vector, dt float64) (mat.Vector, error) {
	nx, _, _ := ct.SystemDims()
	if x.Len() != nx {
		return nil, fmt.Errorf("invalid state vector: %w", filter.ErrDimensionMismatch)
	}

	out := mat.NewVecDense(nx, nil)
	out.MulVec(ct.F, x)
	out.AddScaledVec(x, dt, out)

	return out, nil
}
