// Package sim simulates linear dynamical systems and plots filter results.
package sim

import (
	"fmt"

	filter "github.com/tinyest/go-estimate"
	"github.com/tinyest/go-estimate/noise"
	"gonum.org/v1/gonum/mat"
)

// Trajectory is a simulated run of a system
type Trajectory struct {
	// States stores true system states in rows
	States *mat.Dense
	// Measurements stores noisy measurements in rows
	Measurements *mat.Dense
}

// Simulate runs system d for given number of steps starting from state x0 with constant input u.
// Process noise q is added to every state and measurement noise r to every measurement.
// Any of u, q and r can be nil.
func Simulate(d *Discrete, x0, u mat.Vector, steps int, q, r filter.Noise) (*Trajectory, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("invalid number of steps: %d", steps)
	}

	nx, _, nz := d.SystemDims()
	if d.H == nil {
		return nil, fmt.Errorf("system has no measurement matrix")
	}

	var err error
	if q == nil {
		if q, err = noise.NewZero(nx); err != nil {
			return nil, err
		}
	}

	if r == nil {
		if r, err = noise.NewZero(nz); err != nil {
			return nil, err
		}
	}

	states := mat.NewDense(steps, nx, nil)
	meas := mat.NewDense(steps, nz, nil)

	x := x0
	for i := 0; i < steps; i++ {
		x, err = d.Step(x, u, q.Sample())
		if err != nil {
			return nil, fmt.Errorf("state propagation failed: %w", err)
		}

		z, err := d.Measure(x, r.Sample())
		if err != nil {
			return nil, fmt.Errorf("measurement failed: %w", err)
		}

		states.SetRow(i, mat.VecDenseCopyOf(x).RawVector().Data)
		meas.SetRow(i, mat.VecDenseCopyOf(z).RawVector().Data)
	}

	return &Trajectory{
		States:       states,
		Measurements: meas,
	}, nil
}

// InitCond is initial state condition of the filter
type InitCond struct {
	state *mat.VecDense
	cov   *mat.SymDense
}

// NewInitCond creates new InitCond and returns it
func NewInitCond(state mat.Vector, cov mat.Symmetric) (*InitCond, error) {
	if state == nil || cov == nil {
		return nil, fmt.Errorf("invalid initial condition")
	}

	if cov.SymmetricDim() != state.Len() {
		return nil, fmt.Errorf("invalid initial condition dimensions: %w", filter.ErrDimensionMismatch)
	}

	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)

	return &InitCond{
		state: mat.VecDenseCopyOf(state),
		cov:   c,
	}, nil
}

// State returns initial state
func (c *InitCond) State() mat.Vector {
	return mat.VecDenseCopyOf(c.state)
}

// Cov returns initial covariance
func (c *InitCond) Cov() mat.Symmetric {
	cov := mat.NewSymDense(c.cov.SymmetricDim(), nil)
	cov.CopySym(c.cov)

	return cov
}
