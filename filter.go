package filter

import "gonum.org/v1/gonum/mat"

// Filter is a dynamical system filter which owns its state between calls.
type Filter interface {
	// Predict advances the internal state of the filter to the next step
	Predict() error
	// Update corrects the internal state using external measurement
	Update(mat.Vector) error
	// State returns the current state estimate
	State() mat.Vector
	// Cov returns the current state covariance
	Cov() mat.Symmetric
}

// Propagator propagates internal state of the system to the next step
type Propagator interface {
	// Propagate propagates state x by time step dt
	Propagate(x mat.Vector, dt float64) (mat.Vector, error)
}

// PropagatorFunc is an adapter which allows to use ordinary functions as Propagator
type PropagatorFunc func(x mat.Vector, dt float64) (mat.Vector, error)

// Propagate calls f(x, dt)
func (f PropagatorFunc) Propagate(x mat.Vector, dt float64) (mat.Vector, error) {
	return f(x, dt)
}

// Observer observes external state (output) of the system
type Observer interface {
	// Observe maps state x into measurement space
	Observe(x mat.Vector) (mat.Vector, error)
}

// ObserverFunc is an adapter which allows to use ordinary functions as Observer
type ObserverFunc func(x mat.Vector) (mat.Vector, error)

// Observe calls f(x)
func (f ObserverFunc) Observe(x mat.Vector) (mat.Vector, error) {
	return f(x)
}

// InitCond is initial state condition of the filter
type InitCond interface {
	// State returns initial filter state
	State() mat.Vector
	// Cov returns initial state covariance
	Cov() mat.Symmetric
}

// Estimate is dynamical system filter estimate
type Estimate interface {
	// Val returns estimate value
	Val() mat.Vector
	// Cov returns estimate covariance
	Cov() mat.Symmetric
}

// Noise is dynamical system noise
type Noise interface {
	// Mean returns noise mean
	Mean() []float64
	// Cov returns covariance matrix of the noise
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Reset resets the noise
	Reset() error
}
