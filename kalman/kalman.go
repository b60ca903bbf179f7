package kalman

import (
	filter "github.com/tinyest/go-estimate"
	"gonum.org/v1/gonum/mat"
)

// Kalman is Kalman Filter
type Kalman interface {
	// filter.Filter is dynamical system filter
	filter.Filter
	// Gain returns Kalman filter gain
	Gain() mat.Matrix
	// Residual returns the residual of the last update
	Residual() mat.Vector
}
