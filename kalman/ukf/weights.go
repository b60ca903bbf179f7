package ukf

import (
	"fmt"
)

// Weights are Van der Merwe scaled sigma point weights
type Weights struct {
	// Mean contains 2n+1 weights used to reconstruct the mean
	Mean []float64
	// Cov contains 2n+1 weights used to reconstruct the covariance
	Cov []float64
	// Lambda is the composite scaling parameter alpha^2*(n+kappa)-n
	Lambda float64
}

// NewWeights computes sigma point weights for state dimension n and scaling parameters alpha, beta and kappa.
// Mean weights always sum to 1. Covariance weights differ from mean weights only in the first
// element which includes the 1-alpha^2+beta correction term.
// It returns error if n is not positive or if n+lambda is not positive.
func NewWeights(n int, alpha, beta, kappa float64) (*Weights, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid state dimension: %d", n)
	}

	nf := float64(n)
	lambda := alpha*alpha*(nf+kappa) - nf
	if nf+lambda <= 0 {
		return nil, fmt.Errorf("invalid scaling parameters: alpha: %g, kappa: %g, n+lambda: %g", alpha, kappa, nf+lambda)
	}

	count := 2*n + 1
	wm := make([]float64, count)
	wc := make([]float64, count)

	w := 1 / (2 * (nf + lambda))
	for i := 1; i < count; i++ {
		wm[i] = w
		wc[i] = w
	}

	wm[0] = lambda / (nf + lambda)
	wc[0] = wm[0] + (1 - alpha*alpha + beta)

	return &Weights{
		Mean:   wm,
		Cov:    wc,
		Lambda: lambda,
	}, nil
}

// Count returns number of sigma points the weights are computed for
func (w *Weights) Count() int {
	return len(w.Mean)
}
