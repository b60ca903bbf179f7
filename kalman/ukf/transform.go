package ukf

import (
	"fmt"
	"math"

	filter "github.com/tinyest/go-estimate"
	"github.com/tinyest/go-estimate/matrix"
	"gonum.org/v1/gonum/mat"
)

// MeanFunc computes the mean of sigma points stored in rows of sigmas using mean weights wm
type MeanFunc func(sigmas *mat.Dense, wm []float64) *mat.VecDense

// WeightedMean returns the wm weighted sum of sigma points
func WeightedMean(sigmas *mat.Dense, wm []float64) *mat.VecDense {
	rows, cols := sigmas.Dims()
	mean := mat.NewVecDense(cols, nil)
	mean.MulVec(sigmas.T(), mat.NewVecDense(rows, wm))

	return mean
}

// AngleMean returns MeanFunc which computes the weighted circular mean of the elements at indices idx
// and the weighted sum of the remaining elements. Circular means are in [-pi, pi].
func AngleMean(idx ...int) MeanFunc {
	return func(sigmas *mat.Dense, wm []float64) *mat.VecDense {
		mean := WeightedMean(sigmas, wm)
		rows, _ := sigmas.Dims()
		for _, j := range idx {
			var sin, cos float64
			for i := 0; i < rows; i++ {
				sin += wm[i] * math.Sin(sigmas.At(i, j))
				cos += wm[i] * math.Cos(sigmas.At(i, j))
			}
			mean.SetVec(j, math.Atan2(sin, cos))
		}

		return mean
	}
}

// UnscentedTransform reconstructs mean and covariance from sigma points stored in rows of sigmas.
// The mean is computed by mean; WeightedMean is used if mean is nil. The covariance is the Wc
// weighted sum of outer products of sub(sigma, mean) with additive noise added to it. noise may be nil.
// It returns error if the weights, noise, mean or sub results do not match sigmas dimensions.
func UnscentedTransform(sigmas *mat.Dense, w *Weights, noise mat.Symmetric, mean MeanFunc, sub VecFunc) (*mat.VecDense, *mat.SymDense, error) {
	rows, cols := sigmas.Dims()
	if rows != w.Count() {
		return nil, nil, fmt.Errorf("invalid number of sigma points: %d != %d: %w", rows, w.Count(), filter.ErrDimensionMismatch)
	}

	if noise != nil && noise.SymmetricDim() != cols {
		return nil, nil, fmt.Errorf("invalid noise dimension: %d != %d: %w", noise.SymmetricDim(), cols, filter.ErrDimensionMismatch)
	}

	if mean == nil {
		mean = WeightedMean
	}

	mu := mean(sigmas, w.Mean)
	if err := matrix.CheckVec("mean", mu, cols); err != nil {
		return nil, nil, err
	}

	cov := mat.NewSymDense(cols, nil)
	for i := 0; i < rows; i++ {
		d := sub(sigmas.RowView(i), mu)
		if err := matrix.CheckVec("residual", d, cols); err != nil {
			return nil, nil, err
		}
		cov.SymRankOne(cov, w.Cov[i], d)
	}

	if noise != nil {
		cov.AddSym(cov, noise)
	}

	return mu, cov, nil
}
