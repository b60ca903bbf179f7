package ukf

import (
	"fmt"
	"math"

	filter "github.com/tinyest/go-estimate"
	"github.com/tinyest/go-estimate/matrix"
	"gonum.org/v1/gonum/mat"
)

// VecFunc combines two vectors into a new vector
type VecFunc func(a, b mat.Vector) mat.Vector

// AddVec returns a+b
func AddVec(a, b mat.Vector) mat.Vector {
	sum := mat.NewVecDense(a.Len(), nil)
	sum.AddVec(a, b)

	return sum
}

// SubVec returns a-b
func SubVec(a, b mat.Vector) mat.Vector {
	diff := mat.NewVecDense(a.Len(), nil)
	diff.SubVec(a, b)

	return diff
}

// AngleAdd returns VecFunc which adds two vectors and wraps the elements at indices idx into [-pi, pi].
func AngleAdd(idx ...int) VecFunc {
	return func(a, b mat.Vector) mat.Vector {
		sum := mat.NewVecDense(a.Len(), nil)
		sum.AddVec(a, b)
		wrapAngles(sum, idx)

		return sum
	}
}

// AngleSub returns VecFunc which subtracts two vectors and wraps the elements at indices idx into [-pi, pi].
func AngleSub(idx ...int) VecFunc {
	return func(a, b mat.Vector) mat.Vector {
		diff := mat.NewVecDense(a.Len(), nil)
		diff.SubVec(a, b)
		wrapAngles(diff, idx)

		return diff
	}
}

func wrapAngles(v *mat.VecDense, idx []int) {
	for _, i := range idx {
		v.SetVec(i, math.Remainder(v.AtVec(i), 2*math.Pi))
	}
}

// SigmaPoints generates 2n+1 sigma points around mean x with covariance p using Van der Merwe's method.
// Sigma points are stored in the rows of the returned matrix: the first row is x,
// rows 1..n are x (+) U[i] and rows n+1..2n are x (-) U[i], where U is the upper triangular
// Cholesky factor of (n+lambda)*p and (+), (-) are add and sub.
// It returns error if (n+lambda)*p is not positive definite.
func SigmaPoints(x mat.Vector, p mat.Symmetric, lambda float64, add, sub VecFunc) (*mat.Dense, error) {
	n := x.Len()
	if p.SymmetricDim() != n {
		return nil, fmt.Errorf("invalid covariance dimension: %d != %d: %w", p.SymmetricDim(), n, filter.ErrDimensionMismatch)
	}

	scaled := mat.NewSymDense(n, nil)
	scaled.ScaleSym(float64(n)+lambda, p)

	u, err := matrix.CholUpper(scaled)
	if err != nil {
		return nil, fmt.Errorf("failed to factorize sigma point covariance: %w", err)
	}

	sigmas := mat.NewDense(2*n+1, n, nil)
	sigmas.SetRow(0, rawVec(x))

	ui := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			ui.SetVec(j, u.At(i, j))
		}

		plus := add(x, ui)
		if err := matrix.CheckVec("sigma point", plus, n); err != nil {
			return nil, err
		}
		sigmas.SetRow(i+1, rawVec(plus))

		minus := sub(x, ui)
		if err := matrix.CheckVec("sigma point", minus, n); err != nil {
			return nil, err
		}
		sigmas.SetRow(i+n+1, rawVec(minus))
	}

	return sigmas, nil
}

// rawVec returns a copy of v elements
func rawVec(v mat.Vector) []float64 {
	data := make([]float64, v.Len())
	for i := range data {
		data[i] = v.AtVec(i)
	}

	return data
}
