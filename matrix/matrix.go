// Package matrix provides gonum helpers shared by the filters.
package matrix

import (
	"errors"
	"fmt"

	filter "github.com/tinyest/go-estimate"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

// Eye returns n x n identity matrix.
func Eye(n int) *mat.DiagDense {
	data := make([]float64, n)
	for i := range data {
		data[i] = 1.0
	}

	return mat.NewDiagDense(n, data)
}

// Symmetrize returns the symmetric part of the square matrix m i.e. (m + m')/2.
// It panics if m is not square.
func Symmetrize(m mat.Matrix) *mat.SymDense {
	r, c := m.Dims()
	if r != c {
		panic(mat.ErrSquare)
	}

	sym := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			sym.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}

	return sym
}

// CheckDims returns error if m is nil or its dimensions are not [rows x cols].
func CheckDims(name string, m mat.Matrix, rows, cols int) error {
	if m == nil {
		return fmt.Errorf("invalid %s matrix: %w", name, filter.ErrDimensionMismatch)
	}

	r, c := m.Dims()
	if r != rows || c != cols {
		return fmt.Errorf("invalid %s matrix dimensions: [%d x %d] != [%d x %d]: %w",
			name, r, c, rows, cols, filter.ErrDimensionMismatch)
	}

	return nil
}

// CheckVec returns error if v is nil or its length is not n.
func CheckVec(name string, v mat.Vector, n int) error {
	if v == nil {
		return fmt.Errorf("invalid %s vector: %w", name, filter.ErrDimensionMismatch)
	}

	if v.Len() != n {
		return fmt.Errorf("invalid %s vector length: %d != %d: %w", name, v.Len(), n, filter.ErrDimensionMismatch)
	}

	return nil
}

// Inverse returns inverse of the square matrix m.
// It returns error wrapping filter.ErrSingularMatrix if m is singular or too ill-conditioned to invert.
func Inverse(m mat.Matrix) (*mat.Dense, error) {
	inv := &mat.Dense{}
	if err := inv.Inverse(m); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return nil, fmt.Errorf("condition number %g: %w", float64(cond), filter.ErrSingularMatrix)
		}
		return nil, fmt.Errorf("%v: %w", err, filter.ErrSingularMatrix)
	}

	return inv, nil
}

// CholUpper returns upper triangular Cholesky factor U of p such that p = U'*U.
// It returns error wrapping filter.ErrNotPositiveDefinite if p is not positive definite.
func CholUpper(p mat.Symmetric) (*mat.TriDense, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(p); !ok {
		return nil, filter.ErrNotPositiveDefinite
	}

	u := &mat.TriDense{}
	chol.UTo(u)

	return u, nil
}

// IsSymmetric returns true if square matrix m is symmetric within tolerance tol.
func IsSymmetric(m mat.Matrix, tol float64) bool {
	r, c := m.Dims()
	if r != c {
		return false
	}

	for i := 0; i < r; i++ {
		for j := i + 1; j < r; j++ {
			if !scalar.EqualWithinAbsOrRel(m.At(i, j), m.At(j, i), tol, tol) {
				return false
			}
		}
	}

	return true
}

// EyeSym returns n x n symmetric identity matrix.
func EyeSym(n int) *mat.SymDense {
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		sym.SetSym(i, i, 1.0)
	}

	return sym
}

// CheckSym returns error if m is nil or its dimension is not n.
func CheckSym(name string, m mat.Symmetric, n int) error {
	if m == nil {
		return fmt.Errorf("invalid %s matrix: %w", name, filter.ErrDimensionMismatch)
	}

	return CheckDims(name, m, n, n)
}
