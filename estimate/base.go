package estimate

import (
	"fmt"

	filter "github.com/tinyest/go-estimate"
	"gonum.org/v1/gonum/mat"
)

// Base is a snapshot of filter state: value and its covariance
type Base struct {
	// val is estimated value
	val *mat.VecDense
	// cov is estimated covariance
	cov *mat.SymDense
}

// NewBase returns estimate of val with zero covariance
func NewBase(val mat.Vector) (*Base, error) {
	if val == nil || val.Len() == 0 {
		return nil, fmt.Errorf("invalid estimate value: %w", filter.ErrDimensionMismatch)
	}

	return &Base{
		val: mat.VecDenseCopyOf(val),
		cov: mat.NewSymDense(val.Len(), nil),
	}, nil
}

// NewBaseWithCov returns estimate of val with covariance cov.
// It returns error if cov dimension does not match the length of val.
func NewBaseWithCov(val mat.Vector, cov mat.Symmetric) (*Base, error) {
	if val == nil || cov == nil {
		return nil, fmt.Errorf("invalid estimate: %w", filter.ErrDimensionMismatch)
	}

	if val.Len() != cov.SymmetricDim() {
		return nil, fmt.Errorf("invalid dimensions. Val: %d, Cov: %d x %d: %w",
			val.Len(), cov.SymmetricDim(), cov.SymmetricDim(), filter.ErrDimensionMismatch)
	}

	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)

	return &Base{
		val: mat.VecDenseCopyOf(val),
		cov: c,
	}, nil
}

// Val returns estimated value
func (b *Base) Val() mat.Vector {
	return mat.VecDenseCopyOf(b.val)
}

// Cov returns covariance estimate
func (b *Base) Cov() mat.Symmetric {
	cov := mat.NewSymDense(b.cov.SymmetricDim(), nil)
	cov.CopySym(b.cov)

	return cov
}

// String implements the Stringer interface.
func (b *Base) String() string {
	return fmt.Sprintf("Estimate{\nVal=%v\nCov=%v\n}",
		mat.Formatted(b.val.T(), mat.Squeeze()),
		mat.Formatted(b.cov, mat.Prefix("    "), mat.Squeeze()))
}
