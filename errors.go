package filter

import "errors"

var (
	// ErrDimensionMismatch is returned when a matrix or vector shape disagrees with filter dimensions
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrSingularMatrix is returned when innovation covariance can not be inverted
	ErrSingularMatrix = errors.New("singular matrix")
	// ErrNotPositiveDefinite is returned when covariance has no Cholesky factorization
	ErrNotPositiveDefinite = errors.New("covariance not positive definite")
)
