package noise

import (
	"os"
	"testing"

	filter "github.com/tinyest/go-estimate"
	"gonum.org/v1/gonum/mat"
)

var (
	mean []float64
	cov  *mat.SymDense
)

func setup() {
	mean = []float64{2, 3}
	cov = mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1})
}

func TestMain(m *testing.M) {
	// set up tests
	setup()
	// run the tests
	retCode := m.Run()
	// call with result of m.Run()
	os.Exit(retCode)
}

// noise sources are interchangeable behind filter.Noise
var (
	_ filter.Noise = (*Gaussian)(nil)
	_ filter.Noise = (*Zero)(nil)
)
