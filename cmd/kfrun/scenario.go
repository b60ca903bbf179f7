package main

import (
	"fmt"
	"os"

	filter "github.com/tinyest/go-estimate"
	"github.com/tinyest/go-estimate/matrix"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

const (
	kindKF  = "kf"
	kindUKF = "ukf"
)

// Dims are filter dimensions
type Dims struct {
	State       int `yaml:"state"`
	Measurement int `yaml:"measurement"`
	Control     int `yaml:"control"`
}

// UKFParams are UKF tuning parameters
type UKFParams struct {
	Alpha float64 `yaml:"alpha"`
	Beta  float64 `yaml:"beta"`
	Kappa float64 `yaml:"kappa"`
	Dt    float64 `yaml:"dt"`
	// Angles are indices of measurement elements wrapped into [-pi, pi]
	Angles []int `yaml:"angles"`
}

// Noise configures simulated noise
type Noise struct {
	Seed uint64 `yaml:"seed"`
	// Q and R are process and measurement noise covariances used when simulating
	Q []float64 `yaml:"q"`
	R []float64 `yaml:"r"`
}

// Scenario is a filter run loaded from a YAML file.
// All matrices are stored in row-major order.
type Scenario struct {
	Filter string    `yaml:"filter"`
	Dims   Dims      `yaml:"dims"`
	X      []float64 `yaml:"x"`
	P      []float64 `yaml:"p"`
	F      []float64 `yaml:"f"`
	H      []float64 `yaml:"h"`
	Q      []float64 `yaml:"q"`
	R      []float64 `yaml:"r"`
	B      []float64 `yaml:"b,omitempty"`
	U      []float64 `yaml:"u,omitempty"`
	UKF    UKFParams `yaml:"ukf,omitempty"`
	Noise  *Noise    `yaml:"noise,omitempty"`
	// Measurements are filtered in order; each must have Dims.Measurement elements
	Measurements [][]float64 `yaml:"measurements"`
}

// LoadScenario reads scenario from the YAML file at path and validates it.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}

	return ParseScenario(data)
}

// ParseScenario decodes YAML scenario from data and validates it.
func ParseScenario(data []byte) (*Scenario, error) {
	sc := &Scenario{
		Filter: kindKF,
		UKF: UKFParams{
			Alpha: 1.0,
			Beta:  2.0,
		},
	}

	if err := yaml.Unmarshal(data, sc); err != nil {
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}

	if err := sc.Validate(); err != nil {
		return nil, err
	}

	return sc, nil
}

// field is a row-major matrix or vector with its expected number of elements
type field struct {
	name string
	data []float64
	size int
}

// Validate checks the scenario matrices agree with its dimensions.
func (sc *Scenario) Validate() error {
	if sc.Filter != kindKF && sc.Filter != kindUKF {
		return fmt.Errorf("unsupported filter: %q", sc.Filter)
	}

	nx, nz, nu := sc.Dims.State, sc.Dims.Measurement, sc.Dims.Control
	if nx <= 0 || nz <= 0 || nu < 0 {
		return fmt.Errorf("invalid dimensions: %+v: %w", sc.Dims, filter.ErrDimensionMismatch)
	}

	checks := []field{
		{"x", sc.X, nx},
		{"p", sc.P, nx * nx},
		{"f", sc.F, nx * nx},
		{"h", sc.H, nz * nx},
		{"q", sc.Q, nx * nx},
		{"r", sc.R, nz * nz},
	}

	if nu > 0 {
		checks = append(checks, field{"b", sc.B, nx * nu}, field{"u", sc.U, nu})
	}

	if sc.Noise != nil {
		checks = append(checks, field{"noise.q", sc.Noise.Q, nx * nx}, field{"noise.r", sc.Noise.R, nz * nz})
	}

	for _, c := range checks {
		if len(c.data) != c.size {
			return fmt.Errorf("invalid %s: expected %d elements, got %d: %w", c.name, c.size, len(c.data), filter.ErrDimensionMismatch)
		}
	}

	covs := []field{{"p", sc.P, nx}, {"q", sc.Q, nx}, {"r", sc.R, nz}}
	if sc.Noise != nil {
		covs = append(covs, field{"noise.q", sc.Noise.Q, nx}, field{"noise.r", sc.Noise.R, nz})
	}

	for _, c := range covs {
		if !matrix.IsSymmetric(dense(c.size, c.size, c.data), 1e-12) {
			return fmt.Errorf("invalid %s: covariance must be symmetric", c.name)
		}
	}

	for _, idx := range sc.UKF.Angles {
		if idx < 0 || idx >= nz {
			return fmt.Errorf("invalid angle index: %d", idx)
		}
	}

	for i, z := range sc.Measurements {
		if len(z) != nz {
			return fmt.Errorf("invalid measurement %d: %w", i, filter.ErrDimensionMismatch)
		}
	}

	return nil
}

func sym(n int, data []float64) *mat.SymDense {
	return mat.NewSymDense(n, append([]float64(nil), data...))
}

func dense(r, c int, data []float64) *mat.Dense {
	return mat.NewDense(r, c, append([]float64(nil), data...))
}
