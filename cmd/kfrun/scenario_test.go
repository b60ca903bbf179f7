package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	filter "github.com/tinyest/go-estimate"
)

var (
	dogTracker string
	singular   string
	control    string
)

func setup() {
	dogTracker = filepath.Join("testdata", "dogtracker.yml")
	singular = filepath.Join("testdata", "singular.yml")
	control = filepath.Join("testdata", "control.yml")
}

func TestMain(m *testing.M) {
	// set up tests
	setup()
	// run the tests
	retCode := m.Run()
	// call with result of m.Run()
	os.Exit(retCode)
}

// scenarioYAML returns a valid one dimensional scenario with overrides applied
func scenarioYAML(overrides map[string]string) string {
	fields := map[string]string{
		"dims": "{state: 1, measurement: 1}",
		"x":    "[0]",
		"p":    "[1]",
		"f":    "[1]",
		"h":    "[1]",
		"q":    "[1]",
		"r":    "[1]",
	}
	for k, v := range overrides {
		fields[k] = v
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, fields[k])
	}

	return b.String()
}

func TestLoadScenario(t *testing.T) {
	assert := assert.New(t)

	sc, err := LoadScenario(dogTracker)
	require.NoError(t, err)

	assert.Equal(kindKF, sc.Filter)
	assert.Equal(Dims{State: 2, Measurement: 1}, sc.Dims)
	assert.Equal([]float64{500.0, 0.0, 0.0, 49.0}, sc.P)
	assert.Len(sc.Measurements, 50)
	assert.Equal(52.102, sc.Measurements[49][0])
	assert.Equal(1.0, sc.UKF.Kappa)
	assert.Equal(uint64(42), sc.Noise.Seed)

	_, err = LoadScenario(filepath.Join("testdata", "missing.yml"))
	assert.Error(err)
}

func TestParseScenario(t *testing.T) {
	assert := assert.New(t)

	sc, err := ParseScenario([]byte(scenarioYAML(nil)))
	assert.NoError(err)
	// defaults
	assert.Equal(kindKF, sc.Filter)
	assert.Equal(1.0, sc.UKF.Alpha)
	assert.Equal(2.0, sc.UKF.Beta)
	assert.Nil(sc.Noise)

	testCases := []struct {
		name      string
		overrides map[string]string
		err       error
	}{
		{"unknown filter", map[string]string{"filter": "pf"}, nil},
		{"bad state", map[string]string{"x": "[0, 1]"}, filter.ErrDimensionMismatch},
		{"bad measurement", map[string]string{"measurements": "[[1, 2]]"}, filter.ErrDimensionMismatch},
		{"missing control", map[string]string{"dims": "{state: 1, measurement: 1, control: 1}"}, filter.ErrDimensionMismatch},
		{"bad dims", map[string]string{"dims": "{state: 0, measurement: 1}"}, filter.ErrDimensionMismatch},
		{"bad angle", map[string]string{"ukf": "{angles: [3]}"}, nil},
		{"bad noise", map[string]string{"noise": "{q: [1, 2]}"}, filter.ErrDimensionMismatch},
		{"asymmetric covariance", map[string]string{"dims": "{state: 2, measurement: 1}", "x": "[0, 0]", "p": "[1, 0.5, 0, 1]", "f": "[1, 0, 0, 1]", "h": "[1, 0]", "q": "[1, 0, 0, 1]"}, nil},
		{"invalid yaml", map[string]string{"dims": "["}, nil},
	}

	for _, tc := range testCases {
		sc, err := ParseScenario([]byte(scenarioYAML(tc.overrides)))
		assert.Nil(sc, tc.name)
		assert.Error(err, tc.name)
		if tc.err != nil {
			assert.True(errors.Is(err, tc.err), tc.name)
		}
	}
}
