package noise

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	filter "github.com/tinyest/go-estimate"
	"gonum.org/v1/gonum/mat"
)

func TestNewZero(t *testing.T) {
	assert := assert.New(t)

	e, err := NewZero(2)
	assert.NotNil(e)
	assert.NoError(err)

	for _, size := range []int{0, -10} {
		e, err := NewZero(size)
		assert.Nil(e)
		assert.True(errors.Is(err, filter.ErrDimensionMismatch))
	}
}

func TestZeroMeanCov(t *testing.T) {
	assert := assert.New(t)

	e, err := NewZero(2)
	assert.NoError(err)

	assert.EqualValues([]float64{0, 0}, e.Mean())
	assert.True(mat.Equal(mat.NewSymDense(2, nil), e.Cov()))
}

func TestZeroSample(t *testing.T) {
	assert := assert.New(t)

	e, err := NewZero(2)
	assert.NoError(err)

	sample1 := e.Sample()
	assert.Equal(2, sample1.Len())
	assert.Equal(0.0, mat.Norm(sample1, 2))

	assert.NoError(e.Reset())
	assert.True(mat.Equal(sample1, e.Sample()))
}

func TestZeroString(t *testing.T) {
	assert := assert.New(t)

	str := `Zero{
Mean=[0 0]
Cov=⎡0  0⎤
    ⎣0  0⎦
}`

	e, err := NewZero(2)
	assert.NotNil(e)
	assert.NoError(err)
	assert.Equal(str, e.String())
}
