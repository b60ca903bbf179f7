package kf

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	filter "github.com/tinyest/go-estimate"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	x0 *mat.VecDense
	p0 *mat.SymDense
	F  *mat.Dense
	H  *mat.Dense
	Q  *mat.SymDense
	R  *mat.SymDense
	// zs are simulated position measurements of a dog walking at roughly 1 unit per step
	zs []float64
)

func setup() {
	x0 = mat.NewVecDense(2, []float64{10.0, 4.5})
	p0 = mat.NewSymDense(2, []float64{500.0, 0.0, 0.0, 49.0})
	F = mat.NewDense(2, 2, []float64{1.0, 1.0, 0.0, 1.0})
	H = mat.NewDense(1, 2, []float64{1.0, 0.0})
	Q = mat.NewSymDense(2, []float64{0.003, 0.005, 0.005, 0.01})
	R = mat.NewSymDense(1, []float64{10.0})

	zs = []float64{
		5.149, -0.67, 1.682, 8.359, 6.92, 3.965, 7.562, 12.481, 4.108, 9.504,
		10.908, 12.667, 15.752, 13.828, 18.739, 19.99, 18.531, 19.017, 23.278, 17.531,
		19.646, 27.3, 25.764, 24.35, 25.279, 25.509, 30.114, 30.789, 29.292, 24.149,
		29.882, 30.941, 41.846, 35.893, 30.521, 32.702, 41.294, 38.97, 35.436, 41.388,
		38.02, 45.37, 44.643, 45.044, 47.595, 45.869, 48.74, 46.58, 52.872, 52.102,
	}
}

func TestMain(m *testing.M) {
	// set up tests
	setup()
	// run the tests
	retCode := m.Run()
	// call with result of m.Run()
	os.Exit(retCode)
}

func newTracker(t *testing.T) *KF {
	f, err := New(2, 1, 0)
	require.NoError(t, err)
	require.NoError(t, f.Init(x0, R, p0, H, Q, F))

	return f
}

// loewnerLE returns true if b - a is positive semi-definite within tol.
func loewnerLE(a, b mat.Symmetric, tol float64) bool {
	n := a.SymmetricDim()
	diff := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			diff.SetSym(i, j, b.At(i, j)-a.At(i, j))
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(diff, false); !ok {
		return false
	}

	return floats.Min(eig.Values(nil)) >= -tol
}

func TestKFNew(t *testing.T) {
	assert := assert.New(t)

	f, err := New(2, 1, 0)
	assert.NotNil(f)
	assert.NoError(err)

	// default state is zero, default covariances are identity
	assert.Equal(0.0, f.State().AtVec(0))
	assert.Equal(1.0, f.Cov().At(1, 1))
	assert.Equal(0.0, f.Cov().At(0, 1))

	nx, nz, nu := f.Dims()
	assert.Equal(2, nx)
	assert.Equal(1, nz)
	assert.Equal(0, nu)

	for _, dims := range [][3]int{{0, 1, 0}, {2, 0, 0}, {-1, 1, 0}, {2, 1, -1}} {
		f, err = New(dims[0], dims[1], dims[2])
		assert.Nil(f)
		assert.True(errors.Is(err, filter.ErrDimensionMismatch))
	}
}

func TestKFInit(t *testing.T) {
	assert := assert.New(t)

	f, err := New(2, 1, 0)
	assert.NoError(err)

	err = f.Init(x0, R, p0, H, Q, F)
	assert.NoError(err)
	assert.True(mat.Equal(x0, f.State()))
	assert.True(mat.Equal(p0, f.Cov()))

	badSym := mat.NewSymDense(3, nil)
	badDense := mat.NewDense(3, 3, nil)

	testCases := []struct {
		name string
		init func() error
	}{
		{"state", func() error { return f.Init(mat.NewVecDense(3, nil), R, p0, H, Q, F) }},
		{"measurement noise", func() error { return f.Init(x0, badSym, p0, H, Q, F) }},
		{"state covariance", func() error { return f.Init(x0, R, badSym, H, Q, F) }},
		{"measurement matrix", func() error { return f.Init(x0, R, p0, badDense, Q, F) }},
		{"process noise", func() error { return f.Init(x0, R, p0, H, badSym, F) }},
		{"transition matrix", func() error { return f.Init(x0, R, p0, H, Q, badDense) }},
		{"nil covariance", func() error { return f.Init(x0, R, nil, H, Q, F) }},
	}

	for _, tc := range testCases {
		err := tc.init()
		assert.True(errors.Is(err, filter.ErrDimensionMismatch), tc.name)
		// failed init must not modify the filter
		assert.True(mat.Equal(x0, f.State()), tc.name)
		assert.True(mat.Equal(p0, f.Cov()), tc.name)
	}
}

func TestKFSetControl(t *testing.T) {
	assert := assert.New(t)

	f := newTracker(t)
	err := f.SetControl(mat.NewDense(2, 1, nil), mat.NewVecDense(1, nil))
	assert.True(errors.Is(err, filter.ErrDimensionMismatch))

	fc, err := New(2, 1, 1)
	assert.NoError(err)
	assert.NoError(fc.Init(x0, R, p0, H, Q, F))

	B := mat.NewDense(2, 1, []float64{0.5, 1.0})
	u := mat.NewVecDense(1, []float64{-1.0})

	assert.Error(fc.SetControl(mat.NewDense(1, 1, nil), u))
	assert.Error(fc.SetControl(B, mat.NewVecDense(2, nil)))
	assert.NoError(fc.SetControl(B, u))

	assert.NoError(fc.Predict())
	// x = F*x + B*u
	assert.InDelta(10.0+4.5-0.5, fc.State().AtVec(0), 1e-12)
	assert.InDelta(4.5-1.0, fc.State().AtVec(1), 1e-12)
}

func TestKFPredict(t *testing.T) {
	assert := assert.New(t)

	f := newTracker(t)
	assert.NoError(f.Predict())

	x := f.State()
	assert.InDelta(14.5, x.AtVec(0), 1e-12)
	assert.InDelta(4.5, x.AtVec(1), 1e-12)

	// P = F*P*F' + Q
	p := f.Cov()
	assert.InDelta(549.003, p.At(0, 0), 1e-9)
	assert.InDelta(49.005, p.At(0, 1), 1e-9)
	assert.InDelta(49.005, p.At(1, 0), 1e-9)
	assert.InDelta(49.01, p.At(1, 1), 1e-9)
}

func TestKFUpdate(t *testing.T) {
	assert := assert.New(t)

	f := newTracker(t)
	assert.NoError(f.Update(mat.NewVecDense(1, []float64{12.0})))

	// K = P*H'/(H*P*H' + R)
	assert.InDelta(500.0/510.0, f.Gain().At(0, 0), 1e-12)
	assert.InDelta(2.0, f.Residual().AtVec(0), 1e-12)
	assert.InDelta(510.0, f.InnovationCov().At(0, 0), 1e-12)
	assert.InDelta(10.0+2.0*500.0/510.0, f.State().AtVec(0), 1e-12)

	// invalid measurement vector
	err := f.Update(mat.NewVecDense(3, nil))
	assert.True(errors.Is(err, filter.ErrDimensionMismatch))
}

func TestKFZeroResidual(t *testing.T) {
	assert := assert.New(t)

	f := newTracker(t)
	assert.NoError(f.Predict())

	xPrior := f.State()
	pPrior := f.Cov()

	z := mat.NewVecDense(1, nil)
	z.MulVec(H, xPrior)

	assert.NoError(f.Update(z))
	// zero residual means no correction of the state
	assert.True(mat.Equal(xPrior, f.State()))
	assert.Equal(0.0, f.Residual().AtVec(0))
	// update never increases uncertainty
	assert.True(loewnerLE(f.Cov(), pPrior, 1e-9))
}

func TestKFRepeatedUpdate(t *testing.T) {
	assert := assert.New(t)

	f := newTracker(t)
	assert.NoError(f.Predict())

	z := mat.NewVecDense(1, []float64{20.0})

	x := f.State()
	assert.NoError(f.Update(z))
	x1 := f.State()
	assert.NoError(f.Update(z))
	x2 := f.State()

	d1 := &mat.VecDense{}
	d1.SubVec(x1, x)
	d2 := &mat.VecDense{}
	d2.SubVec(x2, x1)

	assert.Less(mat.Norm(d2, 2), mat.Norm(d1, 2))
}

func TestKFDogTracker(t *testing.T) {
	assert := assert.New(t)

	f := newTracker(t)

	prev := f.Cov().At(0, 0)
	for _, z := range zs {
		err := f.Run(mat.NewVecDense(1, []float64{z}))
		assert.NoError(err)

		p := f.Cov()
		assert.LessOrEqual(p.At(0, 0), prev+1e-9)
		prev = p.At(0, 0)

		assert.Equal(p.At(0, 1), p.At(1, 0))
	}

	last := zs[len(zs)-1]
	assert.InDelta(last, f.State().AtVec(0), 5.0)
}

func TestKFSingular(t *testing.T) {
	assert := assert.New(t)

	f, err := New(2, 2, 0)
	assert.NoError(err)

	// both measurement rows observe the position; with no noise S is singular
	h := mat.NewDense(2, 2, []float64{1.0, 0.0, 1.0, 0.0})
	r := mat.NewSymDense(2, nil)
	assert.NoError(f.Init(x0, r, p0, h, Q, F))

	x := f.State()
	p := f.Cov()

	err = f.Update(mat.NewVecDense(2, []float64{11.0, 12.0}))
	assert.Error(err)
	assert.True(errors.Is(err, filter.ErrSingularMatrix))
	assert.True(mat.Equal(x, f.State()))
	assert.True(mat.Equal(p, f.Cov()))
}

func TestKFSetGain(t *testing.T) {
	assert := assert.New(t)

	f := newTracker(t)

	assert.Error(f.SetGain(mat.NewDense(1, 2, nil)))

	gain := mat.NewDense(2, 1, []float64{0.5, 0.1})
	assert.NoError(f.SetGain(gain))

	// singular S is never computed with fixed gain
	assert.NoError(f.Update(mat.NewVecDense(1, []float64{14.0})))
	assert.InDelta(12.0, f.State().AtVec(0), 1e-12)
	assert.InDelta(4.9, f.State().AtVec(1), 1e-12)
	assert.True(mat.Equal(gain, f.Gain()))

	// computed gain is restored
	assert.NoError(f.SetGain(nil))
	assert.NoError(f.Update(mat.NewVecDense(1, []float64{14.0})))
	assert.False(mat.Equal(gain, f.Gain()))
}

func TestKFStateCov(t *testing.T) {
	assert := assert.New(t)

	f := newTracker(t)

	cov := f.Cov()
	assert.NotNil(cov)

	err := f.SetCov(nil)
	assert.Error(err)

	err = f.SetCov(mat.NewSymDense(30, nil))
	assert.Error(err)

	err = f.SetCov(mat.NewSymDense(2, []float64{2.0, 0.0, 0.0, 2.0}))
	assert.NoError(err)
	assert.Equal(2.0, f.Cov().At(1, 1))

	assert.Error(f.SetState(mat.NewVecDense(1, nil)))
	assert.NoError(f.SetState(mat.NewVecDense(2, []float64{1.0, 2.0})))
	assert.Equal(2.0, f.State().AtVec(1))

	est, err := f.Estimate()
	assert.NoError(err)
	assert.Equal(1.0, est.Val().AtVec(0))
	assert.Equal(2.0, est.Cov().At(0, 0))
}
