package ukf

import (
	"fmt"

	filter "github.com/tinyest/go-estimate"
	"github.com/tinyest/go-estimate/estimate"
	"github.com/tinyest/go-estimate/matrix"
	"gonum.org/v1/gonum/mat"
)

// Config contains UKF configuration parameters
type Config struct {
	// Dt is time step passed to the process model [s]
	Dt float64
	// Alpha is alpha parameter (0,1]: spread of the sigma points
	Alpha float64
	// Beta is beta parameter (2 is optimal choice for Gaussian)
	Beta float64
	// Kappa is secondary scaling parameter, usually 0
	Kappa float64
	// Combine adds two state vectors; vector addition is used if nil
	Combine VecFunc
	// Separate subtracts two state vectors; vector subtraction is used if nil.
	// It is never applied in measurement space: use MeasurementSeparate for measurement residuals.
	Separate VecFunc
	// MeasurementSeparate subtracts two measurement vectors; vector subtraction is used if nil
	MeasurementSeparate VecFunc
	// StateMean computes the mean of state sigma points; WeightedMean is used if nil
	StateMean MeanFunc
	// MeasurementMean computes the mean of measurement sigma points; WeightedMean is used if nil
	MeasurementMean MeanFunc
}

// UKF is Unscented (aka Sigma Point) Kalman Filter
type UKF struct {
	// nx, nz and nu are state, measurement and control dimensions
	nx, nz, nu int
	// dt is process model time step
	dt float64
	// f is process model
	f filter.Propagator
	// h is measurement model
	h filter.Observer
	// add, sub and subZ are state combine, state separate and measurement separate operators
	add, sub, subZ VecFunc
	// mean and meanZ compute state and measurement sigma point means
	mean, meanZ MeanFunc
	// w are sigma point weights
	w *Weights
	// x is the current state estimate
	x *mat.VecDense
	// p is the UKF covariance matrix
	p *mat.SymDense
	// q is process noise covariance
	q *mat.SymDense
	// r is measurement noise covariance
	r *mat.SymDense
	// b is control matrix; nil when nu is 0
	b *mat.Dense
	// u is control vector; nil when nu is 0
	u *mat.VecDense
	// sigmasF stores sigma points propagated by the process model
	sigmasF *mat.Dense
	// sigmasH stores sigma points projected by the measurement model
	sigmasH *mat.Dense
	// inn is the residual of the last update
	inn *mat.VecDense
	// s is innovation covariance of the last update
	s *mat.SymDense
	// k is Kalman gain
	k *mat.Dense
}

// New creates new UKF and returns it.
// It accepts the following arguments:
//   - nx, nz, nu: state, measurement and control dimensions
//   - f:          process model
//   - h:          measurement model
//   - c:          filter configuration
//
// State is initialized to zero vector and P, Q and R to identity matrices.
// It returns error if the dimensions are invalid, either of the models is nil or the configuration is invalid.
func New(nx, nz, nu int, f filter.Propagator, h filter.Observer, c *Config) (*UKF, error) {
	if nx <= 0 || nz <= 0 || nu < 0 {
		return nil, fmt.Errorf("invalid filter dimensions: [%d x %d x %d]: %w", nx, nz, nu, filter.ErrDimensionMismatch)
	}

	if f == nil || h == nil {
		return nil, fmt.Errorf("invalid models: process and measurement models are required")
	}

	if c == nil {
		return nil, fmt.Errorf("invalid config: %v", c)
	}

	if c.Alpha <= 0 || c.Beta < 0 || c.Dt < 0 {
		return nil, fmt.Errorf("invalid config supplied: %+v", *c)
	}

	w, err := NewWeights(nx, c.Alpha, c.Beta, c.Kappa)
	if err != nil {
		return nil, fmt.Errorf("failed to compute sigma point weights: %w", err)
	}

	k := &UKF{
		nx:      nx,
		nz:      nz,
		nu:      nu,
		dt:      c.Dt,
		f:       f,
		h:       h,
		add:     AddVec,
		sub:     SubVec,
		subZ:    SubVec,
		mean:    WeightedMean,
		meanZ:   WeightedMean,
		w:       w,
		x:       mat.NewVecDense(nx, nil),
		p:       matrix.EyeSym(nx),
		q:       matrix.EyeSym(nx),
		r:       matrix.EyeSym(nz),
		sigmasF: mat.NewDense(w.Count(), nx, nil),
		sigmasH: mat.NewDense(w.Count(), nz, nil),
		inn:     mat.NewVecDense(nz, nil),
		s:       mat.NewSymDense(nz, nil),
		k:       mat.NewDense(nx, nz, nil),
	}

	if c.Combine != nil {
		k.add = c.Combine
	}

	if c.Separate != nil {
		k.sub = c.Separate
	}

	if c.MeasurementSeparate != nil {
		k.subZ = c.MeasurementSeparate
	}

	if c.StateMean != nil {
		k.mean = c.StateMean
	}

	if c.MeasurementMean != nil {
		k.meanZ = c.MeasurementMean
	}

	if nu > 0 {
		k.b = mat.NewDense(nx, nu, nil)
		k.u = mat.NewVecDense(nu, nil)
	}

	return k, nil
}

// Init initializes filter state x, state covariance p, process noise q and measurement noise r.
// It returns error if any of them does not match the filter dimensions; the filter is left unmodified.
func (k *UKF) Init(x mat.Vector, p, q, r mat.Symmetric) error {
	if err := matrix.CheckVec("state", x, k.nx); err != nil {
		return err
	}

	if err := matrix.CheckSym("state covariance", p, k.nx); err != nil {
		return err
	}

	if err := matrix.CheckSym("process noise", q, k.nx); err != nil {
		return err
	}

	if err := matrix.CheckSym("measurement noise", r, k.nz); err != nil {
		return err
	}

	k.x.CopyVec(x)
	k.p.CopySym(p)
	k.q.CopySym(q)
	k.r.CopySym(r)

	return nil
}

// SetControl sets control matrix b and control vector u.
// Control input b*u is combined with every propagated sigma point.
// It returns error if the filter has no control input or if the dimensions do not match.
func (k *UKF) SetControl(b mat.Matrix, u mat.Vector) error {
	if k.nu == 0 {
		return fmt.Errorf("filter has no control input: %w", filter.ErrDimensionMismatch)
	}

	if err := matrix.CheckDims("control", b, k.nx, k.nu); err != nil {
		return err
	}

	if err := matrix.CheckVec("control", u, k.nu); err != nil {
		return err
	}

	k.b.Copy(b)
	k.u.CopyVec(u)

	return nil
}

// Predict generates sigma points around the current state, propagates them through the process model
// and reconstructs the predicted state and covariance using the unscented transform.
// It returns error if the covariance is not positive definite or if the process model fails.
// Filter state is left unmodified when error is returned.
func (k *UKF) Predict() error {
	sigmas, err := SigmaPoints(k.x, k.p, k.w.Lambda, k.add, k.sub)
	if err != nil {
		return fmt.Errorf("failed to generate sigma points: %w", err)
	}

	var bu *mat.VecDense
	if k.b != nil {
		bu = mat.NewVecDense(k.nx, nil)
		bu.MulVec(k.b, k.u)
	}

	sigmasF := mat.NewDense(k.w.Count(), k.nx, nil)
	for i := 0; i < k.w.Count(); i++ {
		xi, err := k.f.Propagate(mat.VecDenseCopyOf(sigmas.RowView(i)), k.dt)
		if err != nil {
			return fmt.Errorf("failed to propagate sigma point: %w", err)
		}

		if err := matrix.CheckVec("propagated sigma point", xi, k.nx); err != nil {
			return err
		}

		if bu != nil {
			xi = k.add(xi, bu)
		}

		sigmasF.SetRow(i, rawVec(xi))
	}

	x, p, err := UnscentedTransform(sigmasF, k.w, k.q, k.mean, k.sub)
	if err != nil {
		return fmt.Errorf("failed to transform propagated sigma points: %w", err)
	}

	k.x = x
	k.p = p
	k.sigmasF = sigmasF

	return nil
}

// Update corrects the filter state using measurement z.
// It generates sigma points around the predicted state and covariance, projects them into
// measurement space, reconstructs predicted measurement and its covariance S and corrects the state:
//
//	K = Pxz*inv(S)
//	x = x (+) K*(z (-) zPred)
//	P = P - K*S*K'
//
// Sigma points are always drawn from the current x and P so that the process noise Q
// added by Predict is accounted for in S and the cross covariance.
// It returns error if z has invalid length, the measurement model fails or S is singular.
// Filter state is left unmodified when error is returned.
func (k *UKF) Update(z mat.Vector) error {
	if err := matrix.CheckVec("measurement", z, k.nz); err != nil {
		return err
	}

	sigmas, err := SigmaPoints(k.x, k.p, k.w.Lambda, k.add, k.sub)
	if err != nil {
		return fmt.Errorf("failed to generate sigma points: %w", err)
	}

	sigmasH := mat.NewDense(k.w.Count(), k.nz, nil)
	for i := 0; i < k.w.Count(); i++ {
		zi, err := k.h.Observe(mat.VecDenseCopyOf(sigmas.RowView(i)))
		if err != nil {
			return fmt.Errorf("failed to observe sigma point: %w", err)
		}

		if err := matrix.CheckVec("observed sigma point", zi, k.nz); err != nil {
			return err
		}

		sigmasH.SetRow(i, rawVec(zi))
	}

	zPred, s, err := UnscentedTransform(sigmasH, k.w, k.r, k.meanZ, k.subZ)
	if err != nil {
		return fmt.Errorf("failed to transform observed sigma points: %w", err)
	}

	// cross covariance of state and measurement
	pxz := mat.NewDense(k.nx, k.nz, nil)
	outer := mat.NewDense(k.nx, k.nz, nil)
	for i := 0; i < k.w.Count(); i++ {
		dx := k.sub(sigmas.RowView(i), k.x)
		dz := k.subZ(sigmasH.RowView(i), zPred)
		outer.Outer(k.w.Cov[i], dx, dz)
		pxz.Add(pxz, outer)
	}

	sInv, err := matrix.Inverse(s)
	if err != nil {
		return fmt.Errorf("failed to invert innovation covariance: %w", err)
	}

	gain := &mat.Dense{}
	gain.Mul(pxz, sInv)

	y := k.subZ(z, zPred)
	if err := matrix.CheckVec("residual", y, k.nz); err != nil {
		return err
	}
	inn := mat.VecDenseCopyOf(y)

	corr := mat.NewVecDense(k.nx, nil)
	corr.MulVec(gain, inn)
	xc := k.add(k.x, corr)
	if err := matrix.CheckVec("corrected state", xc, k.nx); err != nil {
		return err
	}
	x := mat.VecDenseCopyOf(xc)

	ksk := &mat.Dense{}
	ksk.Product(gain, s, gain.T())
	p := &mat.Dense{}
	p.Sub(k.p, ksk)

	k.x = x
	k.p = matrix.Symmetrize(p)
	k.sigmasH = sigmasH
	k.inn = inn
	k.s = s
	k.k = gain

	return nil
}

// Run runs one step of UKF: it predicts the next state and corrects it using measurement z.
func (k *UKF) Run(z mat.Vector) error {
	if err := k.Predict(); err != nil {
		return err
	}

	return k.Update(z)
}

// Dims returns state, measurement and control dimensions
func (k *UKF) Dims() (nx, nz, nu int) {
	return k.nx, k.nz, k.nu
}

// State returns the current state estimate
func (k *UKF) State() mat.Vector {
	return mat.VecDenseCopyOf(k.x)
}

// SetState sets filter state to x.
// It returns error if x length does not match the state dimension.
func (k *UKF) SetState(x mat.Vector) error {
	if err := matrix.CheckVec("state", x, k.nx); err != nil {
		return err
	}
	k.x.CopyVec(x)

	return nil
}

// Cov returns UKF covariance
func (k *UKF) Cov() mat.Symmetric {
	cov := mat.NewSymDense(k.nx, nil)
	cov.CopySym(k.p)

	return cov
}

// SetCov sets UKF covariance matrix to cov.
// It returns error if either cov is nil or its dimensions are not the same as UKF covariance dimensions.
func (k *UKF) SetCov(cov mat.Symmetric) error {
	if err := matrix.CheckSym("state covariance", cov, k.nx); err != nil {
		return err
	}
	k.p.CopySym(cov)

	return nil
}

// Gain returns Kalman gain
func (k *UKF) Gain() mat.Matrix {
	return mat.DenseCopyOf(k.k)
}

// Residual returns residual of the last update
func (k *UKF) Residual() mat.Vector {
	return mat.VecDenseCopyOf(k.inn)
}

// InnovationCov returns innovation covariance of the last update
func (k *UKF) InnovationCov() mat.Symmetric {
	s := mat.NewSymDense(k.nz, nil)
	s.CopySym(k.s)

	return s
}

// SigmasF returns sigma points propagated by the last Predict, one per row
func (k *UKF) SigmasF() *mat.Dense {
	return mat.DenseCopyOf(k.sigmasF)
}

// SigmasH returns sigma points projected into measurement space by the last Update, one per row
func (k *UKF) SigmasH() *mat.Dense {
	return mat.DenseCopyOf(k.sigmasH)
}

// Weights returns sigma point weights
func (k *UKF) Weights() Weights {
	return Weights{
		Mean:   append([]float64(nil), k.w.Mean...),
		Cov:    append([]float64(nil), k.w.Cov...),
		Lambda: k.w.Lambda,
	}
}

// Estimate returns the current filter estimate
func (k *UKF) Estimate() (filter.Estimate, error) {
	est, err := estimate.NewBaseWithCov(k.x, k.p)
	if err != nil {
		return nil, err
	}

	return est, nil
}
