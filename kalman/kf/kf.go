package kf

import (
	"fmt"

	filter "github.com/tinyest/go-estimate"
	"github.com/tinyest/go-estimate/estimate"
	"github.com/tinyest/go-estimate/matrix"
	"gonum.org/v1/gonum/mat"
)

// KF is Kalman Filter
type KF struct {
	// nx, nz and nu are state, measurement and control dimensions
	nx, nz, nu int
	// x is the current state estimate
	x *mat.VecDense
	// p is the state covariance matrix
	p *mat.SymDense
	// q is process noise covariance
	q *mat.SymDense
	// r is measurement noise covariance
	r *mat.SymDense
	// f is state transition matrix
	f *mat.Dense
	// h is measurement matrix
	h *mat.Dense
	// b is control matrix; nil when nu is 0
	b *mat.Dense
	// u is control vector; nil when nu is 0
	u *mat.VecDense
	// eye is nx x nx identity
	eye *mat.DiagDense
	// inn is the residual of the last update
	inn *mat.VecDense
	// s is innovation covariance of the last update
	s *mat.SymDense
	// k is Kalman gain
	k *mat.Dense
	// fixed is set when the gain was supplied via SetGain
	fixed bool
}

// New creates new KF with nx state, nz measurement and nu control dimensions and returns it.
// State is initialized to zero vector, P, Q, R and F to identity and H to zero matrix.
// It returns error if nx or nz are not positive or nu is negative.
func New(nx, nz, nu int) (*KF, error) {
	if nx <= 0 || nz <= 0 || nu < 0 {
		return nil, fmt.Errorf("invalid filter dimensions: [%d x %d x %d]: %w", nx, nz, nu, filter.ErrDimensionMismatch)
	}

	f := mat.NewDense(nx, nx, nil)
	f.Copy(matrix.Eye(nx))

	k := &KF{
		nx:  nx,
		nz:  nz,
		nu:  nu,
		x:   mat.NewVecDense(nx, nil),
		p:   matrix.EyeSym(nx),
		q:   matrix.EyeSym(nx),
		r:   matrix.EyeSym(nz),
		f:   f,
		h:   mat.NewDense(nz, nx, nil),
		eye: matrix.Eye(nx),
		inn: mat.NewVecDense(nz, nil),
		s:   mat.NewSymDense(nz, nil),
		k:   mat.NewDense(nx, nz, nil),
	}

	if nu > 0 {
		k.b = mat.NewDense(nx, nu, nil)
		k.u = mat.NewVecDense(nu, nil)
	}

	return k, nil
}

// Init initializes filter state x, measurement noise r, state covariance p,
// measurement matrix h, process noise q and state transition matrix f.
// It returns error if any of the supplied matrices does not match the filter dimensions;
// in that case the filter is left unmodified.
func (k *KF) Init(x mat.Vector, r, p mat.Symmetric, h mat.Matrix, q mat.Symmetric, f mat.Matrix) error {
	if err := matrix.CheckVec("state", x, k.nx); err != nil {
		return err
	}

	if err := matrix.CheckSym("measurement noise", r, k.nz); err != nil {
		return err
	}

	if err := matrix.CheckSym("state covariance", p, k.nx); err != nil {
		return err
	}

	if err := matrix.CheckDims("measurement", h, k.nz, k.nx); err != nil {
		return err
	}

	if err := matrix.CheckSym("process noise", q, k.nx); err != nil {
		return err
	}

	if err := matrix.CheckDims("state transition", f, k.nx, k.nx); err != nil {
		return err
	}

	k.x.CopyVec(x)
	k.r.CopySym(r)
	k.p.CopySym(p)
	k.h.Copy(h)
	k.q.CopySym(q)
	k.f.Copy(f)

	return nil
}

// SetControl sets control matrix b and control vector u.
// It returns error if the filter has no control input or if the dimensions do not match.
func (k *KF) SetControl(b mat.Matrix, u mat.Vector) error {
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

// Predict propagates the filter state and its covariance to the next step:
//
//	x = F*x + B*u
//	P = F*P*F' + Q
func (k *KF) Predict() error {
	x := mat.NewVecDense(k.nx, nil)
	x.MulVec(k.f, k.x)

	if k.b != nil {
		bu := mat.NewVecDense(k.nx, nil)
		bu.MulVec(k.b, k.u)
		x.AddVec(x, bu)
	}

	cov := &mat.Dense{}
	cov.Product(k.f, k.p, k.f.T())
	cov.Add(cov, k.q)

	k.x = x
	k.p = matrix.Symmetrize(cov)

	return nil
}

// Update corrects the filter state using measurement z.
// Covariance is corrected using Joseph form which keeps it symmetric positive semi-definite:
//
//	P = (I-K*H)*P*(I-K*H)' + K*R*K'
//
// It returns error if z has invalid length or if the innovation covariance is singular.
// Filter state is left unmodified when error is returned.
func (k *KF) Update(z mat.Vector) error {
	if err := matrix.CheckVec("measurement", z, k.nz); err != nil {
		return err
	}

	// y = z - H*x
	inn := mat.NewVecDense(k.nz, nil)
	inn.MulVec(k.h, k.x)
	inn.SubVec(z, inn)

	gain := k.k
	s := k.s
	if !k.fixed {
		// P*H'
		pht := &mat.Dense{}
		pht.Mul(k.p, k.h.T())

		// S = H*P*H' + R
		hpht := &mat.Dense{}
		hpht.Mul(k.h, pht)
		hpht.Add(hpht, k.r)
		s = matrix.Symmetrize(hpht)

		sInv, err := matrix.Inverse(s)
		if err != nil {
			return fmt.Errorf("failed to invert innovation covariance: %w", err)
		}

		gain = &mat.Dense{}
		gain.Mul(pht, sInv)
	}

	// x = x + K*y
	x := mat.NewVecDense(k.nx, nil)
	x.MulVec(gain, inn)
	x.AddVec(k.x, x)

	// I - K*H
	a := &mat.Dense{}
	a.Mul(gain, k.h)
	a.Sub(k.eye, a)

	apa := &mat.Dense{}
	apa.Product(a, k.p, a.T())

	krk := &mat.Dense{}
	krk.Product(gain, k.r, gain.T())

	apa.Add(apa, krk)

	k.x = x
	k.p = matrix.Symmetrize(apa)
	k.inn = inn
	k.s = s
	if !k.fixed {
		k.k = gain
	}

	return nil
}

// Run runs one step of KF: it predicts the next state and corrects it using measurement z.
func (k *KF) Run(z mat.Vector) error {
	if err := k.Predict(); err != nil {
		return err
	}

	return k.Update(z)
}

// SetGain fixes Kalman gain to gain so that Update does not compute it.
// Passing nil restores the gain computation.
// It returns error if gain dimensions are not [nx x nz].
func (k *KF) SetGain(gain mat.Matrix) error {
	if gain == nil {
		k.fixed = false
		return nil
	}

	if err := matrix.CheckDims("gain", gain, k.nx, k.nz); err != nil {
		return err
	}

	k.k = mat.DenseCopyOf(gain)
	k.fixed = true

	return nil
}

// Dims returns state, measurement and control dimensions
func (k *KF) Dims() (nx, nz, nu int) {
	return k.nx, k.nz, k.nu
}

// State returns the current state estimate
func (k *KF) State() mat.Vector {
	return mat.VecDenseCopyOf(k.x)
}

// SetState sets filter state to x.
// It returns error if x length does not match the state dimension.
func (k *KF) SetState(x mat.Vector) error {
	if err := matrix.CheckVec("state", x, k.nx); err != nil {
		return err
	}
	k.x.CopyVec(x)

	return nil
}

// Cov returns KF covariance
func (k *KF) Cov() mat.Symmetric {
	cov := mat.NewSymDense(k.nx, nil)
	cov.CopySym(k.p)

	return cov
}

// SetCov sets KF covariance matrix to cov.
// It returns error if either cov is nil or its dimensions are not the same as KF covariance dimensions.
func (k *KF) SetCov(cov mat.Symmetric) error {
	if err := matrix.CheckSym("state covariance", cov, k.nx); err != nil {
		return err
	}
	k.p.CopySym(cov)

	return nil
}

// Gain returns Kalman gain
func (k *KF) Gain() mat.Matrix {
	return mat.DenseCopyOf(k.k)
}

// Residual returns residual of the last update
func (k *KF) Residual() mat.Vector {
	return mat.VecDenseCopyOf(k.inn)
}

// InnovationCov returns innovation covariance of the last update
func (k *KF) InnovationCov() mat.Symmetric {
	s := mat.NewSymDense(k.nz, nil)
	s.CopySym(k.s)

	return s
}

// Estimate returns the current filter estimate
func (k *KF) Estimate() (filter.Estimate, error) {
	est, err := estimate.NewBaseWithCov(k.x, k.p)
	if err != nil {
		return nil, err
	}

	return est, nil
}
