package main

import (
	"errors"
	"fmt"

	"github.com/milosgajdos/matrix"
	filter "github.com/tinyest/go-estimate"
	"github.com/tinyest/go-estimate/kalman"
	"github.com/tinyest/go-estimate/kalman/kf"
	"github.com/tinyest/go-estimate/kalman/ukf"
	"github.com/tinyest/go-estimate/noise"
	"github.com/tinyest/go-estimate/sim"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/vg"
)

// Result stores filter run results one step per row
type Result struct {
	// Truth stores simulated true states; nil unless the measurements were simulated
	Truth *mat.Dense
	// Measurements stores filtered measurements
	Measurements *mat.Dense
	// Estimates stores filter state estimates
	Estimates *mat.Dense
	// Skipped counts updates skipped due to singular innovation covariance
	Skipped int
}

// newFilter creates a filter configured by sc
func newFilter(sc *Scenario) (kalman.Kalman, error) {
	nx, nz, nu := sc.Dims.State, sc.Dims.Measurement, sc.Dims.Control

	ic, err := sim.NewInitCond(mat.NewVecDense(nx, append([]float64(nil), sc.X...)), sym(nx, sc.P))
	if err != nil {
		return nil, err
	}

	q, r := sym(nx, sc.Q), sym(nz, sc.R)
	f, h := dense(nx, nx, sc.F), dense(nz, nx, sc.H)

	switch sc.Filter {
	case kindKF:
		k, err := kf.New(nx, nz, nu)
		if err != nil {
			return nil, err
		}

		if err := k.Init(ic.State(), r, ic.Cov(), h, q, f); err != nil {
			return nil, err
		}

		if nu > 0 {
			if err := k.SetControl(dense(nx, nu, sc.B), mat.NewVecDense(nu, append([]float64(nil), sc.U...))); err != nil {
				return nil, err
			}
		}

		return k, nil
	case kindUKF:
		model, err := sim.NewDiscrete(f, nil, h)
		if err != nil {
			return nil, err
		}

		c := &ukf.Config{
			Dt:    sc.UKF.Dt,
			Alpha: sc.UKF.Alpha,
			Beta:  sc.UKF.Beta,
			Kappa: sc.UKF.Kappa,
		}

		if len(sc.UKF.Angles) > 0 {
			c.MeasurementSeparate = ukf.AngleSub(sc.UKF.Angles...)
		}

		k, err := ukf.New(nx, nz, nu, model, model, c)
		if err != nil {
			return nil, err
		}

		if err := k.Init(ic.State(), ic.Cov(), q, r); err != nil {
			return nil, err
		}

		if nu > 0 {
			if err := k.SetControl(dense(nx, nu, sc.B), mat.NewVecDense(nu, append([]float64(nil), sc.U...))); err != nil {
				return nil, err
			}
		}

		return k, nil
	}

	return nil, fmt.Errorf("unsupported filter: %q", sc.Filter)
}

// simulate replaces scenario measurements with measurements of simulated system.
// It returns simulated true states.
func simulate(sc *Scenario, steps int) (*mat.Dense, error) {
	nx, nz, nu := sc.Dims.State, sc.Dims.Measurement, sc.Dims.Control

	var b *mat.Dense
	var u mat.Vector
	if nu > 0 {
		b = dense(nx, nu, sc.B)
		u = mat.NewVecDense(nu, append([]float64(nil), sc.U...))
	}

	sys, err := sim.NewDiscrete(dense(nx, nx, sc.F), b, dense(nz, nx, sc.H))
	if err != nil {
		return nil, err
	}

	var q, r filter.Noise
	if sc.Noise != nil {
		if q, err = noise.NewGaussianWithSeed(make([]float64, nx), sym(nx, sc.Noise.Q), sc.Noise.Seed); err != nil {
			return nil, fmt.Errorf("failed to create process noise: %w", err)
		}

		if r, err = noise.NewGaussianWithSeed(make([]float64, nz), sym(nz, sc.Noise.R), sc.Noise.Seed+1); err != nil {
			return nil, fmt.Errorf("failed to create measurement noise: %w", err)
		}
	}

	traj, err := sim.Simulate(sys, mat.NewVecDense(nx, append([]float64(nil), sc.X...)), u, steps, q, r)
	if err != nil {
		return nil, err
	}

	sc.Measurements = make([][]float64, steps)
	for i := range sc.Measurements {
		sc.Measurements[i] = mat.Row(nil, i, traj.Measurements)
	}

	return traj.States, nil
}

// run filters scenario measurements and logs every step.
// Updates failing on singular innovation covariance are skipped and the predicted state is kept.
func run(log *zap.Logger, sc *Scenario, k kalman.Kalman) (*Result, error) {
	steps := len(sc.Measurements)
	if steps == 0 {
		return nil, fmt.Errorf("no measurements to filter")
	}

	res := &Result{
		Measurements: mat.NewDense(steps, sc.Dims.Measurement, nil),
		Estimates:    mat.NewDense(steps, sc.Dims.State, nil),
	}

	for i, m := range sc.Measurements {
		z := mat.NewVecDense(len(m), append([]float64(nil), m...))
		res.Measurements.SetRow(i, m)

		if err := k.Predict(); err != nil {
			return nil, fmt.Errorf("step %d: prediction failed: %w", i, err)
		}

		if err := k.Update(z); err != nil {
			if !errors.Is(err, filter.ErrSingularMatrix) {
				return nil, fmt.Errorf("step %d: update failed: %w", i, err)
			}
			log.Warn("update skipped", zap.Int("step", i), zap.Error(err))
			res.Skipped++
		}

		x := k.State()
		res.Estimates.SetRow(i, mat.Col(nil, 0, x))

		if ce := log.Check(zap.DebugLevel, "step"); ce != nil {
			ce.Write(
				zap.Int("step", i),
				zap.String("z", fmt.Sprintf("%v", matrix.Format(z))),
				zap.String("x", fmt.Sprintf("%v", matrix.Format(x))),
				zap.String("residual", fmt.Sprintf("%v", matrix.Format(k.Residual()))),
				zap.String("gain", fmt.Sprintf("%v", matrix.Format(k.Gain()))),
			)
		}
	}

	log.Info("filter finished",
		zap.String("filter", sc.Filter),
		zap.Int("steps", steps),
		zap.Int("skipped", res.Skipped),
		zap.Float64s("state", mat.Row(nil, steps-1, res.Estimates)),
		zap.String("cov", fmt.Sprintf("%v", matrix.Format(k.Cov()))),
	)

	return res, nil
}

// savePlot plots the first element of measurements and estimates against the step number
func savePlot(res *Result, path string) error {
	steps, _ := res.Estimates.Dims()

	truth := res.Measurements
	if res.Truth != nil {
		truth = res.Truth
	}

	model := mat.NewDense(steps, 2, nil)
	meas := mat.NewDense(steps, 2, nil)
	est := mat.NewDense(steps, 2, nil)
	for i := 0; i < steps; i++ {
		model.SetRow(i, []float64{float64(i), truth.At(i, 0)})
		meas.SetRow(i, []float64{float64(i), res.Measurements.At(i, 0)})
		est.SetRow(i, []float64{float64(i), res.Estimates.At(i, 0)})
	}

	p, err := sim.New2DPlot(model, meas, est)
	if err != nil {
		return fmt.Errorf("failed to create plot: %w", err)
	}

	p.X.Label.Text = "step"
	p.Y.Label.Text = "state[0]"

	return p.Save(8*vg.Inch, 6*vg.Inch, path)
}
