package contour

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/exclusion.report/internal/monitoring"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// rbf is a fitted radial basis function interpolant in normalized grid
// coordinates: f(p) = Σ w_k φ(|p - p_k|).
type rbf struct {
	kernel  Kernel
	eps     float64
	us      []float64
	vs      []float64
	weights []float64
}

// phi evaluates the kernel at distance r.
func (f *rbf) phi(r float64) float64 {
	switch f.kernel {
	case KernelInverseMultiquadric:
		q := r / f.eps
		return 1 / math.Sqrt(q*q+1)
	case KernelGaussian:
		q := r / f.eps
		return math.Exp(-q * q)
	case KernelLinear:
		return r
	case KernelCubic:
		return r * r * r
	case KernelQuintic:
		return r * r * r * r * r
	case KernelThinPlate:
		if r == 0 {
			return 0
		}
		return r * r * math.Log(r)
	default:
		q := r / f.eps
		return math.Sqrt(q*q + 1)
	}
}

// averageSpacing is the default shape parameter: the side of the box each
// node would own if the nodes filled their bounding box evenly.
func averageSpacing(us, vs []float64) float64 {
	prod, dims := 1.0, 0
	for _, axis := range [][]float64{us, vs} {
		edge := floats.Max(axis) - floats.Min(axis)
		if edge > 0 {
			prod *= edge
			dims++
		}
	}
	if dims == 0 {
		return 1
	}
	return math.Pow(prod/float64(len(us)), 1/float64(dims))
}

// fitRBF solves for the kernel weights. A matrix that is exactly singular,
// or whose solution is not finite, is reported as ErrSingular.
func fitRBF(us, vs, values []float64, kernel Kernel, epsilon *float64, smoothing float64) (*rbf, error) {
	n := len(values)
	f := &rbf{kernel: kernel, us: us, vs: vs}
	if epsilon != nil {
		f.eps = *epsilon
	} else {
		f.eps = averageSpacing(us, vs)
	}

	a := mat.NewDense(n, n, nil)
	for i := range n {
		for j := i; j < n; j++ {
			v := f.phi(math.Hypot(us[i]-us[j], vs[i]-vs[j]))
			a.Set(i, j, v)
			a.Set(j, i, v)
		}
		a.Set(i, i, a.At(i, i)-smoothing)
	}

	var w mat.VecDense
	if err := w.SolveVec(a, mat.NewVecDense(n, append([]float64(nil), values...))); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return nil, fmt.Errorf("%w: %w: %v", ErrConfig, ErrSingular, err)
		}
		monitoring.Warnf("contour: %s kernel matrix is ill-conditioned (%v)", kernel, err)
	}

	f.weights = make([]float64, n)
	for i := range n {
		f.weights[i] = w.AtVec(i)
		if !isFinite(f.weights[i]) {
			return nil, fmt.Errorf("%w: %w: non-finite weight for node %d", ErrConfig, ErrSingular, i)
		}
	}
	return f, nil
}

func (f *rbf) at(u, v float64) float64 {
	sum := 0.0
	for k, w := range f.weights {
		sum += w * f.phi(math.Hypot(u-f.us[k], v-f.vs[k]))
	}
	return sum
}
