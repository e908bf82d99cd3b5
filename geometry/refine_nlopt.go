//go:build !windows && !no_cgo

package geometry

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/go-nlopt/nlopt"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"gosfm/spatialmath"
)

const (
	defaultRefineEvaluations = 250
	defaultRefineEpsilon     = 1e-12
)

type refineReturn struct {
	solution []float64
	cost     float64
	err      error
}

// NloptPointRefiner polishes triangulated points with a gradient descent
// solver. It minimizes the same squared bearing residual as PointRefiner
// but delegates the step control to nlopt's SLSQP implementation.
type NloptPointRefiner struct {
	logger         golog.Logger
	epsilon        float64
	maxEvaluations int
}

// NewNloptPointRefiner returns a refiner capped at maxEvaluations cost
// evaluations per point. A count below one selects the default.
func NewNloptPointRefiner(logger golog.Logger, maxEvaluations int) *NloptPointRefiner {
	if maxEvaluations < 1 {
		maxEvaluations = defaultRefineEvaluations
	}
	return &NloptPointRefiner{logger: logger, epsilon: defaultRefineEpsilon, maxEvaluations: maxEvaluations}
}

// RefinePoint minimizes the squared bearing residual of point over all
// views. The input point is returned whenever the solver cannot improve on
// it.
func (pr *NloptPointRefiner) RefinePoint(ctx context.Context, centers, bearings []r3.Vector, point r3.Vector) (r3.Vector, error) {
	if len(centers) != len(bearings) {
		panic("geometry: need one center per bearing")
	}
	opt, err := nlopt.NewNLopt(nlopt.LD_SLSQP, 3)
	if err != nil {
		return point, errors.Wrap(err, "nlopt creation error")
	}
	defer opt.Destroy()

	minFunc := func(x, gradient []float64) float64 {
		p := r3.Vector{X: x[0], Y: x[1], Z: x[2]}
		for i := range gradient {
			gradient[i] = 0
		}
		cost := 0.0
		for i, c := range centers {
			dir, jac := spatialmath.NormalizeVectorDerivatives(p.Sub(c))
			res := dir.Sub(bearings[i])
			cost += res.Dot(res)
			if len(gradient) > 0 {
				rv := [3]float64{res.X, res.Y, res.Z}
				for g := 0; g < 3; g++ {
					for k := 0; k < 3; k++ {
						gradient[g] += 2 * jac.At(k, g) * rv[k]
					}
				}
			}
		}
		return cost
	}

	err = multierr.Combine(
		opt.SetFtolRel(pr.epsilon),
		opt.SetFtolAbs(pr.epsilon),
		opt.SetStopVal(pr.epsilon),
		opt.SetXtolRel(pr.epsilon),
		opt.SetMinObjective(minFunc),
		opt.SetMaxEval(pr.maxEvaluations),
	)
	if err != nil {
		return point, err
	}

	solveChan := make(chan *refineReturn, 1)
	goutils.PanicCapturingGo(func() {
		solution, cost, optErr := opt.Optimize([]float64{point.X, point.Y, point.Z})
		solveChan <- &refineReturn{solution, cost, optErr}
	})
	var solved *refineReturn
	select {
	case <-ctx.Done():
		// the solver must finish before the deferred Destroy frees it
		err = opt.ForceStop()
		<-solveChan
		return point, multierr.Combine(err, ctx.Err())
	case solved = <-solveChan:
	}

	if solved.err != nil && solved.solution == nil {
		return point, errors.Wrap(solved.err, "point refinement failed")
	}
	if solved.err != nil {
		// nlopt sometimes reports an error alongside a usable solution
		pr.logger.Debugw("solver error with usable solution", "error", solved.err)
	}
	if solved.cost > refinementCost(centers, bearings, point) {
		return point, nil
	}
	return r3.Vector{X: solved.solution[0], Y: solved.solution[1], Z: solved.solution[2]}, nil
}
