package geometry

import (
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"gosfm/spatialmath"
)

// PointRefiner polishes triangulated points by minimizing the squared
// difference between the unit rays toward the point and the observed
// bearings.
type PointRefiner struct {
	logger golog.Logger
}

// NewPointRefiner returns a refiner logging solver diagnostics to logger.
func NewPointRefiner(logger golog.Logger) *PointRefiner {
	return &PointRefiner{logger: logger}
}

// RefinePoint runs up to iterations damped Gauss-Newton steps on point. The
// returned point never has a larger residual than the input.
func (pr *PointRefiner) RefinePoint(centers, bearings []r3.Vector, point r3.Vector, iterations int) r3.Vector {
	if len(centers) != len(bearings) {
		panic("geometry: need one center per bearing")
	}
	best := point
	bestCost := refinementCost(centers, bearings, point)
	lambda := 1e-4
	for iter := 0; iter < iterations; iter++ {
		step, ok := pr.refinementStep(centers, bearings, best, lambda)
		if !ok {
			lambda *= 10
			continue
		}
		candidate := best.Add(step)
		cost := refinementCost(centers, bearings, candidate)
		if cost < bestCost {
			best = candidate
			bestCost = cost
			lambda /= 3
		} else {
			lambda *= 10
		}
	}
	return best
}

// refinementStep solves the damped normal equations around point for one
// update, scaling the diagonal by 1+lambda.
func (pr *PointRefiner) refinementStep(centers, bearings []r3.Vector, point r3.Vector, lambda float64) (r3.Vector, bool) {
	jtj := mat.NewDense(3, 3, nil)
	jtr := mat.NewVecDense(3, nil)
	for i, c := range centers {
		dir, jac := spatialmath.NormalizeVectorDerivatives(point.Sub(c))
		res := dir.Sub(bearings[i])
		rv := [3]float64{res.X, res.Y, res.Z}
		for r := 0; r < 3; r++ {
			for s := 0; s < 3; s++ {
				acc := jtj.At(r, s)
				for k := 0; k < 3; k++ {
					acc += jac.At(k, r) * jac.At(k, s)
				}
				jtj.Set(r, s, acc)
			}
			acc := jtr.AtVec(r)
			for k := 0; k < 3; k++ {
				acc += jac.At(k, r) * rv[k]
			}
			jtr.SetVec(r, acc)
		}
	}
	for r := 0; r < 3; r++ {
		jtj.Set(r, r, jtj.At(r, r)*(1+lambda))
	}
	var step mat.VecDense
	if err := step.SolveVec(jtj, jtr); err != nil {
		pr.logger.Debugw("refinement step solve failed", "error", err)
		return r3.Vector{}, false
	}
	return r3.Vector{X: -step.AtVec(0), Y: -step.AtVec(1), Z: -step.AtVec(2)}, true
}

// refinementCost is the squared norm of all bearing residuals at point.
func refinementCost(centers, bearings []r3.Vector, point r3.Vector) float64 {
	cost := 0.0
	for i, c := range centers {
		res := spatialmath.NormalizeVector(point.Sub(c)).Sub(bearings[i])
		cost += res.Dot(res)
	}
	return cost
}
