package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"gosfm/numeric"
)

// NormalizeVector returns v scaled to unit length. The norm is floored at
// machine epsilon so a vanishing vector yields zeros instead of NaN.
func NormalizeVector(v r3.Vector) r3.Vector {
	return v.Mul(1 / math.Max(v.Norm(), smallRotationThreshold))
}

// NormalizeVectorDerivatives normalizes v and returns the 3x3 Jacobian of
// the unit vector with respect to v, (I - n·nT)/|v|.
func NormalizeVectorDerivatives(v r3.Vector) (r3.Vector, *mat.Dense) {
	l := math.Max(v.Norm(), smallRotationThreshold)
	n := v.Mul(1 / l)
	nv := []float64{n.X, n.Y, n.Z}
	jac := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			el := -nv[i] * nv[j] / l
			if i == j {
				el += 1 / l
			}
			jac.Set(i, j, el)
		}
	}
	return n, jac
}

// NormalizeVectorGeneric mirrors NormalizeVector over the numeric scalar
// abstraction, including the norm floor.
func NormalizeVectorGeneric[T any](ops numeric.Ops[T], v [3]T) [3]T {
	norm := ops.Max(ops.Sqrt(dot3(ops, v, v)), smallRotationThreshold)
	inv := ops.Div(ops.FromFloat(1), norm)
	return [3]T{ops.Mul(v[0], inv), ops.Mul(v[1], inv), ops.Mul(v[2], inv)}
}
