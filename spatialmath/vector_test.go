package spatialmath

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/dual"

	"gosfm/numeric"
)

func TestNormalizeVector(t *testing.T) {
	n := NormalizeVector(r3.Vector{X: 3, Y: 4, Z: 0})
	test.That(t, n.X, test.ShouldAlmostEqual, 0.6)
	test.That(t, n.Y, test.ShouldAlmostEqual, 0.8)
	test.That(t, n.Z, test.ShouldAlmostEqual, 0)
	test.That(t, n.Norm(), test.ShouldAlmostEqual, 1)

	zero := NormalizeVector(r3.Vector{})
	test.That(t, zero.X, test.ShouldEqual, 0.0)
	test.That(t, zero.Y, test.ShouldEqual, 0.0)
	test.That(t, zero.Z, test.ShouldEqual, 0.0)
}

func TestNormalizeVectorDerivativesAgainstDual(t *testing.T) {
	var ops numeric.DualOps
	v := r3.Vector{X: 1, Y: 2, Z: 3}
	unit, jac := NormalizeVectorDerivatives(v)
	test.That(t, unit.Norm(), test.ShouldAlmostEqual, 1, 1e-14)

	vv := []float64{v.X, v.Y, v.Z}
	for j := 0; j < 3; j++ {
		var vd [3]dual.Number
		for i := 0; i < 3; i++ {
			vd[i] = ops.FromFloat(vv[i])
		}
		vd[j] = numeric.Var(vv[j])
		out := NormalizeVectorGeneric[dual.Number](ops, vd)
		for i := 0; i < 3; i++ {
			test.That(t, jac.At(i, j), test.ShouldAlmostEqual, out[i].Emag, 1e-14)
			test.That(t, out[i].Real, test.ShouldAlmostEqual, []float64{unit.X, unit.Y, unit.Z}[i], 1e-14)
		}
	}
}
