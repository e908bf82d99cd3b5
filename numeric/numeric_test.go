package numeric

import (
	"math"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/num/dual"
)

// chain exercises every operation the camera and pose evaluations use.
func chain[T any](ops Ops[T], x, y T) T {
	r := ops.Add(ops.Mul(x, x), ops.Mul(y, y))
	r = ops.Sqrt(ops.Max(r, 1e-30))
	theta := ops.Atan2(r, ops.FromFloat(2.0))
	blend := ops.Add(ops.Scale(0.25, ops.Sin(theta)), ops.Scale(0.75, ops.Cos(theta)))
	return ops.Div(ops.Sub(blend, y), ops.Add(x, ops.FromFloat(3.0)))
}

func TestFloat64OpsMatchesPlainMath(t *testing.T) {
	var ops Float64Ops
	got := chain[float64](ops, 0.7, -0.3)

	r := math.Hypot(0.7, -0.3)
	theta := math.Atan2(r, 2.0)
	want := (0.25*math.Sin(theta) + 0.75*math.Cos(theta) - (-0.3)) / (0.7 + 3.0)
	test.That(t, got, test.ShouldAlmostEqual, want)
}

func TestDualOpsValueAgreesWithFloat64(t *testing.T) {
	var f Float64Ops
	var d DualOps
	for _, xy := range [][2]float64{{0.7, -0.3}, {1.2, 2.5}, {-0.4, 0.9}} {
		want := chain[float64](f, xy[0], xy[1])
		got := chain[dual.Number](d, d.FromFloat(xy[0]), d.FromFloat(xy[1]))
		test.That(t, got.Real, test.ShouldAlmostEqual, want)
		test.That(t, got.Emag, test.ShouldEqual, 0.0)
	}
}

func TestDualOpsDerivativeAgainstFiniteDifferences(t *testing.T) {
	var f Float64Ops
	var d DualOps
	const h = 1e-7

	x, y := 0.7, -0.3

	gotX := chain[dual.Number](d, Var(x), d.FromFloat(y)).Emag
	fdX := (chain[float64](f, x+h, y) - chain[float64](f, x-h, y)) / (2 * h)
	test.That(t, gotX, test.ShouldAlmostEqual, fdX, 1e-6)

	gotY := chain[dual.Number](d, d.FromFloat(x), Var(y)).Emag
	fdY := (chain[float64](f, x, y+h) - chain[float64](f, x, y-h)) / (2 * h)
	test.That(t, gotY, test.ShouldAlmostEqual, fdY, 1e-6)
}

func TestDualOpsAtan2ExactDerivative(t *testing.T) {
	var d DualOps

	// d atan2(y, x) / dy = x / (x^2 + y^2)
	y, x := 0.4, 1.3
	got := d.Atan2(Var(y), d.FromFloat(x))
	test.That(t, got.Real, test.ShouldAlmostEqual, math.Atan2(y, x))
	test.That(t, got.Emag, test.ShouldAlmostEqual, x/(x*x+y*y))

	// d atan2(y, x) / dx = -y / (x^2 + y^2)
	got = d.Atan2(d.FromFloat(y), Var(x))
	test.That(t, got.Emag, test.ShouldAlmostEqual, -y/(x*x+y*y))

	// quadrant change keeps the derivative continuous
	got = d.Atan2(Var(y), d.FromFloat(-x))
	test.That(t, got.Real, test.ShouldAlmostEqual, math.Atan2(y, -x))
	test.That(t, got.Emag, test.ShouldAlmostEqual, -x/(x*x+y*y))
}

func TestDualOpsMaxFloorsDerivative(t *testing.T) {
	var d DualOps

	kept := d.Max(Var(2.0), 1.0)
	test.That(t, kept.Real, test.ShouldEqual, 2.0)
	test.That(t, kept.Emag, test.ShouldEqual, 1.0)

	floored := d.Max(Var(0.5), 1.0)
	test.That(t, floored.Real, test.ShouldEqual, 1.0)
	test.That(t, floored.Emag, test.ShouldEqual, 0.0)
}
