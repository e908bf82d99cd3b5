// Package numeric provides the scalar abstraction behind the generic
// evaluation paths in geometry and bundle.
//
// Production code evaluates over plain float64. Tests instantiate the same
// code over dual numbers to obtain forward-mode derivatives of whole
// evaluation chains without maintaining a second implementation.
package numeric

import (
	"math"

	"gonum.org/v1/gonum/num/dual"
)

// Ops is the set of scalar operations an evaluation chain may use. The type
// parameter selects the scalar representation.
type Ops[T any] interface {
	// FromFloat lifts a constant into the scalar type.
	FromFloat(v float64) T
	// Real reports the value part of a scalar, used for branch decisions.
	Real(a T) float64
	Add(a, b T) T
	Sub(a, b T) T
	Mul(a, b T) T
	Div(a, b T) T
	// Scale multiplies a scalar by a plain constant.
	Scale(v float64, a T) T
	Sqrt(a T) T
	Sin(a T) T
	Cos(a T) T
	Atan2(y, x T) T
	// Max floors a scalar at a constant, guarding vanishing denominators.
	Max(a T, floor float64) T
}

// Float64Ops evaluates over plain float64 with no derivative tracking.
type Float64Ops struct{}

// FromFloat implements Ops.
func (Float64Ops) FromFloat(v float64) float64 { return v }

// Real implements Ops.
func (Float64Ops) Real(a float64) float64 { return a }

// Add implements Ops.
func (Float64Ops) Add(a, b float64) float64 { return a + b }

// Sub implements Ops.
func (Float64Ops) Sub(a, b float64) float64 { return a - b }

// Mul implements Ops.
func (Float64Ops) Mul(a, b float64) float64 { return a * b }

// Div implements Ops.
func (Float64Ops) Div(a, b float64) float64 { return a / b }

// Scale implements Ops.
func (Float64Ops) Scale(v, a float64) float64 { return v * a }

// Sqrt implements Ops.
func (Float64Ops) Sqrt(a float64) float64 { return math.Sqrt(a) }

// Sin implements Ops.
func (Float64Ops) Sin(a float64) float64 { return math.Sin(a) }

// Cos implements Ops.
func (Float64Ops) Cos(a float64) float64 { return math.Cos(a) }

// Atan2 implements Ops.
func (Float64Ops) Atan2(y, x float64) float64 { return math.Atan2(y, x) }

// Max implements Ops.
func (Float64Ops) Max(a, floor float64) float64 { return math.Max(a, floor) }

// DualOps evaluates over dual numbers, propagating one directional
// derivative alongside the value. Seed an input with Var and read the
// derivative from the Emag field of the result.
type DualOps struct{}

// Var returns a dual number representing v with a unit derivative seed, the
// input currently being differentiated against.
func Var(v float64) dual.Number {
	return dual.Number{Real: v, Emag: 1}
}

// FromFloat implements Ops.
func (DualOps) FromFloat(v float64) dual.Number { return dual.Number{Real: v} }

// Real implements Ops.
func (DualOps) Real(a dual.Number) float64 { return a.Real }

// Add implements Ops.
func (DualOps) Add(a, b dual.Number) dual.Number { return dual.Add(a, b) }

// Sub implements Ops.
func (DualOps) Sub(a, b dual.Number) dual.Number { return dual.Sub(a, b) }

// Mul implements Ops.
func (DualOps) Mul(a, b dual.Number) dual.Number { return dual.Mul(a, b) }

// Div implements Ops.
func (DualOps) Div(a, b dual.Number) dual.Number { return dual.Mul(a, dual.Inv(b)) }

// Scale implements Ops.
func (DualOps) Scale(v float64, a dual.Number) dual.Number { return dual.Scale(v, a) }

// Sqrt implements Ops.
func (DualOps) Sqrt(a dual.Number) dual.Number { return dual.Sqrt(a) }

// Sin implements Ops.
func (DualOps) Sin(a dual.Number) dual.Number { return dual.Sin(a) }

// Cos implements Ops.
func (DualOps) Cos(a dual.Number) dual.Number { return dual.Cos(a) }

// Atan2 implements Ops. The dual package has no two-argument arctangent, so
// the tangent part is the exact quotient-rule expression.
func (DualOps) Atan2(y, x dual.Number) dual.Number {
	den := x.Real*x.Real + y.Real*y.Real
	return dual.Number{
		Real: math.Atan2(y.Real, x.Real),
		Emag: (x.Real*y.Emag - y.Real*x.Emag) / den,
	}
}

// Max implements Ops. The branch is decided on the value part; when the
// floor wins the result is a constant.
func (DualOps) Max(a dual.Number, floor float64) dual.Number {
	if a.Real >= floor {
		return a
	}
	return dual.Number{Real: floor}
}
