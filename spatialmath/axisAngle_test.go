package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestR4AAConversions(t *testing.T) {
	r4 := &R4AA{Theta: 0.5, RX: 0, RY: 1, RZ: 0}
	aa := r4.ToR3()
	test.That(t, aa, test.ShouldResemble, r3.Vector{X: 0, Y: 0.5, Z: 0})

	back := R3ToR4(aa)
	test.That(t, back.Theta, test.ShouldAlmostEqual, 0.5)
	test.That(t, back.RX, test.ShouldAlmostEqual, 0)
	test.That(t, back.RY, test.ShouldAlmostEqual, 1)
	test.That(t, back.RZ, test.ShouldAlmostEqual, 0)

	test.That(t, R3ToR4(r3.Vector{}).ToR3(), test.ShouldResemble, r3.Vector{})
}

func TestR4AANormalize(t *testing.T) {
	r4 := &R4AA{Theta: 1, RX: 3, RY: 0, RZ: 4}
	r4.Normalize()
	test.That(t, r4.RX, test.ShouldAlmostEqual, 0.6)
	test.That(t, r4.RZ, test.ShouldAlmostEqual, 0.8)

	degenerate := &R4AA{Theta: 1}
	test.That(t, degenerate.Normalize, test.ShouldPanic)
}

func TestQuatToR4AA(t *testing.T) {
	for _, tc := range rotationCases {
		if tc.aa.Norm2() <= smallRotationThreshold {
			continue
		}
		r4 := QuatToR4AA(R3ToR4(tc.aa).ToQuat())
		test.That(t, r4.Theta, test.ShouldAlmostEqual, tc.aa.Norm(), 1e-12)
		back := r4.ToR3()
		test.That(t, back.X, test.ShouldAlmostEqual, tc.aa.X, 1e-12)
		test.That(t, back.Y, test.ShouldAlmostEqual, tc.aa.Y, 1e-12)
		test.That(t, back.Z, test.ShouldAlmostEqual, tc.aa.Z, 1e-12)
	}

	ident := QuatToR4AA(R3ToR4(r3.Vector{}).ToQuat())
	test.That(t, ident.Theta, test.ShouldEqual, 0.0)
}

func TestQuatToR4AAShortestAngle(t *testing.T) {
	// a rotation by 3/2 pi comes back as pi/2 about the flipped axis
	q := (&R4AA{Theta: 3 * math.Pi / 2, RZ: 1}).ToQuat()
	r4 := QuatToR4AA(q)
	test.That(t, r4.Theta, test.ShouldAlmostEqual, math.Pi/2, 1e-12)
	test.That(t, r4.RZ, test.ShouldAlmostEqual, -1, 1e-12)
}
