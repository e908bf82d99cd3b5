//go:build !windows && !no_cgo

package geometry

import (
	"context"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestNloptRefinePointRecoversPoint(t *testing.T) {
	centers, bearings, point := refinementScene()
	pr := NewNloptPointRefiner(golog.NewTestLogger(t), 0)

	start := point.Add(r3.Vector{X: 0.2, Y: -0.15, Z: 0.3})
	refined, err := pr.RefinePoint(context.Background(), centers, bearings, start)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, refined.X, test.ShouldAlmostEqual, point.X, 1e-3)
	test.That(t, refined.Y, test.ShouldAlmostEqual, point.Y, 1e-3)
	test.That(t, refined.Z, test.ShouldAlmostEqual, point.Z, 1e-3)
	test.That(t, refinementCost(centers, bearings, refined),
		test.ShouldBeLessThanOrEqualTo, refinementCost(centers, bearings, start))
}

func TestNloptRefinePointAlreadyOptimal(t *testing.T) {
	centers, bearings, point := refinementScene()
	pr := NewNloptPointRefiner(golog.NewTestLogger(t), 50)

	refined, err := pr.RefinePoint(context.Background(), centers, bearings, point)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, refined.X, test.ShouldAlmostEqual, point.X, 1e-6)
	test.That(t, refined.Y, test.ShouldAlmostEqual, point.Y, 1e-6)
	test.That(t, refined.Z, test.ShouldAlmostEqual, point.Z, 1e-6)
}

func TestNloptRefinePointMismatchedInputs(t *testing.T) {
	centers, bearings, point := refinementScene()
	pr := NewNloptPointRefiner(golog.NewTestLogger(t), 0)
	test.That(t, func() {
		_, _ = pr.RefinePoint(context.Background(), centers[:1], bearings, point)
	}, test.ShouldPanic)
}
