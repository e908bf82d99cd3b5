package geometry

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"gosfm/spatialmath"
)

func TestBearingRoundTrip(t *testing.T) {
	points := []r3.Vector{
		{X: 0.2, Y: -0.3, Z: 1},
		{X: 0.5, Y: 0.4, Z: 2},
		{Z: 1},
	}
	for projType, params := range modelParams {
		t.Run(string(projType), func(t *testing.T) {
			for _, point := range points {
				obs := Project(projType, params, point)
				got := Bearing(projType, params, obs)
				want := spatialmath.NormalizeVector(point)
				test.That(t, got.Norm(), test.ShouldAlmostEqual, 1, 1e-12)
				test.That(t, got.X, test.ShouldAlmostEqual, want.X, 1e-8)
				test.That(t, got.Y, test.ShouldAlmostEqual, want.Y, 1e-8)
				test.That(t, got.Z, test.ShouldAlmostEqual, want.Z, 1e-8)
			}
		})
	}
}

func TestBearingSphericalFullSphere(t *testing.T) {
	// the panorama wraps the whole sphere, so directions behind the camera
	// round trip too
	directions := []r3.Vector{
		{X: -1, Y: 0.4, Z: -2},
		{X: 0.1, Y: -2, Z: 0.3},
		{Z: -1},
	}
	for _, d := range directions {
		obs := Project(Spherical, nil, d)
		got := Bearing(Spherical, nil, obs)
		want := spatialmath.NormalizeVector(d)
		test.That(t, got.X, test.ShouldAlmostEqual, want.X, 1e-12)
		test.That(t, got.Y, test.ShouldAlmostEqual, want.Y, 1e-12)
		test.That(t, got.Z, test.ShouldAlmostEqual, want.Z, 1e-12)
	}
}

func TestCameraProjectBearing(t *testing.T) {
	cam, err := NewCamera(Perspective, []float64{0.3, 0.1, -0.03})
	test.That(t, err, test.ShouldBeNil)

	point := r3.Vector{X: 0.2, Y: -0.3, Z: 1}
	test.That(t, cam.Project(point), test.ShouldResemble, Project(cam.Type, cam.Parameters, point))

	obs := []r2.Point{{X: 0.05, Y: -0.02}, {X: -0.1, Y: 0.08}, {}}
	batch := cam.Bearings(obs)
	test.That(t, len(batch), test.ShouldEqual, len(obs))
	for i, o := range obs {
		test.That(t, batch[i], test.ShouldResemble, cam.Bearing(o))
	}
}
