package geometry

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"gosfm/spatialmath"
)

// Distortion polynomials have no closed form inverse, so bearings are
// recovered by Newton iteration on the forward model seeded at the
// distorted point.
const (
	undistortIterations = 20
	undistortTolerance  = 1e-10
)

type distoDerivFunc func(p []float64, x, y float64) (float64, float64, [4]float64, []float64)

// undistort solves forward(x, y) = (xd, yd) for the undistorted point,
// inverting the 2x2 point Jacobian of the distortion at every step.
func undistort(forward distoDerivFunc, p []float64, xd, yd float64) (float64, float64) {
	xu, yu := xd, yd
	for i := 0; i < undistortIterations; i++ {
		fx, fy, jac, _ := forward(p, xu, yu)
		errX, errY := fx-xd, fy-yd
		if errX*errX+errY*errY < undistortTolerance*undistortTolerance {
			break
		}
		det := jac[0]*jac[3] - jac[1]*jac[2]
		if det == 0 {
			break
		}
		xu -= (jac[3]*errX - jac[1]*errY) / det
		yu -= (-jac[2]*errX + jac[0]*errY) / det
	}
	return xu, yu
}

// affineInvert maps an observation back to the normalized plane for models
// carrying [focal aspect_ratio cx cy] in their first four parameters.
func affineInvert(p []float64, obs r2.Point) (float64, float64) {
	return (obs.X - p[2]) / p[0], (obs.Y - p[3]) / (p[0] * p[1])
}

// fisheyeUnproject lifts an undistorted fisheye plane point, whose radius is
// the incidence angle, back to a unit bearing.
func fisheyeUnproject(x, y float64) r3.Vector {
	theta := math.Sqrt(x*x + y*y)
	s := math.Sin(theta) / math.Max(theta, normEps)
	return r3.Vector{X: s * x, Y: s * y, Z: math.Cos(theta)}
}

func bearingPerspective(p []float64, obs r2.Point) r3.Vector {
	x, y := undistort(disto24Derivatives, p[1:], obs.X/p[0], obs.Y/p[0])
	return spatialmath.NormalizeVector(r3.Vector{X: x, Y: y, Z: 1})
}

func bearingBrown(p []float64, obs r2.Point) r3.Vector {
	x, y := affineInvert(p, obs)
	x, y = undistort(distoBrownDerivatives, p[4:], x, y)
	return spatialmath.NormalizeVector(r3.Vector{X: x, Y: y, Z: 1})
}

func bearingFisheye(p []float64, obs r2.Point) r3.Vector {
	x, y := undistort(disto24Derivatives, p[1:], obs.X/p[0], obs.Y/p[0])
	return fisheyeUnproject(x, y)
}

func bearingFisheyeOpenCV(p []float64, obs r2.Point) r3.Vector {
	x, y := affineInvert(p, obs)
	x, y = undistort(disto2468Derivatives, p[4:], x, y)
	return fisheyeUnproject(x, y)
}

func bearingFisheye62(p []float64, obs r2.Point) r3.Vector {
	x, y := affineInvert(p, obs)
	x, y = undistort(disto62Derivatives, p[4:], x, y)
	return fisheyeUnproject(x, y)
}

func bearingFisheye624(p []float64, obs r2.Point) r3.Vector {
	x, y := affineInvert(p, obs)
	x, y = undistort(disto624Derivatives, p[4:], x, y)
	return fisheyeUnproject(x, y)
}

func bearingDual(p []float64, obs r2.Point) r3.Vector {
	transition, focal := p[0], p[1]
	x, y := undistort(disto24Derivatives, p[2:], obs.X/focal, obs.Y/focal)
	rho := math.Sqrt(x*x + y*y)
	theta := solveDualTheta(transition, rho)
	s := math.Sin(theta) / math.Max(rho, normEps)
	return r3.Vector{X: s * x, Y: s * y, Z: math.Cos(theta)}
}

// solveDualTheta inverts rho = transition·tan(theta) + (1-transition)·theta,
// the radius the dual projection produces for incidence angle theta.
func solveDualTheta(transition, rho float64) float64 {
	theta := rho
	for i := 0; i < undistortIterations; i++ {
		tanTheta := math.Tan(theta)
		f := transition*tanTheta + (1-transition)*theta - rho
		if math.Abs(f) < undistortTolerance {
			break
		}
		df := transition*(1+tanTheta*tanTheta) + (1 - transition)
		theta -= f / df
	}
	return theta
}

func bearingSpherical(_ []float64, obs r2.Point) r3.Vector {
	lon := obs.X * 2 * math.Pi
	lat := -obs.Y * 2 * math.Pi
	return r3.Vector{
		X: math.Cos(lat) * math.Sin(lon),
		Y: -math.Sin(lat),
		Z: math.Cos(lat) * math.Cos(lon),
	}
}
