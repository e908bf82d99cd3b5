// Package geometry implements the camera projection models and the
// multi-view solvers built on top of them: bearing triangulation, point
// refinement and relative pose recovery.
//
// A projection model maps a point in the camera frame to a normalized image
// point. Every model is a chain of up to three stages: a projection onto the
// image plane, a distortion polynomial and an affine plane-to-image mapping.
// The analytic derivative kernels of each stage are composed by the chain
// rule, and their generic twins in projection_generic.go run the same
// arithmetic over the numeric scalar abstraction so the two paths can be
// checked against each other.
package geometry

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ProjectionType is the name of a camera projection model.
type ProjectionType string

const (
	// Perspective is a pinhole projection with two radial distortion
	// coefficients. Parameters: [focal k1 k2].
	Perspective = ProjectionType("perspective")
	// Brown is a pinhole projection with the full Brown-Conrady radial and
	// tangential distortion. Parameters: [focal aspect_ratio cx cy k1 k2 k3 p1 p2].
	Brown = ProjectionType("brown")
	// Fisheye is an equidistant fisheye with two radial coefficients.
	// Parameters: [focal k1 k2].
	Fisheye = ProjectionType("fisheye")
	// FisheyeOpenCV is the four coefficient fisheye model used by OpenCV.
	// Parameters: [focal aspect_ratio cx cy k1 k2 k3 k4].
	FisheyeOpenCV = ProjectionType("fisheye_opencv")
	// Fisheye62 is a fisheye with six radial and two tangential
	// coefficients. Parameters: [focal aspect_ratio cx cy k1..k6 p1 p2].
	Fisheye62 = ProjectionType("fisheye62")
	// Fisheye624 extends Fisheye62 with four thin prism coefficients.
	// Parameters: [focal aspect_ratio cx cy k1..k6 p1 p2 s0 s1 s2 s3].
	Fisheye624 = ProjectionType("fisheye624")
	// Dual blends the perspective and fisheye projections with a transition
	// parameter, 1 being fully perspective. Parameters: [transition focal k1 k2].
	Dual = ProjectionType("dual")
	// Spherical maps bearings to normalized panorama coordinates and has no
	// parameters.
	Spherical = ProjectionType("spherical")
)

// normEps floors vanishing radii so points on the optical axis stay finite.
const normEps = 0x1p-52

// model gathers the kernels of one projection type. Kernels assume the
// parameter slice has exactly paramCount entries; lookup enforces that.
type model struct {
	paramCount  int
	project     func(p []float64, point r3.Vector) r2.Point
	derivatives func(p []float64, point r3.Vector) (r2.Point, *mat.Dense, *mat.Dense)
	bearing     func(p []float64, obs r2.Point) r3.Vector
}

var models = map[ProjectionType]model{
	Perspective:   {3, projectPerspective, projectPerspectiveDerivatives, bearingPerspective},
	Brown:         {9, projectBrown, projectBrownDerivatives, bearingBrown},
	Fisheye:       {3, projectFisheye, projectFisheyeDerivatives, bearingFisheye},
	FisheyeOpenCV: {8, projectFisheyeOpenCV, projectFisheyeOpenCVDerivatives, bearingFisheyeOpenCV},
	Fisheye62:     {12, projectFisheye62, projectFisheye62Derivatives, bearingFisheye62},
	Fisheye624:    {16, projectFisheye624, projectFisheye624Derivatives, bearingFisheye624},
	Dual:          {4, projectDual, projectDualDerivatives, bearingDual},
	Spherical:     {0, projectSpherical, projectSphericalDerivatives, bearingSpherical},
}

func lookup(projType ProjectionType, params []float64) model {
	m, ok := models[projType]
	if !ok {
		panic(errors.Errorf("geometry: unknown projection type %q", projType))
	}
	if len(params) != m.paramCount {
		panic(errors.Errorf("geometry: %s camera expects %d parameters, got %d", projType, m.paramCount, len(params)))
	}
	return m
}

// ParamCount returns the length of the parameter vector a projection type
// expects. It panics on an unknown type; configuration level validation goes
// through Camera.CheckValid instead.
func ParamCount(projType ProjectionType) int {
	m, ok := models[projType]
	if !ok {
		panic(errors.Errorf("geometry: unknown projection type %q", projType))
	}
	return m.paramCount
}

// Project maps a camera frame point to a normalized image point.
func Project(projType ProjectionType, params []float64, point r3.Vector) r2.Point {
	return lookup(projType, params).project(params, point)
}

// ProjectDerivatives maps a camera frame point to a normalized image point
// and returns the projection together with its 2x3 Jacobian with respect to
// the point and its 2xN Jacobian with respect to the parameter vector. The
// parameter Jacobian is nil for models without parameters.
func ProjectDerivatives(projType ProjectionType, params []float64, point r3.Vector) (r2.Point, *mat.Dense, *mat.Dense) {
	return lookup(projType, params).derivatives(params, point)
}

// Bearing inverts Project, returning the unit direction in the camera frame
// whose projection is obs. Distortion polynomials are inverted numerically,
// so the round trip is exact only up to the solver tolerance.
func Bearing(projType ProjectionType, params []float64, obs r2.Point) r3.Vector {
	return lookup(projType, params).bearing(params, obs)
}

// projection stage kernels

func perspectiveDivide(point r3.Vector) (float64, float64) {
	return point.X / point.Z, point.Y / point.Z
}

func perspectiveDivideDerivatives(point r3.Vector) (float64, float64, [6]float64) {
	x, y := point.X/point.Z, point.Y/point.Z
	invZ := 1 / point.Z
	return x, y, [6]float64{
		invZ, 0, -x * invZ,
		0, invZ, -y * invZ,
	}
}

func fisheyeMap(point r3.Vector) (float64, float64) {
	rr := point.X*point.X + point.Y*point.Y
	r := math.Max(math.Sqrt(rr), normEps)
	g := math.Atan2(r, point.Z) / r
	return g * point.X, g * point.Y
}

func fisheyeMapDerivatives(point r3.Vector) (float64, float64, [6]float64) {
	x, y, z := point.X, point.Y, point.Z
	rr := x*x + y*y
	rRaw := math.Sqrt(rr)
	r := math.Max(rRaw, normEps)
	g := math.Atan2(r, z) / r
	s := r*r + z*z

	// dr/dx and dr/dy vanish when the radius floor is active
	var drx, dry float64
	if rRaw >= normEps {
		drx, dry = x/r, y/r
	}
	// dg/d• from theta = atan2(r, z) and g = theta/r
	a := (z/s - g) / r
	hx := drx * a
	hy := dry * a
	hz := -1 / s

	return g * x, g * y, [6]float64{
		g + x*hx, x * hy, x * hz,
		y * hx, g + y*hy, y * hz,
	}
}

func sphericalMap(point r3.Vector) (float64, float64) {
	lon := math.Atan2(point.X, point.Z)
	rho := math.Max(math.Sqrt(point.X*point.X+point.Z*point.Z), normEps)
	lat := math.Atan2(-point.Y, rho)
	return lon / (2 * math.Pi), -lat / (2 * math.Pi)
}

func sphericalMapDerivatives(point r3.Vector) (float64, float64, [6]float64) {
	x, y, z := point.X, point.Y, point.Z
	lon := math.Atan2(x, z)
	rhoRaw := math.Sqrt(x*x + z*z)
	rho := math.Max(rhoRaw, normEps)
	lat := math.Atan2(-y, rho)

	var drx, drz float64
	if rhoRaw >= normEps {
		drx, drz = x/rho, z/rho
	}
	inv2Pi := 1 / (2 * math.Pi)
	lonDen := x*x + z*z
	latDen := rho*rho + y*y

	return lon / (2 * math.Pi), -lat / (2 * math.Pi), [6]float64{
		z / lonDen * inv2Pi, 0, -x / lonDen * inv2Pi,
		-y * drx / latDen * inv2Pi, rho / latDen * inv2Pi, -y * drz / latDen * inv2Pi,
	}
}

func dualMap(transition float64, point r3.Vector) (float64, float64) {
	px, py := perspectiveDivide(point)
	fx, fy := fisheyeMap(point)
	return transition*px + (1-transition)*fx, transition*py + (1-transition)*fy
}

func dualMapDerivatives(transition float64, point r3.Vector) (x, y, dTx, dTy float64, jac [6]float64) {
	px, py, jacP := perspectiveDivideDerivatives(point)
	fx, fy, jacF := fisheyeMapDerivatives(point)
	x = transition*px + (1-transition)*fx
	y = transition*py + (1-transition)*fy
	dTx = px - fx
	dTy = py - fy
	for i := range jac {
		jac[i] = transition*jacP[i] + (1-transition)*jacF[i]
	}
	return x, y, dTx, dTy, jac
}

// 2x2 times 2xN block helpers, all row major

func mulBlock(a [4]float64, b []float64) []float64 {
	n := len(b) / 2
	out := make([]float64, len(b))
	for j := 0; j < n; j++ {
		out[j] = a[0]*b[j] + a[1]*b[n+j]
		out[n+j] = a[2]*b[j] + a[3]*b[n+j]
	}
	return out
}

func scaleBlock(s float64, b []float64) []float64 {
	out := make([]float64, len(b))
	for i := range b {
		out[i] = s * b[i]
	}
	return out
}

// model assembly

func projectPerspective(p []float64, point r3.Vector) r2.Point {
	x, y := perspectiveDivide(point)
	x, y = disto24(p[1:], x, y)
	return r2.Point{X: p[0] * x, Y: p[0] * y}
}

func projectPerspectiveDerivatives(p []float64, point r3.Vector) (r2.Point, *mat.Dense, *mat.Dense) {
	x, y, jacProj := perspectiveDivideDerivatives(point)
	dx, dy, jacPt, jacK := disto24Derivatives(p[1:], x, y)
	focal := p[0]

	jacPoint := mat.NewDense(2, 3, scaleBlock(focal, mulBlock(jacPt, jacProj[:])))
	jacParams := mat.NewDense(2, 3, nil)
	jacParams.SetCol(0, []float64{dx, dy})
	setParamCols(jacParams, 1, scaleBlock(focal, jacK))
	return r2.Point{X: focal * dx, Y: focal * dy}, jacPoint, jacParams
}

func projectBrown(p []float64, point r3.Vector) r2.Point {
	x, y := perspectiveDivide(point)
	x, y = distoBrown(p[4:], x, y)
	return affineForward(p, x, y)
}

func projectBrownDerivatives(p []float64, point r3.Vector) (r2.Point, *mat.Dense, *mat.Dense) {
	x, y, jacProj := perspectiveDivideDerivatives(point)
	dx, dy, jacPt, jacK := distoBrownDerivatives(p[4:], x, y)
	return affineDerivatives(p, dx, dy, mulBlock(jacPt, jacProj[:]), jacK)
}

func projectFisheye(p []float64, point r3.Vector) r2.Point {
	x, y := fisheyeMap(point)
	x, y = disto24(p[1:], x, y)
	return r2.Point{X: p[0] * x, Y: p[0] * y}
}

func projectFisheyeDerivatives(p []float64, point r3.Vector) (r2.Point, *mat.Dense, *mat.Dense) {
	x, y, jacProj := fisheyeMapDerivatives(point)
	dx, dy, jacPt, jacK := disto24Derivatives(p[1:], x, y)
	focal := p[0]

	jacPoint := mat.NewDense(2, 3, scaleBlock(focal, mulBlock(jacPt, jacProj[:])))
	jacParams := mat.NewDense(2, 3, nil)
	jacParams.SetCol(0, []float64{dx, dy})
	setParamCols(jacParams, 1, scaleBlock(focal, jacK))
	return r2.Point{X: focal * dx, Y: focal * dy}, jacPoint, jacParams
}

func projectFisheyeOpenCV(p []float64, point r3.Vector) r2.Point {
	x, y := fisheyeMap(point)
	x, y = disto2468(p[4:], x, y)
	return affineForward(p, x, y)
}

func projectFisheyeOpenCVDerivatives(p []float64, point r3.Vector) (r2.Point, *mat.Dense, *mat.Dense) {
	x, y, jacProj := fisheyeMapDerivatives(point)
	dx, dy, jacPt, jacK := disto2468Derivatives(p[4:], x, y)
	return affineDerivatives(p, dx, dy, mulBlock(jacPt, jacProj[:]), jacK)
}

func projectFisheye62(p []float64, point r3.Vector) r2.Point {
	x, y := fisheyeMap(point)
	x, y = disto62(p[4:], x, y)
	return affineForward(p, x, y)
}

func projectFisheye62Derivatives(p []float64, point r3.Vector) (r2.Point, *mat.Dense, *mat.Dense) {
	x, y, jacProj := fisheyeMapDerivatives(point)
	dx, dy, jacPt, jacK := disto62Derivatives(p[4:], x, y)
	return affineDerivatives(p, dx, dy, mulBlock(jacPt, jacProj[:]), jacK)
}

func projectFisheye624(p []float64, point r3.Vector) r2.Point {
	x, y := fisheyeMap(point)
	x, y = disto624(p[4:], x, y)
	return affineForward(p, x, y)
}

func projectFisheye624Derivatives(p []float64, point r3.Vector) (r2.Point, *mat.Dense, *mat.Dense) {
	x, y, jacProj := fisheyeMapDerivatives(point)
	dx, dy, jacPt, jacK := disto624Derivatives(p[4:], x, y)
	return affineDerivatives(p, dx, dy, mulBlock(jacPt, jacProj[:]), jacK)
}

func projectDual(p []float64, point r3.Vector) r2.Point {
	x, y := dualMap(p[0], point)
	x, y = disto24(p[2:], x, y)
	return r2.Point{X: p[1] * x, Y: p[1] * y}
}

func projectDualDerivatives(p []float64, point r3.Vector) (r2.Point, *mat.Dense, *mat.Dense) {
	x, y, dTx, dTy, jacBlend := dualMapDerivatives(p[0], point)
	dx, dy, jacPt, jacK := disto24Derivatives(p[2:], x, y)
	focal := p[1]

	jacPoint := mat.NewDense(2, 3, scaleBlock(focal, mulBlock(jacPt, jacBlend[:])))
	jacParams := mat.NewDense(2, 4, nil)
	transCol := mulBlock(jacPt, []float64{dTx, dTy})
	jacParams.SetCol(0, []float64{focal * transCol[0], focal * transCol[1]})
	jacParams.SetCol(1, []float64{dx, dy})
	setParamCols(jacParams, 2, scaleBlock(focal, jacK))
	return r2.Point{X: focal * dx, Y: focal * dy}, jacPoint, jacParams
}

func projectSpherical(_ []float64, point r3.Vector) r2.Point {
	x, y := sphericalMap(point)
	return r2.Point{X: x, Y: y}
}

func projectSphericalDerivatives(_ []float64, point r3.Vector) (r2.Point, *mat.Dense, *mat.Dense) {
	x, y, jac := sphericalMapDerivatives(point)
	return r2.Point{X: x, Y: y}, mat.NewDense(2, 3, jac[:]), nil
}

// affineForward applies the plane-to-image mapping of models carrying a
// focal, aspect ratio and principal point in their first four parameters.
func affineForward(p []float64, x, y float64) r2.Point {
	return r2.Point{X: p[0]*x + p[2], Y: p[0]*p[1]*y + p[3]}
}

// affineDerivatives finishes the derivative chain of an affine model:
// jacChain is the 2x3 point block and jacK the 2xN distortion block, both
// already composed up to the distortion output.
func affineDerivatives(p []float64, x, y float64, jacChain, jacK []float64) (r2.Point, *mat.Dense, *mat.Dense) {
	focal, ar := p[0], p[1]
	jacAffine := [4]float64{focal, 0, 0, focal * ar}

	jacPoint := mat.NewDense(2, 3, mulBlock(jacAffine, jacChain))
	jacParams := mat.NewDense(2, len(p), nil)
	jacParams.SetCol(0, []float64{x, ar * y})
	jacParams.SetCol(1, []float64{0, focal * y})
	jacParams.SetCol(2, []float64{1, 0})
	jacParams.SetCol(3, []float64{0, 1})
	setParamCols(jacParams, 4, mulBlock(jacAffine, jacK))
	return affineForward(p, x, y), jacPoint, jacParams
}

// setParamCols writes a 2xN row major block into dst starting at column col.
func setParamCols(dst *mat.Dense, col int, block []float64) {
	n := len(block) / 2
	for j := 0; j < n; j++ {
		dst.Set(0, col+j, block[j])
		dst.Set(1, col+j, block[n+j])
	}
}
