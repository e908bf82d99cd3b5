// Package bundle implements the residual and Jacobian primitives a bundle
// adjustment optimizer evaluates every iteration.
//
// Parameter and Jacobian blocks follow a fixed order: camera intrinsics,
// camera-in-rig pose, rig instance pose, then the world point. The 3D
// functor drops the intrinsics block since the spherical model has none.
// Each Jacobian block is row major with one row per residual; pose blocks
// are 6 wide in the [rx ry rz tx ty tz] layout.
package bundle

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"gosfm/geometry"
	"gosfm/spatialmath"
)

// ReprojectionError2D scores one image observation against the projection
// of a world point through an instance pose, a camera-in-rig pose and a
// camera model. It covers every projection type except spherical.
type ReprojectionError2D struct {
	projType        geometry.ProjectionType
	observed        r2.Point
	scale           float64
	scaleBeforeDiff bool
}

// NewReprojectionError2D captures the observation and its confidence scale.
// scaleBeforeDiff selects whether the scale multiplies each operand before
// differencing or the difference itself; the two are algebraically equal
// but round differently, and every evaluation path honors the choice.
func NewReprojectionError2D(projType geometry.ProjectionType, observed r2.Point, scale float64, scaleBeforeDiff bool) *ReprojectionError2D {
	return &ReprojectionError2D{
		projType:        projType,
		observed:        observed,
		scale:           scale,
		scaleBeforeDiff: scaleBeforeDiff,
	}
}

// Evaluate computes the 2 element residual and, unless jacobians is nil,
// the Jacobian blocks in the package block order. A nil entry skips that
// block. It reports whether the residuals came out finite.
func (e *ReprojectionError2D) Evaluate(parameters [][]float64, residuals []float64, jacobians [][]float64) bool {
	if len(parameters) != 4 {
		panic("bundle: 2d reprojection takes camera, camera pose, instance pose and point blocks")
	}
	camera := parameters[0]
	cameraPose := spatialmath.NewPoseFromSlice(parameters[1])
	instancePose := spatialmath.NewPoseFromSlice(parameters[2])
	point := r3.Vector{X: parameters[3][0], Y: parameters[3][1], Z: parameters[3][2]}

	if jacobians == nil {
		predicted := geometry.Project(e.projType, camera, cameraPose.TransformPoint(instancePose.TransformPoint(point)))
		e.writeResiduals(residuals, predicted)
		return residualsFinite(residuals)
	}

	camPoint, jacCamera, jacInstance, jacPoint := spatialmath.ComposePoseDerivatives(cameraPose, instancePose, point)
	predicted, jacProjPoint, jacProjParams := geometry.ProjectDerivatives(e.projType, camera, camPoint)
	if jacobians[0] != nil && jacProjParams != nil {
		writeScaled(jacobians[0], e.scale, jacProjParams)
	}
	if jacobians[1] != nil {
		writeProduct(jacobians[1], e.scale, jacProjPoint, jacCamera)
	}
	if jacobians[2] != nil {
		writeProduct(jacobians[2], e.scale, jacProjPoint, jacInstance)
	}
	if jacobians[3] != nil {
		writeProduct(jacobians[3], e.scale, jacProjPoint, jacPoint)
	}
	e.writeResiduals(residuals, predicted)
	return residualsFinite(residuals)
}

func (e *ReprojectionError2D) writeResiduals(residuals []float64, predicted r2.Point) {
	if e.scaleBeforeDiff {
		residuals[0] = e.scale*predicted.X - e.scale*e.observed.X
		residuals[1] = e.scale*predicted.Y - e.scale*e.observed.Y
		return
	}
	residuals[0] = e.scale * (predicted.X - e.observed.X)
	residuals[1] = e.scale * (predicted.Y - e.observed.Y)
}

// ReprojectionError3D scores a panoramic observation as a 3 element
// residual on the unit sphere. There is no intrinsics block, so parameter
// order is camera-in-rig pose, instance pose, point.
type ReprojectionError3D struct {
	observed        r3.Vector
	scale           float64
	scaleBeforeDiff bool
}

// NewReprojectionError3D converts the observation to its unit bearing once
// at construction through the projection model's inverse.
func NewReprojectionError3D(projType geometry.ProjectionType, observed r2.Point, scale float64, scaleBeforeDiff bool) *ReprojectionError3D {
	return &ReprojectionError3D{
		observed:        geometry.Bearing(projType, nil, observed),
		scale:           scale,
		scaleBeforeDiff: scaleBeforeDiff,
	}
}

// Evaluate computes the 3 element residual and, unless jacobians is nil,
// the camera pose, instance pose and point Jacobian blocks. A nil entry
// skips that block. It reports whether the residuals came out finite.
func (e *ReprojectionError3D) Evaluate(parameters [][]float64, residuals []float64, jacobians [][]float64) bool {
	if len(parameters) != 3 {
		panic("bundle: 3d reprojection takes camera pose, instance pose and point blocks")
	}
	cameraPose := spatialmath.NewPoseFromSlice(parameters[0])
	instancePose := spatialmath.NewPoseFromSlice(parameters[1])
	point := r3.Vector{X: parameters[2][0], Y: parameters[2][1], Z: parameters[2][2]}

	if jacobians == nil {
		predicted := spatialmath.NormalizeVector(cameraPose.TransformPoint(instancePose.TransformPoint(point)))
		e.writeResiduals(residuals, predicted)
		return residualsFinite(residuals)
	}

	camPoint, jacCamera, jacInstance, jacPoint := spatialmath.ComposePoseDerivatives(cameraPose, instancePose, point)
	predicted, jacNorm := spatialmath.NormalizeVectorDerivatives(camPoint)
	if jacobians[0] != nil {
		writeProduct(jacobians[0], e.scale, jacNorm, jacCamera)
	}
	if jacobians[1] != nil {
		writeProduct(jacobians[1], e.scale, jacNorm, jacInstance)
	}
	if jacobians[2] != nil {
		writeProduct(jacobians[2], e.scale, jacNorm, jacPoint)
	}
	e.writeResiduals(residuals, predicted)
	return residualsFinite(residuals)
}

func (e *ReprojectionError3D) writeResiduals(residuals []float64, predicted r3.Vector) {
	pv := [3]float64{predicted.X, predicted.Y, predicted.Z}
	ov := [3]float64{e.observed.X, e.observed.Y, e.observed.Z}
	for i := 0; i < 3; i++ {
		if e.scaleBeforeDiff {
			residuals[i] = e.scale*pv[i] - e.scale*ov[i]
		} else {
			residuals[i] = e.scale * (pv[i] - ov[i])
		}
	}
}

// writeScaled copies scale times m into a caller owned row major block.
func writeScaled(dst []float64, scale float64, m mat.Matrix) {
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dst[i*cols+j] = scale * m.At(i, j)
		}
	}
}

// writeProduct writes scale times a·b into a caller owned row major block.
func writeProduct(dst []float64, scale float64, a, b mat.Matrix) {
	var prod mat.Dense
	prod.Mul(a, b)
	writeScaled(dst, scale, &prod)
}

func residualsFinite(residuals []float64) bool {
	for _, r := range residuals {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return false
		}
	}
	return true
}
