package bundle

import (
	"gosfm/geometry"
	"gosfm/numeric"
	"gosfm/spatialmath"
)

// Evaluate2DGeneric computes the 2D reprojection residual over any scalar
// type, running the exact arithmetic of the analytic path. Instantiated
// with a derivative tracking scalar it serves as the reference the analytic
// Jacobians are validated against.
func Evaluate2DGeneric[T any](ops numeric.Ops[T], e *ReprojectionError2D, camera, cameraPose, instancePose, point, residuals []T) {
	instancePoint := spatialmath.TransformPointGeneric(ops, pose6(instancePose), point3(point))
	camPoint := spatialmath.TransformPointGeneric(ops, pose6(cameraPose), instancePoint)
	predicted := geometry.ProjectGeneric(ops, e.projType, camera, camPoint)

	scale := ops.FromFloat(e.scale)
	observed := [2]T{ops.FromFloat(e.observed.X), ops.FromFloat(e.observed.Y)}
	for i := 0; i < 2; i++ {
		if e.scaleBeforeDiff {
			residuals[i] = ops.Sub(ops.Mul(scale, predicted[i]), ops.Mul(scale, observed[i]))
		} else {
			residuals[i] = ops.Mul(scale, ops.Sub(predicted[i], observed[i]))
		}
	}
}

// Evaluate3DGeneric mirrors the 3D analytic evaluation over any scalar
// type: pose composition, unit sphere normalization, then the scaled
// difference against the observed bearing.
func Evaluate3DGeneric[T any](ops numeric.Ops[T], e *ReprojectionError3D, cameraPose, instancePose, point, residuals []T) {
	instancePoint := spatialmath.TransformPointGeneric(ops, pose6(instancePose), point3(point))
	camPoint := spatialmath.TransformPointGeneric(ops, pose6(cameraPose), instancePoint)
	predicted := spatialmath.NormalizeVectorGeneric(ops, camPoint)

	scale := ops.FromFloat(e.scale)
	observed := [3]T{ops.FromFloat(e.observed.X), ops.FromFloat(e.observed.Y), ops.FromFloat(e.observed.Z)}
	for i := 0; i < 3; i++ {
		if e.scaleBeforeDiff {
			residuals[i] = ops.Sub(ops.Mul(scale, predicted[i]), ops.Mul(scale, observed[i]))
		} else {
			residuals[i] = ops.Mul(scale, ops.Sub(predicted[i], observed[i]))
		}
	}
}

func pose6[T any](p []T) [6]T {
	if len(p) != 6 {
		panic("bundle: pose parameter block must have 6 elements")
	}
	return [6]T{p[0], p[1], p[2], p[3], p[4], p[5]}
}

func point3[T any](p []T) [3]T {
	if len(p) != 3 {
		panic("bundle: point parameter block must have 3 elements")
	}
	return [3]T{p[0], p[1], p[2]}
}
