package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"gosfm/numeric"
)

// Pose is a rigid transform parameterized by an angle-axis rotation and a
// translation. It maps points as R(Rotation)·p + Translation. A
// world-to-camera pose therefore carries the camera rotation and translation
// directly, not their inverses.
type Pose struct {
	Rotation    r3.Vector
	Translation r3.Vector
}

// NewPose creates a pose from a rotation and a translation vector.
func NewPose(rotation, translation r3.Vector) Pose {
	return Pose{Rotation: rotation, Translation: translation}
}

// NewPoseFromSlice builds a pose from a 6 element [rx ry rz tx ty tz] slice,
// the parameter block layout the optimizer hands to evaluation calls.
func NewPoseFromSlice(p []float64) Pose {
	if len(p) != 6 {
		panic("spatialmath: pose parameter block must have 6 elements")
	}
	return Pose{
		Rotation:    r3.Vector{X: p[0], Y: p[1], Z: p[2]},
		Translation: r3.Vector{X: p[3], Y: p[4], Z: p[5]},
	}
}

// Slice returns the pose in the 6 element parameter block layout.
func (p Pose) Slice() []float64 {
	return []float64{
		p.Rotation.X, p.Rotation.Y, p.Rotation.Z,
		p.Translation.X, p.Translation.Y, p.Translation.Z,
	}
}

// TransformPoint applies the pose to a point.
func (p Pose) TransformPoint(pt r3.Vector) r3.Vector {
	return AngleAxisRotatePoint(p.Rotation, pt).Add(p.Translation)
}

// TransformPointDerivatives applies the pose to a point and returns the
// transformed point together with the Jacobian of the output with respect to
// the 6 pose parameters (3x6, rotation columns first) and with respect to
// the input point (3x3).
func (p Pose) TransformPointDerivatives(pt r3.Vector) (r3.Vector, *mat.Dense, *mat.Dense) {
	rotated, jacRot, jacPoint := RotatePointDerivatives(p.Rotation, pt)
	jacPose := mat.NewDense(3, 6, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			jacPose.Set(i, j, jacRot.At(i, j))
		}
		// translation enters additively
		jacPose.Set(i, i+3, 1)
	}
	return rotated.Add(p.Translation), jacPose, jacPoint
}

// TransformPointGeneric mirrors TransformPoint over the numeric scalar
// abstraction. The pose is in the 6 element parameter block layout.
func TransformPointGeneric[T any](ops numeric.Ops[T], pose [6]T, pt [3]T) [3]T {
	rotated := RotatePointGeneric(ops, [3]T{pose[0], pose[1], pose[2]}, pt)
	return [3]T{
		ops.Add(rotated[0], pose[3]),
		ops.Add(rotated[1], pose[4]),
		ops.Add(rotated[2], pose[5]),
	}
}

// ComposePoseDerivatives pushes a world point through an instance pose and
// then a camera pose and returns the camera frame point together with the
// Jacobian blocks of the whole chain: 3x6 with respect to the camera pose,
// 3x6 with respect to the instance pose and 3x3 with respect to the point.
func ComposePoseDerivatives(camera, instance Pose, pt r3.Vector) (r3.Vector, *mat.Dense, *mat.Dense, *mat.Dense) {
	rigPoint, jacInstance, jacRigPoint := instance.TransformPointDerivatives(pt)
	camPoint, jacCamera, jacCamRot := camera.TransformPointDerivatives(rigPoint)

	// the instance and point blocks both chain through the camera rotation
	jacInstanceOut := mat.NewDense(3, 6, nil)
	jacInstanceOut.Mul(jacCamRot, jacInstance)
	jacPoint := mat.NewDense(3, 3, nil)
	jacPoint.Mul(jacCamRot, jacRigPoint)
	return camPoint, jacCamera, jacInstanceOut, jacPoint
}

// Invert returns the pose mapping the output frame back to the input frame.
func (p Pose) Invert() Pose {
	invRot := p.Rotation.Mul(-1)
	return Pose{
		Rotation:    invRot,
		Translation: AngleAxisRotatePoint(invRot, p.Translation).Mul(-1),
	}
}

// Compose returns the pose equivalent to applying inner first and then
// outer. The rotation is composed through quaternions to stay numerically
// stable for large angles.
func Compose(outer, inner Pose) Pose {
	q := quat.Mul(AngleAxisToQuat(outer.Rotation), AngleAxisToQuat(inner.Rotation))
	return Pose{
		Rotation:    QuatToAngleAxis(q),
		Translation: AngleAxisRotatePoint(outer.Rotation, inner.Translation).Add(outer.Translation),
	}
}

// Origin returns the position of the pose's destination frame origin
// expressed in the source frame. For a world-to-camera pose this is the
// camera center, -R^T·t.
func (p Pose) Origin() r3.Vector {
	return AngleAxisRotatePoint(p.Rotation.Mul(-1), p.Translation).Mul(-1)
}

// Matrix34 returns the [R|t] matrix form consumed by the triangulation
// solvers.
func (p Pose) Matrix34() *mat.Dense {
	return Matrix34FromRT(AngleAxisToMatrix(p.Rotation), p.Translation)
}

// Matrix34FromRT assembles a 3x4 [R|t] pose matrix from a 3x3 rotation
// matrix and a translation vector.
func Matrix34FromRT(rot mat.Matrix, t r3.Vector) *mat.Dense {
	checkRotationDims(rot)
	out := mat.NewDense(3, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.Set(i, j, rot.At(i, j))
		}
	}
	out.Set(0, 3, t.X)
	out.Set(1, 3, t.Y)
	out.Set(2, 3, t.Z)
	return out
}
