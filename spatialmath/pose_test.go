package spatialmath

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/dual"

	"gosfm/numeric"
)

func TestPoseSliceRoundTrip(t *testing.T) {
	p := NewPoseFromSlice([]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6})
	test.That(t, p.Rotation, test.ShouldResemble, r3.Vector{X: 0.1, Y: 0.2, Z: 0.3})
	test.That(t, p.Translation, test.ShouldResemble, r3.Vector{X: 0.4, Y: 0.5, Z: 0.6})
	test.That(t, p.Slice(), test.ShouldResemble, []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6})

	test.That(t, func() { NewPoseFromSlice([]float64{1, 2, 3}) }, test.ShouldPanic)
}

func TestPoseTransformPoint(t *testing.T) {
	p := NewPose(r3.Vector{X: 0.1, Y: 0.2, Z: 0.3}, r3.Vector{X: 0.4, Y: 0.5, Z: 0.6})
	pt := r3.Vector{X: 1, Y: 2, Z: 3}
	got := p.TransformPoint(pt)
	want := AngleAxisRotatePoint(p.Rotation, pt).Add(p.Translation)
	test.That(t, got, test.ShouldResemble, want)
}

func TestPoseInvert(t *testing.T) {
	p := NewPose(r3.Vector{X: 0.7, Y: -0.2, Z: 0.5}, r3.Vector{X: -1, Y: 2, Z: 0.3})
	pt := r3.Vector{X: 0.3, Y: -0.8, Z: 1.9}
	back := p.Invert().TransformPoint(p.TransformPoint(pt))
	test.That(t, back.X, test.ShouldAlmostEqual, pt.X, 1e-12)
	test.That(t, back.Y, test.ShouldAlmostEqual, pt.Y, 1e-12)
	test.That(t, back.Z, test.ShouldAlmostEqual, pt.Z, 1e-12)
}

func TestPoseCompose(t *testing.T) {
	outer := NewPose(r3.Vector{X: 0.1, Y: 0.2, Z: 0.3}, r3.Vector{X: 0.4, Y: 0.5, Z: 0.6})
	inner := NewPose(r3.Vector{X: -0.4, Y: 0.1, Z: 0.8}, r3.Vector{X: 1.5, Y: -0.3, Z: 0.2})
	composed := Compose(outer, inner)

	pt := r3.Vector{X: 2, Y: -1, Z: 4}
	got := composed.TransformPoint(pt)
	want := outer.TransformPoint(inner.TransformPoint(pt))
	test.That(t, got.X, test.ShouldAlmostEqual, want.X, 1e-12)
	test.That(t, got.Y, test.ShouldAlmostEqual, want.Y, 1e-12)
	test.That(t, got.Z, test.ShouldAlmostEqual, want.Z, 1e-12)

	ident := Compose(outer, outer.Invert())
	test.That(t, ident.Rotation.Norm(), test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, ident.Translation.Norm(), test.ShouldAlmostEqual, 0, 1e-12)
}

func TestPoseOrigin(t *testing.T) {
	p := NewPose(r3.Vector{X: 0.1, Y: 0.2, Z: 0.3}, r3.Vector{X: 0.4, Y: 0.5, Z: 0.6})
	atOrigin := p.TransformPoint(p.Origin())
	test.That(t, atOrigin.Norm(), test.ShouldAlmostEqual, 0, 1e-13)
}

func TestPoseMatrix34(t *testing.T) {
	p := NewPose(r3.Vector{X: 0.1, Y: 0.2, Z: 0.3}, r3.Vector{X: 0.4, Y: 0.5, Z: 0.6})
	rt := p.Matrix34()
	r, c := rt.Dims()
	test.That(t, r, test.ShouldEqual, 3)
	test.That(t, c, test.ShouldEqual, 4)

	pt := r3.Vector{X: 1, Y: 2, Z: 3}
	var out mat.VecDense
	out.MulVec(rt, mat.NewVecDense(4, []float64{pt.X, pt.Y, pt.Z, 1}))
	want := p.TransformPoint(pt)
	test.That(t, out.AtVec(0), test.ShouldAlmostEqual, want.X, 1e-13)
	test.That(t, out.AtVec(1), test.ShouldAlmostEqual, want.Y, 1e-13)
	test.That(t, out.AtVec(2), test.ShouldAlmostEqual, want.Z, 1e-13)

	test.That(t, func() { Matrix34FromRT(mat.NewDense(2, 2, nil), r3.Vector{}) }, test.ShouldPanic)
}

func TestComposePoseDerivativesAgainstDual(t *testing.T) {
	var ops numeric.DualOps
	camera := NewPose(r3.Vector{X: -0.2, Y: 0.4, Z: 0.1}, r3.Vector{X: 0.9, Y: -0.1, Z: 0.7})
	instance := NewPose(r3.Vector{X: 0.3, Y: -0.5, Z: 0.2}, r3.Vector{X: -1.1, Y: 0.6, Z: 0.4})
	pt := r3.Vector{X: 1, Y: 2, Z: 3}

	camPoint, jacCamera, jacInstance, jacPoint := ComposePoseDerivatives(camera, instance, pt)
	want := camera.TransformPoint(instance.TransformPoint(pt))
	test.That(t, camPoint.X, test.ShouldAlmostEqual, want.X, 1e-14)
	test.That(t, camPoint.Y, test.ShouldAlmostEqual, want.Y, 1e-14)
	test.That(t, camPoint.Z, test.ShouldAlmostEqual, want.Z, 1e-14)

	cameraV := camera.Slice()
	instanceV := instance.Slice()
	ptV := []float64{pt.X, pt.Y, pt.Z}
	for j := 0; j < 15; j++ {
		cameraD := make([]dual.Number, 6)
		instanceD := make([]dual.Number, 6)
		var ptD [3]dual.Number
		for i := 0; i < 6; i++ {
			cameraD[i] = ops.FromFloat(cameraV[i])
			instanceD[i] = ops.FromFloat(instanceV[i])
		}
		for i := 0; i < 3; i++ {
			ptD[i] = ops.FromFloat(ptV[i])
		}
		switch {
		case j < 6:
			cameraD[j] = numeric.Var(cameraV[j])
		case j < 12:
			instanceD[j-6] = numeric.Var(instanceV[j-6])
		default:
			ptD[j-12] = numeric.Var(ptV[j-12])
		}

		rig := TransformPointGeneric[dual.Number](ops,
			[6]dual.Number{instanceD[0], instanceD[1], instanceD[2], instanceD[3], instanceD[4], instanceD[5]}, ptD)
		out := TransformPointGeneric[dual.Number](ops,
			[6]dual.Number{cameraD[0], cameraD[1], cameraD[2], cameraD[3], cameraD[4], cameraD[5]}, rig)
		for i := 0; i < 3; i++ {
			switch {
			case j < 6:
				test.That(t, jacCamera.At(i, j), test.ShouldAlmostEqual, out[i].Emag, 1e-13)
			case j < 12:
				test.That(t, jacInstance.At(i, j-6), test.ShouldAlmostEqual, out[i].Emag, 1e-13)
			default:
				test.That(t, jacPoint.At(i, j-12), test.ShouldAlmostEqual, out[i].Emag, 1e-13)
			}
		}
	}
}

func TestTransformPointDerivativesAgainstDual(t *testing.T) {
	var ops numeric.DualOps
	p := NewPose(r3.Vector{X: 0.1, Y: 0.2, Z: 0.3}, r3.Vector{X: 0.4, Y: 0.5, Z: 0.6})
	pt := r3.Vector{X: 1, Y: 2, Z: 3}

	out, jacPose, jacPoint := p.TransformPointDerivatives(pt)
	want := p.TransformPoint(pt)
	test.That(t, out.X, test.ShouldAlmostEqual, want.X, 1e-14)
	test.That(t, out.Y, test.ShouldAlmostEqual, want.Y, 1e-14)
	test.That(t, out.Z, test.ShouldAlmostEqual, want.Z, 1e-14)

	params := p.Slice()
	ptV := []float64{pt.X, pt.Y, pt.Z}
	for j := 0; j < 9; j++ {
		poseD := make([]dual.Number, 6)
		var ptD [3]dual.Number
		for i := 0; i < 6; i++ {
			poseD[i] = ops.FromFloat(params[i])
		}
		for i := 0; i < 3; i++ {
			ptD[i] = ops.FromFloat(ptV[i])
		}
		if j < 6 {
			poseD[j] = numeric.Var(params[j])
		} else {
			ptD[j-6] = numeric.Var(ptV[j-6])
		}

		rotated := RotatePointGeneric[dual.Number](ops,
			[3]dual.Number{poseD[0], poseD[1], poseD[2]}, ptD)
		for i := 0; i < 3; i++ {
			outD := ops.Add(rotated[i], poseD[3+i])
			if j < 6 {
				test.That(t, jacPose.At(i, j), test.ShouldAlmostEqual, outD.Emag, 1e-13)
			} else {
				test.That(t, jacPoint.At(i, j-6), test.ShouldAlmostEqual, outD.Emag, 1e-13)
			}
		}
	}
}
