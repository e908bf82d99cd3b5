package geometry

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"gosfm/spatialmath"
)

// EssentialFromPose returns the essential matrix [t]x·R of a relative pose
// mapping first camera coordinates into the second, so that bearings of the
// same point satisfy b2'·E·b1 = 0.
func EssentialFromPose(pose spatialmath.Pose) *mat.Dense {
	ess := mat.NewDense(3, 3, nil)
	ess.Mul(spatialmath.CrossProductMatrix(pose.Translation), spatialmath.AngleAxisToMatrix(pose.Rotation))
	return ess
}

// EssentialFromBearings estimates the essential matrix from eight or more
// bearing correspondences with the linear eight point algorithm, projecting
// the estimate onto the closest rank 2 matrix.
func EssentialFromBearings(bearings1, bearings2 []r3.Vector) (*mat.Dense, error) {
	if len(bearings1) != len(bearings2) {
		return nil, errors.New("sets of bearings must have the same number of elements")
	}
	if len(bearings1) < 8 {
		return nil, errors.New("sets of bearings must have at least 8 elements")
	}
	m := mat.NewDense(len(bearings1), 9, nil)
	for i := range bearings1 {
		b1 := bearings1[i]
		b2 := bearings2[i]
		m.SetRow(i, []float64{
			b2.X * b1.X, b2.X * b1.Y, b2.X * b1.Z,
			b2.Y * b1.X, b2.Y * b1.Y, b2.Y * b1.Z,
			b2.Z * b1.X, b2.Z * b1.Y, b2.Z * b1.Z,
		})
	}
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDFull) {
		return nil, errors.New("failed to factorize the constraint matrix")
	}
	var v mat.Dense
	svd.VTo(&v)
	data := make([]float64, 9)
	for i := range data {
		data[i] = v.At(i, 8)
	}
	return enforceRankTwo(mat.NewDense(3, 3, data))
}

// enforceRankTwo zeroes the smallest singular value of m.
func enforceRankTwo(m *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDFull) {
		return nil, errors.New("failed to factorize the essential matrix")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)
	s := mat.NewDense(3, 3, nil)
	s.Set(0, 0, values[0])
	s.Set(1, 1, values[1])
	var out mat.Dense
	out.Mul(&u, s)
	out.Mul(&out, v.T())
	return &out, nil
}

// PoseCandidatesFromEssential decomposes an essential matrix into the four
// [R|t] candidates compatible with it. Rotation blocks always come out with
// a positive determinant.
func PoseCandidatesFromEssential(essMat *mat.Dense) ([]*mat.Dense, error) {
	var svd mat.SVD
	if !svd.Factorize(essMat, mat.SVDFull) {
		return nil, errors.New("failed to factorize the essential matrix")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	vt := mat.DenseCopyOf(v.T())
	if mat.Det(&u) < 0 {
		u.Scale(-1, &u)
	}
	if mat.Det(vt) < 0 {
		vt.Scale(-1, vt)
	}
	w := mat.NewDense(3, 3, nil)
	w.Set(0, 1, 1)
	w.Set(1, 0, -1)
	w.Set(2, 2, 1)

	var r1, r2 mat.Dense
	r1.Mul(&u, w)
	r1.Mul(&r1, vt)
	r2.Mul(&u, w.T())
	r2.Mul(&r2, vt)
	t := r3.Vector{X: u.At(0, 2), Y: u.At(1, 2), Z: u.At(2, 2)}

	poses := []*mat.Dense{
		spatialmath.Matrix34FromRT(&r1, t),
		spatialmath.Matrix34FromRT(&r1, t.Mul(-1)),
		spatialmath.Matrix34FromRT(&r2, t),
		spatialmath.Matrix34FromRT(&r2, t.Mul(-1)),
	}
	for _, pose := range poses {
		adjustPoseSign(pose)
	}
	return poses, nil
}

// adjustPoseSign flips a candidate whose rotation block has determinant -1.
func adjustPoseSign(pose *mat.Dense) {
	sub := pose.Slice(0, 3, 0, 3)
	if m := mat.DenseCopyOf(sub); mat.Det(m) < 0 {
		pose.Scale(-1, pose)
	}
}

// countPositiveDepth triangulates every bearing pair against a candidate
// pose and counts the points landing in front of both cameras.
func countPositiveDepth(pose *mat.Dense, bearings1, bearings2 []r3.Vector) int {
	center2 := origin34(pose)
	count := 0
	for i := range bearings1 {
		b2w := rotateTranspose(pose, bearings2[i])
		point, ok := TriangulateTwoBearingsMidpointSolve(r3.Vector{}, bearings1[i], center2, b2w)
		if !ok {
			continue
		}
		if point.Dot(bearings1[i]) > 0 && point.Sub(center2).Dot(b2w) > 0 {
			count++
		}
	}
	return count
}

// RelativePoseFromEssential returns the candidate pose of an essential
// matrix placing the most bearing pairs in front of both cameras. The
// recovered translation is only defined up to scale.
func RelativePoseFromEssential(essMat *mat.Dense, bearings1, bearings2 []r3.Vector) (spatialmath.Pose, error) {
	if len(bearings1) != len(bearings2) {
		return spatialmath.Pose{}, errors.New("sets of bearings must have the same number of elements")
	}
	poses, err := PoseCandidatesFromEssential(essMat)
	if err != nil {
		return spatialmath.Pose{}, err
	}
	maxNumPosDepth := 0
	correctPose := poses[0]
	for _, pose := range poses {
		if n := countPositiveDepth(pose, bearings1, bearings2); n > maxNumPosDepth {
			maxNumPosDepth = n
			correctPose = pose
		}
	}
	rot := mat.DenseCopyOf(correctPose.Slice(0, 3, 0, 3))
	return spatialmath.NewPose(spatialmath.MatrixToAngleAxis(rot), translation34(correctPose)), nil
}
