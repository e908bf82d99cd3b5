package geometry

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"gosfm/spatialmath"
	"gosfm/utils"
)

// midpointDetEps marks the two ray system as numerically parallel.
const midpointDetEps = 1e-30

// AngleBetweenBearings returns the angle between two rays. Inputs need not
// be unit length; a cosine pushed out of range by rounding counts as zero.
func AngleBetweenBearings(u, v r3.Vector) float64 {
	c := u.Dot(v) / math.Sqrt(u.Dot(u)*v.Dot(v))
	if math.Abs(c) >= 1 {
		return 0
	}
	return math.Acos(c)
}

// TriangulateBearingsDLT triangulates a point from world to camera pose
// matrices and the bearing each camera observed. The result is rejected
// when no bearing pair subtends at least minAngle, when any reprojected ray
// deviates from its bearing by more than reprojThreshold, or when any
// camera sees the point at a depth below minDepth.
func TriangulateBearingsDLT(rts []*mat.Dense, bearings []r3.Vector, reprojThreshold, minAngle, minDepth float64) (r3.Vector, bool) {
	count := len(bearings)
	if len(rts) != count {
		panic("geometry: need one pose matrix per bearing")
	}
	for _, rt := range rts {
		checkPose34(rt)
	}

	world := make([]r3.Vector, count)
	angleOK := false
	for i := 0; i < count && !angleOK; i++ {
		world[i] = rotateTranspose(rts[i], bearings[i])
		for j := 0; j < i && !angleOK; j++ {
			angle := AngleBetweenBearings(world[i], world[j])
			if angle >= minAngle && angle <= math.Pi-minAngle {
				angleOK = true
			}
		}
	}
	if !angleOK {
		return r3.Vector{}, false
	}

	x, ok := triangulateBearingsDLTSolve(bearings, rts)
	if !ok {
		return r3.Vector{}, false
	}
	point := r3.Vector{X: x[0] / x[3], Y: x[1] / x[3], Z: x[2] / x[3]}

	for i, b := range bearings {
		projected := apply34(rts[i], point)
		if AngleBetweenBearings(projected, b) > reprojThreshold || projected.Dot(b) < minDepth {
			return r3.Vector{}, false
		}
	}
	return point, true
}

// triangulateBearingsDLTSolve builds the direct linear transform system,
// two rows per view, and returns the homogeneous point spanning its null
// space.
func triangulateBearingsDLTSolve(bearings []r3.Vector, rts []*mat.Dense) ([4]float64, bool) {
	design := mat.NewDense(2*len(bearings), 4, nil)
	for i, b := range bearings {
		rt := rts[i]
		for c := 0; c < 4; c++ {
			design.Set(2*i, c, b.X*rt.At(2, c)-b.Z*rt.At(0, c))
			design.Set(2*i+1, c, b.Y*rt.At(2, c)-b.Z*rt.At(1, c))
		}
	}
	var svd mat.SVD
	if !svd.Factorize(design, mat.SVDFull) {
		return [4]float64{}, false
	}
	var v mat.Dense
	svd.VTo(&v)
	// right singular vector of the smallest singular value
	return [4]float64{v.At(0, 3), v.At(1, 3), v.At(2, 3), v.At(3, 3)}, true
}

// TriangulateBearingsMidpoint triangulates a point from camera centers and
// world frame bearings as the point minimizing the squared distances to all
// rays. Each view carries its own reprojection threshold.
func TriangulateBearingsMidpoint(centers, bearings []r3.Vector, reprojThresholds []float64, minAngle, minDepth float64) (r3.Vector, bool) {
	count := len(bearings)
	if len(centers) != count || len(reprojThresholds) != count {
		panic("geometry: need one center and threshold per bearing")
	}

	angleOK := false
	for i := 0; i < count && !angleOK; i++ {
		for j := 0; j < i && !angleOK; j++ {
			angle := AngleBetweenBearings(bearings[i], bearings[j])
			if angle >= minAngle && angle <= math.Pi-minAngle {
				angleOK = true
			}
		}
	}
	if !angleOK {
		return r3.Vector{}, false
	}

	point, ok := triangulateBearingsMidpointSolve(centers, bearings)
	if !ok {
		return r3.Vector{}, false
	}
	for i, b := range bearings {
		projected := point.Sub(centers[i])
		if AngleBetweenBearings(projected, b) > reprojThresholds[i] || projected.Dot(b) < minDepth {
			return r3.Vector{}, false
		}
	}
	return point, true
}

// triangulateBearingsMidpointSolve solves the normal equations
// (n·I - Σ b·bT)·X = Σ (I - b·bT)·c of the squared ray distance sum.
func triangulateBearingsMidpointSolve(centers, bearings []r3.Vector) (r3.Vector, bool) {
	n := float64(len(bearings))
	var bbt [9]float64
	rhs := make([]float64, 3)
	for i, b := range bearings {
		bv := [3]float64{b.X, b.Y, b.Z}
		cv := [3]float64{centers[i].X, centers[i].Y, centers[i].Z}
		d := b.Dot(centers[i])
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				bbt[3*r+c] += bv[r] * bv[c]
			}
			rhs[r] += cv[r] - bv[r]*d
		}
	}
	a := mat.NewDense(3, 3, nil)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			el := -bbt[3*r+c]
			if r == c {
				el += n
			}
			a.Set(r, c, el)
		}
	}
	var x mat.VecDense
	if err := x.SolveVec(a, mat.NewVecDense(3, rhs)); err != nil {
		return r3.Vector{}, false
	}
	return r3.Vector{X: x.AtVec(0), Y: x.AtVec(1), Z: x.AtVec(2)}, true
}

// TriangulateTwoBearingsMidpointSolve returns the midpoint of the shortest
// segment between two rays, failing when they are numerically parallel.
func TriangulateTwoBearingsMidpointSolve(o1, b1, o2, b2 r3.Vector) (r3.Vector, bool) {
	t := o2.Sub(o1)
	a00 := b1.Dot(b1)
	a01 := -b1.Dot(b2)
	a10 := b1.Dot(b2)
	a11 := -b2.Dot(b2)
	det := a00*a11 - a01*a10
	if math.Abs(det) < midpointDetEps {
		return r3.Vector{}, false
	}
	r1 := b1.Dot(t)
	r2 := b2.Dot(t)
	lambda1 := (a11*r1 - a01*r2) / det
	lambda2 := (-a10*r1 + a00*r2) / det
	x1 := o1.Add(b1.Mul(lambda1))
	x2 := o2.Add(b2.Mul(lambda2))
	return x1.Add(x2).Mul(0.5), true
}

// TriangulatedPoint is one output slot of the batch triangulation.
type TriangulatedPoint struct {
	Point r3.Vector
	Ok    bool
}

// TriangulateTwoBearingsMidpointMany triangulates aligned bearing pairs
// observed by two cameras. rotation and translation map the second camera
// frame into the first, which sits at the origin. Pairs are divided across
// worker goroutines; a slot whose rays are parallel has Ok unset.
func TriangulateTwoBearingsMidpointMany(
	ctx context.Context,
	bearings1, bearings2 []r3.Vector,
	rotation *mat.Dense,
	translation r3.Vector,
) ([]TriangulatedPoint, error) {
	if len(bearings1) != len(bearings2) {
		panic("geometry: bearing sets must have the same number of elements")
	}
	checkRotation(rotation)
	out := make([]TriangulatedPoint, len(bearings1))
	err := utils.GroupWorkParallel(ctx, len(bearings1), func(from, to int) {
		for i := from; i < to; i++ {
			b2 := rotate(rotation, bearings2[i])
			out[i].Point, out[i].Ok = TriangulateTwoBearingsMidpointSolve(r3.Vector{}, bearings1[i], translation, b2)
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EpipolarAngleTwoBearings returns how far a bearing pair deviates from the
// epipolar plane of a relative pose, zero meaning a perfect correspondence.
// rotation and translation map the second camera frame into the first.
func EpipolarAngleTwoBearings(b1, b2 r3.Vector, rotation *mat.Dense, translation r3.Vector) float64 {
	checkRotation(rotation)
	tn := spatialmath.NormalizeVector(translation)
	b2w := rotate(rotation, b2)
	epi1 := spatialmath.NormalizeVector(tn.Cross(b1))
	epi2 := spatialmath.NormalizeVector(tn.Cross(b2w))
	sym := (math.Abs(epi1.Dot(b2w)) + math.Abs(b1.Dot(epi2))) / 2
	return math.Pi/2 - math.Acos(utils.Clamp(sym, -1, 1))
}

// EpipolarAngleTwoBearingsMany scores every pairing of two bearing sets,
// one row per bearing of the first set.
func EpipolarAngleTwoBearingsMany(bearings1, bearings2 []r3.Vector, rotation *mat.Dense, translation r3.Vector) *mat.Dense {
	checkRotation(rotation)
	tn := spatialmath.NormalizeVector(translation)
	epi1 := make([]r3.Vector, len(bearings1))
	for i, b := range bearings1 {
		epi1[i] = spatialmath.NormalizeVector(tn.Cross(b))
	}
	b2w := make([]r3.Vector, len(bearings2))
	epi2 := make([]r3.Vector, len(bearings2))
	for j, b := range bearings2 {
		b2w[j] = rotate(rotation, b)
		epi2[j] = spatialmath.NormalizeVector(tn.Cross(b2w[j]))
	}
	angles := mat.NewDense(len(bearings1), len(bearings2), nil)
	for i := range bearings1 {
		for j := range bearings2 {
			sym := (math.Abs(epi1[i].Dot(b2w[j])) + math.Abs(bearings1[i].Dot(epi2[j]))) / 2
			angles.Set(i, j, math.Pi/2-math.Acos(utils.Clamp(sym, -1, 1)))
		}
	}
	return angles
}
