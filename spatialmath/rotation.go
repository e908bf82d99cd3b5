// Package spatialmath implements the rotation and rigid-transform math the
// geometry and bundle packages build on.
//
// Rotations follow the R3 axis angle convention: a rotation is a single
// vector whose direction is the rotation axis and whose norm is the rotation
// angle in radians. See https://en.wikipedia.org/wiki/Axis%E2%80%93angle_representation
// for a thorough explanation.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"gosfm/numeric"
)

// Rotations with a squared angle at or below this threshold evaluate through
// the first order expansion, which is exact in the limit and avoids the 0/0
// in the axis normalization.
const smallRotationThreshold = 0x1p-52

// AngleAxisRotatePoint rotates p by the rotation encoded in aa using the
// Rodrigues formula.
func AngleAxisRotatePoint(aa, p r3.Vector) r3.Vector {
	theta2 := aa.Norm2()
	if theta2 <= smallRotationThreshold {
		return p.Add(aa.Cross(p))
	}
	theta := math.Sqrt(theta2)
	c := math.Cos(theta)
	s := math.Sin(theta)
	k := aa.Mul(1 / theta)
	return p.Mul(c).Add(k.Cross(p).Mul(s)).Add(k.Mul(k.Dot(p) * (1 - c)))
}

// RotatePointGeneric mirrors AngleAxisRotatePoint over the numeric scalar
// abstraction, including the small angle branch, so that derivative-tracking
// scalars differentiate exactly the computation the float64 path runs.
func RotatePointGeneric[T any](ops numeric.Ops[T], aa, p [3]T) [3]T {
	theta2 := dot3(ops, aa, aa)
	if ops.Real(theta2) <= smallRotationThreshold {
		w := cross3(ops, aa, p)
		return [3]T{ops.Add(p[0], w[0]), ops.Add(p[1], w[1]), ops.Add(p[2], w[2])}
	}
	theta := ops.Sqrt(theta2)
	c := ops.Cos(theta)
	s := ops.Sin(theta)
	invTheta := ops.Div(ops.FromFloat(1), theta)
	k := [3]T{ops.Mul(aa[0], invTheta), ops.Mul(aa[1], invTheta), ops.Mul(aa[2], invTheta)}
	kxp := cross3(ops, k, p)
	t := ops.Mul(dot3(ops, k, p), ops.Sub(ops.FromFloat(1), c))
	var out [3]T
	for i := 0; i < 3; i++ {
		out[i] = ops.Add(ops.Add(ops.Mul(p[i], c), ops.Mul(kxp[i], s)), ops.Mul(k[i], t))
	}
	return out
}

func dot3[T any](ops numeric.Ops[T], a, b [3]T) T {
	return ops.Add(ops.Add(ops.Mul(a[0], b[0]), ops.Mul(a[1], b[1])), ops.Mul(a[2], b[2]))
}

func cross3[T any](ops numeric.Ops[T], a, b [3]T) [3]T {
	return [3]T{
		ops.Sub(ops.Mul(a[1], b[2]), ops.Mul(a[2], b[1])),
		ops.Sub(ops.Mul(a[2], b[0]), ops.Mul(a[0], b[2])),
		ops.Sub(ops.Mul(a[0], b[1]), ops.Mul(a[1], b[0])),
	}
}

// CrossProductMatrix returns the skew symmetric matrix [v]x so that
// [v]x · w = v × w.
func CrossProductMatrix(v r3.Vector) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -v.Z, v.Y,
		v.Z, 0, -v.X,
		-v.Y, v.X, 0,
	})
}

// AngleAxisToMatrix returns the 3x3 rotation matrix of an angle-axis vector.
func AngleAxisToMatrix(aa r3.Vector) *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	theta2 := aa.Norm2()
	if theta2 <= smallRotationThreshold {
		m.Set(0, 0, 1)
		m.Set(1, 1, 1)
		m.Set(2, 2, 1)
		m.Add(m, CrossProductMatrix(aa))
		return m
	}
	theta := math.Sqrt(theta2)
	c := math.Cos(theta)
	a := math.Sin(theta) / theta
	b := (1 - c) / theta2

	v := []float64{aa.X, aa.Y, aa.Z}
	cross := CrossProductMatrix(aa)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			el := a*cross.At(i, j) + b*v[i]*v[j]
			if i == j {
				el += c
			}
			m.Set(i, j, el)
		}
	}
	return m
}

// RotatePointDerivatives rotates p by aa and returns the rotated point along
// with the 3x3 Jacobians of the result with respect to aa and to p. The
// derivative with respect to the angle-axis vector follows from
// differentiating each Rodrigues term; the small angle branch reduces to
// -[p]x.
func RotatePointDerivatives(aa, p r3.Vector) (r3.Vector, *mat.Dense, *mat.Dense) {
	jacPoint := AngleAxisToMatrix(aa)
	theta2 := aa.Norm2()
	if theta2 <= smallRotationThreshold {
		jacRot := CrossProductMatrix(p)
		jacRot.Scale(-1, jacRot)
		return p.Add(aa.Cross(p)), jacRot, jacPoint
	}

	theta := math.Sqrt(theta2)
	c := math.Cos(theta)
	s := math.Sin(theta)
	a := s / theta
	b := (1 - c) / theta2
	w := aa.Cross(p)
	d := aa.Dot(p)

	// coefficients of the outer products with the angle-axis vector
	ca := -s / theta                                  // p vT
	cw := (c*theta - s) / (theta2 * theta)            // w vT
	cd := d * (s*theta - 2*(1-c)) / (theta2 * theta2) // v vT

	v := []float64{aa.X, aa.Y, aa.Z}
	pv := []float64{p.X, p.Y, p.Z}
	wv := []float64{w.X, w.Y, w.Z}

	jacRot := CrossProductMatrix(p)
	jacRot.Scale(-a, jacRot)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			el := jacRot.At(i, j) + ca*pv[i]*v[j] + cw*wv[i]*v[j] + cd*v[i]*v[j] + b*v[i]*pv[j]
			if i == j {
				el += b * d
			}
			jacRot.Set(i, j, el)
		}
	}

	rotated := p.Mul(c).Add(w.Mul(a)).Add(aa.Mul(b * d))
	return rotated, jacRot, jacPoint
}

// AngleAxisToQuat converts an angle-axis rotation vector to a unit
// quaternion.
func AngleAxisToQuat(aa r3.Vector) quat.Number {
	if aa.Norm2() <= smallRotationThreshold {
		// sin(theta/2)/theta tends to 1/2
		return quat.Number{Real: 1, Imag: aa.X / 2, Jmag: aa.Y / 2, Kmag: aa.Z / 2}
	}
	return R3ToR4(aa).ToQuat()
}

// QuatToAngleAxis converts a unit quaternion to the shortest equivalent
// angle-axis rotation vector.
func QuatToAngleAxis(q quat.Number) r3.Vector {
	if q.Real < 0 {
		// q and -q encode the same rotation; flip to keep the angle in [0, pi]
		q = quat.Scale(-1, q)
	}
	im := r3.Vector{X: q.Imag, Y: q.Jmag, Z: q.Kmag}
	if im.Norm2() <= smallRotationThreshold {
		// sin(theta/2) ~ theta/2 here, so the imaginary part is half the
		// rotation vector
		return im.Mul(2)
	}
	return QuatToR4AA(q).ToR3()
}

// MatrixToQuat converts a 3x3 rotation matrix to a unit quaternion. The
// four branches each divide by the largest quaternion component, keeping
// the conversion stable for rotations near 180 degrees. Panics when m is
// not 3x3.
func MatrixToQuat(m *mat.Dense) quat.Number {
	checkRotationDims(m)
	if t := m.At(0, 0) + m.At(1, 1) + m.At(2, 2); t >= 0 {
		r := math.Sqrt(1 + t)
		s := 0.5 / r
		return quat.Number{
			Real: 0.5 * r,
			Imag: s * (m.At(2, 1) - m.At(1, 2)),
			Jmag: s * (m.At(0, 2) - m.At(2, 0)),
			Kmag: s * (m.At(1, 0) - m.At(0, 1)),
		}
	}
	if m.At(2, 2) >= m.At(1, 1) && m.At(2, 2) >= m.At(0, 0) {
		r := math.Sqrt(1 - (m.At(0, 0) + m.At(1, 1) - m.At(2, 2)))
		s := 0.5 / r
		return quat.Number{
			Real: s * (m.At(1, 0) - m.At(0, 1)),
			Imag: s * (m.At(0, 2) + m.At(2, 0)),
			Jmag: s * (m.At(2, 1) + m.At(1, 2)),
			Kmag: 0.5 * r,
		}
	}
	if m.At(1, 1) >= m.At(0, 0) {
		r := math.Sqrt(1 - (m.At(0, 0) - m.At(1, 1) + m.At(2, 2)))
		s := 0.5 / r
		return quat.Number{
			Real: s * (m.At(0, 2) - m.At(2, 0)),
			Imag: s * (m.At(1, 0) + m.At(0, 1)),
			Jmag: 0.5 * r,
			Kmag: s * (m.At(2, 1) + m.At(1, 2)),
		}
	}
	r := math.Sqrt(1 + (m.At(0, 0) - m.At(1, 1) - m.At(2, 2)))
	s := 0.5 / r
	return quat.Number{
		Real: s * (m.At(2, 1) - m.At(1, 2)),
		Imag: 0.5 * r,
		Jmag: s * (m.At(1, 0) + m.At(0, 1)),
		Kmag: s * (m.At(0, 2) + m.At(2, 0)),
	}
}

// MatrixToAngleAxis converts a 3x3 rotation matrix to the shortest
// angle-axis rotation vector.
func MatrixToAngleAxis(m *mat.Dense) r3.Vector {
	return QuatToAngleAxis(MatrixToQuat(m))
}

func checkRotationDims(m mat.Matrix) {
	if r, c := m.Dims(); r != 3 || c != 3 {
		panic("spatialmath: rotation matrix must be 3x3")
	}
}
