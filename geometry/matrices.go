package geometry

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// mat.Dense and r3.Vector bridge helpers shared by the solvers. Pose
// matrices are 3x4 [R|t] blocks mapping world points into a camera frame.

func checkPose34(m *mat.Dense) {
	r, c := m.Dims()
	if r != 3 || c != 4 {
		panic("geometry: pose matrix must be 3x4")
	}
}

func checkRotation(m *mat.Dense) {
	r, c := m.Dims()
	if r != 3 || c != 3 {
		panic("geometry: rotation matrix must be 3x3")
	}
}

// rotate applies the rotation block of a pose matrix to v.
func rotate(m *mat.Dense, v r3.Vector) r3.Vector {
	return r3.Vector{
		X: m.At(0, 0)*v.X + m.At(0, 1)*v.Y + m.At(0, 2)*v.Z,
		Y: m.At(1, 0)*v.X + m.At(1, 1)*v.Y + m.At(1, 2)*v.Z,
		Z: m.At(2, 0)*v.X + m.At(2, 1)*v.Y + m.At(2, 2)*v.Z,
	}
}

// rotateTranspose applies the transposed rotation block of a pose matrix to
// v, mapping a camera frame direction back to the world frame.
func rotateTranspose(m *mat.Dense, v r3.Vector) r3.Vector {
	return r3.Vector{
		X: m.At(0, 0)*v.X + m.At(1, 0)*v.Y + m.At(2, 0)*v.Z,
		Y: m.At(0, 1)*v.X + m.At(1, 1)*v.Y + m.At(2, 1)*v.Z,
		Z: m.At(0, 2)*v.X + m.At(1, 2)*v.Y + m.At(2, 2)*v.Z,
	}
}

// apply34 applies a [R|t] pose matrix to a point.
func apply34(m *mat.Dense, v r3.Vector) r3.Vector {
	rotated := rotate(m, v)
	return r3.Vector{X: rotated.X + m.At(0, 3), Y: rotated.Y + m.At(1, 3), Z: rotated.Z + m.At(2, 3)}
}

// translation34 returns the translation column of a pose matrix.
func translation34(m *mat.Dense) r3.Vector {
	return r3.Vector{X: m.At(0, 3), Y: m.At(1, 3), Z: m.At(2, 3)}
}

// origin34 returns the camera center -R^T·t of a pose matrix.
func origin34(m *mat.Dense) r3.Vector {
	return rotateTranspose(m, translation34(m)).Mul(-1)
}
