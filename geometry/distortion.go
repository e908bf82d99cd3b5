package geometry

// Distortion stage kernels. Each takes the slice of distortion coefficients
// of its model, already stripped of the leading affine parameters, and a
// point on the normalized plane. The Derivatives twins additionally return
// the 2x2 Jacobian with respect to the point as a row major array and the
// 2xN Jacobian with respect to the coefficients as a row major slice.

// disto24 applies the two coefficient radial polynomial
// 1 + k1 r^2 + k2 r^4. p: [k1 k2].
func disto24(p []float64, x, y float64) (float64, float64) {
	rr := x*x + y*y
	d := 1 + rr*(p[0]+p[1]*rr)
	return x * d, y * d
}

func disto24Derivatives(p []float64, x, y float64) (float64, float64, [4]float64, []float64) {
	k1, k2 := p[0], p[1]
	rr := x*x + y*y
	d := 1 + rr*(k1+k2*rr)
	dd := k1 + 2*k2*rr

	jacPt := [4]float64{
		d + 2*x*x*dd, 2 * x * y * dd,
		2 * x * y * dd, d + 2*y*y*dd,
	}
	jacK := []float64{
		x * rr, x * rr * rr,
		y * rr, y * rr * rr,
	}
	return x * d, y * d, jacPt, jacK
}

// disto2468 applies the four coefficient radial polynomial through r^8.
// p: [k1 k2 k3 k4].
func disto2468(p []float64, x, y float64) (float64, float64) {
	rr := x*x + y*y
	d := 1 + rr*(p[0]+rr*(p[1]+rr*(p[2]+rr*p[3])))
	return x * d, y * d
}

func disto2468Derivatives(p []float64, x, y float64) (float64, float64, [4]float64, []float64) {
	k1, k2, k3, k4 := p[0], p[1], p[2], p[3]
	rr := x*x + y*y
	r4 := rr * rr
	r6 := r4 * rr
	r8 := r6 * rr
	d := 1 + rr*(k1+rr*(k2+rr*(k3+rr*k4)))
	dd := k1 + rr*(2*k2+rr*(3*k3+rr*4*k4))

	jacPt := [4]float64{
		d + 2*x*x*dd, 2 * x * y * dd,
		2 * x * y * dd, d + 2*y*y*dd,
	}
	jacK := []float64{
		x * rr, x * r4, x * r6, x * r8,
		y * rr, y * r4, y * r6, y * r8,
	}
	return x * d, y * d, jacPt, jacK
}

// distoBrown applies the Brown-Conrady distortion with three radial and two
// tangential coefficients. p: [k1 k2 k3 p1 p2].
func distoBrown(p []float64, x, y float64) (float64, float64) {
	k1, k2, k3, p1, p2 := p[0], p[1], p[2], p[3], p[4]
	rr := x*x + y*y
	radial := 1 + rr*(k1+rr*(k2+rr*k3))
	return x*radial + 2*p1*x*y + p2*(rr+2*x*x),
		y*radial + 2*p2*x*y + p1*(rr+2*y*y)
}

func distoBrownDerivatives(p []float64, x, y float64) (float64, float64, [4]float64, []float64) {
	k1, k2, k3, p1, p2 := p[0], p[1], p[2], p[3], p[4]
	rr := x*x + y*y
	r4 := rr * rr
	r6 := r4 * rr
	radial := 1 + rr*(k1+rr*(k2+rr*k3))
	dRadial := k1 + 2*k2*rr + 3*k3*r4

	outX := x*radial + 2*p1*x*y + p2*(rr+2*x*x)
	outY := y*radial + 2*p2*x*y + p1*(rr+2*y*y)

	jacPt := [4]float64{
		radial + 2*x*x*dRadial + 2*p1*y + 6*p2*x, 2*x*y*dRadial + 2*p1*x + 2*p2*y,
		2*x*y*dRadial + 2*p2*y + 2*p1*x, radial + 2*y*y*dRadial + 2*p2*x + 6*p1*y,
	}
	jacK := []float64{
		x * rr, x * r4, x * r6, 2 * x * y, rr + 2*x*x,
		y * rr, y * r4, y * r6, rr + 2*y*y, 2 * x * y,
	}
	return outX, outY, jacPt, jacK
}

// disto62 applies six radial and two tangential coefficients.
// p: [k1 k2 k3 k4 k5 k6 p1 p2].
func disto62(p []float64, x, y float64) (float64, float64) {
	p1, p2 := p[6], p[7]
	rr := x*x + y*y
	radial := 1 + rr*(p[0]+rr*(p[1]+rr*(p[2]+rr*(p[3]+rr*(p[4]+rr*p[5])))))
	return x*radial + 2*p1*x*y + p2*(rr+2*x*x),
		y*radial + 2*p2*x*y + p1*(rr+2*y*y)
}

func disto62Derivatives(p []float64, x, y float64) (float64, float64, [4]float64, []float64) {
	p1, p2 := p[6], p[7]
	rr := x*x + y*y
	r4 := rr * rr
	r6 := r4 * rr
	r8 := r6 * rr
	r10 := r8 * rr
	r12 := r10 * rr
	radial := 1 + rr*(p[0]+rr*(p[1]+rr*(p[2]+rr*(p[3]+rr*(p[4]+rr*p[5])))))
	dRadial := p[0] + rr*(2*p[1]+rr*(3*p[2]+rr*(4*p[3]+rr*(5*p[4]+rr*6*p[5]))))

	outX := x*radial + 2*p1*x*y + p2*(rr+2*x*x)
	outY := y*radial + 2*p2*x*y + p1*(rr+2*y*y)

	jacPt := [4]float64{
		radial + 2*x*x*dRadial + 2*p1*y + 6*p2*x, 2*x*y*dRadial + 2*p1*x + 2*p2*y,
		2*x*y*dRadial + 2*p2*y + 2*p1*x, radial + 2*y*y*dRadial + 2*p2*x + 6*p1*y,
	}
	jacK := []float64{
		x * rr, x * r4, x * r6, x * r8, x * r10, x * r12, 2 * x * y, rr + 2*x*x,
		y * rr, y * r4, y * r6, y * r8, y * r10, y * r12, rr + 2*y*y, 2 * x * y,
	}
	return outX, outY, jacPt, jacK
}

// disto624 extends disto62 with four thin prism coefficients.
// p: [k1 k2 k3 k4 k5 k6 p1 p2 s0 s1 s2 s3].
func disto624(p []float64, x, y float64) (float64, float64) {
	s0, s1, s2, s3 := p[8], p[9], p[10], p[11]
	rr := x*x + y*y
	outX, outY := disto62(p[:8], x, y)
	return outX + s0*rr + s1*rr*rr, outY + s2*rr + s3*rr*rr
}

func disto624Derivatives(p []float64, x, y float64) (float64, float64, [4]float64, []float64) {
	s0, s1, s2, s3 := p[8], p[9], p[10], p[11]
	rr := x*x + y*y
	r4 := rr * rr
	outX, outY, jacPt, jac62 := disto62Derivatives(p[:8], x, y)
	outX += s0*rr + s1*r4
	outY += s2*rr + s3*r4

	// the prism terms only depend on the point through r^2
	px := 2 * (s0 + 2*s1*rr)
	py := 2 * (s2 + 2*s3*rr)
	jacPt[0] += px * x
	jacPt[1] += px * y
	jacPt[2] += py * x
	jacPt[3] += py * y

	jacK := make([]float64, 24)
	copy(jacK[:8], jac62[:8])
	copy(jacK[12:20], jac62[8:])
	jacK[8], jacK[9] = rr, r4
	jacK[22], jacK[23] = rr, r4
	return outX, outY, jacPt, jacK
}
