package geometry

import (
	"math"

	"github.com/pkg/errors"

	"gosfm/numeric"
)

// ProjectGeneric mirrors Project over the numeric scalar abstraction,
// running the same stage arithmetic in the same order. Tests instantiate it
// with dual numbers to differentiate whole projection chains and check the
// analytic kernels against the result.
func ProjectGeneric[T any](ops numeric.Ops[T], projType ProjectionType, params []T, point [3]T) [2]T {
	checkGenericParams(projType, len(params))
	switch projType {
	case Perspective:
		xy := disto24Generic(ops, params[1:], perspectiveDivideGeneric(ops, point))
		return [2]T{ops.Mul(params[0], xy[0]), ops.Mul(params[0], xy[1])}
	case Brown:
		xy := distoBrownGeneric(ops, params[4:], perspectiveDivideGeneric(ops, point))
		return affineForwardGeneric(ops, params, xy)
	case Fisheye:
		xy := disto24Generic(ops, params[1:], fisheyeMapGeneric(ops, point))
		return [2]T{ops.Mul(params[0], xy[0]), ops.Mul(params[0], xy[1])}
	case FisheyeOpenCV:
		xy := disto2468Generic(ops, params[4:], fisheyeMapGeneric(ops, point))
		return affineForwardGeneric(ops, params, xy)
	case Fisheye62:
		xy := disto62Generic(ops, params[4:], fisheyeMapGeneric(ops, point))
		return affineForwardGeneric(ops, params, xy)
	case Fisheye624:
		xy := disto624Generic(ops, params[4:], fisheyeMapGeneric(ops, point))
		return affineForwardGeneric(ops, params, xy)
	case Dual:
		xy := disto24Generic(ops, params[2:], dualMapGeneric(ops, params[0], point))
		return [2]T{ops.Mul(params[1], xy[0]), ops.Mul(params[1], xy[1])}
	case Spherical:
		return sphericalMapGeneric(ops, point)
	default:
		panic(errors.Errorf("geometry: unknown projection type %q", projType))
	}
}

func checkGenericParams(projType ProjectionType, n int) {
	m, ok := models[projType]
	if !ok {
		panic(errors.Errorf("geometry: unknown projection type %q", projType))
	}
	if n != m.paramCount {
		panic(errors.Errorf("geometry: %s camera expects %d parameters, got %d", projType, m.paramCount, n))
	}
}

func perspectiveDivideGeneric[T any](ops numeric.Ops[T], p [3]T) [2]T {
	return [2]T{ops.Div(p[0], p[2]), ops.Div(p[1], p[2])}
}

func fisheyeMapGeneric[T any](ops numeric.Ops[T], p [3]T) [2]T {
	rr := ops.Add(ops.Mul(p[0], p[0]), ops.Mul(p[1], p[1]))
	r := ops.Max(ops.Sqrt(rr), normEps)
	g := ops.Div(ops.Atan2(r, p[2]), r)
	return [2]T{ops.Mul(g, p[0]), ops.Mul(g, p[1])}
}

func sphericalMapGeneric[T any](ops numeric.Ops[T], p [3]T) [2]T {
	twoPi := ops.FromFloat(2 * math.Pi)
	lon := ops.Atan2(p[0], p[2])
	rho := ops.Max(ops.Sqrt(ops.Add(ops.Mul(p[0], p[0]), ops.Mul(p[2], p[2]))), normEps)
	lat := ops.Atan2(ops.Scale(-1, p[1]), rho)
	return [2]T{ops.Div(lon, twoPi), ops.Scale(-1, ops.Div(lat, twoPi))}
}

func dualMapGeneric[T any](ops numeric.Ops[T], transition T, p [3]T) [2]T {
	persp := perspectiveDivideGeneric(ops, p)
	fish := fisheyeMapGeneric(ops, p)
	omT := ops.Sub(ops.FromFloat(1), transition)
	return [2]T{
		ops.Add(ops.Mul(transition, persp[0]), ops.Mul(omT, fish[0])),
		ops.Add(ops.Mul(transition, persp[1]), ops.Mul(omT, fish[1])),
	}
}

func affineForwardGeneric[T any](ops numeric.Ops[T], p []T, xy [2]T) [2]T {
	return [2]T{
		ops.Add(ops.Mul(p[0], xy[0]), p[2]),
		ops.Add(ops.Mul(ops.Mul(p[0], p[1]), xy[1]), p[3]),
	}
}

func disto24Generic[T any](ops numeric.Ops[T], p []T, xy [2]T) [2]T {
	rr := ops.Add(ops.Mul(xy[0], xy[0]), ops.Mul(xy[1], xy[1]))
	d := ops.Add(ops.FromFloat(1), ops.Mul(rr, ops.Add(p[0], ops.Mul(p[1], rr))))
	return [2]T{ops.Mul(xy[0], d), ops.Mul(xy[1], d)}
}

func disto2468Generic[T any](ops numeric.Ops[T], p []T, xy [2]T) [2]T {
	rr := ops.Add(ops.Mul(xy[0], xy[0]), ops.Mul(xy[1], xy[1]))
	d := ops.Add(ops.FromFloat(1),
		ops.Mul(rr, ops.Add(p[0],
			ops.Mul(rr, ops.Add(p[1],
				ops.Mul(rr, ops.Add(p[2], ops.Mul(rr, p[3]))))))))
	return [2]T{ops.Mul(xy[0], d), ops.Mul(xy[1], d)}
}

// tangentialGeneric adds the shared Brown tangential terms to a radially
// distorted point. radX and radY are x·radial and y·radial.
func tangentialGeneric[T any](ops numeric.Ops[T], p1, p2, x, y, rr, radX, radY T) [2]T {
	xy := ops.Mul(x, y)
	outX := ops.Add(ops.Add(radX, ops.Mul(ops.Scale(2, p1), xy)),
		ops.Mul(p2, ops.Add(rr, ops.Scale(2, ops.Mul(x, x)))))
	outY := ops.Add(ops.Add(radY, ops.Mul(ops.Scale(2, p2), xy)),
		ops.Mul(p1, ops.Add(rr, ops.Scale(2, ops.Mul(y, y)))))
	return [2]T{outX, outY}
}

func distoBrownGeneric[T any](ops numeric.Ops[T], p []T, xy [2]T) [2]T {
	x, y := xy[0], xy[1]
	rr := ops.Add(ops.Mul(x, x), ops.Mul(y, y))
	radial := ops.Add(ops.FromFloat(1),
		ops.Mul(rr, ops.Add(p[0],
			ops.Mul(rr, ops.Add(p[1], ops.Mul(rr, p[2]))))))
	return tangentialGeneric(ops, p[3], p[4], x, y, rr, ops.Mul(x, radial), ops.Mul(y, radial))
}

func disto62Generic[T any](ops numeric.Ops[T], p []T, xy [2]T) [2]T {
	x, y := xy[0], xy[1]
	rr := ops.Add(ops.Mul(x, x), ops.Mul(y, y))
	radial := ops.Add(ops.FromFloat(1),
		ops.Mul(rr, ops.Add(p[0],
			ops.Mul(rr, ops.Add(p[1],
				ops.Mul(rr, ops.Add(p[2],
					ops.Mul(rr, ops.Add(p[3],
						ops.Mul(rr, ops.Add(p[4], ops.Mul(rr, p[5]))))))))))))
	return tangentialGeneric(ops, p[6], p[7], x, y, rr, ops.Mul(x, radial), ops.Mul(y, radial))
}

func disto624Generic[T any](ops numeric.Ops[T], p []T, xy [2]T) [2]T {
	x, y := xy[0], xy[1]
	rr := ops.Add(ops.Mul(x, x), ops.Mul(y, y))
	out := disto62Generic(ops, p[:8], xy)
	return [2]T{
		ops.Add(ops.Add(out[0], ops.Mul(p[8], rr)), ops.Mul(p[9], ops.Mul(rr, rr))),
		ops.Add(ops.Add(out[1], ops.Mul(p[10], rr)), ops.Mul(p[11], ops.Mul(rr, rr))),
	}
}
