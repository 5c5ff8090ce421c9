package coordinate

import "math"

// tmForward projects a WGS84-datum geographic point (lon, lat degrees)
// into def's transverse Mercator plane, using Snyder's forward series.
func tmForward(lonDeg, latDeg float64, def Definition) (x, y float64) {
	a, f := def.Ellipsoid.a, def.Ellipsoid.f
	e2 := f * (2 - f)
	ep2 := e2 / (1 - e2)

	phi := toRadians(latDeg)
	lam := toRadians(lonDeg)
	phi0 := toRadians(def.OriginLat)
	lam0 := toRadians(def.OriginLon)

	sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)
	n := a / math.Sqrt(1-e2*sinPhi*sinPhi)
	t := math.Tan(phi) * math.Tan(phi)
	c := ep2 * cosPhi * cosPhi
	aTerm := (lam - lam0) * cosPhi

	m := meridianArc(phi, e2, a)
	m0 := meridianArc(phi0, e2, a)

	k0 := def.ScaleFactor

	x = k0 * n * (aTerm +
		(1-t+c)*pow3(aTerm)/6 +
		(5-18*t+t*t+72*c-58*ep2)*pow5(aTerm)/120)

	y = k0 * (m - m0 + n*math.Tan(phi)*(
		aTerm*aTerm/2+
			(5-t+9*c+4*c*c)*pow4(aTerm)/24+
			(61-58*t+t*t+600*c-330*ep2)*pow6(aTerm)/720))

	return x + def.FalseEasting, y + def.FalseNorthing
}

// tmInverse recovers a WGS84-datum geographic point (lon, lat degrees)
// from def's transverse Mercator plane coordinates, using Snyder's
// inverse series with the footpoint-latitude approximation.
func tmInverse(x, y float64, def Definition) (lonDeg, latDeg float64) {
	a, f := def.Ellipsoid.a, def.Ellipsoid.f
	e2 := f * (2 - f)
	ep2 := e2 / (1 - e2)
	e1 := (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))
	k0 := def.ScaleFactor

	phi0 := toRadians(def.OriginLat)
	lam0 := toRadians(def.OriginLon)

	m0 := meridianArc(phi0, e2, a)
	m := m0 + (y-def.FalseNorthing)/k0

	mu := m / (a * (1 - e2/4 - 3*e2*e2/64 - 5*e2*e2*e2/256))

	phi1 := mu +
		(3*e1/2-27*pow3(e1)/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*pow4(e1)/32)*math.Sin(4*mu) +
		(151*pow3(e1)/96)*math.Sin(6*mu) +
		(1097*pow4(e1)/512)*math.Sin(8*mu)

	sinPhi1, cosPhi1 := math.Sin(phi1), math.Cos(phi1)
	n1 := a / math.Sqrt(1-e2*sinPhi1*sinPhi1)
	t1 := math.Tan(phi1) * math.Tan(phi1)
	c1 := ep2 * cosPhi1 * cosPhi1
	r1 := a * (1 - e2) / math.Pow(1-e2*sinPhi1*sinPhi1, 1.5)
	d := (x - def.FalseEasting) / (n1 * k0)

	phi := phi1 - (n1*math.Tan(phi1)/r1)*(d*d/2-
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*pow4(d)/24+
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*pow6(d)/720)

	lam := lam0 + (d-(1+2*t1+c1)*pow3(d)/6+
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*pow5(d)/120)/cosPhi1

	return toDegrees(lam), toDegrees(phi)
}

// meridianArc is the true meridional arc distance from the equator to
// latitude phi (radians), per Snyder's series.
func meridianArc(phi, e2, a float64) float64 {
	return a * ((1-e2/4-3*e2*e2/64-5*e2*e2*e2/256)*phi -
		(3*e2/8+3*e2*e2/32+45*e2*e2*e2/1024)*math.Sin(2*phi) +
		(15*e2*e2/256+45*e2*e2*e2/1024)*math.Sin(4*phi) -
		(35*e2*e2*e2/3072)*math.Sin(6*phi))
}

// geodeticToGeocentric converts a geographic point at height h (meters)
// on ell into earth-centered (X, Y, Z) coordinates.
func geodeticToGeocentric(latDeg, lonDeg, h float64, ell ellipsoid) (x, y, z float64) {
	e2 := ell.f * (2 - ell.f)
	phi := toRadians(latDeg)
	lam := toRadians(lonDeg)
	sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)
	n := ell.a / math.Sqrt(1-e2*sinPhi*sinPhi)

	x = (n + h) * cosPhi * math.Cos(lam)
	y = (n + h) * cosPhi * math.Sin(lam)
	z = (n*(1-e2) + h) * sinPhi
	return
}

// geocentricToGeodetic recovers latitude/longitude (degrees) on ell
// from earth-centered (X, Y, Z), by Newton iteration on the ellipsoid
// height.
func geocentricToGeodetic(x, y, z float64, ell ellipsoid) (latDeg, lonDeg float64) {
	e2 := ell.f * (2 - ell.f)
	lam := math.Atan2(y, x)
	p := math.Sqrt(x*x + y*y)

	phi := math.Atan2(z, p*(1-e2))
	for i := 0; i < 10; i++ {
		sinPhi := math.Sin(phi)
		n := ell.a / math.Sqrt(1-e2*sinPhi*sinPhi)
		h := p/math.Cos(phi) - n
		phi = math.Atan2(z, p*(1-e2*n/(n+h)))
	}

	return toDegrees(phi), toDegrees(lam)
}

// applyShift adds a Helmert 7-parameter offset to a geocentric point,
// moving it from its source datum toward WGS84.
func applyShift(x, y, z float64, s datumShift) (float64, float64, float64) {
	scale := 1 + s.scale
	rx, ry, rz := s.rx, s.ry, s.rz

	x2 := scale*(x-rz*y+ry*z) + s.dx
	y2 := scale*(rz*x+y-rx*z) + s.dy
	z2 := scale*(-ry*x+rx*y+z) + s.dz
	return x2, y2, z2
}

// applyInverseShift reverses applyShift, moving a WGS84 geocentric
// point back toward the source datum. Accurate to first order in the
// rotation/scale terms, which is exact for this registry's
// translation-only shift.
func applyInverseShift(x, y, z float64, s datumShift) (float64, float64, float64) {
	x0 := x - s.dx
	y0 := y - s.dy
	z0 := z - s.dz

	scale := 1 + s.scale
	rx, ry, rz := s.rx, s.ry, s.rz

	x2 := (x0 + rz*y0 - ry*z0) / scale
	y2 := (-rz*x0 + y0 + rx*z0) / scale
	z2 := (ry*x0 - rx*y0 + z0) / scale
	return x2, y2, z2
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }
func toDegrees(rad float64) float64 { return rad * 180 / math.Pi }

func pow3(v float64) float64 { return v * v * v }
func pow4(v float64) float64 { return v * v * v * v }
func pow5(v float64) float64 { return v * v * v * v * v }
func pow6(v float64) float64 { return v * v * v * v * v * v }
