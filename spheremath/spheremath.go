// Package spheremath provides the geometry primitives used by the spherical
// terrain subsystem: planes in geocentric space, triangle normals, and
// geodesic edge bisection.
//
// All positions are cartesian kilometers in a planet-centered frame.
package spheremath

import (
	"github.com/golang/geo/r3"
)

// Physical constants for the default planet.
const (
	EarthRadiusKm   = 6360.0
	EverestHeightKm = 8.8480392
)

// PlaneNormal returns the unit normal of the plane containing the three
// given points, following the right-hand rule on p0->p1->p2.
func PlaneNormal(p0, p1, p2 r3.Vector) r3.Vector {
	return p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()
}

// BisectEdge returns the midpoint of the segment from v0 to v1.
func BisectEdge(v0, v1 r3.Vector) r3.Vector {
	return v0.Add(v1.Sub(v0).Mul(0.5))
}

// ProjectToSphere rescales v onto the sphere of the given radius about the
// origin. Bisecting an edge of a spherical triangle and projecting the
// midpoint back out yields geodesic, rather than planar, subdivision.
func ProjectToSphere(v r3.Vector, radius float64) r3.Vector {
	return v.Normalize().Mul(radius)
}
