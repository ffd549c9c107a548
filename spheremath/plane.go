package spheremath

import (
	"github.com/golang/geo/r3"
)

// Plane is the locus of points p satisfying normal·p = offset. The normal is
// expected to be unit length; offset is then the signed distance from the
// origin to the plane along the normal.
type Plane struct {
	normal r3.Vector
	offset float64
}

// NewPlane constructs a plane from a unit normal and its signed offset from
// the origin.
func NewPlane(normal r3.Vector, offset float64) Plane {
	return Plane{normal: normal, offset: offset}
}

// NewPlaneFromPointAndNormal constructs the plane through pt with the given
// unit normal.
func NewPlaneFromPointAndNormal(pt, normal r3.Vector) Plane {
	return Plane{normal: normal, offset: normal.Dot(pt)}
}

// Normal returns the plane's unit normal.
func (p Plane) Normal() r3.Vector {
	return p.normal
}

// Offset returns the plane's signed distance from the origin.
func (p Plane) Offset() float64 {
	return p.offset
}

// DistanceToPoint returns the signed distance from pt to the plane, positive
// on the side the normal points toward.
func (p Plane) DistanceToPoint(pt r3.Vector) float64 {
	return p.normal.Dot(pt) - p.offset
}

// InFront reports whether pt lies on or in front of the plane.
func (p Plane) InFront(pt r3.Vector) bool {
	return p.DistanceToPoint(pt) >= 0
}

// InFrontWithOffset reports whether pt lies at least slack in front of the
// plane. A negative slack loosens the test, absorbing the error accumulated
// by repeated renormalization.
func (p Plane) InFrontWithOffset(pt r3.Vector, slack float64) bool {
	return p.DistanceToPoint(pt) >= slack
}

// ClosestPointOnPlane returns the projection of pt onto the plane.
func (p Plane) ClosestPointOnPlane(pt r3.Vector) r3.Vector {
	return pt.Sub(p.normal.Mul(p.DistanceToPoint(pt)))
}
