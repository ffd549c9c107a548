package patchtree

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/terrence2/openfa-sub002/spheremath"
)

// The dot products and renormalizations below accumulate real error, so
// sidedness comparisons get a kilometer of slack, extending collisions
// outward where the error is harmless.
const sidednessSlackKm = -1.0

// Patch is a spherical triangle of terrain: three geocentric vertices in
// kilometers plus a back-reference to the tree slot that owns it. A freed
// patch is tombstoned in place and its index pushed on the reclaim list.
type Patch struct {
	pts        [3]r3.Vector
	edgePlanes [3]spheremath.Plane
	owner      TreeIndex
	alive      bool
}

// Points returns the patch's three vertices, in kilometers from the planet
// center.
func (p *Patch) Points() [3]r3.Vector {
	return p.pts
}

// Owner returns the tree slot that owns this patch.
func (p *Patch) Owner() TreeIndex {
	if !p.alive {
		panic("patchtree: owner of tombstoned patch")
	}
	return p.owner
}

// Alive reports whether the patch is live, i.e. not tombstoned.
func (p *Patch) Alive() bool {
	return p.alive
}

// retarget points the patch at new geometry. The edge planes cut from the
// planet center through each pair of vertices; together they bound the
// infinite cone over the patch, which the distance and cull tests below
// lean on.
func (p *Patch) retarget(owner TreeIndex, pts [3]r3.Vector) {
	p.owner = owner
	p.pts = pts
	p.alive = true

	origin := r3.Vector{}
	p.edgePlanes = [3]spheremath.Plane{
		spheremath.NewPlaneFromPointAndNormal(pts[0], spheremath.PlaneNormal(pts[1], origin, pts[0])),
		spheremath.NewPlaneFromPointAndNormal(pts[1], spheremath.PlaneNormal(pts[2], origin, pts[1])),
		spheremath.NewPlaneFromPointAndNormal(pts[2], spheremath.PlaneNormal(pts[0], origin, pts[2])),
	}
	if !p.edgePlanes[0].InFront(pts[2]) || !p.edgePlanes[1].InFront(pts[0]) || !p.edgePlanes[2].InFront(pts[1]) {
		panic("patchtree: degenerate patch winding")
	}
}

// tombstone marks the patch dead until its index is reused.
func (p *Patch) tombstone() {
	p.alive = false
}

// pointInCone reports whether pt lies inside the infinite cone over the
// patch, bounded by the three edge planes through the planet center.
func (p *Patch) pointInCone(pt r3.Vector) bool {
	for _, plane := range p.edgePlanes {
		if !plane.InFrontWithOffset(pt, sidednessSlackKm) {
			return false
		}
	}
	return true
}

// distanceSquaredTo returns the squared distance from eye to the patch's
// extent: bounded below by the planet surface and above by maxHeight of
// terrain. An eye inside the patch's cone measures straight down to the
// shell; otherwise the nearest of the vertices and their raised
// counterparts wins. No square root is taken on this path.
func (p *Patch) distanceSquaredTo(eye r3.Vector, radius, maxHeight float64) float64 {
	if p.pointInCone(eye) {
		d := eye.Norm() - (radius + maxHeight)
		if d < 0 {
			return 0
		}
		return d * d
	}

	minimum := math.Inf(1)
	for _, pt := range p.pts {
		if d := pt.Sub(eye).Norm2(); d < minimum {
			minimum = d
		}
		// Vertices sit on the sphere, so doubling raises the sample far
		// above any terrain bulge between them.
		if d := pt.Mul(2).Sub(eye).Norm2(); d < minimum {
			minimum = d
		}
	}
	return minimum
}

// behindPlane reports whether the patch's whole extent lies behind the
// plane. The extent is the hull over the three surface vertices and the
// same vertices raised a full planet radius, which conservatively covers
// the spherical bulge of even a root-level patch.
func (p *Patch) behindPlane(plane spheremath.Plane) bool {
	for _, pt := range p.pts {
		if plane.InFrontWithOffset(pt, sidednessSlackKm) {
			return false
		}
		if plane.InFrontWithOffset(pt.Mul(2), sidednessSlackKm) {
			return false
		}
	}
	return true
}

// visibleWithin reports whether any part of the patch's extent survives all
// of the given cull planes.
func (p *Patch) visibleWithin(planes []spheremath.Plane) bool {
	for _, plane := range planes {
		if p.behindPlane(plane) {
			return false
		}
	}
	return true
}
