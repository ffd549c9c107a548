// Package camera models the viewer consumed by the terrain patch tree: a
// planet-centered eye and target in kilometers plus a perspective
// projection, from which the world-space frustum planes are derived.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/terrence2/openfa-sub002/spheremath"
)

// Camera holds a perspective viewer in a planet-centered cartesian frame.
// Distances are kilometers.
type Camera struct {
	eye    r3.Vector
	target r3.Vector
	up     r3.Vector

	fovY   float64
	aspect float64
	near   float64
	far    float64
}

// New returns a camera with the given vertical field of view (radians),
// aspect ratio, and near/far clip distances (kilometers). The camera starts
// at the origin looking down -Z; call SetLookAt before use.
func New(fovY, aspect, near, far float64) (*Camera, error) {
	if fovY <= 0 || fovY >= math.Pi {
		return nil, errors.Errorf("field of view %f out of range (0, pi)", fovY)
	}
	if aspect <= 0 {
		return nil, errors.Errorf("invalid aspect ratio %f", aspect)
	}
	if near <= 0 || far <= near {
		return nil, errors.Errorf("invalid clip range [%f, %f]", near, far)
	}
	return &Camera{
		target: r3.Vector{X: 0, Y: 0, Z: -1},
		up:     r3.Vector{X: 0, Y: 1, Z: 0},
		fovY:   fovY,
		aspect: aspect,
		near:   near,
		far:    far,
	}, nil
}

// SetLookAt positions the camera at eye looking toward target with the given
// up hint. A degenerate view direction or an up hint parallel to it is
// rejected here so the terrain core can assume well-formed planes.
func (c *Camera) SetLookAt(eye, target, up r3.Vector) error {
	forward := target.Sub(eye)
	if forward.Norm2() == 0 {
		return errors.New("eye and target coincide")
	}
	if up.Norm2() == 0 {
		return errors.New("zero-length up hint")
	}
	if forward.Normalize().Cross(up.Normalize()).Norm2() < 1e-12 {
		return errors.New("up hint is parallel to the view direction")
	}
	c.eye = eye
	c.target = target
	c.up = up.Normalize()
	return nil
}

// Position returns the eye position in kilometers from the planet center.
func (c *Camera) Position() r3.Vector {
	return c.eye
}

// Target returns the look-at target in kilometers from the planet center.
func (c *Camera) Target() r3.Vector {
	return c.target
}

// Forward returns the unit view direction.
func (c *Camera) Forward() r3.Vector {
	return c.target.Sub(c.eye).Normalize()
}

// WorldSpaceFrustum returns the left, right, bottom, top, and near clip
// planes in the planet-centered frame, normals pointing into the view
// volume. The far plane is omitted; the patch tree substitutes its own
// horizon plane as the sixth cull plane.
//
// Plane extraction follows Gribb & Hartmann, "Fast Extraction of Viewing
// Frustum Planes from the World-View-Projection Matrix".
func (c *Camera) WorldSpaceFrustum() [5]spheremath.Plane {
	proj := mgl64.Perspective(c.fovY, c.aspect, c.near, c.far)
	view := mgl64.LookAtV(
		mgl64.Vec3{c.eye.X, c.eye.Y, c.eye.Z},
		mgl64.Vec3{c.target.X, c.target.Y, c.target.Z},
		mgl64.Vec3{c.up.X, c.up.Y, c.up.Z},
	)
	m := proj.Mul4(view)

	r0 := m.Row(0)
	r1 := m.Row(1)
	r2 := m.Row(2)
	r3r := m.Row(3)

	return [5]spheremath.Plane{
		planeFromRow(r3r.Add(r0)), // left
		planeFromRow(r3r.Sub(r0)), // right
		planeFromRow(r3r.Add(r1)), // bottom
		planeFromRow(r3r.Sub(r1)), // top
		planeFromRow(r3r.Add(r2)), // near
	}
}

// planeFromRow converts clip-space coefficients (a, b, c, d) with inside
// test ax+by+cz+d >= 0 into a normalized Plane.
func planeFromRow(row mgl64.Vec4) spheremath.Plane {
	n := r3.Vector{X: row.X(), Y: row.Y(), Z: row.Z()}
	m := n.Norm()
	return spheremath.NewPlane(n.Mul(1/m), -row.W()/m)
}
