// Package icosphere provides the fixed 20-face icosahedron that seeds the
// terrain patch tree. Vertices lie on the unit sphere; faces wind
// counter-clockwise when viewed from outside, so face normals point away
// from the origin.
package icosphere

import (
	"math"

	"github.com/golang/geo/r3"
)

// Face indexes three vertices of the icosahedron.
type Face struct {
	I0, I1, I2 int
}

// The bones of the icosahedron are three orthogonal golden-ratio rectangles
// centered at the origin.
var icoVertices = func() [12]r3.Vector {
	t := (1.0 + math.Sqrt(5.0)) / 2.0
	raw := [12]r3.Vector{
		{X: -1, Y: t, Z: 0},
		{X: 1, Y: t, Z: 0},
		{X: -1, Y: -t, Z: 0},
		{X: 1, Y: -t, Z: 0},
		{X: 0, Y: -1, Z: t},
		{X: 0, Y: 1, Z: t},
		{X: 0, Y: -1, Z: -t},
		{X: 0, Y: 1, Z: -t},
		{X: t, Y: 0, Z: -1},
		{X: t, Y: 0, Z: 1},
		{X: -t, Y: 0, Z: -1},
		{X: -t, Y: 0, Z: 1},
	}
	for i := range raw {
		raw[i] = raw[i].Normalize()
	}
	return raw
}()

// Ordered list of the 20 faces: 5 around vertex 0, 5 adjacent, 5 around
// vertex 3, and 5 adjacent to those.
var icoFaces = [20]Face{
	{0, 11, 5},
	{0, 5, 1},
	{0, 1, 7},
	{0, 7, 10},
	{0, 10, 11},
	{1, 5, 9},
	{5, 11, 4},
	{11, 10, 2},
	{10, 7, 6},
	{7, 1, 8},
	{3, 9, 4},
	{3, 4, 2},
	{3, 2, 6},
	{3, 6, 8},
	{3, 8, 9},
	{4, 9, 5},
	{2, 4, 11},
	{6, 2, 10},
	{8, 6, 7},
	{9, 8, 1},
}

// Vertices returns the 12 unit-sphere vertices.
func Vertices() [12]r3.Vector {
	return icoVertices
}

// Faces returns the 20 triangular faces.
func Faces() [20]Face {
	return icoFaces
}

// FacePoints returns the three vertex positions of face f scaled to the
// given sphere radius.
func FacePoints(f Face, radius float64) [3]r3.Vector {
	return [3]r3.Vector{
		icoVertices[f.I0].Mul(radius),
		icoVertices[f.I1].Mul(radius),
		icoVertices[f.I2].Mul(radius),
	}
}
