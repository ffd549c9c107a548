package patchtree

import (
	"time"

	"github.com/golang/geo/r3"

	"github.com/terrence2/openfa-sub002/camera"
	"github.com/terrence2/openfa-sub002/spheremath"
)

// horizonSlackKm pulls the horizon plane back toward the viewer so patches
// straddling the limb are kept.
const horizonSlackKm = 100.0

// Stats carries the diagnostic counters of the most recent view pass.
type Stats struct {
	Subdivisions int
	Rejoins      int
	NodesVisited int
	LivePatches  int
	PassDuration time.Duration
}

// viewFrame caches the view parameters for one pass: the five camera
// frustum planes plus the synthetic horizon plane, and the eye.
type viewFrame struct {
	planes [6]spheremath.Plane
	eye    r3.Vector
	eyeDir r3.Vector
}

// OptimizeForView runs one refinement pass for the given camera: patches
// near the eye subdivide toward max level, distant subtrees rejoin, and
// invisible geometry is culled. The returned slice holds the patch indices
// to render this frame, rebuilt from scratch in live[:0]; it is valid only
// until the next call.
func (pt *PatchTree) OptimizeForView(cam *camera.Camera, live []PatchIndex) []PatchIndex {
	start := pt.clock.Now()
	pt.stats = Stats{}

	eye := cam.Position()
	pt.view.eye = eye
	pt.view.eyeDir = cam.Target().Sub(eye)
	frustum := cam.WorldSpaceFrustum()
	copy(pt.view.planes[:5], frustum[:])
	pt.view.planes[5] = pt.horizonPlane(eye)

	live = pt.visit(rootIndex, 0, live[:0])

	pt.stats.LivePatches = len(live)
	pt.stats.PassDuration = pt.clock.Since(start)
	pt.logger.Debugw("view pass complete",
		"subdivisions", pt.stats.Subdivisions,
		"rejoins", pt.stats.Rejoins,
		"nodes_visited", pt.stats.NodesVisited,
		"live_patches", pt.stats.LivePatches,
		"duration", pt.stats.PassDuration,
	)
	return live
}

// Stats returns the counters of the most recent pass.
func (pt *PatchTree) Stats() Stats {
	return pt.stats
}

// horizonPlane faces the eye from the planet center, clamped so it never
// cuts in front of the center: it culls at most the back hemisphere, easing
// off by the slack as the eye recedes. It excludes terrain on the far side
// of the planet even when nominally inside the frustum.
func (pt *PatchTree) horizonPlane(eye r3.Vector) spheremath.Plane {
	r := pt.cfg.PlanetRadiusKm
	offset := r*r/eye.Norm() - horizonSlackKm
	if offset > 0 {
		offset = 0
	}
	return spheremath.NewPlane(eye.Normalize(), offset)
}

// visit recursively restructures the subtree at ti for the cached view.
// Newly subdivided slots are re-visited at the same level, so one pass can
// descend several subdivision levels along a path when the viewer closed
// in quickly.
func (pt *PatchTree) visit(ti TreeIndex, level int, live []PatchIndex) []PatchIndex {
	s := pt.slots.at(ti)
	switch s.kind {
	case slotRoot:
		// All 20 faces are considered; visibility is tested per subtree.
		for _, ci := range pt.rootChildren {
			live = pt.visit(ci, 1, live)
		}

	case slotNode:
		pt.stats.NodesVisited++
		if !pt.patches.at(s.patch).visibleWithin(pt.view.planes[:]) {
			// The node's retained patch covers the whole subtree.
			return live
		}
		children := s.children
		if pt.childrenAreLeaves(children) && pt.childrenAllCoarse(children, level) {
			merged := pt.rejoin(ti)
			pt.stats.Rejoins++
			// The merged leaf is visible by construction; the traversal
			// stops here, so it is appended directly.
			return append(live, merged)
		}
		for _, ci := range children {
			live = pt.visit(ci, level+1, live)
		}

	case slotLeaf:
		pt.stats.NodesVisited++
		patch := s.patch
		p := pt.patches.at(patch)
		if level < pt.cfg.MaxLevel &&
			p.distanceSquaredTo(pt.view.eye, pt.cfg.PlanetRadiusKm, pt.cfg.MaxHeightKm) < pt.depthLevels[level] {
			pt.subdivide(ti)
			pt.stats.Subdivisions++
			return pt.visit(ti, level, live)
		}
		if pt.patches.at(patch).visibleWithin(pt.view.planes[:]) {
			live = append(live, patch)
		}

	case slotEmpty:
		panic("patchtree: empty slot reached during traversal")
	}
	return live
}

// childrenAreLeaves reports whether all four children are leaves; only then
// may the parent rejoin in one step. Deeper structure collapses one level
// per pass.
func (pt *PatchTree) childrenAreLeaves(children [4]TreeIndex) bool {
	for _, ci := range children {
		if pt.slots.at(ci).kind != slotLeaf {
			return false
		}
	}
	return true
}

// childrenAllCoarse reports whether every child leaf sits beyond the
// threshold one level coarser than the children themselves. Subdividing at
// depthLevels[L] but rejoining at depthLevels[L-1] gives the hysteresis
// that keeps a viewer near a boundary distance from thrashing.
func (pt *PatchTree) childrenAllCoarse(children [4]TreeIndex, nodeLevel int) bool {
	threshold := pt.depthLevels[nodeLevel]
	for _, ci := range children {
		p := pt.patches.at(pt.slots.at(ci).patch)
		if p.distanceSquaredTo(pt.view.eye, pt.cfg.PlanetRadiusKm, pt.cfg.MaxHeightKm) <= threshold {
			return false
		}
	}
	return true
}
