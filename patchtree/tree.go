package patchtree

import (
	"fmt"
	"math"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/terrence2/openfa-sub002/icosphere"
	"github.com/terrence2/openfa-sub002/spheremath"
)

// maxDepthLevels bounds the per-level distance-threshold table; deeper
// levels would need sub-centimeter thresholds at planetary falloff rates.
const maxDepthLevels = 40

// Config parameterizes a PatchTree.
type Config struct {
	// PlanetRadiusKm is the sphere radius every patch vertex lies on.
	PlanetRadiusKm float64
	// MaxHeightKm bounds terrain height above the sphere; it pads the
	// distance tests. Defaults to Everest.
	MaxHeightKm float64
	// MaxLevel is the deepest subdivision level; 0 leaves the 20 root
	// faces unsplit.
	MaxLevel int
	// Falloff divides the subdivide threshold distance per level.
	// Defaults to 2.
	Falloff float64
}

// Validate checks the config, returning every problem found.
func (c Config) Validate() error {
	var err error
	if c.PlanetRadiusKm <= 0 {
		err = multierr.Append(err, errors.Errorf("planet radius %f must be positive", c.PlanetRadiusKm))
	}
	if c.MaxHeightKm < 0 {
		err = multierr.Append(err, errors.Errorf("max terrain height %f must not be negative", c.MaxHeightKm))
	}
	if c.MaxLevel < 0 || c.MaxLevel >= maxDepthLevels {
		err = multierr.Append(err, errors.Errorf("max level %d out of range [0, %d)", c.MaxLevel, maxDepthLevels))
	}
	if c.Falloff != 0 && c.Falloff <= 1 {
		err = multierr.Append(err, errors.Errorf("falloff %f must exceed 1", c.Falloff))
	}
	return err
}

// PatchTree owns the slot and patch arenas, the fixed icosahedron root, the
// per-level distance thresholds, and the view parameters cached for the
// current pass. It is single-threaded by contract: one frame-loop caller
// owns and mutates it.
type PatchTree struct {
	logger golog.Logger
	clock  clock.Clock
	cfg    Config

	slots        slotArena
	patches      patchArena
	rootChildren [20]TreeIndex

	// depthLevels[i] is the squared distance inside which a level-i patch
	// wants more detail.
	depthLevels []float64

	view  viewFrame
	stats Stats
}

// New builds a tree seeded with the 20 icosahedron faces as level-1 leaves.
func New(cfg Config, logger golog.Logger) (*PatchTree, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid patch tree config")
	}
	if cfg.MaxHeightKm == 0 {
		cfg.MaxHeightKm = spheremath.EverestHeightKm
	}
	if cfg.Falloff == 0 {
		cfg.Falloff = 2
	}

	pt := &PatchTree{
		logger:      logger,
		clock:       clock.New(),
		cfg:         cfg,
		depthLevels: make([]float64, cfg.MaxLevel+1),
	}
	for i := range pt.depthLevels {
		d := cfg.PlanetRadiusKm * math.Pow(cfg.Falloff, -float64(i))
		pt.depthLevels[i] = d * d
	}

	root := pt.slots.allocate()
	pt.slots.set(root, treeSlot{kind: slotRoot, parent: rootIndex, level: 0})
	for i, face := range icosphere.Faces() {
		pi := pt.patches.allocate()
		ti := pt.slots.allocate()
		pt.patches.retarget(pi, ti, icosphere.FacePoints(face, cfg.PlanetRadiusKm))
		pt.slots.set(ti, treeSlot{kind: slotLeaf, patch: pi, parent: root, level: 1})
		pt.rootChildren[i] = ti
	}
	return pt, nil
}

// Patch dereferences a patch index handed out by OptimizeForView. The
// returned pointer is valid until the next call that restructures the tree.
func (pt *PatchTree) Patch(i PatchIndex) *Patch {
	return pt.patches.at(i)
}

// LevelOf returns the subdivision level of the slot owning the given patch.
func (pt *PatchTree) LevelOf(i PatchIndex) int {
	return pt.slots.at(pt.patches.at(i).Owner()).level
}

// MaxLevel returns the configured deepest subdivision level.
func (pt *PatchTree) MaxLevel() int {
	return pt.cfg.MaxLevel
}

// subdivide splits the leaf at ti into a node with four child leaves: three
// corner children each reusing one original vertex, and a center child of
// the three edge midpoints, all re-projected onto the sphere. The slot's
// own patch is retained for coarse visibility testing of the subtree.
func (pt *PatchTree) subdivide(ti TreeIndex) {
	s := pt.slots.at(ti)
	if s.kind != slotLeaf {
		panic(fmt.Sprintf("patchtree: subdivide of %v slot %d", s.kind, ti))
	}
	if s.level >= pt.cfg.MaxLevel {
		panic(fmt.Sprintf("patchtree: subdivide beyond max level %d", pt.cfg.MaxLevel))
	}
	level := s.level
	pts := pt.patches.at(s.patch).Points()

	r := pt.cfg.PlanetRadiusKm
	a := spheremath.ProjectToSphere(spheremath.BisectEdge(pts[0], pts[1]), r)
	b := spheremath.ProjectToSphere(spheremath.BisectEdge(pts[1], pts[2]), r)
	c := spheremath.ProjectToSphere(spheremath.BisectEdge(pts[2], pts[0]), r)
	corners := [4][3]r3.Vector{
		{pts[0], a, c},
		{pts[1], b, a},
		{pts[2], c, b},
		{a, b, c},
	}

	// Allocation may grow either arena, so no pointers into them are held
	// across this loop.
	var children [4]TreeIndex
	for i, tri := range corners {
		pi := pt.patches.allocate()
		ci := pt.slots.allocate()
		pt.patches.retarget(pi, ci, tri)
		pt.slots.set(ci, treeSlot{kind: slotLeaf, patch: pi, parent: ti, level: level + 1})
		children[i] = ci
	}

	s = pt.slots.at(ti)
	s.kind = slotNode
	s.children = children
}

// rejoin collapses the node at ti, whose four children must all be leaves,
// back into a leaf. The children's slots and patches return to the reclaim
// lists; the node's retained patch, parent, and level carry over untouched,
// so the restored triangle is bit-identical to the pre-subdivision one.
// The merged leaf's patch index is returned.
func (pt *PatchTree) rejoin(ti TreeIndex) PatchIndex {
	s := pt.slots.at(ti)
	if s.kind != slotNode {
		panic(fmt.Sprintf("patchtree: rejoin of %v slot %d", s.kind, ti))
	}
	children := s.children
	for _, ci := range children {
		child := pt.slots.at(ci)
		if child.kind != slotLeaf {
			panic(fmt.Sprintf("patchtree: rejoin with %v child %d", child.kind, ci))
		}
	}
	for _, ci := range children {
		pt.patches.release(pt.slots.at(ci).patch)
		pt.slots.release(ci)
	}

	s = pt.slots.at(ti)
	s.kind = slotLeaf
	s.children = [4]TreeIndex{}
	return s.patch
}

// Dump renders the tree shape for diagnostics.
func (pt *PatchTree) Dump() string {
	var out strings.Builder
	pt.dumpSlot(&out, rootIndex, 0)
	return out.String()
}

func (pt *PatchTree) dumpSlot(out *strings.Builder, ti TreeIndex, level int) {
	s := pt.slots.at(ti)
	pad := strings.Repeat("  ", level)
	switch s.kind {
	case slotRoot:
		out.WriteString("Root\n")
		for _, ci := range pt.rootChildren {
			pt.dumpSlot(out, ci, 1)
		}
	case slotNode:
		fmt.Fprintf(out, "%sNode @%d: %v\n", pad, ti, s.children)
		for _, ci := range s.children {
			pt.dumpSlot(out, ci, level+1)
		}
	case slotLeaf:
		fmt.Fprintf(out, "%sLeaf @%d, patch %d, lvl %d\n", pad, ti, s.patch, s.level)
	case slotEmpty:
		panic("patchtree: empty slot in dump")
	}
}
