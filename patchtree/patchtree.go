// Package patchtree implements the adaptive level-of-detail quadtree that
// selects, once per frame, which triangular patches of a spherical terrain
// mesh to render and at what subdivision depth.
//
// The tree is persistent and amortized: each OptimizeForView pass refines
// near the viewer and coarsens elsewhere, so per-frame restructuring cost is
// proportional to how much the view changed, not to total terrain size. Both
// the tree slots and the patches live in growable index arenas with reclaim
// lists; freed indices are reused lowest-first and no compaction ever runs.
//
// The tree is exclusively owned by its frame-loop caller. Nothing here
// locks, blocks, or spawns work; a pass always runs to completion on the
// calling goroutine.
package patchtree

import "fmt"

// TreeIndex addresses a slot in the tree arena.
type TreeIndex int

// PatchIndex addresses a patch in the patch arena.
type PatchIndex int

// rootIndex is the fixed slot of the icosahedron root; it is never
// reallocated.
const rootIndex TreeIndex = 0

// A tree slot is one of four variants. Root and Empty never carry patch
// data; Node and Leaf each own exactly one live patch.
const (
	slotRoot = slotKind(iota)
	slotNode
	slotLeaf
	slotEmpty
)

// slotKind tags the active variant of a treeSlot.
type slotKind uint8

func (k slotKind) String() string {
	switch k {
	case slotRoot:
		return "Root"
	case slotNode:
		return "Node"
	case slotLeaf:
		return "Leaf"
	case slotEmpty:
		return "Empty"
	}
	return fmt.Sprintf("slotKind(%d)", uint8(k))
}

// treeSlot is the tagged variant stored in the tree arena.
//
// Root: the fixed icosahedron root; its 20 children live on the PatchTree.
// Node: an interior subdivision; children holds 4 Leaf-or-Node slots and
// patch keeps the pre-subdivision patch for coarse visibility testing of
// the whole subtree.
// Leaf: a currently rendered patch.
// Empty: a freed slot awaiting reuse; illegal everywhere but the reclaim
// list.
type treeSlot struct {
	kind     slotKind
	children [4]TreeIndex
	patch    PatchIndex
	parent   TreeIndex
	level    int
}
