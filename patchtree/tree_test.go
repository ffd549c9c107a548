package patchtree

import (
	"fmt"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"
)

func newTestTree(t *testing.T, maxLevel int) *PatchTree {
	t.Helper()
	pt, err := New(Config{
		PlanetRadiusKm: testRadius,
		MaxLevel:       maxLevel,
	}, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return pt
}

// checkInvariants walks every reachable slot and verifies the structural
// contract: mutual slot/patch back-references, no Empty children, child
// levels one past their parents, vertices on the sphere, and reclaim lists
// disjoint from live references.
func checkInvariants(t *testing.T, pt *PatchTree) {
	t.Helper()
	levelCap := pt.cfg.MaxLevel
	if levelCap < 1 {
		levelCap = 1
	}

	liveSlots := map[TreeIndex]bool{}
	livePatches := map[PatchIndex]bool{}

	checkPatch(t, pt, rootIndex, levelCap, liveSlots, livePatches)

	for _, fi := range pt.slots.free {
		test.That(t, liveSlots[TreeIndex(fi)], test.ShouldBeFalse)
		test.That(t, pt.slots.slots[fi].kind, test.ShouldEqual, slotEmpty)
	}
	for _, fi := range pt.patches.free {
		test.That(t, livePatches[PatchIndex(fi)], test.ShouldBeFalse)
		test.That(t, pt.patches.patches[fi].alive, test.ShouldBeFalse)
	}
}

func checkPatch(t *testing.T, pt *PatchTree, ti TreeIndex, levelCap int, liveSlots map[TreeIndex]bool, livePatches map[PatchIndex]bool) {
	t.Helper()
	test.That(t, liveSlots[ti], test.ShouldBeFalse)
	liveSlots[ti] = true

	s := pt.slots.slots[ti]
	switch s.kind {
	case slotRoot:
		test.That(t, ti, test.ShouldEqual, rootIndex)
		for _, ci := range pt.rootChildren {
			test.That(t, pt.slots.slots[ci].level, test.ShouldEqual, 1)
			test.That(t, pt.slots.slots[ci].parent, test.ShouldEqual, rootIndex)
			checkPatch(t, pt, ci, levelCap, liveSlots, livePatches)
		}

	case slotNode, slotLeaf:
		test.That(t, s.level, test.ShouldBeLessThanOrEqualTo, levelCap)
		test.That(t, livePatches[s.patch], test.ShouldBeFalse)
		livePatches[s.patch] = true

		p := pt.patches.patches[s.patch]
		test.That(t, p.alive, test.ShouldBeTrue)
		test.That(t, p.owner, test.ShouldEqual, ti)
		for _, v := range p.pts {
			test.That(t, v.Norm(), test.ShouldAlmostEqual, pt.cfg.PlanetRadiusKm, 1e-6)
		}

		if s.kind == slotNode {
			for _, ci := range s.children {
				child := pt.slots.slots[ci]
				test.That(t, child.kind, test.ShouldNotEqual, slotEmpty)
				test.That(t, child.kind, test.ShouldNotEqual, slotRoot)
				test.That(t, child.parent, test.ShouldEqual, ti)
				test.That(t, child.level, test.ShouldEqual, s.level+1)
				checkPatch(t, pt, ci, levelCap, liveSlots, livePatches)
			}
		}

	case slotEmpty:
		t.Fatalf("reachable empty slot %d", ti)
	}
}

func TestConfigValidate(t *testing.T) {
	for _, tc := range []struct {
		name string
		cfg  Config
	}{
		{"zero radius", Config{MaxLevel: 3}},
		{"negative radius", Config{PlanetRadiusKm: -1, MaxLevel: 3}},
		{"negative height", Config{PlanetRadiusKm: 100, MaxHeightKm: -1}},
		{"negative max level", Config{PlanetRadiusKm: 100, MaxLevel: -1}},
		{"excessive max level", Config{PlanetRadiusKm: 100, MaxLevel: maxDepthLevels}},
		{"degenerate falloff", Config{PlanetRadiusKm: 100, Falloff: 1}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			test.That(t, tc.cfg.Validate(), test.ShouldNotBeNil)
			_, err := New(tc.cfg, golog.NewTestLogger(t))
			test.That(t, err, test.ShouldNotBeNil)
		})
	}

	test.That(t, Config{PlanetRadiusKm: 100, MaxLevel: 5}.Validate(), test.ShouldBeNil)
}

func TestNewSeedsIcosahedron(t *testing.T) {
	pt := newTestTree(t, 3)
	checkInvariants(t, pt)

	test.That(t, pt.MaxLevel(), test.ShouldEqual, 3)
	test.That(t, len(pt.slots.slots), test.ShouldEqual, 21)
	test.That(t, len(pt.patches.patches), test.ShouldEqual, 20)
	for _, ci := range pt.rootChildren {
		s := pt.slots.at(ci)
		test.That(t, s.kind, test.ShouldEqual, slotLeaf)
		test.That(t, s.level, test.ShouldEqual, 1)
	}

	// thresholds halve per level (squared: quarter)
	test.That(t, pt.depthLevels, test.ShouldHaveLength, 4)
	test.That(t, pt.depthLevels[0], test.ShouldAlmostEqual, testRadius*testRadius, 1e-6)
	test.That(t, pt.depthLevels[2], test.ShouldAlmostEqual, pt.depthLevels[1]/4, 1e-3)
}

func TestSubdivide(t *testing.T) {
	pt := newTestTree(t, 3)
	ti := pt.rootChildren[0]
	before := pt.patches.at(pt.slots.at(ti).patch).Points()

	pt.subdivide(ti)
	checkInvariants(t, pt)

	s := pt.slots.at(ti)
	test.That(t, s.kind, test.ShouldEqual, slotNode)
	// the node's own patch survives, untouched, for coarse culling
	test.That(t, pt.patches.at(s.patch).Points(), test.ShouldResemble, before)

	for i, ci := range s.children {
		child := pt.slots.at(ci)
		test.That(t, child.kind, test.ShouldEqual, slotLeaf)
		test.That(t, child.level, test.ShouldEqual, 2)
		pts := pt.patches.at(child.patch).Points()
		for _, v := range pts {
			test.That(t, v.Norm(), test.ShouldAlmostEqual, testRadius, 1e-6)
		}
		// the three corner children reuse one original vertex apiece
		if i < 3 {
			test.That(t, pts[0], test.ShouldResemble, before[i])
		}
	}

	// the center child is built from the three edge midpoints
	center := pt.patches.at(pt.slots.at(s.children[3]).patch).Points()
	corner0 := pt.patches.at(pt.slots.at(s.children[0]).patch).Points()
	test.That(t, center[0], test.ShouldResemble, corner0[1])
}

func TestSubdivideGuards(t *testing.T) {
	pt := newTestTree(t, 1)
	ti := pt.rootChildren[0]

	t.Run("at max level", func(t *testing.T) {
		test.That(t, func() { pt.subdivide(ti) }, test.ShouldPanic)
	})

	t.Run("of a non-leaf", func(t *testing.T) {
		deep := newTestTree(t, 2)
		di := deep.rootChildren[0]
		deep.subdivide(di)
		test.That(t, func() { deep.subdivide(di) }, test.ShouldPanic)
		test.That(t, func() { deep.subdivide(rootIndex) }, test.ShouldPanic)
	})
}

func TestRejoinRestoresLeafBitIdentical(t *testing.T) {
	pt := newTestTree(t, 3)
	ti := pt.rootChildren[7]
	slotBefore := *pt.slots.at(ti)
	ptsBefore := pt.patches.at(slotBefore.patch).Points()

	pt.subdivide(ti)
	merged := pt.rejoin(ti)
	checkInvariants(t, pt)

	s := pt.slots.at(ti)
	test.That(t, s.kind, test.ShouldEqual, slotLeaf)
	test.That(t, s.patch, test.ShouldEqual, slotBefore.patch)
	test.That(t, s.parent, test.ShouldEqual, slotBefore.parent)
	test.That(t, s.level, test.ShouldEqual, slotBefore.level)
	test.That(t, merged, test.ShouldEqual, slotBefore.patch)
	test.That(t, pt.patches.at(s.patch).Points(), test.ShouldResemble, ptsBefore)
}

func TestRejoinGuards(t *testing.T) {
	pt := newTestTree(t, 3)
	ti := pt.rootChildren[0]

	t.Run("of a leaf", func(t *testing.T) {
		test.That(t, func() { pt.rejoin(ti) }, test.ShouldPanic)
	})

	t.Run("with a node child", func(t *testing.T) {
		pt.subdivide(ti)
		grandchild := pt.slots.at(ti).children[0]
		pt.subdivide(grandchild)
		test.That(t, func() { pt.rejoin(ti) }, test.ShouldPanic)
		// one level at a time unwinds fine
		pt.rejoin(grandchild)
		pt.rejoin(ti)
		checkInvariants(t, pt)
	})
}

func TestReclaimReusesLowestIndices(t *testing.T) {
	pt := newTestTree(t, 3)
	// fresh tree: slots 0..20 and patches 0..19 are occupied
	pt.subdivide(pt.rootChildren[0])
	first := pt.slots.at(pt.rootChildren[0]).children
	test.That(t, first, test.ShouldResemble, [4]TreeIndex{21, 22, 23, 24})

	pt.rejoin(pt.rootChildren[0])
	pt.subdivide(pt.rootChildren[5])
	// the freed indices come back, lowest first
	test.That(t, pt.slots.at(pt.rootChildren[5]).children, test.ShouldResemble, [4]TreeIndex{21, 22, 23, 24})

	pt.subdivide(pt.rootChildren[6])
	test.That(t, pt.slots.at(pt.rootChildren[6]).children, test.ShouldResemble, [4]TreeIndex{25, 26, 27, 28})
	checkInvariants(t, pt)
}

func TestDump(t *testing.T) {
	pt := newTestTree(t, 2)
	pt.subdivide(pt.rootChildren[0])
	out := pt.Dump()
	test.That(t, out, test.ShouldContainSubstring, "Root")
	test.That(t, out, test.ShouldContainSubstring, "Node @1")
	test.That(t, out, test.ShouldContainSubstring, fmt.Sprintf("Leaf @%d", pt.rootChildren[1]))
}
