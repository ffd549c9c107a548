package patchtree

import (
	"container/heap"
	"fmt"

	"github.com/golang/geo/r3"
)

// indexHeap is a min-heap of freed arena indices, so reuse always hands out
// the lowest free index first.
type indexHeap []int

func (h indexHeap) Len() int            { return len(h) }
func (h indexHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *indexHeap) Push(x interface{}) { *h = append(*h, x.(int)) }
func (h *indexHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// slotArena stores tree slots contiguously, addressed by TreeIndex. Freed
// slots are marked Empty and queued for reuse; the arena only ever grows.
type slotArena struct {
	slots []treeSlot
	free  indexHeap
}

// allocate returns the lowest reclaimed index, or appends a new slot. The
// returned slot is Empty until the caller initializes it.
func (a *slotArena) allocate() TreeIndex {
	if a.free.Len() > 0 {
		return TreeIndex(heap.Pop(&a.free).(int))
	}
	a.slots = append(a.slots, treeSlot{kind: slotEmpty})
	return TreeIndex(len(a.slots) - 1)
}

// release marks the slot Empty and queues its index for reuse. Releasing an
// already-free slot means subdivide/rejoin pairing broke, which is a bug,
// not a recoverable condition.
func (a *slotArena) release(i TreeIndex) {
	if a.slots[i].kind == slotEmpty {
		panic(fmt.Sprintf("patchtree: double free of tree slot %d", i))
	}
	a.slots[i] = treeSlot{kind: slotEmpty}
	heap.Push(&a.free, int(i))
}

// at returns the live slot at i. Dereferencing a reclaimed slot is fatal.
// The pointer is only valid until the next allocate.
func (a *slotArena) at(i TreeIndex) *treeSlot {
	s := &a.slots[i]
	if s.kind == slotEmpty {
		panic(fmt.Sprintf("patchtree: dereference of empty tree slot %d", i))
	}
	return s
}

// set initializes the slot at i, which must currently be Empty.
func (a *slotArena) set(i TreeIndex, s treeSlot) {
	if a.slots[i].kind != slotEmpty {
		panic(fmt.Sprintf("patchtree: overwrite of live tree slot %d", i))
	}
	a.slots[i] = s
}

// patchArena stores patches contiguously, addressed by PatchIndex, with the
// same reclaim discipline as the slot arena.
type patchArena struct {
	patches []Patch
	free    indexHeap
}

// allocate returns the lowest reclaimed index, or appends a new tombstoned
// patch. The caller must retarget it before use.
func (a *patchArena) allocate() PatchIndex {
	if a.free.Len() > 0 {
		return PatchIndex(heap.Pop(&a.free).(int))
	}
	a.patches = append(a.patches, Patch{})
	return PatchIndex(len(a.patches) - 1)
}

// release tombstones the patch and queues its index for reuse.
func (a *patchArena) release(i PatchIndex) {
	if !a.patches[i].alive {
		panic(fmt.Sprintf("patchtree: double free of patch %d", i))
	}
	a.patches[i].tombstone()
	heap.Push(&a.free, int(i))
}

// at returns the live patch at i; dereferencing a tombstone is fatal. The
// pointer is only valid until the next allocate.
func (a *patchArena) at(i PatchIndex) *Patch {
	p := &a.patches[i]
	if !p.alive {
		panic(fmt.Sprintf("patchtree: dereference of tombstoned patch %d", i))
	}
	return p
}

// retarget points the (possibly fresh, possibly reclaimed) patch at i to
// new geometry owned by the given slot.
func (a *patchArena) retarget(i PatchIndex, owner TreeIndex, pts [3]r3.Vector) {
	a.patches[i].retarget(owner, pts)
}
