package arena

import (
	"github.com/pkg/errors"

	"github.com/outofforest/sigma/types"
)

// Reference stores offset in the reference table and returns handle following the node across edits.
func (a *Arena) Reference(offset int) (Handle, error) {
	if offset < 0 || offset > a.size {
		panic("referencing block outside the arena")
	}
	slot, generation, err := a.refs.store(offset)
	if err != nil {
		return Handle{}, err
	}
	return Handle{
		arena:      a,
		slot:       slot,
		generation: generation,
	}, nil
}

// NumberOfReferences returns the logical length of the reference table.
func (a *Arena) NumberOfReferences() int {
	return a.refs.length
}

// Handle is a stable reference to a node in the arena.
// It survives relocation of the node but not its removal.
type Handle struct {
	arena      *Arena
	slot       uint32
	generation uint32
}

// Arena returns the arena handle belongs to.
func (h Handle) Arena() *Arena {
	return h.arena
}

// Offset returns current offset of the referenced node. False is returned if node does not exist anymore.
func (h Handle) Offset() (int, bool) {
	if h.arena == nil {
		return 0, false
	}
	s, ok := h.arena.refs.lookup(h.slot, h.generation)
	if !ok || s.state != slotLive {
		return 0, false
	}
	// Pointing right after the last block is tolerated.
	if s.offset > h.arena.size {
		return 0, false
	}
	return s.offset, true
}

// Valid returns true if handle still points to a node.
func (h Handle) Valid() bool {
	_, ok := h.Offset()
	return ok
}

// Clone returns new handle pointing to the same node.
// types.ErrDanglingHandle is returned if the node does not exist anymore.
func (h Handle) Clone() (Handle, error) {
	offset, ok := h.Offset()
	if !ok {
		return Handle{}, errors.Wrapf(types.ErrDanglingHandle, "cloning handle of slot %d", h.slot)
	}
	return h.arena.Reference(offset)
}

// Rebind points handle to another node. False is returned if handle has been released.
func (h Handle) Rebind(offset int) bool {
	if h.arena == nil {
		return false
	}
	s, ok := h.arena.refs.lookup(h.slot, h.generation)
	if !ok {
		return false
	}
	s.offset = offset
	s.state = slotLive
	return true
}

// Release frees the slot taken by the handle. Copies of the handle become invalid.
func (h Handle) Release() {
	if h.arena == nil {
		return
	}
	h.arena.refs.delete(h.slot, h.generation)
}
