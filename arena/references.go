package arena

import (
	"math"

	"github.com/pkg/errors"

	"github.com/outofforest/sigma/types"
)

const maxReferences = math.MaxUint32

type slotState byte

const (
	slotFree slotState = iota
	slotLive
	slotTombstoned
)

type slot struct {
	offset     int
	generation uint32
	state      slotState
}

func newReferences(capacity uint64) references {
	return references{
		slots: make([]slot, capacity),
	}
}

// references is the fixed-capacity table mapping slots to offsets.
// Slots at or beyond length are free.
type references struct {
	slots  []slot
	length int
}

func (r *references) store(offset int) (uint32, uint32, error) {
	index := r.length
	if index == len(r.slots) {
		index = r.reusable()
		if index < 0 {
			return 0, 0, errors.Wrapf(types.ErrReferenceTableFull, "all %d references are live", len(r.slots))
		}
	} else {
		r.length++
	}

	s := &r.slots[index]
	s.generation++
	s.offset = offset
	s.state = slotLive
	return uint32(index), s.generation, nil
}

// reusable returns deleted slot if there is any, tombstoned one otherwise.
func (r *references) reusable() int {
	tombstoned := -1
	for i := range r.length {
		switch r.slots[i].state {
		case slotFree:
			return i
		case slotTombstoned:
			if tombstoned < 0 {
				tombstoned = i
			}
		}
	}
	return tombstoned
}

func (r *references) lookup(index, generation uint32) (*slot, bool) {
	if int(index) >= r.length {
		return nil, false
	}
	s := &r.slots[index]
	if s.generation != generation || s.state == slotFree {
		return nil, false
	}
	return s, true
}

func (r *references) delete(index, generation uint32) {
	s, ok := r.lookup(index, generation)
	if !ok {
		return
	}

	s.state = slotFree
	s.generation++
	if int(index) == r.length-1 {
		for r.length > 0 && r.slots[r.length-1].state == slotFree {
			r.length--
		}
	}
}

// truncate frees slots allocated beyond length.
func (r *references) truncate(length int) {
	for i := length; i < r.length; i++ {
		s := &r.slots[i]
		if s.state != slotFree {
			s.state = slotFree
			s.generation++
		}
	}
	r.length = min(r.length, length)
}

func (r *references) reset() {
	r.truncate(0)
}

func (r *references) live(i int) *slot {
	s := &r.slots[i]
	if s.state != slotLive {
		return nil
	}
	return s
}

// shift moves offsets at or beyond from by n.
func (r *references) shift(from, n int) {
	for i := range r.length {
		if s := r.live(i); s != nil && s.offset >= from {
			s.offset += n
		}
	}
}

func (r *references) remove(addr, n int) {
	for i := range r.length {
		s := r.live(i)
		switch {
		case s == nil:
		case s.offset >= addr+n:
			s.offset -= n
		case s.offset >= addr:
			s.state = slotTombstoned
		}
	}
}

func (r *references) move(dest, src, n int, at bool) {
	delta := dest - src
	if dest > src {
		delta -= n
	}
	for i := range r.length {
		s := r.live(i)
		switch {
		case s == nil:
		case src <= s.offset && s.offset < src+n:
			s.offset += delta
		case at && src+n <= s.offset && s.offset <= dest:
			s.offset -= n
		case at && dest < s.offset && s.offset < src:
			s.offset += n
		case !at && src+n <= s.offset && s.offset < dest:
			s.offset -= n
		case !at && dest <= s.offset && s.offset < src:
			s.offset += n
		}
	}
}

// tombstone invalidates offsets in [from, to).
func (r *references) tombstone(from, to int) {
	for i := range r.length {
		if s := r.live(i); s != nil && s.offset >= from && s.offset < to {
			s.state = slotTombstoned
		}
	}
}

func (r *references) invalidateAfter(offset int) {
	for i := range r.length {
		if s := r.live(i); s != nil && s.offset >= offset {
			s.state = slotTombstoned
		}
	}
}
