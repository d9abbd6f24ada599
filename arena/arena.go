package arena

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/outofforest/sigma/alloc"
	"github.com/outofforest/sigma/types"
)

const (
	// DefaultSize is the default number of blocks in the arena.
	DefaultSize = 16 * 1024

	// DefaultMaxReferences is the default capacity of the reference table.
	DefaultMaxReferences = DefaultSize / 8
)

// Config stores configuration of arena.
type Config struct {
	Size          uint64
	MaxReferences uint64
	UseMmap       bool
	UseHugePages  bool
}

// DefaultConfig is the default arena configuration.
var DefaultConfig = Config{
	Size:          DefaultSize,
	MaxReferences: DefaultMaxReferences,
}

// New creates arena.
func New(config Config) (*Arena, func(), error) {
	if config.MaxReferences > maxReferences {
		return nil, nil, errors.Errorf("maximum number of references is %d, requested %d", maxReferences,
			config.MaxReferences)
	}

	var data []byte
	deallocFunc := func() {}
	if config.UseMmap {
		var err error
		data, deallocFunc, err = alloc.Allocate(config.Size, config.UseHugePages)
		if err != nil {
			return nil, nil, err
		}
	} else {
		data = make([]byte, config.Size)
	}

	return &Arena{
		config: config,
		data:   data,
		refs:   newReferences(config.MaxReferences),
		epoch:  1,
	}, deallocFunc, nil
}

// Arena is the bounded buffer storing the forest of trees.
type Arena struct {
	config Config
	data   []byte
	size   int
	refs   references
	cache  treeCache
	epoch  uint64
	depth  int
}

// Size returns the number of occupied blocks.
func (a *Arena) Size() int {
	return a.size
}

// Capacity returns the maximum number of blocks.
func (a *Arena) Capacity() int {
	return len(a.data)
}

// Available returns the number of free blocks.
func (a *Arena) Available() int {
	return len(a.data) - a.size
}

// Blocks returns occupied blocks. Returned slice is valid until next mutation.
func (a *Arena) Blocks() []byte {
	return a.data[:a.size]
}

// Block returns block at offset.
func (a *Arena) Block(offset int) byte {
	return a.data[offset]
}

// Contains returns true if offset points to occupied block.
func (a *Arena) Contains(offset int) bool {
	return offset >= 0 && offset < a.size
}

// NextTree returns the offset right after the tree starting at offset.
func (a *Arena) NextTree(offset int) int {
	e := &a.cache[offset%treeCacheSize]
	if e.epoch == a.epoch && e.start == offset {
		return e.end
	}
	end := offset + types.TreeSize(a.data[offset:a.size])
	*e = treeCacheEntry{epoch: a.epoch, start: offset, end: end}
	return end
}

// Push appends blocks at the end of the arena and returns their offset.
func (a *Arena) Push(src []byte) (int, error) {
	offset := a.size
	if err := a.InsertBlocks(offset, src, true); err != nil {
		return 0, err
	}
	return offset, nil
}

// InsertBlocks inserts blocks copied from src at dest. References pointing at dest are shifted unless at is set.
// src must not point into the arena, InsertFrom is used for that.
func (a *Arena) InsertBlocks(dest int, src []byte, at bool) error {
	n := len(src)
	if err := a.grow(n); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	if at && dest == a.size {
		copy(a.data[dest:], src)
		a.size += n
		return nil
	}

	copy(a.data[dest+n:a.size+n], a.data[dest:a.size])
	copy(a.data[dest:dest+n], src)
	a.size += n
	a.refs.shift(threshold(dest, at), n)
	return nil
}

// InsertFrom inserts n blocks copied from src offset at dest.
func (a *Arena) InsertFrom(dest, src, n int, at bool) error {
	if err := a.grow(n); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	if at && dest == a.size {
		copy(a.data[dest:dest+n], a.data[src:src+n])
		a.size += n
		return nil
	}

	copy(a.data[dest+n:a.size+n], a.data[dest:a.size])
	switch {
	case src >= dest:
		// Source has been shifted together with the right side of the arena.
		copy(a.data[dest:dest+n], a.data[src+n:src+2*n])
	case src+n <= dest:
		copy(a.data[dest:dest+n], a.data[src:src+n])
	default:
		// Source is split by the insertion point.
		k := dest - src
		copy(a.data[dest:dest+k], a.data[src:dest])
		copy(a.data[dest+k:dest+n], a.data[dest+n:dest+2*n-k])
	}
	a.size += n
	a.refs.shift(threshold(dest, at), n)
	return nil
}

// RemoveBlocks removes n blocks starting at addr. References to removed blocks are tombstoned.
func (a *Arena) RemoveBlocks(addr, n int) {
	if n == 0 {
		return
	}
	if addr < 0 || addr+n > a.size {
		panic(errors.Errorf("removing blocks [%d, %d) outside arena of size %d", addr, addr+n, a.size))
	}

	a.epoch++
	copy(a.data[addr:], a.data[addr+n:a.size])
	a.size -= n
	a.refs.remove(addr, n)
}

// MoveBlocks moves n blocks from src to dest by rotating the blocks in between.
// When at is set, references pointing at dest stay in front of moved blocks.
func (a *Arena) MoveBlocks(dest, src, n int, at bool) {
	if dest == src || n == 0 {
		return
	}

	a.epoch++
	if dest < src {
		rotate(a.data[dest:src+n], src-dest)
	} else {
		rotate(a.data[src:dest], n)
	}
	a.refs.move(dest, src, n, at)
}

// ReplaceBlocks overwrites blocks at dest with src. References to overwritten blocks are tombstoned.
func (a *Arena) ReplaceBlocks(dest int, src []byte) {
	if len(src) == 0 {
		return
	}

	a.epoch++
	copy(a.data[dest:dest+len(src)], src)
	a.refs.tombstone(dest, dest+len(src))
}

// ReplaceFrom overwrites n blocks at dest with blocks at src.
func (a *Arena) ReplaceFrom(dest, src, n int) {
	if n == 0 {
		return
	}

	a.epoch++
	copy(a.data[dest:dest+n], a.data[src:src+n])
	a.refs.tombstone(dest, dest+n)
}

// FlushFromBlock truncates the arena at offset and tombstones references beyond it.
func (a *Arena) FlushFromBlock(offset int) {
	a.epoch++
	a.size = offset
	a.refs.invalidateAfter(offset)
}

// Flush removes everything from the arena and forgets all the references.
func (a *Arena) Flush() {
	a.epoch++
	a.size = 0
	a.refs.reset()
}

func (a *Arena) grow(n int) error {
	if a.size+n > len(a.data) {
		return errors.Wrapf(types.ErrCapacityExceeded, "inserting %d blocks, size: %d, capacity: %d", n, a.size,
			len(a.data))
	}
	a.epoch++
	return nil
}

func threshold(dest int, at bool) int {
	if at {
		return dest + 1
	}
	return dest
}

// rotate moves b[k:] in front of b[:k].
func rotate(b []byte, k int) {
	slices.Reverse(b[:k])
	slices.Reverse(b[k:])
	slices.Reverse(b)
}
