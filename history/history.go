// Package history keeps snapshots of trees in a bounded flat log so they may be revived later.
package history

import (
	"unsafe"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/zeebo/blake3"

	"github.com/outofforest/mass"
	"github.com/outofforest/photon"
	"github.com/outofforest/sigma/arena"
	"github.com/outofforest/sigma/tree"
	"github.com/outofforest/sigma/types"
)

const (
	recordAlignment = 8
	headerSize      = int(unsafe.Sizeof(header{}))
)

// Config stores configuration of the log.
type Config struct {
	// Capacity is the number of bytes available for records.
	Capacity uint64

	// MaxEntries is the maximum number of records kept.
	MaxEntries uint64
}

// DefaultConfig is the default log configuration.
var DefaultConfig = Config{
	Capacity:   64 * 1024,
	MaxEntries: 1024,
}

// Checksum is the blake3 checksum of tree blocks.
type Checksum [32]byte

// header precedes tree blocks in the log.
type header struct {
	Checksum Checksum
	Size     uint32
}

// Entry describes the record stored in the log.
type Entry struct {
	Sequence uint64
	Label    string
	Checksum Checksum

	offset int
	size   int
}

// Size returns the number of blocks of the stored tree.
func (e *Entry) Size() int {
	return e.size
}

// New creates log.
func New(config Config) (*Log, error) {
	if config.MaxEntries == 0 {
		return nil, errors.New("log must store at least one entry")
	}
	return &Log{
		id:        uuid.New(),
		config:    config,
		data:      make([]byte, config.Capacity),
		massEntry: mass.New[Entry](config.MaxEntries),
		entries:   make([]*Entry, 0, config.MaxEntries),
	}, nil
}

// Log stores trees byte-exact. Records are appended after each other, oldest ones are evicted when there is no
// room for the new one.
type Log struct {
	id        uuid.UUID
	config    Config
	data      []byte
	size      int
	sequence  uint64
	massEntry *mass.Mass[Entry]
	entries   []*Entry
}

// ID returns the identifier of the log.
func (l *Log) ID() uuid.UUID {
	return l.id
}

// Entries returns entries from the oldest to the newest.
func (l *Log) Entries() []*Entry {
	return l.entries
}

// Append stores copy of the tree.
func (l *Log) Append(label string, t tree.Tree) (*Entry, error) {
	return l.append(label, t.Bytes(), blake3.Sum256(t.Bytes()))
}

func (l *Log) append(label string, blocks []byte, checksum Checksum) (*Entry, error) {
	recordSize := alignedSize(len(blocks))
	if recordSize > len(l.data) {
		return nil, errors.Wrapf(types.ErrCapacityExceeded, "record of %d bytes exceeds log capacity", recordSize)
	}
	for len(l.entries) > 0 && (l.size+recordSize > len(l.data) || uint64(len(l.entries)) >= l.config.MaxEntries) {
		l.evictOldest()
	}

	offset := l.size
	*photon.FromBytes[header](l.data[offset:]) = header{
		Checksum: checksum,
		Size:     uint32(len(blocks)),
	}
	copy(l.data[offset+headerSize:], blocks)
	l.size += recordSize

	e := l.massEntry.New()
	*e = Entry{
		Sequence: l.sequence,
		Label:    label,
		Checksum: checksum,
		offset:   offset,
		size:     len(blocks),
	}
	l.sequence++
	l.entries = append(l.entries, e)
	return e, nil
}

// Revive copies the tree stored in the entry to the end of the arena.
func (l *Log) Revive(a *arena.Arena, e *Entry) (tree.Tree, error) {
	blocks, err := l.blocks(e)
	if err != nil {
		return tree.Tree{}, err
	}
	offset, err := a.Push(blocks)
	if err != nil {
		return tree.Tree{}, err
	}
	return tree.In(a, offset), nil
}

// Find returns the newest entry storing tree identical to t.
func (l *Log) Find(t tree.Tree) (*Entry, bool) {
	checksum := Checksum(blake3.Sum256(t.Bytes()))
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].Checksum == checksum {
			return l.entries[i], true
		}
	}
	return nil, false
}

// Verify checks checksums of all the records.
func (l *Log) Verify() error {
	for _, e := range l.entries {
		if _, err := l.blocks(e); err != nil {
			return err
		}
	}
	return nil
}

func (l *Log) blocks(e *Entry) ([]byte, error) {
	h := photon.FromBytes[header](l.data[e.offset:])
	if int(h.Size) != e.size || h.Checksum != e.Checksum {
		return nil, errors.Wrapf(types.ErrGeneric, "header of entry %d is corrupted", e.Sequence)
	}
	blocks := l.data[e.offset+headerSize : e.offset+headerSize+e.size]
	if blake3.Sum256(blocks) != e.Checksum {
		return nil, errors.Wrapf(types.ErrGeneric, "checksum of entry %d does not match", e.Sequence)
	}
	return blocks, nil
}

func (l *Log) evictOldest() {
	oldest := l.entries[0]
	l.entries = l.entries[1:]
	shift := alignedSize(oldest.size)
	copy(l.data, l.data[shift:l.size])
	l.size -= shift
	for _, e := range l.entries {
		e.offset -= shift
	}
}

func alignedSize(size int) int {
	return (headerSize + size + recordAlignment - 1) / recordAlignment * recordAlignment
}
