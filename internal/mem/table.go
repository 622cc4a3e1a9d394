package mem

import "github.com/jcorbin/gopost/internal/fault"

// DirectorySize is the number of entries held by each directory page of the
// entity table.
const DirectorySize = 256

// Entity is a stable handle into a Memory's entity table. Its directory
// entry may move (growth, exchange, restore) but the id never does.
type Entity uint32

// Null is the reserved zero-size entity.
const Null Entity = 0

// entry packs gc state into mark:
//
//	bit 0      gc mark
//	bit 1      on the free list
//	bits 8-15  reference count (unused)
//	bits 16-23 low level: save depth at creation
//	bits 24-31 top level: save depth when last stashed
type entry struct {
	addr uint32
	size uint32
	mark uint32
}

const (
	markBit   = 1 << 0
	freeBit   = 1 << 1
	lowShift  = 16
	topShift  = 24
	levelMask = 0xff
)

func (e *entry) marked() bool { return e.mark&markBit != 0 }
func (e *entry) free() bool   { return e.mark&freeBit != 0 }

func (e *entry) lowLevel() int { return int(e.mark>>lowShift) & levelMask }
func (e *entry) topLevel() int { return int(e.mark>>topShift) & levelMask }

func (e *entry) setTopLevel(level int) {
	e.mark = e.mark&^(levelMask<<topShift) | uint32(level&levelMask)<<topShift
}

func (e *entry) setLevels(low, top int) {
	e.mark = uint32(low&levelMask)<<lowShift | uint32(top&levelMask)<<topShift
}

type directory struct {
	next    *directory
	n       int
	entries [DirectorySize]entry
}

// table is a chain of fixed-size directories; resolving an id walks the
// chain one directory per DirectorySize ids.
type table struct {
	head, tail *directory
	count      uint32
}

func (t *table) add(e entry) Entity {
	if t.tail == nil {
		t.head = &directory{}
		t.tail = t.head
	} else if t.tail.n == DirectorySize {
		t.tail.next = &directory{}
		t.tail = t.tail.next
	}
	t.tail.entries[t.tail.n] = e
	t.tail.n++
	ent := Entity(t.count)
	t.count++
	return ent
}

func (t *table) lookup(ent Entity) (*entry, error) {
	i := uint32(ent)
	for dir := t.head; dir != nil; dir = dir.next {
		if i < uint32(dir.n) {
			return &dir.entries[i], nil
		}
		i -= DirectorySize
		if dir.n < DirectorySize {
			break
		}
	}
	return nil, fault.Errorf(fault.Unregistered, "entity %v not in table", uint32(ent))
}

func (t *table) each(from Entity, fn func(ent Entity, e *entry)) {
	ent := Entity(0)
	for dir := t.head; dir != nil; dir = dir.next {
		if uint32(ent)+DirectorySize <= uint32(from) {
			ent += DirectorySize
			continue
		}
		for i := 0; i < dir.n; i++ {
			if ent >= from {
				fn(ent, &dir.entries[i])
			}
			ent++
		}
	}
}
