package mem

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/jcorbin/gopost/internal/fault"
	"github.com/jcorbin/gopost/internal/stack"
)

// Memory combines an Arena with an entity table, a free list, a collector
// and a save stack. All references handed out are Entity ids; raw bytes are
// only reachable through Get (a copy) or Borrow (a view scoped to a callback
// during which any allocation fails).
type Memory struct {
	Arena

	// CollectEvery specifies how many free list misses GCAlloc tolerates
	// before forcing a collection; zero disables periodic collection.
	CollectEvery int

	// Tracer provides the roots for Collect; without one Collect is a no-op.
	Tracer Tracer

	// Logf, if set, receives trace logging.
	Logf func(mess string, args ...interface{})

	table     table
	firstLive Entity
	free      []Entity
	spare     []Entity // zero-size ids absorbed by coalescing
	misses    int
	inhibit   int
	borrowed  int
	saves     stack.Stack[saveLevel]
	shadows   map[Entity][]Entity
	stats     Stats
}

// Stats summarizes a Memory's usage and activity counters.
type Stats struct {
	ArenaUsed   uint32 `json:"arena_used"`
	ArenaCap    uint32 `json:"arena_cap"`
	Entities    uint32 `json:"entities"`
	Free        int    `json:"free"`
	SaveLevel   int    `json:"save_level"`
	Allocs      uint64 `json:"allocs"`
	Reuses      uint64 `json:"reuses"`
	Growths     uint64 `json:"growths"`
	Collections uint64 `json:"collections"`
	Swept       uint64 `json:"swept"`
	Saves       uint64 `json:"saves"`
	Restores    uint64 `json:"restores"`
	Stashes     uint64 `json:"stashes"`
}

// Init discards all prior state, preallocating capacityHint bytes and
// reserving the Null entity.
func (m *Memory) Init(capacityHint uint32) {
	m.Arena.Init(capacityHint)
	m.table = table{}
	m.free = nil
	m.spare = nil
	m.misses = 0
	m.inhibit = 0
	m.borrowed = 0
	m.shadows = nil
	m.saves.Clear()
	m.stats = Stats{}
	m.reserve()
}

// reserve lazily sets up the Null entity of a zero-value Memory.
func (m *Memory) reserve() {
	if m.table.count == 0 {
		m.table.add(entry{})
		m.firstLive = Null + 1
	}
}

// Stats returns a snapshot of usage counters.
func (m *Memory) Stats() Stats {
	st := m.stats
	st.ArenaUsed = m.Used()
	st.ArenaCap = m.Cap()
	st.Entities = m.table.count
	st.Free = len(m.free)
	st.SaveLevel = m.SaveLevel()
	return st
}

// Entities returns the number of entity ids assigned so far.
func (m *Memory) Entities() int { return int(m.table.count) }

// FirstLive returns the first entity id subject to collection.
func (m *Memory) FirstLive() Entity { return m.firstLive }

// SetFirstLive marks every entity below ent as permanent.
func (m *Memory) SetFirstLive(ent Entity) { m.firstLive = ent }

// AllocBytes bump-allocates raw bytes from the arena; unlike Arena.AllocBytes
// it fails while any Borrow is active.
func (m *Memory) AllocBytes(n uint32) (uint32, error) {
	if m.borrowed > 0 {
		return 0, fault.Errorf(fault.Unregistered, "allocation of %v bytes during borrow", n)
	}
	gen := m.gen
	addr, err := m.Arena.AllocBytes(n)
	if err == nil && gen != m.gen {
		m.stats.Growths++
		m.logf("grow arena cap:%v used:%v", m.Cap(), m.Used())
	}
	return addr, err
}

// AllocEntity allocates size fresh bytes and assigns them a new entity id.
func (m *Memory) AllocEntity(size uint32) (Entity, error) {
	m.reserve()
	addr, err := m.AllocBytes(size)
	if err != nil {
		return Null, err
	}
	e := entry{addr: addr, size: size}
	e.setLevels(m.SaveLevel(), 0)
	m.stats.Allocs++
	return m.table.add(e), nil
}

// GCAlloc allocates an entity of size bytes, preferring a first-fit reuse
// from the free list. After CollectEvery misses it forces a collection before
// falling back to fresh allocation; a fresh allocation that exceeds the arena
// limit triggers one more collection before failing with VMError.
func (m *Memory) GCAlloc(size uint32) (Entity, error) {
	m.reserve()
	if size > 0 {
		if ent, ok, err := m.freeAlloc(size); err != nil || ok {
			return ent, err
		}
		m.misses++
		if m.CollectEvery > 0 && m.misses >= m.CollectEvery && m.collectable() {
			m.misses = 0
			if _, err := m.Collect(); err != nil {
				return Null, err
			}
			if ent, ok, err := m.freeAlloc(size); err != nil || ok {
				return ent, err
			}
		}
	}

	ent, err := m.AllocEntity(size)
	var lim LimitError
	if errors.As(err, &lim) && m.collectable() {
		if _, cerr := m.Collect(); cerr != nil {
			return Null, cerr
		}
		if reused, ok, ferr := m.freeAlloc(size); ferr != nil || ok {
			return reused, ferr
		}
		ent, err = m.AllocEntity(size)
	}
	if err != nil {
		return Null, fmt.Errorf("gc alloc %v bytes: %w", size, err)
	}
	return ent, nil
}

// Free returns ent to the free list; zero-size entities are never listed.
func (m *Memory) Free(ent Entity) error {
	e, err := m.table.lookup(ent)
	if err != nil {
		return err
	}
	if e.size == 0 || e.free() {
		return nil
	}
	m.release(ent, e)
	return nil
}

func (m *Memory) release(ent Entity, e *entry) {
	e.mark = freeBit
	m.free = append(m.free, ent)
}

func (m *Memory) freeAlloc(size uint32) (Entity, bool, error) {
	for i, ent := range m.free {
		e, err := m.table.lookup(ent)
		if err != nil {
			return Null, false, err
		}
		if e.size < size {
			continue
		}
		m.free = append(m.free[:i], m.free[i+1:]...)
		if rem := e.size - size; rem > 0 {
			split := m.addFree(entry{addr: e.addr + size, size: rem, mark: freeBit})
			m.free = append(m.free, split)
			e.size = size
		}
		b, err := m.Bytes(e.addr, e.size)
		if err != nil {
			return Null, false, err
		}
		for j := range b {
			b[j] = 0
		}
		e.setLevels(m.SaveLevel(), 0)
		m.stats.Reuses++
		return ent, true, nil
	}
	return Null, false, nil
}

// addFree assigns a free entry a spare id if there is one.
func (m *Memory) addFree(e entry) Entity {
	if n := len(m.spare); n > 0 {
		ent := m.spare[n-1]
		m.spare = m.spare[:n-1]
		if se, err := m.table.lookup(ent); err == nil {
			*se = e
			return ent
		}
	}
	return m.table.add(e)
}

type freeBlock struct {
	ent Entity
	e   *entry
}

// coalesce merges free blocks adjacent in the arena, leaving the free list
// in address order; each absorbed id becomes a spare.
func (m *Memory) coalesce() error {
	blocks := make([]freeBlock, 0, len(m.free))
	for _, ent := range m.free {
		e, err := m.table.lookup(ent)
		if err != nil {
			return err
		}
		blocks = append(blocks, freeBlock{ent, e})
	}
	slices.SortFunc(blocks, func(a, b freeBlock) int { return cmp.Compare(a.e.addr, b.e.addr) })

	m.free = m.free[:0]
	var last *entry
	for _, b := range blocks {
		if last != nil && last.addr+last.size == b.e.addr {
			last.size += b.e.size
			b.e.size = 0
			m.spare = append(m.spare, b.ent)
			continue
		}
		m.free = append(m.free, b.ent)
		last = b.e
	}
	return nil
}

// Inhibit defers collection until the returned release func is called; it
// guards sequences of allocations whose intermediate results are not yet
// reachable from any root.
func (m *Memory) Inhibit() (release func()) {
	m.inhibit++
	return func() { m.inhibit-- }
}

func (m *Memory) collectable() bool {
	return m.Tracer != nil && m.inhibit == 0 && m.borrowed == 0
}

// AddressOf returns ent's current arena offset.
func (m *Memory) AddressOf(ent Entity) (uint32, error) {
	e, err := m.lookup(ent)
	if err != nil {
		return 0, err
	}
	return e.addr, nil
}

// SizeOf returns ent's current size in bytes.
func (m *Memory) SizeOf(ent Entity) (uint32, error) {
	e, err := m.lookup(ent)
	if err != nil {
		return 0, err
	}
	return e.size, nil
}

// Get copies n bytes at off within ent.
func (m *Memory) Get(ent Entity, off, n uint32) ([]byte, error) {
	b, err := m.view(ent, off, n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

// Put copies data into ent at off.
func (m *Memory) Put(ent Entity, off uint32, data []byte) error {
	b, err := m.view(ent, off, uint32(len(data)))
	if err == nil {
		copy(b, data)
	}
	return err
}

// Borrow calls fn with a view of ent's bytes; the view must not be retained
// past fn, and any allocation attempted within fn fails.
func (m *Memory) Borrow(ent Entity, fn func(b []byte) error) error {
	e, err := m.lookup(ent)
	if err != nil {
		return err
	}
	b, err := m.Bytes(e.addr, e.size)
	if err != nil {
		return err
	}
	m.borrowed++
	defer func() { m.borrowed-- }()
	return fn(b)
}

// Exchange swaps the storage (address and size) of two entities, leaving
// their ids and gc marks in place. Restore and dictionary growth are both
// built on it: holders of either id observe the other's contents afterwards.
func (m *Memory) Exchange(a, b Entity) error {
	ea, err := m.lookup(a)
	if err != nil {
		return err
	}
	eb, err := m.lookup(b)
	if err != nil {
		return err
	}
	ea.addr, eb.addr = eb.addr, ea.addr
	ea.size, eb.size = eb.size, ea.size
	return nil
}

func (m *Memory) view(ent Entity, off, n uint32) ([]byte, error) {
	e, err := m.lookup(ent)
	if err != nil {
		return nil, err
	}
	if uint64(off)+uint64(n) > uint64(e.size) {
		return nil, fault.Errorf(fault.RangeCheck, "entity %v [%v, %v) past size %v",
			uint32(ent), off, uint64(off)+uint64(n), e.size)
	}
	return m.Bytes(e.addr+off, n)
}

func (m *Memory) lookup(ent Entity) (*entry, error) {
	e, err := m.table.lookup(ent)
	if err == nil && e.free() {
		return nil, fault.Errorf(fault.Unregistered, "entity %v is free", uint32(ent))
	}
	return e, err
}

func (m *Memory) logf(mess string, args ...interface{}) {
	if m.Logf != nil {
		m.Logf(mess, args...)
	}
}
