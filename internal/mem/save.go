package mem

import (
	"github.com/jcorbin/gopost/internal/fault"
	"github.com/jcorbin/gopost/internal/stack"
)

// MaxSaveLevel bounds save nesting; levels are recorded in a byte of each
// entity's mark.
const MaxSaveLevel = levelMask

type saveRecord struct {
	src, cpy Entity
	top      int // src top level before stashing
}

type saveLevel struct {
	level   int
	records *stack.Stack[saveRecord]
}

// SaveLevel returns the current save stack depth.
func (m *Memory) SaveLevel() int { return m.saves.Count() }

// Save opens a new save level, returning its level number (the depth before
// it was pushed).
func (m *Memory) Save() (int, error) {
	m.reserve()
	level := m.saves.Count()
	if level >= MaxSaveLevel {
		return 0, fault.Errorf(fault.LimitCheck, "save nesting exceeds %v", MaxSaveLevel)
	}
	if err := m.saves.Push(saveLevel{level, &stack.Stack[saveRecord]{}}); err != nil {
		return 0, err
	}
	m.stats.Saves++
	m.logf("save level:%v", level)
	return level, nil
}

// Stashed returns true if ent has already been shadow-copied at the current
// save level (or if there is no save level to copy at).
func (m *Memory) Stashed(ent Entity) (bool, error) {
	e, err := m.lookup(ent)
	if err != nil {
		return false, err
	}
	return e.topLevel() == m.saves.Count(), nil
}

// Stash must be called before the first mutation of ent at each save level:
// it copies ent's bytes into a new shadow entity recorded by the innermost
// save level. Calling it again at the same level is a no-op.
func (m *Memory) Stash(ent Entity) error {
	depth := m.saves.Count()
	e, err := m.lookup(ent)
	if err != nil {
		return err
	}
	if depth == 0 || e.topLevel() == depth {
		return nil
	}
	if e.topLevel() > depth {
		return fault.Errorf(fault.Unregistered, "entity %v stashed at level %v beyond depth %v",
			uint32(ent), e.topLevel(), depth)
	}
	lvl, err := m.saves.TopDown(0)
	if err != nil {
		return err
	}
	if lvl.level != depth-1 {
		return fault.Errorf(fault.Unregistered, "save level %v at depth %v", lvl.level, depth)
	}

	cpy, err := m.AllocEntity(e.size)
	if err != nil {
		return err
	}
	src, err := m.Bytes(e.addr, e.size) // after alloc, which may have grown the arena
	if err != nil {
		return err
	}
	if err := m.Put(cpy, 0, src); err != nil {
		return err
	}
	if err := lvl.records.Push(saveRecord{src: ent, cpy: cpy, top: e.topLevel()}); err != nil {
		return err
	}
	e.setTopLevel(depth)
	m.stats.Stashes++
	return nil
}

// Restore closes the innermost save level, exchanging the storage of every
// entity stashed within it with its shadow copy. References to those
// entities then observe their contents as of the matching Save. The now
// orphaned shadows are left for the collector.
func (m *Memory) Restore() error {
	depth := m.saves.Count()
	if depth == 0 {
		return fault.Errorf(fault.InvalidRestore, "no save level to restore")
	}
	lvl, err := m.saves.Pop()
	if err != nil {
		return err
	}
	if lvl.level != depth-1 {
		return fault.Errorf(fault.Unregistered, "save level %v at depth %v", lvl.level, depth)
	}
	for lvl.records.Count() > 0 {
		rec, err := lvl.records.Pop()
		if err != nil {
			return err
		}
		if err := m.Exchange(rec.src, rec.cpy); err != nil {
			return err
		}
		e, err := m.lookup(rec.src)
		if err != nil {
			return err
		}
		top := rec.top
		if top > lvl.level {
			top = lvl.level
		}
		e.setTopLevel(top)
	}
	m.stats.Restores++
	m.logf("restore level:%v", lvl.level)
	return nil
}

// RestoreTo restores save levels until the depth equals level, i.e. it undoes
// the Save that returned level and everything since.
func (m *Memory) RestoreTo(level int) error {
	if level < 0 || level >= m.saves.Count() {
		return fault.Errorf(fault.InvalidRestore, "level %v at depth %v", level, m.saves.Count())
	}
	for m.saves.Count() > level {
		if err := m.Restore(); err != nil {
			return err
		}
	}
	return nil
}
