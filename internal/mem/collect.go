package mem

import "github.com/jcorbin/gopost/internal/fault"

// Tracer marks every entity reachable from its roots by calling Mark on the
// memory being collected (and possibly Unmark/Mark on other memories whose
// objects may lead back into it).
type Tracer interface {
	Trace(m *Memory) error
}

// TracerFunc adapts a function to the Tracer interface.
type TracerFunc func(m *Memory) error

// Trace calls f(m).
func (f TracerFunc) Trace(m *Memory) error { return f(m) }

// Collect runs one mark-sweep cycle, returning the number of entities put
// on the free list:
//   - unmark every entity from FirstLive onward
//   - let Tracer mark everything reachable
//   - keep every entity recorded by a live save level
//   - sweep each unmarked, non-empty entity onto the free list
//   - merge free blocks that are adjacent in the arena
//
// Collect must only be called at allocation-safe points; it fails while a
// Borrow is active.
func (m *Memory) Collect() (int, error) {
	if m.Tracer == nil {
		return 0, nil
	}
	if m.borrowed > 0 {
		return 0, fault.Errorf(fault.Unregistered, "collection during borrow")
	}

	m.Unmark()
	release := m.CacheShadows()
	defer release()

	if err := m.Tracer.Trace(m); err != nil {
		return 0, err
	}
	if err := m.markSaved(); err != nil {
		return 0, err
	}

	swept := 0
	m.table.each(m.firstLive, func(ent Entity, e *entry) {
		if !e.marked() && !e.free() && e.size > 0 {
			m.release(ent, e)
			swept++
		}
	})
	if err := m.coalesce(); err != nil {
		return 0, err
	}

	m.stats.Collections++
	m.stats.Swept += uint64(swept)
	m.logf("collect swept:%v free:%v entities:%v", swept, len(m.free), m.table.count)
	return swept, nil
}

// Unmark clears the gc mark of every entity from FirstLive onward.
func (m *Memory) Unmark() {
	m.table.each(m.firstLive, func(_ Entity, e *entry) {
		e.mark &^= markBit
	})
}

// Mark sets ent's gc mark, returning true only if it was not already set.
// Entities below FirstLive are permanent and never reported as newly marked.
func (m *Memory) Mark(ent Entity) (bool, error) {
	if ent < m.firstLive {
		return false, nil
	}
	e, err := m.lookup(ent)
	if err != nil {
		return false, err
	}
	if e.marked() {
		return false, nil
	}
	e.mark |= markBit
	return true, nil
}

// Marked returns true if ent's gc mark is set.
func (m *Memory) Marked(ent Entity) (bool, error) {
	e, err := m.lookup(ent)
	if err != nil {
		return false, err
	}
	return e.marked(), nil
}

// Shadows returns every save-record copy of ent, oldest first; a tracer marks
// them as having ent's type, since restore may bring their contents back.
func (m *Memory) Shadows(ent Entity) []Entity {
	if m.shadows != nil {
		return m.shadows[ent]
	}
	return m.indexShadows()[ent]
}

// CacheShadows indexes the save records once for every Shadows call until
// the returned release func is called; no Save, Stash or Restore may happen
// meanwhile. A tracer of some other memory uses it on each memory it walks.
func (m *Memory) CacheShadows() (release func()) {
	if m.shadows != nil {
		return func() {}
	}
	m.shadows = m.indexShadows()
	return func() { m.shadows = nil }
}

func (m *Memory) indexShadows() map[Entity][]Entity {
	index := make(map[Entity][]Entity)
	m.saves.ForEach(func(_ int, lvl saveLevel) error {
		return lvl.records.ForEach(func(_ int, rec saveRecord) error {
			index[rec.src] = append(index[rec.src], rec.cpy)
			return nil
		})
	})
	return index
}

func (m *Memory) markSaved() error {
	return m.saves.ForEach(func(_ int, lvl saveLevel) error {
		return lvl.records.ForEach(func(_ int, rec saveRecord) error {
			if _, err := m.Mark(rec.src); err != nil {
				return err
			}
			_, err := m.Mark(rec.cpy)
			return err
		})
	})
}
