package object

// Marker traces composite objects for a collection, marking the entity of
// every object reachable from those it is given, along with everything
// reachable from the save shadows of those entities.
//
// Objects of a bank whose space is nil are skipped, which is how a local
// collection avoids descending into global memory.
type Marker struct {
	Local  *Space
	Global *Space

	work []Object
}

func (mk *Marker) space(b Bank) *Space {
	if b == Global {
		return mk.Global
	}
	return mk.Local
}

// Mark marks o and everything reachable from it.
func (mk *Marker) Mark(o Object) error {
	mk.work = append(mk.work[:0], o)
	return mk.drain()
}

// MarkAll marks every object in os and everything reachable from them.
func (mk *Marker) MarkAll(os []Object) error {
	mk.work = append(mk.work[:0], os...)
	return mk.drain()
}

// MarkNameStrings marks the name strings of both spaces.
func (mk *Marker) MarkNameStrings() error {
	for _, s := range []*Space{mk.Local, mk.Global} {
		if s == nil {
			continue
		}
		if err := s.EachNameString(mk.Mark); err != nil {
			return err
		}
	}
	return nil
}

func (mk *Marker) drain() error {
	for len(mk.work) > 0 {
		o := mk.work[len(mk.work)-1]
		mk.work = mk.work[:len(mk.work)-1]
		if !o.Composite() {
			continue
		}
		s := mk.space(o.Bank())
		if s == nil {
			continue
		}
		newly, err := s.Mem.Mark(o.ent)
		if err != nil {
			return err
		}
		if !newly || o.typ == StringType {
			continue
		}
		if err := mk.children(s, o); err != nil {
			return err
		}
	}
	return nil
}

// children queues everything stored in o's entity, the whole entity rather
// than o's interval, plus everything stored in its shadows.
func (mk *Marker) children(s *Space, o Object) error {
	push := func(child Object) {
		if child.Composite() {
			mk.work = append(mk.work, child)
		}
	}
	skip := 0
	if o.typ == DictType {
		skip = 1 // header
	}
	if err := s.elems(o.ent, skip, push); err != nil {
		return err
	}
	for _, shadow := range s.Mem.Shadows(o.ent) {
		if err := s.elems(shadow, skip, push); err != nil {
			return err
		}
	}
	return nil
}
