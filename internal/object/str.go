package object

import "github.com/jcorbin/gopost/internal/fault"

// MakeString allocates a string holding a copy of init.
func (s *Space) MakeString(init []byte) (Object, error) {
	return s.MakeStringN(len(init), init)
}

// MakeStringN allocates a string of n bytes, the first of which are copied
// from init; the rest are zero.
func (s *Space) MakeStringN(n int, init []byte) (Object, error) {
	if err := checkLength(n); err != nil {
		return Null(), err
	}
	if len(init) > n {
		init = init[:n]
	}
	ent, err := s.Mem.GCAlloc(uint32(n))
	if err != nil {
		return Null(), err
	}
	if err := s.Mem.Put(ent, 0, init); err != nil {
		return Null(), err
	}
	return composite(StringType, s.Bank, ent, 0, uint32(n)), nil
}

// StringGet returns byte i of a readable string.
func (s *Space) StringGet(str Object, i int) (byte, error) {
	if err := s.own(str, StringType); err != nil {
		return 0, err
	}
	if !str.Readable() {
		return 0, fault.Errorf(fault.InvalidAccess, "get from %v string", str.Access())
	}
	if i < 0 || i >= int(str.n) {
		return 0, fault.Errorf(fault.RangeCheck, "index %v out of [0, %v)", i, str.n)
	}
	b, err := s.Mem.Get(str.ent, str.off+uint32(i), 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// StringPut stores c as byte i of a writable string.
func (s *Space) StringPut(str Object, i int, c byte) error {
	if err := s.own(str, StringType); err != nil {
		return err
	}
	if !str.Writable() {
		return fault.Errorf(fault.InvalidAccess, "put into %v string", str.Access())
	}
	if i < 0 || i >= int(str.n) {
		return fault.Errorf(fault.RangeCheck, "index %v out of [0, %v)", i, str.n)
	}
	if err := s.Mem.Stash(str.ent); err != nil {
		return err
	}
	return s.Mem.Put(str.ent, str.off+uint32(i), []byte{c})
}

// StringWrite copies data into a writable string starting at byte i.
func (s *Space) StringWrite(str Object, i int, data []byte) error {
	if err := s.own(str, StringType); err != nil {
		return err
	}
	if !str.Writable() {
		return fault.Errorf(fault.InvalidAccess, "write into %v string", str.Access())
	}
	if i < 0 || i+len(data) > int(str.n) {
		return fault.Errorf(fault.RangeCheck, "write [%v, %v) out of [0, %v)", i, i+len(data), str.n)
	}
	if err := s.Mem.Stash(str.ent); err != nil {
		return err
	}
	return s.Mem.Put(str.ent, str.off+uint32(i), data)
}

// StringBytes copies out a string's bytes, ignoring access; the interpreter
// reads execute-only strings and key normalization reads any string.
func (s *Space) StringBytes(str Object) ([]byte, error) {
	if err := s.own(str, StringType); err != nil {
		return nil, err
	}
	return s.Mem.Get(str.ent, str.off, str.n)
}
