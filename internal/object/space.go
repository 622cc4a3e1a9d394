package object

import (
	"github.com/jcorbin/gopost/internal/fault"
	"github.com/jcorbin/gopost/internal/mem"
	"github.com/jcorbin/gopost/internal/stack"
)

// Names interns name text; it is owned by the runtime and shared by every
// space, so that equal names compare equal across memories.
type Names struct {
	ids  map[string]uint32
	text []string
}

// Intern returns the literal name object for s, assigning it an id if new.
func (ns *Names) Intern(s string) Object {
	if id, ok := ns.ids[s]; ok {
		return nameObject(id)
	}
	if ns.ids == nil {
		ns.ids = make(map[string]uint32)
		ns.text = []string{""}
	}
	id := uint32(len(ns.text))
	ns.text = append(ns.text, s)
	ns.ids[s] = id
	return nameObject(id)
}

// Lookup returns the name object for s only if it is already interned.
func (ns *Names) Lookup(s string) (Object, bool) {
	id, ok := ns.ids[s]
	return nameObject(id), ok
}

// Text returns the text of a name object.
func (ns *Names) Text(name Object) string {
	if id := name.NameID(); name.typ == NameType && int(id) < len(ns.text) {
		return ns.text[id]
	}
	return ""
}

// Len returns the number of interned names.
func (ns *Names) Len() int {
	if len(ns.text) == 0 {
		return 0
	}
	return len(ns.text) - 1
}

// Space binds a memory to a bank: every composite created through it carries
// the bank, and every composite given to it must belong to it.
type Space struct {
	Mem   *mem.Memory
	Names *Names
	Bank  Bank

	nameStrings map[uint32]Object
	strings     stack.Stack[Object]
}

// NewSpace returns a space allocating in m.
func NewSpace(m *mem.Memory, names *Names, bank Bank) *Space {
	return &Space{Mem: m, Names: names, Bank: bank}
}

// NameString returns a read-only string object holding a name's text,
// materializing it in this space on first use. Materialized strings are
// retained until the space is discarded.
func (s *Space) NameString(name Object) (Object, error) {
	if name.typ != NameType {
		return Null(), fault.Errorf(fault.TypeCheck, "name string of %v", name.typ)
	}
	if str, ok := s.nameStrings[name.NameID()]; ok {
		return str, nil
	}
	str, err := s.MakeString([]byte(s.Names.Text(name)))
	if err != nil {
		return Null(), err
	}
	str = str.WithAccess(ReadOnly)
	if err := s.strings.Push(str); err != nil {
		return Null(), err
	}
	if s.nameStrings == nil {
		s.nameStrings = make(map[uint32]Object)
	}
	s.nameStrings[name.NameID()] = str
	return str, nil
}

// EachNameString calls fn with every materialized name string, oldest first.
func (s *Space) EachNameString(fn func(str Object) error) error {
	return s.strings.ForEach(func(_ int, str Object) error { return fn(str) })
}

// own checks that a composite o may be resolved against this space.
func (s *Space) own(o Object, t Type) error {
	if o.typ != t {
		return fault.Errorf(fault.TypeCheck, "expected %v, got %v", t, o.typ)
	}
	if o.Bank() != s.Bank {
		return fault.Errorf(fault.Unregistered, "%v object given to %v memory", o.Bank(), s.Bank)
	}
	return nil
}

// CheckStore enforces that a global composite never refers to a local one.
func CheckStore(target, v Object) error {
	if target.Bank() == Global && v.Composite() && v.Bank() == Local {
		return fault.Errorf(fault.InvalidAccess, "local %v stored into global %v", v.typ, target.typ)
	}
	return nil
}

func (s *Space) load(ent mem.Entity, i uint32) (Object, error) {
	b, err := s.Mem.Get(ent, i*Size, Size)
	if err != nil {
		return Null(), err
	}
	return decode(b), nil
}

func (s *Space) store(ent mem.Entity, i uint32, o Object) error {
	var buf [Size]byte
	o.encode(buf[:])
	return s.Mem.Put(ent, i*Size, buf[:])
}
