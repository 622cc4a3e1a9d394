package object

import (
	"encoding/binary"
	"math"

	"github.com/jcorbin/gopost/internal/fault"
	"github.com/jcorbin/gopost/internal/mem"
)

// A dictionary entity holds a one slot header {capacity, used} followed by
// capacity+1 key/value pairs; the spare pair guarantees an empty slot ends
// every probe chain. Empty slots have a null key.

func dictSize(capacity uint32) uint32 { return Size + (capacity+1)*2*Size }

// MaxDictCapacity bounds a dictionary's declared capacity.
const MaxDictCapacity = MaxLength

// MakeDict allocates an empty dictionary with room for capacity entries.
func (s *Space) MakeDict(capacity int) (Object, error) {
	if capacity < 0 {
		return Null(), fault.Errorf(fault.RangeCheck, "negative dict capacity %v", capacity)
	}
	if capacity > MaxDictCapacity {
		return Null(), fault.Errorf(fault.LimitCheck, "dict capacity %v exceeds %v", capacity, MaxDictCapacity)
	}
	ent, err := s.Mem.GCAlloc(dictSize(uint32(capacity)))
	if err != nil {
		return Null(), err
	}
	if err := s.writeHeader(ent, uint32(capacity), 0); err != nil {
		return Null(), err
	}
	return composite(DictType, s.Bank, ent, 0, 0), nil
}

func (s *Space) header(ent mem.Entity) (capacity, used uint32, err error) {
	b, err := s.Mem.Get(ent, 0, 8)
	if err != nil {
		return 0, 0, err
	}
	return binary.LittleEndian.Uint32(b), binary.LittleEndian.Uint32(b[4:]), nil
}

func (s *Space) writeHeader(ent mem.Entity, capacity, used uint32) error {
	var b [8]byte
	binary.LittleEndian.PutUint32(b[:], capacity)
	binary.LittleEndian.PutUint32(b[4:], used)
	return s.Mem.Put(ent, 0, b[:])
}

// slot i's key is object 1+2i of the entity, its value 2+2i.
func keyIndex(slot uint32) uint32 { return 1 + 2*slot }
func valIndex(slot uint32) uint32 { return 2 + 2*slot }

// normalize maps a key to its canonical form: strings become names, and
// reals with an integral value become integers.
func (s *Space) normalize(key Object) (Object, error) {
	switch key.typ {
	case NullType:
		return key, fault.Errorf(fault.TypeCheck, "null dictionary key")
	case StringType:
		b, err := s.stringText(key)
		if err != nil {
			return key, err
		}
		return s.Names.Intern(string(b)), nil
	case RealType:
		if r := key.Real(); r == math.Trunc(r) && r >= math.MinInt64 && r < math.MaxInt64 {
			return Int(int64(r)), nil
		}
	}
	return key, nil
}

// stringText reads a string key; keys from the other bank must be converted
// to names by the caller, which holds both spaces.
func (s *Space) stringText(str Object) ([]byte, error) {
	if str.Bank() != s.Bank {
		return nil, fault.Errorf(fault.InvalidAccess, "%v string key for %v dictionary", str.Bank(), s.Bank)
	}
	return s.StringBytes(str)
}

func keyEqual(a, b Object) bool { return Same(a, b) }

func hash(key Object) uint32 {
	h := uint32(key.typ) * 0x9e3779b1
	if key.Composite() {
		h ^= uint32(key.ent) * 0x85ebca6b
		h ^= key.off * 0xc2b2ae35
		h ^= key.n * 0x27d4eb2f
		h ^= uint32(key.Bank())
	} else {
		h ^= uint32(key.val) * 0x85ebca6b
		h ^= uint32(key.val>>32) * 0xc2b2ae35
	}
	h ^= h >> 16
	h *= 0x7feb352d
	h ^= h >> 15
	return h
}

// find probes for key, returning its slot if found, or else the first empty
// slot of its chain; slot is -1 only if the table has no empty slot.
func (s *Space) find(ent mem.Entity, capacity uint32, key Object) (slot int, found bool, err error) {
	size := capacity + 1
	start := hash(key) % size
	for i := start; ; {
		k, err := s.load(ent, keyIndex(i))
		if err != nil {
			return -1, false, err
		}
		if k.IsNull() {
			return int(i), false, nil
		}
		if keyEqual(k, key) {
			return int(i), true, nil
		}
		if i = (i + 1) % size; i == start {
			return -1, false, nil
		}
	}
}

func (s *Space) checkDict(d Object) error { return s.own(d, DictType) }

// DictPut associates key with v in a writable dictionary, growing it when
// full.
func (s *Space) DictPut(d, key, v Object) error {
	if err := s.checkDict(d); err != nil {
		return err
	}
	if !d.Writable() {
		return fault.Errorf(fault.InvalidAccess, "put into %v dict", d.Access())
	}
	key, err := s.normalize(key)
	if err != nil {
		return err
	}
	if err := CheckStore(d, key); err != nil {
		return err
	}
	if err := CheckStore(d, v); err != nil {
		return err
	}
	if err := s.Mem.Stash(d.ent); err != nil {
		return err
	}
	for {
		capacity, used, err := s.header(d.ent)
		if err != nil {
			return err
		}
		slot, found, err := s.find(d.ent, capacity, key)
		if err != nil {
			return err
		}
		if !found {
			if used >= capacity || slot < 0 {
				if err := s.grow(d.ent, capacity); err != nil {
					return err
				}
				continue
			}
			if err := s.store(d.ent, keyIndex(uint32(slot)), key); err != nil {
				return err
			}
			if err := s.writeHeader(d.ent, capacity, used+1); err != nil {
				return err
			}
		}
		return s.store(d.ent, valIndex(uint32(slot)), v)
	}
}

// grow doubles a dictionary's capacity by rehashing into a temporary entity,
// exchanging storage with it, and freeing the temporary (now holding the old
// storage). The dictionary keeps its entity id throughout.
func (s *Space) grow(ent mem.Entity, capacity uint32) error {
	newCap := 2 * capacity
	if newCap < 1 {
		newCap = 1
	}
	if newCap > MaxDictCapacity {
		if capacity >= MaxDictCapacity {
			return fault.Errorf(fault.LimitCheck, "dict capacity exceeds %v", MaxDictCapacity)
		}
		newCap = MaxDictCapacity
	}
	tmp, err := s.Mem.GCAlloc(dictSize(newCap))
	if err != nil {
		return err
	}
	var used uint32
	for slot := uint32(0); slot <= capacity; slot++ {
		k, err := s.load(ent, keyIndex(slot))
		if err != nil {
			return err
		}
		if k.IsNull() {
			continue
		}
		v, err := s.load(ent, valIndex(slot))
		if err != nil {
			return err
		}
		to, _, err := s.find(tmp, newCap, k)
		if err != nil {
			return err
		}
		if err := s.store(tmp, keyIndex(uint32(to)), k); err != nil {
			return err
		}
		if err := s.store(tmp, valIndex(uint32(to)), v); err != nil {
			return err
		}
		used++
	}
	if err := s.writeHeader(tmp, newCap, used); err != nil {
		return err
	}
	if err := s.Mem.Exchange(ent, tmp); err != nil {
		return err
	}
	return s.Mem.Free(tmp)
}

// DictGet returns the value associated with key in a readable dictionary.
func (s *Space) DictGet(d, key Object) (Object, error) {
	v, ok, err := s.DictLookup(d, key)
	if err == nil && !ok {
		err = fault.Errorf(fault.Undefined, "key %v", key)
	}
	return v, err
}

// DictLookup is like DictGet, but reports an absent key by ok rather than
// error.
func (s *Space) DictLookup(d, key Object) (v Object, ok bool, err error) {
	if err := s.checkDict(d); err != nil {
		return Null(), false, err
	}
	if !d.Readable() {
		return Null(), false, fault.Errorf(fault.InvalidAccess, "get from %v dict", d.Access())
	}
	if key, err = s.normalize(key); err != nil {
		return Null(), false, err
	}
	capacity, _, err := s.header(d.ent)
	if err != nil {
		return Null(), false, err
	}
	slot, found, err := s.find(d.ent, capacity, key)
	if err != nil || !found {
		return Null(), false, err
	}
	v, err = s.load(d.ent, valIndex(uint32(slot)))
	return v, err == nil, err
}

// DictKnown returns true if key is defined in d.
func (s *Space) DictKnown(d, key Object) (bool, error) {
	_, ok, err := s.DictLookup(d, key)
	return ok, err
}

// DictUndef removes key from a writable dictionary; removing an absent key
// is not an error.
//
// Deletion leaves no tombstone: each following entry of the probe chain is
// shifted back into the vacated slot unless its home slot lies cyclically
// within (hole, entry], repeating until an empty slot ends the chain.
func (s *Space) DictUndef(d, key Object) error {
	if err := s.checkDict(d); err != nil {
		return err
	}
	if !d.Writable() {
		return fault.Errorf(fault.InvalidAccess, "undef from %v dict", d.Access())
	}
	key, err := s.normalize(key)
	if err != nil {
		return err
	}
	capacity, used, err := s.header(d.ent)
	if err != nil {
		return err
	}
	slot, found, err := s.find(d.ent, capacity, key)
	if err != nil || !found {
		return err
	}
	if err := s.Mem.Stash(d.ent); err != nil {
		return err
	}

	size := capacity + 1
	hole := uint32(slot)
	if err := s.clearSlot(d.ent, hole); err != nil {
		return err
	}
	for j := (hole + 1) % size; ; j = (j + 1) % size {
		k, err := s.load(d.ent, keyIndex(j))
		if err != nil {
			return err
		}
		if k.IsNull() {
			break
		}
		if home := hash(k) % size; cyclicWithin(hole, home, j) {
			continue
		}
		v, err := s.load(d.ent, valIndex(j))
		if err != nil {
			return err
		}
		if err := s.store(d.ent, keyIndex(hole), k); err != nil {
			return err
		}
		if err := s.store(d.ent, valIndex(hole), v); err != nil {
			return err
		}
		if err := s.clearSlot(d.ent, j); err != nil {
			return err
		}
		hole = j
	}
	return s.writeHeader(d.ent, capacity, used-1)
}

// cyclicWithin returns true if h lies in the cyclic interval (i, j].
func cyclicWithin(i, h, j uint32) bool {
	if i <= j {
		return i < h && h <= j
	}
	return i < h || h <= j
}

func (s *Space) clearSlot(ent mem.Entity, slot uint32) error {
	if err := s.store(ent, keyIndex(slot), Null()); err != nil {
		return err
	}
	return s.store(ent, valIndex(slot), Null())
}

// DictLength returns the number of entries in d.
func (s *Space) DictLength(d Object) (int, error) {
	if err := s.checkDict(d); err != nil {
		return 0, err
	}
	_, used, err := s.header(d.ent)
	return int(used), err
}

// DictCapacity returns the number of entries d can hold before growing.
func (s *Space) DictCapacity(d Object) (int, error) {
	if err := s.checkDict(d); err != nil {
		return 0, err
	}
	capacity, _, err := s.header(d.ent)
	return int(capacity), err
}

// DictNext returns the first entry at or after slot; next is the slot to
// resume from, and ok is false once no entries remain.
func (s *Space) DictNext(d Object, slot int) (key, v Object, next int, ok bool, err error) {
	if err := s.checkDict(d); err != nil {
		return Null(), Null(), 0, false, err
	}
	capacity, _, err := s.header(d.ent)
	if err != nil {
		return Null(), Null(), 0, false, err
	}
	for i := uint32(slot); slot >= 0 && i <= capacity; i++ {
		k, err := s.load(d.ent, keyIndex(i))
		if err != nil {
			return Null(), Null(), 0, false, err
		}
		if k.IsNull() {
			continue
		}
		v, err := s.load(d.ent, valIndex(i))
		if err != nil {
			return Null(), Null(), 0, false, err
		}
		return k, v, int(i) + 1, true, nil
	}
	return Null(), Null(), int(capacity) + 1, false, nil
}

// DictForEach calls fn with every entry of d in slot order.
func (s *Space) DictForEach(d Object, fn func(key, v Object) error) error {
	for slot := 0; ; {
		k, v, next, ok, err := s.DictNext(d, slot)
		if err != nil || !ok {
			return err
		}
		if err := fn(k, v); err != nil {
			return err
		}
		slot = next
	}
}
