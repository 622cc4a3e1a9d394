package object

import (
	"github.com/jcorbin/gopost/internal/fault"
	"github.com/jcorbin/gopost/internal/mem"
)

// MaxLength bounds the element count of arrays and strings.
const MaxLength = 65535

func checkLength(n int) error {
	if n < 0 {
		return fault.Errorf(fault.RangeCheck, "negative length %v", n)
	}
	if n > MaxLength {
		return fault.Errorf(fault.LimitCheck, "length %v exceeds %v", n, MaxLength)
	}
	return nil
}

// MakeArray allocates an array of n null elements.
func (s *Space) MakeArray(n int) (Object, error) {
	if err := checkLength(n); err != nil {
		return Null(), err
	}
	ent, err := s.Mem.GCAlloc(uint32(n) * Size)
	if err != nil {
		return Null(), err
	}
	return composite(ArrayType, s.Bank, ent, 0, uint32(n)), nil
}

// ArrayOf allocates an array holding vals.
func (s *Space) ArrayOf(vals ...Object) (Object, error) {
	arr, err := s.MakeArray(len(vals))
	if err != nil {
		return Null(), err
	}
	for i, v := range vals {
		if err := CheckStore(arr, v); err != nil {
			return Null(), err
		}
		if err := s.store(arr.ent, uint32(i), v); err != nil {
			return Null(), err
		}
	}
	return arr, nil
}

// ArrayGet returns element i of a readable array.
func (s *Space) ArrayGet(arr Object, i int) (Object, error) {
	if err := s.own(arr, ArrayType); err != nil {
		return Null(), err
	}
	if !arr.Readable() {
		return Null(), fault.Errorf(fault.InvalidAccess, "get from %v array", arr.Access())
	}
	return s.Elem(arr, i)
}

// Elem returns element i of an array regardless of its access; the
// interpreter reads execute-only procedures through it.
func (s *Space) Elem(arr Object, i int) (Object, error) {
	if i < 0 || i >= int(arr.n) {
		return Null(), fault.Errorf(fault.RangeCheck, "index %v out of [0, %v)", i, arr.n)
	}
	return s.load(arr.ent, arr.off+uint32(i))
}

// ArrayPut stores v as element i of a writable array.
func (s *Space) ArrayPut(arr Object, i int, v Object) error {
	if err := s.own(arr, ArrayType); err != nil {
		return err
	}
	if !arr.Writable() {
		return fault.Errorf(fault.InvalidAccess, "put into %v array", arr.Access())
	}
	if i < 0 || i >= int(arr.n) {
		return fault.Errorf(fault.RangeCheck, "index %v out of [0, %v)", i, arr.n)
	}
	if err := CheckStore(arr, v); err != nil {
		return err
	}
	if err := s.Mem.Stash(arr.ent); err != nil {
		return err
	}
	return s.store(arr.ent, arr.off+uint32(i), v)
}

// ArrayContents copies out every element of an array, ignoring access.
func (s *Space) ArrayContents(arr Object) ([]Object, error) {
	if err := s.own(arr, ArrayType); err != nil {
		return nil, err
	}
	vals := make([]Object, arr.n)
	for i := range vals {
		v, err := s.load(arr.ent, arr.off+uint32(i))
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

// GetInterval returns a view of n elements of an array or string starting at
// i; the view shares storage with o.
func GetInterval(o Object, i, n int) (Object, error) {
	if o.typ != ArrayType && o.typ != StringType {
		return Null(), fault.Errorf(fault.TypeCheck, "interval of %v", o.typ)
	}
	if i < 0 || n < 0 || i+n > int(o.n) {
		return Null(), fault.Errorf(fault.RangeCheck, "interval [%v, %v) out of [0, %v)", i, i+n, o.n)
	}
	o.off += uint32(i)
	o.n = uint32(n)
	return o, nil
}

// elems calls fn with every object stored in ent after its first skip.
func (s *Space) elems(ent mem.Entity, skip int, fn func(o Object)) error {
	return s.Mem.Borrow(ent, func(b []byte) error {
		if skip*Size < len(b) {
			b = b[skip*Size:]
		} else {
			b = nil
		}
		for len(b) >= Size {
			fn(decode(b[:Size]))
			b = b[Size:]
		}
		return nil
	})
}
