// Package object implements the runtime's tagged values and the composite
// data structures (arrays, strings and dictionaries) that live as entities
// within a mem.Memory.
//
// Objects are plain values copied by assignment. Composite objects refer to
// their storage only by entity id, offset and count, so any number of them
// may share (views of) one entity, and no object is ever invalidated by
// arena growth, dictionary growth, collection or restore.
package object

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jcorbin/gopost/internal/mem"
)

// Type is the variant selector of an Object.
type Type uint8

// Types; the zero Type is NullType so that zeroed storage reads back as null.
const (
	NullType Type = iota
	InvalidType
	MarkType
	IntegerType
	RealType
	BooleanType
	NameType
	OperatorType
	SaveType
	ContextType
	ArrayType
	DictType
	StringType

	numTypes
)

var typeNames = [numTypes]string{
	NullType:     "nulltype",
	InvalidType:  "invalidtype",
	MarkType:     "marktype",
	IntegerType:  "integertype",
	RealType:     "realtype",
	BooleanType:  "booleantype",
	NameType:     "nametype",
	OperatorType: "operatortype",
	SaveType:     "savetype",
	ContextType:  "contexttype",
	ArrayType:    "arraytype",
	DictType:     "dicttype",
	StringType:   "stringtype",
}

func (t Type) String() string {
	if t < numTypes {
		return typeNames[t]
	}
	return fmt.Sprintf("object.Type(%d)", uint8(t))
}

// Composite returns true for types whose values refer to an entity.
func (t Type) Composite() bool {
	return t == ArrayType || t == DictType || t == StringType
}

// Access is an object's access right, ordered from least to most permissive.
type Access uint8

// Access rights.
const (
	NoAccess Access = iota
	ExecuteOnly
	ReadOnly
	Unlimited
)

func (a Access) String() string {
	switch a {
	case NoAccess:
		return "noaccess"
	case ExecuteOnly:
		return "executeonly"
	case ReadOnly:
		return "readonly"
	case Unlimited:
		return "unlimited"
	}
	return fmt.Sprintf("object.Access(%d)", uint8(a))
}

// Bank selects which memory, local or global, a composite object's entity
// must be resolved against.
type Bank uint8

// Banks.
const (
	Local Bank = iota
	Global
)

func (b Bank) String() string {
	if b == Global {
		return "global"
	}
	return "local"
}

// flags packs:
//
//	bit 0     executable
//	bits 1-2  access restriction (0 is unlimited, 3 is noaccess)
//	bit 3     global bank
type flags uint8

const (
	flagExec       flags = 1 << 0
	restrictShift        = 1
	restrictMask   flags = 3 << restrictShift
	flagGlobal     flags = 1 << 3
)

// Size is the number of bytes an Object occupies when stored in an entity.
const Size = 16

// Object is a fixed-width tagged value.
type Object struct {
	typ   Type
	flags flags
	ent   mem.Entity
	off   uint32
	n     uint32
	val   uint64
}

// Null returns the null object.
func Null() Object { return Object{} }

// Invalid returns an object marking an uninitialized or unusable value.
func Invalid() Object { return Object{typ: InvalidType} }

// Mark returns a mark object.
func Mark() Object { return Object{typ: MarkType} }

// Int returns an integer object.
func Int(i int64) Object { return Object{typ: IntegerType, val: uint64(i)} }

// Real returns a real object.
func Real(r float64) Object { return Object{typ: RealType, val: math.Float64bits(r)} }

// Bool returns a boolean object.
func Bool(b bool) Object {
	o := Object{typ: BooleanType}
	if b {
		o.val = 1
	}
	return o
}

// Operator returns an executable operator object for an operator table index.
func Operator(code int) Object {
	return Object{typ: OperatorType, flags: flagExec, val: uint64(code)}
}

// Save returns a save object recording a save level.
func Save(level int) Object { return Object{typ: SaveType, val: uint64(level)} }

// Context returns an object naming an execution context.
func Context(id int) Object { return Object{typ: ContextType, val: uint64(id)} }

func nameObject(id uint32) Object { return Object{typ: NameType, val: uint64(id)} }

func composite(t Type, bank Bank, ent mem.Entity, off, n uint32) Object {
	o := Object{typ: t, ent: ent, off: off, n: n}
	if bank == Global {
		o.flags |= flagGlobal
	}
	return o
}

// Type returns the variant of o.
func (o Object) Type() Type { return o.typ }

// IsNull returns true for the null object.
func (o Object) IsNull() bool { return o.typ == NullType }

// Composite returns true if o refers to an entity.
func (o Object) Composite() bool { return o.typ.Composite() }

// Executable returns true if o carries the executable attribute.
func (o Object) Executable() bool { return o.flags&flagExec != 0 }

// Cvx returns o with the executable attribute.
func (o Object) Cvx() Object { o.flags |= flagExec; return o }

// Cvlit returns o with the literal attribute.
func (o Object) Cvlit() Object { o.flags &^= flagExec; return o }

// Access returns o's access right.
func (o Object) Access() Access {
	return Unlimited - Access((o.flags&restrictMask)>>restrictShift)
}

// WithAccess returns o with its access right set to a.
func (o Object) WithAccess(a Access) Object {
	if a > Unlimited {
		a = Unlimited
	}
	o.flags = o.flags&^restrictMask | flags(Unlimited-a)<<restrictShift
	return o
}

// Readable means o's contents may be read by operators like get.
func (o Object) Readable() bool { return o.Access() >= ReadOnly }

// Writable means o's contents may be changed by operators like put.
func (o Object) Writable() bool { return o.Access() == Unlimited }

// Runnable means o may be executed.
func (o Object) Runnable() bool { return o.Access() >= ExecuteOnly }

// Bank returns the memory bank of a composite object.
func (o Object) Bank() Bank {
	if o.flags&flagGlobal != 0 {
		return Global
	}
	return Local
}

// Entity returns the entity a composite object refers to.
func (o Object) Entity() mem.Entity { return o.ent }

// Offset returns a composite's element offset within its entity.
func (o Object) Offset() int { return int(o.off) }

// Len returns a composite's element count.
func (o Object) Len() int { return int(o.n) }

// Int returns an integer object's value.
func (o Object) Int() int64 { return int64(o.val) }

// Real returns a real object's value.
func (o Object) Real() float64 { return math.Float64frombits(o.val) }

// Bool returns a boolean object's value.
func (o Object) Bool() bool { return o.val != 0 }

// NameID returns a name object's interned id.
func (o Object) NameID() uint32 { return uint32(o.val) }

// OpCode returns an operator object's table index.
func (o Object) OpCode() int { return int(o.val) }

// Level returns a save object's level.
func (o Object) Level() int { return int(o.val) }

// ContextID returns a context object's id.
func (o Object) ContextID() int { return int(o.val) }

// Number returns o's value as a float64; ok is false for non-numbers.
func (o Object) Number() (f float64, ok bool) {
	switch o.typ {
	case IntegerType:
		return float64(o.Int()), true
	case RealType:
		return o.Real(), true
	}
	return 0, false
}

// Same returns true if a and b are the identical value: equal simple values,
// or composites sharing the same entity, offset and count; attributes other
// than bank are ignored.
func Same(a, b Object) bool {
	if a.typ != b.typ {
		return false
	}
	if a.Composite() {
		return a.ent == b.ent && a.off == b.off && a.n == b.n && a.Bank() == b.Bank()
	}
	return a.val == b.val
}

func (o Object) String() string {
	var s string
	switch o.typ {
	case NullType:
		s = "null"
	case MarkType:
		s = "-mark-"
	case IntegerType:
		s = strconv.FormatInt(o.Int(), 10)
	case RealType:
		s = strconv.FormatFloat(o.Real(), 'g', -1, 64)
		if !strings.ContainsAny(s, ".eIN") {
			s += ".0"
		}
	case BooleanType:
		s = strconv.FormatBool(o.Bool())
	case NameType:
		s = fmt.Sprintf("name#%d", o.NameID())
	case OperatorType:
		s = fmt.Sprintf("op#%d", o.OpCode())
	case SaveType:
		s = fmt.Sprintf("-save:%d-", o.Level())
	case ContextType:
		s = fmt.Sprintf("-context:%d-", o.ContextID())
	case ArrayType, DictType, StringType:
		s = fmt.Sprintf("%v@%v:%d[%d+%d]", o.typ, o.Bank(), uint32(o.ent), o.off, o.n)
	default:
		s = o.typ.String()
	}
	if o.Executable() && !o.Composite() && o.typ != OperatorType && o.typ != NameType {
		s += "(x)"
	}
	return s
}

func (o Object) encode(b []byte) {
	_ = b[Size-1]
	b[0] = byte(o.typ)
	b[1] = byte(o.flags)
	b[2], b[3] = 0, 0
	if o.Composite() {
		binary.LittleEndian.PutUint32(b[4:], uint32(o.ent))
		binary.LittleEndian.PutUint32(b[8:], o.off)
		binary.LittleEndian.PutUint32(b[12:], o.n)
	} else {
		binary.LittleEndian.PutUint32(b[4:], 0)
		binary.LittleEndian.PutUint64(b[8:], o.val)
	}
}

func decode(b []byte) Object {
	_ = b[Size-1]
	o := Object{typ: Type(b[0]), flags: flags(b[1])}
	if o.Composite() {
		o.ent = mem.Entity(binary.LittleEndian.Uint32(b[4:]))
		o.off = binary.LittleEndian.Uint32(b[8:])
		o.n = binary.LittleEndian.Uint32(b[12:])
	} else {
		o.val = binary.LittleEndian.Uint64(b[8:])
	}
	return o
}
