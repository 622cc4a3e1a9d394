package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/gopost/internal/fault"
	"github.com/jcorbin/gopost/internal/mem"
)

func newSpace(bank Bank) *Space {
	var m mem.Memory
	m.Init(0)
	return NewSpace(&m, &Names{}, bank)
}

func Test_Object_attributes(t *testing.T) {
	o := Int(42)
	assert.Equal(t, IntegerType, o.Type())
	assert.Equal(t, Unlimited, o.Access(), "objects start unlimited")
	assert.False(t, o.Executable())

	x := o.Cvx()
	assert.True(t, x.Executable())
	assert.False(t, x.Cvlit().Executable())
	assert.Equal(t, int64(42), x.Int())

	for _, a := range []Access{NoAccess, ExecuteOnly, ReadOnly, Unlimited} {
		r := x.WithAccess(a)
		assert.Equal(t, a, r.Access())
		assert.True(t, r.Executable(), "access must not disturb the exec flag")
	}
	assert.False(t, o.WithAccess(ReadOnly).Writable())
	assert.True(t, o.WithAccess(ReadOnly).Readable())
	assert.False(t, o.WithAccess(ExecuteOnly).Readable())
	assert.True(t, o.WithAccess(ExecuteOnly).Runnable())
	assert.False(t, o.WithAccess(NoAccess).Runnable())

	assert.True(t, Null().IsNull())
	assert.True(t, Operator(3).Executable(), "operators are executable")
	assert.Equal(t, "2.0", Real(2).String())
	assert.Equal(t, "-7", Int(-7).String())

	n, ok := Real(1.5).Number()
	assert.True(t, ok)
	assert.Equal(t, 1.5, n)
	_, ok = Bool(true).Number()
	assert.False(t, ok)
}

func Test_Array(t *testing.T) {
	s := newSpace(Local)

	arr, err := s.MakeArray(3)
	require.NoError(t, err)
	assert.Equal(t, 3, arr.Len())
	v, err := s.ArrayGet(arr, 2)
	require.NoError(t, err)
	assert.True(t, v.IsNull(), "new arrays hold nulls")

	for i := 0; i < 3; i++ {
		require.NoError(t, s.ArrayPut(arr, i, Int(int64(10*i))))
	}
	_, err = s.ArrayGet(arr, 3)
	assert.ErrorIs(t, err, fault.RangeCheck)
	assert.ErrorIs(t, s.ArrayPut(arr, -1, Null()), fault.RangeCheck)

	sub, err := GetInterval(arr, 1, 2)
	require.NoError(t, err)
	require.NoError(t, s.ArrayPut(sub, 0, Bool(true)))
	v, err = s.ArrayGet(arr, 1)
	require.NoError(t, err)
	assert.Equal(t, Bool(true), v, "intervals share storage")
	_, err = GetInterval(arr, 2, 2)
	assert.ErrorIs(t, err, fault.RangeCheck)

	vals, err := s.ArrayContents(arr)
	require.NoError(t, err)
	assert.Equal(t, []Object{Int(0), Bool(true), Int(20)}, vals)

	ro := arr.WithAccess(ReadOnly)
	assert.ErrorIs(t, s.ArrayPut(ro, 0, Null()), fault.InvalidAccess)
	_, err = s.ArrayGet(arr.WithAccess(ExecuteOnly), 0)
	assert.ErrorIs(t, err, fault.InvalidAccess)
	_, err = s.Elem(arr.WithAccess(ExecuteOnly), 0)
	assert.NoError(t, err, "the interpreter reads execute-only procedures")

	_, err = s.ArrayGet(Int(1), 0)
	assert.ErrorIs(t, err, fault.TypeCheck)
	_, err = s.MakeArray(-1)
	assert.ErrorIs(t, err, fault.RangeCheck)
}

func Test_Banks(t *testing.T) {
	local := newSpace(Local)
	global := NewSpace(&mem.Memory{}, local.Names, Global)

	la, err := local.MakeArray(1)
	require.NoError(t, err)
	ga, err := global.MakeArray(1)
	require.NoError(t, err)
	assert.Equal(t, Global, ga.Bank())

	assert.ErrorIs(t, global.ArrayPut(ga, 0, la), fault.InvalidAccess,
		"global may not refer to local")
	assert.NoError(t, local.ArrayPut(la, 0, ga), "local may refer to global")
	assert.NoError(t, global.ArrayPut(ga, 0, Int(1)), "simple values are bankless")

	_, err = local.ArrayGet(ga, 0)
	assert.ErrorIs(t, err, fault.Unregistered, "objects resolve only against their own bank")

	gd, err := global.MakeDict(1)
	require.NoError(t, err)
	assert.ErrorIs(t, global.DictPut(gd, Int(1), la), fault.InvalidAccess)
}

func Test_String(t *testing.T) {
	s := newSpace(Local)
	str, err := s.MakeString([]byte("hello"))
	require.NoError(t, err)
	c, err := s.StringGet(str, 1)
	require.NoError(t, err)
	assert.Equal(t, byte('e'), c)

	require.NoError(t, s.StringPut(str, 0, 'j'))
	sub, err := GetInterval(str, 1, 3)
	require.NoError(t, err)
	require.NoError(t, s.StringWrite(sub, 1, []byte("LL")))
	b, err := s.StringBytes(str)
	require.NoError(t, err)
	assert.Equal(t, "jeLLo", string(b))

	assert.ErrorIs(t, s.StringWrite(sub, 2, []byte("xx")), fault.RangeCheck)
	assert.ErrorIs(t, s.StringPut(str.WithAccess(ReadOnly), 0, 'x'), fault.InvalidAccess)

	blank, err := s.MakeStringN(4, []byte("ab"))
	require.NoError(t, err)
	b, err = s.StringBytes(blank)
	require.NoError(t, err)
	assert.Equal(t, []byte{'a', 'b', 0, 0}, b)

	empty, err := s.MakeString(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func Test_Names(t *testing.T) {
	s := newSpace(Local)
	foo := s.Names.Intern("foo")
	assert.Equal(t, foo, s.Names.Intern("foo"))
	assert.NotEqual(t, foo, s.Names.Intern("bar"))
	assert.Equal(t, "foo", s.Names.Text(foo))
	assert.Equal(t, "foo", s.Names.Text(foo.Cvx()))
	assert.Equal(t, 2, s.Names.Len())
	_, ok := s.Names.Lookup("baz")
	assert.False(t, ok)

	str, err := s.NameString(foo)
	require.NoError(t, err)
	assert.Equal(t, ReadOnly, str.Access())
	again, err := s.NameString(foo.Cvx())
	require.NoError(t, err)
	assert.True(t, Same(str, again), "name strings are materialized once")

	var roots []Object
	require.NoError(t, s.EachNameString(func(o Object) error {
		roots = append(roots, o)
		return nil
	}))
	assert.Len(t, roots, 1)
}
