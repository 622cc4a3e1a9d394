package object

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/gopost/internal/fault"
	"github.com/jcorbin/gopost/internal/mem"
)

func Test_Dict(t *testing.T) {
	s := newSpace(Local)
	d, err := s.MakeDict(4)
	require.NoError(t, err)

	foo := s.Names.Intern("foo")
	require.NoError(t, s.DictPut(d, foo, Int(1)))
	require.NoError(t, s.DictPut(d, Int(2), Int(2)))

	str, err := s.MakeString([]byte("foo"))
	require.NoError(t, err)
	v, err := s.DictGet(d, str)
	require.NoError(t, err)
	assert.Equal(t, Int(1), v, "string keys match names")
	v, err = s.DictGet(d, foo.Cvx())
	require.NoError(t, err)
	assert.Equal(t, Int(1), v, "executable names match literal ones")
	v, err = s.DictGet(d, Real(2))
	require.NoError(t, err)
	assert.Equal(t, Int(2), v, "integral reals match integers")

	require.NoError(t, s.DictPut(d, foo, Int(3)))
	n, err := s.DictLength(d)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "redefinition must not add an entry")

	_, err = s.DictGet(d, s.Names.Intern("bar"))
	assert.ErrorIs(t, err, fault.Undefined)
	_, ok, err := s.DictLookup(d, Real(2.5))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, s.DictPut(d, Null(), Int(0)), fault.TypeCheck)
	assert.ErrorIs(t, s.DictPut(d.WithAccess(ReadOnly), foo, Int(0)), fault.InvalidAccess)
	_, err = s.DictGet(d.WithAccess(NoAccess), foo)
	assert.ErrorIs(t, err, fault.InvalidAccess)

	require.NoError(t, s.DictUndef(d, str))
	known, err := s.DictKnown(d, foo)
	require.NoError(t, err)
	assert.False(t, known)
	require.NoError(t, s.DictUndef(d, foo), "undef of an absent key is harmless")
	n, err = s.DictLength(d)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func Test_Dict_growth(t *testing.T) {
	s := newSpace(Local)
	d, err := s.MakeDict(0)
	require.NoError(t, err)
	alias := d

	for i := 0; i < 100; i++ {
		require.NoError(t, s.DictPut(d, Int(int64(i)), Int(int64(i*i))))
	}
	capacity, err := s.DictCapacity(alias)
	require.NoError(t, err)
	assert.Equal(t, 128, capacity)
	n, err := s.DictLength(alias)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	for i := 0; i < 100; i++ {
		v, err := s.DictGet(alias, Int(int64(i)))
		require.NoError(t, err, "key %v must survive growth", i)
		assert.Equal(t, Int(int64(i*i)), v)
	}
	assert.Equal(t, d.Entity(), alias.Entity())
	assert.NotZero(t, s.Mem.Stats().Free, "grow must free its temporaries")

	seen := map[int64]bool{}
	require.NoError(t, s.DictForEach(d, func(k, v Object) error {
		seen[k.Int()] = true
		return nil
	}))
	assert.Len(t, seen, 100)
}

// probeChainsIntact checks that for every entry, each slot from the key's
// home slot up to the entry is occupied, so that find reaches it.
func probeChainsIntact(t *testing.T, s *Space, d Object) {
	capacity, used, err := s.header(d.ent)
	require.NoError(t, err)
	size := capacity + 1
	var count uint32
	for slot := uint32(0); slot < size; slot++ {
		k, err := s.load(d.ent, keyIndex(slot))
		require.NoError(t, err)
		if k.IsNull() {
			continue
		}
		count++
		for i := hash(k) % size; i != slot; i = (i + 1) % size {
			gap, err := s.load(d.ent, keyIndex(i))
			require.NoError(t, err)
			require.False(t, gap.IsNull(), "key %v in slot %v has a gap at %v", k, slot, i)
		}
	}
	assert.Equal(t, used, count, "used count must match occupied slots")
}

func Test_Dict_undef(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 20; round++ {
		t.Run(fmt.Sprintf("round %v", round), func(t *testing.T) {
			s := newSpace(Local)
			d, err := s.MakeDict(16)
			require.NoError(t, err)
			live := map[int64]bool{}
			for op := 0; op < 200; op++ {
				k := int64(rng.Intn(24))
				if rng.Intn(3) == 0 {
					require.NoError(t, s.DictUndef(d, Int(k)))
					delete(live, k)
				} else {
					require.NoError(t, s.DictPut(d, Int(k), Int(-k)))
					live[k] = true
				}
			}
			probeChainsIntact(t, s, d)
			for k := int64(0); k < 24; k++ {
				v, ok, err := s.DictLookup(d, Int(k))
				require.NoError(t, err)
				if assert.Equal(t, live[k], ok, "key %v", k) && ok {
					assert.Equal(t, Int(-k), v)
				}
			}
		})
	}
}

func Test_Dict_saveRestore(t *testing.T) {
	s := newSpace(Local)
	d, err := s.MakeDict(1)
	require.NoError(t, err)
	keep := s.Names.Intern("keep")
	require.NoError(t, s.DictPut(d, keep, Int(1)))

	level, err := s.Mem.Save()
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		require.NoError(t, s.DictPut(d, Int(int64(i)), Bool(true)), "growth after save")
	}
	require.NoError(t, s.DictPut(d, keep, Int(2)))
	require.NoError(t, s.DictUndef(d, keep))

	require.NoError(t, s.Mem.RestoreTo(level))
	v, err := s.DictGet(d, keep)
	require.NoError(t, err)
	assert.Equal(t, Int(1), v)
	known, err := s.DictKnown(d, Int(3))
	require.NoError(t, err)
	assert.False(t, known, "keys defined after save are absent after restore")
	capacity, err := s.DictCapacity(d)
	require.NoError(t, err)
	assert.Equal(t, 1, capacity)
}

func Test_Marker(t *testing.T) {
	s := newSpace(Local)
	var roots []Object
	s.Mem.Tracer = mem.TracerFunc(func(m *mem.Memory) error {
		mk := Marker{Local: s}
		if err := mk.MarkAll(roots); err != nil {
			return err
		}
		return mk.MarkNameStrings()
	})

	// root array -> dict -> {name string key, array value}
	root, err := s.MakeArray(1)
	require.NoError(t, err)
	roots = append(roots, root)
	d, err := s.MakeDict(2)
	require.NoError(t, err)
	require.NoError(t, s.ArrayPut(root, 0, d))
	inner, err := s.MakeArray(1)
	require.NoError(t, err)
	require.NoError(t, s.DictPut(d, Int(1), inner))
	name, err := s.NameString(s.Names.Intern("x"))
	require.NoError(t, err)

	garbage, err := s.MakeString([]byte("gone"))
	require.NoError(t, err)

	swept, err := s.Mem.Collect()
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
	_, err = s.Mem.SizeOf(garbage.Entity())
	assert.ErrorIs(t, err, fault.Unregistered)
	for _, o := range []Object{root, d, inner, name} {
		_, err := s.Mem.SizeOf(o.Entity())
		assert.NoError(t, err, "%v must survive", o)
	}

	// an element only held by a save shadow survives until restore
	_, err = s.Mem.Save()
	require.NoError(t, err)
	require.NoError(t, s.DictUndef(d, Int(1)))
	swept, err = s.Mem.Collect()
	require.NoError(t, err)
	assert.Equal(t, 0, swept)
	require.NoError(t, s.Mem.Restore())
	v, err := s.DictGet(d, Int(1))
	require.NoError(t, err)
	assert.True(t, Same(inner, v))
}
