package mem_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/gopost/internal/fault"
	"github.com/jcorbin/gopost/internal/logio"
	"github.com/jcorbin/gopost/internal/mem"
	"github.com/jcorbin/gopost/internal/panicerr"
)

func Test_Arena(t *testing.T) {
	var a mem.Arena
	a.PageSize = 16
	a.Init(0)
	require.Equal(t, uint32(0), a.Cap())

	gen := a.Generation()
	addr, err := a.AllocBytes(5)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), addr)
	assert.Equal(t, uint32(16), a.Cap(), "must grow by whole pages")
	assert.NotEqual(t, gen, a.Generation(), "growth must change generation")

	gen = a.Generation()
	addr, err = a.AllocBytes(11)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), addr)
	assert.Equal(t, gen, a.Generation(), "no growth within capacity")

	addr, err = a.AllocBytes(20)
	require.NoError(t, err)
	assert.Equal(t, uint32(16), addr)
	assert.Equal(t, uint32(48), a.Cap())
	b, err := a.Bytes(16, 20)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 20), b, "new region must be zero filled")

	_, err = a.Bytes(40, 10)
	assert.ErrorIs(t, err, fault.RangeCheck)

	a.Limit = 64
	_, err = a.AllocBytes(30)
	var lim mem.LimitError
	require.ErrorAs(t, err, &lim)
	assert.ErrorIs(t, err, fault.VMError)
	assert.Equal(t, uint32(36), a.Used(), "failed alloc must not move the used mark")
}

func Test_Memory(t *testing.T) {
	for _, tc := range []memTestCase{
		memTest("entities",
			"init", func(t *testing.T, m *mem.Memory) {
				m.PageSize = 64
				m.Init(0)
				assert.Equal(t, 1, m.Entities(), "null entity must be reserved")
				size, err := m.SizeOf(mem.Null)
				require.NoError(t, err)
				assert.Equal(t, uint32(0), size)
			},

			"alloc and put", func(t *testing.T, m *mem.Memory) {
				ent, err := m.AllocEntity(4)
				require.NoError(t, err)
				require.Equal(t, mem.Entity(1), ent)
				require.NoError(t, m.Put(ent, 1, []byte{1, 2, 3}))
				expectBytes(t, m, ent, 0, 1, 2, 3)
				assert.ErrorIs(t, m.Put(ent, 2, []byte{9, 9, 9}), fault.RangeCheck)
			},

			"growth keeps ids stable", func(t *testing.T, m *mem.Memory) {
				before, err := m.AddressOf(1)
				require.NoError(t, err)
				gen := m.Generation()
				for i := 0; i < 40; i++ {
					_, err := m.AllocEntity(16)
					require.NoError(t, err)
				}
				require.NotEqual(t, gen, m.Generation(), "expected arena growth")
				after, err := m.AddressOf(1)
				require.NoError(t, err)
				assert.Equal(t, before, after)
				expectBytes(t, m, 1, 0, 1, 2, 3)
			},

			"directory chaining", func(t *testing.T, m *mem.Memory) {
				var last mem.Entity
				for i := 0; i < 2*mem.DirectorySize; i++ {
					ent, err := m.AllocEntity(1)
					require.NoError(t, err)
					require.NoError(t, m.Put(ent, 0, []byte{byte(i)}))
					last = ent
				}
				require.Greater(t, int(last), 2*mem.DirectorySize)
				expectBytes(t, m, last, byte((2*mem.DirectorySize-1)&0xff))
				_, err := m.SizeOf(last + 1)
				assert.ErrorIs(t, err, fault.Unregistered)
			},

			"zero size", func(t *testing.T, m *mem.Memory) {
				ent, err := m.AllocEntity(0)
				require.NoError(t, err)
				require.NoError(t, m.Free(ent))
				_, err = m.SizeOf(ent)
				assert.NoError(t, err, "zero size entities are never freed")
				assert.Equal(t, 0, m.Stats().Free)
			},
		),

		memTest("exchange",
			"init", func(t *testing.T, m *mem.Memory) {
				a, err := m.AllocEntity(2)
				require.NoError(t, err)
				b, err := m.AllocEntity(3)
				require.NoError(t, err)
				require.NoError(t, m.Put(a, 0, []byte{1, 1}))
				require.NoError(t, m.Put(b, 0, []byte{2, 2, 2}))
			},

			"swap storage", func(t *testing.T, m *mem.Memory) {
				require.NoError(t, m.Exchange(1, 2))
				expectBytes(t, m, 1, 2, 2, 2)
				expectBytes(t, m, 2, 1, 1)
			},
		),

		memTest("borrow",
			"view", func(t *testing.T, m *mem.Memory) {
				ent, err := m.AllocEntity(3)
				require.NoError(t, err)
				require.NoError(t, m.Borrow(ent, func(b []byte) error {
					b[1] = 7
					return nil
				}))
				expectBytes(t, m, ent, 0, 7, 0)
			},

			"allocation is forbidden", func(t *testing.T, m *mem.Memory) {
				err := m.Borrow(1, func(b []byte) error {
					_, err := m.AllocEntity(1)
					return err
				})
				assert.ErrorIs(t, err, fault.Unregistered)
				_, err = m.AllocEntity(1)
				assert.NoError(t, err, "allocation must work again after borrow")
			},
		),

		memTest("free list",
			"reuse first fit", func(t *testing.T, m *mem.Memory) {
				small, err := m.AllocEntity(4)
				require.NoError(t, err)
				big, err := m.AllocEntity(32)
				require.NoError(t, err)
				require.NoError(t, m.Put(big, 0, []byte{9, 9, 9, 9}))
				require.NoError(t, m.Free(small))
				require.NoError(t, m.Free(big))

				_, err = m.SizeOf(big)
				assert.ErrorIs(t, err, fault.Unregistered, "freed entity must not resolve")

				ent, err := m.GCAlloc(8)
				require.NoError(t, err)
				assert.Equal(t, big, ent, "expected first fit to skip the small entity")
				expectBytes(t, m, ent, 0, 0, 0, 0, 0, 0, 0, 0)
				assert.Equal(t, 2, m.Stats().Free, "small entity plus the split remainder")
			},

			"remainder is reusable", func(t *testing.T, m *mem.Memory) {
				before := m.Entities()
				ent, err := m.GCAlloc(24)
				require.NoError(t, err)
				assert.Equal(t, before, m.Entities(), "must reuse the split remainder")
				assert.Equal(t, mem.Entity(3), ent)
				size, err := m.SizeOf(ent)
				require.NoError(t, err)
				assert.Equal(t, uint32(24), size)
			},
		),
	} {
		t.Run(tc.name, tc.run)
	}
}

func expectBytes(t *testing.T, m *mem.Memory, ent mem.Entity, want ...byte) {
	size, err := m.SizeOf(ent)
	require.NoError(t, err, "must size entity %v", ent)
	require.Equal(t, uint32(len(want)), size, "expected entity %v size", ent)
	got, err := m.Get(ent, 0, size)
	require.NoError(t, err, "must get entity %v", ent)
	require.Equal(t, want, got, "expected entity %v bytes", ent)
}

func memTest(name string, args ...interface{}) (tc memTestCase) {
	tc.name = name
	for i := 0; i < len(args); i++ {
		var step memTestStep
		step.name = args[i].(string)
		if i++; i >= len(args) {
			panic("memTest: missing function argument after name")
		}
		step.f = args[i].(func(t *testing.T, m *mem.Memory))
		tc.steps = append(tc.steps, step)
	}
	return tc
}

type memTestCase struct {
	name  string
	steps []memTestStep
}

type memTestStep struct {
	name string
	f    func(t *testing.T, m *mem.Memory)
}

func (tc memTestCase) run(t *testing.T) {
	var m mem.Memory
	defer func() {
		if t.Failed() {
			t.Logf("stats: %+v", m.Stats())
		}
	}()
	for _, step := range tc.steps {
		step := step
		if !t.Run(step.name, func(t *testing.T) {
			lw := &logio.Writer{Logf: t.Logf}
			defer lw.Close()
			m.Logf = func(mess string, args ...interface{}) {
				fmt.Fprintf(lw, mess+"\n", args...)
			}
			if err := panicerr.Recover(t.Name(), func() error {
				step.f(t, &m)
				return nil
			}); err != nil {
				t.Logf("%+v", err)
				t.Fail()
			}
		}) {
			break
		}
	}
}
