package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/gopost/internal/fault"
	"github.com/jcorbin/gopost/internal/logio"
	"github.com/jcorbin/gopost/internal/object"
)

type rtTestCases []rtTestCase

func (rtts rtTestCases) run(t *testing.T) {
	{
		var exclusive []rtTestCase
		for _, rtt := range rtts {
			if rtt.exclusive {
				exclusive = append(exclusive, rtt)
			}
		}
		if len(exclusive) > 0 {
			rtts = exclusive
		}
	}
	for _, rtt := range rtts {
		if !t.Run(rtt.name, rtt.run) {
			return
		}
	}
}

func rtTest(name string) (rtt rtTestCase) {
	rtt.name = name
	return rtt
}

type rtTestCase struct {
	name    string
	opts    []RuntimeOption
	src     []string
	expect  []func(t *testing.T, c *Context)
	wantErr fault.Kind
	wantOut *string
	timeout time.Duration

	exclusive bool
}

func (rtt rtTestCase) exclusiveTest() rtTestCase {
	rtt.exclusive = true
	return rtt
}

func (rtt rtTestCase) withOptions(opts ...RuntimeOption) rtTestCase {
	rtt.opts = append(rtt.opts, opts...)
	return rtt
}

func (rtt rtTestCase) withTimeout(timeout time.Duration) rtTestCase {
	rtt.timeout = timeout
	return rtt
}

// do appends source to run, each in its own ExecSource call as REPL lines
// would be.
func (rtt rtTestCase) do(src ...string) rtTestCase {
	rtt.src = append(rtt.src, src...)
	return rtt
}

func (rtt rtTestCase) expectThat(fn func(t *testing.T, c *Context)) rtTestCase {
	rtt.expect = append(rtt.expect, fn)
	return rtt
}

// expectStack checks the operand stack, bottom first, as == would print it.
func (rtt rtTestCase) expectStack(want ...string) rtTestCase {
	return rtt.expectThat(func(t *testing.T, c *Context) {
		got := []string{}
		for _, o := range c.Operands() {
			got = append(got, c.syntax(o))
		}
		if want == nil {
			want = []string{}
		}
		assert.Equal(t, want, got, "expected operand stack")
	})
}

func (rtt rtTestCase) expectOutput(out string) rtTestCase {
	rtt.wantOut = &out
	return rtt
}

func (rtt rtTestCase) expectError(kind fault.Kind) rtTestCase {
	rtt.wantErr = kind
	return rtt
}

func (rtt rtTestCase) run(t *testing.T) {
	timeout := rtt.timeout
	if timeout == 0 {
		timeout = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var out strings.Builder
	rt := New(append([]RuntimeOption{
		WithOutput(&out),
		WithLogf(t.Logf),
	}, rtt.opts...)...)
	c, err := rt.NewContext()
	require.NoError(t, err)

	defer func() {
		if t.Failed() {
			lw := &logio.Writer{Logf: t.Logf, Prefix: "dump: "}
			ctxDumper{c: c, out: lw, entities: true}.dump()
			lw.Sync()
		}
	}()

	var runErr error
	for _, src := range rtt.src {
		if runErr = c.ExecSource(ctx, []byte(src)); runErr != nil {
			break
		}
	}
	if rtt.wantErr != fault.None {
		require.Error(t, runErr, "expected %v error", rtt.wantErr)
		assert.Equal(t, rtt.wantErr, fault.KindOf(runErr), "unexpected error: %v", runErr)
	} else {
		require.NoError(t, runErr, "unexpected run error")
	}
	if rtt.wantOut != nil {
		assert.Equal(t, *rtt.wantOut, out.String(), "expected output")
	}
	for _, expect := range rtt.expect {
		expect(t, c)
	}
}

func TestRuntime_Run(t *testing.T) {
	var out strings.Builder
	rt := New(WithOutput(&out))
	require.NoError(t, rt.Run(context.Background(), []byte(`(hello) print ( world) print`)))
	assert.Equal(t, "hello world", out.String())

	err := rt.Run(context.Background(), []byte(`1 0 div`))
	assert.Equal(t, fault.UndefinedResult, fault.KindOf(err))
}

func TestRuntime_operatorTable(t *testing.T) {
	rt := New()
	nop := sig(func(*Context, []object.Object) (Status, error) { return StatusOK, nil })

	_, err := rt.register("add", nop)
	assert.Equal(t, fault.Unregistered, fault.KindOf(err), "expected duplicate registration to fail")

	_, err = rt.register("nosigs")
	assert.Equal(t, fault.Unregistered, fault.KindOf(err))

	rt.maxOps = len(rt.ops) + 1
	_, err = rt.register("extra", nop)
	require.NoError(t, err)
	_, err = rt.register("overflow", nop)
	assert.Equal(t, fault.Unregistered, fault.KindOf(err), "expected full operator table")

	c, err := rt.NewContext()
	require.NoError(t, err)
	require.NoError(t, c.ExecSource(context.Background(), []byte(`extra`)))
}

func TestRuntime_contextLimit(t *testing.T) {
	rt := New(WithMaxContexts(2))
	c, err := rt.NewContext()
	require.NoError(t, err)
	_, err = c.ForkSharedAll()
	require.NoError(t, err)
	_, err = c.ForkSharedGlobal()
	assert.Equal(t, fault.LimitCheck, fault.KindOf(err))
	assert.Len(t, rt.Contexts(), 2)
}

func TestRuntime_metrics(t *testing.T) {
	rt := New()
	c, err := rt.NewContext()
	require.NoError(t, err)
	require.NoError(t, c.ExecSource(context.Background(), []byte(`10 array pop collect`)))

	families, err := rt.Registry().Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			if g := m.GetGauge(); g != nil {
				values[fam.GetName()] = g.GetValue()
			} else if c := m.GetCounter(); c != nil {
				values[fam.GetName()] = c.GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, values["gopost_contexts"])
	assert.GreaterOrEqual(t, values["gopost_collections_total"], 1.0)
	assert.GreaterOrEqual(t, values["gopost_swept_total"], 1.0)
	assert.Greater(t, values["gopost_arena_used_bytes"], 0.0)

	st := rt.Stats()
	assert.Equal(t, 1, st.Contexts)
	assert.Len(t, st.Memories, 2)
	assert.Equal(t, len(rt.ops), st.Operators)
}
