package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/gopost/internal/object"
)

func TestCollect(t *testing.T) {
	rtTestCases{
		rtTest("local sweep").
			withOptions(WithCollectEvery(0)).
			do(`/keep [1 2] def 20 { 10 array pop } repeat collect keep`).
			expectStack("[1 2]").
			expectThat(func(t *testing.T, c *Context) {
				st := c.local.Mem.Stats()
				assert.Equal(t, uint64(1), st.Collections)
				assert.GreaterOrEqual(t, st.Swept, uint64(20), "expected the discarded arrays swept")
			}),
		rtTest("global reachable through local").
			withOptions(WithCollectEvery(0)).
			do(`true setglobal /g [1 (two) 3] def 5 { 4 array pop } repeat collect g`).
			expectStack("[1 (two) 3]").
			expectThat(func(t *testing.T, c *Context) {
				st := c.global.Mem.Stats()
				assert.Equal(t, uint64(1), st.Collections)
				assert.GreaterOrEqual(t, st.Swept, uint64(5))
				assert.Equal(t, uint64(0), c.local.Mem.Stats().Collections, "expected only global swept")
			}),
		rtTest("saved objects survive").
			do(`/s save def 3 array pop collect s restore 1 2 3 [ 4 5 ] length`).
			expectStack("1", "2", "3", "2"),
		rtTest("collected by default").
			do(`1 1 20000 { pop 10 array pop } for (ok)`).
			expectStack("(ok)").
			expectThat(func(t *testing.T, c *Context) {
				st := c.local.Mem.Stats()
				assert.NotZero(t, st.Collections, "expected allocation pressure to force a collection")
				assert.NotZero(t, st.Reuses, "expected swept arrays reused")
				assert.Less(t, st.Entities, uint32(5000), "expected the entity table bounded by reuse")
			}),
		rtTest("collect every").
			withOptions(WithCollectEvery(1)).
			do(`1 1 50 { array pop } for (ok)`).
			expectStack("(ok)"),
	}.run(t)
}

func TestCollect_sharedGlobal(t *testing.T) {
	c := newTestContext(t)
	other, err := c.ForkSharedGlobal()
	require.NoError(t, err)

	release := c.global.Mem.Inhibit()
	held, err := c.global.ArrayOf(object.Int(7))
	require.NoError(t, err)
	inner, err := c.global.ArrayOf(object.Int(8))
	require.NoError(t, err)
	_, err = c.global.ArrayOf(object.Int(9))
	require.NoError(t, err)
	release()

	// only reachable through the other context's private local memory
	release = other.local.Mem.Inhibit()
	box, err := other.local.ArrayOf(inner)
	require.NoError(t, err)
	release()
	require.NoError(t, other.Push(held, box))

	swept, err := c.global.Mem.Collect()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, swept, 1, "expected the unreferenced array swept")
	assert.Equal(t, "[7]", other.syntax(held))
	assert.Equal(t, "[[8]]", other.syntax(box))
}
