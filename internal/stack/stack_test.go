package stack_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/gopost/internal/fault"
	"github.com/jcorbin/gopost/internal/stack"
)

func Test_Stack_order(t *testing.T) {
	for _, segSize := range []int{1, 2, 3, 64} {
		var s stack.Stack[int]
		s.SegmentSize = segSize

		for i := 1; i <= 10; i++ {
			require.NoError(t, s.Push(i))
			top, err := s.TopDown(0)
			require.NoError(t, err)
			require.Equal(t, i, top, "topdown(0) must be the latest push")
			bot, err := s.BottomUp(0)
			require.NoError(t, err)
			require.Equal(t, 1, bot, "bottomup(0) must be the oldest push")
		}
		require.Equal(t, 10, s.Count())
		require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, s.Slice())

		for i := 10; i >= 1; i-- {
			v, err := s.Pop()
			require.NoError(t, err)
			require.Equal(t, i, v, "pops must reverse pushes (segment size %v)", segSize)
		}
		_, err := s.Pop()
		require.ErrorIs(t, err, fault.StackUnderflow)

		// segments are reused after draining
		require.NoError(t, s.Push(42))
		v, err := s.TopDown(0)
		require.NoError(t, err)
		require.Equal(t, 42, v)
	}
}

func Test_Stack_replace(t *testing.T) {
	s := stack.Stack[string]{SegmentSize: 2}
	for _, v := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, s.Push(v))
	}
	require.NoError(t, s.SetTopDown(1, "D"))
	require.NoError(t, s.SetBottomUp(1, "B"))
	assert.Equal(t, []string{"a", "B", "c", "D", "e"}, s.Slice())

	v, err := s.TopDown(4)
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	_, err = s.TopDown(5)
	assert.ErrorIs(t, err, fault.StackUnderflow)
	_, err = s.BottomUp(-1)
	assert.ErrorIs(t, err, fault.StackUnderflow)
}

func Test_Stack_limits(t *testing.T) {
	s := stack.Stack[int]{
		SegmentSize: 2,
		Limit:       3,
		Overflow:    fault.DictStackOverflow,
		Underflow:   fault.DictStackUnderflow,
	}
	require.NoError(t, s.Push(1))
	require.NoError(t, s.Push(2))
	require.NoError(t, s.Push(3))
	require.ErrorIs(t, s.Push(4), fault.DictStackOverflow)
	assert.Equal(t, 3, s.Count())

	s.Clear()
	assert.Equal(t, 0, s.Count())
	_, err := s.Pop()
	assert.ErrorIs(t, err, fault.DictStackUnderflow)
}

func Test_Stack_ForEach(t *testing.T) {
	var s stack.Stack[int]
	s.SegmentSize = 3
	for i := 0; i < 7; i++ {
		require.NoError(t, s.Push(i * i))
	}
	var got []int
	require.NoError(t, s.ForEach(func(i, v int) error {
		require.Equal(t, i*i, v)
		got = append(got, i)
		return nil
	}))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, got)

	stop := fault.Errorf(fault.LimitCheck, "stop")
	n := 0
	err := s.ForEach(func(i, v int) error {
		n++
		if i == 2 {
			return stop
		}
		return nil
	})
	assert.Equal(t, stop, err)
	assert.Equal(t, 3, n)
}
