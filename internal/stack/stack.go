// Package stack implements a segmented LIFO, backing the interpreter's
// operand, exec, dict and hold stacks as well as the memory layer's save
// records and name strings.
package stack

import "github.com/jcorbin/gopost/internal/fault"

// DefaultSegmentSize provides a default for Stack.SegmentSize.
const DefaultSegmentSize = 64

// Stack is a linked chain of fixed-capacity segments.
// The zero value is an empty, unlimited stack that reports StackOverflow and
// StackUnderflow errors.
type Stack[T any] struct {
	// SegmentSize specifies the capacity of newly allocated segments.
	SegmentSize int

	// Limit, if non-zero, bounds Count; pushing past it is an Overflow error.
	Limit int

	// Overflow and Underflow specify the error kinds reported; they default
	// to fault.StackOverflow and fault.StackUnderflow.
	Overflow  fault.Kind
	Underflow fault.Kind

	head *segment[T]
	cur  *segment[T]
	n    int
}

type segment[T any] struct {
	prev, next *segment[T]
	top        int
	data       []T
}

// Count returns the number of elements on the stack.
func (s *Stack[T]) Count() int { return s.n }

// Push appends v, linking a new segment when the current one is full.
func (s *Stack[T]) Push(v T) error {
	if s.Limit != 0 && s.n >= s.Limit {
		return s.overflow()
	}
	if s.cur == nil {
		s.head = s.newSegment(nil)
		s.cur = s.head
	} else if s.cur.top == len(s.cur.data) {
		if s.cur.next == nil {
			s.cur.next = s.newSegment(s.cur)
		}
		s.cur = s.cur.next
	}
	s.cur.data[s.cur.top] = v
	s.cur.top++
	s.n++
	return nil
}

// Pop removes and returns the most recently pushed element.
func (s *Stack[T]) Pop() (v T, err error) {
	if s.n == 0 {
		return v, s.underflow()
	}
	s.cur.top--
	v = s.cur.data[s.cur.top]
	var zero T
	s.cur.data[s.cur.top] = zero
	s.n--
	if s.cur.top == 0 && s.cur.prev != nil {
		s.cur = s.cur.prev
	}
	return v, nil
}

// Clear drops every element, retaining allocated segments.
func (s *Stack[T]) Clear() {
	for seg := s.head; seg != nil; seg = seg.next {
		var zero T
		for i := 0; i < seg.top; i++ {
			seg.data[i] = zero
		}
		seg.top = 0
	}
	s.cur = s.head
	s.n = 0
}

// TopDown returns the i-th element counting from the most recent push.
func (s *Stack[T]) TopDown(i int) (T, error) {
	return s.BottomUp(s.n - 1 - i)
}

// SetTopDown replaces the i-th element counting from the most recent push.
func (s *Stack[T]) SetTopDown(i int, v T) error {
	return s.SetBottomUp(s.n-1-i, v)
}

// BottomUp returns the i-th element counting from the oldest surviving push.
func (s *Stack[T]) BottomUp(i int) (v T, err error) {
	seg, j, err := s.find(i)
	if err != nil {
		return v, err
	}
	return seg.data[j], nil
}

// SetBottomUp replaces the i-th element counting from the oldest surviving push.
func (s *Stack[T]) SetBottomUp(i int, v T) error {
	seg, j, err := s.find(i)
	if err == nil {
		seg.data[j] = v
	}
	return err
}

// ForEach calls fn with every element from the bottom up, stopping at the
// first error.
func (s *Stack[T]) ForEach(fn func(i int, v T) error) error {
	i := 0
	for seg := s.head; seg != nil && i < s.n; seg = seg.next {
		for j := 0; j < seg.top; j++ {
			if err := fn(i, seg.data[j]); err != nil {
				return err
			}
			i++
		}
	}
	return nil
}

// Slice returns a copy of the stack contents, oldest first.
func (s *Stack[T]) Slice() []T {
	vs := make([]T, 0, s.n)
	s.ForEach(func(_ int, v T) error {
		vs = append(vs, v)
		return nil
	})
	return vs
}

func (s *Stack[T]) find(i int) (*segment[T], int, error) {
	if i < 0 || i >= s.n {
		return nil, 0, s.underflow()
	}
	for seg := s.head; seg != nil; seg = seg.next {
		if i < seg.top {
			return seg, i, nil
		}
		i -= seg.top
	}
	return nil, 0, fault.Errorf(fault.Unregistered, "stack segment chain shorter than count")
}

func (s *Stack[T]) newSegment(prev *segment[T]) *segment[T] {
	size := s.SegmentSize
	if size <= 0 {
		size = DefaultSegmentSize
	}
	return &segment[T]{prev: prev, data: make([]T, size)}
}

func (s *Stack[T]) overflow() error {
	if s.Overflow != fault.None {
		return s.Overflow
	}
	return fault.StackOverflow
}

func (s *Stack[T]) underflow() error {
	if s.Underflow != fault.None {
		return s.Underflow
	}
	return fault.StackUnderflow
}
