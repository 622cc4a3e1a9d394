package mem

import (
	"fmt"
	"math"

	"github.com/jcorbin/gopost/internal/fault"
)

// DefaultPageSize provides a default for Arena.PageSize.
const DefaultPageSize = 4096

// Arena provides a single growable byte buffer with a used mark.
// Growth happens in PageSize multiples, zero filling the new region, and
// always replaces the underlying buffer: any slice taken before a growth is
// stale afterwards, which Generation allows callers to detect.
type Arena struct {
	// PageSize specifies the growth step; zero means DefaultPageSize.
	PageSize uint32

	// Limit specifies a capacity past which any growth results in an error.
	Limit uint32

	buf  []byte
	used uint32
	gen  uint32
}

// LimitError indicates that an arena operation exceeded a limit.
type LimitError struct {
	Addr uint64
	Op   string
}

func (lim LimitError) Error() string {
	return fmt.Sprintf("memory limit exceeded by %v @%v", lim.Op, lim.Addr)
}

// Unwrap classifies all limit errors as VMError.
func (lim LimitError) Unwrap() error { return fault.VMError }

// Init discards any prior contents, preallocating at least capacityHint bytes.
func (a *Arena) Init(capacityHint uint32) {
	a.buf = nil
	a.used = 0
	a.gen++
	if capacityHint > 0 {
		a.buf = make([]byte, a.roundUp(uint64(capacityHint)))
	}
}

// Used returns the high-water mark of allocated bytes.
func (a *Arena) Used() uint32 { return a.used }

// Cap returns the current buffer capacity.
func (a *Arena) Cap() uint32 { return uint32(len(a.buf)) }

// Generation returns a counter that changes every time the buffer is
// replaced by growth.
func (a *Arena) Generation() uint32 { return a.gen }

// AllocBytes bump-allocates n bytes, returning their offset.
func (a *Arena) AllocBytes(n uint32) (uint32, error) {
	addr := a.used
	end := uint64(addr) + uint64(n)
	if end > uint64(len(a.buf)) {
		if err := a.grow(end); err != nil {
			return 0, err
		}
	}
	a.used = uint32(end)
	return addr, nil
}

// Bytes returns the slice of allocated bytes [addr, addr+n); the slice is
// only valid until the next growth.
func (a *Arena) Bytes(addr, n uint32) ([]byte, error) {
	end := uint64(addr) + uint64(n)
	if end > uint64(a.used) {
		return nil, fault.Errorf(fault.RangeCheck, "arena bytes [%v, %v) past used %v", addr, end, a.used)
	}
	return a.buf[addr:end:end], nil
}

func (a *Arena) grow(need uint64) error {
	size := a.roundUp(need)
	if lim := uint64(a.Limit); lim != 0 && size > lim {
		if need > lim {
			return LimitError{need, "alloc"}
		}
		size = lim
	}
	if size > math.MaxUint32 {
		return LimitError{need, "alloc"}
	}
	buf := make([]byte, size)
	copy(buf, a.buf[:a.used])
	a.buf = buf
	a.gen++
	return nil
}

func (a *Arena) roundUp(n uint64) uint64 {
	ps := uint64(a.PageSize)
	if ps == 0 {
		ps = DefaultPageSize
	}
	return (n + ps - 1) / ps * ps
}
