package main

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/jcorbin/gopost/internal/mem"
	"github.com/jcorbin/gopost/internal/object"
	"github.com/jcorbin/gopost/internal/stack"
)

type ctxDumper struct {
	c   *Context
	out io.Writer

	// entities, if set, also lists every entity of both memories
	entities bool
}

func (dump ctxDumper) dump() {
	c := dump.c
	fmt.Fprintf(dump.out, "# Context %v\n", c.id)
	fmt.Fprintf(dump.out, "  state: %v global: %v seed: %v\n", c.state, c.vmGlobal, c.seed)
	if c.err != nil {
		fmt.Fprintf(dump.out, "  error: %v\n", c.err)
	}
	dump.dumpStack("operand", &c.os)
	dump.dumpStack("exec", &c.es)
	dump.dumpStack("dict", &c.ds)
	dump.dumpMem("local", c.local.Mem)
	dump.dumpMem("global", c.global.Mem)
}

func (dump ctxDumper) dumpStack(name string, st *stack.Stack[object.Object]) {
	var buf lineBuffer
	fmt.Fprintf(&buf, "  %v stack (%v):", name, st.Count())
	st.ForEach(func(_ int, o object.Object) error {
		buf.WriteByte(' ')
		buf.WriteString(dump.c.syntax(o))
		return nil
	})
	buf.WriteTo(dump.out)
}

func (dump ctxDumper) dumpMem(name string, m *mem.Memory) {
	st := m.Stats()
	fmt.Fprintf(dump.out, "# %v memory\n", name)
	fmt.Fprintf(dump.out, "  arena: %v/%v entities: %v free: %v save: %v\n",
		st.ArenaUsed, st.ArenaCap, st.Entities, st.Free, st.SaveLevel)
	fmt.Fprintf(dump.out, "  allocs: %v reuses: %v collections: %v swept: %v\n",
		st.Allocs, st.Reuses, st.Collections, st.Swept)
	if !dump.entities {
		return
	}
	width := len(strconv.Itoa(m.Entities()))
	var buf lineBuffer
	for ent := mem.Entity(1); int(ent) < m.Entities(); ent++ {
		addr, err := m.AddressOf(ent)
		if err != nil {
			fmt.Fprintf(&buf, "  #% *v %v", width, ent, err)
			buf.WriteTo(dump.out)
			continue
		}
		size, _ := m.SizeOf(ent)
		fmt.Fprintf(&buf, "  #% *v @%v +%v", width, ent, addr, size)
		if marked, _ := m.Marked(ent); marked {
			buf.WriteString(" marked")
		}
		buf.WriteTo(dump.out)
	}
}

// lineBuffer accumulates one line of output, writing it with a trailing
// newline.
type lineBuffer struct{ bytes.Buffer }

func (buf *lineBuffer) WriteTo(w io.Writer) (int64, error) {
	buf.WriteByte('\n')
	return buf.Buffer.WriteTo(w)
}
