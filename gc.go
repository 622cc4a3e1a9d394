package main

import (
	"github.com/jcorbin/gopost/internal/mem"
	"github.com/jcorbin/gopost/internal/object"
	"github.com/jcorbin/gopost/internal/stack"
)

// contextTracer provides the roots of a memory: the stacks and permanent
// dictionaries of every context using it.
//
// Global objects never refer to local ones, so a local collection marks
// only within the local memory. A global collection must also follow paths
// that pass through local objects, so it traces every context sharing the
// global memory with their local memories unmarked first; only the global
// memory is swept.
type contextTracer struct {
	rt   *Runtime
	bank object.Bank
}

func (tr contextTracer) Trace(m *mem.Memory) error {
	if tr.bank == object.Global {
		return tr.traceGlobal(m)
	}
	for _, c := range tr.rt.Contexts() {
		if c.local.Mem != m {
			continue
		}
		mk := object.Marker{Local: c.local}
		if err := c.markRoots(&mk); err != nil {
			return err
		}
	}
	return nil
}

func (tr contextTracer) traceGlobal(m *mem.Memory) error {
	var sharing []*Context
	unmarked := make(map[*mem.Memory]bool)
	for _, c := range tr.rt.Contexts() {
		if c.global.Mem != m {
			continue
		}
		sharing = append(sharing, c)
		if lm := c.local.Mem; !unmarked[lm] {
			lm.Unmark()
			defer lm.CacheShadows()()
			unmarked[lm] = true
		}
	}
	tr.rt.logf("@@", "global trace contexts:%v locals:%v", len(sharing), len(unmarked))
	for _, c := range sharing {
		mk := object.Marker{Local: c.local, Global: c.global}
		if err := c.markRoots(&mk); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) markRoots(mk *object.Marker) error {
	for _, st := range []*stack.Stack[object.Object]{&c.os, &c.es, &c.ds, &c.hs} {
		if err := mk.MarkAll(st.Slice()); err != nil {
			return err
		}
	}
	if err := mk.MarkAll([]object.Object{c.systemdict, c.errordict, c.userdict}); err != nil {
		return err
	}
	return mk.MarkNameStrings()
}
