package main

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jcorbin/gopost/internal/fault"
	"github.com/jcorbin/gopost/internal/flushio"
	"github.com/jcorbin/gopost/internal/mem"
	"github.com/jcorbin/gopost/internal/object"
)

// Runtime owns all state shared between execution contexts: the context
// table, the operator table, interned names, output, and memory settings.
type Runtime struct {
	logging
	out flushio.WriteFlusher

	names   object.Names
	ops     []operator
	opCodes map[string]int
	maxOps  int

	contexts    []*Context
	maxContexts int
	nextID      int
	cursor      int

	pageSize     uint32
	memLimit     uint32
	collectEvery int

	registry *prometheus.Registry
	memories []*mem.Memory

	// special operators recognized by the control flow machinery
	stopOp    int
	stoppedOp int
	loopOps   map[int]bool
}

// Default table sizes.
const (
	DefaultMaxContexts  = 16
	DefaultMaxOperators = 512

	// DefaultCollectEvery is the number of free list misses after which a
	// memory forces a collection; WithCollectEvery(0) disables this.
	DefaultCollectEvery = 256
)

func (rt *Runtime) init() {
	if rt.out == nil {
		rt.out = flushio.NewWriteFlusher(nil)
	}
	if rt.maxContexts == 0 {
		rt.maxContexts = DefaultMaxContexts
	}
	if rt.maxOps == 0 {
		rt.maxOps = DefaultMaxOperators
	}
	if rt.registry == nil {
		rt.registry = prometheus.NewRegistry()
	}
	if rt.ops == nil {
		if err := registerBuiltins(rt); err != nil {
			panic(err)
		}
		rt.registerMetrics()
	}
}

// register appends an operator to the operator table.
func (rt *Runtime) register(name string, sigs ...signature) (int, error) {
	if _, defined := rt.opCodes[name]; defined {
		return 0, fault.Errorf(fault.Unregistered, "operator %q registered twice", name)
	}
	if len(rt.ops) >= rt.maxOps {
		return 0, fault.Errorf(fault.Unregistered, "operator table full registering %q", name)
	}
	if len(sigs) == 0 {
		return 0, fault.Errorf(fault.Unregistered, "operator %q has no signature", name)
	}
	for _, sig := range sigs {
		if len(sig.in) > holdLimit {
			return 0, fault.Errorf(fault.LimitCheck, "operator %q arity %v exceeds hold stack", name, len(sig.in))
		}
	}
	if rt.opCodes == nil {
		rt.opCodes = make(map[string]int)
	}
	code := len(rt.ops)
	rt.ops = append(rt.ops, operator{name: name, sigs: sigs})
	rt.opCodes[name] = code
	return code, nil
}

func (rt *Runtime) operator(code int) (*operator, error) {
	if code < 0 || code >= len(rt.ops) {
		return nil, fault.Errorf(fault.Unregistered, "operator code %v", code)
	}
	return &rt.ops[code], nil
}

// opCode returns the code of a registered operator, panicking if absent;
// it is only used for operators registered by registerBuiltins.
func (rt *Runtime) opCode(name string) int {
	code, ok := rt.opCodes[name]
	if !ok {
		panic(fault.Errorf(fault.Unregistered, "no operator %q", name))
	}
	return code
}

// newMemory creates a memory configured per the runtime's options, collected
// by tracing every context that uses it.
func (rt *Runtime) newMemory(bank object.Bank) *mem.Memory {
	m := &mem.Memory{}
	m.PageSize = rt.pageSize
	m.Limit = rt.memLimit
	m.CollectEvery = rt.collectEvery
	m.Init(0)
	m.Tracer = contextTracer{rt, bank}
	if rt.logfn != nil {
		mark := "@"
		if bank == object.Global {
			mark = "@@"
		}
		m.Logf = func(mess string, args ...interface{}) { rt.logf(mark, mess, args...) }
	}
	rt.memories = append(rt.memories, m)
	return m
}

// addContext assigns c an id and a slot in the context table.
func (rt *Runtime) addContext(c *Context) error {
	slot := -1
	for i, other := range rt.contexts {
		if other == nil {
			slot = i
			break
		}
	}
	if slot < 0 && len(rt.contexts) >= rt.maxContexts && rt.reap() {
		return rt.addContext(c)
	}
	if slot < 0 {
		if len(rt.contexts) >= rt.maxContexts {
			rt.pruneMemories()
			return fault.Errorf(fault.LimitCheck, "context table full (%v)", rt.maxContexts)
		}
		slot = len(rt.contexts)
		rt.contexts = append(rt.contexts, nil)
	}
	rt.nextID++
	c.id = rt.nextID
	rt.contexts[slot] = c
	return nil
}

func (rt *Runtime) removeContext(c *Context) {
	for i, other := range rt.contexts {
		if other == c {
			rt.contexts[i] = nil
		}
	}
	rt.pruneMemories()
}

// reap releases every exited forked context that no other context in the
// table could still join, i.e. whose local memory nothing else uses.
// It returns true if any slot was freed.
func (rt *Runtime) reap() (freed bool) {
	for again := true; again; {
		again = false
		for _, c := range rt.Contexts() {
			if c.forked && c.state == exited && !rt.localShared(c) {
				c.logf("-", "reaped")
				c.Release()
				again, freed = true, true
			}
		}
	}
	return freed
}

func (rt *Runtime) localShared(c *Context) bool {
	for _, other := range rt.contexts {
		if other != nil && other != c && other.local == c.local {
			return true
		}
	}
	return false
}

// pruneMemories forgets memories no longer used by any context.
func (rt *Runtime) pruneMemories() {
	var live []*mem.Memory
	for _, m := range rt.memories {
		if rt.memoryUsed(m) {
			live = append(live, m)
		}
	}
	rt.memories = live
}

func (rt *Runtime) memoryUsed(m *mem.Memory) bool {
	for _, c := range rt.contexts {
		if c != nil && (c.local.Mem == m || c.global.Mem == m) {
			return true
		}
	}
	return false
}

// Context returns the context with the given id, if it is still in the table.
func (rt *Runtime) Context(id int) (*Context, bool) {
	for _, c := range rt.contexts {
		if c != nil && c.id == id {
			return c, true
		}
	}
	return nil, false
}

// Contexts returns every context in the table.
func (rt *Runtime) Contexts() []*Context {
	var cs []*Context
	for _, c := range rt.contexts {
		if c != nil {
			cs = append(cs, c)
		}
	}
	return cs
}

// Stats sums the statistics of every memory in use.
func (rt *Runtime) Stats() RuntimeStats {
	var st RuntimeStats
	for _, m := range rt.memories {
		ms := m.Stats()
		st.Memories = append(st.Memories, ms)
		st.Total.add(ms)
	}
	st.Contexts = len(rt.Contexts())
	st.Names = rt.names.Len()
	st.Operators = len(rt.ops)
	return st
}

// RuntimeStats summarizes a runtime for the -stats dump and metrics.
type RuntimeStats struct {
	Contexts  int         `json:"contexts"`
	Names     int         `json:"names"`
	Operators int         `json:"operators"`
	Total     memTotals   `json:"total"`
	Memories  []mem.Stats `json:"memories"`
}

type memTotals struct {
	ArenaUsed   uint64 `json:"arena_used"`
	Entities    uint64 `json:"entities"`
	Free        uint64 `json:"free"`
	Allocs      uint64 `json:"allocs"`
	Reuses      uint64 `json:"reuses"`
	Collections uint64 `json:"collections"`
	Swept       uint64 `json:"swept"`
	Saves       uint64 `json:"saves"`
	Restores    uint64 `json:"restores"`
}

func (t *memTotals) add(st mem.Stats) {
	t.ArenaUsed += uint64(st.ArenaUsed)
	t.Entities += uint64(st.Entities)
	t.Free += uint64(st.Free)
	t.Allocs += st.Allocs
	t.Reuses += st.Reuses
	t.Collections += st.Collections
	t.Swept += st.Swept
	t.Saves += st.Saves
	t.Restores += st.Restores
}

// Registry returns the runtime's metrics registry.
func (rt *Runtime) Registry() *prometheus.Registry { return rt.registry }

func (rt *Runtime) registerMetrics() {
	total := func(f func(memTotals) uint64) func() float64 {
		return func() float64 { return float64(f(rt.Stats().Total)) }
	}
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "gopost", Name: "contexts",
			Help: "Number of execution contexts in the context table.",
		}, func() float64 { return float64(len(rt.Contexts())) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "gopost", Name: "arena_used_bytes",
			Help: "Bytes allocated across all arenas.",
		}, total(func(t memTotals) uint64 { return t.ArenaUsed })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "gopost", Name: "entities",
			Help: "Entity ids assigned across all memories.",
		}, total(func(t memTotals) uint64 { return t.Entities })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "gopost", Name: "free_entities",
			Help: "Entities on free lists.",
		}, total(func(t memTotals) uint64 { return t.Free })),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "gopost", Name: "allocations_total",
			Help: "Fresh entity allocations.",
		}, total(func(t memTotals) uint64 { return t.Allocs })),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "gopost", Name: "reuses_total",
			Help: "Allocations satisfied from a free list.",
		}, total(func(t memTotals) uint64 { return t.Reuses })),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "gopost", Name: "collections_total",
			Help: "Garbage collection cycles.",
		}, total(func(t memTotals) uint64 { return t.Collections })),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "gopost", Name: "swept_total",
			Help: "Entities reclaimed by collection.",
		}, total(func(t memTotals) uint64 { return t.Swept })),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "gopost", Name: "restores_total",
			Help: "Save levels restored.",
		}, total(func(t memTotals) uint64 { return t.Restores })),
	}
	for _, col := range collectors {
		if err := rt.registry.Register(col); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}

// Close flushes output.
func (rt *Runtime) Close() error {
	if rt.out != nil {
		return rt.out.Flush()
	}
	return nil
}
