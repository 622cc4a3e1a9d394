package main

import (
	"fmt"

	"github.com/jcorbin/gopost/internal/fault"
	"github.com/jcorbin/gopost/internal/mem"
	"github.com/jcorbin/gopost/internal/object"
	"github.com/jcorbin/gopost/internal/stack"
)

// Stack limits.
const (
	operandLimit = 500
	execLimit    = 250
	dictLimit    = 20
	holdLimit    = 20
)

type contextState uint8

const (
	runnable contextState = iota
	blocked
	exited
)

func (st contextState) String() string {
	switch st {
	case runnable:
		return "runnable"
	case blocked:
		return "blocked"
	case exited:
		return "exited"
	}
	return fmt.Sprintf("contextState(%d)", uint8(st))
}

// Context is one thread of execution: its stacks, the local and global
// memory it allocates in, and its scheduling state. Contexts created by the
// fork methods may share either or both memories with their parent.
type Context struct {
	rt *Runtime
	id int

	local  *object.Space
	global *object.Space

	os stack.Stack[object.Object] // operands
	es stack.Stack[object.Object] // execution
	ds stack.Stack[object.Object] // dictionaries
	hs stack.Stack[object.Object] // operator arguments held during dispatch

	systemdict object.Object
	errordict  object.Object
	userdict   object.Object

	vmGlobal bool
	seed     uint32
	state    contextState
	quit     bool
	forked   bool
	err      error // last error raised
	pending  error // error being handled by the default handler
}

func (c *Context) initStacks() {
	c.os = stack.Stack[object.Object]{Limit: operandLimit,
		Overflow: fault.StackOverflow, Underflow: fault.StackUnderflow}
	c.es = stack.Stack[object.Object]{Limit: execLimit,
		Overflow: fault.ExecStackOverflow, Underflow: fault.StackUnderflow}
	c.ds = stack.Stack[object.Object]{Limit: dictLimit,
		Overflow: fault.DictStackOverflow, Underflow: fault.DictStackUnderflow}
	c.hs = stack.Stack[object.Object]{Limit: holdLimit,
		Overflow: fault.LimitCheck, Underflow: fault.StackUnderflow}
	c.seed = 1
}

// ID returns the context's id, as reported by currentcontext.
func (c *Context) ID() int { return c.id }

// Err returns the error, if any, that ended the context's last run.
func (c *Context) Err() error { return c.err }

// NewContext creates a context with fresh private local and global memories,
// bootstrapping systemdict and errordict in global memory and userdict in
// local memory.
func (rt *Runtime) NewContext() (*Context, error) {
	rt.init()
	c := &Context{rt: rt}
	c.initStacks()
	c.global = object.NewSpace(rt.newMemory(object.Global), &rt.names, object.Global)
	c.local = object.NewSpace(rt.newMemory(object.Local), &rt.names, object.Local)
	if err := rt.addContext(c); err != nil {
		return nil, err
	}
	if err := c.bootstrapGlobal(); err != nil {
		return nil, err
	}
	if err := c.bootstrapLocal(); err != nil {
		return nil, err
	}
	c.logf("+", "new context")
	return c, nil
}

func (c *Context) bootstrapGlobal() error {
	defer c.global.Mem.Inhibit()()
	sys, err := c.global.MakeDict(len(c.rt.ops) + 16)
	if err != nil {
		return err
	}
	for code, op := range c.rt.ops {
		if op.hidden() {
			continue
		}
		if err := c.global.DictPut(sys, c.rt.names.Intern(op.name), object.Operator(code)); err != nil {
			return err
		}
	}
	errd, err := c.global.MakeDict(len(fault.Kinds()))
	if err != nil {
		return err
	}
	stop := object.Operator(c.rt.stopOp)
	for _, kind := range fault.Kinds() {
		if err := c.global.DictPut(errd, c.rt.names.Intern(kind.String()), stop); err != nil {
			return err
		}
	}
	for _, def := range []struct {
		name string
		val  object.Object
	}{
		{"systemdict", sys},
		{"errordict", errd},
		{"true", object.Bool(true)},
		{"false", object.Bool(false)},
		{"null", object.Null()},
	} {
		if err := c.global.DictPut(sys, c.rt.names.Intern(def.name), def.val); err != nil {
			return err
		}
	}
	c.systemdict = sys
	c.errordict = errd
	return nil
}

// bootstrapLocal creates userdict and resets the dictionary stack; it must
// run after the global memory is ready.
func (c *Context) bootstrapLocal() error {
	defer c.local.Mem.Inhibit()()
	user, err := c.local.MakeDict(64)
	if err != nil {
		return err
	}
	if err := c.local.DictPut(user, c.rt.names.Intern("userdict"), user); err != nil {
		return err
	}
	c.userdict = user
	c.ds.Clear()
	if err := c.ds.Push(c.systemdict); err != nil {
		return err
	}
	return c.ds.Push(c.userdict)
}

// ForkPrivate creates a context with its own local and global memory; it
// shares nothing with c beyond the runtime.
func (c *Context) ForkPrivate() (*Context, error) {
	child, err := c.rt.NewContext()
	if err == nil {
		child.forked = true
	}
	return child, err
}

// ForkSharedGlobal creates a context sharing c's global memory (and so its
// systemdict) with a fresh private local memory.
func (c *Context) ForkSharedGlobal() (*Context, error) {
	child := &Context{rt: c.rt, global: c.global, systemdict: c.systemdict, errordict: c.errordict,
		forked: true}
	child.initStacks()
	child.local = object.NewSpace(c.rt.newMemory(object.Local), &c.rt.names, object.Local)
	if err := c.rt.addContext(child); err != nil {
		return nil, err
	}
	if err := child.bootstrapLocal(); err != nil {
		return nil, err
	}
	child.vmGlobal = c.vmGlobal
	child.logf("+", "forked from %v sharing global", c.id)
	return child, nil
}

// ForkSharedAll creates a lightweight context sharing both of c's memories,
// and a copy of its dictionary stack.
func (c *Context) ForkSharedAll() (*Context, error) {
	child := &Context{rt: c.rt, local: c.local, global: c.global,
		systemdict: c.systemdict, errordict: c.errordict, userdict: c.userdict, forked: true}
	child.initStacks()
	if err := c.rt.addContext(child); err != nil {
		return nil, err
	}
	if err := c.ds.ForEach(func(_ int, d object.Object) error {
		return child.ds.Push(d)
	}); err != nil {
		return nil, err
	}
	child.vmGlobal = c.vmGlobal
	child.seed = c.seed
	child.logf("+", "forked from %v sharing all", c.id)
	return child, nil
}

// Exit ends the context, leaving its operand stack for a joining context;
// Release removes it from the context table altogether.
func (c *Context) Exit() {
	if c.state == exited {
		return
	}
	c.state = exited
	c.es.Clear()
	c.hs.Clear()
	c.logf("-", "exit err:%v", c.err)
}

// revive makes an exited context runnable again, keeping its operand and
// dictionary stacks.
func (c *Context) revive() {
	c.es.Clear()
	c.hs.Clear()
	c.state = runnable
	c.logf("+", "revived")
}

// Release exits the context and frees its context table slot.
func (c *Context) Release() {
	c.Exit()
	c.os.Clear()
	c.ds.Clear()
	c.rt.removeContext(c)
}

// SelectMemory returns the space a composite object must be resolved
// against: global or local according to its bank.
func (c *Context) SelectMemory(o object.Object) *object.Space {
	if o.Bank() == object.Global {
		return c.global
	}
	return c.local
}

// vm returns the space new composites are allocated in, selected by the
// current VM allocation mode (setglobal).
func (c *Context) vm() *object.Space {
	if c.vmGlobal {
		return c.global
	}
	return c.local
}

// memories returns the memories c uses, local first.
func (c *Context) memories() []*mem.Memory {
	return []*mem.Memory{c.local.Mem, c.global.Mem}
}

func (c *Context) logf(mark, mess string, args ...interface{}) {
	if c.rt.logfn == nil {
		return
	}
	if len(args) > 0 {
		mess = fmt.Sprintf(mess, args...)
	}
	c.rt.logf(mark, "ctx:%v %v", c.id, mess)
}

// Push pushes values onto the operand stack.
func (c *Context) Push(vals ...object.Object) error {
	for _, v := range vals {
		if err := c.os.Push(v); err != nil {
			return err
		}
	}
	return nil
}

// Operands returns the operand stack, bottom first.
func (c *Context) Operands() []object.Object { return c.os.Slice() }

// Exec queues o on the exec stack.
func (c *Context) Exec(o object.Object) error { return c.es.Push(o) }

// ExecString makes a string of src in local memory and queues it for
// execution.
func (c *Context) ExecString(src []byte) error {
	str, err := c.local.MakeString(src)
	if err != nil {
		return err
	}
	return c.es.Push(str.WithAccess(object.ExecuteOnly).Cvx())
}
