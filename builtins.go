package main

import (
	"github.com/jcorbin/gopost/internal/fault"
	"github.com/jcorbin/gopost/internal/object"
)

type builtin struct {
	name string
	sigs []signature
}

func def(name string, sigs ...signature) builtin { return builtin{name, sigs} }

// builtins lists every operator in registration order; hidden operators,
// named with a leading "%", implement loop and stopped continuations.
func builtins() [][]builtin {
	return [][]builtin{
		stackOps(),
		mathOps(),
		controlOps(),
		compositeOps(),
		attributeOps(),
		vmOps(),
		contextOps(),
		randomOps(),
		outputOps(),
	}
}

func registerBuiltins(rt *Runtime) error {
	for _, group := range builtins() {
		for _, b := range group {
			if _, err := rt.register(b.name, b.sigs...); err != nil {
				return err
			}
		}
	}
	rt.stopOp = rt.opCode("stop")
	rt.stoppedOp = rt.opCode("%stopped")
	rt.loopOps = make(map[int]bool)
	for _, name := range []string{"repeat", "for", "loop", "forall", "%dictforall"} {
		rt.loopOps[rt.opCode(name)] = true
	}
	return nil
}

// proceed is the common handler return.
func proceed(err error) (Status, error) { return StatusOK, err }

func (c *Context) push(vals ...object.Object) (Status, error) { return proceed(c.Push(vals...)) }

// text returns the text of a name or string, or a generic rendering of any
// other object.
func (c *Context) text(o object.Object) string {
	switch o.Type() {
	case object.NameType:
		return c.rt.names.Text(o)
	case object.StringType:
		if b, err := c.SelectMemory(o).StringBytes(o); err == nil {
			return string(b)
		}
	}
	return o.String()
}

// dictKey converts a string key from the other bank into a name, since the
// dictionary's space can only read strings from its own memory.
func (c *Context) dictKey(d, key object.Object) (object.Object, error) {
	if key.Type() != object.StringType || key.Bank() == d.Bank() {
		return key, nil
	}
	if !key.Readable() {
		return key, fault.Errorf(fault.InvalidAccess, "%v string key", key.Access())
	}
	b, err := c.SelectMemory(key).StringBytes(key)
	if err != nil {
		return key, err
	}
	return c.rt.names.Intern(string(b)), nil
}

func (c *Context) dictLookup(d, key object.Object) (object.Object, bool, error) {
	key, err := c.dictKey(d, key)
	if err != nil {
		return object.Null(), false, err
	}
	return c.SelectMemory(d).DictLookup(d, key)
}

func (c *Context) dictGet(d, key object.Object) (object.Object, error) {
	v, ok, err := c.dictLookup(d, key)
	if err == nil && !ok {
		err = fault.Errorf(fault.Undefined, "%v", c.text(key))
	}
	return v, err
}

func (c *Context) dictPut(d, key, v object.Object) error {
	key, err := c.dictKey(d, key)
	if err != nil {
		return err
	}
	return c.SelectMemory(d).DictPut(d, key, v)
}

func (c *Context) dictUndef(d, key object.Object) error {
	key, err := c.dictKey(d, key)
	if err != nil {
		return err
	}
	return c.SelectMemory(d).DictUndef(d, key)
}

// markDepth returns the number of operands above the topmost mark.
func (c *Context) markDepth() (int, error) {
	for i := 0; i < c.os.Count(); i++ {
		if o, err := c.os.TopDown(i); err != nil {
			return 0, err
		} else if o.Type() == object.MarkType {
			return i, nil
		}
	}
	return 0, fault.Errorf(fault.UnmatchedMark, "no mark among %v operands", c.os.Count())
}

// popN discards the top n operands.
func (c *Context) popN(n int) error {
	for ; n > 0; n-- {
		if _, err := c.os.Pop(); err != nil {
			return err
		}
	}
	return nil
}

// topN returns the top n operands, bottom first, without popping them.
func (c *Context) topN(n int) ([]object.Object, error) {
	vals := make([]object.Object, n)
	for i := range vals {
		o, err := c.os.TopDown(n - 1 - i)
		if err != nil {
			return nil, err
		}
		vals[i] = o
	}
	return vals, nil
}

func stackOps() []builtin {
	return []builtin{
		def("pop", sig(func(c *Context, _ []object.Object) (Status, error) {
			return StatusOK, nil
		}, anyArg)),
		def("exch", sig(func(c *Context, args []object.Object) (Status, error) {
			return c.push(args[1], args[0])
		}, anyArg, anyArg)),
		def("dup", sig(func(c *Context, args []object.Object) (Status, error) {
			return c.push(args[0], args[0])
		}, anyArg)),
		def("index", sig(func(c *Context, args []object.Object) (Status, error) {
			n := args[0].Int()
			if n < 0 || n >= int64(c.os.Count()) {
				return proceed(fault.Errorf(fault.RangeCheck, "index %v of %v operands", n, c.os.Count()))
			}
			o, err := c.os.TopDown(int(n))
			if err != nil {
				return proceed(err)
			}
			return c.push(o)
		}, intArg)),
		def("clear", sig(func(c *Context, _ []object.Object) (Status, error) {
			c.os.Clear()
			return StatusOK, nil
		})),
		def("count", sig(func(c *Context, _ []object.Object) (Status, error) {
			return c.push(object.Int(int64(c.os.Count())))
		})),
		def("mark", sig(pushMark)),
		def("cleartomark", sig(func(c *Context, _ []object.Object) (Status, error) {
			n, err := c.markDepth()
			if err != nil {
				return proceed(err)
			}
			return proceed(c.popN(n + 1))
		})),
		def("counttomark", sig(func(c *Context, _ []object.Object) (Status, error) {
			n, err := c.markDepth()
			if err != nil {
				return proceed(err)
			}
			return c.push(object.Int(int64(n)))
		})),
	}
}

func pushMark(c *Context, _ []object.Object) (Status, error) { return c.push(object.Mark()) }
