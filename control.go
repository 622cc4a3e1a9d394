package main

import (
	"github.com/jcorbin/gopost/internal/fault"
	"github.com/jcorbin/gopost/internal/object"
)

// Loops run as continuations on the exec stack: each iteration queues the
// loop operator beneath literal copies of its remaining operands, then the
// body. When the body finishes, those operands are pushed back for the
// operator to dispatch on again, so the loop state lives entirely on the
// stacks and exit can unwind it by popping down to the operator.

func (c *Context) queue(vals ...object.Object) error {
	for _, v := range vals {
		if err := c.es.Push(v); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) opObject(name string) object.Object {
	return object.Operator(c.rt.opCode(name))
}

func controlOps() []builtin {
	return []builtin{
		def("exec", sig(func(c *Context, args []object.Object) (Status, error) {
			return proceed(c.es.Push(args[0]))
		}, anyArg)),
		def("if", sig(func(c *Context, args []object.Object) (Status, error) {
			if args[0].Bool() {
				return proceed(c.es.Push(args[1].Cvx()))
			}
			return StatusOK, nil
		}, boolArg, procArg)),
		def("ifelse", sig(func(c *Context, args []object.Object) (Status, error) {
			if args[0].Bool() {
				return proceed(c.es.Push(args[1].Cvx()))
			}
			return proceed(c.es.Push(args[2].Cvx()))
		}, boolArg, procArg, procArg)),
		def("repeat", sig(repeat, intArg, procArg)),
		def("for",
			sig(forInt, intArg, intArg, intArg, procArg),
			sig(forReal, floatArg, floatArg, floatArg, procArg)),
		def("loop", sig(func(c *Context, args []object.Object) (Status, error) {
			proc := args[0]
			return proceed(c.queue(c.opObject("loop"), proc.Cvlit(), proc.Cvx()))
		}, procArg)),
		def("forall",
			sig(forallArray, arrayArg, procArg),
			sig(forallString, stringArg, procArg),
			sig(forallDict, dictArg, procArg)),
		def("%dictforall", sig(dictForallNext, dictArg, intArg, procArg)),
		def("exit", sig(exit)),
		def("stop", sig(func(c *Context, _ []object.Object) (Status, error) {
			err := c.pending
			c.pending = nil
			st, err := c.unwindStop(err)
			if err != nil {
				err = uncaught{err}
			}
			return st, err
		})),
		def("stopped", sig(func(c *Context, args []object.Object) (Status, error) {
			return proceed(c.queue(object.Operator(c.rt.stoppedOp), args[0]))
		}, anyArg)),
		// reached only when the guarded object finished without stopping
		def("%stopped", sig(func(c *Context, _ []object.Object) (Status, error) {
			return c.push(object.Bool(false))
		})),
		def("quit", sig(func(c *Context, _ []object.Object) (Status, error) {
			c.Quit()
			return StatusQuit, nil
		})),
	}
}

func repeat(c *Context, args []object.Object) (Status, error) {
	n, proc := args[0].Int(), args[1]
	if n < 0 {
		return proceed(fault.Errorf(fault.RangeCheck, "repeat count %v", n))
	}
	if n == 0 {
		return StatusOK, nil
	}
	return proceed(c.queue(c.opObject("repeat"), proc.Cvlit(), object.Int(n-1), proc.Cvx()))
}

func forInt(c *Context, args []object.Object) (Status, error) {
	i, incr, limit, proc := args[0].Int(), args[1].Int(), args[2].Int(), args[3]
	if (incr >= 0 && i > limit) || (incr < 0 && i < limit) {
		return StatusOK, nil
	}
	return forNext(c, object.Int(i), addInt(i, incr), args[1], args[2], proc)
}

func forReal(c *Context, args []object.Object) (Status, error) {
	i, incr, limit, proc := args[0].Real(), args[1].Real(), args[2].Real(), args[3]
	if (incr >= 0 && i > limit) || (incr < 0 && i < limit) {
		return StatusOK, nil
	}
	return forNext(c, object.Real(i), object.Real(i+incr), args[1], args[2], proc)
}

func forNext(c *Context, cur, next, incr, limit, proc object.Object) (Status, error) {
	if err := c.queue(c.opObject("for"), proc.Cvlit(), limit, incr, next); err != nil {
		return proceed(err)
	}
	if err := c.os.Push(cur); err != nil {
		return proceed(err)
	}
	return proceed(c.es.Push(proc.Cvx()))
}

func forallArray(c *Context, args []object.Object) (Status, error) {
	arr, proc := args[0], args[1]
	if arr.Len() == 0 {
		return StatusOK, nil
	}
	elem, err := c.SelectMemory(arr).ArrayGet(arr, 0)
	if err != nil {
		return proceed(err)
	}
	return forallNext(c, arr, elem, proc)
}

func forallString(c *Context, args []object.Object) (Status, error) {
	str, proc := args[0], args[1]
	if str.Len() == 0 {
		return StatusOK, nil
	}
	b, err := c.SelectMemory(str).StringGet(str, 0)
	if err != nil {
		return proceed(err)
	}
	return forallNext(c, str, object.Int(int64(b)), proc)
}

func forallNext(c *Context, seq, elem, proc object.Object) (Status, error) {
	tail, err := object.GetInterval(seq, 1, seq.Len()-1)
	if err != nil {
		return proceed(err)
	}
	if err := c.queue(c.opObject("forall"), proc.Cvlit(), tail.Cvlit()); err != nil {
		return proceed(err)
	}
	if err := c.os.Push(elem); err != nil {
		return proceed(err)
	}
	return proceed(c.es.Push(proc.Cvx()))
}

func forallDict(c *Context, args []object.Object) (Status, error) {
	d := args[0]
	if !d.Readable() {
		return proceed(fault.Errorf(fault.InvalidAccess, "forall over %v dict", d.Access()))
	}
	return dictForallNext(c, []object.Object{d, object.Int(0), args[1]})
}

func dictForallNext(c *Context, args []object.Object) (Status, error) {
	d, slot, proc := args[0], args[1].Int(), args[2]
	key, val, next, ok, err := c.SelectMemory(d).DictNext(d, int(slot))
	if err != nil || !ok {
		return proceed(err)
	}
	if err := c.queue(c.opObject("%dictforall"), proc.Cvlit(), object.Int(int64(next)), d.Cvlit()); err != nil {
		return proceed(err)
	}
	if err := c.Push(key, val); err != nil {
		return proceed(err)
	}
	return proceed(c.es.Push(proc.Cvx()))
}

// exit unwinds the exec stack through the innermost loop continuation; a
// stopped frame in the way, or no loop at all, is an invalidexit.
func exit(c *Context, _ []object.Object) (Status, error) {
	for i := 0; i < c.es.Count(); i++ {
		o, err := c.es.TopDown(i)
		if err != nil {
			return proceed(err)
		}
		if o.Type() != object.OperatorType || !o.Executable() {
			continue
		}
		if code := o.OpCode(); c.rt.loopOps[code] {
			for ; i >= 0; i-- {
				c.es.Pop()
			}
			return StatusOK, nil
		} else if code == c.rt.stoppedOp {
			break
		}
	}
	return proceed(fault.Errorf(fault.InvalidExit, "exit outside of any loop"))
}
