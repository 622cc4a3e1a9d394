package main

import (
	"github.com/jcorbin/gopost/internal/fault"
	"github.com/jcorbin/gopost/internal/object"
)

func compositeOps() []builtin {
	return []builtin{
		def("array", sig(func(c *Context, args []object.Object) (Status, error) {
			arr, err := c.vm().MakeArray(int(args[0].Int()))
			if err != nil {
				return proceed(err)
			}
			return c.push(arr)
		}, intArg)),
		def("[", sig(pushMark)),
		def("]", sig(endArray)),
		def("<<", sig(pushMark)),
		def(">>", sig(endDict)),
		def("length",
			sig(func(c *Context, args []object.Object) (Status, error) {
				return c.push(object.Int(int64(args[0].Len())))
			}, arrayArg),
			sig(func(c *Context, args []object.Object) (Status, error) {
				return c.push(object.Int(int64(args[0].Len())))
			}, stringArg),
			sig(func(c *Context, args []object.Object) (Status, error) {
				d := args[0]
				if !d.Readable() {
					return proceed(fault.Errorf(fault.InvalidAccess, "length of %v dict", d.Access()))
				}
				n, err := c.SelectMemory(d).DictLength(d)
				if err != nil {
					return proceed(err)
				}
				return c.push(object.Int(int64(n)))
			}, dictArg),
			sig(func(c *Context, args []object.Object) (Status, error) {
				return c.push(object.Int(int64(len(c.text(args[0])))))
			}, exact(object.NameType))),
		def("get",
			sig(func(c *Context, args []object.Object) (Status, error) {
				v, err := c.SelectMemory(args[0]).ArrayGet(args[0], int(args[1].Int()))
				if err != nil {
					return proceed(err)
				}
				return c.push(v)
			}, arrayArg, intArg),
			sig(func(c *Context, args []object.Object) (Status, error) {
				b, err := c.SelectMemory(args[0]).StringGet(args[0], int(args[1].Int()))
				if err != nil {
					return proceed(err)
				}
				return c.push(object.Int(int64(b)))
			}, stringArg, intArg),
			sig(func(c *Context, args []object.Object) (Status, error) {
				v, err := c.dictGet(args[0], args[1])
				if err != nil {
					return proceed(err)
				}
				return c.push(v)
			}, dictArg, anyArg)),
		def("put",
			sig(func(c *Context, args []object.Object) (Status, error) {
				return proceed(c.SelectMemory(args[0]).ArrayPut(args[0], int(args[1].Int()), args[2]))
			}, arrayArg, intArg, anyArg),
			sig(func(c *Context, args []object.Object) (Status, error) {
				b := args[2].Int()
				if b < 0 || b > 255 {
					return proceed(fault.Errorf(fault.RangeCheck, "byte value %v", b))
				}
				return proceed(c.SelectMemory(args[0]).StringPut(args[0], int(args[1].Int()), byte(b)))
			}, stringArg, intArg, intArg),
			sig(func(c *Context, args []object.Object) (Status, error) {
				return proceed(c.dictPut(args[0], args[1], args[2]))
			}, dictArg, anyArg, anyArg)),
		def("getinterval",
			sig(getInterval, arrayArg, intArg, intArg),
			sig(getInterval, stringArg, intArg, intArg)),
		def("dict", sig(func(c *Context, args []object.Object) (Status, error) {
			d, err := c.vm().MakeDict(int(args[0].Int()))
			if err != nil {
				return proceed(err)
			}
			return c.push(d)
		}, intArg)),
		def("begin", sig(func(c *Context, args []object.Object) (Status, error) {
			return proceed(c.ds.Push(args[0]))
		}, dictArg)),
		def("end", sig(func(c *Context, _ []object.Object) (Status, error) {
			if c.ds.Count() <= 2 {
				return proceed(fault.Errorf(fault.DictStackUnderflow, "end of permanent dictionary"))
			}
			_, err := c.ds.Pop()
			return proceed(err)
		})),
		def("def", sig(func(c *Context, args []object.Object) (Status, error) {
			d, err := c.ds.TopDown(0)
			if err != nil {
				return proceed(err)
			}
			return proceed(c.dictPut(d, args[0], args[1]))
		}, anyArg, anyArg)),
		def("load", sig(func(c *Context, args []object.Object) (Status, error) {
			v, err := c.load(args[0])
			if err != nil {
				return proceed(err)
			}
			return c.push(v)
		}, anyArg)),
		def("where", sig(func(c *Context, args []object.Object) (Status, error) {
			d, ok, err := c.where(args[0])
			if err != nil {
				return proceed(err)
			}
			if ok {
				return c.push(d, object.Bool(true))
			}
			return c.push(object.Bool(false))
		}, anyArg)),
		def("known", sig(func(c *Context, args []object.Object) (Status, error) {
			_, ok, err := c.dictLookup(args[0], args[1])
			if err != nil {
				return proceed(err)
			}
			return c.push(object.Bool(ok))
		}, dictArg, anyArg)),
		def("undef", sig(func(c *Context, args []object.Object) (Status, error) {
			return proceed(c.dictUndef(args[0], args[1]))
		}, dictArg, anyArg)),
		def("currentdict", sig(func(c *Context, _ []object.Object) (Status, error) {
			d, err := c.ds.TopDown(0)
			if err != nil {
				return proceed(err)
			}
			return c.push(d)
		})),
		def("string", sig(func(c *Context, args []object.Object) (Status, error) {
			str, err := c.vm().MakeStringN(int(args[0].Int()), nil)
			if err != nil {
				return proceed(err)
			}
			return c.push(str)
		}, intArg)),
		def("cvs", sig(cvs, anyArg, stringArg)),
	}
}

// endArray collects the operands above the topmost mark into a new array.
// The array is allocated before they are popped, so that a collection
// triggered by the allocation still sees them.
func endArray(c *Context, _ []object.Object) (Status, error) {
	n, err := c.markDepth()
	if err != nil {
		return proceed(err)
	}
	elems, err := c.topN(n)
	if err != nil {
		return proceed(err)
	}
	arr, err := c.vm().ArrayOf(elems...)
	if err != nil {
		return proceed(err)
	}
	if err := c.popN(n + 1); err != nil {
		return proceed(err)
	}
	return c.push(arr)
}

// endDict collects the key/value pairs above the topmost mark into a new
// dictionary.
func endDict(c *Context, _ []object.Object) (Status, error) {
	n, err := c.markDepth()
	if err != nil {
		return proceed(err)
	}
	if n%2 != 0 {
		return proceed(fault.Errorf(fault.RangeCheck, "odd number of dictionary operands %v", n))
	}
	pairs, err := c.topN(n)
	if err != nil {
		return proceed(err)
	}
	sp := c.vm()
	d, err := sp.MakeDict(n / 2)
	if err != nil {
		return proceed(err)
	}
	release := sp.Mem.Inhibit()
	for i := 0; i < n; i += 2 {
		if err := c.dictPut(d, pairs[i], pairs[i+1]); err != nil {
			release()
			return proceed(err)
		}
	}
	release()
	if err := c.popN(n + 1); err != nil {
		return proceed(err)
	}
	return c.push(d)
}

func getInterval(c *Context, args []object.Object) (Status, error) {
	o := args[0]
	if !o.Readable() {
		return proceed(fault.Errorf(fault.InvalidAccess, "getinterval of %v %v", o.Access(), o.Type()))
	}
	sub, err := object.GetInterval(o, int(args[1].Int()), int(args[2].Int()))
	if err != nil {
		return proceed(err)
	}
	return c.push(sub)
}

// cvs writes the text of any object into str, pushing the written prefix.
func cvs(c *Context, args []object.Object) (Status, error) {
	o, str := args[0], args[1]
	text, err := c.cvsText(o)
	if err != nil {
		return proceed(err)
	}
	if len(text) > str.Len() {
		return proceed(fault.Errorf(fault.RangeCheck, "cvs of %v bytes into %v", len(text), str.Len()))
	}
	if err := c.SelectMemory(str).StringWrite(str, 0, text); err != nil {
		return proceed(err)
	}
	sub, err := object.GetInterval(str, 0, len(text))
	if err != nil {
		return proceed(err)
	}
	return c.push(sub)
}

// cvsText returns the text form of o; a name's text is read from its
// materialized name string.
func (c *Context) cvsText(o object.Object) ([]byte, error) {
	switch o.Type() {
	case object.StringType:
		return c.readString(o)
	case object.NameType:
		sp := c.vm()
		str, err := sp.NameString(o)
		if err != nil {
			return nil, err
		}
		return sp.StringBytes(str)
	case object.IntegerType, object.RealType, object.BooleanType:
		return []byte(o.String()), nil
	case object.OperatorType:
		op, err := c.rt.operator(o.OpCode())
		if err != nil {
			return nil, err
		}
		return []byte(op.name), nil
	}
	return []byte("--nostringval--"), nil
}
