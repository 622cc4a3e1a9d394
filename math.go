package main

import (
	"bytes"
	"math"

	"github.com/jcorbin/gopost/internal/fault"
	"github.com/jcorbin/gopost/internal/object"
)

// Integer results that overflow are promoted to reals.

func addInt(a, b int64) object.Object {
	if s := a + b; (s > a) == (b > 0) {
		return object.Int(s)
	}
	return object.Real(float64(a) + float64(b))
}

func subInt(a, b int64) object.Object {
	if d := a - b; (d < a) == (b > 0) {
		return object.Int(d)
	}
	return object.Real(float64(a) - float64(b))
}

func mulInt(a, b int64) object.Object {
	if a == 0 || b == 0 {
		return object.Int(0)
	}
	p := a * b
	if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return object.Real(float64(a) * float64(b))
	}
	return object.Int(p)
}

func checkReal(r float64) (object.Object, error) {
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return object.Null(), fault.Errorf(fault.UndefinedResult, "%v", r)
	}
	return object.Real(r), nil
}

func intOp(fn func(a, b int64) object.Object) Handler {
	return func(c *Context, args []object.Object) (Status, error) {
		return c.push(fn(args[0].Int(), args[1].Int()))
	}
}

func realOp(fn func(a, b float64) float64) Handler {
	return func(c *Context, args []object.Object) (Status, error) {
		r, err := checkReal(fn(args[0].Real(), args[1].Real()))
		if err != nil {
			return proceed(err)
		}
		return c.push(r)
	}
}

func mathOps() []builtin {
	return []builtin{
		def("add",
			sig(intOp(addInt), intArg, intArg),
			sig(realOp(func(a, b float64) float64 { return a + b }), floatArg, floatArg)),
		def("sub",
			sig(intOp(subInt), intArg, intArg),
			sig(realOp(func(a, b float64) float64 { return a - b }), floatArg, floatArg)),
		def("mul",
			sig(intOp(mulInt), intArg, intArg),
			sig(realOp(func(a, b float64) float64 { return a * b }), floatArg, floatArg)),
		def("div", sig(func(c *Context, args []object.Object) (Status, error) {
			if args[1].Real() == 0 {
				return proceed(fault.Errorf(fault.UndefinedResult, "division by zero"))
			}
			return realOp(func(a, b float64) float64 { return a / b })(c, args)
		}, floatArg, floatArg)),
		def("idiv", sig(func(c *Context, args []object.Object) (Status, error) {
			a, b := args[0].Int(), args[1].Int()
			if b == 0 {
				return proceed(fault.Errorf(fault.UndefinedResult, "division by zero"))
			}
			if a == math.MinInt64 && b == -1 {
				return c.push(object.Real(-float64(a)))
			}
			return c.push(object.Int(a / b))
		}, intArg, intArg)),
		def("mod", sig(func(c *Context, args []object.Object) (Status, error) {
			a, b := args[0].Int(), args[1].Int()
			if b == 0 {
				return proceed(fault.Errorf(fault.UndefinedResult, "modulo by zero"))
			}
			if b == -1 {
				return c.push(object.Int(0))
			}
			return c.push(object.Int(a % b))
		}, intArg, intArg)),
		def("neg",
			sig(func(c *Context, args []object.Object) (Status, error) {
				return c.push(subInt(0, args[0].Int()))
			}, intArg),
			sig(func(c *Context, args []object.Object) (Status, error) {
				return c.push(object.Real(-args[0].Real()))
			}, exact(object.RealType))),
		def("eq", sig(func(c *Context, args []object.Object) (Status, error) {
			return c.push(object.Bool(c.equal(args[0], args[1])))
		}, anyArg, anyArg)),
		def("ne", sig(func(c *Context, args []object.Object) (Status, error) {
			return c.push(object.Bool(!c.equal(args[0], args[1])))
		}, anyArg, anyArg)),
		def("lt", compare(func(n int) bool { return n < 0 })...),
		def("le", compare(func(n int) bool { return n <= 0 })...),
		def("gt", compare(func(n int) bool { return n > 0 })...),
		def("ge", compare(func(n int) bool { return n >= 0 })...),
	}
}

// compare builds the number and string signatures of a relational operator.
func compare(test func(n int) bool) []signature {
	return []signature{
		sig(func(c *Context, args []object.Object) (Status, error) {
			return c.push(object.Bool(test(compareNumbers(args[0], args[1]))))
		}, numArg, numArg),
		sig(func(c *Context, args []object.Object) (Status, error) {
			a, err := c.readString(args[0])
			if err != nil {
				return proceed(err)
			}
			b, err := c.readString(args[1])
			if err != nil {
				return proceed(err)
			}
			return c.push(object.Bool(test(bytes.Compare(a, b))))
		}, stringArg, stringArg),
	}
}

func compareNumbers(a, b object.Object) int {
	if a.Type() == object.IntegerType && b.Type() == object.IntegerType {
		switch x, y := a.Int(), b.Int(); {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	x, _ := a.Number()
	y, _ := b.Number()
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func (c *Context) readString(str object.Object) ([]byte, error) {
	if !str.Readable() {
		return nil, fault.Errorf(fault.InvalidAccess, "read %v string", str.Access())
	}
	return c.SelectMemory(str).StringBytes(str)
}

// equal compares numbers by value, strings by content (names comparing equal
// to strings of the same text), and everything else by identity.
func (c *Context) equal(a, b object.Object) bool {
	if x, ok := a.Number(); ok {
		if y, ok := b.Number(); ok {
			if a.Type() == object.IntegerType && b.Type() == object.IntegerType {
				return a.Int() == b.Int()
			}
			return x == y
		}
		return false
	}
	textual := func(o object.Object) bool {
		return o.Type() == object.StringType || o.Type() == object.NameType
	}
	if textual(a) && textual(b) && (a.Type() == object.StringType || b.Type() == object.StringType) {
		return c.text(a) == c.text(b)
	}
	if a.Type() != b.Type() {
		return false
	}
	return object.Same(a, b)
}
