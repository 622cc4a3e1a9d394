package main

import (
	"strings"

	"github.com/jcorbin/gopost/internal/fault"
	"github.com/jcorbin/gopost/internal/object"
)

// Handler implements one signature of an operator. Its args are the matched
// operands, bottom first, already removed from the operand stack (a copy
// remains on the hold stack until the handler returns).
type Handler func(c *Context, args []object.Object) (Status, error)

type operator struct {
	name string
	sigs []signature
}

// hidden operators implement continuations; they are not defined in
// systemdict.
func (op operator) hidden() bool { return strings.HasPrefix(op.name, "%") }

type signature struct {
	in []pattern
	fn Handler
}

func sig(fn Handler, in ...pattern) signature { return signature{in: in, fn: fn} }

// pattern matches one operand of a signature.
type pattern uint8

const (
	anyArg   pattern = iota
	numArg           // integer or real, passed as is
	floatArg         // integer or real, integers promoted to real
	procArg          // any array, regardless of its executable attribute

	exactArg // exactArg + pattern(t) matches only type t
)

func exact(t object.Type) pattern { return exactArg + pattern(t) }

var (
	intArg    = exact(object.IntegerType)
	boolArg   = exact(object.BooleanType)
	arrayArg  = exact(object.ArrayType)
	dictArg   = exact(object.DictType)
	stringArg = exact(object.StringType)
	saveArg   = exact(object.SaveType)
	ctxArg    = exact(object.ContextType)
)

func (p pattern) match(o object.Object) bool {
	switch p {
	case anyArg:
		return true
	case numArg, floatArg:
		t := o.Type()
		return t == object.IntegerType || t == object.RealType
	case procArg:
		return o.Type() == object.ArrayType
	}
	return o.Type() == object.Type(p-exactArg)
}

func (p pattern) convert(o object.Object) object.Object {
	if p == floatArg && o.Type() == object.IntegerType {
		return object.Real(float64(o.Int()))
	}
	return o
}

// dispatch runs operator op: the first signature whose patterns match the
// top of the operand stack has its operands moved to the hold stack and its
// handler called. No signature with enough operands is a stackunderflow,
// otherwise a failure to match any is a typecheck.
func (c *Context) dispatch(opObj object.Object) (Status, error) {
	op, err := c.rt.operator(opObj.OpCode())
	if err != nil {
		return StatusOK, err
	}
	depth := c.os.Count()
	enough := false
	for _, sig := range op.sigs {
		n := len(sig.in)
		if depth < n {
			continue
		}
		enough = true
		if !c.matches(sig.in) {
			continue
		}
		args, err := c.hold(sig.in)
		if err != nil {
			return StatusOK, err
		}
		st, err := sig.fn(c, args)
		if err != nil || st == StatusIOBlock {
			if rerr := c.unhold(depth - n); rerr != nil {
				return StatusOK, rerr
			}
		}
		if err == nil && st == StatusIOBlock {
			err = c.es.Push(opObj)
		}
		c.hs.Clear()
		return st, err
	}
	if !enough {
		return StatusOK, fault.Errorf(fault.StackUnderflow, "%v needs more operands than %v", op.name, depth)
	}
	return StatusOK, fault.Errorf(fault.TypeCheck, "%v given %v", op.name, c.describeTop(maxArity(op.sigs)))
}

func (c *Context) matches(in []pattern) bool {
	n := len(in)
	for i, p := range in {
		o, err := c.os.TopDown(n - 1 - i)
		if err != nil || !p.match(o) {
			return false
		}
	}
	return true
}

// hold moves the top len(in) operands onto the hold stack, returning them
// converted per their patterns.
func (c *Context) hold(in []pattern) ([]object.Object, error) {
	n := len(in)
	c.hs.Clear()
	args := make([]object.Object, n)
	for i := range in {
		o, err := c.os.TopDown(n - 1 - i)
		if err != nil {
			return nil, err
		}
		if err := c.hs.Push(o); err != nil {
			return nil, err
		}
		args[i] = in[i].convert(o)
	}
	for i := 0; i < n; i++ {
		if _, err := c.os.Pop(); err != nil {
			return nil, err
		}
	}
	return args, nil
}

// unhold restores held operands above base, discarding anything the handler
// pushed before failing.
func (c *Context) unhold(base int) error {
	for c.os.Count() > base {
		if _, err := c.os.Pop(); err != nil {
			return err
		}
	}
	return c.hs.ForEach(func(_ int, o object.Object) error {
		return c.os.Push(o)
	})
}

func maxArity(sigs []signature) int {
	n := 0
	for _, sig := range sigs {
		if len(sig.in) > n {
			n = len(sig.in)
		}
	}
	return n
}

func (c *Context) describeTop(n int) string {
	var sb strings.Builder
	sb.WriteByte('[')
	if n > c.os.Count() {
		n = c.os.Count()
	}
	for i := n - 1; i >= 0; i-- {
		o, _ := c.os.TopDown(i)
		if sb.Len() > 1 {
			sb.WriteByte(' ')
		}
		sb.WriteString(o.Type().String())
	}
	sb.WriteByte(']')
	return sb.String()
}
