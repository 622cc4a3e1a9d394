package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jcorbin/gopost/internal/fault"
	"github.com/jcorbin/gopost/internal/object"
)

// Status reports why Step or Run returned.
type Status uint8

// Statuses.
const (
	// StatusOK means execution may simply continue.
	StatusOK Status = iota

	// StatusYield means the context asked to let others run.
	StatusYield

	// StatusIOBlock means an operator could not proceed yet; it has been
	// re-queued with its operands restored, to be retried once the context
	// is scheduled again.
	StatusIOBlock

	// StatusSwitch means the context created or woke another context that
	// should run before it continues.
	StatusSwitch

	// StatusQuit means the context executed quit, or was told to quit.
	StatusQuit

	// StatusDone means the exec stack is empty.
	StatusDone
)

func (st Status) String() string {
	switch st {
	case StatusOK:
		return "ok"
	case StatusYield:
		return "yield"
	case StatusIOBlock:
		return "ioblock"
	case StatusSwitch:
		return "switch"
	case StatusQuit:
		return "quit"
	case StatusDone:
		return "done"
	}
	return fmt.Sprintf("Status(%d)", uint8(st))
}

// Quit asks the context to stop the next time it steps.
func (c *Context) Quit() { c.quit = true }

// Run steps c until it returns a status other than StatusOK, an error ends
// it, or ctx is done. Run may be called again after a yield or block to
// resume where it left off.
func (c *Context) Run(ctx context.Context) (Status, error) {
	for {
		if err := ctx.Err(); err != nil {
			return StatusQuit, err
		}
		st, err := c.Step()
		if err != nil || st != StatusOK {
			return st, err
		}
	}
}

// Step executes the top of the exec stack. A non-nil error is returned only
// when the error could not be handled within the language, which ends the
// current run: fatal errors, and errors raised with no stopped context.
func (c *Context) Step() (Status, error) {
	if c.quit {
		return StatusQuit, nil
	}
	if c.state == exited {
		return StatusDone, nil
	}
	if c.es.Count() == 0 {
		return StatusDone, nil
	}
	o, err := c.es.TopDown(0)
	if err != nil {
		return c.fail(object.Null(), err)
	}
	st, err := c.exec(o)
	if err != nil {
		var u uncaught
		if errors.As(err, &u) {
			return st, u.error
		}
		return c.fail(o, err)
	}
	return st, nil
}

// uncaught carries an error out of the stop operator when no stopped
// context remained to catch it, so that it ends the run rather than being
// raised again.
type uncaught struct{ error }

func (u uncaught) Unwrap() error { return u.error }

func (c *Context) exec(o object.Object) (Status, error) {
	if !o.Executable() {
		c.es.Pop()
		return StatusOK, c.os.Push(o)
	}
	switch o.Type() {
	case object.ArrayType:
		return StatusOK, c.execArray(o)
	case object.StringType:
		return StatusOK, c.execString(o)
	case object.NameType:
		c.es.Pop()
		return StatusOK, c.execName(o)
	case object.OperatorType:
		c.es.Pop()
		return c.dispatch(o)
	case object.NullType, object.MarkType:
		c.es.Pop()
		return StatusOK, nil
	default:
		c.es.Pop()
		return StatusOK, c.os.Push(o)
	}
}

// execArray unrolls a procedure one element per step: the remaining tail
// replaces it on the exec stack, then its first element is queued. Nested
// procedures are data, pushed to the operand stack rather than executed.
func (c *Context) execArray(proc object.Object) error {
	if !proc.Runnable() {
		return fault.Errorf(fault.InvalidAccess, "exec %v procedure", proc.Access())
	}
	n := proc.Len()
	if n == 0 {
		_, err := c.es.Pop()
		return err
	}
	head, err := c.SelectMemory(proc).Elem(proc, 0)
	if err != nil {
		return err
	}
	if n > 1 {
		tail, err := object.GetInterval(proc, 1, n-1)
		if err != nil {
			return err
		}
		if err := c.es.SetTopDown(0, tail); err != nil {
			return err
		}
	} else if _, err := c.es.Pop(); err != nil {
		return err
	}
	if isProc(head) {
		return c.os.Push(head)
	}
	return c.es.Push(head)
}

func isProc(o object.Object) bool {
	return o.Executable() && (o.Type() == object.ArrayType || o.Type() == object.StringType)
}

// execString scans one token from an executable string; the string's
// remainder stays queued.
func (c *Context) execString(str object.Object) error {
	if !str.Runnable() {
		return fault.Errorf(fault.InvalidAccess, "exec %v string", str.Access())
	}
	src, err := c.SelectMemory(str).StringBytes(str)
	if err != nil {
		return err
	}
	tok, n, ok, err := c.scanToken(src)
	if err != nil {
		c.es.Pop()
		return err
	}
	if rest := len(src) - n; ok && rest > 0 {
		tail, err := object.GetInterval(str, n, rest)
		if err != nil {
			return err
		}
		if err := c.es.SetTopDown(0, tail); err != nil {
			return err
		}
	} else if _, err := c.es.Pop(); err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if tok.Executable() && !isProc(tok) {
		return c.es.Push(tok)
	}
	return c.os.Push(tok)
}

// execName resolves a name on the dictionary stack; executable values are
// queued, others pushed.
func (c *Context) execName(name object.Object) error {
	v, err := c.load(name)
	if err != nil {
		return err
	}
	if v.Executable() {
		return c.es.Push(v)
	}
	return c.os.Push(v)
}

// load searches the dictionary stack from the top for key.
func (c *Context) load(key object.Object) (object.Object, error) {
	for i := 0; i < c.ds.Count(); i++ {
		d, err := c.ds.TopDown(i)
		if err != nil {
			return object.Null(), err
		}
		v, ok, err := c.dictLookup(d, key)
		if err != nil {
			return object.Null(), err
		}
		if ok {
			return v, nil
		}
	}
	return object.Null(), fault.Errorf(fault.Undefined, "%v", c.text(key))
}

// where returns the topmost dictionary on the dictionary stack defining key.
func (c *Context) where(key object.Object) (object.Object, bool, error) {
	for i := 0; i < c.ds.Count(); i++ {
		d, err := c.ds.TopDown(i)
		if err != nil {
			return object.Null(), false, err
		}
		_, ok, err := c.dictLookup(d, key)
		if err != nil || ok {
			return d, ok, err
		}
	}
	return object.Null(), false, nil
}

// fail is the error continuation. Fatal errors end the run at once.
// Otherwise, with any held operands already restored, the offending object
// is pushed and the errordict handler for the error's kind is executed; the
// default handler is stop, which ends the run with err if no stopped
// context catches it.
func (c *Context) fail(culprit object.Object, err error) (Status, error) {
	kind := fault.KindOf(err)
	c.err = err
	c.logf("!", "%v executing %v", err, c.describe(culprit))
	if kind.Fatal() {
		c.es.Clear()
		return StatusDone, err
	}
	if perr := c.os.Push(culprit); perr != nil {
		c.os.Clear()
		c.os.Push(culprit)
	}
	handler, ok, herr := c.SelectMemory(c.errordict).DictLookup(c.errordict, c.rt.names.Intern(kind.String()))
	if herr != nil {
		c.es.Clear()
		return StatusDone, fmt.Errorf("%w (errordict lookup failed: %v)", err, herr)
	}
	if !ok {
		handler = object.Operator(c.rt.stopOp)
	}
	c.pending = nil
	if handler.Type() == object.OperatorType && handler.OpCode() == c.rt.stopOp {
		c.pending = err
	}
	if perr := c.es.Push(handler); perr != nil {
		// no room to run the handler
		c.pending = nil
		return c.unwindStop(err)
	}
	return StatusOK, nil
}

// unwindStop pops the exec stack down through the innermost stopped marker,
// pushing true. With no stopped marker the exec stack is emptied and the run
// ends, with err if the stop was raised by an error.
func (c *Context) unwindStop(err error) (Status, error) {
	for c.es.Count() > 0 {
		o, _ := c.es.Pop()
		if o.Type() == object.OperatorType && o.OpCode() == c.rt.stoppedOp {
			return StatusOK, c.os.Push(object.Bool(true))
		}
	}
	return StatusDone, err
}

func (c *Context) describe(o object.Object) string {
	switch o.Type() {
	case object.NameType:
		return c.text(o)
	case object.OperatorType:
		if op, err := c.rt.operator(o.OpCode()); err == nil {
			return "--" + op.name + "--"
		}
	}
	return o.String()
}
