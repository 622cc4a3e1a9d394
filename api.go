package main

import (
	"context"
	"errors"
	"io"

	"github.com/jcorbin/gopost/internal/fault"
	"github.com/jcorbin/gopost/internal/panicerr"
)

// New creates a runtime; its operator table is registered before New
// returns, but no context exists until NewContext or Run creates one.
func New(opts ...RuntimeOption) *Runtime {
	var rt Runtime
	defaultOptions.apply(&rt)
	RuntimeOptions(opts...).apply(&rt)
	rt.init()
	return &rt
}

// Run executes src in a new context, then runs every context in the table
// until all have exited. Any panic from within the runtime is returned as an
// error, as are the errors that ended any context.
func (rt *Runtime) Run(ctx context.Context, src []byte) error {
	err := panicerr.Recover("gopost", func() error {
		c, err := rt.NewContext()
		if err != nil {
			return err
		}
		if err := c.ExecString(src); err != nil {
			return err
		}
		return rt.RunAll(ctx)
	})
	if ferr := rt.out.Flush(); err == nil {
		err = ferr
	}
	return err
}

// ExecSource runs src to completion in an existing context, as the REPL
// does for each line, scheduling any contexts it creates along the way. The
// context survives errors that escape the program: its exec stack is left
// empty and it may be given more source.
func (c *Context) ExecSource(ctx context.Context, src []byte) error {
	err := panicerr.Guard("gopost", func() error {
		if err := c.ExecString(src); err != nil {
			return err
		}
		return c.rt.RunAll(ctx)
	})
	if c.state == exited && !c.quit && !errors.Is(err, fault.VMError) {
		c.revive()
	}
	if ferr := c.rt.out.Flush(); err == nil {
		err = ferr
	}
	return err
}

func WithOutput(w io.Writer) RuntimeOption    { return withOutput(w) }
func WithTee(w io.Writer) RuntimeOption       { return withTee(w) }
func WithMemLimit(limit uint32) RuntimeOption { return memLimitOption(limit) }
func WithPageSize(size uint32) RuntimeOption  { return pageSizeOption(size) }
func WithCollectEvery(n int) RuntimeOption    { return collectEveryOption(n) }
func WithMaxContexts(n int) RuntimeOption     { return maxContextsOption(n) }

func WithLogf(logfn func(mess string, args ...interface{})) RuntimeOption { return withLogfn(logfn) }
