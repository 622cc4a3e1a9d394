package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jcorbin/gopost/internal/fault"
)

// schedQuantum bounds how many steps a context runs before the scheduler
// moves on, so that contexts which never yield still share time.
const schedQuantum = 1000

// RunAll runs every context in the table round-robin until all have exited,
// returning the errors that ended any of them. A context that blocks is
// marked so until the scheduler next reaches it, where it is promoted back
// to runnable and retried. If a whole round passes with every remaining
// context blocked, they are deadlocked, and each is ended with an
// invalidcontext error. Exited forked contexts that nothing can join are
// released at the end of each round.
func (rt *Runtime) RunAll(ctx context.Context) error {
	var errs []error
	for {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		cs := rt.live()
		if len(cs) == 0 {
			return errors.Join(errs...)
		}

		progress := false
		for _, c := range cs {
			if c.state == exited {
				continue
			}
			if c.state == blocked {
				c.state = runnable
			}
			st, n, err := c.runQuantum(ctx)
			if n > 1 || st != StatusIOBlock {
				progress = true
			}
			rt.logf(">", "ctx:%v ran:%v status:%v", c.id, n, st)
			if ctx.Err() != nil {
				break
			}
			switch {
			case err != nil:
				c.err = err
				errs = append(errs, fmt.Errorf("context %v: %w", c.id, err))
				c.Exit()
			case st == StatusIOBlock:
				c.state = blocked
			case st == StatusDone || st == StatusQuit:
				c.Exit()
			}
		}

		if !progress && ctx.Err() == nil {
			for _, c := range rt.live() {
				if c.state == blocked {
					err := fault.Errorf(fault.InvalidContext, "context %v deadlocked", c.id)
					c.err = err
					errs = append(errs, err)
					c.Exit()
				}
			}
		}
		rt.reap()
	}
}

// live returns the table's contexts that have not yet exited.
func (rt *Runtime) live() []*Context {
	var cs []*Context
	for _, c := range rt.Contexts() {
		if c.state != exited {
			cs = append(cs, c)
		}
	}
	return cs
}

// runQuantum steps c until it stops being runnable, switches, yields, or
// exhausts its quantum; n counts the steps taken.
func (c *Context) runQuantum(ctx context.Context) (st Status, n int, err error) {
	for n < schedQuantum {
		if err := ctx.Err(); err != nil {
			return StatusQuit, n, nil
		}
		st, err = c.Step()
		n++
		if err != nil || st != StatusOK {
			return st, n, err
		}
	}
	return StatusOK, n, nil
}
