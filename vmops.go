package main

import (
	"github.com/jcorbin/gopost/internal/fault"
	"github.com/jcorbin/gopost/internal/object"
)

func attributeOps() []builtin {
	restrict := func(to object.Access) Handler {
		return func(c *Context, args []object.Object) (Status, error) {
			o := args[0]
			if !o.Composite() {
				return proceed(fault.Errorf(fault.TypeCheck, "%v of %v", to, o.Type()))
			}
			if o.Access() < to {
				return proceed(fault.Errorf(fault.InvalidAccess, "%v object made %v", o.Access(), to))
			}
			return c.push(o.WithAccess(to))
		}
	}
	check := func(test func(object.Object) bool) Handler {
		return func(c *Context, args []object.Object) (Status, error) {
			if !args[0].Composite() {
				return proceed(fault.Errorf(fault.TypeCheck, "access of %v", args[0].Type()))
			}
			return c.push(object.Bool(test(args[0])))
		}
	}
	return []builtin{
		def("cvx", sig(func(c *Context, args []object.Object) (Status, error) {
			return c.push(args[0].Cvx())
		}, anyArg)),
		def("cvlit", sig(func(c *Context, args []object.Object) (Status, error) {
			return c.push(args[0].Cvlit())
		}, anyArg)),
		def("xcheck", sig(func(c *Context, args []object.Object) (Status, error) {
			return c.push(object.Bool(args[0].Executable()))
		}, anyArg)),
		def("readonly", sig(restrict(object.ReadOnly), anyArg)),
		def("executeonly", sig(restrict(object.ExecuteOnly), anyArg)),
		def("noaccess", sig(restrict(object.NoAccess), anyArg)),
		def("rcheck", sig(check(object.Object.Readable), anyArg)),
		def("wcheck", sig(check(object.Object.Writable), anyArg)),
		def("type", sig(func(c *Context, args []object.Object) (Status, error) {
			return c.push(c.rt.names.Intern(args[0].Type().String()).Cvx())
		}, anyArg)),
	}
}

func vmOps() []builtin {
	return []builtin{
		def("save", sig(func(c *Context, _ []object.Object) (Status, error) {
			level, err := c.local.Mem.Save()
			if err != nil {
				return proceed(err)
			}
			c.logf("s", "save level:%v", level)
			return c.push(object.Save(level))
		})),
		def("restore", sig(func(c *Context, args []object.Object) (Status, error) {
			level := args[0].Level()
			if depth := c.local.Mem.SaveLevel(); level >= depth {
				return proceed(fault.Errorf(fault.InvalidRestore, "save level %v at depth %v", level, depth))
			}
			c.logf("s", "restore level:%v", level)
			return proceed(c.local.Mem.RestoreTo(level))
		}, saveArg)),
		def("vmstatus", sig(func(c *Context, _ []object.Object) (Status, error) {
			m := c.vm().Mem
			st := m.Stats()
			max := int64(st.ArenaCap)
			if m.Limit > 0 {
				max = int64(m.Limit)
			}
			return c.push(object.Int(int64(st.SaveLevel)), object.Int(int64(st.ArenaUsed)), object.Int(max))
		})),
		def("currentglobal", sig(func(c *Context, _ []object.Object) (Status, error) {
			return c.push(object.Bool(c.vmGlobal))
		})),
		def("setglobal", sig(func(c *Context, args []object.Object) (Status, error) {
			c.vmGlobal = args[0].Bool()
			return StatusOK, nil
		}, boolArg)),
		def("collect", sig(func(c *Context, _ []object.Object) (Status, error) {
			_, err := c.vm().Mem.Collect()
			return proceed(err)
		})),
	}
}

func contextOps() []builtin {
	return []builtin{
		def("fork", sig(func(c *Context, args []object.Object) (Status, error) {
			child, err := c.ForkSharedAll()
			if err != nil {
				return proceed(err)
			}
			if err := child.Exec(args[0].Cvx()); err != nil {
				return proceed(err)
			}
			return StatusSwitch, c.Push(object.Context(child.id))
		}, procArg)),
		def("launch",
			sig(func(c *Context, args []object.Object) (Status, error) {
				return c.start(c.ForkSharedGlobal, args[0])
			}, stringArg),
			sig(func(c *Context, args []object.Object) (Status, error) {
				proc := args[0]
				if proc.Bank() != object.Global {
					return proceed(fault.Errorf(fault.InvalidAccess, "launch of local procedure"))
				}
				child, err := c.ForkSharedGlobal()
				if err != nil {
					return proceed(err)
				}
				if err := child.Exec(proc.Cvx()); err != nil {
					return proceed(err)
				}
				return StatusSwitch, c.Push(object.Context(child.id))
			}, procArg)),
		def("spawn", sig(func(c *Context, args []object.Object) (Status, error) {
			return c.start(c.ForkPrivate, args[0])
		}, stringArg)),
		def("join", sig(join, ctxArg)),
		def("yield", sig(func(c *Context, _ []object.Object) (Status, error) {
			return StatusYield, nil
		})),
		def("currentcontext", sig(func(c *Context, _ []object.Object) (Status, error) {
			return c.push(object.Context(c.id))
		})),
	}
}

// start forks a context that runs a copy of the source text in src; the
// copy lets the child's own local memory hold it.
func (c *Context) start(fork func() (*Context, error), src object.Object) (Status, error) {
	text, err := c.readString(src)
	if err != nil {
		return proceed(err)
	}
	child, err := fork()
	if err != nil {
		return proceed(err)
	}
	if err := child.ExecString(text); err != nil {
		return proceed(err)
	}
	return StatusSwitch, c.Push(object.Context(child.id))
}

// join waits for a context that shares c's local memory to exit, then pushes
// a mark followed by its remaining operands and releases it.
func join(c *Context, args []object.Object) (Status, error) {
	id := args[0].ContextID()
	target, ok := c.rt.Context(id)
	if !ok || target == c {
		return proceed(fault.Errorf(fault.InvalidContext, "join of context %v", id))
	}
	if target.local != c.local {
		return proceed(fault.Errorf(fault.InvalidContext, "join of context %v with private local memory", id))
	}
	if target.state != exited {
		return StatusIOBlock, nil
	}
	if err := c.os.Push(object.Mark()); err != nil {
		return proceed(err)
	}
	if err := c.Push(target.Operands()...); err != nil {
		return proceed(err)
	}
	target.Release()
	return StatusOK, nil
}

// Park-Miller minimal standard generator.
const (
	randMultiplier = 16807
	randModulus    = 2147483647
)

func (c *Context) rand() uint32 {
	c.seed = uint32(uint64(c.seed) * randMultiplier % randModulus)
	return c.seed
}

func randomOps() []builtin {
	return []builtin{
		def("rand", sig(func(c *Context, _ []object.Object) (Status, error) {
			return c.push(object.Int(int64(c.rand())))
		})),
		def("srand", sig(func(c *Context, args []object.Object) (Status, error) {
			seed := args[0].Int() % randModulus
			if seed < 0 {
				seed += randModulus
			}
			if seed == 0 {
				seed = 1
			}
			c.seed = uint32(seed)
			return StatusOK, nil
		}, intArg)),
		def("rrand", sig(func(c *Context, _ []object.Object) (Status, error) {
			return c.push(object.Int(int64(c.seed)))
		})),
	}
}
