package main

import (
	"io"

	"github.com/jcorbin/gopost/internal/flushio"
)

// RuntimeOption configures a Runtime created by New.
type RuntimeOption interface{ apply(rt *Runtime) }

// RuntimeOptions combines any number of options into one.
func RuntimeOptions(opts ...RuntimeOption) RuntimeOption {
	var res runtimeOptions
	for _, opt := range opts {
		switch impl := opt.(type) {
		case nil:
		case runtimeOptions:
			res = append(res, impl...)
		default:
			res = append(res, opt)
		}
	}
	if len(res) == 1 {
		return res[0]
	}
	return res
}

type runtimeOptions []RuntimeOption

func (opts runtimeOptions) apply(rt *Runtime) {
	for _, opt := range opts {
		opt.apply(rt)
	}
}

var defaultOptions = RuntimeOptions(
	withOutput(io.Discard),
	collectEveryOption(DefaultCollectEvery),
)

type withLogfn func(mess string, args ...interface{})

func (logfn withLogfn) apply(rt *Runtime) {
	rt.logfn = logfn
}

type outputOption struct{ io.Writer }
type teeOption struct{ io.Writer }
type memLimitOption uint32
type pageSizeOption uint32
type collectEveryOption int
type maxContextsOption int

func withOutput(w io.Writer) outputOption { return outputOption{w} }
func withTee(w io.Writer) teeOption       { return teeOption{w} }

func (o outputOption) apply(rt *Runtime) {
	if rt.out != nil {
		rt.out.Flush()
	}
	rt.out = flushio.NewWriteFlusher(o.Writer)
}

func (o teeOption) apply(rt *Runtime) {
	rt.out = flushio.WriteFlushers(rt.out, flushio.NewWriteFlusher(o.Writer))
}

func (lim memLimitOption) apply(rt *Runtime)   { rt.memLimit = uint32(lim) }
func (size pageSizeOption) apply(rt *Runtime)  { rt.pageSize = uint32(size) }
func (n collectEveryOption) apply(rt *Runtime) { rt.collectEvery = int(n) }
func (n maxContextsOption) apply(rt *Runtime)  { rt.maxContexts = int(n) }
