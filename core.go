package main

import (
	"fmt"
	"strings"
)

// logging carries the optional trace function shared by the runtime and its
// contexts. Each line is prefixed by a short mark naming its source:
//
//	+ -   context created/exited
//	>     scheduler
//	!     error raised
//	s     save/restore
//	@ @@  local/global memory
type logging struct {
	logfn func(mess string, args ...interface{})

	markWidth int
}

func (log *logging) logf(mark, mess string, args ...interface{}) {
	if log.logfn == nil {
		return
	}
	if n := log.markWidth - len(mark); n > 0 {
		mark = strings.Repeat(" ", n) + mark
	} else if n < 0 {
		log.markWidth = len(mark)
	}
	if len(args) > 0 {
		mess = fmt.Sprintf(mess, args...)
	}
	log.logfn("%v %v", mark, mess)
}
