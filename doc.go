/* Package main: gopost -- a managed VM for a small PostScript dialect

gopost runs programs in a subset of the PostScript language on top of a
memory model of its own: every composite object (array, string, dictionary)
lives in a byte arena owned by a Memory, and is referred to only by an entity
id, an offset, and a length. Objects never hold Go pointers into the arena,
so the arena may move when it grows, be collected, or be rolled back by
restore, without invalidating anything the program holds.

Memory

Each Memory is an arena plus an entity table mapping ids to {address, size,
mark} entries. Allocation prefers first-fit reuse of entities put on the free
list by the collector; after a configurable number of misses it forces a
collection, and a fresh allocation that would exceed the memory limit
collects once more before failing with VMerror.

Collection is mark and sweep. The roots of a memory are found by the runtime:
the operand, exec, dictionary and hold stacks of every context using it,
their permanent dictionaries, and the strings materialized for names.

save snapshots a local memory: the first mutation of any entity after a save
copies it aside, and restore exchanges every such copy back into place.

Banks

Every context has a local and a global memory. Composite objects carry their
bank, and a global object may never refer to a local one, so a local
collection need trace only local memory, while a global collection traces
through every local memory whose context shares the global one.

Contexts and scheduling

fork, launch and spawn create contexts that share both memories, only the
global memory, or neither with their parent. Contexts are scheduled round
robin, each for a bounded number of steps; join waits on another context
sharing the same local memory, and a round in which every remaining context
is blocked is a deadlock, ending them with invalidcontext.

Interpreter

Step executes one object from the top of the exec stack. Executable strings
are tokenized lazily, one token per step; procedures are unrolled one element
per step; operators are dispatched by matching the operand stack against
their signatures. Loops keep their state on the exec stack as continuations,
so that exit and stop unwind them by simply popping.

Errors raised by operators are handled within the language: the operands are
restored, the offending object is pushed, and the matching errordict handler
runs. The default handler is stop, which unwinds to the nearest stopped; with
none, the error ends the run and is returned to the Go caller.

See main.go for the command line: it runs the named files in one context, or
standard input, with a REPL prompt when standard input is a terminal.

*/
package main
