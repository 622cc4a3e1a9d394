// Package fault provides the error taxonomy shared by the memory, object and
// interpreter layers.
//
// Each Kind is itself an error value, so callers wrap it with context through
// fmt.Errorf("...: %w", fault.RangeCheck) and classify with errors.Is or KindOf.
package fault

import (
	"errors"
	"fmt"
)

// Kind names a class of error as the language reports it, e.g. "typecheck".
type Kind uint8

// Kinds, in no particular order beyond None being zero.
const (
	None Kind = iota
	VMError
	StackOverflow
	StackUnderflow
	DictStackOverflow
	DictStackUnderflow
	ExecStackOverflow
	RangeCheck
	TypeCheck
	Undefined
	InvalidAccess
	InvalidRestore
	InvalidExit
	UnmatchedMark
	Unregistered
	LimitCheck
	SyntaxError
	Interrupt
	InvalidContext
	UndefinedResult

	numKinds
)

var kindNames = [numKinds]string{
	None:               "noerror",
	VMError:            "VMerror",
	StackOverflow:      "stackoverflow",
	StackUnderflow:     "stackunderflow",
	DictStackOverflow:  "dictstackoverflow",
	DictStackUnderflow: "dictstackunderflow",
	ExecStackOverflow:  "execstackoverflow",
	RangeCheck:         "rangecheck",
	TypeCheck:          "typecheck",
	Undefined:          "undefined",
	InvalidAccess:      "invalidaccess",
	InvalidRestore:     "invalidrestore",
	InvalidExit:        "invalidexit",
	UnmatchedMark:      "unmatchedmark",
	Unregistered:       "unregistered",
	LimitCheck:         "limitcheck",
	SyntaxError:        "syntaxerror",
	Interrupt:          "interrupt",
	InvalidContext:     "invalidcontext",
	UndefinedResult:    "undefinedresult",
}

// Kinds returns every error kind other than None, in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, numKinds-1)
	for k := None + 1; k < numKinds; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func (k Kind) Error() string { return k.String() }

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("fault.Kind(%d)", uint8(k))
}

// Fatal returns true for kinds that indicate core corruption or unrecoverable
// exhaustion, rather than a user error that the language may handle.
func (k Kind) Fatal() bool {
	return k == VMError || k == Unregistered
}

// KindOf returns the Kind wrapped within err, Unregistered if err is non-nil
// but carries no Kind, or None for a nil error.
func KindOf(err error) Kind {
	if err == nil {
		return None
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return Unregistered
}

// Errorf wraps kind with a formatted message.
func Errorf(kind Kind, mess string, args ...interface{}) error {
	if len(args) > 0 {
		mess = fmt.Sprintf(mess, args...)
	}
	return kindError{kind, mess}
}

type kindError struct {
	kind Kind
	mess string
}

func (err kindError) Error() string { return fmt.Sprintf("%v: %v", err.kind, err.mess) }
func (err kindError) Unwrap() error { return err.kind }
