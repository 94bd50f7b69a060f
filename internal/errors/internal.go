// SPDX-License-Identifier: Apache-2.0
package errors

import "fmt"

// InternalError is a compiler bug: an IR well-formedness violation, a
// pass invariant violation, or resource exhaustion in the register
// allocator. It is never recoverable — the driver prints it and
// terminates instead of emitting code.
type InternalError struct {
	Pass string // the pass or component that detected the bug
	Msg  string
}

func (e *InternalError) Error() string {
	if e.Pass != "" {
		return fmt.Sprintf("internal error [%s]: %s (%s)", ErrorInternal, e.Msg, e.Pass)
	}
	return fmt.Sprintf("internal error [%s]: %s", ErrorInternal, e.Msg)
}

// Internalf builds an InternalError attributed to a pass or component.
func Internalf(pass, format string, args ...any) *InternalError {
	return &InternalError{Pass: pass, Msg: fmt.Sprintf(format, args...)}
}
