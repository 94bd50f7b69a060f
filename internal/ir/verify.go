// SPDX-License-Identifier: Apache-2.0
package ir

import "fmt"

// InvariantError reports a violated IR well-formedness invariant
//. These are always programmer bugs in the compiler
// itself (malformed IR reaching a pass that assumes it is well-formed),
// never front-end user errors, and callers are expected to treat them as
// fatal.
type InvariantError struct {
	Func string
	Msg  string
}

func (e *InvariantError) Error() string {
	if e.Func != "" {
		return fmt.Sprintf("ir: function %s: %s", e.Func, e.Msg)
	}
	return "ir: " + e.Msg
}

// Verify checks the structural invariants that don't
// require dominance information: terminator/successor agreement, phi
// arity against predecessor count, entry-block constraints, and
// allocation placement. The dominance-based "every use is dominated by
// its def" invariant is not checked here or by any other verifier.
func Verify(f *Function) []error {
	var errs []error
	blocks := f.Blocks()
	if len(blocks) == 0 {
		return errs
	}
	entry := blocks[0]
	if len(entry.Preds) != 0 {
		errs = append(errs, &InvariantError{f.Name, "entry block has predecessors"})
	}
	if len(entry.Phis) != 0 {
		errs = append(errs, &InvariantError{f.Name, "entry block has phi nodes"})
	}

	for _, b := range blocks {
		if err := verifyTerminator(f, b); err != nil {
			errs = append(errs, err)
		}
		for _, phi := range b.Phis {
			if len(phi.Args) != len(b.Preds) {
				errs = append(errs, &InvariantError{f.Name,
					fmt.Sprintf("phi in @%s has %d args but block has %d predecessors", blockLabel(b), len(phi.Args), len(b.Preds))})
			}
		}
		for _, in := range b.Instrs {
			if in.Op.IsAlloc() && b != entry {
				errs = append(errs, &InvariantError{f.Name,
					fmt.Sprintf("allocation outside entry block in @%s", blockLabel(b))})
			}
		}
	}
	return errs
}

func verifyTerminator(f *Function, b *Block) error {
	t := b.Term
	if t == nil {
		return &InvariantError{f.Name, fmt.Sprintf("block @%s has no terminator", blockLabel(b))}
	}
	switch t.Kind {
	case TermFallthrough:
		if len(t.Successors()) != 0 {
			return &InvariantError{f.Name, "fall-through terminator must have zero successors"}
		}
	case TermJmp:
		if t.True == nil {
			return &InvariantError{f.Name, fmt.Sprintf("jmp in @%s missing target", blockLabel(b))}
		}
	case TermJnz:
		if t.True == nil || t.False == nil || t.Arg == nil {
			return &InvariantError{f.Name, fmt.Sprintf("jnz in @%s missing condition or target", blockLabel(b))}
		}
	case TermRet:
		// return's optional value carries no successors; nothing further to check structurally.
	default:
		return &InvariantError{f.Name, fmt.Sprintf("unknown terminator kind in @%s", blockLabel(b))}
	}
	return nil
}

// VerifySingleDef checks that every temp the function currently tracks has
// exactly one def annotation — valid only to call after FillUses has run
// and after SSA construction.
func VerifySingleDef(f *Function) []error {
	var errs []error
	for _, t := range f.Temps() {
		if len(t.Defs) != 1 {
			errs = append(errs, &InvariantError{f.Name,
				fmt.Sprintf("temp %s has %d defs, want exactly 1", t, len(t.Defs))})
		}
	}
	return errs
}
