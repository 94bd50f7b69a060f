// SPDX-License-Identifier: Apache-2.0
package errors

// Error codes for the cmid toolchain.
// These codes are used in error messages and diagnostics to provide
// consistent error identification across the CLI, REPL, and LSP server.
//
// Error code ranges:
// E0001-E0099: Assembler semantic errors
// E0100-E0199: Parser errors
// E0900-E0999: Internal (compiler-bug) errors
const (
	// E0001: Reference to a temporary with no prior definition
	ErrorUndefinedTemp = "E0001"

	// E0002: Jump or phi referencing a label not defined in the function
	ErrorUndefinedLabel = "E0002"

	// E0003: Unknown opcode mnemonic
	ErrorUnknownOpcode = "E0003"

	// E0004: Wrong operand count for an opcode
	ErrorWrongArity = "E0004"

	// E0005: Operand kind not valid for the opcode (e.g. a call target
	// that is not a global symbol)
	ErrorTypeMismatch = "E0005"

	// E0006: Duplicate block label or global symbol
	ErrorRedefinition = "E0006"

	// E0007: Non-constant operand where a constant is required
	ErrorNonConstant = "E0007"

	// E0900: IR well-formedness or pass invariant violation — a bug in
	// the compiler itself, never a user error
	ErrorInternal = "E0900"
)
