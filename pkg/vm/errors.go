package vm

import "fmt"

// EmitError reports a VM-stage failure: a malformed '.vm' source file, a segment/offset the
// calling convention does not define, or an operation with no translation. It covers both the
// parsing and the translation half of this package, mirroring the teacher's single-stage error
// shape for the assembler.
type EmitError struct{ Msg string }

func (e EmitError) Error() string { return fmt.Sprintf("vm error: %s", e.Msg) }

func emitErrorf(format string, args ...any) error { return EmitError{Msg: fmt.Sprintf(format, args...)} }
