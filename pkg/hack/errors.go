package hack

import "fmt"

// EmitError reports a Hack-stage failure: a symbol that never resolves to an address, or an
// opcode the 16-bit instruction encoder does not recognize.
type EmitError struct{ Msg string }

func (e EmitError) Error() string { return fmt.Sprintf("hack error: %s", e.Msg) }

func emitErrorf(format string, args ...any) error { return EmitError{Msg: fmt.Sprintf(format, args...)} }
