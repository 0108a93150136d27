package asm

import "fmt"

// EmitError reports an Asm-stage failure: a malformed '.asm' source file, a reference to one of
// the reserved built-in labels, or an instruction shape the grammar does not recognize.
type EmitError struct{ Msg string }

func (e EmitError) Error() string { return fmt.Sprintf("asm error: %s", e.Msg) }

func emitErrorf(format string, args ...any) error { return EmitError{Msg: fmt.Sprintf(format, args...)} }
