package jack

import "fmt"

// LexError reports a malformed token: an illegal character, an unterminated string or block
// comment, or an integer literal outside the 15-bit range the VM's 'push constant' accepts.
type LexError struct{ Msg string }

func (e LexError) Error() string { return fmt.Sprintf("lex error: %s", e.Msg) }

// ParseError reports an unexpected token or a missing delimiter: the parser does not attempt
// recovery, so this always aborts the enclosing 'Parser.Parse' call.
type ParseError struct{ Msg string }

func (e ParseError) Error() string { return fmt.Sprintf("parse error: %s", e.Msg) }

// ResolveError reports a reference to an identifier that no scope (subroutine or class)
// declares.
type ResolveError struct{ Msg string }

func (e ResolveError) Error() string { return fmt.Sprintf("resolve error: %s", e.Msg) }

// parseErrorf builds a ParseError the same way 'fmt.Errorf' builds a plain error, letting
// every "expected node ..." guard across the parser report a typed, 'errors.As'-able failure
// without repeating a struct literal at each of its call sites.
func parseErrorf(format string, args ...any) error { return ParseError{Msg: fmt.Sprintf(format, args...)} }

// resolveErrorf builds a ResolveError, used by the type checker for the same class of failure
// 'ScopeTable.ResolveVariable' reports: a name (variable, class or subroutine) that does not
// resolve, or resolves to something of the wrong kind/arity.
func resolveErrorf(format string, args ...any) error {
	return ResolveError{Msg: fmt.Sprintf(format, args...)}
}
