package jack

import (
	"fmt"
	"strconv"
	"strings"
)

// ----------------------------------------------------------------------------
// Jack Type Checker

// The TypeChecker walks a 'jack.Program' and verifies that every identifier referenced by an
// expression or statement resolves to a declared variable, class or subroutine of a compatible
// kind (e.g. a VarExpr refers to a var currently in scope, a FuncCallExpr target actually exists
// and is invoked with the right number of arguments, a LetStmt LHS is an assignable place).
//
// This is deliberately NOT a full type-inference pass: we do not track or reconcile operand types
// across arithmetic/logic expressions (Jack itself does very little of that at compile time, most
// type mismatches are only caught at runtime by the VM/OS). What we do guarantee is that every name
// the lowering phase will later need to resolve can in fact be resolved, so 'Lowerer' never has to
// fail on an undeclared identifier it could have caught earlier.
type TypeChecker struct {
	program Program
	scopes  ScopeTable // Keeps track of the scopes and declared variables inside each one
}

func NewTypeChecker(program Program) TypeChecker {
	return TypeChecker{program: program, scopes: ScopeTable{}}
}

func (tc *TypeChecker) Check() (bool, error) {
	if tc.program == nil {
		return false, fmt.Errorf("the given 'program' is empty or nil")
	}

	for name, class := range tc.program {
		if _, err := tc.HandleClass(class); err != nil {
			return false, fmt.Errorf("error type-checking class '%s': %w", name, err)
		}
	}

	return true, nil
}

// Specialized function to type-check a 'jack.Class' and nested fields.
func (tc *TypeChecker) HandleClass(class Class) (bool, error) {
	tc.scopes.PushClassScope(class.Name) // Keep track of the current scope being processed
	defer tc.scopes.PopClassScope()      // Reset the function name after processing

	for _, field := range class.Fields.Entries() {
		if _, err := tc.HandleVarStmt(VarStmt{Vars: []Variable{field}}); err != nil {
			return false, fmt.Errorf("error handling field '%s' in class '%s': %w", field.Name, class.Name, err)
		}
	}

	for _, subroutine := range class.Subroutines.Entries() {
		if _, err := tc.HandleSubroutine(subroutine); err != nil {
			return false, fmt.Errorf("error handling subroutine '%s' in class '%s': %w", subroutine.Name, class.Name, err)
		}
	}

	return true, nil
}

// Specialized function to type-check a 'jack.Subroutine' and nested fields.
func (tc *TypeChecker) HandleSubroutine(subroutine Subroutine) (bool, error) {
	tc.scopes.PushSubRoutineScope(subroutine.Name) // Keep track of the current subroutine function being processed
	defer tc.scopes.PopSubroutineScope()           // Reset the function name after processing

	// Methods implicitly receive the object instance as their first (hidden) argument, register it
	// so that 'this'-scoped lookups inside the body resolve just like they will during lowering.
	if subroutine.Type == Method {
		tc.scopes.RegisterVariable(Variable{Name: "__obj", Type: Argument, DataType: Object})
	}

	for _, arg := range subroutine.Arguments.Entries() {
		// Like this we're actually supporting shadowing of variables, so if a variable
		// with the same name is already present in the current scope, we just temporarily
		// override it with the most update one instead of returning an error (like Go does).
		tc.scopes.RegisterVariable(arg)
	}

	for _, stmt := range subroutine.Statements {
		if _, err := tc.HandleStatement(stmt); err != nil {
			return false, fmt.Errorf("error handling nested statement %T: %w", stmt, err)
		}
	}

	return true, nil
}

// Generalized function to type-check multiple statements types.
func (tc *TypeChecker) HandleStatement(stmt Statement) (bool, error) {
	switch tStmt := stmt.(type) {
	case DoStmt:
		return tc.HandleDoStmt(tStmt)
	case VarStmt:
		return tc.HandleVarStmt(tStmt)
	case LetStmt:
		return tc.HandleLetStmt(tStmt)
	case IfStmt:
		return tc.HandleIfStmt(tStmt)
	case WhileStmt:
		return tc.HandleWhileStmt(tStmt)
	case ReturnStmt:
		return tc.HandleReturnStmt(tStmt)
	default:
		return false, resolveErrorf("unrecognized statement: %T", stmt)
	}
}

// Specialized function to type-check a 'jack.DoStmt'.
func (tc *TypeChecker) HandleDoStmt(statement DoStmt) (bool, error) {
	return tc.HandleExpression(statement.FuncCall)
}

// Specialized function to type-check a 'jack.VarStmt'. Just registers the declared variables,
// there is nothing further to validate about a bare declaration.
func (tc *TypeChecker) HandleVarStmt(statement VarStmt) (bool, error) {
	for _, variable := range statement.Vars {
		tc.scopes.RegisterVariable(variable)
	}
	return true, nil
}

// Specialized function to type-check a 'jack.LetStmt'. Verifies the LHS is an assignable place
// (a declared variable or array cell) and that the RHS expression resolves correctly.
func (tc *TypeChecker) HandleLetStmt(statement LetStmt) (bool, error) {
	switch lhs := statement.Lhs.(type) {
	case VarExpr:
		if _, err := tc.HandleVarExpr(lhs); err != nil {
			return false, fmt.Errorf("error resolving LHS variable: %w", err)
		}
	case ArrayExpr:
		if _, err := tc.HandleArrayExpr(lhs); err != nil {
			return false, fmt.Errorf("error resolving LHS array expression: %w", err)
		}
	default:
		return false, resolveErrorf("LHS expression must be either a 'VarExpr' or an 'ArrayExpr', got: %T", statement.Lhs)
	}

	return tc.HandleExpression(statement.Rhs)
}

// Specialized function to type-check a 'jack.WhileStmt'.
func (tc *TypeChecker) HandleWhileStmt(statement WhileStmt) (bool, error) {
	if _, err := tc.HandleExpression(statement.Condition); err != nil {
		return false, fmt.Errorf("error handling while condition expression: %w", err)
	}

	for _, stmt := range statement.Block {
		if _, err := tc.HandleStatement(stmt); err != nil {
			return false, fmt.Errorf("error handling statement in while block: %w", err)
		}
	}

	return true, nil
}

// Specialized function to type-check a 'jack.IfStmt'.
func (tc *TypeChecker) HandleIfStmt(statement IfStmt) (bool, error) {
	if _, err := tc.HandleExpression(statement.Condition); err != nil {
		return false, fmt.Errorf("error handling if condition expression: %w", err)
	}

	for _, stmt := range statement.ThenBlock {
		if _, err := tc.HandleStatement(stmt); err != nil {
			return false, fmt.Errorf("error handling statement in 'then' block: %w", err)
		}
	}

	for _, stmt := range statement.ElseBlock {
		if _, err := tc.HandleStatement(stmt); err != nil {
			return false, fmt.Errorf("error handling statement in 'else' block: %w", err)
		}
	}

	return true, nil
}

// Specialized function to type-check a 'jack.ReturnStmt'.
func (tc *TypeChecker) HandleReturnStmt(statement ReturnStmt) (bool, error) {
	if statement.Expr == nil {
		return true, nil // A bare 'return;' needs no further checks
	}
	return tc.HandleExpression(statement.Expr)
}

// Generalized function to type-check multiple expression types.
func (tc *TypeChecker) HandleExpression(expr Expression) (bool, error) {
	switch tExpr := expr.(type) {
	case VarExpr:
		return tc.HandleVarExpr(tExpr)
	case LiteralExpr:
		return tc.HandleLiteralExpr(tExpr)
	case ArrayExpr:
		return tc.HandleArrayExpr(tExpr)
	case UnaryExpr:
		return tc.HandleUnaryExpr(tExpr)
	case BinaryExpr:
		return tc.HandleBinaryExpr(tExpr)
	case FuncCallExpr:
		return tc.HandleFuncCallExpr(tExpr)
	default:
		return false, resolveErrorf("unrecognized expression: %T", expr)
	}
}

// Specialized function to type-check a 'jack.VarExpr', resolving the referenced identifier.
func (tc *TypeChecker) HandleVarExpr(expression VarExpr) (bool, error) {
	if expression.Var == "this" { // Always available inside methods and constructors, nothing to resolve
		return true, nil
	}

	if _, _, err := tc.scopes.ResolveVariable(expression.Var); err != nil {
		return false, fmt.Errorf("error resolving variable '%s': %w", expression.Var, err)
	}

	return true, nil
}

// Specialized function to type-check a 'jack.LiteralExpr'. Only validates the literal is well
// formed for its own kind (e.g. a valid integer, a single char), no cross-type comparison is done.
func (tc *TypeChecker) HandleLiteralExpr(expression LiteralExpr) (bool, error) {
	switch expression.Type {
	case Int:
		// Jack integers are 15-bit unsigned (0..32767): the sign bit is reserved for the VM's
		// two's-complement arithmetic, so a 16-bit value would silently alias a negative one.
		if _, err := strconv.ParseUint(expression.Value, 10, 15); err != nil {
			return false, fmt.Errorf("error parsing integer literal '%s': %w", expression.Value, err)
		}
	case Bool:
		if _, err := strconv.ParseBool(expression.Value); err != nil {
			return false, fmt.Errorf("error parsing bool literal '%s': %w", expression.Value, err)
		}
	case Char:
		if len(expression.Value) != 1 {
			return false, resolveErrorf("error parsing char literal '%s'", expression.Value)
		}
	case Object:
		if expression.Value != "null" {
			return false, resolveErrorf("object literal are not supported '%s'", expression.Value)
		}
	case String:
		// Any byte sequence is a legal string literal, nothing further to validate.
	default:
		return false, resolveErrorf("unrecognized literal expression type: %s", expression.Type)
	}

	return true, nil
}

// Specialized function to type-check a 'jack.ArrayExpr'.
func (tc *TypeChecker) HandleArrayExpr(expression ArrayExpr) (bool, error) {
	if _, err := tc.HandleVarExpr(VarExpr{Var: expression.Var}); err != nil {
		return false, fmt.Errorf("error resolving base variable expression: %w", err)
	}

	if _, err := tc.HandleExpression(expression.Index); err != nil {
		return false, fmt.Errorf("error handling index expression: %w", err)
	}

	return true, nil
}

// Specialized function to type-check a 'jack.UnaryExpr'.
func (tc *TypeChecker) HandleUnaryExpr(expression UnaryExpr) (bool, error) {
	switch expression.Type {
	case Minus, BoolNot:
		return tc.HandleExpression(expression.Rhs)
	default:
		return false, resolveErrorf("unrecognized unary expression type: %s", expression.Type)
	}
}

// Specialized function to type-check a 'jack.BinaryExpr'.
func (tc *TypeChecker) HandleBinaryExpr(expression BinaryExpr) (bool, error) {
	if _, err := tc.HandleExpression(expression.Lhs); err != nil {
		return false, fmt.Errorf("error handling nested LHS expression: %w", err)
	}
	if _, err := tc.HandleExpression(expression.Rhs); err != nil {
		return false, fmt.Errorf("error handling nested RHS expression: %w", err)
	}

	switch expression.Type {
	case Plus, Minus, Divide, Multiply, BoolOr, BoolAnd, Equal, LessThan, GreatThan:
		return true, nil
	default:
		return false, resolveErrorf("unrecognized binary expression type: %s", expression.Type)
	}
}

// Specialized function to type-check a 'jack.FuncCallExpr'. Resolves the call target (a local
// subroutine, an object's method or an external class' function/constructor) and checks the
// declared subroutine exists; argument count is validated against its parameter list.
func (tc *TypeChecker) HandleFuncCallExpr(expression FuncCallExpr) (bool, error) {
	for _, arg := range expression.Arguments {
		if _, err := tc.HandleExpression(arg); err != nil {
			return false, fmt.Errorf("error handling argument expression: %w", err)
		}
	}

	if !expression.IsExtCall {
		className := strings.Split(tc.scopes.GetScope(), ".")[0]

		class, exists := tc.program[className]
		if !exists {
			return false, resolveErrorf("class definition not found for '%s'", className)
		}

		routine, exists := class.Subroutines.Get(expression.FuncName)
		if !exists {
			return false, resolveErrorf("subroutine '%s' not found in class '%s'", expression.FuncName, className)
		}

		return tc.checkArity(routine, len(expression.Arguments))
	}

	// Either 'someVar.method(...)' (a method call on a resolvable object instance)...
	if _, variable, err := tc.scopes.ResolveVariable(expression.Var); err == nil {
		if variable.DataType != Object {
			return false, resolveErrorf("variable '%s' is not an object", expression.Var)
		}

		class, exists := tc.program[variable.ClassName]
		if !exists {
			return false, resolveErrorf("class definition not found for '%s'", variable.ClassName)
		}

		routine, exists := class.Subroutines.Get(expression.FuncName)
		if !exists {
			return false, resolveErrorf("subroutine '%s' not found in class '%s'", expression.FuncName, variable.ClassName)
		}

		return tc.checkArity(routine, len(expression.Arguments))
	}

	// ... or 'ClassName.function(...)' / 'ClassName.new(...)' (a static function or constructor call).
	class, exists := tc.program[expression.Var]
	if !exists {
		return false, resolveErrorf("class definition not found for '%s'", expression.Var)
	}

	routine, exists := class.Subroutines.Get(expression.FuncName)
	if !exists {
		return false, resolveErrorf("subroutine '%s' not found in class '%s'", expression.FuncName, class.Name)
	}

	if routine.Type == Method {
		return false, resolveErrorf("subroutine '%s' in class '%s' is a method, it cannot be called on the class itself", expression.FuncName, class.Name)
	}

	return tc.checkArity(routine, len(expression.Arguments))
}

// Verifies the number of arguments provided at a call site matches the subroutine's declared
// parameter list. Methods are checked against their declared arity since the implicit 'this'
// argument is only added during lowering, it is never part of the Jack-level call expression.
func (tc *TypeChecker) checkArity(routine Subroutine, nArgs int) (bool, error) {
	if want := routine.Arguments.Size(); want != nArgs {
		return false, resolveErrorf("subroutine '%s' expects %d argument(s), got %d", routine.Name, want, nArgs)
	}
	return true, nil
}
