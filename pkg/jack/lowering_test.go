package jack_test

import (
	"testing"

	"github.com/hackforge/n2t/pkg/jack"
	"github.com/hackforge/n2t/pkg/utils"
	"github.com/hackforge/n2t/pkg/vm"
)

// fields builds an insertion-ordered variable map from a list of 'jack.Variable', keyed by name.
func fields(vars ...jack.Variable) utils.OrderedMap[string, jack.Variable] {
	m := utils.NewOrderedMap[string, jack.Variable]()
	for _, v := range vars {
		m.Set(v.Name, v)
	}
	return m
}

// subroutines builds an insertion-ordered subroutine map from a list of 'jack.Subroutine'.
func subroutines(subs ...jack.Subroutine) utils.OrderedMap[string, jack.Subroutine] {
	m := utils.NewOrderedMap[string, jack.Subroutine]()
	for _, s := range subs {
		m.Set(s.Name, s)
	}
	return m
}

func TestLowererSimpleFunction(t *testing.T) {
	// function void main() { return; }
	program := jack.Program{
		"Main": jack.Class{
			Name:        "Main",
			Fields:      fields(),
			Subroutines: subroutines(jack.Subroutine{Name: "main", Type: jack.Function, Return: jack.Void, Arguments: fields(), Statements: []jack.Statement{jack.ReturnStmt{}}}),
		},
	}

	lowerer := jack.NewLowerer(program)
	vmProgram, err := lowerer.Lowerer()
	if err != nil {
		t.Fatalf("unexpected error while lowering: %v", err)
	}

	module, exists := vmProgram.Get("Main")
	if !exists {
		t.Fatalf("expected to find a lowered 'Main' module")
	}

	expected := vm.Module{
		vm.FuncDecl{Name: "Main.main", NLocal: 0},
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 0},
		vm.ReturnOp{},
	}
	if len(module) != len(expected) {
		t.Fatalf("expected %d operations, got %d: %+v", len(expected), len(module), module)
	}
	for i := range expected {
		if module[i] != expected[i] {
			t.Errorf("operation %d: expected %+v, got %+v", i, expected[i], module[i])
		}
	}
}

func TestLowererMethodPrelude(t *testing.T) {
	// method int getX() { return x; }
	class := jack.Class{
		Name:   "Point",
		Fields: fields(jack.Variable{Name: "x", Type: jack.Field, DataType: jack.Int}),
		Subroutines: subroutines(jack.Subroutine{
			Name: "getX", Type: jack.Method, Return: jack.Int, Arguments: fields(),
			Statements: []jack.Statement{jack.ReturnStmt{Expr: jack.VarExpr{Var: "x"}}},
		}),
	}

	lowerer := jack.NewLowerer(jack.Program{"Point": class})
	vmProgram, err := lowerer.Lowerer()
	if err != nil {
		t.Fatalf("unexpected error while lowering: %v", err)
	}

	module, _ := vmProgram.Get("Point")

	expected := vm.Module{
		vm.FuncDecl{Name: "Point.getX", NLocal: 0},
		// Method prelude: sets 'this' from the implicit first argument
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Argument, Offset: 0},
		vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 0},
		// return x;
		vm.MemoryOp{Operation: vm.Push, Segment: vm.This, Offset: 0},
		vm.ReturnOp{},
	}
	if len(module) != len(expected) {
		t.Fatalf("expected %d operations, got %d: %+v", len(expected), len(module), module)
	}
	for i := range expected {
		if module[i] != expected[i] {
			t.Errorf("operation %d: expected %+v, got %+v", i, expected[i], module[i])
		}
	}
}

func TestLowererConstructorAllocation(t *testing.T) {
	// constructor Point new() { return this; }, with 2 declared fields
	class := jack.Class{
		Name: "Point",
		Fields: fields(
			jack.Variable{Name: "x", Type: jack.Field, DataType: jack.Int},
			jack.Variable{Name: "y", Type: jack.Field, DataType: jack.Int},
		),
		Subroutines: subroutines(jack.Subroutine{
			Name: "new", Type: jack.Constructor, Return: jack.Object, Arguments: fields(),
			Statements: []jack.Statement{jack.ReturnStmt{Expr: jack.VarExpr{Var: "this"}}},
		}),
	}

	lowerer := jack.NewLowerer(jack.Program{"Point": class})
	vmProgram, err := lowerer.Lowerer()
	if err != nil {
		t.Fatalf("unexpected error while lowering: %v", err)
	}

	module, _ := vmProgram.Get("Point")

	expected := vm.Module{
		vm.FuncDecl{Name: "Point.new", NLocal: 0},
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 2}, // 2 fields to allocate
		vm.FuncCallOp{Name: "Memory.alloc", NArgs: 1},
		vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 0},
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Pointer, Offset: 0}, // return this;
		vm.ReturnOp{},
	}
	if len(module) != len(expected) {
		t.Fatalf("expected %d operations, got %d: %+v", len(expected), len(module), module)
	}
	for i := range expected {
		if module[i] != expected[i] {
			t.Errorf("operation %d: expected %+v, got %+v", i, expected[i], module[i])
		}
	}
}

func TestLowererArithmeticExpression(t *testing.T) {
	// function int add(int a, int b) { return a + b; }
	args := fields(
		jack.Variable{Name: "a", Type: jack.Argument, DataType: jack.Int},
		jack.Variable{Name: "b", Type: jack.Argument, DataType: jack.Int},
	)
	class := jack.Class{
		Name:   "Math2",
		Fields: fields(),
		Subroutines: subroutines(jack.Subroutine{
			Name: "add", Type: jack.Function, Return: jack.Int, Arguments: args,
			Statements: []jack.Statement{
				jack.ReturnStmt{Expr: jack.BinaryExpr{Type: jack.Plus, Lhs: jack.VarExpr{Var: "a"}, Rhs: jack.VarExpr{Var: "b"}}},
			},
		}),
	}

	lowerer := jack.NewLowerer(jack.Program{"Math2": class})
	vmProgram, err := lowerer.Lowerer()
	if err != nil {
		t.Fatalf("unexpected error while lowering: %v", err)
	}

	module, _ := vmProgram.Get("Math2")

	expected := vm.Module{
		vm.FuncDecl{Name: "Math2.add", NLocal: 0},
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Argument, Offset: 0},
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Argument, Offset: 1},
		vm.ArithmeticOp{Operation: vm.Add},
		vm.ReturnOp{},
	}
	if len(module) != len(expected) {
		t.Fatalf("expected %d operations, got %d: %+v", len(expected), len(module), module)
	}
	for i := range expected {
		if module[i] != expected[i] {
			t.Errorf("operation %d: expected %+v, got %+v", i, expected[i], module[i])
		}
	}
}

func TestLowererWhileLabelsAreClassScoped(t *testing.T) {
	// function void main() { while (true) { let x = 0; } return; }
	class := jack.Class{
		Name:   "Loop",
		Fields: fields(),
		Subroutines: subroutines(jack.Subroutine{
			Name: "main", Type: jack.Function, Return: jack.Void, Arguments: fields(),
			Statements: []jack.Statement{
				jack.WhileStmt{
					Condition: jack.LiteralExpr{Type: jack.Bool, Value: "true"},
					Block:     []jack.Statement{jack.LetStmt{Lhs: jack.VarExpr{Var: "x"}, Rhs: jack.LiteralExpr{Type: jack.Int, Value: "0"}}},
				},
				jack.ReturnStmt{},
			},
		}),
	}
	class.Fields.Set("x", jack.Variable{Name: "x", Type: jack.Field, DataType: jack.Int})

	lowerer := jack.NewLowerer(jack.Program{"Loop": class})
	vmProgram, err := lowerer.Lowerer()
	if err != nil {
		t.Fatalf("unexpected error while lowering: %v", err)
	}

	module, _ := vmProgram.Get("Loop")

	var labels []string
	for _, op := range module {
		switch v := op.(type) {
		case vm.LabelDecl:
			labels = append(labels, v.Name)
		case vm.GotoOp:
			labels = append(labels, v.Label)
		}
	}

	want := []string{"LOOP_0", "LOOP_1", "LOOP_0", "LOOP_1"}
	if len(labels) != len(want) {
		t.Fatalf("expected %d label references, got %d: %v", len(want), len(labels), labels)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("label %d: expected %q, got %q", i, want[i], labels[i])
		}
	}
}

func TestLowererIfElseLabelsDontCollideAcrossClasses(t *testing.T) {
	// Both classes declare a 'main' that branches once, so their label counters both start at 0.
	// Labels must stay distinct because they're namespaced by the class name, not shared globally.
	ifStmt := jack.IfStmt{
		Condition: jack.LiteralExpr{Type: jack.Bool, Value: "true"},
		ThenBlock: []jack.Statement{jack.ReturnStmt{}},
		ElseBlock: []jack.Statement{jack.ReturnStmt{}},
	}
	program := jack.Program{
		"Alpha": jack.Class{Name: "Alpha", Fields: fields(), Subroutines: subroutines(jack.Subroutine{
			Name: "main", Type: jack.Function, Return: jack.Void, Arguments: fields(), Statements: []jack.Statement{ifStmt},
		})},
		"Beta": jack.Class{Name: "Beta", Fields: fields(), Subroutines: subroutines(jack.Subroutine{
			Name: "main", Type: jack.Function, Return: jack.Void, Arguments: fields(), Statements: []jack.Statement{ifStmt},
		})},
	}

	lowerer := jack.NewLowerer(program)
	vmProgram, err := lowerer.Lowerer()
	if err != nil {
		t.Fatalf("unexpected error while lowering: %v", err)
	}

	alpha, _ := vmProgram.Get("Alpha")
	beta, _ := vmProgram.Get("Beta")

	labelsOf := func(module vm.Module) []string {
		var labels []string
		for _, op := range module {
			if l, ok := op.(vm.LabelDecl); ok {
				labels = append(labels, l.Name)
			}
		}
		return labels
	}

	wantAlpha, wantBeta := []string{"ALPHA_0", "ALPHA_1", "ALPHA_2"}, []string{"BETA_0", "BETA_1", "BETA_2"}
	gotAlpha, gotBeta := labelsOf(alpha), labelsOf(beta)
	if len(gotAlpha) != len(wantAlpha) || len(gotBeta) != len(wantBeta) {
		t.Fatalf("expected %d labels in each class, got alpha=%v beta=%v", len(wantAlpha), gotAlpha, gotBeta)
	}
	for i := range wantAlpha {
		if gotAlpha[i] != wantAlpha[i] {
			t.Errorf("alpha label %d: expected %q, got %q", i, wantAlpha[i], gotAlpha[i])
		}
		if gotBeta[i] != wantBeta[i] {
			t.Errorf("beta label %d: expected %q, got %q", i, wantBeta[i], gotBeta[i])
		}
	}
}

func TestLowererUndeclaredVariableFails(t *testing.T) {
	class := jack.Class{
		Name:   "Broken",
		Fields: fields(),
		Subroutines: subroutines(jack.Subroutine{
			Name: "main", Type: jack.Function, Return: jack.Void, Arguments: fields(),
			Statements: []jack.Statement{jack.ReturnStmt{Expr: jack.VarExpr{Var: "undeclared"}}},
		}),
	}

	lowerer := jack.NewLowerer(jack.Program{"Broken": class})
	if _, err := lowerer.Lowerer(); err == nil {
		t.Fatalf("expected an error while resolving an undeclared variable, got none")
	}
}
