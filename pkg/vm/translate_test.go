package vm_test

import (
	"testing"

	"github.com/hackforge/n2t/pkg/asm"
	"github.com/hackforge/n2t/pkg/vm"
)

func TestTranslatePushConstant(t *testing.T) {
	tr := vm.NewTranslator("Foo")
	got, err := tr.TranslateOp(vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 2})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	want := []asm.Instruction{
		asm.AInstruction{Location: "2"}, asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "A", Comp: "M"}, asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "M", Comp: "M+1"},
	}

	if len(got) != len(want) {
		t.Fatalf("expected %d instructions, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("instruction %d mismatch: got %#v want %#v", i, got[i], want[i])
		}
	}
}

func TestTranslatePushStaticIsFileScoped(t *testing.T) {
	tr := vm.NewTranslator("Foo")
	got, err := tr.TranslateOp(vm.MemoryOp{Operation: vm.Push, Segment: vm.Static, Offset: 3})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	want := asm.AInstruction{Location: "Foo.3"}
	if got[0] != want {
		t.Fatalf("expected static variable to be namespaced by file stem, got %#v", got[0])
	}
}

func TestTranslateArithmeticAdd(t *testing.T) {
	tr := vm.NewTranslator("Foo")
	got, err := tr.TranslateOp(vm.ArithmeticOp{Operation: vm.Add})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	want := []asm.Instruction{
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "A", Comp: "M-1"}, asm.CInstruction{Dest: "D", Comp: "M"},
		asm.CInstruction{Dest: "A", Comp: "A-1"}, asm.CInstruction{Dest: "D", Comp: "M+D"},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "A", Comp: "M-1"}, asm.CInstruction{Dest: "A", Comp: "A-1"}, asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "M", Comp: "M-1"},
	}

	if len(got) != len(want) {
		t.Fatalf("expected %d instructions, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("instruction %d mismatch: got %#v want %#v", i, got[i], want[i])
		}
	}
}

func TestTranslateEqProducesUniqueLabelsPerCall(t *testing.T) {
	tr := vm.NewTranslator("Foo")

	first, err := tr.TranslateOp(vm.ArithmeticOp{Operation: vm.Eq})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	second, err := tr.TranslateOp(vm.ArithmeticOp{Operation: vm.Eq})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	firstLabel := first[6].(asm.AInstruction).Location
	secondLabel := second[6].(asm.AInstruction).Location
	if firstLabel == secondLabel {
		t.Fatalf("expected distinct labels across successive comparisons, both got %q", firstLabel)
	}
	if firstLabel != "FOO_LABEL_0" {
		t.Fatalf("expected first comparison label 'FOO_LABEL_0', got %q", firstLabel)
	}
}

func TestTranslateFunctionZeroInitializesLocals(t *testing.T) {
	tr := vm.NewTranslator("Foo")
	got, err := tr.TranslateOp(vm.FuncDecl{Name: "Foo.bar", NLocal: 2})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if got[0] != (asm.LabelDecl{Name: "Foo.bar"}) {
		t.Fatalf("expected leading label declaration, got %#v", got[0])
	}
	// 1 label + 2 locals * 7 instructions (push constant 0) each
	if len(got) != 1+2*7 {
		t.Fatalf("expected %d instructions, got %d", 1+2*7, len(got))
	}
}

func TestTranslateReturnRestoresInEndframeOrder(t *testing.T) {
	tr := vm.NewTranslator("Foo")
	got, err := tr.TranslateOp(vm.ReturnOp{})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	restoreTargets := []string{}
	for _, inst := range got {
		if a, ok := inst.(asm.AInstruction); ok {
			switch a.Location {
			case "THAT", "THIS", "ARG", "LCL":
				restoreTargets = append(restoreTargets, a.Location)
			}
		}
	}

	// LCL is read once up front to snapshot 'endframe'; ARG is touched twice before the
	// teardown walk (storing the return value, then recomputing SP); the remaining four
	// entries are the THAT/THIS/ARG/LCL restore walk, in subtract-from-endframe order.
	want := []string{"LCL", "ARG", "ARG", "THAT", "THIS", "ARG", "LCL"}
	if len(restoreTargets) != len(want) {
		t.Fatalf("expected %d A-instructions touching frame registers, got %d: %v", len(want), len(restoreTargets), restoreTargets)
	}
	for i := range want {
		if restoreTargets[i] != want[i] {
			t.Fatalf("restore order mismatch at %d: got %s want %s", i, restoreTargets[i], want[i])
		}
	}
}

func TestTranslateLabelsAreScopedPerFunction(t *testing.T) {
	tr := vm.NewTranslator("Foo")

	// function Foo.a 0; label LOOP; goto LOOP
	aDecl, err := tr.TranslateOp(vm.FuncDecl{Name: "Foo.a", NLocal: 0})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	aLabel, err := tr.TranslateOp(vm.LabelDecl{Name: "LOOP"})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	aGoto, err := tr.TranslateOp(vm.GotoOp{Label: "LOOP", Jump: vm.Unconditional})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	// function Foo.b 0; label LOOP; goto LOOP (same label name, different function)
	bDecl, err := tr.TranslateOp(vm.FuncDecl{Name: "Foo.b", NLocal: 0})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	bLabel, err := tr.TranslateOp(vm.LabelDecl{Name: "LOOP"})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	bGoto, err := tr.TranslateOp(vm.GotoOp{Label: "LOOP", Jump: vm.Unconditional})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if aDecl[0] != (asm.LabelDecl{Name: "Foo.a"}) || bDecl[0] != (asm.LabelDecl{Name: "Foo.b"}) {
		t.Fatalf("expected function labels to stay unscoped, got %#v / %#v", aDecl[0], bDecl[0])
	}

	if aLabel[0] != (asm.LabelDecl{Name: "Foo.a$LOOP"}) {
		t.Fatalf("expected 'LOOP' inside 'Foo.a' to be scoped to 'Foo.a$LOOP', got %#v", aLabel[0])
	}
	if bLabel[0] != (asm.LabelDecl{Name: "Foo.b$LOOP"}) {
		t.Fatalf("expected 'LOOP' inside 'Foo.b' to be scoped to 'Foo.b$LOOP', got %#v", bLabel[0])
	}
	if aLabel[0] == bLabel[0] {
		t.Fatalf("expected the two functions' same-named labels to resolve to distinct targets")
	}

	if aGoto[0] != (asm.AInstruction{Location: "Foo.a$LOOP"}) {
		t.Fatalf("expected goto inside 'Foo.a' to target 'Foo.a$LOOP', got %#v", aGoto[0])
	}
	if bGoto[0] != (asm.AInstruction{Location: "Foo.b$LOOP"}) {
		t.Fatalf("expected goto inside 'Foo.b' to target 'Foo.b$LOOP', got %#v", bGoto[0])
	}
}

func TestBootstrapInitializesStackAndCallsSysInit(t *testing.T) {
	got := vm.Bootstrap()

	if got[0] != (asm.AInstruction{Location: "256"}) {
		t.Fatalf("expected bootstrap to load 256 first, got %#v", got[0])
	}

	sawSysInit := false
	for _, inst := range got {
		if a, ok := inst.(asm.AInstruction); ok && a.Location == "Sys.init" {
			sawSysInit = true
		}
	}
	if !sawSysInit {
		t.Fatal("expected bootstrap to call Sys.init")
	}
}
