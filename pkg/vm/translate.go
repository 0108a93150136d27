package vm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hackforge/n2t/pkg/asm"
)

// ----------------------------------------------------------------------------
// Vm Translator

// The Translator takes a 'vm.Module' (the in-memory, parser-produced AST for one '.vm'
// file/class) and produces its 'asm.Program' counterpart, implementing the full Hack
// calling convention (function/call/return) as well as every memory segment and every
// arithmetic/logic/bitwise operation.
//
// Each Translator instance is scoped to a single source file: the 'staticIdent' field
// namespaces that file's 'static' segment (and its "$ret.N" return labels) so that two
// classes can each use "static 0" and make calls without their static variables or return
// labels colliding once all modules are concatenated into one 'asm.Program' by the caller.
type Translator struct {
	staticIdent     string // File stem (e.g. "Main" for "Main.vm"), used for the static segment
	labelPrefix     string // Upper-cased stem + "_LABEL", prefixes compLogic's internal labels
	logicCount      uint16 // Counter for eq/lt/gt internal label uniqueness
	callCount       uint16 // Counter for call-site return label uniqueness
	currentFunction string // Name of the function currently being translated, scopes 'label'/'goto'
}

// Initializes a Translator scoped to the given source file stem (no directory, no extension).
func NewTranslator(fileStem string) Translator {
	return Translator{
		staticIdent: fileStem,
		labelPrefix: fmt.Sprintf("%s_LABEL", strings.ToUpper(fileStem)),
	}
}

// Bootstrap returns the fixed instruction sequence every Hack program starts with:
// initialize the stack pointer to 256 then call Sys.init (which never returns).
func Bootstrap() asm.Program {
	boot := NewTranslator("Sys")
	program := append(loadConstant("256"), asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "M", Comp: "D"})
	return append(program, boot.translateCall("Sys$ret.0", "Sys.init", 0)...)
}

// TranslateProgram translates every module in 'program' to one concatenated 'asm.Program',
// walking modules in their insertion order (the order the caller fed the source files in)
// so the same set of inputs always produces byte-identical output. Each module gets its
// own Translator instance, scoped to that file's stem.
func TranslateProgram(program Program) (asm.Program, error) {
	output := asm.Program{}

	for fileStem, module := range program.Entries() {
		translator := NewTranslator(fileStem)
		instructions, err := translator.Translate(module)
		if err != nil {
			return nil, fmt.Errorf("translating module %q: %w", fileStem, err)
		}
		output = append(output, instructions...)
	}

	return output, nil
}

// Translate converts every operation in 'module' to its 'asm.Instruction' sequence, in order.
func (t *Translator) Translate(module Module) (asm.Program, error) {
	program := asm.Program{}

	for _, operation := range module {
		instructions, err := t.TranslateOp(operation)
		if err != nil {
			return nil, err
		}
		program = append(program, instructions...)
	}

	return program, nil
}

// TranslateOp dispatches a single 'vm.Operation' to its specialized handler based on its
// concrete type, mirroring the type-switch dispatch style used across the whole codebase.
func (t *Translator) TranslateOp(operation Operation) (asm.Program, error) {
	switch op := operation.(type) {
	case MemoryOp:
		return t.translateMemoryOp(op)
	case ArithmeticOp:
		return t.translateArithmeticOp(op)
	case LabelDecl:
		return asm.Program{asm.LabelDecl{Name: t.scopedLabel(op.Name)}}, nil
	case GotoOp:
		return t.translateGotoOp(op)
	case FuncDecl:
		t.currentFunction = op.Name
		return t.translateFunction(op.Name, op.NLocal), nil
	case FuncCallOp:
		returnLabel := fmt.Sprintf("%s$ret.%d", t.staticIdent, t.callCount)
		t.callCount++
		return t.translateCall(returnLabel, op.Name, op.NArgs), nil
	case ReturnOp:
		return t.translateReturn(), nil
	default:
		return nil, emitErrorf("unrecognized operation '%T'", operation)
	}
}

// ----------------------------------------------------------------------------
// Memory operations

func (t *Translator) translateMemoryOp(op MemoryOp) (asm.Program, error) {
	if op.Operation == Push {
		return t.translatePush(op.Segment, op.Offset)
	}
	return t.translatePop(op.Segment, op.Offset)
}

func (t *Translator) translatePush(segment SegmentType, offset uint16) (asm.Program, error) {
	switch segment {
	case Constant:
		return append(loadConstant(fmt.Sprint(offset)), stackPush()...), nil
	case Local:
		return append(loadSegment("LCL", offset), stackPush()...), nil
	case Argument:
		return append(loadSegment("ARG", offset), stackPush()...), nil
	case This:
		return append(loadSegment("THIS", offset), stackPush()...), nil
	case That:
		return append(loadSegment("THAT", offset), stackPush()...), nil
	case Temp:
		if offset > 7 {
			return nil, emitErrorf("invalid 'temp' offset, got %d", offset)
		}
		return append(loadTemp(offset), stackPush()...), nil
	case Static:
		return append(loadStatic(t.staticVar(offset)), stackPush()...), nil
	case Pointer:
		loc, err := loadPointer(offset)
		if err != nil {
			return nil, err
		}
		return append(loc, stackPush()...), nil
	default:
		return nil, emitErrorf("unrecognized segment '%s'", segment)
	}
}

func (t *Translator) translatePop(segment SegmentType, offset uint16) (asm.Program, error) {
	switch segment {
	case Local:
		return popSegment("LCL", offset), nil
	case Argument:
		return popSegment("ARG", offset), nil
	case This:
		return popSegment("THIS", offset), nil
	case That:
		return popSegment("THAT", offset), nil
	case Temp:
		if offset > 7 {
			return nil, emitErrorf("invalid 'temp' offset, got %d", offset)
		}
		return popTemp(offset), nil
	case Static:
		return append(stackPop(), assignVariable(t.staticVar(offset))...), nil
	case Pointer:
		return popPointer(offset)
	default:
		return nil, emitErrorf("unrecognized segment '%s' for pop", segment)
	}
}

func (t *Translator) staticVar(offset uint16) string {
	return fmt.Sprintf("%s.%d", t.staticIdent, offset)
}

// ----------------------------------------------------------------------------
// Arithmetic operations

func (t *Translator) translateArithmeticOp(op ArithmeticOp) (asm.Program, error) {
	switch op.Operation {
	case Add:
		return compXAndY("M+D"), nil
	case Sub:
		return compXAndY("M-D"), nil
	case And:
		return compXAndY("D&M"), nil
	case Or:
		return compXAndY("D|M"), nil
	case Neg:
		return compY("-M"), nil
	case Not:
		return compY("!M"), nil
	case Eq:
		return t.compLogic("JEQ"), nil
	case Lt:
		return t.compLogic("JLT"), nil
	case Gt:
		return t.compLogic("JGT"), nil
	default:
		return nil, emitErrorf("unrecognized arithmetic operation '%s'", op.Operation)
	}
}

// ----------------------------------------------------------------------------
// Branching operations

func (t *Translator) translateGotoOp(op GotoOp) (asm.Program, error) {
	label := t.scopedLabel(op.Label)
	switch op.Jump {
	case Unconditional:
		return asm.Program{
			asm.AInstruction{Location: label},
			asm.CInstruction{Comp: "0", Jump: "JMP"},
		}, nil
	case Conditional:
		program := append(stackPop(), asm.AInstruction{Location: label})
		return append(program, asm.CInstruction{Comp: "D", Jump: "JNE"}), nil
	default:
		return nil, emitErrorf("unrecognized jump type '%s'", op.Jump)
	}
}

// scopedLabel namespaces a Jack-level 'label'/'goto' target to the function currently being
// translated ('functionName$label'), so two functions in the same file that each declare a
// "WHILE_START" label (an entirely ordinary pattern for hand-written VM test code) don't
// collide once both are assembled into the same flat instruction stream. Labels that appear
// before any 'function' declaration (a bare single-function .vm file) are left unscoped.
func (t *Translator) scopedLabel(label string) string {
	if t.currentFunction == "" {
		return label
	}
	return fmt.Sprintf("%s$%s", t.currentFunction, label)
}

// ----------------------------------------------------------------------------
// Function operations (calling convention)

// translateFunction emits the function's label and zero-initializes its 'nLocal' locals.
func (t *Translator) translateFunction(funcLabel string, nLocal uint8) asm.Program {
	program := asm.Program{asm.LabelDecl{Name: funcLabel}}
	for i := uint8(0); i < nLocal; i++ {
		program = append(program, loadConstant("0")...)
		program = append(program, stackPush()...)
	}
	return program
}

// translateCall saves the caller's frame (return address + LCL/ARG/THIS/THAT), repositions
// ARG to the start of the callee's arguments, repositions LCL to the current stack top, then
// jumps to the callee. The return address label is emitted right after the jump so execution
// resumes here once the callee returns.
func (t *Translator) translateCall(returnLabel string, funcLabel string, nArgs uint8) asm.Program {
	program := asm.Program{}
	program = append(program, pushLabelAddress(returnLabel)...)
	program = append(program, pushPointerValue("LCL")...)
	program = append(program, pushPointerValue("ARG")...)
	program = append(program, pushPointerValue("THIS")...)
	program = append(program, pushPointerValue("THAT")...)

	program = append(program,
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "5"}, asm.CInstruction{Dest: "D", Comp: "D-A"},
		asm.AInstruction{Location: strconv.Itoa(int(nArgs))}, asm.CInstruction{Dest: "D", Comp: "D-A"},
		asm.AInstruction{Location: "ARG"}, asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "LCL"}, asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: funcLabel}, asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: returnLabel},
	)
	return program
}

// translateReturn tears the callee's frame down: it restores THAT/THIS/ARG/LCL by walking
// back from the saved frame's end (subtracting from 'endframe', never incrementing forward,
// since only the end-of-frame address is known going in), repositions the return value at
// the caller's former ARG[0], resets SP just past it, then jumps to the saved return address.
func (t *Translator) translateReturn() asm.Program {
	return asm.Program{
		asm.AInstruction{Location: "LCL"}, asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "endframe"}, asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "5"}, asm.CInstruction{Dest: "A", Comp: "D-A"}, asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "retaddr"}, asm.CInstruction{Dest: "M", Comp: "D"},

		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "AM", Comp: "M-1"}, asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "ARG"}, asm.CInstruction{Dest: "A", Comp: "M"}, asm.CInstruction{Dest: "M", Comp: "D"},

		asm.AInstruction{Location: "ARG"}, asm.CInstruction{Dest: "D", Comp: "M+1"},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "M", Comp: "D"},

		asm.AInstruction{Location: "endframe"}, asm.CInstruction{Dest: "AM", Comp: "M-1"}, asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "THAT"}, asm.CInstruction{Dest: "M", Comp: "D"},

		asm.AInstruction{Location: "endframe"}, asm.CInstruction{Dest: "AM", Comp: "M-1"}, asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "THIS"}, asm.CInstruction{Dest: "M", Comp: "D"},

		asm.AInstruction{Location: "endframe"}, asm.CInstruction{Dest: "AM", Comp: "M-1"}, asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "ARG"}, asm.CInstruction{Dest: "M", Comp: "D"},

		asm.AInstruction{Location: "endframe"}, asm.CInstruction{Dest: "AM", Comp: "M-1"}, asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "LCL"}, asm.CInstruction{Dest: "M", Comp: "D"},

		asm.AInstruction{Location: "retaddr"}, asm.CInstruction{Dest: "A", Comp: "M"}, asm.CInstruction{Comp: "0", Jump: "JMP"},
	}
}

// pushLabelAddress pushes a label's own instruction address (not a memory read); used by
// translateCall to save the caller's return address.
func pushLabelAddress(label string) asm.Program {
	return append(
		[]asm.Instruction{asm.AInstruction{Location: label}, asm.CInstruction{Dest: "D", Comp: "A"}},
		stackPush()...,
	)
}

// pushPointerValue reads a segment pointer's current value into D then pushes it; used by
// translateCall to save the caller's LCL/ARG/THIS/THAT.
func pushPointerValue(pointer string) asm.Program {
	return append(
		[]asm.Instruction{asm.AInstruction{Location: pointer}, asm.CInstruction{Dest: "D", Comp: "M"}},
		stackPush()...,
	)
}

// ----------------------------------------------------------------------------
// Stack primitives

func stackPush() asm.Program {
	return asm.Program{
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "A", Comp: "M"}, asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "M", Comp: "M+1"},
	}
}

func stackPop() asm.Program {
	return asm.Program{
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "AM", Comp: "M-1"}, asm.CInstruction{Dest: "D", Comp: "M"},
	}
}

// ----------------------------------------------------------------------------
// Memory segment addressing

func loadConstant(value string) asm.Program {
	return asm.Program{asm.AInstruction{Location: value}, asm.CInstruction{Dest: "D", Comp: "A"}}
}

func loadSegment(base string, offset uint16) asm.Program {
	return asm.Program{
		asm.AInstruction{Location: base}, asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: fmt.Sprint(offset)}, asm.CInstruction{Dest: "A", Comp: "D+A"},
		asm.CInstruction{Dest: "D", Comp: "M"},
	}
}

func loadTemp(offset uint16) asm.Program {
	return asm.Program{
		asm.AInstruction{Location: "5"}, asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: fmt.Sprint(offset)}, asm.CInstruction{Dest: "A", Comp: "D+A"},
		asm.CInstruction{Dest: "D", Comp: "M"},
	}
}

func loadStatic(variable string) asm.Program {
	return asm.Program{asm.AInstruction{Location: variable}, asm.CInstruction{Dest: "D", Comp: "M"}}
}

func loadPointer(offset uint16) (asm.Program, error) {
	switch offset {
	case 0:
		return asm.Program{asm.AInstruction{Location: "THIS"}, asm.CInstruction{Dest: "D", Comp: "M"}}, nil
	case 1:
		return asm.Program{asm.AInstruction{Location: "THAT"}, asm.CInstruction{Dest: "D", Comp: "M"}}, nil
	default:
		return nil, emitErrorf("invalid 'pointer' offset, got %d", offset)
	}
}

func locateSegment(base string, offset uint16) asm.Program {
	return asm.Program{
		asm.AInstruction{Location: base}, asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: fmt.Sprint(offset)}, asm.CInstruction{Dest: "D", Comp: "D+A"},
	}
}

func locateTemp(offset uint16) asm.Program {
	return asm.Program{
		asm.AInstruction{Location: "5"}, asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: fmt.Sprint(offset)}, asm.CInstruction{Dest: "D", Comp: "D+A"},
	}
}

func assignVariable(variable string) asm.Program {
	return asm.Program{asm.AInstruction{Location: variable}, asm.CInstruction{Dest: "M", Comp: "D"}}
}

// popSegment/popTemp stash the target address in R13 before popping, since the pop itself
// clobbers A/D computing the stack's new top.
func popSegment(base string, offset uint16) asm.Program {
	program := append(locateSegment(base, offset), assignVariable("R13")...)
	program = append(program, stackPop()...)
	return append(program, asm.AInstruction{Location: "R13"}, asm.CInstruction{Dest: "A", Comp: "M"}, asm.CInstruction{Dest: "M", Comp: "D"})
}

func popTemp(offset uint16) asm.Program {
	program := append(locateTemp(offset), assignVariable("R13")...)
	program = append(program, stackPop()...)
	return append(program, asm.AInstruction{Location: "R13"}, asm.CInstruction{Dest: "A", Comp: "M"}, asm.CInstruction{Dest: "M", Comp: "D"})
}

func popPointer(offset uint16) (asm.Program, error) {
	var variable string
	switch offset {
	case 0:
		variable = "THIS"
	case 1:
		variable = "THAT"
	default:
		return nil, emitErrorf("invalid 'pointer' offset, got %d", offset)
	}
	return append(stackPop(), assignVariable(variable)...), nil
}

// ----------------------------------------------------------------------------
// Arithmetic/logic primitives

// compXAndY pops y (the stack's top) into D, computes 'expression' against x (the new
// top, still in M) without popping x, and overwrites x in place with the result.
func compXAndY(expression string) asm.Program {
	return asm.Program{
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "A", Comp: "M-1"}, asm.CInstruction{Dest: "D", Comp: "M"},
		asm.CInstruction{Dest: "A", Comp: "A-1"}, asm.CInstruction{Dest: "D", Comp: expression},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "A", Comp: "M-1"}, asm.CInstruction{Dest: "A", Comp: "A-1"}, asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "M", Comp: "M-1"},
	}
}

// compY overwrites the stack's top in place with 'expression' applied to itself (neg/not).
func compY(expression string) asm.Program {
	return asm.Program{
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "A", Comp: "M-1"}, asm.CInstruction{Dest: "D", Comp: expression},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "A", Comp: "M-1"}, asm.CInstruction{Dest: "M", Comp: "D"},
	}
}

// compLogic pops y and x, subtracts them and jumps on 'jump' to decide between pushing
// true (-1) or false (0) back in their place. Each call site gets a fresh pair of labels
// scoped by the Translator's file-specific prefix and an ever-incrementing counter so
// nested/sequential comparisons in the same file never collide.
func (t *Translator) compLogic(jump string) asm.Program {
	label := fmt.Sprintf("%s_%d", t.labelPrefix, t.logicCount)
	t.logicCount++
	end := label + "_END"

	return asm.Program{
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "M", Comp: "M-1"}, asm.CInstruction{Dest: "A", Comp: "M"}, asm.CInstruction{Dest: "D", Comp: "M"},
		asm.CInstruction{Dest: "A", Comp: "A-1"}, asm.CInstruction{Dest: "D", Comp: "M-D"},
		asm.AInstruction{Location: label}, asm.CInstruction{Comp: "D", Jump: jump},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "A", Comp: "M-1"}, asm.CInstruction{Dest: "M", Comp: "0"},
		asm.AInstruction{Location: end}, asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: label},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "A", Comp: "M-1"}, asm.CInstruction{Dest: "M", Comp: "-1"},
		asm.LabelDecl{Name: end},
	}
}
