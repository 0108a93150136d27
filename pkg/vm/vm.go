package vm

import "github.com/hackforge/n2t/pkg/utils"

// ----------------------------------------------------------------------------
// General information

// This section contains some general information about the VM intermediate language.
//
// We declare a shared 'Operation' interface for every macro operation available for the
// language and we define some other useful top-level struct such as Program and Module.
// Is important to note that a VM program can be composed of multiple translation units
// that can be also referenced as file or modules or also classes.

// A VM Program is just a set of multiple modules/files keyed by file stem, in the VM spec
// each Jack class is translated to its own .vm file (just like Java .class file) that can
// be handled as its own translation unit during the compilation or lowering phases. It's
// insertion-ordered (not a plain map) so translating the same set of input files always
// walks them in the same order the caller provided them on the command line.
type Program = utils.OrderedMap[string, Module]

// NewProgram initializes an empty, insertion-ordered VM Program.
func NewProgram() Program { return utils.NewOrderedMap[string, Module]() }

// A VM Module is just a linear list of VM operations/instructions
type Module []Operation

// Used to put together all operation in the VM language (Memory, Arithmetic, ... ops).
type Operation interface{}

// ----------------------------------------------------------------------------
// Memory Op

// In memory representation of a Memory operation for the VM language.
//
// In the VM intermediate language there are only two possible memory operation on the stack.
// We could either push a new value taken from the specified segment location on the stack's
// top or take the stack's top and saves its value at the specified segment location.
type MemoryOp struct {
	Operation OperationType // The type of operation, either 'push' or 'pop'
	Segment   SegmentType   // The named memory segment to use (this, that, temp, ...)
	Offset    uint16        // The specific location/offset inside of the memory segment
}

type OperationType string // Enum to manage the operation allowed for a MemoryOp

const (
	Push OperationType = "push"
	Pop  OperationType = "pop"
)

type SegmentType string // Enum to manage the segment accessible for a MemoryOp

const (
	Temp     SegmentType = "temp"     // Real segment used to store intermediate computations
	Constant SegmentType = "constant" // Virtual segment used to access numeric constant

	Local    SegmentType = "local"    // Real segment used to store local function variables
	Static   SegmentType = "static"   // Real segment used to store shared/static variables
	Argument SegmentType = "argument" // Real segment used to store function's argument

	This    SegmentType = "this"    // Virtual segment used to point to a specific memory location
	That    SegmentType = "that"    // Virtual segment used to point to a specific memory location
	Pointer SegmentType = "pointer" // Real segment w/ 2 location used to set the 'this' and 'that' pointers
)

// ----------------------------------------------------------------------------
// Arithmetic Op

// In memory representation of a Arithmetic operation for the VM language.
//
// In the VM intermediate language there are just a handful of operation available.
// In particular each operation acts directly on the top of the stack, of course we have both unary
// and binary operation, the specific management of each op will be handled in the codegen phase.
type ArithmeticOp struct{ Operation ArithOpType }

type ArithOpType string // Enum to manage the operation allowed for an ArithmeticOp

const (
	Eq ArithOpType = "eq" // Comparison operations
	Gt ArithOpType = "gt"
	Lt ArithOpType = "lt"

	Add ArithOpType = "add" // Arithmetic operations
	Sub ArithOpType = "sub"
	Neg ArithOpType = "neg"

	Not ArithOpType = "not" // Bitwise operations
	And ArithOpType = "and"
	Or  ArithOpType = "or"
)

// ----------------------------------------------------------------------------
// Branching Op(s)

// A LabelDecl marks a location in the current module that a GotoOp can jump to.
// Labels are only visible inside the function they're declared in; the Translator
// namespaces them as 'Function$Label' to avoid collisions across the whole program.
type LabelDecl struct {
	Name string // The symbol chosen by the user for this label
}

// A GotoOp transfers control to a LabelDecl, either unconditionally or by popping
// and testing the stack's top (a non-zero/true value takes the jump).
type GotoOp struct {
	Label string   // The target LabelDecl's name
	Jump  JumpType // Whether the jump is conditional on the stack's top
}

type JumpType string // Enum to distinguish conditional from unconditional jumps

const (
	Unconditional JumpType = "goto"    // Always taken
	Conditional   JumpType = "if-goto" // Taken iff the popped stack-top is non-zero
)

// ----------------------------------------------------------------------------
// Function Op(s)

// A FuncDecl marks the start of a function/method/constructor body and declares
// how many local variables it needs; the Translator zero-initializes all of them.
type FuncDecl struct {
	Name   string // Fully qualified name, e.g. "Main.fibonacci"
	NLocal uint8  // Number of local variables to allocate and zero-initialize
}

// A FuncCallOp invokes another function, saving the caller's frame so ReturnOp
// can restore it. NArgs tells the Translator how many stack slots were already
// pushed by the caller as arguments.
type FuncCallOp struct {
	Name  string // Fully qualified callee name
	NArgs uint8  // Number of arguments already pushed onto the stack by the caller
}

// A ReturnOp pops the current function's return value, tears down its frame and
// resumes execution at the caller's return address.
type ReturnOp struct{}
