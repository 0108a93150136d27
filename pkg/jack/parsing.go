package jack

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	pc "github.com/prataprc/goparsec"

	"github.com/hackforge/n2t/pkg/utils"
)

// ----------------------------------------------------------------------------
// Parser Combinator(s)

// This section defines the Parser Combinator for every token & construct of the Jack language.
//
// Unlike the Asm and Vm grammars, Jack is a recursive grammar: an expression can nest another
// expression (through parenthesis, array indexing or unary operators) and a statement can nest
// other statements (through if/while blocks). 'pExpr' and 'pTerm' are forward-declared below and
// assigned in 'init()'; every other rule that needs to parse "an expression" or "a term" goes
// through the 'pExprRef'/'pTermRef' indirection instead of referencing the package vars directly,
// since at var-initialization time (which runs before 'init()') those vars are still nil.

// Top level object, will generate the traversable AST based on the input plus the PCs below.
var ast = pc.NewAST("jack_program", 0)

var pExpr, pTerm pc.Parser

// pExprRef/pTermRef lazily forward to 'pExpr'/'pTerm', letting the (mutually recursive) grammar
// rules below reference the expression grammar before its full definition is assigned in init().
func pExprRef(s pc.Scanner) (pc.ParsecNode, pc.Scanner) { return pExpr(s) }
func pTermRef(s pc.Scanner) (pc.ParsecNode, pc.Scanner) { return pTerm(s) }

func init() {
	// 'expression': a term, then zero or more (operator, term) pairs. Jack purposefully has no
	// operator precedence: "2 + 3 * 4" parses the same as "(2 + 3) * 4", strictly left-to-right.
	pExpr = ast.And("expression", nil, pTermRef, ast.Kleene("op_terms", nil, pOpTerm))

	// 'term': every atomic piece an expression can be built from. Order matters where alternatives
	// share a prefix: a bare identifier ('var_term') is tried only after the call/array forms that
	// also start with an identifier, so the longer match is attempted first.
	pTerm = ast.OrdChoice("term", nil,
		pc.Int(), pStringLit, pKeywordConst,
		pSubroutineCall, pArrayTerm, pVarTerm,
		pParenTerm, pUnaryTerm,
	)
}

var (
	// A single (operator, term) pair, used to build the left-to-right operator chain of 'pExpr'.
	pOpTerm = ast.And("op_term", nil, pOp, pTermRef)

	// Array cell access, e.g. 'arr[i + 1]'
	pArrayTerm = ast.And("array_term", nil, pIdent, pLBracket, pExprRef, pRBracket)
	// Parenthesized sub-expression, e.g. '(a + b)'
	pParenTerm = ast.And("paren_term", nil, pLParen, pExprRef, pRParen)
	// Bare variable reference, e.g. 'count'
	pVarTerm = ast.And("var_term", nil, pIdent)
	// Unary operator applied to a nested term, e.g. '-x', '~flag'
	pUnaryTerm = ast.And("unary_term", nil, pUnaryOp, pTermRef)

	// A subroutine call, either qualified ('obj.method(...)'/'Class.function(...)') or bare
	// ('method(...)'), shared by both 'do' statements and call-as-term expressions.
	pSubroutineCall = ast.OrdChoice("subroutine_call", nil, pExtCall, pCall)
	pExtCall        = ast.And("ext_call", nil, pIdent, pDot, pIdent, pLParen, pExprList, pRParen)
	pCall           = ast.And("call", nil, pIdent, pLParen, pExprList, pRParen)

	// Comma separated list of expressions, used for call argument lists (possibly empty).
	pExprList = ast.Kleene("expr_list", nil, pExprRef, pComma)

	// String literal, e.g. '"hello world"'
	pStringLit = pc.Token(`"(?:\\.|[^"\\])*"`, "STRING")
	// Keyword constants, they resolve to either a literal value or (for 'this') a variable lookup
	pKeywordConst = ast.OrdChoice("keyword_const", nil,
		pc.Atom("true", "TRUE"), pc.Atom("false", "FALSE"),
		pc.Atom("null", "NULL"), pc.Atom("this", "THIS"),
	)

	// Binary operators, no precedence between them (see 'pExpr' above)
	pOp = ast.OrdChoice("op", nil,
		pc.Atom("+", "PLUS"), pc.Atom("-", "MINUS"), pc.Atom("*", "STAR"), pc.Atom("/", "SLASH"),
		pc.Atom("&", "AMP"), pc.Atom("|", "PIPE"), pc.Atom("<", "LT"), pc.Atom(">", "GT"), pc.Atom("=", "EQ"),
	)
	// Unary operators, applicable only to the term directly to their right
	pUnaryOp = ast.OrdChoice("unary_op", nil, pc.Atom("-", "NEG"), pc.Atom("~", "NOT"))
)

// pFile is the grammar's top level rule: a single class, optionally preceded/followed by file
// header/footer comments, consumed up to EOF (mirrors the 'asm'/'vm' top-level ManyUntil pattern).
var pFile = ast.ManyUntil("file", nil, ast.OrdChoice("file_item", nil, pSlComment, pMlComment, pClassRef), pc.End())

func pClassRef(s pc.Scanner) (pc.ParsecNode, pc.Scanner) { return pClass(s) }

var (
	// A class is a keyword, a name, and a body made of field/static declarations followed by
	// subroutine declarations (fields must precede subroutines, per the Jack grammar).
	pClass = ast.And("class_decl", nil,
		pc.Atom("class", "CLASS"), pIdent, pLBrace,
		ast.Kleene("class_var_decs", nil, pItemOrComment(pClassVarDec)),
		ast.Kleene("subroutine_decs", nil, pItemOrComment(pSubroutineDec)),
		pRBrace,
	)

	// A static/field declaration, e.g. 'field int x, y, z;'
	pClassVarDec = ast.And("class_var_dec", nil,
		pVarDecKind, pType, pIdent, ast.Kleene("extra_names", nil, pExtraName), pSemi,
	)
	pVarDecKind = ast.OrdChoice("var_dec_kind", nil, pc.Atom("static", "STATIC"), pc.Atom("field", "FIELD"))

	// A constructor/function/method declaration, e.g. 'method void draw(int x, int y) { ... }'
	pSubroutineDec = ast.And("subroutine_dec", nil,
		pSubroutineKind, pReturnType, pIdent,
		pLParen, ast.Kleene("param_list", nil, pParam, pComma), pRParen,
		pLBrace,
		ast.Kleene("var_decs", nil, pItemOrComment(pVarDec)),
		ast.Kleene("statements", nil, pItemOrComment(pStatement)),
		pRBrace,
	)
	pSubroutineKind = ast.OrdChoice("subroutine_kind", nil,
		pc.Atom("constructor", "CONSTRUCTOR"), pc.Atom("function", "FUNCTION"), pc.Atom("method", "METHOD"),
	)
	pParam = ast.And("param", nil, pType, pIdent)

	// A local variable declaration, e.g. 'var int i, j;' (only legal at the start of a subroutine body)
	pVarDec = ast.And("var_dec", nil,
		pc.Atom("var", "VAR"), pType, pIdent, ast.Kleene("extra_names", nil, pExtraName), pSemi,
	)
	// Additional comma-separated name in a multi-declaration, e.g. the ', y, z' part of 'int x, y, z;'
	pExtraName = ast.And("extra_name", nil, pComma, pIdent)

	// A primitive type or a class name used as a type (e.g. 'int', 'boolean', 'Array')
	pType = ast.OrdChoice("type", nil, pc.Atom("int", "INT"), pc.Atom("char", "CHAR"), pc.Atom("boolean", "BOOLEAN"), pIdent)
	// A subroutine's return type, additionally allowing 'void'
	pReturnType = ast.OrdChoice("return_type", nil, pc.Atom("void", "VOID"), pType)
)

var (
	// A statement is one of the five Jack statement kinds; comments are allowed to interleave them.
	pStatement = ast.OrdChoice("statement", nil, pLetStmt, pIfStmt, pWhileStmt, pDoStmt, pReturnStmt)

	// 'let x = expr;' or 'let x[i] = expr;'
	pLetStmt = ast.And("let_stmt", nil,
		pc.Atom("let", "LET"), pIdent, ast.Maybe("maybe_index", nil, pIndex),
		pc.Atom("=", "ASSIGN"), pExprRef, pSemi,
	)
	pIndex = ast.And("index", nil, pLBracket, pExprRef, pRBracket)

	// 'if (cond) { ... }' with an optional 'else { ... }' tail
	pIfStmt = ast.And("if_stmt", nil,
		pc.Atom("if", "IF"), pLParen, pExprRef, pRParen,
		pLBrace, ast.Kleene("then_block", nil, pItemOrComment(pStatement)), pRBrace,
		ast.Maybe("maybe_else", nil, pElseBlock),
	)
	pElseBlock = ast.And("else_block", nil,
		pc.Atom("else", "ELSE"), pLBrace, ast.Kleene("else_stmts", nil, pItemOrComment(pStatement)), pRBrace,
	)

	// 'while (cond) { ... }'
	pWhileStmt = ast.And("while_stmt", nil,
		pc.Atom("while", "WHILE"), pLParen, pExprRef, pRParen,
		pLBrace, ast.Kleene("block", nil, pItemOrComment(pStatement)), pRBrace,
	)

	// 'do someCall(...);'
	pDoStmt = ast.And("do_stmt", nil, pc.Atom("do", "DO"), pSubroutineCall, pSemi)

	// 'return;' or 'return expr;'
	pReturnStmt = ast.And("return_stmt", nil, pc.Atom("return", "RETURN"), ast.Maybe("maybe_expr", nil, pExprRef), pSemi)
)

var (
	// Generic Identifier parser (for class, variable, and subroutine names)
	// NOTE: Jack identifiers are letters, digits, and underscore only, unlike the VM/Asm
	// tokenizers which also accept '$' (used there for generated names like 'Foo$ret.0').
	// NOTE: An ident cannot begin with a leading digit.
	pIdent = pc.Token(`[A-Za-z_][0-9a-zA-Z_]*`, "IDENT")

	pDot      = pc.Atom(".", "DOT")
	pSemi     = pc.Atom(";", "SEMI")
	pComma    = pc.Atom(",", "COMMA")
	pLBrace   = pc.Atom("{", "LBRACE")
	pRBrace   = pc.Atom("}", "RBRACE")
	pLParen   = pc.Atom("(", "LPAREN")
	pRParen   = pc.Atom(")", "RPAREN")
	pLBracket = pc.Atom("[", "LBRACKET")
	pRBracket = pc.Atom("]", "RBRACKET")

	// Single line comments (e.g. "// This is a comment")
	pSlComment = ast.And("sl_comment", nil, pc.Atom("//", "//"), pc.Token(`(?m).*$`, "COMMENT"))
	// Multi line (and doc) comments (e.g. "/* This is a comment */")
	pMlComment = ast.And("ml_comment", nil, pc.Token(`/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`, "COMMENT"))
)

// pItemOrComment wraps a grammar rule so comments can freely interleave with it wherever it is
// repeated (class bodies, subroutine bodies, statement blocks); 'FromAST' skips the comment nodes.
func pItemOrComment(item pc.Parser) pc.Parser {
	return ast.OrdChoice("item", nil, pSlComment, pMlComment, item)
}

// ----------------------------------------------------------------------------
// Jack Parser

// This section defines the Parser for the nand2tetris Jack language.
//
// It uses parser combinators to obtain the AST from the source code (the latter can be provided)
// in multiple ways using a generic io.Reader, the library reads up the feature flags (as env vars):
// - PARSEC_DEBUG: Verbose logging to inspect which of the PCs gets triggered and match
// - EXPORT_AST:   Exports in the DEBUG_FOLDER a Graphviz representation of the AST
// - PRINT_AST:    Print on the stdout a textual representation of the AST
type Parser struct{ reader io.Reader }

// Initializes and returns to the caller a brand new 'Parser' struct.
// Requires the argument io.Reader 'r' to be valid and usable.
func NewParser(r io.Reader) Parser {
	return Parser{reader: r}
}

// Parser entrypoint divides the 2 phases of the parsing pipeline
// Text --> AST: This step is done using PCs and returns a generic traversable AST
// AST --> IR: This step is done by traversing the AST and extracting the 'jack.Class'
func (p *Parser) Parse() (Class, error) {
	content, err := io.ReadAll(p.reader)
	if err != nil {
		return Class{}, utils.IOError{Path: "<reader>", Err: err}
	}

	ast, success := p.FromSource(content)
	if !success {
		return Class{}, ParseError{Msg: "failed to parse AST from input content"}
	}

	return p.FromAST(ast)
}

// Scans the textual input stream coming from the 'reader' method and returns a traversable AST
// (Abstract Syntax Tree) that can be eventually visited to extract/transform the info available.
func (p *Parser) FromSource(source []byte) (pc.Queryable, bool) {

	// Feature flag: Enable 'goparsec' library's debug logs
	if os.Getenv("PARSEC_DEBUG") != "" {
		ast.SetDebug()
	}

	// We generate the traversable Abstract Syntax Tree from the source content
	root, _ := ast.Parsewith(pFile, pc.NewScanner(source))

	// Feature flag: Enables export of the AST as Dot file (debug.ast.fot)
	if os.Getenv("EXPORT_AST") != "" {
		file, _ := os.Create(fmt.Sprintf("%s/debug.ast.dot", os.Getenv("DEBUG_FOLDER")))
		defer file.Close()

		file.Write([]byte(ast.Dotstring("\"Jack AST\"")))
	}

	// Feature flag: Enables pretty printing of the AST on the console
	if os.Getenv("PRINT_AST") != "" {
		ast.Prettyprint()
	}
	// TODO (hmny): This hardcoding to true should be changed
	return root, true // Success is based on the reaching of 'EOF'
}

// This function takes the root node of the raw parsed AST and does a DFS on it parsing
// one by one each subtree and returning a 'jack.Class' that can be used as in-memory and
// type-safe AST not dependent on the parsing library used.
func (p *Parser) FromAST(root pc.Queryable) (Class, error) {
	if root.GetName() != "file" {
		return Class{}, parseErrorf("expected node 'file', found %s", root.GetName())
	}

	var classNode pc.Queryable
	for _, item := range root.GetChildren() {
		if isComment(item) {
			continue
		}
		classNode = item
		break
	}
	if classNode == nil || classNode.GetName() != "class_decl" {
		return Class{}, parseErrorf("expected a single 'class_decl' node in the parsed file")
	}

	children := classNode.GetChildren()
	if len(children) != 6 {
		return Class{}, parseErrorf("expected node 'class_decl' with 6 children, got %d", len(children))
	}

	class := Class{
		Name:        children[1].GetValue(),
		Fields:      utils.OrderedMap[string, Variable]{},
		Subroutines: utils.OrderedMap[string, Subroutine]{},
	}

	for _, item := range children[3].GetChildren() {
		if isComment(item) {
			continue
		}

		fields, err := p.HandleClassVarDec(item)
		if err != nil {
			return Class{}, fmt.Errorf("error handling class var declaration: %w", err)
		}
		for _, field := range fields {
			class.Fields.Set(field.Name, field)
		}
	}

	for _, item := range children[4].GetChildren() {
		if isComment(item) {
			continue
		}

		subroutine, err := p.HandleSubroutineDec(item)
		if err != nil {
			return Class{}, fmt.Errorf("error handling subroutine declaration: %w", err)
		}
		class.Subroutines.Set(subroutine.Name, subroutine)
	}

	return class, nil
}

// isComment reports whether a node produced by 'pItemOrComment' is a comment, to be skipped.
func isComment(node pc.Queryable) bool {
	return node.GetName() == "sl_comment" || node.GetName() == "ml_comment"
}

// Specialized function to convert a "class_var_dec" node to a list of 'jack.Variable'.
func (p *Parser) HandleClassVarDec(node pc.Queryable) ([]Variable, error) {
	if node.GetName() != "class_var_dec" {
		return nil, parseErrorf("expected node 'class_var_dec', got %s", node.GetName())
	}

	children := node.GetChildren()
	if len(children) != 5 {
		return nil, parseErrorf("expected node 'class_var_dec' with 5 children, got %d", len(children))
	}

	varType, err := varTypeFromKind(children[0].GetValue())
	if err != nil {
		return nil, err
	}
	dataType, className := dataTypeFromNode(children[1])

	names := []string{children[2].GetValue()}
	for _, extra := range children[3].GetChildren() {
		names = append(names, extra.GetChildren()[1].GetValue())
	}

	variables := make([]Variable, 0, len(names))
	for _, name := range names {
		variables = append(variables, Variable{Name: name, Type: varType, DataType: dataType, ClassName: className})
	}

	return variables, nil
}

// Specialized function to convert a "var_dec" node to a list of 'jack.Variable' (all Local).
func (p *Parser) HandleVarDec(node pc.Queryable) ([]Variable, error) {
	if node.GetName() != "var_dec" {
		return nil, parseErrorf("expected node 'var_dec', got %s", node.GetName())
	}

	children := node.GetChildren()
	if len(children) != 5 {
		return nil, parseErrorf("expected node 'var_dec' with 5 children, got %d", len(children))
	}

	dataType, className := dataTypeFromNode(children[1])

	names := []string{children[2].GetValue()}
	for _, extra := range children[3].GetChildren() {
		names = append(names, extra.GetChildren()[1].GetValue())
	}

	variables := make([]Variable, 0, len(names))
	for _, name := range names {
		variables = append(variables, Variable{Name: name, Type: Local, DataType: dataType, ClassName: className})
	}

	return variables, nil
}

// Specialized function to convert a "subroutine_dec" node to a 'jack.Subroutine'.
func (p *Parser) HandleSubroutineDec(node pc.Queryable) (Subroutine, error) {
	if node.GetName() != "subroutine_dec" {
		return Subroutine{}, parseErrorf("expected node 'subroutine_dec', got %s", node.GetName())
	}

	children := node.GetChildren()
	if len(children) != 10 {
		return Subroutine{}, parseErrorf("expected node 'subroutine_dec' with 10 children, got %d", len(children))
	}

	kind, err := subroutineKindFromNode(children[0].GetValue())
	if err != nil {
		return Subroutine{}, err
	}
	returnType, _ := dataTypeFromReturnNode(children[1])

	subroutine := Subroutine{
		Name:      children[2].GetValue(),
		Type:      kind,
		Return:    returnType,
		Arguments: utils.OrderedMap[string, Variable]{},
	}

	for _, param := range children[4].GetChildren() {
		pChildren := param.GetChildren()
		if len(pChildren) != 2 {
			return Subroutine{}, parseErrorf("expected node 'param' with 2 children, got %d", len(pChildren))
		}

		dataType, className := dataTypeFromNode(pChildren[0])
		name := pChildren[1].GetValue()
		subroutine.Arguments.Set(name, Variable{Name: name, Type: Argument, DataType: dataType, ClassName: className})
	}

	statements := []Statement{}

	for _, item := range children[7].GetChildren() {
		if isComment(item) {
			continue
		}

		vars, err := p.HandleVarDec(item)
		if err != nil {
			return Subroutine{}, fmt.Errorf("error handling local variable declaration: %w", err)
		}
		statements = append(statements, VarStmt{Vars: vars})
	}

	for _, item := range children[8].GetChildren() {
		if isComment(item) {
			continue
		}

		stmt, err := p.HandleStatement(item)
		if err != nil {
			return Subroutine{}, fmt.Errorf("error handling statement: %w", err)
		}
		statements = append(statements, stmt)
	}

	subroutine.Statements = statements
	return subroutine, nil
}

// Generalized function to convert a statement node to a 'jack.Statement'.
func (p *Parser) HandleStatement(node pc.Queryable) (Statement, error) {
	switch node.GetName() {
	case "let_stmt":
		return p.HandleLetStmt(node)
	case "if_stmt":
		return p.HandleIfStmt(node)
	case "while_stmt":
		return p.HandleWhileStmt(node)
	case "do_stmt":
		return p.HandleDoStmt(node)
	case "return_stmt":
		return p.HandleReturnStmt(node)
	default:
		return nil, parseErrorf("unrecognized statement node '%s'", node.GetName())
	}
}

// Specialized function to convert a "let_stmt" node to a 'jack.LetStmt'.
func (p *Parser) HandleLetStmt(node pc.Queryable) (Statement, error) {
	children := node.GetChildren()
	if len(children) != 6 {
		return nil, parseErrorf("expected node 'let_stmt' with 6 children, got %d", len(children))
	}

	name := children[1].GetValue()
	rhs, err := p.HandleExpression(children[4])
	if err != nil {
		return nil, fmt.Errorf("error handling RHS expression: %w", err)
	}

	if idx := children[2]; idx.GetName() == "index" {
		indexExpr, err := p.HandleExpression(idx.GetChildren()[1])
		if err != nil {
			return nil, fmt.Errorf("error handling array index expression: %w", err)
		}
		return LetStmt{Lhs: ArrayExpr{Var: name, Index: indexExpr}, Rhs: rhs}, nil
	}

	return LetStmt{Lhs: VarExpr{Var: name}, Rhs: rhs}, nil
}

// Specialized function to convert an "if_stmt" node to a 'jack.IfStmt'.
func (p *Parser) HandleIfStmt(node pc.Queryable) (Statement, error) {
	children := node.GetChildren()
	if len(children) != 8 {
		return nil, parseErrorf("expected node 'if_stmt' with 8 children, got %d", len(children))
	}

	cond, err := p.HandleExpression(children[2])
	if err != nil {
		return nil, fmt.Errorf("error handling if condition expression: %w", err)
	}

	thenBlock, err := p.handleStatementBlock(children[5])
	if err != nil {
		return nil, fmt.Errorf("error handling 'then' block: %w", err)
	}

	var elseBlock []Statement
	if maybeElse := children[7]; maybeElse.GetName() == "else_block" {
		elseChildren := maybeElse.GetChildren()
		if len(elseChildren) != 4 {
			return nil, parseErrorf("expected node 'else_block' with 4 children, got %d", len(elseChildren))
		}

		elseBlock, err = p.handleStatementBlock(elseChildren[2])
		if err != nil {
			return nil, fmt.Errorf("error handling 'else' block: %w", err)
		}
	}

	return IfStmt{Condition: cond, ThenBlock: thenBlock, ElseBlock: elseBlock}, nil
}

// Specialized function to convert a "while_stmt" node to a 'jack.WhileStmt'.
func (p *Parser) HandleWhileStmt(node pc.Queryable) (Statement, error) {
	children := node.GetChildren()
	if len(children) != 7 {
		return nil, parseErrorf("expected node 'while_stmt' with 7 children, got %d", len(children))
	}

	cond, err := p.HandleExpression(children[2])
	if err != nil {
		return nil, fmt.Errorf("error handling while condition expression: %w", err)
	}

	block, err := p.handleStatementBlock(children[5])
	if err != nil {
		return nil, fmt.Errorf("error handling while block: %w", err)
	}

	return WhileStmt{Condition: cond, Block: block}, nil
}

// Specialized function to convert a "do_stmt" node to a 'jack.DoStmt'.
func (p *Parser) HandleDoStmt(node pc.Queryable) (Statement, error) {
	children := node.GetChildren()
	if len(children) != 3 {
		return nil, parseErrorf("expected node 'do_stmt' with 3 children, got %d", len(children))
	}

	call, err := p.HandleFuncCall(children[1])
	if err != nil {
		return nil, fmt.Errorf("error handling function call: %w", err)
	}

	return DoStmt{FuncCall: call}, nil
}

// Specialized function to convert a "return_stmt" node to a 'jack.ReturnStmt'.
func (p *Parser) HandleReturnStmt(node pc.Queryable) (Statement, error) {
	children := node.GetChildren()
	if len(children) != 3 {
		return nil, parseErrorf("expected node 'return_stmt' with 3 children, got %d", len(children))
	}

	if maybeExpr := children[1]; maybeExpr.GetName() == "expression" {
		expr, err := p.HandleExpression(maybeExpr)
		if err != nil {
			return nil, fmt.Errorf("error handling return expression: %w", err)
		}
		return ReturnStmt{Expr: expr}, nil
	}

	return ReturnStmt{}, nil
}

// handleStatementBlock converts a Kleene-repeated statement/comment block node into a list of
// 'jack.Statement', skipping any interleaved comments.
func (p *Parser) handleStatementBlock(node pc.Queryable) ([]Statement, error) {
	statements := []Statement{}

	for _, item := range node.GetChildren() {
		if isComment(item) {
			continue
		}

		stmt, err := p.HandleStatement(item)
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}

	return statements, nil
}

// Generalized function to convert an "expression" node to a 'jack.Expression'.
func (p *Parser) HandleExpression(node pc.Queryable) (Expression, error) {
	if node.GetName() != "expression" {
		return nil, parseErrorf("expected node 'expression', got %s", node.GetName())
	}

	children := node.GetChildren()
	if len(children) != 2 {
		return nil, parseErrorf("expected node 'expression' with 2 children, got %d", len(children))
	}

	result, err := p.HandleTerm(children[0])
	if err != nil {
		return nil, fmt.Errorf("error handling term: %w", err)
	}

	for _, opTerm := range children[1].GetChildren() {
		otChildren := opTerm.GetChildren()
		if len(otChildren) != 2 {
			return nil, parseErrorf("expected node 'op_term' with 2 children, got %d", len(otChildren))
		}

		op, err := binaryOpFromAtom(otChildren[0].GetValue())
		if err != nil {
			return nil, err
		}

		rhs, err := p.HandleTerm(otChildren[1])
		if err != nil {
			return nil, fmt.Errorf("error handling RHS term: %w", err)
		}

		result = BinaryExpr{Type: op, Lhs: result, Rhs: rhs}
	}

	return result, nil
}

// Generalized function to convert a "term" subtree (any alternative of 'pTerm') to a 'jack.Expression'.
func (p *Parser) HandleTerm(node pc.Queryable) (Expression, error) {
	switch node.GetName() {
	case "INT":
		// Integer literals are 15-bit unsigned (0..32767); anything wider would alias a
		// negative value once pushed onto the VM's two's-complement stack.
		if _, err := strconv.ParseUint(node.GetValue(), 10, 15); err != nil {
			return nil, LexError{Msg: fmt.Sprintf("integer literal '%s' out of range [0, 32767]", node.GetValue())}
		}
		return LiteralExpr{Type: Int, Value: node.GetValue()}, nil

	case "STRING":
		return LiteralExpr{Type: String, Value: strings.Trim(node.GetValue(), `"`)}, nil

	case "TRUE":
		return LiteralExpr{Type: Bool, Value: "true"}, nil
	case "FALSE":
		return LiteralExpr{Type: Bool, Value: "false"}, nil
	case "NULL":
		return LiteralExpr{Type: Object, Value: "null"}, nil
	case "THIS":
		return VarExpr{Var: "this"}, nil

	case "ext_call", "call":
		return p.HandleFuncCall(node)

	case "array_term":
		children := node.GetChildren()
		if len(children) != 4 {
			return nil, parseErrorf("expected node 'array_term' with 4 children, got %d", len(children))
		}
		index, err := p.HandleExpression(children[2])
		if err != nil {
			return nil, fmt.Errorf("error handling array index expression: %w", err)
		}
		return ArrayExpr{Var: children[0].GetValue(), Index: index}, nil

	case "var_term":
		return VarExpr{Var: node.GetChildren()[0].GetValue()}, nil

	case "paren_term":
		children := node.GetChildren()
		if len(children) != 3 {
			return nil, parseErrorf("expected node 'paren_term' with 3 children, got %d", len(children))
		}
		return p.HandleExpression(children[1])

	case "unary_term":
		children := node.GetChildren()
		if len(children) != 2 {
			return nil, parseErrorf("expected node 'unary_term' with 2 children, got %d", len(children))
		}
		op, err := unaryOpFromAtom(children[0].GetValue())
		if err != nil {
			return nil, err
		}
		rhs, err := p.HandleTerm(children[1])
		if err != nil {
			return nil, fmt.Errorf("error handling nested term: %w", err)
		}
		return UnaryExpr{Type: op, Rhs: rhs}, nil

	default:
		return nil, parseErrorf("unrecognized term node '%s'", node.GetName())
	}
}

// Specialized function to convert an "ext_call"/"call" node to a 'jack.FuncCallExpr'.
func (p *Parser) HandleFuncCall(node pc.Queryable) (FuncCallExpr, error) {
	switch node.GetName() {
	case "ext_call":
		children := node.GetChildren()
		if len(children) != 6 {
			return FuncCallExpr{}, parseErrorf("expected node 'ext_call' with 6 children, got %d", len(children))
		}
		args, err := p.handleExprList(children[4])
		if err != nil {
			return FuncCallExpr{}, err
		}
		return FuncCallExpr{IsExtCall: true, Var: children[0].GetValue(), FuncName: children[2].GetValue(), Arguments: args}, nil

	case "call":
		children := node.GetChildren()
		if len(children) != 4 {
			return FuncCallExpr{}, parseErrorf("expected node 'call' with 4 children, got %d", len(children))
		}
		args, err := p.handleExprList(children[2])
		if err != nil {
			return FuncCallExpr{}, err
		}
		return FuncCallExpr{IsExtCall: false, FuncName: children[0].GetValue(), Arguments: args}, nil

	default:
		return FuncCallExpr{}, parseErrorf("expected node 'ext_call' or 'call', got %s", node.GetName())
	}
}

// handleExprList converts an "expr_list" node into a list of 'jack.Expression'.
func (p *Parser) handleExprList(node pc.Queryable) ([]Expression, error) {
	exprs := []Expression{}

	for _, child := range node.GetChildren() {
		expr, err := p.HandleExpression(child)
		if err != nil {
			return nil, fmt.Errorf("error handling argument expression: %w", err)
		}
		exprs = append(exprs, expr)
	}

	return exprs, nil
}

// ----------------------------------------------------------------------------
// AST value helpers

// varTypeFromKind maps the "static"/"field" keyword text to its 'jack.VarType' counterpart.
func varTypeFromKind(kind string) (VarType, error) {
	switch kind {
	case "static":
		return Static, nil
	case "field":
		return Field, nil
	default:
		return "", parseErrorf("unrecognized class variable kind '%s'", kind)
	}
}

// subroutineKindFromNode maps the "constructor"/"function"/"method" keyword text to its
// 'jack.SubroutineType' counterpart.
func subroutineKindFromNode(kind string) (SubroutineType, error) {
	switch kind {
	case "constructor":
		return Constructor, nil
	case "function":
		return Function, nil
	case "method":
		return Method, nil
	default:
		return "", parseErrorf("unrecognized subroutine kind '%s'", kind)
	}
}

// dataTypeFromNode maps a "type" node (int/char/boolean or a class name identifier) to its
// ('jack.DataType', class name) pair; the class name is only set when 'DataType == Object'.
func dataTypeFromNode(node pc.Queryable) (DataType, string) {
	switch value := node.GetValue(); value {
	case "int":
		return Int, ""
	case "char":
		return Char, ""
	case "boolean":
		return Bool, ""
	default:
		return Object, value
	}
}

// dataTypeFromReturnNode is like 'dataTypeFromNode' but additionally recognizes 'void'.
func dataTypeFromReturnNode(node pc.Queryable) (DataType, string) {
	if node.GetValue() == "void" {
		return Void, ""
	}
	return dataTypeFromNode(node)
}

// binaryOpFromAtom maps an operator token's matched text to its 'jack.ExprType' counterpart.
func binaryOpFromAtom(op string) (ExprType, error) {
	switch op {
	case "+":
		return Plus, nil
	case "-":
		return Minus, nil
	case "*":
		return Multiply, nil
	case "/":
		return Divide, nil
	case "&":
		return BoolAnd, nil
	case "|":
		return BoolOr, nil
	case "<":
		return LessThan, nil
	case ">":
		return GreatThan, nil
	case "=":
		return Equal, nil
	default:
		return "", parseErrorf("unrecognized binary operator '%s'", op)
	}
}

// unaryOpFromAtom maps a unary operator token's matched text to its 'jack.ExprType' counterpart.
func unaryOpFromAtom(op string) (ExprType, error) {
	switch op {
	case "-":
		return Minus, nil
	case "~":
		return BoolNot, nil
	default:
		return "", parseErrorf("unrecognized unary operator '%s'", op)
	}
}
