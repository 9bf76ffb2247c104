package compiler

import (
	"fmt"

	"github.com/corvid-run/corvid/internal/decoder"
	"github.com/corvid-run/corvid/internal/model"
	"github.com/corvid-run/corvid/internal/runtime"
)

// CompileError represents a compilation error
type CompileError struct {
	Pos     model.Position
	Message string
}

func (e CompileError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename, e.Pos.Line, e.Pos.Column, e.Message)
}

// Scope types for variable resolution
type Compiler struct {
	code        *runtime.CodeObject
	symbolTable *SymbolTable
	errors      []CompileError
	loopStack   []loopInfo
	filename    string
	optimizer   *Optimizer
}

type loopInfo struct {
	startOffset   int
	breakJumps    []int
	continueJumps []int
	isForLoop     bool // true for 'for' loops (iterator on stack), false for 'while' loops
}

// NewCompiler creates a new compiler
func NewCompiler(filename string) *Compiler {
	code := &runtime.CodeObject{
		Name:      "<module>",
		Filename:  filename,
		FirstLine: 1,
	}
	return &Compiler{
		code:        code,
		symbolTable: NewSymbolTable(ScopeModule, nil),
		filename:    filename,
		optimizer:   NewOptimizer(),
	}
}

// Compile compiles a module to bytecode
func (c *Compiler) Compile(module *model.Module) (*runtime.CodeObject, []CompileError) {
	stmts := module.Body

	for _, stmt := range stmts {
		c.compileStmt(stmt)
	}

	// Add implicit return None at end of module
	c.emit(runtime.OpLoadNone) // Use optimized opcode
	c.emit(runtime.OpReturn)

	// Build names and varnames lists
	c.finalizeCode()

	// Apply peephole optimizations
	c.optimizer.PeepholeOptimize(c.code)

	// Decode the finished byte stream into the instruction table the
	// evaluator reads; must run last since optimization still rewrites
	// byte offsets.
	decoder.Decode(c.code)

	return c.code, c.errors
}

// newChildCompiler creates a compiler for a nested scope (function body,
// class body, lambda, or comprehension) that shares this compiler's
// optimizer settings and chains its symbol table to the parent's for
// free-variable resolution.
func (c *Compiler) newChildCompiler(name string, firstLine int, scopeType ScopeType, flags runtime.CodeFlags) *Compiler {
	code := &runtime.CodeObject{
		Name:      name,
		Filename:  c.filename,
		FirstLine: firstLine,
		Flags:     flags,
	}
	child := &Compiler{
		code:        code,
		symbolTable: NewSymbolTable(scopeType, c.symbolTable),
		filename:    c.filename,
		optimizer:   c.optimizer,
	}
	return child
}

// finalizeAndOptimize runs the same end-of-scope pipeline as Compile for a
// nested code object (function, class, or lambda body): resolve locals and
// free variables, peephole-optimize, then decode.
func (c *Compiler) finalizeAndOptimize(child *Compiler) {
	child.finalizeCode()
	child.optimizer.PeepholeOptimize(child.code)
	decoder.Decode(child.code)
}

func (c *Compiler) error(pos model.Position, format string, args ...interface{}) {
	c.errors = append(c.errors, CompileError{
		Pos:     pos,
		Message: fmt.Sprintf(format, args...),
	})
}

// Bytecode emission helpers

func (c *Compiler) emit(op runtime.Opcode) int {
	offset := len(c.code.Code)
	c.code.Code = append(c.code.Code, byte(op))
	return offset
}

func (c *Compiler) emitArg(op runtime.Opcode, arg int) int {
	offset := len(c.code.Code)
	c.code.Code = append(c.code.Code, byte(op), byte(arg), byte(arg>>8))
	return offset
}

func (c *Compiler) emitJump(op runtime.Opcode) int {
	return c.emitArg(op, 0) // Placeholder, will be patched
}

func (c *Compiler) patchJump(offset int, target int) {
	c.code.Code[offset+1] = byte(target)
	c.code.Code[offset+2] = byte(target >> 8)
}

func (c *Compiler) currentOffset() int {
	return len(c.code.Code)
}

func (c *Compiler) addConstant(value interface{}) int {
	for i, v := range c.code.Constants {
		if v == value {
			return i
		}
	}
	c.code.Constants = append(c.code.Constants, value)
	return len(c.code.Constants) - 1
}

func (c *Compiler) addName(name string) int {
	for i, n := range c.code.Names {
		if n == name {
			return i
		}
	}
	c.code.Names = append(c.code.Names, name)
	return len(c.code.Names) - 1
}

func (c *Compiler) emitLoadConst(value interface{}) {
	idx := c.addConstant(value)
	c.emitArg(runtime.OpLoadConst, idx)
}

// Statement compilation

func (c *Compiler) finalizeCode() {
	// Build VarNames list
	for name, sym := range c.symbolTable.symbols {
		if sym.Scope == ScopeLocal && sym.Index >= 0 {
			// Ensure VarNames has enough capacity
			for len(c.code.VarNames) <= sym.Index {
				c.code.VarNames = append(c.code.VarNames, "")
			}
			c.code.VarNames[sym.Index] = name
		}
	}

	// Build FreeVars list
	for _, sym := range c.symbolTable.freeSyms {
		c.code.FreeVars = append(c.code.FreeVars, sym.Name)
	}

	// Calculate stack size (simplified estimate)
	c.code.StackSize = c.estimateStackSize()
}

func (c *Compiler) estimateStackSize() int {
	// Conservative estimate based on code length
	maxStack := 10
	for i := 0; i < len(c.code.Code); {
		op := runtime.Opcode(c.code.Code[i])
		if op.HasArg() {
			i += 3
		} else {
			i++
		}
		// Certain ops increase stack needs
		switch op {
		case runtime.OpBuildList, runtime.OpBuildTuple, runtime.OpBuildSet, runtime.OpBuildMap:
			if i > 2 {
				arg := int(c.code.Code[i-2]) | int(c.code.Code[i-1])<<8
				if arg > maxStack {
					maxStack = arg + 10
				}
			}
		}
	}
	return maxStack
}

// CompileSource compiles Python source code to a code object
func CompileSource(source, filename string) (*runtime.CodeObject, []error) {
	parser := NewParser(source)
	module, parseErrors := parser.Parse()

	if len(parseErrors) > 0 {
		var errs []error
		for _, e := range parseErrors {
			errs = append(errs, e)
		}
		return nil, errs
	}

	compiler := NewCompiler(filename)
	code, compileErrors := compiler.Compile(module)

	if len(compileErrors) > 0 {
		var errs []error
		for _, e := range compileErrors {
			errs = append(errs, e)
		}
		return nil, errs
	}

	return code, nil
}
