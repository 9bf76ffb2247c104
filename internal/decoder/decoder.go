// Package decoder turns the raw opcode stream a compiler (or, eventually, a
// marshal reader loading a .pyc-style file from disk) produces into the
// decoded instruction stream the evaluator consumes. It is intentionally the
// only piece of code that understands the on-the-wire encoding of
// CodeObject.Code: opcode byte, optional little-endian 16-bit argument.
//
// The evaluator never looks at CodeObject.Code itself; it calls
// CodeObject.InstructionAt, which is populated by Decode below. Keeping this
// boundary explicit mirrors the split between a bytecode file format and the
// engine that runs it.
package decoder

import "github.com/corvid-run/corvid/internal/runtime"

// Decode walks code's raw byte stream once and populates code.Instructions.
// It is idempotent: calling it again simply rebuilds the same table from the
// current contents of Code, which is useful after an optimizer pass rewrites
// the byte stream in place.
func Decode(code *runtime.CodeObject) {
	instructions := make([]runtime.Instruction, 0, len(code.Code))
	offset := 0
	for offset < len(code.Code) {
		op := runtime.Opcode(code.Code[offset])
		line := code.LineForOffset(offset)
		if op.HasArg() {
			if offset+2 >= len(code.Code) {
				// Truncated stream: record what we can and stop. The
				// evaluator will hit a missing-offset fatal error if it
				// ever reaches this instruction pointer.
				instructions = append(instructions, runtime.Instruction{
					Op: op, Arg: 0, Line: line, Offset: offset,
				})
				break
			}
			arg := int(code.Code[offset+1]) | int(code.Code[offset+2])<<8
			instructions = append(instructions, runtime.Instruction{
				Op: op, Arg: arg, Line: line, Offset: offset,
			})
			offset += 3
		} else {
			instructions = append(instructions, runtime.Instruction{
				Op: op, Arg: -1, Line: line, Offset: offset,
			})
			offset++
		}
	}
	code.Instructions = instructions

	// Function, class, and lambda bodies are compiled into their own
	// CodeObject and embedded as a constant of the enclosing code; decode
	// those too so every reachable frame has a ready Instructions table.
	for _, c := range code.Constants {
		if nested, ok := c.(*runtime.CodeObject); ok && nested.Instructions == nil {
			Decode(nested)
		}
	}
}
