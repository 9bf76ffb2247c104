package runtime

import (
	"fmt"
	"sort"
	"strings"
)

// PyCode wraps a CodeObject for Python access via compile().
type PyCode struct {
	Code *CodeObject
}

func (c *PyCode) Type() string   { return "code" }
func (c *PyCode) String() string { return fmt.Sprintf("<code object %s at %p>", c.Code.Name, c) }

// =====================================
// repr()
// =====================================

// BuiltinRepr implements repr(obj).
func BuiltinRepr(vm *VM) int {
	nargs := vm.GetTop()
	if nargs != 1 {
		vm.RaiseError("TypeError: repr() takes exactly one argument (%d given)", nargs)
		return 0
	}
	vm.Push(NewString(vm.Repr(vm.Get(1))))
	return 1
}

// Repr returns the repr() string for a value.
func (vm *VM) Repr(v Value) string {
	switch val := v.(type) {
	case *PyNone:
		return "None"
	case *PyBool:
		return reprBool(val.Value)
	case *PyInt:
		return fmt.Sprintf("%d", val.Value)
	case *PyFloat:
		return fmt.Sprintf("%g", val.Value)
	case *PyString:
		return "'" + escapeString(val.Value) + "'"
	case *PyBytes:
		return "b'" + escapeBytes(val.Value) + "'"
	case *PyList:
		return "[" + strings.Join(vm.reprItems(val.Items), ", ") + "]"
	case *PyTuple:
		return vm.reprTuple(val.Items)
	case *PyDict:
		return vm.reprDict(val)
	case *PySet:
		return vm.reprSet(val)
	case *PyInstance:
		return vm.reprInstance(val)
	case *PyClass:
		return fmt.Sprintf("<class '%s'>", val.Name)
	case *PyFunction:
		return fmt.Sprintf("<function %s at %p>", val.Name, val)
	case *PyBuiltinFunc:
		return fmt.Sprintf("<built-in function %s>", val.Name)
	case *PyGoFunc:
		return fmt.Sprintf("<built-in function %s>", val.Name)
	case *PyModule:
		return fmt.Sprintf("<module '%s'>", val.Name)
	case *PyCode:
		return fmt.Sprintf("<code object %s at %p>", val.Code.Name, val)
	default:
		return fmt.Sprintf("<%s object at %p>", vm.typeName(v), v)
	}
}

func reprBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func (vm *VM) reprItems(items []Value) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = vm.Repr(item)
	}
	return out
}

func (vm *VM) reprTuple(items []Value) string {
	parts := vm.reprItems(items)
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (vm *VM) reprDict(d *PyDict) string {
	var items []string
	for k, v := range d.Items {
		items = append(items, vm.Repr(k)+": "+vm.Repr(v))
	}
	return "{" + strings.Join(items, ", ") + "}"
}

func (vm *VM) reprSet(s *PySet) string {
	if len(s.Items) == 0 {
		return "set()"
	}
	var items []string
	for k := range s.Items {
		items = append(items, vm.Repr(k))
	}
	return "{" + strings.Join(items, ", ") + "}"
}

func (vm *VM) reprInstance(inst *PyInstance) string {
	if reprMethod, err := vm.getAttr(inst, "__repr__"); err == nil && reprMethod != nil {
		if result, err := vm.call(reprMethod, nil, nil); err == nil {
			if s, ok := result.(*PyString); ok {
				return s.Value
			}
		}
	}
	return fmt.Sprintf("<%s object at %p>", inst.Class.Name, inst)
}

// pyCharEscape returns the repr() escape sequence for a rune shared by
// both string and bytes repr, and whether the rune needs escaping at all.
func pyCharEscape(r rune) (string, bool) {
	switch r {
	case '\\':
		return `\\`, true
	case '\'':
		return `\'`, true
	case '\n':
		return `\n`, true
	case '\r':
		return `\r`, true
	case '\t':
		return `\t`, true
	}
	if r < 32 || r > 126 {
		return fmt.Sprintf("\\x%02x", r), true
	}
	return "", false
}

func escapeString(s string) string {
	var b strings.Builder
	for _, r := range s {
		if esc, escape := pyCharEscape(r); escape {
			b.WriteString(esc)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func escapeBytes(data []byte) string {
	var b strings.Builder
	for _, c := range data {
		if esc, escape := pyCharEscape(rune(c)); escape {
			b.WriteString(esc)
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// =====================================
// dir() / vars() / globals() / locals()
// =====================================

// typeMethodNames lists the builtin methods dir() reports for types whose
// methods aren't backed by a Dict the interpreter can walk directly.
var typeMethodNames = map[string][]string{
	"dict":      {"clear", "copy", "fromkeys", "get", "items", "keys", "pop", "popitem", "setdefault", "update", "values"},
	"list":      {"append", "clear", "copy", "count", "extend", "index", "insert", "pop", "remove", "reverse", "sort"},
	"str":       {"capitalize", "casefold", "center", "count", "encode", "endswith", "expandtabs", "find", "format", "format_map", "index", "isalnum", "isalpha", "isascii", "isdecimal", "isdigit", "isidentifier", "islower", "isnumeric", "isprintable", "isspace", "istitle", "isupper", "join", "ljust", "lower", "lstrip", "maketrans", "partition", "removeprefix", "removesuffix", "replace", "rfind", "rindex", "rjust", "rpartition", "rsplit", "rstrip", "split", "splitlines", "startswith", "strip", "swapcase", "title", "translate", "upper", "zfill"},
	"int":       {"bit_length", "bit_count", "conjugate", "as_integer_ratio", "to_bytes", "from_bytes", "real", "imag", "numerator", "denominator"},
	"float":     {"is_integer", "hex", "fromhex", "as_integer_ratio", "conjugate", "real", "imag"},
	"set":       {"add", "clear", "copy", "difference", "difference_update", "discard", "intersection", "intersection_update", "isdisjoint", "issubset", "issuperset", "pop", "remove", "symmetric_difference", "symmetric_difference_update", "union", "update"},
	"frozenset": {"copy", "difference", "intersection", "isdisjoint", "issubset", "issuperset", "symmetric_difference", "union"},
	"tuple":     {"count", "index"},
	"bytes":     {"capitalize", "center", "count", "decode", "endswith", "expandtabs", "find", "hex", "index", "isalnum", "isalpha", "isascii", "isdigit", "islower", "isspace", "istitle", "isupper", "join", "ljust", "lower", "lstrip", "maketrans", "partition", "removeprefix", "removesuffix", "replace", "rfind", "rindex", "rjust", "rpartition", "rsplit", "rstrip", "split", "splitlines", "startswith", "strip", "swapcase", "title", "translate", "upper", "zfill"},
	"range":     {"count", "index", "start", "stop", "step"},
	"complex":   {"conjugate", "imag", "real"},
}

// BuiltinDir implements dir([obj]).
func BuiltinDir(vm *VM) int {
	nargs := vm.GetTop()
	if nargs == 0 {
		vm.Push(&PyList{Items: sortedStringList(vm.scopeNames())})
		return 1
	}
	if nargs != 1 {
		vm.RaiseError("TypeError: dir() takes at most 1 argument (%d given)", nargs)
		return 0
	}
	vm.Push(&PyList{Items: vm.getObjectDir(vm.Get(1))})
	return 1
}

// scopeNames collects the names visible to dir() with no argument: the
// caller's locals, globals, and builtins, plus the top-level globals.
func (vm *VM) scopeNames() map[string]bool {
	names := make(map[string]bool)
	if callerFrame := vm.getCallerFrame(); callerFrame != nil {
		if callerFrame.Code != nil {
			addNames(names, callerFrame.Code.VarNames)
		}
		collectDictNames(names, callerFrame.Globals)
		collectDictNames(names, callerFrame.Builtins)
	}
	collectDictNames(names, vm.Globals)
	return names
}

// getObjectDir returns the attributes of an object for dir(obj).
func (vm *VM) getObjectDir(obj Value) []Value {
	names := make(map[string]bool)
	switch v := obj.(type) {
	case *PyInstance:
		collectDictNames(names, v.Dict)
		collectDictNames(names, v.Class.Dict)
		for _, cls := range v.Class.Mro {
			collectDictNames(names, cls.Dict)
		}
	case *PyClass:
		collectDictNames(names, v.Dict)
		for _, cls := range v.Mro {
			collectDictNames(names, cls.Dict)
		}
	case *PyModule:
		collectDictNames(names, v.Dict)
	case *PyDict:
		for k := range v.Items {
			if s, ok := k.(*PyString); ok {
				names[s.Value] = true
			}
		}
		addNames(names, typeMethodNames["dict"])
	case *PyList:
		addNames(names, typeMethodNames["list"])
	case *PyString:
		addNames(names, typeMethodNames["str"])
	case *PyInt:
		addNames(names, typeMethodNames["int"])
	case *PyFloat:
		addNames(names, typeMethodNames["float"])
	case *PySet:
		addNames(names, typeMethodNames["set"])
	case *PyFrozenSet:
		addNames(names, typeMethodNames["frozenset"])
	case *PyTuple:
		addNames(names, typeMethodNames["tuple"])
	case *PyBytes:
		addNames(names, typeMethodNames["bytes"])
	case *PyRange:
		addNames(names, typeMethodNames["range"])
	case *PyComplex:
		addNames(names, typeMethodNames["complex"])
	}
	return sortedStringList(names)
}

func collectDictNames(names map[string]bool, dict map[string]Value) {
	for name := range dict {
		names[name] = true
	}
}

func addNames(names map[string]bool, list []string) {
	for _, name := range list {
		names[name] = true
	}
}

// sortedStringList converts a set of names to a sorted list of PyStrings.
func sortedStringList(names map[string]bool) []Value {
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	result := make([]Value, len(sorted))
	for i, name := range sorted {
		result[i] = NewString(name)
	}
	return result
}

// pyDictFromMap builds a *PyDict view over a string-keyed Value map, used
// by globals()/vars() to hand back a snapshot rather than a live map.
func pyDictFromMap(m map[string]Value) *PyDict {
	d := &PyDict{Items: make(map[Value]Value, len(m))}
	for name, value := range m {
		d.Items[NewString(name)] = value
	}
	return d
}

// BuiltinGlobals implements globals().
func BuiltinGlobals(vm *VM) int {
	if nargs := vm.GetTop(); nargs != 0 {
		vm.RaiseError("TypeError: globals() takes no arguments (%d given)", nargs)
		return 0
	}
	callerFrame := vm.getCallerFrame()
	if callerFrame != nil && callerFrame.Globals != nil {
		vm.Push(pyDictFromMap(callerFrame.Globals))
	} else {
		vm.Push(pyDictFromMap(vm.Globals))
	}
	return 1
}

// BuiltinLocals implements locals().
func BuiltinLocals(vm *VM) int {
	if nargs := vm.GetTop(); nargs != 0 {
		vm.RaiseError("TypeError: locals() takes no arguments (%d given)", nargs)
		return 0
	}
	locals := &PyDict{Items: make(map[Value]Value)}
	if callerFrame := vm.getCallerFrame(); callerFrame != nil && callerFrame.Code != nil {
		for i, name := range callerFrame.Code.VarNames {
			if i < len(callerFrame.Locals) && callerFrame.Locals[i] != nil {
				locals.Items[NewString(name)] = callerFrame.Locals[i]
			}
		}
	}
	vm.Push(locals)
	return 1
}

// getCallerFrame returns the frame of the Python code that called the
// current builtin, skipping temporary frames created for Go calls.
func (vm *VM) getCallerFrame() *Frame {
	for i := len(vm.frames) - 1; i >= 0; i-- {
		if vm.frames[i].Code != nil {
			return vm.frames[i]
		}
	}
	if vm.frame != nil && vm.frame.Code != nil {
		return vm.frame
	}
	return nil
}

// BuiltinVars implements vars([obj]).
func BuiltinVars(vm *VM) int {
	nargs := vm.GetTop()
	if nargs == 0 {
		return BuiltinLocals(vm)
	}
	if nargs != 1 {
		vm.RaiseError("TypeError: vars() takes at most 1 argument (%d given)", nargs)
		return 0
	}
	switch v := vm.Get(1).(type) {
	case *PyInstance:
		vm.Push(pyDictFromMap(v.Dict))
	case *PyClass:
		vm.Push(pyDictFromMap(v.Dict))
	case *PyModule:
		vm.Push(pyDictFromMap(v.Dict))
	default:
		vm.RaiseError("TypeError: vars() argument must have __dict__ attribute")
		return 0
	}
	return 1
}

// =====================================
// compile() / exec() / eval()
// =====================================

// BuiltinCompile implements compile(source, filename, mode).
func BuiltinCompile(vm *VM) int {
	if CompileFunc == nil {
		vm.RaiseError("RuntimeError: compile() not available - compiler not registered")
		return 0
	}
	nargs := vm.GetTop()
	if nargs < 3 {
		vm.RaiseError("TypeError: compile() requires at least 3 arguments: source, filename, mode")
		return 0
	}
	source, ok := vm.Get(1).(*PyString)
	if !ok {
		vm.RaiseError("TypeError: compile() expected string for source, got %s", vm.typeName(vm.Get(1)))
		return 0
	}
	filename, ok := vm.Get(2).(*PyString)
	if !ok {
		vm.RaiseError("TypeError: compile() expected string for filename, got %s", vm.typeName(vm.Get(2)))
		return 0
	}
	mode, ok := vm.Get(3).(*PyString)
	if !ok {
		vm.RaiseError("TypeError: compile() expected string for mode, got %s", vm.typeName(vm.Get(3)))
		return 0
	}
	if mode.Value != "exec" && mode.Value != "eval" && mode.Value != "single" {
		vm.RaiseError("ValueError: compile() mode must be 'exec', 'eval', or 'single'")
		return 0
	}
	code, err := CompileFunc(source.Value, filename.Value, mode.Value)
	if err != nil {
		vm.RaiseError("SyntaxError: %s", err.Error())
		return 0
	}
	vm.Push(&PyCode{Code: code})
	return 1
}

// resolveCodeArg implements exec()/eval()'s shared "arg 1 must be a string
// or code object" handling, compiling strings on demand via CompileFunc.
func (vm *VM) resolveCodeArg(arg Value, mode, builtinName string) (*CodeObject, error) {
	switch c := arg.(type) {
	case *PyCode:
		return c.Code, nil
	case *PyString:
		if CompileFunc == nil {
			return nil, fmt.Errorf("RuntimeError: %s() cannot compile - compiler not registered", builtinName)
		}
		code, err := CompileFunc(c.Value, "<string>", mode)
		if err != nil {
			return nil, fmt.Errorf("SyntaxError: %s", err.Error())
		}
		return code, nil
	default:
		return nil, fmt.Errorf("TypeError: %s() arg 1 must be a string or code object, not %s", builtinName, vm.typeName(arg))
	}
}

// resolveNamespaceGlobals implements exec()/eval()'s shared default-globals
// resolution: an explicit dict argument if given, else the caller's frame
// globals, else the VM's top-level globals. originalDict is non-nil only
// when an explicit *PyDict argument was passed, so callers can write
// changes back to it.
func (vm *VM) resolveNamespaceGlobals(explicit Value, hasExplicit bool, callerFrame *Frame, builtinName string) (map[string]Value, *PyDict, error) {
	if hasExplicit {
		g, ok := explicit.(*PyDict)
		if !ok {
			return nil, nil, fmt.Errorf("TypeError: %s() globals must be a dict", builtinName)
		}
		return dictToStringMap(g), g, nil
	}
	if callerFrame != nil && callerFrame.Globals != nil {
		return callerFrame.Globals, nil, nil
	}
	return vm.Globals, nil, nil
}

// resolveNamespaceLocals mirrors resolveNamespaceGlobals for exec()/eval()'s
// locals argument. With no explicit dict, locals are built by layering the
// caller's actual local variables over a copy of globalsDict, matching
// Python's LEGB lookup order.
func (vm *VM) resolveNamespaceLocals(explicit Value, hasExplicit bool, callerFrame *Frame, globalsDict map[string]Value, builtinName string) (map[string]Value, *PyDict, error) {
	if hasExplicit {
		l, ok := explicit.(*PyDict)
		if !ok {
			return nil, nil, fmt.Errorf("TypeError: %s() locals must be a dict", builtinName)
		}
		return dictToStringMap(l), l, nil
	}
	if callerFrame != nil && callerFrame.Code != nil {
		locals := make(map[string]Value, len(globalsDict))
		for k, v := range globalsDict {
			locals[k] = v
		}
		for i, name := range callerFrame.Code.VarNames {
			if i < len(callerFrame.Locals) && callerFrame.Locals[i] != nil {
				locals[name] = callerFrame.Locals[i]
			}
		}
		return locals, nil, nil
	}
	return globalsDict, nil, nil
}

// namespaceArg fetches an optional exec()/eval() argument, treating a
// literal None the same as the argument being absent.
func namespaceArg(vm *VM, nargs, index int) (Value, bool) {
	if nargs < index {
		return nil, false
	}
	arg := vm.Get(index)
	if _, isNone := arg.(*PyNone); isNone {
		return nil, false
	}
	return arg, true
}

// BuiltinExec implements exec(source, globals=None, locals=None).
func BuiltinExec(vm *VM) int {
	nargs := vm.GetTop()
	if nargs < 1 {
		vm.RaiseError("TypeError: exec() missing required argument: 'source'")
		return 0
	}
	callerFrame := vm.getCallerFrame()

	globalsArg, hasGlobals := namespaceArg(vm, nargs, 2)
	globalsDict, originalGlobals, err := vm.resolveNamespaceGlobals(globalsArg, hasGlobals, callerFrame, "exec")
	if err != nil {
		vm.RaiseError("%s", err.Error())
		return 0
	}

	localsArg, hasLocals := namespaceArg(vm, nargs, 3)
	localsDict, originalLocals, err := vm.resolveNamespaceLocals(localsArg, hasLocals, callerFrame, globalsDict, "exec")
	if err != nil {
		vm.RaiseError("%s", err.Error())
		return 0
	}
	if originalLocals == nil && originalGlobals != nil {
		originalLocals = originalGlobals
	}

	code, err := vm.resolveCodeArg(vm.Get(1), "exec", "exec")
	if err != nil {
		vm.RaiseError("%s", err.Error())
		return 0
	}

	if err := vm.ExecuteInNamespace(code, globalsDict, localsDict); err != nil {
		vm.RaiseError("%s", err.Error())
		return 0
	}

	if originalGlobals != nil {
		for k, v := range globalsDict {
			originalGlobals.Items[NewString(k)] = v
		}
	}
	if originalLocals != nil && originalLocals != originalGlobals {
		for k, v := range localsDict {
			originalLocals.Items[NewString(k)] = v
		}
	}

	vm.Push(None)
	return 1
}

// BuiltinEval implements eval(expression, globals=None, locals=None).
func BuiltinEval(vm *VM) int {
	nargs := vm.GetTop()
	if nargs < 1 {
		vm.RaiseError("TypeError: eval() missing required argument: 'expression'")
		return 0
	}
	callerFrame := vm.getCallerFrame()

	globalsArg, hasGlobals := namespaceArg(vm, nargs, 2)
	globalsDict, _, err := vm.resolveNamespaceGlobals(globalsArg, hasGlobals, callerFrame, "eval")
	if err != nil {
		vm.RaiseError("%s", err.Error())
		return 0
	}

	localsArg, hasLocals := namespaceArg(vm, nargs, 3)
	localsDict, _, err := vm.resolveNamespaceLocals(localsArg, hasLocals, callerFrame, globalsDict, "eval")
	if err != nil {
		vm.RaiseError("%s", err.Error())
		return 0
	}

	code, err := vm.resolveCodeArg(vm.Get(1), "eval", "eval")
	if err != nil {
		vm.RaiseError("%s", err.Error())
		return 0
	}

	result, err := vm.EvalInNamespace(code, globalsDict, localsDict)
	if err != nil {
		vm.RaiseError("%s", err.Error())
		return 0
	}
	if result == nil {
		result = None
	}
	vm.Push(result)
	return 1
}

// =====================================
// Namespace execution
// =====================================

// dictToStringMap converts a PyDict's string-keyed entries to a plain map.
func dictToStringMap(d *PyDict) map[string]Value {
	result := make(map[string]Value, len(d.Items))
	for k, v := range d.Items {
		if s, ok := k.(*PyString); ok {
			result[s.Value] = v
		}
	}
	return result
}

// runInNamespace is the shared frame setup used by exec() and eval(): the
// compiled code runs with locals layered over globals (OpLoadGlobal is the
// only name-lookup opcode code compiled outside its original scope has
// access to), in a fresh frame pushed onto the VM's call stack for the
// duration of the run.
func (vm *VM) runInNamespace(code *CodeObject, globals, locals map[string]Value) (frame *Frame, mergedGlobals map[string]Value, result Value, err error) {
	mergedGlobals = make(map[string]Value, len(globals)+len(locals))
	for k, v := range globals {
		mergedGlobals[k] = v
	}
	for k, v := range locals {
		mergedGlobals[k] = v
	}

	frame = &Frame{
		Code:     code,
		IP:       0,
		Stack:    make([]Value, code.StackSize+16),
		SP:       0,
		Locals:   make([]Value, len(code.VarNames)),
		Globals:  mergedGlobals,
		Builtins: vm.builtins,
	}
	for i, name := range code.VarNames {
		if val, ok := locals[name]; ok {
			frame.Locals[i] = val
		}
	}

	oldFrame, oldFrames := vm.frame, vm.frames
	vm.frames = []*Frame{frame}
	vm.frame = frame
	result, err = vm.run()
	vm.frame, vm.frames = oldFrame, oldFrames

	return frame, mergedGlobals, result, err
}

// ExecuteInNamespace executes code with custom globals/locals, writing any
// new or changed bindings back into the caller-supplied maps.
func (vm *VM) ExecuteInNamespace(code *CodeObject, globals, locals map[string]Value) error {
	frame, mergedGlobals, _, err := vm.runInNamespace(code, globals, locals)

	for i, name := range code.VarNames {
		if i < len(frame.Locals) && frame.Locals[i] != nil {
			locals[name] = frame.Locals[i]
		}
	}
	// Covers assignments like `exec("x = 100")`, stored via OpStoreGlobal.
	for k, v := range mergedGlobals {
		globals[k] = v
	}

	return err
}

// EvalInNamespace evaluates code and returns its result.
func (vm *VM) EvalInNamespace(code *CodeObject, globals, locals map[string]Value) (Value, error) {
	frame, mergedGlobals, result, err := vm.runInNamespace(code, globals, locals)
	if err != nil {
		return nil, err
	}

	// compileForBuiltin stashes the eval-mode expression result here.
	if evalResult, ok := mergedGlobals["__eval_result__"]; ok {
		delete(mergedGlobals, "__eval_result__")
		return evalResult, nil
	}
	if frame.SP > 0 {
		result = frame.Stack[frame.SP-1]
	}
	return result, nil
}
