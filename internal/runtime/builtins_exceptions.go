package runtime

import (
	"fmt"
	"strings"
)

// excSpec declares one builtin exception class: its name and its parent's
// name, which must already be registered (the table below is ordered
// so every parent precedes its children).
type excSpec struct {
	name, parent string
}

// exceptionHierarchy lists every builtin exception and warning class
// below Exception, parent-before-child so a single pass can build each
// one's MRO from its already-constructed parent.
var exceptionHierarchy = []excSpec{
	{"ValueError", "Exception"}, {"TypeError", "Exception"},
	{"AttributeError", "Exception"}, {"FrozenInstanceError", "AttributeError"},
	{"NameError", "Exception"}, {"UnboundLocalError", "NameError"},
	{"RuntimeError", "Exception"}, {"AssertionError", "Exception"},
	{"StopIteration", "Exception"}, {"NotImplementedError", "Exception"},
	{"RecursionError", "Exception"}, {"MemoryError", "Exception"},
	{"SyntaxError", "Exception"}, {"EOFError", "Exception"},
	{"BufferError", "Exception"},

	{"LookupError", "Exception"}, {"KeyError", "LookupError"}, {"IndexError", "LookupError"},

	{"ArithmeticError", "Exception"}, {"ZeroDivisionError", "ArithmeticError"},
	{"OverflowError", "ArithmeticError"}, {"FloatingPointError", "ArithmeticError"},

	{"OSError", "Exception"}, {"FileNotFoundError", "OSError"}, {"PermissionError", "OSError"},
	{"FileExistsError", "OSError"}, {"IOError", "OSError"}, {"TimeoutError", "OSError"},
	{"ConnectionError", "OSError"}, {"ConnectionRefusedError", "ConnectionError"},
	{"ConnectionResetError", "ConnectionError"}, {"ConnectionAbortedError", "ConnectionError"},
	{"BrokenPipeError", "ConnectionError"}, {"IsADirectoryError", "OSError"},
	{"NotADirectoryError", "OSError"}, {"InterruptedError", "OSError"},
	{"BlockingIOError", "OSError"}, {"ChildProcessError", "OSError"}, {"ProcessLookupError", "OSError"},

	{"ImportError", "Exception"}, {"ModuleNotFoundError", "ImportError"},

	{"UnicodeError", "ValueError"}, {"UnicodeDecodeError", "UnicodeError"},
	{"UnicodeEncodeError", "UnicodeError"}, {"UnicodeTranslateError", "UnicodeError"},

	{"Warning", "Exception"}, {"DeprecationWarning", "Warning"},
	{"PendingDeprecationWarning", "Warning"}, {"RuntimeWarning", "Warning"},
	{"SyntaxWarning", "Warning"}, {"UserWarning", "Warning"}, {"FutureWarning", "Warning"},
	{"ImportWarning", "Warning"}, {"UnicodeWarning", "Warning"}, {"BytesWarning", "Warning"},
	{"ResourceWarning", "Warning"}, {"EncodingWarning", "Warning"},

	{"GeneratorExit", "BaseException"}, {"SystemExit", "BaseException"},
	{"KeyboardInterrupt", "BaseException"}, {"StopAsyncIteration", "BaseException"},
}

// newExceptionClass allocates an exception class with an empty dict and
// an MRO of itself followed by bases[0]'s MRO (single-inheritance — every
// builtin exception but ExceptionGroup has exactly one base).
func newExceptionClass(name string, bases ...*PyClass) *PyClass {
	cls := &PyClass{Name: name, Bases: bases, Dict: make(map[string]Value)}
	if len(bases) == 1 {
		cls.Mro = append([]*PyClass{cls}, bases[0].Mro...)
	} else {
		cls.Mro = []*PyClass{cls}
	}
	return cls
}

// addNoteMethod implements BaseException.add_note(note).
func addNoteMethod(vm *VM) *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "BaseException.add_note",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) < 2 {
				return nil, fmt.Errorf("add_note() missing required argument: 'note'")
			}
			self, ok := args[0].(*PyInstance)
			if !ok {
				return nil, fmt.Errorf("add_note() requires an exception instance")
			}
			note, ok := args[1].(*PyString)
			if !ok {
				return nil, fmt.Errorf("TypeError: note must be a str, not '%s'", vm.typeName(args[1]))
			}
			if notes, ok := self.Dict["__notes__"].(*PyList); ok {
				notes.Items = append(notes.Items, note)
			} else {
				self.Dict["__notes__"] = &PyList{Items: []Value{note}}
			}
			return None, nil
		},
	}
}

// initExceptionClasses builds the full builtin exception/warning class
// hierarchy and installs each one in vm.builtins.
func (vm *VM) initExceptionClasses() {
	baseException := newExceptionClass("BaseException")
	baseException.Dict["add_note"] = addNoteMethod(vm)
	vm.builtins["BaseException"] = baseException

	exception := newExceptionClass("Exception", baseException)
	vm.builtins["Exception"] = exception

	for _, spec := range exceptionHierarchy {
		parent, ok := vm.builtins[spec.parent].(*PyClass)
		if !ok {
			panic(fmt.Sprintf("initExceptionClasses: unregistered parent %q for %q", spec.parent, spec.name))
		}
		vm.builtins[spec.name] = newExceptionClass(spec.name, parent)
	}

	vm.initExceptionGroups(baseException, exception)
}

// initExceptionGroups wires up BaseExceptionGroup/ExceptionGroup, which
// need multiple inheritance and a shared method set that the simple
// single-parent table above can't express.
func (vm *VM) initExceptionGroups(baseException, exception *PyClass) {
	baseExcGroup := &PyClass{Name: "BaseExceptionGroup", Bases: []*PyClass{baseException}, Dict: make(map[string]Value)}
	baseExcGroup.Mro = []*PyClass{baseExcGroup, baseException}
	vm.builtins["BaseExceptionGroup"] = baseExcGroup

	excGroup := &PyClass{Name: "ExceptionGroup", Bases: []*PyClass{exception, baseExcGroup}, Dict: make(map[string]Value)}
	excGroup.Mro = []*PyClass{excGroup, exception, baseExcGroup, baseException}
	vm.builtins["ExceptionGroup"] = excGroup

	methods := map[string]Value{
		"__init__": vm.egInitMethod(),
		"__str__":  vm.egStrMethod(),
		"__repr__": vm.egReprMethod(),
		"subgroup": vm.egSubgroupMethod(),
		"split":    vm.egSplitMethod(),
		"derive":   vm.egDeriveMethod(),
	}
	for _, cls := range []*PyClass{baseExcGroup, excGroup} {
		for name, fn := range methods {
			cls.Dict[name] = fn
		}
	}
}

// excGroupMessage reads the "message" field exception-group instances
// store on themselves, defaulting to def if absent or not a string.
func excGroupMessage(inst *PyInstance, def string) string {
	if m, ok := inst.Dict["message"].(*PyString); ok {
		return m.Value
	}
	return def
}

// coerceExceptionItems converts a list/tuple of exceptions/instances into
// []*PyException, as both ExceptionGroup.__init__ and .derive need.
func (vm *VM) coerceExceptionItems(val Value) ([]*PyException, error) {
	var items []Value
	switch v := val.(type) {
	case *PyList:
		items = v.Items
	case *PyTuple:
		items = v.Items
	default:
		return nil, fmt.Errorf("TypeError: exceptions must be a list or tuple")
	}

	out := make([]*PyException, len(items))
	for i, item := range items {
		switch e := item.(type) {
		case *PyException:
			out[i] = e
		case *PyInstance:
			if !vm.isExceptionClass(e.Class) {
				return nil, fmt.Errorf("TypeError: exceptions must be instances of BaseException")
			}
			out[i] = vm.createException(e, nil)
		default:
			return nil, fmt.Errorf("TypeError: exceptions must be instances of BaseException")
		}
	}
	return out, nil
}

func (vm *VM) egInitMethod() *PyBuiltinFunc {
	return &PyBuiltinFunc{Name: "ExceptionGroup.__init__", Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
		if len(args) < 3 {
			return nil, fmt.Errorf("TypeError: ExceptionGroup.__init__() requires at least 2 arguments (message, exceptions)")
		}
		inst, ok := args[0].(*PyInstance)
		if !ok {
			return nil, fmt.Errorf("TypeError: ExceptionGroup.__init__() expected instance")
		}
		msgStr, ok := args[1].(*PyString)
		if !ok {
			return nil, fmt.Errorf("TypeError: ExceptionGroup message must be a string")
		}
		pyExcs, err := vm.coerceExceptionItems(args[2])
		if err != nil {
			return nil, err
		}
		if len(pyExcs) == 0 {
			return nil, fmt.Errorf("ValueError: ExceptionGroup exceptions must be non-empty")
		}

		tupleItems := make([]Value, len(pyExcs))
		for i, e := range pyExcs {
			tupleItems[i] = Value(e)
		}
		inst.Dict["message"] = msgStr
		inst.Dict["exceptions"] = &PyTuple{Items: tupleItems}
		inst.Dict["args"] = &PyTuple{Items: []Value{msgStr}}
		inst.Dict["__eg_exceptions__"] = &pyExceptionList{items: pyExcs}
		return None, nil
	}}
}

func (vm *VM) egStrMethod() *PyBuiltinFunc {
	return &PyBuiltinFunc{Name: "ExceptionGroup.__str__", Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
		inst, ok := firstInstanceArg(args)
		if !ok {
			return &PyString{Value: "ExceptionGroup()"}, nil
		}
		msg := excGroupMessage(inst, "ExceptionGroup")
		count := 0
		if excs, ok := inst.Dict["exceptions"].(*PyTuple); ok {
			count = len(excs.Items)
		}
		sub := "sub-exceptions"
		if count == 1 {
			sub = "sub-exception"
		}
		return &PyString{Value: fmt.Sprintf("%s (%d %s)", msg, count, sub)}, nil
	}}
}

func (vm *VM) egReprMethod() *PyBuiltinFunc {
	return &PyBuiltinFunc{Name: "ExceptionGroup.__repr__", Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
		inst, ok := firstInstanceArg(args)
		if !ok {
			return &PyString{Value: "ExceptionGroup()"}, nil
		}
		msg := excGroupMessage(inst, "")
		className := "ExceptionGroup"
		if inst.Class != nil {
			className = inst.Class.Name
		}
		excReprs := "[]"
		if excs, ok := inst.Dict["exceptions"].(*PyTuple); ok {
			parts := make([]string, len(excs.Items))
			for i, e := range excs.Items {
				parts[i] = vm.repr(e)
			}
			excReprs = "[" + strings.Join(parts, ", ") + "]"
		}
		return &PyString{Value: fmt.Sprintf("%s('%s', %s)", className, msg, excReprs)}, nil
	}}
}

func firstInstanceArg(args []Value) (*PyInstance, bool) {
	if len(args) < 1 {
		return nil, false
	}
	inst, ok := args[0].(*PyInstance)
	return inst, ok
}

func (vm *VM) egSubgroupMethod() *PyBuiltinFunc {
	return &PyBuiltinFunc{Name: "ExceptionGroup.subgroup", Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
		if len(args) < 2 {
			return nil, fmt.Errorf("TypeError: subgroup() requires 1 argument")
		}
		inst, ok := args[0].(*PyInstance)
		if !ok {
			return None, nil
		}
		egExcs := vm.getEGExceptions(inst)
		if egExcs == nil {
			return None, nil
		}
		var matched []*PyException
		for _, exc := range egExcs {
			if vm.exceptionMatches(exc, args[1]) {
				matched = append(matched, exc)
			}
		}
		if len(matched) == 0 {
			return None, nil
		}
		return vm.buildExceptionGroup(excGroupMessage(inst, ""), matched, vm.isBaseExceptionGroup(inst.Class))
	}}
}

func (vm *VM) egSplitMethod() *PyBuiltinFunc {
	return &PyBuiltinFunc{Name: "ExceptionGroup.split", Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
		none2 := &PyTuple{Items: []Value{None, None}}
		if len(args) < 2 {
			return nil, fmt.Errorf("TypeError: split() requires 1 argument")
		}
		inst, ok := args[0].(*PyInstance)
		if !ok {
			return none2, nil
		}
		egExcs := vm.getEGExceptions(inst)
		if egExcs == nil {
			return none2, nil
		}

		var matched, rest []*PyException
		for _, exc := range egExcs {
			if vm.exceptionMatches(exc, args[1]) {
				matched = append(matched, exc)
			} else {
				rest = append(rest, exc)
			}
		}

		msg := excGroupMessage(inst, "")
		isBase := vm.isBaseExceptionGroup(inst.Class)
		group := func(items []*PyException) Value {
			if len(items) == 0 {
				return None
			}
			g, _ := vm.buildExceptionGroup(msg, items, isBase)
			return g
		}
		return &PyTuple{Items: []Value{group(matched), group(rest)}}, nil
	}}
}

func (vm *VM) egDeriveMethod() *PyBuiltinFunc {
	return &PyBuiltinFunc{Name: "ExceptionGroup.derive", Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
		if len(args) < 2 {
			return nil, fmt.Errorf("TypeError: derive() requires 1 argument")
		}
		inst, ok := args[0].(*PyInstance)
		if !ok {
			return None, nil
		}
		pyExcs, err := vm.coerceExceptionItems(args[1])
		if err != nil {
			return nil, fmt.Errorf("TypeError: derive() argument must be a list or tuple")
		}
		return vm.buildExceptionGroup(excGroupMessage(inst, ""), pyExcs, vm.isBaseExceptionGroup(inst.Class))
	}}
}

// pyExceptionList is the opaque Value an ExceptionGroup instance stashes
// its member exceptions under, so subgroup/split/derive can recover the
// original *PyException values without re-deriving them from the public
// "exceptions" tuple.
type pyExceptionList struct {
	items []*PyException
}

func (l *pyExceptionList) Type() string   { return "_exception_list" }
func (l *pyExceptionList) String() string { return fmt.Sprintf("<exception list: %d>", len(l.items)) }

// getEGExceptions recovers an exception-group instance's member
// exceptions, preferring the cached pyExceptionList and falling back to
// re-deriving it from the public "exceptions" tuple for instances built
// some other way (e.g. directly by Go code).
func (vm *VM) getEGExceptions(inst *PyInstance) []*PyException {
	if l, ok := inst.Dict["__eg_exceptions__"].(*pyExceptionList); ok {
		return l.items
	}
	excs, ok := inst.Dict["exceptions"].(*PyTuple)
	if !ok {
		return nil
	}
	out, err := vm.coerceExceptionItems(excs)
	if err != nil {
		return nil
	}
	return out
}

// isBaseExceptionGroup reports whether cls is BaseExceptionGroup itself
// (or a subclass that doesn't also derive from Exception), which governs
// whether subgroup/split/derive rebuild with BaseExceptionGroup or the
// stricter ExceptionGroup.
func (vm *VM) isBaseExceptionGroup(cls *PyClass) bool {
	exception, _ := vm.builtins["Exception"].(*PyClass)
	for _, m := range cls.Mro {
		if m == exception {
			return false
		}
	}
	return true
}

// buildExceptionGroup constructs a fresh BaseExceptionGroup/ExceptionGroup
// instance wrapping items, choosing the class per isBase, and returns it
// unwrapped (callers that need a raisable *PyException wrap the result
// themselves via vm.createException).
func (vm *VM) buildExceptionGroup(message string, items []*PyException, isBase bool) (Value, error) {
	className := "ExceptionGroup"
	if isBase {
		className = "BaseExceptionGroup"
	}
	cls, ok := vm.builtins[className].(*PyClass)
	if !ok {
		return nil, fmt.Errorf("RuntimeError: %s is not registered", className)
	}

	tupleItems := make([]Value, len(items))
	for i, e := range items {
		tupleItems[i] = Value(e)
	}
	inst := &PyInstance{Class: cls, Dict: map[string]Value{
		"message":            &PyString{Value: message},
		"exceptions":         &PyTuple{Items: tupleItems},
		"args":               &PyTuple{Items: []Value{&PyString{Value: message}}},
		"__eg_exceptions__":  &pyExceptionList{items: items},
	}}
	return inst, nil
}
