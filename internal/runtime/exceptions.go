package runtime

// builtinClass fetches a builtin by name and asserts it's a class,
// returning nil rather than panicking if the builtin is missing or not a
// class (which should never happen once stdlib init has run, but callers
// here are exception-construction paths that must never panic themselves).
func (vm *VM) builtinClass(name string) *PyClass {
	v, ok := vm.builtins[name]
	if !ok {
		return nil
	}
	cls, _ := v.(*PyClass)
	return cls
}

// notAnException builds the TypeError CPython raises when something that
// isn't a BaseException subclass is used in a raise statement.
func (vm *VM) notAnException() *PyException {
	const msg = "exceptions must derive from BaseException"
	return &PyException{
		ExcType: vm.builtinClass("TypeError"),
		Args:    &PyTuple{Items: []Value{&PyString{Value: msg}}},
		Message: "TypeError: " + msg,
	}
}

// createException normalizes whatever a raise statement (or internal
// error path) produced into a *PyException: exceptions pass through,
// exception classes and instances are unpacked, bare strings are wrapped
// in Exception, and anything else becomes notAnException.
func (vm *VM) createException(excVal Value, cause Value) *PyException {
	if already, ok := excVal.(*PyException); ok {
		return already
	}

	var exc *PyException

	switch v := excVal.(type) {
	case *PyClass:
		if !vm.isExceptionClass(v) {
			exc = vm.notAnException()
			break
		}
		exc = &PyException{ExcType: v, Args: &PyTuple{Items: []Value{}}, Message: v.Name}
	case *PyInstance:
		if !vm.isExceptionClass(v.Class) {
			exc = vm.notAnException()
			break
		}
		args, _ := v.Dict["args"].(*PyTuple)
		if args == nil {
			args = &PyTuple{Items: []Value{}}
		}
		exc = &PyException{ExcType: v.Class, Args: args, Message: vm.str(v)}
	case *PyString:
		exc = &PyException{
			ExcType: vm.builtinClass("Exception"),
			Args:    &PyTuple{Items: []Value{v}},
			Message: v.Value,
		}
	default:
		exc = vm.notAnException()
	}

	if cause != nil {
		exc.Cause = vm.createException(cause, nil)
	}
	return exc
}

// isExceptionClass reports whether cls's MRO includes BaseException.
func (vm *VM) isExceptionClass(cls *PyClass) bool {
	baseExc := vm.builtinClass("BaseException")
	if baseExc == nil {
		return false
	}
	for _, ancestor := range cls.Mro {
		if ancestor == baseExc {
			return true
		}
	}
	return false
}

// exceptionMatches implements an except clause's type test: exceptionType
// may be a single class (checked via exc's MRO) or a tuple of classes
// (matched if any member matches).
func (vm *VM) exceptionMatches(exc *PyException, exceptionType Value) bool {
	switch t := exceptionType.(type) {
	case *PyClass:
		for _, ancestor := range exc.ExcType.Mro {
			if ancestor == t {
				return true
			}
		}
		return false
	case *PyTuple:
		for _, candidate := range t.Items {
			if vm.exceptionMatches(exc, candidate) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// buildTraceback snapshots the current call stack, innermost frame first.
func (vm *VM) buildTraceback() []TracebackEntry {
	tb := make([]TracebackEntry, 0, len(vm.frames))
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := vm.frames[i]
		tb = append(tb, TracebackEntry{
			Filename: f.Code.Filename,
			Line:     f.Code.LineForOffset(f.IP),
			Function: f.Code.Name,
		})
	}
	return tb
}

// popHandlerBlock pops frame's innermost non-loop block, reporting whether
// it is an exception-handling block (except or finally) that execution
// should jump to. Loop blocks are discarded silently since they never
// intercept unwinding exceptions.
func popHandlerBlock(frame *Frame) (block Block, isHandler bool) {
	for len(frame.BlockStack) > 0 {
		b := frame.BlockStack[len(frame.BlockStack)-1]
		frame.BlockStack = frame.BlockStack[:len(frame.BlockStack)-1]
		if b.Type == BlockLoop {
			continue
		}
		return b, true
	}
	return Block{}, false
}

// handleException unwinds frames looking for an except/finally block that
// wants exc. When one is found, the frame's stack and IP are rewound to
// the handler and (nil, nil) is returned so execution resumes there; if
// unwinding empties the frame stack, (nil, exc) propagates to the caller.
func (vm *VM) handleException(exc *PyException) (Value, error) {
	vm.currentException = exc
	vm.lastException = exc

	for len(vm.frames) > 0 {
		frame := vm.frame

		if block, ok := popHandlerBlock(frame); ok {
			frame.SP = block.Level
			frame.IP = block.Handler
			vm.push(exc)
			return nil, nil
		}

		vm.frames = vm.frames[:len(vm.frames)-1]
		if len(vm.frames) > 0 {
			vm.frame = vm.frames[len(vm.frames)-1]
		}
	}

	return nil, exc
}

// goErrorExceptionType maps a Go error's message prefix to the builtin
// exception name it should be reported as, with an optional fallback name
// used when the primary one isn't registered.
type goErrorExceptionType struct {
	prefix, name, fallback string
}

var goErrorExceptionTypes = []goErrorExceptionType{
	{"ModuleNotFoundError", "ModuleNotFoundError", ""},
	{"ZeroDivisionError", "ZeroDivisionError", ""},
	{"FileNotFoundError", "FileNotFoundError", ""},
	{"PermissionError", "PermissionError", ""},
	{"FileExistsError", "FileExistsError", ""},
	{"AttributeError", "AttributeError", ""},
	{"ImportError", "ImportError", ""},
	{"IndexError", "IndexError", ""},
	{"ValueError", "ValueError", ""},
	{"TypeError", "TypeError", ""},
	{"NameError", "NameError", ""},
	{"MemoryError", "MemoryError", ""},
	{"KeyError", "KeyError", ""},
	{"IOError", "IOError", "OSError"},
	{"OSError", "OSError", ""},
}

// wrapGoError lifts a Go error into a *PyException. PyException values
// pass through unchanged; everything else is classified by matching the
// error text against goErrorExceptionTypes and defaults to RuntimeError.
func (vm *VM) wrapGoError(err error) *PyException {
	if pyExc, ok := err.(*PyException); ok {
		return pyExc
	}

	errStr := err.Error()
	excClass := vm.builtinClass("RuntimeError")
	for _, t := range goErrorExceptionTypes {
		if len(errStr) < len(t.prefix) || errStr[:len(t.prefix)] != t.prefix {
			continue
		}
		if cls := vm.builtinClass(t.name); cls != nil {
			excClass = cls
		} else if t.fallback != "" {
			if cls := vm.builtinClass(t.fallback); cls != nil {
				excClass = cls
			}
		}
		break
	}

	return &PyException{
		ExcType: excClass,
		Args:    &PyTuple{Items: []Value{&PyString{Value: errStr}}},
		Message: errStr,
	}
}
