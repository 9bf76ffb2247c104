package runtime

import "fmt"

// invokeCallable dispatches method (expected to be a *PyFunction or
// *PyBuiltinFunc pulled from a class/metaclass dict) with allArgs/kwargs,
// reporting ok=false if method isn't one of those two shapes.
func (vm *VM) invokeCallable(method Value, allArgs []Value, kwargs map[string]Value) (result Value, ok bool, err error) {
	switch m := method.(type) {
	case *PyFunction:
		result, err = vm.callFunction(m, allArgs, kwargs)
		return result, true, err
	case *PyBuiltinFunc:
		result, err = m.Fn(allArgs, kwargs)
		return result, true, err
	}
	return nil, false, nil
}

// call is the single entry point for invoking any Python-visible
// callable: builtin wrapper, Go-native function, user function, bound
// method, class (instantiation), userdata with a registered __call__, or
// an instance implementing __call__.
func (vm *VM) call(callable Value, args []Value, kwargs map[string]Value) (Value, error) {
	switch fn := callable.(type) {
	case *PyBuiltinFunc:
		return fn.Fn(args, kwargs)
	case *PyGoFunc:
		return vm.callGoFunction(fn, args)
	case *PyFunction:
		return vm.callFunction(fn, args, kwargs)
	case *PyMethod:
		return vm.callFunction(fn.Func, append([]Value{fn.Instance}, args...), kwargs)
	case *PyClass:
		return vm.callClass(fn, args, kwargs)
	case *PyUserData:
		return vm.callUserData(fn, args)
	case *PyInstance:
		return vm.callInstance(fn, args, kwargs)
	}
	return nil, fmt.Errorf("'%s' object is not callable", vm.typeName(callable))
}

// callClass instantiates cls: a metaclass __call__ override wins first,
// then abstract-method enforcement, then the normal __new__/__init__
// construction sequence.
func (vm *VM) callClass(cls *PyClass, args []Value, kwargs map[string]Value) (Value, error) {
	if result, handled, err := vm.metaclassCall(cls, args, kwargs); handled {
		return result, err
	}
	if err := vm.rejectAbstractInstantiation(cls); err != nil {
		return nil, err
	}

	instance, err := vm.invokeNew(cls, args, kwargs)
	if err != nil {
		return nil, err
	}
	if inst, ok := instance.(*PyInstance); ok && inst.Class == cls {
		if err := vm.invokeInit(cls, inst, args, kwargs); err != nil {
			return nil, err
		}
	}
	return instance, nil
}

// defaultClassCall runs the base 'type' metaclass's instantiation sequence
// directly, skipping metaclassCall's override lookup. This is what the
// "type" class's own __call__ dict entry invokes, so that a subclass whose
// __call__ delegates via super().__call__(...) lands here instead of
// looping back into its own override.
func (vm *VM) defaultClassCall(cls *PyClass, args []Value, kwargs map[string]Value) (Value, error) {
	if err := vm.rejectAbstractInstantiation(cls); err != nil {
		return nil, err
	}
	instance, err := vm.invokeNew(cls, args, kwargs)
	if err != nil {
		return nil, err
	}
	if inst, ok := instance.(*PyInstance); ok && inst.Class == cls {
		if err := vm.invokeInit(cls, inst, args, kwargs); err != nil {
			return nil, err
		}
	}
	return instance, nil
}

// metaclassCall checks cls.Metaclass's MRO for a non-default __call__ and
// invokes it with (cls, *args, **kwargs); handled is false when no
// override exists (the base 'type' metaclass's default behavior).
func (vm *VM) metaclassCall(cls *PyClass, args []Value, kwargs map[string]Value) (result Value, handled bool, err error) {
	if cls.Metaclass == nil {
		return nil, false, nil
	}
	for _, mc := range cls.Metaclass.Mro {
		callMethod, ok := mc.Dict["__call__"]
		if !ok {
			continue
		}
		if mc.Name == "type" {
			return nil, false, nil
		}
		mcArgs := append([]Value{Value(cls)}, args...)
		if result, ok, err := vm.invokeCallable(callMethod, mcArgs, kwargs); ok {
			return result, true, err
		}
	}
	return nil, false, nil
}

// rejectAbstractInstantiation returns the TypeError CPython raises when
// instantiating a class with unimplemented abstract methods, or nil if
// cls has none.
func (vm *VM) rejectAbstractInstantiation(cls *PyClass) error {
	abstractMethods, ok := cls.Dict["__abstractmethods__"]
	if !ok {
		return nil
	}
	absList, ok := abstractMethods.(*PyList)
	if !ok || len(absList.Items) == 0 {
		return nil
	}

	names := make([]string, 0, len(absList.Items))
	for _, item := range absList.Items {
		if s, ok := item.(*PyString); ok {
			names = append(names, s.Value)
		}
	}
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if names[i] > names[j] {
				names[i], names[j] = names[j], names[i]
			}
		}
	}

	plural := ""
	if len(names) > 1 {
		plural = "s"
	}
	methodList := names[0]
	for k := 1; k < len(names); k++ {
		if k == len(names)-1 {
			methodList += " and " + names[k]
		} else {
			methodList += ", " + names[k]
		}
	}
	return fmt.Errorf("TypeError: Can't instantiate abstract class %s with abstract method%s %s", cls.Name, plural, methodList)
}

// invokeNew walks cls.Mro for __new__ (falling back to a bare PyInstance
// if none is found, which shouldn't happen once object is always in the
// MRO) and calls it with (cls, *args, **kwargs).
func (vm *VM) invokeNew(cls *PyClass, args []Value, kwargs map[string]Value) (Value, error) {
	for _, c := range cls.Mro {
		newMethod, ok := c.Dict["__new__"]
		if !ok {
			continue
		}
		newArgs := append([]Value{Value(cls)}, args...)
		switch nm := newMethod.(type) {
		case *PyFunction:
			return vm.callFunction(nm, newArgs, kwargs)
		case *PyBuiltinFunc:
			return nm.Fn(newArgs, kwargs)
		case *PyStaticMethod:
			return vm.call(nm.Func, newArgs, kwargs)
		}
	}
	return &PyInstance{Class: cls, Dict: make(map[string]Value)}, nil
}

// invokeInit sets up the instance's args tuple (for exception classes)
// and calls __init__ from cls.Mro if one is defined.
func (vm *VM) invokeInit(cls *PyClass, inst *PyInstance, args []Value, kwargs map[string]Value) error {
	if vm.isExceptionClass(cls) {
		tupleItems := make([]Value, len(args))
		copy(tupleItems, args)
		inst.Dict["args"] = &PyTuple{Items: tupleItems}
	}

	for _, c := range cls.Mro {
		init, ok := c.Dict["__init__"]
		if !ok {
			continue
		}
		if initFn, ok := init.(*PyFunction); ok {
			if _, err := vm.callFunction(initFn, append([]Value{Value(inst)}, args...), kwargs); err != nil {
				return err
			}
		}
		break
	}
	return nil
}

// userDataCallMetatable reads a *PyUserData's "__type__" tag and looks up
// its registered metatable, if any.
func userDataCallMetatable(ud *PyUserData) *TypeMetatable {
	if ud.Metatable == nil {
		return nil
	}
	for k, v := range ud.Metatable.Items {
		ks, ok := k.(*PyString)
		if ok && ks.Value == "__type__" {
			if s, ok := v.(*PyString); ok {
				return typeRegistry[s.Value]
			}
		}
	}
	return nil
}

// callUserData invokes a userdata's registered __call__, if its type has
// one.
func (vm *VM) callUserData(ud *PyUserData, args []Value) (Value, error) {
	if mt := userDataCallMetatable(ud); mt != nil {
		if callMethod, ok := mt.Methods["__call__"]; ok {
			return vm.callGoFunction(&PyGoFunc{Name: "__call__", Fn: callMethod}, append([]Value{Value(ud)}, args...))
		}
	}
	return nil, fmt.Errorf("'%s' object is not callable", vm.typeName(ud))
}

// callInstance invokes inst's __call__ resolved via its class MRO.
func (vm *VM) callInstance(inst *PyInstance, args []Value, kwargs map[string]Value) (Value, error) {
	allArgs := append([]Value{Value(inst)}, args...)
	for _, cls := range inst.Class.Mro {
		if method, ok := cls.Dict["__call__"]; ok {
			if result, ok, err := vm.invokeCallable(method, allArgs, kwargs); ok {
				return result, err
			}
		}
	}
	if len(inst.Class.Mro) == 0 {
		if method, ok := inst.Class.Dict["__call__"]; ok {
			if callFn, ok := method.(*PyFunction); ok {
				return vm.callFunction(callFn, allArgs, kwargs)
			}
		}
	}
	return nil, fmt.Errorf("'%s' object is not callable", vm.typeName(inst))
}

// callGoFunction runs a gopher-lua-style stack-based Go function: args
// are pushed onto a temporary frame, fn runs against vm with that frame
// active, and its declared return count determines whether the result is
// None, a single value, or a tuple.
func (vm *VM) callGoFunction(fn *PyGoFunc, args []Value) (Value, error) {
	oldFrame := vm.frame
	tempFrame := &Frame{
		Stack:    make([]Value, len(args)+16),
		Globals:  vm.Globals,
		Builtins: vm.builtins,
	}
	for _, arg := range args {
		tempFrame.Stack[tempFrame.SP] = arg
		tempFrame.SP++
	}
	vm.frame = tempFrame

	nResults, panicErr := runGoFuncGuarded(fn, vm)
	vm.frame = oldFrame

	if nResults < 0 {
		return nil, fmt.Errorf("%s: %s", panicErr.ExcType, panicErr.Message)
	}
	switch nResults {
	case 0:
		return None, nil
	case 1:
		return tempFrame.Stack[tempFrame.SP-1], nil
	default:
		results := make([]Value, nResults)
		copy(results, tempFrame.Stack[tempFrame.SP-nResults:tempFrame.SP])
		return &PyTuple{Items: results}, nil
	}
}

// runGoFuncGuarded calls fn.Fn and converts any panic into a
// *PyPanicError, reporting nResults=-1 on failure so the caller can
// surface it as a Go error instead of crashing the interpreter.
func runGoFuncGuarded(fn *PyGoFunc, vm *VM) (nResults int, panicErr *PyPanicError) {
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*PyPanicError); ok {
				panicErr = pe
			} else {
				panicErr = &PyPanicError{ExcType: "RuntimeError", Message: fmt.Sprintf("%v", r)}
			}
			nResults = -1
		}
	}()
	return fn.Fn(vm), nil
}

// callFunction executes fn against args/kwargs, routing generator and
// coroutine functions to object construction instead of immediate
// execution.
func (vm *VM) callFunction(fn *PyFunction, args []Value, kwargs map[string]Value) (Value, error) {
	code := fn.Code
	switch {
	case code.Flags&FlagGenerator != 0:
		return vm.createGenerator(fn, args, kwargs)
	case code.Flags&(FlagCoroutine|FlagAsyncGenerator) != 0:
		return vm.createCoroutine(fn, args, kwargs)
	}

	frame := vm.createFunctionFrame(fn, args, kwargs)
	vm.frames = append(vm.frames, frame)
	oldFrame := vm.frame
	vm.frame = frame

	result, err := vm.run()
	if err != errExceptionHandledInOuterFrame {
		vm.frame = oldFrame
	}
	return result, err
}

// createFunctionFrame builds (without executing) the frame for a call to
// fn: locals bound from positional/keyword args and defaults, *args/
// **kwargs collected, and closure cells wired to the function's captured
// cells or freshly allocated for its own captured locals.
func (vm *VM) createFunctionFrame(fn *PyFunction, args []Value, kwargs map[string]Value) *Frame {
	code := fn.Code
	frame := &Frame{
		Code:     code,
		Stack:    make([]Value, code.StackSize+16),
		Locals:   make([]Value, len(code.VarNames)),
		Globals:  fn.Globals,
		Builtins: vm.builtins,
	}

	bindClosureCells(frame, fn, code)
	bindPositionalArgs(frame, code, args)
	bindVarArgs(frame, code, args)
	bindCapturedParams(frame, code, args)
	bindKeywordArgs(frame, code, kwargs)
	bindVarKeywords(vm, frame, code, kwargs)
	applyDefaults(frame, fn, code)

	return frame
}

func bindClosureCells(frame *Frame, fn *PyFunction, code *CodeObject) {
	numCells := len(code.CellVars) + len(code.FreeVars)
	if numCells == 0 && len(fn.Closure) == 0 {
		return
	}
	frame.Cells = make([]*PyCell, numCells)
	for i := 0; i < len(code.CellVars); i++ {
		frame.Cells[i] = &PyCell{}
	}
	for i, cell := range fn.Closure {
		frame.Cells[len(code.CellVars)+i] = cell
	}
}

func bindPositionalArgs(frame *Frame, code *CodeObject, args []Value) {
	n := code.ArgCount
	if n > len(args) {
		n = len(args)
	}
	for i := 0; i < n; i++ {
		frame.Locals[i] = args[i]
	}
}

func bindVarArgs(frame *Frame, code *CodeObject, args []Value) {
	if code.Flags&FlagVarArgs == 0 {
		return
	}
	idx := code.ArgCount + code.KwOnlyArgCount
	if idx >= len(frame.Locals) {
		return
	}
	if len(args) <= code.ArgCount {
		frame.Locals[idx] = &PyTuple{Items: []Value{}}
		return
	}
	extra := args[code.ArgCount:]
	items := make([]Value, len(extra))
	copy(items, extra)
	frame.Locals[idx] = &PyTuple{Items: items}
}

// bindCapturedParams initializes any cell backing a parameter that inner
// functions close over, so the closure sees the argument value rather
// than a zero cell.
func bindCapturedParams(frame *Frame, code *CodeObject, args []Value) {
	for cellIdx, cellName := range code.CellVars {
		for argIdx := 0; argIdx < code.ArgCount && argIdx < len(code.VarNames); argIdx++ {
			if code.VarNames[argIdx] != cellName || argIdx >= len(args) {
				continue
			}
			if cellIdx < len(frame.Cells) && frame.Cells[cellIdx] != nil {
				frame.Cells[cellIdx].Value = args[argIdx]
			}
			break
		}
	}
}

func bindKeywordArgs(frame *Frame, code *CodeObject, kwargs map[string]Value) {
	for name, val := range kwargs {
		for i, varName := range code.VarNames {
			if varName == name && i < code.ArgCount+code.KwOnlyArgCount {
				frame.Locals[i] = val
				break
			}
		}
	}
}

func bindVarKeywords(vm *VM, frame *Frame, code *CodeObject, kwargs map[string]Value) {
	if code.Flags&FlagVarKeywords == 0 {
		return
	}
	idx := code.ArgCount + code.KwOnlyArgCount
	if code.Flags&FlagVarArgs != 0 {
		idx++
	}
	if idx >= len(frame.Locals) {
		return
	}

	dict := &PyDict{Items: make(map[Value]Value), buckets: make(map[uint64][]dictEntry)}
	for name, val := range kwargs {
		named := false
		for i := 0; i < code.ArgCount+code.KwOnlyArgCount && i < len(code.VarNames); i++ {
			if code.VarNames[i] == name {
				named = true
				break
			}
		}
		if !named {
			dict.DictSet(&PyString{Value: name}, val, vm)
		}
	}
	frame.Locals[idx] = dict
}

func applyDefaults(frame *Frame, fn *PyFunction, code *CodeObject) {
	if fn.Defaults == nil {
		return
	}
	start := code.ArgCount - len(fn.Defaults.Items)
	for i, def := range fn.Defaults.Items {
		if idx := start + i; idx < len(frame.Locals) && frame.Locals[idx] == nil {
			frame.Locals[idx] = def
		}
	}
}

// createGenerator builds a suspended generator object over a freshly
// constructed (but not yet executed) call frame.
func (vm *VM) createGenerator(fn *PyFunction, args []Value, kwargs map[string]Value) (*PyGenerator, error) {
	return &PyGenerator{Frame: vm.createFunctionFrame(fn, args, kwargs), Code: fn.Code, Name: fn.Name, State: GenCreated}, nil
}

// createCoroutine builds a suspended coroutine object the same way
// createGenerator does for generators.
func (vm *VM) createCoroutine(fn *PyFunction, args []Value, kwargs map[string]Value) (*PyCoroutine, error) {
	return &PyCoroutine{Frame: vm.createFunctionFrame(fn, args, kwargs), Code: fn.Code, Name: fn.Name, State: GenCreated}, nil
}
