package runtime

import (
	"fmt"
	"unicode/utf8"
)

// genStep is what one category handler in the generator opcode table
// reports back: handled tells the dispatcher whether this handler owned
// op, so it can stop trying the rest of the table.
type genStep struct {
	value   Value
	err     error
	handled bool
}

func genDone() genStep             { return genStep{handled: true} }
func genFail(err error) genStep    { return genStep{err: err, handled: true} }
func genReturn(v Value) genStep    { return genStep{value: v, handled: true} }
func genPass() genStep             { return genStep{} }

// genOpHandler executes op if it falls in the handler's category,
// reporting genStep{handled: false} otherwise so the dispatcher moves on.
type genOpHandler func(vm *VM, frame *Frame, op Opcode, arg int) genStep

// genOpHandlers is tried in order for every opcode executed while a
// generator or coroutine frame is stepping; this is a second, standalone
// interpreter loop body (distinct from the main VM's) because resuming a
// suspended frame needs return/error handling that the main loop's
// fetch-execute cycle doesn't.
var genOpHandlers = []genOpHandler{
	genStackOps,
	genNameOps,
	genArithmeticOps,
	genComparisonOps,
	genUnaryOps,
	genJumpOps,
	genIterationOps,
	genCallOps,
	genCollectionOps,
	genAttrAndSubscrOps,
	genClosureOps,
	genFastSlotOps,
	genInplaceOps,
	genCompareJumpOps,
	genExceptionOps,
	genAsyncOps,
	genImportOps,
}

// executeOpcodeForGenerator runs a single opcode against vm.frame in
// generator/coroutine-resume context. A non-nil result means execution
// should stop and surface that value (a pending return propagating
// through a finally block); otherwise normal stepping continues.
func (vm *VM) executeOpcodeForGenerator(op Opcode, arg int) (Value, error) {
	frame := vm.frame
	for _, handle := range genOpHandlers {
		if step := handle(vm, frame, op, arg); step.handled {
			return step.value, step.err
		}
	}
	return nil, fmt.Errorf("unimplemented opcode in generator: %s", op)
}

func genStackOps(vm *VM, frame *Frame, op Opcode, arg int) genStep {
	switch op {
	case OpPop:
		vm.pop()
	case OpDup:
		vm.push(vm.top())
	case OpDup2:
		b := vm.top()
		a := vm.peek(1)
		vm.push(a)
		vm.push(b)
	case OpRot2:
		a := vm.pop()
		b := vm.pop()
		vm.push(a)
		vm.push(b)
	case OpRot3:
		a := vm.pop()
		b := vm.pop()
		c := vm.pop()
		vm.push(a)
		vm.push(c)
		vm.push(b)
	default:
		return genPass()
	}
	return genDone()
}

// lookupName resolves name against the frame's globals, then enclosing
// globals (for nested functions), then builtins — the scope chain shared
// by OpLoadName/OpLoadGlobal/the fused load-global-load-fast opcode.
func lookupName(frame *Frame, name string) (Value, bool) {
	if val, ok := frame.Globals[name]; ok {
		return val, true
	}
	if frame.EnclosingGlobals != nil {
		if val, ok := frame.EnclosingGlobals[name]; ok {
			return val, true
		}
	}
	return frame.Builtins[name], frame.Builtins[name] != nil
}

func genNameOps(vm *VM, frame *Frame, op Opcode, arg int) genStep {
	switch op {
	case OpLoadConst:
		if frame.SP >= len(frame.Stack) {
			vm.ensureStack(1)
		}
		frame.Stack[frame.SP] = vm.toValue(frame.Code.Constants[arg])
		frame.SP++
	case OpLoadName, OpLoadGlobal:
		name := frame.Code.Names[arg]
		val, ok := lookupName(frame, name)
		if !ok {
			return genFail(fmt.Errorf("name '%s' is not defined", name))
		}
		vm.push(val)
	case OpStoreName, OpStoreGlobal:
		name := frame.Code.Names[arg]
		frame.Globals[name] = vm.pop()
	case OpDeleteGlobal, OpDeleteName:
		name := frame.Code.Names[arg]
		vm.callDel(frame.Globals[name])
		delete(frame.Globals, name)
	case OpLoadFast:
		val := frame.Locals[arg]
		if val == nil {
			return genFail(unboundLocalError(frame, arg))
		}
		frame.Stack[frame.SP] = val
		frame.SP++
	case OpStoreFast:
		frame.SP--
		frame.Locals[arg] = frame.Stack[frame.SP]
	case OpDeleteFast:
		vm.callDel(frame.Locals[arg])
		frame.Locals[arg] = nil
	case OpLoadNone:
		vm.push(None)
	case OpLoadTrue:
		vm.push(True)
	case OpLoadFalse:
		vm.push(False)
	case OpLoadZero:
		vm.push(MakeInt(0))
	case OpLoadOne:
		vm.push(MakeInt(1))
	case OpNop:
		// no operation
	case OpSetupAnnotations:
		if _, ok := frame.Globals["__annotations__"]; !ok {
			frame.Globals["__annotations__"] = &PyDict{Items: make(map[Value]Value)}
		}
	case OpLoadBuildClass:
		vm.push(vm.builtins["__build_class__"])
	case OpLoadLocals:
		locals := &PyDict{Items: make(map[Value]Value)}
		for i, name := range frame.Code.VarNames {
			if frame.Locals[i] != nil {
				locals.Items[&PyString{Value: name}] = frame.Locals[i]
			}
		}
		vm.push(locals)
	default:
		return genPass()
	}
	return genDone()
}

func genArithmeticOps(vm *VM, frame *Frame, op Opcode, arg int) genStep {
	switch op {
	case OpBinaryAdd, OpBinarySubtract, OpBinaryMultiply, OpBinaryDivide,
		OpBinaryFloorDiv, OpBinaryModulo, OpBinaryPower,
		OpBinaryLShift, OpBinaryRShift, OpBinaryAnd, OpBinaryOr, OpBinaryXor:
		b := vm.pop()
		a := vm.pop()
		result, err := vm.binaryOp(op, a, b)
		if err != nil {
			return genFail(err)
		}
		vm.push(result)
	case OpBinaryAddInt:
		b := vm.pop().(*PyInt)
		a := vm.pop().(*PyInt)
		vm.push(MakeInt(a.Value + b.Value))
	case OpBinarySubtractInt:
		b := vm.pop().(*PyInt)
		a := vm.pop().(*PyInt)
		vm.push(MakeInt(a.Value - b.Value))
	case OpBinaryMultiplyInt:
		b := vm.pop().(*PyInt)
		a := vm.pop().(*PyInt)
		vm.push(MakeInt(a.Value * b.Value))
	default:
		return genPass()
	}
	return genDone()
}

func genComparisonOps(vm *VM, frame *Frame, op Opcode, arg int) genStep {
	intCompare := func(a, b *PyInt) bool {
		switch op {
		case OpCompareLtInt:
			return a.Value < b.Value
		case OpCompareLeInt:
			return a.Value <= b.Value
		case OpCompareGtInt:
			return a.Value > b.Value
		case OpCompareGeInt:
			return a.Value >= b.Value
		case OpCompareEqInt:
			return a.Value == b.Value
		default:
			return a.Value != b.Value
		}
	}
	switch op {
	case OpCompareEq:
		b := vm.pop()
		a := vm.pop()
		vm.push(boolValue(vm.equal(a, b)))
	case OpCompareNe, OpCompareLt, OpCompareLe, OpCompareGt, OpCompareGe:
		b := vm.pop()
		a := vm.pop()
		vm.push(vm.compareOp(op, a, b))
	case OpCompareLtInt, OpCompareLeInt, OpCompareGtInt, OpCompareGeInt, OpCompareEqInt, OpCompareNeInt:
		b := vm.pop().(*PyInt)
		a := vm.pop().(*PyInt)
		vm.push(boolValue(intCompare(a, b)))
	case OpCompareIs:
		b := vm.pop()
		a := vm.pop()
		vm.push(boolValue(a == b))
	case OpCompareIsNot:
		b := vm.pop()
		a := vm.pop()
		vm.push(boolValue(a != b))
	case OpCompareIn, OpCompareNotIn:
		container := vm.pop()
		item := vm.pop()
		contained := vm.contains(container, item)
		if vm.currentException != nil {
			exc := vm.currentException
			vm.currentException = nil
			return genFail(exc)
		}
		if op == OpCompareIn {
			vm.push(boolValue(contained))
		} else {
			vm.push(boolValue(!contained))
		}
	default:
		return genPass()
	}
	return genDone()
}

func boolValue(b bool) Value {
	if b {
		return True
	}
	return False
}

func genUnaryOps(vm *VM, frame *Frame, op Opcode, arg int) genStep {
	switch op {
	case OpUnaryNot:
		vm.push(boolValue(!vm.truthy(vm.pop())))
	case OpUnaryNegative, OpUnaryPositive, OpUnaryInvert:
		a := vm.pop()
		result, err := vm.unaryOp(op, a)
		if err != nil {
			return genFail(err)
		}
		vm.push(result)
	default:
		return genPass()
	}
	return genDone()
}

func genJumpOps(vm *VM, frame *Frame, op Opcode, arg int) genStep {
	switch op {
	case OpJump:
		frame.IP = arg
	case OpPopJumpIfFalse:
		if !vm.truthy(vm.pop()) {
			frame.IP = arg
		}
	case OpPopJumpIfTrue:
		if vm.truthy(vm.pop()) {
			frame.IP = arg
		}
	case OpJumpIfTrueOrPop:
		if vm.truthy(vm.top()) {
			frame.IP = arg
		} else {
			vm.pop()
		}
	case OpJumpIfFalseOrPop:
		if !vm.truthy(vm.top()) {
			frame.IP = arg
		} else {
			vm.pop()
		}
	case OpJumpIfTrue:
		if vm.truthy(vm.top()) {
			frame.IP = arg
		}
	case OpJumpIfFalse:
		if !vm.truthy(vm.top()) {
			frame.IP = arg
		}
	default:
		return genPass()
	}
	return genDone()
}

func genIterationOps(vm *VM, frame *Frame, op Opcode, arg int) genStep {
	switch op {
	case OpGetIter:
		iter, err := vm.getIter(vm.pop())
		if err != nil {
			return genFail(err)
		}
		vm.push(iter)
	case OpForIter:
		val, done, err := vm.iterNext(vm.top())
		if err != nil {
			return genFail(err)
		}
		if done {
			vm.pop()
			frame.IP = arg
		} else {
			vm.push(val)
		}
	default:
		return genPass()
	}
	return genDone()
}

// handleGenCallError normalizes an error from vm.call for generator
// context: a handled-elsewhere sentinel or a Python exception caught by
// an in-frame handler both resume as "keep stepping" (nil, nil); an
// exception whose handler lives in an outer frame reports the sentinel
// up; anything else propagates as-is.
func handleGenCallError(vm *VM, frame *Frame, err error) genStep {
	if err == errExceptionHandledInOuterFrame {
		return genDone()
	}
	pyExc, ok := err.(*PyException)
	if !ok {
		return genFail(err)
	}
	if _, handleErr := vm.handleException(pyExc); handleErr != nil {
		return genFail(handleErr)
	}
	if vm.frame != frame {
		return genFail(errExceptionHandledInOuterFrame)
	}
	return genDone()
}

func genCallOps(vm *VM, frame *Frame, op Opcode, arg int) genStep {
	switch op {
	case OpCall:
		args := make([]Value, arg)
		for i := arg - 1; i >= 0; i-- {
			args[i] = vm.pop()
		}
		callable := vm.pop()
		result, err := vm.call(callable, args, nil)
		if err != nil {
			return handleGenCallError(vm, frame, err)
		}
		vm.push(result)

	case OpCallKw:
		kwNames, ok := vm.pop().(*PyTuple)
		if !ok {
			return genFail(fmt.Errorf("TypeError: internal error: expected keyword names tuple"))
		}
		totalArgs := arg
		kwargs := make(map[string]Value)
		for i := len(kwNames.Items) - 1; i >= 0; i-- {
			name := kwNames.Items[i].(*PyString).Value
			kwargs[name] = vm.pop()
			totalArgs--
		}
		args := make([]Value, totalArgs)
		for i := totalArgs - 1; i >= 0; i-- {
			args[i] = vm.pop()
		}
		callable := vm.pop()
		result, err := vm.call(callable, args, kwargs)
		if err != nil {
			return genFail(err)
		}
		vm.push(result)

	case OpCallEx:
		var kwargs map[string]Value
		if arg&1 != 0 {
			if kwargsDict, ok := vm.pop().(*PyDict); ok {
				kwargs = make(map[string]Value)
				for _, key := range kwargsDict.Keys(vm) {
					if ks, ok := key.(*PyString); ok {
						val, _ := kwargsDict.DictGet(key, vm)
						kwargs[ks.Value] = val
					}
				}
			}
		}
		argsTuple := vm.pop()
		callable := vm.pop()
		var callArgs []Value
		switch at := argsTuple.(type) {
		case *PyTuple:
			callArgs = at.Items
		case *PyList:
			callArgs = at.Items
		default:
			callArgs = []Value{}
		}
		result, err := vm.call(callable, callArgs, kwargs)
		if err != nil {
			return genFail(err)
		}
		vm.push(result)

	case OpLoadMethod:
		name := frame.Code.Names[arg]
		obj := vm.pop()
		method, err := vm.getAttr(obj, name)
		if err != nil {
			return genFail(err)
		}
		vm.push(obj)
		vm.push(method)

	case OpCallMethod:
		args := make([]Value, arg)
		for i := arg - 1; i >= 0; i-- {
			args[i] = vm.pop()
		}
		method := vm.pop()
		obj := vm.pop()
		bound := false
		if _, isBound := method.(*PyMethod); isBound {
			bound = true
		} else if bf, ok := method.(*PyBuiltinFunc); ok && bf.Bound {
			bound = true
		}
		var result Value
		var err error
		if bound {
			result, err = vm.call(method, args, nil)
		} else {
			result, err = vm.call(method, append([]Value{obj}, args...), nil)
		}
		if err != nil {
			return genFail(err)
		}
		vm.push(result)

	case OpMakeFunction:
		fn := makeClosureFunction(frame, vm, arg)
		vm.push(fn)

	default:
		return genPass()
	}
	return genDone()
}

// makeClosureFunction builds a *PyFunction from the name/code(/defaults)
// the stack holds for OpMakeFunction, wiring each free variable to the
// enclosing frame's matching cell var (or a fresh cell if this is the
// function's first capture).
func makeClosureFunction(frame *Frame, vm *VM, arg int) *PyFunction {
	name := vm.pop().(*PyString)
	code := vm.pop().(*CodeObject)
	var defaults *PyTuple
	if arg&1 != 0 {
		defaults = vm.pop().(*PyTuple)
	}
	fn := &PyFunction{Code: code, Globals: frame.Globals, Defaults: defaults, Name: name.Value}
	if len(code.FreeVars) == 0 {
		return fn
	}

	fn.Closure = make([]*PyCell, len(code.FreeVars))
	for i, freeVar := range code.FreeVars {
		if cell := findCellVar(frame, freeVar); cell != nil {
			fn.Closure[i] = cell
			continue
		}
		if cell := findFreeVar(frame, freeVar); cell != nil {
			fn.Closure[i] = cell
			continue
		}
		fn.Closure[i] = &PyCell{}
	}
	return fn
}

func findCellVar(frame *Frame, name string) *PyCell {
	for j, cellName := range frame.Code.CellVars {
		if cellName == name && j < len(frame.Cells) {
			return frame.Cells[j]
		}
	}
	return nil
}

func findFreeVar(frame *Frame, name string) *PyCell {
	for j, freeName := range frame.Code.FreeVars {
		if freeName != name {
			continue
		}
		idx := len(frame.Code.CellVars) + j
		if idx < len(frame.Cells) {
			return frame.Cells[idx]
		}
	}
	return nil
}

func genCollectionOps(vm *VM, frame *Frame, op Opcode, arg int) genStep {
	switch op {
	case OpBuildList:
		items := make([]Value, arg)
		for i := arg - 1; i >= 0; i-- {
			items[i] = vm.pop()
		}
		vm.push(&PyList{Items: items})
	case OpBuildTuple:
		items := make([]Value, arg)
		for i := arg - 1; i >= 0; i-- {
			items[i] = vm.pop()
		}
		vm.push(&PyTuple{Items: items})
	case OpBuildMap:
		dict := &PyDict{Items: make(map[Value]Value), buckets: make(map[uint64][]dictEntry)}
		for i := 0; i < arg; i++ {
			val := vm.pop()
			key := vm.pop()
			dict.DictSet(key, val, vm)
		}
		vm.push(dict)
	case OpBuildSet:
		s := &PySet{Items: make(map[Value]struct{}), buckets: make(map[uint64][]setEntry)}
		for i := 0; i < arg; i++ {
			s.SetAdd(vm.pop(), vm)
		}
		vm.push(s)
	case OpSetAdd:
		val := vm.pop()
		vm.peek(arg).(*PySet).SetAdd(val, vm)
	case OpMapAdd:
		val := vm.pop()
		key := vm.pop()
		vm.peek(arg).(*PyDict).DictSet(key, val, vm)
	case OpListAppend:
		val := vm.pop()
		listIdx := frame.SP - arg
		if listIdx >= 0 && listIdx < frame.SP {
			if list, ok := frame.Stack[listIdx].(*PyList); ok {
				list.Items = append(list.Items, val)
			}
		}
	case OpCopyDict:
		keyCount := int(vm.pop().(*PyInt).Value)
		keysToRemove := make([]Value, keyCount)
		for i := keyCount - 1; i >= 0; i-- {
			keysToRemove[i] = vm.pop()
		}
		dict := vm.top().(*PyDict)
		newDict := &PyDict{Items: make(map[Value]Value)}
		for k, v := range dict.Items {
			remove := false
			for _, removeKey := range keysToRemove {
				if vm.equal(k, removeKey) {
					remove = true
					break
				}
			}
			if !remove {
				newDict.Items[k] = v
			}
		}
		vm.push(newDict)
	case OpLoadEmptyList:
		frame.Stack[frame.SP] = &PyList{Items: []Value{}}
		frame.SP++
	case OpLoadEmptyTuple:
		frame.Stack[frame.SP] = &PyTuple{Items: []Value{}}
		frame.SP++
	case OpLoadEmptyDict:
		frame.Stack[frame.SP] = &PyDict{Items: make(map[Value]Value)}
		frame.SP++
	case OpUnpackSequence:
		items, err := vm.toList(vm.pop())
		if err != nil {
			return genFail(err)
		}
		if len(items) != arg {
			return genFail(fmt.Errorf("not enough values to unpack (expected %d, got %d)", arg, len(items)))
		}
		for i := len(items) - 1; i >= 0; i-- {
			vm.push(items[i])
		}
	case OpUnpackEx:
		countBefore := arg & 0xFF
		countAfter := (arg >> 8) & 0xFF
		items, err := vm.toList(vm.pop())
		if err != nil {
			return genFail(err)
		}
		total := countBefore + countAfter
		if len(items) < total {
			return genFail(fmt.Errorf("ValueError: not enough values to unpack (expected at least %d, got %d)", total, len(items)))
		}
		for i := len(items) - 1; i >= len(items)-countAfter; i-- {
			vm.push(items[i])
		}
		starItems := make([]Value, len(items)-total)
		copy(starItems, items[countBefore:len(items)-countAfter])
		vm.push(&PyList{Items: starItems})
		for i := countBefore - 1; i >= 0; i-- {
			vm.push(items[i])
		}
	case OpLenGeneric:
		frame.SP--
		length, err := vm.genericLen(frame.Stack[frame.SP])
		if err != nil {
			return genFail(err)
		}
		frame.Stack[frame.SP] = MakeInt(length)
		frame.SP++
	case OpPrintExpr:
		val := vm.pop()
		if val != nil && val != None {
			if obj, ok := val.(PyObject); ok {
				fmt.Println(obj.String())
			} else {
				fmt.Println(val)
			}
		}
	default:
		return genPass()
	}
	return genDone()
}

// genericLen implements len() for the builtin container types plus the
// __len__ dunder fallback for instances, shared by OpLenGeneric.
func (vm *VM) genericLen(obj Value) (int64, error) {
	switch v := obj.(type) {
	case *PyString:
		return int64(utf8.RuneCountInString(v.Value)), nil
	case *PyList:
		return int64(len(v.Items)), nil
	case *PyTuple:
		return int64(len(v.Items)), nil
	case *PyDict:
		return int64(len(v.Items)), nil
	case *PySet:
		return int64(len(v.Items)), nil
	case *PyFrozenSet:
		return int64(len(v.Items)), nil
	case *PyBytes:
		return int64(len(v.Value)), nil
	case *PyInstance:
		result, found, err := vm.callDunder(v, "__len__")
		if !found {
			return 0, fmt.Errorf("object of type '%s' has no len()", vm.typeName(obj))
		}
		if err != nil {
			return 0, err
		}
		i, ok := result.(*PyInt)
		if !ok {
			return 0, fmt.Errorf("__len__() should return an integer")
		}
		return i.Value, nil
	default:
		return 0, fmt.Errorf("object of type '%s' has no len()", vm.typeName(obj))
	}
}

func genAttrAndSubscrOps(vm *VM, frame *Frame, op Opcode, arg int) genStep {
	switch op {
	case OpLoadAttr:
		name := frame.Code.Names[arg]
		attr, err := vm.getAttr(vm.pop(), name)
		if err != nil {
			return genFail(err)
		}
		vm.push(attr)
	case OpStoreAttr:
		name := frame.Code.Names[arg]
		obj := vm.pop()
		val := vm.pop()
		if err := vm.setAttr(obj, name, val); err != nil {
			return genFail(err)
		}
	case OpDeleteAttr:
		name := frame.Code.Names[arg]
		if err := vm.delAttr(vm.pop(), name); err != nil {
			return genFail(err)
		}
	case OpBinarySubscr:
		key := vm.pop()
		obj := vm.pop()
		val, err := vm.getItem(obj, key)
		if err != nil {
			return genFail(err)
		}
		vm.push(val)
	case OpStoreSubscr:
		key := vm.pop()
		obj := vm.pop()
		val := vm.pop()
		if err := vm.setItem(obj, key, val); err != nil {
			return genFail(err)
		}
	case OpDeleteSubscr:
		index := vm.pop()
		obj := vm.pop()
		if err := vm.delItem(obj, index); err != nil {
			return genFail(err)
		}
	default:
		return genPass()
	}
	return genDone()
}

func genClosureOps(vm *VM, frame *Frame, op Opcode, arg int) genStep {
	switch op {
	case OpLoadDeref:
		if arg < len(frame.Cells) && frame.Cells[arg] != nil {
			vm.push(frame.Cells[arg].Value)
		} else {
			vm.push(None)
		}
	case OpStoreDeref:
		val := vm.pop()
		if arg < len(frame.Cells) {
			if frame.Cells[arg] == nil {
				frame.Cells[arg] = &PyCell{}
			}
			frame.Cells[arg].Value = val
		}
	case OpLoadClosure:
		if arg >= len(frame.Cells) {
			return genFail(fmt.Errorf("closure cell index %d out of range", arg))
		}
		vm.push(frame.Cells[arg])
	default:
		return genPass()
	}
	return genDone()
}

// fastLocal reads frame.Locals[idx], reporting an UnboundLocalError the
// same way every LOAD_FAST-family opcode needs to.
func fastLocal(frame *Frame, idx int) (Value, error) {
	val := frame.Locals[idx]
	if val == nil {
		return nil, unboundLocalError(frame, idx)
	}
	return val, nil
}

func genFastSlotOps(vm *VM, frame *Frame, op Opcode, arg int) genStep {
	switch op {
	case OpLoadFast0, OpLoadFast1, OpLoadFast2, OpLoadFast3:
		idx := int(op - OpLoadFast0)
		val, err := fastLocal(frame, idx)
		if err != nil {
			return genFail(err)
		}
		vm.push(val)
	case OpStoreFast0, OpStoreFast1, OpStoreFast2, OpStoreFast3:
		frame.Locals[int(op-OpStoreFast0)] = vm.pop()
	case OpLoadFastLoadFast:
		idx1, idx2 := arg&0xFF, (arg>>8)&0xFF
		val1, err := fastLocal(frame, idx1)
		if err != nil {
			return genFail(err)
		}
		val2, err := fastLocal(frame, idx2)
		if err != nil {
			return genFail(err)
		}
		vm.push(val1)
		vm.push(val2)
	case OpLoadFastLoadConst:
		localIdx, constIdx := arg&0xFF, (arg>>8)&0xFF
		val, err := fastLocal(frame, localIdx)
		if err != nil {
			return genFail(err)
		}
		vm.push(val)
		vm.push(vm.toValue(frame.Code.Constants[constIdx]))
	case OpStoreFastLoadFast:
		storeIdx, loadIdx := arg&0xFF, (arg>>8)&0xFF
		frame.Locals[storeIdx] = vm.pop()
		val, err := fastLocal(frame, loadIdx)
		if err != nil {
			return genFail(err)
		}
		vm.push(val)
	case OpLoadConstLoadFast:
		constIdx, localIdx := (arg>>8)&0xFF, arg&0xFF
		val, err := fastLocal(frame, localIdx)
		if err != nil {
			return genFail(err)
		}
		vm.push(vm.toValue(frame.Code.Constants[constIdx]))
		vm.push(val)
	case OpLoadGlobalLoadFast:
		globalIdx, localIdx := (arg>>8)&0xFF, arg&0xFF
		name := frame.Code.Names[globalIdx]
		val, ok := lookupName(frame, name)
		if !ok {
			return genFail(fmt.Errorf("name '%s' is not defined", name))
		}
		vm.push(val)
		localVal, err := fastLocal(frame, localIdx)
		if err != nil {
			return genFail(err)
		}
		vm.push(localVal)
	default:
		return genPass()
	}
	return genDone()
}

// fastArith applies binOp to a local slot's current value and operand,
// taking the int/int fast path when both sides are already *PyInt.
func (vm *VM) fastArith(slot Value, operand Value, intFast func(a, b int64) int64, binOp Opcode) (Value, error) {
	if v, ok := slot.(*PyInt); ok {
		if o, ok := operand.(*PyInt); ok {
			return MakeInt(intFast(v.Value, o.Value)), nil
		}
	}
	return vm.binaryOp(binOp, slot, operand)
}

func genInplaceOps(vm *VM, frame *Frame, op Opcode, arg int) genStep {
	switch op {
	case OpIncrementFast:
		if frame.Locals[arg] == nil {
			return genFail(unboundLocalError(frame, arg))
		}
		result, err := vm.fastArith(frame.Locals[arg], MakeInt(1), func(a, b int64) int64 { return a + b }, OpBinaryAdd)
		if err != nil {
			return genFail(err)
		}
		frame.Locals[arg] = result

	case OpDecrementFast:
		if frame.Locals[arg] == nil {
			return genFail(unboundLocalError(frame, arg))
		}
		result, err := vm.fastArith(frame.Locals[arg], MakeInt(1), func(a, b int64) int64 { return a - b }, OpBinarySubtract)
		if err != nil {
			return genFail(err)
		}
		frame.Locals[arg] = result

	case OpNegateFast:
		if v, ok := frame.Locals[arg].(*PyInt); ok {
			frame.Locals[arg] = MakeInt(-v.Value)
			break
		}
		result, err := vm.unaryOp(OpUnaryNegative, frame.Locals[arg])
		if err != nil {
			return genFail(err)
		}
		frame.Locals[arg] = result

	case OpAddConstFast:
		localIdx, constIdx := arg&0xFF, (arg>>8)&0xFF
		constVal := vm.toValue(frame.Code.Constants[constIdx])
		result, err := vm.fastArith(frame.Locals[localIdx], constVal, func(a, b int64) int64 { return a + b }, OpBinaryAdd)
		if err != nil {
			return genFail(err)
		}
		frame.Locals[localIdx] = result

	case OpAccumulateFast:
		val := vm.pop()
		result, err := vm.fastArith(frame.Locals[arg], val, func(a, b int64) int64 { return a + b }, OpBinaryAdd)
		if err != nil {
			return genFail(err)
		}
		frame.Locals[arg] = result

	case OpInplaceAdd, OpInplaceSubtract, OpInplaceMultiply, OpInplaceDivide,
		OpInplaceFloorDiv, OpInplaceModulo, OpInplacePower, OpInplaceMatMul,
		OpInplaceLShift, OpInplaceRShift, OpInplaceAnd, OpInplaceOr, OpInplaceXor:
		return genInplaceDunder(vm, op)

	default:
		return genPass()
	}
	return genDone()
}

// inplaceDunderNames maps each OpInplace* opcode to the dunder method an
// instance's augmented-assignment operator tries first.
var inplaceDunderNames = [...]string{
	OpInplaceAdd - OpInplaceAdd:      "__iadd__",
	OpInplaceSubtract - OpInplaceAdd: "__isub__",
	OpInplaceMultiply - OpInplaceAdd: "__imul__",
	OpInplaceDivide - OpInplaceAdd:   "__itruediv__",
	OpInplaceFloorDiv - OpInplaceAdd: "__ifloordiv__",
	OpInplaceModulo - OpInplaceAdd:   "__imod__",
	OpInplacePower - OpInplaceAdd:    "__ipow__",
	OpInplaceMatMul - OpInplaceAdd:   "__imatmul__",
	OpInplaceLShift - OpInplaceAdd:   "__ilshift__",
	OpInplaceRShift - OpInplaceAdd:   "__irshift__",
	OpInplaceAnd - OpInplaceAdd:      "__iand__",
	OpInplaceOr - OpInplaceAdd:       "__ior__",
	OpInplaceXor - OpInplaceAdd:      "__ixor__",
}

func genInplaceDunder(vm *VM, op Opcode) genStep {
	b := vm.pop()
	a := vm.pop()

	if inst, ok := a.(*PyInstance); ok {
		result, found, err := vm.callDunder(inst, inplaceDunderNames[op-OpInplaceAdd], b)
		if err != nil {
			return genFail(err)
		}
		if found && result != nil {
			vm.push(result)
			return genDone()
		}
	}

	result, err := vm.binaryOp(op-OpInplaceAdd+OpBinaryAdd, a, b)
	if err != nil {
		return genFail(err)
	}
	vm.push(result)
	return genDone()
}

// compareJumpResult evaluates a CompareXJump opcode's condition, taking
// the int/int fast path when both operands are already *PyInt.
func (vm *VM) compareJumpResult(op Opcode, a, b Value, cmp Opcode, intCmp func(a, b int64) bool) bool {
	if ai, ok := a.(*PyInt); ok {
		if bi, ok := b.(*PyInt); ok {
			return intCmp(ai.Value, bi.Value)
		}
	}
	return vm.truthy(vm.compareOp(cmp, a, b))
}

func genCompareJumpOps(vm *VM, frame *Frame, op Opcode, arg int) genStep {
	var result bool
	switch op {
	case OpCompareLtJump:
		b, a := vm.pop(), vm.pop()
		result = vm.compareJumpResult(op, a, b, OpCompareLt, func(x, y int64) bool { return x < y })
	case OpCompareLeJump:
		b, a := vm.pop(), vm.pop()
		result = vm.compareJumpResult(op, a, b, OpCompareLe, func(x, y int64) bool { return x <= y })
	case OpCompareGtJump:
		b, a := vm.pop(), vm.pop()
		result = vm.compareJumpResult(op, a, b, OpCompareGt, func(x, y int64) bool { return x > y })
	case OpCompareGeJump:
		b, a := vm.pop(), vm.pop()
		result = vm.compareJumpResult(op, a, b, OpCompareGe, func(x, y int64) bool { return x >= y })
	case OpCompareEqJump:
		b, a := vm.pop(), vm.pop()
		result = vm.equal(a, b)
	case OpCompareNeJump:
		b, a := vm.pop(), vm.pop()
		neResult := vm.compareOp(OpCompareNe, a, b)
		result = neResult != nil && vm.truthy(neResult)
	default:
		return genPass()
	}
	if !result {
		frame.IP = arg
	}
	return genDone()
}

func genExceptionOps(vm *VM, frame *Frame, op Opcode, arg int) genStep {
	switch op {
	case OpSetupExcept:
		frame.BlockStack = append(frame.BlockStack, Block{Type: BlockExcept, Handler: arg, Level: frame.SP})
	case OpSetupFinally:
		frame.BlockStack = append(frame.BlockStack, Block{Type: BlockFinally, Handler: arg, Level: frame.SP})
	case OpSetupWith:
		frame.BlockStack = append(frame.BlockStack, Block{Type: BlockWith, Handler: arg, Level: frame.SP})
	case OpPopBlock:
		if len(frame.BlockStack) > 0 {
			frame.BlockStack = frame.BlockStack[:len(frame.BlockStack)-1]
		}
	case OpPopExcept:
		if len(frame.BlockStack) > 0 {
			frame.BlockStack = frame.BlockStack[:len(frame.BlockStack)-1]
		}
		vm.currentException = nil
	case OpPopExceptHandler:
		vm.currentException = nil
		if len(vm.excHandlerStack) > 0 {
			vm.excHandlerStack = vm.excHandlerStack[:len(vm.excHandlerStack)-1]
		}
	case OpClearException:
		if vm.currentException != nil {
			vm.excHandlerStack = append(vm.excHandlerStack, vm.currentException)
		}
		vm.currentException = nil
	case OpExceptionMatch:
		excType := vm.pop()
		exc := vm.top()
		matched := false
		if pyExc, ok := exc.(*PyException); ok {
			matched = vm.exceptionMatches(pyExc, excType)
		}
		vm.push(boolValue(matched))
	case OpRaiseVarargs:
		return genRaiseVarargs(vm, frame, arg)
	case OpEndFinally:
		return genEndFinally(vm, frame)
	case OpWithCleanup:
		return genWithCleanup(vm)
	default:
		return genPass()
	}
	return genDone()
}

func genRaiseVarargs(vm *VM, frame *Frame, arg int) genStep {
	var exc *PyException
	switch arg {
	case 0:
		switch {
		case len(vm.excHandlerStack) > 0:
			exc = vm.excHandlerStack[len(vm.excHandlerStack)-1]
		case vm.lastException != nil:
			exc = vm.lastException
		default:
			return genFail(fmt.Errorf("RuntimeError: No active exception to re-raise"))
		}
	case 1:
		exc = vm.createException(vm.pop(), nil)
	default:
		cause := vm.pop()
		exc = vm.createException(vm.pop(), cause)
	}

	if arg != 0 && len(vm.excHandlerStack) > 0 {
		if handled := vm.excHandlerStack[len(vm.excHandlerStack)-1]; exc != handled {
			exc.Context = handled
		}
	}
	exc.Traceback = vm.buildTraceback()
	if _, err := vm.handleException(exc); err != nil {
		return genFail(err)
	}
	if vm.frame != frame {
		return genFail(errExceptionHandledInOuterFrame)
	}
	return genDone()
}

func genEndFinally(vm *VM, frame *Frame) genStep {
	if len(vm.excHandlerStack) > 0 {
		vm.excHandlerStack = vm.excHandlerStack[:len(vm.excHandlerStack)-1]
	}
	if vm.currentException != nil {
		exc := vm.currentException
		vm.currentException = nil
		if _, err := vm.handleException(exc); err != nil {
			return genFail(err)
		}
	}
	if vm.generatorHasPendingReturn {
		vm.generatorHasPendingReturn = false
		result := vm.generatorPendingReturn
		vm.generatorPendingReturn = nil
		return genReturn(result)
	}
	if vm.generatorHasPendingJump {
		vm.generatorHasPendingJump = false
		frame.IP = vm.generatorPendingJump
	}
	return genDone()
}

func genWithCleanup(vm *VM) genStep {
	exc := vm.pop()
	cm := vm.pop()

	exitMethod, err := vm.getAttr(cm, "__exit__")
	if err != nil {
		return genFail(fmt.Errorf("AttributeError: __exit__: %w", err))
	}

	excType, excVal, excTb := Value(None), Value(None), Value(None)
	if pyExc, ok := exc.(*PyException); ok {
		if pyExc.ExcType != nil {
			excType = pyExc.ExcType
		} else {
			excType = &PyString{Value: pyExc.Type()}
		}
		excVal = pyExc
	}

	var result Value
	switch fn := exitMethod.(type) {
	case *PyMethod:
		result, err = vm.callFunction(fn.Func, []Value{fn.Instance, excType, excVal, excTb}, nil)
	case *PyFunction:
		result, err = vm.callFunction(fn, []Value{cm, excType, excVal, excTb}, nil)
	case *PyBuiltinFunc:
		result, err = fn.Fn([]Value{cm, excType, excVal, excTb}, nil)
	default:
		return genFail(fmt.Errorf("TypeError: __exit__ is not callable"))
	}
	if err != nil {
		return genFail(err)
	}
	if vm.truthy(result) {
		vm.currentException = nil
	}
	return genDone()
}

func genAsyncOps(vm *VM, frame *Frame, op Opcode, arg int) genStep {
	switch op {
	case OpGetAwaitable:
		return genGetAwaitable(vm)
	case OpGetAIter:
		aiter, err := vm.getAttr(vm.pop(), "__aiter__")
		if err != nil {
			return genFail(fmt.Errorf("'%s' object is not async iterable", vm.typeName(vm.top())))
		}
		result, err := vm.call(aiter, nil, nil)
		if err != nil {
			return genFail(err)
		}
		vm.push(result)
	case OpGetANext:
		obj := vm.top()
		anext, err := vm.getAttr(obj, "__anext__")
		if err != nil {
			return genFail(fmt.Errorf("'%s' object is not an async iterator", vm.typeName(obj)))
		}
		result, err := vm.call(anext, nil, nil)
		if err != nil {
			return genFail(err)
		}
		vm.push(result)
	default:
		return genPass()
	}
	return genDone()
}

func genGetAwaitable(vm *VM) genStep {
	obj := vm.pop()
	switch obj.(type) {
	case *PyCoroutine, *PyGenerator:
		vm.push(obj)
		return genDone()
	}
	awaitable, err := vm.getAttr(obj, "__await__")
	if err != nil {
		vm.push(obj)
		return genDone()
	}
	result, err := vm.call(awaitable, nil, nil)
	if err != nil {
		return genFail(err)
	}
	vm.push(result)
	return genDone()
}

func genImportOps(vm *VM, frame *Frame, op Opcode, arg int) genStep {
	switch op {
	case OpImportName:
		return genImportName(vm, frame, arg)
	case OpImportFrom:
		name := frame.Code.Names[arg]
		pyMod, ok := vm.top().(*PyModule)
		if !ok {
			return genFail(fmt.Errorf("import from requires a module, got %s", vm.typeName(vm.top())))
		}
		value, exists := pyMod.Get(name)
		if !exists {
			return genFail(fmt.Errorf("cannot import name '%s' from '%s'", name, pyMod.Name))
		}
		vm.push(value)
	default:
		return genPass()
	}
	return genDone()
}

// importPackageName reads the importing frame's __package__, falling
// back to __name__, the same resolution order ResolveRelativeImport
// needs for a "from . import x" inside this module.
func importPackageName(frame *Frame) string {
	if pkgVal, ok := frame.Globals["__package__"]; ok {
		if pkgStr, ok := pkgVal.(*PyString); ok && pkgStr.Value != "" {
			return pkgStr.Value
		}
	}
	if nameVal, ok := frame.Globals["__name__"]; ok {
		if nameStr, ok := nameVal.(*PyString); ok {
			return nameStr.Value
		}
	}
	return ""
}

func genImportName(vm *VM, frame *Frame, arg int) genStep {
	name := frame.Code.Names[arg]
	fromlist := vm.pop()
	levelVal := vm.pop()
	level := 0
	if levelInt, ok := levelVal.(*PyInt); ok {
		level = int(levelInt.Value)
	}

	moduleName := name
	if level > 0 {
		resolved, err := ResolveRelativeImport(name, level, importPackageName(frame))
		if err != nil {
			return genFail(err)
		}
		moduleName = resolved
	}

	var rootMod, targetMod *PyModule
	parts := splitModuleName(moduleName)
	for i := range parts {
		mod, err := vm.ImportModule(joinModuleName(parts[:i+1]))
		if err != nil {
			return genFail(err)
		}
		if i == 0 {
			rootMod = mod
		}
		targetMod = mod
	}

	if hasFromlistEntries(fromlist) {
		vm.push(targetMod)
	} else {
		vm.push(rootMod)
	}
	return genDone()
}

func hasFromlistEntries(fromlist Value) bool {
	if fromlist == nil || fromlist == None {
		return false
	}
	if list, ok := fromlist.(*PyList); ok {
		return len(list.Items) > 0
	}
	if tuple, ok := fromlist.(*PyTuple); ok {
		return len(tuple.Items) > 0
	}
	return false
}
