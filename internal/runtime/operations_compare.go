package runtime

import (
	"math/big"
	"strings"
)

// areBuiltinOrderable reports whether a and b are a pair of builtin
// types Python allows to order against each other with <, <=, >, >=.
func (vm *VM) areBuiltinOrderable(a, b Value) bool {
	switch a.(type) {
	case *PyInt, *PyFloat:
		switch b.(type) {
		case *PyInt, *PyFloat:
			return true
		}
	case *PyString:
		_, ok := b.(*PyString)
		return ok
	case *PyList:
		_, ok := b.(*PyList)
		return ok
	case *PyTuple:
		_, ok := b.(*PyTuple)
		return ok
	case *PyBytes:
		_, ok := b.(*PyBytes)
		return ok
	case *PyBool:
		switch b.(type) {
		case *PyBool, *PyInt, *PyFloat:
			return true
		}
	}
	return false
}

// raiseDunderError records err (wrapped as a PyException if it isn't
// already one) as vm's current exception, the way a rich-compare dunder
// raising mid-call surfaces to the interpreter loop.
func (vm *VM) raiseDunderError(err error) {
	if pyExc, ok := err.(*PyException); ok {
		vm.currentException = pyExc
		return
	}
	vm.currentException = &PyException{TypeName: "RuntimeError", Message: err.Error()}
}

// tryRichCompare attempts a.dunder(b), then b.reflected(a), returning
// found=false to signal the caller should fall back to builtin ordering.
func (vm *VM) tryRichCompare(a, b Value, dunder, reflected string) (Value, bool) {
	if inst, ok := a.(*PyInstance); ok {
		result, found, err := vm.callDunder(inst, dunder, b)
		if found && err != nil {
			vm.raiseDunderError(err)
			return nil, true
		}
		if found && result != NotImplemented {
			return result, true
		}
	}
	if inst, ok := b.(*PyInstance); ok {
		result, found, err := vm.callDunder(inst, reflected, a)
		if found && err != nil {
			vm.raiseDunderError(err)
			return nil, true
		}
		if found && result != NotImplemented {
			return result, true
		}
	}
	return nil, false
}

func pyBoolOf(cond bool) Value {
	if cond {
		return True
	}
	return False
}

// intCompareOp implements an ordering/equality opcode over two native
// ints; ok is false for an opcode this function doesn't cover.
func intCompareOp(op Opcode, ai, bi *PyInt) (Value, bool) {
	switch op {
	case OpCompareEq:
		return pyBoolOf(ai.Value == bi.Value), true
	case OpCompareNe:
		return pyBoolOf(ai.Value != bi.Value), true
	case OpCompareLt:
		return pyBoolOf(ai.Value < bi.Value), true
	case OpCompareLe:
		return pyBoolOf(ai.Value <= bi.Value), true
	case OpCompareGt:
		return pyBoolOf(ai.Value > bi.Value), true
	case OpCompareGe:
		return pyBoolOf(ai.Value >= bi.Value), true
	}
	return nil, false
}

// setCompareOp implements ==, !=, <, <=, >, >= between two sets as
// equality/subset/superset tests; ok is false for an opcode not handled
// this way (the in/is family, which apply uniformly below).
func (vm *VM) setCompareOp(op Opcode, as, bs *PySet) (Value, bool) {
	isSubset := func(small, big map[Value]struct{}, bigSet *PySet) bool {
		for k := range small {
			if !bigSet.SetContains(k, vm) {
				return false
			}
		}
		return true
	}
	switch op {
	case OpCompareEq:
		return pyBoolOf(vm.equal(as, bs)), true
	case OpCompareNe:
		return pyBoolOf(!vm.equal(as, bs)), true
	case OpCompareLt:
		return pyBoolOf(len(as.Items) < len(bs.Items) && isSubset(as.Items, bs.Items, bs)), true
	case OpCompareLe:
		return pyBoolOf(isSubset(as.Items, bs.Items, bs)), true
	case OpCompareGt:
		return pyBoolOf(len(as.Items) > len(bs.Items) && isSubset(bs.Items, as.Items, as)), true
	case OpCompareGe:
		return pyBoolOf(isSubset(bs.Items, as.Items, as)), true
	}
	return nil, false
}

// neSubclassPriority reports whether b's class is a (strict) subclass of
// a's, in which case CPython tries b.__ne__ before a.__ne__.
func neSubclassPriority(a, b *PyInstance) bool {
	if a.Class == b.Class {
		return false
	}
	for _, base := range b.Class.Mro {
		if base == a.Class {
			return true
		}
	}
	return false
}

// compareNe implements != dispatch: subclass-priority dunder lookup,
// default __ne__-from-__eq__, then identity, matching CPython's rule
// that a dunder search finding nothing is different from one whose every
// candidate returned NotImplemented.
func (vm *VM) compareNe(a, b Value) Value {
	aInst, aIsInst := a.(*PyInstance)
	bInst, bIsInst := b.(*PyInstance)
	bHasPriority := aIsInst && bIsInst && neSubclassPriority(aInst, bInst)
	tried := false

	if bHasPriority {
		if result, found, err := vm.callDunder(bInst, "__ne__", a); found && err == nil && result != NotImplemented {
			return result
		} else if found {
			tried = true
		}
	}

	if aIsInst {
		if result, found, err := vm.callDunder(aInst, "__ne__", b); found {
			if err == nil && result != NotImplemented {
				return result
			}
			tried = true
		} else if eqResult, eqFound, eqErr := vm.callDunder(aInst, "__eq__", b); eqFound && eqErr == nil && eqResult != NotImplemented {
			return pyBoolOf(!vm.truthy(eqResult))
		} else if eqFound {
			tried = true
		}
	}

	if !bHasPriority && bIsInst {
		if result, found, err := vm.callDunder(bInst, "__ne__", a); found {
			if err == nil && result != NotImplemented {
				return result
			}
			tried = true
		}
	}

	if tried {
		return pyBoolOf(a != b)
	}
	return pyBoolOf(!vm.equal(a, b))
}

// orderedCompare implements <, <=, >, >= uniformly: try the rich-compare
// dunder pair, reject complex/unorderable operands, then fall back to
// vm.compare's three-way result.
func (vm *VM) orderedCompare(op Opcode, a, b Value, dunder, reflected, symbol string, accept func(c int) bool) Value {
	if result, ok := vm.tryRichCompare(a, b, dunder, reflected); ok {
		return result
	}
	_, aIsComplex := a.(*PyComplex)
	_, bIsComplex := b.(*PyComplex)
	if aIsComplex || bIsComplex || !vm.areBuiltinOrderable(a, b) {
		vm.currentException = &PyException{TypeName: "TypeError", Message: "'" + symbol + "' not supported between instances of '" + vm.typeName(a) + "' and '" + vm.typeName(b) + "'"}
		return nil
	}
	cmp := vm.compare(a, b)
	if vm.currentException != nil {
		return nil
	}
	return pyBoolOf(accept(cmp))
}

// compareOp implements every comparison opcode: ==, !=, <, <=, >, >=,
// is, is not, in, not in.
func (vm *VM) compareOp(op Opcode, a, b Value) Value {
	if ai, ok := a.(*PyInt); ok {
		if bi, ok := b.(*PyInt); ok {
			if result, ok := intCompareOp(op, ai, bi); ok {
				return result
			}
		}
	}

	if as, ok := a.(*PySet); ok {
		if bs, ok := b.(*PySet); ok {
			if result, ok := vm.setCompareOp(op, as, bs); ok {
				return result
			}
		}
	}

	switch op {
	case OpCompareEq:
		return pyBoolOf(vm.equal(a, b))
	case OpCompareNe:
		return vm.compareNe(a, b)
	case OpCompareLt:
		return vm.orderedCompare(op, a, b, "__lt__", "__gt__", "<", func(c int) bool { return c < 0 })
	case OpCompareLe:
		return vm.orderedCompare(op, a, b, "__le__", "__ge__", "<=", func(c int) bool { return c <= 0 })
	case OpCompareGt:
		return vm.orderedCompare(op, a, b, "__gt__", "__lt__", ">", func(c int) bool { return c > 0 })
	case OpCompareGe:
		return vm.orderedCompare(op, a, b, "__ge__", "__le__", ">=", func(c int) bool { return c >= 0 })
	case OpCompareIs:
		return pyBoolOf(a == b)
	case OpCompareIsNot:
		return pyBoolOf(a != b)
	case OpCompareIn:
		return pyBoolOf(vm.contains(b, a))
	case OpCompareNotIn:
		return pyBoolOf(!vm.contains(b, a))
	}
	return False
}

func (vm *VM) equal(a, b Value) bool {
	return vm.equalWithCycleDetection(a, b, make(map[uintptr]map[uintptr]bool))
}

// markSeenPair records that a and b's cycle-detection map considers
// (ptrA, ptrB) in progress, returning true if it was already marked
// (meaning the caller should treat the pair as equal to break a cycle).
func markSeenPair(seen map[uintptr]map[uintptr]bool, a, b Value) bool {
	ptrA, ptrB := ptrValue(a), ptrValue(b)
	if seen[ptrA] != nil && seen[ptrA][ptrB] {
		return true
	}
	if seen[ptrA] == nil {
		seen[ptrA] = make(map[uintptr]bool)
	}
	seen[ptrA][ptrB] = true
	return false
}

func equalBool(av *PyBool, b Value) (bool, bool) {
	switch bv := b.(type) {
	case *PyBool:
		return av.Value == bv.Value, true
	case *PyInt:
		return boolAsInt(av.Value) == bv.Value, true
	case *PyFloat:
		return boolAsFloat(av.Value) == bv.Value, true
	}
	return false, false
}

func boolAsInt(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func boolAsFloat(v bool) float64 {
	if v {
		return 1.0
	}
	return 0.0
}

func equalInt(av *PyInt, b Value) (bool, bool) {
	switch bv := b.(type) {
	case *PyInt:
		if av.BigValue != nil || bv.BigValue != nil {
			return av.BigIntValue().Cmp(bv.BigIntValue()) == 0, true
		}
		return av.Value == bv.Value, true
	case *PyFloat:
		if av.BigValue != nil {
			return new(big.Float).SetInt(av.BigIntValue()).Cmp(big.NewFloat(bv.Value)) == 0, true
		}
		return float64(av.Value) == bv.Value, true
	case *PyBool:
		return av.Value == boolAsInt(bv.Value), true
	case *PyComplex:
		return bv.Imag == 0 && float64(av.Value) == bv.Real, true
	}
	return false, false
}

func equalFloat(av *PyFloat, b Value) (bool, bool) {
	switch bv := b.(type) {
	case *PyFloat:
		return av.Value == bv.Value, true
	case *PyInt:
		return av.Value == float64(bv.Value), true
	case *PyComplex:
		return bv.Imag == 0 && av.Value == bv.Real, true
	}
	return false, false
}

func equalComplex(av *PyComplex, b Value) (bool, bool) {
	switch bv := b.(type) {
	case *PyComplex:
		return av.Real == bv.Real && av.Imag == bv.Imag, true
	case *PyInt:
		return av.Imag == 0 && av.Real == float64(bv.Value), true
	case *PyFloat:
		return av.Imag == 0 && av.Real == bv.Value, true
	case *PyBool:
		return av.Imag == 0 && av.Real == boolAsFloat(bv.Value), true
	}
	return false, false
}

func equalBytes(av, bv *PyBytes) bool {
	if len(av.Value) != len(bv.Value) {
		return false
	}
	for i := range av.Value {
		if av.Value[i] != bv.Value[i] {
			return false
		}
	}
	return true
}

func (vm *VM) equalList(av, bv *PyList, seen map[uintptr]map[uintptr]bool) bool {
	if len(av.Items) != len(bv.Items) {
		return false
	}
	if markSeenPair(seen, av, bv) {
		return true
	}
	for i := range av.Items {
		if !vm.equalWithCycleDetection(av.Items[i], bv.Items[i], seen) {
			return false
		}
	}
	return true
}

func (vm *VM) equalTuple(av, bv *PyTuple, seen map[uintptr]map[uintptr]bool) bool {
	if len(av.Items) != len(bv.Items) {
		return false
	}
	for i := range av.Items {
		if !vm.equalWithCycleDetection(av.Items[i], bv.Items[i], seen) {
			return false
		}
	}
	return true
}

func (vm *VM) equalDict(av, bv *PyDict, seen map[uintptr]map[uintptr]bool) bool {
	if len(av.Items) != len(bv.Items) {
		return false
	}
	if markSeenPair(seen, av, bv) {
		return true
	}
	for k, v := range av.Items {
		found := false
		for k2, v2 := range bv.Items {
			if vm.equalWithCycleDetection(k, k2, seen) && vm.equalWithCycleDetection(v, v2, seen) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (vm *VM) equalSetLike(aItems map[Value]struct{}, bContains func(Value) bool, bLen int) bool {
	if len(aItems) != bLen {
		return false
	}
	for k := range aItems {
		if !bContains(k) {
			return false
		}
	}
	return true
}

func (vm *VM) equalRange(av, bv *PyRange) bool {
	aLen, bLen := rangeLen(av), rangeLen(bv)
	if aLen != bLen {
		return false
	}
	if aLen == 0 {
		return true
	}
	if av.Start != bv.Start {
		return false
	}
	if aLen == 1 {
		return true
	}
	return av.Step == bv.Step
}

// equalInstanceDunder tries inst's __eq__ then, failing that, other's
// __eq__; ok is false when neither yields a definitive (non-
// NotImplemented) answer and the caller should fall back to identity.
func (vm *VM) equalInstanceDunder(inst *PyInstance, other Value) (bool, bool) {
	if result, found, err := vm.callDunder(inst, "__eq__", other); found && err == nil && result != NotImplemented {
		return vm.truthy(result), true
	}
	if otherInst, ok := other.(*PyInstance); ok {
		if result, found, err := vm.callDunder(otherInst, "__eq__", inst); found && err == nil && result != NotImplemented {
			return vm.truthy(result), true
		}
	}
	return false, false
}

// equalWithCycleDetection compares a and b, tracking visited (a, b)
// pointer pairs so a self-referential list/dict compares equal rather
// than recursing forever.
func (vm *VM) equalWithCycleDetection(a, b Value, seen map[uintptr]map[uintptr]bool) bool {
	switch av := a.(type) {
	case *PyNone:
		_, ok := b.(*PyNone)
		return ok
	case *PyBool:
		if result, ok := equalBool(av, b); ok {
			return result
		}
	case *PyInt:
		if result, ok := equalInt(av, b); ok {
			return result
		}
	case *PyFloat:
		if result, ok := equalFloat(av, b); ok {
			return result
		}
	case *PyComplex:
		if result, ok := equalComplex(av, b); ok {
			return result
		}
	case *PyString:
		if bv, ok := b.(*PyString); ok {
			return av.Value == bv.Value
		}
	case *PyBytes:
		if bv, ok := b.(*PyBytes); ok {
			return equalBytes(av, bv)
		}
	case *PyList:
		if bv, ok := b.(*PyList); ok {
			return vm.equalList(av, bv, seen)
		}
	case *PyTuple:
		if bv, ok := b.(*PyTuple); ok {
			return vm.equalTuple(av, bv, seen)
		}
	case *PyDict:
		if bv, ok := b.(*PyDict); ok {
			return vm.equalDict(av, bv, seen)
		}
	case *PySet:
		switch bv := b.(type) {
		case *PySet:
			return vm.equalSetLike(av.Items, func(k Value) bool { return bv.SetContains(k, vm) }, len(bv.Items))
		case *PyFrozenSet:
			return vm.equalSetLike(av.Items, func(k Value) bool { return bv.FrozenSetContains(k, vm) }, len(bv.Items))
		}
	case *PyFrozenSet:
		switch bv := b.(type) {
		case *PyFrozenSet:
			return vm.equalSetLike(av.Items, func(k Value) bool { return bv.FrozenSetContains(k, vm) }, len(bv.Items))
		case *PySet:
			return vm.equalSetLike(av.Items, func(k Value) bool { return bv.SetContains(k, vm) }, len(bv.Items))
		}
	case *PyRange:
		if bv, ok := b.(*PyRange); ok {
			return vm.equalRange(av, bv)
		}
	case *UnionType:
		bv, ok := b.(*UnionType)
		if !ok || len(av.Args) != len(bv.Args) {
			return false
		}
		for i, arg := range av.Args {
			if !vm.equalWithCycleDetection(arg, bv.Args[i], seen) {
				return false
			}
		}
		return true
	case *PyClass:
		return a == b
	case *PyInstance:
		if result, ok := vm.equalInstanceDunder(av, b); ok {
			return result
		}
		return a == b
	}
	if bv, ok := b.(*PyInstance); ok {
		if result, found, err := vm.callDunder(bv, "__eq__", a); found && err == nil && result != NotImplemented {
			return vm.truthy(result)
		}
	}
	return a == b
}

func compareNumbers[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareSequenceItems[T any](vm *VM, a, b []T, elemCompare func(T, T) int) int {
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		if c := elemCompare(a[i], b[i]); c != 0 {
			return c
		}
		if vm.currentException != nil {
			return 0
		}
	}
	return compareNumbers(len(a), len(b))
}

// compareInstanceDunders implements vm.compare's fallback for
// *PyInstance operands: try __lt__/__gt__/__eq__ in that order, treating
// any non-true result as "doesn't establish this relation".
func (vm *VM) compareInstanceDunders(av *PyInstance, b Value) int {
	if result, found, err := vm.callDunder(av, "__lt__", b); found && err == nil {
		if bv, ok := result.(*PyBool); ok && bv.Value {
			return -1
		}
	}
	if result, found, err := vm.callDunder(av, "__gt__", b); found && err == nil {
		if bv, ok := result.(*PyBool); ok && bv.Value {
			return 1
		}
	}
	if result, found, err := vm.callDunder(av, "__eq__", b); found && err == nil {
		if bv, ok := result.(*PyBool); ok && bv.Value {
			return 0
		}
	}
	return 0
}

// compareReflectedDunders mirrors compareInstanceDunders when only b is
// a *PyInstance: b.__gt__(a) means a < b, b.__lt__(a) means a > b.
func (vm *VM) compareReflectedDunders(a Value, bv *PyInstance) (int, bool) {
	if result, found, err := vm.callDunder(bv, "__gt__", a); found && err == nil {
		if boolVal, ok := result.(*PyBool); ok && boolVal.Value {
			return -1, true
		}
	}
	if result, found, err := vm.callDunder(bv, "__lt__", a); found && err == nil {
		if boolVal, ok := result.(*PyBool); ok && boolVal.Value {
			return 1, true
		}
	}
	return 0, false
}

// compare returns a three-way (-1/0/1) ordering of a and b, raising a
// TypeError on vm.currentException when they're neither orderable
// builtins nor instances offering a rich-compare dunder.
func (vm *VM) compare(a, b Value) int {
	a, b = coerceBool(a), coerceBool(b)

	switch av := a.(type) {
	case *PyInt:
		switch bv := b.(type) {
		case *PyInt:
			return compareNumbers(av.Value, bv.Value)
		case *PyFloat:
			return compareNumbers(float64(av.Value), bv.Value)
		}
	case *PyFloat:
		switch bv := b.(type) {
		case *PyFloat:
			return compareNumbers(av.Value, bv.Value)
		case *PyInt:
			return compareNumbers(av.Value, float64(bv.Value))
		}
	case *PyString:
		if bv, ok := b.(*PyString); ok {
			return compareNumbers(strings.Compare(av.Value, bv.Value), 0)
		}
	case *PyBytes:
		if bv, ok := b.(*PyBytes); ok {
			return compareSequenceItems(vm, av.Value, bv.Value, func(x, y byte) int { return compareNumbers(int64(x), int64(y)) })
		}
	case *PyList:
		if bv, ok := b.(*PyList); ok {
			return compareSequenceItems(vm, av.Items, bv.Items, vm.compare)
		}
	case *PyTuple:
		if bv, ok := b.(*PyTuple); ok {
			return compareSequenceItems(vm, av.Items, bv.Items, vm.compare)
		}
	case *PyInstance:
		return vm.compareInstanceDunders(av, b)
	}

	if bv, ok := b.(*PyInstance); ok {
		if cmp, ok := vm.compareReflectedDunders(a, bv); ok {
			return cmp
		}
	}

	if a != b && !vm.areBuiltinOrderable(a, b) {
		_, aIsInst := a.(*PyInstance)
		_, bIsInst := b.(*PyInstance)
		if !aIsInst && !bIsInst {
			vm.currentException = &PyException{
				TypeName: "TypeError",
				Message:  "'<' not supported between instances of '" + vm.typeName(a) + "' and '" + vm.typeName(b) + "'",
			}
		}
	}
	return 0
}

// containsIdentityOrEqual checks identity first, then equality (the
// order CPython's 'in' operator uses).
func (vm *VM) containsIdentityOrEqual(v, item Value) bool {
	return v == item || vm.equal(v, item)
}

// iterContains drives 'in' via __iter__/iterNext, clearing the stale
// StopIteration left on vm.currentException once exhausted.
func (vm *VM) iterContains(container, item Value) (bool, bool) {
	iter, err := vm.getIter(container)
	if err != nil {
		return false, false
	}
	for {
		val, done, err := vm.iterNext(iter)
		if done || err != nil {
			break
		}
		if vm.containsIdentityOrEqual(val, item) {
			return true, true
		}
	}
	vm.currentException = nil
	return false, true
}

// callContainsDunder invokes a __contains__/__iter__ Value (a
// *PyFunction or *PyBuiltinFunc) with the stack-level calling
// convention used by class- and instance-level dunder dispatch here.
func (vm *VM) callContainsDunder(method Value, args []Value) (Value, error) {
	switch fn := method.(type) {
	case *PyFunction:
		return vm.callFunction(fn, args, nil)
	case *PyBuiltinFunc:
		return fn.Fn(args, nil)
	}
	return nil, nil
}

// classContains implements 'in' for a bare class object (as opposed to
// an instance): direct __contains__ lookup, else __iter__-based scan.
func (vm *VM) classContains(c *PyClass, item Value) bool {
	if method, ok := c.Dict["__contains__"]; ok {
		result, err := vm.callContainsDunder(method, []Value{c, item})
		if err != nil {
			vm.currentException = &PyException{TypeName: "TypeError", Message: err.Error()}
			return false
		}
		if result != nil {
			if b, ok := result.(*PyBool); ok {
				return b.Value
			}
			return vm.truthy(result)
		}
	}
	if _, ok := c.Dict["__iter__"]; ok {
		if found, _ := vm.iterContains(c, item); found {
			return true
		}
	}
	return false
}

// getitemContains implements the __getitem__-based 'in' fallback:
// probing sequential integer indices until IndexError.
func (vm *VM) getitemContains(c *PyInstance, item Value) bool {
	for idx := 0; ; idx++ {
		result, _, err := vm.callDunder(c, "__getitem__", MakeInt(int64(idx)))
		if err != nil {
			if pyExc, ok := err.(*PyException); ok && pyExc.Type() == "IndexError" {
				vm.currentException = nil
				return false
			}
			if strings.Contains(err.Error(), "IndexError") {
				vm.currentException = nil
				return false
			}
			vm.currentException = &PyException{TypeName: "TypeError", Message: err.Error()}
			return false
		}
		if vm.containsIdentityOrEqual(result, item) {
			return true
		}
	}
}

// instanceContains implements 'in' for a class instance: MRO-searched
// __contains__, else __iter__, else __getitem__ probing.
func (vm *VM) instanceContains(c *PyInstance, item Value) bool {
	for _, cls := range c.Class.Mro {
		if cls.Name == "object" {
			continue
		}
		method, ok := cls.Dict["__contains__"]
		if !ok {
			continue
		}
		if _, isNone := method.(*PyNone); isNone {
			vm.currentException = &PyException{TypeName: "TypeError", Message: "argument of type '" + c.Class.Name + "' is not iterable"}
			return false
		}
		result, err := vm.callContainsDunder(method, []Value{c, item})
		if err != nil {
			vm.currentException = &PyException{TypeName: "TypeError", Message: err.Error()}
			return false
		}
		if result != nil {
			if b, ok := result.(*PyBool); ok {
				return b.Value
			}
			return vm.truthy(result)
		}
		return false
	}

	if found, ok := vm.iterContains(c, item); ok {
		return found
	}

	for _, cls := range c.Class.Mro {
		if _, ok := cls.Dict["__getitem__"]; ok {
			return vm.getitemContains(c, item)
		}
	}

	vm.currentException = &PyException{TypeName: "TypeError", Message: "argument of type '" + c.Class.Name + "' is not iterable"}
	return false
}

// contains implements the 'in' operator's container-type dispatch.
func (vm *VM) contains(container, item Value) bool {
	switch c := container.(type) {
	case *PyString:
		s, ok := item.(*PyString)
		if !ok {
			vm.currentException = &PyException{TypeName: "TypeError", Message: "'in <string>' requires string as left operand, not " + vm.typeName(item)}
			return false
		}
		return strings.Contains(c.Value, s.Value)
	case *PyList:
		for _, v := range c.Items {
			if vm.containsIdentityOrEqual(v, item) {
				return true
			}
		}
	case *PyTuple:
		for _, v := range c.Items {
			if vm.containsIdentityOrEqual(v, item) {
				return true
			}
		}
	case *PySet:
		return c.SetContains(item, vm)
	case *PyFrozenSet:
		return c.FrozenSetContains(item, vm)
	case *PyDict:
		return c.DictContains(item, vm)
	case *PyRange:
		if i, ok := item.(*PyInt); ok && i.BigValue == nil {
			return c.Contains(i.Value)
		}
		if b, ok := item.(*PyBool); ok {
			return c.Contains(boolAsInt(b.Value))
		}
	case *PyBytes:
		if i, ok := item.(*PyInt); ok && i.BigValue == nil {
			for _, b := range c.Value {
				if int64(b) == i.Value {
					return true
				}
			}
		}
		if sub, ok := item.(*PyBytes); ok {
			return len(sub.Value) == 0 || bytesContains(c.Value, sub.Value)
		}
	case *PyClass:
		return vm.classContains(c, item)
	case *PyInstance:
		return vm.instanceContains(c, item)
	}
	return false
}

// bytesContains reports whether sub occurs as a contiguous subsequence
// of data.
func bytesContains(data, sub []byte) bool {
	if len(sub) > len(data) {
		return false
	}
	for i := 0; i <= len(data)-len(sub); i++ {
		match := true
		for j := 0; j < len(sub); j++ {
			if data[i+j] != sub[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
