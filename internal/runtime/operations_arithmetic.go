package runtime

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
)

const (
	maxStringRepeatSize = 100 * 1024 * 1024
	maxListRepeatItems  = 10 * 1024 * 1024
	maxTupleRepeatItems = 10 * 1024 * 1024
	maxBytesRepeatSize  = 100 * 1024 * 1024
)

// coerceBool turns a *PyBool operand into the *PyInt Python treats it as
// for arithmetic (bool is a subclass of int).
func coerceBool(v Value) Value {
	if b, ok := v.(*PyBool); ok {
		if b.Value {
			return MakeInt(1)
		}
		return MakeInt(0)
	}
	return v
}

var unaryDunders = map[Opcode]string{
	OpUnaryNegative: "__neg__",
	OpUnaryPositive: "__pos__",
	OpUnaryInvert:   "__invert__",
}

// unaryOp implements a unary operator, preferring an instance's dunder
// override before the builtin numeric-type fallbacks.
func (vm *VM) unaryOp(op Opcode, a Value) (Value, error) {
	a = coerceBool(a)

	if inst, ok := a.(*PyInstance); ok {
		if name := unaryDunders[op]; name != "" {
			if result, found, err := vm.callDunder(inst, name); found {
				return result, err
			}
		}
	}

	switch op {
	case OpUnaryNegative:
		switch v := a.(type) {
		case *PyInt:
			return MakeInt(-v.Value), nil
		case *PyFloat:
			return &PyFloat{Value: -v.Value}, nil
		case *PyComplex:
			return MakeComplex(-v.Real, -v.Imag), nil
		}
	case OpUnaryPositive:
		switch v := a.(type) {
		case *PyInt, *PyFloat:
			return v, nil
		case *PyComplex:
			return MakeComplex(v.Real, v.Imag), nil
		}
	case OpUnaryInvert:
		if v, ok := a.(*PyInt); ok {
			return MakeInt(^v.Value), nil
		}
	}
	return nil, fmt.Errorf("TypeError: bad operand type for unary %s: '%s'", op.String(), vm.typeName(a))
}

type binaryDunderPair struct{ forward, reverse string }

var binaryDunders = map[Opcode]binaryDunderPair{
	OpBinaryAdd:      {"__add__", "__radd__"},
	OpBinarySubtract: {"__sub__", "__rsub__"},
	OpBinaryMultiply: {"__mul__", "__rmul__"},
	OpBinaryDivide:   {"__truediv__", "__rtruediv__"},
	OpBinaryFloorDiv: {"__floordiv__", "__rfloordiv__"},
	OpBinaryModulo:   {"__mod__", "__rmod__"},
	OpBinaryPower:    {"__pow__", "__rpow__"},
	OpBinaryMatMul:   {"__matmul__", "__rmatmul__"},
	OpBinaryAnd:      {"__and__", "__rand__"},
	OpBinaryOr:       {"__or__", "__ror__"},
	OpBinaryXor:      {"__xor__", "__rxor__"},
	OpBinaryLShift:   {"__lshift__", "__rlshift__"},
	OpBinaryRShift:   {"__rshift__", "__rrshift__"},
}

// tryBinaryDunder calls the forward dunder on a then the reverse dunder
// on b, if either is a *PyInstance defining it. ok is false (fall
// through to the builtin-type paths) when neither applies or both
// return the NotImplemented sentinel (nil result).
func (vm *VM) tryBinaryDunder(op Opcode, a, b Value) (result Value, ok bool, err error) {
	dunder, has := binaryDunders[op]
	if !has {
		return nil, false, nil
	}
	if inst, isInst := a.(*PyInstance); isInst {
		if result, found, err := vm.callDunder(inst, dunder.forward, b); found && result != nil {
			return result, true, err
		}
	}
	if inst, isInst := b.(*PyInstance); isInst {
		if result, found, err := vm.callDunder(inst, dunder.reverse, a); found && result != nil {
			return result, true, err
		}
	}
	return nil, false, nil
}

// intBinaryOp implements op over two native ints (the common fast path);
// ok is false for an op this function doesn't handle for ints.
func (vm *VM) intBinaryOp(op Opcode, ai, bi *PyInt) (Value, bool, error) {
	switch op {
	case OpBinaryAdd:
		return MakeInt(ai.Value + bi.Value), true, nil
	case OpBinarySubtract:
		return MakeInt(ai.Value - bi.Value), true, nil
	case OpBinaryMultiply:
		return MakeInt(ai.Value * bi.Value), true, nil
	case OpBinaryDivide:
		if bi.Value == 0 {
			return nil, true, fmt.Errorf("ZeroDivisionError: division by zero")
		}
		return &PyFloat{Value: float64(ai.Value) / float64(bi.Value)}, true, nil
	case OpBinaryFloorDiv:
		if bi.Value == 0 {
			return nil, true, fmt.Errorf("ZeroDivisionError: integer division or modulo by zero")
		}
		result := ai.Value / bi.Value
		if (ai.Value < 0) != (bi.Value < 0) && ai.Value%bi.Value != 0 {
			result--
		}
		return MakeInt(result), true, nil
	case OpBinaryModulo:
		if bi.Value == 0 {
			return nil, true, fmt.Errorf("ZeroDivisionError: integer division or modulo by zero")
		}
		result := ai.Value % bi.Value
		if result != 0 && (result < 0) != (bi.Value < 0) {
			result += bi.Value
		}
		return MakeInt(result), true, nil
	case OpBinaryPower:
		if bi.Value < 0 {
			return &PyFloat{Value: math.Pow(float64(ai.Value), float64(bi.Value))}, true, nil
		}
		return MakeInt(intPow(ai.Value, bi.Value)), true, nil
	case OpBinaryLShift:
		if bi.Value < 0 {
			return nil, true, fmt.Errorf("ValueError: negative shift count")
		}
		if bi.Value > 63 {
			return MakeInt(0), true, nil // large left shifts overflow to 0
		}
		return MakeInt(ai.Value << uint(bi.Value)), true, nil
	case OpBinaryRShift:
		if bi.Value < 0 {
			return nil, true, fmt.Errorf("ValueError: negative shift count")
		}
		if bi.Value > 63 {
			if ai.Value < 0 {
				return MakeInt(-1), true, nil
			}
			return MakeInt(0), true, nil
		}
		return MakeInt(ai.Value >> uint(bi.Value)), true, nil
	case OpBinaryAnd:
		return MakeInt(ai.Value & bi.Value), true, nil
	case OpBinaryOr:
		return MakeInt(ai.Value | bi.Value), true, nil
	case OpBinaryXor:
		return MakeInt(ai.Value ^ bi.Value), true, nil
	}
	return nil, false, nil
}

// concatSequences implements the + operator for str/list/tuple/bytes,
// enforcing vm's collection-size limit on list/tuple results.
func (vm *VM) concatSequences(a, b Value) (Value, bool, error) {
	if as, ok := a.(*PyString); ok {
		if bs, ok := b.(*PyString); ok {
			return &PyString{Value: as.Value + bs.Value}, true, nil
		}
		return nil, false, nil
	}
	if al, ok := a.(*PyList); ok {
		if bl, ok := b.(*PyList); ok {
			combined := int64(len(al.Items) + len(bl.Items))
			if vm.maxCollectionSize > 0 && combined > vm.maxCollectionSize {
				return nil, true, fmt.Errorf("MemoryError: list size limit exceeded (limit is %d)", vm.maxCollectionSize)
			}
			items := make([]Value, combined)
			copy(items, al.Items)
			copy(items[len(al.Items):], bl.Items)
			return &PyList{Items: items}, true, nil
		}
		return nil, false, nil
	}
	if at, ok := a.(*PyTuple); ok {
		if bt, ok := b.(*PyTuple); ok {
			combined := int64(len(at.Items) + len(bt.Items))
			if vm.maxCollectionSize > 0 && combined > vm.maxCollectionSize {
				return nil, true, fmt.Errorf("MemoryError: tuple size limit exceeded (limit is %d)", vm.maxCollectionSize)
			}
			items := make([]Value, combined)
			copy(items, at.Items)
			copy(items[len(at.Items):], bt.Items)
			return &PyTuple{Items: items}, true, nil
		}
		return nil, false, nil
	}
	if ab, ok := a.(*PyBytes); ok {
		if bb, ok := b.(*PyBytes); ok {
			result := make([]byte, len(ab.Value)+len(bb.Value))
			copy(result, ab.Value)
			copy(result[len(ab.Value):], bb.Value)
			return &PyBytes{Value: result}, true, nil
		}
	}
	return nil, false, nil
}

// repeatString implements str * int / int * str, O(n) via strings.Repeat.
func (vm *VM) repeatString(s string, count int64) (Value, error) {
	if count <= 0 {
		return &PyString{Value: ""}, nil
	}
	size := int64(len(s)) * count
	if size > maxStringRepeatSize {
		return nil, fmt.Errorf("MemoryError: string repetition result too large")
	}
	if err := vm.trackAlloc(size); err != nil {
		return nil, err
	}
	return &PyString{Value: strings.Repeat(s, int(count))}, nil
}

// repeatList implements list * int / int * list.
func (vm *VM) repeatList(items []Value, count int64) (Value, error) {
	if count <= 0 {
		return &PyList{Items: []Value{}}, nil
	}
	total := int64(len(items)) * count
	if total > maxListRepeatItems {
		return nil, fmt.Errorf("MemoryError: list repetition result too large")
	}
	if vm.maxCollectionSize > 0 && total > vm.maxCollectionSize {
		return nil, fmt.Errorf("MemoryError: list size limit exceeded (limit is %d)", vm.maxCollectionSize)
	}
	result := make([]Value, 0, len(items)*int(count))
	for i := int64(0); i < count; i++ {
		result = append(result, items...)
	}
	return &PyList{Items: result}, nil
}

// repeatTuple implements tuple * int / int * tuple.
func (vm *VM) repeatTuple(items []Value, count int64) (Value, error) {
	if count <= 0 {
		return &PyTuple{Items: []Value{}}, nil
	}
	total := int64(len(items)) * count
	if total > maxTupleRepeatItems {
		return nil, fmt.Errorf("MemoryError: tuple repetition result too large")
	}
	if vm.maxCollectionSize > 0 && total > vm.maxCollectionSize {
		return nil, fmt.Errorf("MemoryError: tuple size limit exceeded (limit is %d)", vm.maxCollectionSize)
	}
	result := make([]Value, 0, len(items)*int(count))
	for i := int64(0); i < count; i++ {
		result = append(result, items...)
	}
	return &PyTuple{Items: result}, nil
}

// repeatBytes implements bytes * int / int * bytes.
func repeatBytes(data []byte, count int64) (Value, error) {
	if count <= 0 {
		return &PyBytes{Value: []byte{}}, nil
	}
	size := int64(len(data)) * count
	if size > maxBytesRepeatSize {
		return nil, fmt.Errorf("MemoryError: bytes repetition result too large")
	}
	result := make([]byte, 0, len(data)*int(count))
	for i := int64(0); i < count; i++ {
		result = append(result, data...)
	}
	return &PyBytes{Value: result}, nil
}

// repeatSequence implements the * operator's sequence-repetition form
// (str/list/tuple/bytes repeated by an int), trying both operand orders.
func (vm *VM) repeatSequence(a, b Value) (Value, bool, error) {
	switch v := a.(type) {
	case *PyString:
		if n, ok := b.(*PyInt); ok {
			r, err := vm.repeatString(v.Value, n.Value)
			return r, true, err
		}
	case *PyList:
		if n, ok := b.(*PyInt); ok {
			r, err := vm.repeatList(v.Items, n.Value)
			return r, true, err
		}
	case *PyTuple:
		if n, ok := b.(*PyInt); ok {
			r, err := vm.repeatTuple(v.Items, n.Value)
			return r, true, err
		}
	case *PyBytes:
		if n, ok := b.(*PyInt); ok {
			r, err := repeatBytes(v.Value, n.Value)
			return r, true, err
		}
	}
	switch v := b.(type) {
	case *PyString:
		if n, ok := a.(*PyInt); ok {
			r, err := vm.repeatString(v.Value, n.Value)
			return r, true, err
		}
	case *PyList:
		if n, ok := a.(*PyInt); ok {
			r, err := vm.repeatList(v.Items, n.Value)
			return r, true, err
		}
	case *PyTuple:
		if n, ok := a.(*PyInt); ok {
			r, err := vm.repeatTuple(v.Items, n.Value)
			return r, true, err
		}
	case *PyBytes:
		if n, ok := a.(*PyInt); ok {
			r, err := repeatBytes(v.Value, n.Value)
			return r, true, err
		}
	}
	return nil, false, nil
}

// mergeDicts implements the d1 | d2 dict-merge operator: b's entries win
// on key collision, matching dict update order.
func mergeDicts(vm *VM, a, b *PyDict) Value {
	result := &PyDict{Items: make(map[Value]Value), buckets: make(map[uint64][]dictEntry)}
	for _, k := range a.Keys(vm) {
		if v, ok := a.DictGet(k, vm); ok {
			result.DictSet(k, v, vm)
		}
	}
	for _, k := range b.Keys(vm) {
		if v, ok := b.DictGet(k, vm); ok {
			result.DictSet(k, v, vm)
		}
	}
	return result
}

// setLikeItems returns a set or frozenset's member map.
func setLikeItems(v Value) (map[Value]struct{}, bool) {
	switch s := v.(type) {
	case *PySet:
		return s.Items, true
	case *PyFrozenSet:
		return s.Items, true
	}
	return nil, false
}

func setContains(items map[Value]struct{}, vm *VM, k Value) bool {
	for k2 := range items {
		if vm.equal(k, k2) {
			return true
		}
	}
	return false
}

// setOp implements |, &, -, ^ over two sets/frozensets, returning a
// frozenset only when both operands are frozensets (matching CPython's
// type-promotion rule).
func setOp(vm *VM, op Opcode, aItems, bItems map[Value]struct{}, frozen bool) Value {
	add := func(dst any, k Value) {
		if frozen {
			dst.(*PyFrozenSet).FrozenSetAdd(k, vm)
		} else {
			dst.(*PySet).SetAdd(k, vm)
		}
	}
	var result any
	if frozen {
		result = &PyFrozenSet{Items: make(map[Value]struct{}), buckets: make(map[uint64][]setEntry)}
	} else {
		result = &PySet{Items: make(map[Value]struct{}), buckets: make(map[uint64][]setEntry)}
	}

	switch op {
	case OpBinaryOr:
		for k := range aItems {
			add(result, k)
		}
		for k := range bItems {
			add(result, k)
		}
	case OpBinaryAnd:
		for k := range aItems {
			if setContains(bItems, vm, k) {
				add(result, k)
			}
		}
	case OpBinarySubtract:
		for k := range aItems {
			if !setContains(bItems, vm, k) {
				add(result, k)
			}
		}
	case OpBinaryXor:
		for k := range aItems {
			if !setContains(bItems, vm, k) {
				add(result, k)
			}
		}
		for k := range bItems {
			if !setContains(aItems, vm, k) {
				add(result, k)
			}
		}
	}
	return result.(Value)
}

// promoteComplex returns v as a *PyComplex if it already is one, or if
// it's an int/float that can be promoted; ok is false otherwise.
func promoteComplex(v Value) (*PyComplex, bool) {
	switch c := v.(type) {
	case *PyComplex:
		return c, true
	case *PyInt:
		return MakeComplex(float64(c.Value), 0), true
	case *PyFloat:
		return MakeComplex(c.Value, 0), true
	}
	return nil, false
}

// complexBinaryOp implements op over two values once at least one side
// is complex (promoting the other from int/float); ok is false if
// neither operand is complex.
func complexBinaryOp(op Opcode, a, b Value) (Value, bool, error) {
	_, aIsComplex := a.(*PyComplex)
	_, bIsComplex := b.(*PyComplex)
	if !aIsComplex && !bIsComplex {
		return nil, false, nil
	}
	ac, aok := promoteComplex(a)
	bc, bok := promoteComplex(b)
	if !aok || !bok {
		return nil, false, nil
	}

	switch op {
	case OpBinaryAdd:
		return MakeComplex(ac.Real+bc.Real, ac.Imag+bc.Imag), true, nil
	case OpBinarySubtract:
		return MakeComplex(ac.Real-bc.Real, ac.Imag-bc.Imag), true, nil
	case OpBinaryMultiply:
		return MakeComplex(ac.Real*bc.Real-ac.Imag*bc.Imag, ac.Real*bc.Imag+ac.Imag*bc.Real), true, nil
	case OpBinaryDivide:
		denom := bc.Real*bc.Real + bc.Imag*bc.Imag
		if denom == 0 {
			return nil, true, fmt.Errorf("ZeroDivisionError: complex division by zero")
		}
		return MakeComplex(
			(ac.Real*bc.Real+ac.Imag*bc.Imag)/denom,
			(ac.Imag*bc.Real-ac.Real*bc.Imag)/denom,
		), true, nil
	case OpBinaryPower:
		result := cmplx.Pow(complex(ac.Real, ac.Imag), complex(bc.Real, bc.Imag))
		return MakeComplex(real(result), imag(result)), true, nil
	case OpBinaryFloorDiv:
		return nil, true, fmt.Errorf("TypeError: can't take floor of complex number.")
	case OpBinaryModulo:
		return nil, true, fmt.Errorf("TypeError: can't mod complex numbers.")
	case OpBinaryLShift, OpBinaryRShift, OpBinaryAnd, OpBinaryOr, OpBinaryXor:
		return nil, true, fmt.Errorf("TypeError: unsupported operand type(s) for %s: 'complex' and 'complex'", op.String())
	}
	return nil, false, nil
}

// floatBinaryOp implements op once at least one side is a float
// (promoting an int operand); ok is false if neither operand is a float.
func floatBinaryOp(op Opcode, a, b Value) (Value, bool, error) {
	af, aIsFloat := a.(*PyFloat)
	bf, bIsFloat := b.(*PyFloat)
	ai, aIsInt := a.(*PyInt)
	bi, bIsInt := b.(*PyInt)

	if aIsInt && bIsFloat {
		af, aIsFloat = &PyFloat{Value: float64(ai.Value)}, true
	}
	if aIsFloat && bIsInt {
		bf, bIsFloat = &PyFloat{Value: float64(bi.Value)}, true
	}
	if !aIsFloat || !bIsFloat {
		return nil, false, nil
	}

	switch op {
	case OpBinaryAdd:
		return &PyFloat{Value: af.Value + bf.Value}, true, nil
	case OpBinarySubtract:
		return &PyFloat{Value: af.Value - bf.Value}, true, nil
	case OpBinaryMultiply:
		return &PyFloat{Value: af.Value * bf.Value}, true, nil
	case OpBinaryDivide:
		if bf.Value == 0 {
			return nil, true, fmt.Errorf("ZeroDivisionError: float division by zero")
		}
		return &PyFloat{Value: af.Value / bf.Value}, true, nil
	case OpBinaryFloorDiv:
		if bf.Value == 0 {
			return nil, true, fmt.Errorf("ZeroDivisionError: float floor division by zero")
		}
		return &PyFloat{Value: math.Floor(af.Value / bf.Value)}, true, nil
	case OpBinaryModulo:
		if bf.Value == 0 {
			return nil, true, fmt.Errorf("ZeroDivisionError: float modulo")
		}
		r := math.Mod(af.Value, bf.Value)
		if r != 0 && (r < 0) != (bf.Value < 0) {
			r += bf.Value
		}
		return &PyFloat{Value: r}, true, nil
	case OpBinaryPower:
		return &PyFloat{Value: math.Pow(af.Value, bf.Value)}, true, nil
	}
	return nil, false, nil
}

// binaryOp implements a binary operator across every numeric/collection
// type combination Python supports, in CPython's resolution order:
// instance dunders, then int fast path, then sequence concat/repeat,
// then string-formatting %, dict merge, set algebra, complex, float.
func (vm *VM) binaryOp(op Opcode, a, b Value) (Value, error) {
	a, b = coerceBool(a), coerceBool(b)

	if result, ok, err := vm.tryBinaryDunder(op, a, b); ok {
		return result, err
	}

	if ai, ok := a.(*PyInt); ok {
		if bi, ok := b.(*PyInt); ok {
			if result, ok, err := vm.intBinaryOp(op, ai, bi); ok {
				return result, err
			}
		}
	}

	if op == OpBinaryAdd {
		if result, ok, err := vm.concatSequences(a, b); ok {
			return result, err
		}
	}

	if op == OpBinaryMultiply {
		if result, ok, err := vm.repeatSequence(a, b); ok {
			return result, err
		}
	}

	if op == OpBinaryModulo {
		if as, ok := a.(*PyString); ok {
			return vm.stringFormat(as.Value, b)
		}
	}

	if op == OpBinaryOr {
		if ad, ok := a.(*PyDict); ok {
			if bd, ok := b.(*PyDict); ok {
				return mergeDicts(vm, ad, bd), nil
			}
		}
	}

	if op == OpBinaryOr || op == OpBinaryAnd || op == OpBinarySubtract || op == OpBinaryXor {
		aItems, aIsSet := setLikeItems(a)
		bItems, bIsSet := setLikeItems(b)
		if aIsSet && bIsSet {
			_, aIsFrozen := a.(*PyFrozenSet)
			_, bIsFrozen := b.(*PyFrozenSet)
			return setOp(vm, op, aItems, bItems, aIsFrozen && bIsFrozen), nil
		}
	}

	if result, ok, err := complexBinaryOp(op, a, b); ok {
		return result, err
	}

	if result, ok, err := floatBinaryOp(op, a, b); ok {
		return result, err
	}

	return nil, fmt.Errorf("unsupported operand type(s) for %s: '%s' and '%s'",
		op.String(), vm.typeName(a), vm.typeName(b))
}
