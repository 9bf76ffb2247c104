package runtime

import "fmt"

// normalizeIndex folds a possibly-negative index into [0, length) bounds,
// returning ok=false if it's still out of range afterward.
func normalizeIndex(idx, length int) (int, bool) {
	if idx < 0 {
		idx += length
	}
	return idx, idx >= 0 && idx < length
}

// userdataGetAttrMethod returns the Go function registered under
// methodName for a userdata's type, or nil if the userdata is untyped or
// has no such method.
func userdataGetAttrMethod(o *PyUserData, methodName string) GoFunction {
	if o.Metatable == nil {
		return nil
	}
	var typeName string
	for k, v := range o.Metatable.Items {
		if ks, ok := k.(*PyString); ok && ks.Value == "__type__" {
			typeName = v.String()
			break
		}
	}
	if typeName == "" {
		return nil
	}
	mt := typeRegistry[typeName]
	if mt == nil {
		return nil
	}
	return mt.Methods[methodName]
}

// callUserdataMethod invokes a userdata-registered Go method with the
// stack-based calling convention: receiver and args are pushed, the
// method runs, and any single return value is read back off the stack.
func (vm *VM) callUserdataMethod(method GoFunction, receiver Value, args ...Value) Value {
	oldStack, oldSP := vm.frame.Stack, vm.frame.SP
	vm.frame.Stack = make([]Value, len(args)+17)
	vm.frame.Stack[0] = receiver
	for i, a := range args {
		vm.frame.Stack[i+1] = a
	}
	vm.frame.SP = len(args) + 1

	n := method(vm)
	result := Value(None)
	if n > 0 {
		result = vm.frame.Stack[vm.frame.SP-1]
	}
	vm.frame.Stack, vm.frame.SP = oldStack, oldSP
	return result
}

// getItem implements subscript read: obj[index]. A *PySlice index routes
// to sliceSequence instead of single-element lookup.
func (vm *VM) getItem(obj Value, index Value) (Value, error) {
	if slice, ok := index.(*PySlice); ok {
		return vm.sliceSequence(obj, slice)
	}

	switch o := obj.(type) {
	case *PyList:
		idx, ok := normalizeIndex(int(vm.toInt(index)), len(o.Items))
		if !ok {
			return nil, fmt.Errorf("IndexError: list index out of range")
		}
		return o.Items[idx], nil
	case *PyTuple:
		idx, ok := normalizeIndex(int(vm.toInt(index)), len(o.Items))
		if !ok {
			return nil, fmt.Errorf("IndexError: tuple index out of range")
		}
		return o.Items[idx], nil
	case *PyString:
		runes := []rune(o.Value)
		idx, ok := normalizeIndex(int(vm.toInt(index)), len(runes))
		if !ok {
			return nil, fmt.Errorf("IndexError: string index out of range")
		}
		return &PyString{Value: string(runes[idx])}, nil
	case *PyBytes:
		idx, ok := normalizeIndex(int(vm.toInt(index)), len(o.Value))
		if !ok {
			return nil, fmt.Errorf("IndexError: index out of range")
		}
		return MakeInt(int64(o.Value[idx])), nil
	case *PyDict:
		if val, found := o.DictGet(index, vm); found {
			return val, nil
		}
		return nil, fmt.Errorf("KeyError: %v", index)
	case *PyUserData:
		if method := userdataGetAttrMethod(o, "__getitem__"); method != nil {
			return vm.callUserdataMethod(method, o, index), nil
		}
	case *PyInstance:
		if result, found, err := vm.callDunder(o, "__getitem__", index); found {
			return result, err
		}
	}
	return nil, fmt.Errorf("'%s' object is not subscriptable", vm.typeName(obj))
}

// sliceBounds is a resolved, bounds-clamped (start, stop, step) triple
// ready for index generation.
type sliceBounds struct{ start, stop, step int }

// resolveSliceArg reads one slice component (nil/None means use def).
func resolveSliceArg(vm *VM, v Value, def int) int {
	if v == nil || v == None {
		return def
	}
	return int(vm.toInt(v))
}

// computeSliceIndices normalizes start/stop/step for a sequence of the
// given length: None defaults, negative indices, and bounds clamping.
func computeSliceIndices(slice *PySlice, length int, getInt func(v Value, def int) int) (start, stop, step int, err error) {
	step = getInt(slice.Step, 1)
	if step == 0 {
		return 0, 0, 0, fmt.Errorf("slice step cannot be zero")
	}

	if step > 0 {
		start = getInt(slice.Start, 0)
		stop = getInt(slice.Stop, length)
	} else {
		start = getInt(slice.Start, length-1)
		stop = getInt(slice.Stop, -length-1) // sentinel: include index 0
	}

	if start < 0 && start >= -length {
		start = length + start
	}
	if stop < 0 && stop >= -length {
		stop = length + stop
	}

	if step > 0 {
		if start < 0 {
			start = 0
		}
		if stop > length {
			stop = length
		}
	} else if start >= length {
		start = length - 1
	}

	return start, stop, step, nil
}

// collectSliceIndices returns every index a (start, stop, step) selection
// visits, in traversal order.
func collectSliceIndices(start, stop, step int) []int {
	var indices []int
	if step > 0 {
		for i := start; i < stop; i += step {
			indices = append(indices, i)
		}
	} else {
		for i := start; i > stop && i >= 0; i += step {
			indices = append(indices, i)
		}
	}
	return indices
}

// resolveSlice combines computeSliceIndices+collectSliceIndices into the
// index list a slice selects over a sequence of the given length.
func (vm *VM) resolveSlice(slice *PySlice, length int) ([]int, error) {
	getInt := func(v Value, def int) int { return resolveSliceArg(vm, v, def) }
	start, stop, step, err := computeSliceIndices(slice, length, getInt)
	if err != nil {
		return nil, err
	}
	return collectSliceIndices(start, stop, step), nil
}

// sliceSequence implements obj[slice] for lists, tuples, strings, bytes.
func (vm *VM) sliceSequence(obj Value, slice *PySlice) (Value, error) {
	switch o := obj.(type) {
	case *PyList:
		indices, err := vm.resolveSlice(slice, len(o.Items))
		if err != nil {
			return nil, err
		}
		result := make([]Value, len(indices))
		for i, idx := range indices {
			result[i] = o.Items[idx]
		}
		return &PyList{Items: result}, nil

	case *PyTuple:
		indices, err := vm.resolveSlice(slice, len(o.Items))
		if err != nil {
			return nil, err
		}
		result := make([]Value, len(indices))
		for i, idx := range indices {
			result[i] = o.Items[idx]
		}
		return &PyTuple{Items: result}, nil

	case *PyBytes:
		indices, err := vm.resolveSlice(slice, len(o.Value))
		if err != nil {
			return nil, err
		}
		result := make([]byte, len(indices))
		for i, idx := range indices {
			result[i] = o.Value[idx]
		}
		return &PyBytes{Value: result}, nil

	case *PyString:
		runes := []rune(o.Value)
		indices, err := vm.resolveSlice(slice, len(runes))
		if err != nil {
			return nil, err
		}
		result := make([]rune, len(indices))
		for i, idx := range indices {
			result[i] = runes[idx]
		}
		return &PyString{Value: string(result)}, nil
	}

	return nil, fmt.Errorf("'%s' object is not subscriptable", vm.typeName(obj))
}

// setItem implements subscript assignment: obj[index] = val.
func (vm *VM) setItem(obj Value, index Value, val Value) error {
	if slice, ok := index.(*PySlice); ok {
		return vm.setSlice(obj, slice, val)
	}
	switch o := obj.(type) {
	case *PyList:
		idx, ok := normalizeIndex(int(vm.toInt(index)), len(o.Items))
		if !ok {
			return fmt.Errorf("IndexError: list assignment index out of range")
		}
		o.Items[idx] = val
		return nil
	case *PyDict:
		if !isHashable(index) {
			return fmt.Errorf("TypeError: unhashable type: '%s'", vm.typeName(index))
		}
		o.DictSet(index, val, vm)
		return nil
	case *PyInstance:
		if _, found, err := vm.callDunder(o, "__setitem__", index, val); found {
			return err
		}
	}
	return fmt.Errorf("TypeError: '%s' object does not support item assignment", vm.typeName(obj))
}

// clampSliceBound folds a negative slice endpoint and clamps to [0, length].
func clampSliceBound(v int, length int) int {
	if v < 0 {
		v += length
	}
	if v < 0 {
		return 0
	}
	if v > length {
		return length
	}
	return v
}

// setSlice implements obj[slice] = val for lists (the only sequence type
// supporting slice assignment).
func (vm *VM) setSlice(obj Value, slice *PySlice, val Value) error {
	lst, ok := obj.(*PyList)
	if !ok {
		return fmt.Errorf("TypeError: '%s' object does not support slice assignment", vm.typeName(obj))
	}
	newItems, err := vm.toList(val)
	if err != nil {
		return err
	}

	length := len(lst.Items)
	start, stop := 0, length
	if slice.Start != nil && slice.Start != None {
		start = clampSliceBound(int(vm.toInt(slice.Start)), length)
	}
	if slice.Stop != nil && slice.Stop != None {
		stop = clampSliceBound(int(vm.toInt(slice.Stop)), length)
	}
	if start > stop {
		stop = start
	}

	result := make([]Value, 0, start+len(newItems)+(length-stop))
	result = append(result, lst.Items[:start]...)
	result = append(result, newItems...)
	result = append(result, lst.Items[stop:]...)
	lst.Items = result
	return nil
}

// resolveDeleteBounds computes the (start, stop) a slice deletion spans,
// honoring the step's direction (CPython treats stop differently when
// deleting backward).
func resolveDeleteBounds(vm *VM, slice *PySlice, length, step int) (start, stop int) {
	start, stop = 0, length
	if step < 0 {
		start, stop = length-1, -length-1
	}
	if slice.Start != nil && slice.Start != None {
		start = int(vm.toInt(slice.Start))
		if start < 0 {
			start += length
		}
		if step > 0 {
			if start < 0 {
				start = 0
			} else if start > length {
				start = length
			}
		} else {
			if start < -1 {
				start = -1
			} else if start >= length {
				start = length - 1
			}
		}
	}
	if slice.Stop != nil && slice.Stop != None {
		stop = int(vm.toInt(slice.Stop))
		if stop < 0 {
			stop += length
		}
		if step > 0 {
			if stop < 0 {
				stop = 0
			} else if stop > length {
				stop = length
			}
		} else {
			if stop < -length-1 {
				stop = -length - 1
			} else if stop >= length {
				stop = length - 1
			}
		}
	}
	return start, stop
}

// delSlice implements del obj[slice] for lists.
func (vm *VM) delSlice(obj Value, slice *PySlice) error {
	lst, ok := obj.(*PyList)
	if !ok {
		return fmt.Errorf("TypeError: '%s' object does not support slice deletion", vm.typeName(obj))
	}

	length := len(lst.Items)
	step := 1
	if slice.Step != nil && slice.Step != None {
		step = int(vm.toInt(slice.Step))
		if step == 0 {
			return fmt.Errorf("ValueError: slice step cannot be zero")
		}
	}
	start, stop := resolveDeleteBounds(vm, slice, length, step)

	if step == 1 {
		if start >= stop {
			return nil
		}
		result := make([]Value, 0, start+(length-stop))
		result = append(result, lst.Items[:start]...)
		result = append(result, lst.Items[stop:]...)
		lst.Items = result
		return nil
	}

	toDelete := make(map[int]bool)
	if step > 0 {
		for i := start; i < stop; i += step {
			toDelete[i] = true
		}
	} else {
		for i := start; i > stop; i += step {
			toDelete[i] = true
		}
	}

	result := make([]Value, 0, length-len(toDelete))
	for i, item := range lst.Items {
		if !toDelete[i] {
			result = append(result, item)
		}
	}
	lst.Items = result
	return nil
}

// delItem implements del obj[index].
func (vm *VM) delItem(obj Value, index Value) error {
	if slice, ok := index.(*PySlice); ok {
		return vm.delSlice(obj, slice)
	}
	switch o := obj.(type) {
	case *PyList:
		idx, ok := normalizeIndex(int(vm.toInt(index)), len(o.Items))
		if !ok {
			return fmt.Errorf("IndexError: list assignment index out of range")
		}
		o.Items = append(o.Items[:idx], o.Items[idx+1:]...)
		return nil
	case *PyDict:
		if !o.DictDelete(index, vm) {
			return fmt.Errorf("KeyError: %s", vm.repr(index))
		}
		return nil
	case *PyInstance:
		if _, found, err := vm.callDunder(o, "__delitem__", index); found {
			return err
		}
	}
	return fmt.Errorf("TypeError: '%s' object does not support item deletion", vm.typeName(obj))
}
