package runtime

import (
	"fmt"
	"unicode/utf8"
)

// initBuiltinsTypes registers type constructors: int, float, complex, str, bool,
// list, tuple, dict, bytes, set, frozenset, slice, and len.
func (vm *VM) initBuiltinsTypes() {
	registrations := []struct {
		name string
		fn   func() *PyBuiltinFunc
	}{
		{"len", vm.makeLenBuiltin},
		{"slice", vm.makeSliceBuiltin},
		{"int", vm.makeIntBuiltin},
		{"float", vm.makeFloatBuiltin},
		{"complex", vm.makeComplexBuiltin},
		{"str", vm.makeStrBuiltin},
		{"bool", vm.makeBoolBuiltin},
		{"list", vm.makeListBuiltin},
		{"tuple", vm.makeTupleBuiltin},
		{"dict", vm.makeDictBuiltin},
		{"bytes", vm.makeBytesBuiltin},
		{"set", vm.makeSetBuiltin},
		{"frozenset", vm.makeFrozenSetBuiltin},
	}
	for _, r := range registrations {
		vm.builtins[r.name] = r.fn()
	}
}

func (vm *VM) makeLenBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "len",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("len() takes exactly one argument (%d given)", len(args))
			}
			n, ok, err := vm.sequenceLen(args[0])
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("object of type '%s' has no len()", vm.typeName(args[0]))
			}
			return MakeInt(n), nil
		},
	}
}

// sequenceLen implements len() for every builtin container plus the
// __len__ dunder fallback for instances; ok is false when the value has
// no length at all.
func (vm *VM) sequenceLen(v Value) (n int64, ok bool, err error) {
	switch o := v.(type) {
	case *PyString:
		return int64(utf8.RuneCountInString(o.Value)), true, nil
	case *PyList:
		return int64(len(o.Items)), true, nil
	case *PyTuple:
		return int64(len(o.Items)), true, nil
	case *PyDict:
		return int64(len(o.Items)), true, nil
	case *PySet:
		return int64(len(o.Items)), true, nil
	case *PyFrozenSet:
		return int64(len(o.Items)), true, nil
	case *PyBytes:
		return int64(len(o.Value)), true, nil
	case *PyRange:
		return rangeLen(o), true, nil
	case *PyInstance:
		result, found, err := vm.callDunder(o, "__len__")
		if !found {
			return 0, false, nil
		}
		if err != nil {
			return 0, true, err
		}
		i, ok := result.(*PyInt)
		if !ok {
			return 0, true, fmt.Errorf("__len__() should return an integer")
		}
		return i.Value, true, nil
	}
	return 0, false, nil
}

func (vm *VM) makeSliceBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "slice",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			start, stop, step := Value(None), Value(None), Value(None)
			switch len(args) {
			case 1:
				stop = args[0]
			case 2:
				start, stop = args[0], args[1]
			case 3:
				start, stop, step = args[0], args[1], args[2]
			default:
				return nil, fmt.Errorf("slice expected 1 to 3 arguments, got %d", len(args))
			}
			return &PySlice{Start: start, Stop: stop, Step: step}, nil
		},
	}
}

func (vm *VM) makeIntBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "int",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) == 0 {
				if _, hasBase := kwargs["base"]; hasBase {
					return nil, fmt.Errorf("TypeError: int() missing string argument")
				}
				return MakeInt(0), nil
			}
			base, hasBase, err := vm.intBaseArg(args, kwargs)
			if err != nil {
				return nil, err
			}
			if hasBase {
				s, ok := args[0].(*PyString)
				if !ok {
					return nil, fmt.Errorf("TypeError: int() can't convert non-string with explicit base")
				}
				return vm.intFromStringBase(s.Value, base)
			}
			return vm.tryToIntValue(args[0])
		},
	}
}

// intBaseArg extracts int()'s optional base from either the second
// positional argument or the base= keyword.
func (vm *VM) intBaseArg(args []Value, kwargs map[string]Value) (base int64, hasBase bool, err error) {
	if len(args) > 1 {
		b, convErr := vm.getIntIndex(args[1])
		if convErr != nil {
			return 0, false, fmt.Errorf("TypeError: '%s' object cannot be interpreted as an integer", vm.typeName(args[1]))
		}
		base, hasBase = b, true
	}
	if b, ok := kwargs["base"]; ok {
		base, hasBase = vm.toInt(b), true
	}
	return base, hasBase, nil
}

func (vm *VM) makeFloatBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "float",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) == 0 {
				return &PyFloat{Value: 0.0}, nil
			}
			f, err := vm.tryToFloat(args[0])
			if err != nil {
				return nil, err
			}
			return &PyFloat{Value: f}, nil
		},
	}
}

func (vm *VM) makeComplexBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "complex",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) == 0 {
				return MakeComplex(0, 0), nil
			}
			if len(args) == 1 {
				if s, ok := args[0].(*PyString); ok {
					return parseComplexString(s.Value)
				}
				if inst, ok := args[0].(*PyInstance); ok {
					if result, found, err := vm.callDunder(inst, "__complex__"); found {
						if err != nil {
							return nil, err
						}
						c, ok := result.(*PyComplex)
						if !ok {
							return nil, fmt.Errorf("TypeError: __complex__ returned non-complex (type %s)", vm.typeName(result))
						}
						return c, nil
					}
				}
			}
			if len(args) == 2 {
				if _, ok := args[0].(*PyString); ok {
					return nil, fmt.Errorf("TypeError: complex() can't take second arg if first is a string")
				}
				if _, ok := args[1].(*PyString); ok {
					return nil, fmt.Errorf("TypeError: complex() second arg can't be a string")
				}
			}
			real, imag, err := vm.complexParts(args)
			if err != nil {
				return nil, err
			}
			return MakeComplex(real, imag), nil
		},
	}
}

// complexParts extracts complex()'s real and imaginary components from up
// to two positional arguments. A complex second argument b rotates into
// the real axis too: real -= b.Imag, imag += b.Real.
func (vm *VM) complexParts(args []Value) (real, imag float64, err error) {
	if len(args) >= 1 {
		real, imag, err = vm.complexNumericTerm(args[0], real, imag, "first")
		if err != nil {
			return 0, 0, err
		}
	}
	if len(args) >= 2 {
		switch v := args[1].(type) {
		case *PyComplex:
			real -= v.Imag
			imag += v.Real
		default:
			_, imag, err = vm.complexNumericTerm(v, 0, imag, "second")
			if err != nil {
				return 0, 0, err
			}
		}
	}
	return real, imag, nil
}

// complexNumericTerm converts one complex() argument to a (real, imag)
// contribution added onto the running totals; which is a complete pair
// only for the first argument, since the second argument's real axis is
// handled by its caller.
func (vm *VM) complexNumericTerm(v Value, real, imag float64, which string) (float64, float64, error) {
	switch n := v.(type) {
	case *PyInt:
		return real + float64(n.Value), imag, nil
	case *PyFloat:
		return real + n.Value, imag, nil
	case *PyBool:
		if n.Value {
			return real + 1, imag, nil
		}
		return real, imag, nil
	case *PyComplex:
		return real + n.Real, imag + n.Imag, nil
	case *PyInstance:
		if result, found, err := vm.callDunder(n, "__float__"); found {
			if err != nil {
				return 0, 0, err
			}
			f, ok := result.(*PyFloat)
			if !ok {
				return 0, 0, fmt.Errorf("TypeError: __float__ returned non-float (type %s)", vm.typeName(result))
			}
			return real + f.Value, imag, nil
		}
		return 0, 0, vm.complexArgTypeError(which, v)
	default:
		return 0, 0, vm.complexArgTypeError(which, v)
	}
}

// complexArgTypeError reproduces complex()'s slightly different wording
// for its first argument (which also accepts strings) versus its second.
func (vm *VM) complexArgTypeError(which string, v Value) error {
	if which == "first" {
		return fmt.Errorf("TypeError: complex() first argument must be a string or a number, not '%s'", vm.typeName(v))
	}
	return fmt.Errorf("TypeError: complex() second argument must be a number, not '%s'", vm.typeName(v))
}

func (vm *VM) makeStrBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "str",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) == 0 {
				return &PyString{Value: ""}, nil
			}
			return &PyString{Value: vm.str(args[0])}, nil
		},
	}
}

func (vm *VM) makeBoolBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "bool",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) == 0 {
				return False, nil
			}
			return vm.toValue(vm.truthy(args[0])), nil
		},
	}
}

func (vm *VM) makeListBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "list",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) == 0 {
				return &PyList{Items: []Value{}}, nil
			}
			items, err := vm.toList(args[0])
			if err != nil {
				return nil, err
			}
			return &PyList{Items: items}, nil
		},
	}
}

func (vm *VM) makeTupleBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "tuple",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) == 0 {
				return &PyTuple{Items: []Value{}}, nil
			}
			items, err := vm.toList(args[0])
			if err != nil {
				return nil, err
			}
			return &PyTuple{Items: items}, nil
		},
	}
}

func (vm *VM) makeDictBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "dict",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			d := &PyDict{Items: make(map[Value]Value), buckets: make(map[uint64][]dictEntry)}
			if len(args) > 0 {
				if err := vm.dictSeedFrom(d, args[0]); err != nil {
					return nil, err
				}
			}
			for k, v := range kwargs {
				d.DictSet(&PyString{Value: k}, v, vm)
			}
			return d, nil
		},
	}
}

// dictSeedFrom populates d from dict()'s positional argument: another
// dict is copied key by key, anything else is treated as an iterable of
// (key, value) pairs.
func (vm *VM) dictSeedFrom(d *PyDict, src Value) error {
	if srcDict, ok := src.(*PyDict); ok {
		for k, v := range srcDict.Items {
			d.DictSet(k, v, vm)
		}
		return nil
	}
	items, err := vm.toList(src)
	if err != nil {
		return err
	}
	for _, item := range items {
		pair, err := vm.toList(item)
		if err != nil {
			return fmt.Errorf("TypeError: cannot convert dictionary update sequence element to a sequence")
		}
		if len(pair) != 2 {
			return fmt.Errorf("ValueError: dictionary update sequence element has length %d; 2 is required", len(pair))
		}
		d.DictSet(pair[0], pair[1], vm)
	}
	return nil
}

func (vm *VM) makeBytesBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "bytes",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) == 0 {
				return &PyBytes{Value: []byte{}}, nil
			}
			switch v := args[0].(type) {
			case *PyBytes:
				cp := make([]byte, len(v.Value))
				copy(cp, v.Value)
				return &PyBytes{Value: cp}, nil
			case *PyInt:
				if v.Value < 0 {
					return nil, fmt.Errorf("ValueError: negative count")
				}
				return &PyBytes{Value: make([]byte, v.Value)}, nil
			case *PyString:
				return vm.bytesFromString(v.Value, args, kwargs)
			case *PyList:
				return vm.bytesFromIntItems(v.Items)
			case *PyTuple:
				return vm.bytesFromIntItems(v.Items)
			case *PyInstance:
				if result, found, err := vm.callDunder(v, "__bytes__"); found {
					if err != nil {
						return nil, err
					}
					b, ok := result.(*PyBytes)
					if !ok {
						return nil, fmt.Errorf("TypeError: __bytes__ returned non-bytes (type %s)", vm.typeName(result))
					}
					return b, nil
				}
				return vm.bytesFromIterable(args[0])
			default:
				return vm.bytesFromIterable(args[0])
			}
		},
	}
}

// bytesFromString implements bytes(str, encoding): an explicit encoding is
// required; only a pass-through to the raw UTF-8 bytes is currently done
// regardless of which encoding name is given.
func (vm *VM) bytesFromString(s string, args []Value, kwargs map[string]Value) (Value, error) {
	encoding := ""
	if len(args) > 1 {
		if enc, ok := args[1].(*PyString); ok {
			encoding = enc.Value
		}
	}
	if enc, ok := kwargs["encoding"]; ok {
		if encStr, ok := enc.(*PyString); ok {
			encoding = encStr.Value
		}
	}
	if encoding == "" {
		return nil, fmt.Errorf("TypeError: string argument without an encoding")
	}
	return &PyBytes{Value: []byte(s)}, nil
}

// bytesFromIntItems converts a slice of int-valued Values (0-255) to bytes.
func (vm *VM) bytesFromIntItems(items []Value) (Value, error) {
	result := make([]byte, len(items))
	for i, item := range items {
		n := vm.toInt(item)
		if n < 0 || n > 255 {
			return nil, fmt.Errorf("ValueError: bytes must be in range(0, 256)")
		}
		result[i] = byte(n)
	}
	return &PyBytes{Value: result}, nil
}

// bytesFromIterable implements bytes()'s generic iterable fallback for
// values with no dedicated case (and instances without __bytes__).
func (vm *VM) bytesFromIterable(src Value) (Value, error) {
	items, err := vm.toList(src)
	if err != nil {
		return nil, fmt.Errorf("TypeError: cannot convert '%s' object to bytes", vm.typeName(src))
	}
	return vm.bytesFromIntItems(items)
}

func (vm *VM) makeSetBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "set",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			s := &PySet{Items: make(map[Value]struct{}), buckets: make(map[uint64][]setEntry)}
			if len(args) > 0 {
				items, err := vm.toList(args[0])
				if err != nil {
					return nil, err
				}
				for _, item := range items {
					if !isHashable(item) {
						return nil, fmt.Errorf("TypeError: unhashable type: '%s'", vm.typeName(item))
					}
					s.SetAdd(item, vm)
				}
			}
			return s, nil
		},
	}
}

func (vm *VM) makeFrozenSetBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "frozenset",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			fs := &PyFrozenSet{Items: make(map[Value]struct{}), buckets: make(map[uint64][]setEntry)}
			if len(args) > 0 {
				items, err := vm.toList(args[0])
				if err != nil {
					return nil, err
				}
				for _, item := range items {
					if !isHashable(item) {
						return nil, fmt.Errorf("TypeError: unhashable type: '%s'", vm.typeName(item))
					}
					fs.FrozenSetAdd(item, vm)
				}
			}
			return fs, nil
		},
	}
}
