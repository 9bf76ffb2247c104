package runtime

import (
	"fmt"
	"math"
	"sort"
)

// initBuiltinsFunctions registers builtin functions: print, range, enumerate, zip,
// map, filter, reversed, sorted, next, iter, all, any, abs, hash, min, max, sum,
// pow, divmod, round, ord, chr, hex, oct, bin, isinstance, issubclass, callable,
// hasattr, dir, getattr, setattr, delattr, repr, ascii, format, input.
func (vm *VM) initBuiltinsFunctions() {
	registrations := []struct {
		name string
		fn   func() *PyBuiltinFunc
	}{
		{"print", vm.makePrintBuiltin},
		{"range", vm.makeRangeBuiltin},
		{"repr", vm.makeReprBuiltin},
		{"ascii", vm.makeAsciiBuiltin},
		{"format", vm.makeFormatBuiltin},
		{"isinstance", vm.makeIsInstanceBuiltin},
		{"abs", vm.makeAbsBuiltin},
		{"hash", vm.makeHashBuiltin},
		{"min", vm.makeMinBuiltin},
		{"max", vm.makeMaxBuiltin},
		{"sum", vm.makeSumBuiltin},
		{"input", vm.makeInputBuiltin},
		{"ord", vm.makeOrdBuiltin},
		{"chr", vm.makeChrBuiltin},
		{"enumerate", vm.makeEnumerateBuiltin},
		{"zip", vm.makeZipBuiltin},
		{"map", vm.makeMapBuiltin},
		{"filter", vm.makeFilterBuiltin},
		{"reversed", vm.makeReversedBuiltin},
		{"sorted", vm.makeSortedBuiltin},
		{"all", vm.makeAllBuiltin},
		{"any", vm.makeAnyBuiltin},
		{"hasattr", vm.makeHasattrBuiltin},
		{"dir", vm.makeDirBuiltin},
		{"getattr", vm.makeGetattrBuiltin},
		{"setattr", vm.makeSetattrBuiltin},
		{"delattr", vm.makeDelattrBuiltin},
		{"pow", vm.makePowBuiltin},
		{"divmod", vm.makeDivmodBuiltin},
		{"hex", vm.makeHexBuiltin},
		{"oct", vm.makeOctBuiltin},
		{"bin", vm.makeBinBuiltin},
		{"round", vm.makeRoundBuiltin},
		{"callable", vm.makeCallableBuiltin},
		{"next", vm.makeNextBuiltin},
		{"iter", vm.makeIterBuiltin},
		{"issubclass", vm.makeIssubclassBuiltin},
	}
	for _, r := range registrations {
		vm.builtins[r.name] = r.fn()
	}
}

func (vm *VM) makePrintBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "print",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			sep, end, err := vm.printSepEnd(kwargs)
			if err != nil {
				return nil, err
			}
			for i, arg := range args {
				if i > 0 {
					fmt.Print(sep)
				}
				fmt.Print(vm.str(arg))
			}
			fmt.Print(end)
			return None, nil
		},
	}
}

// printSepEnd extracts print's sep/end string kwargs, rejecting non-string,
// non-None values; flush and file are accepted but ignored (no buffering,
// no file I/O yet).
func (vm *VM) printSepEnd(kwargs map[string]Value) (sep, end string, err error) {
	sep, end = " ", "\n"
	if v, ok := kwargs["sep"]; ok && v != None {
		s, ok := v.(*PyString)
		if !ok {
			return "", "", fmt.Errorf("sep must be None or a string, not %s", vm.typeName(v))
		}
		sep = s.Value
	}
	if v, ok := kwargs["end"]; ok && v != None {
		s, ok := v.(*PyString)
		if !ok {
			return "", "", fmt.Errorf("end must be None or a string, not %s", vm.typeName(v))
		}
		end = s.Value
	}
	return sep, end, nil
}

func (vm *VM) makeRangeBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "range",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			for _, arg := range args {
				switch arg.(type) {
				case *PyInt, *PyBool:
				default:
					return nil, fmt.Errorf("TypeError: '%s' object cannot be interpreted as an integer", vm.typeName(arg))
				}
			}
			var start, stop, step int64 = 0, 0, 1
			switch len(args) {
			case 1:
				stop = vm.toInt(args[0])
			case 2:
				start, stop = vm.toInt(args[0]), vm.toInt(args[1])
			case 3:
				start, stop, step = vm.toInt(args[0]), vm.toInt(args[1]), vm.toInt(args[2])
			default:
				return nil, fmt.Errorf("range expected 1 to 3 arguments, got %d", len(args))
			}
			if step == 0 {
				return nil, fmt.Errorf("ValueError: range() arg 3 must not be zero")
			}
			return &PyRange{Start: start, Stop: stop, Step: step}, nil
		},
	}
}

func (vm *VM) makeReprBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "repr",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("repr() takes exactly 1 argument (%d given)", len(args))
			}
			return &PyString{Value: vm.repr(args[0])}, nil
		},
	}
}

func (vm *VM) makeAsciiBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "ascii",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("ascii() takes exactly 1 argument (%d given)", len(args))
			}
			return &PyString{Value: vm.ascii(args[0])}, nil
		},
	}
}

func (vm *VM) makeFormatBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "format",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) < 1 || len(args) > 2 {
				return nil, fmt.Errorf("TypeError: format() takes 1 or 2 arguments (%d given)", len(args))
			}
			spec := ""
			if len(args) == 2 {
				s, ok := args[1].(*PyString)
				if !ok {
					return nil, fmt.Errorf("TypeError: format() argument 2 must be str, not %s", vm.typeName(args[1]))
				}
				spec = s.Value
			}
			result, err := vm.formatValue(args[0], spec)
			if err != nil {
				return nil, err
			}
			return &PyString{Value: result}, nil
		},
	}
}

func (vm *VM) makeIsInstanceBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "isinstance",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("isinstance() takes exactly 2 arguments")
			}
			obj, classInfo := args[0], args[1]

			if result, handled, err := vm.metaclassInstanceCheck(classInfo, obj); handled {
				return result, err
			}
			match, err := vm.isInstanceCheckType(obj, classInfo)
			if err != nil {
				return nil, err
			}
			return vm.toValue(match), nil
		},
	}
}

// metaclassInstanceCheck looks for a non-default __instancecheck__ on
// classInfo's metaclass MRO and invokes it with (classInfo, obj); handled
// is false when classInfo isn't a class with a custom metaclass hook.
func (vm *VM) metaclassInstanceCheck(classInfo, obj Value) (result Value, handled bool, err error) {
	cls, ok := classInfo.(*PyClass)
	if !ok || cls.Metaclass == nil {
		return nil, false, nil
	}
	typeClass, _ := vm.builtins["type"].(*PyClass)
	for _, metaCls := range cls.Metaclass.Mro {
		if metaCls == typeClass || metaCls.Name == "object" {
			continue
		}
		method, hasMethod := metaCls.Dict["__instancecheck__"]
		if !hasMethod {
			continue
		}
		val, err := vm.invokeUnboundMethod(method, []Value{cls, obj})
		if err != nil {
			return nil, true, err
		}
		if val == nil {
			return nil, false, nil
		}
		return vm.toValue(vm.truthy(val)), true, nil
	}
	return nil, false, nil
}

// invokeUnboundMethod calls a PyFunction or PyBuiltinFunc pulled directly
// out of a class dict (not through vm.call's method-binding path).
func (vm *VM) invokeUnboundMethod(method Value, args []Value) (Value, error) {
	switch fn := method.(type) {
	case *PyFunction:
		return vm.callFunction(fn, args, nil)
	case *PyBuiltinFunc:
		return fn.Fn(args, nil)
	}
	return nil, nil
}

// isInstanceCheckType implements isinstance()'s type-spec matching,
// recursing into tuples of types/unions.
func (vm *VM) isInstanceCheckType(obj, typeSpec Value) (bool, error) {
	switch t := typeSpec.(type) {
	case *PyClass:
		return vm.isInstanceOfClassSpec(obj, t), nil
	case *PyBuiltinFunc:
		return builtinTypeNameMatches(obj, t.Name), nil
	case *PyTuple:
		for _, item := range t.Items {
			match, err := vm.isInstanceCheckType(obj, item)
			if err != nil {
				return false, err
			}
			if match {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("TypeError: isinstance() arg 2 must be a type, a tuple of types, or a union")
	}
}

// isInstanceOfClassSpec checks obj against a single *PyClass, covering
// PyInstance (including ABC-registered virtual subclasses), PyException,
// and falling back to built-in-type-name matching.
func (vm *VM) isInstanceOfClassSpec(obj Value, cls *PyClass) bool {
	switch o := obj.(type) {
	case *PyInstance:
		if vm.isInstanceOf(o, cls) {
			return true
		}
		for _, reg := range cls.RegisteredSubclasses {
			if vm.isInstanceOf(o, reg) {
				return true
			}
		}
		return false
	case *PyException:
		if vm.isExceptionClass(cls) {
			return vm.exceptionMatches(o, cls)
		}
	}
	return builtinTypeNameMatches(obj, cls.Name)
}

// builtinTypeNameMatches checks whether obj's runtime type matches a
// built-in type name (with bool-is-a-subclass-of-int and everything-is-an-
// object special cases).
func builtinTypeNameMatches(obj Value, typeName string) bool {
	if typeName == "object" {
		return true
	}
	switch o := obj.(type) {
	case *PyBool:
		return typeName == "bool" || typeName == "int"
	case *PyInt:
		return typeName == "int"
	case *PyFloat:
		return typeName == "float"
	case *PyComplex:
		return typeName == "complex"
	case *PyString:
		return typeName == "str"
	case *PyList:
		return typeName == "list"
	case *PyTuple:
		return typeName == "tuple"
	case *PyDict:
		return typeName == "dict"
	case *PySet:
		return typeName == "set"
	case *PyFrozenSet:
		return typeName == "frozenset"
	case *PyBytes:
		return typeName == "bytes"
	case *PyNone:
		return typeName == "NoneType"
	case *PyInstance:
		return typeName == o.Class.Name
	case *PyException:
		return typeName == o.Type() || typeName == "Exception" || typeName == "BaseException"
	}
	return false
}

func (vm *VM) makeAbsBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "abs",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("abs() takes exactly one argument")
			}
			switch v := args[0].(type) {
			case *PyInt:
				if v.Value < 0 {
					return MakeInt(-v.Value), nil
				}
				return v, nil
			case *PyFloat:
				return &PyFloat{Value: math.Abs(v.Value)}, nil
			case *PyComplex:
				return &PyFloat{Value: math.Sqrt(v.Real*v.Real + v.Imag*v.Imag)}, nil
			case *PyInstance:
				if result, found, err := vm.callDunder(v, "__abs__"); found {
					return result, err
				}
				return nil, fmt.Errorf("bad operand type for abs(): '%s'", vm.typeName(v))
			default:
				return nil, fmt.Errorf("bad operand type for abs()")
			}
		},
	}
}

func (vm *VM) makeHashBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "hash",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("hash() takes exactly one argument (%d given)", len(args))
			}
			if !isHashable(args[0]) {
				return nil, fmt.Errorf("TypeError: unhashable type: '%s'", vm.typeName(args[0]))
			}
			return MakeInt(int64(vm.hashValueVM(args[0]))), nil
		},
	}
}

// minmaxExtremum implements the shared body of min()/max(): a comparator
// decides whether a replaces the running extremum.
func (vm *VM) minmaxExtremum(name string, args []Value, kwargs map[string]Value, better func(a, b Value) bool) (Value, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%s expected at least 1 argument", name)
	}
	keyFn, hasKey := kwargs["key"]
	defaultVal, hasDefault := kwargs["default"]
	if len(args) == 1 {
		items, err := vm.toList(args[0])
		if err != nil {
			return nil, err
		}
		args = items
	}
	if len(args) == 0 {
		if hasDefault {
			return defaultVal, nil
		}
		return nil, &PyException{TypeName: "ValueError", Message: name + "() arg is an empty sequence"}
	}
	best := args[0]
	for _, v := range args[1:] {
		candidate, current := v, best
		if hasKey {
			var err error
			candidate, err = vm.call(keyFn, []Value{v}, nil)
			if err != nil {
				return nil, err
			}
			current, err = vm.call(keyFn, []Value{best}, nil)
			if err != nil {
				return nil, err
			}
		}
		if better(candidate, current) {
			best = v
		}
	}
	return best, nil
}

func (vm *VM) makeMinBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "min",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			return vm.minmaxExtremum("min", args, kwargs, func(a, b Value) bool { return vm.compare(a, b) < 0 })
		},
	}
}

func (vm *VM) makeMaxBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "max",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			return vm.minmaxExtremum("max", args, kwargs, func(a, b Value) bool { return vm.compare(a, b) > 0 })
		},
	}
}

func (vm *VM) makeSumBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "sum",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) == 0 {
				return nil, fmt.Errorf("sum expected at least 1 argument")
			}
			items, err := vm.toList(args[0])
			if err != nil {
				return nil, err
			}
			var result Value = MakeInt(0)
			if len(args) > 1 {
				result = args[1]
			}
			for _, item := range items {
				result, err = vm.binaryOp(OpBinaryAdd, result, item)
				if err != nil {
					return nil, err
				}
			}
			return result, nil
		},
	}
}

func (vm *VM) makeInputBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "input",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) > 0 {
				fmt.Print(vm.str(args[0]))
			}
			var line string
			fmt.Scanln(&line)
			return &PyString{Value: line}, nil
		},
	}
}

func (vm *VM) makeOrdBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "ord",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("TypeError: ord() takes exactly one argument")
			}
			s, ok := args[0].(*PyString)
			if !ok {
				return nil, fmt.Errorf("TypeError: ord() expected string of length 1, but %s found", vm.typeName(args[0]))
			}
			runes := []rune(s.Value)
			if len(runes) != 1 {
				return nil, fmt.Errorf("TypeError: ord() expected a character, but string of length %d found", len(runes))
			}
			return MakeInt(int64(runes[0])), nil
		},
	}
}

func (vm *VM) makeChrBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "chr",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("chr() takes exactly one argument")
			}
			return &PyString{Value: string(rune(vm.toInt(args[0])))}, nil
		},
	}
}

func (vm *VM) makeEnumerateBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "enumerate",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) < 1 || len(args) > 2 {
				return nil, fmt.Errorf("enumerate expected 1 to 2 arguments, got %d", len(args))
			}
			items, err := vm.toList(args[0])
			if err != nil {
				return nil, err
			}
			var start int64 = 0
			if len(args) == 2 {
				start = vm.toInt(args[1])
			}
			if s, ok := kwargs["start"]; ok {
				start = vm.toInt(s)
			}
			result := make([]Value, len(items))
			for i, item := range items {
				result[i] = &PyTuple{Items: []Value{MakeInt(start + int64(i)), item}}
			}
			return &PyIterator{Items: result, Index: 0}, nil
		},
	}
}

func (vm *VM) makeZipBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "zip",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) == 0 {
				return &PyIterator{Items: []Value{}, Index: 0}, nil
			}
			iters := make([]Value, len(args))
			for i, arg := range args {
				it, err := vm.getIter(arg)
				if err != nil {
					return nil, fmt.Errorf("zip argument #%d is not iterable", i+1)
				}
				iters[i] = it
			}
			var result []Value
			for {
				tuple := make([]Value, len(iters))
				for j, it := range iters {
					val, done, err := vm.iterNext(it)
					if err != nil {
						return nil, err
					}
					if done {
						return &PyIterator{Items: result, Index: 0}, nil
					}
					tuple[j] = val
				}
				result = append(result, &PyTuple{Items: tuple})
			}
		},
	}
}

func (vm *VM) makeMapBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "map",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) < 2 {
				return nil, fmt.Errorf("map() must have at least two arguments")
			}
			fn := args[0]
			lists := make([][]Value, len(args)-1)
			minLen := -1
			for i, arg := range args[1:] {
				items, err := vm.toList(arg)
				if err != nil {
					return nil, err
				}
				lists[i] = items
				if minLen == -1 || len(items) < minLen {
					minLen = len(items)
				}
			}
			result := make([]Value, minLen)
			for i := 0; i < minLen; i++ {
				fnArgs := make([]Value, len(lists))
				for j, list := range lists {
					fnArgs[j] = list[i]
				}
				val, err := vm.call(fn, fnArgs, nil)
				if err != nil {
					return nil, err
				}
				result[i] = val
			}
			return &PyIterator{Items: result, Index: 0}, nil
		},
	}
}

func (vm *VM) makeFilterBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "filter",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("filter expected 2 arguments, got %d", len(args))
			}
			fn := args[0]
			items, err := vm.toList(args[1])
			if err != nil {
				return nil, err
			}
			var result []Value
			for _, item := range items {
				keep := false
				if fn == None {
					keep = vm.truthy(item)
				} else {
					val, err := vm.call(fn, []Value{item}, nil)
					if err != nil {
						return nil, err
					}
					keep = vm.truthy(val)
				}
				if keep {
					result = append(result, item)
				}
			}
			return &PyIterator{Items: result, Index: 0}, nil
		},
	}
}

func (vm *VM) makeReversedBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "reversed",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("reversed() takes exactly one argument (%d given)", len(args))
			}
			if inst, ok := args[0].(*PyInstance); ok {
				if result, found, err := vm.callDunder(inst, "__reversed__"); found {
					return result, err
				}
			}
			items, err := vm.toList(args[0])
			if err != nil {
				return nil, err
			}
			result := make([]Value, len(items))
			for i, item := range items {
				result[len(items)-1-i] = item
			}
			return &PyIterator{Items: result, Index: 0}, nil
		},
	}
}

func (vm *VM) makeSortedBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "sorted",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("sorted expected 1 argument, got %d", len(args))
			}
			items, err := vm.toList(args[0])
			if err != nil {
				return nil, err
			}
			result := make([]Value, len(items))
			copy(result, items)

			var keyFn Value
			if k, ok := kwargs["key"]; ok && k != None {
				keyFn = k
			}
			reverse := false
			if r, ok := kwargs["reverse"]; ok {
				reverse = vm.truthy(r)
			}

			sortErr := vm.stableSortByCompare(result, keyFn, reverse)
			if sortErr != nil {
				return nil, sortErr
			}
			return &PyList{Items: result}, nil
		},
	}
}

// stableSortByCompare sorts values in place using vm.compareOp, applying
// keyFn to each element first (if given) and reversing the comparison
// direction rather than the slice, to keep equal elements' relative order.
func (vm *VM) stableSortByCompare(values []Value, keyFn Value, reverse bool) error {
	var sortErr error
	sort.SliceStable(values, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		a, b := values[i], values[j]
		if keyFn != nil {
			var err error
			a, err = vm.call(keyFn, []Value{a}, nil)
			if err != nil {
				sortErr = err
				return false
			}
			b, err = vm.call(keyFn, []Value{b}, nil)
			if err != nil {
				sortErr = err
				return false
			}
		}
		cmpA, cmpB := a, b
		if reverse {
			cmpA, cmpB = b, a
		}
		cmpResult := vm.compareOp(OpCompareLt, cmpA, cmpB)
		if cmpResult == nil {
			if vm.currentException != nil {
				sortErr = vm.currentException
				vm.currentException = nil
			}
			return false
		}
		return vm.truthy(cmpResult)
	})
	return sortErr
}

func (vm *VM) makeAllBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "all",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("all() takes exactly one argument (%d given)", len(args))
			}
			items, err := vm.toList(args[0])
			if err != nil {
				return nil, err
			}
			for _, item := range items {
				if !vm.truthy(item) {
					return False, nil
				}
			}
			return True, nil
		},
	}
}

func (vm *VM) makeAnyBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "any",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("any() takes exactly one argument (%d given)", len(args))
			}
			items, err := vm.toList(args[0])
			if err != nil {
				return nil, err
			}
			for _, item := range items {
				if vm.truthy(item) {
					return True, nil
				}
			}
			return False, nil
		},
	}
}

func (vm *VM) makeHasattrBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "hasattr",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("hasattr() takes exactly 2 arguments (%d given)", len(args))
			}
			name, ok := args[1].(*PyString)
			if !ok {
				return nil, fmt.Errorf("attribute name must be string, not '%s'", vm.typeName(args[1]))
			}
			if _, err := vm.getAttr(args[0], name.Value); err != nil {
				if typeName := builtinValueTypeName(args[0]); typeName != "" && builtinHasDunder(typeName, name.Value) {
					return True, nil
				}
				return False, nil
			}
			return True, nil
		},
	}
}

func (vm *VM) makeDirBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "dir",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) > 1 {
				return nil, fmt.Errorf("dir expected at most 1 argument, got %d", len(args))
			}
			if len(args) == 0 {
				return vm.sortedNameList(vm.currentScopeNames()), nil
			}
			obj := args[0]
			if inst, ok := obj.(*PyInstance); ok {
				if result, found, err := vm.callDunder(inst, "__dir__"); found {
					return result, err
				}
			}
			return vm.sortedNameList(dirNames(obj)), nil
		},
	}
}

// currentScopeNames collects the zero-argument dir() result: names visible
// in the current frame's globals plus the builtins table.
func (vm *VM) currentScopeNames() map[string]bool {
	names := make(map[string]bool)
	if vm.frame == nil {
		return names
	}
	for k := range vm.frame.Globals {
		names[k] = true
	}
	for k := range vm.builtins {
		names[k] = true
	}
	return names
}

// dirNames collects the default dir(obj) attribute-name set for the
// object kinds that don't define __dir__ themselves.
func dirNames(obj Value) map[string]bool {
	names := make(map[string]bool)
	switch o := obj.(type) {
	case *PyInstance:
		for k := range o.Dict {
			names[k] = true
		}
		for k := range o.Slots {
			names[k] = true
		}
		for _, cls := range o.Class.Mro {
			for k := range cls.Dict {
				names[k] = true
			}
		}
	case *PyClass:
		for _, cls := range o.Mro {
			for k := range cls.Dict {
				names[k] = true
			}
		}
	case *PyModule:
		for k := range o.Dict {
			names[k] = true
		}
	case *PyDict:
		for item := range o.Items {
			if ks, ok := item.(*PyString); ok {
				names[ks.Value] = true
			}
		}
	}
	return names
}

func (vm *VM) makeGetattrBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "getattr",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) < 2 || len(args) > 3 {
				return nil, fmt.Errorf("getattr expected 2 or 3 arguments, got %d", len(args))
			}
			name, ok := args[1].(*PyString)
			if !ok {
				return nil, fmt.Errorf("attribute name must be string, not '%s'", vm.typeName(args[1]))
			}
			val, err := vm.getAttr(args[0], name.Value)
			if err != nil {
				if len(args) == 3 {
					return args[2], nil
				}
				return nil, fmt.Errorf("'%s' object has no attribute '%s'", vm.typeName(args[0]), name.Value)
			}
			return val, nil
		},
	}
}

func (vm *VM) makeSetattrBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "setattr",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 3 {
				return nil, fmt.Errorf("setattr() takes exactly 3 arguments (%d given)", len(args))
			}
			name, ok := args[1].(*PyString)
			if !ok {
				return nil, fmt.Errorf("attribute name must be string, not '%s'", vm.typeName(args[1]))
			}
			if err := vm.setAttr(args[0], name.Value, args[2]); err != nil {
				return nil, err
			}
			return None, nil
		},
	}
}

func (vm *VM) makeDelattrBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "delattr",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("delattr() takes exactly 2 arguments (%d given)", len(args))
			}
			name, ok := args[1].(*PyString)
			if !ok {
				return nil, fmt.Errorf("attribute name must be string, not '%s'", vm.typeName(args[1]))
			}
			if err := vm.delAttr(args[0], name.Value); err != nil {
				return nil, err
			}
			return None, nil
		},
	}
}

func (vm *VM) makePowBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "pow",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) < 2 || len(args) > 3 {
				return nil, fmt.Errorf("pow expected 2 or 3 arguments, got %d", len(args))
			}
			if len(args) == 3 {
				return modularPow(vm.toInt(args[0]), vm.toInt(args[1]), vm.toInt(args[2]))
			}
			base, exp := vm.toFloat(args[0]), vm.toFloat(args[1])
			result := math.Pow(base, exp)
			_, baseIsInt := args[0].(*PyInt)
			_, expIsInt := args[1].(*PyInt)
			if baseIsInt && expIsInt && result == float64(int64(result)) {
				return MakeInt(int64(result)), nil
			}
			return &PyFloat{Value: result}, nil
		},
	}
}

// modularPow implements pow(base, exp, mod) via square-and-multiply.
func modularPow(base, exp, mod int64) (Value, error) {
	if mod == 0 {
		return nil, fmt.Errorf("pow() 3rd argument cannot be 0")
	}
	result := int64(1)
	base = base % mod
	for exp > 0 {
		if exp%2 == 1 {
			result = (result * base) % mod
		}
		exp /= 2
		base = (base * base) % mod
	}
	return MakeInt(result), nil
}

func (vm *VM) makeDivmodBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "divmod",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("divmod expected 2 arguments, got %d", len(args))
			}
			if aInt, aOk := args[0].(*PyInt); aOk {
				if bInt, bOk := args[1].(*PyInt); bOk {
					return intDivmod(aInt.Value, bInt.Value)
				}
			}
			a, b := vm.toFloat(args[0]), vm.toFloat(args[1])
			if b == 0 {
				return nil, &PyException{TypeName: "ZeroDivisionError", Message: "float division by zero"}
			}
			q := math.Floor(a / b)
			return &PyTuple{Items: []Value{&PyFloat{Value: q}, &PyFloat{Value: a - q*b}}}, nil
		},
	}
}

// intDivmod implements integer divmod with Python's floor-division semantics.
func intDivmod(a, b int64) (Value, error) {
	if b == 0 {
		return nil, &PyException{TypeName: "ZeroDivisionError", Message: "integer division or modulo by zero"}
	}
	q, r := a/b, a%b
	if r != 0 && (a < 0) != (b < 0) {
		q--
		r += b
	}
	return &PyTuple{Items: []Value{MakeInt(q), MakeInt(r)}}, nil
}

func (vm *VM) makeHexBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "hex",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			return vm.intRadixString(args, "hex", "0x", "%x")
		},
	}
}

func (vm *VM) makeOctBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "oct",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			return vm.intRadixString(args, "oct", "0o", "%o")
		},
	}
}

func (vm *VM) makeBinBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "bin",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			return vm.intRadixString(args, "bin", "0b", "%b")
		},
	}
}

// intRadixString implements hex()/oct()/bin(): one argument, converted via
// getIntIndex, formatted with the given prefix and fmt verb.
func (vm *VM) intRadixString(args []Value, name, prefix, verb string) (Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%s() takes exactly one argument (%d given)", name, len(args))
	}
	n, err := vm.getIntIndex(args[0])
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return &PyString{Value: "-" + prefix + fmt.Sprintf(verb, -n)}, nil
	}
	return &PyString{Value: prefix + fmt.Sprintf(verb, n)}, nil
}

func (vm *VM) makeRoundBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "round",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) < 1 || len(args) > 2 {
				return nil, fmt.Errorf("round() takes 1 or 2 arguments (%d given)", len(args))
			}
			if inst, ok := args[0].(*PyInstance); ok {
				var dunderArgs []Value
				if len(args) == 2 {
					dunderArgs = []Value{args[1]}
				}
				if result, found, err := vm.callDunder(inst, "__round__", dunderArgs...); found {
					return result, err
				}
				return nil, fmt.Errorf("TypeError: type %s doesn't define __round__ method", vm.typeName(args[0]))
			}
			num := vm.toFloat(args[0])
			if len(args) == 1 {
				return MakeInt(int64(math.RoundToEven(num))), nil
			}
			ndigits := vm.toInt(args[1])
			multiplier := math.Pow(10, float64(ndigits))
			rounded := math.RoundToEven(num*multiplier) / multiplier
			if ndigits < 0 {
				return MakeInt(int64(rounded)), nil
			}
			return &PyFloat{Value: rounded}, nil
		},
	}
}

func (vm *VM) makeCallableBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "callable",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("callable() takes exactly one argument (%d given)", len(args))
			}
			switch v := args[0].(type) {
			case *PyFunction, *PyBuiltinFunc, *PyGoFunc, *PyMethod, *PyClass:
				return True, nil
			case *PyInstance:
				for _, cls := range v.Class.Mro {
					if _, ok := cls.Dict["__call__"]; ok {
						return True, nil
					}
				}
				return False, nil
			default:
				return False, nil
			}
		},
	}
}

func (vm *VM) makeNextBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "next",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) < 1 || len(args) > 2 {
				return nil, fmt.Errorf("TypeError: next expected 1 or 2 arguments, got %d", len(args))
			}
			hasDefault := len(args) == 2
			switch it := args[0].(type) {
			case *PyGenerator:
				val, done, err := vm.GeneratorSend(it, None)
				if done || err != nil {
					if hasDefault {
						return args[1], nil
					}
					if err != nil {
						return nil, err
					}
					return nil, &PyException{TypeName: "StopIteration", Message: ""}
				}
				return val, nil
			case *PyIterator:
				items := it.Items
				if it.Source != nil {
					items = it.Source.Items
				}
				if it.Index >= len(items) {
					if hasDefault {
						return args[1], nil
					}
					return nil, &PyException{TypeName: "StopIteration", Message: ""}
				}
				val := items[it.Index]
				it.Index++
				return val, nil
			default:
				return vm.nextViaDunder(args[0], hasDefault, args)
			}
		},
	}
}

// nextViaDunder handles next() for objects without a native PyGenerator/
// PyIterator representation, by calling their __next__ method.
func (vm *VM) nextViaDunder(obj Value, hasDefault bool, args []Value) (Value, error) {
	nextMethod, err := vm.getAttr(obj, "__next__")
	if err != nil {
		return nil, fmt.Errorf("TypeError: '%s' object is not an iterator", vm.typeName(obj))
	}
	result, err := vm.call(nextMethod, nil, nil)
	if err != nil {
		if hasDefault {
			if pyExc, ok := err.(*PyException); ok && pyExc.Type() == "StopIteration" {
				return args[1], nil
			}
		}
		return nil, err
	}
	return result, nil
}

func (vm *VM) makeIterBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "iter",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("TypeError: iter expected 1 argument, got %d", len(args))
			}
			return vm.getIter(args[0])
		},
	}
}

func (vm *VM) makeIssubclassBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "issubclass",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("TypeError: issubclass expected 2 arguments, got %d", len(args))
			}
			if result, handled, err := vm.metaclassSubclassCheck(args[1], args[0]); handled {
				return result, err
			}
			clsName, ok := issubclassName(args[0])
			if !ok {
				return nil, fmt.Errorf("TypeError: issubclass() arg 1 must be a class")
			}
			return vm.issubclassCheckTarget(clsName, args[0], args[1])
		},
	}
}

// issubclassName extracts the class/builtin-function name used for the
// issubclass() child argument.
func issubclassName(v Value) (string, bool) {
	switch t := v.(type) {
	case *PyClass:
		return t.Name, true
	case *PyBuiltinFunc:
		return t.Name, true
	}
	return "", false
}

// metaclassSubclassCheck looks for a non-default __subclasscheck__ on
// target's metaclass MRO and invokes it with (target, candidate); handled
// is false when target isn't a class with a custom metaclass hook.
func (vm *VM) metaclassSubclassCheck(target, candidate Value) (result Value, handled bool, err error) {
	targetCls, ok := target.(*PyClass)
	if !ok || targetCls.Metaclass == nil {
		return nil, false, nil
	}
	typeClass, _ := vm.builtins["type"].(*PyClass)
	for _, metaCls := range targetCls.Metaclass.Mro {
		if metaCls == typeClass || metaCls.Name == "object" {
			continue
		}
		method, hasMethod := metaCls.Dict["__subclasscheck__"]
		if !hasMethod {
			continue
		}
		val, err := vm.invokeUnboundMethod(method, []Value{targetCls, candidate})
		if err != nil {
			return nil, true, err
		}
		if val == nil {
			return nil, false, nil
		}
		return vm.toValue(vm.truthy(val)), true, nil
	}
	return nil, false, nil
}

// builtinClassHierarchy reports whether child is a subclass of parent among
// built-in type names: identity, bool-is-an-int, and everything-is-an-object.
func builtinClassHierarchy(child, parent string) bool {
	return child == parent || parent == "object" || (child == "bool" && parent == "int")
}

// issubclassCheckTarget implements issubclass()'s class/tuple-of-classes
// matching against arg 2, given the already-extracted name of arg 1.
func (vm *VM) issubclassCheckTarget(clsName string, candidate, target Value) (Value, error) {
	switch t := target.(type) {
	case *PyClass:
		if cls, ok := candidate.(*PyClass); ok && vm.classIsSubclassOf(cls, t) {
			return True, nil
		}
		return vm.toValue(builtinClassHierarchy(clsName, t.Name)), nil
	case *PyBuiltinFunc:
		return vm.toValue(builtinClassHierarchy(clsName, t.Name)), nil
	case *PyTuple:
		for _, item := range t.Items {
			result, err := vm.issubclassCheckTarget(clsName, candidate, item)
			if err != nil {
				return nil, err
			}
			if result == True {
				return True, nil
			}
		}
		return False, nil
	default:
		return nil, fmt.Errorf("TypeError: issubclass() arg 2 must be a class or tuple of classes")
	}
}

// classIsSubclassOf reports whether cls or any of target's registered
// virtual subclasses appears in cls's MRO.
func (vm *VM) classIsSubclassOf(cls, target *PyClass) bool {
	for _, mroClass := range cls.Mro {
		if mroClass == target {
			return true
		}
	}
	for _, reg := range target.RegisteredSubclasses {
		for _, mroClass := range cls.Mro {
			if mroClass == reg {
				return true
			}
		}
	}
	return false
}
