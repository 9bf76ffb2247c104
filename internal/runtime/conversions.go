package runtime

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// toValue wraps a raw Go value (as produced by native call sites such
// as constant pools or host-function returns) in its Value counterpart.
func (vm *VM) toValue(v any) Value {
	switch val := v.(type) {
	case nil:
		return None
	case bool:
		return pyBoolOf(val)
	case int:
		return MakeInt(int64(val))
	case int64:
		return MakeInt(val)
	case float64:
		return &PyFloat{Value: val}
	case string:
		return &PyString{Value: val}
	case []byte:
		return &PyBytes{Value: val}
	case []string:
		return &PyTuple{Items: stringsToPyStrings(val)}
	case *big.Int:
		return MakeBigInt(val)
	case *CodeObject:
		return val
	case Value:
		return val
	default:
		return &PyString{Value: fmt.Sprintf("%v", v)}
	}
}

func stringsToPyStrings(strs []string) []Value {
	items := make([]Value, len(strs))
	for i, s := range strs {
		items[i] = &PyString{Value: s}
	}
	return items
}

func (vm *VM) toInt(v Value) int64 {
	i, _ := vm.tryToInt(v)
	return i
}

// numericIntError formats int()'s TypeError for a non-numeric,
// non-string argument.
func numericIntError(vm *VM, v Value) error {
	return fmt.Errorf("TypeError: int() argument must be a string or a number, not '%s'", vm.typeName(v))
}

// stripNumericUnderscores removes the underscore digit-group separators
// Python's numeric literal grammar allows (e.g. "1_000").
func stripNumericUnderscores(s string) string {
	return strings.ReplaceAll(s, "_", "")
}

// tryToInt converts a value to int64, returning an error if conversion fails.
// Use this for Python's int() builtin where ValueError should be raised on failure.
func (vm *VM) tryToInt(v Value) (int64, error) {
	switch val := v.(type) {
	case *PyInt:
		if val.BigValue != nil {
			return 0, fmt.Errorf("OverflowError: Python int too large to convert to int64")
		}
		return val.Value, nil
	case *PyComplex:
		return 0, fmt.Errorf("TypeError: int() argument must be a string, a bytes-like object or a real number, not 'complex'")
	case *PyFloat:
		return int64(val.Value), nil
	case *PyBool:
		return boolAsInt(val.Value), nil
	case *PyString:
		s := stripNumericUnderscores(strings.TrimSpace(val.Value))
		if s == "" {
			return 0, fmt.Errorf("ValueError: invalid literal for int() with base 10: %q", val.Value)
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("ValueError: invalid literal for int() with base 10: %q", val.Value)
		}
		return i, nil
	case *PyInstance:
		result, found, err := vm.callDunder(val, "__int__")
		if !found {
			return 0, numericIntError(vm, v)
		}
		if err != nil {
			return 0, err
		}
		i, ok := result.(*PyInt)
		if !ok {
			return 0, fmt.Errorf("TypeError: __int__ returned non-int")
		}
		return i.Value, nil
	default:
		return 0, numericIntError(vm, v)
	}
}

// tryToIntValue converts a value to a PyInt (possibly big), returning an error if conversion fails.
func (vm *VM) tryToIntValue(v Value) (Value, error) {
	switch val := v.(type) {
	case *PyInt:
		return val, nil
	case *PyString:
		s := stripNumericUnderscores(strings.TrimSpace(val.Value))
		if s == "" {
			return nil, fmt.Errorf("ValueError: invalid literal for int() with base 10: %q", val.Value)
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return MakeInt(i), nil
		}
		bi := new(big.Int)
		if _, ok := bi.SetString(s, 10); !ok {
			return nil, fmt.Errorf("ValueError: invalid literal for int() with base 10: %q", val.Value)
		}
		return MakeBigInt(bi), nil
	default:
		i, err := vm.tryToInt(v)
		if err != nil {
			return nil, err
		}
		return MakeInt(i), nil
	}
}

// getIntIndex gets an integer index value, supporting __index__ protocol
func (vm *VM) getIntIndex(v Value) (int64, error) {
	indexErr := func() error {
		return fmt.Errorf("TypeError: '%s' object cannot be interpreted as an integer", vm.typeName(v))
	}
	switch val := v.(type) {
	case *PyInt:
		return val.Value, nil
	case *PyBool:
		return boolAsInt(val.Value), nil
	case *PyInstance:
		result, found, err := vm.callDunder(val, "__index__")
		if !found {
			return 0, indexErr()
		}
		if err != nil {
			return 0, err
		}
		if i, ok := result.(*PyInt); ok {
			return i.Value, nil
		}
		return 0, indexErr()
	default:
		return 0, indexErr()
	}
}

// digitPrefixBase recognizes a 0x/0o/0b prefix (either case) on s and
// returns the base it implies and s with the prefix stripped; ok is
// false when s carries no such prefix.
func digitPrefixBase(s string) (base int64, rest string, ok bool) {
	if len(s) < 2 || s[0] != '0' {
		return 0, s, false
	}
	switch s[1] {
	case 'x', 'X':
		return 16, s[2:], true
	case 'o', 'O':
		return 8, s[2:], true
	case 'b', 'B':
		return 2, s[2:], true
	}
	return 0, s, false
}

// detectBase implements int(s, base=0)'s auto-detection: a recognized
// prefix selects its base, a lone run of zeros stays base 10, and
// anything else with a leading zero is a ValueError.
func detectBase(s string) (base int64, rest string, err error) {
	if b, r, ok := digitPrefixBase(s); ok {
		return b, r, nil
	}
	if len(s) > 1 && s[0] == '0' {
		for _, c := range s {
			if c != '0' {
				return 0, s, fmt.Errorf("ValueError: invalid literal for int() with base 0: '0%s'", s[1:])
			}
		}
	}
	return 10, s, nil
}

// stripMatchingPrefix removes s's 0x/0o/0b prefix when it agrees with
// an explicitly requested base; mismatched or absent prefixes are left
// alone for strconv.ParseInt to reject.
func stripMatchingPrefix(base int64, s string) string {
	if b, rest, ok := digitPrefixBase(s); ok && b == base {
		return rest
	}
	return s
}

// intFromStringBase converts a string to int with a given base
func (vm *VM) intFromStringBase(s string, base int64) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("ValueError: invalid literal for int() with base %d: ''", base)
	}
	if base != 0 && (base < 2 || base > 36) {
		return nil, fmt.Errorf("ValueError: int() base must be >= 2 and <= 36, or 0")
	}

	s = stripNumericUnderscores(s)

	negative := false
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		negative = s[0] == '-'
		s = s[1:]
		if s == "" {
			return nil, fmt.Errorf("ValueError: invalid literal for int() with base %d: %q", base, s)
		}
	}

	if base == 0 {
		var err error
		base, s, err = detectBase(s)
		if err != nil {
			return nil, err
		}
	} else {
		s = stripMatchingPrefix(base, s)
	}

	if s == "" {
		return nil, fmt.Errorf("ValueError: invalid literal for int() with base %d: ''", base)
	}

	i, err := strconv.ParseInt(s, int(base), 64)
	if err != nil {
		bi := new(big.Int)
		if _, ok := bi.SetString(s, int(base)); !ok {
			return nil, fmt.Errorf("ValueError: invalid literal for int() with base %d: %q", base, s)
		}
		if negative {
			bi.Neg(bi)
		}
		return MakeBigInt(bi), nil
	}
	if negative {
		i = -i
	}
	return MakeInt(i), nil
}

func (vm *VM) toFloat(v Value) float64 {
	f, _ := vm.tryToFloat(v)
	return f
}

var floatSpecialValues = map[string]float64{
	"inf": math.Inf(1), "+inf": math.Inf(1), "infinity": math.Inf(1), "+infinity": math.Inf(1),
	"-inf": math.Inf(-1), "-infinity": math.Inf(-1),
	"nan": math.NaN(), "+nan": math.NaN(), "-nan": math.NaN(),
}

// tryToFloat converts a value to float64, returning an error if conversion fails.
// Use this for Python's float() builtin where ValueError should be raised on failure.
func (vm *VM) tryToFloat(v Value) (float64, error) {
	switch val := v.(type) {
	case *PyInt:
		return float64(val.Value), nil
	case *PyComplex:
		return 0, fmt.Errorf("TypeError: float() argument must be a string or a real number, not 'complex'")
	case *PyFloat:
		return val.Value, nil
	case *PyBool:
		return boolAsFloat(val.Value), nil
	case *PyString:
		s := strings.TrimSpace(val.Value)
		if s == "" {
			return 0, fmt.Errorf("ValueError: could not convert string to float: %q", val.Value)
		}
		if special, ok := floatSpecialValues[strings.ToLower(s)]; ok {
			return special, nil
		}
		s = stripNumericUnderscores(s)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			if math.IsInf(f, 0) {
				return f, nil
			}
			return 0, fmt.Errorf("ValueError: could not convert string to float: %q", val.Value)
		}
		return f, nil
	case *PyInstance:
		result, found, err := vm.callDunder(val, "__float__")
		if !found {
			return 0, fmt.Errorf("TypeError: float() argument must be a string or a number, not '%s'", vm.typeName(v))
		}
		if err != nil {
			return 0, err
		}
		if f, ok := result.(*PyFloat); ok {
			return f.Value, nil
		}
		return 0, fmt.Errorf("TypeError: __float__ returned non-float (type %s)", vm.typeName(result))
	default:
		return 0, fmt.Errorf("TypeError: float() argument must be a string or a number, not '%s'", vm.typeName(v))
	}
}

func rangeToItems(r *PyRange) []Value {
	var items []Value
	for i := r.Start; (r.Step > 0 && i < r.Stop) || (r.Step < 0 && i > r.Stop); i += r.Step {
		items = append(items, MakeInt(i))
	}
	return items
}

func setToItems(items map[Value]struct{}) []Value {
	out := make([]Value, 0, len(items))
	for k := range items {
		out = append(out, k)
	}
	return out
}

func generatorToItems(vm *VM, gen *PyGenerator) ([]Value, error) {
	var items []Value
	for {
		value, done, err := vm.GeneratorSend(gen, None)
		if err != nil {
			if pyExc, ok := err.(*PyException); ok && pyExc.Type() == "StopIteration" {
				return items, nil
			}
			return nil, err
		}
		if done {
			return items, nil
		}
		items = append(items, value)
	}
}

// toList coerces any iterable Value into a Go slice of its elements.
func (vm *VM) toList(v Value) ([]Value, error) {
	switch val := v.(type) {
	case *PyList:
		return val.Items, nil
	case *PyTuple:
		return val.Items, nil
	case *PyString:
		runes := []rune(val.Value)
		items := make([]Value, len(runes))
		for i, ch := range runes {
			items[i] = &PyString{Value: string(ch)}
		}
		return items, nil
	case *PyBytes:
		items := make([]Value, len(val.Value))
		for i, b := range val.Value {
			items[i] = MakeInt(int64(b))
		}
		return items, nil
	case *PyRange:
		return rangeToItems(val), nil
	case *PySet:
		return setToItems(val.Items), nil
	case *PyFrozenSet:
		return setToItems(val.Items), nil
	case *PyDict:
		keys := val.Keys(vm)
		items := make([]Value, len(keys))
		copy(items, keys)
		return items, nil
	case *PyIterator:
		return val.Items[val.Index:], nil
	case *PyGenerator:
		return generatorToItems(vm, val)
	case *PyInstance:
		iterResult, found, err := vm.callDunder(val, "__iter__")
		if !found {
			return nil, fmt.Errorf("'%s' object is not iterable", vm.typeName(v))
		}
		if err != nil {
			return nil, err
		}
		return vm.iteratorToList(iterResult)
	default:
		return nil, fmt.Errorf("'%s' object is not iterable", vm.typeName(v))
	}
}

// iteratorToList collects all items from an iterator (object with __next__) into a list
func (vm *VM) iteratorToList(iterator Value) ([]Value, error) {
	inst, ok := iterator.(*PyInstance)
	if !ok {
		return vm.toList(iterator)
	}
	var items []Value
	for {
		val, found, err := vm.callDunder(inst, "__next__")
		if !found {
			return nil, fmt.Errorf("iterator has no __next__ method")
		}
		if err != nil {
			if pyExc, ok := err.(*PyException); ok && pyExc.Type() == "StopIteration" {
				return items, nil
			}
			return nil, err
		}
		items = append(items, val)
	}
}

// instanceTruthy implements an instance's truthiness via __bool__, then
// __len__, defaulting to true when neither dunder exists.
func (vm *VM) instanceTruthy(inst *PyInstance) bool {
	if result, found, err := vm.callDunder(inst, "__bool__"); found && err == nil {
		if b, ok := result.(*PyBool); ok {
			return b.Value
		}
	}
	if result, found, err := vm.callDunder(inst, "__len__"); found && err == nil {
		if i, ok := result.(*PyInt); ok {
			return i.Value != 0
		}
	}
	return true
}

func (vm *VM) truthy(v Value) bool {
	switch val := v.(type) {
	case *PyNone:
		return false
	case *PyBool:
		return val.Value
	case *PyInt:
		return val.Value != 0
	case *PyFloat:
		return val.Value != 0.0
	case *PyComplex:
		return val.Real != 0 || val.Imag != 0
	case *PyString:
		return len(val.Value) > 0
	case *PyList:
		return len(val.Items) > 0
	case *PyTuple:
		return len(val.Items) > 0
	case *PyDict:
		return len(val.Items) > 0
	case *PySet:
		return len(val.Items) > 0
	case *PyFrozenSet:
		return len(val.Items) > 0
	case *PyRange:
		return rangeLen(val) > 0
	case *PyBytes:
		return len(val.Value) > 0
	case *PyInstance:
		return vm.instanceTruthy(val)
	default:
		return true
	}
}

// joinRepr renders each item's repr and joins with ", ".
func (vm *VM) joinRepr(items []Value) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = vm.repr(item)
	}
	return strings.Join(parts, ", ")
}

func formatTupleBody(parts []string) string {
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// mappingBody renders a dict-like "{k: v, ...}" body over orderedKeys.
func (vm *VM) mappingBody(d *PyDict) string {
	orderedKeys := d.Keys(vm)
	parts := make([]string, 0, len(orderedKeys))
	for _, k := range orderedKeys {
		if v, ok := d.DictGet(k, vm); ok {
			parts = append(parts, vm.repr(k)+": "+vm.repr(v))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// setBody renders a set-like "{a, b, ...}" body, or empty when items is
// empty (the caller supplies the empty-set spelling).
func (vm *VM) setBody(items map[Value]struct{}) string {
	parts := make([]string, 0, len(items))
	for k := range items {
		parts = append(parts, vm.repr(k))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// instanceStr renders an exception instance, then __str__, then
// __repr__, then a generic "<Name object>" fallback.
func (vm *VM) instanceStr(inst *PyInstance) string {
	if vm.isExceptionClass(inst.Class) {
		return vm.formatExceptionInstance(inst)
	}
	if result, found, err := vm.callDunder(inst, "__str__"); found && err == nil {
		if s, ok := result.(*PyString); ok {
			return s.Value
		}
	}
	if result, found, err := vm.callDunder(inst, "__repr__"); found && err == nil {
		if s, ok := result.(*PyString); ok {
			return s.Value
		}
	}
	return fmt.Sprintf("<%s object>", inst.Class.Name)
}

func (vm *VM) str(v Value) string {
	switch val := v.(type) {
	case *PyNone:
		return "None"
	case *PyNotImplementedType:
		return "NotImplemented"
	case *PyBool:
		return val.String()
	case *PyInt:
		return fmt.Sprintf("%d", val.Value)
	case *PyFloat:
		return formatPyFloat(val.Value)
	case *PyComplex:
		return formatComplex(val.Real, val.Imag)
	case *PyString:
		return val.Value
	case *PyBytes:
		return bytesRepr(val.Value)
	case *PyList:
		return "[" + vm.joinRepr(val.Items) + "]"
	case *PyTuple:
		return formatTupleBody(splitRepr(vm, val.Items))
	case *PyDict:
		return vm.mappingBody(val)
	case *PySet:
		if len(val.Items) == 0 {
			return "set()"
		}
		return vm.setBody(val.Items)
	case *PyFrozenSet:
		if len(val.Items) == 0 {
			return "frozenset()"
		}
		return "frozenset(" + vm.setBody(val.Items) + ")"
	case *PyFunction:
		return fmt.Sprintf("<function %s>", val.Name)
	case *PyBuiltinFunc:
		return fmt.Sprintf("<built-in function %s>", val.Name)
	case *PyGoFunc:
		return fmt.Sprintf("<go function %s>", val.Name)
	case *PyUserData:
		return fmt.Sprintf("<userdata %T>", val.Value)
	case *PyModule:
		return fmt.Sprintf("<module '%s'>", val.Name)
	case *PyInstance:
		return vm.instanceStr(val)
	case *PyClass:
		return fmt.Sprintf("<class '%s'>", val.Name)
	case *GenericAlias:
		return val.formatRepr()
	case *PyException:
		return vm.formatException(val)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func splitRepr(vm *VM, items []Value) []string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = vm.repr(item)
	}
	return parts
}

// formatPyFloat renders a float the way Python's repr does: the
// shortest round-tripping decimal, always with a fractional part.
func formatPyFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

// formatArgsTuple renders an exception's args tuple the way str(exc)
// does: empty string for none, the bare value for one, a repr'd tuple
// for more than one.
func (vm *VM) formatArgsTuple(items []Value) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return vm.str(items[0])
	default:
		return fmt.Sprintf("(%s)", vm.joinRepr(items))
	}
}

// formatExceptionInstance formats an exception instance for str().
// In CPython, str(e) returns just the message, not "Type: message".
func (vm *VM) formatExceptionInstance(inst *PyInstance) string {
	if args, ok := inst.Dict["args"]; ok {
		if t, ok := args.(*PyTuple); ok {
			return vm.formatArgsTuple(t.Items)
		}
	}
	return ""
}

// formatException formats a PyException for str().
// In CPython, str(e) returns just the message, not "Type: message".
func (vm *VM) formatException(exc *PyException) string {
	if exc.Args != nil && len(exc.Args.Items) > 0 {
		return vm.formatArgsTuple(exc.Args.Items)
	}
	return exc.Message
}

// bytesRepr produces the Python repr for a bytes object
func bytesRepr(data []byte) string {
	var b strings.Builder
	b.WriteString("b'")
	for _, c := range data {
		switch {
		case c == '\\':
			b.WriteString("\\\\")
		case c == '\'':
			b.WriteString("\\'")
		case c == '\t':
			b.WriteString("\\t")
		case c == '\n':
			b.WriteString("\\n")
		case c == '\r':
			b.WriteString("\\r")
		case c >= 32 && c < 127:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "\\x%02x", c)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// userDataTypeName looks up a __type__ entry in ud's metatable, the way
// a Go-backed object reports its Python-facing type name.
func (vm *VM) userDataTypeName(ud *PyUserData) string {
	if ud.Metatable == nil {
		return "userdata"
	}
	for k, v := range ud.Metatable.Items {
		if ks, ok := k.(*PyString); ok && ks.Value == "__type__" {
			return vm.str(v)
		}
	}
	return "userdata"
}

func (vm *VM) typeName(v Value) string {
	switch val := v.(type) {
	case *PyNone:
		return "NoneType"
	case *PyNotImplementedType:
		return "NotImplementedType"
	case *PyBool:
		return "bool"
	case *PyInt:
		return "int"
	case *PyFloat:
		return "float"
	case *PyComplex:
		return "complex"
	case *PyString:
		return "str"
	case *PyBytes:
		return "bytes"
	case *PyList:
		return "list"
	case *PyTuple:
		return "tuple"
	case *PyDict:
		return "dict"
	case *PySet:
		return "set"
	case *PyFrozenSet:
		return "frozenset"
	case *PyFunction:
		return "function"
	case *PyBuiltinFunc:
		return "builtin_function_or_method"
	case *PyGoFunc:
		return "builtin_function_or_method"
	case *PyClass:
		return "type"
	case *PyInstance:
		return val.Class.Name
	case *PyRange:
		return "range"
	case *PyIterator:
		return "iterator"
	case *PyUserData:
		return vm.userDataTypeName(val)
	case *PyModule:
		return "module"
	case *GenericAlias:
		return "GenericAlias"
	default:
		return "object"
	}
}

func (vm *VM) repr(v Value) string {
	switch val := v.(type) {
	case *PyComplex:
		return formatComplex(val.Real, val.Imag)
	case *PyString:
		return fmt.Sprintf("'%s'", val.Value)
	case *PyBytes:
		return bytesRepr(val.Value)
	case *PyNone:
		return "None"
	case *PyBool:
		return val.String()
	case *PyList:
		return "[" + vm.joinRepr(val.Items) + "]"
	case *PyTuple:
		return formatTupleBody(splitRepr(vm, val.Items))
	case *PyDict:
		return vm.mappingBody(val)
	case *PySet:
		if len(val.Items) == 0 {
			return "set()"
		}
		return vm.setBody(val.Items)
	case *PyInstance:
		if result, found, err := vm.callDunder(val, "__repr__"); found && err == nil {
			if s, ok := result.(*PyString); ok {
				return s.Value
			}
		}
		return fmt.Sprintf("<%s object>", val.Class.Name)
	case *GenericAlias:
		return val.formatRepr()
	default:
		return vm.str(v)
	}
}
