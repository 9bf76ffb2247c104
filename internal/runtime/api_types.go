package runtime

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// TypeMetatable attaches Go-implemented methods and computed properties to
// a named type, the way gopher-lua attaches metatables to userdata.
type TypeMetatable struct {
	Name       string
	Methods    map[string]GoFunction
	Properties map[string]GoFunction
}

// typeRegistry is the process-wide table of registered metatables; stdlib
// modules populate it once at init time and every VM shares it.
// typeRegistryMu guards writers that run after init time (module.go's
// lazy registration path); the init-time population and read paths below
// assume no concurrent writers, matching how the rest of the VM treats
// its other global tables.
var (
	typeRegistry   = make(map[string]*TypeMetatable)
	typeRegistryMu sync.Mutex
)

// NewTypeMetatable allocates and registers an empty metatable for typeName.
func (vm *VM) NewTypeMetatable(typeName string) *TypeMetatable {
	mt := &TypeMetatable{Name: typeName, Methods: make(map[string]GoFunction)}
	typeRegistry[typeName] = mt
	return mt
}

// GetTypeMetatable looks up a previously registered metatable by name.
func (vm *VM) GetTypeMetatable(typeName string) *TypeMetatable {
	return typeRegistry[typeName]
}

// RegisterTypeMetatable installs mt under typeName without needing a VM
// handle, for use from package-init code that runs before any VM exists.
func RegisterTypeMetatable(typeName string, mt *TypeMetatable) {
	typeRegistry[typeName] = mt
}

// GetRegisteredTypeMetatable is the VM-less counterpart to GetTypeMetatable.
func GetRegisteredTypeMetatable(typeName string) *TypeMetatable {
	return typeRegistry[typeName]
}

// SetMethod attaches a single method to the metatable.
func (mt *TypeMetatable) SetMethod(name string, fn GoFunction) {
	mt.Methods[name] = fn
}

// SetMethods attaches a batch of methods to the metatable.
func (mt *TypeMetatable) SetMethods(methods map[string]GoFunction) {
	for name, fn := range methods {
		mt.Methods[name] = fn
	}
}

// ResetTypeMetatables drops every registered metatable; ResetModules calls
// this between independent test runs so registrations don't leak.
func ResetTypeMetatables() {
	typeRegistry = make(map[string]*TypeMetatable)
}

// pendingRegistrations holds builtins contributed by stdlib modules that
// initialize before a VM exists; NewVM drains it into the fresh instance.
var pendingRegistrations = make(map[string]GoFunction)

// RegisterPendingBuiltin queues fn to be installed on every VM created from
// this point on.
func RegisterPendingBuiltin(name string, fn GoFunction) {
	pendingRegistrations[name] = fn
}

// GetPendingBuiltins returns the queued builtin table; called by NewVM.
func GetPendingBuiltins() map[string]GoFunction {
	return pendingRegistrations
}

// ResetPendingBuiltins empties the queue; called by ResetModules.
func ResetPendingBuiltins() {
	pendingRegistrations = make(map[string]GoFunction)
}

// ApplyPendingBuiltins installs any queued builtins onto vm that it doesn't
// already define, for modules enabled after the VM was constructed.
func (vm *VM) ApplyPendingBuiltins() {
	for name, fn := range pendingRegistrations {
		if _, exists := vm.builtins[name]; !exists {
			vm.builtins[name] = NewGoFunction(name, fn)
		}
	}
}

// RegisterType is a one-call convenience combining NewTypeMetatable,
// SetMethods, and exposing the constructor globally:
//
//	vm.RegisterType("person", newPerson, map[string]GoFunction{
//	    "name": personGetName,
//	    "set_name": personSetName,
//	})
func (vm *VM) RegisterType(typeName string, constructor GoFunction, methods map[string]GoFunction) {
	mt := vm.NewTypeMetatable(typeName)
	mt.SetMethods(methods)

	if constructor != nil {
		vm.SetGlobal(typeName, NewGoFunction(typeName, constructor))
	}

	descriptor := NewDict()
	descriptor.Items[NewString("__name__")] = NewString(typeName)
	vm.SetGlobal("__"+typeName+"_mt__", descriptor)
}

// NewUserDataWithMeta wraps v and, if typeName has a registered metatable,
// tags the userdata so dunder lookups (e.g. __call__) can find it.
func (vm *VM) NewUserDataWithMeta(v any, typeName string) *PyUserData {
	ud := &PyUserData{Value: v}
	if vm.GetTypeMetatable(typeName) != nil {
		ud.Metatable = NewDict()
		ud.Metatable.Items[NewString("__type__")] = NewString(typeName)
	}
	return ud
}

// userDataTypeName reads back the type tag NewUserDataWithMeta stored, or
// "" if the userdata carries no metatable.
func userDataTypeName(ud *PyUserData) string {
	if ud.Metatable == nil {
		return ""
	}
	for k, v := range ud.Metatable.Items {
		ks, ok := k.(*PyString)
		if !ok || ks.Value != "__type__" {
			continue
		}
		if ts, ok := v.(*PyString); ok {
			return ts.Value
		}
	}
	return ""
}

// ---- type predicates ----

func IsNone(v Value) bool   { _, ok := v.(*PyNone); return ok }
func IsInt(v Value) bool    { _, ok := v.(*PyInt); return ok }
func IsFloat(v Value) bool  { _, ok := v.(*PyFloat); return ok }
func IsString(v Value) bool { _, ok := v.(*PyString); return ok }
func IsBool(v Value) bool   { _, ok := v.(*PyBool); return ok }
func IsList(v Value) bool   { _, ok := v.(*PyList); return ok }
func IsDict(v Value) bool   { _, ok := v.(*PyDict); return ok }
func IsTuple(v Value) bool  { _, ok := v.(*PyTuple); return ok }

// IsUserData reports whether v is a wrapped Go value.
func IsUserData(v Value) bool { _, ok := v.(*PyUserData); return ok }

// IsCallable reports whether v can legally sit in call position — either
// one of the native callable kinds, or userdata whose registered metatable
// defines __call__.
func IsCallable(v Value) bool {
	switch val := v.(type) {
	case *PyFunction, *PyBuiltinFunc, *PyGoFunc, *PyClass, *PyMethod:
		return true
	case *PyUserData:
		typeName := userDataTypeName(val)
		if typeName == "" {
			return false
		}
		mt := GetRegisteredTypeMetatable(typeName)
		if mt == nil {
			return false
		}
		_, hasCall := mt.Methods["__call__"]
		return hasCall
	default:
		return false
	}
}

// ---- Go <-> Python value bridging ----

// ToGoValue unwraps a Python value into plain Go data: containers recurse,
// userdata yields its wrapped value, everything else not explicitly
// handled is passed through untouched.
func ToGoValue(v Value) any {
	switch val := v.(type) {
	case *PyNone:
		return nil
	case *PyBool:
		return val.Value
	case *PyInt:
		return val.Value
	case *PyFloat:
		return val.Value
	case *PyString:
		return val.Value
	case *PyBytes:
		return val.Value
	case *PyList:
		return goValuesOf(val.Items)
	case *PyTuple:
		return goValuesOf(val.Items)
	case *PyDict:
		out := make(map[any]any, len(val.Items))
		for k, v := range val.Items {
			out[ToGoValue(k)] = ToGoValue(v)
		}
		return out
	case *PyUserData:
		return val.Value
	default:
		return v
	}
}

func goValuesOf(items []Value) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = ToGoValue(item)
	}
	return out
}

// FromGoValue lifts a Go value into the Python object graph via reflection;
// pointers, structs and anything else unrecognized are wrapped as userdata
// rather than rejected.
func FromGoValue(v any) Value {
	if v == nil {
		return None
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return NewBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return NewInt(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return NewInt(int64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return NewFloat(rv.Float())
	case reflect.String:
		return NewString(rv.String())
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return &PyBytes{Value: rv.Bytes()}
		}
		return NewList(pyValuesOf(rv))
	case reflect.Array:
		return NewTuple(pyValuesOf(rv))
	case reflect.Map:
		d := NewDict()
		iter := rv.MapRange()
		for iter.Next() {
			d.Items[FromGoValue(iter.Key().Interface())] = FromGoValue(iter.Value().Interface())
		}
		return d
	default: // Ptr, Struct, Interface, Chan, Func, …
		return NewUserData(v)
	}
}

func pyValuesOf(rv reflect.Value) []Value {
	out := make([]Value, rv.Len())
	for i := range out {
		out[i] = FromGoValue(rv.Index(i).Interface())
	}
	return out
}

// ---- calling into Python from Go ----

// Call invokes a Python callable with positional and keyword arguments.
func (vm *VM) Call(callable Value, args []Value, kwargs map[string]Value) (Value, error) {
	return vm.call(callable, args, kwargs)
}

// IsTrue applies Python truthiness to v without requiring a VM, covering
// every builtin container type; instances with __bool__/__len__ need
// VM.Truthy instead since that requires dispatching a dunder call.
func IsTrue(v Value) bool {
	switch val := v.(type) {
	case *PyNone:
		return false
	case *PyBool:
		return val.Value
	case *PyInt:
		return val.Value != 0
	case *PyFloat:
		return val.Value != 0.0
	case *PyString:
		return val.Value != ""
	case *PyList:
		return len(val.Items) > 0
	case *PyTuple:
		return len(val.Items) > 0
	case *PyDict:
		return len(val.Items) > 0 || val.DictLen() > 0
	case *PySet:
		return len(val.Items) > 0
	default:
		return v != nil
	}
}

// Truthy is the VM-aware counterpart of IsTrue, able to dispatch
// __bool__/__len__ on instances.
func (vm *VM) Truthy(v Value) bool { return vm.truthy(v) }

// Equal tests Python equality between a and b.
func (vm *VM) Equal(a, b Value) bool { return vm.equal(a, b) }

// CompareOp runs a rich-comparison opcode against a and b.
func (vm *VM) CompareOp(op Opcode, a, b Value) Value { return vm.compareOp(op, a, b) }

// HashValue computes a Python-compatible hash for v.
func (vm *VM) HashValue(v Value) uint64 { return vm.hashValueVM(v) }

// ToList drains any iterable (list, tuple, string, range, set, dict,
// iterator, generator, …) into a Go slice of Values.
func (vm *VM) ToList(v Value) ([]Value, error) { return vm.toList(v) }

// ---- raising errors from Go code ----

// PyPanicError carries a Python exception type and message through a Go
// panic; the VM's recover at the frame boundary turns it into a real
// PyException.
type PyPanicError struct {
	ExcType string
	Message string
}

func (e *PyPanicError) Error() string { return fmt.Sprintf("%s: %s", e.ExcType, e.Message) }

// ArgError raises a TypeError referencing argument n by position.
func (vm *VM) ArgError(n int, msg string) {
	panic(&PyPanicError{ExcType: "TypeError", Message: fmt.Sprintf("bad argument #%d: %s", n, msg)})
}

// TypeError raises a TypeError describing an expected-vs-actual type
// mismatch.
func (vm *VM) TypeError(expected string, got Value) {
	panic(&PyPanicError{
		ExcType: "TypeError",
		Message: fmt.Sprintf("expected %s, got %s", expected, vm.typeName(got)),
	})
}

// CallDunder looks up name on inst via MRO and calls it if present. found
// is false when no such method exists; a call error is raised immediately
// rather than returned, matching the panic convention other GoFunctions use.
func (vm *VM) CallDunder(inst *PyInstance, name string, args ...Value) (Value, bool) {
	result, found, err := vm.callDunder(inst, name, args...)
	if err != nil {
		vm.RaiseError("%s", err.Error())
		return nil, false
	}
	return result, found
}

// CallFunction invokes a compiled PyFunction directly.
func (vm *VM) CallFunction(fn *PyFunction, args []Value, kwargs map[string]Value) (Value, error) {
	return vm.callFunction(fn, args, kwargs)
}

// IsInstanceOf reports whether inst is an instance of cls or one of its
// MRO ancestors.
func (vm *VM) IsInstanceOf(inst *PyInstance, cls *PyClass) bool {
	return vm.isInstanceOf(inst, cls)
}

// CallDunderWithError is CallDunder's non-panicking twin, for callers
// (PyBuiltinFunc implementations) that propagate errors by return value.
func (vm *VM) CallDunderWithError(inst *PyInstance, name string, args ...Value) (Value, bool, error) {
	return vm.callDunder(inst, name, args...)
}

// TypeNameOf returns the Python type name of v.
func (vm *VM) TypeNameOf(v Value) string { return vm.typeName(v) }

// GetIntIndex exports getIntIndex for stdlib packages that need sequence
// index coercion outside internal/runtime.
func (vm *VM) GetIntIndex(v Value) (int64, error) { return vm.getIntIndex(v) }

// exceptionTypeNames lists every builtin exception/warning name RaiseError
// recognizes as a "Type: message" prefix, ordered roughly by frequency.
var exceptionTypeNames = []string{
	"TypeError", "ValueError", "KeyError", "IndexError", "AttributeError",
	"RuntimeError", "StopIteration", "NotImplementedError", "OSError",
	"FileNotFoundError", "PermissionError", "FileExistsError", "IOError",
	"ZeroDivisionError", "OverflowError", "RecursionError", "SyntaxError",
	"LookupError", "ArithmeticError", "FloatingPointError", "EOFError",
	"BufferError", "TimeoutError", "ConnectionError", "ConnectionRefusedError",
	"ConnectionResetError", "ConnectionAbortedError", "BrokenPipeError",
	"IsADirectoryError", "NotADirectoryError", "InterruptedError",
	"BlockingIOError", "ChildProcessError", "ProcessLookupError",
	"UnicodeError", "UnicodeDecodeError", "UnicodeEncodeError",
	"UnicodeTranslateError", "ImportError", "ModuleNotFoundError",
	"UnboundLocalError", "NameError", "MemoryError", "AssertionError",
	"Warning", "DeprecationWarning", "RuntimeWarning", "UserWarning",
	"FutureWarning", "SyntaxWarning", "ImportWarning", "UnicodeWarning",
	"BytesWarning", "ResourceWarning", "EncodingWarning",
	"PendingDeprecationWarning", "StopAsyncIteration",
}

// splitExceptionPrefix peels a recognized "Type: rest" prefix off msg,
// reporting the exception type name and the remaining message.
func splitExceptionPrefix(msg string) (excType, rest string) {
	for _, name := range exceptionTypeNames {
		after, found := strings.CutPrefix(msg, name+":")
		if !found {
			continue
		}
		return name, strings.TrimPrefix(after, " ")
	}
	return "RuntimeError", msg
}

// RaiseError raises a Python exception from Go code. format is rendered
// with fmt.Sprintf; if the rendered message starts with a recognized
// "ExceptionType: " prefix that type is used, otherwise it defaults to
// RuntimeError.
func (vm *VM) RaiseError(format string, args ...any) {
	excType, msg := splitExceptionPrefix(fmt.Sprintf(format, args...))
	panic(&PyPanicError{ExcType: excType, Message: msg})
}

// CompileFunc lets exec/eval/compile builtins reach the compiler without
// internal/runtime importing internal/compiler directly (which would be a
// cycle); the corvid package wires this up at startup.
var CompileFunc func(source, filename, mode string) (*CodeObject, error)
