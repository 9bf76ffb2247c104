package runtime

import (
	"fmt"
	"reflect"
)

// GoFunction is the shape a Go-implemented builtin must have to be callable
// from Python code: it receives the VM (so it can read arguments off the
// stack and push a result) and reports how many values it left on top.
type GoFunction func(vm *VM) int

// PyGoFunc adapts a GoFunction so it satisfies Value and can live anywhere
// a PyObject would — a global, a dict entry, a class attribute.
type PyGoFunc struct {
	Name string
	Fn   GoFunction
}

func (g *PyGoFunc) Type() string   { return "builtin_function_or_method" }
func (g *PyGoFunc) String() string { return fmt.Sprintf("<go function %s>", g.Name) }

// PyUserData is the escape hatch for embedding an arbitrary Go value inside
// the Python object graph, with an optional metatable giving it methods.
type PyUserData struct {
	Value     any
	Metatable *PyDict
}

func (u *PyUserData) Type() string   { return "userdata" }
func (u *PyUserData) String() string { return fmt.Sprintf("<userdata %T>", u.Value) }

// ---- constructing Python values from Go ----

// NewInt boxes a Go int64 as a Python int.
func NewInt(v int64) *PyInt { return &PyInt{Value: v} }

// NewFloat boxes a Go float64 as a Python float.
func NewFloat(v float64) *PyFloat { return &PyFloat{Value: v} }

// NewComplex builds a Python complex from its real and imaginary parts.
func NewComplex(real, imag float64) *PyComplex { return MakeComplex(real, imag) }

// NewString boxes a Go string as a Python str, routing through the
// interning table so short/common strings share one allocation.
func NewString(v string) *PyString { return InternString(v) }

// NewBool returns the shared True or False singleton for a Go bool.
func NewBool(v bool) *PyBool {
	if v {
		return True
	}
	return False
}

// NewList wraps a slice of Values as a (mutable) Python list.
func NewList(items []Value) *PyList { return &PyList{Items: items} }

// NewTuple wraps a slice of Values as an (immutable) Python tuple.
func NewTuple(items []Value) *PyTuple { return &PyTuple{Items: items} }

// NewDict allocates an empty Python dict ready for inserts.
func NewDict() *PyDict { return &PyDict{Items: make(map[Value]Value)} }

// NewBytes boxes a Go byte slice as a Python bytes object.
func NewBytes(v []byte) *PyBytes { return &PyBytes{Value: v} }

// NewUserData wraps an arbitrary Go value with no metatable attached.
func NewUserData(v any) *PyUserData { return &PyUserData{Value: v} }

// NewGoFunction names a GoFunction so it can be registered as a builtin or
// assigned directly to a Python name.
func NewGoFunction(name string, fn GoFunction) *PyGoFunc {
	return &PyGoFunc{Name: name, Fn: fn}
}

// ---- stack access, modeled on gopher-lua's 1-based/negative indexing ----

// Push places a value on top of the current frame's stack.
func (vm *VM) Push(v Value) { vm.push(v) }

// Pop removes and returns the value on top of the stack.
func (vm *VM) Pop() Value { return vm.pop() }

// GetTop reports how many values are currently on the stack.
func (vm *VM) GetTop() int { return vm.frame.SP }

// SetTop moves the stack pointer to n, or, when n is negative, to n slots
// below the current top (clamped at zero).
func (vm *VM) SetTop(n int) {
	if n >= 0 {
		vm.frame.SP = n
		return
	}
	newTop := vm.frame.SP + n + 1
	if newTop < 0 {
		newTop = 0
	}
	vm.frame.SP = newTop
}

// Get reads the stack slot at idx: positive counts from the bottom
// (1-based), negative counts back from the top. Out-of-range reads yield
// None rather than panicking.
func (vm *VM) Get(idx int) Value {
	switch {
	case idx > 0 && idx <= vm.frame.SP:
		return vm.frame.Stack[idx-1]
	case idx < 0:
		if at := vm.frame.SP + idx; at >= 0 {
			return vm.frame.Stack[at]
		}
	}
	return None
}

// ---- argument validation ----

// RequireArgs panics with a TypeError unless at least min arguments were
// supplied to the builtin named name.
//
//	if !vm.RequireArgs("loads", 1) { return 0 }
func (vm *VM) RequireArgs(name string, min int) bool {
	got := vm.GetTop()
	if got >= min {
		return true
	}
	panic(&PyPanicError{
		ExcType: "TypeError",
		Message: fmt.Sprintf("%s() requires at least %d argument(s), got %d", name, min, got),
	})
}

// argOrDefault fetches stack slot pos when the caller actually supplied it
// and it isn't None, otherwise reports ok=false so callers fall back to a
// default.
func (vm *VM) argOrDefault(pos int) (Value, bool) {
	if vm.GetTop() < pos {
		return nil, false
	}
	v := vm.Get(pos)
	if _, isNone := v.(*PyNone); isNone {
		return nil, false
	}
	return v, true
}

// OptionalInt reads argument pos as an int64, falling back to def when the
// argument is missing or None.
func (vm *VM) OptionalInt(pos int, def int64) int64 {
	if v, ok := vm.argOrDefault(pos); ok {
		return vm.toInt(v)
	}
	return def
}

// OptionalFloat reads argument pos as a float64, falling back to def when
// the argument is missing or None.
func (vm *VM) OptionalFloat(pos int, def float64) float64 {
	if v, ok := vm.argOrDefault(pos); ok {
		return vm.toFloat(v)
	}
	return def
}

// OptionalString reads argument pos as a string, falling back to def when
// the argument is missing or None.
func (vm *VM) OptionalString(pos int, def string) string {
	v, ok := vm.argOrDefault(pos)
	if !ok {
		return def
	}
	if s, ok := v.(*PyString); ok {
		return s.Value
	}
	return vm.str(v)
}

// OptionalBool reads argument pos as a bool, falling back to def when the
// argument is missing or None.
func (vm *VM) OptionalBool(pos int, def bool) bool {
	if v, ok := vm.argOrDefault(pos); ok {
		return vm.truthy(v)
	}
	return def
}

// ---- required-argument coercions ----

// CheckInt coerces argument n to int64.
func (vm *VM) CheckInt(n int) int64 { return vm.toInt(vm.Get(n)) }

// CheckFloat coerces argument n to float64.
func (vm *VM) CheckFloat(n int) float64 { return vm.toFloat(vm.Get(n)) }

// CheckString coerces argument n to a Go string, using str()-semantics for
// non-string values rather than requiring an exact PyString.
func (vm *VM) CheckString(n int) string {
	v := vm.Get(n)
	if s, ok := v.(*PyString); ok {
		return s.Value
	}
	return vm.str(v)
}

// CheckBool coerces argument n to a Go bool via Python truthiness.
func (vm *VM) CheckBool(n int) bool { return vm.truthy(vm.Get(n)) }

// CheckList returns argument n as *PyList, or nil if it isn't one.
func (vm *VM) CheckList(n int) *PyList {
	l, _ := vm.Get(n).(*PyList)
	return l
}

// CheckDict returns argument n as *PyDict, or nil if it isn't one.
func (vm *VM) CheckDict(n int) *PyDict {
	d, _ := vm.Get(n).(*PyDict)
	return d
}

// CheckUserData returns argument n as *PyUserData, or nil if it isn't one.
// typeName is accepted for call-site documentation; metatable enforcement
// is left to the caller.
func (vm *VM) CheckUserData(n int, typeName string) *PyUserData {
	ud, _ := vm.Get(n).(*PyUserData)
	return ud
}

// ToInt best-effort converts argument n to int64.
func (vm *VM) ToInt(n int) int64 { return vm.toInt(vm.Get(n)) }

// ToFloat best-effort converts argument n to float64.
func (vm *VM) ToFloat(n int) float64 { return vm.toFloat(vm.Get(n)) }

// ToString best-effort converts argument n to a Go string.
func (vm *VM) ToString(n int) string { return vm.str(vm.Get(n)) }

// ToBool best-effort converts argument n to a Go bool.
func (vm *VM) ToBool(n int) bool { return vm.truthy(vm.Get(n)) }

// ToUserData returns argument n as *PyUserData, or nil if it isn't one.
func (vm *VM) ToUserData(n int) *PyUserData {
	ud, _ := vm.Get(n).(*PyUserData)
	return ud
}

// ---- globals and builtins ----

// SetGlobal binds name in the VM's global namespace.
func (vm *VM) SetGlobal(name string, v Value) { vm.Globals[name] = v }

// GetGlobal looks up a global, returning None if it is unset.
func (vm *VM) GetGlobal(name string) Value {
	if v, ok := vm.Globals[name]; ok {
		return v
	}
	return None
}

// SetBuiltin binds name in the builtin namespace consulted when a global
// lookup misses.
func (vm *VM) SetBuiltin(name string, v Value) { vm.builtins[name] = v }

// GetBuiltin looks up a builtin, returning None if it is unset.
func (vm *VM) GetBuiltin(name string) Value {
	if v, ok := vm.builtins[name]; ok {
		return v
	}
	return None
}

// Register exposes fn as a global Python-callable name.
func (vm *VM) Register(name string, fn GoFunction) {
	vm.SetGlobal(name, NewGoFunction(name, fn))
}

// RegisterBuiltin exposes fn as a builtin Python-callable name.
func (vm *VM) RegisterBuiltin(name string, fn GoFunction) {
	vm.SetBuiltin(name, NewGoFunction(name, fn))
}

// RegisterFuncs registers a batch of globals in one call.
func (vm *VM) RegisterFuncs(funcs map[string]GoFunction) {
	for name, fn := range funcs {
		vm.Register(name, fn)
	}
}
