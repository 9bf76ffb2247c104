package corvid

import (
	"errors"
	"fmt"

	"github.com/corvid-run/corvid/internal/runtime"
)

// ErrStopIteration should be returned from Next callbacks to signal end of iteration.
var ErrStopIteration = errors.New("StopIteration: ")

// TypeError returns an error that becomes a Python TypeError.
func TypeError(msg string) error {
	return fmt.Errorf("TypeError: %s", msg)
}

// ValueError returns an error that becomes a Python ValueError.
func ValueError(msg string) error {
	return fmt.Errorf("ValueError: %s", msg)
}

// KeyError returns an error that becomes a Python KeyError.
func KeyError(msg string) error {
	return fmt.Errorf("KeyError: %s", msg)
}

// IndexError returns an error that becomes a Python IndexError.
func IndexError(msg string) error {
	return fmt.Errorf("IndexError: %s", msg)
}

// AttributeError returns an error that becomes a Python AttributeError.
func AttributeError(msg string) error {
	return fmt.Errorf("AttributeError: %s", msg)
}

// RuntimeError returns an error that becomes a Python RuntimeError.
func RuntimeError(msg string) error {
	return fmt.Errorf("RuntimeError: %s", msg)
}

// Object wraps a Python instance, providing Go methods to read and write attributes on self.
type Object struct {
	inst *runtime.PyInstance
}

// attrStore returns whichever of Dict/Slots backs this instance's
// attributes, and false if it has neither (shouldn't normally happen).
func (o Object) attrStore() (map[string]runtime.Value, bool) {
	if o.inst.Dict != nil {
		return o.inst.Dict, true
	}
	if o.inst.Slots != nil {
		return o.inst.Slots, true
	}
	return nil, false
}

// Get returns the value of an attribute on the instance.
func (o Object) Get(name string) Value {
	store, ok := o.attrStore()
	if !ok {
		return None
	}
	if v, ok := store[name]; ok {
		return fromRuntime(v)
	}
	return None
}

// Set sets an attribute on the instance.
func (o Object) Set(name string, val Value) {
	if store, ok := o.attrStore(); ok {
		store[name] = toRuntime(val)
	}
}

// Has returns true if the instance has the named attribute.
func (o Object) Has(name string) bool {
	store, ok := o.attrStore()
	if !ok {
		return false
	}
	_, found := store[name]
	return found
}

// Delete removes an attribute from the instance.
func (o Object) Delete(name string) {
	if store, ok := o.attrStore(); ok {
		delete(store, name)
	}
}

// ClassName returns the name of the instance's class.
func (o Object) ClassName() string {
	return o.inst.Class.Name
}

// Class returns the ClassValue of this instance.
func (o Object) Class() ClassValue {
	return ClassValue{class: o.inst.Class}
}

// Type returns the Python type name of this object.
func (o Object) Type() string { return o.inst.Class.Name }

// String returns a string representation of this object.
func (o Object) String() string { return o.inst.String() }

// GoValue returns the underlying *runtime.PyInstance.
func (o Object) GoValue() any { return o.inst }

// toRuntime returns the underlying runtime value.
func (o Object) toRuntime() runtime.Value { return o.inst }

// ClassValue wraps a *runtime.PyClass, implementing corvid.Value.
type ClassValue struct {
	class *runtime.PyClass
}

// Name returns the class name.
func (c ClassValue) Name() string { return c.class.Name }

// NewInstance creates a new instance of this class without calling __init__.
// Useful for Go code that wants to set up attributes manually.
func (c ClassValue) NewInstance() Object {
	inst := &runtime.PyInstance{
		Class: c.class,
		Dict:  make(map[string]runtime.Value),
	}
	return Object{inst: inst}
}

// Type returns "type".
func (c ClassValue) Type() string { return "type" }

// String returns the class string representation.
func (c ClassValue) String() string { return c.class.String() }

// GoValue returns the underlying *runtime.PyClass.
func (c ClassValue) GoValue() any { return c.class }

// toRuntime returns the underlying runtime value.
func (c ClassValue) toRuntime() runtime.Value { return c.class }

// methodDef stores a Go function to be wrapped as an instance method at Build time.
// All methods are stored kwargs-aware internally.
type methodDef struct {
	fn func(s *State, self Object, args []Value, kwargs map[string]Value) (Value, error)
}

// classMethodDef stores a Go function to be wrapped as a class method at Build time.
type classMethodDef struct {
	fn func(s *State, cls ClassValue, args []Value, kwargs map[string]Value) (Value, error)
}

// staticMethodDef stores a Go function to be wrapped as a static method at Build time.
type staticMethodDef struct {
	fn func(s *State, args []Value, kwargs map[string]Value) (Value, error)
}

// propertyDef stores getter/setter functions to be wrapped at Build time.
type propertyDef struct {
	getter func(s *State, self Object) (Value, error)
	setter func(s *State, self Object, val Value) error // nil for read-only
}

// ClassBuilder provides a fluent API for building Python classes from Go.
type ClassBuilder struct {
	name         string
	bases        []*runtime.PyClass
	initFn       func(s *State, self Object, args []Value, kwargs map[string]Value) error
	methods      map[string]methodDef
	classMethods map[string]classMethodDef
	statics      map[string]staticMethodDef
	properties   map[string]propertyDef
}

// NewClass starts building a new Python class with the given name.
func NewClass(name string) *ClassBuilder {
	return &ClassBuilder{
		name:         name,
		methods:      make(map[string]methodDef),
		classMethods: make(map[string]classMethodDef),
		statics:      make(map[string]staticMethodDef),
		properties:   make(map[string]propertyDef),
	}
}

// Base sets a single base class. If not called, defaults to object.
func (b *ClassBuilder) Base(base ClassValue) *ClassBuilder {
	b.bases = []*runtime.PyClass{base.class}
	return b
}

// Bases sets multiple base classes for multiple inheritance.
func (b *ClassBuilder) Bases(bases ...ClassValue) *ClassBuilder {
	b.bases = make([]*runtime.PyClass, len(bases))
	for i, base := range bases {
		b.bases[i] = base.class
	}
	return b
}

// Init sets the __init__ method.
func (b *ClassBuilder) Init(fn func(s *State, self Object, args ...Value) error) *ClassBuilder {
	b.initFn = func(s *State, self Object, args []Value, kwargs map[string]Value) error {
		return fn(s, self, args...)
	}
	return b
}

// InitKw sets the __init__ method with keyword argument support.
func (b *ClassBuilder) InitKw(fn func(s *State, self Object, args []Value, kwargs map[string]Value) error) *ClassBuilder {
	b.initFn = fn
	return b
}

// Method adds a regular instance method.
func (b *ClassBuilder) Method(name string, fn func(s *State, self Object, args ...Value) (Value, error)) *ClassBuilder {
	b.methods[name] = methodDef{fn: func(s *State, self Object, args []Value, kwargs map[string]Value) (Value, error) {
		return fn(s, self, args...)
	}}
	return b
}

// MethodKw adds an instance method with keyword argument support.
func (b *ClassBuilder) MethodKw(name string, fn func(s *State, self Object, args []Value, kwargs map[string]Value) (Value, error)) *ClassBuilder {
	b.methods[name] = methodDef{fn: fn}
	return b
}

// stringDunder registers a no-argument, string-returning dunder such as
// __str__/__repr__, wrapping the result as a Value.
func (b *ClassBuilder) stringDunder(name string, fn func(s *State, self Object) (string, error)) *ClassBuilder {
	b.methods[name] = methodDef{fn: func(s *State, self Object, args []Value, kwargs map[string]Value) (Value, error) {
		str, err := fn(s, self)
		if err != nil {
			return nil, err
		}
		return String(str), nil
	}}
	return b
}

// Str sets the __str__ method.
func (b *ClassBuilder) Str(fn func(s *State, self Object) (string, error)) *ClassBuilder {
	return b.stringDunder("__str__", fn)
}

// Repr sets the __repr__ method.
func (b *ClassBuilder) Repr(fn func(s *State, self Object) (string, error)) *ClassBuilder {
	return b.stringDunder("__repr__", fn)
}

// compareDunder registers a two-operand, bool-returning dunder such as
// __eq__/__lt__/__contains__. When the comparison's second argument is
// missing, `missing` supplies the fallback result or error (NotImplemented
// semantics differ per operator: __eq__ defaults to False, __lt__ etc.
// raise TypeError).
func (b *ClassBuilder) compareDunder(name string, fn func(s *State, self Object, other Value) (bool, error), missing func() (Value, error)) *ClassBuilder {
	b.methods[name] = methodDef{fn: func(s *State, self Object, args []Value, kwargs map[string]Value) (Value, error) {
		if len(args) < 1 {
			return missing()
		}
		result, err := fn(s, self, args[0])
		if err != nil {
			return nil, err
		}
		return Bool(result), nil
	}}
	return b
}

// Eq sets the __eq__ method.
func (b *ClassBuilder) Eq(fn func(s *State, self Object, other Value) (bool, error)) *ClassBuilder {
	return b.compareDunder("__eq__", fn, func() (Value, error) { return False, nil })
}

// Ne sets the __ne__ method.
func (b *ClassBuilder) Ne(fn func(s *State, self Object, other Value) (bool, error)) *ClassBuilder {
	return b.compareDunder("__ne__", fn, func() (Value, error) { return True, nil })
}

// Lt sets the __lt__ method.
func (b *ClassBuilder) Lt(fn func(s *State, self Object, other Value) (bool, error)) *ClassBuilder {
	return b.compareDunder("__lt__", fn, func() (Value, error) { return nil, TypeError("'<' not supported") })
}

// Le sets the __le__ method.
func (b *ClassBuilder) Le(fn func(s *State, self Object, other Value) (bool, error)) *ClassBuilder {
	return b.compareDunder("__le__", fn, func() (Value, error) { return nil, TypeError("'<=' not supported") })
}

// Gt sets the __gt__ method.
func (b *ClassBuilder) Gt(fn func(s *State, self Object, other Value) (bool, error)) *ClassBuilder {
	return b.compareDunder("__gt__", fn, func() (Value, error) { return nil, TypeError("'>' not supported") })
}

// Ge sets the __ge__ method.
func (b *ClassBuilder) Ge(fn func(s *State, self Object, other Value) (bool, error)) *ClassBuilder {
	return b.compareDunder("__ge__", fn, func() (Value, error) { return nil, TypeError("'>=' not supported") })
}

// Contains sets the __contains__ method.
func (b *ClassBuilder) Contains(fn func(s *State, self Object, item Value) (bool, error)) *ClassBuilder {
	return b.compareDunder("__contains__", fn, func() (Value, error) { return False, nil })
}

// intDunder registers a no-argument, int64-returning dunder such as
// __hash__/__len__.
func (b *ClassBuilder) intDunder(name string, fn func(s *State, self Object) (int64, error)) *ClassBuilder {
	b.methods[name] = methodDef{fn: func(s *State, self Object, args []Value, kwargs map[string]Value) (Value, error) {
		n, err := fn(s, self)
		if err != nil {
			return nil, err
		}
		return Int(n), nil
	}}
	return b
}

// Hash sets the __hash__ method.
func (b *ClassBuilder) Hash(fn func(s *State, self Object) (int64, error)) *ClassBuilder {
	return b.intDunder("__hash__", fn)
}

// Len sets the __len__ method.
func (b *ClassBuilder) Len(fn func(s *State, self Object) (int64, error)) *ClassBuilder {
	return b.intDunder("__len__", fn)
}

// GetItem sets the __getitem__ method.
func (b *ClassBuilder) GetItem(fn func(s *State, self Object, key Value) (Value, error)) *ClassBuilder {
	b.methods["__getitem__"] = methodDef{fn: func(s *State, self Object, args []Value, kwargs map[string]Value) (Value, error) {
		if len(args) < 1 {
			return nil, TypeError("__getitem__ requires a key argument")
		}
		return fn(s, self, args[0])
	}}
	return b
}

// SetItem sets the __setitem__ method.
func (b *ClassBuilder) SetItem(fn func(s *State, self Object, key, val Value) error) *ClassBuilder {
	b.methods["__setitem__"] = methodDef{fn: func(s *State, self Object, args []Value, kwargs map[string]Value) (Value, error) {
		if len(args) < 2 {
			return nil, TypeError("__setitem__ requires key and value arguments")
		}
		if err := fn(s, self, args[0], args[1]); err != nil {
			return nil, err
		}
		return None, nil
	}}
	return b
}

// DelItem sets the __delitem__ method.
func (b *ClassBuilder) DelItem(fn func(s *State, self Object, key Value) error) *ClassBuilder {
	b.methods["__delitem__"] = methodDef{fn: func(s *State, self Object, args []Value, kwargs map[string]Value) (Value, error) {
		if len(args) < 1 {
			return nil, TypeError("__delitem__ requires a key argument")
		}
		if err := fn(s, self, args[0]); err != nil {
			return nil, err
		}
		return None, nil
	}}
	return b
}

// Bool sets the __bool__ method.
func (b *ClassBuilder) Bool(fn func(s *State, self Object) (bool, error)) *ClassBuilder {
	b.methods["__bool__"] = methodDef{fn: func(s *State, self Object, args []Value, kwargs map[string]Value) (Value, error) {
		result, err := fn(s, self)
		if err != nil {
			return nil, err
		}
		return Bool(result), nil
	}}
	return b
}

// Dunder adds an arbitrary dunder method with raw variadic arguments.
func (b *ClassBuilder) Dunder(name string, fn func(s *State, self Object, args ...Value) (Value, error)) *ClassBuilder {
	b.methods[name] = methodDef{fn: func(s *State, self Object, args []Value, kwargs map[string]Value) (Value, error) {
		return fn(s, self, args...)
	}}
	return b
}

// Call sets the __call__ method, making instances callable.
func (b *ClassBuilder) Call(fn func(s *State, self Object, args ...Value) (Value, error)) *ClassBuilder {
	return b.Dunder("__call__", fn)
}

// noArgDunder registers a no-argument, Value-returning dunder such as
// __iter__/__next__/__enter__.
func (b *ClassBuilder) noArgDunder(name string, fn func(s *State, self Object) (Value, error)) *ClassBuilder {
	b.methods[name] = methodDef{fn: func(s *State, self Object, args []Value, kwargs map[string]Value) (Value, error) {
		return fn(s, self)
	}}
	return b
}

// Iter sets the __iter__ method. Return self for objects that are their own iterator.
func (b *ClassBuilder) Iter(fn func(s *State, self Object) (Value, error)) *ClassBuilder {
	return b.noArgDunder("__iter__", fn)
}

// Next sets the __next__ method. Return ErrStopIteration to signal end of iteration.
func (b *ClassBuilder) Next(fn func(s *State, self Object) (Value, error)) *ClassBuilder {
	return b.noArgDunder("__next__", fn)
}

// Enter sets the __enter__ method for context managers.
func (b *ClassBuilder) Enter(fn func(s *State, self Object) (Value, error)) *ClassBuilder {
	return b.noArgDunder("__enter__", fn)
}

// Exit sets the __exit__ method for context managers.
// Return true to suppress the exception, false to propagate it.
// excType, excVal, and excTb are None when no exception occurred.
func (b *ClassBuilder) Exit(fn func(s *State, self Object, excType, excVal, excTb Value) (bool, error)) *ClassBuilder {
	b.methods["__exit__"] = methodDef{fn: func(s *State, self Object, args []Value, kwargs map[string]Value) (Value, error) {
		excType, excVal, excTb := exitArgsOrNone(args)
		suppress, err := fn(s, self, excType, excVal, excTb)
		if err != nil {
			return nil, err
		}
		return Bool(suppress), nil
	}}
	return b
}

func exitArgsOrNone(args []Value) (excType, excVal, excTb Value) {
	excType, excVal, excTb = None, None, None
	if len(args) > 0 {
		excType = args[0]
	}
	if len(args) > 1 {
		excVal = args[1]
	}
	if len(args) > 2 {
		excTb = args[2]
	}
	return excType, excVal, excTb
}

// Property adds a read-only property.
func (b *ClassBuilder) Property(name string, getter func(s *State, self Object) (Value, error)) *ClassBuilder {
	b.properties[name] = propertyDef{getter: getter}
	return b
}

// PropertyWithSetter adds a read-write property.
func (b *ClassBuilder) PropertyWithSetter(name string, getter func(s *State, self Object) (Value, error), setter func(s *State, self Object, val Value) error) *ClassBuilder {
	b.properties[name] = propertyDef{getter: getter, setter: setter}
	return b
}

// ClassMethod adds a class method. The first argument to fn is the class, not an instance.
func (b *ClassBuilder) ClassMethod(name string, fn func(s *State, cls ClassValue, args ...Value) (Value, error)) *ClassBuilder {
	b.classMethods[name] = classMethodDef{fn: func(s *State, cls ClassValue, args []Value, kwargs map[string]Value) (Value, error) {
		return fn(s, cls, args...)
	}}
	return b
}

// ClassMethodKw adds a class method with keyword argument support.
func (b *ClassBuilder) ClassMethodKw(name string, fn func(s *State, cls ClassValue, args []Value, kwargs map[string]Value) (Value, error)) *ClassBuilder {
	b.classMethods[name] = classMethodDef{fn: fn}
	return b
}

// StaticMethod adds a static method. No self or cls is passed.
func (b *ClassBuilder) StaticMethod(name string, fn func(s *State, args ...Value) (Value, error)) *ClassBuilder {
	b.statics[name] = staticMethodDef{fn: func(s *State, args []Value, kwargs map[string]Value) (Value, error) {
		return fn(s, args...)
	}}
	return b
}

// StaticMethodKw adds a static method with keyword argument support.
func (b *ClassBuilder) StaticMethodKw(name string, fn func(s *State, args []Value, kwargs map[string]Value) (Value, error)) *ClassBuilder {
	b.statics[name] = staticMethodDef{fn: fn}
	return b
}

// resolveMRO computes the new class's MRO, falling back to a simple
// linear chain (self followed by each base's own MRO) if C3 linearization
// fails — e.g. an inconsistent multiple-inheritance hierarchy.
func resolveMRO(vm *runtime.VM, cls *runtime.PyClass, bases []*runtime.PyClass) []*runtime.PyClass {
	if mro, err := vm.ComputeC3MRO(cls, bases); err == nil {
		return mro
	}
	mro := []*runtime.PyClass{cls}
	for _, base := range bases {
		mro = append(mro, base.Mro...)
	}
	return mro
}

// Build creates the Python class and registers it in the given State.
// Returns a ClassValue that can be passed to State.SetGlobal.
func (b *ClassBuilder) Build(s *State) ClassValue {
	vm := s.vm
	objectClass := vm.GetBuiltin("object").(*runtime.PyClass)

	bases := b.bases
	if len(bases) == 0 {
		bases = []*runtime.PyClass{objectClass}
	}

	cls := &runtime.PyClass{
		Name:  b.name,
		Bases: bases,
		Dict:  make(map[string]runtime.Value),
	}
	cls.Mro = resolveMRO(vm, cls, bases)

	if typeClass, ok := vm.GetBuiltin("type").(*runtime.PyClass); ok {
		cls.Metaclass = typeClass
	}

	if b.initFn != nil {
		initFn := b.initFn
		cls.Dict["__init__"] = makeInstanceMethodKw(b.name, "__init__", s, func(s *State, self Object, args []Value, kwargs map[string]Value) (Value, error) {
			if err := initFn(s, self, args, kwargs); err != nil {
				return nil, err
			}
			return None, nil
		})
	}

	for name, def := range b.methods {
		cls.Dict[name] = makeInstanceMethodKw(b.name, name, s, def.fn)
	}

	for name, def := range b.classMethods {
		cls.Dict[name] = makeClassMethod(b.name, name, s, def.fn)
	}

	for name, def := range b.statics {
		cls.Dict[name] = makeStaticMethod(b.name, name, s, def.fn)
	}

	for name, def := range b.properties {
		cls.Dict[name] = makeProperty(b.name, name, s, def)
	}

	return ClassValue{class: cls}
}

// convertArgs converts a slice of runtime.Values to corvid Values,
// skipping the leading `skip` entries (the self or class argument the
// runtime prepends, which the caller has already extracted separately).
func convertArgs(args []runtime.Value, skip int) []Value {
	result := make([]Value, len(args)-skip)
	for i := skip; i < len(args); i++ {
		result[i-skip] = fromRuntime(args[i])
	}
	return result
}

// finishCall adapts a builder callback's (Value, error) result to the
// runtime calling convention, treating a nil Value as None.
func finishCall(result Value, err error) (runtime.Value, error) {
	if err != nil {
		return nil, err
	}
	if result == nil {
		return runtime.None, nil
	}
	return toRuntime(result), nil
}

// makeInstanceMethodKw creates a *PyBuiltinFunc that extracts self from args[0],
// wraps it in Object, converts kwargs, and calls the Go function.
func makeInstanceMethodKw(className, methodName string, s *State, fn func(s *State, self Object, args []Value, kwargs map[string]Value) (Value, error)) *runtime.PyBuiltinFunc {
	return &runtime.PyBuiltinFunc{
		Name: className + "." + methodName,
		Fn: func(args []runtime.Value, kwargs map[string]runtime.Value) (runtime.Value, error) {
			if len(args) < 1 {
				return nil, fmt.Errorf("TypeError: %s.%s() requires self", className, methodName)
			}
			inst, ok := args[0].(*runtime.PyInstance)
			if !ok {
				return nil, fmt.Errorf("TypeError: %s.%s() self must be an instance, got %T", className, methodName, args[0])
			}
			result, err := fn(s, Object{inst: inst}, convertArgs(args, 1), convertKwargs(kwargs))
			return finishCall(result, err)
		},
	}
}

// makeClassMethod creates the *PyClassMethod registered in the class Dict
// for a ClassMethod/ClassMethodKw builder entry.
func makeClassMethod(className, methodName string, s *State, fn func(s *State, cls ClassValue, args []Value, kwargs map[string]Value) (Value, error)) *runtime.PyClassMethod {
	return &runtime.PyClassMethod{
		Func: &runtime.PyBuiltinFunc{
			Name: className + "." + methodName,
			Fn: func(args []runtime.Value, kwargs map[string]runtime.Value) (runtime.Value, error) {
				if len(args) < 1 {
					return nil, fmt.Errorf("TypeError: %s.%s() requires a class argument", className, methodName)
				}
				clsArg, ok := args[0].(*runtime.PyClass)
				if !ok {
					return nil, fmt.Errorf("TypeError: %s.%s() first argument must be a class", className, methodName)
				}
				result, err := fn(s, ClassValue{class: clsArg}, convertArgs(args, 1), convertKwargs(kwargs))
				return finishCall(result, err)
			},
		},
	}
}

// makeStaticMethod creates the *PyStaticMethod registered in the class Dict
// for a StaticMethod/StaticMethodKw builder entry.
func makeStaticMethod(className, methodName string, s *State, fn func(s *State, args []Value, kwargs map[string]Value) (Value, error)) *runtime.PyStaticMethod {
	return &runtime.PyStaticMethod{
		Func: &runtime.PyBuiltinFunc{
			Name: className + "." + methodName,
			Fn: func(args []runtime.Value, kwargs map[string]runtime.Value) (runtime.Value, error) {
				result, err := fn(s, convertArgs(args, 0), convertKwargs(kwargs))
				return finishCall(result, err)
			},
		},
	}
}

// makeProperty creates the *PyProperty registered in the class Dict for a
// Property/PropertyWithSetter builder entry.
func makeProperty(className, name string, s *State, def propertyDef) *runtime.PyProperty {
	prop := &runtime.PyProperty{}
	if def.getter != nil {
		getter := def.getter
		prop.Fget = makeInstanceMethodKw(className, name+".fget", s, func(s *State, self Object, args []Value, kwargs map[string]Value) (Value, error) {
			return getter(s, self)
		})
	}
	if def.setter != nil {
		setter := def.setter
		prop.Fset = makeInstanceMethodKw(className, name+".fset", s, func(s *State, self Object, args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) < 1 {
				return nil, TypeError("property setter requires a value")
			}
			if err := setter(s, self, args[0]); err != nil {
				return nil, err
			}
			return None, nil
		})
	}
	return prop
}

// convertKwargs converts runtime kwargs to corvid kwargs.
func convertKwargs(kwargs map[string]runtime.Value) map[string]Value {
	if len(kwargs) == 0 {
		return nil
	}
	result := make(map[string]Value, len(kwargs))
	for k, v := range kwargs {
		result[k] = fromRuntime(v)
	}
	return result
}
