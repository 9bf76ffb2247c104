package runtime

import (
	"fmt"
	"sort"
)

// initBuiltinsClasses registers class-related builtins: __build_class__, object, type,
// property, classmethod, staticmethod, super, __import__, and constants (None/True/False/NotImplemented).
func (vm *VM) initBuiltinsClasses() {
	vm.builtins["__import__"] = vm.makeImportBuiltin()

	vm.builtins["None"] = None
	vm.builtins["True"] = True
	vm.builtins["False"] = False
	vm.builtins["NotImplemented"] = NotImplemented

	vm.builtins["__build_class__"] = vm.makeBuildClassBuiltin()
	vm.builtins["property"] = vm.makePropertyBuiltin()
	vm.builtins["classmethod"] = vm.makeClassMethodBuiltin()
	vm.builtins["staticmethod"] = vm.makeStaticMethodBuiltin()
	vm.builtins["super"] = vm.makeSuperBuiltin()

	objectClass := vm.installObjectClass()
	vm.installTypeClass(objectClass)
}

// makeImportBuiltin implements __import__(name, globals=None, locals=None, fromlist=(), level=0).
func (vm *VM) makeImportBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "__import__",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) < 1 {
				return nil, fmt.Errorf("TypeError: __import__() missing required argument: 'name'")
			}
			nameStr, ok := args[0].(*PyString)
			if !ok {
				return nil, fmt.Errorf("TypeError: __import__() argument 1 must be str, not %s", vm.typeName(args[0]))
			}

			globalsDict := vm.importGlobals(args)
			fromlist := vm.importFromlist(args, kwargs)
			level := vm.importLevel(args, kwargs)

			resolvedName, err := vm.resolveImportName(nameStr.Value, level, globalsDict)
			if err != nil {
				return nil, err
			}

			rootMod, targetMod, err := vm.importDottedChain(resolvedName)
			if err != nil {
				return nil, err
			}

			if len(fromlist) > 0 {
				return targetMod, nil
			}
			return rootMod, nil
		},
	}
}

// importGlobals extracts the globals dict argument for relative import resolution,
// falling back to the current frame's globals.
func (vm *VM) importGlobals(args []Value) map[string]Value {
	if len(args) > 1 {
		if d, ok := args[1].(*PyDict); ok {
			globals := make(map[string]Value)
			for k, v := range d.Items {
				if ks, ok := k.(*PyString); ok {
					globals[ks.Value] = v
				}
			}
			return globals
		}
	}
	if vm.frame != nil {
		return vm.frame.Globals
	}
	return nil
}

// importFromlist extracts the fromlist argument (arg 3 or kwarg) as a list of names.
func (vm *VM) importFromlist(args []Value, kwargs map[string]Value) []string {
	var fromlistVal Value
	if len(args) > 3 {
		fromlistVal = args[3]
	}
	if v, ok := kwargs["fromlist"]; ok {
		fromlistVal = v
	}
	if fromlistVal == nil || fromlistVal == None {
		return nil
	}
	var names []string
	switch fl := fromlistVal.(type) {
	case *PyTuple:
		for _, item := range fl.Items {
			if s, ok := item.(*PyString); ok {
				names = append(names, s.Value)
			}
		}
	case *PyList:
		for _, item := range fl.Items {
			if s, ok := item.(*PyString); ok {
				names = append(names, s.Value)
			}
		}
	}
	return names
}

// importLevel extracts the level argument (arg 4 or kwarg) controlling relative import depth.
func (vm *VM) importLevel(args []Value, kwargs map[string]Value) int {
	level := 0
	if len(args) > 4 {
		if li, ok := args[4].(*PyInt); ok {
			level = int(li.Value)
		}
	}
	if v, ok := kwargs["level"]; ok {
		if li, ok := v.(*PyInt); ok {
			level = int(li.Value)
		}
	}
	return level
}

// resolveImportName resolves a relative import (level > 0) against the importing
// module's __package__/__name__, otherwise returns moduleName unchanged.
func (vm *VM) resolveImportName(moduleName string, level int, globals map[string]Value) (string, error) {
	if level == 0 {
		return moduleName, nil
	}
	packageName := ""
	if globals != nil {
		if pkgVal, ok := globals["__package__"]; ok {
			if pkgStr, ok := pkgVal.(*PyString); ok {
				packageName = pkgStr.Value
			}
		}
		if packageName == "" {
			if nameVal, ok := globals["__name__"]; ok {
				if nameStr, ok := nameVal.(*PyString); ok {
					packageName = nameStr.Value
				}
			}
		}
	}
	return ResolveRelativeImport(moduleName, level, packageName)
}

// importDottedChain imports each dotted component of name in turn, returning both
// the root package module and the final (target) module.
func (vm *VM) importDottedChain(name string) (root, target *PyModule, err error) {
	parts := splitModuleName(name)
	for i := range parts {
		partialName := joinModuleName(parts[:i+1])
		mod, importErr := vm.ImportModule(partialName)
		if importErr != nil {
			return nil, nil, importErr
		}
		if i == 0 {
			root = mod
		}
		target = mod
	}
	return root, target, nil
}

// makeBuildClassBuiltin implements __build_class__(body_func, name, *bases, metaclass=None, **kwds).
func (vm *VM) makeBuildClassBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "__build_class__",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) < 2 {
				return nil, fmt.Errorf("__build_class__: not enough arguments")
			}
			bodyFunc, ok := args[0].(*PyFunction)
			if !ok {
				return nil, fmt.Errorf("__build_class__: first argument must be a function")
			}
			nameVal, ok := args[1].(*PyString)
			if !ok {
				return nil, fmt.Errorf("__build_class__: second argument must be a string")
			}
			className := nameVal.Value

			bases := vm.resolveClassBases(args[2:])
			objectClass := vm.builtins["object"].(*PyClass)
			if len(bases) == 0 {
				bases = []*PyClass{objectClass}
			}

			classDict, cells, orderedKeys, err := vm.callClassBody(bodyFunc)
			if err != nil {
				return nil, fmt.Errorf("__build_class__: error executing class body: %w", err)
			}

			typeClass := vm.builtins["type"].(*PyClass)
			metaclass := vm.resolveMetaclass(kwargs, bases, typeClass)

			var class *PyClass
			if metaclass != nil && metaclass != typeClass {
				class, err = vm.buildClassViaMetaclass(metaclass, className, bases, classDict, orderedKeys, kwargs)
			} else {
				class, err = vm.buildClassStandard(className, bases, classDict, typeClass)
			}
			if err != nil {
				return nil, err
			}
			if class == nil {
				// buildClassViaMetaclass returned a non-PyClass __new__ result directly.
				return nil, fmt.Errorf("__build_class__: metaclass did not produce a class")
			}

			if err := vm.callSetName(class); err != nil {
				return nil, err
			}
			if err := vm.callInitSubclass(class, kwargs); err != nil {
				return nil, err
			}

			// Populate the __class__ cell if present (for zero-argument super() support).
			for i, cellName := range bodyFunc.Code.CellVars {
				if cellName == "__class__" && i < len(cells) && cells[i] != nil {
					cells[i].Value = class
					break
				}
			}

			return class, nil
		},
	}
}

// resolveClassBases converts raw __build_class__ base arguments to *PyClass,
// resolving __mro_entries__ for non-class bases such as GenericAlias.
func (vm *VM) resolveClassBases(originalBases []Value) []*PyClass {
	var bases []*PyClass
	for _, baseArg := range originalBases {
		if base, ok := baseArg.(*PyClass); ok {
			bases = append(bases, base)
			continue
		}
		origTuple := &PyTuple{Items: make([]Value, len(originalBases))}
		copy(origTuple.Items, originalBases)
		mroEntries, err := vm.getAttr(baseArg, "__mro_entries__")
		if err != nil {
			continue
		}
		result, callErr := vm.call(mroEntries, []Value{origTuple}, nil)
		if callErr != nil {
			continue
		}
		switch entries := result.(type) {
		case *PyTuple:
			for _, entry := range entries.Items {
				if cls, ok := entry.(*PyClass); ok {
					bases = append(bases, cls)
				}
			}
		case *PyList:
			for _, entry := range entries.Items {
				if cls, ok := entry.(*PyClass); ok {
					bases = append(bases, cls)
				}
			}
		}
	}
	return bases
}

// resolveMetaclass determines the metaclass for a new class: an explicit metaclass=
// kwarg takes priority, otherwise the most derived metaclass among the bases wins.
func (vm *VM) resolveMetaclass(kwargs map[string]Value, bases []*PyClass, typeClass *PyClass) *PyClass {
	if mc, ok := kwargs["metaclass"]; ok {
		if mcClass, ok := mc.(*PyClass); ok {
			return mcClass
		}
	}
	var metaclass *PyClass
	for _, base := range bases {
		if base.Metaclass == nil || base.Metaclass == typeClass {
			continue
		}
		if metaclass == nil {
			metaclass = base.Metaclass
			continue
		}
		for _, m := range base.Metaclass.Mro {
			if m == metaclass {
				metaclass = base.Metaclass
				break
			}
		}
	}
	return metaclass
}

// buildClassViaMetaclass creates a class by calling metaclass.__new__/__init__ through
// the metaclass's MRO, mirroring CPython's type.__call__ path for custom metaclasses.
func (vm *VM) buildClassViaMetaclass(metaclass *PyClass, className string, bases []*PyClass, classDict map[string]Value, orderedKeys []string, kwargs map[string]Value) (*PyClass, error) {
	basesItems := make([]Value, len(bases))
	for i, b := range bases {
		basesItems[i] = b
	}
	basesTuple := &PyTuple{Items: basesItems}
	nsDict := orderedNamespaceDict(vm, classDict, orderedKeys)
	nameStr := &PyString{Value: className}

	var newResult Value
	var err error
	for _, cls := range metaclass.Mro {
		newMethod, ok := cls.Dict["__new__"]
		if !ok {
			continue
		}
		newArgs := []Value{metaclass, nameStr, basesTuple, nsDict}
		switch nm := newMethod.(type) {
		case *PyFunction:
			newResult, err = vm.callFunction(nm, newArgs, kwargs)
		case *PyBuiltinFunc:
			newResult, err = nm.Fn(newArgs, kwargs)
		case *PyStaticMethod:
			newResult, err = vm.call(nm.Func, newArgs, kwargs)
		}
		if err != nil {
			return nil, err
		}
		break
	}
	if newResult == nil {
		return nil, fmt.Errorf("TypeError: metaclass __new__ did not return a value")
	}

	class, ok := newResult.(*PyClass)
	if !ok {
		return nil, nil
	}
	class.Metaclass = metaclass
	if class.Slots == nil {
		if slots := extractSlots(class.Dict, bases); slots != nil {
			class.Slots = slots
		}
	}

	for _, mroClass := range metaclass.Mro {
		initMethod, ok := mroClass.Dict["__init__"]
		if !ok {
			continue
		}
		initArgs := []Value{class, nameStr, basesTuple, nsDict}
		switch im := initMethod.(type) {
		case *PyFunction:
			_, err = vm.callFunction(im, initArgs, kwargs)
		case *PyBuiltinFunc:
			_, err = im.Fn(initArgs, kwargs)
		}
		if err != nil {
			return nil, err
		}
		break
	}
	return class, nil
}

// orderedNamespaceDict builds a PyDict from a class body's namespace, preserving
// definition order for the keys the compiler tracked.
func orderedNamespaceDict(vm *VM, classDict map[string]Value, orderedKeys []string) *PyDict {
	nsDict := &PyDict{Items: make(map[Value]Value), buckets: make(map[uint64][]dictEntry)}
	seen := make(map[string]bool, len(orderedKeys))
	for _, k := range orderedKeys {
		if v, ok := classDict[k]; ok {
			nsDict.DictSet(&PyString{Value: k}, v, vm)
			seen[k] = true
		}
	}
	for k, v := range classDict {
		if !seen[k] {
			nsDict.DictSet(&PyString{Value: k}, v, vm)
		}
	}
	return nsDict
}

// buildClassStandard creates a class the ordinary way (metaclass == type), computing
// its MRO and, for ABC subclasses, its abstract-method bookkeeping.
func (vm *VM) buildClassStandard(className string, bases []*PyClass, classDict map[string]Value, typeClass *PyClass) (*PyClass, error) {
	slots := extractSlots(classDict, bases)
	class := &PyClass{
		Name:      className,
		Bases:     bases,
		Dict:      classDict,
		Metaclass: typeClass,
		Slots:     slots,
	}

	mro, err := vm.ComputeC3MRO(class, bases)
	if err != nil {
		return nil, err
	}
	class.Mro = mro

	for _, base := range bases {
		if base.IsABC {
			class.IsABC = true
			break
		}
	}
	if class.IsABC {
		vm.collectAbstractMethods(class, mro, classDict)
		vm.injectABCRegister(class)
	}
	return class, nil
}

// collectAbstractMethods scans the MRO for abstract methods the current class doesn't
// override, recording the result as __abstractmethods__ for the instantiation guard.
func (vm *VM) collectAbstractMethods(class *PyClass, mro []*PyClass, classDict map[string]Value) {
	abstractMethods := make(map[string]bool)
	for _, cls := range mro[1:] {
		for name, val := range cls.Dict {
			if isAbstractValue(val) {
				abstractMethods[name] = true
			}
		}
	}
	for name, val := range classDict {
		if isAbstractValue(val) {
			abstractMethods[name] = true
		} else {
			delete(abstractMethods, name)
		}
	}
	if len(abstractMethods) == 0 {
		return
	}
	items := make([]Value, 0, len(abstractMethods))
	for name := range abstractMethods {
		items = append(items, &PyString{Value: name})
	}
	class.Dict["__abstractmethods__"] = &PyList{Items: items}
}

// injectABCRegister adds a register() classmethod to an ABC class if one isn't
// already user-defined, supporting the ABCMeta.register() virtual-subclass protocol.
func (vm *VM) injectABCRegister(class *PyClass) {
	if _, hasRegister := class.Dict["register"]; hasRegister {
		return
	}
	thisClass := class
	class.Dict["register"] = &PyBuiltinFunc{
		Name: "register",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("TypeError: register() takes exactly 1 argument (%d given)", len(args))
			}
			subcls, ok := args[0].(*PyClass)
			if !ok {
				return nil, fmt.Errorf("TypeError: register() argument must be a class")
			}
			for _, existing := range thisClass.RegisteredSubclasses {
				if existing == subcls {
					return subcls, nil
				}
			}
			thisClass.RegisteredSubclasses = append(thisClass.RegisteredSubclasses, subcls)
			return subcls, nil
		},
	}
}

// makePropertyBuiltin implements property(fget=None, fset=None, fdel=None, doc=None).
func (vm *VM) makePropertyBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "property",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			prop := &PyProperty{}
			if len(args) > 0 && args[0] != None {
				prop.Fget = args[0]
			}
			if len(args) > 1 && args[1] != None {
				prop.Fset = args[1]
			}
			if len(args) > 2 && args[2] != None {
				prop.Fdel = args[2]
			}
			if len(args) > 3 {
				if s, ok := args[3].(*PyString); ok {
					prop.Doc = s.Value
				}
			}
			if fget, ok := kwargs["fget"]; ok && fget != None {
				prop.Fget = fget
			}
			if fset, ok := kwargs["fset"]; ok && fset != None {
				prop.Fset = fset
			}
			if fdel, ok := kwargs["fdel"]; ok && fdel != None {
				prop.Fdel = fdel
			}
			if doc, ok := kwargs["doc"]; ok {
				if s, ok := doc.(*PyString); ok {
					prop.Doc = s.Value
				}
			}
			return prop, nil
		},
	}
}

// makeClassMethodBuiltin implements classmethod(func), binding the class as the first argument.
func (vm *VM) makeClassMethodBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "classmethod",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("classmethod expected 1 argument, got %d", len(args))
			}
			return &PyClassMethod{Func: args[0]}, nil
		},
	}
}

// makeStaticMethodBuiltin implements staticmethod(func), suppressing implicit binding.
func (vm *VM) makeStaticMethodBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "staticmethod",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("staticmethod expected 1 argument, got %d", len(args))
			}
			return &PyStaticMethod{Func: args[0]}, nil
		},
	}
}

// makeSuperBuiltin implements super(), super(type), and super(type, obj-or-type).
func (vm *VM) makeSuperBuiltin() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "super",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			thisClass, instance, err := vm.resolveSuperArgs(args)
			if err != nil {
				return nil, err
			}
			mro, err := vm.superSearchMRO(thisClass, instance)
			if err != nil {
				return nil, err
			}
			startIdx := 0
			for i, cls := range mro {
				if cls == thisClass {
					startIdx = i + 1
					break
				}
			}
			return &PySuper{ThisClass: thisClass, Instance: instance, StartIdx: startIdx}, nil
		},
	}
}

// resolveSuperArgs handles the three super() call forms: zero-argument (reads
// __class__ and self from the caller's frame), one-argument, and two-argument.
func (vm *VM) resolveSuperArgs(args []Value) (thisClass *PyClass, instance Value, err error) {
	switch len(args) {
	case 0:
		return vm.superFromCallerFrame()
	case 1:
		cls, ok := args[0].(*PyClass)
		if !ok {
			return nil, nil, fmt.Errorf("super() argument 1 must be type, not %s", vm.typeName(args[0]))
		}
		return cls, nil, nil
	case 2:
		cls, ok := args[0].(*PyClass)
		if !ok {
			return nil, nil, fmt.Errorf("super() argument 1 must be type, not %s", vm.typeName(args[0]))
		}
		return cls, args[1], nil
	default:
		return nil, nil, fmt.Errorf("super() takes 0, 1, or 2 arguments (%d given)", len(args))
	}
}

// superFromCallerFrame implements the zero-argument super() form by reading the
// enclosing method's __class__ cell and its first local (self).
func (vm *VM) superFromCallerFrame() (*PyClass, Value, error) {
	var thisClass *PyClass
	var instance Value
	callerFrame := vm.frame
	if callerFrame != nil && callerFrame.Code != nil {
		for i, name := range callerFrame.Code.FreeVars {
			if name == "__class__" && i < len(callerFrame.Cells) {
				if cls, ok := callerFrame.Cells[i].Value.(*PyClass); ok {
					thisClass = cls
				}
			}
		}
		if len(callerFrame.Code.VarNames) > 0 && len(callerFrame.Locals) > 0 {
			instance = callerFrame.Locals[0]
		}
	}
	if thisClass == nil {
		return nil, nil, fmt.Errorf("super(): __class__ cell not found")
	}
	if instance == nil {
		return nil, nil, fmt.Errorf("super(): self argument not found")
	}
	return thisClass, instance, nil
}

// superSearchMRO picks the MRO to search for super(): the instance's class MRO, or
// (for class-level super calls) the metaclass MRO when thisClass lives there.
func (vm *VM) superSearchMRO(thisClass *PyClass, instance Value) ([]*PyClass, error) {
	switch inst := instance.(type) {
	case *PyInstance:
		return inst.Class.Mro, nil
	case *PyClass:
		if inst.Metaclass != nil {
			for _, mc := range inst.Metaclass.Mro {
				if mc == thisClass {
					return inst.Metaclass.Mro, nil
				}
			}
		}
		return inst.Mro, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("super(type, obj): obj must be an instance or subtype of type")
	}
}

// installObjectClass registers the "object" base class and its dunder methods.
func (vm *VM) installObjectClass() *PyClass {
	objectClass := &PyClass{
		Name:  "object",
		Bases: nil,
		Dict:  make(map[string]Value),
		Mro:   nil,
	}
	objectClass.Mro = []*PyClass{objectClass}
	vm.builtins["object"] = objectClass

	objectClass.Dict["__getattribute__"] = vm.makeObjectGetAttribute()
	objectClass.Dict["__setattr__"] = vm.makeObjectSetAttr()
	objectClass.Dict["__delattr__"] = vm.makeObjectDelAttr()
	objectClass.Dict["__sizeof__"] = vm.makeObjectSizeof()
	objectClass.Dict["__init_subclass__"] = &PyClassMethod{Func: &PyBuiltinFunc{
		Name: "__init_subclass__",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			return None, nil
		},
	}}
	objectClass.Dict["__new__"] = vm.makeObjectNew()
	return objectClass
}

func (vm *VM) makeObjectGetAttribute() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "object.__getattribute__",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("object.__getattribute__() takes exactly 2 arguments (%d given)", len(args))
			}
			inst, ok := args[0].(*PyInstance)
			if !ok {
				return nil, fmt.Errorf("descriptor '__getattribute__' requires a 'object' instance")
			}
			name, ok := args[1].(*PyString)
			if !ok {
				return nil, fmt.Errorf("attribute name must be string, not '%s'", vm.typeName(args[1]))
			}
			return vm.defaultGetAttribute(inst, name.Value)
		},
	}
}

func (vm *VM) makeObjectSetAttr() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "object.__setattr__",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 3 {
				return nil, fmt.Errorf("object.__setattr__() takes exactly 3 arguments (%d given)", len(args))
			}
			inst, ok := args[0].(*PyInstance)
			if !ok {
				return nil, fmt.Errorf("descriptor '__setattr__' requires a 'object' instance")
			}
			name, ok := args[1].(*PyString)
			if !ok {
				return nil, fmt.Errorf("attribute name must be string, not '%s'", vm.typeName(args[1]))
			}
			for _, cls := range inst.Class.Mro {
				clsVal, ok := cls.Dict[name.Value]
				if !ok {
					continue
				}
				if prop, ok := clsVal.(*PyProperty); ok {
					if prop.Fset == nil {
						return nil, fmt.Errorf("property '%s' has no setter", name.Value)
					}
					if _, err := vm.call(prop.Fset, []Value{inst, args[2]}, nil); err != nil {
						return nil, err
					}
					return None, nil
				}
				break
			}
			if inst.Slots != nil {
				if !isValidSlot(inst.Class, name.Value) {
					return nil, fmt.Errorf("AttributeError: '%s' object has no attribute '%s'", inst.Class.Name, name.Value)
				}
				inst.Slots[name.Value] = args[2]
			} else {
				inst.Dict[name.Value] = args[2]
			}
			return None, nil
		},
	}
}

func (vm *VM) makeObjectDelAttr() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "object.__delattr__",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("object.__delattr__() takes exactly 2 arguments (%d given)", len(args))
			}
			inst, ok := args[0].(*PyInstance)
			if !ok {
				return nil, fmt.Errorf("descriptor '__delattr__' requires a 'object' instance")
			}
			name, ok := args[1].(*PyString)
			if !ok {
				return nil, fmt.Errorf("attribute name must be string, not '%s'", vm.typeName(args[1]))
			}
			for _, cls := range inst.Class.Mro {
				clsVal, ok := cls.Dict[name.Value]
				if !ok {
					continue
				}
				if prop, ok := clsVal.(*PyProperty); ok {
					if prop.Fdel == nil {
						return nil, fmt.Errorf("property '%s' has no deleter", name.Value)
					}
					if _, err := vm.call(prop.Fdel, []Value{inst}, nil); err != nil {
						return nil, err
					}
					return None, nil
				}
				if descInst, ok := clsVal.(*PyInstance); ok {
					if _, found, err := vm.callDunder(descInst, "__delete__", inst); found {
						if err != nil {
							return nil, err
						}
						return None, nil
					}
				}
				break
			}
			if inst.Slots != nil {
				if _, exists := inst.Slots[name.Value]; !exists {
					return nil, fmt.Errorf("AttributeError: '%s' object has no attribute '%s'", inst.Class.Name, name.Value)
				}
				delete(inst.Slots, name.Value)
			} else {
				if _, exists := inst.Dict[name.Value]; !exists {
					return nil, fmt.Errorf("AttributeError: '%s' object has no attribute '%s'", inst.Class.Name, name.Value)
				}
				delete(inst.Dict, name.Value)
			}
			return None, nil
		},
	}
}

func (vm *VM) makeObjectSizeof() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "object.__sizeof__",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) < 1 {
				return nil, fmt.Errorf("descriptor '__sizeof__' requires an argument")
			}
			inst, ok := args[0].(*PyInstance)
			if !ok {
				return MakeInt(64), nil
			}
			var size int64 = 64
			if inst.Dict != nil {
				size += int64(len(inst.Dict) * 16)
			}
			if inst.Slots != nil {
				size += int64(len(inst.Slots) * 16)
			}
			return MakeInt(size), nil
		},
	}
}

func (vm *VM) makeObjectNew() *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "object.__new__",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) < 1 {
				return nil, fmt.Errorf("object.__new__(): not enough arguments")
			}
			cls, ok := args[0].(*PyClass)
			if !ok {
				return nil, fmt.Errorf("object.__new__(X): X is not a type object (%s)", vm.typeName(args[0]))
			}
			if cls.Slots != nil {
				return &PyInstance{Class: cls, Slots: make(map[string]Value)}, nil
			}
			return &PyInstance{Class: cls, Dict: make(map[string]Value)}, nil
		},
	}
}

// installTypeClass registers "type", the metaclass of all classes, with its
// __new__/__init__/__call__ protocol methods.
func (vm *VM) installTypeClass(objectClass *PyClass) *PyClass {
	typeClass := &PyClass{
		Name:  "type",
		Bases: []*PyClass{objectClass},
		Dict:  make(map[string]Value),
	}
	typeClass.Mro = []*PyClass{typeClass, objectClass}
	vm.builtins["type"] = typeClass

	typeClass.Dict["__new__"] = &PyStaticMethod{Func: vm.makeTypeNew(typeClass, objectClass)}
	typeClass.Dict["__init__"] = &PyBuiltinFunc{
		Name: "type.__init__",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			return None, nil
		},
	}
	typeClass.Dict["__call__"] = &PyBuiltinFunc{
		Name: "type.__call__",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) < 1 {
				return nil, fmt.Errorf("TypeError: type.__call__() requires at least 1 argument")
			}
			cls, ok := args[0].(*PyClass)
			if !ok {
				return nil, fmt.Errorf("TypeError: descriptor '__call__' requires a 'type' object")
			}
			return vm.defaultClassCall(cls, args[1:], kwargs)
		},
	}
	return typeClass
}

// makeTypeNew implements type.__new__ in both its 2-arg form (type(x) -> type of x)
// and its 4-arg form (type(name, bases, namespace) -> new class).
func (vm *VM) makeTypeNew(typeClass, objectClass *PyClass) *PyBuiltinFunc {
	return &PyBuiltinFunc{
		Name: "type.__new__",
		Fn: func(args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) == 2 {
				return vm.typeOf(args[1], typeClass), nil
			}
			if len(args) == 4 {
				return vm.typeNewFromNamespace(args, objectClass)
			}
			return nil, fmt.Errorf("type.__new__() takes 2 or 4 arguments (%d given)", len(args))
		},
	}
}

// typeOf implements the type(x) one-argument query.
func (vm *VM) typeOf(v Value, typeClass *PyClass) Value {
	switch val := v.(type) {
	case *PyInstance:
		return val.Class
	case *PyClass:
		return typeClass
	default:
		typeName := vm.typeName(v)
		cls := &PyClass{Name: typeName}
		cls.Mro = []*PyClass{cls}
		return cls
	}
}

// typeNewFromNamespace implements the type(name, bases, namespace) three-argument form.
func (vm *VM) typeNewFromNamespace(args []Value, objectClass *PyClass) (Value, error) {
	mcs, ok := args[0].(*PyClass)
	if !ok {
		return nil, fmt.Errorf("TypeError: type.__new__(X): X is not a type object (%s)", vm.typeName(args[0]))
	}
	nameStr, ok := args[1].(*PyString)
	if !ok {
		return nil, fmt.Errorf("TypeError: type.__new__() argument 1 must be str, not %s", vm.typeName(args[1]))
	}
	basesTuple, ok := args[2].(*PyTuple)
	if !ok {
		return nil, fmt.Errorf("TypeError: type.__new__() argument 2 must be tuple, not %s", vm.typeName(args[2]))
	}
	nsDict, ok := args[3].(*PyDict)
	if !ok {
		return nil, fmt.Errorf("TypeError: type.__new__() argument 3 must be dict, not %s", vm.typeName(args[3]))
	}

	var bases []*PyClass
	for _, b := range basesTuple.Items {
		if bc, ok := b.(*PyClass); ok {
			bases = append(bases, bc)
		}
	}
	if len(bases) == 0 {
		bases = []*PyClass{objectClass}
	}

	classDict := make(map[string]Value)
	for k, v := range nsDict.Items {
		if ks, ok := k.(*PyString); ok {
			classDict[ks.Value] = v
		}
	}

	slots := extractSlots(classDict, bases)
	cls := &PyClass{
		Name:      nameStr.Value,
		Bases:     bases,
		Dict:      classDict,
		Metaclass: mcs,
		Slots:     slots,
	}

	mro, err := vm.ComputeC3MRO(cls, bases)
	if err != nil {
		return nil, err
	}
	cls.Mro = mro

	if mcs.IsABC {
		cls.IsABC = true
	}
	if !cls.IsABC {
		for _, base := range bases {
			if base.IsABC {
				cls.IsABC = true
				break
			}
		}
	}
	if cls.IsABC {
		vm.collectAbstractMethods(cls, mro, classDict)
	}

	if err := vm.callSetName(cls); err != nil {
		return nil, err
	}
	return cls, nil
}

// ComputeC3MRO computes the Method Resolution Order using C3 linearization, properly
// handling multiple inheritance and detecting inconsistent hierarchies.
func (vm *VM) ComputeC3MRO(class *PyClass, bases []*PyClass) ([]*PyClass, error) {
	if len(bases) == 0 {
		return []*PyClass{class}, nil
	}

	toMerge := make([][]*PyClass, 0, len(bases)+1)
	for _, base := range bases {
		baseMRO := make([]*PyClass, len(base.Mro))
		copy(baseMRO, base.Mro)
		toMerge = append(toMerge, baseMRO)
	}
	basesCopy := make([]*PyClass, len(bases))
	copy(basesCopy, bases)
	toMerge = append(toMerge, basesCopy)

	result := []*PyClass{class}
	for {
		toMerge = dropEmptyLists(toMerge)
		if len(toMerge) == 0 {
			break
		}
		candidate := pickC3Head(toMerge)
		if candidate == nil {
			msg := fmt.Sprintf("Cannot create a consistent method resolution order (MRO) for bases %s",
				vm.formatBases(bases))
			return nil, &PyException{
				ExcType:  vm.builtins["TypeError"].(*PyClass),
				Args:     &PyTuple{Items: []Value{&PyString{Value: msg}}},
				Message:  "TypeError: " + msg,
				TypeName: "TypeError",
			}
		}
		result = append(result, candidate)
		for i := range toMerge {
			if len(toMerge[i]) > 0 && toMerge[i][0] == candidate {
				toMerge[i] = toMerge[i][1:]
			}
		}
	}
	return result, nil
}

func dropEmptyLists(lists [][]*PyClass) [][]*PyClass {
	nonEmpty := lists[:0]
	for _, list := range lists {
		if len(list) > 0 {
			nonEmpty = append(nonEmpty, list)
		}
	}
	return nonEmpty
}

// pickC3Head finds a candidate head class that appears in no other list's tail.
func pickC3Head(lists [][]*PyClass) *PyClass {
	for _, list := range lists {
		head := list[0]
		if !classInAnyTail(head, lists) {
			return head
		}
	}
	return nil
}

func classInAnyTail(head *PyClass, lists [][]*PyClass) bool {
	for _, other := range lists {
		for i := 1; i < len(other); i++ {
			if other[i] == head {
				return true
			}
		}
	}
	return false
}

// sortedNameList converts a set of names to a sorted PyList of PyStrings.
func (vm *VM) sortedNameList(names map[string]bool) *PyList {
	sorted := make([]string, 0, len(names))
	for k := range names {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)
	items := make([]Value, len(sorted))
	for i, s := range sorted {
		items[i] = &PyString{Value: s}
	}
	return &PyList{Items: items}
}

// isAbstractValue reports whether a class-dict value is a method flagged abstract
// (directly, or through classmethod/staticmethod/property wrapping).
func isAbstractValue(v Value) bool {
	switch val := v.(type) {
	case *PyFunction:
		return val.IsAbstract
	case *PyProperty:
		if fn, ok := val.Fget.(*PyFunction); ok {
			return fn.IsAbstract
		}
	case *PyClassMethod:
		if fn, ok := val.Func.(*PyFunction); ok {
			return fn.IsAbstract
		}
	case *PyStaticMethod:
		if fn, ok := val.Func.(*PyFunction); ok {
			return fn.IsAbstract
		}
	}
	return false
}

// formatBases renders a list of base classes as a comma-separated name list for
// MRO-conflict error messages.
func (vm *VM) formatBases(bases []*PyClass) string {
	if len(bases) == 0 {
		return ""
	}
	names := make([]string, len(bases))
	for i, b := range bases {
		names[i] = b.Name
	}
	result := names[0]
	for i := 1; i < len(names); i++ {
		result += ", " + names[i]
	}
	return result
}

// callSetName calls __set_name__(owner, name) on any descriptor in the class dict
// that defines it. Invoked once, right after a new class is created.
func (vm *VM) callSetName(class *PyClass) error {
	for name, val := range class.Dict {
		inst, ok := val.(*PyInstance)
		if !ok {
			continue
		}
		if _, _, err := vm.callDunder(inst, "__set_name__", class, &PyString{Value: name}); err != nil {
			return fmt.Errorf("RuntimeError: __set_name__ of '%s' descriptor '%s' raised: %w",
				inst.Class.Name, name, err)
		}
	}
	return nil
}

// callInitSubclass calls __init_subclass__ on the nearest parent class that defines
// it, after a new class is created. Walks the MRO from index 1 to skip the new class.
func (vm *VM) callInitSubclass(class *PyClass, kwargs map[string]Value) error {
	filteredKwargs := filterOutMetaclassKwarg(kwargs)
	for i := 1; i < len(class.Mro); i++ {
		method, ok := class.Mro[i].Dict["__init_subclass__"]
		if !ok {
			continue
		}
		args := []Value{class}
		var err error
		switch m := method.(type) {
		case *PyClassMethod:
			_, err = vm.call(m.Func, args, filteredKwargs)
		case *PyFunction:
			_, err = vm.callFunction(m, args, filteredKwargs)
		case *PyBuiltinFunc:
			_, err = m.Fn(args, filteredKwargs)
		}
		return err
	}
	return nil
}

func filterOutMetaclassKwarg(kwargs map[string]Value) map[string]Value {
	if len(kwargs) == 0 {
		return nil
	}
	filtered := make(map[string]Value, len(kwargs))
	for k, v := range kwargs {
		if k != "metaclass" {
			filtered[k] = v
		}
	}
	return filtered
}
