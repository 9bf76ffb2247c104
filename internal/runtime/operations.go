package runtime

// isInstanceOf reports whether inst's class is cls or descends from it.
func (vm *VM) isInstanceOf(inst *PyInstance, cls *PyClass) bool {
	return inst.Class == cls || vm.isSubclassOf(inst.Class, cls)
}

// isSubclassOf walks cls's base-class graph looking for target.
func (vm *VM) isSubclassOf(cls, target *PyClass) bool {
	if cls == target {
		return true
	}
	for _, base := range cls.Bases {
		if vm.isSubclassOf(base, target) {
			return true
		}
	}
	return false
}

// hasMethod reports whether name resolves to something in instance's MRO.
func (vm *VM) hasMethod(instance *PyInstance, name string) bool {
	for _, cls := range instance.Class.Mro {
		if _, ok := cls.Dict[name]; ok {
			return true
		}
	}
	return false
}

// invokeMethod calls a class-dict entry (a PyFunction or PyBuiltinFunc)
// with self prepended to args.
func (vm *VM) invokeMethod(method Value, self Value, args []Value) (Value, bool, error) {
	allArgs := append([]Value{self}, args...)
	switch fn := method.(type) {
	case *PyFunction:
		result, err := vm.callFunction(fn, allArgs, nil)
		return result, true, err
	case *PyBuiltinFunc:
		result, err := fn.Fn(allArgs, nil)
		return result, true, err
	}
	return nil, false, nil
}

// callDunder resolves name through instance's MRO (falling back to its
// class dict directly when the MRO hasn't been computed) and calls it with
// instance bound as self.
func (vm *VM) callDunder(instance *PyInstance, name string, args ...Value) (Value, bool, error) {
	mro := instance.Class.Mro
	if len(mro) == 0 {
		if method, ok := instance.Class.Dict[name]; ok {
			return vm.invokeMethod(method, instance, args)
		}
		return nil, false, nil
	}
	for _, cls := range mro {
		method, ok := cls.Dict[name]
		if !ok {
			continue
		}
		return vm.invokeMethod(method, instance, args)
	}
	return nil, false, nil
}

// callDel invokes __del__ on val if it is an instance defining one.
// CPython swallows exceptions raised during finalization, so errors here
// are dropped rather than propagated.
func (vm *VM) callDel(val Value) {
	inst, ok := val.(*PyInstance)
	if !ok {
		return
	}
	for _, cls := range inst.Class.Mro {
		method, ok := cls.Dict["__del__"]
		if !ok {
			continue
		}
		vm.invokeMethod(method, inst, nil)
		return
	}
}
