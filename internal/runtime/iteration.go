package runtime

import (
	"fmt"
	"strings"
)

// isSelfIterating reports whether obj already satisfies the iterator
// protocol on its own (generators, coroutines, and iterators all return
// themselves from __iter__).
func isSelfIterating(obj Value) bool {
	switch obj.(type) {
	case *PyGenerator, *PyCoroutine, *PyIterator:
		return true
	default:
		return false
	}
}

// getIter produces an iterator for obj: self-iterating objects are
// returned as-is, lists get a live view so mutations during iteration are
// visible, objects with __iter__ delegate to it, and everything else is
// materialized via toList as a last resort.
func (vm *VM) getIter(obj Value) (Value, error) {
	if isSelfIterating(obj) {
		return obj, nil
	}

	if lst, ok := obj.(*PyList); ok {
		return &PyIterator{Source: lst, Index: 0}, nil
	}

	if iterMethod, err := vm.getAttr(obj, "__iter__"); err == nil {
		return vm.call(iterMethod, nil, nil)
	}

	items, err := vm.toList(obj)
	if err != nil {
		return nil, err
	}
	return &PyIterator{Items: items, Index: 0}, nil
}

// stopIterationRaised reports whether err represents a StopIteration
// signal — either a proper PyException or the plain-error-string
// convention used by Go-implemented __next__ methods — and, if so, clears
// the pending exception so it doesn't propagate past the loop consuming it.
func (vm *VM) stopIterationRaised(err error) bool {
	if pyErr, ok := err.(*PyException); ok && pyErr.Type() == "StopIteration" {
		vm.currentException = nil
		return true
	}
	if strings.HasPrefix(err.Error(), "StopIteration:") {
		vm.currentException = nil
		return true
	}
	return false
}

// iterNext advances iter by one step, reporting (value, exhausted, error).
func (vm *VM) iterNext(iter Value) (Value, bool, error) {
	switch it := iter.(type) {
	case *PyIterator:
		items := it.Items
		if it.Source != nil {
			items = it.Source.Items
		}
		if it.Index >= len(items) {
			return nil, true, nil
		}
		val := items[it.Index]
		it.Index++
		return val, false, nil

	case *PyGenerator:
		val, done, err := vm.GeneratorSend(it, None)
		if err != nil {
			if vm.stopIterationRaised(err) {
				return nil, true, nil
			}
			return nil, false, err
		}
		return val, done, nil

	case *PyCoroutine:
		val, done, err := vm.CoroutineSend(it, None)
		if err != nil {
			if vm.stopIterationRaised(err) {
				return nil, true, nil
			}
			return nil, false, err
		}
		return val, done, nil

	default:
		nextMethod, err := vm.getAttr(iter, "__next__")
		if err != nil {
			return nil, false, fmt.Errorf("'%s' object is not an iterator", vm.typeName(iter))
		}
		val, err := vm.call(nextMethod, nil, nil)
		if err != nil {
			if vm.stopIterationRaised(err) {
				return nil, true, nil
			}
			return nil, false, err
		}
		return val, false, nil
	}
}
