package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// PyModule is a loaded Python module: a namespace dict plus the handful of
// dunder attributes CPython exposes on every module object.
type PyModule struct {
	Name    string
	Dict    map[string]Value
	Doc     string
	Package string
	Loader  Value
	Spec    Value
}

func (m *PyModule) Type() string   { return "module" }
func (m *PyModule) String() string { return fmt.Sprintf("<module '%s'>", m.Name) }

// Get reads an attribute out of the module namespace.
func (m *PyModule) Get(name string) (Value, bool) {
	v, ok := m.Dict[name]
	return v, ok
}

// Set writes an attribute into the module namespace.
func (m *PyModule) Set(name string, value Value) {
	m.Dict[name] = value
}

// ModuleLoader builds (or returns a cached) *PyModule the first time a
// name is imported.
type ModuleLoader func(vm *VM) *PyModule

// moduleLoadState tracks a filesystem module load in progress, so a
// second importer racing on the same name can wait instead of re-reading
// the file or observing a half-initialized module.
type moduleLoadState struct {
	vm   *VM
	done chan struct{}
	err  error
}

var (
	moduleRegistry = make(map[string]ModuleLoader)
	loadedModules  = make(map[string]*PyModule)
	moduleLoading  = make(map[string]*moduleLoadState)
	// moduleMu guards all three maps above.
	moduleMu sync.RWMutex
)

// RegisterModule installs a loader under name, called lazily the first
// time that name is imported.
func RegisterModule(name string, loader ModuleLoader) {
	moduleMu.Lock()
	moduleRegistry[name] = loader
	moduleMu.Unlock()
}

// NewModule allocates an empty module with __name__/__doc__ pre-populated.
func NewModule(name string) *PyModule {
	return &PyModule{
		Name: name,
		Dict: map[string]Value{
			"__name__": NewString(name),
			"__doc__":  None,
		},
	}
}

// ModuleBuilder is a fluent constructor for modules implemented in Go.
type ModuleBuilder struct {
	module *PyModule
}

// NewModuleBuilder starts building a module named name.
func NewModuleBuilder(name string) *ModuleBuilder {
	return &ModuleBuilder{module: NewModule(name)}
}

// Doc sets the module's docstring.
func (b *ModuleBuilder) Doc(doc string) *ModuleBuilder {
	b.module.Doc = doc
	b.module.Dict["__doc__"] = NewString(doc)
	return b
}

// Const defines a module-level constant.
func (b *ModuleBuilder) Const(name string, value Value) *ModuleBuilder {
	b.module.Dict[name] = value
	return b
}

// Func defines a module-level Go-implemented function.
func (b *ModuleBuilder) Func(name string, fn GoFunction) *ModuleBuilder {
	b.module.Dict[name] = NewGoFunction(name, fn)
	return b
}

// Method is Func under another name, for builders that read more like a
// class body than a module body.
func (b *ModuleBuilder) Method(name string, fn GoFunction) *ModuleBuilder {
	return b.Func(name, fn)
}

// Type registers a named type's metatable and, if given, exposes its
// constructor under the module.
func (b *ModuleBuilder) Type(typeName string, constructor GoFunction, methods map[string]GoFunction) *ModuleBuilder {
	mt := &TypeMetatable{Name: typeName, Methods: methods}
	typeRegistryMu.Lock()
	typeRegistry[typeName] = mt
	typeRegistryMu.Unlock()

	if constructor != nil {
		b.module.Dict[typeName] = NewGoFunction(typeName, constructor)
	}
	return b
}

// SubModule nests submodule under name within the module being built.
func (b *ModuleBuilder) SubModule(name string, submodule *PyModule) *ModuleBuilder {
	b.module.Dict[name] = submodule
	return b
}

// Build returns the module as constructed so far, without registering it.
func (b *ModuleBuilder) Build() *PyModule {
	return b.module
}

// Register builds the module and installs it in the global registry under
// its own name.
func (b *ModuleBuilder) Register() *PyModule {
	module := b.Build()
	RegisterModule(module.Name, func(vm *VM) *PyModule { return module })
	return module
}

// awaitConcurrentLoad blocks until another VM's in-flight load of name
// finishes, then returns the now-cached module (or an error if loading
// failed or the module vanished from the cache). Call with moduleMu held;
// it releases and reacquires the lock around the wait.
func awaitConcurrentLoad(name string, ls *moduleLoadState) (*PyModule, error) {
	moduleMu.Unlock()
	<-ls.done
	moduleMu.Lock()
	if ls.err != nil {
		return nil, fmt.Errorf("error executing '%s': %v", name, ls.err)
	}
	if mod, ok := loadedModules[name]; ok {
		return mod, nil
	}
	return nil, fmt.Errorf("ModuleNotFoundError: No module named '%s'", name)
}

// ImportModule resolves name to a *PyModule: a cached or registered
// module wins first, then the filesystem (SearchPaths joined with
// "<name>.py") via vm.FileImporter. Concurrent imports of the same name
// from different VMs serialize on the in-progress load rather than
// double-compiling or observing a partial module; a VM importing a name
// it is itself already loading (a circular import) gets the partial
// module back, matching CPython.
func (vm *VM) ImportModule(name string) (*PyModule, error) {
	moduleMu.Lock()
	defer moduleMu.Unlock()

	if mod, ok := loadedModules[name]; ok {
		if ls, loading := moduleLoading[name]; loading && ls.vm != vm {
			return awaitConcurrentLoad(name, ls)
		}
		return mod, nil
	}

	if ls, loading := moduleLoading[name]; loading && ls.vm != vm {
		return awaitConcurrentLoad(name, ls)
	}

	if loader, ok := moduleRegistry[name]; ok {
		mod := loader(vm)
		loadedModules[name] = mod
		return mod, nil
	}

	return vm.importFromFilesystem(name)
}

// importFromFilesystem searches vm.SearchPaths for "<name>.py" and, if
// found, compiles and executes it into a fresh module. Must be called
// with moduleMu held.
func (vm *VM) importFromFilesystem(name string) (*PyModule, error) {
	if vm.FileImporter == nil {
		return nil, fmt.Errorf("ModuleNotFoundError: No module named '%s'", name)
	}

	for _, dir := range vm.SearchPaths {
		pyFile := filepath.Join(dir, name+".py")
		if _, err := os.Stat(pyFile); err != nil {
			continue
		}

		code, err := vm.FileImporter(pyFile)
		if err != nil {
			return nil, fmt.Errorf("error importing '%s': %v", name, err)
		}

		mod := NewModule(name)
		mod.Package = name
		mod.Dict["__package__"] = NewString(name)
		mod.Dict["__file__"] = NewString(pyFile)

		ls := &moduleLoadState{vm: vm, done: make(chan struct{})}
		moduleLoading[name] = ls
		loadedModules[name] = mod // cached before execution to satisfy circular imports

		moduleMu.Unlock()
		execErr := vm.ExecuteInModule(code, mod)
		moduleMu.Lock()

		if execErr != nil {
			ls.err = execErr
			delete(loadedModules, name)
		}
		close(ls.done)
		delete(moduleLoading, name)

		if execErr != nil {
			return nil, fmt.Errorf("error executing '%s': %v", name, execErr)
		}
		return mod, nil
	}

	return nil, fmt.Errorf("ModuleNotFoundError: No module named '%s'", name)
}

// GetModule returns a previously loaded module by name.
func (vm *VM) GetModule(name string) (*PyModule, bool) {
	moduleMu.RLock()
	defer moduleMu.RUnlock()
	mod, ok := loadedModules[name]
	return mod, ok
}

// ResolveRelativeImport turns a "from . import x"-style relative
// reference into an absolute dotted module name, given how many leading
// dots (level) were written and the importing module's own package.
func ResolveRelativeImport(name string, level int, packageName string) (string, error) {
	if level == 0 {
		return name, nil
	}
	if packageName == "" {
		return "", fmt.Errorf("ImportError: attempted relative import with no known parent package")
	}

	parts := splitModuleName(packageName)
	keep := len(parts) - (level - 1)
	if keep < 0 {
		return "", fmt.Errorf("ImportError: attempted relative import beyond top-level package")
	}

	base := ""
	if keep > 0 {
		base = joinModuleName(parts[:keep])
	}

	if name == "" {
		if base == "" {
			return "", fmt.Errorf("ImportError: attempted relative import with no known parent package")
		}
		return base, nil
	}
	if base == "" {
		return name, nil
	}
	return base + "." + name, nil
}

// splitModuleName splits a dotted module name into its components;
// splitModuleName("") is nil, not [""].
func splitModuleName(name string) []string {
	if name == "" {
		return nil
	}
	return strings.Split(name, ".")
}

// joinModuleName is splitModuleName's inverse.
func joinModuleName(parts []string) string {
	return strings.Join(parts, ".")
}

// RegisterModule installs a loader on the global registry; the VM
// receiver exists for call-site symmetry with the package's other
// registration helpers, not because registration is per-VM.
func (vm *VM) RegisterModule(name string, loader ModuleLoader) {
	RegisterModule(name, loader)
}

// RegisterModuleInstance installs an already-built module directly into
// the cache and registry, skipping lazy construction.
func (vm *VM) RegisterModuleInstance(name string, module *PyModule) {
	moduleMu.Lock()
	loadedModules[name] = module
	moduleRegistry[name] = func(vm *VM) *PyModule { return module }
	moduleMu.Unlock()
}

// ResetModules clears every module-related registry plus the pending
// builtin and type-metatable tables, giving a fresh State a clean slate.
func ResetModules() {
	moduleMu.Lock()
	loadedModules = make(map[string]*PyModule)
	moduleLoading = make(map[string]*moduleLoadState)
	moduleMu.Unlock()
	ResetPendingBuiltins()
	ResetTypeMetatables()
}

// initBuiltinsModule publishes the VM's builtin namespace as the
// "builtins" module, so Python code can `import builtins`.
func (vm *VM) initBuiltinsModule() {
	builtins := NewModule("builtins")
	builtins.Doc = "Built-in functions, exceptions, and other objects."
	for name, value := range vm.builtins {
		builtins.Dict[name] = value
	}

	moduleMu.Lock()
	loadedModules["builtins"] = builtins
	moduleMu.Unlock()
}
