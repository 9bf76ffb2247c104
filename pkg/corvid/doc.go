/*
Package corvid provides a public API for embedding the Corvid Python runtime in Go applications.

# Quick Start

The simplest way to run Python code:

	result, err := corvid.Run(`print("Hello, World!")`)
	if err != nil {
	    log.Fatal(err)
	}

To evaluate an expression and get the result:

	result, err := corvid.Eval(`1 + 2 * 3`)
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(result) // 7

# Using State for More Control

For more complex scenarios, create a State:

	state := corvid.NewState()
	defer state.Close()

	// Set variables accessible from Python
	state.SetGlobal("name", corvid.String("World"))
	state.SetGlobal("count", corvid.Int(42))

	// Run Python code
	_, err := state.Run(`
	    greeting = "Hello, " + name + "!"
	    result = count * 2
	`)
	if err != nil {
	    log.Fatal(err)
	}

	// Get variables set by Python
	greeting := state.GetGlobal("greeting")
	fmt.Println(greeting) // Hello, World!

# Controlling Stdlib Modules

By default, NewState() enables all stdlib modules. For more control over which
modules are available, use NewStateWithModules or NewBareState:

	// Create state with only specific modules
	state := corvid.NewStateWithModules(
	    corvid.WithModule(corvid.ModuleMath),
	    corvid.WithModule(corvid.ModuleString),
	)
	defer state.Close()

	// Or enable multiple modules at once
	state := corvid.NewStateWithModules(
	    corvid.WithModules(corvid.ModuleMath, corvid.ModuleString, corvid.ModuleTime),
	)

	// Create a bare state with no modules, then enable them later
	state := corvid.NewBareState()
	defer state.Close()
	state.EnableModule(corvid.ModuleMath)
	state.EnableModules(corvid.ModuleString, corvid.ModuleTime)

	// Enable all modules on an existing state
	state.EnableAllModules()

Available modules:

	corvid.ModuleMath        // math module (sin, cos, sqrt, etc.)
	corvid.ModuleRandom      // random module (random, randint, choice, etc.)
	corvid.ModuleString      // string module (ascii_letters, digits, etc.)
	corvid.ModuleSys         // sys module (version, platform, etc.)
	corvid.ModuleTime        // time module (time, sleep, etc.)
	corvid.ModuleRe          // re module (match, search, findall, etc.)
	corvid.ModuleCollections // collections module (Counter, defaultdict, etc.)

# Registering Go Functions

You can make Go functions callable from Python:

	state := corvid.NewState()
	defer state.Close()

	// Register a function
	state.Register("greet", func(s *corvid.State, args ...corvid.Value) corvid.Value {
	    name, _ := corvid.AsString(args[0])
	    return corvid.String("Hello, " + name + "!")
	})

	// Call it from Python
	result, _ := state.Run(`message = greet("World")`)
	fmt.Println(state.GetGlobal("message")) // Hello, World!

# Working with Values

The corvid.Value interface wraps Python values. Use constructors and type assertions:

	// Create values
	intVal := corvid.Int(42)
	strVal := corvid.String("hello")
	listVal := corvid.List(corvid.Int(1), corvid.Int(2), corvid.Int(3))
	dictVal := corvid.Dict("name", corvid.String("Alice"), "age", corvid.Int(30))

	// Convert from Go values
	val := corvid.FromGo(map[string]interface{}{"key": "value"})

	// Type checking
	if corvid.IsInt(val) {
	    n, _ := corvid.AsInt(val)
	    fmt.Println(n)
	}

	// Get underlying Go value
	goVal := val.GoValue()

# Timeouts and Cancellation

Execute code with timeouts to prevent infinite loops:

	result, err := corvid.RunWithTimeout(`
	    while True:
	        pass  # infinite loop
	`, 5*time.Second)
	// Returns error after 5 seconds

Or use context for cancellation:

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	state := corvid.NewState()
	result, err := state.RunWithContext(ctx, `some_long_running_code()`)

# Compilation and Execution

For repeated execution, compile once and run multiple times:

	state := corvid.NewState()
	defer state.Close()

	code, err := state.Compile(`result = x * 2`, "multiply.py")
	if err != nil {
	    log.Fatal(err)
	}

	// Execute multiple times with different inputs
	for i := 0; i < 10; i++ {
	    state.SetGlobal("x", corvid.Int(int64(i)))
	    state.Execute(code)
	    result := state.GetGlobal("result")
	    fmt.Println(result)
	}

# Error Handling

Compilation errors are returned as *CompileErrors:

	_, err := corvid.Run(`invalid python syntax here`)
	if compErr, ok := err.(*corvid.CompileErrors); ok {
	    for _, e := range compErr.Errors {
	        fmt.Println(e)
	    }
	}

Runtime errors are returned as standard errors.

# Thread Safety

Each State is NOT safe for concurrent use. Create separate States for concurrent
execution, or use appropriate synchronization.
*/
package corvid
