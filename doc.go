// Package vehicle runs JavaScript and TypeScript modules on an embedded
// engine with native file, timer and TCP capabilities.
//
// # Overview
//
// A run loads an entry module from the local filesystem, transpiles it when
// needed, links its imports and drives an event loop until no async work is
// left. Script code reaches the host through the global vehicle object, which
// wraps a catalog of named ops.
//
// # Basic Usage
//
//	exec, _ := executor.New(hostfunc.DefaultRegistry())
//	defer exec.Close()
//
//	// Run a module graph
//	result := exec.RunFile(ctx, "main.ts")
//	fmt.Print(result.Output)
//
//	// Session with persistent state
//	session, _ := exec.NewSession()
//	session.Run(ctx, `let x = 42`)
//	session.Run(ctx, `x`) // Value: "42"
//
// # Adding Ops
//
//	registry := hostfunc.DefaultRegistry()
//	registry.RegisterSync("greet", func(s *hostfunc.State, args hostfunc.Args) (any, error) {
//	    name, err := args.String(0)
//	    return "hello " + name, err
//	})
//
// Script code calls it as vehicle.ops.greet("you").
//
// See the [executor], [hostfunc], [loader], [resource] and
// [language/javascript] packages for detailed API documentation.
package vehicle
