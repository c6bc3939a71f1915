// Package executor hosts script modules: it owns the engine instance, runs
// the bootstrap script, links modules produced by the loader and drives the
// event loop that settles async ops.
//
// # Basic Usage
//
//	exec, err := executor.New(hostfunc.DefaultRegistry())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exec.Close()
//
//	result := exec.RunFile(ctx, "main.ts", executor.WithTimeout(30*time.Second))
//	fmt.Print(result.Output)
//
// Every run gets a fresh host: a new engine, an empty resource table and its
// own event loop. The run ends when the entry module has been evaluated and no
// async op is pending, when the context ends, or when an exception escapes or
// a promise rejection goes unhandled. Resources still open at that point are
// closed.
//
// # Threading
//
// Script code, op preparation and op completions all run on the goroutine
// that called Run. Async op jobs run on their own goroutines and hand their
// results back over a channel, so the engine and the resource table are never
// touched concurrently.
//
// # Modules
//
// Each module is converted to a CommonJS function body, compiled in strict
// mode and evaluated once per host with this undefined; importers share the
// instance. Dynamic import() becomes a promise of the same require, so a
// failed dynamic import rejects instead of aborting the run. import.meta.url
// is the module's specifier. JSON modules export their parsed value.
//
// A module using top-level await runs as an async function. It publishes its
// exports before its first statement, so importers that reach it while it
// awaits see bindings that fill in as it proceeds. A run ends only once every
// such module has finished; a failure in one is an uncaught exception.
//
// # Sessions
//
// Sessions keep one host across Run calls:
//
//	session, err := exec.NewSession()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
//	session.Run(ctx, `let x = 42`)
//	session.Run(ctx, `console.log(x)`)  // Output: 42
//
// # Language Interface
//
// The bootstrap script comes from a [Language];
// [github.com/caffeineduck/vehicle/language/javascript] is the default.
package executor
