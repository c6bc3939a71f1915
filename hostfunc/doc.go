// Package hostfunc implements the operation surface: the catalog of native
// capabilities script code can call.
//
// # Registry
//
// The [Registry] maps op names to [Op] values. [DefaultRegistry] returns the
// built-in catalog; embedders can add their own ops:
//
//	registry := hostfunc.DefaultRegistry()
//	registry.RegisterSync("hostname", func(s *hostfunc.State, args hostfunc.Args) (any, error) {
//	    return os.Hostname()
//	})
//
// # Sync and async ops
//
// A [SyncFunc] runs on the script thread and returns its result directly;
// failures are thrown at the call site.
//
// An [AsyncFunc] also runs on the script thread, but only to validate its
// arguments and look up resources. It returns a [Job], which the event loop
// runs on a backend goroutine. The job returns a [Completion] that is run back
// on the script thread to settle the op's promise. Only completions may touch
// [State], so the resource table is never mutated concurrently.
//
// # Built-in ops
//
//	listen(address, port)     sync   {resourceId, port}
//	accept(handle)            async  stream handle
//	read_file(path)           async  file contents as text
//	write_file(path, text)    async
//	remove_file(path)         sync
//	sleep(ms)                 async
//	read(handle, buffer)      async  bytes read, 0 at end of stream
//	write(handle, bytes)      async  bytes written
//	close(handle)             sync
//	print(text, isErr)        sync
//	encode(text)              sync   UTF-8 bytes
//	decode(bytes)             sync   text
//
// # Errors
//
// Op errors reach script code as Error objects whose name is the [ErrorKind]
// returned by [KindOf].
package hostfunc
