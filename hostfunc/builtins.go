package hostfunc

// Names of the built-in ops.
const (
	OpListen     = "listen"
	OpAccept     = "accept"
	OpReadFile   = "read_file"
	OpWriteFile  = "write_file"
	OpRemoveFile = "remove_file"
	OpSleep      = "sleep"
	OpRead       = "read"
	OpWrite      = "write"
	OpClose      = "close"
	OpPrint      = "print"
	OpEncode     = "encode"
	OpDecode     = "decode"
)

// RegisterBuiltins adds the standard op catalog to r.
func RegisterBuiltins(r *Registry) {
	r.RegisterSync(OpListen, opListen)
	r.RegisterAsync(OpAccept, opAccept)
	r.RegisterAsync(OpReadFile, opReadFile)
	r.RegisterAsync(OpWriteFile, opWriteFile)
	r.RegisterSync(OpRemoveFile, opRemoveFile)
	r.RegisterAsync(OpSleep, opSleep)
	r.RegisterAsync(OpRead, opRead)
	r.RegisterAsync(OpWrite, opWrite)
	r.RegisterSync(OpClose, opClose)
	r.RegisterSync(OpPrint, opPrint)
	r.RegisterSync(OpEncode, opEncode)
	r.RegisterSync(OpDecode, opDecode)
}
