// Package sqlitewasi defines the export contract of a SQLite engine built as
// a WASI reactor module.
//
// The module exposes only integer parameters and results: pointers into its
// linear memory, byte lengths and SQLite result codes. Strings crossing the
// boundary are NUL-terminated UTF-8. The host owns nothing inside linear
// memory except what it obtains from ExportMalloc and hands back with
// ExportFree.
package sqlitewasi

// DefaultModuleName is the base name the engine module is instantiated under.
const DefaultModuleName = "sqlite3.wasm"

// Memory management exports.
const (
	// ExportMalloc allocates memory in WASM linear memory.
	// Signature: malloc(size: i32) -> i32
	// Returns: pointer to the allocation, or 0 when out of memory.
	ExportMalloc = "malloc"

	// ExportFree frees memory in WASM linear memory.
	// Signature: free(ptr: i32)
	ExportFree = "free"

	// ExportStrLen returns the length of a NUL-terminated string.
	// Signature: str_len(ptr: i32) -> i32
	// Returns: byte length, excluding the terminator.
	ExportStrLen = "str_len"
)

// Engine exports.
const (
	// ExportOpen opens the database at a path.
	// Signature: db_open(path: i32) -> i32
	// Returns: result code.
	ExportOpen = "db_open"

	// ExportExec runs one or more SQL statements.
	// Signature: db_exec(sql: i32) -> i32
	// Returns: result code.
	ExportExec = "db_exec"

	// ExportDeserialize replaces the open database with a serialized image.
	// The module copies the image; the host buffer may be freed afterward.
	// Signature: db_deserialize(data: i32, len: i32) -> i32
	// Returns: result code.
	ExportDeserialize = "db_deserialize"

	// ExportClose closes the open database.
	// Signature: db_close() -> i32
	// Returns: result code.
	ExportClose = "db_close"

	// ExportErrMsg returns the message of the most recent failure.
	// The string is owned by the module and valid until the next engine call.
	// Signature: db_errmsg() -> i32 (char*)
	ExportErrMsg = "db_errmsg"

	// ExportErrCode returns the result code of the most recent engine call.
	// Signature: db_errcode() -> i32
	ExportErrCode = "db_errcode"

	// ExportLibVersion returns the engine version string.
	// Signature: db_libversion() -> i32 (char*)
	ExportLibVersion = "db_libversion"
)

// RequiredExports lists the exports a module must provide to be usable.
var RequiredExports = []string{
	ExportMalloc,
	ExportFree,
	ExportStrLen,
	ExportOpen,
	ExportExec,
	ExportDeserialize,
	ExportClose,
	ExportErrMsg,
	ExportErrCode,
	ExportLibVersion,
}
