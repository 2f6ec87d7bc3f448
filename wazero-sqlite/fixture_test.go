package sqlite

import (
	"slices"

	sqlitewasi "github.com/aperturerobotics/go-sqlite-wasi-reactor"
)

// The fixture is a minimal engine module assembled in code. It implements
// the export contract with a bump allocator that resets once every
// allocation is freed, and fakes a few engine outcomes:
//
//	db_open("")           -> SQLITE_CANTOPEN
//	db_exec("X...")       -> SQLITE_ERROR, near "X": syntax error
//	db_exec("!...")       -> SQLITE_CONSTRAINT
//	db_deserialize(image) -> SQLITE_NOTADB unless image starts with 'S'
//	                         and is at least 16 bytes
//
// heap_top and live_allocations expose allocator state to tests.

const (
	fixtureHeapBase = 1024
	fixtureMaxAlloc = 1 << 20

	fixtureMsgOK       = 16
	fixtureMsgSyntax   = 48
	fixtureMsgUnique   = 96
	fixtureMsgNotADB   = 144
	fixtureMsgCantOpen = 192
	fixtureVersion     = 240
)

var fixtureStrings = []struct {
	offset int32
	text   string
}{
	{fixtureMsgOK, "not an error"},
	{fixtureMsgSyntax, `near "X": syntax error`},
	{fixtureMsgUnique, "UNIQUE constraint failed: t.id"},
	{fixtureMsgNotADB, "file is not a database"},
	{fixtureMsgCantOpen, "unable to open database file"},
	{fixtureVersion, "3.46.0-fixture"},
}

// Opcodes and encodings used by the fixture.
const (
	opBlock     = 0x02
	opLoop      = 0x03
	opEnd       = 0x0b
	opBr        = 0x0c
	opBrIf      = 0x0d
	opReturn    = 0x0f
	opCall      = 0x10
	opLocalGet  = 0x20
	opLocalSet  = 0x21
	opGlobalGet = 0x23
	opGlobalSet = 0x24
	opI32Load8U = 0x2d
	opMemSize   = 0x3f
	opMemGrow   = 0x40
	opI32Const  = 0x41
	opI32Eqz    = 0x45
	opI32Ne     = 0x47
	opI32LtU    = 0x49
	opI32LeU    = 0x4d
	opI32Add    = 0x6a
	opI32Sub    = 0x6b
	opI32And    = 0x71
	opI32Shl    = 0x74
	opI32ShrU   = 0x76

	blockEmpty = 0x40
	valI32     = 0x7f
)

// Function type indices.
const (
	typeI32ToI32 = iota
	typeI32ToNone
	typeNoneToI32
	typeI32I32ToI32
)

var fixtureTypes = [][]byte{
	typeI32ToI32:    {0x60, 1, valI32, 1, valI32},
	typeI32ToNone:   {0x60, 1, valI32, 0},
	typeNoneToI32:   {0x60, 0, 1, valI32},
	typeI32I32ToI32: {0x60, 2, valI32, valI32, 1, valI32},
}

// Global indices.
const (
	globalHeap = iota
	globalLive
	globalErrCode
	globalErrMsg
)

// Function indices of the internal helpers.
const (
	funcFail = 3
	funcOK   = 4
)

type fixtureFunc struct {
	export string
	typ    byte
	locals uint32
	body   []byte
}

// fixtureFuncs lists the fixture functions in index order.
func fixtureFuncs() []fixtureFunc {
	return []fixtureFunc{
		// 0: malloc(size) -> ptr
		{sqlitewasi.ExportMalloc, typeI32ToI32, 2, join(
			b(opBlock, blockEmpty),
			b(opLocalGet, 0), i32(fixtureMaxAlloc), b(opI32LeU, opBrIf, 0),
			i32(0), b(opReturn),
			b(opEnd),
			b(opGlobalGet, globalHeap, opLocalSet, 1),
			b(opLocalGet, 1, opLocalGet, 0, opI32Add), i32(7), b(opI32Add), i32(-8), b(opI32And, opLocalSet, 2),
			b(opBlock, blockEmpty),
			b(opLocalGet, 2, opMemSize, 0), i32(16), b(opI32Shl, opI32LeU, opBrIf, 0),
			b(opLocalGet, 2, opMemSize, 0), i32(16), b(opI32Shl, opI32Sub), i32(16), b(opI32ShrU), i32(1), b(opI32Add),
			b(opMemGrow, 0), i32(-1), b(opI32Ne, opBrIf, 0),
			i32(0), b(opReturn),
			b(opEnd),
			b(opLocalGet, 2, opGlobalSet, globalHeap),
			b(opGlobalGet, globalLive), i32(1), b(opI32Add, opGlobalSet, globalLive),
			b(opLocalGet, 1),
		)},
		// 1: free(ptr)
		{sqlitewasi.ExportFree, typeI32ToNone, 0, join(
			b(opBlock, blockEmpty),
			b(opLocalGet, 0, opI32Eqz, opBrIf, 0),
			b(opGlobalGet, globalLive), i32(1), b(opI32Sub, opGlobalSet, globalLive),
			b(opGlobalGet, globalLive, opBrIf, 0),
			i32(fixtureHeapBase), b(opGlobalSet, globalHeap),
			b(opEnd),
		)},
		// 2: str_len(ptr) -> len
		{sqlitewasi.ExportStrLen, typeI32ToI32, 1, join(
			b(opBlock, blockEmpty),
			b(opLoop, blockEmpty),
			b(opLocalGet, 0, opLocalGet, 1, opI32Add, opI32Load8U, 0, 0, opI32Eqz, opBrIf, 1),
			b(opLocalGet, 1), i32(1), b(opI32Add, opLocalSet, 1),
			b(opBr, 0),
			b(opEnd),
			b(opEnd),
			b(opLocalGet, 1),
		)},
		// 3: fail(code, msg) -> code
		{"", typeI32I32ToI32, 0, join(
			b(opLocalGet, 0, opGlobalSet, globalErrCode),
			b(opLocalGet, 1, opGlobalSet, globalErrMsg),
			b(opLocalGet, 0),
		)},
		// 4: ok() -> 0
		{"", typeNoneToI32, 0, join(
			i32(0), b(opGlobalSet, globalErrCode),
			i32(fixtureMsgOK), b(opGlobalSet, globalErrMsg),
			i32(0),
		)},
		// 5: db_errmsg() -> ptr
		{sqlitewasi.ExportErrMsg, typeNoneToI32, 0, b(opGlobalGet, globalErrMsg)},
		// 6: db_errcode() -> code
		{sqlitewasi.ExportErrCode, typeNoneToI32, 0, b(opGlobalGet, globalErrCode)},
		// 7: db_open(path) -> code
		{sqlitewasi.ExportOpen, typeI32ToI32, 0, join(
			b(opBlock, blockEmpty),
			b(opLocalGet, 0, opI32Load8U, 0, 0, opI32Eqz, opBrIf, 0),
			b(opCall, funcOK, opReturn),
			b(opEnd),
			i32(int32(StatusCantOpen)), i32(fixtureMsgCantOpen), b(opCall, funcFail),
		)},
		// 8: db_exec(sql) -> code
		{sqlitewasi.ExportExec, typeI32ToI32, 0, join(
			b(opBlock, blockEmpty),
			b(opLocalGet, 0, opI32Load8U, 0, 0), i32('X'), b(opI32Ne, opBrIf, 0),
			i32(int32(StatusError)), i32(fixtureMsgSyntax), b(opCall, funcFail, opReturn),
			b(opEnd),
			b(opBlock, blockEmpty),
			b(opLocalGet, 0, opI32Load8U, 0, 0), i32('!'), b(opI32Ne, opBrIf, 0),
			i32(int32(StatusConstraint)), i32(fixtureMsgUnique), b(opCall, funcFail, opReturn),
			b(opEnd),
			b(opCall, funcOK),
		)},
		// 9: db_deserialize(ptr, len) -> code
		{sqlitewasi.ExportDeserialize, typeI32I32ToI32, 0, join(
			b(opBlock, blockEmpty),
			b(opLocalGet, 1), i32(16), b(opI32LtU, opBrIf, 0),
			b(opLocalGet, 0, opI32Load8U, 0, 0), i32('S'), b(opI32Ne, opBrIf, 0),
			b(opCall, funcOK, opReturn),
			b(opEnd),
			i32(int32(StatusNotADB)), i32(fixtureMsgNotADB), b(opCall, funcFail),
		)},
		// 10: db_close() -> code
		{sqlitewasi.ExportClose, typeNoneToI32, 0, b(opCall, funcOK)},
		// 11: db_libversion() -> ptr
		{sqlitewasi.ExportLibVersion, typeNoneToI32, 0, i32(fixtureVersion)},
		// 12: heap_top() -> ptr
		{"heap_top", typeNoneToI32, 0, b(opGlobalGet, globalHeap)},
		// 13: live_allocations() -> count
		{"live_allocations", typeNoneToI32, 0, b(opGlobalGet, globalLive)},
	}
}

// fixtureWASM assembles the fixture module, leaving out the named exports.
func fixtureWASM(omit ...string) []byte {
	funcs := fixtureFuncs()

	var types []byte
	for _, t := range fixtureTypes {
		types = append(types, t...)
	}

	var funcTypes []byte
	for _, f := range funcs {
		funcTypes = append(funcTypes, f.typ)
	}

	globalInit := []int32{
		globalHeap:    fixtureHeapBase,
		globalLive:    0,
		globalErrCode: 0,
		globalErrMsg:  fixtureMsgOK,
	}
	var globals []byte
	for _, v := range globalInit {
		globals = append(globals, valI32, 0x01)
		globals = append(globals, i32(v)...)
		globals = append(globals, opEnd)
	}

	var exports []byte
	numExports := 1
	exports = append(exports, name("memory")...)
	exports = append(exports, 0x02, 0x00)
	for i, f := range funcs {
		if f.export == "" || slices.Contains(omit, f.export) {
			continue
		}
		exports = append(exports, name(f.export)...)
		exports = append(exports, 0x00)
		exports = append(exports, uleb(uint32(i))...)
		numExports++
	}

	var code []byte
	for _, f := range funcs {
		var body []byte
		if f.locals > 0 {
			body = append(body, 1)
			body = append(body, uleb(f.locals)...)
			body = append(body, valI32)
		} else {
			body = append(body, 0)
		}
		body = append(body, f.body...)
		body = append(body, opEnd)
		code = append(code, uleb(uint32(len(body)))...)
		code = append(code, body...)
	}

	var data []byte
	for _, s := range fixtureStrings {
		data = append(data, 0x00)
		data = append(data, i32(s.offset)...)
		data = append(data, opEnd)
		data = append(data, uleb(uint32(len(s.text)+1))...)
		data = append(data, s.text...)
		data = append(data, 0)
	}

	return join(
		[]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00},
		section(1, len(fixtureTypes), types),
		section(3, len(funcs), funcTypes),
		section(5, 1, []byte{0x00, 0x01}),
		section(6, len(globalInit), globals),
		section(7, numExports, exports),
		section(10, len(funcs), code),
		section(11, len(fixtureStrings), data),
	)
}

// section encodes a vector section of count entries.
func section(id byte, count int, entries []byte) []byte {
	payload := append(uleb(uint32(count)), entries...)
	return join([]byte{id}, uleb(uint32(len(payload))), payload)
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func b(ops ...byte) []byte {
	return ops
}

func i32(v int32) []byte {
	return append([]byte{opI32Const}, sleb(v)...)
}

func join(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, c)
		}
		out = append(out, c|0x80)
	}
}

func sleb(v int32) []byte {
	x := int64(v)
	var out []byte
	for {
		c := byte(x & 0x7f)
		x >>= 7
		if (x == 0 && c&0x40 == 0) || (x == -1 && c&0x40 != 0) {
			return append(out, c)
		}
		out = append(out, c|0x80)
	}
}
