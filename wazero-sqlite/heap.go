package sqlite

import (
	"context"
	"errors"
	"fmt"

	sqlitewasi "github.com/aperturerobotics/go-sqlite-wasi-reactor"
	"github.com/tetratelabs/wazero/api"
)

// Memory is a view onto foreign linear memory.
// wazero's api.Memory satisfies it.
type Memory interface {
	// Size returns the current size in bytes.
	Size() uint32
	// Read returns a view of byteCount bytes at offset, or false if the
	// range is out of bounds. The view is invalidated when memory grows.
	Read(offset, byteCount uint32) ([]byte, bool)
	// Write copies v to offset, or returns false if out of bounds.
	Write(offset uint32, v []byte) bool
}

// Exports is the capability set consumed from the engine module.
// Every method maps to one integer-only export.
type Exports interface {
	Memory() Memory
	Malloc(ctx context.Context, size uint32) (uint32, error)
	Free(ctx context.Context, ptr uint32) error
	StrLen(ctx context.Context, ptr uint32) (uint32, error)
	ErrMsg(ctx context.Context) (uint32, error)
	ErrCode(ctx context.Context) (Status, error)
}

// ErrOutOfMemory is returned when the engine allocator returns a null pointer.
var ErrOutOfMemory = NewError("Out of memory.")

// Heap adapts the engine allocator and owns the marshaling of host values
// into and out of linear memory.
//
// The allocator treats pointer 0 as its failure sentinel; address 0 is never
// handed out as a valid allocation.
type Heap struct {
	exports Exports
}

// NewHeap constructs a Heap over the given exports.
func NewHeap(exports Exports) *Heap {
	return &Heap{exports: exports}
}

// Exports returns the capability set backing the heap.
func (h *Heap) Exports() Exports {
	return h.exports
}

// Allocate reserves size bytes in linear memory.
// A null result from the engine is returned as ErrOutOfMemory.
func (h *Heap) Allocate(ctx context.Context, size uint32) (uint32, error) {
	ptr, err := h.exports.Malloc(ctx, size)
	if err != nil {
		return 0, err
	}
	if ptr == 0 {
		return 0, ErrOutOfMemory
	}
	return ptr, nil
}

// Release frees a pointer returned by Allocate. It must be called exactly
// once per allocation.
func (h *Heap) Release(ctx context.Context, ptr uint32) error {
	return h.exports.Free(ctx, ptr)
}

// view returns a fresh window of exactly n bytes at ptr.
func (h *Heap) view(ptr, n uint32) ([]byte, error) {
	mem := h.exports.Memory()
	b, ok := mem.Read(ptr, n)
	if !ok {
		return nil, NewError(fmt.Sprintf(
			"memory access out of bounds: %d bytes at %d (memory size %d)",
			n, ptr, mem.Size(),
		))
	}
	return b, nil
}

// moduleExports binds Exports to an instantiated wazero module.
type moduleExports struct {
	mod api.Module

	malloc  api.Function
	free    api.Function
	strLen  api.Function
	errMsg  api.Function
	errCode api.Function
}

// bindExports resolves the allocator and error exports of mod.
func bindExports(mod api.Module) (*moduleExports, error) {
	if mod.Memory() == nil {
		return nil, errors.New("missing export: memory")
	}
	e := &moduleExports{
		mod:     mod,
		malloc:  mod.ExportedFunction(sqlitewasi.ExportMalloc),
		free:    mod.ExportedFunction(sqlitewasi.ExportFree),
		strLen:  mod.ExportedFunction(sqlitewasi.ExportStrLen),
		errMsg:  mod.ExportedFunction(sqlitewasi.ExportErrMsg),
		errCode: mod.ExportedFunction(sqlitewasi.ExportErrCode),
	}
	if e.malloc == nil {
		return nil, errors.New("missing export: " + sqlitewasi.ExportMalloc)
	}
	if e.free == nil {
		return nil, errors.New("missing export: " + sqlitewasi.ExportFree)
	}
	if e.strLen == nil {
		return nil, errors.New("missing export: " + sqlitewasi.ExportStrLen)
	}
	if e.errMsg == nil {
		return nil, errors.New("missing export: " + sqlitewasi.ExportErrMsg)
	}
	if e.errCode == nil {
		return nil, errors.New("missing export: " + sqlitewasi.ExportErrCode)
	}
	return e, nil
}

func (e *moduleExports) Memory() Memory {
	return e.mod.Memory()
}

func (e *moduleExports) Malloc(ctx context.Context, size uint32) (uint32, error) {
	results, err := e.malloc.Call(ctx, uint64(size))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", sqlitewasi.ExportMalloc, err)
	}
	return uint32(results[0]), nil
}

func (e *moduleExports) Free(ctx context.Context, ptr uint32) error {
	if _, err := e.free.Call(ctx, uint64(ptr)); err != nil {
		return fmt.Errorf("%s: %w", sqlitewasi.ExportFree, err)
	}
	return nil
}

func (e *moduleExports) StrLen(ctx context.Context, ptr uint32) (uint32, error) {
	results, err := e.strLen.Call(ctx, uint64(ptr))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", sqlitewasi.ExportStrLen, err)
	}
	return uint32(results[0]), nil
}

func (e *moduleExports) ErrMsg(ctx context.Context) (uint32, error) {
	results, err := e.errMsg.Call(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", sqlitewasi.ExportErrMsg, err)
	}
	return uint32(results[0]), nil
}

func (e *moduleExports) ErrCode(ctx context.Context) (Status, error) {
	results, err := e.errCode.Call(ctx)
	if err != nil {
		return StatusUnknown, fmt.Errorf("%s: %w", sqlitewasi.ExportErrCode, err)
	}
	return Status(int32(results[0])), nil
}
