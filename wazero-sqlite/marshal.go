package sqlite

import (
	"context"
	"math"
	"strconv"
)

// WithString copies s into linear memory as a NUL-terminated UTF-8 string
// and calls fn with its address.
//
// The allocation is released when WithString returns, whether fn returns
// normally, returns an error or panics. fn's result and error are returned
// unchanged. fn must not retain ptr.
func WithString[T any](ctx context.Context, h *Heap, s string, fn func(ptr uint32) (T, error)) (T, error) {
	if uint64(len(s)) >= math.MaxUint32 {
		var zero T
		return zero, errTooBig(len(s))
	}
	n := uint32(len(s))
	return withAllocation(ctx, h, n+1, func(view []byte) {
		copy(view, s)
		view[n] = 0
	}, fn)
}

// WithBytes copies b into linear memory and calls fn with its address.
// No terminator is appended; exactly len(b) bytes are allocated.
//
// Release follows the same rules as WithString.
func WithBytes[T any](ctx context.Context, h *Heap, b []byte, fn func(ptr uint32) (T, error)) (T, error) {
	if uint64(len(b)) > math.MaxUint32 {
		var zero T
		return zero, errTooBig(len(b))
	}
	return withAllocation(ctx, h, uint32(len(b)), func(view []byte) {
		copy(view, b)
	}, fn)
}

// withAllocation runs fn with a scoped allocation of size bytes that fill
// has initialized.
func withAllocation[T any](
	ctx context.Context,
	h *Heap,
	size uint32,
	fill func(view []byte),
	fn func(ptr uint32) (T, error),
) (T, error) {
	var zero T
	ptr, err := h.Allocate(ctx, size)
	if err != nil {
		return zero, err
	}
	// A failing free leaves the module in an unknown state; the next
	// engine call reports it.
	defer func() { _ = h.Release(ctx, ptr) }()

	view, err := h.view(ptr, size)
	if err != nil {
		return zero, err
	}
	fill(view)
	return fn(ptr)
}

// ReadString decodes the NUL-terminated string at ptr.
//
// The length comes from the engine's str_len export. ReadString neither
// allocates nor frees linear memory; ptr stays owned by whoever produced it.
// A null pointer reads as the empty string.
func (h *Heap) ReadString(ctx context.Context, ptr uint32) (string, error) {
	if ptr == 0 {
		return "", nil
	}
	n, err := h.exports.StrLen(ctx, ptr)
	if err != nil {
		return "", err
	}
	b, err := h.view(ptr, n)
	if err != nil {
		return "", err
	}
	return decodeString(b), nil
}

func errTooBig(n int) *Error {
	return NewError("string or blob too big: " + strconv.Itoa(n) + " bytes")
}
