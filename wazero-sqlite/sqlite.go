// Package sqlite provides a Go API over a SQLite engine compiled to a WASI
// reactor module, run with wazero.
//
// Every export of the module takes and returns integers only. Strings and
// blobs are copied into linear memory with WithString and WithBytes, which
// release the allocation on every exit path, and engine failures surface as
// *Error values carrying the engine's result code.
package sqlite

import (
	"context"
	"errors"
	"sync"

	sqlitewasi "github.com/aperturerobotics/go-sqlite-wasi-reactor"
	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
)

var (
	errNotOpen     = NewErrorCode("database is not open", StatusMisuse)
	errAlreadyOpen = NewErrorCode("database is already open", StatusMisuse)
	errClosed      = NewErrorCode("engine module is closed", StatusMisuse)
)

// SQLite wraps an instantiated engine module.
//
// Calls are serialized: each one holds a lock across allocation, the engine
// call and release, since the module is not reentrant.
type SQLite struct {
	runtime wazero.Runtime
	mod     api.Module
	heap    *Heap
	log     *zap.Logger

	mu sync.Mutex

	dbOpen        api.Function
	dbExec        api.Function
	dbDeserialize api.Function
	dbClose       api.Function
	dbLibVersion  api.Function

	opened bool
	closed bool
}

// Compile compiles an engine module.
// The compiled module can be reused across multiple SQLite instances.
func Compile(ctx context.Context, r wazero.Runtime, wasm []byte) (wazero.CompiledModule, error) {
	return r.CompileModule(ctx, wasm)
}

// New compiles and instantiates an engine module.
// Call Close() when done to release resources.
func New(ctx context.Context, r wazero.Runtime, wasm []byte, config wazero.ModuleConfig, opts ...Option) (*SQLite, error) {
	// Install WASI once per runtime.
	if r.Module(wasi_snapshot_preview1.ModuleName) == nil {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
			return nil, err
		}
	}

	compiled, err := Compile(ctx, r, wasm)
	if err != nil {
		return nil, err
	}

	return NewFromCompiled(ctx, r, compiled, config, opts...)
}

// NewFromCompiled instantiates an engine from a pre-compiled module.
// WASI must already be instantiated in r if the module imports it.
func NewFromCompiled(ctx context.Context, r wazero.Runtime, compiled wazero.CompiledModule, config wazero.ModuleConfig, opts ...Option) (*SQLite, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	name := o.moduleName
	if name == "" {
		name = sqlitewasi.DefaultModuleName + "-" + uuid.NewString()
	}
	if config == nil {
		config = wazero.NewModuleConfig()
	}

	mod, err := r.InstantiateModule(ctx, compiled, config.WithName(name))
	if err != nil {
		return nil, err
	}

	// Call _initialize for WASI reactor startup.
	initFn := mod.ExportedFunction("_initialize")
	if initFn != nil {
		if _, err := initFn.Call(ctx); err != nil {
			_ = mod.Close(ctx)
			return nil, errors.New("_initialize failed: " + err.Error())
		}
	}

	exports, err := bindExports(mod)
	if err != nil {
		_ = mod.Close(ctx)
		return nil, err
	}

	s := &SQLite{
		runtime: r,
		mod:     mod,
		heap:    NewHeap(exports),
		log:     o.logger.With(zap.String("module", name)),
	}

	for _, fn := range []struct {
		name string
		dst  *api.Function
	}{
		{sqlitewasi.ExportOpen, &s.dbOpen},
		{sqlitewasi.ExportExec, &s.dbExec},
		{sqlitewasi.ExportDeserialize, &s.dbDeserialize},
		{sqlitewasi.ExportClose, &s.dbClose},
		{sqlitewasi.ExportLibVersion, &s.dbLibVersion},
	} {
		*fn.dst = mod.ExportedFunction(fn.name)
		if *fn.dst == nil {
			_ = mod.Close(ctx)
			return nil, errors.New("missing export: " + fn.name)
		}
	}

	s.log.Debug("instantiated engine module")
	return s, nil
}

// Heap returns the heap backing this instance.
// Callers using it directly must serialize with other calls themselves.
func (s *SQLite) Heap() *Heap {
	return s.heap
}

// Open opens the database at path.
func (s *SQLite) Open(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errClosed
	}
	if s.opened {
		return errAlreadyOpen
	}

	status, err := WithString(ctx, s.heap, path, func(ptr uint32) (Status, error) {
		return callStatus(ctx, s.dbOpen, uint64(ptr))
	})
	if err != nil {
		return err
	}
	if status != StatusOK {
		return s.engineError(ctx, sqlitewasi.ExportOpen, status)
	}

	s.opened = true
	s.log.Debug("opened database", zap.String("path", path))
	return nil
}

// Exec runs one or more SQL statements.
func (s *SQLite) Exec(ctx context.Context, sql string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	status, err := WithString(ctx, s.heap, sql, func(ptr uint32) (Status, error) {
		return callStatus(ctx, s.dbExec, uint64(ptr))
	})
	if err != nil {
		return err
	}
	if status.IsError() {
		return s.engineError(ctx, sqlitewasi.ExportExec, status)
	}
	return nil
}

// Deserialize replaces the open database with a serialized database image.
func (s *SQLite) Deserialize(ctx context.Context, image []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	status, err := WithBytes(ctx, s.heap, image, func(ptr uint32) (Status, error) {
		return callStatus(ctx, s.dbDeserialize, uint64(ptr), uint64(len(image)))
	})
	if err != nil {
		return err
	}
	if status != StatusOK {
		return s.engineError(ctx, sqlitewasi.ExportDeserialize, status)
	}

	s.log.Debug("deserialized database", zap.Int("bytes", len(image)))
	return nil
}

// LibVersion returns the engine's version string.
func (s *SQLite) LibVersion(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", errClosed
	}

	results, err := s.dbLibVersion.Call(ctx)
	if err != nil {
		return "", err
	}
	return s.heap.ReadString(ctx, uint32(results[0]))
}

// Close closes the database, if open, and the engine module.
// Closing twice is a no-op.
func (s *SQLite) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var closeErr error
	if s.opened {
		s.opened = false
		status, err := callStatus(ctx, s.dbClose)
		switch {
		case err != nil:
			closeErr = err
		case status != StatusOK:
			closeErr = s.engineError(ctx, sqlitewasi.ExportClose, status)
		}
	}

	if err := s.mod.Close(ctx); err != nil && closeErr == nil {
		closeErr = err
	}
	s.log.Debug("closed engine module")
	return closeErr
}

func (s *SQLite) checkOpen() error {
	if s.closed {
		return errClosed
	}
	if !s.opened {
		return errNotOpen
	}
	return nil
}

// engineError snapshots the engine's error state after export returned
// status. The returned status wins when the engine reports no error code.
func (s *SQLite) engineError(ctx context.Context, export string, status Status) error {
	e, err := NewModuleError(ctx, s.heap)
	if err != nil {
		return err
	}
	if !e.Code().IsError() {
		if e, err = NewModuleErrorCode(ctx, s.heap, status); err != nil {
			return err
		}
	}
	s.log.Debug("engine call failed",
		zap.String("export", export),
		zap.Stringer("status", e.Code()),
		zap.String("message", e.Message()),
	)
	return e
}

// callStatus calls an export whose single result is a result code.
func callStatus(ctx context.Context, fn api.Function, params ...uint64) (Status, error) {
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return StatusUnknown, err
	}
	return Status(int32(results[0])), nil
}
