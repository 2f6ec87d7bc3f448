// Command sqlite-wasi runs SQL against a SQLite engine WASI reactor module.
//
// Usage:
//
//	sqlite-wasi -wasm sqlite3.wasm                      # interactive REPL
//	sqlite-wasi -wasm sqlite3.wasm -c 'CREATE TABLE t(x)' # execute SQL
//	sqlite-wasi -wasm sqlite3.wasm script.sql           # execute a script file
//	sqlite-wasi -wasm sqlite3.wasm -load app.db         # start from a database image
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	sqlite "github.com/aperturerobotics/go-sqlite-wasi-reactor/wazero-sqlite"
	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func main() {
	var (
		wasmFile = flag.String("wasm", "", "Path to the engine wasm module")
		dbPath   = flag.String("db", ":memory:", "Database path inside the module")
		command  = flag.String("c", "", "SQL to execute")
		image    = flag.String("load", "", "Database image to deserialize after opening")
		verbose  = flag.Bool("v", false, "Debug logging")
	)
	flag.Parse()

	log := newLogger(*verbose)
	defer func() { _ = log.Sync() }()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: sqlite-wasi -wasm <engine.wasm> [-db path] [-c sql] [-load image] [script.sql]")
		os.Exit(2)
	}

	ctx := context.Background()

	wasm, err := os.ReadFile(*wasmFile)
	if err != nil {
		log.Fatal("failed to read module", zap.String("path", *wasmFile), zap.Error(err))
	}

	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	config := wazero.NewModuleConfig().
		WithStdout(os.Stdout).
		WithStderr(os.Stderr)

	db, err := sqlite.New(ctx, r, wasm, config, sqlite.WithLogger(log))
	if err != nil {
		log.Fatal("failed to create engine", zap.Error(err))
	}
	defer db.Close(ctx)

	if err := db.Open(ctx, *dbPath); err != nil {
		log.Fatal("failed to open database", zap.String("path", *dbPath), zap.Error(err))
	}

	if *image != "" {
		data, err := os.ReadFile(*image)
		if err != nil {
			log.Fatal("failed to read image", zap.String("path", *image), zap.Error(err))
		}
		if err := db.Deserialize(ctx, data); err != nil {
			log.Fatal("failed to load image", zap.String("path", *image), zap.Error(err))
		}
	}

	// -c flag: execute SQL and exit.
	if *command != "" {
		os.Exit(execOne(ctx, db, *command))
	}

	// File argument: read and execute.
	if flag.NArg() >= 1 && flag.Arg(0) != "-" {
		script, err := os.ReadFile(flag.Arg(0))
		if err != nil {
			log.Fatal("failed to read script", zap.String("path", flag.Arg(0)), zap.Error(err))
		}
		os.Exit(execOne(ctx, db, string(script)))
	}

	// Interactive REPL.
	runREPL(ctx, db)
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// execOne runs sql and returns a process exit status.
func execOne(ctx context.Context, db *sqlite.SQLite, sql string) int {
	if err := db.Exec(ctx, sql); err != nil {
		printError(err)
		return 1
	}
	return 0
}

func printError(err error) {
	var e *sqlite.Error
	if errors.As(err, &e) {
		fmt.Fprintf(os.Stderr, "error: %s (%s)\n", e.Message(), e.CodeName())
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
}

func runREPL(ctx context.Context, db *sqlite.SQLite) {
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		version, err := db.LibVersion(ctx)
		if err != nil {
			printError(err)
		}
		fmt.Fprintf(os.Stderr, "sqlite-wasi %s (SQLite in WASM, type '.exit' or Ctrl+D to quit)\n", version)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		if interactive {
			fmt.Fprint(os.Stderr, "sqlite> ")
		}
		if !scanner.Scan() {
			if interactive {
				fmt.Fprintln(os.Stderr)
			}
			break
		}

		line := scanner.Text()
		if line == ".exit" || line == ".quit" {
			break
		}
		if line == "" {
			continue
		}

		if err := db.Exec(ctx, line); err != nil {
			printError(err)
		}
	}
}
