package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/moviepipe/moviepipe/internal/cli"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

func main() {
	// Recover from panics to ensure graceful exits with stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(moviepipe.ExitPanic)
		}
	}()

	if os.Getenv("MOVIEPIPE_TEST_PANIC") == "1" {
		panic("intentional test panic")
	}

	if err := cli.Execute(); err != nil {
		os.Exit(moviepipe.ExitCodeForError(err))
	}
}
