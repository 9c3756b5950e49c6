package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dicebag/internal/command"
	"github.com/cory-johannsen/dicebag/internal/server"
)

// shell runs the interactive loop under a Lifecycle so SIGINT and SIGTERM
// end it cleanly. It returns when input is exhausted, on quit, or on a signal.
func (a *app) shell(ctx context.Context, in io.Reader, logger *zap.Logger) error {
	var stopped atomic.Bool
	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("shell", &server.FuncService{
		StartFn: func() error { return a.readLoop(ctx, in, &stopped) },
		StopFn:  func() { stopped.Store(true) },
	})
	return lifecycle.Run(ctx)
}

// readLoop executes one command per input line. Command errors are printed
// and the loop continues.
//
// Postcondition: Returns nil on EOF, quit or stop; a non-nil error only when
// reading input fails.
func (a *app) readLoop(ctx context.Context, in io.Reader, stopped *atomic.Bool) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(a.out, "dicebag> ")
		if !scanner.Scan() {
			fmt.Fprintln(a.out)
			return scanner.Err()
		}
		if stopped.Load() {
			return nil
		}

		line, err := command.Parse(scanner.Text())
		if err != nil {
			fmt.Fprintf(a.out, "error: %v\n", err)
			continue
		}
		if line.Command == "" {
			continue
		}
		if c, ok := a.commands.Resolve(line.Command); ok {
			switch c.Handler {
			case command.HandlerQuit:
				return nil
			case command.HandlerHelp:
				fmt.Fprint(a.out, a.commands.Help(command.HandlerShell))
				continue
			case command.HandlerShell:
				fmt.Fprintln(a.out, "already in the shell")
				continue
			}
		}

		if err := a.dispatch(ctx, line.Command, line.Args); err != nil {
			if errors.Is(err, errUsage) {
				fmt.Fprintf(a.out, "%v (type help)\n", err)
				continue
			}
			fmt.Fprintf(a.out, "error: %v\n", err)
		}
	}
}
