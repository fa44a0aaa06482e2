package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/projectvault/projectrestore/internal/lock"
	"github.com/projectvault/projectrestore/internal/restore"
)

// Exit codes are part of the tool's contract with wrapping scripts.
const (
	exitOK          = 0
	exitError       = 1
	exitInterrupted = 2
	exitLocked      = 3
)

func main() {
	// One cancellation context spans the whole critical section; the
	// extraction loop observes it between entries.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	if err == nil {
		os.Exit(exitOK)
	}

	switch {
	case errors.Is(err, lock.ErrContended):
		os.Exit(exitLocked)
	case errors.Is(err, restore.ErrInterrupted), errors.Is(err, context.Canceled):
		os.Exit(exitInterrupted)
	default:
		os.Exit(exitError)
	}
}
