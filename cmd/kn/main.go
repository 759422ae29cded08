// Command kn is a command line client of the Kilonova judge API.
//
// Usage:
//
//	kn submissions --problem 12 --page 2
//	kn submission 1234
//	kn user 1 2 3
//	kn call get problem/get id=12
//	kn upload --problem 12 --lang cpp17 ./main.cpp
//	kn session set <session-id>
//
// Configuration is read from KN_* environment variables and the .env file, see internal/config.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{stdout: os.Stdout, stderr: os.Stderr}
	err := newRootCommand(a).ExecuteContext(ctx)
	a.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "kn: %v\n", err)
		stop()
		os.Exit(1)
	}
}
