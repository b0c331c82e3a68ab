// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package main implements the e2cloud executable, used to run end-to-end
// tests remotely and report them into a ReportPortal launch.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"
	"golang.org/x/crypto/ssh/terminal"

	"go.chromium.org/e2cloud/internal/logging"
	"go.chromium.org/e2cloud/internal/progress"
)

const (
	signalChannelSize = 3 // capacity of channel used to intercept signals
)

// Version is the version info of this command. It is filled in at build time.
var Version = "<unknown>"

// newLogger creates a logger writing to sink based on the supplied
// command-line flags.
func newLogger(sink logging.Sink, verbose, logTime bool) logging.Logger {
	level := logging.LevelInfo
	if verbose {
		level = logging.LevelDebug
	}
	return logging.NewSinkLogger(level, logTime, sink)
}

// installSignalHandler starts a goroutine that cancels the run on the first
// signal, so that the launch gets finished as stopped. A second signal
// restores the terminal and exits immediately.
func installSignalHandler(ctx context.Context, cancel context.CancelFunc) {
	var st *terminal.State
	fd := int(os.Stdin.Fd())
	if terminal.IsTerminal(fd) {
		var err error
		if st, err = terminal.GetState(fd); err != nil {
			logging.Info(ctx, "Failed to get terminal state: ", err)
		}
	}

	sc := make(chan os.Signal, signalChannelSize)
	go func() {
		sig := <-sc
		logging.Infof(ctx, "Caught %v signal; stopping (repeat to exit)", sig)
		cancel()
		sig = <-sc
		if st != nil {
			terminal.Restore(fd, st)
		}
		fmt.Fprintf(os.Stdout, "\nCaught %v signal; exiting\n", sig)
		os.Exit(1)
	}()
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
}

// doMain implements the main body of the program. It's a separate function so
// that its deferred functions will run before os.Exit makes the program exit
// immediately.
func doMain() int {
	var term *progress.Terminal
	var sink logging.Sink = logging.NewWriterSink(os.Stdout)
	if progress.IsTerminal(os.Stdout) && os.Getenv("TERM") != "dumb" {
		term = progress.NewTerminal(os.Stdout)
		sink = term
	}

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(newListCmd(os.Stdout), "")
	subcommands.Register(newRunCmd(term), "")

	version := flag.Bool("version", false, "print version and exit")
	verbose := flag.Bool("verbose", false, "use verbose logging")
	logTime := flag.Bool("logtime", false, "include date/time headers in logs")
	flag.Parse()

	if *version {
		fmt.Printf("e2cloud version %s\n", Version)
		return 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logging.AttachLogger(ctx, newLogger(sink, *verbose, *logTime))

	installSignalHandler(ctx, cancel)

	return int(subcommands.Execute(ctx))
}

func main() {
	os.Exit(doMain())
}
