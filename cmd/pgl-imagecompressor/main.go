package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/paulschiretz/pgl-imagecompressor/cmd"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/buildinfo"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/flagparse"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/plog"
)

// run encapsulates the main application logic and returns an error if something
// goes wrong, allowing the main function to handle exit codes.
func run(ctx context.Context, args []string) error {
	command, flagMap, err := flagparse.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	plog.Debug("Starting "+buildinfo.Name, "version", buildinfo.Version, "pid", os.Getpid(), "command", command)

	switch command {
	case flagparse.None:
		return nil
	case flagparse.Compress:
		return cmd.RunCompress(ctx, flagMap)
	case flagparse.Init:
		return cmd.RunInit(ctx, flagMap)
	case flagparse.Version:
		return cmd.RunVersion(buildinfo.Name, buildinfo.Version)
	default:
		return fmt.Errorf("internal error: unknown command %d", command)
	}
}

func main() {
	// Set up a context that is canceled when an interrupt signal is received.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		plog.Warn("Interrupt received, stopping after the current file.")
		cancel()
	}()

	if err := run(ctx, os.Args[1:]); err != nil {
		plog.Error(buildinfo.Name+" exited with error", "error", err)
		os.Exit(1)
	}
}
