package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		cancel()
	}()

	if err := run(ctx, os.Getenv, os.Getwd, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "esimrewards: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, getenv func(string) string, getwd func() (string, error), args []string, out io.Writer) error {
	config := NewConfig()

	if err := config.LoadDotEnv(getwd); err != nil {
		return fmt.Errorf("error while loading '.env' file. Err: %w", err)
	}
	config.LoadEnv(getenv)

	command, err := config.ParseFlags(args)
	if err != nil {
		return err
	}

	app, err := NewApp(ctx, config, out)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.Run(ctx, command)
}
