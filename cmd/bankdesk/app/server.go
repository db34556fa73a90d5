// Package app provides the bankdesk server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/bankdesk/cmd/bankdesk/app/options"
	"github.com/kart-io/bankdesk/pkg/app"
)

const (
	// Name is the name of the application.
	Name = "bankdesk"

	// commandDesc is the description of the command.
	commandDesc = `Bankdesk - bank customer service assistant

A retrieval-augmented question answering service over a markdown knowledge base.

This server provides:
  - Three-stage answer pipeline (reformulation, retrieval + answer, validation)
  - Vector similarity search over banking policy documents
  - Query history with confidence and intent statistics
  - Support for Ollama and OpenAI-compatible LLM providers`
)

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	application := app.NewApp(
		app.WithName(Name),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)

	return application
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := setupSignalContext()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		return server.Run(ctx)
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
// A second signal forces immediate exit.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
