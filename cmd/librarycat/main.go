package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"librarycat/cmd/librarycat/migrate"
	"librarycat/cmd/librarycat/serve"
	"librarycat/cmd/librarycat/users"
	"librarycat/internal/cmdflags"
	"librarycat/internal/logutil"
)

func main() {
	var logLevel, logFormat string
	app := &cli.App{
		Name:  "librarycat",
		Usage: "A small shared library catalog behind a login",
		Flags: cmdflags.Logging(&logLevel, &logFormat),
		Before: func(ctx *cli.Context) error {
			if err := logutil.Setup(logLevel, logFormat); err != nil {
				return err
			}
			ctx.Context = logutil.WithLogger(ctx.Context, log.Logger)
			return nil
		},
		Commands: []*cli.Command{
			serve.Cmd(),
			migrate.Cmd(),
			users.Cmd(),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Application failed")
		os.Exit(1)
	}
}
