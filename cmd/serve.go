package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/df07/go-restir-passes/web/server"
	"github.com/urfave/cli"
)

// Serve the preview API until interrupted.
func Serve(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	srv := server.NewServer(ctx.Int("port"), ctx.String("scenes"))
	logger.Noticef("Visit http://localhost:%d/api/render to start rendering", ctx.Int("port"))
	if err := srv.Start(sigCtx); err != nil {
		logger.Error(err)
		return err
	}
	return nil
}
