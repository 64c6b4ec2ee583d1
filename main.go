package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samzong/aic/cmd"
	"github.com/samzong/aic/internal/ui"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.ExecuteContext(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "\nOperation cancelled")
			cancel()
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, ui.Error("Error:"), err)
		cancel()
		os.Exit(1)
	}
}
