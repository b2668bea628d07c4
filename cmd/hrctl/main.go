package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/hrdesk/internal/cli"
	"github.com/okian/hrdesk/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCmd(os.Stdout).ExecuteContext(ctx)
	stop()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
