// Command connect is a command-line client for Notion, Meta Ads, Stripe,
// Cloudflare, Mixpanel and Google Drive.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/connect-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/logger"
)

// version is injected with -ldflags "-X main.version=...".
var version = ""

func main() {
	// A .env file in the working directory supplies credentials like any
	// other environment variable. Its absence is not an error.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	err := cli.Execute(ctx)
	_ = logger.L().Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(domain.ExitCode(err))
	}
}
