// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sitewire/fieldsync/internal/client"
	"github.com/sitewire/fieldsync/internal/config"
	"github.com/sitewire/fieldsync/internal/logger"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	// An optional leading subcommand (run / sync / status / pending) is
	// peeled off before flag parsing.
	command := "run"
	if len(os.Args) > 1 && !strings.HasPrefix(os.Args[1], "-") {
		command = os.Args[1]
		os.Args = append(os.Args[:1], os.Args[2:]...)
	}

	log := logger.NewLogger("fieldsync-client")
	cfg, err := config.GetConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}
	cfg.App.Version = buildVersion

	app, err := client.NewApp(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init client app error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case "run":
		err = app.Run(ctx)
	case "sync":
		err = app.SyncOnce(ctx)
	case "status":
		err = app.Status(ctx)
	case "pending":
		err = app.Pending(ctx)
	default:
		log.Fatal().Str("command", command).Msg("unknown command (expected run, sync, status or pending)")
	}

	if err != nil {
		if client.IsTerminal(err) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("client run error")
	}
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
