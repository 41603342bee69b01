// Command walletdev runs the development wallet service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/exp/slog"

	"github.com/alovak/cardsync/walletdev"
)

var (
	flagAddr       = flag.String("addr", "", "listen address (overrides HTTP_ADDR)")
	flagDebug      = flag.Bool("debug", false, "log at debug level")
	flagPrintToken = flag.String("print-token", "", "print a bearer token for this subject after start")
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *flagDebug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := walletdev.ConfigFromEnv()
	if *flagAddr != "" {
		cfg.HTTPAddr = *flagAddr
	}

	app := walletdev.NewApp(logger, cfg)
	if err := app.Start(); err != nil {
		logger.Error("starting walletdev", "err", err)
		os.Exit(1)
	}

	if *flagPrintToken != "" {
		token, err := app.Auth.Mint(*flagPrintToken)
		if err != nil {
			logger.Error("minting token", "err", err)
		} else {
			fmt.Println(token)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	app.Shutdown()
}
