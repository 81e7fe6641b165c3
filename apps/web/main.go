package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trezcool/mergington/apps/shared"
	echoweb "github.com/trezcool/mergington/apps/web/echo"
	"github.com/trezcool/mergington/core"
	"github.com/trezcool/mergington/core/dashboard"
)

const shutdownTimeout = 5 * time.Second

var logger *log.Logger

func main() {
	logger = log.New(os.Stderr, "MERGINGTON WEB : ", log.LstdFlags|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)
	deps, err := shared.NewDeps(conf, logger)
	errAndDie(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := deps.NewController(dashboard.Options{Layouts: echoweb.Layouts})
	go func() { _ = ctrl.Run(ctx) }()

	// pages show the load failure; serve them anyway
	if err = ctrl.Do(ctx, dashboard.Event{Kind: dashboard.EventLoad}); err != nil {
		deps.Logger.Warn("initial load failed", err)
	}

	app := echoweb.NewServer(&echoweb.Options{
		Address:    conf.WebAddress,
		AppName:    conf.AppName,
		Debug:      conf.Debug,
		Controller: ctrl,
		Logger:     deps.Logger,
	})

	serverErrors := make(chan error, 1)
	go func() { serverErrors <- app.Start() }()

	select {
	case err = <-serverErrors:
		errAndDie(err)
	case <-ctx.Done():
		logger.Println("shutting down...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err = app.Stop(sctx); err != nil {
			logger.Printf("graceful shutdown failed: %v", err)
		}
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
