package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/pkg/errors"

	"github.com/trezcool/mergington/apps"
	"github.com/trezcool/mergington/apps/shared"
	"github.com/trezcool/mergington/core"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stderr, "MERGINGTON : ", log.LstdFlags|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)
	deps, err := shared.NewDeps(conf, logger)
	errAndDie(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli := newCommandLine(deps, os.Stdin, os.Stdout)
	if err := cli.run(ctx, os.Args); err != nil {
		var argErr *apps.ArgumentError
		switch {
		case errors.As(err, &argErr):
			fmt.Fprintf(os.Stderr, "%s\nSee 'mergington --help'.\n", argErr)
		case err != errHelp && err != errReported:
			logger.Printf("error: %s\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
