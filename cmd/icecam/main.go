package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"github.com/lanikai/icecam/internal/config"
	"github.com/lanikai/icecam/internal/console"
	"github.com/lanikai/icecam/internal/event"
	"github.com/lanikai/icecam/internal/ice"
	"github.com/lanikai/icecam/internal/logging"
	"github.com/lanikai/icecam/internal/session"
)

// Populated via -ldflags="-X ...". See Makefile.
var GitRevisionId string
var GitTag string

var log = logging.DefaultLogger.WithTag("main")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, flags, err := config.Parse("icecam", args)
	switch {
	case flags.Help:
		help()
		return 0
	case flags.Version:
		version()
		return 0
	case err != nil:
		fmt.Fprintf(os.Stderr, "icecam: %v\n", err)
		fmt.Fprintln(os.Stderr, "Try 'icecam --help' for more information.")
		return 1
	}

	if cfg.LogLevel != "" {
		// Already checked by Validate.
		level, _ := logging.ParseLevel(cfg.LogLevel)
		logging.DefaultLogger.SetDefaultLevel(level)
	}
	if cfg.LogFile != "" {
		closer, err := logging.DefaultLogger.TeeFile(cfg.LogFile)
		if err != nil {
			log.Error("%v", err)
			return 1
		}
		defer closer.Close()
	}

	timers := event.NewTimerHeap()
	queue := event.NewQueue(cfg.Worker.QueueLength)
	defer queue.Close()

	sched := event.NewScheduler(timers, queue)
	sched.MaxIOEvents = cfg.Worker.MaxIOEvents
	worker := event.NewWorker(sched, cfg.Worker.TickBound)
	worker.Start()
	defer worker.Stop(cfg.Worker.ShutdownGrace)

	engine := ice.NewPionEngine(timers, queue, logging.NewPionFactory(logging.DefaultLogger))
	ctrl := session.New(engine, session.Options{
		Config:              cfg.EngineConfig(),
		Components:          cfg.Components,
		DescriptionCapacity: cfg.DescriptionCapacity,
		Syncer:              worker,
	})
	defer func() {
		if err := ctrl.Shutdown(); err != nil {
			log.Warn("%v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = console.New(ctrl, os.Stdin, os.Stdout).Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("%v", err)
		return 1
	}
	log.Info("Exiting")
	return 0
}
