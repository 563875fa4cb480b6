package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/spf13/cobra"

	"github.com/roasbeef/greenroom/internal/baselib/actor"
	"github.com/roasbeef/greenroom/internal/build"
	"github.com/roasbeef/greenroom/internal/config"
	"github.com/roasbeef/greenroom/internal/scheduler"
	"github.com/roasbeef/greenroom/internal/stream"
)

// runCmd starts the greenroom daemon: a scheduler running no actors of
// its own, idling until a signal requests shutdown. Its arithmetic and
// stream-demo children reuse the same logging/scheduler bring-up but run
// a fixed demo workload to completion instead of idling.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the greenroom scheduler daemon",
	RunE:  runDaemon,
}

// daemon bundles the pieces every run subcommand needs: a started
// scheduler, a stream manager layered on it, and the signal-driven
// shutdown context.
type daemon struct {
	cfgMu   sync.RWMutex
	cfg     config.SystemConfig
	sched   *scheduler.Scheduler
	streams *stream.Manager
	ctx     context.Context
	cancel  context.CancelFunc
}

// Config returns the daemon's current configuration, safe for concurrent
// use with a hot reload in progress.
func (d *daemon) Config() config.SystemConfig {
	d.cfgMu.RLock()
	defer d.cfgMu.RUnlock()
	return d.cfg
}

func (d *daemon) setConfig(cfg config.SystemConfig) {
	d.cfgMu.Lock()
	defer d.cfgMu.Unlock()
	d.cfg = cfg
}

// bringUp wires logging, loads configuration, and starts the scheduler,
// following the teacher daemon's dual-stream (console + rotating file)
// btclog handler-set pattern.
func bringUp(cmd *cobra.Command) (*daemon, error) {
	cfg, loader, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	var logRotator *build.RotatingLogWriter
	if cfg.Log.Dir != "" {
		logRotator = build.NewRotatingLogWriter()
		err := logRotator.InitLogRotator(&build.LogRotatorConfig{
			LogDir:         cfg.Log.Dir,
			MaxLogFiles:    cfg.Log.MaxFiles,
			MaxLogFileSize: cfg.Log.MaxFileSizeMB,
		})
		if err != nil {
			log.Printf("failed to init log rotator: %v (continuing without file logging)", err)
			logRotator = nil
		}
	}

	var handlers []btclog.Handler
	handlers = append(handlers, btclog.NewDefaultHandler(os.Stderr))
	if logRotator != nil {
		handlers = append(handlers, btclog.NewDefaultHandler(logRotator))
	}
	combined := build.NewHandlerSet(handlers...)
	rootLogger := btclog.NewSLogger(combined)

	actor.UseLogger(rootLogger.WithPrefix(actor.Subsystem))
	scheduler.UseLogger(rootLogger.WithPrefix(scheduler.Subsystem))
	stream.UseLogger(rootLogger.WithPrefix(stream.Subsystem))

	sched := scheduler.New(cfg.Scheduler.ToScheduler())
	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)

	streams := stream.NewManager(sched, cfg.Stream.MaxConcurrentHandshakes)

	d := &daemon{cfg: cfg, sched: sched, streams: streams, ctx: ctx, cancel: cancel}

	// The scheduler's worker count and stream concurrency cap are both
	// fixed at construction; only the polling/heartbeat tuning a running
	// worker re-reads per loop iteration would actually benefit from a
	// live reload. Update the daemon's cached Config so any future read
	// of d.cfg reflects the file, while making that limitation explicit.
	loader.Watch(func(updated config.SystemConfig) {
		log.Printf("config reloaded from %s", configFile)
		d.setConfig(updated)
	})

	return d, nil
}

// shutdown cancels the scheduler's context and waits up to ten seconds for
// its workers to drain. A second SIGINT/SIGTERM forcing exit is handled by
// waitForSignal, not here.
func (d *daemon) shutdown() {
	d.cancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.sched.Shutdown(shutdownCtx); err != nil {
		log.Printf("scheduler shutdown incomplete: %v", err)
	}
}

// waitForSignal blocks until SIGINT or SIGTERM arrives, then returns. A
// second signal forces an immediate exit, mirroring the teacher's
// signal-handling goroutine.
func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Printf("received %v, initiating graceful shutdown (send again to force exit)...", sig)

	go func() {
		sig := <-sigCh
		log.Printf("received %v again, forcing immediate exit", sig)
		os.Exit(1)
	}()
}

func runDaemon(cmd *cobra.Command, args []string) error {
	d, err := bringUp(cmd)
	if err != nil {
		return err
	}

	log.Printf("greenroomd running with %d workers", d.Config().Scheduler.Workers)
	waitForSignal()
	d.shutdown()
	return nil
}
