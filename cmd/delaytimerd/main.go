package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdnotify "github.com/coreos/go-systemd/v22/daemon"

	"delaytimer/internal/config"
	"delaytimer/internal/executor"
	"delaytimer/internal/sched"
	"delaytimer/internal/storage"
	logx "delaytimer/pkg/logx"
)

const stopTimeout = 15 * time.Second

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./delaytimer.yaml", "path to config yaml/json")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.LogxLevel(),
		Console: cfg.Logging.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	defer logSvc.Close()
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	store, err := storage.Open(storage.Config{
		Driver: cfg.Journal.Driver,
		Path:   cfg.Journal.Path,
		Keep:   cfg.Journal.Keep,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	if store != nil {
		defer store.Close()
	}

	exec, err := executor.New(executor.Config{
		Kind:      executor.Kind(cfg.Executor.Kind),
		Workers:   cfg.Executor.Workers,
		QueueSize: cfg.Executor.QueueSize,
	})
	if err != nil {
		return err
	}

	opts := []sched.Option{sched.WithExecutor(exec)}
	if store != nil {
		opts = append(opts, sched.WithStore(store))
	}
	scheduler := sched.New(sched.Config{
		BusCapacity: cfg.Scheduler.BusCapacity,
		HistorySize: cfg.Scheduler.HistorySize,
	}, log.With(logx.String("comp", "sched")), opts...)

	for _, tc := range cfg.Tasks {
		task, terr := tc.ToTask()
		if terr != nil {
			return fmt.Errorf("task %d: %w", tc.ID, terr)
		}
		if aerr := scheduler.AddTask(task); aerr != nil {
			return fmt.Errorf("task %d: %w", tc.ID, aerr)
		}
	}

	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	log.Info("delaytimerd started",
		logx.String("config", cfgPath),
		logx.Int("tasks", len(cfg.Tasks)),
		logx.String("executor", cfg.Executor.Kind),
	)

	// Observation stream: mirror lifecycle events into the log at debug.
	events, unsub := scheduler.Events()
	go func() {
		for e := range events {
			log.Debug("event", logx.String("topic", string(e.Topic)), logx.Any("data", e.Data))
		}
	}()
	defer unsub()

	// Live reload: diff the task set and apply, swap log sinks in place.
	go func() {
		prev := cfg
		_ = mgr.Watch(ctx, func(next *config.Config) {
			logSvc.Apply(logx.Config{
				Level:   next.Logging.LogxLevel(),
				Console: next.Logging.ConsoleEnabled(),
				File: logx.FileConfig{
					Enabled: next.Logging.File.Enabled,
					Path:    next.Logging.File.Path,
				},
			})

			diff := config.DiffTasks(prev.Tasks, next.Tasks)
			prev = next
			if diff.Empty() {
				return
			}
			for _, tc := range diff.Added {
				applyTask(log, scheduler.AddTask, tc)
			}
			for _, tc := range diff.Updated {
				applyTask(log, scheduler.UpdateTask, tc)
			}
			for _, id := range diff.Removed {
				if err := scheduler.RemoveTask(id); err != nil {
					log.Warn("remove task failed", logx.Uint64("task", id), logx.Err(err))
				}
			}
			log.Info("task set reloaded",
				logx.Int("added", len(diff.Added)),
				logx.Int("updated", len(diff.Updated)),
				logx.Int("removed", len(diff.Removed)),
			)
		})
	}()

	notifySystemd(log, sdnotify.SdNotifyReady)
	startWatchdog(ctx, log)

	<-ctx.Done()
	notifySystemd(log, sdnotify.SdNotifyStopping)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	return scheduler.Stop(stopCtx)
}

func applyTask(log logx.Logger, apply func(sched.Task) error, tc config.TaskConfig) {
	task, err := tc.ToTask()
	if err != nil {
		log.Warn("invalid task in reloaded config", logx.Uint64("task", tc.ID), logx.Err(err))
		return
	}
	if err := apply(task); err != nil {
		log.Warn("apply task failed", logx.Uint64("task", tc.ID), logx.Err(err))
	}
}

func notifySystemd(log logx.Logger, state string) {
	if _, err := sdnotify.SdNotify(false, state); err != nil {
		log.Debug("sd_notify unavailable", logx.Err(err))
	}
}

// startWatchdog pings systemd's watchdog at half the configured interval.
func startWatchdog(ctx context.Context, log logx.Logger) {
	interval, err := sdnotify.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	go func() {
		t := time.NewTicker(interval / 2)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				_, _ = sdnotify.SdNotify(false, sdnotify.SdNotifyWatchdog)
			}
		}
	}()
	log.Info("systemd watchdog enabled", logx.Duration("interval", interval))
}
