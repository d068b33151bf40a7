// Package app wires the pipeline together: config, storage, channels,
// dispatcher, coordinator and the schedules that drive them.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"weekletter/internal/channel"
	"weekletter/internal/config"
	"weekletter/internal/dedup"
	"weekletter/internal/delivery"
	"weekletter/internal/dispatch"
	"weekletter/internal/eventbus"
	"weekletter/internal/letter"
	"weekletter/internal/retry"
	"weekletter/internal/source"
	"weekletter/internal/storage"
	logx "weekletter/pkg/logx"
)

const (
	defaultFetchSchedule = "0 9 * * MON"
	defaultPollEvery     = 5 * time.Minute
)

type App struct {
	cfgPath string
	cfgm    *config.Manager

	log      logx.Logger
	closeLog func() error
	bus      eventbus.Bus
	store    storage.Store

	reg   *channel.Registry
	coord *delivery.Coordinator
	src   source.Source

	cron      *cron.Cron
	pollEvery time.Duration

	mu         sync.Mutex
	recipients []string

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	log, closeLog := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	log.Info("storage opened", logx.String("driver", sc.Driver))

	src, err := source.New(source.Config{
		Kind: cfg.Source.Kind,
		Dir:  cfg.Source.Dir,
	}, log.With(logx.String("comp", "source")))
	if err != nil {
		return nil, err
	}

	reg, err := buildChannels(cfg, log)
	if err != nil {
		return nil, err
	}

	dispCfg, err := mapDispatchConfig(cfg)
	if err != nil {
		return nil, err
	}
	disp := dispatch.New(dispCfg, reg, log.With(logx.String("comp", "dispatch")), bus)

	retryCfg, err := mapRetryConfig(cfg)
	if err != nil {
		return nil, err
	}
	tracker := retry.NewTracker(retryCfg, store, log.With(logx.String("comp", "retry")))
	gate := dedup.NewGate(store, log.With(logx.String("comp", "dedup")))

	coord := delivery.NewCoordinator(gate, tracker, disp,
		log.With(logx.String("comp", "delivery")), bus)

	pollEvery, err := config.ParseDurationOrDefault("retry.poll_every", cfg.Retry.PollEvery, defaultPollEvery)
	if err != nil {
		return nil, err
	}

	loc := time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("timezone: %w", err)
		}
	}

	return &App{
		cfgPath:    cfgPath,
		cfgm:       cfgm,
		log:        log,
		closeLog:   closeLog,
		bus:        bus,
		store:      store,
		reg:        reg,
		coord:      coord,
		src:        src,
		cron:       cron.New(cron.WithLocation(loc)),
		pollEvery:  pollEvery,
		recipients: append([]string(nil), cfg.Recipients...),
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	a.runCtx, a.cancel = context.WithCancel(ctx)
	cfg := a.cfgm.Get()

	schedule := strings.TrimSpace(cfg.FetchSchedule)
	if schedule == "" {
		schedule = defaultFetchSchedule
	}
	if _, err := a.cron.AddFunc(schedule, func() {
		a.deliverAll(a.runCtx, letter.CurrentPeriod(time.Now()))
	}); err != nil {
		return fmt.Errorf("fetch_schedule: %w", err)
	}
	if _, err := a.cron.AddFunc("@every "+a.pollEvery.String(), func() {
		if err := a.coord.ProcessDue(a.runCtx, a.src); err != nil && a.runCtx.Err() == nil {
			a.log.Error("retry poll failed", logx.Err(err))
		}
	}); err != nil {
		return fmt.Errorf("retry.poll_every: %w", err)
	}
	a.cron.Start()

	// Debug visibility into the pipeline; components log their own outcomes.
	events, unsub := a.bus.Subscribe(128)
	a.goLoop(func() {
		defer unsub()
		for {
			select {
			case <-a.runCtx.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	a.startConfigReload()
	a.goLoop(func() {
		if err := a.cfgm.Watch(a.runCtx); err != nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	})

	if cfg.PostOnStartup {
		a.goLoop(func() {
			a.deliverAll(a.runCtx, letter.CurrentPeriod(time.Now()))
		})
	}

	a.log.Info("app started",
		logx.String("schedule", schedule),
		logx.Duration("retry_poll", a.pollEvery),
		logx.Int("recipients", len(a.recipients)))
	return nil
}

// deliverAll runs one delivery pass for every configured recipient.
// Failures are handled inside the coordinator; only persistence errors
// surface here, and those are logged and move on to the next recipient.
func (a *App) deliverAll(ctx context.Context, period letter.Period) {
	a.mu.Lock()
	recipients := append([]string(nil), a.recipients...)
	a.mu.Unlock()

	for _, r := range recipients {
		if ctx.Err() != nil {
			return
		}
		res, err := a.coord.DeliverCurrent(ctx, a.src, r, period)
		if err != nil {
			a.log.Error("delivery pass failed",
				logx.String("recipient", r),
				logx.String("period", period.String()),
				logx.Err(err))
			continue
		}
		a.log.Debug("delivery pass done",
			logx.String("recipient", r),
			logx.String("period", period.String()),
			logx.String("status", string(res.Status)))
	}
}

func (a *App) goLoop(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}

	// Wait for in-flight cron jobs, bounded by the caller's deadline.
	stopped := a.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		a.log.Warn("cron jobs still running at shutdown deadline")
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("background loops still running at shutdown deadline")
	}

	var firstErr error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			firstErr = err
			a.log.Warn("storage close failed", logx.Err(err))
		}
	}
	a.log.Info("stopped")
	if a.closeLog != nil {
		_ = a.closeLog()
	}
	return firstErr
}
