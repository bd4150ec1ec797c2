// Package app wires the daemon: config, logging, storage, the scheduling
// service and everything that feeds it or reacts to it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"sleeptimer/internal/config"
	"sleeptimer/internal/eventbus"
	"sleeptimer/internal/runtime/supervisor"
	"sleeptimer/internal/services/autostart"
	"sleeptimer/internal/services/clock"
	"sleeptimer/internal/services/control"
	"sleeptimer/internal/services/notify"
	"sleeptimer/internal/services/power"
	"sleeptimer/internal/services/sleeptimer"
	"sleeptimer/internal/storage"
	logx "sleeptimer/pkg/logx"
)

type App struct {
	cfgPath string
	dryRun  bool

	cfgm *config.ConfigManager
	cfg  *config.Config
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	notif   *notify.Service
	exec    power.Executor
	ticker  *clock.Ticker
	timer   *sleeptimer.Service
	control *control.Service
	auto    *autostart.Registrar
}

type Option func(*App)

// WithDryRun replaces the power driver with one that only logs.
func WithDryRun() Option { return func(a *App) { a.dryRun = true } }

// New loads (or creates) the config file and sets up logging, storage and
// the notifier. Nothing runs until Start.
func New(cfgPath string, opts ...Option) (_ *App, err error) {
	bootLog := logx.NewConsole("info").With(logx.String("comp", "config"))

	cfgm := config.NewConfigManager(cfgPath)
	cfgm.SetLogger(bootLog)
	cfg, _, err := cfgm.LoadOrCreate()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", cfgPath, err)
	}

	logSvc, log := logx.New(cfg.Log())

	a := &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		cfg:     cfg,
		log:     log.With(logx.String("comp", "app")),
		logs:    logSvc,
		bus:     eventbus.New(),
	}
	for _, o := range opts {
		o(a)
	}
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	sc, err := cfg.StorageSettings()
	if err != nil {
		return nil, err
	}
	a.store, err = storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			a.closeBase()
		}
	}()

	ncfg, err := cfg.NotifySettings()
	if err != nil {
		return nil, err
	}
	sinks, err := buildSinks(cfg, log.With(logx.String("comp", "notify")))
	if err != nil {
		return nil, err
	}
	a.notif = notify.New(ncfg, sinks, log.With(logx.String("comp", "notify")), a.bus)

	if cfg.Autostart.Manage {
		if a.auto, err = autostart.New(nil, log.With(logx.String("comp", "autostart"))); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func buildSinks(cfg *config.Config, log logx.Logger) ([]notify.Sink, error) {
	sinks := []notify.Sink{notify.LogSink{Log: log}}
	if cfg.Notifier.Desktop {
		sinks = append(sinks, notify.DesktopSink{})
	}
	if cfg.Notifier.Telegram.Enabled {
		tg, err := notify.NewTelegramSink(cfg.TelegramSettings())
		if err != nil {
			return nil, fmt.Errorf("notifier.telegram: %w", err)
		}
		sinks = append(sinks, tg)
	}
	return sinks, nil
}

// Timer is the scheduling service; nil before Start.
func (a *App) Timer() *sleeptimer.Service { return a.timer }

// ControlAddr is the bound control API address, or "" when it is off.
func (a *App) ControlAddr() string {
	if a.control == nil {
		return ""
	}
	return a.control.Addr()
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	cfg := a.cfg
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	runCtx := a.sup.Context()

	svcCfg, err := cfg.Service()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	tick, err := cfg.Tick()
	if err != nil {
		return err
	}

	pcfg := cfg.PowerSettings()
	if a.dryRun {
		pcfg.Driver = "noop"
	}
	a.exec, err = power.New(runCtx, pcfg, a.log.With(logx.String("comp", "power")))
	if err != nil {
		return fmt.Errorf("power: %w", err)
	}
	a.log.Info("sleep driver ready", logx.String("driver", a.exec.Name()))

	clk := clock.Real{Location: loc}
	a.timer = sleeptimer.New(sleeptimer.Deps{
		Clock:    clk,
		Store:    a.store,
		Notifier: warner{a.notif},
		Executor: a.exec,
		Bus:      a.bus,
		Log:      a.log.With(logx.String("comp", "sleeptimer")),
	}, svcCfg)
	// A failed load is logged by the service, which falls back to defaults.
	_ = a.timer.Load(ctx)

	a.cfgm.SetValidator(func(_ context.Context, c *config.Config) error { return config.Validate(c) })

	a.notif.Start(runCtx)

	rec := eventbus.NewRecorder(a.bus, a.store, a.log.With(logx.String("comp", "journal")))
	a.sup.Go("eventbus.journal", func(c context.Context) error {
		rec.Run(c)
		return nil
	})
	a.logEvents()

	a.ticker = clock.NewTicker(clk, tick, a.log.With(logx.String("comp", "ticker")))
	a.ticker.Start()
	a.sup.Go("sleeptimer.run", func(c context.Context) error {
		return a.timer.Run(c, a.ticker.C())
	})

	if cfg.Power.WatchWake {
		a.sup.GoRestart("power.wake", func(c context.Context) error {
			err := power.WatchWake(c, a.log.With(logx.String("comp", "power")), func(at time.Time) {
				a.log.Info("host resumed", logx.Time("at", at))
				a.ticker.Poke()
			})
			if errors.Is(err, power.ErrUnsupported) {
				a.log.Debug("resume notifications unavailable", logx.Err(err))
				return nil
			}
			return err
		}, supervisor.WithRestartBackoff(time.Second, time.Minute))
	}

	if cfg.Control.Enabled {
		a.control = control.New(a.timer, control.Config{
			Addr:  cfg.ControlAddr(),
			Token: cfg.Control.Token,
			Pprof: cfg.Control.Pprof,

			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  time.Minute,
		}, a.log.With(logx.String("comp", "control")),
			control.WithSupervisor(a.sup),
			control.WithEvents(a.store),
		)
		if err := a.control.Start(runCtx); err != nil {
			return err
		}
	}

	a.syncAutostart(cfg)

	// Arm the next occurrence right away.
	a.timer.Arm()

	a.startReload()
	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.notifySystemd()

	st := a.timer.Status()
	a.log.Info("app started",
		logx.String("config", a.cfgPath),
		logx.String("phase", st.Phase),
		logx.String("next", st.NextText),
	)
	return nil
}

// logEvents mirrors bus traffic at debug level.
func (a *App) logEvents() {
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go("eventbus.log", func(c context.Context) error {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})
}

// notifySystemd reports readiness and keeps the watchdog fed when the unit
// asks for it. Outside systemd both calls are no-ops.
func (a *App) notifySystemd() {
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Debug("sd_notify failed", logx.Err(err))
	} else if ok {
		a.log.Debug("sd_notify ready sent")
	}
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return
	}
	a.sup.Go("systemd.watchdog", func(c context.Context) error {
		t := time.NewTicker(interval / 2)
		defer t.Stop()
		for {
			select {
			case <-c.Done():
				return nil
			case <-t.C:
				_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}
	})
}

func (a *App) syncAutostart(cfg *config.Config) {
	if a.auto == nil || !cfg.Autostart.Manage {
		return
	}
	changed, err := a.auto.Sync(cfg.Autostart.Enabled)
	if err != nil {
		a.log.Warn("autostart sync failed", logx.Err(err))
		return
	}
	if changed {
		a.log.Info("autostart updated", logx.Bool("enabled", cfg.Autostart.Enabled))
	}
}

// warner drops the "disabled" error so a muted notifier is not reported as
// a failed warning on every episode.
type warner struct{ n *notify.Service }

func (w warner) Warn(ctx context.Context, title, body string) error {
	err := w.n.Warn(ctx, title, body)
	if errors.Is(err, notify.ErrDisabled) {
		return nil
	}
	return err
}

func closeExecutor(ex power.Executor) error {
	if c, ok := ex.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
