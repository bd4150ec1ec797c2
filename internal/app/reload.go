package app

import (
	"context"
	"strings"
	"time"

	"sleeptimer/internal/config"
	logx "sleeptimer/pkg/logx"
)

// startReload fans committed config changes out to the running services.
func (a *App) startReload() {
	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfg
		for {
			select {
			case <-c.Done():
				return nil
			case newCfg, ok := <-sub:
				if !ok {
					return nil
				}
				// Coalesce bursts: keep only the latest config in the channel.
				newCfg = drainLatest(sub, newCfg)
				a.applyConfig(c, lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})
}

func drainLatest(sub <-chan *config.Config, cur *config.Config) *config.Config {
	for {
		select {
		case newer := <-sub:
			if newer != nil {
				cur = newer
			}
		default:
			return cur
		}
	}
}

func (a *App) applyConfig(ctx context.Context, oldCfg, newCfg *config.Config) {
	ch := config.SummarizeConfigChange(oldCfg, newCfg)
	if ch.Empty() {
		a.log.Info("config reloaded (no changes)")
		return
	}
	a.log.Debug("config change summary", ch.Fields...)

	if ch.Has("logging") {
		a.logs.Apply(newCfg.Log())
	}

	if ch.Has("timer") || ch.Has("notifier") {
		svcCfg, err := newCfg.Service()
		if err != nil {
			a.log.Warn("invalid timer config; keeping previous", logx.Err(err))
		} else {
			a.timer.Apply(svcCfg)
		}
	}

	if ch.Has("notifier") {
		a.applyNotifier(ctx, newCfg)
	}

	if ch.Has("autostart") {
		if a.auto == nil && newCfg.Autostart.Manage {
			ch.Restart = append(ch.Restart, "autostart")
		} else {
			a.syncAutostart(newCfg)
		}
	}

	if len(ch.Restart) > 0 {
		a.log.Warn("config changed; restart required for changes to take effect",
			logx.String("sections", strings.Join(ch.Restart, ",")))
	}
	a.log.Info("config reloaded", logx.String("changed", strings.Join(ch.Sections, ",")))
}

func (a *App) applyNotifier(ctx context.Context, newCfg *config.Config) {
	ncfg, err := newCfg.NotifySettings()
	if err != nil {
		a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
		return
	}
	wasEnabled := a.notif.Enabled()
	a.notif.Apply(ncfg)
	switch {
	case wasEnabled && !ncfg.Enabled:
		a.log.Info("notifier disabled via config")
		stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		a.notif.Stop(stopCtx)
		cancel()
	case !wasEnabled && ncfg.Enabled:
		a.log.Info("notifier enabled via config")
		a.notif.Start(ctx)
	}
}
