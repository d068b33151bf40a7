package app

import (
	"context"
	"strings"

	"weekletter/internal/config"
	logx "weekletter/pkg/logx"
)

// startConfigReload installs the validation hook and runs the fan-out loop
// that applies hot-reloadable settings. Channel enable flags and the
// recipient list apply live; storage, logging and channel credentials need
// a restart and are only flagged.
func (a *App) startConfigReload() {
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return config.Validate(cfg)
	})

	sub := a.cfgm.Subscribe(8)
	a.goLoop(func() {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-a.runCtx.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				sections, attrs := config.SummarizeChange(lastApplied, newCfg)
				lastApplied = newCfg
				if len(sections) == 0 {
					a.log.Debug("config reload received, but no effective changes detected")
					continue
				}

				for _, s := range sections {
					switch s {
					case "storage", "logging", "source", "retry", "dispatch", "schedule":
						a.log.Warn("config section changed; restart required for changes to take effect",
							logx.String("section", s))
					}
				}

				a.applyChannelFlags(newCfg)

				a.mu.Lock()
				a.recipients = append([]string(nil), newCfg.Recipients...)
				a.mu.Unlock()

				fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
				a.log.Info("config reloaded", fields...)
			}
		}
	})
}
