package orchestrator

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// startWatcher watches the rule file's directory; editors often replace
// the file rather than write it in place. Caller holds o.mu.
func (o *Orchestrator) startWatcher() error {
	if o.opts.RulesPath == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(o.opts.RulesPath)); err != nil {
		_ = watcher.Close()
		return err
	}
	o.watcher = watcher

	o.wg.Add(1)
	go o.watchLoop(watcher)
	return nil
}

func (o *Orchestrator) watchLoop(w *fsnotify.Watcher) {
	defer o.wg.Done()
	target := filepath.Base(o.opts.RulesPath)

	for {
		select {
		case <-o.ctx.Done():
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !strings.EqualFold(filepath.Base(ev.Name), target) {
				continue
			}
			o.enqueue(o.scheduleReload)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			o.logger.Warn("rule file watcher error", "error", err.Error())
		}
	}
}

// scheduleReload restarts the quiet period; only the last change in a
// burst reloads. Runs on the loop.
func (o *Orchestrator) scheduleReload() {
	if o.reloadTimer != nil {
		o.reloadTimer.Stop()
	}
	o.reloadGen++
	gen := o.reloadGen
	o.reloadTimer = time.AfterFunc(o.opts.Debounce, func() {
		o.enqueue(func() {
			if gen != o.reloadGen {
				return
			}
			o.reloadTimer = nil
			o.Reload(o.ctx)
		})
	})
}

// Reload drops the cached rules and the proposal memory, reloads, and
// re-evaluates every open document. Colors are synced once at the end
// rather than per document.
func (o *Orchestrator) Reload(ctx context.Context) {
	o.rules.invalidate()
	clear(o.proposed)

	cfg := o.currentRules()
	if cfg == nil {
		o.logger.Info("rule file missing after change", "path", o.rules.path)
		return
	}

	o.suppressColor++
	o.evaluateAll(ctx, ReasonConfigReload)
	o.suppressColor--

	o.syncColors(ctx, ReasonConfigReload)
}

// Reset forgets cached rules, the colorization path and the proposal
// memory, as if starting fresh. Assignments are kept.
func (o *Orchestrator) Reset(ctx context.Context) error {
	return o.Do(ctx, func() {
		o.rules.invalidate()
		clear(o.proposed)
		o.colors.Reset()
	})
}
