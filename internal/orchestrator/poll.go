package orchestrator

import (
	"context"
	"time"
)

// pollLoop ticks the connection poll. The host does not reliably report a
// document switching connection in place, so connections are diffed.
func (o *Orchestrator) pollLoop() {
	defer o.wg.Done()

	ticker := time.NewTicker(o.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.ctx.Done():
			return
		case <-ticker.C:
			o.enqueue(func() { o.Poll(o.ctx) })
		}
	}
}

// Poll compares every open document's connection with the last one seen
// and re-evaluates those that changed. Entries for documents no longer open
// are purged. It does nothing while polling is disabled in the rule file.
func (o *Orchestrator) Poll(ctx context.Context) {
	cfg := o.currentRules()
	if cfg == nil || !cfg.Settings.EnableConnectionPolling {
		return
	}

	docs, err := o.host.OpenDocuments(ctx)
	if err != nil {
		o.logger.Debug("poll could not enumerate documents", "error", err.Error())
		return
	}
	if len(docs) > 0 {
		o.noteObserved()
	}

	seen := make(map[string]bool, len(docs))
	for _, d := range docs {
		seen[d.ID] = true
		current := connection{server: d.Server, database: d.Database}
		if o.lastKnown[d.ID] == current {
			continue
		}
		o.lastKnown[d.ID] = current
		o.trace(d.ID, "connection changed", "server", d.Server, "database", d.Database)
		if !o.HandlePotentialChange(ctx, d.ID, d, ReasonPoll) {
			o.ScheduleRenameRetry(d.ID, ReasonPoll)
		}
	}

	for id := range o.lastKnown {
		if !seen[id] {
			delete(o.lastKnown, id)
		}
	}
}
