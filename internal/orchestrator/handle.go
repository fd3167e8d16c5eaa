package orchestrator

import (
	"context"
	"time"

	"github.com/Iron-Ham/tabtint/internal/errors"
	"github.com/Iron-Ham/tabtint/internal/event"
	"github.com/Iron-Ham/tabtint/internal/host"
	"github.com/Iron-Ham/tabtint/internal/renamer"
	"github.com/Iron-Ham/tabtint/internal/rules"
	"github.com/Iron-Ham/tabtint/internal/util"
)

// HandlePotentialChange evaluates one document and runs whatever side
// effects are due. It returns false only when information was missing
// (the connection is not populated yet) and a retry is worthwhile.
//
// It must run on the loop (or before Start). Calling it redundantly for the
// same document is safe.
func (o *Orchestrator) HandlePotentialChange(ctx context.Context, id string, doc host.Document, reason Reason) bool {
	cfg := o.currentRules()
	if cfg == nil {
		return true
	}
	if doc.Path != "" && !o.classifier.IsQueryDocument(doc) {
		return true
	}

	settings := cfg.Settings
	complete := true
	renamed := false
	proposed := false

	if settings.EnableAutoRename {
		eligible := o.classifier.LooksUnnamed(doc) || reason.IsConnectionChange()
		switch {
		case eligible && doc.HasConnection():
			if group, ok := o.classify(doc); ok {
				renamed = o.applyRename(ctx, id, doc, group, settings.RenameStyle())
			} else {
				proposed = o.maybePropose(ctx, doc, settings)
			}
		case eligible:
			o.trace(id, "connection not populated yet", "reason", reason.String())
			complete = false
		case doc.HasConnection():
			proposed = o.proposeIfUnmatched(ctx, doc, settings)
		}
	} else if doc.HasConnection() {
		proposed = o.proposeIfUnmatched(ctx, doc, settings)
	}

	if complete && (renamed || reason.IsConnectionChange() || proposed) {
		o.syncColors(ctx, reason)
	}
	return complete
}

// classify finds the document's group: connection rules first, then
// manual rules on the file path.
func (o *Orchestrator) classify(doc host.Document) (string, bool) {
	if group, ok := rules.MatchGroup(o.rules.compiled, doc.Server, doc.Database); ok {
		return group, true
	}
	if r, ok := rules.MatchManual(o.rules.manual, doc.Path); ok && r.GroupName != "" {
		return r.GroupName, true
	}
	return "", false
}

// applyRename assigns the document a slot in group and writes the title if
// it is not already in place. It reports whether a title was written.
func (o *Orchestrator) applyRename(ctx context.Context, id string, doc host.Document, group, style string) bool {
	a, created := o.renamer.Assign(id, group)
	title := renamer.Compose(style, a)
	if created {
		o.trace(id, "sequence assigned", "group", a.Group, "sequence", a.Sequence)
	}
	if !renamer.NeedsWrite(doc.Title, title) {
		return false
	}

	if err := o.host.SetTitle(ctx, id, title); err != nil {
		o.logger.WithDocument(id).Warn("cannot rename tab", "title", title, "error", err.Error())
		return false
	}
	o.logger.WithDocument(id).WithGroup(a.Group).Info("tab renamed", "from", doc.Title, "to", title)
	o.bus.Publish(event.NewDocumentRenamedEvent(id, a.Group, doc.Title, title))
	return true
}

// proposeIfUnmatched proposes a rule for a connection neither rule kind
// classifies.
func (o *Orchestrator) proposeIfUnmatched(ctx context.Context, doc host.Document, settings rules.Settings) bool {
	if _, ok := o.classify(doc); ok {
		return false
	}
	return o.maybePropose(ctx, doc, settings)
}

// maybePropose hands an unmatched connection to the proposer on its own
// goroutine, once per connection until the next rule reload.
func (o *Orchestrator) maybePropose(ctx context.Context, doc host.Document, settings rules.Settings) bool {
	if o.proposer == nil || !settings.AutoConfigureEnabled() || doc.Server == "" {
		return false
	}

	key := util.FoldKey(doc.Server)
	database := ""
	if settings.AutoConfigure == rules.AutoConfigureServerDatabase {
		database = doc.Database
		key += "\x00" + util.FoldKey(database)
	}
	if o.proposed[key] {
		return false
	}
	o.proposed[key] = true

	p := host.Proposal{Server: doc.Server, Database: database, Document: doc}
	o.logger.WithDocument(doc.ID).Info("no rule matches connection, proposing one",
		"server", doc.Server, "database", database)
	o.bus.Publish(event.NewRuleProposedEvent(doc.Server, database))

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := o.proposer.Propose(ctx, p); err != nil {
			o.logger.Warn("rule proposal failed", "server", p.Server, "error", err.Error())
		}
	}()
	return true
}

// syncColors regenerates the colorization block from a fresh snapshot.
// While suppressed (during a reload) it does nothing; the reload syncs
// once at the end.
func (o *Orchestrator) syncColors(ctx context.Context, reason Reason) {
	cfg := o.rules.cfg
	if cfg == nil || !cfg.Settings.EnableAutoColor || o.suppressColor > 0 {
		return
	}

	docs, err := o.host.OpenDocuments(ctx)
	if err != nil {
		o.logger.Warn("cannot snapshot documents for color sync", "error", err.Error())
		return
	}

	res := o.colors.UpdateFromSnapshot(ctx, docs, o.rules.compiled, rules.ManualLines(cfg))
	if res.Err != nil {
		args := []any{"reason", reason.String(), "skipped", res.Skipped, "error", res.Err.Error()}
		switch {
		case ctx.Err() != nil, errors.IsRetryable(res.Err):
			o.logger.Debug("color sync incomplete", args...)
		case errors.GetSeverity(res.Err) >= errors.SeverityError:
			o.logger.Error("color sync failed", args...)
		default:
			o.logger.Warn("color sync failed", args...)
		}
		return
	}
	if res.Path != "" {
		o.bus.Publish(event.NewColorsSyncedEvent(res.Path, len(res.Lines), res.Written))
	}
}

// ScheduleRenameRetry starts a bounded retry loop for a document unless
// one is already pending. Each attempt waits the retry delay, re-reads the
// document and evaluates it again. The loop ends on completion, when the
// document is gone or no longer a query document, or when attempts run out.
func (o *Orchestrator) ScheduleRenameRetry(id string, reason Reason) {
	if !o.retries.Begin(id, reason.String(), o.opts.MaxRetries) {
		return
	}
	if !o.isRunning() {
		o.retries.Finish(id)
		return
	}

	ctx := o.ctx
	retryReason := reason
	if !reason.IsConnectionChange() {
		retryReason = ReasonRetry
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for range o.opts.MaxRetries {
			select {
			case <-ctx.Done():
				return
			case <-time.After(o.opts.RetryDelay):
			}

			var stop bool
			if err := o.Do(ctx, func() { stop = o.retryAttempt(ctx, id, retryReason) }); err != nil || stop {
				return
			}
		}
		_ = o.Do(ctx, func() {
			state, ok := o.retries.Finish(id)
			if !ok {
				return
			}
			if state.Exhausted() {
				o.logger.WithDocument(id).Info("rename retries exhausted",
					"attempts", state.Attempts, "reason", state.Reason, "last_error", state.LastError)
				return
			}
			o.logger.WithDocument(id).Debug("rename retry loop ended",
				"attempts", state.Attempts, "max_attempts", state.MaxAttempts)
		})
	}()
}

// retryAttempt runs one retry and reports whether the loop should stop.
func (o *Orchestrator) retryAttempt(ctx context.Context, id string, reason Reason) bool {
	if !o.retries.Pending(id) {
		return true
	}
	attempt := o.retries.RecordAttempt(id)

	doc, err := o.host.Document(ctx, id)
	if err != nil && errors.IsRetryable(err) {
		o.retries.SetLastError(id, err.Error())
		o.trace(id, "retry attempt could not read document", "attempt", attempt, "error", err.Error())
		return false
	}
	if err != nil {
		o.retries.Finish(id)
		o.trace(id, "retry stopped, document unavailable", "attempt", attempt, "error", err.Error())
		return true
	}
	if !o.classifier.IsQueryDocument(doc) {
		o.retries.Finish(id)
		return true
	}

	if o.HandlePotentialChange(ctx, id, doc, reason) {
		o.retries.Finish(id)
		o.trace(id, "retry completed", "attempt", attempt)
		return true
	}
	o.retries.SetLastError(id, "connection not populated")
	return false
}

// PendingRetries returns the documents with a retry loop running.
func (o *Orchestrator) PendingRetries() []string {
	return o.retries.PendingDocuments()
}
