// Package orchestrator decides when a document needs another look and runs
// the resulting side effects: renaming its tab, proposing a rule for an
// unknown connection, and resynchronizing the colorization file.
//
// Host notifications are unreliable, so several sources feed one decision
// function: host events, a connection poll loop, debounced rule-file
// changes, and bounded per-document retries. All orchestrator state is
// owned by a single loop goroutine; timers and event handlers only enqueue
// work onto it.
package orchestrator

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Iron-Ham/tabtint/internal/colorsync"
	"github.com/Iron-Ham/tabtint/internal/config"
	"github.com/Iron-Ham/tabtint/internal/errors"
	"github.com/Iron-Ham/tabtint/internal/event"
	"github.com/Iron-Ham/tabtint/internal/host"
	"github.com/Iron-Ham/tabtint/internal/logging"
	"github.com/Iron-Ham/tabtint/internal/orchestrator/retry"
	"github.com/Iron-Ham/tabtint/internal/renamer"
	"github.com/Iron-Ham/tabtint/internal/rules"
	"github.com/fsnotify/fsnotify"
)

// taskQueueSize bounds work waiting for the loop.
const taskQueueSize = 64

// Options pace the orchestrator.
type Options struct {
	RulesPath    string
	PollInterval time.Duration
	Debounce     time.Duration
	RetryDelay   time.Duration
	MaxRetries   int
	// PriorityStep is handed to the default proposer.
	PriorityStep int
}

// OptionsFromConfig builds Options from the app config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		RulesPath:    cfg.Rules.ResolvePath(),
		PollInterval: cfg.Orchestrator.PollInterval(),
		Debounce:     cfg.Orchestrator.Debounce(),
		RetryDelay:   cfg.Orchestrator.RetryDelay(),
		MaxRetries:   cfg.Orchestrator.MaxRetries,
		PriorityStep: cfg.Proposal.PriorityStep,
	}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithBus sets the event bus host events are read from and results are
// published to.
func WithBus(b *event.Bus) Option {
	return func(o *Orchestrator) { o.bus = b }
}

// WithProposer sets the collaborator for unmatched connections.
func WithProposer(p host.Proposer) Option {
	return func(o *Orchestrator) { o.proposer = p }
}

// WithRenamer shares an assignment table.
func WithRenamer(r *renamer.Renamer) Option {
	return func(o *Orchestrator) { o.renamer = r }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

type connection struct {
	server   string
	database string
}

// Orchestrator is the change-detection state machine.
type Orchestrator struct {
	host       host.Host
	colors     *colorsync.Synchronizer
	classifier *host.Classifier
	proposer   host.Proposer
	bus        *event.Bus
	renamer    *renamer.Renamer
	retries    *retry.Manager
	logger     *logging.Logger
	opts       Options
	now        func() time.Time

	// Owned by the loop goroutine.
	rules         ruleCache
	lastKnown     map[string]connection
	proposed      map[string]bool
	suppressColor int
	reloadTimer   *time.Timer
	reloadGen     int
	observed      bool

	tasks   chan func()
	ctx     context.Context
	cancel  context.CancelFunc
	watcher *fsnotify.Watcher
	subs    []string
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// New creates an Orchestrator. It does nothing until Start.
func New(h host.Host, colors *colorsync.Synchronizer, classifier *host.Classifier, opts Options, options ...Option) *Orchestrator {
	o := &Orchestrator{
		host:       h,
		colors:     colors,
		classifier: classifier,
		opts:       opts,
		now:        time.Now,
		retries:    retry.NewManager(),
		lastKnown:  make(map[string]connection),
		proposed:   make(map[string]bool),
		tasks:      make(chan func(), taskQueueSize),
	}
	for _, opt := range options {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NopLogger()
	}
	o.logger = o.logger.WithComponent("orchestrator")
	if o.renamer == nil {
		o.renamer = renamer.New()
	}
	if o.bus == nil {
		o.bus = event.NewBus(o.logger)
	}
	o.rules.path = opts.RulesPath
	return o
}

// Start launches the loop, the poll ticker and the rule-file watcher, and
// evaluates every open document once. A stopped orchestrator cannot be
// restarted and returns errors.ErrStopped. A watcher that cannot be
// created is logged, not fatal.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return nil
	}
	if o.ctx != nil {
		return errors.ErrStopped
	}

	o.ctx, o.cancel = context.WithCancel(ctx)
	o.running = true

	o.colors.OnRetry(func() {
		o.enqueue(func() { o.syncColors(o.ctx, ReasonRetry) })
	})

	for _, t := range []string{
		event.TypeDocumentShown,
		event.TypeDocumentAttributeChanged,
		event.TypeSelectionChanged,
		event.TypeDocumentClosed,
	} {
		o.subs = append(o.subs, o.bus.Subscribe(t, o.onHostEvent))
	}

	o.wg.Add(1)
	go o.loop()

	if err := o.startWatcher(); err != nil {
		o.logger.Warn("rule file changes will not be picked up", "path", o.opts.RulesPath, "error", err.Error())
	}

	if o.opts.PollInterval > 0 {
		o.wg.Add(1)
		go o.pollLoop()
	}

	o.enqueue(func() { o.evaluateAll(o.ctx, ReasonManual) })
	return nil
}

// Stop shuts down every goroutine and waits for them. Pending work is
// dropped.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	o.cancel()
	for _, id := range o.subs {
		o.bus.Unsubscribe(id)
	}
	o.subs = nil
	if o.watcher != nil {
		_ = o.watcher.Close()
	}
	o.mu.Unlock()

	o.wg.Wait()
	o.retries.ResetAll()
	o.colors.Reset()
}

func (o *Orchestrator) isRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

func (o *Orchestrator) loop() {
	defer o.wg.Done()
	for {
		select {
		case <-o.ctx.Done():
			if o.reloadTimer != nil {
				o.reloadTimer.Stop()
			}
			return
		case fn := <-o.tasks:
			o.safeRun(fn)
		}
	}
}

func (o *Orchestrator) safeRun(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("orchestrator task panicked",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

// enqueue hands fn to the loop. It is dropped once the orchestrator stops.
func (o *Orchestrator) enqueue(fn func()) {
	if o.ctx == nil {
		return
	}
	select {
	case o.tasks <- fn:
	case <-o.ctx.Done():
	}
}

// Do runs fn on the loop and waits for it. Before Start, fn runs inline.
// After Stop, fn is not run and Do returns ErrStopped.
func (o *Orchestrator) Do(ctx context.Context, fn func()) error {
	o.mu.Lock()
	started, running, loopCtx := o.ctx != nil, o.running, o.ctx
	o.mu.Unlock()
	if !started {
		fn()
		return nil
	}
	if !running {
		return errors.ErrStopped
	}
	done := make(chan struct{})
	task := func() {
		defer close(done)
		fn()
	}
	select {
	case o.tasks <- task:
	case <-ctx.Done():
		return ctx.Err()
	case <-loopCtx.Done():
		return errors.ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-loopCtx.Done():
		return errors.ErrStopped
	}
}

// Renamer returns the assignment table.
func (o *Orchestrator) Renamer() *renamer.Renamer {
	return o.renamer
}

// Bus returns the event bus.
func (o *Orchestrator) Bus() *event.Bus {
	return o.bus
}

// onHostEvent runs on the publisher's goroutine and only enqueues.
func (o *Orchestrator) onHostEvent(e event.Event) {
	id, ok := event.DocumentID(e)
	if !ok {
		return
	}
	reason, ok := reasonForEvent(e)
	if !ok {
		return
	}
	o.enqueue(func() { o.handleEvent(o.ctx, id, reason) })
}

func (o *Orchestrator) handleEvent(ctx context.Context, id string, reason Reason) {
	if reason == ReasonClosed {
		o.forget(id)
		return
	}

	doc, err := o.host.Document(ctx, id)
	if err != nil {
		o.logger.WithDocument(id).Debug("document not readable", "reason", reason.String(), "error", err.Error())
		return
	}
	o.noteObserved()

	if !o.HandlePotentialChange(ctx, id, doc, reason) {
		o.ScheduleRenameRetry(id, reason)
	}
}

// forget drops everything known about a closed document.
func (o *Orchestrator) forget(id string) {
	o.renamer.Forget(id)
	delete(o.lastKnown, id)
	o.retries.Finish(id)
	o.trace(id, "document closed, assignment released")
}

func (o *Orchestrator) noteObserved() {
	if o.observed {
		return
	}
	o.observed = true
	o.colors.NoteObserved(o.now())
}

// evaluateAll runs a pass over every open document.
func (o *Orchestrator) evaluateAll(ctx context.Context, reason Reason) {
	docs, err := o.host.OpenDocuments(ctx)
	if err != nil {
		o.logger.Warn("cannot enumerate open documents", "error", err.Error())
		return
	}
	if len(docs) > 0 {
		o.noteObserved()
	}
	for _, d := range docs {
		o.lastKnown[d.ID] = connection{server: d.Server, database: d.Database}
		if !o.HandlePotentialChange(ctx, d.ID, d, reason) {
			o.ScheduleRenameRetry(d.ID, reason)
		}
	}
}

// trace logs the decision trace when the rule file enables logging.
func (o *Orchestrator) trace(id, msg string, args ...any) {
	cfg := o.rules.cfg
	if cfg == nil || !cfg.Settings.EnableLogging {
		return
	}
	o.logger.WithDocument(id).Info(msg, args...)
}

// currentRules returns the cached rule config, reloading it when the file
// changed.
func (o *Orchestrator) currentRules() *rules.Config {
	cfg, reloaded := o.rules.get(o.logger)
	if reloaded {
		o.bus.Publish(event.NewRulesReloadedEvent(o.rules.path, len(o.rules.compiled), len(o.rules.manual)))
	}
	return cfg
}
