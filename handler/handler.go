// Package handler orchestrates the error pipeline: wrap, rate-limit,
// store, group, recover, dispatch custom handlers, log, monitor, render.
//
// A Handler is the single logical owner of all mutable subsystem state
// (rate-limit buckets, groups, history, statistics, circuit bookkeeping);
// every entry point is safe for concurrent use.
package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/oasgen/faults"
	"github.com/oasgen/faults/aggregate"
	"github.com/oasgen/faults/format"
	"github.com/oasgen/faults/monitor"
	"github.com/oasgen/faults/ratelimit"
	"github.com/oasgen/faults/recovery"
)

// EventType names an observable handler event.
type EventType string

const (
	// EventHandled fires after a record is stored and grouped.
	EventHandled EventType = "handled"

	// EventRateLimited fires when an occurrence is rejected by the limiter.
	EventRateLimited EventType = "rate_limited"

	// EventFatal fires when HandleFatal processes a record, before any
	// configured process exit.
	EventFatal EventType = "fatal"
)

// Event is delivered synchronously to registered listeners in
// registration order.
type Event struct {
	Type   EventType
	Record *faults.Record
}

// Listener observes handler events. Panics in listeners are recovered
// and logged.
type Listener func(Event)

// CustomHandler runs after the built-in pipeline for records matching its
// selector. Returned errors are logged, never propagated.
type CustomHandler func(rec *faults.Record) error

// Result is returned per handled error.
type Result struct {
	Record   *faults.Record
	Recovery *recovery.Outcome
}

// BulkResult aggregates a HandleBulk call.
type BulkResult struct {
	Total     int
	Handled   int
	Recovered int
	Failed    int
	Results   []*Result

	// Summary is the rendered per-category breakdown.
	Summary string
}

type customEntry struct {
	selector string
	fn       CustomHandler
}

// Handler is the central error handler.
type Handler struct {
	mu sync.Mutex

	cfg        Config
	logger     *slog.Logger
	limiter    ratelimit.Limiter
	store      *aggregate.Store
	dispatcher *recovery.Dispatcher
	sink       monitor.Sink

	listeners []Listener
	custom    []customEntry
	stats     stats
	started   time.Time

	logFile io.WriteCloser
	out     io.Writer
	errOut  io.Writer
	exit    func(int)
}

// New creates a handler from config. A nil logger uses slog.Default().
func New(cfg Config, logger *slog.Logger) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		cfg:     cfg,
		logger:  logger,
		store:   aggregate.NewStore(cfg.HistoryLimit),
		stats:   newStats(),
		started: time.Now(),
		out:     os.Stdout,
		errOut:  os.Stderr,
		exit:    os.Exit,
	}

	limiterOpts := ratelimit.Options{
		Window:       cfg.RateLimit.GetWindow(),
		MaxPerWindow: cfg.RateLimit.GetMaxPerWindow(),
	}
	if cfg.RateLimit != nil && cfg.RateLimit.RedisURL != "" {
		rl, err := ratelimit.NewRedisLimiter(ratelimit.RedisOptions{URL: cfg.RateLimit.RedisURL}, limiterOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis rate limiter: %w", err)
		}
		h.limiter = rl
	} else {
		h.limiter = ratelimit.NewWindowLimiter(limiterOpts)
	}

	h.dispatcher = recovery.NewDispatcher(recovery.DispatcherOptions{
		Network: recovery.BackoffPolicy{
			BaseDelay:  cfg.Recovery.GetBaseDelay(),
			MaxDelay:   cfg.Recovery.GetMaxDelay(),
			Factor:     factorOrDefault(cfg.Recovery),
			Jitter:     cfg.Recovery != nil && cfg.Recovery.Jitter,
			MaxRetries: maxRetriesOrDefault(cfg.Recovery),
		},
		WaitInStrategy: cfg.Recovery != nil && cfg.Recovery.WaitInStrategy,
	})

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log sink: %w", err)
		}
		h.logFile = f
	}

	if cfg.Monitoring != nil && cfg.Monitoring.Enabled && cfg.Monitoring.Endpoint != "" {
		var sink monitor.Sink = monitor.NewHTTPSink(cfg.Monitoring.Endpoint, nil)
		if cfg.Monitoring.Filter != "" {
			filter, err := monitor.NewFilter(cfg.Monitoring.Filter)
			if err != nil {
				return nil, fmt.Errorf("failed to compile monitoring filter: %w", err)
			}
			sink = monitor.NewFilteredSink(filter, sink)
		}
		h.sink = sink
	}

	return h, nil
}

func factorOrDefault(c *RecoveryConfig) float64 {
	if c == nil || c.Factor <= 1 {
		return recovery.DefaultFactor
	}
	return c.Factor
}

func maxRetriesOrDefault(c *RecoveryConfig) int {
	if c == nil || c.MaxRetries <= 0 {
		return recovery.DefaultMaxRetries
	}
	return c.MaxRetries
}

// SetOutput redirects the standard rendering stream (default os.Stdout).
func (h *Handler) SetOutput(w io.Writer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.out = w
}

// SetErrorOutput redirects the CLI rendering stream (default os.Stderr).
func (h *Handler) SetErrorOutput(w io.Writer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errOut = w
}

// SetExit replaces the process-exit function used by HandleFatal.
func (h *Handler) SetExit(fn func(int)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exit = fn
}

// SetMonitorSink replaces the monitoring sink built from config. Useful
// for wiring OpenTelemetry or Prometheus sinks directly.
func (h *Handler) SetMonitorSink(s monitor.Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sink = s
}

// OnEvent registers a listener for handler events.
func (h *Handler) OnEvent(l Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, l)
}

// RegisterHandler registers a custom handler for a category, a code, or
// the wildcard "*". Matching handlers run in category, code, wildcard
// order after the built-in pipeline.
func (h *Handler) RegisterHandler(selector string, fn CustomHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.custom = append(h.custom, customEntry{selector: selector, fn: fn})
}

// RegisterRecoveryStrategy replaces the recovery strategy for a category.
func (h *Handler) RegisterRecoveryStrategy(category faults.Category, s recovery.Strategy) {
	h.dispatcher.Register(category, s)
}

// Handle runs one error through the pipeline and returns the record with
// its recovery outcome. Returns nil when the occurrence was rejected by
// the rate limiter.
func (h *Handler) Handle(ctx context.Context, value any, extra map[string]any) *Result {
	rec := faults.Wrap(value, faults.CodeUnknown)
	mergeContext(rec, extra)

	admitted, err := h.limiter.Allow(ctx, rec.Fingerprint)
	if err != nil {
		// Admission must not depend on limiter availability.
		h.logger.Warn("rate limiter unavailable, admitting error", "error", err)
		admitted = true
	}
	if !admitted {
		h.mu.Lock()
		h.stats.rateLimited++
		h.mu.Unlock()
		h.emit(Event{Type: EventRateLimited, Record: rec})
		return nil
	}

	h.absorb(rec)
	h.emit(Event{Type: EventHandled, Record: rec})

	var outcome *recovery.Outcome
	if rec.Recoverable && (h.cfg.Recovery == nil || !h.cfg.Recovery.Disabled) {
		o := h.dispatcher.Dispatch(ctx, rec)
		outcome = &o
		if o.Action != recovery.ActionFail && o.Action != recovery.ActionNone {
			h.mu.Lock()
			h.stats.recovered++
			h.mu.Unlock()
		}
	}

	h.runCustomHandlers(rec)
	h.appendLogLine(rec)
	h.dispatchMonitoring(ctx, rec)
	h.render(rec, h.cfg.GetOutputFormat())

	return &Result{Record: rec, Recovery: outcome}
}

// HandleBulk runs every error through the pipeline and returns per-error
// results plus an aggregate summary grouped by category.
func (h *Handler) HandleBulk(ctx context.Context, values []any, extra map[string]any) *BulkResult {
	bulk := &BulkResult{Total: len(values)}
	var records []*faults.Record

	for _, v := range values {
		res := h.Handle(ctx, v, extra)
		if res == nil {
			continue
		}
		bulk.Handled++
		bulk.Results = append(bulk.Results, res)
		records = append(records, res.Record)
		if res.Recovery != nil &&
			res.Recovery.Action != recovery.ActionFail &&
			res.Recovery.Action != recovery.ActionNone {
			bulk.Recovered++
		}
	}
	bulk.Failed = bulk.Handled - bulk.Recovered
	bulk.Summary = format.Summary(records)

	return bulk
}

// HandleFatal forces the record to fatal severity and non-recoverable,
// renders it as CLI regardless of the configured format, logs a FATAL
// banner, and terminates the process with status 1 when exit_on_fatal is
// enabled (the default).
func (h *Handler) HandleFatal(ctx context.Context, value any, code string, extra map[string]any) *Result {
	if code == "" {
		code = faults.CodeUnknown
	}
	rec := faults.Wrap(value, code)
	rec.Severity = faults.SeverityFatal
	rec.Recoverable = false
	mergeContext(rec, extra)

	h.absorb(rec)
	h.mu.Lock()
	h.stats.fatal++
	errOut := h.errOut
	h.mu.Unlock()

	h.emit(Event{Type: EventFatal, Record: rec})

	fmt.Fprintln(errOut, "================ FATAL ERROR ================")
	h.render(rec, faults.FormatCLI)

	h.appendLogLine(rec)
	h.dispatchMonitoring(ctx, rec)

	if h.cfg.GetExitOnFatal() {
		h.mu.Lock()
		exit := h.exit
		h.mu.Unlock()
		exit(1)
	}

	return &Result{Record: rec}
}

// Stats returns a snapshot of the running statistics.
func (h *Handler) Stats() Stats {
	h.mu.Lock()
	snap := h.stats.snapshot()
	h.mu.Unlock()
	snap.Groups = h.store.GroupCount()
	snap.Stored = h.store.Len()
	return snap
}

// Groups returns every error group in first-seen order.
func (h *Handler) Groups() []aggregate.Group {
	return h.store.Groups()
}

// RecentErrors returns up to limit records, most recent first.
func (h *Handler) RecentErrors(limit int) []*faults.Record {
	return h.store.Recent(limit)
}

// CircuitState exposes the retry bookkeeping for a fingerprint.
func (h *Handler) CircuitState(fingerprint string) (recovery.CircuitState, bool) {
	return h.dispatcher.CircuitState(fingerprint)
}

// Clear wipes history, groups, rate-limit state, circuit bookkeeping, and
// statistics.
func (h *Handler) Clear(ctx context.Context) error {
	h.store.Reset()
	h.dispatcher.Reset()
	h.mu.Lock()
	h.stats = newStats()
	h.mu.Unlock()
	if err := h.limiter.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset rate limiter: %w", err)
	}
	return nil
}

// Close releases the log sink.
func (h *Handler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.logFile == nil {
		return nil
	}
	err := h.logFile.Close()
	h.logFile = nil
	return err
}

// absorb stores the record and updates statistics.
func (h *Handler) absorb(rec *faults.Record) {
	h.store.Add(rec)
	h.mu.Lock()
	h.stats.total++
	h.stats.byCategory[string(rec.Category)]++
	h.stats.bySeverity[string(rec.Severity)]++
	h.stats.byCode[rec.Code]++
	h.mu.Unlock()
}

// emit delivers an event to every listener, recovering panics.
func (h *Handler) emit(ev Event) {
	h.mu.Lock()
	listeners := append([]Listener(nil), h.listeners...)
	h.mu.Unlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					h.logger.Warn("event listener panicked", "event", string(ev.Type), "panic", r)
				}
			}()
			l(ev)
		}()
	}
}

// runCustomHandlers runs handlers matching the record's category, then its
// code, then the wildcard. Failures and panics are logged, never
// propagated.
func (h *Handler) runCustomHandlers(rec *faults.Record) {
	h.mu.Lock()
	entries := append([]customEntry(nil), h.custom...)
	h.mu.Unlock()

	for _, selector := range []string{string(rec.Category), rec.Code, "*"} {
		for _, entry := range entries {
			if entry.selector != selector {
				continue
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						h.logger.Warn("custom handler panicked", "selector", selector, "panic", r)
					}
				}()
				if err := entry.fn(rec); err != nil {
					h.logger.Warn("custom handler failed", "selector", selector, "error", err)
				}
			}()
		}
	}
}

// appendLogLine writes the single-line form to the log sink, best-effort.
func (h *Handler) appendLogLine(rec *faults.Record) {
	h.mu.Lock()
	sink := h.logFile
	h.mu.Unlock()
	if sink == nil {
		return
	}

	line, err := rec.Serialize(faults.FormatLog, faults.RenderOptions{})
	if err != nil {
		h.logger.Warn("failed to render log line", "error", err)
		return
	}
	if rec.Severity == faults.SeverityFatal {
		line = "FATAL " + line
	}
	if _, err := fmt.Fprintln(sink, line); err != nil {
		h.logger.Warn("failed to append to log sink", "error", err)
	}
}

// dispatchMonitoring sends the JSON form to the monitoring sink,
// best-effort.
func (h *Handler) dispatchMonitoring(ctx context.Context, rec *faults.Record) {
	h.mu.Lock()
	sink := h.sink
	h.mu.Unlock()
	if sink == nil {
		return
	}

	payload, err := rec.Serialize(faults.FormatJSON, faults.RenderOptions{IncludeStack: h.cfg.IncludeStack})
	if err != nil {
		h.logger.Warn("failed to render monitoring payload", "error", err)
		return
	}
	if err := sink.Send(ctx, rec, payload); err != nil {
		h.logger.Warn("failed to dispatch to monitoring sink", "error", err)
	}
}

// render emits the chosen representation: CLI blocks go to the error
// stream, structured formats to the standard stream.
func (h *Handler) render(rec *faults.Record, f faults.Format) {
	out, err := rec.Serialize(f, faults.RenderOptions{
		Debug:        h.cfg.Debug,
		IncludeStack: h.cfg.IncludeStack,
	})
	if err != nil {
		h.logger.Warn("failed to render error", "format", string(f), "error", err)
		return
	}

	h.mu.Lock()
	dest := h.out
	if f == faults.FormatCLI {
		dest = h.errOut
	}
	h.mu.Unlock()

	fmt.Fprintln(dest, out)
}

// mergeContext appends caller-supplied context in sorted key order so
// renderings stay deterministic.
func mergeContext(rec *faults.Record, extra map[string]any) {
	if len(extra) == 0 {
		return
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rec.AddContext(k, extra[k])
	}
}
