package hover

import (
	"context"
	"strings"
	"sync"
	"time"

	"ai-hovertip-be/internal/pkg/logger"
	"ai-hovertip-be/pkg/cache"
	"ai-hovertip-be/pkg/channel"
	"ai-hovertip-be/pkg/dom"
	"ai-hovertip-be/pkg/kv"
)

// State is the dispatcher's view of the currently tracked hover.
type State int

const (
	StateIdle State = iota
	StateDebouncing
	StateProcessing
	StateResolved
	StateErrored
	StateAbandoned
)

const (
	// DefaultDebounce is the dwell time between pointer-over and
	// pipeline start. A pointer leaving before it fires costs nothing.
	DefaultDebounce = 500 * time.Millisecond

	// DefaultDismissAfter is how long a non-processing tooltip stays up
	// before removing itself.
	DefaultDismissAfter = 5 * time.Second

	// PreviewTypeElement is the preview namespace for element captures.
	PreviewTypeElement = "element"
)

const unavailableMessage = "Service unavailable. Please try again."

// Deps wires a Dispatcher. Channel, Store and View are required;
// Capturer is optional (no previews without it).
type Deps struct {
	Page     dom.PageIdentity
	Channel  channel.Channel
	Store    kv.Store
	View     TooltipView
	Capturer PreviewCapturer
	Logger   logger.ILogger

	// Debounce and DismissAfter default to the package constants.
	Debounce     time.Duration
	DismissAfter time.Duration
}

// Dispatcher is the hover-intent scheduling core. It tracks at most one
// hover at a time: a new pointer-over preempts the previous pending
// debounce timer, and a generation counter plus the element-attachment
// check stand in for cancellation of requests already in flight.
type Dispatcher struct {
	page      dom.PageIdentity
	ch        channel.Channel
	summaries *cache.Cache
	previews  *cache.Cache
	view      TooltipView
	capturer  PreviewCapturer
	log       logger.ILogger

	debounce     time.Duration
	dismissAfter time.Duration

	mu            sync.Mutex
	gen           uint64
	target        dom.Element
	state         State
	debounceTimer *time.Timer
	dismissTimer  *time.Timer

	wg sync.WaitGroup
}

func NewDispatcher(deps Deps) *Dispatcher {
	if deps.Debounce <= 0 {
		deps.Debounce = DefaultDebounce
	}
	if deps.DismissAfter <= 0 {
		deps.DismissAfter = DefaultDismissAfter
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	return &Dispatcher{
		page:         deps.Page,
		ch:           deps.Channel,
		summaries:    cache.New(deps.Store, cache.SummaryTTL, deps.Logger),
		previews:     cache.New(deps.Store, cache.PreviewTTL, deps.Logger),
		view:         deps.View,
		capturer:     deps.Capturer,
		log:          deps.Logger,
		debounce:     deps.Debounce,
		dismissAfter: deps.DismissAfter,
		state:        StateIdle,
	}
}

// State returns the tracked hover's current state.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Wait blocks until all in-flight asynchronous continuations have
// settled. Hosts call it on teardown; tests use it for determinism.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// PointerOver starts tracking el. Any pending debounce timer from a
// previous target is cancelled; a request already past authorization
// keeps running but its result will be discarded by the staleness
// guard.
func (d *Dispatcher) PointerOver(el dom.Element) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	gen := d.gen
	d.stopDebounceLocked()
	d.target = el
	d.state = StateDebouncing

	d.debounceTimer = time.AfterFunc(d.debounce, func() {
		d.fire(gen, el)
	})
}

// PointerOut cancels the pending debounce and removes the tooltip when
// the pointer leaves the tracked target. In-flight requests are not
// cancelled: a late result still renders if the element remains attached.
func (d *Dispatcher) PointerOut(el dom.Element) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.target != el {
		return
	}

	if d.state == StateDebouncing {
		d.stopDebounceLocked()
		d.state = StateIdle
	}
	d.removeTooltipLocked()
}

// fire runs on debounce expiry: classify, show the processing state,
// then hand off to the asynchronous resolution path.
func (d *Dispatcher) fire(gen uint64, el dom.Element) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	if !el.Attached() {
		d.state = StateAbandoned
		d.removeTooltipLocked()
		d.mu.Unlock()
		return
	}

	req := Classify(el.Descriptor(), d.page)
	if req == nil {
		d.state = StateIdle
		d.mu.Unlock()
		return
	}

	d.state = StateProcessing
	d.removeTooltipLocked()
	d.view.ShowProcessing(el.Bounds())
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.resolve(gen, el, req)
	}()
}

func (d *Dispatcher) resolve(gen uint64, el dom.Element, req *PipelineRequest) {
	ctx := context.Background()

	// Recognition skips the cache layer entirely.
	if req.Kind != KindRecognition {
		if v, ok := d.summaries.Get(ctx, req.CacheKey); ok {
			d.renderResult(gen, el, v, "")
			d.capturePreview(gen, el, req)
			return
		}
	}

	resp, err := d.ch.Request(ctx, &channel.Request{
		Action: actionFor(req.Kind),
		Data:   req.Payload,
	})
	if err != nil {
		d.log.Warn("HOVER", "Enrichment channel unreachable", map[string]interface{}{
			"kind":  string(req.Kind),
			"error": err.Error(),
		})
		d.renderError(gen, el, unavailableMessage)
		return
	}

	if !resp.Success {
		d.renderDenialOrError(gen, el, resp)
		return
	}

	if req.Kind != KindRecognition {
		d.summaries.Set(ctx, req.CacheKey, resp.Result)
	}
	d.renderResult(gen, el, resp.Result, usageFooter(resp.UsageInfo))
}

func (d *Dispatcher) renderDenialOrError(gen uint64, el dom.Element, resp *channel.Response) {
	switch resp.ErrorCode {
	case channel.CodeExhaustedFreeTier:
		d.renderDenial(gen, el, resp.Error, true)
	case channel.CodeCredentialRequired:
		d.renderDenial(gen, el, resp.Error, false)
	default:
		d.renderError(gen, el, strings.TrimSpace(resp.Error))
	}
}

// capturePreview asynchronously attaches a visual preview to a cached
// summary render. It never blocks, and it caches what it captures.
func (d *Dispatcher) capturePreview(gen uint64, el dom.Element, req *PipelineRequest) {
	if d.capturer == nil {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx := context.Background()
		key := PreviewCacheKey(PreviewTypeElement, d.page, req.Identifier)

		if data, ok := d.previews.Get(ctx, key); ok {
			d.attachPreview(gen, el, data)
			return
		}

		data, err := d.capturer.Capture(ctx, el)
		if err != nil {
			d.log.Debug("HOVER", "Preview capture failed", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}

		d.previews.Set(ctx, key, data)
		d.attachPreview(gen, el, data)
	}()
}

func (d *Dispatcher) attachPreview(gen uint64, el dom.Element, data string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen || !el.Attached() {
		return
	}
	d.view.AttachPreview(data)
}

// staleLocked reports, under d.mu, whether a continuation for gen/el must be
// dropped. Passing the guard marks nothing; failing it while still
// current marks the hover abandoned and tears down the processing
// tooltip it would otherwise leave behind (processing renders have no
// dismiss timer of their own).
func (d *Dispatcher) staleLocked(gen uint64, el dom.Element) bool {
	if gen != d.gen {
		return true
	}
	if !el.Attached() {
		d.state = StateAbandoned
		d.removeTooltipLocked()
		return true
	}
	return false
}

func (d *Dispatcher) renderResult(gen uint64, el dom.Element, text, footer string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.staleLocked(gen, el) {
		return
	}
	d.removeTooltipLocked()
	d.view.ShowResult(el.Bounds(), text, footer)
	d.state = StateResolved
	d.scheduleDismissLocked(gen)
}

func (d *Dispatcher) renderError(gen uint64, el dom.Element, message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.staleLocked(gen, el) {
		return
	}
	d.removeTooltipLocked()
	d.view.ShowError(el.Bounds(), message)
	d.state = StateErrored
	d.scheduleDismissLocked(gen)
}

func (d *Dispatcher) renderDenial(gen uint64, el dom.Element, message string, upgrade bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.staleLocked(gen, el) {
		return
	}
	d.removeTooltipLocked()
	d.view.ShowDenial(el.Bounds(), message, upgrade)
	d.state = StateErrored
	d.scheduleDismissLocked(gen)
}

func (d *Dispatcher) scheduleDismissLocked(gen uint64) {
	if d.dismissTimer != nil {
		d.dismissTimer.Stop()
	}
	d.dismissTimer = time.AfterFunc(d.dismissAfter, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		// A newer tooltip owns the view by now; leave it alone.
		if gen != d.gen {
			return
		}
		d.removeTooltipLocked()
	})
}

func (d *Dispatcher) stopDebounceLocked() {
	if d.debounceTimer != nil {
		d.debounceTimer.Stop()
		d.debounceTimer = nil
	}
}

func (d *Dispatcher) removeTooltipLocked() {
	d.view.Remove()
}

func actionFor(kind PipelineKind) channel.Action {
	if kind == KindRecognition {
		return channel.ActionOcrImage
	}
	return channel.ActionSummarizeText
}
