package hover

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ai-hovertip-be/pkg/channel"
	"ai-hovertip-be/pkg/dom"
	"ai-hovertip-be/pkg/kv"
)

const (
	testDebounce = 20 * time.Millisecond
	testDismiss  = 60 * time.Millisecond
)

// recordingView captures every view transition in order.
type recordingView struct {
	mu    sync.Mutex
	calls []string
}

func (v *recordingView) record(s string) {
	v.mu.Lock()
	v.calls = append(v.calls, s)
	v.mu.Unlock()
}

func (v *recordingView) ShowProcessing(dom.Rect) { v.record("processing") }
func (v *recordingView) ShowResult(_ dom.Rect, text, footer string) {
	v.record("result:" + text + "|" + footer)
}
func (v *recordingView) ShowError(_ dom.Rect, message string) { v.record("error:" + message) }
func (v *recordingView) ShowDenial(_ dom.Rect, message string, upgrade bool) {
	if upgrade {
		v.record("denial-upgrade:" + message)
	} else {
		v.record("denial:" + message)
	}
}
func (v *recordingView) AttachPreview(dataURL string) { v.record("preview:" + dataURL) }
func (v *recordingView) Remove()                      { v.record("remove") }

func (v *recordingView) snapshot() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, len(v.calls))
	copy(out, v.calls)
	return out
}

func (v *recordingView) has(prefix string) bool {
	for _, c := range v.snapshot() {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// fakeChannel answers with a fixed responder and counts requests. An
// optional release channel holds requests open until the test says so.
type fakeChannel struct {
	mu       sync.Mutex
	requests []channel.Request
	respond  func(req *channel.Request) (*channel.Response, error)
	release  chan struct{}
}

func (c *fakeChannel) Request(ctx context.Context, req *channel.Request) (*channel.Response, error) {
	c.mu.Lock()
	c.requests = append(c.requests, *req)
	c.mu.Unlock()
	if c.release != nil {
		<-c.release
	}
	return c.respond(req)
}

func (c *fakeChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func okChannel(result string) *fakeChannel {
	return &fakeChannel{
		respond: func(*channel.Request) (*channel.Response, error) {
			return &channel.Response{
				Success: true,
				Result:  result,
				UsageInfo: channel.UsageInfo{
					Plan:                  "free",
					FreeTierLimit:         25,
					FreeTooltipsRemaining: 24,
					FreeTooltipsUsed:      1,
				},
			}, nil
		},
	}
}

func newTestDispatcher(ch channel.Channel, view TooltipView) (*Dispatcher, *dom.Document) {
	page := dom.PageIdentity{Origin: "https://example.com", Path: "/t"}
	doc := dom.NewDocument(page)
	d := NewDispatcher(Deps{
		Page:         page,
		Channel:      ch,
		Store:        kv.NewMemoryStore(),
		View:         view,
		Debounce:     testDebounce,
		DismissAfter: testDismiss,
	})
	return d, doc
}

func appendParagraph(doc *dom.Document) *dom.Node {
	return doc.Append(dom.ElementDescriptor{
		Tag:  "p",
		Text: strings.Repeat("sentence ", 12),
	}, dom.Rect{Width: 400, Height: 60})
}

func appendImage(doc *dom.Document) *dom.Node {
	return doc.Append(dom.ElementDescriptor{
		Tag: "img",
		Src: "https://example.com/pic.png",
	}, dom.Rect{Width: 100, Height: 100})
}

func settle(d *Dispatcher) {
	time.Sleep(testDebounce + 10*time.Millisecond)
	d.Wait()
}

func TestPointerOutBeforeDebounceCancels(t *testing.T) {
	ch := okChannel("summary")
	view := &recordingView{}
	d, doc := newTestDispatcher(ch, view)
	p := appendParagraph(doc)

	d.PointerOver(p)
	d.PointerOut(p)
	settle(d)

	if got := ch.count(); got != 0 {
		t.Fatalf("channel requests = %d, want 0", got)
	}
	if view.has("processing") || view.has("result") {
		t.Fatalf("tooltip rendered after cancelled hover: %v", view.snapshot())
	}
	if d.State() != StateIdle {
		t.Errorf("State = %v, want idle", d.State())
	}
}

func TestHoverRendersProcessingThenResult(t *testing.T) {
	ch := okChannel("the summary")
	view := &recordingView{}
	d, doc := newTestDispatcher(ch, view)
	p := appendParagraph(doc)

	d.PointerOver(p)
	settle(d)

	calls := view.snapshot()
	sawProcessing := false
	for _, c := range calls {
		if c == "processing" {
			sawProcessing = true
		}
		if strings.HasPrefix(c, "result:") {
			if !sawProcessing {
				t.Fatalf("result rendered before processing: %v", calls)
			}
			if c != "result:the summary|24 free tooltips left" {
				t.Fatalf("unexpected result render: %s", c)
			}
			if d.State() != StateResolved {
				t.Errorf("State = %v, want resolved", d.State())
			}
			return
		}
	}
	t.Fatalf("no result rendered: %v", calls)
}

func TestRetargetPreemptsPendingHover(t *testing.T) {
	ch := okChannel("summary")
	view := &recordingView{}
	d, doc := newTestDispatcher(ch, view)
	img := appendImage(doc)
	p := appendParagraph(doc)

	d.PointerOver(img)
	time.Sleep(testDebounce / 4)
	d.PointerOver(p) // preempts before the image debounce fires
	settle(d)

	if got := ch.count(); got != 1 {
		t.Fatalf("channel requests = %d, want 1", got)
	}
	ch.mu.Lock()
	action := ch.requests[0].Action
	ch.mu.Unlock()
	if action != channel.ActionSummarizeText {
		t.Errorf("request action = %s, want summarize_text", action)
	}
}

func TestDetachedElementSuppressesLateResult(t *testing.T) {
	ch := okChannel("summary")
	ch.release = make(chan struct{})
	view := &recordingView{}
	d, doc := newTestDispatcher(ch, view)
	p := appendParagraph(doc)

	d.PointerOver(p)
	time.Sleep(testDebounce + 10*time.Millisecond) // request is now in flight

	doc.Remove(p)
	close(ch.release)
	d.Wait()

	calls := view.snapshot()
	if view.has("result") {
		t.Fatalf("late result rendered for detached element: %v", calls)
	}
	// The processing tooltip must come down too: nothing auto-dismisses it.
	if len(calls) == 0 || calls[len(calls)-1] != "remove" {
		t.Fatalf("tooltip still present after abandoned hover: %v", calls)
	}
	if d.State() != StateAbandoned {
		t.Errorf("State = %v, want abandoned", d.State())
	}
}

func TestDetachBeforeDebounceShowsNothing(t *testing.T) {
	ch := okChannel("summary")
	view := &recordingView{}
	d, doc := newTestDispatcher(ch, view)
	p := appendParagraph(doc)

	d.PointerOver(p)
	doc.Remove(p) // gone before the debounce fires
	settle(d)

	if got := ch.count(); got != 0 {
		t.Fatalf("channel requests = %d, want 0", got)
	}
	if view.has("processing") {
		t.Fatalf("processing rendered for detached element: %v", view.snapshot())
	}
	if d.State() != StateAbandoned {
		t.Errorf("State = %v, want abandoned", d.State())
	}
}

func TestPointerOutDoesNotSuppressLateResult(t *testing.T) {
	// Leaving the element mid-flight removes the tooltip but the result
	// still renders when it arrives, as long as the element is attached.
	ch := okChannel("late summary")
	ch.release = make(chan struct{})
	view := &recordingView{}
	d, doc := newTestDispatcher(ch, view)
	p := appendParagraph(doc)

	d.PointerOver(p)
	time.Sleep(testDebounce + 10*time.Millisecond)

	d.PointerOut(p)
	close(ch.release)
	d.Wait()

	if !view.has("result:late summary") {
		t.Fatalf("late result not rendered: %v", view.snapshot())
	}
}

func TestSecondHoverHitsCache(t *testing.T) {
	ch := okChannel("cached summary")
	view := &recordingView{}
	d, doc := newTestDispatcher(ch, view)
	p := appendParagraph(doc)

	d.PointerOver(p)
	settle(d)
	d.PointerOut(p)

	d.PointerOver(p)
	settle(d)

	if got := ch.count(); got != 1 {
		t.Fatalf("channel requests = %d, want 1 (second hover should hit cache)", got)
	}

	// Cached renders carry no usage footer: no request was spent.
	results := 0
	for _, c := range view.snapshot() {
		if strings.HasPrefix(c, "result:") {
			results++
			if results == 2 && c != "result:cached summary|" {
				t.Errorf("cached render = %s, want empty footer", c)
			}
		}
	}
	if results != 2 {
		t.Fatalf("results rendered = %d, want 2", results)
	}
}

func TestRecognitionNeverCached(t *testing.T) {
	ch := okChannel("recognized text")
	view := &recordingView{}
	d, doc := newTestDispatcher(ch, view)
	img := appendImage(doc)

	d.PointerOver(img)
	settle(d)
	d.PointerOut(img)

	d.PointerOver(img)
	settle(d)

	if got := ch.count(); got != 2 {
		t.Fatalf("channel requests = %d, want 2 (recognition is never cached)", got)
	}
}

func TestDenialRendersWithUpgradeAction(t *testing.T) {
	tests := []struct {
		name       string
		code       channel.ErrorCode
		wantPrefix string
	}{
		{"tier exhaustion offers upgrade", channel.CodeExhaustedFreeTier, "denial-upgrade:"},
		{"credential requirement does not", channel.CodeCredentialRequired, "denial:"},
		{"unknown code renders plain error", channel.CodeUnknown, "error:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &fakeChannel{
				respond: func(*channel.Request) (*channel.Response, error) {
					return &channel.Response{
						Success:   false,
						Error:     "nope",
						ErrorCode: tt.code,
					}, nil
				},
			}
			view := &recordingView{}
			d, doc := newTestDispatcher(ch, view)
			p := appendParagraph(doc)

			d.PointerOver(p)
			settle(d)

			if !view.has(tt.wantPrefix + "nope") {
				t.Fatalf("expected %q render, got %v", tt.wantPrefix, view.snapshot())
			}
		})
	}
}

func TestTransportFailureRendersUnavailable(t *testing.T) {
	ch := &fakeChannel{
		respond: func(*channel.Request) (*channel.Response, error) {
			return nil, errors.New("connection refused")
		},
	}
	view := &recordingView{}
	d, doc := newTestDispatcher(ch, view)
	p := appendParagraph(doc)

	d.PointerOver(p)
	settle(d)

	if !view.has("error:" + unavailableMessage) {
		t.Fatalf("expected unavailable message, got %v", view.snapshot())
	}
	if d.State() != StateErrored {
		t.Errorf("State = %v, want errored", d.State())
	}
}

func TestTooltipAutoDismisses(t *testing.T) {
	ch := okChannel("summary")
	view := &recordingView{}
	d, doc := newTestDispatcher(ch, view)
	p := appendParagraph(doc)

	d.PointerOver(p)
	settle(d)

	calls := view.snapshot()
	if calls[len(calls)-1] == "remove" {
		t.Fatal("tooltip removed before dismiss window")
	}

	time.Sleep(testDismiss + 20*time.Millisecond)
	calls = view.snapshot()
	if calls[len(calls)-1] != "remove" {
		t.Fatalf("tooltip not dismissed: %v", calls)
	}
}

func TestAtMostOneTooltip(t *testing.T) {
	// Every render is preceded by a removal, so the host never has to
	// reconcile two visible tooltips.
	ch := okChannel("summary")
	view := &recordingView{}
	d, doc := newTestDispatcher(ch, view)
	p := appendParagraph(doc)
	img := appendImage(doc)

	d.PointerOver(p)
	settle(d)
	d.PointerOver(img)
	settle(d)

	calls := view.snapshot()
	visible := 0
	for _, c := range calls {
		switch {
		case c == "remove":
			visible = 0
		case strings.HasPrefix(c, "preview:"):
			// augments the current tooltip, not a new one
		default:
			visible++
			if visible > 1 {
				t.Fatalf("two tooltips visible at once: %v", calls)
			}
		}
	}
}

func TestUnclassifiableHoverRendersNothing(t *testing.T) {
	ch := okChannel("summary")
	view := &recordingView{}
	d, doc := newTestDispatcher(ch, view)
	short := doc.Append(dom.ElementDescriptor{Tag: "p", Text: "too short"}, dom.Rect{})

	d.PointerOver(short)
	settle(d)

	if got := ch.count(); got != 0 {
		t.Fatalf("channel requests = %d, want 0", got)
	}
	if view.has("processing") {
		t.Fatalf("processing rendered for unclassifiable element: %v", view.snapshot())
	}
	if d.State() != StateIdle {
		t.Errorf("State = %v, want idle", d.State())
	}
}
