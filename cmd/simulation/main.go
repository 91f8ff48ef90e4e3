package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"ai-hovertip-be/internal/gate"
	"ai-hovertip-be/internal/pkg/logger"
	"ai-hovertip-be/internal/service"
	"ai-hovertip-be/pkg/dom"
	"ai-hovertip-be/pkg/hover"
	"ai-hovertip-be/pkg/kv"
	"ai-hovertip-be/pkg/llm"
	"ai-hovertip-be/pkg/ocr"

	internalEvents "ai-hovertip-be/internal/events"
)

const installId = "3f6f7a34-1d0e-4b68-8a53-1c2a4b1f0f11"

// consoleTooltip renders tooltip states as colored console lines.
type consoleTooltip struct {
	visible bool
}

func (t *consoleTooltip) ShowProcessing(anchor dom.Rect) {
	t.visible = true
	color.Yellow("  [tooltip] processing...")
}

func (t *consoleTooltip) ShowResult(anchor dom.Rect, text, footer string) {
	t.visible = true
	color.Green("  [tooltip] %s", text)
	if footer != "" {
		color.HiBlack("            %s", footer)
	}
}

func (t *consoleTooltip) ShowError(anchor dom.Rect, message string) {
	t.visible = true
	color.Red("  [tooltip] error: %s", message)
}

func (t *consoleTooltip) ShowDenial(anchor dom.Rect, message string, upgrade bool) {
	t.visible = true
	color.Red("  [tooltip] denied: %s", message)
	if upgrade {
		color.Cyan("            [Upgrade]")
	}
}

func (t *consoleTooltip) AttachPreview(dataURL string) {
	color.HiBlack("            preview attached (%d bytes)", len(dataURL))
}

func (t *consoleTooltip) Remove() {
	if t.visible {
		t.visible = false
		color.HiBlack("  [tooltip] removed")
	}
}

// cannedProvider answers summarize prompts locally so the simulation
// runs without any API key.
type cannedProvider struct{}

func (cannedProvider) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	return "Canned chat reply.", nil
}

func (cannedProvider) Generate(_ context.Context, prompt string, _ ...llm.Option) (string, error) {
	line := prompt
	if idx := strings.Index(prompt, "Content:\n"); idx >= 0 {
		line = prompt[idx+len("Content:\n"):]
	}
	if len(line) > 60 {
		line = line[:60] + "..."
	}
	return "Summary: " + line, nil
}

func main() {
	fmt.Println("=== Hover Tooltip Simulation ===")

	log := logger.NewNopLogger()
	store := kv.NewMemoryStore()
	ledger := gate.NewLedger(store, log)

	// A tiny ceiling so exhaustion shows up within the run.
	usageGate := gate.NewGate(ledger, 3, "simulated-key", log, internalEvents.NoopPublisher{})

	enrichment := service.NewEnrichmentService(usageGate, ocr.NewStubRecognizer(), cannedProvider{}, log)
	ch := service.NewLocalChannel(enrichment, installId)

	page := dom.PageIdentity{Origin: "https://news.example.com", Path: "/articles/42"}
	doc := dom.NewDocument(page)
	view := &consoleTooltip{}

	d := hover.NewDispatcher(hover.Deps{
		Page:         page,
		Channel:      ch,
		Store:        store,
		View:         view,
		Logger:       log,
		Debounce:     100 * time.Millisecond,
		DismissAfter: 300 * time.Millisecond,
	})

	image := doc.Append(dom.ElementDescriptor{
		Tag: "img",
		Src: "https://news.example.com/chart.png",
	}, dom.Rect{X: 10, Y: 10, Width: 320, Height: 200})

	link := doc.Append(dom.ElementDescriptor{
		Tag:  "a",
		Href: "https://news.example.com/subscribe",
		Text: "Subscribe to the weekly digest",
	}, dom.Rect{X: 10, Y: 240, Width: 200, Height: 20})

	article := doc.Append(dom.ElementDescriptor{
		Tag: "p",
		Text: "The committee approved the measure after a lengthy debate, " +
			"with the final vote splitting along unexpected lines and several " +
			"members abstaining entirely.",
	}, dom.Rect{X: 10, Y: 280, Width: 600, Height: 120})

	hovers := []struct {
		label string
		el    dom.Element
	}{
		{"image (recognition)", image},
		{"link (purpose summary)", link},
		{"paragraph (text summary)", article},
		{"paragraph again (cache hit)", article},
		{"link again (free tier runs out)", link},
	}

	for _, h := range hovers {
		color.White("\nhover: %s", h.label)
		d.PointerOver(h.el)
		time.Sleep(150 * time.Millisecond)
		d.Wait()
		d.PointerOut(h.el)
	}

	// A quick exit-before-debounce pass: nothing should render.
	color.White("\nhover: image, pointer leaves after 20ms")
	d.PointerOver(image)
	time.Sleep(20 * time.Millisecond)
	d.PointerOut(image)
	d.Wait()

	fmt.Println("\ndone")
}
