package hover

import (
	"strings"

	"ai-hovertip-be/pkg/dom"
)

// PipelineKind selects which enrichment pipeline a hover dispatches to.
type PipelineKind string

const (
	KindRecognition    PipelineKind = "recognition"
	KindPurposeSummary PipelineKind = "purpose-summary"
	KindTextSummary    PipelineKind = "text-summary"
)

// PipelineRequest is the resolved unit of work for one hover.
type PipelineRequest struct {
	Kind    PipelineKind
	Payload string

	// CacheKey is empty for recognition requests: recognition results
	// are never cached, each hover re-runs the pipeline.
	CacheKey string

	// Identifier is the stable element identifier the cache key was
	// derived from; the preview cache reuses it.
	Identifier string
}

const (
	// MinTextLength is the shortest trimmed text that still triggers a
	// text-summary pipeline. Anything shorter renders no tooltip.
	MinTextLength = 50

	// MaxTextLength bounds the summarization payload.
	MaxTextLength = 2000

	truncationMarker = "..."

	// maxParentContext bounds the parent-container excerpt appended to
	// purpose-summary payloads, to avoid runaway prompts.
	maxParentContext = 300

	// summaryKeyLength is how much of the payload feeds the text-summary
	// cache key.
	summaryKeyLength = 100
)

var textBearingTags = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "blockquote": true, "dt": true, "dd": true, "td": true, "th": true,
	"span": true, "div": true, "article": true, "section": true,
}

var formControlTags = map[string]bool{
	"input": true, "textarea": true, "select": true,
}

var interactiveRoles = map[string]bool{
	"button": true, "link": true, "menuitem": true, "tab": true,
	"checkbox": true, "radio": true, "switch": true,
}

// Classify maps a hovered element to the single pipeline that applies,
// or nil when none does. Priority is strict: image beats interactive
// control beats text block. Form controls never classify, so tooltips
// cannot interfere with normal input interaction.
func Classify(desc dom.ElementDescriptor, page dom.PageIdentity) *PipelineRequest {
	tag := strings.ToLower(desc.Tag)

	if formControlTags[tag] {
		return nil
	}

	if tag == "img" && desc.Src != "" {
		return &PipelineRequest{
			Kind:    KindRecognition,
			Payload: desc.Src,
		}
	}

	if tag == "a" || tag == "button" || interactiveRoles[strings.ToLower(desc.Role)] {
		return classifyInteractive(desc, page)
	}

	if textBearingTags[tag] {
		return classifyTextBlock(desc, page)
	}

	return nil
}

func classifyInteractive(desc dom.ElementDescriptor, page dom.PageIdentity) *PipelineRequest {
	text := strings.TrimSpace(desc.Text)

	var parts []string
	if text != "" {
		parts = append(parts, "Text: "+text)
	}
	if desc.Href != "" {
		parts = append(parts, "Destination: "+desc.Href)
	}
	if desc.AriaLabel != "" {
		parts = append(parts, "Label: "+desc.AriaLabel)
	}
	if desc.Title != "" {
		parts = append(parts, "Title: "+desc.Title)
	}
	if parent := strings.TrimSpace(desc.ParentText); parent != "" && len(parent) <= maxParentContext {
		parts = append(parts, "Context: "+parent)
	}
	if len(parts) == 0 {
		return nil
	}

	// Destination wins as identity, then visible text, then element id.
	identifier := desc.Href
	if identifier == "" {
		identifier = text
	}
	if identifier == "" {
		identifier = desc.ID
	}
	if identifier == "" {
		identifier = desc.AriaLabel
	}

	return &PipelineRequest{
		Kind:       KindPurposeSummary,
		Payload:    strings.Join(parts, "\n"),
		CacheKey:   CacheKey(NamespaceButtonSummary, page, identifier),
		Identifier: identifier,
	}
}

func classifyTextBlock(desc dom.ElementDescriptor, page dom.PageIdentity) *PipelineRequest {
	text := strings.TrimSpace(desc.Text)
	if len(text) < MinTextLength {
		return nil
	}

	payload := text
	if len(payload) > MaxTextLength {
		payload = truncate(payload, MaxTextLength) + truncationMarker
	}

	identifier := truncate(payload, summaryKeyLength)

	return &PipelineRequest{
		Kind:       KindTextSummary,
		Payload:    payload,
		CacheKey:   CacheKey(NamespaceSummary, page, identifier),
		Identifier: identifier,
	}
}
