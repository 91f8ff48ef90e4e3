package hover

import (
	"context"
	"fmt"

	"ai-hovertip-be/pkg/channel"
	"ai-hovertip-be/pkg/dom"
)

// TooltipView is the rendering surface the dispatcher drives. The host
// owns layout; the dispatcher owns when each state appears and when the
// tooltip goes away. At most one tooltip is ever visible: the
// dispatcher calls Remove before every Show, and Remove on an already
// removed tooltip must be a no-op.
type TooltipView interface {
	ShowProcessing(anchor dom.Rect)
	ShowResult(anchor dom.Rect, text, footer string)
	ShowError(anchor dom.Rect, message string)

	// ShowDenial renders an authorization denial. upgrade requests an
	// upgrade call-to-action (tier exhaustion only).
	ShowDenial(anchor dom.Rect, message string, upgrade bool)

	// AttachPreview augments the currently visible tooltip with a
	// captured visual preview (data URL). Ignored if nothing is shown.
	AttachPreview(dataURL string)

	Remove()
}

// PreviewCapturer produces a visual preview of an element as a data
// URL. It is the optional secondary enrichment behind cached summary
// renders.
type PreviewCapturer interface {
	Capture(ctx context.Context, el dom.Element) (string, error)
}

func usageFooter(info channel.UsageInfo) string {
	if info.FreeTooltipsRemaining < 0 {
		return ""
	}
	return fmt.Sprintf("%d free tooltips left", info.FreeTooltipsRemaining)
}
