package dom

// PageIdentity identifies the browsing context a hover happens in.
// Cache keys are namespaced by it so results never leak across pages.
type PageIdentity struct {
	Origin string `json:"origin"`
	Path   string `json:"path"`
}

func (p PageIdentity) String() string {
	return p.Origin + p.Path
}

// Rect is an element bounding box in page coordinates. Tooltips are
// anchored to it.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ElementDescriptor is the structural view of a page element that
// classification operates on. It is a plain value so classification
// stays a pure function.
type ElementDescriptor struct {
	Tag        string
	Role       string
	ID         string
	Href       string
	Src        string
	AriaLabel  string
	Title      string
	Text       string
	ParentText string
}

// Element is a live handle to a page element under the pointer.
type Element interface {
	Descriptor() ElementDescriptor

	// Attached reports whether the element is still part of the live
	// document. Every asynchronous continuation checks this before
	// touching the UI.
	Attached() bool

	Bounds() Rect
}
