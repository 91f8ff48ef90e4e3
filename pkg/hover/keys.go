package hover

import (
	"net/url"

	"ai-hovertip-be/pkg/dom"
)

// Cache key namespaces.
const (
	NamespaceSummary       = "summary"
	NamespaceButtonSummary = "button-summary"
	NamespacePreview       = "preview"
)

// keyIdentifierMax bounds the element identifier embedded in a cache
// key. Truncation can make two long, semantically different elements
// collide; an accepted tradeoff.
const keyIdentifierMax = 150

// CacheKey derives the storage key for a summary result. Derivation is
// pure: same page plus same identifier always yields the same key, so a
// re-created DOM node still hits the cached result.
func CacheKey(namespace string, page dom.PageIdentity, identifier string) string {
	return namespace + "::" + url.QueryEscape(page.String()) + "::" + url.QueryEscape(truncate(identifier, keyIdentifierMax))
}

// PreviewCacheKey derives the storage key for a captured visual
// preview, namespaced by preview type on top of page and identifier.
func PreviewCacheKey(previewType string, page dom.PageIdentity, identifier string) string {
	return NamespacePreview + "::" + previewType + "::" + url.QueryEscape(page.String()) + "::" + url.QueryEscape(truncate(identifier, keyIdentifierMax))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Back off to a rune boundary so percent-encoding stays stable.
	cut := max
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}
