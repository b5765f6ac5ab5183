package dom

import (
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/net/html"
)

// ErrFrameUnavailable is returned when a frame's document cannot be reached:
// cross-origin, sandboxed without allow-same-origin, unparseable or not
// captured.
var ErrFrameUnavailable = errors.New("dom: frame document unavailable")

// FrameKeyAttr is set on <iframe>/<frame> elements by the browser source to
// link them with the frame documents it captured.
const FrameKeyAttr = "data-a11y-frame"

// FrameResolver supplies the content document of a frame element.
type FrameResolver interface {
	FrameDocument(frame *html.Node) (*html.Node, error)
}

// ResolveFrameDocument returns the embedded document of frame, or nil.
// Resolver errors are an ordinary "unavailable" outcome and are dropped.
func ResolveFrameDocument(frame *html.Node, r FrameResolver) *html.Node {
	if r == nil || !IsFrame(frame) {
		return nil
	}
	doc, err := r.FrameDocument(frame)
	if err != nil {
		return nil
	}
	return doc
}

// IsFrame reports whether n is an <iframe> or <frame> element.
func IsFrame(n *html.Node) bool {
	switch Tag(n) {
	case "iframe", "frame":
		return true
	}
	return false
}

// IsSrcdocFrame reports whether frame takes its document from srcdoc.
func IsSrcdocFrame(frame *html.Node) bool {
	return Tag(frame) == "iframe" && HasAttr(frame, "srcdoc")
}

// opaqueOrigin reports a sandbox that withholds same-origin access.
func opaqueOrigin(frame *html.Node) bool {
	v, ok := LookupAttr(frame, "sandbox")
	if !ok {
		return false
	}
	for _, tok := range strings.Fields(strings.ToLower(v)) {
		if tok == "allow-same-origin" {
			return false
		}
	}
	return true
}

// Frames resolves frame documents from srcdoc attributes and from documents
// registered by key. Parsed srcdoc documents are cached per frame element so
// repeated lookups return the same tree. Safe for concurrent use.
type Frames struct {
	mu     sync.Mutex
	byKey  map[string]*html.Node
	srcdoc map[*html.Node]*html.Node
}

// NewFrames returns an empty resolver.
func NewFrames() *Frames {
	return &Frames{
		byKey:  make(map[string]*html.Node),
		srcdoc: make(map[*html.Node]*html.Node),
	}
}

// Add registers a captured document under key. The key is matched against
// the frame's FrameKeyAttr, then its src attribute.
func (f *Frames) Add(key string, doc *html.Node) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byKey[key] = doc
}

// Len returns the number of registered documents.
func (f *Frames) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byKey)
}

// FrameDocument implements FrameResolver.
func (f *Frames) FrameDocument(frame *html.Node) (*html.Node, error) {
	if !IsFrame(frame) {
		return nil, errors.Wrapf(ErrFrameUnavailable, "<%s> is not a frame", Tag(frame))
	}
	if opaqueOrigin(frame) {
		return nil, errors.Wrap(ErrFrameUnavailable, "sandboxed without allow-same-origin")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if IsSrcdocFrame(frame) {
		if doc, ok := f.srcdoc[frame]; ok {
			return doc, nil
		}
		doc, err := html.Parse(strings.NewReader(Attr(frame, "srcdoc")))
		if err != nil {
			return nil, errors.Wrapf(ErrFrameUnavailable, "parse srcdoc: %v", err)
		}
		f.srcdoc[frame] = doc
		return doc, nil
	}

	for _, key := range []string{Attr(frame, FrameKeyAttr), Attr(frame, "src")} {
		if key == "" {
			continue
		}
		if doc, ok := f.byKey[key]; ok && doc != nil {
			return doc, nil
		}
	}
	return nil, errors.Wrap(ErrFrameUnavailable, "not captured")
}
