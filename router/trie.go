// used by the router to match on paths

package router

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shravanasati/mearas/handler"
)

// TrieNode is one segment position of a method's route tree. Children are
// tried literal first, then the capture, then the wildcard.
type TrieNode struct {
	// static children
	children map[string]*TrieNode

	// parameter segment, eg. :id
	paramChild *TrieNode
	paramName  string

	// wildcard segment, eg. *file
	wildcardChild *TrieNode
	wildcardName  string

	// set on nodes where a pattern ends
	pattern string
	handler handler.Handler
}

func NewTrieNode() *TrieNode {
	return &TrieNode{children: make(map[string]*TrieNode)}
}

// Insert adds a parsed pattern. It fails with ErrAmbiguousRoute when the
// pattern is already registered or when a capture or wildcard at the same
// position already goes by a different name.
func (n *TrieNode) Insert(p Pattern, h handler.Handler) error {
	currentNode := n

	for _, seg := range p.segments {
		switch seg.kind {
		case segParam:
			if currentNode.paramChild == nil {
				currentNode.paramChild = NewTrieNode()
				currentNode.paramName = seg.value
			} else if currentNode.paramName != seg.value {
				return fmt.Errorf("%w: capture :%s conflicts with :%s", ErrAmbiguousRoute, seg.value, currentNode.paramName)
			}
			currentNode = currentNode.paramChild

		case segWildcard:
			if currentNode.wildcardChild == nil {
				currentNode.wildcardChild = NewTrieNode()
				currentNode.wildcardName = seg.value
			} else if currentNode.wildcardName != seg.value {
				return fmt.Errorf("%w: wildcard *%s conflicts with *%s", ErrAmbiguousRoute, seg.value, currentNode.wildcardName)
			}
			currentNode = currentNode.wildcardChild

		default:
			child, ok := currentNode.children[seg.value]
			if !ok {
				child = NewTrieNode()
				currentNode.children[seg.value] = child
			}
			currentNode = child
		}
	}

	if currentNode.handler != nil {
		return fmt.Errorf("%w: %s is already registered as %s", ErrAmbiguousRoute, p, currentNode.pattern)
	}
	currentNode.pattern = p.String()
	currentNode.handler = h
	return nil
}

type pathSegment struct {
	raw     string
	decoded string
	ok      bool // decoded is valid
}

// splitPath normalizes a request path the way ParsePattern normalizes
// patterns. Paths not starting with '/' have no segments and match nothing.
func splitPath(path string) ([]pathSegment, bool) {
	if !strings.HasPrefix(path, "/") {
		return nil, false
	}
	trimmed := trimTrailingSlash(path[1:])
	if trimmed == "" {
		return nil, true
	}

	parts := strings.Split(trimmed, "/")
	segs := make([]pathSegment, len(parts))
	for i, part := range parts {
		decoded, err := url.PathUnescape(part)
		segs[i] = pathSegment{raw: part, decoded: decoded, ok: err == nil}
	}
	return segs, true
}

// Match finds the handler for a request path, returning the matched pattern
// and the captured parameters.
func (n *TrieNode) Match(path string) (handler.Handler, string, map[string]string) {
	segs, ok := splitPath(path)
	if !ok {
		return nil, "", nil
	}
	params := make(map[string]string)
	node := n.match(segs, 0, params)
	if node == nil {
		return nil, "", nil
	}
	return node.handler, node.pattern, params
}

func (n *TrieNode) match(segs []pathSegment, i int, params map[string]string) *TrieNode {
	if i == len(segs) {
		if n.handler != nil {
			return n
		}
		// a wildcard also matches zero remaining segments
		if w := n.wildcardChild; w != nil && w.handler != nil {
			params[n.wildcardName] = ""
			return w
		}
		return nil
	}

	seg := segs[i]

	if seg.ok {
		if child, ok := n.children[seg.decoded]; ok {
			if found := child.match(segs, i+1, params); found != nil {
				return found
			}
		}
	}

	// empty segments never bind a capture
	if n.paramChild != nil && seg.ok && seg.decoded != "" {
		params[n.paramName] = seg.decoded
		if found := n.paramChild.match(segs, i+1, params); found != nil {
			return found
		}
		delete(params, n.paramName)
	}

	if w := n.wildcardChild; w != nil && w.handler != nil {
		rest := make([]string, 0, len(segs)-i)
		for _, s := range segs[i:] {
			rest = append(rest, s.raw)
		}
		params[n.wildcardName] = strings.Join(rest, "/")
		return w
	}

	return nil
}
