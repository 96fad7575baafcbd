// Package xmlfilter provides a declarative, tag-path-driven extraction engine
// for streaming XML. A handler declares once which tag paths map to scalar
// fields, object boundaries and arrays; a single generic dispatcher then drives
// decoder events through the resulting filter tree for every response.
package xmlfilter

import "fmt"

// StartAction is invoked when the opening tag of a matched element is seen.
type StartAction func(ctx *Context)

// EndAction is invoked when the closing tag of a matched element is seen.
// The element's body text is available at that point.
type EndAction func(ctx *Context)

// FilterNode is one node of the tag-path filter tree. Each node matches a
// single tag name within its parent; a tag path therefore maps to exactly
// one node.
type FilterNode struct {
	tag      string
	children map[string]*FilterNode
	onStart  StartAction
	onEnd    EndAction
}

// NewFilterTree returns the virtual root node sitting above the document
// element. All paths are built from it.
func NewFilterTree() *FilterNode {
	return &FilterNode{}
}

// BuildFilter walks the tree level by level, creating missing nodes, and
// returns the leaf for the given tag path. Independent callers may declare
// paths sharing a common prefix without collision.
func BuildFilter(root *FilterNode, tags ...string) *FilterNode {
	if len(tags) == 0 {
		panic("xmlfilter: BuildFilter requires at least one tag")
	}
	node := root
	for _, tag := range tags {
		node = node.ensureChild(tag)
	}
	return node
}

// SetStart registers the start-action for this node. Registering twice on the
// same path is a programming error.
func (n *FilterNode) SetStart(fn StartAction) *FilterNode {
	if n.onStart != nil {
		panic(fmt.Sprintf("xmlfilter: start-action already registered for tag %q", n.tag))
	}
	n.onStart = fn
	return n
}

// SetEnd registers the end-action for this node. Registering twice on the
// same path is a programming error.
func (n *FilterNode) SetEnd(fn EndAction) *FilterNode {
	if n.onEnd != nil {
		panic(fmt.Sprintf("xmlfilter: end-action already registered for tag %q", n.tag))
	}
	n.onEnd = fn
	return n
}

// Tag returns the tag name this node matches.
func (n *FilterNode) Tag() string {
	return n.tag
}

func (n *FilterNode) ensureChild(tag string) *FilterNode {
	if n.children == nil {
		n.children = make(map[string]*FilterNode)
	}
	if child, ok := n.children[tag]; ok {
		return child
	}
	child := &FilterNode{tag: tag}
	n.children[tag] = child
	return child
}

func (n *FilterNode) child(tag string) *FilterNode {
	return n.children[tag]
}

func chainStart(existing StartAction, fn StartAction) StartAction {
	if existing == nil {
		return fn
	}
	return func(ctx *Context) {
		existing(ctx)
		fn(ctx)
	}
}

func chainEnd(existing EndAction, fn EndAction) EndAction {
	if existing == nil {
		return fn
	}
	return func(ctx *Context) {
		existing(ctx)
		fn(ctx)
	}
}
