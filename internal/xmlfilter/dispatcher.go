package xmlfilter

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Context is the per-element extraction context. One is allocated per open
// element and discarded once the element closes.
type Context struct {
	tag       string
	attrs     []xml.Attr
	preceding string
	body      strings.Builder
	node      *FilterNode
	state     *State
}

// Tag returns the element's tag name.
func (c *Context) Tag() string {
	return c.tag
}

// Attr returns the named attribute value, or "" when absent.
func (c *Context) Attr(name string) string {
	for _, a := range c.attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// Body returns the text directly inside the element, excluding descendant
// text. Only valid once the element's end event has fired.
func (c *Context) Body() string {
	return c.body.String()
}

// PrecedingText returns the text accumulated in the parent element before
// this element opened.
func (c *Context) PrecedingText() string {
	return c.preceding
}

// State returns the extraction run state, nil when dispatching a plain
// filter tree without an extractor.
func (c *Context) State() *State {
	return c.state
}

// Dispatcher drives pull-parser events into a filter tree. It keeps a stack
// of contexts so the correct filter subtree is active at every nesting depth.
type Dispatcher struct {
	root *FilterNode
}

// NewDispatcher creates a dispatcher over the given filter tree root.
func NewDispatcher(root *FilterNode) *Dispatcher {
	return &Dispatcher{root: root}
}

// Run consumes the XML document from r, invoking the matched filter actions.
// Elements with no matching filter open an ignored subtree: their content is
// skipped without affecting sibling extraction, and text outside any matched
// child is preserved for the parent.
func (d *Dispatcher) Run(r io.Reader, st *State) error {
	dec := xml.NewDecoder(r)
	stack := []*Context{{node: d.root, state: st}}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("malformed xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			parent := stack[len(stack)-1]
			var node *FilterNode
			if parent.node != nil {
				node = parent.node.child(t.Name.Local)
			}
			ctx := &Context{
				tag:       t.Name.Local,
				attrs:     t.Attr,
				preceding: parent.body.String(),
				node:      node,
				state:     st,
			}
			stack = append(stack, ctx)
			if node != nil && node.onStart != nil {
				node.onStart(ctx)
			}

		case xml.EndElement:
			ctx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if ctx.node != nil && ctx.node.onEnd != nil {
				ctx.node.onEnd(ctx)
			}

		case xml.CharData:
			top := stack[len(stack)-1]
			if top.node != nil {
				top.body.Write(t)
			}
		}
	}
}
