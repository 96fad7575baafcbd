package xmlfilter

import (
	"io"
	"strconv"
	"strings"
)

// State is the mutable per-run side of an extraction: a stack of record
// targets and a stack of open array holders. The schema itself is immutable
// once built, so one Extractor may serve concurrent calls, each with its
// own State.
type State struct {
	root    Record
	records []Record
	arrays  []*arrayFrame
}

type arrayFrame struct {
	field string
	items []Record
}

func newState() *State {
	root := Record{}
	return &State{root: root, records: []Record{root}}
}

func (s *State) current() Record {
	return s.records[len(s.records)-1]
}

// Current returns the record scalar collection is presently targeting.
// Exposed for OnEnd post-processing listeners.
func (s *State) Current() Record {
	return s.current()
}

func (s *State) pushRecord() {
	s.records = append(s.records, Record{})
}

func (s *State) popRecord() Record {
	rec := s.records[len(s.records)-1]
	s.records = s.records[:len(s.records)-1]
	return rec
}

func (s *State) pushArray(field string) {
	s.arrays = append(s.arrays, &arrayFrame{field: field})
}

func (s *State) popArray() *arrayFrame {
	fr := s.arrays[len(s.arrays)-1]
	s.arrays = s.arrays[:len(s.arrays)-1]
	return fr
}

// nearestArray resolves the enclosing array holder for an array item.
func (s *State) nearestArray() *arrayFrame {
	if len(s.arrays) == 0 {
		panic("xmlfilter: AsArrayItem outside of an AsArray scope")
	}
	return s.arrays[len(s.arrays)-1]
}

// Extractor is a fluent builder over a filter tree. Operations apply to an
// implicit current tag path; scalar and attribute operations store into the
// implicit current record target. Build the schema once at handler
// construction time and reuse it for every call.
type Extractor struct {
	root *FilterNode
	path []*FilterNode
	last *FilterNode
}

// NewExtractor creates an extractor, optionally descending into the given
// tag path (typically the shared response envelope).
func NewExtractor(rootTags ...string) *Extractor {
	root := NewFilterTree()
	e := &Extractor{root: root, path: []*FilterNode{root}}
	for _, tag := range rootTags {
		e.Enter(tag)
	}
	return e
}

// Enter pushes one tag level, creating or reusing the filter node.
func (e *Extractor) Enter(tag string) *Extractor {
	node := e.top().ensureChild(tag)
	e.path = append(e.path, node)
	e.last = node
	return e
}

// Leave pops one tag level.
func (e *Extractor) Leave() *Extractor {
	if len(e.path) <= 1 {
		panic("xmlfilter: Leave below the filter tree root")
	}
	e.path = e.path[:len(e.path)-1]
	e.last = e.top()
	return e
}

// LeaveTo pops levels until the current level matches tag.
func (e *Extractor) LeaveTo(tag string) *Extractor {
	for e.top().tag != tag {
		e.Leave()
	}
	return e
}

// StringField collects the body of a child tag into field.
func (e *Extractor) StringField(tag, field string) *Extractor {
	return e.scalar(tag, func(body string, rec Record) {
		rec[field] = body
	})
}

// LongField collects the body of a child tag as int64. Non-numeric bodies
// are dropped and the field stays absent.
func (e *Extractor) LongField(tag, field string) *Extractor {
	return e.scalar(tag, func(body string, rec Record) {
		if v, err := strconv.ParseInt(body, 10, 64); err == nil {
			rec[field] = v
		}
	})
}

// DoubleField collects the body of a child tag as float64.
func (e *Extractor) DoubleField(tag, field string) *Extractor {
	return e.scalar(tag, func(body string, rec Record) {
		if v, err := strconv.ParseFloat(body, 64); err == nil {
			rec[field] = v
		}
	})
}

// BooleanField collects the body of a child tag as bool.
func (e *Extractor) BooleanField(tag, field string) *Extractor {
	return e.scalar(tag, func(body string, rec Record) {
		if v, err := strconv.ParseBool(body); err == nil {
			rec[field] = v
		}
	})
}

// StringAttr collects an attribute of the current element into field.
// Attributes are read at start time, so declare AsArrayItem before any
// attribute operations on the same level.
func (e *Extractor) StringAttr(attr, field string) *Extractor {
	return e.attr(attr, func(value string, rec Record) {
		rec[field] = value
	})
}

// LongAttr collects an attribute of the current element as int64.
func (e *Extractor) LongAttr(attr, field string) *Extractor {
	return e.attr(attr, func(value string, rec Record) {
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			rec[field] = v
		}
	})
}

// DoubleAttr collects an attribute of the current element as float64.
func (e *Extractor) DoubleAttr(attr, field string) *Extractor {
	return e.attr(attr, func(value string, rec Record) {
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			rec[field] = v
		}
	})
}

// BooleanAttr collects an attribute of the current element as bool.
func (e *Extractor) BooleanAttr(attr, field string) *Extractor {
	return e.attr(attr, func(value string, rec Record) {
		if v, err := strconv.ParseBool(value); err == nil {
			rec[field] = v
		}
	})
}

// AsArray marks the current level as producing a list of sub-records,
// committed into the parent record under field when the element closes.
func (e *Extractor) AsArray(field string) *Extractor {
	node := e.top()
	node.onStart = chainStart(node.onStart, func(ctx *Context) {
		ctx.state.pushArray(field)
	})
	node.onEnd = chainEnd(node.onEnd, func(ctx *Context) {
		fr := ctx.state.popArray()
		ctx.state.current()[fr.field] = fr.items
	})
	e.last = node
	return e
}

// AsArrayItem marks the current level as one element of the nearest
// enclosing array: a fresh sub-record is the current target while the
// element is open and is appended to the array holder on close.
func (e *Extractor) AsArrayItem() *Extractor {
	node := e.top()
	node.onStart = chainStart(node.onStart, func(ctx *Context) {
		ctx.state.pushRecord()
	})
	node.onEnd = chainEnd(node.onEnd, func(ctx *Context) {
		rec := ctx.state.popRecord()
		holder := ctx.state.nearestArray()
		holder.items = append(holder.items, rec)
	})
	e.last = node
	return e
}

// OnEnd registers a post-processing listener on the most recently declared
// node, invoked after its default collection.
func (e *Extractor) OnEnd(fn EndAction) *Extractor {
	if e.last == nil {
		panic("xmlfilter: OnEnd with no preceding declaration")
	}
	e.last.onEnd = chainEnd(e.last.onEnd, fn)
	return e
}

// Root exposes the underlying filter tree, allowing additional manual
// filters alongside the declarative schema.
func (e *Extractor) Root() *FilterNode {
	return e.root
}

// Parse runs the schema over one document and returns the top-level record.
func (e *Extractor) Parse(r io.Reader) (Record, error) {
	st := newState()
	if err := NewDispatcher(e.root).Run(r, st); err != nil {
		return nil, err
	}
	return st.root, nil
}

func (e *Extractor) top() *FilterNode {
	return e.path[len(e.path)-1]
}

func (e *Extractor) scalar(tag string, store func(body string, rec Record)) *Extractor {
	node := e.top().ensureChild(tag)
	node.onEnd = chainEnd(node.onEnd, func(ctx *Context) {
		// Indented documents surround scalar bodies with layout whitespace.
		store(strings.TrimSpace(ctx.Body()), ctx.state.current())
	})
	e.last = node
	return e
}

func (e *Extractor) attr(attr string, store func(value string, rec Record)) *Extractor {
	node := e.top()
	node.onStart = chainStart(node.onStart, func(ctx *Context) {
		if v := ctx.Attr(attr); v != "" {
			store(v, ctx.state.current())
		}
	})
	e.last = node
	return e
}
