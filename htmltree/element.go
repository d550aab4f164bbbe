// Package htmltree parses arbitrary tag soup into a tree of elements.
// It never fails on malformed input: every byte sequence yields a
// document tree, the way browsers recover from broken markup.
package htmltree

import (
	"fmt"
	"iter"
	"strings"

	"github.com/pkg/errors"
)

// ErrIndexOutOfRange is returned by the child mutators when the given
// index does not name an existing child.
var ErrIndexOutOfRange = errors.New("htmltree: child index out of range")

// Attr is a single element attribute. Attribute order is the order of
// first appearance in the markup; assigning to an existing name keeps
// its position and replaces the value.
type Attr struct {
	Name  string
	Value string
}

// Element is a node in the parsed tree. Character data is stored
// ElementTree-style: Text is the data before the first child, and each
// child's Tail is the data between that child's end tag and the next
// sibling (or the parent's end tag).
type Element struct {
	Tag  string
	Text string
	Tail string

	attrs    []Attr
	children []*Element
}

// NewElement creates a detached element with the given tag name.
func NewElement(tag string) *Element {
	return &Element{Tag: tag}
}

func (e *Element) String() string {
	return fmt.Sprintf("<Element %q at %p>", e.Tag, e)
}

// Attr returns the value of the named attribute, or "" when the
// attribute is not present.
func (e *Element) Attr(name string) string {
	for _, a := range e.attrs {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}

// HasAttr reports whether the named attribute is present.
func (e *Element) HasAttr(name string) bool {
	for _, a := range e.attrs {
		if a.Name == name {
			return true
		}
	}
	return false
}

// SetAttr sets the named attribute. An existing attribute keeps its
// position in the attribute order.
func (e *Element) SetAttr(name, value string) {
	for i := range e.attrs {
		if e.attrs[i].Name == name {
			e.attrs[i].Value = value
			return
		}
	}
	e.attrs = append(e.attrs, Attr{Name: name, Value: value})
}

// DelAttr removes the named attribute and reports whether it was
// present.
func (e *Element) DelAttr(name string) bool {
	for i := range e.attrs {
		if e.attrs[i].Name == name {
			e.attrs = append(e.attrs[:i], e.attrs[i+1:]...)
			return true
		}
	}
	return false
}

// Attrs returns a copy of the attribute list in document order.
func (e *Element) Attrs() []Attr {
	out := make([]Attr, len(e.attrs))
	copy(out, e.attrs)
	return out
}

// Len returns the number of child elements.
func (e *Element) Len() int {
	return len(e.children)
}

// Child returns the i-th child element. It panics when i is out of
// range, like ordinary slice indexing.
func (e *Element) Child(i int) *Element {
	return e.children[i]
}

// Children returns a copy of the child list.
func (e *Element) Children() []*Element {
	out := make([]*Element, len(e.children))
	copy(out, e.children)
	return out
}

// Append adds a child element at the end of the child list.
func (e *Element) Append(child *Element) {
	e.children = append(e.children, child)
}

// InsertChild inserts a child at position i, shifting later children
// to the right. i may equal Len(), which appends.
func (e *Element) InsertChild(i int, child *Element) error {
	if i < 0 || i > len(e.children) {
		return errors.Wrapf(ErrIndexOutOfRange, "insert at %d of %d", i, len(e.children))
	}
	e.children = append(e.children, nil)
	copy(e.children[i+1:], e.children[i:])
	e.children[i] = child
	return nil
}

// ReplaceChild replaces the child at position i.
func (e *Element) ReplaceChild(i int, child *Element) error {
	if i < 0 || i >= len(e.children) {
		return errors.Wrapf(ErrIndexOutOfRange, "replace at %d of %d", i, len(e.children))
	}
	e.children[i] = child
	return nil
}

// RemoveChild removes the child at position i.
func (e *Element) RemoveChild(i int) error {
	if i < 0 || i >= len(e.children) {
		return errors.Wrapf(ErrIndexOutOfRange, "remove at %d of %d", i, len(e.children))
	}
	e.children = append(e.children[:i], e.children[i+1:]...)
	return nil
}

// removeChildElement unlinks the given child, if present, and reports
// whether it was found.
func (e *Element) removeChildElement(child *Element) bool {
	for i, c := range e.children {
		if c == child {
			e.children = append(e.children[:i], e.children[i+1:]...)
			return true
		}
	}
	return false
}

// childIndex returns the position of child, or -1.
func (e *Element) childIndex(child *Element) int {
	for i, c := range e.children {
		if c == child {
			return i
		}
	}
	return -1
}

// Iter walks the subtree below e in document order, yielding every
// descendant whose tag equals tag. The empty string (or "*") matches
// all descendants. e itself is never yielded. The sequence is lazy and
// may be restarted.
func (e *Element) Iter(tag string) iter.Seq[*Element] {
	return func(yield func(*Element) bool) {
		e.iterate(tag, yield)
	}
}

func (e *Element) iterate(tag string, yield func(*Element) bool) bool {
	for _, c := range e.children {
		if tag == "" || tag == "*" || c.Tag == tag {
			if !yield(c) {
				return false
			}
		}
		if !c.iterate(tag, yield) {
			return false
		}
	}
	return true
}

// Find returns the first descendant with the given tag, or nil.
func (e *Element) Find(tag string) *Element {
	for d := range e.Iter(tag) {
		return d
	}
	return nil
}

// TextContent returns all character data in the subtree, in document
// order, with runs of whitespace collapsed to single spaces and
// leading/trailing whitespace removed.
func (e *Element) TextContent() string {
	var b strings.Builder
	e.rawText(&b)
	return strings.Join(strings.Fields(b.String()), " ")
}

func (e *Element) rawText(b *strings.Builder) {
	b.WriteString(e.Text)
	for _, c := range e.children {
		c.rawText(b)
		b.WriteString(c.Tail)
	}
}

// cloneShallow copies the tag and attributes but neither text nor
// children. The tree constructor uses it for reopened formatting
// elements.
func (e *Element) cloneShallow() *Element {
	c := &Element{Tag: e.Tag}
	c.attrs = make([]Attr, len(e.attrs))
	copy(c.attrs, e.attrs)
	return c
}
