package htmltree

import "strings"

// voidElements never carry content and are serialized without an end
// tag in HTML output.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

var (
	textEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	)
	attrEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"\r", "&#13;",
		"\n", "&#10;",
		"\t", "&#09;",
	)
)

// OuterXML serializes the element and its subtree as an XML fragment.
// An element with no text and no children is written as a self-closed
// tag. The element's own Tail is not included.
func (e *Element) OuterXML() string {
	var b strings.Builder
	e.writeXML(&b)
	return b.String()
}

// InnerXML serializes the element's content, text and children with
// their tails, without the element's own tags.
func (e *Element) InnerXML() string {
	var b strings.Builder
	b.WriteString(textEscaper.Replace(e.Text))
	for _, c := range e.children {
		c.writeXML(&b)
		b.WriteString(textEscaper.Replace(c.Tail))
	}
	return b.String()
}

func (e *Element) writeXML(b *strings.Builder) {
	b.WriteByte('<')
	b.WriteString(e.Tag)
	for _, a := range e.attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		b.WriteString(attrEscaper.Replace(a.Value))
		b.WriteByte('"')
	}
	if e.Text == "" && len(e.children) == 0 {
		b.WriteString(" />")
		return
	}
	b.WriteByte('>')
	b.WriteString(textEscaper.Replace(e.Text))
	for _, c := range e.children {
		c.writeXML(b)
		b.WriteString(textEscaper.Replace(c.Tail))
	}
	b.WriteString("</")
	b.WriteString(e.Tag)
	b.WriteByte('>')
}

// OuterHTML serializes the element and its subtree as HTML. Void
// elements are written without an end tag; everything else always gets
// one, even when empty.
func (e *Element) OuterHTML() string {
	var b strings.Builder
	e.writeHTML(&b)
	return b.String()
}

// InnerHTML serializes the element's content as HTML, without the
// element's own tags.
func (e *Element) InnerHTML() string {
	var b strings.Builder
	b.WriteString(textEscaper.Replace(e.Text))
	for _, c := range e.children {
		c.writeHTML(&b)
		b.WriteString(textEscaper.Replace(c.Tail))
	}
	return b.String()
}

func (e *Element) writeHTML(b *strings.Builder) {
	b.WriteByte('<')
	b.WriteString(e.Tag)
	for _, a := range e.attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		b.WriteString(attrEscaper.Replace(a.Value))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	if voidElements[strings.ToLower(e.Tag)] {
		return
	}
	b.WriteString(textEscaper.Replace(e.Text))
	for _, c := range e.children {
		c.writeHTML(b)
		b.WriteString(textEscaper.Replace(c.Tail))
	}
	b.WriteString("</")
	b.WriteString(e.Tag)
	b.WriteByte('>')
}

// SetInnerHTML replaces the element's content with the result of
// parsing markup as a fragment. Tag, attributes and tail are kept.
func (e *Element) SetInnerHTML(markup string) {
	w := parseFragmentWrapped(markup)
	e.Text = w.Text
	e.children = w.children
}
