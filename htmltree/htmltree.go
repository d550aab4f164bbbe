package htmltree

import (
	"strings"

	"github.com/minimech/minimech/charset"
)

// ParseDocument parses markup as a full document. The returned root is
// always an html element; an explicit html tag in the input merges its
// attributes into it. Parsing cannot fail.
func ParseDocument(markup string) *Element {
	markup = strings.TrimPrefix(markup, "\uFEFF")
	c := newTreeConstructor()
	for _, tok := range newTokenizer(markup).run() {
		c.processToken(tok)
	}
	return c.root
}

// ParseFragment parses markup as a fragment. When the content is a
// single element with nothing but whitespace around it, that element
// is returned directly; otherwise a synthetic html wrapper holds the
// pieces.
func ParseFragment(markup string) *Element {
	w := parseFragmentWrapped(markup)
	if len(w.children) == 1 && len(w.attrs) == 0 &&
		isWhitespaceOnly(w.Text) && isWhitespaceOnly(w.children[0].Tail) {
		el := w.children[0]
		el.Tail = ""
		return el
	}
	return w
}

func parseFragmentWrapped(markup string) *Element {
	markup = strings.TrimPrefix(markup, "\uFEFF")
	c := newTreeConstructor()
	for _, tok := range newTokenizer(markup).run() {
		c.processToken(tok)
	}
	return c.root
}

// ParseBytes decodes raw bytes with the detected character set and
// parses the result as a document. declaredCharset is the encoding
// announced out of band, usually from a Content-Type header, and may
// be empty.
func ParseBytes(data []byte, declaredCharset string) *Element {
	name := charset.Detect(data, declaredCharset)
	return ParseDocument(charset.Decode(data, name))
}
