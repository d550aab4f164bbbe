package htmltree

import "strings"

// formattingElements participate in the active formatting list and the
// adoption agency algorithm.
var formattingElements = map[string]bool{
	"a": true, "b": true, "big": true, "code": true, "em": true,
	"font": true, "i": true, "nobr": true, "s": true, "small": true,
	"strike": true, "strong": true, "tt": true, "u": true,
}

// specialElements is the special category: end tags never close
// through them, and the adoption agency uses them as furthest block
// candidates.
var specialElements = map[string]bool{
	"address": true, "applet": true, "area": true, "article": true,
	"aside": true, "base": true, "basefont": true, "bgsound": true,
	"blockquote": true, "body": true, "br": true, "button": true,
	"caption": true, "center": true, "col": true, "colgroup": true,
	"dd": true, "details": true, "dir": true, "div": true, "dl": true,
	"dt": true, "embed": true, "fieldset": true, "figcaption": true,
	"figure": true, "footer": true, "form": true, "frame": true,
	"frameset": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "head": true, "header": true,
	"hgroup": true, "hr": true, "html": true, "iframe": true,
	"img": true, "input": true, "keygen": true, "li": true,
	"link": true, "listing": true, "main": true, "marquee": true,
	"menu": true, "meta": true, "nav": true, "noembed": true,
	"noframes": true, "noscript": true, "object": true, "ol": true,
	"p": true, "param": true, "plaintext": true, "pre": true,
	"script": true, "section": true, "select": true, "source": true,
	"style": true, "summary": true, "table": true, "tbody": true,
	"td": true, "template": true, "textarea": true, "tfoot": true,
	"th": true, "thead": true, "title": true, "tr": true, "track": true,
	"ul": true, "wbr": true, "xmp": true,
}

// impliedEndTagElements may be closed implicitly while an end tag walks
// down the stack looking for its match.
var impliedEndTagElements = map[string]bool{
	"dd": true, "dt": true, "li": true, "optgroup": true,
	"option": true, "p": true, "rb": true, "rp": true, "rt": true,
	"rtc": true, "caption": true, "colgroup": true, "tbody": true,
	"td": true, "tfoot": true, "th": true, "thead": true, "tr": true,
}

// autocloseTags maps a start tag to the set of open tags it closes
// first, repeatedly, while the current node is in the set.
var autocloseTags = map[string]map[string]bool{
	"li":       {"li": true},
	"dd":       {"dd": true, "dt": true},
	"dt":       {"dd": true, "dt": true},
	"option":   {"option": true},
	"optgroup": {"option": true, "optgroup": true},
	"tr":       {"td": true, "th": true, "tr": true},
	"td":       {"td": true, "th": true},
	"th":       {"td": true, "th": true},
	"tbody":    {"td": true, "th": true, "tr": true, "tbody": true, "tfoot": true, "thead": true, "colgroup": true},
	"tfoot":    {"td": true, "th": true, "tr": true, "tbody": true, "tfoot": true, "thead": true, "colgroup": true},
	"thead":    {"td": true, "th": true, "tr": true, "tbody": true, "tfoot": true, "thead": true, "colgroup": true},
	"colgroup": {"colgroup": true},
}

// pCloserTags close an open paragraph before they are inserted. Note
// that table is deliberately absent: a table opened inside a paragraph
// stays inside it.
var pCloserTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"center": true, "details": true, "dialog": true, "dir": true,
	"div": true, "dl": true, "dd": true, "dt": true, "fieldset": true,
	"figcaption": true, "figure": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "header": true, "hgroup": true, "hr": true, "li": true,
	"listing": true, "main": true, "menu": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true,
	"summary": true, "ul": true, "xmp": true,
}

// defaultScopeStops bound "has an element in scope" checks.
var defaultScopeStops = map[string]bool{
	"applet": true, "caption": true, "html": true, "marquee": true,
	"object": true, "table": true, "td": true, "template": true,
	"th": true,
}

// buttonScopeStops additionally include button, for paragraph scope
// checks.
var buttonScopeStops = map[string]bool{
	"applet": true, "button": true, "caption": true, "html": true,
	"marquee": true, "object": true, "table": true, "td": true,
	"template": true, "th": true,
}

// fosterContexts are the insertion points where stray content gets
// relocated in front of the nearest open table.
var fosterContexts = map[string]bool{
	"table": true, "tbody": true, "tfoot": true, "thead": true, "tr": true,
}

// tableAccepts reports whether a child tag may be inserted directly
// into the given table-layer element.
func tableAccepts(parent, child string) bool {
	switch parent {
	case "table":
		switch child {
		case "caption", "colgroup", "col", "thead", "tbody", "tfoot",
			"tr", "td", "th", "form", "script", "style", "table":
			return true
		}
	case "tbody", "tfoot", "thead":
		switch child {
		case "tr", "td", "th", "script", "style":
			return true
		}
	case "tr":
		switch child {
		case "td", "th", "script", "style":
			return true
		}
	}
	return false
}

// treeConstructor folds the token stream into an element tree rooted
// at a synthetic html element. It implements a permissive subset of
// browser tree construction: misnested formatting tags go through the
// adoption agency, stray table content is foster parented, and unknown
// or unmatched tags degrade without error.
type treeConstructor struct {
	root  *Element
	stack []*Element
	af    []*Element

	sawDoctypeOrHTML bool
	afterRootClosed  bool
}

func newTreeConstructor() *treeConstructor {
	root := NewElement("html")
	return &treeConstructor{
		root:  root,
		stack: []*Element{root},
	}
}

func (c *treeConstructor) current() *Element {
	return c.stack[len(c.stack)-1]
}

func (c *treeConstructor) push(el *Element) {
	c.stack = append(c.stack, el)
}

func (c *treeConstructor) pop() {
	c.stack = c.stack[:len(c.stack)-1]
}

func (c *treeConstructor) stackIndex(el *Element) int {
	for i, s := range c.stack {
		if s == el {
			return i
		}
	}
	return -1
}

func (c *treeConstructor) afIndex(el *Element) int {
	for i, a := range c.af {
		if a == el {
			return i
		}
	}
	return -1
}

func (c *treeConstructor) removeAF(i int) {
	c.af = append(c.af[:i], c.af[i+1:]...)
}

func lowerTag(el *Element) string {
	return strings.ToLower(el.Tag)
}

func isWhitespaceOnly(s string) bool {
	return strings.TrimSpace(s) == ""
}

// processToken dispatches one token into the tree.
func (c *treeConstructor) processToken(tok Token) {
	switch tok.TokenType {
	case characterToken:
		c.insertText(tok.Data)
	case startTagToken:
		c.insertElement(tok)
	case endTagToken:
		c.processEndTag(tok)
	case doctypeToken:
		c.sawDoctypeOrHTML = true
	case commentToken:
		// dropped
	case endOfFileToken:
		c.stack = c.stack[:1]
	}
}

func (c *treeConstructor) insertText(s string) {
	if s == "" {
		return
	}
	ws := isWhitespaceOnly(s)
	if len(c.stack) == 1 && ws {
		if c.afterRootClosed {
			return
		}
		if c.sawDoctypeOrHTML && c.root.Text == "" && len(c.root.children) == 0 {
			return
		}
	}
	c.reconstructActiveFormatting()
	cur := c.current()
	if fosterContexts[lowerTag(cur)] && !ws {
		parent, idx := c.fosterLocation()
		if idx > 0 {
			parent.children[idx-1].Tail += s
		} else {
			parent.Text += s
		}
		return
	}
	if n := len(cur.children); n > 0 {
		cur.children[n-1].Tail += s
	} else {
		cur.Text += s
	}
}

func (c *treeConstructor) insertElement(tok Token) {
	lower := strings.ToLower(tok.TagName)
	if lower == "html" {
		// a repeated html tag merges its attributes onto the root,
		// later duplicates overwriting earlier values
		for _, a := range tok.Attributes {
			c.root.SetAttr(a.Name, a.Value)
		}
		c.sawDoctypeOrHTML = true
		return
	}
	if closes, ok := autocloseTags[lower]; ok {
		for len(c.stack) > 1 && closes[lowerTag(c.current())] {
			c.pop()
		}
	}
	if pCloserTags[lower] {
		c.closePInButtonScope()
	}
	if !specialElements[lower] {
		c.reconstructActiveFormatting()
	}
	el := &Element{Tag: tok.TagName}
	el.attrs = append(el.attrs, tok.Attributes...)
	c.insertNode(el, lower)
	if !voidElements[lower] && !tok.SelfClosing {
		c.push(el)
		if formattingElements[lower] {
			c.af = append(c.af, el)
		}
	}
}

// insertNode links el into the tree at the current insertion point,
// foster parenting it out of table layers that cannot hold it.
func (c *treeConstructor) insertNode(el *Element, lower string) {
	cur := c.current()
	if fosterContexts[lowerTag(cur)] && !tableAccepts(lowerTag(cur), lower) {
		parent, idx := c.fosterLocation()
		if err := parent.InsertChild(idx, el); err != nil {
			parent.Append(el)
		}
		return
	}
	cur.Append(el)
}

// fosterLocation finds the spot just before the nearest open table.
func (c *treeConstructor) fosterLocation() (*Element, int) {
	for i := len(c.stack) - 1; i >= 1; i-- {
		if lowerTag(c.stack[i]) == "table" {
			parent := c.stack[i-1]
			if idx := parent.childIndex(c.stack[i]); idx >= 0 {
				return parent, idx
			}
			return parent, len(parent.children)
		}
	}
	cur := c.current()
	return cur, len(cur.children)
}

func (c *treeConstructor) closePInButtonScope() {
	for i := len(c.stack) - 1; i >= 1; i-- {
		lower := lowerTag(c.stack[i])
		if lower == "p" {
			c.stack = c.stack[:i]
			return
		}
		if buttonScopeStops[lower] {
			return
		}
	}
}

func (c *treeConstructor) hasPInButtonScope() bool {
	for i := len(c.stack) - 1; i >= 1; i-- {
		lower := lowerTag(c.stack[i])
		if lower == "p" {
			return true
		}
		if buttonScopeStops[lower] {
			return false
		}
	}
	return false
}

// reconstructActiveFormatting reopens formatting elements that were
// closed by a block boundary but never by their own end tag. Clones
// are created lazily, only when content shows up that they should
// wrap.
func (c *treeConstructor) reconstructActiveFormatting() {
	if len(c.af) == 0 {
		return
	}
	if c.stackIndex(c.af[len(c.af)-1]) != -1 {
		return
	}
	i := len(c.af) - 1
	for i > 0 && c.stackIndex(c.af[i-1]) == -1 {
		i--
	}
	for ; i < len(c.af); i++ {
		clone := c.af[i].cloneShallow()
		c.insertNode(clone, lowerTag(clone))
		c.push(clone)
		c.af[i] = clone
	}
}

func (c *treeConstructor) processEndTag(tok Token) {
	lower := strings.ToLower(tok.TagName)
	switch {
	case lower == "html":
		c.stack = c.stack[:1]
		c.trimRootTrailingWhitespace()
		c.afterRootClosed = true
		c.sawDoctypeOrHTML = true
	case lower == "p" && !c.hasPInButtonScope():
		// a stray paragraph end tag conjures an empty paragraph
		el := NewElement(tok.TagName)
		c.insertNode(el, lower)
	case formattingElements[lower]:
		c.adoptionAgency(tok)
	case lower == "table":
		for i := len(c.stack) - 1; i >= 1; i-- {
			if lowerTag(c.stack[i]) == "table" {
				c.stack = c.stack[:i]
				return
			}
		}
	default:
		c.anyOtherEndTag(tok)
	}
}

func (c *treeConstructor) anyOtherEndTag(tok Token) {
	lower := strings.ToLower(tok.TagName)
	for i := len(c.stack) - 1; i >= 1; i-- {
		elLower := lowerTag(c.stack[i])
		if elLower == lower {
			c.stack = c.stack[:i]
			return
		}
		if elLower == "table" {
			return
		}
		if specialElements[elLower] && !impliedEndTagElements[elLower] {
			return
		}
	}
}

func (c *treeConstructor) trimRootTrailingWhitespace() {
	if n := len(c.root.children); n > 0 {
		last := c.root.children[n-1]
		if isWhitespaceOnly(last.Tail) {
			last.Tail = ""
		}
	} else if isWhitespaceOnly(c.root.Text) {
		c.root.Text = ""
	}
}

// inScope reports whether el sits inside the default scope, looking
// from the top of the stack down to the nearest scope boundary.
func (c *treeConstructor) inScope(el *Element) bool {
	for i := len(c.stack) - 1; i >= 0; i-- {
		if c.stack[i] == el {
			return true
		}
		if defaultScopeStops[lowerTag(c.stack[i])] {
			return false
		}
	}
	return false
}

// detach unlinks el from whatever parent currently holds it.
func (c *treeConstructor) detach(el *Element) {
	if parent := findParent(c.root, el); parent != nil {
		parent.removeChildElement(el)
	}
}

func findParent(node, target *Element) *Element {
	for _, child := range node.children {
		if child == target {
			return node
		}
		if p := findParent(child, target); p != nil {
			return p
		}
	}
	return nil
}

// adoptionAgency untangles misnested formatting elements, splitting
// and cloning them so that every piece of content keeps the formatting
// that was open where it appeared.
func (c *treeConstructor) adoptionAgency(tok Token) {
	subject := strings.ToLower(tok.TagName)
	if cur := c.current(); lowerTag(cur) == subject && c.afIndex(cur) == -1 {
		c.pop()
		return
	}
	for outer := 0; outer < 8; outer++ {
		// the most recent formatting element with the right name
		feAF := -1
		for i := len(c.af) - 1; i >= 0; i-- {
			if lowerTag(c.af[i]) == subject {
				feAF = i
				break
			}
		}
		if feAF == -1 {
			c.anyOtherEndTag(tok)
			return
		}
		fe := c.af[feAF]
		feStack := c.stackIndex(fe)
		if feStack == -1 {
			c.removeAF(feAF)
			return
		}
		if !c.inScope(fe) {
			return
		}

		fbStack := -1
		for i := feStack + 1; i < len(c.stack); i++ {
			if specialElements[lowerTag(c.stack[i])] {
				fbStack = i
				break
			}
		}
		if fbStack == -1 {
			// no block holds content hostage, plain close
			c.stack = c.stack[:feStack]
			c.removeAF(feAF)
			return
		}

		commonAncestor := c.stack[feStack-1]
		bookmark := feAF
		fb := c.stack[fbStack]
		lastNode := fb
		nodeIdx := fbStack
		for inner := 1; ; inner++ {
			nodeIdx--
			node := c.stack[nodeIdx]
			if node == fe {
				break
			}
			nodeAF := c.afIndex(node)
			if inner > 3 && nodeAF != -1 {
				c.removeAF(nodeAF)
				if nodeAF < bookmark {
					bookmark--
				}
				nodeAF = -1
			}
			if nodeAF == -1 {
				c.stack = append(c.stack[:nodeIdx], c.stack[nodeIdx+1:]...)
				continue
			}
			clone := node.cloneShallow()
			c.af[nodeAF] = clone
			c.stack[nodeIdx] = clone
			node = clone
			if lastNode == fb {
				bookmark = nodeAF + 1
			}
			c.detach(lastNode)
			node.Append(lastNode)
			lastNode = node
		}

		c.detach(lastNode)
		commonAncestor.Append(lastNode)

		clone := fe.cloneShallow()
		clone.Text = fb.Text
		clone.children = fb.children
		fb.Text = ""
		fb.children = []*Element{clone}

		feAF = c.afIndex(fe)
		c.removeAF(feAF)
		if feAF < bookmark {
			bookmark--
		}
		if bookmark > len(c.af) {
			bookmark = len(c.af)
		}
		c.af = append(c.af, nil)
		copy(c.af[bookmark+1:], c.af[bookmark:])
		c.af[bookmark] = clone

		feStack = c.stackIndex(fe)
		c.stack = append(c.stack[:feStack], c.stack[feStack+1:]...)
		fbStack = c.stackIndex(fb)
		c.stack = append(c.stack, nil)
		copy(c.stack[fbStack+2:], c.stack[fbStack+1:])
		c.stack[fbStack+1] = clone
	}
}
