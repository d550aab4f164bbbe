package htmltree

import "strings"

type tokenType uint

const (
	characterToken tokenType = iota
	startTagToken
	endTagToken
	commentToken
	doctypeToken
	endOfFileToken
)

type tagType uint

const (
	startTag tagType = iota
	endTag
)

// Token is a concrete token that is ready to be handed to the tree
// constructor.
type Token struct {
	TokenType   tokenType
	TagName     string
	Attributes  []Attr
	SelfClosing bool
	Data        string
}

// Attr returns the value of the named token attribute and whether it
// is present.
func (t Token) Attr(name string) (string, bool) {
	for _, a := range t.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// TokenBuilder accumulates the pieces of the token currently being
// tokenized.
type TokenBuilder struct {
	attributes     []Attr
	attributeKey   strings.Builder
	attributeValue strings.Builder
	attrHasValue   bool
	name           strings.Builder
	data           strings.Builder
	selfClosing    bool
	curTagType     tagType
}

func newTokenBuilder() *TokenBuilder {
	return &TokenBuilder{}
}

// Reset clears all the builders and attributes to start a fresh token.
func (t *TokenBuilder) Reset() {
	t.attributes = t.attributes[:0]
	t.attributeKey.Reset()
	t.attributeValue.Reset()
	t.attrHasValue = false
	t.name.Reset()
	t.data.Reset()
	t.selfClosing = false
}

// EnableSelfClosing changes the self-closing flag to "set".
func (t *TokenBuilder) EnableSelfClosing() {
	t.selfClosing = true
}

// WriteName appends a rune to the current tag name.
func (t *TokenBuilder) WriteName(r rune) {
	t.name.WriteRune(r)
}

// WriteData appends a rune to the current data section.
func (t *TokenBuilder) WriteData(r rune) {
	t.data.WriteRune(r)
}

// WriteAttributeName appends a rune to the current attribute's name.
func (t *TokenBuilder) WriteAttributeName(r rune) {
	t.attributeKey.WriteRune(r)
}

// WriteAttributeValue appends a rune to the current attribute's value.
func (t *TokenBuilder) WriteAttributeValue(r rune) {
	t.attributeValue.WriteRune(r)
	t.attrHasValue = true
}

// MarkAttributeHasValue records that a "=" was seen so that an empty
// quoted value is not mistaken for a bare attribute.
func (t *TokenBuilder) MarkAttributeHasValue() {
	t.attrHasValue = true
}

// CommitAttribute ends the current key/value pair. A bare attribute
// gets its own name as value. A repeated name keeps its position in
// the attribute order but takes the newest value.
func (t *TokenBuilder) CommitAttribute() {
	k := t.attributeKey.String()
	v := t.attributeValue.String()
	t.attributeKey.Reset()
	t.attributeValue.Reset()
	hasValue := t.attrHasValue
	t.attrHasValue = false
	if k == "" {
		return
	}
	if !hasValue {
		v = k
	}
	for i := range t.attributes {
		if t.attributes[i].Name == k {
			t.attributes[i].Value = v
			return
		}
	}
	t.attributes = append(t.attributes, Attr{Name: k, Value: v})
}

// StartTagToken creates a start tag token from the builder contents.
func (t *TokenBuilder) StartTagToken() Token {
	attrs := make([]Attr, len(t.attributes))
	copy(attrs, t.attributes)
	return Token{
		TokenType:   startTagToken,
		TagName:     t.name.String(),
		Attributes:  attrs,
		SelfClosing: t.selfClosing,
	}
}

// EndTagToken creates an end tag token from the builder contents.
// Attributes and the self-closing flag are dropped; they mean nothing
// on an end tag.
func (t *TokenBuilder) EndTagToken() Token {
	return Token{
		TokenType: endTagToken,
		TagName:   t.name.String(),
	}
}

// TagToken creates a start or end tag token depending on what kind of
// tag the builder saw being opened.
func (t *TokenBuilder) TagToken() Token {
	if t.curTagType == endTag {
		return t.EndTagToken()
	}
	return t.StartTagToken()
}

// CharacterToken creates a character token carrying the given data.
func (t *TokenBuilder) CharacterToken(data string) Token {
	return Token{
		TokenType: characterToken,
		Data:      data,
	}
}

// CommentToken creates a comment token from the builder contents.
func (t *TokenBuilder) CommentToken() Token {
	return Token{
		TokenType: commentToken,
		Data:      t.data.String(),
	}
}

// DoctypeToken creates a doctype token. The declaration body is kept
// only for diagnostics.
func (t *TokenBuilder) DoctypeToken() Token {
	return Token{
		TokenType: doctypeToken,
		Data:      t.data.String(),
	}
}

// EndOfFileToken creates an end of file token.
func (t *TokenBuilder) EndOfFileToken() Token {
	return Token{TokenType: endOfFileToken}
}
