package htmltree

import (
	"html"
	"strings"
)

//go:generate stringer -type=tokenizerState
type tokenizerState uint

const (
	dataState tokenizerState = iota
	tagOpenState
	endTagOpenState
	tagNameState
	beforeAttributeNameState
	attributeNameState
	afterAttributeNameState
	beforeAttributeValueState
	attributeValueDoubleQuotedState
	attributeValueSingleQuotedState
	attributeValueUnquotedState
	afterAttributeValueQuotedState
	selfClosingStartTagState
	markupDeclarationOpenState
	commentState
	commentEndDashState
	commentEndState
	bogusCommentState
	doctypeState
	rawTextState
	rawTextLessThanSignState
	rawTextEndTagOpenState
	rawTextEndTagNameState
)

// rawTextElements take their content verbatim until the matching end
// tag. Character references are not decoded inside them.
var rawTextElements = map[string]bool{
	"script": true,
	"style":  true,
}

type stateHandler func(r rune, eof bool) (bool, tokenizerState)

// tokenizer turns markup into a flat token stream. It never errors;
// anything unparseable as a tag degrades to character data or is
// skipped as a bogus comment.
type tokenizer struct {
	input            []rune
	pos              int
	currentState     tokenizerState
	tokens           []Token
	tokenBuilder     *TokenBuilder
	pending          strings.Builder
	pendingRaw       bool
	tempBuffer       strings.Builder
	lastStartTagName string
	tagStartPos      int
	done             bool
}

func newTokenizer(in string) *tokenizer {
	return &tokenizer{
		input:        []rune(in),
		currentState: dataState,
		tokenBuilder: newTokenBuilder(),
	}
}

// run pumps the state machine over the whole input and returns the
// token stream, ending with an end of file token.
func (t *tokenizer) run() []Token {
	for !t.done {
		var r rune
		eof := t.pos >= len(t.input)
		if !eof {
			r = t.input[t.pos]
			t.pos++
		}
		reconsume, next := t.stateToParser(t.currentState)(r, eof)
		if reconsume && !eof {
			t.pos--
		}
		t.currentState = next
	}
	return t.tokens
}

func (t *tokenizer) stateToParser(state tokenizerState) stateHandler {
	switch state {
	case dataState:
		return t.dataStateParser
	case tagOpenState:
		return t.tagOpenStateParser
	case endTagOpenState:
		return t.endTagOpenStateParser
	case tagNameState:
		return t.tagNameStateParser
	case beforeAttributeNameState:
		return t.beforeAttributeNameStateParser
	case attributeNameState:
		return t.attributeNameStateParser
	case afterAttributeNameState:
		return t.afterAttributeNameStateParser
	case beforeAttributeValueState:
		return t.beforeAttributeValueStateParser
	case attributeValueDoubleQuotedState:
		return t.attributeValueDoubleQuotedStateParser
	case attributeValueSingleQuotedState:
		return t.attributeValueSingleQuotedStateParser
	case attributeValueUnquotedState:
		return t.attributeValueUnquotedStateParser
	case afterAttributeValueQuotedState:
		return t.afterAttributeValueQuotedStateParser
	case selfClosingStartTagState:
		return t.selfClosingStartTagStateParser
	case markupDeclarationOpenState:
		return t.markupDeclarationOpenStateParser
	case commentState:
		return t.commentStateParser
	case commentEndDashState:
		return t.commentEndDashStateParser
	case commentEndState:
		return t.commentEndStateParser
	case bogusCommentState:
		return t.bogusCommentStateParser
	case doctypeState:
		return t.doctypeStateParser
	case rawTextState:
		return t.rawTextStateParser
	case rawTextLessThanSignState:
		return t.rawTextLessThanSignStateParser
	case rawTextEndTagOpenState:
		return t.rawTextEndTagOpenStateParser
	case rawTextEndTagNameState:
		return t.rawTextEndTagNameStateParser
	}
	return nil
}

func isASCIIAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isASCIIWhitespace(r rune) bool {
	switch r {
	case 0x09, 0x0A, 0x0C, 0x0D, 0x20:
		return true
	default:
		return false
	}
}

// flushText emits the buffered character run as one character token.
// Character references are decoded here unless the run came from a raw
// text element.
func (t *tokenizer) flushText() {
	if t.pending.Len() == 0 {
		return
	}
	data := t.pending.String()
	t.pending.Reset()
	if !t.pendingRaw {
		data = html.UnescapeString(data)
	}
	t.tokens = append(t.tokens, t.tokenBuilder.CharacterToken(data))
}

func (t *tokenizer) emit(tok Token) {
	t.flushText()
	t.tokens = append(t.tokens, tok)
}

// emitTagToken finishes the tag the builder holds and picks the next
// state. Start tags for raw text elements flip the tokenizer into raw
// text mode.
func (t *tokenizer) emitTagToken() tokenizerState {
	tok := t.tokenBuilder.TagToken()
	next := dataState
	if tok.TokenType == startTagToken {
		for i := range tok.Attributes {
			tok.Attributes[i].Value = html.UnescapeString(tok.Attributes[i].Value)
		}
		name := strings.ToLower(tok.TagName)
		t.lastStartTagName = name
		if rawTextElements[name] && !tok.SelfClosing {
			next = rawTextState
		}
	}
	t.emit(tok)
	t.pendingRaw = next == rawTextState
	return next
}

// eofInTag recovers from end of input in the middle of a tag: the
// consumed tag prefix is replayed as literal text.
func (t *tokenizer) eofInTag() {
	t.pending.WriteString(string(t.input[t.tagStartPos:]))
	t.emitEOF()
}

func (t *tokenizer) emitEOF() {
	t.emit(t.tokenBuilder.EndOfFileToken())
	t.done = true
}

func (t *tokenizer) peekEquals(r rune) bool {
	return t.pos < len(t.input) && t.input[t.pos] == r
}

// peekEqualsFold reports whether the input starting at the current
// position matches s case-insensitively, without consuming it.
func (t *tokenizer) peekEqualsFold(s string) bool {
	if t.pos+len(s) > len(t.input) {
		return false
	}
	return strings.EqualFold(string(t.input[t.pos:t.pos+len(s)]), s)
}

func (t *tokenizer) dataStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		t.emitEOF()
		return false, dataState
	}
	switch r {
	case '<':
		t.tagStartPos = t.pos - 1
		return false, tagOpenState
	default:
		t.pending.WriteRune(r)
		return false, dataState
	}
}

func (t *tokenizer) tagOpenStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		t.eofInTag()
		return false, dataState
	}
	switch {
	case r == '!':
		return false, markupDeclarationOpenState
	case r == '/':
		return false, endTagOpenState
	case isASCIIAlpha(r):
		t.tokenBuilder.Reset()
		t.tokenBuilder.curTagType = startTag
		return true, tagNameState
	case r == '?':
		t.tokenBuilder.Reset()
		return true, bogusCommentState
	default:
		// not a tag after all, "<" is literal text
		t.pending.WriteByte('<')
		return true, dataState
	}
}

func (t *tokenizer) endTagOpenStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		t.eofInTag()
		return false, dataState
	}
	switch {
	case isASCIIAlpha(r):
		t.tokenBuilder.Reset()
		t.tokenBuilder.curTagType = endTag
		return true, tagNameState
	case r == '>':
		return false, dataState
	default:
		t.tokenBuilder.Reset()
		return true, bogusCommentState
	}
}

func (t *tokenizer) tagNameStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		t.eofInTag()
		return false, dataState
	}
	switch {
	case isASCIIWhitespace(r):
		return false, beforeAttributeNameState
	case r == '/':
		return false, selfClosingStartTagState
	case r == '>':
		return false, t.emitTagToken()
	default:
		t.tokenBuilder.WriteName(r)
		return false, tagNameState
	}
}

func (t *tokenizer) beforeAttributeNameStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		t.eofInTag()
		return false, dataState
	}
	switch {
	case isASCIIWhitespace(r):
		return false, beforeAttributeNameState
	case r == '/':
		return false, selfClosingStartTagState
	case r == '>':
		return false, t.emitTagToken()
	default:
		return true, attributeNameState
	}
}

func (t *tokenizer) attributeNameStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		t.eofInTag()
		return false, dataState
	}
	switch {
	case isASCIIWhitespace(r):
		return false, afterAttributeNameState
	case r == '/':
		t.tokenBuilder.CommitAttribute()
		return false, selfClosingStartTagState
	case r == '=':
		return false, beforeAttributeValueState
	case r == '>':
		t.tokenBuilder.CommitAttribute()
		return false, t.emitTagToken()
	default:
		t.tokenBuilder.WriteAttributeName(r)
		return false, attributeNameState
	}
}

func (t *tokenizer) afterAttributeNameStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		t.eofInTag()
		return false, dataState
	}
	switch {
	case isASCIIWhitespace(r):
		return false, afterAttributeNameState
	case r == '/':
		t.tokenBuilder.CommitAttribute()
		return false, selfClosingStartTagState
	case r == '=':
		return false, beforeAttributeValueState
	case r == '>':
		t.tokenBuilder.CommitAttribute()
		return false, t.emitTagToken()
	default:
		t.tokenBuilder.CommitAttribute()
		return true, attributeNameState
	}
}

func (t *tokenizer) beforeAttributeValueStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		t.eofInTag()
		return false, dataState
	}
	switch {
	case isASCIIWhitespace(r):
		return false, beforeAttributeValueState
	case r == '"':
		t.tokenBuilder.MarkAttributeHasValue()
		return false, attributeValueDoubleQuotedState
	case r == '\'':
		t.tokenBuilder.MarkAttributeHasValue()
		return false, attributeValueSingleQuotedState
	case r == '>':
		t.tokenBuilder.MarkAttributeHasValue()
		t.tokenBuilder.CommitAttribute()
		return false, t.emitTagToken()
	default:
		t.tokenBuilder.MarkAttributeHasValue()
		return true, attributeValueUnquotedState
	}
}

func (t *tokenizer) attributeValueDoubleQuotedStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		t.eofInTag()
		return false, dataState
	}
	switch r {
	case '"':
		t.tokenBuilder.CommitAttribute()
		return false, afterAttributeValueQuotedState
	default:
		t.tokenBuilder.WriteAttributeValue(r)
		return false, attributeValueDoubleQuotedState
	}
}

func (t *tokenizer) attributeValueSingleQuotedStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		t.eofInTag()
		return false, dataState
	}
	switch r {
	case '\'':
		t.tokenBuilder.CommitAttribute()
		return false, afterAttributeValueQuotedState
	default:
		t.tokenBuilder.WriteAttributeValue(r)
		return false, attributeValueSingleQuotedState
	}
}

func (t *tokenizer) attributeValueUnquotedStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		t.eofInTag()
		return false, dataState
	}
	switch {
	case isASCIIWhitespace(r):
		t.tokenBuilder.CommitAttribute()
		return false, beforeAttributeNameState
	case r == '>':
		t.tokenBuilder.CommitAttribute()
		return false, t.emitTagToken()
	default:
		t.tokenBuilder.WriteAttributeValue(r)
		return false, attributeValueUnquotedState
	}
}

func (t *tokenizer) afterAttributeValueQuotedStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		t.eofInTag()
		return false, dataState
	}
	switch {
	case isASCIIWhitespace(r):
		return false, beforeAttributeNameState
	case r == '/':
		return false, selfClosingStartTagState
	case r == '>':
		return false, t.emitTagToken()
	default:
		return true, beforeAttributeNameState
	}
}

func (t *tokenizer) selfClosingStartTagStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		t.eofInTag()
		return false, dataState
	}
	switch r {
	case '>':
		t.tokenBuilder.EnableSelfClosing()
		return false, t.emitTagToken()
	default:
		return true, beforeAttributeNameState
	}
}

func (t *tokenizer) markupDeclarationOpenStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		t.eofInTag()
		return false, dataState
	}
	if r == '-' && t.peekEquals('-') {
		t.pos++
		t.tokenBuilder.Reset()
		return false, commentState
	}
	if (r == 'd' || r == 'D') && t.peekEqualsFold("OCTYPE") {
		t.pos += 6
		t.tokenBuilder.Reset()
		return false, doctypeState
	}
	t.tokenBuilder.Reset()
	return true, bogusCommentState
}

func (t *tokenizer) commentStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		t.emit(t.tokenBuilder.CommentToken())
		t.emitEOF()
		return false, dataState
	}
	switch r {
	case '-':
		return false, commentEndDashState
	default:
		t.tokenBuilder.WriteData(r)
		return false, commentState
	}
}

func (t *tokenizer) commentEndDashStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		t.emit(t.tokenBuilder.CommentToken())
		t.emitEOF()
		return false, dataState
	}
	switch r {
	case '-':
		return false, commentEndState
	default:
		t.tokenBuilder.WriteData('-')
		return true, commentState
	}
}

func (t *tokenizer) commentEndStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		t.emit(t.tokenBuilder.CommentToken())
		t.emitEOF()
		return false, dataState
	}
	switch r {
	case '>':
		t.emit(t.tokenBuilder.CommentToken())
		return false, dataState
	case '-':
		t.tokenBuilder.WriteData('-')
		return false, commentEndState
	default:
		t.tokenBuilder.WriteData('-')
		t.tokenBuilder.WriteData('-')
		return true, commentState
	}
}

func (t *tokenizer) bogusCommentStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		t.emit(t.tokenBuilder.CommentToken())
		t.emitEOF()
		return false, dataState
	}
	switch r {
	case '>':
		t.emit(t.tokenBuilder.CommentToken())
		return false, dataState
	default:
		t.tokenBuilder.WriteData(r)
		return false, bogusCommentState
	}
}

func (t *tokenizer) doctypeStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		t.emit(t.tokenBuilder.DoctypeToken())
		t.emitEOF()
		return false, dataState
	}
	switch r {
	case '>':
		t.emit(t.tokenBuilder.DoctypeToken())
		return false, dataState
	default:
		t.tokenBuilder.WriteData(r)
		return false, doctypeState
	}
}

func (t *tokenizer) rawTextStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		t.emitEOF()
		t.pendingRaw = false
		return false, dataState
	}
	switch r {
	case '<':
		return false, rawTextLessThanSignState
	default:
		t.pending.WriteRune(r)
		return false, rawTextState
	}
}

func (t *tokenizer) rawTextLessThanSignStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		t.pending.WriteByte('<')
		t.emitEOF()
		t.pendingRaw = false
		return false, dataState
	}
	switch r {
	case '/':
		t.tempBuffer.Reset()
		return false, rawTextEndTagOpenState
	default:
		t.pending.WriteByte('<')
		return true, rawTextState
	}
}

func (t *tokenizer) rawTextEndTagOpenStateParser(r rune, eof bool) (bool, tokenizerState) {
	if eof {
		t.pending.WriteString("</")
		t.emitEOF()
		t.pendingRaw = false
		return false, dataState
	}
	if isASCIIAlpha(r) {
		t.tokenBuilder.Reset()
		t.tokenBuilder.curTagType = endTag
		return true, rawTextEndTagNameState
	}
	t.pending.WriteString("</")
	return true, rawTextState
}

func (t *tokenizer) rawTextEndTagNameStateParser(r rune, eof bool) (bool, tokenizerState) {
	flushBogusEndTag := func() {
		t.pending.WriteString("</")
		t.pending.WriteString(t.tempBuffer.String())
	}
	if eof {
		flushBogusEndTag()
		t.emitEOF()
		t.pendingRaw = false
		return false, dataState
	}
	switch {
	case isASCIIAlpha(r):
		t.tokenBuilder.WriteName(r)
		t.tempBuffer.WriteRune(r)
		return false, rawTextEndTagNameState
	case isASCIIWhitespace(r) && t.isApprEndTagToken():
		return false, beforeAttributeNameState
	case r == '/' && t.isApprEndTagToken():
		return false, selfClosingStartTagState
	case r == '>' && t.isApprEndTagToken():
		return false, t.emitTagToken()
	default:
		flushBogusEndTag()
		return true, rawTextState
	}
}

// isApprEndTagToken reports whether the end tag being built matches the
// raw text element that switched the tokenizer into raw text mode.
func (t *tokenizer) isApprEndTagToken() bool {
	return strings.EqualFold(t.tokenBuilder.name.String(), t.lastStartTagName)
}
