// Package css compiles and evaluates a small CSS selector dialect
// against htmltree documents: type and universal selectors, class and
// id selectors, a :contains() pseudo-class, and descendant and child
// combinators.
package css

import (
	"fmt"
	"iter"
	"strings"

	"github.com/minimech/minimech/htmltree"
)

// InvalidSelectorError reports a selector the compiler cannot handle.
// Anything outside the supported dialect fails at compile time rather
// than silently matching nothing.
type InvalidSelectorError struct {
	Selector string
	Reason   string
}

func (e *InvalidSelectorError) Error() string {
	return fmt.Sprintf("css: invalid selector %q: %s", e.Selector, e.Reason)
}

// compound is one simple-selector group, plus the combinator that ties
// it to the compound before it.
type compound struct {
	tag      string // "" or "*" matches any tag
	ids      []string
	classes  []string
	contains []string
	child    bool // direct child of the previous compound
}

// Selector is a compiled selector ready for matching.
type Selector struct {
	raw   string
	parts []compound
}

// String returns the source text the selector was compiled from.
func (s *Selector) String() string {
	return s.raw
}

// Compile parses a selector. The empty selector is valid and matches
// nothing.
func Compile(sel string) (*Selector, error) {
	p := &parser{input: []rune(sel), raw: sel}
	parts, err := p.parse()
	if err != nil {
		return nil, err
	}
	return &Selector{raw: sel, parts: parts}, nil
}

// MustCompile is Compile for selectors known at program start; it
// panics on an invalid one.
func MustCompile(sel string) *Selector {
	s, err := Compile(sel)
	if err != nil {
		panic(err)
	}
	return s
}

type parser struct {
	input []rune
	pos   int
	raw   string
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &InvalidSelectorError{Selector: p.raw, Reason: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && isSpace(p.input[p.pos]) {
		p.pos++
	}
}

func (p *parser) parse() ([]compound, error) {
	var parts []compound
	p.skipSpace()
	for p.pos < len(p.input) {
		child := false
		if p.input[p.pos] == '>' {
			if len(parts) == 0 {
				return nil, p.errorf("combinator without left-hand side")
			}
			child = true
			p.pos++
			p.skipSpace()
			if p.pos >= len(p.input) {
				return nil, p.errorf("dangling combinator")
			}
		}
		c, err := p.parseCompound()
		if err != nil {
			return nil, err
		}
		c.child = child
		parts = append(parts, c)
		p.skipSpace()
	}
	return parts, nil
}

func (p *parser) parseCompound() (compound, error) {
	var c compound
	first := true
	for p.pos < len(p.input) {
		r := p.input[p.pos]
		switch {
		case isSpace(r) || r == '>':
			if first {
				return c, p.errorf("empty compound selector")
			}
			return c, nil
		case r == '*':
			if !first {
				return c, p.errorf("misplaced universal selector")
			}
			c.tag = "*"
			p.pos++
		case r == '.':
			p.pos++
			name := p.ident()
			if name == "" {
				return c, p.errorf("expected class name after '.'")
			}
			c.classes = append(c.classes, name)
		case r == '#':
			p.pos++
			name := p.ident()
			if name == "" {
				return c, p.errorf("expected id after '#'")
			}
			c.ids = append(c.ids, name)
		case r == ':':
			p.pos++
			name := p.ident()
			if !strings.EqualFold(name, "contains") {
				if name == "" {
					return c, p.errorf("expected pseudo-class name after ':'")
				}
				return c, p.errorf("unsupported pseudo-class :%s", name)
			}
			arg, err := p.parenArgument()
			if err != nil {
				return c, err
			}
			c.contains = append(c.contains, arg)
		case isIdentRune(r):
			if !first {
				return c, p.errorf("unexpected %q in selector", string(r))
			}
			c.tag = p.ident()
		default:
			return c, p.errorf("unexpected %q in selector", string(r))
		}
		first = false
	}
	return c, nil
}

func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.input) && isIdentRune(p.input[p.pos]) {
		p.pos++
	}
	return string(p.input[start:p.pos])
}

// parenArgument reads a parenthesized argument, stripping one matching
// pair of surrounding quotes if present. Whitespace inside the
// parentheses is preserved.
func (p *parser) parenArgument() (string, error) {
	if p.pos >= len(p.input) || p.input[p.pos] != '(' {
		return "", p.errorf("expected '(' after :contains")
	}
	p.pos++
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] != ')' {
		p.pos++
	}
	if p.pos >= len(p.input) {
		return "", p.errorf("unterminated :contains argument")
	}
	arg := string(p.input[start:p.pos])
	p.pos++
	if len(arg) >= 2 {
		if (arg[0] == '"' && arg[len(arg)-1] == '"') ||
			(arg[0] == '\'' && arg[len(arg)-1] == '\'') {
			arg = arg[1 : len(arg)-1]
		}
	}
	return arg, nil
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\f', '\r':
		return true
	default:
		return false
	}
}

func isIdentRune(r rune) bool {
	return r == '-' || r == '_' || r == '·' ||
		(r >= '0' && r <= '9') ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		r > 0x7f
}

func (c *compound) matches(e *htmltree.Element) bool {
	if c.tag != "" && c.tag != "*" && e.Tag != c.tag {
		return false
	}
	for _, id := range c.ids {
		if e.Attr("id") != id {
			return false
		}
	}
	if len(c.classes) > 0 {
		have := strings.Fields(e.Attr("class"))
		for _, want := range c.classes {
			found := false
			for _, h := range have {
				if h == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	for _, want := range c.contains {
		if !strings.Contains(e.TextContent(), want) {
			return false
		}
	}
	return true
}

// MatchAll yields, lazily and in document order, every strict
// descendant of root the selector matches. Combinator context never
// reaches above root: root itself can neither match nor anchor a
// left-hand compound. The sequence may be restarted.
func (s *Selector) MatchAll(root *htmltree.Element) iter.Seq[*htmltree.Element] {
	return func(yield func(*htmltree.Element) bool) {
		n := len(s.parts)
		if n == 0 {
			return
		}
		none := make([]bool, n)
		var walk func(e *htmltree.Element, anc, par []bool) bool
		walk = func(e *htmltree.Element, anc, par []bool) bool {
			cur := make([]bool, n)
			for k := range s.parts {
				ok := s.parts[k].matches(e)
				if ok && k > 0 {
					if s.parts[k].child {
						ok = par[k-1]
					} else {
						ok = anc[k-1]
					}
				}
				cur[k] = ok
			}
			if cur[n-1] && !yield(e) {
				return false
			}
			childAnc := anc
			for k := range cur {
				if cur[k] && !anc[k] {
					merged := make([]bool, n)
					copy(merged, anc)
					for j := range cur {
						merged[j] = merged[j] || cur[j]
					}
					childAnc = merged
					break
				}
			}
			for _, c := range e.Children() {
				if !walk(c, childAnc, cur) {
					return false
				}
			}
			return true
		}
		for _, c := range root.Children() {
			if !walk(c, none, none) {
				return
			}
		}
	}
}

// MatchFirst returns the first match in document order, or nil.
func (s *Selector) MatchFirst(root *htmltree.Element) *htmltree.Element {
	for e := range s.MatchAll(root) {
		return e
	}
	return nil
}

// QuerySelectorAll compiles sel and yields all matches under root.
func QuerySelectorAll(root *htmltree.Element, sel string) (iter.Seq[*htmltree.Element], error) {
	s, err := Compile(sel)
	if err != nil {
		return nil, err
	}
	return s.MatchAll(root), nil
}

// QuerySelector compiles sel and returns the first match under root,
// or nil when nothing matches.
func QuerySelector(root *htmltree.Element, sel string) (*htmltree.Element, error) {
	s, err := Compile(sel)
	if err != nil {
		return nil, err
	}
	return s.MatchFirst(root), nil
}
