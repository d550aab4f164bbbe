package htmltree

import (
	"testing"

	"github.com/pkg/errors"
)

func TestChildOperations(t *testing.T) {
	doc := ParseFragment("<div><a>1</a><b>2</b><c>3</c></div>")

	if doc.Len() != 3 {
		t.Fatalf("expected 3 children, got %d", doc.Len())
	}
	if got := doc.Child(1).Tag; got != "b" {
		t.Errorf("expected child 1 to be b, got %q", got)
	}

	if err := doc.ReplaceChild(1, NewElement("x")); err != nil {
		t.Fatal(err)
	}
	if got := doc.OuterXML(); got != "<div><a>1</a><x /><c>3</c></div>" {
		t.Errorf("unexpected tree after replace: %q", got)
	}

	if err := doc.RemoveChild(0); err != nil {
		t.Fatal(err)
	}
	if got := doc.OuterXML(); got != "<div><x /><c>3</c></div>" {
		t.Errorf("unexpected tree after remove: %q", got)
	}

	if err := doc.InsertChild(0, NewElement("y")); err != nil {
		t.Fatal(err)
	}
	if got := doc.OuterXML(); got != "<div><y /><x /><c>3</c></div>" {
		t.Errorf("unexpected tree after insert: %q", got)
	}
}

func TestChildOperationErrors(t *testing.T) {
	el := ParseFragment("<div><a /></div>")

	if err := el.ReplaceChild(1, NewElement("x")); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := el.RemoveChild(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := el.InsertChild(2, NewElement("x")); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
	// inserting at Len() appends
	if err := el.InsertChild(1, NewElement("x")); err != nil {
		t.Errorf("expected insert at Len() to succeed, got %v", err)
	}
}

func TestAttributeOrder(t *testing.T) {
	el := firstStartTagElement(t, `<p c="3" a="1" b="2">`)

	want := []Attr{{"c", "3"}, {"a", "1"}, {"b", "2"}}
	got := el.Attrs()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("attribute %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	// assigning keeps the position
	el.SetAttr("a", "9")
	if got := el.Attrs()[1]; got != (Attr{"a", "9"}) {
		t.Errorf("expected a to keep its slot, got %v", got)
	}

	if !el.DelAttr("c") {
		t.Error("expected DelAttr to report removal")
	}
	if el.HasAttr("c") {
		t.Error("expected c to be gone")
	}
	if el.Attr("missing") != "" {
		t.Error("expected empty value for a missing attribute")
	}
}

func firstStartTagElement(t *testing.T, in string) *Element {
	t.Helper()
	el := ParseFragment(in)
	if el.Tag == "html" {
		t.Fatalf("expected a single element for %q", in)
	}
	return el
}

func TestIter(t *testing.T) {
	doc := ParseFragment("<div><p>a<span>b</span></p><p>c</p><nav><p>d</p></nav></div>")

	var tags []string
	for el := range doc.Iter("") {
		tags = append(tags, el.Tag)
	}
	want := []string{"p", "span", "p", "nav", "p"}
	if len(tags) != len(want) {
		t.Fatalf("expected %v, got %v", want, tags)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], tags[i])
		}
	}

	var texts []string
	for el := range doc.Iter("p") {
		texts = append(texts, el.TextContent())
	}
	if len(texts) != 3 || texts[0] != "a b" || texts[1] != "c" || texts[2] != "d" {
		t.Errorf("unexpected p texts %v", texts)
	}

	// breaking out early must not walk the whole tree
	count := 0
	for range doc.Iter("") {
		count++
		break
	}
	if count != 1 {
		t.Errorf("expected a single iteration, got %d", count)
	}

	if el := doc.Find("span"); el == nil || el.Text != "b" {
		t.Errorf("unexpected Find result %v", el)
	}
	if el := doc.Find("video"); el != nil {
		t.Errorf("expected nil for a missing tag, got %v", el)
	}
}

func TestTextContent(t *testing.T) {
	doc := ParseFragment("<p>bla    <b>blub</b>\n hola</p>")
	if got := doc.TextContent(); got != "bla blub hola" {
		t.Errorf("expected %q, got %q", "bla blub hola", got)
	}
}

func TestInnerHTML(t *testing.T) {
	doc := ParseFragment("<div>a<p>b</p>c</div>")
	if got := doc.InnerHTML(); got != "a<p>b</p>c" {
		t.Errorf("unexpected inner html %q", got)
	}

	doc.SetInnerHTML("x<i>y</i><br>z")
	if got := doc.OuterHTML(); got != "<div>x<i>y</i><br>z</div>" {
		t.Errorf("unexpected tree after SetInnerHTML: %q", got)
	}
}

func TestOuterHTMLVoidElements(t *testing.T) {
	tests := []treeTest{
		{"<br>", "<br>"},
		{"<img src=x>", `<img src="x">`},
		// non-void empty elements keep an explicit end tag
		{"<div></div>", "<div></div>"},
	}
	for _, tt := range tests {
		t.Run(tt.inHTML, func(t *testing.T) {
			t.Parallel()
			if got := ParseFragment(tt.inHTML).OuterHTML(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
