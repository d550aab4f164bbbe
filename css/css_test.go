package css

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minimech/minimech/htmltree"
)

const selectorFixture = `
	<div class="outerdiv" id="outerdiv">
		<span class="a">1</span>
		<div id="innerdiv">
			<span class="a b">2</span>
			<span class="b">3</span>
		</div>
		<p id="barp" class="bar baz">4</p>
	</div>
`

func selectorDoc(t *testing.T) *htmltree.Element {
	t.Helper()
	return htmltree.ParseDocument(selectorFixture)
}

func textsOf(sel string, root *htmltree.Element) ([]string, error) {
	matches, err := QuerySelectorAll(root, sel)
	if err != nil {
		return nil, err
	}
	var out []string
	for el := range matches {
		out = append(out, el.TextContent())
	}
	return out, nil
}

func TestSelectors(t *testing.T) {
	tests := []struct {
		sel  string
		want []string
	}{
		{"span", []string{"1", "2", "3"}},
		{"div", []string{"1 2 3 4", "2 3"}},
		{"p", []string{"4"}},
		{"video", nil},

		// descendants
		{"div span", []string{"1", "2", "3"}},
		{"div div span", []string{"2", "3"}},
		{"* div", []string{"2 3"}},
		// the element the query runs on never matches itself
		{"html div", nil},

		// classes and ids
		{".a", []string{"1", "2"}},
		{".a.b", []string{"2"}},
		{".bar.baz", []string{"4"}},
		{"span.b", []string{"2", "3"}},
		{"#innerdiv", []string{"2 3"}},
		{"#barp", []string{"4"}},
		{"span#innerdiv", nil},
		{"#outerdiv.outerdiv div#innerdiv span.a", []string{"2"}},

		// child combinator
		{"div > span", []string{"1", "2", "3"}},
		{"div > p", []string{"4"}},
		{"div > .b", []string{"2", "3"}},
		{"div>span", []string{"1", "2", "3"}},
		{".outerdiv >.a", []string{"1"}},

		// contains
		{`span:contains("2")`, []string{"2"}},
		{"span:contains(2)", []string{"2"}},
		// whitespace inside the parentheses is part of the needle
		{"div:contains( 2 )", []string{"1 2 3 4"}},
		{"div:contains(2 3)", []string{"1 2 3 4", "2 3"}},
		{"p:contains(nope)", nil},

		// an empty selector matches nothing
		{"", nil},
		{"   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.sel, func(t *testing.T) {
			t.Parallel()
			got, err := textsOf(tt.sel, selectorDoc(t))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInvalidSelectors(t *testing.T) {
	tests := []string{
		"a:hover",
		"a:nth-child(2)",
		"a[href]",
		"a + b",
		"a ~ b",
		"a >",
		">",
		"a:contains(",
		"..a",
	}
	for _, sel := range tests {
		t.Run(sel, func(t *testing.T) {
			t.Parallel()
			_, err := Compile(sel)
			require.Error(t, err)
			var invalid *InvalidSelectorError
			assert.True(t, errors.As(err, &invalid), "expected InvalidSelectorError, got %v", err)
		})
	}
}

func TestMustCompile(t *testing.T) {
	assert.NotNil(t, MustCompile("div > span"))
	assert.Panics(t, func() { MustCompile("a:hover") })
}

func TestMatchFirst(t *testing.T) {
	doc := selectorDoc(t)
	el := MustCompile("span.b").MatchFirst(doc)
	require.NotNil(t, el)
	assert.Equal(t, "2", el.TextContent())

	assert.Nil(t, MustCompile("video").MatchFirst(doc))
}

func TestMatchAllIsLazy(t *testing.T) {
	doc := selectorDoc(t)
	count := 0
	for range MustCompile("span").MatchAll(doc) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}
