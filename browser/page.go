package browser

import (
	"io"
	"iter"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/minimech/minimech/charset"
	"github.com/minimech/minimech/css"
	"github.com/minimech/minimech/htmltree"
)

// Page is one fetched document plus the response metadata needed to
// navigate on from it.
type Page struct {
	Browser    *Browser
	URL        *url.URL
	StatusCode int
	Header     http.Header
	// Charset is the canonical name of the encoding the body was
	// decoded with.
	Charset string
	// Document is the parsed tree. It is always present; non-HTML
	// bodies simply parse to a mostly-text document.
	Document *htmltree.Element

	raw []byte
}

func newPage(b *Browser, resp *http.Response) (*Page, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read body of %s", resp.Request.URL)
	}
	declared := ""
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if _, params, err := mime.ParseMediaType(ct); err == nil {
			declared = params["charset"]
		}
	}
	name := charset.Detect(raw, declared)
	doc := htmltree.ParseDocument(charset.Decode(raw, name))
	return &Page{
		Browser:    b,
		URL:        resp.Request.URL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Charset:    name,
		Document:   doc,
		raw:        raw,
	}, nil
}

// Bytes returns the undecoded response body.
func (p *Page) Bytes() []byte {
	return p.raw
}

// BaseURI is the URL hyperlinks resolve against: the first base
// element with an href wins, otherwise the page URL. Fragments are
// dropped.
func (p *Page) BaseURI() *url.URL {
	base := *p.URL
	base.Fragment = ""
	for el := range p.Document.Iter("base") {
		if !el.HasAttr("href") {
			continue
		}
		ref, err := url.Parse(strings.TrimSpace(el.Attr("href")))
		if err != nil {
			break
		}
		resolved := base.ResolveReference(ref)
		resolved.Fragment = ""
		return resolved
	}
	return &base
}

// resolve turns a possibly relative target into an absolute URL
// string.
func (p *Page) resolve(target string) (string, error) {
	ref, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	return p.BaseURI().ResolveReference(ref).String(), nil
}

// Open fetches a link relative to this page, sending the page URL as
// referer.
func (p *Page) Open(target string) (*Page, error) {
	return p.OpenWith(target, OpenOptions{})
}

// OpenWith fetches a link relative to this page with options. The
// referer defaults to this page's URL.
func (p *Page) OpenWith(target string, opts OpenOptions) (*Page, error) {
	abs, err := p.resolve(target)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %q against %s", target, p.URL)
	}
	if opts.Referer == "" {
		opts.Referer = stripFragment(p.URL)
	}
	return p.Browser.OpenWith(abs, opts)
}

// QuerySelector returns the first element matching the selector, or
// nil.
func (p *Page) QuerySelector(sel string) (*htmltree.Element, error) {
	return css.QuerySelector(p.Document, sel)
}

// QuerySelectorAll lazily yields all elements matching the selector.
func (p *Page) QuerySelectorAll(sel string) (iter.Seq[*htmltree.Element], error) {
	return css.QuerySelectorAll(p.Document, sel)
}

// Forms lists the document's forms in document order.
func (p *Page) Forms() []*Form {
	var out []*Form
	for el := range p.Document.Iter("form") {
		out = append(out, &Form{Element: el, Page: p})
	}
	return out
}

// Form finds a form by its name or id attribute.
func (p *Page) Form(name string) (*Form, error) {
	for _, f := range p.Forms() {
		if f.Name() == name || f.ID() == name {
			return f, nil
		}
	}
	return nil, errors.Errorf("no form named %q", name)
}
