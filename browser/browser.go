// Package browser is a small headless HTTP browser: it fetches pages,
// keeps cookies, follows redirects including Refresh headers and meta
// refresh, and exposes the parsed document for scraping and form
// submission.
package browser

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
)

// DefaultUserAgent is sent when the caller does not pick one.
const DefaultUserAgent = "minimech/1.0"

// DefaultMaxRedirects bounds a redirect chain before giving up.
const DefaultMaxRedirects = 10

// refreshPattern matches Refresh header and meta refresh content
// values like "0; url=/next".
var refreshPattern = regexp.MustCompile(`(?i)^\s*[0-9]+\s*;\s*url\s*=(.+)$`)

// HTTPError is returned when the final response of a fetch has a
// non-success status. The page is still attached so callers can
// inspect error documents.
type HTTPError struct {
	StatusCode int
	Page       *Page
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("browser: http status %d for %s", e.StatusCode, e.Page.URL)
}

// TooManyRedirectsError is returned when a redirect chain exceeds its
// budget.
type TooManyRedirectsError struct {
	URL string
}

func (e *TooManyRedirectsError) Error() string {
	return fmt.Sprintf("browser: too many redirects, stopped at %s", e.URL)
}

// Browser holds the state shared between page fetches: cookie jar,
// default headers and the underlying HTTP client. Redirects are
// followed by the browser itself, not by the client, so that Refresh
// headers and meta refresh get the same treatment as status
// redirects.
type Browser struct {
	UserAgent      string
	DefaultHeaders http.Header
	Client         *http.Client
	MaxRedirects   int
	Log            logrus.FieldLogger
}

// New creates a browser with a fresh cookie jar.
func New(userAgent string) (*Browser, error) {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "create cookie jar")
	}
	return &Browser{
		UserAgent:      userAgent,
		DefaultHeaders: http.Header{},
		Client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		MaxRedirects: DefaultMaxRedirects,
		Log:          logrus.StandardLogger(),
	}, nil
}

// OpenOptions tweak a single fetch.
type OpenOptions struct {
	// Headers are added on top of the browser's defaults.
	Headers http.Header
	// MaxRedirects overrides the browser's budget when positive.
	MaxRedirects int
	// Data makes the first request a POST with this body. Redirects
	// are always followed with GET.
	Data []byte
	// ContentType goes with Data.
	ContentType string
	// Referer is sent with the first request.
	Referer string
}

// Open fetches a URL with default options, following redirects.
func (b *Browser) Open(rawurl string) (*Page, error) {
	return b.OpenWith(rawurl, OpenOptions{})
}

// OpenWith fetches a URL, following status redirects, Refresh headers
// and meta refresh until a non-redirecting response arrives. A final
// non-success status yields an HTTPError carrying the page.
func (b *Browser) OpenWith(rawurl string, opts OpenOptions) (*Page, error) {
	budget := opts.MaxRedirects
	if budget <= 0 {
		budget = b.MaxRedirects
	}
	current := rawurl
	referer := opts.Referer
	data := opts.Data
	contentType := opts.ContentType
	for hop := 0; hop <= budget; hop++ {
		page, err := b.fetch(current, data, contentType, referer, opts.Headers)
		if err != nil {
			return nil, err
		}
		target, redirected := page.redirectTarget()
		if !redirected {
			if page.StatusCode < 200 || page.StatusCode > 299 {
				return nil, &HTTPError{StatusCode: page.StatusCode, Page: page}
			}
			return page, nil
		}
		next, err := page.resolve(target)
		if err != nil {
			return nil, errors.Wrapf(err, "resolve redirect target %q", target)
		}
		b.Log.WithFields(logrus.Fields{
			"from": page.URL.String(),
			"to":   next,
		}).Debug("following redirect")
		referer = stripFragment(page.URL)
		current = next
		data = nil
		contentType = ""
	}
	return nil, &TooManyRedirectsError{URL: current}
}

func (b *Browser) fetch(rawurl string, data []byte, contentType, referer string, extra http.Header) (*Page, error) {
	method := http.MethodGet
	var body *bytes.Reader
	if data != nil {
		method = http.MethodPost
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, rawurl, body)
	if err != nil {
		return nil, errors.Wrapf(err, "build request for %q", rawurl)
	}
	req.Header.Set("User-Agent", b.UserAgent)
	for k, vs := range b.DefaultHeaders {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	for k, vs := range extra {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	b.Log.WithFields(logrus.Fields{
		"method": method,
		"url":    rawurl,
	}).Debug("fetching")
	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", rawurl)
	}
	defer resp.Body.Close()
	return newPage(b, resp)
}

// stripFragment renders a URL without its fragment, the way referers
// are supposed to be sent.
func stripFragment(u *url.URL) string {
	c := *u
	c.Fragment = ""
	return c.String()
}

// redirectTarget inspects the response for any of the three redirect
// flavors and returns the raw, possibly relative, target.
func (p *Page) redirectTarget() (string, bool) {
	switch p.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		if loc := p.Header.Get("Location"); loc != "" {
			return strings.TrimSpace(loc), true
		}
	}
	if m := refreshPattern.FindStringSubmatch(p.Header.Get("Refresh")); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if p.Document != nil {
		for meta := range p.Document.Iter("meta") {
			if !strings.EqualFold(meta.Attr("http-equiv"), "refresh") {
				continue
			}
			if m := refreshPattern.FindStringSubmatch(meta.Attr("content")); m != nil {
				return strings.TrimSpace(m[1]), true
			}
		}
	}
	return "", false
}
