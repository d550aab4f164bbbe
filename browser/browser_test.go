package browser

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBrowser(t *testing.T) *Browser {
	t.Helper()
	b, err := New("")
	require.NoError(t, err)
	return b
}

func TestOpen(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<title>Hi</title><p>Hello, World!")
	}))
	defer srv.Close()

	b := newTestBrowser(t)
	page, err := b.Open(srv.URL)
	require.NoError(t, err)

	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, "utf-8", page.Charset)
	assert.Equal(t, srv.URL, page.URL.String())

	title := page.Document.Find("title")
	require.NotNil(t, title)
	assert.Equal(t, "Hi", title.Text)
}

func TestDefaultAndExtraHeaders(t *testing.T) {
	var gotLang, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLang = r.Header.Get("Accept-Language")
		gotAccept = r.Header.Get("Accept")
	}))
	defer srv.Close()

	b := newTestBrowser(t)
	b.DefaultHeaders.Set("Accept-Language", "de")
	_, err := b.OpenWith(srv.URL, OpenOptions{
		Headers: http.Header{"Accept": []string{"text/html"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "de", gotLang)
	assert.Equal(t, "text/html", gotAccept)
}

func TestStatusRedirects(t *testing.T) {
	var referers []string
	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		referers = append(referers, r.Header.Get("Referer"))
		http.Redirect(w, r, "/b", http.StatusFound)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		referers = append(referers, r.Header.Get("Referer"))
		http.Redirect(w, r, "/c", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/c", func(w http.ResponseWriter, r *http.Request) {
		referers = append(referers, r.Header.Get("Referer"))
		fmt.Fprint(w, "<p>done")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	b := newTestBrowser(t)
	page, err := b.Open(srv.URL + "/a")
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/c", page.URL.String())
	assert.Equal(t, "done", page.Document.TextContent())
	require.Len(t, referers, 3)
	assert.Equal(t, "", referers[0])
	assert.Equal(t, srv.URL+"/a", referers[1])
	assert.Equal(t, srv.URL+"/b", referers[2])
}

func TestRefreshHeaderRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Refresh", "0; url=/target")
		fmt.Fprint(w, "<p>redirecting")
	})
	mux.HandleFunc("/target", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<p>arrived")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	b := newTestBrowser(t)
	page, err := b.Open(srv.URL + "/start")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/target", page.URL.String())
	assert.Equal(t, "arrived", page.Document.TextContent())
}

func TestMetaRefreshRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<meta http-equiv="refresh" content="5; url=relative">`)
	})
	mux.HandleFunc("/relative", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<p>arrived")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	b := newTestBrowser(t)
	page, err := b.Open(srv.URL + "/start")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/relative", page.URL.String())
	assert.Equal(t, "arrived", page.Document.TextContent())
}

func TestTooManyRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	defer srv.Close()

	b := newTestBrowser(t)
	_, err := b.OpenWith(srv.URL, OpenOptions{MaxRedirects: 3})
	require.Error(t, err)
	var tooMany *TooManyRedirectsError
	assert.True(t, errors.As(err, &tooMany), "expected TooManyRedirectsError, got %v", err)
}

func TestHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "<p>not here")
	}))
	defer srv.Close()

	b := newTestBrowser(t)
	_, err := b.Open(srv.URL)
	require.Error(t, err)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr), "expected HTTPError, got %v", err)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	// the error document is still there for inspection
	require.NotNil(t, httpErr.Page)
	assert.Equal(t, "not here", httpErr.Page.Document.TextContent())
}

func TestCookies(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/set", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
	})
	mux.HandleFunc("/get", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err == nil {
			fmt.Fprintf(w, "<p>%s", c.Value)
		} else {
			fmt.Fprint(w, "<p>none")
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	b := newTestBrowser(t)
	_, err := b.Open(srv.URL + "/set")
	require.NoError(t, err)
	page, err := b.Open(srv.URL + "/get")
	require.NoError(t, err)
	assert.Equal(t, "abc", page.Document.TextContent())
}

func TestPostRedirectsToGet(t *testing.T) {
	var methods []string
	mux := http.NewServeMux()
	mux.HandleFunc("/submit", func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "a=1", string(body))
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		http.Redirect(w, r, "/done", http.StatusSeeOther)
	})
	mux.HandleFunc("/done", func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		fmt.Fprint(w, "<p>ok")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	b := newTestBrowser(t)
	page, err := b.OpenWith(srv.URL+"/submit", OpenOptions{
		Data:        []byte("a=1"),
		ContentType: "application/x-www-form-urlencoded",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{http.MethodPost, http.MethodGet}, methods)
	assert.Equal(t, "ok", page.Document.TextContent())
}

func TestBaseURI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<base href="/deep/nested/"><p>x`)
	}))
	defer srv.Close()

	b := newTestBrowser(t)
	page, err := b.Open(srv.URL + "/top")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/deep/nested/", page.BaseURI().String())

	abs, err := page.resolve("leaf")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/deep/nested/leaf", abs)
}

func TestPageOpenSendsReferer(t *testing.T) {
	var gotReferer string
	mux := http.NewServeMux()
	mux.HandleFunc("/first", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<a href="second">go</a>`)
	})
	mux.HandleFunc("/second", func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
		fmt.Fprint(w, "<p>second")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	b := newTestBrowser(t)
	first, err := b.Open(srv.URL + "/first")
	require.NoError(t, err)

	second, err := first.Open("second")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/first", gotReferer)
	assert.Equal(t, "second", second.Document.TextContent())
}

func TestCharsetFromContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-15")
		w.Write([]byte("<p>100 \xa4"))
	}))
	defer srv.Close()

	b := newTestBrowser(t)
	page, err := b.Open(srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "iso-8859-15", page.Charset)
	assert.Equal(t, "100 €", page.Document.TextContent())
}
