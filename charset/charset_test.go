package charset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"utf8", "utf-8"},
		{"UTF-8", "utf-8"},
		{"latin9", "iso-8859-15"},
		// ascii-ish labels are windows-1252 on the web
		{"ascii", "windows-1252"},
		{"US-ASCII", "windows-1252"},
		{"latin-1", "windows-1252"},
		{"iso-8859-1", "windows-1252"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := Resolve(tt.label)
			assert.True(t, ok, "label should resolve")
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := Resolve("gucklug")
	assert.False(t, ok, "garbage label should not resolve")
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		declared string
		want     string
	}{
		{
			name: "no hints",
			data: "<html><body>hi</body></html>",
			want: "windows-1252",
		},
		{
			name:     "declared charset",
			data:     "<html></html>",
			declared: "utf8",
			want:     "utf-8",
		},
		{
			name:     "declared ascii means cp1252",
			data:     "<html></html>",
			declared: "ASCII",
			want:     "windows-1252",
		},
		{
			name:     "unknown declared charset falls through",
			data:     "<html></html>",
			declared: "gucklug",
			want:     "windows-1252",
		},
		{
			name: "meta charset",
			data: `<html><head><meta charset="utf-8"></head></html>`,
			want: "utf-8",
		},
		{
			name: "meta charset unquoted",
			data: "<html><head><meta charset=latin9></head></html>",
			want: "iso-8859-15",
		},
		{
			name: "meta content-type pragma",
			data: `<meta http-equiv="Content-Type" content="text/html; charset=iso-8859-15">`,
			want: "iso-8859-15",
		},
		{
			name: "meta content-type pragma unquoted",
			data: "<meta http-equiv=Content-Type content=text/html; charset=utf8>",
			want: "utf-8",
		},
		{
			name:     "declared wins over meta",
			data:     `<meta charset="utf-8">`,
			declared: "latin9",
			want:     "iso-8859-15",
		},
		{
			name: "first resolvable meta wins",
			data: `<meta charset="ascii"><meta charset="utf-8">`,
			want: "windows-1252",
		},
		{
			name: "unresolvable meta is skipped",
			data: `<meta charset="gucklug"><meta charset="utf-8">`,
			want: "utf-8",
		},
		{
			name: "utf-16 meta label means utf-8",
			data: `<meta charset="UTF-16BE">`,
			want: "utf-8",
		},
		{
			name: "meta inside comment is ignored",
			data: `<!-- <meta charset="utf-8"> -->`,
			want: "windows-1252",
		},
		{
			name: "xml declaration fallback",
			data: `<?xml version="1.0" encoding="ISO-8859-15"?><html></html>`,
			want: "iso-8859-15",
		},
		{
			name: "meta wins over xml declaration",
			data: `<?xml version="1.0" encoding="ISO-8859-15"?><meta charset=utf8>`,
			want: "utf-8",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Detect([]byte(tt.data), tt.declared))
		})
	}
}

func TestDetectBOM(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"utf-8 bom", []byte("\xef\xbb\xbf<html>"), "utf-8"},
		{"utf-16le bom", []byte("\xff\xfe<\x00h\x00"), "utf-16le"},
		{"utf-16be bom", []byte("\xfe\xff\x00<\x00h"), "utf-16be"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			// a byte order mark beats everything, including an
			// out of band declaration
			assert.Equal(t, tt.want, Detect(tt.data, "iso-8859-15"))
		})
	}
}

func TestDetectPrescanLimit(t *testing.T) {
	padding := make([]byte, prescanLimit)
	for i := range padding {
		padding[i] = ' '
	}
	data := append(padding, []byte(`<meta charset="utf-8">`)...)
	assert.Equal(t, "windows-1252", Detect(data, ""))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		encoding string
		want     string
	}{
		{"plain utf-8", []byte("a\xe2\x80\x99b"), "utf-8", "a’b"},
		{"utf-8 bytes as cp1252", []byte("a\xe2\x80\x99b"), "windows-1252", "aâ€™b"},
		{"cp1252 bytes as utf-8", []byte("a\xfcb"), "utf-8", "a�b"},
		{"iso-8859-15 euro", []byte("a\xa4b"), "iso-8859-15", "a€b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Decode(tt.data, tt.encoding))
		})
	}
}
