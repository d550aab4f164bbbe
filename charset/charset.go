// Package charset guesses the character encoding of an HTML byte
// stream and decodes it. Detection follows the usual browser order:
// byte order mark, transport-declared encoding, meta prescan of the
// first kilobyte, XML declaration, and finally windows-1252.
package charset

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// fallbackEncoding is what everything undetectable decodes as. Every
// byte is defined in it, so decoding never loses data.
const fallbackEncoding = "windows-1252"

// prescanLimit bounds how far into the document the meta prescan
// looks.
const prescanLimit = 1024

// Resolve maps an encoding label to its canonical name using the
// WHATWG label table. ASCII and latin-1 labels resolve to
// windows-1252 there. The second return is false for unknown labels.
func Resolve(label string) (string, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", false
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return "", false
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		return "", false
	}
	return name, true
}

// Detect returns the canonical name of the encoding to decode data
// with. declared is an encoding label announced out of band, usually
// from a Content-Type header; it may be empty. The result is always a
// resolvable canonical name.
func Detect(data []byte, declared string) string {
	if name, ok := detectBOM(data); ok {
		return name
	}
	if name, ok := Resolve(declared); ok {
		return name
	}
	if name, ok := prescan(data); ok {
		// a document cannot usefully label itself utf-16: if the
		// prescan could read the label, the bytes are ASCII-compatible
		if name == "utf-16le" || name == "utf-16be" {
			return "utf-8"
		}
		return name
	}
	if name, ok := xmlDeclEncoding(data); ok {
		return name
	}
	return fallbackEncoding
}

// Decode converts data to a string using the named encoding.
// Undecodable bytes become U+FFFD.
func Decode(data []byte, name string) string {
	if name == "utf-8" {
		return strings.ToValidUTF8(string(data), "�")
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		enc, _ = htmlindex.Get(fallbackEncoding)
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		// decoders here replace rather than fail, but be safe
		return strings.ToValidUTF8(string(data), "�")
	}
	return string(out)
}

func detectBOM(data []byte) (string, bool) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return "utf-8", true
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return "utf-16le", true
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return "utf-16be", true
	}
	return "", false
}

// prescan scans the first kilobyte for a meta tag that names the
// document encoding, either via a charset attribute or via an
// http-equiv content-type pragma. The first resolvable declaration
// wins.
func prescan(data []byte) (string, bool) {
	if len(data) > prescanLimit {
		data = data[:prescanLimit]
	}
	for i := 0; i < len(data); i++ {
		if data[i] != '<' {
			continue
		}
		if bytes.HasPrefix(data[i:], []byte("<!--")) {
			end := bytes.Index(data[i+4:], []byte("-->"))
			if end < 0 {
				return "", false
			}
			i += 4 + end + 2
			continue
		}
		if hasCaseInsensitivePrefix(data[i:], "<meta") && i+5 < len(data) &&
			(isSpace(data[i+5]) || data[i+5] == '/') {
			j := i + 5
			attrs := map[string]string{}
			for {
				name, value, next, ok := scanAttribute(data, j)
				if !ok {
					break
				}
				j = next
				if _, seen := attrs[name]; !seen {
					attrs[name] = value
				}
			}
			if label, ok := attrs["charset"]; ok {
				if name, ok := Resolve(label); ok {
					return name, true
				}
			}
			if strings.EqualFold(attrs["http-equiv"], "content-type") {
				if label, ok := charsetFromContentType(attrs["content"]); ok {
					if name, ok := Resolve(label); ok {
						return name, true
					}
				}
			}
			i = j - 1
			continue
		}
		// skip over other tags so attribute text is not misread
		if i+1 < len(data) && (isASCIILetter(data[i+1]) || data[i+1] == '/') {
			j := i + 1
			for j < len(data) && data[j] != '>' {
				j++
			}
			i = j
		}
	}
	return "", false
}

// scanAttribute reads one name/value pair starting at or after pos,
// lowering the name. ok is false at the end of the tag.
func scanAttribute(data []byte, pos int) (name, value string, next int, ok bool) {
	i := pos
	for i < len(data) && (isSpace(data[i]) || data[i] == '/') {
		i++
	}
	if i >= len(data) || data[i] == '>' {
		return "", "", i, false
	}
	var nb strings.Builder
	for i < len(data) && data[i] != '=' && data[i] != '>' && data[i] != '/' && !isSpace(data[i]) {
		nb.WriteByte(lower(data[i]))
		i++
	}
	name = nb.String()
	for i < len(data) && isSpace(data[i]) {
		i++
	}
	if i >= len(data) || data[i] != '=' {
		return name, "", i, name != ""
	}
	i++
	for i < len(data) && isSpace(data[i]) {
		i++
	}
	var vb strings.Builder
	if i < len(data) && (data[i] == '"' || data[i] == '\'') {
		quote := data[i]
		i++
		for i < len(data) && data[i] != quote {
			vb.WriteByte(lower(data[i]))
			i++
		}
		if i < len(data) {
			i++
		}
	} else {
		for i < len(data) && data[i] != '>' && !isSpace(data[i]) {
			vb.WriteByte(lower(data[i]))
			i++
		}
	}
	return name, vb.String(), i, true
}

// charsetFromContentType pulls the charset parameter out of a
// content-type value like "text/html; charset=utf-8".
func charsetFromContentType(content string) (string, bool) {
	lowered := strings.ToLower(content)
	idx := strings.Index(lowered, "charset")
	if idx < 0 {
		return "", false
	}
	rest := strings.TrimLeft(content[idx+len("charset"):], " \t\n\f\r")
	if !strings.HasPrefix(rest, "=") {
		return "", false
	}
	rest = strings.TrimLeft(rest[1:], " \t\n\f\r")
	if rest == "" {
		return "", false
	}
	if rest[0] == '"' || rest[0] == '\'' {
		quote := rest[0]
		end := strings.IndexByte(rest[1:], quote)
		if end < 0 {
			return "", false
		}
		return rest[1 : 1+end], true
	}
	end := strings.IndexAny(rest, "; \t\n\f\r")
	if end < 0 {
		return rest, true
	}
	return rest[:end], true
}

// xmlDeclEncoding reads the encoding pseudo-attribute of a leading XML
// declaration. HTML served as XHTML sometimes only declares its
// encoding there.
func xmlDeclEncoding(data []byte) (string, bool) {
	if !bytes.HasPrefix(data, []byte("<?xml")) {
		return "", false
	}
	end := bytes.IndexByte(data, '>')
	if end < 0 {
		end = len(data)
	}
	decl := string(data[:end])
	idx := strings.Index(decl, "encoding")
	if idx < 0 {
		return "", false
	}
	rest := strings.TrimLeft(decl[idx+len("encoding"):], " \t\n\r")
	if !strings.HasPrefix(rest, "=") {
		return "", false
	}
	rest = strings.TrimLeft(rest[1:], " \t\n\r")
	if rest == "" || (rest[0] != '"' && rest[0] != '\'') {
		return "", false
	}
	quote := rest[0]
	endq := strings.IndexByte(rest[1:], quote)
	if endq < 0 {
		return "", false
	}
	return Resolve(rest[1 : 1+endq])
}

func hasCaseInsensitivePrefix(data []byte, prefix string) bool {
	if len(data) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		if lower(data[i]) != lower(prefix[i]) {
			return false
		}
	}
	return true
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\f', '\r':
		return true
	default:
		return false
	}
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + 'a' - 'A'
	}
	return b
}
