// Package charset normalizes retailer XML files to UTF-8 before parsing.
// Israeli price-transparency feeds are mostly UTF-8, but a handful of
// chains still publish Windows-1255 or ISO-8859-8, the two common Hebrew
// code pages, occasionally with the XML prolog's declared encoding not
// matching the actual bytes.
package charset

import (
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Encoding identifies a source text encoding.
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingWindows1255 Encoding = "windows-1255" // Hebrew
	EncodingISO88598    Encoding = "iso-8859-8"    // Hebrew
)

var prologEncoding = regexp.MustCompile(`(?i)encoding=["']([\w-]+)["']`)

// DeclaredEncoding extracts the encoding attribute from an XML prolog, if
// present, normalized to lowercase. Returns "" when the document has no
// prolog or no encoding attribute.
func DeclaredEncoding(data []byte) string {
	limit := len(data)
	if limit > 200 {
		limit = 200
	}
	m := prologEncoding.FindSubmatch(data[:limit])
	if m == nil {
		return ""
	}
	return strings.ToLower(string(m[1]))
}

// DetectEncoding chooses the encoding to decode data with. Bytes that are
// already valid UTF-8 are trusted as UTF-8 regardless of what the prolog
// declares, since several retailers carry a stale declaration left over
// from a template. Otherwise the prolog's declared Hebrew code page wins;
// with no usable declaration, Windows-1255 is the more common legacy
// encoding among these feeds and is used as the default guess.
func DetectEncoding(data []byte) Encoding {
	if utf8.Valid(data) {
		return EncodingUTF8
	}

	switch DeclaredEncoding(data) {
	case "iso-8859-8", "iso8859-8":
		return EncodingISO88598
	default:
		return EncodingWindows1255
	}
}

// Decode converts data to a UTF-8 string under enc. Data that is already
// valid UTF-8 is returned unchanged regardless of what enc claims.
func Decode(data []byte, enc Encoding) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}

	switch enc {
	case EncodingISO88598:
		return decodeWithCharmap(data, charmap.ISO8859_8)
	case EncodingWindows1255:
		return decodeWithCharmap(data, charmap.Windows1255)
	default:
		return string(data), nil
	}
}

// Normalize detects data's encoding and returns it re-encoded as UTF-8
// bytes, ready to hand to an XML decoder.
func Normalize(data []byte) ([]byte, error) {
	enc := DetectEncoding(data)
	if enc == EncodingUTF8 {
		return data, nil
	}
	s, err := Decode(data, enc)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func decodeWithCharmap(data []byte, cm *charmap.Charmap) (string, error) {
	reader := transform.NewReader(strings.NewReader(string(data)), cm.NewDecoder())
	result, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(result), nil
}

// ToUTF8Reader wraps r with a decoder that converts from enc to UTF-8 on
// the fly, for callers streaming a file rather than holding it in memory.
func ToUTF8Reader(r io.Reader, enc Encoding) io.Reader {
	var dec encoding.Encoding
	switch enc {
	case EncodingISO88598:
		dec = charmap.ISO8859_8
	case EncodingWindows1255:
		dec = charmap.Windows1255
	default:
		return r
	}
	return transform.NewReader(r, dec.NewDecoder())
}
