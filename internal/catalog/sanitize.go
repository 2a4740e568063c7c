package catalog

// sanitize.go provides streaming readers that clean up input before CSV
// decoding, without loading the file into memory:
//
//   - skipBOM drops a leading UTF-8 byte order mark (0xEF 0xBB 0xBF)
//   - utf8Sanitizer replaces invalid UTF-8 bytes with '?'
//
// Use sanitize to apply both in the correct order.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM returns a reader positioned after the UTF-8 BOM, if r starts with one.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// utf8Sanitizer decodes its source rune by rune and rewrites every invalid
// byte as '?'. A multi-byte sequence split across reads of the underlying
// reader is reassembled by the buffered reader, never mangled.
type utf8Sanitizer struct {
	src *bufio.Reader
	err error
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{src: bufio.NewReader(r)}
}

// Read implements io.Reader.
func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if s.err != nil {
			break
		}

		r, size, err := s.src.ReadRune()
		if err != nil {
			s.err = err
			break
		}

		if r == utf8.RuneError && size == 1 {
			p[n] = '?'
			n++
			continue
		}

		if n+size > len(p) {
			// No room for the whole rune; hand it back for the next call
			_ = s.src.UnreadRune()
			break
		}
		n += utf8.EncodeRune(p[n:], r)
	}

	if n > 0 {
		return n, nil
	}
	if s.err == nil && len(p) > 0 {
		// p is smaller than the next rune
		return 0, io.ErrShortBuffer
	}
	return 0, s.err
}

// sanitize wraps r with BOM removal and then UTF-8 repair.
// BOM must be stripped first, before any byte-level rewriting.
func sanitize(r io.Reader) io.Reader {
	return newUTF8Sanitizer(skipBOM(r))
}
