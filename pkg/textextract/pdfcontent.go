package textextract

import (
	"bytes"
	"io"

	"github.com/ledongthuc/pdf"
)

const maxContentStream = 16 << 20

// contentsTerminated reports whether every content stream of a page closes
// all the strings and arrays it opens.
func contentsTerminated(contents pdf.Value) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	switch contents.Kind() {
	case pdf.Null:
		return true
	case pdf.Array:
		for i := 0; i < contents.Len(); i++ {
			if !streamTerminated(contents.Index(i)) {
				return false
			}
		}
		return true
	default:
		return streamTerminated(contents)
	}
}

func streamTerminated(v pdf.Value) bool {
	rc := v.Reader()
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxContentStream+1))
	if err != nil || len(data) > maxContentStream {
		return false
	}
	return balanced(data)
}

// balanced scans a content stream with the same string, comment and array
// rules as the pdf lexer.
func balanced(data []byte) bool {
	arrays, strDepth := 0, 0
	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case strDepth > 0:
			switch c {
			case '\\':
				i++
			case '(':
				strDepth++
			case ')':
				strDepth--
			}
		case c == '%':
			for i < len(data) && data[i] != '\r' && data[i] != '\n' {
				i++
			}
		case c == '(':
			strDepth = 1
		case c == '<':
			if i+1 < len(data) && data[i+1] == '<' {
				i++
				continue
			}
			end := bytes.IndexByte(data[i+1:], '>')
			if end < 0 {
				return false
			}
			i += end + 1
		case c == '[':
			arrays++
		case c == ']':
			if arrays > 0 {
				arrays--
			}
		}
	}
	return strDepth == 0 && arrays == 0
}
