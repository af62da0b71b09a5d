package table

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
)

// utf8BOM is the byte order mark commonly added by Windows programs.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decode converts raw file bytes in the named encoding to UTF-8.
//
// For UTF-8 input the bytes must already be valid; the first invalid sequence
// is reported with its byte offset instead of being silently replaced.
func decode(data []byte, encoding string) ([]byte, error) {
	enc, err := htmlindex.Get(strings.TrimSpace(encoding))
	if err != nil {
		return nil, malformedOffset(-1, fmt.Sprintf("unsupported encoding %q", encoding))
	}

	name, _ := htmlindex.Name(enc)
	if name == "utf-8" {
		var skipped int64
		if bytes.HasPrefix(data, utf8BOM) {
			data = data[len(utf8BOM):]
			skipped = int64(len(utf8BOM))
		}
		if off := invalidUTF8Offset(data); off >= 0 {
			return nil, malformedOffset(off+skipped, "invalid UTF-8 byte sequence")
		}
		return data, nil
	}

	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, &MalformedInputError{Offset: -1, Reason: fmt.Sprintf("cannot decode as %s", name), Err: err}
	}
	return bytes.TrimPrefix(out, utf8BOM), nil
}

// invalidUTF8Offset returns the offset of the first invalid sequence, or -1.
func invalidUTF8Offset(data []byte) int64 {
	if utf8.Valid(data) {
		return -1
	}
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return int64(i)
		}
		i += size
	}
	return -1
}
