package c3d

import (
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
)

// decodeText turns a fixed-width C3D character field into a Go string. The
// format predates Unicode; bytes are taken as ISO-8859-1 and the padding
// (spaces or NULs) is trimmed from both ends.
func decodeText(b []byte) string {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		out = b
	}
	return strings.TrimFunc(string(out), func(r rune) bool {
		return r == 0 || unicode.IsSpace(r)
	})
}
