package report

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// DigestToQR encodes a hex file digest as a QR code PNG.
func DigestToQR(hash string, size int) ([]byte, error) {
	normalized := sanitizeHash(hash)
	if normalized == "" {
		return nil, fmt.Errorf("digest is empty")
	}
	if size <= 0 {
		size = 128
	}
	return qrcode.Encode("sha256:"+normalized, qrcode.Medium, size)
}

func sanitizeHash(hash string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(hash)) {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
