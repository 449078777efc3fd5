package common

import (
	"io"
	"log"
	"os"
)

var (
	logger = log.New(os.Stderr, "[c3dkit] ", log.LstdFlags|log.Lmicroseconds)
)

// SetOutput redirects diagnostics, e.g. to a rotating log file.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func Logf(format string, args ...interface{}) {
	logger.Printf(format, args...)
}
