package client

import (
	"fmt"
	"os"
)

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format+"\n", args...); err != nil {
		// Best-effort logging.
		_ = err
	}
}
