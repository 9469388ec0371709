//go:build !statsview

package statsview

import (
	"context"
	"fmt"
	"io"
)

// Launch reports that the runtime chart server was not compiled in
func Launch(_ context.Context, addr string, output io.Writer) {
	fmt.Fprintf(output, "runtime charts for %s not available: rebuild with -tags statsview\n", addr)
}

// Available reports whether the runtime chart server was compiled in
func Available() bool {
	return false
}
