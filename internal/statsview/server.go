//go:build statsview

package statsview

import (
	"context"
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// Launch serves the runtime charts on addr until ctx is done
func Launch(ctx context.Context, addr string, output io.Writer) {
	viewer.SetConfiguration(viewer.WithAddr(addr))
	mgr := statsview.New()

	go mgr.Start()
	go func() {
		<-ctx.Done()
		mgr.Stop()
	}()

	fmt.Fprintf(output, "runtime charts at http://%s%s\n", addr, route)
}

// Available reports whether the runtime chart server was compiled in
func Available() bool {
	return true
}
