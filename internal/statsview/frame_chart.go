// Package statsview charts emulator performance: live runtime charts over
// HTTP when built with the statsview tag, and a per-frame timing report
// rendered as a standalone HTML page.
package statsview

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const route = "/debug/statsview"

// Sample is the timing of one emulated frame
type Sample struct {
	Frame     uint64
	Emulation time.Duration // time spent running the CPU and rendering
	Interval  time.Duration // wall time since the previous frame started
}

// FrameChart collects frame samples for a timing report. Once limit
// samples are held every second one is dropped and the sampling stride
// doubles, so long runs stay evenly covered.
type FrameChart struct {
	mu      sync.Mutex
	samples []Sample
	limit   int
	stride  uint64
	seen    uint64
}

// NewFrameChart creates a chart holding at most limit samples
func NewFrameChart(limit int) *FrameChart {
	if limit < 2 {
		limit = 2
	}
	if limit%2 != 0 {
		limit++
	}
	return &FrameChart{limit: limit, stride: 1}
}

// Record adds a sample if it falls on the current stride
func (c *FrameChart) Record(sample Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seen++
	if (c.seen-1)%c.stride != 0 {
		return
	}

	c.samples = append(c.samples, sample)
	if len(c.samples) < c.limit {
		return
	}

	kept := c.samples[:0]
	for i := 0; i < len(c.samples); i += 2 {
		kept = append(kept, c.samples[i])
	}
	c.samples = kept
	c.stride *= 2
}

// Samples returns a copy of the recorded samples
func (c *FrameChart) Samples() []Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sample(nil), c.samples...)
}

// Render writes the report as an HTML page
func (c *FrameChart) Render(w io.Writer) error {
	samples := c.Samples()

	frames := make([]uint64, len(samples))
	emulation := make([]opts.LineData, len(samples))
	interval := make([]opts.LineData, len(samples))
	for i, sample := range samples {
		frames[i] = sample.Frame
		emulation[i] = opts.LineData{Value: milliseconds(sample.Emulation)}
		interval[i] = opts.LineData{Value: milliseconds(sample.Interval)}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "invaders frame timing"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Frame timing",
			Subtitle: fmt.Sprintf("%d samples, target %.2f ms", len(samples), milliseconds(time.Second/60)),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "ms"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)
	line.SetXAxis(frames).
		AddSeries("Emulation", emulation).
		AddSeries("Interval", interval)

	return line.Render(w)
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
