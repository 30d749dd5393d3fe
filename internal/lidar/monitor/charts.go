package monitor

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// RenderChart writes a self-contained HTML page with a top-down scatter of
// the sampled points (coloured by intensity) and a bar chart of points per
// ring.
func (cp *CloudPlotter) RenderChart(w io.Writer) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if len(cp.distances) == 0 {
		return ErrNoSamples
	}

	pad := 1.0
	data := make([]opts.ScatterData, 0, len(cp.scatter))
	for _, p := range cp.scatter {
		pad = math.Max(pad, math.Max(math.Abs(p.X), math.Abs(p.Y)))
		data = append(data, opts.ScatterData{Value: []interface{}{p.X, p.Y, int(p.Intensity)}})
	}
	pad = math.Ceil(pad)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Decoded Point Cloud", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Decoded Points (top-down)", Subtitle: fmt.Sprintf("points=%d shown=%d", len(cp.distances), len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Dimension:  "2",
			Min:        0,
			Max:        255,
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries("points", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))

	_, maxRing := cp.ringMeans()
	rings := make([]string, 0, maxRing+1)
	counts := make([]opts.BarData, 0, maxRing+1)
	for ring := 0; ring <= maxRing; ring++ {
		rings = append(rings, strconv.Itoa(ring))
		counts = append(counts, opts.BarData{Value: cp.ringCounts[ring]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Points per Ring"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(rings).AddSeries("points", counts)

	page := components.NewPage()
	page.AddCharts(scatter, bar)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}
