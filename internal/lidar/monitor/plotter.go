// Package monitor records decoded points during a replay and renders offline
// diagnostics: PNG plots through gonum/plot and an HTML chart page through
// go-echarts.
package monitor

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/velodyne-rawdata/internal/lidar/velodyne"
)

// DEFAULT_MAX_SCATTER caps the points kept for the top-down scatter chart.
const DEFAULT_MAX_SCATTER = 8000

// RANGE_HISTOGRAM_BINS is the bin count of the range histogram.
const RANGE_HISTOGRAM_BINS = 64

// ErrNoSamples is returned when plots are requested before any point arrived.
var ErrNoSamples = errors.New("no samples recorded")

// CloudPlotter accumulates per-point and per-packet samples from a decode
// run. It implements network.Sink so it can sit next to the CSV and database
// sinks.
type CloudPlotter struct {
	mu sync.Mutex

	maxScatter    int
	distances     plotter.Values
	packetPoints  plotter.XYs
	ringCounts    [velodyne.NUM_CHANNELS]int
	ringIntensity [velodyne.NUM_CHANNELS]float64
	scatter       []velodyne.Point
	firstCapture  time.Time
}

// NewCloudPlotter creates a plotter keeping at most maxScatter points for the
// scatter chart. Zero or negative selects DEFAULT_MAX_SCATTER.
func NewCloudPlotter(maxScatter int) *CloudPlotter {
	if maxScatter <= 0 {
		maxScatter = DEFAULT_MAX_SCATTER
	}
	return &CloudPlotter{maxScatter: maxScatter}
}

// WritePacket records one packet's points.
func (cp *CloudPlotter) WritePacket(index int, captureTime time.Time, points []velodyne.Point) error {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if cp.firstCapture.IsZero() {
		cp.firstCapture = captureTime
	}
	cp.packetPoints = append(cp.packetPoints, plotter.XY{X: float64(index), Y: float64(len(points))})

	for _, p := range points {
		cp.distances = append(cp.distances, math.Sqrt(p.X*p.X+p.Y*p.Y+p.Z*p.Z))
		if int(p.Ring) < velodyne.NUM_CHANNELS {
			cp.ringCounts[p.Ring]++
			cp.ringIntensity[p.Ring] += float64(p.Intensity)
		}
		if len(cp.scatter) < cp.maxScatter {
			cp.scatter = append(cp.scatter, p)
		}
	}
	return nil
}

// SampleCount returns the number of points recorded so far.
func (cp *CloudPlotter) SampleCount() int {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return len(cp.distances)
}

// ringMeans returns the mean intensity of every ring that saw a point, and
// the highest such ring.
func (cp *CloudPlotter) ringMeans() (means [velodyne.NUM_CHANNELS]float64, maxRing int) {
	maxRing = -1
	for ring, n := range cp.ringCounts {
		if n == 0 {
			continue
		}
		means[ring] = cp.ringIntensity[ring] / float64(n)
		maxRing = ring
	}
	return means, maxRing
}

// GeneratePlots writes range_histogram.png, points_per_packet.png and
// ring_intensity.png into outputDir, creating it if needed. It returns the
// number of files written.
func (cp *CloudPlotter) GeneratePlots(outputDir string) (int, error) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if len(cp.distances) == 0 {
		return 0, ErrNoSamples
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output dir: %w", err)
	}

	subtitle := ""
	if !cp.firstCapture.IsZero() {
		subtitle = " (" + FormatTimestamp(cp.firstCapture) + ")"
	}

	written := 0

	pRange := plot.New()
	pRange.Title.Text = "Range Distribution" + subtitle
	pRange.X.Label.Text = "Range (m)"
	pRange.Y.Label.Text = "Points"
	hist, err := plotter.NewHist(cp.distances, RANGE_HISTOGRAM_BINS)
	if err != nil {
		return written, fmt.Errorf("range histogram: %w", err)
	}
	hist.FillColor = color.RGBA{R: 49, G: 104, B: 142, A: 255}
	pRange.Add(hist)
	if err := pRange.Save(10*vg.Inch, 5*vg.Inch, filepath.Join(outputDir, "range_histogram.png")); err != nil {
		return written, fmt.Errorf("save range plot: %w", err)
	}
	written++

	pPackets := plot.New()
	pPackets.Title.Text = "Points per Packet" + subtitle
	pPackets.X.Label.Text = "Packet"
	pPackets.Y.Label.Text = "Points"
	line, err := plotter.NewLine(cp.packetPoints)
	if err != nil {
		return written, fmt.Errorf("points per packet line: %w", err)
	}
	line.Width = vg.Points(1)
	line.Color = color.RGBA{R: 53, G: 183, B: 121, A: 255}
	pPackets.Add(line)
	if err := pPackets.Save(14*vg.Inch, 6*vg.Inch, filepath.Join(outputDir, "points_per_packet.png")); err != nil {
		return written, fmt.Errorf("save packet plot: %w", err)
	}
	written++

	means, maxRing := cp.ringMeans()
	if maxRing < 0 {
		return written, nil
	}
	pRings := plot.New()
	pRings.Title.Text = "Mean Intensity per Ring" + subtitle
	pRings.X.Label.Text = "Ring"
	pRings.Y.Label.Text = "Intensity"
	bars, err := plotter.NewBarChart(plotter.Values(means[:maxRing+1]), vg.Points(8))
	if err != nil {
		return written, fmt.Errorf("ring intensity bars: %w", err)
	}
	bars.Color = color.RGBA{R: 253, G: 231, B: 37, A: 255}
	pRings.Add(bars)
	if err := pRings.Save(10*vg.Inch, 5*vg.Inch, filepath.Join(outputDir, "ring_intensity.png")); err != nil {
		return written, fmt.Errorf("save ring plot: %w", err)
	}
	written++

	return written, nil
}

// FormatTimestamp generates a timestamp string for directory naming.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("20060102_150405")
}

// MakePlotOutputDir returns plots/<capture basename>/<timestamp> for replays
// and plots/live_<timestamp> for live input.
func MakePlotOutputDir(baseDir, pcapFile string, now time.Time) string {
	ts := FormatTimestamp(now)
	if pcapFile != "" {
		base := filepath.Base(pcapFile)
		name := base[:len(base)-len(filepath.Ext(base))]
		return filepath.Join(baseDir, name, ts)
	}
	return filepath.Join(baseDir, "live_"+ts)
}
