package lidardb

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/velodyne-rawdata/internal/lidar/velodyne"
)

// CloudSummary describes a set of decoded points. Distances are measured
// from the sensor origin.
type CloudSummary struct {
	Points         int
	MeanDistance   float64
	StdDevDistance float64
	MeanIntensity  float64
	MinX, MaxX     float64
	MinY, MaxY     float64
	MinZ, MaxZ     float64
}

// SummarizeCloud computes distance and intensity statistics and axis bounds.
// An empty input yields a zero summary.
func SummarizeCloud(points []velodyne.Point) CloudSummary {
	if len(points) == 0 {
		return CloudSummary{}
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	zs := make([]float64, len(points))
	dist := make([]float64, len(points))
	intensity := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i], zs[i] = p.X, p.Y, p.Z
		dist[i] = math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
		intensity[i] = float64(p.Intensity)
	}

	s := CloudSummary{
		Points:        len(points),
		MeanIntensity: stat.Mean(intensity, nil),
		MinX:          floats.Min(xs),
		MaxX:          floats.Max(xs),
		MinY:          floats.Min(ys),
		MaxY:          floats.Max(ys),
		MinZ:          floats.Min(zs),
		MaxZ:          floats.Max(zs),
	}
	if len(points) > 1 {
		s.MeanDistance, s.StdDevDistance = stat.MeanStdDev(dist, nil)
	} else {
		s.MeanDistance = dist[0]
	}
	return s
}
