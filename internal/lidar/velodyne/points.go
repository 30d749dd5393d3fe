package velodyne

// Point is a corrected return in the output frame.
type Point struct {
	X         float64
	Y         float64
	Z         float64
	Intensity uint8
	Ring      uint8
}

// PointCloud accumulates decoded points. It is owned by the caller; the
// decoder only appends.
type PointCloud struct {
	Points []Point
	Width  int
}

// NewPointCloud returns an empty cloud with room for capacity points.
func NewPointCloud(capacity int) *PointCloud {
	return &PointCloud{Points: make([]Point, 0, capacity)}
}

// Append adds p and bumps the running count.
func (pc *PointCloud) Append(p Point) {
	pc.Points = append(pc.Points, p)
	pc.Width++
}

// Len returns the number of points collected.
func (pc *PointCloud) Len() int {
	return pc.Width
}

// Reset empties the cloud while keeping its backing storage for reuse.
func (pc *PointCloud) Reset() {
	pc.Points = pc.Points[:0]
	pc.Width = 0
}
