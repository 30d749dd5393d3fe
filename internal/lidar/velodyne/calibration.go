package velodyne

import (
	"fmt"
	"math"
)

// ChannelCorrection contains the calibration parameters for one laser.
// Angles are radians, offsets and distances are meters.
type ChannelCorrection struct {
	LaserID int

	RotCorrection     float64 // Horizontal angle relative to the block azimuth
	CosRotCorrection  float64
	SinRotCorrection  float64
	VertCorrection    float64 // Elevation of the beam
	CosVertCorrection float64
	SinVertCorrection float64

	HorizOffsetCorrection float64
	VertOffsetCorrection  float64

	DistCorrection           float64
	TwoPtCorrectionAvailable bool
	DistCorrectionX          float64
	DistCorrectionY          float64

	MinIntensity  float64
	MaxIntensity  float64
	FocalDistance float64
	FocalSlope    float64

	LaserRing uint8 // Output ring, ordered by elevation
}

// CacheTrig fills the cached sine and cosine of the rotational and vertical
// corrections. Loaders call it once after setting the angles.
func (c *ChannelCorrection) CacheTrig() {
	c.CosRotCorrection = math.Cos(c.RotCorrection)
	c.SinRotCorrection = math.Sin(c.RotCorrection)
	c.CosVertCorrection = math.Cos(c.VertCorrection)
	c.SinVertCorrection = math.Sin(c.VertCorrection)
}

// CalibrationTable maps laser ids to their corrections. The arena is indexed
// directly by laser id; the table is read-only once Initialized is set.
type CalibrationTable struct {
	Lasers      [NUM_CHANNELS]ChannelCorrection
	present     [NUM_CHANNELS]bool
	NumLasers   int
	Initialized bool
}

// NewCalibrationTable returns an empty, uninitialized table.
func NewCalibrationTable() *CalibrationTable {
	return &CalibrationTable{}
}

// Set stores a correction under its LaserID and caches its trig values.
func (t *CalibrationTable) Set(c ChannelCorrection) error {
	if c.LaserID < 0 || c.LaserID >= NUM_CHANNELS {
		return fmt.Errorf("%w: %d (valid 0-%d)", ErrInvalidChannel, c.LaserID, NUM_CHANNELS-1)
	}
	if t.present[c.LaserID] {
		return fmt.Errorf("%w: %d", ErrDuplicateChannel, c.LaserID)
	}
	c.CacheTrig()
	t.Lasers[c.LaserID] = c
	t.present[c.LaserID] = true
	t.NumLasers++
	return nil
}

// Has reports whether the table holds a correction for id.
func (t *CalibrationTable) Has(id int) bool {
	return id >= 0 && id < NUM_CHANNELS && t.present[id]
}

// Channel returns the correction for id. The caller must check Has first.
func (t *CalibrationTable) Channel(id int) *ChannelCorrection {
	return &t.Lasers[id]
}

// Validate checks that rings form a permutation of [0, NumLasers) and that
// intensity bounds fit in a byte.
func (t *CalibrationTable) Validate() error {
	if t.NumLasers == 0 {
		return fmt.Errorf("calibration table has no lasers")
	}

	var seen [NUM_CHANNELS]bool
	for id := 0; id < NUM_CHANNELS; id++ {
		if !t.present[id] {
			continue
		}
		c := &t.Lasers[id]

		ring := int(c.LaserRing)
		if ring >= t.NumLasers {
			return fmt.Errorf("laser %d: ring %d out of range (0-%d)", id, ring, t.NumLasers-1)
		}
		if seen[ring] {
			return fmt.Errorf("laser %d: ring %d assigned twice", id, ring)
		}
		seen[ring] = true

		if c.MinIntensity < 0 || c.MaxIntensity > 255 || c.MinIntensity > c.MaxIntensity {
			return fmt.Errorf("laser %d: invalid intensity bounds [%g, %g]", id, c.MinIntensity, c.MaxIntensity)
		}
	}
	return nil
}
