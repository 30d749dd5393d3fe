// Package calibration loads per-laser correction tables for the HDL-64E
// decoder from YAML or CSV files.
package calibration

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/banshee-data/velodyne-rawdata/internal/lidar/velodyne"
)

const (
	DEFAULT_MIN_INTENSITY = 0   // Used when a laser omits min_intensity
	DEFAULT_MAX_INTENSITY = 255 // Used when a laser omits max_intensity
	MAX_FILE_SIZE         = 1 << 20
)

var (
	ErrUnsupportedFormat  = errors.New("unsupported calibration file format")
	ErrDistanceResolution = errors.New("distance resolution does not match sensor")
	ErrLaserCountMismatch = errors.New("num_lasers does not match laser entries")
)

// laserRecord is one laser entry as read from a file. Optional keys are
// pointers so defaults can be applied.
type laserRecord struct {
	LaserID                  *int     `yaml:"laser_id"`
	RotCorrection            float64  `yaml:"rot_correction"`
	VertCorrection           float64  `yaml:"vert_correction"`
	DistCorrection           float64  `yaml:"dist_correction"`
	TwoPtCorrectionAvailable bool     `yaml:"two_pt_correction_available"`
	DistCorrectionX          float64  `yaml:"dist_correction_x"`
	DistCorrectionY          float64  `yaml:"dist_correction_y"`
	VertOffsetCorrection     float64  `yaml:"vert_offset_correction"`
	HorizOffsetCorrection    float64  `yaml:"horiz_offset_correction"`
	MaxIntensity             *float64 `yaml:"max_intensity"`
	MinIntensity             *float64 `yaml:"min_intensity"`
	FocalDistance            float64  `yaml:"focal_distance"`
	FocalSlope               float64  `yaml:"focal_slope"`
}

func (r laserRecord) correction() velodyne.ChannelCorrection {
	c := velodyne.ChannelCorrection{
		LaserID:                  *r.LaserID,
		RotCorrection:            r.RotCorrection,
		VertCorrection:           r.VertCorrection,
		DistCorrection:           r.DistCorrection,
		TwoPtCorrectionAvailable: r.TwoPtCorrectionAvailable,
		DistCorrectionX:          r.DistCorrectionX,
		DistCorrectionY:          r.DistCorrectionY,
		VertOffsetCorrection:     r.VertOffsetCorrection,
		HorizOffsetCorrection:    r.HorizOffsetCorrection,
		MinIntensity:             DEFAULT_MIN_INTENSITY,
		MaxIntensity:             DEFAULT_MAX_INTENSITY,
		FocalDistance:            r.FocalDistance,
		FocalSlope:               r.FocalSlope,
	}
	if r.MinIntensity != nil {
		c.MinIntensity = *r.MinIntensity
	}
	if r.MaxIntensity != nil {
		c.MaxIntensity = *r.MaxIntensity
	}
	return c
}

// LoadFile reads a calibration file, choosing the parser by extension.
func LoadFile(path string) (*velodyne.CalibrationTable, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" && ext != ".csv" {
		return nil, fmt.Errorf("%w: %q (expected .yaml, .yml or .csv)", ErrUnsupportedFormat, ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat calibration file: %w", err)
	}
	if info.Size() > MAX_FILE_SIZE {
		return nil, fmt.Errorf("calibration file too large: %d bytes (max %d)", info.Size(), MAX_FILE_SIZE)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration file: %w", err)
	}

	var table *velodyne.CalibrationTable
	if ext == ".csv" {
		table, err = ParseCSV(data)
	} else {
		table, err = ParseYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	opsf("loaded %d lasers from %s", table.NumLasers, path)
	return table, nil
}

// build turns parsed records into an initialized table. Rings are assigned
// in order of ascending vertical correction, lowest beam first.
func build(records []laserRecord, describe func(i int) string) (*velodyne.CalibrationTable, error) {
	table := velodyne.NewCalibrationTable()
	for i, r := range records {
		if r.LaserID == nil {
			return nil, fmt.Errorf("%s: missing laser_id", describe(i))
		}
		if err := table.Set(r.correction()); err != nil {
			return nil, fmt.Errorf("%s: %w", describe(i), err)
		}
	}

	assignRings(table)

	if err := table.Validate(); err != nil {
		return nil, err
	}
	table.Initialized = true
	return table, nil
}

func assignRings(table *velodyne.CalibrationTable) {
	ids := make([]int, 0, table.NumLasers)
	for id := 0; id < velodyne.NUM_CHANNELS; id++ {
		if table.Has(id) {
			ids = append(ids, id)
		}
	}

	sort.SliceStable(ids, func(a, b int) bool {
		return table.Channel(ids[a]).VertCorrection < table.Channel(ids[b]).VertCorrection
	})

	for ring, id := range ids {
		table.Channel(id).LaserRing = uint8(ring)
		tracef("laser %d: vert %.5f rad -> ring %d", id, table.Channel(id).VertCorrection, ring)
	}
}

// checkDistanceResolution accepts a missing value or one matching the
// decoder's fixed resolution.
func checkDistanceResolution(res *float64) error {
	if res == nil {
		return nil
	}
	if math.Abs(*res-velodyne.DISTANCE_RESOLUTION) > 1e-9 {
		return fmt.Errorf("%w: %g (want %g)", ErrDistanceResolution, *res, velodyne.DISTANCE_RESOLUTION)
	}
	return nil
}
