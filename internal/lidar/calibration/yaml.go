package calibration

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/velodyne-rawdata/internal/lidar/velodyne"
)

type yamlFile struct {
	NumLasers          *int          `yaml:"num_lasers"`
	DistanceResolution *float64      `yaml:"distance_resolution"`
	Lasers             []laserRecord `yaml:"lasers"`
}

// ParseYAML parses a calibration document with a top level lasers list.
func ParseYAML(data []byte) (*velodyne.CalibrationTable, error) {
	var doc yamlFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse calibration YAML: %w", err)
	}

	if err := checkDistanceResolution(doc.DistanceResolution); err != nil {
		return nil, err
	}
	if len(doc.Lasers) == 0 {
		return nil, fmt.Errorf("calibration YAML has no lasers")
	}
	if doc.NumLasers != nil && *doc.NumLasers != len(doc.Lasers) {
		return nil, fmt.Errorf("%w: num_lasers %d, %d entries", ErrLaserCountMismatch, *doc.NumLasers, len(doc.Lasers))
	}

	diagf("parsing %d YAML laser entries", len(doc.Lasers))
	return build(doc.Lasers, func(i int) string {
		return fmt.Sprintf("lasers[%d]", i)
	})
}
