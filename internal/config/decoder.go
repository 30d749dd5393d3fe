package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/banshee-data/velodyne-rawdata/internal/lidar/velodyne"
)

// DefaultConfigPath is the path to the canonical decoder defaults file.
const DefaultConfigPath = "config/decoder.defaults.json"

// DecoderConfig is the JSON configuration for the HDL-64E decoder.
// Angles are radians, ranges meters. Either the view parameters or the raw
// min_angle/max_angle pair select the azimuth window; raw bounds win when set.
type DecoderConfig struct {
	CalibrationFile *string `json:"calibration_file,omitempty"`

	// Window params
	MinRange       *float64 `json:"min_range,omitempty"`
	MaxRange       *float64 `json:"max_range,omitempty"`
	ViewCenter     *float64 `json:"view_center,omitempty"`
	LeftMostAngle  *float64 `json:"left_most_angle,omitempty"`
	RightMostAngle *float64 `json:"right_most_angle,omitempty"`
	MinAngle       *int     `json:"min_angle,omitempty"` // raw azimuth units, 0-36000
	MaxAngle       *int     `json:"max_angle,omitempty"`

	UDPPort *int `json:"udp_port,omitempty"`

	TwoPoint *TwoPointConfig `json:"two_point,omitempty"`
}

// TwoPointConfig holds the reference distances for two-point distance
// correction.
type TwoPointConfig struct {
	XNear *float64 `json:"x_near,omitempty"`
	YNear *float64 `json:"y_near,omitempty"`
	Far   *float64 `json:"far,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// EmptyDecoderConfig returns a DecoderConfig with all fields set to nil.
func EmptyDecoderConfig() *DecoderConfig {
	return &DecoderConfig{}
}

// DefaultDecoderConfig returns a config with every field set to its default.
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		CalibrationFile: ptrString(""),
		MinRange:        ptrFloat64(0.9),
		MaxRange:        ptrFloat64(130.0),
		ViewCenter:      ptrFloat64(0),
		LeftMostAngle:   ptrFloat64(math.Pi),
		RightMostAngle:  ptrFloat64(math.Pi),
		UDPPort:         ptrInt(2368),
		TwoPoint: &TwoPointConfig{
			XNear: ptrFloat64(velodyne.DefaultTwoPointReference.XNear),
			YNear: ptrFloat64(velodyne.DefaultTwoPointReference.YNear),
			Far:   ptrFloat64(velodyne.DefaultTwoPointReference.Far),
		},
	}
}

// LoadDecoderConfig loads a DecoderConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted from
// the file fall back to the Get* defaults.
func LoadDecoderConfig(path string) (*DecoderConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyDecoderConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *DecoderConfig) Validate() error {
	if c.MinRange != nil && *c.MinRange < 0 {
		return fmt.Errorf("min_range must be non-negative, got %f", *c.MinRange)
	}
	if c.GetMinRange() > c.GetMaxRange() {
		return fmt.Errorf("min_range %f exceeds max_range %f", c.GetMinRange(), c.GetMaxRange())
	}

	for name, v := range map[string]*float64{
		"view_center":      c.ViewCenter,
		"left_most_angle":  c.LeftMostAngle,
		"right_most_angle": c.RightMostAngle,
	} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return fmt.Errorf("%s must be finite", name)
		}
	}

	if (c.MinAngle == nil) != (c.MaxAngle == nil) {
		return fmt.Errorf("min_angle and max_angle must be set together")
	}
	if c.MinAngle != nil {
		for name, v := range map[string]int{"min_angle": *c.MinAngle, "max_angle": *c.MaxAngle} {
			if v < 0 || v > velodyne.ROTATION_MAX_UNITS {
				return fmt.Errorf("%s must be between 0 and %d, got %d", name, velodyne.ROTATION_MAX_UNITS, v)
			}
		}
	}

	if c.UDPPort != nil && (*c.UDPPort < 0 || *c.UDPPort > 65535) {
		return fmt.Errorf("udp_port must be between 0 and 65535, got %d", *c.UDPPort)
	}

	if err := c.TwoPointReference().Validate(); err != nil {
		return fmt.Errorf("two_point: %w", err)
	}

	return nil
}

// GetCalibrationFile returns the calibration_file value or "".
func (c *DecoderConfig) GetCalibrationFile() string {
	if c.CalibrationFile == nil {
		return ""
	}
	return *c.CalibrationFile
}

// GetMinRange returns the min_range value or the default.
func (c *DecoderConfig) GetMinRange() float64 {
	if c.MinRange == nil {
		return 0.9
	}
	return *c.MinRange
}

// GetMaxRange returns the max_range value or the default.
func (c *DecoderConfig) GetMaxRange() float64 {
	if c.MaxRange == nil {
		return 130.0
	}
	return *c.MaxRange
}

func (c *DecoderConfig) GetViewCenter() float64 {
	if c.ViewCenter == nil {
		return 0
	}
	return *c.ViewCenter
}

func (c *DecoderConfig) GetLeftMostAngle() float64 {
	if c.LeftMostAngle == nil {
		return math.Pi
	}
	return *c.LeftMostAngle
}

func (c *DecoderConfig) GetRightMostAngle() float64 {
	if c.RightMostAngle == nil {
		return math.Pi
	}
	return *c.RightMostAngle
}

// GetUDPPort returns the udp_port value or the sensor's default data port.
func (c *DecoderConfig) GetUDPPort() int {
	if c.UDPPort == nil {
		return 2368
	}
	return *c.UDPPort
}

// Window builds the decoder window. Raw bounds take precedence over the
// view parameters.
func (c *DecoderConfig) Window() velodyne.Window {
	if c.MinAngle != nil && c.MaxAngle != nil {
		return velodyne.NewRawWindow(c.GetMinRange(), c.GetMaxRange(), *c.MinAngle, *c.MaxAngle)
	}
	return velodyne.SetParameters(c.GetMinRange(), c.GetMaxRange(), c.GetViewCenter(), c.GetLeftMostAngle(), c.GetRightMostAngle())
}

// TwoPointReference returns the configured references, field by field
// falling back to the sensor defaults.
func (c *DecoderConfig) TwoPointReference() velodyne.TwoPointReference {
	ref := velodyne.DefaultTwoPointReference
	if c.TwoPoint == nil {
		return ref
	}
	if c.TwoPoint.XNear != nil {
		ref.XNear = *c.TwoPoint.XNear
	}
	if c.TwoPoint.YNear != nil {
		ref.YNear = *c.TwoPoint.YNear
	}
	if c.TwoPoint.Far != nil {
		ref.Far = *c.TwoPoint.Far
	}
	return ref
}
