package calibration

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/velodyne-rawdata/internal/lidar/velodyne"
)

// csvColumns is the required header, in order.
var csvColumns = []string{
	"laser_id",
	"rot_correction",
	"vert_correction",
	"dist_correction",
	"two_pt_correction_available",
	"dist_correction_x",
	"dist_correction_y",
	"vert_offset_correction",
	"horiz_offset_correction",
	"max_intensity",
	"min_intensity",
	"focal_distance",
	"focal_slope",
}

// ParseCSV parses a calibration table with one laser per row. Empty
// intensity cells take the defaults.
func ParseCSV(data []byte) (*velodyne.CalibrationTable, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration CSV: %w", err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("insufficient data in calibration CSV")
	}

	header := records[0]
	if len(header) != len(csvColumns) {
		return nil, fmt.Errorf("invalid header in calibration CSV, expected: %s", strings.Join(csvColumns, ","))
	}
	for i, name := range csvColumns {
		if strings.ToLower(strings.TrimSpace(header[i])) != name {
			return nil, fmt.Errorf("invalid header column %d %q, expected %q", i+1, header[i], name)
		}
	}

	lasers := make([]laserRecord, 0, len(records)-1)
	for i, record := range records[1:] {
		line := i + 2
		if len(record) != len(csvColumns) {
			return nil, fmt.Errorf("invalid record at line %d: expected %d fields", line, len(csvColumns))
		}
		r, err := parseCSVRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		lasers = append(lasers, r)
	}

	diagf("parsing %d CSV laser rows", len(lasers))
	return build(lasers, func(i int) string {
		return fmt.Sprintf("line %d", i+2)
	})
}

func parseCSVRecord(record []string) (laserRecord, error) {
	var r laserRecord

	id, err := strconv.Atoi(strings.TrimSpace(record[0]))
	if err != nil {
		return r, fmt.Errorf("invalid laser_id: %w", err)
	}
	r.LaserID = &id

	r.TwoPtCorrectionAvailable, err = strconv.ParseBool(strings.TrimSpace(record[4]))
	if err != nil {
		return r, fmt.Errorf("invalid two_pt_correction_available: %w", err)
	}

	floats := []struct {
		col int
		dst *float64
	}{
		{1, &r.RotCorrection},
		{2, &r.VertCorrection},
		{3, &r.DistCorrection},
		{5, &r.DistCorrectionX},
		{6, &r.DistCorrectionY},
		{7, &r.VertOffsetCorrection},
		{8, &r.HorizOffsetCorrection},
		{11, &r.FocalDistance},
		{12, &r.FocalSlope},
	}
	for _, f := range floats {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[f.col]), 64)
		if err != nil {
			return r, fmt.Errorf("invalid %s: %w", csvColumns[f.col], err)
		}
		*f.dst = v
	}

	if r.MaxIntensity, err = optionalFloat(record[9]); err != nil {
		return r, fmt.Errorf("invalid max_intensity: %w", err)
	}
	if r.MinIntensity, err = optionalFloat(record[10]); err != nil {
		return r, fmt.Errorf("invalid min_intensity: %w", err)
	}
	return r, nil
}

func optionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
