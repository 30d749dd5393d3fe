package velodyne

import "fmt"

// Decoder turns raw packets into points using a fixed calibration table and
// window. Build one per session with NewDecoder.
type Decoder struct {
	calibration *CalibrationTable
	window      Window
	trig        *TrigCache
	twoPoint    TwoPointReference
}

// Option customises a Decoder.
type Option func(*Decoder)

// WithTwoPointReference overrides the two-point interpolation distances.
func WithTwoPointReference(ref TwoPointReference) Option {
	return func(d *Decoder) {
		d.twoPoint = ref
	}
}

// NewDecoder checks the calibration table and builds the trig cache. It fails
// with ErrCalibrationUnavailable if the table is missing, not initialized or
// inconsistent, and with ErrInvalidTwoPointReference for a bad reference.
func NewDecoder(calibration *CalibrationTable, window Window, opts ...Option) (*Decoder, error) {
	if calibration == nil {
		return nil, fmt.Errorf("%w: no calibration table", ErrCalibrationUnavailable)
	}
	if !calibration.Initialized {
		return nil, fmt.Errorf("%w: calibration table not initialized", ErrCalibrationUnavailable)
	}
	if err := calibration.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCalibrationUnavailable, err)
	}

	d := &Decoder{
		calibration: calibration,
		window:      window,
		twoPoint:    DefaultTwoPointReference,
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.twoPoint.Validate(); err != nil {
		return nil, err
	}
	d.trig = BuildTrigCache()

	opsf("decoder ready: %d lasers, raw azimuth [%d, %d], range [%.3f, %.3f] m",
		calibration.NumLasers, window.MinAngle, window.MaxAngle, window.MinRange, window.MaxRange)
	return d, nil
}

// Window returns the window the decoder gates with.
func (d *Decoder) Window() Window {
	return d.window
}

// Calibration returns the decoder's calibration table. Callers must not modify it.
func (d *Decoder) Calibration() *CalibrationTable {
	return d.calibration
}

// Unpack decodes one packet and appends every accepted point to pc, in wire
// order. A packet of the wrong size is rejected with ErrInvalidPacketSize and
// nothing is appended. Blocks whose header is neither UPPER_BANK nor
// LOWER_BANK are skipped rather than decoded as upper bank, and so are blocks
// with an azimuth of ROTATION_MAX_UNITS or more.
func (d *Decoder) Unpack(data []byte, pc *PointCloud) error {
	if err := checkPacketSize(data); err != nil {
		return err
	}

	for i := 0; i < BLOCKS_PER_PACKET; i++ {
		block := blockBytes(data, i)

		bank := bankOf(blockHeader(block))
		if bank == BankUnknown {
			diagf("block %d: unknown bank header 0x%04X, skipped", i, blockHeader(block))
			continue
		}

		azimuth := blockAzimuth(block)
		if azimuth >= ROTATION_MAX_UNITS {
			tracef("block %d: azimuth %d out of range, skipped", i, azimuth)
			continue
		}
		if !d.window.AcceptsAzimuth(azimuth) {
			continue
		}

		origin := bank.Origin()
		for j := 0; j < SCANS_PER_BLOCK; j++ {
			laser := j + origin
			if !d.calibration.Has(laser) {
				continue
			}

			point, distance := correctReading(d.trig, d.twoPoint, d.calibration.Channel(laser), readingAt(block, j), azimuth)
			if !d.window.PointInRange(distance) {
				continue
			}
			pc.Append(point)
		}
	}

	return nil
}
