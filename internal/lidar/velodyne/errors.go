package velodyne

import "errors"

var (
	// ErrCalibrationUnavailable is returned when a decoder is built without an
	// initialized calibration table.
	ErrCalibrationUnavailable = errors.New("calibration unavailable")

	// ErrInvalidPacketSize is returned when a buffer is not exactly PACKET_SIZE bytes.
	ErrInvalidPacketSize = errors.New("invalid packet size")

	// ErrInvalidChannel is returned for laser ids outside [0, NUM_CHANNELS).
	ErrInvalidChannel = errors.New("invalid channel id")

	// ErrDuplicateChannel is returned when a table already holds a laser id.
	ErrDuplicateChannel = errors.New("duplicate channel id")

	// ErrInvalidTwoPointReference is returned when a two-point reference has a
	// near distance at or beyond the far distance.
	ErrInvalidTwoPointReference = errors.New("invalid two-point reference")
)
