package velodyne

import "math"

// Window bounds the readings kept by the decoder. Ranges are meters; angles
// are raw azimuth units. MinAngle > MaxAngle describes a window that wraps
// through zero.
type Window struct {
	MinRange float64
	MaxRange float64
	MinAngle int
	MaxAngle int
}

// FullCircle returns a window that keeps every azimuth.
func FullCircle(minRange, maxRange float64) Window {
	return Window{
		MinRange: minRange,
		MaxRange: maxRange,
		MinAngle: 0,
		MaxAngle: ROTATION_MAX_UNITS,
	}
}

// NewRawWindow builds a window from bounds already in raw azimuth units.
// Equal bounds select the full circle.
func NewRawWindow(minRange, maxRange float64, minAngle, maxAngle int) Window {
	if minAngle == maxAngle {
		return FullCircle(minRange, maxRange)
	}
	return Window{
		MinRange: minRange,
		MaxRange: maxRange,
		MinAngle: minAngle,
		MaxAngle: maxAngle,
	}
}

// SetParameters derives a window from a view direction and the angles to its
// left and right edges, all in radians in the vehicle frame. The hardware
// azimuth runs clockwise, so bounds are mirrored before conversion.
func SetParameters(minRange, maxRange, viewCenter, leftMostAngle, rightMostAngle float64) Window {
	tmpMin := normalizeAngle(viewCenter + leftMostAngle)
	tmpMax := normalizeAngle(viewCenter - rightMostAngle)

	w := NewRawWindow(minRange, maxRange, toRawAzimuth(tmpMin), toRawAzimuth(tmpMax))
	diagf("window: range [%.3f, %.3f] m, raw azimuth [%d, %d]", w.MinRange, w.MaxRange, w.MinAngle, w.MaxAngle)
	return w
}

// normalizeAngle maps any angle into [0, 2π).
func normalizeAngle(a float64) float64 {
	return math.Mod(math.Mod(a, 2*math.Pi)+2*math.Pi, 2*math.Pi)
}

// toRawAzimuth converts a normalized vehicle-frame angle to the nearest raw
// azimuth unit in the hardware frame.
func toRawAzimuth(a float64) int {
	return int(100*(2*math.Pi-a)*180/math.Pi + 0.5)
}

// AcceptsAzimuth reports whether a block at the raw azimuth passes the gate.
func (w Window) AcceptsAzimuth(azimuth uint16) bool {
	az := int(azimuth)
	if w.MinAngle < w.MaxAngle {
		return az >= w.MinAngle && az <= w.MaxAngle
	}
	if w.MinAngle > w.MaxAngle {
		return az <= w.MaxAngle || az >= w.MinAngle
	}
	return false
}

// PointInRange reports whether a corrected distance lies inside the range
// bounds, inclusive at both ends.
func (w Window) PointInRange(distance float64) bool {
	return distance >= w.MinRange && distance <= w.MaxRange
}
