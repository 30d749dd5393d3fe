package velodyne

import "math"

// TrigCache holds cos and sin for every raw azimuth value, so the decode loop
// indexes a table instead of calling math.Cos/math.Sin per point.
type TrigCache struct {
	Cos [ROTATION_MAX_UNITS]float64
	Sin [ROTATION_MAX_UNITS]float64
}

// BuildTrigCache computes the table for all ROTATION_MAX_UNITS headings.
func BuildTrigCache() *TrigCache {
	tc := &TrigCache{}
	for i := 0; i < ROTATION_MAX_UNITS; i++ {
		rotation := ROTATION_RESOLUTION * float64(i) * math.Pi / 180.0
		tc.Cos[i] = math.Cos(rotation)
		tc.Sin[i] = math.Sin(rotation)
	}
	return tc
}
