package velodyne

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTrigCache_KnownAngles(t *testing.T) {
	tc := BuildTrigCache()

	testCases := []struct {
		index    int
		cos, sin float64
	}{
		{0, 1, 0},
		{9000, 0, 1},
		{18000, -1, 0},
		{27000, 0, -1},
		{4500, math.Sqrt2 / 2, math.Sqrt2 / 2},
	}
	for _, c := range testCases {
		assert.InDelta(t, c.cos, tc.Cos[c.index], 1e-12, "cos[%d]", c.index)
		assert.InDelta(t, c.sin, tc.Sin[c.index], 1e-12, "sin[%d]", c.index)
	}

	assert.Equal(t, *tc, *BuildTrigCache(), "trig cache must be deterministic")
}

func TestTwoPointCorrection_Unavailable(t *testing.T) {
	c := &ChannelCorrection{
		DistCorrection:  1.2,
		DistCorrectionX: 0.7,
		DistCorrectionY: -0.3,
	}
	for _, v := range []float64{0, 2.4, 10, 25.04, 300} {
		x, y := twoPointCorrection(c, DefaultTwoPointReference, v, v)
		assert.Zero(t, x)
		assert.Zero(t, y)
	}
}

func TestTwoPointCorrection_ReferencePoints(t *testing.T) {
	c := &ChannelCorrection{
		DistCorrection:           1.2,
		DistCorrectionX:          0.7,
		DistCorrectionY:          -0.3,
		TwoPtCorrectionAvailable: true,
	}

	// At the near references the corrections are exactly the per-axis values.
	x, y := twoPointCorrection(c, DefaultTwoPointReference, 2.4, 1.93)
	assert.Equal(t, 0.7, x)
	assert.Equal(t, -0.3, y)

	// At the far reference both converge on the base correction.
	x, y = twoPointCorrection(c, DefaultTwoPointReference, 25.04, 25.04)
	assert.InDelta(t, 1.2, x, 1e-12)
	assert.InDelta(t, 1.2, y, 1e-12)

	// Custom references shift the interpolation.
	ref := TwoPointReference{XNear: 1, YNear: 1, Far: 11}
	x, _ = twoPointCorrection(c, ref, 6, 6)
	assert.InDelta(t, 0.95, x, 1e-12)
}

func TestCorrectedIntensity_Clamp(t *testing.T) {
	c := &ChannelCorrection{MinIntensity: 10, MaxIntensity: 200}

	assert.Equal(t, uint8(10), correctedIntensity(c, RawReading{Range: 1000, Reflectivity: 0}))
	assert.Equal(t, uint8(10), correctedIntensity(c, RawReading{Range: 1000, Reflectivity: 9}))
	assert.Equal(t, uint8(120), correctedIntensity(c, RawReading{Range: 1000, Reflectivity: 120}))
	assert.Equal(t, uint8(200), correctedIntensity(c, RawReading{Range: 1000, Reflectivity: 255}))

	// A steep focal slope pushes the value past the upper bound.
	c.FocalSlope = 100
	assert.Equal(t, uint8(200), correctedIntensity(c, RawReading{Range: 30000, Reflectivity: 50}))
}

func TestCorrectedIntensity_FocalOffset(t *testing.T) {
	c := &ChannelCorrection{MaxIntensity: 255, FocalSlope: 1}

	// focal_distance 0 gives a 256 focal offset; raw range 1000 contributes
	// 256*(1-1000/65535)^2, leaving |offset - term| ≈ 7.753.
	assert.Equal(t, uint8(57), correctedIntensity(c, RawReading{Range: 1000, Reflectivity: 50}))

	// A focal distance of 13100 zeroes the focal offset.
	c.FocalDistance = 13100
	assert.Equal(t, uint8(50), correctedIntensity(c, RawReading{Range: 65535, Reflectivity: 50}))
}

func TestCorrectReading_StraightAhead(t *testing.T) {
	trig := BuildTrigCache()
	c := &ChannelCorrection{MaxIntensity: 255, LaserRing: 7}
	c.CacheTrig()

	p, distance := correctReading(trig, DefaultTwoPointReference, c, RawReading{Range: 5000, Reflectivity: 80}, 0)

	assert.InDelta(t, 10.0, distance, 1e-9)
	assert.InDelta(t, 10.0, p.X, 1e-9)
	assert.InDelta(t, 0.0, p.Y, 1e-9)
	assert.InDelta(t, 0.0, p.Z, 1e-9)
	assert.Equal(t, uint8(80), p.Intensity)
	assert.Equal(t, uint8(7), p.Ring)
}

func TestCorrectReading_AzimuthIsClockwise(t *testing.T) {
	trig := BuildTrigCache()
	c := &ChannelCorrection{MaxIntensity: 255}
	c.CacheTrig()

	// Raw azimuth 90 degrees points to the right of the sensor, which is -Y in
	// the output frame.
	p, _ := correctReading(trig, DefaultTwoPointReference, c, RawReading{Range: 5000}, 9000)
	assert.InDelta(t, 0.0, p.X, 1e-9)
	assert.InDelta(t, -10.0, p.Y, 1e-9)
}

func TestCorrectReading_RotationAndVerticalCorrection(t *testing.T) {
	trig := BuildTrigCache()
	c := &ChannelCorrection{
		RotCorrection:        math.Pi / 2,
		VertCorrection:       math.Pi / 6,
		VertOffsetCorrection: 0.25,
		MaxIntensity:         255,
	}
	c.CacheTrig()

	// A +90 degree rotational correction cancels a raw azimuth of 90 degrees.
	p, distance := correctReading(trig, DefaultTwoPointReference, c, RawReading{Range: 5000}, 9000)
	require.InDelta(t, 10.0, distance, 1e-9)
	assert.InDelta(t, 10*math.Cos(math.Pi/6), p.X, 1e-9)
	assert.InDelta(t, 0.0, p.Y, 1e-9)
	assert.InDelta(t, 10*math.Sin(math.Pi/6)+0.25, p.Z, 1e-9)
}

func TestCorrectReading_HorizontalOffsetKeepsSign(t *testing.T) {
	trig := BuildTrigCache()
	c := &ChannelCorrection{
		HorizOffsetCorrection: 0.5,
		MaxIntensity:          255,
	}
	c.CacheTrig()

	// Straight ahead the provisional X offset is |0 - 0.5| but the final X
	// (output -Y) keeps the offset's sign.
	p, _ := correctReading(trig, DefaultTwoPointReference, c, RawReading{Range: 5000}, 0)
	assert.InDelta(t, 10.0, p.X, 1e-9)
	assert.InDelta(t, -0.5, p.Y, 1e-9)
}

func TestCorrectReading_TwoPointUsesProvisionalMagnitude(t *testing.T) {
	trig := BuildTrigCache()
	c := &ChannelCorrection{
		DistCorrection:           0.1,
		DistCorrectionX:          0.3,
		DistCorrectionY:          0.2,
		TwoPtCorrectionAvailable: true,
		MaxIntensity:             255,
	}
	c.CacheTrig()

	// Pointing backwards (raw 180 degrees) makes the provisional yy negative
	// before the absolute value; the interpolation must see |yy|.
	p, distance := correctReading(trig, DefaultTwoPointReference, c, RawReading{Range: 5000}, 18000)
	require.InDelta(t, 10.1, distance, 1e-9)

	yy := 10.1
	corrY := (0.1-0.2)*(yy-1.93)/(25.04-1.93) + 0.2
	assert.InDelta(t, -(distance + corrY), p.X, 1e-9)
	assert.InDelta(t, 0.0, p.Y, 1e-9)
}
