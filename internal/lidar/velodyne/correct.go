package velodyne

import (
	"fmt"
	"math"
)

// Focal intensity model constants.
const (
	focalNormalization = 13100.0 // Focal distance that zeroes the focal offset
	focalScale         = 256.0
	maxRawRange        = 65535.0
)

// TwoPointReference holds the reference distances (meters) between which the
// per-laser X/Y distance corrections are interpolated. The defaults match the
// HDL-64E factory calibration convention.
type TwoPointReference struct {
	XNear float64
	YNear float64
	Far   float64
}

// DefaultTwoPointReference is the reference used by factory calibration files.
var DefaultTwoPointReference = TwoPointReference{
	XNear: 2.4,
	YNear: 1.93,
	Far:   25.04,
}

// Validate rejects references that would make the interpolation divide by
// zero or run backwards. NaN fails every comparison and is rejected too.
func (r TwoPointReference) Validate() error {
	if !(r.Far > r.XNear) || !(r.Far > r.YNear) {
		return fmt.Errorf("%w: near references x %g, y %g must be below far %g",
			ErrInvalidTwoPointReference, r.XNear, r.YNear, r.Far)
	}
	return nil
}

// twoPointCorrection interpolates the X and Y distance corrections for a
// return whose provisional planar offsets are xx and yy. Both are zero when the
// laser has no two-point calibration.
func twoPointCorrection(c *ChannelCorrection, ref TwoPointReference, xx, yy float64) (corrX, corrY float64) {
	if !c.TwoPtCorrectionAvailable {
		return 0, 0
	}
	corrX = (c.DistCorrection-c.DistCorrectionX)*(xx-ref.XNear)/(ref.Far-ref.XNear) + c.DistCorrectionX
	corrY = (c.DistCorrection-c.DistCorrectionY)*(yy-ref.YNear)/(ref.Far-ref.YNear) + c.DistCorrectionY
	return corrX, corrY
}

// correctedIntensity applies the focal-distance compensation to a raw
// reflectivity and clamps the result to the laser's intensity bounds.
func correctedIntensity(c *ChannelCorrection, r RawReading) uint8 {
	intensity := float64(r.Reflectivity)

	focal := 1 - c.FocalDistance/focalNormalization
	focalOffset := focalScale * focal * focal
	rangeTerm := 1 - float64(r.Range)/maxRawRange
	intensity += c.FocalSlope * math.Abs(focalOffset-focalScale*rangeTerm*rangeTerm)

	if intensity < c.MinIntensity {
		intensity = c.MinIntensity
	}
	if intensity > c.MaxIntensity {
		intensity = c.MaxIntensity
	}
	return uint8(intensity)
}

// correctReading converts one raw reading into a point in the output frame
// (X forward, Y left, Z up). It also returns the corrected distance used by the
// range gate.
func correctReading(trig *TrigCache, ref TwoPointReference, c *ChannelCorrection, r RawReading, azimuth uint16) (Point, float64) {
	distance := float64(r.Range)*DISTANCE_RESOLUTION + c.DistCorrection

	// cos(a-b) = cos(a)*cos(b) + sin(a)*sin(b)
	// sin(a-b) = sin(a)*cos(b) - cos(a)*sin(b)
	cosAz := trig.Cos[azimuth]
	sinAz := trig.Sin[azimuth]
	cosRot := cosAz*c.CosRotCorrection + sinAz*c.SinRotCorrection
	sinRot := sinAz*c.CosRotCorrection - cosAz*c.SinRotCorrection

	horizOffset := c.HorizOffsetCorrection

	// Provisional planar offsets, only used as the interpolation input.
	xyDistance := distance * c.CosVertCorrection
	xx := math.Abs(xyDistance*sinRot - horizOffset*cosRot)
	yy := math.Abs(xyDistance*cosRot + horizOffset*sinRot)

	corrX, corrY := twoPointCorrection(c, ref, xx, yy)

	xyDistance = (distance + corrX) * c.CosVertCorrection
	x := xyDistance*sinRot + horizOffset*cosRot

	xyDistance = (distance + corrY) * c.CosVertCorrection
	y := xyDistance*cosRot + horizOffset*sinRot

	z := distance*c.SinVertCorrection + c.VertOffsetCorrection

	return Point{
		X:         y,
		Y:         -x,
		Z:         z,
		Intensity: correctedIntensity(c, r),
		Ring:      c.LaserRing,
	}, distance
}
