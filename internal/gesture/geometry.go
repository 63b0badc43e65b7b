package gesture

import (
	"math"

	"github.com/ayusman/mudra/internal/detector"
)

// Fixed thresholds in normalized image units.
const (
	// ThumbVerticalMargin is how far the thumb tip must clear the thumb IP
	// joint (thumbs up) or the palm center (thumbs down).
	ThumbVerticalMargin = 0.05

	// MinTwoFingerSpread is the minimum index-to-middle fingertip distance
	// for a TWO; closer tips are treated as one merged finger.
	MinTwoFingerSpread = 0.05

	// ThumbLateralThreshold is the minimum horizontal distance between the
	// thumb tip and the palm center for the thumb to count as extended.
	ThumbLateralThreshold = 0.05

	// FingerExtensionMargin is how much farther from the wrist a fingertip
	// must be than its MCP joint.
	FingerExtensionMargin = 0.04
)

// finger identifies one of the four non-thumb fingers by its landmark indices.
type finger struct {
	name          string
	mcp, pip, tip int
}

var fingers = [4]finger{
	{"index", detector.IndexMCP, detector.IndexPIP, detector.IndexTip},
	{"middle", detector.MiddleMCP, detector.MiddlePIP, detector.MiddleTip},
	{"ring", detector.RingMCP, detector.RingPIP, detector.RingTip},
	{"pinky", detector.PinkyMCP, detector.PinkyPIP, detector.PinkyTip},
}

// distance is the 2D Euclidean distance in the image plane. Depth is ignored,
// the model's Z estimate is too noisy for these rules.
func distance(a, b detector.Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// palmCenter uses the middle finger MCP as the palm reference point.
func palmCenter(h *detector.HandLandmarks) detector.Point3D {
	return h.Points[detector.MiddleMCP]
}

// fingerExtended reports whether a finger is both farther from the wrist than
// its knuckle and straight (tip above the PIP joint).
func fingerExtended(h *detector.HandLandmarks, f finger) bool {
	wrist := h.Points[detector.Wrist]
	tip := h.Points[f.tip]
	farther := distance(tip, wrist) > distance(h.Points[f.mcp], wrist)+FingerExtensionMargin
	straight := tip.Y < h.Points[f.pip].Y
	return farther && straight
}

// thumbExtended checks lateral abduction only: the thumb moves sideways away
// from the palm rather than up.
func thumbExtended(h *detector.HandLandmarks) bool {
	return math.Abs(h.Points[detector.ThumbTip].X-palmCenter(h).X) > ThumbLateralThreshold
}

// thumbPointsOutward compares the thumb tip with the IP joint along the
// handedness-adjusted outward direction. Without a handedness label the thumb
// side is taken from the wrist and the middle finger knuckle: a wrist left of
// the knuckle puts the thumb on the left.
func thumbPointsOutward(h *detector.HandLandmarks) bool {
	tip := h.Points[detector.ThumbTip].X
	ip := h.Points[detector.ThumbIP].X

	var outwardIsRight bool
	switch h.Handedness {
	case detector.HandRight:
		outwardIsRight = true
	case detector.HandLeft:
		outwardIsRight = false
	default:
		outwardIsRight = h.Points[detector.Wrist].X >= h.Points[detector.MiddleMCP].X
	}

	if outwardIsRight {
		return tip > ip
	}
	return tip < ip
}

// spread is the distance between two landmarks, typically fingertips.
func spread(h *detector.HandLandmarks, a, b int) float64 {
	return distance(h.Points[a], h.Points[b])
}
