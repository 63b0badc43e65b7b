package gesture

import "github.com/ayusman/mudra/internal/detector"

// Features are the geometric facts the rules are evaluated against.
type Features struct {
	Index  bool `json:"index"`
	Middle bool `json:"middle"`
	Ring   bool `json:"ring"`
	Pinky  bool `json:"pinky"`

	ThumbExtended bool `json:"thumb_extended"`

	// ThumbOutward is the handedness-aware thumb direction. It is reported
	// for diagnostics only; no rule reads it, so handedness never changes a
	// label. The thumb rules use the lateral ThumbExtended test, which works
	// the same for either hand and for mirrored frames.
	ThumbOutward bool `json:"thumb_outward"`

	// FingerCount is the number of extended non-thumb fingers.
	FingerCount int `json:"finger_count"`

	// Spread is the index to middle fingertip distance.
	Spread float64 `json:"spread"`
}

// Analyze computes the features of a hand. A nil hand yields zero Features.
func Analyze(hand *detector.HandLandmarks) Features {
	if hand == nil {
		return Features{}
	}

	var ext [4]bool
	count := 0
	for i, f := range fingers {
		ext[i] = fingerExtended(hand, f)
		if ext[i] {
			count++
		}
	}

	return Features{
		Index:         ext[0],
		Middle:        ext[1],
		Ring:          ext[2],
		Pinky:         ext[3],
		ThumbExtended: thumbExtended(hand),
		ThumbOutward:  thumbPointsOutward(hand),
		FingerCount:   count,
		Spread:        spread(hand, detector.IndexTip, detector.MiddleTip),
	}
}

// Rule maps a predicate over a hand to a label.
type Rule struct {
	Name  string
	Label Label
	Match func(h *detector.HandLandmarks, f Features) bool
}

// rules are evaluated in order and the first match wins. Thumb gestures come
// first: a lone raised thumb must never be read as ONE.
var rules = []Rule{
	{
		Name:  "thumbs-up",
		Label: ThumbsUp,
		Match: func(h *detector.HandLandmarks, f Features) bool {
			tip := h.Points[detector.ThumbTip]
			return f.ThumbExtended && f.FingerCount == 0 &&
				tip.Y < h.Points[detector.Wrist].Y &&
				tip.Y < h.Points[detector.ThumbIP].Y-ThumbVerticalMargin
		},
	},
	{
		Name:  "thumbs-down",
		Label: ThumbsDown,
		Match: func(h *detector.HandLandmarks, f Features) bool {
			return f.ThumbExtended && f.FingerCount == 0 &&
				h.Points[detector.ThumbTip].Y > palmCenter(h).Y+ThumbVerticalMargin
		},
	},
	{
		Name:  "one",
		Label: One,
		Match: func(_ *detector.HandLandmarks, f Features) bool {
			return f.FingerCount == 1 && f.Index && !f.ThumbExtended
		},
	},
	{
		Name:  "two",
		Label: Two,
		Match: func(_ *detector.HandLandmarks, f Features) bool {
			return f.FingerCount == 2 && f.Index && f.Middle && f.Spread > MinTwoFingerSpread
		},
	},
	{
		Name:  "open",
		Label: Open,
		Match: func(_ *detector.HandLandmarks, f Features) bool {
			return f.FingerCount >= 4 && f.ThumbExtended
		},
	},
	{
		Name:  "closed",
		Label: Closed,
		Match: func(_ *detector.HandLandmarks, f Features) bool {
			return f.FingerCount == 0 && !f.ThumbExtended
		},
	},
}

// Rules returns a copy of the ranked rule list.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Classify returns the gesture shown by a hand, or None for a nil hand.
func Classify(hand *detector.HandLandmarks) Label {
	if hand == nil {
		return None
	}

	f := Analyze(hand)
	for _, r := range rules {
		if r.Match(hand, f) {
			return r.Label
		}
	}
	return Unknown
}

// ClassifyPoints classifies a raw point slice. Empty or malformed input is
// reported as None, a bad frame is treated like a missing hand.
func ClassifyPoints(points []detector.Point3D, handedness string) Label {
	if len(points) == 0 {
		return None
	}
	hand, err := detector.FromPoints(points, handedness, 0)
	if err != nil {
		return None
	}
	return Classify(&hand)
}
