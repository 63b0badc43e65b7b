package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// The fixtures below describe a right hand in a mirrored selfie frame:
// wrist near the bottom of the image, Y decreasing upwards.

// ThumbsUpLandmarks returns a preset HandLandmarks representing a thumbs up gesture.
// The thumb is extended upward while other fingers are curled.
func ThumbsUpLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: HandRight,
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended upward (pointing up, Y decreases going up)
	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.0}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.65, Z: 0.0}
	landmarks.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.50, Z: 0.0}
	landmarks.Points[ThumbTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	setCurledFingers(&landmarks)
	return landmarks
}

// ThumbsDownLandmarks returns a preset HandLandmarks representing a thumbs down gesture.
// The fist is upside down: wrist at the top, thumb pointing towards the bottom of the frame.
func ThumbsDownLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: HandRight,
		Score:      0.93,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.30, Z: 0.0}

	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.35, Z: 0.0}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	landmarks.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.60, Z: 0.0}
	landmarks.Points[ThumbTip] = Point3D{X: 0.58, Y: 0.75, Z: 0.0}

	// Curled fingers, mirrored vertically. The tips sit above their PIP joints
	// but stay close to the wrist, so none of them reads as extended.
	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.40, Z: -0.02}
	landmarks.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.42, Z: -0.05}
	landmarks.Points[IndexDIP] = Point3D{X: 0.52, Y: 0.40, Z: -0.04}
	landmarks.Points[IndexTip] = Point3D{X: 0.50, Y: 0.38, Z: -0.02}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.42, Z: -0.02}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.44, Z: -0.05}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.47, Y: 0.42, Z: -0.04}
	landmarks.Points[MiddleTip] = Point3D{X: 0.45, Y: 0.40, Z: -0.02}

	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.40, Z: -0.02}
	landmarks.Points[RingPIP] = Point3D{X: 0.45, Y: 0.42, Z: -0.05}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.40, Z: -0.04}
	landmarks.Points[RingTip] = Point3D{X: 0.40, Y: 0.38, Z: -0.02}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.38, Z: -0.02}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.40, Z: -0.05}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.38, Y: 0.38, Z: -0.04}
	landmarks.Points[PinkyTip] = Point3D{X: 0.37, Y: 0.37, Z: -0.02}

	return landmarks
}

// OneFingerLandmarks returns a preset HandLandmarks with only the index finger raised
// and the thumb tucked across the palm.
func OneFingerLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: HandRight,
		Score:      0.94,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}
	setTuckedThumb(&landmarks)

	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.56, Y: 0.55, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.56, Y: 0.45, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.56, Y: 0.36, Z: 0.0}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.62, Z: -0.04}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.48, Y: 0.66, Z: -0.04}
	landmarks.Points[MiddleTip] = Point3D{X: 0.47, Y: 0.69, Z: -0.02}

	setCurledRingPinky(&landmarks)
	return landmarks
}

// TwoFingerLandmarks returns a preset HandLandmarks for a "V" sign:
// index and middle fingers raised and spread apart.
func TwoFingerLandmarks() HandLandmarks {
	landmarks := OneFingerLandmarks()

	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.48, Y: 0.53, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.46, Y: 0.43, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.45, Y: 0.34, Z: 0.0}

	return landmarks
}

// MergedTwoLandmarks returns index and middle fingers raised but pressed together,
// a pose that must not be read as TWO.
func MergedTwoLandmarks() HandLandmarks {
	landmarks := TwoFingerLandmarks()

	landmarks.Points[MiddlePIP] = Point3D{X: 0.53, Y: 0.54, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.54, Y: 0.44, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.54, Y: 0.35, Z: 0.0}

	return landmarks
}

// ThreeFingerLandmarks returns index, middle and ring fingers raised with the thumb tucked.
// No gesture is bound to this pose.
func ThreeFingerLandmarks() HandLandmarks {
	landmarks := TwoFingerLandmarks()

	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.44, Y: 0.55, Z: 0.0}
	landmarks.Points[RingDIP] = Point3D{X: 0.43, Y: 0.45, Z: 0.0}
	landmarks.Points[RingTip] = Point3D{X: 0.42, Y: 0.37, Z: 0.0}

	return landmarks
}

// ClosedFistLandmarks returns a preset HandLandmarks for a fist with the thumb
// folded over the curled fingers.
func ClosedFistLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: HandRight,
		Score:      0.96,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.0}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.56, Y: 0.70, Z: -0.02}
	landmarks.Points[ThumbIP] = Point3D{X: 0.54, Y: 0.66, Z: -0.04}
	landmarks.Points[ThumbTip] = Point3D{X: 0.51, Y: 0.67, Z: -0.05}

	setCurledFingers(&landmarks)
	return landmarks
}

// OpenPalmLandmarks returns a preset HandLandmarks representing an open palm gesture.
// All fingers are extended outward.
func OpenPalmLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: HandRight,
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended to the side
	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	landmarks.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	landmarks.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	landmarks.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return landmarks
}

// setCurledFingers places the four fingers in a fist below the knuckles.
func setCurledFingers(l *HandLandmarks) {
	l.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.70, Z: -0.02}
	l.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.68, Z: -0.05}
	l.Points[IndexDIP] = Point3D{X: 0.52, Y: 0.70, Z: -0.04}
	l.Points[IndexTip] = Point3D{X: 0.50, Y: 0.72, Z: -0.02}

	l.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.68, Z: -0.02}
	l.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.66, Z: -0.05}
	l.Points[MiddleDIP] = Point3D{X: 0.47, Y: 0.68, Z: -0.04}
	l.Points[MiddleTip] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}

	l.Points[RingMCP] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}
	l.Points[RingPIP] = Point3D{X: 0.45, Y: 0.68, Z: -0.05}
	l.Points[RingDIP] = Point3D{X: 0.42, Y: 0.70, Z: -0.04}
	l.Points[RingTip] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}

	l.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}
	l.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.70, Z: -0.05}
	l.Points[PinkyDIP] = Point3D{X: 0.37, Y: 0.72, Z: -0.04}
	l.Points[PinkyTip] = Point3D{X: 0.35, Y: 0.74, Z: -0.02}
}

func setCurledRingPinky(l *HandLandmarks) {
	l.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	l.Points[RingPIP] = Point3D{X: 0.45, Y: 0.64, Z: -0.04}
	l.Points[RingDIP] = Point3D{X: 0.43, Y: 0.68, Z: -0.04}
	l.Points[RingTip] = Point3D{X: 0.43, Y: 0.71, Z: -0.02}

	l.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.71, Z: 0.0}
	l.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.67, Z: -0.04}
	l.Points[PinkyDIP] = Point3D{X: 0.39, Y: 0.70, Z: -0.04}
	l.Points[PinkyTip] = Point3D{X: 0.39, Y: 0.73, Z: -0.02}
}

// setTuckedThumb folds the thumb across the palm so its tip sits under the middle knuckle.
func setTuckedThumb(l *HandLandmarks) {
	l.Points[ThumbCMC] = Point3D{X: 0.54, Y: 0.76, Z: 0.0}
	l.Points[ThumbMCP] = Point3D{X: 0.55, Y: 0.71, Z: -0.02}
	l.Points[ThumbIP] = Point3D{X: 0.53, Y: 0.67, Z: -0.04}
	l.Points[ThumbTip] = Point3D{X: 0.51, Y: 0.66, Z: -0.05}
}
