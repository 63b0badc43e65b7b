// Package overlay draws the control state onto camera frames for the preview
// window and the MJPEG stream.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/fogleman/ease"
	"github.com/lucasb-eyer/go-colorful"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/control"
)

var (
	ledModeColor   = color.RGBA{R: 255, G: 255, A: 255}
	motorModeColor = color.RGBA{G: 128, B: 255, A: 255}
	white          = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	holdColor      = color.RGBA{R: 255, G: 255, A: 255}
	onColor        = color.RGBA{G: 255, A: 255}
	offColor       = color.RGBA{R: 255, A: 255}
	bulbOutline    = color.RGBA{R: 100, G: 100, B: 100, A: 255}
	bulbOff        = color.RGBA{R: 50, G: 50, B: 50, A: 255}
)

// glowRings is the number of concentric circles in the LED indicator.
const glowRings = 5

// State is everything the overlay needs for one frame.
type State struct {
	Snapshot control.Snapshot
	MaxLevel int

	// Holding is set while a hold gesture is counting down.
	Holding       bool
	HoldRemaining time.Duration

	Now time.Time
}

// Text is one line of text at a baseline position.
type Text struct {
	Body  string
	At    image.Point
	Scale float64
	Color color.RGBA
}

// Layout returns the text lines for a frame of the given height.
func Layout(st State, height int) []Text {
	mode := st.Snapshot.Mode
	modeColor := ledModeColor
	if mode == control.Motor {
		modeColor = motorModeColor
	}

	active := st.Snapshot.Active()
	texts := []Text{
		{Body: "MODE: " + string(mode), At: image.Pt(10, 30), Scale: 1, Color: modeColor},
		{Body: StatusText(mode, active, st.MaxLevel), At: image.Pt(10, height-20), Scale: 0.7, Color: white},
	}

	if g := st.Snapshot.Gesture; g != "" {
		texts = append(texts, Text{Body: g.String(), At: image.Pt(10, 70), Scale: 1, Color: onColor})
	}

	if st.Holding {
		texts = append(texts, Text{
			Body:  fmt.Sprintf("Hold: %.1fs", st.HoldRemaining.Seconds()),
			At:    image.Pt(10, 110),
			Scale: 0.7,
			Color: holdColor,
		})
	}
	return texts
}

// StatusText renders a device line such as "LED: ON - Level: 3/5".
func StatusText(d control.Device, s control.DeviceState, maxLevel int) string {
	power := "OFF"
	if s.Powered {
		power = "ON"
	}
	return fmt.Sprintf("%s: %s - Level: %d/%d", d, power, s.Level, maxLevel)
}

// Ring is one filled circle of the LED glow, drawn outermost first.
type Ring struct {
	Radius int
	Color  color.RGBA
}

// Glow returns the rings for an LED indicator of the given size. A powered
// LED glows warmer and brighter with its level; an unpowered one is a single
// dark disc.
func Glow(s control.DeviceState, maxLevel, size int) []Ring {
	if !s.Powered || s.Level <= 0 || maxLevel <= 0 {
		return []Ring{{Radius: size - 10, Color: bulbOff}}
	}

	brightness := float64(s.Level) / float64(maxLevel)
	dark := colorful.Color{}
	warm := colorful.Hsv(40, 0.7, 1)

	rings := make([]Ring, 0, glowRings+1)
	for i := glowRings; i > 0; i-- {
		alpha := ease.OutQuad(float64(i)/glowRings) * brightness
		c := dark.BlendLab(warm, 1-alpha*0.6).Clamped()
		c = dark.BlendRgb(c, alpha)
		rings = append(rings, Ring{Radius: size - i*8, Color: toRGBA(c)})
	}
	rings = append(rings, Ring{Radius: 20, Color: white})
	return rings
}

// ArmAngle is the rotation of the actuator indicator in radians. The arm
// turns level/max revolutions per second while powered.
func ArmAngle(s control.DeviceState, maxLevel int, now time.Time) float64 {
	if !s.Powered || s.Level <= 0 || maxLevel <= 0 {
		return -math.Pi / 2
	}
	revs := float64(s.Level) / float64(maxLevel)
	secs := float64(now.UnixNano()%int64(time.Hour)) / float64(time.Second)
	turn := math.Mod(secs*revs, 1)
	return turn*2*math.Pi - math.Pi/2
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// Render draws the state onto frame in place.
func Render(frame *gocv.Mat, st State) {
	if frame == nil || frame.Empty() {
		return
	}

	for _, t := range Layout(st, frame.Rows()) {
		gocv.PutText(frame, t.Body, t.At, gocv.FontHersheySimplex, t.Scale, t.Color, 2)
	}

	size := 40
	center := image.Pt(frame.Cols()-size-20, size+20)
	drawLED(frame, center, st.Snapshot.LED, st.MaxLevel, size)
	drawArm(frame, image.Pt(center.X, center.Y+2*size+30), st.Snapshot.Motor, st.MaxLevel, st.Now)
}

func drawLED(frame *gocv.Mat, center image.Point, s control.DeviceState, maxLevel, size int) {
	gocv.Circle(frame, center, size, bulbOutline, 2)
	for _, r := range Glow(s, maxLevel, size) {
		if r.Radius > 0 {
			gocv.Circle(frame, center, r.Radius, r.Color, -1)
		}
	}
}

func drawArm(frame *gocv.Mat, center image.Point, s control.DeviceState, maxLevel int, now time.Time) {
	const length = 30
	gocv.Circle(frame, center, length+5, bulbOutline, 2)

	angle := ArmAngle(s, maxLevel, now)
	end := image.Pt(
		center.X+int(length*math.Cos(angle)),
		center.Y+int(length*math.Sin(angle)),
	)
	c := offColor
	if s.Powered {
		c = onColor
	}
	gocv.Line(frame, center, end, c, 3)
}
