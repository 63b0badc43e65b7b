// Package gesture classifies a single hand pose into one of a fixed set of
// gestures using hand-authored geometric rules.
package gesture

import (
	"errors"
	"fmt"
	"strings"
)

// Label is the result of classifying one hand in one frame.
type Label string

const (
	ThumbsUp   Label = "THUMBS_UP"
	ThumbsDown Label = "THUMBS_DOWN"
	One        Label = "ONE"
	Two        Label = "TWO"
	Open       Label = "OPEN"
	Closed     Label = "CLOSED"
	// Unknown means a hand was found but no rule matched.
	Unknown Label = "UNKNOWN"
	// None means no hand was detected this cycle.
	None Label = "NONE"
)

// ErrUnknownLabel is returned by ParseLabel for names outside the label set.
var ErrUnknownLabel = errors.New("unknown gesture label")

// Labels returns every label in classification priority order, followed by
// UNKNOWN and NONE.
func Labels() []Label {
	return []Label{ThumbsUp, ThumbsDown, One, Two, Open, Closed, Unknown, None}
}

// ParseLabel converts a case-insensitive label name into a Label.
func ParseLabel(s string) (Label, error) {
	name := Label(strings.ToUpper(strings.TrimSpace(s)))
	for _, l := range Labels() {
		if l == name {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLabel, s)
}

// IsHold reports whether the label only takes effect after being held.
func (l Label) IsHold() bool {
	return l == ThumbsUp || l == ThumbsDown
}

func (l Label) String() string {
	return string(l)
}
