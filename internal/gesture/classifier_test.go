package gesture

import (
	"math/rand"
	"testing"

	"github.com/ayusman/mudra/internal/detector"
)

func fixtures() []struct {
	name string
	hand detector.HandLandmarks
	want Label
} {
	return []struct {
		name string
		hand detector.HandLandmarks
		want Label
	}{
		{"thumbs up", detector.ThumbsUpLandmarks(), ThumbsUp},
		{"thumbs down", detector.ThumbsDownLandmarks(), ThumbsDown},
		{"index only", detector.OneFingerLandmarks(), One},
		{"v sign", detector.TwoFingerLandmarks(), Two},
		{"merged v sign", detector.MergedTwoLandmarks(), Unknown},
		{"three fingers", detector.ThreeFingerLandmarks(), Unknown},
		{"open palm", detector.OpenPalmLandmarks(), Open},
		{"closed fist", detector.ClosedFistLandmarks(), Closed},
	}
}

func TestClassify(t *testing.T) {
	for _, tt := range fixtures() {
		t.Run(tt.name, func(t *testing.T) {
			hand := tt.hand
			if got := Classify(&hand); got != tt.want {
				t.Errorf("Classify() = %s, want %s (features %+v)", got, tt.want, Analyze(&hand))
			}
		})
	}

	t.Run("nil hand is NONE", func(t *testing.T) {
		if got := Classify(nil); got != None {
			t.Errorf("Classify(nil) = %s, want NONE", got)
		}
	})
}

func TestClassify_Mirrored(t *testing.T) {
	for _, tt := range fixtures() {
		t.Run(tt.name, func(t *testing.T) {
			mirrored := tt.hand.Mirror()
			if got := Classify(&mirrored); got != tt.want {
				t.Errorf("mirrored Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassify_UnknownHandedness(t *testing.T) {
	for _, tt := range fixtures() {
		t.Run(tt.name, func(t *testing.T) {
			hand := tt.hand
			hand.Handedness = ""
			if got := Classify(&hand); got != tt.want {
				t.Errorf("Classify() without handedness = %s, want %s", got, tt.want)
			}
		})
	}
}

// Small landmark jitter must not flip a clear pose to another label.
func TestClassify_Jitter(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const amplitude = 0.004

	for _, tt := range fixtures() {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 200; i++ {
				hand := tt.hand
				for p := range hand.Points {
					hand.Points[p].X += (rng.Float64()*2 - 1) * amplitude
					hand.Points[p].Y += (rng.Float64()*2 - 1) * amplitude
				}
				if got := Classify(&hand); got != tt.want {
					t.Fatalf("iteration %d: Classify() = %s, want %s", i, got, tt.want)
				}
			}
		})
	}
}

func TestClassify_Priority(t *testing.T) {
	t.Run("raised thumb is never ONE", func(t *testing.T) {
		hand := detector.ThumbsUpLandmarks()
		f := Analyze(&hand)
		if !f.ThumbExtended || f.FingerCount != 0 {
			t.Fatalf("unexpected features: %+v", f)
		}
		if got := Classify(&hand); got != ThumbsUp {
			t.Errorf("Classify() = %s, want THUMBS_UP", got)
		}
	})

	t.Run("thumbs up wins over thumbs down", func(t *testing.T) {
		// Thumb tip above the wrist and the IP joint, and also below the palm
		// center: only possible with the palm reference dragged upwards.
		hand := detector.ThumbsUpLandmarks()
		hand.Points[detector.MiddleMCP] = detector.Point3D{X: 0.50, Y: 0.20}
		hand.Points[detector.MiddlePIP] = detector.Point3D{X: 0.50, Y: 0.25}
		hand.Points[detector.MiddleTip] = detector.Point3D{X: 0.50, Y: 0.30}

		f := Analyze(&hand)
		if f.FingerCount != 0 {
			t.Fatalf("expected no extended fingers, got %+v", f)
		}
		if hand.Points[detector.ThumbTip].Y <= hand.Points[detector.MiddleMCP].Y+ThumbVerticalMargin {
			t.Fatal("fixture does not satisfy the thumbs-down predicate")
		}
		if got := Classify(&hand); got != ThumbsUp {
			t.Errorf("Classify() = %s, want THUMBS_UP", got)
		}
	})

	t.Run("thumb without vertical clearance is UNKNOWN", func(t *testing.T) {
		hand := detector.ThumbsUpLandmarks()
		hand.Points[detector.ThumbTip] = detector.Point3D{X: 0.62, Y: 0.70}
		hand.Points[detector.ThumbIP] = detector.Point3D{X: 0.60, Y: 0.68}
		if got := Classify(&hand); got != Unknown {
			t.Errorf("Classify() = %s, want UNKNOWN", got)
		}
	})

	t.Run("index with raised thumb is not ONE", func(t *testing.T) {
		hand := detector.OneFingerLandmarks()
		hand.Points[detector.ThumbTip] = detector.Point3D{X: 0.68, Y: 0.62}
		if got := Classify(&hand); got != Unknown {
			t.Errorf("Classify() = %s, want UNKNOWN", got)
		}
	})

	t.Run("v sign ignores the thumb", func(t *testing.T) {
		hand := detector.TwoFingerLandmarks()
		hand.Points[detector.ThumbTip] = detector.Point3D{X: 0.68, Y: 0.62}
		if got := Classify(&hand); got != Two {
			t.Errorf("Classify() = %s, want TWO", got)
		}
	})

	t.Run("four fingers with tucked thumb is not OPEN", func(t *testing.T) {
		hand := detector.OpenPalmLandmarks()
		hand.Points[detector.ThumbTip] = detector.Point3D{X: 0.52, Y: 0.66}
		if got := Classify(&hand); got != Unknown {
			t.Errorf("Classify() = %s, want UNKNOWN", got)
		}
	})
}

func TestClassifyPoints(t *testing.T) {
	t.Run("empty is NONE", func(t *testing.T) {
		if got := ClassifyPoints(nil, ""); got != None {
			t.Errorf("ClassifyPoints(nil) = %s, want NONE", got)
		}
	})

	t.Run("wrong point count is NONE", func(t *testing.T) {
		hand := detector.ThumbsUpLandmarks()
		if got := ClassifyPoints(hand.Points[:20], detector.HandRight); got != None {
			t.Errorf("ClassifyPoints(20 points) = %s, want NONE", got)
		}
	})

	t.Run("full set is classified", func(t *testing.T) {
		hand := detector.OpenPalmLandmarks()
		if got := ClassifyPoints(hand.Points[:], detector.HandRight); got != Open {
			t.Errorf("ClassifyPoints() = %s, want OPEN", got)
		}
	})
}

func TestRules(t *testing.T) {
	want := []Label{ThumbsUp, ThumbsDown, One, Two, Open, Closed}
	got := Rules()
	if len(got) != len(want) {
		t.Fatalf("expected %d rules, got %d", len(want), len(got))
	}
	for i, r := range got {
		if r.Label != want[i] {
			t.Errorf("rule %d (%s) = %s, want %s", i, r.Name, r.Label, want[i])
		}
	}

	got[0].Label = Unknown
	if Rules()[0].Label != ThumbsUp {
		t.Error("Rules() must return a copy")
	}
}

func TestAnalyze(t *testing.T) {
	t.Run("open palm", func(t *testing.T) {
		hand := detector.OpenPalmLandmarks()
		f := Analyze(&hand)
		if !f.Index || !f.Middle || !f.Ring || !f.Pinky {
			t.Errorf("expected all fingers extended, got %+v", f)
		}
		if f.FingerCount != 4 {
			t.Errorf("expected 4 fingers, got %d", f.FingerCount)
		}
		if !f.ThumbExtended || !f.ThumbOutward {
			t.Errorf("expected thumb extended outward, got %+v", f)
		}
	})

	t.Run("outward direction follows handedness", func(t *testing.T) {
		hand := detector.OpenPalmLandmarks().Mirror()
		if f := Analyze(&hand); !f.ThumbOutward {
			t.Error("mirrored left hand should still point the thumb outward")
		}
	})

	t.Run("outward direction without handedness", func(t *testing.T) {
		hand := detector.OpenPalmLandmarks()
		hand.Handedness = ""
		if f := Analyze(&hand); !f.ThumbOutward {
			t.Error("wrist not left of the middle knuckle: thumb tip right of IP should be outward")
		}

		// Wrist left of the middle knuckle puts the thumb side on the left.
		hand.Points[detector.Wrist].X = 0.40
		if f := Analyze(&hand); f.ThumbOutward {
			t.Error("thumb tip right of IP should not be outward when the thumb side is left")
		}
	})

	t.Run("handedness does not change the label", func(t *testing.T) {
		for _, tt := range fixtures() {
			hand := tt.hand
			want := Classify(&hand)
			for _, hd := range []string{detector.HandLeft, detector.HandRight, ""} {
				hand.Handedness = hd
				if got := Classify(&hand); got != want {
					t.Errorf("%s with handedness %q = %s, want %s", tt.name, hd, got, want)
				}
			}
		}
	})

	t.Run("v sign spread", func(t *testing.T) {
		hand := detector.TwoFingerLandmarks()
		if f := Analyze(&hand); f.Spread <= MinTwoFingerSpread {
			t.Errorf("expected spread above %f, got %f", MinTwoFingerSpread, f.Spread)
		}
		merged := detector.MergedTwoLandmarks()
		if f := Analyze(&merged); f.Spread >= MinTwoFingerSpread {
			t.Errorf("expected merged spread below %f, got %f", MinTwoFingerSpread, f.Spread)
		}
	})

	t.Run("nil hand", func(t *testing.T) {
		if f := Analyze(nil); f != (Features{}) {
			t.Errorf("expected zero features, got %+v", f)
		}
	})
}

func TestParseLabel(t *testing.T) {
	tests := []struct {
		in      string
		want    Label
		wantErr bool
	}{
		{"THUMBS_UP", ThumbsUp, false},
		{"thumbs_down", ThumbsDown, false},
		{" one ", One, false},
		{"none", None, false},
		{"wave", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseLabel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLabel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLabel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if !ThumbsUp.IsHold() || !ThumbsDown.IsHold() || Open.IsHold() {
		t.Error("IsHold mismatch")
	}
}
