package detection

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
)

var imageRed = color.RGBA{R: 255, A: 255}

func TestIoU(t *testing.T) {
	a := rawBox{x1: 0, y1: 0, x2: 10, y2: 10}
	tests := []struct {
		name string
		b    rawBox
		want float64
	}{
		{"identical", a, 1},
		{"disjoint", rawBox{x1: 20, y1: 20, x2: 30, y2: 30}, 0},
		{"half overlap", rawBox{x1: 5, y1: 0, x2: 15, y2: 10}, 50.0 / 150.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := iou(a, tt.b); math.Abs(got-tt.want) > 1e-4 {
				t.Errorf("iou: got %.4f, want %.4f", got, tt.want)
			}
		})
	}
}

func TestNonMaxSuppression(t *testing.T) {
	boxes := []rawBox{
		{x1: 0, y1: 0, x2: 100, y2: 100, score: 0.6},
		{x1: 2, y1: 2, x2: 102, y2: 102, score: 0.9},
		{x1: 300, y1: 300, x2: 350, y2: 350, score: 0.7},
	}

	kept := nonMaxSuppression(boxes, 0.4)
	if len(kept) != 2 {
		t.Fatalf("kept: got %d, want 2", len(kept))
	}
	if kept[0].score != 0.9 || kept[1].score != 0.7 {
		t.Errorf("kept scores: got %.1f, %.1f, want 0.9, 0.7", kept[0].score, kept[1].score)
	}

	if got := nonMaxSuppression(nil, 0.4); len(got) != 0 {
		t.Errorf("empty input: got %d boxes", len(got))
	}
}

func TestParseYOLO(t *testing.T) {
	const features, anchors = 6, 3 // two classes
	out := make([]float32, features*anchors)
	set := func(feature, anchor int, v float32) { out[feature*anchors+anchor] = v }

	// anchor 0: class 1 scores high
	set(0, 0, 100)
	set(1, 0, 50)
	set(2, 0, 40)
	set(3, 0, 20)
	set(5, 0, 0.9)
	// anchor 1: below threshold for both classes
	set(4, 1, 0.1)
	set(5, 1, 0.2)
	// anchor 2: class 0 scores high
	set(0, 2, 300)
	set(1, 2, 300)
	set(2, 2, 10)
	set(3, 2, 10)
	set(4, 2, 0.6)

	boxes := parseYOLO(out, features, anchors, -1, 0.5)
	if len(boxes) != 2 {
		t.Fatalf("boxes: got %d, want 2", len(boxes))
	}
	first := boxes[0]
	if first.x1 != 80 || first.y1 != 40 || first.x2 != 120 || first.y2 != 60 {
		t.Errorf("first box: got %+v, want corners (80,40)-(120,60)", first)
	}
	if math.Abs(first.score-0.9) > 1e-6 {
		t.Errorf("first score: got %v, want 0.9", first.score)
	}

	// restricting to class 0 drops anchor 0
	if boxes := parseYOLO(out, features, anchors, 0, 0.5); len(boxes) != 1 {
		t.Errorf("class 0 boxes: got %d, want 1", len(boxes))
	}

	if boxes := parseYOLO(out[:5], features, anchors, -1, 0.5); boxes != nil {
		t.Errorf("short tensor: got %v, want nil", boxes)
	}
}

func TestToCandidate(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 80)

	tests := []struct {
		name   string
		raw    rawBox
		want   Box
		wantOK bool
	}{
		{"truncates", rawBox{x1: 10.9, y1: 5.2, x2: 40.7, y2: 30.99, score: 0.8}, Box{X: 10, Y: 5, Width: 30, Height: 25}, true},
		{"clipped", rawBox{x1: -20, y1: 60, x2: 30, y2: 120}, Box{X: 0, Y: 60, Width: 30, Height: 20}, true},
		{"outside", rawBox{x1: 150, y1: 150, x2: 200, y2: 200}, Box{}, false},
		{"inverted", rawBox{x1: 50, y1: 50, x2: 40, y2: 60}, Box{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := toCandidate(tt.raw, bounds)
			if ok != tt.wantOK {
				t.Fatalf("ok: got %v, want %v", ok, tt.wantOK)
			}
			if ok && c.Box != tt.want {
				t.Errorf("box: got %+v, want %+v", c.Box, tt.want)
			}
			if ok && c.Confidence != tt.raw.score {
				t.Errorf("confidence: got %v, want %v", c.Confidence, tt.raw.score)
			}
		})
	}
}

func TestPreprocess(t *testing.T) {
	img := createFilledRectImage(20, 10, image.Rect(0, 0, 20, 10), imageRed, imageRed)

	data := preprocess(img, 8)
	if len(data) != 3*64 {
		t.Fatalf("length: got %d, want %d", len(data), 3*64)
	}
	if data[0] < 0.99 || data[64] > 0.01 || data[128] > 0.01 {
		t.Errorf("first pixel planes: got R=%.2f G=%.2f B=%.2f, want pure red", data[0], data[64], data[128])
	}
}

func TestNewONNX_NoModel(t *testing.T) {
	_, err := NewONNX(DefaultONNXOptions())
	if !errors.Is(err, ErrDetectorUnavailable) {
		t.Fatalf("got %v, want ErrDetectorUnavailable", err)
	}
}
