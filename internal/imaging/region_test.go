package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestParseRegion(t *testing.T) {
	for _, r := range Regions {
		got, err := ParseRegion(string(r))
		if err != nil {
			t.Errorf("ParseRegion(%q) failed: %v", r, err)
		}
		if got != r {
			t.Errorf("ParseRegion(%q): got %q", r, got)
		}
	}

	got, err := ParseRegion("")
	if err != nil || got != RegionFull {
		t.Errorf("ParseRegion(\"\"): got %q, %v; want full", got, err)
	}

	if _, err := ParseRegion("spot"); err == nil {
		t.Error("ParseRegion should fail for unknown region")
	}
}

func TestRegionRect(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 80)

	tests := []struct {
		region Region
		want   image.Rectangle
	}{
		{RegionFull, image.Rect(0, 0, 100, 80)},
		{RegionCenter, image.Rect(25, 20, 75, 60)},
		{RegionTopHalf, image.Rect(0, 0, 100, 40)},
		{RegionBottomHalf, image.Rect(0, 40, 100, 80)},
		{RegionLeftHalf, image.Rect(0, 0, 50, 80)},
		{RegionRightHalf, image.Rect(50, 0, 100, 80)},
		{RegionTopLeft, image.Rect(0, 0, 50, 40)},
		{RegionTopRight, image.Rect(50, 0, 100, 40)},
		{RegionBottomLeft, image.Rect(0, 40, 50, 80)},
		{RegionBottomRight, image.Rect(50, 40, 100, 80)},
	}

	for _, tt := range tests {
		t.Run(string(tt.region), func(t *testing.T) {
			got, err := tt.region.Rect(bounds)
			if err != nil {
				t.Fatalf("Rect failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegionRect_OffsetBounds(t *testing.T) {
	got, err := RegionCenter.Rect(image.Rect(10, 10, 50, 50))
	if err != nil {
		t.Fatalf("Rect failed: %v", err)
	}
	if want := image.Rect(20, 20, 40, 40); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMeter(t *testing.T) {
	img := newUniformImage(100, 100, color.RGBA{255, 0, 0, 255})

	full, err := Meter(img, RegionFull)
	if err != nil {
		t.Fatalf("Meter(full) failed: %v", err)
	}
	if full != image.Image(img) {
		t.Error("Meter(full) should return the input image")
	}

	center, err := Meter(img, RegionCenter)
	if err != nil {
		t.Fatalf("Meter(center) failed: %v", err)
	}
	if b := center.Bounds(); b.Dx() != 50 || b.Dy() != 50 {
		t.Errorf("center size: got %dx%d, want 50x50", b.Dx(), b.Dy())
	}

	if _, err := Meter(img, Region("nowhere")); err == nil {
		t.Error("Meter should fail for unknown region")
	}
}

func TestMeter_VerifyContent(t *testing.T) {
	// Left half black, right half white
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			if x >= 10 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}

	right, err := Meter(img, RegionRightHalf)
	if err != nil {
		t.Fatalf("Meter failed: %v", err)
	}
	r, g, b, _ := right.At(0, 0).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Errorf("right half should be white, got (%d,%d,%d)", r>>8, g>>8, b>>8)
	}
}

func TestCropRect(t *testing.T) {
	img := newUniformImage(100, 100, color.RGBA{0, 0, 255, 255})

	cropped, err := CropRect(img, 10, 20, 30, 60)
	if err != nil {
		t.Fatalf("CropRect failed: %v", err)
	}
	if b := cropped.Bounds(); b.Dx() != 20 || b.Dy() != 40 {
		t.Errorf("size: got %dx%d, want 20x40", b.Dx(), b.Dy())
	}

	tests := []struct {
		name           string
		x1, y1, x2, y2 int
	}{
		{"x1 negative", -1, 0, 50, 50},
		{"y2 too large", 0, 0, 50, 101},
		{"x1 equals x2", 50, 0, 50, 50},
		{"y1 greater than y2", 0, 60, 50, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CropRect(img, tt.x1, tt.y1, tt.x2, tt.y2); err == nil {
				t.Error("CropRect should fail")
			}
		})
	}
}
