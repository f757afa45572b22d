package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Region names the part of a frame used for brightness metering.
type Region string

// Metering regions. Halves and quadrants split the image at its midpoint,
// rounding down; RegionCenter is the central 50% in each dimension.
const (
	RegionFull        Region = "full"
	RegionCenter      Region = "center"
	RegionTopHalf     Region = "top-half"
	RegionBottomHalf  Region = "bottom-half"
	RegionLeftHalf    Region = "left-half"
	RegionRightHalf   Region = "right-half"
	RegionTopLeft     Region = "top-left"
	RegionTopRight    Region = "top-right"
	RegionBottomLeft  Region = "bottom-left"
	RegionBottomRight Region = "bottom-right"
)

// Regions lists every supported metering region.
var Regions = []Region{
	RegionFull,
	RegionCenter,
	RegionTopHalf,
	RegionBottomHalf,
	RegionLeftHalf,
	RegionRightHalf,
	RegionTopLeft,
	RegionTopRight,
	RegionBottomLeft,
	RegionBottomRight,
}

// ParseRegion validates a region name. The empty string means RegionFull.
func ParseRegion(s string) (Region, error) {
	if s == "" {
		return RegionFull, nil
	}
	for _, r := range Regions {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown region: %s", s)
}

// Rect returns the rectangle the region covers within bounds.
func (r Region) Rect(bounds image.Rectangle) (image.Rectangle, error) {
	w := bounds.Dx()
	h := bounds.Dy()
	midX := w / 2
	midY := h / 2

	var x1, y1, x2, y2 int
	switch r {
	case RegionFull, "":
		x1, y1, x2, y2 = 0, 0, w, h
	case RegionCenter:
		qW := w / 4
		qH := h / 4
		x1, y1, x2, y2 = qW, qH, w-qW, h-qH
	case RegionTopHalf:
		x1, y1, x2, y2 = 0, 0, w, midY
	case RegionBottomHalf:
		x1, y1, x2, y2 = 0, midY, w, h
	case RegionLeftHalf:
		x1, y1, x2, y2 = 0, 0, midX, h
	case RegionRightHalf:
		x1, y1, x2, y2 = midX, 0, w, h
	case RegionTopLeft:
		x1, y1, x2, y2 = 0, 0, midX, midY
	case RegionTopRight:
		x1, y1, x2, y2 = midX, 0, w, midY
	case RegionBottomLeft:
		x1, y1, x2, y2 = 0, midY, midX, h
	case RegionBottomRight:
		x1, y1, x2, y2 = midX, midY, w, h
	default:
		return image.Rectangle{}, fmt.Errorf("unknown region: %s", r)
	}

	rect := image.Rect(x1, y1, x2, y2).Add(bounds.Min)
	if rect.Empty() {
		return image.Rectangle{}, fmt.Errorf("region %s of a %dx%d image is empty", r, w, h)
	}
	return rect, nil
}

// Meter returns the part of img used for brightness metering.
// RegionFull returns img itself without copying.
func Meter(img image.Image, region Region) (image.Image, error) {
	if region == RegionFull || region == "" {
		return img, nil
	}
	rect, err := region.Rect(img.Bounds())
	if err != nil {
		return nil, err
	}
	return imaging.Crop(img, rect), nil
}

// CropRect extracts an explicit rectangle, with (x1,y1) inclusive and (x2,y2)
// exclusive, for spot metering.
func CropRect(img image.Image, x1, y1, x2, y2 int) (image.Image, error) {
	bounds := img.Bounds()

	if x1 < bounds.Min.X || y1 < bounds.Min.Y || x2 > bounds.Max.X || y2 > bounds.Max.Y {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			x1, y1, x2, y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if x1 >= x2 || y1 >= y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	return imaging.Crop(img, image.Rect(x1, y1, x2, y2)), nil
}
