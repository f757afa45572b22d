package exposure

import (
	"fmt"
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Frame is a captured image as an interleaved 8-bit pixel buffer.
//
// Channels is 1 for a brightness-only frame or 3 for a color frame stored in
// BGR order, which is the layout camera drivers hand over. Pix holds
// Rows*Cols*Channels bytes, row by row. A Frame must not be modified after
// capture.
type Frame struct {
	Rows     int
	Cols     int
	Channels int
	Pix      []uint8
}

// Validate reports whether the frame can be sampled.
func (f Frame) Validate() error {
	if f.Rows < 1 || f.Cols < 1 {
		return fmt.Errorf("%w: zero area (%dx%d)", ErrInvalidImage, f.Cols, f.Rows)
	}
	if f.Channels != 1 && f.Channels != 3 {
		return fmt.Errorf("%w: unsupported channel count %d", ErrInvalidImage, f.Channels)
	}
	if want := f.Rows * f.Cols * f.Channels; len(f.Pix) != want {
		return fmt.Errorf("%w: pixel buffer has %d bytes, want %d", ErrInvalidImage, len(f.Pix), want)
	}
	return nil
}

// Pixels returns the number of pixels in the frame.
func (f Frame) Pixels() int {
	return f.Rows * f.Cols
}

// Brightness returns the brightness plane of the frame as a grayscale image.
//
// Single-channel frames are copied as-is. For three-channel frames each pixel
// is converted to HSV and the value component is kept, scaled back to 0-255.
func (f Frame) Brightness() (*image.Gray, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	gray := image.NewGray(image.Rect(0, 0, f.Cols, f.Rows))
	if f.Channels == 1 {
		copy(gray.Pix, f.Pix)
		return gray, nil
	}

	for i := range gray.Pix {
		px := f.Pix[i*3 : i*3+3]
		c := colorful.Color{
			R: float64(px[2]) / 255.0,
			G: float64(px[1]) / 255.0,
			B: float64(px[0]) / 255.0,
		}
		_, _, v := c.Hsv()
		gray.Pix[i] = uint8(math.Round(v * 255.0))
	}
	return gray, nil
}
