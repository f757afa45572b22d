package imaging

import (
	"image"
	"image/color"

	"github.com/ironsheep/exposure-control/internal/exposure"
)

// FrameInfo describes an image file converted for brightness sampling.
type FrameInfo struct {
	// Path is the file the frame was loaded from.
	Path string `json:"path"`

	// Width and Height are the dimensions of the whole image in pixels.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Region is the metering region the frame was cut from.
	Region Region `json:"region"`

	// Frame is the pixel data of the metered region.
	Frame exposure.Frame `json:"-"`
}

// ToFrame converts an image to an exposure.Frame.
//
// Grayscale images (8 or 16 bit) become single-channel frames. Everything else
// becomes a 3-channel BGR frame with alpha discarded, matching how a camera
// driver delivers color frames. 16-bit samples keep their high byte.
func ToFrame(img image.Image) exposure.Frame {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	switch src := img.(type) {
	case *image.Gray:
		pix := make([]uint8, w*h)
		for y := 0; y < h; y++ {
			off := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(pix[y*w:(y+1)*w], src.Pix[off:off+w])
		}
		return exposure.Frame{Rows: h, Cols: w, Channels: 1, Pix: pix}

	case *image.Gray16:
		pix := make([]uint8, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				pix[y*w+x] = uint8(src.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y >> 8)
			}
		}
		return exposure.Frame{Rows: h, Cols: w, Channels: 1, Pix: pix}
	}

	pix := make([]uint8, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			i := (y*w + x) * 3
			pix[i], pix[i+1], pix[i+2] = c.B, c.G, c.R
		}
	}
	return exposure.Frame{Rows: h, Cols: w, Channels: 3, Pix: pix}
}

// MeterFrame cuts a named metering region out of a frame.
//
// It is the Frame counterpart of Meter, used for sources that hand over raw
// frames instead of decoded images. RegionFull returns the frame unchanged.
func MeterFrame(f exposure.Frame, region Region) (exposure.Frame, error) {
	if region == RegionFull || region == "" {
		return f, nil
	}
	if err := f.Validate(); err != nil {
		return exposure.Frame{}, err
	}

	r, err := region.Rect(image.Rect(0, 0, f.Cols, f.Rows))
	if err != nil {
		return exposure.Frame{}, err
	}

	rowBytes := r.Dx() * f.Channels
	pix := make([]uint8, r.Dy()*rowBytes)
	for y := 0; y < r.Dy(); y++ {
		src := ((r.Min.Y+y)*f.Cols + r.Min.X) * f.Channels
		copy(pix[y*rowBytes:(y+1)*rowBytes], f.Pix[src:src+rowBytes])
	}
	return exposure.Frame{Rows: r.Dy(), Cols: r.Dx(), Channels: f.Channels, Pix: pix}, nil
}
