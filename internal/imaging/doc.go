// Package imaging turns image files into frames for exposure metering.
//
// It covers the image side of the exposure loop: decoding files (via
// disintegration/imaging), caching decoded images, converting an image.Image
// into an exposure.Frame, and cutting out the metering region whose brightness
// drives the controller.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based with (0,0) at the top-left
// corner. For rectangles, (x1,y1) is inclusive and (x2,y2) is exclusive.
//
// # Frame Layout
//
// Grayscale images become single-channel frames. Color images become
// 3-channel BGR frames, the byte order camera drivers such as OpenCV use, with
// alpha discarded.
//
// # Metering Regions
//
// A Region names the part of the frame that is measured:
//   - full: the whole frame
//   - center: the central 50% in each dimension
//   - top-half, bottom-half, left-half, right-half
//   - top-left, top-right, bottom-left, bottom-right
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The conversion functions are stateless.
package imaging
