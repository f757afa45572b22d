// Package camera provides image sources for the exposure control loop.
//
// A Source hands out frames and accepts exposure values. Two sources exist:
//
//   - Dataset replays a directory of frames captured at known exposure values,
//     standing in for a camera in simulations and tests.
//   - Live drives a real capture device through OpenCV (gocv). It is only
//     available in binaries built with the "gocv" build tag.
//
// # Dataset Layout
//
// Dataset files carry their capture order as the integer immediately before
// the file extension, e.g. "scene_017.jpg" is order 17. Order 1 is a
// non-data frame and is skipped. Order n was captured at
//
//	EV = BaseEV + (n-1)*Step        (defaults: BaseEV -1.5, Step 0.03)
//
// Frames are keyed by grid index round(EV/Step) rather than by float EV, so a
// commanded EV always resolves to the nearest grid point.
package camera
