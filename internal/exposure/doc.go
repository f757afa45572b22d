// Package exposure implements histogram-based automatic exposure control.
//
// The package has two numeric components and one predicate:
//
//   - ComputeMSV reduces a Frame to a mean sample value (MSV), the weighted
//     average of a 5-bin brightness histogram. MSV ranges from 1 (all pixels
//     in the darkest bin) to 5 (all pixels in the brightest bin).
//   - Controller is a PI controller over exposure value (EV). Each Step consumes
//     one MSV and returns the EV to command next.
//   - Convergence observes the EVs returned by Step and reports when they have
//     stopped changing for a fixed number of cycles.
//
// # Brightness
//
// Single-channel frames are used as brightness directly. Three-channel frames
// are BGR and are reduced to the HSV value channel, V = max(B, G, R).
//
// # Control Law
//
// With the default Params the controller targets an MSV of 2.5:
//
//	errP = DesiredMSV - msv
//	integral += errP                        (clamped to ±MaxIntegral)
//	if |errP| > Deadband:
//	    ev += KP*errP + KI*integral
//
// The integral accumulates on every step, including steps inside the dead-band.
//
// # Thread Safety
//
// ComputeMSV is a pure function and may be called concurrently. A Controller
// belongs to one control session; callers must serialize calls to Step.
package exposure
