package camera

import (
	"context"
	"errors"

	"github.com/ironsheep/exposure-control/internal/exposure"
)

var (
	// ErrLookupMiss is returned when a dataset has no frame for a commanded EV.
	ErrLookupMiss = errors.New("no frame for exposure value")

	// ErrEmptyDataset is returned when a dataset pattern matches no usable frames.
	ErrEmptyDataset = errors.New("dataset contains no frames")

	// ErrLiveUnavailable is returned by OpenLive in builds without gocv support.
	ErrLiveUnavailable = errors.New("live capture not available: rebuild with -tags gocv")
)

// Source supplies frames captured at a commanded exposure value.
//
// Set applies a new EV that affects the next Capture. Implementations are
// driven by one control loop and need not be safe for concurrent use.
type Source interface {
	Capture(ctx context.Context) (exposure.Frame, error)
	Set(ev float64) error
	EV() float64
}
