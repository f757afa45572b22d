//go:build !gocv

package camera

import (
	"context"

	"go.uber.org/zap"

	"github.com/ironsheep/exposure-control/internal/exposure"
)

// Live is unavailable in builds without the gocv tag.
type Live struct{}

// OpenLive always fails with ErrLiveUnavailable.
func OpenLive(device int, logger *zap.Logger) (*Live, error) {
	return nil, ErrLiveUnavailable
}

// Capture always fails with ErrLiveUnavailable.
func (l *Live) Capture(ctx context.Context) (exposure.Frame, error) {
	return exposure.Frame{}, ErrLiveUnavailable
}

// Set always fails with ErrLiveUnavailable.
func (l *Live) Set(ev float64) error {
	return ErrLiveUnavailable
}

// EV always returns 0.
func (l *Live) EV() float64 {
	return 0
}

// Close does nothing.
func (l *Live) Close() error {
	return nil
}
