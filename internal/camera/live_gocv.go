//go:build gocv

package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ironsheep/exposure-control/internal/exposure"
)

// ErrCameraNotOpen is returned when reading from a closed camera.
var ErrCameraNotOpen = errors.New("camera is not open")

// Live is a Source backed by an OpenCV capture device.
//
// The EV is written to the device's exposure property as-is; how the driver
// interprets it (log2 seconds, absolute units) depends on the backend.
type Live struct {
	mu      sync.Mutex
	capture *gocv.VideoCapture
	mat     gocv.Mat
	ev      float64
	logger  *zap.Logger
}

// OpenLive opens capture device number device.
func OpenLive(device int, logger *zap.Logger) (*Live, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture device %d: %w", device, err)
	}

	ev := capture.Get(gocv.VideoCaptureExposure)
	logger.Info("capture device opened", zap.Int("device", device), zap.Float64("ev", ev))

	return &Live{
		capture: capture,
		mat:     gocv.NewMat(),
		ev:      ev,
		logger:  logger,
	}, nil
}

// Capture reads the next frame from the device.
func (l *Live) Capture(ctx context.Context) (exposure.Frame, error) {
	if err := ctx.Err(); err != nil {
		return exposure.Frame{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.capture == nil {
		return exposure.Frame{}, ErrCameraNotOpen
	}
	if ok := l.capture.Read(&l.mat); !ok || l.mat.Empty() {
		return exposure.Frame{}, errors.New("failed to read frame from camera")
	}

	src := l.mat
	if src.Channels() == 4 {
		bgr := gocv.NewMat()
		defer bgr.Close()
		gocv.CvtColor(src, &bgr, gocv.ColorBGRAToBGR)
		src = bgr
	}

	return exposure.Frame{
		Rows:     src.Rows(),
		Cols:     src.Cols(),
		Channels: src.Channels(),
		Pix:      src.ToBytes(),
	}, nil
}

// Set writes ev to the device exposure property.
func (l *Live) Set(ev float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.capture == nil {
		return ErrCameraNotOpen
	}
	l.capture.Set(gocv.VideoCaptureExposure, ev)
	l.ev = ev
	l.logger.Debug("exposure set", zap.Float64("ev", ev))
	return nil
}

// EV returns the last EV written to the device.
func (l *Live) EV() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ev
}

// Close releases the device.
func (l *Live) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.capture == nil {
		return nil
	}
	l.mat.Close()
	err := l.capture.Close()
	l.capture = nil
	return err
}
