package loop

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/exposure-control/internal/camera"
	"github.com/ironsheep/exposure-control/internal/exposure"
	"github.com/ironsheep/exposure-control/internal/imaging"
)

// fakeSource renders a uniform frame whose brightness is a linear function
// of the commanded EV.
type fakeSource struct {
	ev         float64
	brightness func(ev float64) float64
	channels   int
	setErr     error
	sets       int
}

func (s *fakeSource) Capture(ctx context.Context) (exposure.Frame, error) {
	b := math.Max(0, math.Min(255, s.brightness(s.ev)))
	channels := s.channels
	if channels == 0 {
		channels = 1
	}
	pix := make([]uint8, 4*4*channels)
	for i := range pix {
		pix[i] = uint8(b)
	}
	return exposure.Frame{Rows: 4, Cols: 4, Channels: channels, Pix: pix}, nil
}

func (s *fakeSource) Set(ev float64) error {
	s.sets++
	if s.setErr != nil {
		return s.setErr
	}
	s.ev = ev
	return nil
}

func (s *fakeSource) EV() float64 {
	return s.ev
}

func linear(ev float64) float64 {
	return 100 + 100*ev
}

func newController(t *testing.T, startEV float64) *exposure.Controller {
	t.Helper()
	c, err := exposure.NewController(startEV, exposure.DefaultParams())
	require.NoError(t, err)
	return c
}

func TestRun_ConvergesFromDark(t *testing.T) {
	src := &fakeSource{brightness: linear}
	ctrl := newController(t, -1)

	var trace []Cycle
	res, err := Run(context.Background(), src, ctrl, Options{
		MaxCycles: 200,
		OnCycle:   func(c Cycle) { trace = append(trace, c) },
	})
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.Len(t, trace, res.Cycles)
	assert.Greater(t, res.Cycles, exposure.DefaultConvergenceCycles)
	assert.Equal(t, ctrl.EV(), res.FinalEV)
	assert.Equal(t, res.FinalEV, src.EV())

	// The last ten outputs are identical. The first of them is the output of
	// the last adjusting cycle and counts toward the streak; every frame after
	// it is within the dead-band.
	tail := trace[len(trace)-exposure.DefaultConvergenceCycles:]
	for _, c := range tail {
		assert.Equal(t, res.FinalEV, c.EV)
	}
	assert.True(t, tail[0].Changed)
	assert.Greater(t, math.Abs(exposure.DefaultDesiredMSV-tail[0].MSV), exposure.DefaultDeadband)
	for _, c := range tail[1:] {
		assert.False(t, c.Changed)
		assert.LessOrEqual(t, math.Abs(exposure.DefaultDesiredMSV-c.MSV), exposure.DefaultDeadband)
	}

	// Early cycles brighten the frame.
	assert.True(t, trace[0].Changed)
	assert.Greater(t, trace[0].EV, -1.0)
	assert.Equal(t, 1, trace[0].Index)
}

func TestRun_AlreadyExposed(t *testing.T) {
	src := &fakeSource{brightness: linear}
	ctrl := newController(t, 0.2) // brightness 120, MSV 3

	res, err := Run(context.Background(), src, ctrl, Options{})
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Equal(t, exposure.DefaultConvergenceCycles, res.Cycles)
	assert.Equal(t, 0.2, res.FinalEV)
}

func TestRun_CustomConvergenceCycles(t *testing.T) {
	src := &fakeSource{brightness: linear}
	ctrl := newController(t, 0.2)

	res, err := Run(context.Background(), src, ctrl, Options{ConvergenceCycles: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Cycles)
}

func TestRun_MaxCycles(t *testing.T) {
	src := &fakeSource{brightness: func(float64) float64 { return 0 }}
	ctrl := newController(t, 0)

	res, err := Run(context.Background(), src, ctrl, Options{MaxCycles: 5})
	require.ErrorIs(t, err, ErrMaxCycles)
	assert.False(t, res.Converged)
	assert.Equal(t, 5, res.Cycles)
	assert.Greater(t, res.FinalEV, 0.0)
}

func TestRun_Canceled(t *testing.T) {
	src := &fakeSource{brightness: linear}
	ctrl := newController(t, 0.2)

	ctx, cancel := context.WithCancel(context.Background())
	cycles := 0
	_, err := Run(ctx, src, ctrl, Options{
		OnCycle: func(Cycle) {
			cycles++
			if cycles == 2 {
				cancel()
			}
		},
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, cycles)
}

func TestRun_SourceErrors(t *testing.T) {
	setErr := errors.New("device gone")
	src := &fakeSource{brightness: linear, setErr: setErr}
	_, err := Run(context.Background(), src, newController(t, 0), Options{})
	require.ErrorIs(t, err, setErr)
	assert.Equal(t, 1, src.sets)

	bad := &fakeSource{brightness: linear, channels: 2}
	_, err = Run(context.Background(), bad, newController(t, 0), Options{})
	require.ErrorIs(t, err, exposure.ErrInvalidImage)
}

func TestRun_Region(t *testing.T) {
	src := &fakeSource{brightness: linear}
	ctrl := newController(t, 0.2)

	res, err := Run(context.Background(), src, ctrl, Options{Region: imaging.RegionCenter})
	require.NoError(t, err)
	assert.True(t, res.Converged)

	_, err = Run(context.Background(), src, newController(t, 0.2), Options{Region: imaging.Region("spot")})
	require.Error(t, err)
}

// writeDataset writes a synthetic bracket: orders 2..101 with brightness
// rising linearly with EV.
func writeDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	for order := 2; order <= 101; order++ {
		img := image.NewGray(image.Rect(0, 0, 8, 6))
		b := uint8((order - 2) * 255 / 99)
		for i := range img.Pix {
			img.Pix[i] = b
		}

		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("bracket_%03d.png", order)))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}
	return filepath.Join(dir, "*.png")
}

func TestRun_Dataset(t *testing.T) {
	ds, err := camera.LoadDataset(writeDataset(t), camera.WithMissPolicy(camera.MissNearest))
	require.NoError(t, err)
	require.Equal(t, 100, ds.Len())

	ctrl := newController(t, 1.3)
	res, err := Run(context.Background(), ds, ctrl, Options{MaxCycles: 500})
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Less(t, res.FinalEV, 1.3)

	frame, err := ds.Capture(context.Background())
	require.NoError(t, err)
	msv, err := exposure.ComputeMSV(frame)
	require.NoError(t, err)
	assert.InDelta(t, exposure.DefaultDesiredMSV, msv, exposure.DefaultDeadband)
}

func TestRun_DatasetLookupMiss(t *testing.T) {
	ds, err := camera.LoadDataset(writeDataset(t))
	require.NoError(t, err)

	_, err = Run(context.Background(), ds, newController(t, 5), Options{})
	require.ErrorIs(t, err, camera.ErrLookupMiss)
}
