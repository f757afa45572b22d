package camera

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ironsheep/exposure-control/internal/exposure"
	"github.com/ironsheep/exposure-control/internal/imaging"
)

// Dataset grid defaults.
const (
	DefaultBaseEV = -1.5
	DefaultEVStep = 0.03
)

// MissPolicy decides what Set does with an EV that has no frame.
type MissPolicy string

const (
	// MissFail rejects the EV with ErrLookupMiss and keeps the current frame.
	MissFail MissPolicy = "fail"

	// MissNearest selects the frame with the closest available EV.
	MissNearest MissPolicy = "nearest"
)

// ParseMissPolicy validates a policy name. The empty string means MissFail.
func ParseMissPolicy(s string) (MissPolicy, error) {
	switch MissPolicy(s) {
	case "", MissFail:
		return MissFail, nil
	case MissNearest:
		return MissNearest, nil
	}
	return "", fmt.Errorf("unknown miss policy: %s", s)
}

// Dataset is a Source backed by frames captured at known exposure values.
type Dataset struct {
	frames map[int]exposure.Frame
	keys   []int

	baseEV  float64
	step    float64
	policy  MissPolicy
	cache   *imaging.ImageCache
	logger  *zap.Logger
	current int
}

// DatasetOption configures LoadDataset.
type DatasetOption func(*Dataset)

// WithGrid sets the EV of order 1 and the spacing between consecutive orders.
// EVs are reported rounded to 1/100, so step should not be finer than 0.01.
func WithGrid(baseEV, step float64) DatasetOption {
	return func(d *Dataset) {
		d.baseEV = baseEV
		d.step = step
	}
}

// WithMissPolicy sets how Set handles EVs without a frame.
func WithMissPolicy(p MissPolicy) DatasetOption {
	return func(d *Dataset) {
		d.policy = p
	}
}

// WithCache loads images through a shared cache. Without it images are
// decoded directly and only the converted frames are kept.
func WithCache(c *imaging.ImageCache) DatasetOption {
	return func(d *Dataset) {
		d.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) DatasetOption {
	return func(d *Dataset) {
		d.logger = l
	}
}

// LoadDataset loads every frame matching the glob pattern.
//
// Files without a parseable order are skipped, as is order 1. Two files that
// land on the same grid index resolve to the one that sorts last by name.
// The dataset starts at EV 0 when a frame exists there, otherwise at the
// lowest EV available.
func LoadDataset(pattern string, opts ...DatasetOption) (*Dataset, error) {
	d := &Dataset{
		frames: make(map[int]exposure.Frame),
		baseEV: DefaultBaseEV,
		step:   DefaultEVStep,
		policy: MissFail,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.step <= 0 || math.IsNaN(d.step) || math.IsInf(d.step, 0) {
		return nil, fmt.Errorf("invalid EV step %v", d.step)
	}
	load := imaging.Open
	if d.cache != nil {
		load = d.cache.Load
	}

	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid dataset pattern %q: %w", pattern, err)
	}
	sort.Strings(files)

	for _, file := range files {
		order, ok := ParseOrder(file)
		if !ok {
			d.logger.Debug("skipping file without frame order", zap.String("file", file))
			continue
		}
		if order == 1 {
			continue
		}

		img, err := load(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load frame %s: %w", file, err)
		}

		idx := d.index(d.orderEV(order))
		if _, dup := d.frames[idx]; dup {
			d.logger.Warn("duplicate frame for grid index",
				zap.String("file", file), zap.Int("index", idx))
		}
		d.frames[idx] = imaging.ToFrame(img)
	}

	if len(d.frames) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDataset, pattern)
	}

	d.keys = make([]int, 0, len(d.frames))
	for k := range d.frames {
		d.keys = append(d.keys, k)
	}
	sort.Ints(d.keys)

	d.current = d.keys[0]
	if _, ok := d.frames[0]; ok {
		d.current = 0
	}

	lo, hi := d.Range()
	d.logger.Info("dataset loaded",
		zap.String("pattern", pattern),
		zap.Int("frames", len(d.frames)),
		zap.Float64("min_ev", lo),
		zap.Float64("max_ev", hi))

	return d, nil
}

// ParseOrder extracts the capture order from a dataset file name: the run of
// digits immediately before the extension.
func ParseOrder(path string) (int, bool) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	start := len(stem)
	for start > 0 && stem[start-1] >= '0' && stem[start-1] <= '9' {
		start--
	}
	if start == len(stem) {
		return 0, false
	}

	order, err := strconv.Atoi(stem[start:])
	if err != nil {
		return 0, false
	}
	return order, true
}

// Capture returns the frame for the current EV.
func (d *Dataset) Capture(ctx context.Context) (exposure.Frame, error) {
	if err := ctx.Err(); err != nil {
		return exposure.Frame{}, err
	}
	return d.frames[d.current], nil
}

// Set selects the frame for ev, quantized to the dataset grid.
func (d *Dataset) Set(ev float64) error {
	if math.IsNaN(ev) || math.IsInf(ev, 0) {
		return fmt.Errorf("%w: %v", ErrLookupMiss, ev)
	}

	idx := d.index(ev)
	if _, ok := d.frames[idx]; ok {
		d.current = idx
		return nil
	}

	if d.policy != MissNearest {
		lo, hi := d.Range()
		return fmt.Errorf("%w: %.2f (dataset covers %.2f to %.2f)", ErrLookupMiss, ev, lo, hi)
	}

	nearest := d.nearest(idx)
	d.logger.Debug("EV outside dataset, using nearest frame",
		zap.Float64("ev", ev), zap.Float64("nearest_ev", d.gridEV(nearest)))
	d.current = nearest
	return nil
}

// EV returns the grid EV of the current frame.
func (d *Dataset) EV() float64 {
	return d.gridEV(d.current)
}

// Range returns the lowest and highest EV with a frame.
func (d *Dataset) Range() (float64, float64) {
	return d.gridEV(d.keys[0]), d.gridEV(d.keys[len(d.keys)-1])
}

// Len returns the number of frames in the dataset.
func (d *Dataset) Len() int {
	return len(d.frames)
}

// Has reports whether a frame exists for ev after quantization.
func (d *Dataset) Has(ev float64) bool {
	_, ok := d.frames[d.index(ev)]
	return ok
}

func (d *Dataset) orderEV(order int) float64 {
	return d.baseEV + float64(order-1)*d.step
}

func (d *Dataset) index(ev float64) int {
	return int(math.Round(ev / d.step))
}

// gridEV rounds to 1/100 EV so grid points print and compare cleanly.
func (d *Dataset) gridEV(idx int) float64 {
	return math.Round(float64(idx)*d.step*100) / 100
}

// nearest returns the available grid index closest to idx, preferring the
// lower one on a tie.
func (d *Dataset) nearest(idx int) int {
	i := sort.SearchInts(d.keys, idx)
	switch {
	case i == 0:
		return d.keys[0]
	case i == len(d.keys):
		return d.keys[len(d.keys)-1]
	}
	below, above := d.keys[i-1], d.keys[i]
	if idx-below <= above-idx {
		return below
	}
	return above
}
