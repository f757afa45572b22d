package main

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/exposure-control/internal/camera"
	"github.com/ironsheep/exposure-control/internal/loop"
)

// runCLI parses args and runs the selected command, returning its stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var cli CLI
	parser, err := kong.New(&cli, kong.Name("exposure-control"), kong.Vars{"version": versionString()})
	require.NoError(t, err)

	ctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}

	var out bytes.Buffer
	rc, err := newRunContext(&cli.Globals, &out)
	if err != nil {
		return "", err
	}
	err = ctx.Run(rc)
	return out.String(), err
}

func writeGray(t *testing.T, path string, level uint8) {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = level
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// writeDataset writes orders 2 to 101 with brightness rising linearly.
func writeDataset(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	for order := 2; order <= 101; order++ {
		writeGray(t, filepath.Join(dir, fmt.Sprintf("scene_%d.png", order)), uint8((order-2)*255/99))
	}
	return filepath.Join(dir, "*.png")
}

func TestSimulate(t *testing.T) {
	pattern := writeDataset(t)

	out, err := runCLI(t, "simulate", "--dataset", pattern, "--start-ev", "1.3", "--miss-policy", "nearest")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Greater(t, len(lines), 10)
	assert.Equal(t, "1.3", lines[0])

	first, err := strconv.ParseFloat(lines[1], 64)
	require.NoError(t, err)
	assert.InDelta(t, 1.15, first, 1e-9)

	// Ten identical outputs end the run; the last is not printed because no
	// frame is captured at it.
	tail := lines[len(lines)-9:]
	for _, l := range tail {
		assert.Equal(t, tail[0], l)
	}
	assert.NotEqual(t, tail[0], lines[len(lines)-10])

	// JSON reports the start plus every cycle, one line more than plain output.
	jsonOut, err := runCLI(t, "simulate", "--dataset", pattern, "--start-ev", "1.3", "--miss-policy", "nearest", "--json")
	require.NoError(t, err)
	jsonLines := strings.Split(strings.TrimSpace(jsonOut), "\n")
	assert.Len(t, jsonLines, len(lines)+1)
}

func TestSimulate_JSON(t *testing.T) {
	pattern := writeDataset(t)

	out, err := runCLI(t, "simulate", "--dataset", pattern, "--start-ev=1.3", "--max-cycles", "2", "--json")
	require.ErrorIs(t, err, loop.ErrMaxCycles)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"index":0`)
	assert.Contains(t, lines[2], `"index":2`)
}

func TestSimulate_Errors(t *testing.T) {
	pattern := writeDataset(t)

	tests := []struct {
		name string
		args []string
		is   error
	}{
		{"no dataset", []string{"simulate"}, nil},
		{"bad start ev", []string{"simulate", "--dataset", pattern, "--start-ev", "bright"}, nil},
		{"start outside dataset", []string{"simulate", "--dataset", pattern, "--start-ev", "5"}, camera.ErrLookupMiss},
		{"empty dataset", []string{"simulate", "--dataset", filepath.Join(t.TempDir(), "*.png")}, camera.ErrEmptyDataset},
		{"bad region", []string{"simulate", "--dataset", pattern, "--region", "spot"}, nil},
		{"bad miss policy", []string{"simulate", "--dataset", pattern, "--miss-policy", "clamp"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestSimulate_ConfigFile(t *testing.T) {
	pattern := writeDataset(t)
	cfgPath := filepath.Join(t.TempDir(), "exposure.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
convergence_cycles: 3
dataset:
  pattern: %q
  start_ev: 0
`, pattern)), 0o644))

	out, err := runCLI(t, "--config", cfgPath, "simulate")
	require.NoError(t, err)

	// Start EV plus two of the three unchanged outputs.
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{"0", "0", "0"}, lines)
}

func TestMeasure(t *testing.T) {
	dir := t.TempDir()
	dark := filepath.Join(dir, "dark.png")
	bright := filepath.Join(dir, "bright.png")
	writeGray(t, dark, 10)
	writeGray(t, bright, 250)

	out, err := runCLI(t, "measure", dark, bright)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, dark+"\t[64 0 0 0 0]\t1.0000", lines[0])
	assert.Equal(t, bright+"\t[0 0 0 0 64]\t5.0000", lines[1])

	out, err = runCLI(t, "measure", "--json", "--region", "center", bright)
	require.NoError(t, err)
	assert.Contains(t, out, `"msv":5`)
	assert.Contains(t, out, `"region":"center"`)
	assert.Contains(t, out, `"histogram":[0,0,0,0,16]`)
}

func TestLive_Unavailable(t *testing.T) {
	// Without the gocv tag OpenLive fails; with it, device 99 does not exist.
	_, err := runCLI(t, "live", "--device", "99")
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "exposure-control "+Version)
}

func TestNewRunContext_LogLevel(t *testing.T) {
	_, err := newRunContext(&Globals{LogLevel: "loud"}, &bytes.Buffer{})
	require.Error(t, err)

	rc, err := newRunContext(&Globals{LogLevel: "debug"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.NotNil(t, rc.logger)
}

func TestNewRunContext_EnvLevel(t *testing.T) {
	t.Setenv("EXPOSURE_LOG_LEVEL", "loud")
	_, err := newRunContext(&Globals{}, &bytes.Buffer{})
	require.Error(t, err)

	// The flag wins over the environment.
	_, err = newRunContext(&Globals{LogLevel: "warn"}, &bytes.Buffer{})
	require.NoError(t, err)
}
