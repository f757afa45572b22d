// Command exposure-control runs closed-loop PI auto exposure against a
// dataset, a live camera or an MCP client.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/ironsheep/exposure-control/internal/config"
	"github.com/ironsheep/exposure-control/internal/logging"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Globals are the flags shared by every command.
type Globals struct {
	Config   string           `short:"c" type:"existingfile" placeholder:"FILE" help:"YAML configuration file."`
	LogLevel string           `name:"log-level" placeholder:"LEVEL" help:"Log level: debug, info, warn or error. Overrides EXPOSURE_LOG_LEVEL and the config file."`
	Version  kong.VersionFlag `short:"v" help:"Print version information and exit."`
}

// CLI is the command line grammar.
type CLI struct {
	Globals

	Simulate   simulateCmd `cmd:"" help:"Run the loop against a dataset of frames captured at known EVs."`
	Measure    measureCmd  `cmd:"" help:"Print the brightness histogram and MSV of image files."`
	Serve      serveCmd    `cmd:"" default:"1" help:"Run the MCP tool server on stdio (default)."`
	Live       liveCmd     `cmd:"" help:"Run the loop against a camera (requires a gocv build)."`
	VersionCmd versionCmd  `cmd:"" name:"version" help:"Print version information."`
}

// runContext is bound into every command's Run method.
type runContext struct {
	cfg    *config.Config
	logger *zap.Logger
	stdout io.Writer
}

func newRunContext(g *Globals, stdout io.Writer) (*runContext, error) {
	cfg := config.Default()
	if g.Config != "" {
		var err error
		if cfg, err = config.Load(g.Config); err != nil {
			return nil, err
		}
	}

	level := g.LogLevel
	if level == "" {
		level = logging.LevelFromEnv(cfg.LogLevel)
	}
	logger, err := logging.New(level)
	if err != nil {
		return nil, err
	}

	return &runContext{cfg: cfg, logger: logger, stdout: stdout}, nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("exposure-control"),
		kong.Description("Closed-loop PI auto exposure driven by a 5-bin brightness histogram."),
		kong.UsageOnError(),
		kong.Vars{"version": versionString()},
	)

	rc, err := newRunContext(&cli.Globals, os.Stdout)
	ctx.FatalIfErrorf(err)

	rc.logger.Debug("starting",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit", GitCommit))

	err = ctx.Run(rc)
	_ = rc.logger.Sync()
	ctx.FatalIfErrorf(err)
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func versionString() string {
	return fmt.Sprintf("exposure-control %s\n  Build time: %s\n  Git commit: %s", Version, BuildTime, GitCommit)
}

type versionCmd struct{}

func (c *versionCmd) Run(rc *runContext) error {
	_, err := fmt.Fprintln(rc.stdout, versionString())
	return err
}
