// Package main is the teleop command line: it drives the robot from the configured controls
// for one session, validates configs and prints the shaping curves.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	_ "go.viam.com/teleop/components/register"
	"go.viam.com/teleop/config"
	"go.viam.com/teleop/logging"
	"go.viam.com/teleop/robot"
	"go.viam.com/teleop/session"
	"go.viam.com/teleop/shaping"
	"go.viam.com/teleop/telemetry"
	"go.viam.com/teleop/teleop"
)

const (
	// Flags.
	flagConfig    = "config"
	flagDebug     = "debug"
	flagDashboard = "dashboard"
	flagCurve     = "curve"
	flagSteps     = "steps"

	closeTimeout = 5 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newApp(out, errOut io.Writer) *cli.App {
	configFlag := &cli.StringFlag{
		Name:     flagConfig,
		Aliases:  []string{"c"},
		Usage:    "load configuration from `FILE`",
		Required: true,
	}
	return &cli.App{
		Name:            "teleop",
		Usage:           "drive a robot from joysticks and a button panel",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run one teleop session until it expires or is interrupted",
				Flags: []cli.Flag{
					configFlag,
					&cli.BoolFlag{
						Name:    flagDebug,
						Aliases: []string{"vvv"},
						Usage:   "enable debug logging",
					},
					&cli.BoolFlag{
						Name:  flagDashboard,
						Usage: "print the dashboard when the session ends",
					},
				},
				Action: runAction,
			},
			{
				Name:   "validate",
				Usage:  "check a configuration file without touching hardware",
				Flags:  []cli.Flag{configFlag},
				Action: validateAction,
			},
			{
				Name:  "curve",
				Usage: "print the stick-to-power table of a shaping curve",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagCurve,
						Usage: "curve to print; all curves when empty",
					},
					&cli.IntFlag{
						Name:  flagSteps,
						Value: 10,
						Usage: "number of positive deflection steps",
					},
				},
				Action: curveAction,
			},
		},
	}
}

func runAction(c *cli.Context) (err error) {
	logger := logging.NewLogger("teleop")
	cfg, err := config.Read(c.Context, c.String(flagConfig), logger)
	if err != nil {
		return err
	}
	config.InitLoggingSettings(logger, c.Bool(flagDebug))
	config.UpdateFileConfigDebug(cfg.Debug)
	closeLog, err := config.ApplyLogging(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, closeLog())
	}()

	r, err := robot.New(c.Context, cfg, logger.Sublogger("robot"))
	if err != nil {
		return err
	}
	// The run releases the hardware it was handed; closing again only catches what it never saw.
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if closeErr := r.Close(closeCtx); closeErr != nil {
			logger.Debugw("closing robot after run", "error", closeErr)
		}
	}()

	sess := session.New(session.Options{
		Duration:        cfg.Session.Duration(),
		HeartbeatWindow: cfg.Session.HeartbeatWindow(),
	}, logger.Sublogger("session"))
	defer sess.End()

	dash := telemetry.NewDashboard()
	opts := []teleop.Option{teleop.WithPublisher(dash)}
	if sess.HeartbeatWindow() > 0 {
		opts = append(opts, teleop.WithHeartbeat(sess))
	}
	t, err := teleop.New(cfg.TeleopConfig(), r.Hardware(), sess, logger.Sublogger("teleop"), opts...)
	if err != nil {
		return err
	}

	// Interrupts end the session so the loop stops driving on its next cycle.
	stopOnCancel := context.AfterFunc(c.Context, sess.End)
	defer stopOnCancel()

	runErr := t.Run(c.Context)
	logger.Infow("session over", "id", sess.ID(), "reason", sess.Reason())
	if c.Bool(flagDashboard) {
		fmt.Fprintln(c.App.Writer, dash.String())
	}
	return runErr
}

func validateAction(c *cli.Context) error {
	logger := logging.NewBlankLogger("teleop")
	path := c.String(flagConfig)
	cfg, err := config.Read(c.Context, path, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s: ok (%d inputs, %d actuators, %d binding overrides)\n",
		path, len(cfg.Inputs), len(cfg.Actuators), len(cfg.Bindings))
	return nil
}

func curveAction(c *cli.Context) error {
	steps := c.Int(flagSteps)
	if steps <= 0 {
		return errors.Errorf("--%s must be positive, got %d", flagSteps, steps)
	}
	curves := shaping.Curves
	if name := c.String(flagCurve); name != "" {
		curves = []shaping.Curve{shaping.Curve(name)}
	}
	fns := make([]shaping.Func, 0, len(curves))
	header := table.Row{"Stick"}
	for _, curve := range curves {
		fn, err := shaping.FromCurve(curve)
		if err != nil {
			return err
		}
		fns = append(fns, fn)
		header = append(header, string(curve))
	}

	t := table.NewWriter()
	t.AppendHeader(header)
	for i := -steps; i <= steps; i++ {
		x := float64(i) / float64(steps)
		row := table.Row{fmt.Sprintf("%.2f", x)}
		for _, fn := range fns {
			row = append(row, fmt.Sprintf("%.4f", fn(x)))
		}
		t.AppendRow(row)
	}
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
}
