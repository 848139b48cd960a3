package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/urfave/cli/v2"
	"github.com/womat/debug"

	"go.ax8-thermal-camera.gocv-driver/ax8driver"
	"go.ax8-thermal-camera.gocv-driver/config"
	"go.ax8-thermal-camera.gocv-driver/feed"
	"go.ax8-thermal-camera.gocv-driver/server"
)

func setupLogging(cfg *config.Config) error {
	return ax8driver.SetupLogging(cfg.Log.File, cfg.Log.Level)
}

// parseSpot parses INSTANCE:X:Y.
func parseSpot(s string) (ax8driver.Spot, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return ax8driver.Spot{}, fmt.Errorf("spot %q is not INSTANCE:X:Y", s)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return ax8driver.Spot{}, fmt.Errorf("spot %q: %w", s, err)
		}
		v[i] = n
	}
	return ax8driver.Spot{Instance: v[0], X: v[1], Y: v[2]}, nil
}

func parseSpots(args []string) ([]ax8driver.Spot, error) {
	spots := make([]ax8driver.Spot, 0, len(args))
	for _, s := range args {
		spot, err := parseSpot(s)
		if err != nil {
			return nil, err
		}
		spots = append(spots, spot)
	}
	return spots, nil
}

// parseParams parses KEY=VALUE pairs.
func parseParams(pairs []string) (map[string]float64, error) {
	update := map[string]float64{}
	for _, pair := range pairs {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("parameter %q is not KEY=VALUE", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", pair, err)
		}
		update[strings.TrimSpace(kv[0])] = v
	}
	return update, nil
}

func parseInstances(args []string) ([]int, error) {
	if len(args) == 0 {
		all := ax8driver.SWEEP_INSTANCES
		return all[:], nil
	}
	instances := make([]int, 0, len(args))
	for _, a := range args {
		i, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("instance %q: %w", a, err)
		}
		instances = append(instances, i)
	}
	return instances, nil
}

// openCamera opens the session and applies --param overrides.
func openCamera(ctx *cli.Context, cfg *config.Config) (*ax8driver.Camera, error) {
	update, err := parseParams(ctx.StringSlice("param"))
	if err != nil {
		return nil, err
	}
	camera, err := ax8driver.Open(cfg.Camera, ax8driver.WithVerbose(cfg.Verbose), ax8driver.WithParameters(cfg.Parameters))
	if err != nil {
		return nil, err
	}
	if len(update) > 0 {
		if _, err := camera.SetSpotmeterParameters(update); err != nil {
			_ = camera.Close()
			return nil, err
		}
	}
	return camera, nil
}

// withCamera runs fn with an open session and closes it afterwards.
func withCamera(cfg *config.Config, fn func(ctx *cli.Context, camera *ax8driver.Camera) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		camera, err := openCamera(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = camera.Close() }()
		return fn(ctx, camera)
	}
}

func unitFlag() cli.Flag {
	return &cli.StringFlag{Name: "unit", Aliases: []string{"u"}, Value: string(ax8driver.CELSIUS), Usage: "`UNIT` of readings (Celsius|Kelvin)"}
}

func formatValues(values []float64) string {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = strconv.FormatFloat(v, 'f', 2, 64)
	}
	return strings.Join(s, " ")
}

func commands(cfg *config.Config) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "temp",
			Usage: "print the internal camera temperature",
			Action: withCamera(cfg, func(ctx *cli.Context, camera *ax8driver.Camera) error {
				kelvin, err := camera.InternalTemperature()
				if err != nil {
					return err
				}
				fmt.Printf("%.2f K (%.2f C)\n", kelvin, ax8driver.CELSIUS.FromKelvin(kelvin))
				return nil
			}),
		},
		spotCommand(cfg),
		{
			Name:  "cutline",
			Usage: "sweep the spotmeters along a column (--x) or a row (--y)",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "x", Value: -1, Usage: "sweep column `X` (0-79)"},
				&cli.IntFlag{Name: "y", Value: -1, Usage: "sweep row `Y` (0-59)"},
				unitFlag(),
			},
			Action: withCamera(cfg, func(ctx *cli.Context, camera *ax8driver.Camera) error {
				unit, err := ax8driver.ParseTemperatureUnit(ctx.String("unit"))
				if err != nil {
					return err
				}
				var values []float64
				switch {
				case ctx.Int("x") >= 0:
					out, err := camera.CutlineAlongX(ctx.Int("x"), unit)
					if err != nil {
						return err
					}
					values = out[:]
				case ctx.Int("y") >= 0:
					out, err := camera.CutlineAlongY(ctx.Int("y"), unit)
					if err != nil {
						return err
					}
					values = out[:]
				default:
					return fmt.Errorf("one of --x or --y is required")
				}
				stats := ax8driver.CutlineStats(values)
				fmt.Println(formatValues(values))
				fmt.Printf("min %.2f @%d max %.2f @%d mean %.2f %s\n", stats.Min, stats.ArgMin, stats.Max, stats.ArgMax, stats.Mean, unit)
				return nil
			}),
		},
		{
			Name:  "grid",
			Usage: "sweep the whole 80x60 frame and write it as csv",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "thermal-image.csv", Usage: "write the image to `FILE`"},
				unitFlag(),
			},
			Action: withCamera(cfg, func(ctx *cli.Context, camera *ax8driver.Camera) error {
				unit, err := ax8driver.ParseTemperatureUnit(ctx.String("unit"))
				if err != nil {
					return err
				}
				img, err := camera.ThermalImage(unit)
				if err != nil {
					return err
				}
				f, err := os.Create(ctx.String("out"))
				if err != nil {
					return err
				}
				defer f.Close()
				if err := ax8driver.SaveThermalImageCSV(f, &img); err != nil {
					return err
				}
				stats := img.Stats()
				fmt.Printf("min %.2f at %v, max %.2f at %v, mean %.2f %s\n", stats.Min, stats.Coldest, stats.Max, stats.Hottest, stats.Mean, unit)
				return nil
			}),
		},
		{
			Name:  "record",
			Usage: "record spotmeter temperatures to csv and mqtt",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "append samples to `FILE` (default from config)"},
				&cli.StringSliceFlag{Name: "spot", Aliases: []string{"s"}, Usage: "place spotmeter `INSTANCE:X:Y` before recording"},
			},
			Action: func(ctx *cli.Context) error {
				return run(ctx, cfg, true, false)
			},
		},
		{
			Name:  "serve",
			Usage: "serve the camera over http",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "record", Usage: "also run the recorder"},
				&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "append samples to `FILE` (default from config)"},
				&cli.StringSliceFlag{Name: "spot", Aliases: []string{"s"}, Usage: "place spotmeter `INSTANCE:X:Y` before recording"},
			},
			Action: func(ctx *cli.Context) error {
				return run(ctx, cfg, ctx.Bool("record"), true)
			},
		},
		{
			Name:  "view",
			Usage: "show the camera video stream, press q to quit",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "encoding", Usage: "stream `ENCODING` (avc|mjpg|mpeg4)"},
				&cli.BoolFlag{Name: "overlay", Usage: "keep the camera's own overlay"},
				&cli.StringSliceFlag{Name: "spot", Aliases: []string{"s"}, Usage: "mark spotmeter `INSTANCE:X:Y`"},
				&cli.IntFlag{Name: "width", Usage: "resize frames to `WIDTH` (with --height), in gray"},
				&cli.IntFlag{Name: "height", Usage: "resize frames to `HEIGHT`"},
			},
			Action: func(ctx *cli.Context) error {
				spots, err := parseSpots(ctx.StringSlice("spot"))
				if err != nil {
					return err
				}
				encoding := cfg.Video.Encoding
				if ctx.IsSet("encoding") {
					encoding = ctx.String("encoding")
				}
				overlay := cfg.Video.Overlay || ctx.Bool("overlay")
				f, err := feed.Open(feed.RTSPURL(cfg.Camera.Host, encoding, overlay))
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()

				var process feed.ProcessFunc
				if w, h := ctx.Int("width"), ctx.Int("height"); w > 0 && h > 0 {
					process = feed.GrayResize(w, h)
				}
				feed.NewViewer(f, spots).Show(process)
				return nil
			},
		},
	}
}

func spotCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "spot",
		Usage: "place, remove and read spotmeters",
		Subcommands: []*cli.Command{
			{
				Name:      "enable",
				Usage:     "place and enable spotmeters",
				ArgsUsage: " ",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "spot", Aliases: []string{"s"}, Required: true, Usage: "spotmeter `INSTANCE:X:Y`, x in 2-78, y in 2-58"},
					&cli.BoolFlag{Name: "global-params", Usage: "use the camera's global parameters instead of local ones"},
				},
				Action: withCamera(cfg, func(ctx *cli.Context, camera *ax8driver.Camera) error {
					spots, err := parseSpots(ctx.StringSlice("spot"))
					if err != nil {
						return err
					}
					return camera.EnableSpotmeters(spots, !ctx.Bool("global-params"))
				}),
			},
			{
				Name:      "disable",
				Usage:     "disable spotmeters",
				ArgsUsage: "[INSTANCE...]",
				Action: withCamera(cfg, func(ctx *cli.Context, camera *ax8driver.Camera) error {
					instances, err := parseInstances(ctx.Args().Slice())
					if err != nil {
						return err
					}
					return camera.DisableSpotmeters(instances)
				}),
			},
			{
				Name:      "read",
				Usage:     "print spotmeter temperatures",
				ArgsUsage: "[INSTANCE...]",
				Flags:     []cli.Flag{unitFlag()},
				Action: withCamera(cfg, func(ctx *cli.Context, camera *ax8driver.Camera) error {
					instances, err := parseInstances(ctx.Args().Slice())
					if err != nil {
						return err
					}
					unit, err := ax8driver.ParseTemperatureUnit(ctx.String("unit"))
					if err != nil {
						return err
					}
					temps, err := camera.SpotmeterTemperatures(instances, unit)
					if err != nil {
						return err
					}
					for i, instance := range instances {
						fmt.Printf("spot %d: %.2f %s\n", instance, temps[i], unit)
					}
					return nil
				}),
			},
			{
				Name:      "position",
				Usage:     "print spotmeter positions",
				ArgsUsage: "[INSTANCE...]",
				Action: withCamera(cfg, func(ctx *cli.Context, camera *ax8driver.Camera) error {
					instances, err := parseInstances(ctx.Args().Slice())
					if err != nil {
						return err
					}
					positions, err := camera.SpotmeterPositions(instances)
					if err != nil {
						return err
					}
					for i, instance := range instances {
						fmt.Printf("spot %d: (%d, %d)\n", instance, positions[i].X, positions[i].Y)
					}
					return nil
				}),
			},
			{
				Name:      "state",
				Usage:     "print spotmeter temperature states",
				ArgsUsage: "[INSTANCE...]",
				Action: withCamera(cfg, func(ctx *cli.Context, camera *ax8driver.Camera) error {
					instances, err := parseInstances(ctx.Args().Slice())
					if err != nil {
						return err
					}
					states, err := camera.SpotmeterTemperatureStates(instances)
					if err != nil {
						return err
					}
					for i, instance := range instances {
						fmt.Printf("spot %d: %d\n", instance, states[i])
					}
					return nil
				}),
			},
		},
	}
}

// run starts the long running services and waits for a termination signal.
func run(ctx *cli.Context, cfg *config.Config, record, serve bool) error {
	camera, err := openCamera(ctx, cfg)
	if err != nil {
		return err
	}
	shared := ax8driver.Share(camera)
	defer func() {
		debug.InfoLog.Printf("closing camera session")
		_ = shared.Close()
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var client mqtt.Client
	if cfg.MQTT.Broker != "" {
		if client, err = ax8driver.NewMQTTClient(cfg.MQTT); err != nil {
			return err
		}
		defer client.Disconnect(ax8driver.MQTT_QUIESCE)
	}

	if cfg.Video.Enabled && client != nil {
		go publishSnapshots(sigCtx, cfg, client)
	}

	errChan := make(chan error, 2)
	if serve {
		addr, err := urlHost(cfg.Webserver.URL)
		if err != nil {
			return err
		}
		app := server.New(shared, cfg.Webserver.Webservices)
		go func() { errChan <- app.Listen(addr) }()
		defer func() { _ = app.Shutdown() }()
	}

	if record {
		recorderCfg := cfg.Recorder
		if ctx.IsSet("spot") {
			if recorderCfg.Spots, err = parseSpots(ctx.StringSlice("spot")); err != nil {
				return err
			}
			recorderCfg.Instances = nil
		}
		out := cfg.DataFile
		if ctx.String("out") != "" {
			out = ctx.String("out")
		}
		f, err := os.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()

		var publisher ax8driver.Publisher
		paramsChan := make(chan map[string]float64, 1)
		if client != nil {
			publisher = &ax8driver.MQTTPublisher{Client: client, Qos: cfg.MQTT.Qos}
			if err := ax8driver.SetupMQTTSubscriptionCallbacks(paramsChan, client, cfg.MQTT.ParametersTopic); err != nil {
				return err
			}
		}
		recorder := ax8driver.NewRecorder(shared, recorderCfg, f, publisher)
		go func() { errChan <- recorder.Run(sigCtx, paramsChan) }()
	}

	select {
	case <-sigCtx.Done():
		debug.InfoLog.Print("Got signal. Aborting...")
		return nil
	case err := <-errChan:
		return err
	}
}

// publishSnapshots publishes a frame of the RTSP stream every SNAPSHOT_INTERVAL.
func publishSnapshots(ctx context.Context, cfg *config.Config, client mqtt.Client) {
	f, err := feed.Open(feed.RTSPURL(cfg.Camera.Host, cfg.Video.Encoding, cfg.Video.Overlay))
	if err != nil {
		debug.ErrorLog.Printf("video disabled: %v", err)
		return
	}
	defer func() { _ = f.Close() }()

	ticker := time.NewTicker(cfg.Video.SnapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := feed.Snapshot(f, cfg.MQTT.SnapshotTopic, cfg.Recorder.Spots, client); err != nil {
				debug.ErrorLog.Printf("snapshot: %v", err)
			}
		}
	}
}

// urlHost returns the host:port part of the webserver url.
func urlHost(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("webserver url %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("webserver url %q has no host", raw)
	}
	return u.Host, nil
}
