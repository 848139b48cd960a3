package main

import (
	"os"
	"sort"

	"github.com/urfave/cli/v2"
	"github.com/womat/debug"

	"go.ax8-thermal-camera.gocv-driver/config"
	"go.ax8-thermal-camera.gocv-driver/server"
)

func main() {
	exitCode := 1
	defer func() {
		os.Exit(exitCode)
	}()

	// cfg holds the application configuration
	cfg := config.NewConfig()

	cliApp := &cli.App{
		Name:    server.MODULE,
		Usage:   "Spotmeter and video client for the FLIR AX8 thermal camera",
		Version: server.VERSION,
		Description: "Reads and places the AX8 spotmeters over Modbus TCP, sweeps cutlines," +
			"\n records spotmeter temperatures to csv and mqtt, serves them over http" +
			"\n and shows the camera's RTSP stream.",
		UsageText: "ax8 [--config <file>] [--host <ip>] [--log info|debug|trace] <command>" +
			"\n\nEXAMPLE:" +
			"\n\tplace two spotmeters and read them" +
			"\n\t\tax8 --host 192.168.1.111 spot enable --spot 1:30:40 --spot 2:50:20" +
			"\n\t\tax8 --host 192.168.1.111 spot read 1 2",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Destination: &cfg.Flag.ConfigFile, Usage: "load configuration from `FILE`"},
			&cli.StringFlag{Name: "host", Destination: &cfg.Flag.Host, Usage: "camera `ADDRESS`"},
			&cli.StringFlag{Name: "log", Aliases: []string{"l"}, Destination: &cfg.Flag.LogLevel, Usage: "`LEVEL` defines the log level (error|warning|info|debug|trace)"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log every reading"},
			&cli.StringSliceFlag{Name: "param", Aliases: []string{"p"}, Usage: "spotmeter parameter `KEY=VALUE` (reflected_temp, emissivity, distance)"},
		},
		Before: func(ctx *cli.Context) error {
			if err := cfg.LoadConfig(); err != nil {
				return err
			}
			if ctx.Bool("verbose") {
				cfg.Verbose = true
			}
			return setupLogging(cfg)
		},
		After: func(ctx *cli.Context) error {
			if cfg.Log.File != nil && cfg.Log.File != os.Stderr && cfg.Log.File != os.Stdout {
				return cfg.Log.File.Close()
			}
			return nil
		},
		Commands: commands(cfg),
	}

	sort.Sort(cli.FlagsByName(cliApp.Flags))
	sort.Sort(cli.CommandsByName(cliApp.Commands))

	err := cliApp.Run(os.Args)
	if err != nil {
		debug.ErrorLog.Print(err)
		exitCode = 1
		return
	}

	exitCode = 0
}
