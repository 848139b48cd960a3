package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"go.ax8-thermal-camera.gocv-driver/ax8driver"
)

// Config defines the struct of global config and the struct of the configuration file
type Config struct {
	Camera     ax8driver.TransportConfig     `yaml:"camera"`
	Verbose    bool                          `yaml:"verbose"`
	Parameters ax8driver.SpotmeterParameters `yaml:"parameters"`
	Video      VideoConfig                   `yaml:"video"`
	Recorder   ax8driver.RecorderConfig      `yaml:"recorder"`
	DataFile   string                        `yaml:"datafile"`
	MQTT       ax8driver.MQTTConfig          `yaml:"mqtt"`
	Webserver  WebserverConfig               `yaml:"webserver"`
	Log        LogConfig                     `yaml:"log"`
	Flag       FlagConfig                    `yaml:"-"`
}

// FlagConfig defines the configured flags (parameters)
type FlagConfig struct {
	ConfigFile string
	LogLevel   string
	Host       string
}

// VideoConfig selects the optional RTSP feed.
type VideoConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Encoding string `yaml:"encoding"`
	Overlay  bool   `yaml:"overlay"`
	// SnapshotInterval is the period of the frames published on mqtt while recording.
	SnapshotInterval time.Duration `yaml:"snapshotinterval"`
}

// WebserverConfig defines the struct of the webserver and webservice configuration and configuration file
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// LogConfig defines the struct of the log configuration and configuration file
type LogConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Level      string         `yaml:"level"`
	FileString string         `yaml:"file"`
}

func NewConfig() *Config {
	return &Config{
		Camera: ax8driver.TransportConfig{
			Port:        ax8driver.MODBUS_PORT,
			Timeout:     ax8driver.MODBUS_TIMEOUT,
			IdleTimeout: ax8driver.MODBUS_IDLE_TIMEOUT,
		},
		Parameters: ax8driver.DefaultSpotmeterParameters,
		Video: VideoConfig{
			Encoding:         "avc",
			SnapshotInterval: 10 * time.Second,
		},
		Recorder: ax8driver.RecorderConfig{
			UseLocalParams: true,
			Interval:       ax8driver.RECORDER_INTERVAL,
			Unit:           ax8driver.CELSIUS,
		},
		DataFile: "temps.csv",
		MQTT: ax8driver.MQTTConfig{
			SampleTopic:     "ax8/spotmeters",
			ParametersTopic: "ax8/parameters/set",
			SnapshotTopic:   "ax8/images/raw",
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version":     true,
				"health":      true,
				"temperature": true,
				"spotmeters":  true,
				"parameters":  true,
				"cutline":     true,
			},
		},
		Log: LogConfig{
			FileString: "stderr",
			Level:      "info",
		},
	}
}

// LoadConfig reads the config file if one is given and applies environment
// and flag overrides, in that order.
func (c *Config) LoadConfig() error {
	if c.Flag.ConfigFile != "" {
		if err := c.readConfigFile(); err != nil {
			return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
		}
	}

	if host := os.Getenv("AX8_HOST"); host != "" {
		c.Camera.Host = host
	}
	if c.Flag.Host != "" {
		c.Camera.Host = c.Flag.Host
	}
	if c.Flag.LogLevel != "" {
		c.Log.Level = c.Flag.LogLevel
	}
	if c.Camera.Host == "" {
		return fmt.Errorf("no camera host configured")
	}
	if err := c.Parameters.Validate(); err != nil {
		return fmt.Errorf("invalid spotmeter parameters: %w", err)
	}
	if c.Recorder.Interval <= 0 {
		c.Recorder.Interval = time.Second
	}
	if c.Video.SnapshotInterval <= 0 {
		c.Video.SnapshotInterval = 10 * time.Second
	}
	if len(c.Recorder.Instances) == 0 && len(c.Recorder.Spots) == 0 {
		c.Recorder.Instances = []int{1, 2}
	}
	c.Recorder.Topic = c.MQTT.SampleTopic

	if err := c.setLogConfig(); err != nil {
		return fmt.Errorf("unable to open log file %q: %w", c.Log.FileString, err)
	}
	return nil
}

func (c *Config) readConfigFile() error {
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	decoder := yaml.NewDecoder(file)
	if err = decoder.Decode(c); err != nil {
		return err
	}

	return nil
}

func (c *Config) setLogConfig() (err error) {
	if _, err = ax8driver.LogFlag(c.Log.Level); err != nil {
		return err
	}

	switch c.Log.FileString {
	case "stderr", "":
		c.Log.File = os.Stderr
	case "stdout":
		c.Log.File = os.Stdout
	default:
		if c.Log.File, err = os.OpenFile(c.Log.FileString, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err != nil {
			return
		}
	}

	return
}
