package ax8driver

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/juju/ratelimit"
	"github.com/womat/debug"
)

var (
	RECORDER_INTERVAL = 1 * time.Second
	RECORDER_TIME_FMT = "15:04:05"
)

// Publisher sends an object to a topic.
type Publisher interface {
	Publish(topic string, obj interface{}) error
}

// RecorderConfig selects what the recorder samples.
type RecorderConfig struct {
	// Spots are enabled before recording and again after each parameter update.
	// Leave empty to sample spotmeters that are already placed.
	Spots          []Spot          `yaml:"spots"`
	Instances      []int           `yaml:"instances"`
	UseLocalParams bool            `yaml:"uselocalparams"`
	Interval       time.Duration   `yaml:"interval"`
	Unit           TemperatureUnit `yaml:"unit"`
	Topic          string          `yaml:"-"`
}

// Recorder periodically samples spotmeter temperatures into a CSV stream and
// optionally onto MQTT.
type Recorder struct {
	camera    *SharedCamera
	cfg       RecorderConfig
	csvW      *csv.Writer
	publisher Publisher
	bucket    *ratelimit.Bucket
	now       func() time.Time
}

func NewRecorder(camera *SharedCamera, cfg RecorderConfig, out io.Writer, publisher Publisher) *Recorder {
	if cfg.Interval <= 0 {
		cfg.Interval = RECORDER_INTERVAL
	}
	if cfg.Unit == "" {
		cfg.Unit = CELSIUS
	}
	if len(cfg.Instances) == 0 {
		for _, spot := range cfg.Spots {
			cfg.Instances = append(cfg.Instances, spot.Instance)
		}
	}
	r := &Recorder{
		camera:    camera,
		cfg:       cfg,
		publisher: publisher,
		bucket:    ratelimit.NewBucket(cfg.Interval, 1),
		now:       time.Now,
	}
	if out != nil {
		r.csvW = csv.NewWriter(out)
	}
	return r
}

// Run samples until ctx is done. Failed samples are logged and skipped.
func (r *Recorder) Run(ctx context.Context, paramsChan <-chan map[string]float64) error {
	if len(r.cfg.Instances) == 0 {
		return fmt.Errorf("recorder has no spotmeter instances to sample")
	}
	if err := r.enableSpots(); err != nil {
		return err
	}
	debug.InfoLog.Printf("Recording spotmeters %v every %s", r.cfg.Instances, r.cfg.Interval)

	for i := 0; ; i++ {
		timer := time.NewTimer(r.bucket.Take(1))
	wait:
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				debug.InfoLog.Printf("Recorder stopped after %d samples", i)
				return nil
			case update := <-paramsChan:
				// the pending sample keeps its slot
				if err := r.ApplyParameters(update); err != nil {
					debug.ErrorLog.Printf("Spotmeter parameters %v rejected: %v", update, err)
				}
			case <-timer.C:
				break wait
			}
		}

		sample, err := r.Sample()
		if err != nil {
			debug.ErrorLog.Printf("Skipping sample: %v", err)
			continue
		}
		if err := r.Record(sample); err != nil {
			debug.ErrorLog.Printf("Recording sample: %v", err)
		}
	}
}

func (r *Recorder) enableSpots() error {
	if len(r.cfg.Spots) == 0 {
		return nil
	}
	return r.camera.Do(func(c *Camera) error {
		return c.EnableSpotmeters(r.cfg.Spots, r.cfg.UseLocalParams)
	})
}

// ApplyParameters merges update into the camera parameters and places the
// configured spots again so that they pick them up.
func (r *Recorder) ApplyParameters(update map[string]float64) error {
	err := r.camera.Do(func(c *Camera) error {
		_, err := c.SetSpotmeterParameters(update)
		if err == nil {
			debug.InfoLog.Printf("Spotmeter parameters now %s", c.SpotmeterParameters())
		}
		return err
	})
	if err != nil {
		return err
	}
	return r.enableSpots()
}

// Sample reads the configured spotmeters once.
func (r *Recorder) Sample() (Sample, error) {
	var temps []float64
	err := r.camera.Do(func(c *Camera) (err error) {
		temps, err = c.SpotmeterTemperatures(r.cfg.Instances, r.cfg.Unit)
		return err
	})
	if err != nil {
		return Sample{}, err
	}
	return Sample{
		Time:      r.now(),
		Unit:      r.cfg.Unit,
		Instances: r.cfg.Instances,
		Values:    temps,
	}, nil
}

// Record writes the sample to the CSV stream and publishes it.
func (r *Recorder) Record(sample Sample) error {
	if r.csvW != nil {
		if err := WriteCSV(r.csvW, sample.Time.Format(RECORDER_TIME_FMT), sample.Values); err != nil {
			return err
		}
	}
	if r.publisher != nil && r.cfg.Topic != "" {
		if err := r.publisher.Publish(r.cfg.Topic, sample); err != nil {
			return fmt.Errorf("publishing sample: %w", err)
		}
	}
	debug.DebugLog.Printf("%s %v", sample.Time.Format(RECORDER_TIME_FMT), sample.Values)
	return nil
}

func WriteCSV(csvW *csv.Writer, label string, values []float64) error {
	var valuesStrings []string = make([]string, len(values)+1)
	valuesStrings[0] = label
	for i, v := range values {
		valuesStrings[i+1] = fmt.Sprint(v)
	}
	if err := csvW.Write(valuesStrings); err != nil {
		return err
	}
	csvW.Flush()
	return csvW.Error()
}
