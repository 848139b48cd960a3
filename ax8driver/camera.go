package ax8driver

import (
	"sync"

	"github.com/womat/debug"
)

var (
	// Spotmeter instances used, in order, for cutline and image sweeps.
	SWEEP_INSTANCES = [SPOTMETER_N_INSTANCES]int{1, 2, 3, 4, 5}
)

// Option configures a Camera.
type Option func(*Camera)

// WithVerbose logs every successful reading at info level.
func WithVerbose(verbose bool) Option {
	return func(c *Camera) {
		c.verbose = verbose
	}
}

// WithParameters replaces the default spotmeter parameters.
func WithParameters(params SpotmeterParameters) Option {
	return func(c *Camera) {
		c.params = params
	}
}

// Camera is a session with one AX8 camera. It owns its transport and the
// spotmeter parameters used when enabling spots with local parameters.
// A Camera is not safe for concurrent use, see SharedCamera.
type Camera struct {
	transport  Transport
	spotmeters *Spotmeters
	params     SpotmeterParameters
	verbose    bool
	closed     bool
}

// Open connects to the camera and probes it.
func Open(cfg TransportConfig, opts ...Option) (*Camera, error) {
	transport, err := DialModbus(cfg)
	if err != nil {
		return nil, err
	}
	c, err := New(transport, opts...)
	if err != nil {
		return nil, err
	}
	debug.InfoLog.Printf("Established Modbus TCP at %s", cfg.Address())
	return c, nil
}

// New starts a session over an already opened transport. The session is only
// returned if the internal temperature can be read; otherwise the transport
// is closed and a ConnectionError is returned.
func New(transport Transport, opts ...Option) (*Camera, error) {
	c := &Camera{
		transport: transport,
		params:    DefaultSpotmeterParameters,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.params.Validate(); err != nil {
		_ = transport.Close()
		return nil, err
	}
	c.spotmeters = NewSpotmeters(transport, c.verbose)

	if _, err := c.spotmeters.InternalTemperature(); err != nil {
		_ = transport.Close()
		debug.ErrorLog.Printf("Unable to establish Modbus TCP! Error- %v", err)
		return nil, &ConnectionError{Address: transportAddress(transport), Err: err}
	}
	return c, nil
}

func transportAddress(transport Transport) string {
	if a, ok := transport.(interface{ Address() string }); ok {
		return a.Address()
	}
	return "transport"
}

// Close releases the transport. Further calls fail with ErrClosed.
func (c *Camera) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.transport.Close()
}

func (c *Camera) InternalTemperature() (float64, error) {
	if c.closed {
		return 0, ErrClosed
	}
	return c.spotmeters.InternalTemperature()
}

// SpotmeterParameters returns a copy of the current parameters.
func (c *Camera) SpotmeterParameters() SpotmeterParameters {
	return c.params
}

// SetSpotmeterParameters merges update into the current parameters and
// returns the keys it did not know.
func (c *Camera) SetSpotmeterParameters(update map[string]float64) ([]string, error) {
	if c.closed {
		return nil, ErrClosed
	}
	ignored, err := c.params.Merge(update)
	if len(ignored) > 0 {
		debug.DebugLog.Printf("Ignoring unknown spotmeter parameters %v", ignored)
	}
	return ignored, err
}

func (c *Camera) EnableSpotmeters(spots []Spot, useLocalParams bool) error {
	if c.closed {
		return ErrClosed
	}
	return c.spotmeters.Enable(spots, useLocalParams, c.params)
}

func (c *Camera) DisableSpotmeters(instances []int) error {
	if c.closed {
		return ErrClosed
	}
	return c.spotmeters.Disable(instances)
}

func (c *Camera) SpotmeterTemperatures(instances []int, unit TemperatureUnit) ([]float64, error) {
	if c.closed {
		return nil, ErrClosed
	}
	return c.spotmeters.ReadTemperatures(instances, unit)
}

func (c *Camera) SpotmeterPositions(instances []int) ([]Position, error) {
	if c.closed {
		return nil, ErrClosed
	}
	return c.spotmeters.ReadPositions(instances)
}

func (c *Camera) SpotmeterTemperatureStates(instances []int) ([]int32, error) {
	if c.closed {
		return nil, ErrClosed
	}
	return c.spotmeters.ReadTemperatureStates(instances)
}

// CutlineAlongX returns the temperatures of column x, top to bottom.
func (c *Camera) CutlineAlongX(x int, unit TemperatureUnit) ([FRAME_HEIGHT]float64, error) {
	var out [FRAME_HEIGHT]float64
	if err := checkCoordinate("x", x, FRAME_WIDTH); err != nil {
		return out, err
	}
	err := c.sweep(out[:], func(i int) (int, int) { return x, i }, unit)
	return out, err
}

// CutlineAlongY returns the temperatures of row y, left to right.
func (c *Camera) CutlineAlongY(y int, unit TemperatureUnit) ([FRAME_WIDTH]float64, error) {
	var out [FRAME_WIDTH]float64
	if err := checkCoordinate("y", y, FRAME_HEIGHT); err != nil {
		return out, err
	}
	err := c.sweep(out[:], func(i int) (int, int) { return i, y }, unit)
	return out, err
}

// sweep fills out by moving all spotmeters along a line, five pixels per
// enable and read round trip.
func (c *Camera) sweep(out []float64, pixel func(i int) (int, int), unit TemperatureUnit) error {
	if c.closed {
		return ErrClosed
	}
	for start := 0; start < len(out); start += SPOTMETER_N_INSTANCES {
		n := len(out) - start
		if n > SPOTMETER_N_INSTANCES {
			n = SPOTMETER_N_INSTANCES
		}
		spots := make([]Spot, n)
		for k := range spots {
			x, y := pixel(start + k)
			spots[k] = Spot{Instance: SWEEP_INSTANCES[k], X: x, Y: y}
		}
		if err := c.spotmeters.Enable(spots, true, c.params); err != nil {
			return err
		}
		temps, err := c.spotmeters.ReadTemperatures(SWEEP_INSTANCES[:n], unit)
		if err != nil {
			return err
		}
		copy(out[start:], temps)
	}
	return nil
}

func checkCoordinate(name string, v, size int) error {
	if v < 0 || v >= size {
		return &RangeError{Field: name, Value: float64(v), Min: 0, Max: float64(size - 1)}
	}
	return nil
}

// SharedCamera serialises access to a Camera from several goroutines.
type SharedCamera struct {
	mu     sync.Mutex
	camera *Camera
}

func Share(c *Camera) *SharedCamera {
	return &SharedCamera{camera: c}
}

// Do runs fn with exclusive use of the camera.
func (s *SharedCamera) Do(fn func(c *Camera) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.camera)
}

func (s *SharedCamera) Close() error {
	return s.Do(func(c *Camera) error { return c.Close() })
}
