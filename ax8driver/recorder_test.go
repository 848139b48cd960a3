package ax8driver

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu       sync.Mutex
	topics   []string
	messages []interface{}
}

func (p *fakePublisher) Publish(topic string, obj interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.messages = append(p.messages, obj)
	return nil
}

func newRecorderCamera(t *testing.T) (*fakeTransport, *SharedCamera) {
	transport := newFakeTransport()
	transport.registers[4140] = kelvinBlock(300)
	transport.registers[8140] = kelvinBlock(310)
	camera, err := New(transport)
	require.NoError(t, err)
	return transport, Share(camera)
}

func TestRecorderSampleAndRecord(t *testing.T) {
	_, camera := newRecorderCamera(t)
	var out bytes.Buffer
	publisher := &fakePublisher{}

	r := NewRecorder(camera, RecorderConfig{
		Spots: []Spot{{Instance: 1, X: 10, Y: 10}, {Instance: 2, X: 20, Y: 20}},
		Unit:  KELVIN,
		Topic: "ax8/samples",
	}, &out, publisher)
	r.now = func() time.Time { return time.Date(2021, 9, 13, 15, 17, 30, 0, time.UTC) }

	sample, err := r.Sample()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, sample.Instances)
	assert.Equal(t, []float64{300, 310}, sample.Values)
	assert.Equal(t, KELVIN, sample.Unit)

	require.NoError(t, r.Record(sample))
	assert.Equal(t, "15:17:30,300,310\n", out.String())
	require.Len(t, publisher.messages, 1)
	assert.Equal(t, "ax8/samples", publisher.topics[0])
	assert.Equal(t, sample, publisher.messages[0])
}

func TestRecorderApplyParametersReenablesSpots(t *testing.T) {
	transport, camera := newRecorderCamera(t)
	r := NewRecorder(camera, RecorderConfig{
		Spots:          []Spot{{Instance: 1, X: 10, Y: 10}},
		UseLocalParams: true,
	}, nil, nil)

	require.NoError(t, r.ApplyParameters(map[string]float64{"emissivity": 0.8}))
	emissivity, err := DecodeFloat(transport.registers[4040][4:])
	require.NoError(t, err)
	assert.Equal(t, float32(0.8), emissivity)

	assert.Error(t, r.ApplyParameters(map[string]float64{"emissivity": 2}))
}

func TestRecorderRun(t *testing.T) {
	transport, camera := newRecorderCamera(t)
	var out syncBuffer
	r := NewRecorder(camera, RecorderConfig{
		Instances: []int{1, 2},
		Interval:  5 * time.Millisecond,
	}, &out, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	params := make(chan map[string]float64, 1)
	params <- map[string]float64{"distance": 3}

	require.NoError(t, r.Run(ctx, params))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.GreaterOrEqual(t, len(lines), 2)
	k1, k2 := 300.0, 310.0
	assert.True(t, strings.HasSuffix(lines[0], fmt.Sprintf(",%v,%v", k1-273.1, k2-273.1)), lines[0])

	_ = camera.Do(func(c *Camera) error {
		assert.Equal(t, 3.0, c.SpotmeterParameters().Distance)
		return nil
	})
	assert.Empty(t, transport.writes)
}

func TestRecorderParameterUpdatesKeepSampling(t *testing.T) {
	_, camera := newRecorderCamera(t)
	var out syncBuffer
	r := NewRecorder(camera, RecorderConfig{
		Instances: []int{1},
		Interval:  40 * time.Millisecond,
	}, &out, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	params := make(chan map[string]float64)
	go func() {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case params <- map[string]float64{"distance": 2}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	require.NoError(t, r.Run(ctx, params))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.GreaterOrEqual(t, len(lines), 2, "updates every 5ms must not hold back 40ms samples")
}

func TestRecorderRunSkipsFailedSamples(t *testing.T) {
	transport, camera := newRecorderCamera(t)
	transport.readErr = errFakeDown
	var out syncBuffer
	r := NewRecorder(camera, RecorderConfig{Instances: []int{1}, Interval: time.Millisecond}, &out, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.NoError(t, r.Run(ctx, nil))
	assert.Empty(t, out.String())
	assert.Greater(t, len(transport.reads), 2)
}

func TestRecorderRequiresInstances(t *testing.T) {
	_, camera := newRecorderCamera(t)
	r := NewRecorder(camera, RecorderConfig{}, nil, nil)
	assert.Error(t, r.Run(context.Background(), nil))
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
