package ax8driver

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pixelCamera answers spot temperature reads with 100*x + y Kelvin, using the
// position last written to that spotmeter.
func pixelCamera(t *testing.T) *fakeTransport {
	transport := newFakeTransport()
	transport.onRead = func(address, quantity uint16) []uint16 {
		if SpotmeterField(address%SPOTMETER_BASE_STRIDE) != SPOTMETER_TEMPERATURE {
			return nil
		}
		base := address - uint16(SPOTMETER_TEMPERATURE)
		x, err := DecodeInt(transport.registers[base+uint16(SPOTMETER_X_POSITION)][4:])
		require.NoError(t, err)
		y, err := DecodeInt(transport.registers[base+uint16(SPOTMETER_Y_POSITION)][4:])
		require.NoError(t, err)
		return kelvinBlock(float32(100*x + y))
	}
	return transport
}

func countReads(transport *fakeTransport, field SpotmeterField) int {
	n := 0
	for _, r := range transport.reads {
		if r.UnitID == SPOTMETER_UNIT_ID && SpotmeterField(r.Address%SPOTMETER_BASE_STRIDE) == field {
			n++
		}
	}
	return n
}

func TestNewProbesInternalTemperature(t *testing.T) {
	transport := newFakeTransport()
	camera, err := New(transport)
	require.NoError(t, err)
	require.Len(t, transport.reads, 1)
	assert.Equal(t, INTERNAL_TEMPERATURE_REG, transport.reads[0].Address)
	assert.Equal(t, DefaultSpotmeterParameters, camera.SpotmeterParameters())
	assert.False(t, transport.closed)
}

func TestNewFailsWhenProbeFails(t *testing.T) {
	transport := newFakeTransport()
	transport.readErr = errFakeDown

	camera, err := New(transport)
	assert.Nil(t, camera)
	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "transport", connErr.Address)
	var transportErr *TransportError
	assert.True(t, errors.As(err, &transportErr))
	assert.ErrorIs(t, err, errFakeDown)
	assert.True(t, transport.closed)
}

func TestNewRejectsInvalidParameters(t *testing.T) {
	transport := newFakeTransport()
	_, err := New(transport, WithParameters(SpotmeterParameters{ReflectedTemp: 290, Emissivity: 0, Distance: 1}))
	var rangeErr *RangeError
	assert.True(t, errors.As(err, &rangeErr))
	assert.True(t, transport.closed)
}

func TestOpenUnreachable(t *testing.T) {
	_, err := Open(TransportConfig{Host: "127.0.0.1", Port: 1, Timeout: 100 * time.Millisecond})
	var connErr *ConnectionError
	assert.True(t, errors.As(err, &connErr))
}

func TestEnableUsesHeldParameters(t *testing.T) {
	transport := newFakeTransport()
	camera, err := New(transport)
	require.NoError(t, err)

	ignored, err := camera.SetSpotmeterParameters(map[string]float64{"emissivity": 0.9, "colour": 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"colour"}, ignored)

	require.NoError(t, camera.EnableSpotmeters([]Spot{{Instance: 1, X: 30, Y: 40}}, true))
	emissivity, err := DecodeFloat(transport.registers[4040][4:])
	require.NoError(t, err)
	assert.Equal(t, float32(0.9), emissivity)
	reflected, err := DecodeFloat(transport.registers[4020][4:])
	require.NoError(t, err)
	assert.Equal(t, float32(298.0), reflected)
}

func TestCutlineAlongX(t *testing.T) {
	transport := pixelCamera(t)
	camera, err := New(transport)
	require.NoError(t, err)

	out, err := camera.CutlineAlongX(10, KELVIN)
	require.NoError(t, err)
	assert.Len(t, out, 60)
	for y, v := range out {
		assert.Equal(t, float64(1000+y), v, "y=%d", y)
	}
	assert.Equal(t, 12*5, countReads(transport, SPOTMETER_TEMPERATURE))

	enables := 0
	for _, w := range transport.writes {
		if SpotmeterField(w.Address%SPOTMETER_BASE_STRIDE) == SPOTMETER_ENABLE_LOCAL_PARAMS {
			enables++
		}
	}
	assert.Equal(t, 60, enables)
}

func TestCutlineAlongY(t *testing.T) {
	transport := pixelCamera(t)
	camera, err := New(transport)
	require.NoError(t, err)

	out, err := camera.CutlineAlongY(7, CELSIUS)
	require.NoError(t, err)
	assert.Len(t, out, 80)
	for x, v := range out {
		k := float64(100*x + 7)
		assert.Equal(t, k-273.1, v, "x=%d", x)
	}
	assert.Equal(t, 16*5, countReads(transport, SPOTMETER_TEMPERATURE))
}

func TestCutlineRejectsCoordinate(t *testing.T) {
	camera, err := New(newFakeTransport())
	require.NoError(t, err)

	var rangeErr *RangeError
	_, err = camera.CutlineAlongX(80, CELSIUS)
	assert.True(t, errors.As(err, &rangeErr))
	_, err = camera.CutlineAlongY(-1, CELSIUS)
	assert.True(t, errors.As(err, &rangeErr))
	_, err = camera.CutlineAlongY(60, CELSIUS)
	assert.True(t, errors.As(err, &rangeErr))
}

func TestCutlineStopsOnError(t *testing.T) {
	transport := pixelCamera(t)
	camera, err := New(transport)
	require.NoError(t, err)
	transport.failAfter = 10

	_, err = camera.CutlineAlongX(3, CELSIUS)
	var transportErr *TransportError
	assert.True(t, errors.As(err, &transportErr))
	assert.Equal(t, 0, countReads(transport, SPOTMETER_TEMPERATURE))
}

func TestUseAfterClose(t *testing.T) {
	transport := newFakeTransport()
	camera, err := New(transport)
	require.NoError(t, err)
	require.NoError(t, camera.Close())
	assert.True(t, transport.closed)
	require.NoError(t, camera.Close())

	_, err = camera.InternalTemperature()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = camera.SpotmeterTemperatures([]int{1}, CELSIUS)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, camera.EnableSpotmeters([]Spot{{Instance: 1}}, true), ErrClosed)
	assert.ErrorIs(t, camera.DisableSpotmeters([]int{1}), ErrClosed)
	_, err = camera.CutlineAlongX(1, CELSIUS)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSharedCamera(t *testing.T) {
	camera, err := New(newFakeTransport())
	require.NoError(t, err)
	shared := Share(camera)

	var kelvin float64
	err = shared.Do(func(c *Camera) (err error) {
		kelvin, err = c.InternalTemperature()
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 305.5, kelvin)

	require.NoError(t, shared.Close())
	err = shared.Do(func(c *Camera) error {
		_, err := c.InternalTemperature()
		return err
	})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSetSpotmeterParametersAfterClose(t *testing.T) {
	camera, err := New(newFakeTransport())
	require.NoError(t, err)
	require.NoError(t, camera.Close())

	_, err = camera.SetSpotmeterParameters(map[string]float64{"emissivity": 0.5})
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, DefaultSpotmeterParameters, camera.SpotmeterParameters())
}
