package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ax8-thermal-camera.gocv-driver/ax8driver"
)

// registerFile is a camera whose spotmeters all read 300 K.
type registerFile struct {
	registers map[uint16][]uint16
	down      bool
}

func (r *registerFile) ReadHoldingRegisters(unitID byte, address, quantity uint16) ([]uint16, error) {
	if r.down {
		return nil, &ax8driver.TransportError{Op: "read", UnitID: unitID, Address: address, Err: errors.New("timeout")}
	}
	if words, ok := r.registers[address]; ok {
		return words, nil
	}
	if ax8driver.SpotmeterField(address%ax8driver.SPOTMETER_BASE_STRIDE) == ax8driver.SPOTMETER_TEMPERATURE {
		p, _ := ax8driver.EncodeFloat(300)
		return p.Words(), nil
	}
	return make([]uint16, quantity), nil
}

func (r *registerFile) WriteMultipleRegisters(unitID byte, address uint16, values []uint16) error {
	r.registers[address] = append([]uint16(nil), values...)
	return nil
}

func (r *registerFile) Close() error { return nil }

func newTestApp(t *testing.T, webservices map[string]bool) (*App, *registerFile) {
	p, _ := ax8driver.EncodeFloat(310)
	value := p.Value()
	transport := &registerFile{registers: map[uint16][]uint16{ax8driver.INTERNAL_TEMPERATURE_REG: value[:]}}
	camera, err := ax8driver.New(transport)
	require.NoError(t, err)
	if webservices == nil {
		webservices = map[string]bool{"version": true, "health": true, "temperature": true, "spotmeters": true, "parameters": true, "cutline": true}
	}
	return New(ax8driver.Share(camera), webservices), transport
}

func do(t *testing.T, app *App, method, target, body string) (int, map[string]interface{}) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.web.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHandleVersion(t *testing.T) {
	app, _ := newTestApp(t, nil)
	status, out := do(t, app, http.MethodGet, "/version", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, VERSION, out["version"])
	assert.Equal(t, "ax8 V0.1.0", out["about"])
}

func TestHandleHealth(t *testing.T) {
	app, transport := newTestApp(t, nil)
	_, out := do(t, app, http.MethodGet, "/health", "")
	assert.Equal(t, "ok", out["Camera"])

	transport.down = true
	_, out = do(t, app, http.MethodGet, "/health", "")
	assert.Contains(t, out["Camera"], "timeout")
}

func TestHandleTemperature(t *testing.T) {
	app, transport := newTestApp(t, nil)
	status, out := do(t, app, http.MethodGet, "/temperature", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 310.0, out["temperature"])

	transport.down = true
	status, out = do(t, app, http.MethodGet, "/temperature", "")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Contains(t, out["error"], "timeout")
}

func TestHandleSpotmeters(t *testing.T) {
	app, _ := newTestApp(t, nil)

	status, out := do(t, app, http.MethodGet, "/spotmeters?instances=1,3&unit=Kelvin", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []interface{}{300.0, 300.0}, out["values"])

	status, _ = do(t, app, http.MethodGet, "/spotmeters?instances=9", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, app, http.MethodGet, "/spotmeters?unit=Rankine", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHandleEnableAndPositions(t *testing.T) {
	app, transport := newTestApp(t, nil)

	status, _ := do(t, app, http.MethodPost, "/spotmeters/enable", `{"spots":[{"instance":2,"x":50,"y":20}],"use_local_params":false}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []uint16{1, 1}, transport.registers[8080])
	_, local := transport.registers[8000]
	assert.False(t, local)

	status, out := do(t, app, http.MethodGet, "/spotmeters/positions?instances=2", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []interface{}{map[string]interface{}{"x": 50.0, "y": 20.0}}, out["positions"])

	status, _ = do(t, app, http.MethodPost, "/spotmeters/disable", `{"instances":[2]}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []uint16{1, 1}, transport.registers[8080])
}

func TestHandleParameters(t *testing.T) {
	app, _ := newTestApp(t, nil)

	status, out := do(t, app, http.MethodPut, "/parameters", `{"emissivity":0.8,"zoom":2}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []interface{}{"zoom"}, out["ignored"])

	_, out = do(t, app, http.MethodGet, "/parameters", "")
	assert.Equal(t, 0.8, out["emissivity"])
	assert.Equal(t, 298.0, out["reflected_temp"])

	status, _ = do(t, app, http.MethodPut, "/parameters", `{"distance":0.1}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHandleCutline(t *testing.T) {
	app, _ := newTestApp(t, nil)

	status, out := do(t, app, http.MethodGet, "/cutline/x/10?unit=K", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, out["values"], 60)
	assert.Equal(t, "x", out["axis"])

	status, out = do(t, app, http.MethodGet, "/cutline/y/5", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, out["values"], 80)

	status, _ = do(t, app, http.MethodGet, "/cutline/y/60", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestDisabledWebservice(t *testing.T) {
	app, _ := newTestApp(t, map[string]bool{"version": true})
	req := httptest.NewRequest(http.MethodGet, "/cutline/x/1", nil)
	resp, err := app.web.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
