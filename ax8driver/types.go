package ax8driver

import (
	"fmt"
	"strings"
	"time"
)

// Thermal image geometry in spotmeter pixel coordinates.
const (
	FRAME_WIDTH  = 80
	FRAME_HEIGHT = 60

	// Documented spotmeter placement limits. Not enforced.
	SPOT_MIN_X = 2
	SPOT_MAX_X = 78
	SPOT_MIN_Y = 2
	SPOT_MAX_Y = 58
)

// Spot places a spotmeter instance on a pixel.
type Spot struct {
	Instance int `json:"instance" yaml:"instance"`
	X        int `json:"x" yaml:"x"`
	Y        int `json:"y" yaml:"y"`
}

// Position is a spotmeter location as reported by the camera.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type TemperatureUnit string

const (
	CELSIUS TemperatureUnit = "Celsius"
	KELVIN  TemperatureUnit = "Kelvin"
)

// The camera reports Kelvin; Celsius readings use this offset rather than 273.15.
const KELVIN_TO_CELSIUS_OFFSET = -273.1

// ParseTemperatureUnit accepts "Celsius"/"C" and "Kelvin"/"K" in any case.
func ParseTemperatureUnit(s string) (TemperatureUnit, error) {
	switch strings.ToLower(s) {
	case "celsius", "c", "":
		return CELSIUS, nil
	case "kelvin", "k":
		return KELVIN, nil
	}
	return "", fmt.Errorf("unknown temperature unit %q", s)
}

// FromKelvin converts a camera reading into the unit.
// Anything but CELSIUS is left in Kelvin.
func (u TemperatureUnit) FromKelvin(k float64) float64 {
	if u == CELSIUS {
		return k + KELVIN_TO_CELSIUS_OFFSET
	}
	return k
}

// Sample is one recorder reading of a set of spotmeters.
type Sample struct {
	Time      time.Time       `json:"time"`
	Unit      TemperatureUnit `json:"unit"`
	Instances []int           `json:"instances"`
	Values    []float64       `json:"values"`
}
