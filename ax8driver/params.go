package ax8driver

import (
	"fmt"
	"math"
	"sort"
)

// Parameter keys accepted by SpotmeterParameters.Merge.
const (
	PARAM_REFLECTED_TEMP = "reflected_temp"
	PARAM_EMISSIVITY     = "emissivity"
	PARAM_DISTANCE       = "distance"
)

const (
	EMISSIVITY_MIN = 0.001 // exclusive
	EMISSIVITY_MAX = 1.0
	DISTANCE_MIN   = 0.2
)

// SpotmeterParameters are the temperature calculation parameters written to a
// spotmeter when it uses local parameters.
type SpotmeterParameters struct {
	// ReflectedTemp in Kelvin
	ReflectedTemp float64 `json:"reflected_temp" yaml:"reflected_temp"`
	Emissivity    float64 `json:"emissivity" yaml:"emissivity"`
	// Distance in metres
	Distance float64 `json:"distance" yaml:"distance"`
}

var DefaultSpotmeterParameters = SpotmeterParameters{ReflectedTemp: 298.0, Emissivity: 0.95, Distance: 0.5}

func (p SpotmeterParameters) Validate() error {
	if p.Emissivity <= EMISSIVITY_MIN || p.Emissivity > EMISSIVITY_MAX {
		return &RangeError{Field: PARAM_EMISSIVITY, Value: p.Emissivity, Min: EMISSIVITY_MIN, Max: EMISSIVITY_MAX}
	}
	if p.Distance < DISTANCE_MIN {
		return &RangeError{Field: PARAM_DISTANCE, Value: p.Distance, Min: DISTANCE_MIN, Max: math.Inf(1)}
	}
	return nil
}

// Merge overwrites the known keys of update and returns the unknown ones, sorted.
// If the result would be invalid nothing is applied.
func (p *SpotmeterParameters) Merge(update map[string]float64) ([]string, error) {
	next := *p
	var ignored []string
	for key, value := range update {
		switch key {
		case PARAM_REFLECTED_TEMP:
			next.ReflectedTemp = value
		case PARAM_EMISSIVITY:
			next.Emissivity = value
		case PARAM_DISTANCE:
			next.Distance = value
		default:
			ignored = append(ignored, key)
		}
	}
	sort.Strings(ignored)
	if err := next.Validate(); err != nil {
		return ignored, err
	}
	*p = next
	return ignored, nil
}

// Map returns the parameters keyed like Merge expects.
func (p SpotmeterParameters) Map() map[string]float64 {
	return map[string]float64{
		PARAM_REFLECTED_TEMP: p.ReflectedTemp,
		PARAM_EMISSIVITY:     p.Emissivity,
		PARAM_DISTANCE:       p.Distance,
	}
}

func (p SpotmeterParameters) String() string {
	return fmt.Sprintf("reflected_temp=%.2fK emissivity=%.3f distance=%.2fm", p.ReflectedTemp, p.Emissivity, p.Distance)
}
