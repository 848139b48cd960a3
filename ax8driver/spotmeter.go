package ax8driver

import (
	"github.com/womat/debug"
)

// ENABLE_FLAG is written to both the enable and the enable-local-params registers.
var ENABLE_FLAG = []uint16{1, 1}

// Spotmeters drives the spotmeter registers of a camera. It keeps no state of
// its own: every call is a live register read or write, issued one at a time.
type Spotmeters struct {
	transport Transport
	verbose   bool
}

func NewSpotmeters(transport Transport, verbose bool) *Spotmeters {
	return &Spotmeters{transport: transport, verbose: verbose}
}

func (s *Spotmeters) write(instance int, field SpotmeterField, values []uint16) error {
	address, err := SpotmeterRegister(instance, field)
	if err != nil {
		return err
	}
	debug.TraceLog.Printf("spotmeter %d: writing %s at %d: %v", instance, field, address, values)
	return s.transport.WriteMultipleRegisters(SPOTMETER_UNIT_ID, address, values)
}

// read returns the value pair at the tail of a field's read window.
func (s *Spotmeters) read(instance int, field SpotmeterField) ([]uint16, error) {
	address, err := SpotmeterRegister(instance, field)
	if err != nil {
		return nil, err
	}
	words, err := s.transport.ReadHoldingRegisters(SPOTMETER_UNIT_ID, address, SPOTMETER_READ_WORDS)
	if err != nil {
		return nil, err
	}
	return tail(words, SPOTMETER_READ_WORDS)
}

func (s *Spotmeters) writeFloat(instance int, field SpotmeterField, v float64) error {
	payload, err := EncodeFloat(v)
	if err != nil {
		return err
	}
	return s.write(instance, field, payload.Words())
}

func (s *Spotmeters) writeInt(instance int, field SpotmeterField, v int) error {
	payload, err := EncodeInt(v)
	if err != nil {
		return err
	}
	return s.write(instance, field, payload.Words())
}

// Enable places and enables each spot. With useLocalParams the spot gets its
// own copy of params, otherwise the camera's global parameters apply.
// Positions are passed to the camera as given.
// A failure midway leaves earlier writes in place.
func (s *Spotmeters) Enable(spots []Spot, useLocalParams bool, params SpotmeterParameters) error {
	for _, spot := range spots {
		if err := checkInstance(spot.Instance); err != nil {
			return err
		}
		if useLocalParams {
			if err := s.write(spot.Instance, SPOTMETER_ENABLE_LOCAL_PARAMS, ENABLE_FLAG); err != nil {
				return err
			}
			if err := s.writeFloat(spot.Instance, SPOTMETER_REFLECTED_TEMP, params.ReflectedTemp); err != nil {
				return err
			}
			if err := s.writeFloat(spot.Instance, SPOTMETER_EMISSIVITY, params.Emissivity); err != nil {
				return err
			}
			if err := s.writeFloat(spot.Instance, SPOTMETER_DISTANCE, params.Distance); err != nil {
				return err
			}
		}
		if err := s.writeInt(spot.Instance, SPOTMETER_X_POSITION, spot.X); err != nil {
			return err
		}
		if err := s.writeInt(spot.Instance, SPOTMETER_Y_POSITION, spot.Y); err != nil {
			return err
		}
		if err := s.write(spot.Instance, SPOTMETER_ENABLE, ENABLE_FLAG); err != nil {
			return err
		}
	}
	return nil
}

// Disable writes the enable register of each instance.
// The camera firmware accepts the same flag value as Enable here; the spot
// keeps reporting afterwards.
func (s *Spotmeters) Disable(instances []int) error {
	for _, instance := range instances {
		if err := s.write(instance, SPOTMETER_ENABLE, ENABLE_FLAG); err != nil {
			return err
		}
	}
	return nil
}

// ReadTemperatures returns one reading per instance, in order.
func (s *Spotmeters) ReadTemperatures(instances []int, unit TemperatureUnit) ([]float64, error) {
	temps := make([]float64, 0, len(instances))
	for _, instance := range instances {
		words, err := s.read(instance, SPOTMETER_TEMPERATURE)
		if err != nil {
			return nil, err
		}
		kelvin, err := DecodeFloat(words)
		if err != nil {
			return nil, err
		}
		temps = append(temps, unit.FromKelvin(float64(kelvin)))
	}
	if s.verbose {
		debug.InfoLog.Printf("Spotmeter temperatures %v: %v %s", instances, temps, unit)
	}
	return temps, nil
}

// ReadPositions returns the pixel each instance sits on, in order.
func (s *Spotmeters) ReadPositions(instances []int) ([]Position, error) {
	positions := make([]Position, 0, len(instances))
	for _, instance := range instances {
		x, err := s.readInt(instance, SPOTMETER_X_POSITION)
		if err != nil {
			return nil, err
		}
		y, err := s.readInt(instance, SPOTMETER_Y_POSITION)
		if err != nil {
			return nil, err
		}
		positions = append(positions, Position{X: int(x), Y: int(y)})
	}
	if s.verbose {
		debug.InfoLog.Printf("Spotmeter positions %v: %v", instances, positions)
	}
	return positions, nil
}

// ReadTemperatureStates returns the raw temperature state word of each instance.
func (s *Spotmeters) ReadTemperatureStates(instances []int) ([]int32, error) {
	states := make([]int32, 0, len(instances))
	for _, instance := range instances {
		state, err := s.readInt(instance, SPOTMETER_TEMP_STATE)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, nil
}

func (s *Spotmeters) readInt(instance int, field SpotmeterField) (int32, error) {
	words, err := s.read(instance, field)
	if err != nil {
		return 0, err
	}
	return DecodeInt(words)
}

// InternalTemperature returns the camera housing temperature in Kelvin.
func (s *Spotmeters) InternalTemperature() (float64, error) {
	words, err := s.transport.ReadHoldingRegisters(CAMERA_UNIT_ID, INTERNAL_TEMPERATURE_REG, INTERNAL_TEMPERATURE_WORDS)
	if err != nil {
		return 0, err
	}
	if words, err = tail(words, INTERNAL_TEMPERATURE_WORDS); err != nil {
		return 0, err
	}
	kelvin, err := DecodeFloat(words)
	if err != nil {
		return 0, err
	}
	if s.verbose {
		debug.InfoLog.Printf("Internal Camera Temperature %.2f", kelvin)
	}
	return float64(kelvin), nil
}
