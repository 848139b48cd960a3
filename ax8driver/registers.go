package ax8driver

// Modbus unit identifiers.
const (
	CAMERA_UNIT_ID    byte = 1
	SPOTMETER_UNIT_ID byte = 0x6C
)

const (
	INTERNAL_TEMPERATURE_REG   uint16 = 1017
	INTERNAL_TEMPERATURE_WORDS        = 2
)

// SpotmeterField is a register offset shared by every spotmeter instance.
type SpotmeterField uint16

const (
	SPOTMETER_ENABLE_LOCAL_PARAMS SpotmeterField = 0
	SPOTMETER_REFLECTED_TEMP      SpotmeterField = 20
	SPOTMETER_EMISSIVITY          SpotmeterField = 40
	SPOTMETER_DISTANCE            SpotmeterField = 60
	SPOTMETER_ENABLE              SpotmeterField = 80
	SPOTMETER_X_POSITION          SpotmeterField = 100
	SPOTMETER_Y_POSITION          SpotmeterField = 120
	SPOTMETER_TEMPERATURE         SpotmeterField = 140
	SPOTMETER_TEMP_STATE          SpotmeterField = 160
)

const (
	SPOTMETER_BASE_STRIDE  = 4000
	SPOTMETER_MIN_INSTANCE = 1
	SPOTMETER_MAX_INSTANCE = 5
	SPOTMETER_N_INSTANCES  = SPOTMETER_MAX_INSTANCE - SPOTMETER_MIN_INSTANCE + 1

	// Spotmeter fields are read as a block whose last two words hold the value.
	SPOTMETER_READ_WORDS = 6
)

// SPOTMETER_FIELDS lists the fields in register order.
var SPOTMETER_FIELDS = [...]SpotmeterField{
	SPOTMETER_ENABLE_LOCAL_PARAMS,
	SPOTMETER_REFLECTED_TEMP,
	SPOTMETER_EMISSIVITY,
	SPOTMETER_DISTANCE,
	SPOTMETER_ENABLE,
	SPOTMETER_X_POSITION,
	SPOTMETER_Y_POSITION,
	SPOTMETER_TEMPERATURE,
	SPOTMETER_TEMP_STATE,
}

func (f SpotmeterField) String() string {
	switch f {
	case SPOTMETER_ENABLE_LOCAL_PARAMS:
		return "enable-local-params"
	case SPOTMETER_REFLECTED_TEMP:
		return "reflected-temp"
	case SPOTMETER_EMISSIVITY:
		return "emissivity"
	case SPOTMETER_DISTANCE:
		return "distance"
	case SPOTMETER_ENABLE:
		return "enable-spotmeter"
	case SPOTMETER_X_POSITION:
		return "spot-x-position"
	case SPOTMETER_Y_POSITION:
		return "spot-y-position"
	case SPOTMETER_TEMPERATURE:
		return "spot-temperature"
	case SPOTMETER_TEMP_STATE:
		return "spot-temp-state"
	}
	return "unknown"
}

// SpotmeterRegister returns the absolute register address of a field of a
// spotmeter instance.
func SpotmeterRegister(instance int, field SpotmeterField) (uint16, error) {
	if err := checkInstance(instance); err != nil {
		return 0, err
	}
	return uint16(instance*SPOTMETER_BASE_STRIDE) + uint16(field), nil
}

func checkInstance(instance int) error {
	if instance < SPOTMETER_MIN_INSTANCE || instance > SPOTMETER_MAX_INSTANCE {
		return &RangeError{
			Field: "spotmeter instance",
			Value: float64(instance),
			Min:   SPOTMETER_MIN_INSTANCE,
			Max:   SPOTMETER_MAX_INSTANCE,
		}
	}
	return nil
}
