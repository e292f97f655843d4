package weather

// Condition is a small closed classification of raw weather codes.
type Condition string

const (
	ConditionClear        Condition = "CLEAR"
	ConditionCloudy       Condition = "CLOUDY"
	ConditionFog          Condition = "FOG"
	ConditionDrizzle      Condition = "DRIZZLE"
	ConditionRain         Condition = "RAIN"
	ConditionSnow         Condition = "SNOW"
	ConditionThunderstorm Condition = "THUNDERSTORM"
)

func (c Condition) String() string { return string(c) }

// ClassifyCode maps a WMO weather code to a condition and human description.
// The mapping is pure and total: every integer maps to some condition, with
// unknown codes classified as cloudy.
func ClassifyCode(code int) (Condition, string) {
	switch {
	case code == 0:
		return ConditionClear, "clear sky"
	case code >= 1 && code <= 3:
		return ConditionCloudy, "partly cloudy"
	case code == 45 || code == 48:
		return ConditionFog, "fog"
	case code >= 51 && code <= 57:
		return ConditionDrizzle, "drizzle"
	case code >= 61 && code <= 67:
		return ConditionRain, "rain"
	case code >= 71 && code <= 77:
		return ConditionSnow, "snowfall"
	case code >= 80 && code <= 82:
		return ConditionRain, "rain showers"
	case code == 85 || code == 86:
		return ConditionSnow, "snow showers"
	case code >= 95 && code <= 99:
		return ConditionThunderstorm, "thunderstorm"
	default:
		return ConditionCloudy, "overcast"
	}
}
