// Package units provides shared constants and validation for coordinate units
package units

// Unit constants. Localization tables store coordinates in nanometres.
const (
	NM = "nm"
	UM = "um"
	PX = "px"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{NM, UM, PX}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "nm, um, px"
}

// ConvertLength converts a length from nanometres to the target units.
// Pixel conversion needs the rendered bin width; binSizeNM of zero falls
// back to nanometres.
func ConvertLength(lengthNM float64, targetUnits string, binSizeNM float64) float64 {
	switch targetUnits {
	case UM:
		return lengthNM / 1000.0 // nm to µm
	case PX:
		if binSizeNM == 0 {
			return lengthNM
		}
		return lengthNM / binSizeNM
	case NM:
		return lengthNM // no conversion needed
	default:
		return lengthNM // default to nm if unknown unit
	}
}
