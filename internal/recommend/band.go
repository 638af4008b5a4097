package recommend

// Band groups a confidence percentage for display.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
	BandPoor   Band = "poor"
)

// BandFor maps a confidence percentage to its display band.
func BandFor(confidence int) Band {
	switch {
	case confidence >= 75:
		return BandHigh
	case confidence >= 50:
		return BandMedium
	case confidence >= 25:
		return BandLow
	default:
		return BandPoor
	}
}
