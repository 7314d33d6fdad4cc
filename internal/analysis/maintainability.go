package analysis

import "math"

// MaintainabilityIndex combines size, comment density, and complexity into
// a 0-100 composite:
//
//	100 - complexityPerLine*25 + commentRatio*15 - ln(totalLines)*10
//
// clamped to [0,100]. Zero total lines is degenerate input and scores 0.
func MaintainabilityIndex(totalLines, commentLines, totalComplexity int) float64 {
	if totalLines == 0 {
		return 0.0
	}

	complexityPerLine := float64(totalComplexity) / float64(totalLines)
	commentRatio := float64(commentLines) / float64(totalLines)

	index := 100 - complexityPerLine*25 + commentRatio*15 - math.Log(float64(totalLines))*10

	return clamp(index, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
