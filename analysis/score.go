package analysis

import "math"

// Score rates a practice session 0-100 from its speaking rate and audio
// features. Bands: speaking rate up to 40 points (ideal 120-160 wpm), volume
// up to 30, volume consistency up to 20, articulation up to 10.
func Score(speakingRateWPM float64, f Features) float64 {
	var score float64

	switch {
	case speakingRateWPM >= 120 && speakingRateWPM <= 160:
		score += 40
	case (speakingRateWPM >= 100 && speakingRateWPM < 120) ||
		(speakingRateWPM > 160 && speakingRateWPM <= 180):
		score += 30
	case (speakingRateWPM >= 80 && speakingRateWPM < 100) ||
		(speakingRateWPM > 180 && speakingRateWPM <= 200):
		score += 20
	default:
		score += 10
	}

	switch {
	case f.AverageVolume >= 0.02 && f.AverageVolume <= 0.1:
		score += 30
	case (f.AverageVolume >= 0.01 && f.AverageVolume < 0.02) ||
		(f.AverageVolume > 0.1 && f.AverageVolume <= 0.15):
		score += 20
	default:
		score += 10
	}

	switch {
	case f.VolumeVariation < 0.02:
		score += 20
	case f.VolumeVariation < 0.05:
		score += 15
	default:
		score += 10
	}

	// Zero-crossing rate stands in for pitch variation: voiced speech with
	// natural consonant content lands in the middle band.
	switch {
	case f.ZeroCrossingRate >= 0.05 && f.ZeroCrossingRate <= 0.15:
		score += 10
	case (f.ZeroCrossingRate >= 0.02 && f.ZeroCrossingRate < 0.05) ||
		(f.ZeroCrossingRate > 0.15 && f.ZeroCrossingRate <= 0.25):
		score += 7
	default:
		score += 5
	}

	return math.Round(score*100) / 100
}
