package analysis

import (
	"math"
	"strings"
)

// Features summarizes a clip for scoring and feedback. Volume values are RMS
// amplitudes on a 0-1 scale, measured over 20ms frames.
type Features struct {
	DurationSeconds  float64 `json:"duration_seconds"`
	AverageVolume    float64 `json:"average_volume"`
	VolumeVariation  float64 `json:"volume_variation"`
	SilenceRatio     float64 `json:"silence_ratio"`
	ZeroCrossingRate float64 `json:"zero_crossing_rate"`
	SampleRate       int     `json:"sample_rate"`
}

const (
	frameDuration    = 0.020
	silenceThreshold = 0.01
)

// ExtractFeatures computes frame-level energy statistics for a clip.
func ExtractFeatures(clip *Clip) Features {
	f := Features{
		DurationSeconds: clip.Duration(),
		SampleRate:      clip.SampleRate,
	}

	frameLen := int(float64(clip.SampleRate) * frameDuration)
	if frameLen <= 0 || len(clip.Samples) == 0 {
		return f
	}

	var rms []float64
	for start := 0; start+frameLen <= len(clip.Samples); start += frameLen {
		frame := clip.Samples[start : start+frameLen]
		var energy float64
		for _, s := range frame {
			energy += s * s
		}
		rms = append(rms, math.Sqrt(energy/float64(len(frame))))
	}
	if len(rms) == 0 {
		return f
	}

	var sum float64
	silent := 0
	for _, v := range rms {
		sum += v
		if v < silenceThreshold {
			silent++
		}
	}
	mean := sum / float64(len(rms))

	var variance float64
	for _, v := range rms {
		variance += (v - mean) * (v - mean)
	}

	f.AverageVolume = mean
	f.VolumeVariation = math.Sqrt(variance / float64(len(rms)))
	f.SilenceRatio = float64(silent) / float64(len(rms))
	f.ZeroCrossingRate = zeroCrossingRate(clip.Samples)

	return f
}

func zeroCrossingRate(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples)-1)
}

// WordCount counts whitespace-separated words in a transcript.
func WordCount(transcript string) int {
	return len(strings.Fields(transcript))
}

// SpeakingRateWPM converts a word count over a duration to words per minute.
func SpeakingRateWPM(wordCount int, durationSeconds float64) float64 {
	if durationSeconds <= 0 {
		return 0
	}
	return float64(wordCount) / durationSeconds * 60
}
