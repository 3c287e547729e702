package audio

import "math"

// EnergyDB returns the energy of mono PCM in decibels relative to one
// quantisation step: 20·log10(rms). Silent or empty input returns -Inf.
func EnergyDB(pcm []byte, width int) float64 {
	rms := RMS(pcm, width)
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}

// SNR estimates the signal-to-noise ratio in decibels between a speech
// excerpt and a noise excerpt. A perfectly silent noise excerpt yields +Inf.
func SNR(speech, noise []byte, width int) float64 {
	noiseDB := EnergyDB(noise, width)
	if math.IsInf(noiseDB, -1) {
		return math.Inf(1)
	}
	return EnergyDB(speech, width) - noiseDB
}
