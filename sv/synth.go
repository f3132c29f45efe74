package sv

import "math"

const sqrt2 = 1.414213562

// Phasor is a steady-state magnitude/angle pair for one of the eight channels.
type Phasor struct {
	MagnitudeMicro float64 // magnitude as transmitted, engineering units
	AngleDeg       float64
}

// SynthesizeSamples computes the instantaneous INT32 value of each of the
// eight phasors at the current sample count: magnitude * sqrt(2) *
// cos(2*pi*nominalFreqHz*t + angle), t = smpCnt/smpRate, rounded to the
// nearest integer.
func SynthesizeSamples(phasors [NumChannels]Phasor, smpCnt, smpRate uint16, nominalFreqHz float64) [NumChannels]int32 {
	var out [NumChannels]int32
	omega := 2 * math.Pi * nominalFreqHz
	t := float64(smpCnt) / float64(smpRate)
	for i, ph := range phasors {
		angleRad := ph.AngleDeg * math.Pi / 180
		out[i] = int32(math.Round(ph.MagnitudeMicro * sqrt2 * math.Cos(omega*t+angleRad)))
	}
	return out
}
