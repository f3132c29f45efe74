package comtrade

import "math"

// Resample linearly interpolates each channel in data (indexed [channel][sample])
// from inputRate to outputRate. When the rates agree within 0.1 Hz the input is
// returned unchanged. The output length of every channel is
// ceil(inputSamples * outputRate / inputRate).
func Resample(data [][]float64, inputRate, outputRate float64) [][]float64 {
	if len(data) == 0 {
		return data
	}
	if math.Abs(inputRate-outputRate) <= 0.1 {
		return data
	}

	inputSamples := len(data[0])
	outputSamples := int(math.Ceil(float64(inputSamples) * outputRate / inputRate))

	out := make([][]float64, len(data))
	for ch := range data {
		out[ch] = make([]float64, outputSamples)
		for j := 0; j < outputSamples; j++ {
			out[ch][j] = interpolateLinear(data[ch], float64(j)*inputRate/outputRate)
		}
	}
	return out
}

// interpolateLinear samples data at fractional index x, clamping at the
// boundaries rather than extrapolating.
func interpolateLinear(data []float64, x float64) float64 {
	if len(data) == 0 {
		return 0
	}
	if x <= 0 {
		return data[0]
	}
	if x >= float64(len(data)-1) {
		return data[len(data)-1]
	}
	i := int(math.Floor(x))
	frac := x - float64(i)
	return data[i]*(1-frac) + data[i+1]*frac
}
