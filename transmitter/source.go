package transmitter

import (
	"github.com/gridstream/sv92/comtrade"
	"github.com/gridstream/sv92/config"
	"github.com/gridstream/sv92/sv"
)

// FrameSource produces the eight channel values for one frame and reports
// whether the underlying data is exhausted (relevant only to COMTRADE replay
// without looping; phasor injection never exhausts).
type FrameSource interface {
	Next(state *sv.StreamState) (samples [sv.NumChannels]int32, exhausted bool)
}

// PhasorSource synthesizes a steady-state closed-form waveform from eight
// (magnitude, angle) phasors every call, driven by the stream's own smpCnt.
type PhasorSource struct {
	Phasors       [sv.NumChannels]sv.Phasor
	NominalFreqHz float64
}

func NewPhasorSource(values [8]config.PhasorValue, nominalFreqHz float64) *PhasorSource {
	var phasors [sv.NumChannels]sv.Phasor
	for i, v := range values {
		phasors[i] = sv.Phasor{MagnitudeMicro: v.MagnitudeMicro, AngleDeg: v.AngleDeg}
	}
	return &PhasorSource{Phasors: phasors, NominalFreqHz: nominalFreqHz}
}

func (s *PhasorSource) Next(state *sv.StreamState) ([sv.NumChannels]int32, bool) {
	samples := sv.SynthesizeSamples(s.Phasors, state.SmpCnt, state.SmpRate, s.NominalFreqHz)
	return samples, false
}

// ComtradeSource replays a pre-resampled COMTRADE channel matrix, one column
// at a time, optionally looping back to index 0 at end of file.
type ComtradeSource struct {
	data []([]float64) // [svChannel][sample], zero-filled for unmapped channels
	loop bool
	idx  int
}

// NewComtradeSource builds a ComtradeSource from a resampled matrix indexed
// by COMTRADE channel, remapped into SV channel slots per mapping. Every
// entry's ComtradeName is assumed already validated against cfg by the
// caller (ConfigureComtradeReplay rejects unknown channel names before this
// is ever constructed).
func NewComtradeSource(cfg comtrade.Config, resampled [][]float64, mapping config.ChannelMapping, loop bool) *ComtradeSource {
	var svData [sv.NumChannels][]float64

	length := 0
	if len(resampled) > 0 {
		length = len(resampled[0])
	}
	for i := range svData {
		svData[i] = make([]float64, length)
	}

	for _, entry := range mapping {
		ch, ok := cfg.AnalogChannelByName(entry.ComtradeName)
		if !ok || ch.Index < 0 || ch.Index >= len(resampled) {
			continue
		}
		svData[entry.SvChannel] = resampled[ch.Index]
	}

	data := make([][]float64, sv.NumChannels)
	for i := range svData {
		data[i] = svData[i]
	}

	return &ComtradeSource{data: data, loop: loop}
}

// NumSamples reports the length of the replay, taken from channel 0's
// resampled length (all channels share the same length after Resample).
func (s *ComtradeSource) NumSamples() int {
	if len(s.data) == 0 {
		return 0
	}
	return len(s.data[0])
}

func (s *ComtradeSource) Next(state *sv.StreamState) ([sv.NumChannels]int32, bool) {
	n := s.NumSamples()
	if n == 0 {
		return [sv.NumChannels]int32{}, true
	}
	if s.idx >= n {
		if !s.loop {
			return [sv.NumChannels]int32{}, true
		}
		s.idx = 0
	}

	var samples [sv.NumChannels]int32
	for ch := 0; ch < sv.NumChannels; ch++ {
		samples[ch] = int32(s.data[ch][s.idx])
	}
	s.idx++
	return samples, false
}
