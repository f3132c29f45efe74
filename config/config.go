// Package config holds the literal configuration surfaces the transmitter
// consumes, plus a CSV-driven loader for channel mappings.
package config

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
)

// ChannelMappingEntry maps one COMTRADE channel name to an SV channel slot.
// The gocsv struct tags let this be round-tripped through a CSV file with a
// "name,index" header, an alternative to specifying the mapping in Go code.
type ChannelMappingEntry struct {
	ComtradeName string `csv:"name"`
	SvChannel    int    `csv:"index"`
}

// ChannelMapping is an ordered list of comtrade-name -> SV-channel-index
// pairs. Indices outside [0,7] are rejected by Validate; channels with no
// entry remain zero-filled in the transmitted frame.
type ChannelMapping []ChannelMappingEntry

// Validate checks every mapped index falls within the eight-channel ASDU.
func (m ChannelMapping) Validate() error {
	for _, e := range m {
		if e.SvChannel < 0 || e.SvChannel > 7 {
			return fmt.Errorf("config: channel %q maps to index %d, want [0,7]", e.ComtradeName, e.SvChannel)
		}
	}
	return nil
}

// LoadChannelMapping reads a CSV file with a "name,index" header into a
// ChannelMapping, for operators who prefer to keep the mapping alongside
// their COMTRADE files instead of compiling it into Go literals.
func LoadChannelMapping(path string) (ChannelMapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open channel mapping: %w", err)
	}
	defer f.Close()

	var entries []ChannelMappingEntry
	if err := gocsv.UnmarshalFile(f, &entries); err != nil {
		return nil, fmt.Errorf("config: parse channel mapping: %w", err)
	}
	mapping := ChannelMapping(entries)
	if err := mapping.Validate(); err != nil {
		return nil, err
	}
	return mapping, nil
}

// SaveChannelMapping writes mapping back out as CSV, the inverse of
// LoadChannelMapping.
func SaveChannelMapping(path string, mapping ChannelMapping) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: create channel mapping file: %w", err)
	}
	defer f.Close()
	return gocsv.MarshalFile([]ChannelMappingEntry(mapping), f)
}

// NetworkConfig is the addressing surface shared by both run modes.
type NetworkConfig struct {
	Interface    string
	DstMAC       string
	SrcMAC       string // auto-resolved from the socket when empty
	VLANID       uint16
	VLANPriority uint8
	AppID        uint16
	SvID         string
	SampleRateHz uint16
}

// GooseStopConfig configures the optional listener.
type GooseStopConfig struct {
	Enabled         bool
	GoCBRefContains string
}

// PhasorConfig drives synthetic phasor injection: eight (magnitude, angle)
// pairs and the nominal grid frequency used by the closed-form waveform.
type PhasorConfig struct {
	Network           NetworkConfig
	Goose             GooseStopConfig
	Phasors           [8]PhasorValue
	NominalFreqHz     float64
	ProgressInterval  uint32
}

// PhasorValue is one channel's steady-state magnitude and angle.
type PhasorValue struct {
	MagnitudeMicro float64
	AngleDeg       float64
}

// DefaultPhasorConfig mirrors the reference implementation's built-in
// three-phase 100A / 69.5kV balanced set, used as a starting point for
// phasor-injection runs.
func DefaultPhasorConfig() PhasorConfig {
	return PhasorConfig{
		Network: NetworkConfig{
			Interface: "eth0", DstMAC: "01:0C:CD:01:00:00",
			VLANID: 4, VLANPriority: 4, AppID: 0x4000,
			SvID: "TestSV01", SampleRateHz: 4800,
		},
		Goose:         GooseStopConfig{Enabled: true, GoCBRefContains: "STOP"},
		NominalFreqHz: 60,
		Phasors: [8]PhasorValue{
			{100.0, 0.0}, {100.0, -120.0}, {100.0, 120.0}, {0, 0},
			{69500.0, 0.0}, {69500.0, -120.0}, {69500.0, 120.0}, {0, 0},
		},
		ProgressInterval: 1000,
	}
}

// ComtradeReplayConfig drives COMTRADE-sourced replay.
type ComtradeReplayConfig struct {
	Network          NetworkConfig
	Goose            GooseStopConfig
	CfgFilePath      string
	DatFilePath      string // optional, auto-detected from CfgFilePath when empty
	ChannelMapping   ChannelMapping
	LoopPlayback     bool
	ProgressInterval uint32
}
