package sv

import "fmt"

// Channel count carried by every ASDU this encoder produces: four currents
// and four voltages, matching IEC 61850-9-2LE's eight-channel profile.
const NumChannels = 8

// StreamState is the mutable per-stream cursor (smpCnt) plus the identity
// and addressing fields that are constant for the life of a run.
type StreamState struct {
	DstMAC, SrcMAC string
	VLANID         uint16 // 0-4095
	VLANPriority   uint8  // 0-7

	AppID    uint16
	SvID     string
	SmpRate  uint16 // samples per second
	ConfRev  uint32
	SmpSynch uint8

	SmpCnt uint16
}

// Validate checks the addressing fields that Configure must reject up front.
func (s *StreamState) Validate() error {
	if s.VLANID > 4095 {
		return fmt.Errorf("sv: vlan id %d out of range [0,4095]", s.VLANID)
	}
	if s.VLANPriority > 7 {
		return fmt.Errorf("sv: vlan priority %d out of range [0,7]", s.VLANPriority)
	}
	if s.SmpRate == 0 {
		return fmt.Errorf("sv: sample rate must be > 0")
	}
	return nil
}

// Advance increments SmpCnt, wrapping to 0 when it reaches SmpRate.
func (s *StreamState) Advance() {
	s.SmpCnt++
	if s.SmpCnt >= s.SmpRate {
		s.SmpCnt = 0
	}
}
