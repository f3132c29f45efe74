// Package sv builds IEC 61850-9-2 Sampled Value Ethernet frames: an 802.1Q
// VLAN-tagged Layer-2 header wrapping a BER/ASN.1-encoded SAVPDU carrying one
// eight-channel ASDU.
package sv

// BER context tags used by the SAVPDU/ASDU encoding. Tag values are fixed by
// IEC 61850-9-2LE and are not configurable.
const (
	tagSAVPDU       = 0x60
	tagNoASDU       = 0x80
	tagSeqOfASDU    = 0xA2
	tagASDU         = 0x30
	tagSvID         = 0x80
	tagSmpCnt       = 0x82
	tagConfRev      = 0x83
	tagSmpSynch     = 0x85
	tagSmpRate      = 0x86
	tagSeqData      = 0x87
	etherTypeVLAN   = 0x8100
	etherTypeSV     = 0x88BA
)

// appendBERLength writes the definite-form BER length of n, using the short
// form for n <= 127 and the long form (0x81 or 0x82 prefix) otherwise.
func appendBERLength(buf []byte, n int) []byte {
	switch {
	case n <= 127:
		return append(buf, byte(n))
	case n <= 255:
		return append(buf, 0x81, byte(n))
	default:
		return append(buf, 0x82, byte(n>>8), byte(n))
	}
}

// berLengthSize reports how many bytes appendBERLength would emit for n.
func berLengthSize(n int) int {
	switch {
	case n <= 127:
		return 1
	case n <= 255:
		return 2
	default:
		return 3
	}
}
