package sv

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseMAC converts "XX:XX:XX:XX:XX:XX" into 6 raw bytes.
func ParseMAC(mac string) ([6]byte, error) {
	var out [6]byte
	parts := strings.Split(mac, ":")
	if len(parts) != 6 {
		return out, fmt.Errorf("sv: invalid MAC address %q", mac)
	}
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return out, fmt.Errorf("sv: invalid MAC address %q: %w", mac, err)
		}
		out[i] = byte(v)
	}
	return out, nil
}

func vlanTag(priority uint8, dei bool, id uint16) [4]byte {
	tci := uint16(priority)<<13 | boolBit(dei)<<12 | id
	return [4]byte{byte(etherTypeVLAN >> 8), byte(etherTypeVLAN & 0xFF), byte(tci >> 8), byte(tci)}
}

func boolBit(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}

// buildASDU encodes one eight-channel ASDU (tag 0x30) for the given state and
// sample/quality vectors, not including the outer SAVPDU/sequence wrapping.
func buildASDU(s *StreamState, samples [NumChannels]int32, qualities [NumChannels]uint32) []byte {
	body := make([]byte, 0, 16+len(s.SvID))

	body = append(body, tagSvID, byte(len(s.SvID)))
	body = append(body, s.SvID...)

	body = append(body, tagSmpCnt, 0x02, byte(s.SmpCnt>>8), byte(s.SmpCnt))

	body = append(body, tagConfRev, 0x04,
		byte(s.ConfRev>>24), byte(s.ConfRev>>16), byte(s.ConfRev>>8), byte(s.ConfRev))

	body = append(body, tagSmpSynch, 0x01, s.SmpSynch)

	body = append(body, tagSmpRate, 0x02, byte(s.SmpRate>>8), byte(s.SmpRate))

	body = append(body, tagSeqData, byte(NumChannels*8))
	for i := 0; i < NumChannels; i++ {
		v := uint32(samples[i])
		body = append(body, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
		q := qualities[i]
		body = append(body, byte(q>>24), byte(q>>16), byte(q>>8), byte(q))
	}

	asdu := make([]byte, 0, len(body)+4)
	asdu = append(asdu, tagASDU)
	asdu = appendBERLength(asdu, len(body))
	asdu = append(asdu, body...)
	return asdu
}

// BuildFrame renders one complete Ethernet frame: dst/src MAC, 802.1Q tag,
// SV EtherType header, and the BER-encoded SAVPDU for samples/qualities.
func BuildFrame(s *StreamState, samples [NumChannels]int32, qualities [NumChannels]uint32) ([]byte, error) {
	dst, err := ParseMAC(s.DstMAC)
	if err != nil {
		return nil, err
	}
	src, err := ParseMAC(s.SrcMAC)
	if err != nil {
		return nil, err
	}

	asdu := buildASDU(s, samples, qualities)

	seqASDU := make([]byte, 0, len(asdu)+4)
	seqASDU = append(seqASDU, tagSeqOfASDU)
	seqASDU = appendBERLength(seqASDU, len(asdu))
	seqASDU = append(seqASDU, asdu...)

	savpdu := make([]byte, 0, len(seqASDU)+7)
	savpdu = append(savpdu, tagNoASDU, 0x01, 0x01) // noAsdu == 1
	savpdu = append(savpdu, seqASDU...)

	savpduLen := len(savpdu)
	// Length field counts itself: APPID(2) + Length(2) + Reserved1(2) + Reserved2(2)
	// + SAVPDU tag(1) + SAVPDU length bytes + SAVPDU body.
	totalLen := 4 + 4 + 1 + berLengthSize(savpduLen) + savpduLen

	frame := make([]byte, 0, 18+9+totalLen)
	frame = append(frame, dst[:]...)
	frame = append(frame, src[:]...)

	tag := vlanTag(s.VLANPriority, false, s.VLANID)
	frame = append(frame, tag[:]...)

	frame = append(frame, byte(etherTypeSV>>8), byte(etherTypeSV&0xFF))
	frame = append(frame, byte(s.AppID>>8), byte(s.AppID))
	frame = append(frame, byte(totalLen>>8), byte(totalLen))
	frame = append(frame, 0x00, 0x00) // reserved1
	frame = append(frame, 0x00, 0x00) // reserved2

	frame = append(frame, tagSAVPDU)
	frame = appendBERLength(frame, savpduLen)
	frame = append(frame, savpdu...)

	return frame, nil
}
